package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-relay/internal/models"
)

func TestParseAuthRequest(t *testing.T) {
	data := []byte(`{"type":"auth_request","auth":{"username":"alice","password":"secret"}}`)

	frame, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, FrameAuthRequest, frame.Type)
	assert.Equal(t, "alice", frame.Auth.Username)
	assert.Equal(t, "secret", frame.Auth.Password)
}

func TestParseRejectsUnknownType(t *testing.T) {
	_, err := Parse([]byte(`{"type":"shutdown"}`))
	assert.ErrorIs(t, err, ErrUnknownFrameType)
}

func TestParseRejectsMismatchedPayload(t *testing.T) {
	// A send_message tag without a message payload is a protocol violation.
	_, err := Parse([]byte(`{"type":"send_message","auth":{"username":"x","password":"y"}}`))
	assert.ErrorIs(t, err, ErrMissingPayload)
}

func TestParseRejectsMalformedJSON(t *testing.T) {
	_, err := Parse([]byte(`{"type":`))
	assert.Error(t, err)
}

func TestMessageRoundTrip(t *testing.T) {
	msg := models.NewMessage("sender-1", "recipient-1", models.TypeText, "hi")

	data, err := Marshal(NewSendMessage(msg))
	require.NoError(t, err)

	frame, err := Parse(data)
	require.NoError(t, err)
	require.Equal(t, FrameSendMessage, frame.Type)
	assert.Equal(t, msg.ID, frame.Message.ID)
	assert.Equal(t, models.StatusSent, frame.Message.Status)
	assert.Equal(t, "hi", frame.Message.Content)
}

func TestReceiptCarriesMessageID(t *testing.T) {
	data, err := Marshal(NewDeliveryReceipt("msg-42"))
	require.NoError(t, err)

	frame, err := Parse(data)
	require.NoError(t, err)
	require.Equal(t, FrameDeliveryReceipt, frame.Type)
	assert.Equal(t, "msg-42", frame.Receipt.MessageID)
}

func TestIdentityOmitsPasswordHash(t *testing.T) {
	user := models.NewUser("alice", "$2a$10$hash", "alice@example.com")

	data, err := Marshal(NewIdentity(user))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "$2a$10$hash")
}

func TestMarshalValidates(t *testing.T) {
	_, err := Marshal(Frame{Type: FrameAuthResult})
	assert.ErrorIs(t, err, ErrMissingPayload)
}
