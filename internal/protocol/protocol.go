package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"chat-relay/internal/models"
)

var (
	ErrUnknownFrameType = errors.New("unknown frame type")
	ErrMissingPayload   = errors.New("frame payload does not match type")
)

// FrameType discriminates the payload carried by a frame.
type FrameType string

const (
	FrameAuthRequest     FrameType = "auth_request"
	FrameAuthResult      FrameType = "auth_result"
	FrameIdentity        FrameType = "identity"
	FrameSendMessage     FrameType = "send_message"
	FrameDeliverMessage  FrameType = "deliver_message"
	FrameDeliveryReceipt FrameType = "delivery_receipt"
)

// AuthRequest carries the credentials of the single permitted
// authentication attempt on a connection.
type AuthRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResult reports whether authentication succeeded. On success the
// server follows up with an identity frame.
type AuthResult struct {
	OK bool `json:"ok"`
}

// DeliveryReceipt confirms to the original sender that a message reached
// an online recipient.
type DeliveryReceipt struct {
	MessageID string `json:"message_id"`
}

// Frame is one logical protocol unit. Exactly one payload field is set,
// and it must be the one named by Type.
type Frame struct {
	Type    FrameType        `json:"type"`
	Auth    *AuthRequest     `json:"auth,omitempty"`
	Result  *AuthResult      `json:"result,omitempty"`
	User    *models.User     `json:"user,omitempty"`
	Message *models.Message  `json:"message,omitempty"`
	Receipt *DeliveryReceipt `json:"receipt,omitempty"`
}

// NewAuthRequest builds an auth_request frame.
func NewAuthRequest(username, password string) Frame {
	return Frame{Type: FrameAuthRequest, Auth: &AuthRequest{Username: username, Password: password}}
}

// NewAuthResult builds an auth_result frame.
func NewAuthResult(ok bool) Frame {
	return Frame{Type: FrameAuthResult, Result: &AuthResult{OK: ok}}
}

// NewIdentity builds the identity frame that follows a successful auth_result.
func NewIdentity(user models.User) Frame {
	return Frame{Type: FrameIdentity, User: &user}
}

// NewSendMessage builds the client-side send_message frame.
func NewSendMessage(msg models.Message) Frame {
	return Frame{Type: FrameSendMessage, Message: &msg}
}

// NewDeliverMessage builds the server-side deliver_message frame.
func NewDeliverMessage(msg models.Message) Frame {
	return Frame{Type: FrameDeliverMessage, Message: &msg}
}

// NewDeliveryReceipt builds a delivery_receipt frame for messageID.
func NewDeliveryReceipt(messageID string) Frame {
	return Frame{Type: FrameDeliveryReceipt, Receipt: &DeliveryReceipt{MessageID: messageID}}
}

// Marshal encodes a frame after validating its payload.
func Marshal(f Frame) ([]byte, error) {
	if err := Validate(f); err != nil {
		return nil, err
	}
	return json.Marshal(f)
}

// Parse decodes and validates one frame. Unknown type tags and payloads
// that do not match the tag are protocol violations.
func Parse(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	if err := Validate(f); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// Validate checks that the frame carries the payload its type names.
func Validate(f Frame) error {
	switch f.Type {
	case FrameAuthRequest:
		if f.Auth == nil {
			return ErrMissingPayload
		}
	case FrameAuthResult:
		if f.Result == nil {
			return ErrMissingPayload
		}
	case FrameIdentity:
		if f.User == nil {
			return ErrMissingPayload
		}
	case FrameSendMessage, FrameDeliverMessage:
		if f.Message == nil {
			return ErrMissingPayload
		}
	case FrameDeliveryReceipt:
		if f.Receipt == nil {
			return ErrMissingPayload
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFrameType, f.Type)
	}
	return nil
}
