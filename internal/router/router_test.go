package router

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-relay/internal/mocks"
	"chat-relay/internal/models"
	"chat-relay/internal/protocol"
	"chat-relay/internal/registry"
)

type fakeSink struct {
	mu     sync.Mutex
	frames []protocol.Frame
	err    error
}

func (s *fakeSink) Push(frame protocol.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.frames = append(s.frames, frame)
	return nil
}

func (s *fakeSink) pushed() []protocol.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.Frame(nil), s.frames...)
}

func statusIs(status models.MessageStatus) interface{} {
	return mock.MatchedBy(func(msg models.Message) bool {
		return msg.Status == status
	})
}

func TestRouteDeliversToOnlineRecipient(t *testing.T) {
	reg := registry.New()
	messages := new(mocks.MessageRepositoryMock)
	rtr := New(reg, messages)

	recipientSink := &fakeSink{}
	senderSink := &fakeSink{}
	reg.Register("bob", recipientSink)
	reg.Register("alice", senderSink)

	msg := models.NewMessage("alice", "bob", models.TypeText, "hi")
	messages.On("SaveMessage", mock.Anything, statusIs(models.StatusDelivered)).Return(nil).Once()

	routed := rtr.Route(context.Background(), msg)

	assert.Equal(t, models.StatusDelivered, routed.Status)

	delivered := recipientSink.pushed()
	require.Len(t, delivered, 1)
	assert.Equal(t, protocol.FrameDeliverMessage, delivered[0].Type)
	assert.Equal(t, msg.ID, delivered[0].Message.ID)
	// The push happens before the status transition; only the persisted
	// copy and the returned message carry delivered.
	assert.Equal(t, models.StatusSent, delivered[0].Message.Status)

	receipts := senderSink.pushed()
	require.Len(t, receipts, 1)
	assert.Equal(t, protocol.FrameDeliveryReceipt, receipts[0].Type)
	assert.Equal(t, msg.ID, receipts[0].Receipt.MessageID)

	messages.AssertExpectations(t)
}

func TestRouteQueuesForOfflineRecipient(t *testing.T) {
	reg := registry.New()
	messages := new(mocks.MessageRepositoryMock)
	rtr := New(reg, messages)

	msg := models.NewMessage("alice", "bob", models.TypeText, "hi")
	messages.On("SaveMessage", mock.Anything, statusIs(models.StatusSent)).Return(nil).Once()

	routed := rtr.Route(context.Background(), msg)

	assert.Equal(t, models.StatusSent, routed.Status)
	messages.AssertExpectations(t)
}

func TestRouteMarksFailedOnPushError(t *testing.T) {
	reg := registry.New()
	messages := new(mocks.MessageRepositoryMock)
	rtr := New(reg, messages)

	reg.Register("bob", &fakeSink{err: errors.New("broken pipe")})
	senderSink := &fakeSink{}
	reg.Register("alice", senderSink)

	msg := models.NewMessage("alice", "bob", models.TypeText, "hi")
	messages.On("SaveMessage", mock.Anything, statusIs(models.StatusFailed)).Return(nil).Once()

	routed := rtr.Route(context.Background(), msg)

	assert.Equal(t, models.StatusFailed, routed.Status)
	// No receipt without a successful delivery.
	assert.Empty(t, senderSink.pushed())
	messages.AssertExpectations(t)
}

func TestRouteReceiptFailureKeepsDelivered(t *testing.T) {
	reg := registry.New()
	messages := new(mocks.MessageRepositoryMock)
	rtr := New(reg, messages)

	recipientSink := &fakeSink{}
	reg.Register("bob", recipientSink)
	reg.Register("alice", &fakeSink{err: errors.New("broken pipe")})

	msg := models.NewMessage("alice", "bob", models.TypeText, "hi")
	messages.On("SaveMessage", mock.Anything, statusIs(models.StatusDelivered)).Return(nil).Once()

	routed := rtr.Route(context.Background(), msg)

	assert.Equal(t, models.StatusDelivered, routed.Status)
	require.Len(t, recipientSink.pushed(), 1)
	messages.AssertExpectations(t)
}

func TestRoutePersistenceFailureDoesNotAbortDelivery(t *testing.T) {
	reg := registry.New()
	messages := new(mocks.MessageRepositoryMock)
	rtr := New(reg, messages)

	recipientSink := &fakeSink{}
	reg.Register("bob", recipientSink)

	msg := models.NewMessage("alice", "bob", models.TypeText, "hi")
	messages.On("SaveMessage", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()

	routed := rtr.Route(context.Background(), msg)

	assert.Equal(t, models.StatusDelivered, routed.Status)
	require.Len(t, recipientSink.pushed(), 1)
	messages.AssertExpectations(t)
}

func TestReplayOfflinePushesInOrderAndMarksDelivered(t *testing.T) {
	reg := registry.New()
	messages := new(mocks.MessageRepositoryMock)
	rtr := New(reg, messages)

	base := time.Now().UTC().Add(-time.Hour)
	stored := []models.Message{
		{ID: "m1", SenderID: "alice", RecipientID: "bob", Type: models.TypeText, Content: "one", Status: models.StatusSent, CreatedAt: base},
		{ID: "m2", SenderID: "alice", RecipientID: "bob", Type: models.TypeText, Content: "two", Status: models.StatusSent, CreatedAt: base.Add(time.Minute)},
		{ID: "m3", SenderID: "carol", RecipientID: "bob", Type: models.TypeText, Content: "three", Status: models.StatusSent, CreatedAt: base.Add(2 * time.Minute)},
	}

	messages.On("OfflineMessagesFor", mock.Anything, "bob").Return(stored, nil).Once()
	for _, m := range stored {
		messages.On("UpdateMessageStatus", mock.Anything, m.ID, models.StatusDelivered).Return(nil).Once()
	}

	sink := &fakeSink{}
	require.NoError(t, rtr.ReplayOffline(context.Background(), "bob", sink))

	frames := sink.pushed()
	require.Len(t, frames, 3)
	for i, frame := range frames {
		assert.Equal(t, protocol.FrameDeliverMessage, frame.Type)
		assert.Equal(t, stored[i].ID, frame.Message.ID)
	}
	messages.AssertExpectations(t)
}

func TestReplayOfflineStopsOnPushError(t *testing.T) {
	reg := registry.New()
	messages := new(mocks.MessageRepositoryMock)
	rtr := New(reg, messages)

	stored := []models.Message{
		{ID: "m1", RecipientID: "bob", Status: models.StatusSent},
		{ID: "m2", RecipientID: "bob", Status: models.StatusSent},
	}
	messages.On("OfflineMessagesFor", mock.Anything, "bob").Return(stored, nil).Once()

	err := rtr.ReplayOffline(context.Background(), "bob", &fakeSink{err: errors.New("gone")})
	assert.Error(t, err)

	// Nothing was marked delivered: both messages stay queued for the
	// next connect.
	messages.AssertNotCalled(t, "UpdateMessageStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestReplayOfflineFetchError(t *testing.T) {
	reg := registry.New()
	messages := new(mocks.MessageRepositoryMock)
	rtr := New(reg, messages)

	messages.On("OfflineMessagesFor", mock.Anything, "bob").Return(([]models.Message)(nil), errors.New("db down")).Once()

	err := rtr.ReplayOffline(context.Background(), "bob", &fakeSink{})
	assert.Error(t, err)
	messages.AssertExpectations(t)
}
