package router

import (
	"context"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"chat-relay/internal/models"
	"chat-relay/internal/observability"
	"chat-relay/internal/protocol"
	"chat-relay/internal/registry"
	"chat-relay/internal/repositories"
)

// Router decides between direct delivery and store-and-forward for every
// inbound message, and emits delivery receipts to online senders.
type Router struct {
	registry *registry.Registry
	messages repositories.MessageRepository
}

// New constructs a Router.
func New(reg *registry.Registry, messages repositories.MessageRepository) *Router {
	return &Router{registry: reg, messages: messages}
}

// Route delivers msg to its recipient if they are online and persists the
// message unconditionally afterwards, so the durable log is independent of
// the delivery outcome. The returned message carries the final status:
// delivered on a successful direct push, failed on a push error, sent when
// the recipient is offline and the message awaits replay.
func (r *Router) Route(ctx context.Context, msg models.Message) models.Message {
	ctx, span := otel.Tracer("chat-relay/router").Start(ctx, "router.route")
	span.SetAttributes(attribute.String("message.id", msg.ID))
	defer span.End()

	sink, online := r.registry.Lookup(msg.RecipientID)
	if online {
		if err := sink.Push(protocol.NewDeliverMessage(msg)); err != nil {
			log.Printf("direct delivery failed message=%s recipient=%s: %v", msg.ID, msg.RecipientID, err)
			msg.Status = models.StatusFailed
			observability.IncMessageRouted("failed")
		} else {
			msg.Status = models.StatusDelivered
			observability.IncMessageRouted("delivered")
			r.sendReceipt(msg)
		}
	} else {
		observability.IncMessageRouted("queued")
	}

	if err := r.messages.SaveMessage(ctx, msg); err != nil {
		log.Printf("persist message failed message=%s: %v", msg.ID, err)
		observability.IncPersistenceError("save_message")
		r.reportPersistenceFailure(ctx, "save_message", msg.ID, err)
	}

	return msg
}

// sendReceipt notifies the sender that the recipient got the message.
// Best-effort: a failed receipt never rolls back the delivered status.
func (r *Router) sendReceipt(msg models.Message) {
	senderSink, ok := r.registry.Lookup(msg.SenderID)
	if !ok {
		return
	}
	if err := senderSink.Push(protocol.NewDeliveryReceipt(msg.ID)); err != nil {
		log.Printf("delivery receipt failed message=%s sender=%s: %v", msg.ID, msg.SenderID, err)
		return
	}
	observability.IncReceipt()
}

// ReplayOffline pushes every stored message for userID still in status sent,
// in ascending creation order, marking each delivered as it goes. Replay is
// not atomic with concurrent routing to the same user; both paths converge
// on delivered, so delivery is at-least-once.
func (r *Router) ReplayOffline(ctx context.Context, userID string, sink registry.Sink) error {
	ctx, span := otel.Tracer("chat-relay/router").Start(ctx, "router.replay_offline")
	span.SetAttributes(attribute.String("user.id", userID))
	defer span.End()

	msgs, err := r.messages.OfflineMessagesFor(ctx, userID)
	if err != nil {
		observability.IncPersistenceError("offline_messages")
		return err
	}

	replayed := 0
	for _, msg := range msgs {
		if err := sink.Push(protocol.NewDeliverMessage(msg)); err != nil {
			// The connection is gone; the remaining messages stay in
			// status sent and will be replayed on the next connect.
			observability.AddOfflineReplayed(replayed)
			return err
		}
		replayed++
		if err := r.messages.UpdateMessageStatus(ctx, msg.ID, models.StatusDelivered); err != nil {
			log.Printf("mark replayed message delivered failed message=%s: %v", msg.ID, err)
			observability.IncPersistenceError("update_message_status")
			r.reportPersistenceFailure(ctx, "update_message_status", msg.ID, err)
		}
	}

	if replayed > 0 {
		log.Printf("replayed %d offline messages user=%s", replayed, userID)
	}
	observability.AddOfflineReplayed(replayed)
	return nil
}

func (r *Router) reportPersistenceFailure(ctx context.Context, operation, messageID string, cause error) {
	_ = observability.PublishEvent(ctx, "chat_events.persistence", observability.EventEnvelope{
		EventType: "chat_events",
		EventName: "persistence_error",
		Payload: observability.PersistenceEventPayload{
			Operation: operation,
			MessageID: messageID,
			Reason:    cause.Error(),
		},
	}, nil)
}
