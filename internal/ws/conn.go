package ws

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chat-relay/internal/auth"
	"chat-relay/internal/models"
	"chat-relay/internal/observability"
	"chat-relay/internal/protocol"
	"chat-relay/internal/registry"
	"chat-relay/internal/repositories"
	"chat-relay/internal/router"
)

var (
	errProtocolViolation = errors.New("protocol violation")
	errAuthFailed        = errors.New("authentication failed")
)

// connection owns one accepted websocket for its whole lifetime:
// authenticating -> active -> closed.
type connection struct {
	conn     *websocket.Conn
	sink     *wsSink
	registry *registry.Registry
	router   *router.Router
	users    repositories.UserRepository
	verifier auth.Verifier

	connID      string
	ip          string
	connectedAt time.Time

	user      models.User
	authed    bool
	closeOnce sync.Once
}

func newConnection(conn *websocket.Conn, reg *registry.Registry, rtr *router.Router, users repositories.UserRepository, verifier auth.Verifier, ip string) *connection {
	return &connection{
		conn:        conn,
		sink:        newSink(conn),
		registry:    reg,
		router:      rtr,
		users:       users,
		verifier:    verifier,
		connID:      newConnID(),
		ip:          ip,
		connectedAt: time.Now(),
	}
}

// run drives the connection state machine. It returns once the connection
// is closed, for any reason.
func (c *connection) run(ctx context.Context) {
	reason := ""
	defer func() { c.close(ctx, reason) }()

	if err := c.authenticate(ctx); err != nil {
		reason = err.Error()
		return
	}

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				reason = err.Error()
			}
			return
		}

		frame, err := protocol.Parse(data)
		if err != nil {
			log.Printf("malformed frame from %s user=%s: %v", c.ip, c.user.ID, err)
			reason = errProtocolViolation.Error()
			return
		}
		if frame.Type != protocol.FrameSendMessage {
			log.Printf("unexpected %s frame from user=%s", frame.Type, c.user.ID)
			reason = errProtocolViolation.Error()
			return
		}

		c.router.Route(ctx, *frame.Message)
	}
}

// authenticate reads the single permitted auth_request frame and verifies
// it. On success it writes auth_result and the resolved identity, records
// the online presence, registers the sink and replays offline messages
// before the caller starts the receive loop.
func (c *connection) authenticate(ctx context.Context) error {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("read auth frame: %w", err)
	}

	frame, err := protocol.Parse(data)
	if err != nil || frame.Type != protocol.FrameAuthRequest {
		_ = c.sink.Push(protocol.NewAuthResult(false))
		observability.IncAuth("protocol_violation")
		return errProtocolViolation
	}

	user, err := c.verifier.Verify(ctx, frame.Auth.Username, frame.Auth.Password)
	if err != nil {
		_ = c.sink.Push(protocol.NewAuthResult(false))
		observability.IncAuth("failure")
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			log.Printf("credential verification error from %s: %v", c.ip, err)
		}
		return errAuthFailed
	}

	user.Status = models.StatusOnline
	user.LastSeen = time.Now().UTC()

	if err := c.sink.Push(protocol.NewAuthResult(true)); err != nil {
		return fmt.Errorf("write auth result: %w", err)
	}
	if err := c.sink.Push(protocol.NewIdentity(user)); err != nil {
		return fmt.Errorf("write identity: %w", err)
	}

	c.user = user
	c.authed = true

	if err := c.users.UpdatePresence(ctx, user.ID, models.StatusOnline, user.LastSeen); err != nil {
		log.Printf("update presence online failed user=%s: %v", user.ID, err)
		observability.IncPersistenceError("update_presence")
	}

	if _, superseded := c.registry.Register(user.ID, c.sink); superseded {
		log.Printf("superseding existing session user=%s", user.ID)
	}
	observability.IncAuth("success")
	log.Printf("user authenticated user=%s conn=%s", user.Username, c.connID)

	if err := c.router.ReplayOffline(ctx, user.ID, c.sink); err != nil {
		log.Printf("offline replay failed user=%s: %v", user.ID, err)
	}
	return nil
}

// close is idempotent and safe to invoke from multiple callers. For an
// authenticated connection it records the offline presence, conditionally
// unregisters the sink and releases the transport.
func (c *connection) close(ctx context.Context, reason string) {
	c.closeOnce.Do(func() {
		if c.authed {
			now := time.Now().UTC()
			if err := c.users.UpdatePresence(ctx, c.user.ID, models.StatusOffline, now); err != nil {
				log.Printf("update presence offline failed user=%s: %v", c.user.ID, err)
				observability.IncPersistenceError("update_presence")
			}
			c.registry.Unregister(c.user.ID, c.sink)
		}
		c.conn.Close()
		observability.DecWSActive()

		_ = observability.PublishEvent(ctx, "chat_events.connections", observability.EventEnvelope{
			EventType: "chat_events",
			EventName: "ws_disconnect",
			Payload: observability.ConnEventPayload{
				ConnID:     c.connID,
				UserID:     c.user.ID,
				IP:         c.ip,
				Event:      "ws_disconnect",
				DurationMS: time.Since(c.connectedAt).Milliseconds(),
				Reason:     reason,
			},
		}, nil)
		log.Printf("connection closed conn=%s user=%s reason=%q", c.connID, c.user.ID, reason)
	})
}
