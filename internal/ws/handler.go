package ws

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"chat-relay/internal/auth"
	"chat-relay/internal/observability"
	"chat-relay/internal/registry"
	"chat-relay/internal/repositories"
	"chat-relay/internal/router"
)

// Handler accepts chat connections and hands each one to its own goroutine.
type Handler struct {
	registry *registry.Registry
	router   *router.Router
	users    repositories.UserRepository
	verifier auth.Verifier
	slots    chan struct{}
}

// NewHandler constructs a Handler with a bounded pool of maxConns slots.
func NewHandler(reg *registry.Registry, rtr *router.Router, users repositories.UserRepository, verifier auth.Verifier, maxConns int) *Handler {
	return &Handler{
		registry: reg,
		router:   rtr,
		users:    users,
		verifier: verifier,
		slots:    make(chan struct{}, maxConns),
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and runs its lifecycle. The pool slot is
// held until the connection closes; when the pool is exhausted new
// connections are rejected before the upgrade.
func (h *Handler) Handle(c *gin.Context) {
	select {
	case h.slots <- struct{}{}:
	default:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "connection limit reached"})
		return
	}

	ctx, span := otel.Tracer("chat-relay/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		<-h.slots
		return
	}

	cc := newConnection(conn, h.registry, h.router, h.users, h.verifier, observability.IPFromRequest(c.Request))
	observability.IncWSActive()
	_ = observability.PublishEvent(ctx, "chat_events.connections", observability.EventEnvelope{
		EventType: "chat_events",
		EventName: "ws_connect",
		Payload: observability.ConnEventPayload{
			ConnID: cc.connID,
			IP:     cc.ip,
			Event:  "ws_connect",
		},
	}, observability.BuildHeaders(observability.RequestIDFromRequest(c.Request), span.SpanContext().TraceID().String()))

	go func() {
		defer func() { <-h.slots }()
		// The request context dies with the HTTP handler; the connection
		// outlives it.
		cc.run(context.WithoutCancel(ctx))
	}()
}
