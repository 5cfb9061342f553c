package ws

import (
	"sync"

	"github.com/gorilla/websocket"

	"chat-relay/internal/protocol"
)

// wsSink adapts a websocket connection to the registry.Sink contract.
// Pushes are serialized with a mutex because the owning receive loop, the
// router and the offline replayer may write concurrently. A push blocks
// until the peer drains it; there is no outbound queue.
type wsSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newSink(conn *websocket.Conn) *wsSink {
	return &wsSink{conn: conn}
}

// Push encodes and writes one frame.
func (s *wsSink) Push(frame protocol.Frame) error {
	data, err := protocol.Marshal(frame)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}
