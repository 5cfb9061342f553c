package client

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"chat-relay/internal/models"
	"chat-relay/internal/protocol"
)

var (
	ErrNotConnected = errors.New("not connected")
	ErrAuthFailed   = errors.New("authentication failed")
)

// Events receives the client's inbound notifications. Implemented by the
// UI; all callbacks run on the client's receive goroutine.
type Events interface {
	MessageReceived(msg models.Message)
	ReceiptReceived(messageID string)
	Disconnected(err error)
}

// Client is the peer side of the chat protocol: it connects, authenticates
// once, then demultiplexes inbound frames to its Events collaborator while
// exposing Send for outbound messages.
type Client struct {
	url    string
	events Events

	mu        sync.Mutex
	conn      *websocket.Conn
	writeMu   sync.Mutex
	connected bool
	authed    bool
	user      models.User
}

// New creates a client for the given websocket URL (ws://host:port/ws).
func New(url string, events Events) *Client {
	return &Client{url: url, events: events}
}

// Connect opens the websocket connection. It does not authenticate.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		return nil
	}

	conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	return nil
}

// Authenticate performs the handshake, connecting first if necessary. On
// success it stores the resolved identity and starts the receive loop. On
// failure the server closes the connection and so does the client.
func (c *Client) Authenticate(username, password string) error {
	if err := c.Connect(); err != nil {
		return err
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if err := c.push(protocol.NewAuthRequest(username, password)); err != nil {
		c.Disconnect()
		return err
	}

	result, err := c.readFrame(conn, protocol.FrameAuthResult)
	if err != nil {
		c.Disconnect()
		return err
	}
	if !result.Result.OK {
		c.Disconnect()
		return ErrAuthFailed
	}

	identity, err := c.readFrame(conn, protocol.FrameIdentity)
	if err != nil {
		c.Disconnect()
		return err
	}

	c.mu.Lock()
	c.user = *identity.User
	c.authed = true
	c.mu.Unlock()

	go c.receiveLoop(conn)
	return nil
}

// Send pushes a message frame. Messages sent before a successful
// authentication are rejected rather than attempted.
func (c *Client) Send(msg models.Message) error {
	c.mu.Lock()
	ready := c.connected && c.authed
	c.mu.Unlock()
	if !ready {
		return ErrNotConnected
	}
	return c.push(protocol.NewSendMessage(msg))
}

// User returns the identity resolved during authentication.
func (c *Client) User() models.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

// Disconnect closes the connection. Idempotent and always safe to call.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return
	}
	c.connected = false
	c.authed = false
	c.conn.Close()
}

func (c *Client) push(frame protocol.Frame) error {
	data, err := protocol.Marshal(frame)
	if err != nil {
		return err
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}

// readFrame reads the next frame and requires it to be of the given type.
func (c *Client) readFrame(conn *websocket.Conn, want protocol.FrameType) (protocol.Frame, error) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return protocol.Frame{}, fmt.Errorf("read frame: %w", err)
	}
	frame, err := protocol.Parse(data)
	if err != nil {
		return protocol.Frame{}, err
	}
	if frame.Type != want {
		return protocol.Frame{}, fmt.Errorf("expected %s frame, got %s", want, frame.Type)
	}
	return frame, nil
}

// receiveLoop demultiplexes inbound frames until the connection drops.
func (c *Client) receiveLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			wasConnected := c.connected
			c.mu.Unlock()
			c.Disconnect()
			if wasConnected && c.events != nil {
				c.events.Disconnected(err)
			}
			return
		}

		frame, err := protocol.Parse(data)
		if err != nil {
			continue
		}
		if c.events == nil {
			continue
		}
		switch frame.Type {
		case protocol.FrameDeliverMessage:
			c.events.MessageReceived(*frame.Message)
		case protocol.FrameDeliveryReceipt:
			c.events.ReceiptReceived(frame.Receipt.MessageID)
		}
	}
}
