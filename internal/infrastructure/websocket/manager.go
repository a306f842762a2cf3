package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"chatsync/pkg/logger"
)

// Frame is the envelope every live update is delivered in. Type is
// "conversations" for the chat-list feed and "messages" for an open
// conversation's window.
type Frame struct {
	Type           string      `json:"type"`
	ConversationID string      `json:"conversation_id,omitempty"`
	Payload        interface{} `json:"payload"`
}

// Client is one connected device of one user.
type Client struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte

	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// Manager tracks connected clients and fans frames out to them.
type Manager struct {
	clients    map[string]*Client
	Register   chan *Client
	Unregister chan *Client
	mutex      sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[string]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// Start runs the manager's main loop in a goroutine.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-m.Register:
				m.mutex.Lock()
				if prev, ok := m.clients[client.UserID]; ok {
					// One live connection per user; a reconnect replaces
					// the stale one.
					prev.close()
				}
				m.clients[client.UserID] = client
				m.mutex.Unlock()
				logger.Info("websocket client registered: %s", client.UserID)

			case client := <-m.Unregister:
				m.mutex.Lock()
				if current, ok := m.clients[client.UserID]; ok && current == client {
					delete(m.clients, client.UserID)
					client.close()
				}
				m.mutex.Unlock()
				logger.Info("websocket client unregistered: %s", client.UserID)

			case <-ctx.Done():
				m.mutex.Lock()
				for _, client := range m.clients {
					client.close()
				}
				m.clients = make(map[string]*Client)
				m.mutex.Unlock()
				return
			}
		}
	}()
}

func NewClient(userID string, conn *websocket.Conn, cancel context.CancelFunc) *Client {
	return &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, 16),
		cancel: cancel,
	}
}

// close is idempotent and safe to call while feed goroutines are still
// pushing frames: PushFrame and close serialize on the same mutex, so
// the send channel is only closed once no push is in flight.
func (c *Client) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.Send)
	c.mu.Unlock()

	c.cancel()
}

// PushFrame marshals the frame onto the client's send queue. A slow
// consumer loses frames rather than blocking the feed; each frame is a
// full snapshot, so the next one repairs the gap. Frames pushed after
// the client is closed are discarded.
func (c *Client) PushFrame(frame Frame) {
	raw, err := json.Marshal(frame)
	if err != nil {
		logger.Error("failed to marshal websocket frame: %v", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.Send <- raw:
	default:
		logger.Warn("dropping frame for slow websocket client %s", c.UserID)
	}
}

// ReadPump drains client input until the connection dies. Inbound
// content is ignored; the socket is a one-way feed and reads exist only
// to observe the close.
func (c *Client) ReadPump(m *Manager) {
	defer func() {
		m.Unregister <- c
		c.Conn.Close()
	}()

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("websocket read error for %s: %v", c.UserID, err)
			}
			return
		}
	}
}

// WritePump sends queued frames to the connection.
func (c *Client) WritePump() {
	defer c.Conn.Close()

	for {
		message, ok := <-c.Send
		if !ok {
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			logger.Error("websocket write error for %s: %v", c.UserID, err)
			return
		}
	}
}
