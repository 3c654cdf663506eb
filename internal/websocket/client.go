package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 << 10

	// Chat turns run the whole search pipeline.
	turnTimeout = 2 * time.Minute
)

// TurnHandler answers one inbound frame. The returned value is pushed back
// as a "chat_response" frame.
type TurnHandler func(ctx context.Context, payload []byte) (interface{}, error)

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Hub *Hub

	Conn *websocket.Conn

	UserEmail string

	// Buffered channel of outbound messages.
	Send chan []byte

	mu     sync.Mutex
	closed bool

	handle TurnHandler
}

func newClient(hub *Hub, conn *websocket.Conn, email string, handle TurnHandler) *Client {
	return &Client{Hub: hub, Conn: conn, UserEmail: email, Send: make(chan []byte, 256), handle: handle}
}

// enqueue reports false when the buffer is full. Frames for a closed
// client are dropped.
func (c *Client) enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.Send <- frame:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

func (c *Client) reply(msgType string, data interface{}) {
	frame, err := json.Marshal(Envelope{Type: msgType, Data: data})
	if err != nil {
		return
	}
	c.enqueue(frame)
}

// readPump reads chat turns until the connection drops.
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("Hub", "Unexpected websocket close", map[string]interface{}{"email": c.UserEmail, "error": err.Error()})
			}
			break
		}
		if c.handle == nil {
			continue
		}

		// Turns are answered one at a time, in order.
		ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
		resp, err := c.handle(ctx, payload)
		cancel()
		if err != nil {
			c.reply("error", map[string]string{"message": err.Error()})
			continue
		}
		c.reply("chat_response", resp)
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// One frame per message: clients parse each as JSON.
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
