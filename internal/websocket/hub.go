package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"echo-assistant-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const clusterChannel = "echo_cluster_events"

// Envelope is every frame the server pushes to a client.
type Envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type Hub struct {
	// Connected clients by user email; one user may hold several tabs.
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	// Redis fans pushes out to the other instances. Nil runs single-instance.
	rdb *redis.Client

	// id tags this instance's Redis publishes so it can skip its own echoes.
	id string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string][]*Client),
		rdb:        rdb,
		id:         uuid.NewString(),
		logger:     log,
	}
}

func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserEmail] = append(h.clients[client.UserEmail], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"email": client.UserEmail})

		case client := <-h.unregister:
			h.mu.Lock()
			clients := h.clients[client.UserEmail]
			for i, c := range clients {
				if c == client {
					h.clients[client.UserEmail] = append(clients[:i], clients[i+1:]...)
					client.close()
					break
				}
			}
			if len(h.clients[client.UserEmail]) == 0 {
				delete(h.clients, client.UserEmail)
				h.logger.Info("Hub", "Client completely unregistered", map[string]interface{}{"email": client.UserEmail})
			}
			h.mu.Unlock()
		}
	}
}

// Connected reports how many connections a user holds on this instance.
func (h *Hub) Connected(email string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[email])
}

// Send pushes one frame to every connection of a user, here and, through
// Redis, on other instances.
func (h *Hub) Send(email, msgType string, data interface{}) {
	frame, err := json.Marshal(Envelope{Type: msgType, Data: data})
	if err != nil {
		h.logger.Error("Hub", "Failed to encode frame", map[string]interface{}{"error": err.Error()})
		return
	}

	h.deliverLocal(email, frame)

	if h.rdb != nil {
		payload, _ := json.Marshal(map[string]interface{}{
			"target_email": email,
			"message":      json.RawMessage(frame),
			"origin":       h.id,
		})
		if err := h.rdb.Publish(context.Background(), clusterChannel, payload).Err(); err != nil {
			h.logger.Warn("Hub", "Redis publish failed", map[string]interface{}{"error": err.Error()})
		}
	}
}

func (h *Hub) deliverLocal(email string, frame []byte) {
	h.mu.RLock()
	clients := append([]*Client(nil), h.clients[email]...)
	h.mu.RUnlock()

	for _, client := range clients {
		if !client.enqueue(frame) {
			h.logger.Warn("Hub", "Client send buffer full, dropping connection", map[string]interface{}{"email": email})
			go func(c *Client) { h.unregister <- c }(client)
		}
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var payload struct {
			TargetEmail string          `json:"target_email"`
			Message     json.RawMessage `json:"message"`
			Origin      string          `json:"origin"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			h.logger.Warn("Hub", "Redis message parse error", map[string]interface{}{"error": err.Error()})
			continue
		}
		if payload.Origin == h.id {
			continue
		}
		h.deliverLocal(payload.TargetEmail, payload.Message)
	}
}
