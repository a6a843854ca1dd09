package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Message is the envelope pushed to clients.
type Message struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// MessageHandler handles a message type sent by a client.
type MessageHandler func(*Client, *Message) error

// Hub tracks open connections per user. A user may hold several
// connections (tabs, devices); each gets every event.
type Hub struct {
	clients    map[uint]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	handlers   map[string]MessageHandler
	log        zerolog.Logger
	mu         sync.RWMutex
}

func NewHub(log zerolog.Logger) *Hub {
	h := &Hub{
		clients:    make(map[uint]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		handlers:   make(map[string]MessageHandler),
		log:        log,
	}
	h.handlers["ping"] = h.handlePing
	return h
}

// Run processes registrations until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.UserID] == nil {
				h.clients[client.UserID] = make(map[*Client]struct{})
			}
			h.clients[client.UserID][client] = struct{}{}
			h.mu.Unlock()
			h.log.Debug().Uint("user_id", client.UserID).Str("role", client.Role).Msg("client registered")

		case client := <-h.unregister:
			h.remove(client)
			h.log.Debug().Uint("user_id", client.UserID).Msg("client unregistered")

		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for userID, set := range h.clients {
				for client := range set {
					client.closed = true
					close(client.send)
				}
				delete(h.clients, userID)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Register adds a client. It returns false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client; a no-op once the hub has stopped.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[client.UserID]
	if !ok {
		return
	}
	if _, ok := set[client]; ok {
		delete(set, client)
		client.closed = true
		close(client.send)
	}
	if len(set) == 0 {
		delete(h.clients, client.UserID)
	}
}

// NotifyUser sends an event to every connection of userID. Offline users
// are skipped; full buffers drop the event.
func (h *Hub) NotifyUser(userID uint, event string, payload interface{}) {
	data, err := json.Marshal(&Message{Type: event, Timestamp: time.Now(), Data: payload})
	if err != nil {
		h.log.Error().Err(err).Str("event", event).Msg("failed to marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[userID] {
		select {
		case client.send <- data:
		default:
			h.log.Warn().Uint("user_id", userID).Str("event", event).Msg("send buffer full, event dropped")
		}
	}
}

// IsUserConnected checks if a user has at least one open connection
func (h *Hub) IsUserConnected(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// ConnectedUsers returns the ids of users with open connections
func (h *Hub) ConnectedUsers() []uint {
	h.mu.RLock()
	defer h.mu.RUnlock()
	users := make([]uint, 0, len(h.clients))
	for userID := range h.clients {
		users = append(users, userID)
	}
	return users
}

func (h *Hub) handle(client *Client, message *Message) {
	handler, ok := h.handlers[message.Type]
	if !ok {
		h.log.Debug().Str("type", message.Type).Msg("unknown message type")
		return
	}
	if err := handler(client, message); err != nil {
		h.log.Warn().Err(err).Str("type", message.Type).Msg("message handler failed")
	}
}

func (h *Hub) handlePing(client *Client, _ *Message) error {
	return client.SendMessage(&Message{Type: "pong", Timestamp: time.Now()})
}
