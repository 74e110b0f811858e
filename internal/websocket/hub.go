package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"siteops-backend/internal/metrics"
)

// Hub maintains active WebSocket connections and broadcasts messages
type Hub struct {
	// Registered clients (connection ID -> Client)
	clients map[string]*Client

	// Outbound messages, fanned out by the run loop
	broadcast chan *Message

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed when Run returns
	done chan struct{}

	// Mutex for thread-safe client map access
	mu sync.RWMutex
}

// Message is a payload for every client matching the target. An empty
// target means all clients.
type Message struct {
	ClientID string
	UserID   string
	Roles    []string
	Data     interface{}
}

func (m *Message) matches(c *Client) bool {
	if m.ClientID != "" && c.ID != m.ClientID {
		return false
	}
	if m.UserID != "" && c.UserID != m.UserID {
		return false
	}
	if len(m.Roles) == 0 {
		return true
	}
	for _, role := range m.Roles {
		if c.UserRole == role {
			return true
		}
	}
	return false
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		broadcast:  make(chan *Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop and returns when ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				close(client.send)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			metrics.RecordWebsocketClients(0)
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			count := len(h.clients)
			h.mu.Unlock()
			metrics.RecordWebsocketClients(count)
			log.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
			log.Printf("✅ [WEBSOCKET] Client CONNECTED")
			log.Printf("   User ID: %s", client.UserID)
			log.Printf("   Role: %s", client.UserRole)
			log.Printf("   Total connected clients: %d", count)
			log.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.send)
				log.Printf("🔴 [WEBSOCKET] Client DISCONNECTED: %s (%s), %d remaining", client.UserID, client.UserRole, len(h.clients))
			}
			count := len(h.clients)
			h.mu.Unlock()
			metrics.RecordWebsocketClients(count)

		case message := <-h.broadcast:
			data, err := json.Marshal(message.Data)
			if err != nil {
				log.Printf("❌ Failed to marshal message: %v", err)
				continue
			}

			h.mu.Lock()
			for id, client := range h.clients {
				if !message.matches(client) {
					continue
				}
				select {
				case client.send <- data:
				default:
					// Client buffer full, disconnect
					close(client.send)
					delete(h.clients, id)
					log.Printf("⚠️ Client buffer full, disconnecting: %s", client.UserID)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) addClient(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) removeClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) enqueue(m *Message) {
	select {
	case h.broadcast <- m:
	default:
		log.Printf("⚠️ Broadcast queue full, dropping message")
	}
}

// BroadcastToUser sends a message to every connection of a user
func (h *Hub) BroadcastToUser(userID string, data interface{}) {
	h.enqueue(&Message{UserID: userID, Data: data})
}

// BroadcastToRole sends a message to all users with one of roles
func (h *Hub) BroadcastToRole(data interface{}, roles ...string) {
	h.enqueue(&Message{Roles: roles, Data: data})
}

// BroadcastAll sends a message to every connected client
func (h *Hub) BroadcastAll(data interface{}) {
	h.enqueue(&Message{Data: data})
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// IsUserConnected checks if a user has at least one open connection
func (h *Hub) IsUserConnected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if c.UserID == userID {
			return true
		}
	}
	return false
}
