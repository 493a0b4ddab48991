package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"wastewatch-backend/internal/models"
)

// Hub maintains active WebSocket connections and broadcasts messages
type Hub struct {
	// Registered clients (userID -> Client). A new connection for the same
	// user replaces the old one.
	clients map[string]*Client

	// Targeted messages waiting for delivery
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

// Message represents a message to broadcast to a specific user
type Message struct {
	UserID string
	Data   []byte

	// client pins delivery to one connection rather than whoever holds UserID
	client *Client
}

// Envelope is the JSON frame sent to dashboards.
type Envelope struct {
	Type      string      `json:"type"`
	Timestamp string      `json:"timestamp"`
	Data      interface{} `json:"data"`
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

// Run starts the hub's main loop. It returns when ctx is cancelled, closing
// every connected client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for userID, client := range h.clients {
				close(client.send)
				delete(h.clients, userID)
			}
			h.mu.Unlock()
			log.Println("🔴 [WEBSOCKET] Hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			if old, ok := h.clients[client.UserID]; ok {
				close(old.send)
			}
			h.clients[client.UserID] = client
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
			log.Printf("✅ [WEBSOCKET] Client CONNECTED")
			log.Printf("   User ID: %s", client.UserID)
			log.Printf("   Role: %s", client.UserRole)
			log.Printf("   Total connected clients: %d", total)
			log.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

		case client := <-h.unregister:
			h.mu.Lock()
			// Only remove the client if it has not been replaced by a newer connection
			if current, ok := h.clients[client.UserID]; ok && current == client {
				delete(h.clients, client.UserID)
				close(client.send)
				log.Printf("🔴 [WEBSOCKET] Client DISCONNECTED: %s (%s), remaining: %d", client.UserID, client.UserRole, len(h.clients))
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			client, ok := h.clients[message.UserID]
			if message.client != nil && client != message.client {
				ok = false
			}
			if ok {
				select {
				case client.send <- message.Data:
				default:
					// Client buffer full, disconnect
					close(client.send)
					delete(h.clients, client.UserID)
					log.Printf("⚠️ Client buffer full, disconnecting: %s", message.UserID)
				}
			}
			h.mu.Unlock()
		}
	}
}

func encode(event string, data interface{}) ([]byte, error) {
	return json.Marshal(Envelope{
		Type:      event,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      data,
	})
}

// BroadcastToUser queues an event for a specific user. Events for users who
// are not connected are dropped.
func (h *Hub) BroadcastToUser(userID string, event string, data interface{}) {
	payload, err := encode(event, data)
	if err != nil {
		log.Printf("❌ Failed to marshal message: %v", err)
		return
	}

	select {
	case h.broadcast <- &Message{UserID: userID, Data: payload}:
	default:
		log.Printf("⚠️ Broadcast queue full, dropping %s for %s", event, userID)
	}
}

// BroadcastToRole sends an event to every connected user with the role
func (h *Hub) BroadcastToRole(role models.Role, event string, data interface{}) {
	payload, err := encode(event, data)
	if err != nil {
		log.Printf("❌ Failed to marshal broadcast message: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for userID, client := range h.clients {
		if client.UserRole != role {
			continue
		}
		select {
		case client.send <- payload:
		default:
			log.Printf("⚠️ Client buffer full, skipping: %s", userID)
		}
	}
}

func (h *Hub) add(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// reply queues data for one specific connection.
func (h *Hub) reply(c *Client, data []byte) {
	select {
	case h.broadcast <- &Message{UserID: c.UserID, Data: data, client: c}:
	default:
	}
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// IsUserConnected checks if a user is currently connected
func (h *Hub) IsUserConnected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}
