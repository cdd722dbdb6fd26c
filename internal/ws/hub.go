package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
)

// restaurantEvent is an internal struct for routing payloads to one
// restaurant's room.
type restaurantEvent struct {
	RestaurantID uuid.UUID
	Payload      []byte
}

// Hub maintains the set of live kitchen-display connections per restaurant
// and broadcasts ticket events to them. The registry is in-memory and
// process-local: broadcasts only reach displays connected to this process.
type Hub struct {
	// Registered clients by restaurant ID
	rooms map[uuid.UUID]map[*Client]bool

	// Inbound messages from clients (register/unregister)
	register   chan *Client
	unregister chan *Client

	// Outbound messages to broadcast
	broadcast chan *restaurantEvent

	// Administrative sweep of dead connections; replies with evicted count
	sweep chan chan int

	// Mutex for thread-safe room access
	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *restaurantEvent, 256),
		sweep:      make(chan chan int),
	}
}

// Run starts the hub's main loop
// This should be called as a goroutine: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.restaurantID] == nil {
				h.rooms[client.restaurantID] = make(map[*Client]bool)
			}
			h.rooms[client.restaurantID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.evictLocked(client)
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.mu.Lock()
			clients := h.rooms[event.RestaurantID]

			delivered := 0
			for client := range clients {
				select {
				case client.send <- event.Payload:
					delivered++
				default:
					// Client's send buffer is full; treat the connection
					// as dead and evict it.
					h.evictLocked(client)
				}
			}
			h.mu.Unlock()

			if len(clients) > 0 {
				log.Printf("ws: broadcast to restaurant %s delivered to %d display(s)", event.RestaurantID, delivered)
			}

		case reply := <-h.sweep:
			h.mu.Lock()
			evicted := 0
			for _, clients := range h.rooms {
				for client := range clients {
					if client.closed() {
						h.evictLocked(client)
						evicted++
					}
				}
			}
			h.mu.Unlock()
			reply <- evicted
		}
	}
}

// evictLocked removes a client from its room and closes its send channel.
// Callers must hold h.mu.
func (h *Hub) evictLocked(client *Client) {
	clients, ok := h.rooms[client.restaurantID]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.restaurantID)
	}
}

// BroadcastToRestaurant sends an event to all displays registered for a
// restaurant. This is the public API for services to broadcast events.
func (h *Hub) BroadcastToRestaurant(restaurantID uuid.UUID, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("ERROR: ws: marshal broadcast event: %v", err)
		return
	}
	h.broadcast <- &restaurantEvent{
		RestaurantID: restaurantID,
		Payload:      payload,
	}
}

// Cleanup evicts connections whose underlying transport has already closed
// and returns how many were removed. Intended for periodic/administrative
// invocation.
func (h *Hub) Cleanup() int {
	reply := make(chan int, 1)
	h.sweep <- reply
	return <-reply
}

// ConnectionCount reports the number of live connections for a restaurant.
func (h *Hub) ConnectionCount(restaurantID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[restaurantID])
}
