package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

// mockClient creates a client for testing without a real WebSocket connection
func mockClient(hub *Hub, restaurantID uuid.UUID) *Client {
	return &Client{
		hub:          hub,
		id:           uuid.New(),
		restaurantID: restaurantID,
		connectedAt:  time.Now(),
		send:         make(chan []byte, 256),
	}
}

func TestHubRegistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	restaurantID := uuid.New()
	client := mockClient(hub, restaurantID)

	// Register client
	hub.register <- client

	// Give hub time to process
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if hub.rooms[restaurantID] == nil {
		t.Fatal("restaurant room not created")
	}
	if !hub.rooms[restaurantID][client] {
		t.Fatal("client not registered in restaurant room")
	}
}

func TestHubUnregistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	restaurantID := uuid.New()
	client := mockClient(hub, restaurantID)

	// Register client
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	// Unregister client
	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	// Room should be cleaned up when empty
	if hub.rooms[restaurantID] != nil {
		t.Fatal("restaurant room not cleaned up after last client unregistered")
	}
}

func TestBroadcastToSingleRestaurant(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	restaurant1 := uuid.New()
	restaurant2 := uuid.New()

	client1 := mockClient(hub, restaurant1)
	client2 := mockClient(hub, restaurant2)

	// Register both clients
	hub.register <- client1
	hub.register <- client2
	time.Sleep(10 * time.Millisecond)

	// Broadcast to restaurant1 only
	ticket := TicketPayload{
		ID:           uuid.New(),
		RestaurantID: restaurant1,
		Status:       "PENDING",
		Items:        json.RawMessage(`[]`),
	}
	hub.BroadcastToRestaurant(restaurant1, NewTicketCreated(ticket))

	// Check client1 receives the message
	select {
	case msg := <-client1.send:
		var received NewTicketEvent
		if err := json.Unmarshal(msg, &received); err != nil {
			t.Fatalf("failed to unmarshal message: %v", err)
		}
		if received.Type != TypeNewTicket {
			t.Errorf("expected type %q, got %q", TypeNewTicket, received.Type)
		}
		if received.Ticket.ID != ticket.ID {
			t.Errorf("expected ticket %s, got %s", ticket.ID, received.Ticket.ID)
		}
		if received.Timestamp.IsZero() {
			t.Error("expected timestamp to be set")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("client1 did not receive message")
	}

	// Check client2 does NOT receive the message
	select {
	case <-client2.send:
		t.Fatal("client2 should not have received message for different restaurant")
	case <-time.After(50 * time.Millisecond):
		// Expected - no message received
	}
}

func TestBroadcastToMultipleClientsInSameRestaurant(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	restaurantID := uuid.New()
	client1 := mockClient(hub, restaurantID)
	client2 := mockClient(hub, restaurantID)
	client3 := mockClient(hub, restaurantID)

	// Register all clients to same restaurant
	hub.register <- client1
	hub.register <- client2
	hub.register <- client3
	time.Sleep(10 * time.Millisecond)

	// Broadcast event
	ticket := TicketPayload{ID: uuid.New(), Status: "READY", Items: json.RawMessage(`[]`)}
	hub.BroadcastToRestaurant(restaurantID, NewTicketReady(ticket, "ready_alert"))

	// All three clients should receive the message
	clients := []*Client{client1, client2, client3}
	for i, client := range clients {
		select {
		case msg := <-client.send:
			var received TicketReadyEvent
			if err := json.Unmarshal(msg, &received); err != nil {
				t.Fatalf("client%d: failed to unmarshal: %v", i+1, err)
			}
			if received.Type != TypeTicketReady {
				t.Errorf("client%d: expected type %q, got %q", i+1, TypeTicketReady, received.Type)
			}
			if received.Sound != "ready_alert" {
				t.Errorf("client%d: expected sound hint, got %q", i+1, received.Sound)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("client%d did not receive message", i+1)
		}
	}
}

func TestHubMultipleRestaurantsIsolation(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	restaurant1 := uuid.New()
	restaurant2 := uuid.New()
	restaurant3 := uuid.New()

	// Create 2 clients per restaurant
	clients := map[uuid.UUID][]*Client{
		restaurant1: {mockClient(hub, restaurant1), mockClient(hub, restaurant1)},
		restaurant2: {mockClient(hub, restaurant2), mockClient(hub, restaurant2)},
		restaurant3: {mockClient(hub, restaurant3), mockClient(hub, restaurant3)},
	}

	// Register all clients
	for _, clientList := range clients {
		for _, client := range clientList {
			hub.register <- client
		}
	}
	time.Sleep(10 * time.Millisecond)

	// Broadcast to restaurant2 only
	ticket := TicketPayload{ID: uuid.New(), RestaurantID: restaurant2, Items: json.RawMessage(`[]`)}
	hub.BroadcastToRestaurant(restaurant2, NewTicketUpdated(ticket))

	// Only restaurant2 clients should receive
	for restaurantID, clientList := range clients {
		for i, client := range clientList {
			select {
			case msg := <-client.send:
				if restaurantID != restaurant2 {
					t.Fatalf("restaurant %s client %d should not receive message", restaurantID, i)
				}
				var received TicketUpdatedEvent
				if err := json.Unmarshal(msg, &received); err != nil {
					t.Fatalf("unmarshal error: %v", err)
				}
				if received.Type != TypeTicketUpdated {
					t.Errorf("wrong event type: %s", received.Type)
				}
			case <-time.After(50 * time.Millisecond):
				if restaurantID == restaurant2 {
					t.Fatalf("restaurant2 client %d should have received message", i)
				}
				// Expected for other restaurants
			}
		}
	}
}

func TestHubCleanupEvictsClosedConnections(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	restaurantID := uuid.New()
	alive := mockClient(hub, restaurantID)
	deadClient := mockClient(hub, restaurantID)

	hub.register <- alive
	hub.register <- deadClient
	time.Sleep(10 * time.Millisecond)

	// Mark one transport as closed, then sweep
	deadClient.dead.Store(true)

	evicted := hub.Cleanup()
	if evicted != 1 {
		t.Fatalf("expected 1 evicted connection, got %d", evicted)
	}

	if got := hub.ConnectionCount(restaurantID); got != 1 {
		t.Fatalf("expected 1 remaining connection, got %d", got)
	}

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	if !hub.rooms[restaurantID][alive] {
		t.Fatal("live client should still be registered")
	}
}

func TestBroadcastEvictsFullBuffers(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	restaurantID := uuid.New()
	// Tiny buffer so the second broadcast cannot be delivered
	stuck := &Client{
		hub:          hub,
		id:           uuid.New(),
		restaurantID: restaurantID,
		send:         make(chan []byte, 1),
	}

	hub.register <- stuck
	time.Sleep(10 * time.Millisecond)

	ticket := TicketPayload{ID: uuid.New(), Items: json.RawMessage(`[]`)}
	hub.BroadcastToRestaurant(restaurantID, NewTicketUpdated(ticket))
	hub.BroadcastToRestaurant(restaurantID, NewTicketUpdated(ticket))
	time.Sleep(20 * time.Millisecond)

	if got := hub.ConnectionCount(restaurantID); got != 0 {
		t.Fatalf("expected stuck client to be evicted, got %d connections", got)
	}
}

func TestBroadcastToRestaurantWithNoDisplays(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	// Create a client for restaurant1
	restaurant1 := uuid.New()
	client1 := mockClient(hub, restaurant1)
	hub.register <- client1
	time.Sleep(10 * time.Millisecond)

	// Broadcast to a restaurant with no connections
	ticket := TicketPayload{ID: uuid.New(), Items: json.RawMessage(`[]`)}
	hub.BroadcastToRestaurant(uuid.New(), NewTicketCreated(ticket))

	// client1 should NOT receive anything
	select {
	case <-client1.send:
		t.Fatal("client should not receive message for different restaurant")
	case <-time.After(50 * time.Millisecond):
		// Expected - no message
	}
}

func TestInboundFrameHandling(t *testing.T) {
	hub := NewHub()
	client := mockClient(hub, uuid.New())

	tests := []struct {
		name     string
		frame    string
		wantType string
	}{
		{"ping replies pong", `{"type":"ping"}`, TypePong},
		{"subscribe echoes filters", `{"type":"subscribe","filters":{"status":"PENDING"}}`, TypeSubscribed},
		{"heartbeat replies ack", `{"type":"heartbeat"}`, TypeHeartbeatAck},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client.handleFrame([]byte(tc.frame))
			select {
			case msg := <-client.send:
				var reply struct {
					Type    string          `json:"type"`
					Filters json.RawMessage `json:"filters"`
				}
				if err := json.Unmarshal(msg, &reply); err != nil {
					t.Fatalf("unmarshal reply: %v", err)
				}
				if reply.Type != tc.wantType {
					t.Errorf("reply type: got %q, want %q", reply.Type, tc.wantType)
				}
				if tc.wantType == TypeSubscribed && string(reply.Filters) != `{"status":"PENDING"}` {
					t.Errorf("filters not echoed: %s", reply.Filters)
				}
			case <-time.After(50 * time.Millisecond):
				t.Fatal("no reply frame")
			}
		})
	}
}

func TestMalformedAndUnknownFramesAreDropped(t *testing.T) {
	hub := NewHub()
	client := mockClient(hub, uuid.New())

	client.handleFrame([]byte(`not json`))
	client.handleFrame([]byte(`{"type":"mystery"}`))
	client.handleFrame([]byte(`{"type":"ack","message_id":"abc"}`))

	select {
	case msg := <-client.send:
		t.Fatalf("expected no reply, got %s", msg)
	case <-time.After(30 * time.Millisecond):
		// Expected - dropped silently
	}
}
