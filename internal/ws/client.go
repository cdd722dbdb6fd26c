package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prime3679/tablefire/api/internal/auth"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins (we validate via JWT)
	},
}

// Client represents a single kitchen-display connection.
type Client struct {
	hub          *Hub
	conn         *websocket.Conn
	id           uuid.UUID
	restaurantID uuid.UUID
	connectedAt  time.Time
	send         chan []byte
	dead         atomic.Bool
}

// ID returns the connection id assigned at registration.
func (c *Client) ID() uuid.UUID { return c.id }

func (c *Client) closed() bool { return c.dead.Load() }

// inboundFrame is the parsed shape of a client→server frame. Unknown or
// malformed frames are logged and dropped without closing the connection.
type inboundFrame struct {
	Type      string          `json:"type"`
	Filters   json.RawMessage `json:"filters"`
	MessageID string          `json:"message_id"`
}

// ReadPump pumps messages from the WebSocket connection to the hub.
// The application runs ReadPump in a per-connection goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.dead.Store(true)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket error: %v", err)
			}
			break
		}
		c.handleFrame(raw)
	}
}

func (c *Client) handleFrame(raw []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		log.Printf("ws: dropping malformed frame from %s: %v", c.id, err)
		return
	}

	switch frame.Type {
	case TypePing:
		c.reply(map[string]string{"type": TypePong})
	case TypeSubscribe:
		c.reply(map[string]any{"type": TypeSubscribed, "filters": frame.Filters})
	case TypeHeartbeat:
		c.reply(map[string]string{"type": TypeHeartbeatAck})
	case TypeAck:
		// Display-side delivery bookkeeping; nothing to do server-side.
	default:
		log.Printf("ws: dropping unknown frame type %q from %s", frame.Type, c.id)
	}
}

func (c *Client) reply(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("ERROR: ws: marshal reply: %v", err)
		return
	}
	select {
	case c.send <- payload:
	default:
		// Buffer full; the hub will evict on the next broadcast attempt.
	}
}

// WritePump pumps messages from the hub to the WebSocket connection.
// The application runs WritePump in a per-connection goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.dead.Store(true)
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWS handles WebSocket requests from kitchen displays.
// Endpoint: WS /ws/restaurants/{rid}/kitchen?token=JWT
func ServeWS(hub *Hub, jwtSecret string, w http.ResponseWriter, r *http.Request) {
	// 1. Extract token from query param
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	// 2. Validate JWT
	claims, err := auth.ValidateToken(jwtSecret, tokenStr)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	// 3. Extract restaurant ID from URL
	ridStr := chi.URLParam(r, "rid")
	restaurantID, err := uuid.Parse(ridStr)
	if err != nil {
		http.Error(w, "invalid restaurant id", http.StatusBadRequest)
		return
	}

	// 4. Verify restaurant access (ADMIN can access any restaurant)
	if claims.Role != "ADMIN" && claims.RestaurantID != restaurantID {
		http.Error(w, "restaurant access denied", http.StatusForbidden)
		return
	}

	// 5. Upgrade to WebSocket
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	// 6. Create client and register with hub
	client := &Client{
		hub:          hub,
		conn:         conn,
		id:           uuid.New(),
		restaurantID: restaurantID,
		connectedAt:  time.Now().UTC(),
		send:         make(chan []byte, 256),
	}
	client.hub.register <- client

	// 7. Acknowledge the connection immediately with the assigned id
	ack, _ := json.Marshal(ConnectedEvent{
		Type:      TypeConnected,
		ClientID:  client.id,
		Timestamp: client.connectedAt,
	})
	client.send <- ack

	// 8. Start pumps in separate goroutines
	go client.WritePump()
	go client.ReadPump()
}
