package kdsclient

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prime3679/tablefire/api/internal/ws"
)

// State is the protocol connection state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateReconnecting:
		return "RECONNECTING"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Config controls reconnection, heartbeats and acknowledgment tracking.
type Config struct {
	URL                  string
	ReconnectEnabled     bool
	MaxReconnectAttempts int
	ReconnectBaseDelay   time.Duration
	HeartbeatInterval    time.Duration
	AckTimeout           time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxReconnectAttempts == 0 {
		c.MaxReconnectAttempts = 5
	}
	if c.ReconnectBaseDelay == 0 {
		c.ReconnectBaseDelay = time.Second
	}
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = 30 * time.Second
	}
	if c.AckTimeout == 0 {
		c.AckTimeout = 10 * time.Second
	}
	return c
}

// OutboundMessage is a client→server frame. Messages with NeedsAck set are
// tracked until the server acknowledges the MessageID or the ack timeout
// re-queues them.
type OutboundMessage struct {
	Type      string          `json:"type"`
	MessageID string          `json:"message_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	NeedsAck  bool            `json:"-"`
}

type pendingAck struct {
	msg   OutboundMessage
	timer *time.Timer
}

// Client is a reconnecting kitchen-display connection. All methods are safe
// for concurrent use. Domain and protocol events are delivered on Events();
// a slow consumer drops events rather than blocking the read loop.
type Client struct {
	cfg    Config
	events chan Event

	mu             sync.Mutex
	state          State
	conn           *websocket.Conn
	queue          []OutboundMessage
	pending        map[string]*pendingAck
	attempts       int
	closed         bool
	reconnectTimer *time.Timer
	heartbeatStop  chan struct{}

	writeMu sync.Mutex
}

// NewClient creates a client for the given hub URL. It does not connect.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:     cfg.withDefaults(),
		events:  make(chan Event, 64),
		state:   StateDisconnected,
		pending: make(map[string]*pendingAck),
	}
}

// Events returns the stream of typed client-side events.
func (c *Client) Events() <-chan Event {
	return c.events
}

// State returns the current protocol state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect dials the hub. On dial failure the reconnect schedule takes over
// (when enabled); the returned error reports only the first attempt.
func (c *Client) Connect() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("client is disconnected")
	}
	c.setStateLocked(StateConnecting)
	c.mu.Unlock()

	return c.dial()
}

func (c *Client) dial() error {
	conn, _, err := websocket.DefaultDialer.Dial(c.cfg.URL, nil)
	if err != nil {
		c.handleDrop(fmt.Errorf("dial: %w", err))
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return nil
	}
	c.conn = conn
	c.attempts = 0
	c.setStateLocked(StateConnected)
	c.heartbeatStop = make(chan struct{})
	stop := c.heartbeatStop
	queued := c.queue
	c.queue = nil
	c.mu.Unlock()

	go c.heartbeatLoop(stop)
	go c.readLoop(conn)

	// Flush messages queued while disconnected, oldest first.
	for _, msg := range queued {
		if ok := c.Send(msg); !ok {
			break
		}
	}
	return nil
}

// Send delivers a message if connected, otherwise queues it and returns
// false — queued is deferred, not failed. NeedsAck messages start an ack
// timer on delivery.
func (c *Client) Send(msg OutboundMessage) bool {
	c.mu.Lock()
	if c.state != StateConnected || c.conn == nil {
		c.queue = append(c.queue, msg)
		c.mu.Unlock()
		return false
	}
	conn := c.conn
	c.mu.Unlock()

	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("ERROR: kdsclient: marshal %s frame: %v", msg.Type, err)
		return false
	}

	c.writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, payload)
	c.writeMu.Unlock()
	if err != nil {
		// The read loop will notice the broken transport; keep the
		// message for the next connection.
		c.mu.Lock()
		c.queue = append(c.queue, msg)
		c.mu.Unlock()
		return false
	}

	if msg.NeedsAck && msg.MessageID != "" {
		c.trackAck(msg)
	}
	return true
}

// trackAck arms the timeout that re-queues the message if no ack arrives.
func (c *Client) trackAck(msg OutboundMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	id := msg.MessageID
	c.pending[id] = &pendingAck{
		msg: msg,
		timer: time.AfterFunc(c.cfg.AckTimeout, func() {
			c.ackTimeout(id)
		}),
	}
}

func (c *Client) ackTimeout(id string) {
	c.mu.Lock()
	p, ok := c.pending[id]
	if !ok || c.closed {
		c.mu.Unlock()
		return
	}
	delete(c.pending, id)
	c.queue = append(c.queue, p.msg)
	connected := c.state == StateConnected
	c.mu.Unlock()

	c.emit(MessageTimeoutEvent{MessageID: id})

	// Another send attempt right away if the transport is up.
	if connected {
		c.flushQueue()
	}
}

func (c *Client) flushQueue() {
	c.mu.Lock()
	queued := c.queue
	c.queue = nil
	c.mu.Unlock()
	for _, msg := range queued {
		if ok := c.Send(msg); !ok {
			break
		}
	}
}

// Disconnect closes the transport deliberately: reconnection is disabled,
// all timers are cancelled before returning, and the state becomes
// DISCONNECTED. This is the only path that never triggers a reconnect.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	if c.heartbeatStop != nil {
		close(c.heartbeatStop)
		c.heartbeatStop = nil
	}
	for id, p := range c.pending {
		p.timer.Stop()
		delete(c.pending, id)
	}
	conn := c.conn
	c.conn = nil
	c.setStateLocked(StateDisconnected)
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

func (c *Client) heartbeatLoop(stop chan struct{}) {
	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.Send(OutboundMessage{Type: ws.TypeHeartbeat})
		}
	}
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.onConnectionLost(conn, err)
			return
		}
		c.handleFrame(raw)
	}
}

func (c *Client) handleFrame(raw []byte) {
	var frame serverFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		log.Printf("kdsclient: dropping malformed frame: %v", err)
		return
	}

	switch frame.Type {
	case ws.TypePong, ws.TypeHeartbeatAck:
		// Liveness bookkeeping only.
		return
	case ws.TypeHeartbeat:
		c.Send(OutboundMessage{Type: ws.TypeHeartbeatAck})
		return
	case ws.TypeAck:
		c.clearPending(frame.MessageID)
		return
	}

	event, err := translate(frame)
	if err != nil {
		log.Printf("kdsclient: %v", err)
		return
	}
	c.emit(event)

	// Advisory sound hints become an explicit side-effect event.
	switch e := event.(type) {
	case TicketReadyEvent:
		if e.Sound != "" {
			c.emit(PlaySoundEvent{Sound: e.Sound})
		}
	case EmergencyAlertEvent:
		if e.Sound != "" {
			c.emit(PlaySoundEvent{Sound: e.Sound})
		}
	}
}

func (c *Client) clearPending(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.pending[id]; ok {
		p.timer.Stop()
		delete(c.pending, id)
	}
}

// onConnectionLost runs when the read loop exits. Deliberate disconnects
// are ignored; anything else enters the reconnect schedule.
func (c *Client) onConnectionLost(conn *websocket.Conn, err error) {
	c.mu.Lock()
	if c.closed || c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	if c.heartbeatStop != nil {
		close(c.heartbeatStop)
		c.heartbeatStop = nil
	}
	c.mu.Unlock()
	conn.Close()

	c.handleDrop(err)
}

// handleDrop decides between scheduling a reconnect and giving up. Retry
// delay grows linearly: baseDelay × attemptNumber.
func (c *Client) handleDrop(cause error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if !c.cfg.ReconnectEnabled || c.attempts >= c.cfg.MaxReconnectAttempts {
		c.setStateLocked(StateFailed)
		c.mu.Unlock()
		c.emit(FailedEvent{Reason: cause.Error()})
		return
	}
	c.attempts++
	attempt := c.attempts
	delay := c.cfg.ReconnectBaseDelay * time.Duration(attempt)
	c.setStateLocked(StateReconnecting)
	c.reconnectTimer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		c.setStateLocked(StateConnecting)
		c.mu.Unlock()
		c.dial() //nolint:errcheck
	})
	c.mu.Unlock()

	log.Printf("kdsclient: connection lost (%v), reconnect %d/%d in %s", cause, attempt, c.cfg.MaxReconnectAttempts, delay)
}

// setStateLocked updates the state and emits a StateChangeEvent. Callers
// must hold c.mu.
func (c *Client) setStateLocked(next State) {
	if c.state == next {
		return
	}
	c.state = next
	c.emit(StateChangeEvent{State: next})
}

func (c *Client) emit(event Event) {
	select {
	case c.events <- event:
	default:
		log.Printf("kdsclient: event buffer full, dropping %T", event)
	}
}
