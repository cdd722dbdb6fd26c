package ws

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Frame types shared by the hub and the kitchen-display client. Every frame
// is a single flat JSON object with a mandatory "type" field.
const (
	TypeConnected      = "connected"
	TypePing           = "ping"
	TypePong           = "pong"
	TypeSubscribe      = "subscribe"
	TypeSubscribed     = "subscribed"
	TypeHeartbeat      = "heartbeat"
	TypeHeartbeatAck   = "heartbeat_ack"
	TypeAck            = "ack"
	TypeNewTicket      = "new_ticket"
	TypeTicketUpdated  = "ticket_updated"
	TypeTicketReady    = "ticket_ready"
	TypeStatsUpdated   = "stats_updated"
	TypeTimerUpdate    = "timer_update"
	TypeEmergencyAlert = "emergency_alert"
)

// TicketPayload is the over-the-wire shape of a kitchen ticket.
type TicketPayload struct {
	ID                   uuid.UUID       `json:"id"`
	ReservationID        uuid.UUID       `json:"reservation_id"`
	RestaurantID         uuid.UUID       `json:"restaurant_id"`
	Status               string          `json:"status"`
	EstimatedPrepMinutes int32           `json:"estimated_prep_minutes"`
	FireAt               *time.Time      `json:"fire_at"`
	FiredAt              *time.Time      `json:"fired_at"`
	ReadyAt              *time.Time      `json:"ready_at"`
	ServedAt             *time.Time      `json:"served_at"`
	Items                json.RawMessage `json:"items"`
	CreatedAt            time.Time       `json:"created_at"`
}

type ConnectedEvent struct {
	Type      string    `json:"type"`
	ClientID  uuid.UUID `json:"client_id"`
	Timestamp time.Time `json:"timestamp"`
}

type NewTicketEvent struct {
	Type      string        `json:"type"`
	Ticket    TicketPayload `json:"ticket"`
	Timestamp time.Time     `json:"timestamp"`
}

type TicketUpdatedEvent struct {
	Type      string        `json:"type"`
	Ticket    TicketPayload `json:"ticket"`
	Timestamp time.Time     `json:"timestamp"`
}

type TicketReadyEvent struct {
	Type      string        `json:"type"`
	Ticket    TicketPayload `json:"ticket"`
	Sound     string        `json:"sound"`
	Timestamp time.Time     `json:"timestamp"`
}

type StatsUpdatedEvent struct {
	Type      string          `json:"type"`
	Stats     json.RawMessage `json:"stats"`
	Timestamp time.Time       `json:"timestamp"`
}

type TimerUpdateEvent struct {
	Type      string          `json:"type"`
	TicketID  uuid.UUID       `json:"ticket_id"`
	TimeData  json.RawMessage `json:"time_data"`
	Timestamp time.Time       `json:"timestamp"`
}

type EmergencyAlertEvent struct {
	Type      string    `json:"type"`
	Alert     string    `json:"alert"`
	Sound     string    `json:"sound"`
	Priority  string    `json:"priority"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTicketCreated(ticket TicketPayload) NewTicketEvent {
	return NewTicketEvent{Type: TypeNewTicket, Ticket: ticket, Timestamp: time.Now().UTC()}
}

func NewTicketUpdated(ticket TicketPayload) TicketUpdatedEvent {
	return TicketUpdatedEvent{Type: TypeTicketUpdated, Ticket: ticket, Timestamp: time.Now().UTC()}
}

func NewTicketReady(ticket TicketPayload, sound string) TicketReadyEvent {
	return TicketReadyEvent{Type: TypeTicketReady, Ticket: ticket, Sound: sound, Timestamp: time.Now().UTC()}
}
