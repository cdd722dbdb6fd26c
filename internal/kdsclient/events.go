// Package kdsclient implements the kitchen-display side of the realtime
// channel: a reconnecting WebSocket client with heartbeats, an offline send
// queue and per-message acknowledgment tracking.
package kdsclient

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/prime3679/tablefire/api/internal/ws"
)

// Event is a typed client-side event. Each inbound frame type maps 1:1 to
// one concrete Event; protocol-level happenings (state changes, message
// timeouts, terminal failure) use the same union so the UI layer consumes a
// single stream.
type Event interface {
	isEvent()
}

// ConnectedEvent carries the connection id assigned by the hub.
type ConnectedEvent struct {
	ClientID uuid.UUID
}

// NewTicketEvent announces a freshly fired kitchen ticket.
type NewTicketEvent struct {
	Ticket ws.TicketPayload
}

// TicketUpdatedEvent announces a ticket state change.
type TicketUpdatedEvent struct {
	Ticket ws.TicketPayload
}

// TicketReadyEvent announces a ticket ready for service.
type TicketReadyEvent struct {
	Ticket ws.TicketPayload
	Sound  string
}

// StatsUpdatedEvent carries refreshed kitchen throughput stats.
type StatsUpdatedEvent struct {
	Stats json.RawMessage
}

// TimerUpdateEvent carries countdown data for one ticket.
type TimerUpdateEvent struct {
	TicketID uuid.UUID
	TimeData json.RawMessage
}

// EmergencyAlertEvent carries an operator-raised alert.
type EmergencyAlertEvent struct {
	Alert    string
	Sound    string
	Priority string
}

// SubscribedEvent echoes the filters the hub accepted.
type SubscribedEvent struct {
	Filters json.RawMessage
}

// PlaySoundEvent asks the display to play an advisory sound. Emitted after
// the event that carried the hint.
type PlaySoundEvent struct {
	Sound string
}

// StateChangeEvent reports a protocol state transition.
type StateChangeEvent struct {
	State State
}

// MessageTimeoutEvent reports a message whose acknowledgment did not arrive
// in time; the message has been re-queued.
type MessageTimeoutEvent struct {
	MessageID string
}

// FailedEvent is terminal: reconnection attempts are exhausted.
type FailedEvent struct {
	Reason string
}

func (ConnectedEvent) isEvent()      {}
func (NewTicketEvent) isEvent()      {}
func (TicketUpdatedEvent) isEvent()  {}
func (TicketReadyEvent) isEvent()    {}
func (StatsUpdatedEvent) isEvent()   {}
func (TimerUpdateEvent) isEvent()    {}
func (EmergencyAlertEvent) isEvent() {}
func (SubscribedEvent) isEvent()     {}
func (PlaySoundEvent) isEvent()      {}
func (StateChangeEvent) isEvent()    {}
func (MessageTimeoutEvent) isEvent() {}
func (FailedEvent) isEvent()         {}

// serverFrame is the superset of fields across inbound frame types; the
// "type" discriminator picks which ones are read.
type serverFrame struct {
	Type      string           `json:"type"`
	ClientID  uuid.UUID        `json:"client_id"`
	Ticket    ws.TicketPayload `json:"ticket"`
	Stats     json.RawMessage  `json:"stats"`
	TicketID  uuid.UUID        `json:"ticket_id"`
	TimeData  json.RawMessage  `json:"time_data"`
	Alert     string           `json:"alert"`
	Sound     string           `json:"sound"`
	Priority  string           `json:"priority"`
	Filters   json.RawMessage  `json:"filters"`
	MessageID string           `json:"message_id"`
}

// translate validates a frame at the channel boundary and converts it to
// its typed event. Control frames (pong, heartbeat, heartbeat_ack, ack)
// are handled by the client itself and never reach here.
func translate(frame serverFrame) (Event, error) {
	switch frame.Type {
	case ws.TypeConnected:
		return ConnectedEvent{ClientID: frame.ClientID}, nil
	case ws.TypeNewTicket:
		return NewTicketEvent{Ticket: frame.Ticket}, nil
	case ws.TypeTicketUpdated:
		return TicketUpdatedEvent{Ticket: frame.Ticket}, nil
	case ws.TypeTicketReady:
		return TicketReadyEvent{Ticket: frame.Ticket, Sound: frame.Sound}, nil
	case ws.TypeStatsUpdated:
		return StatsUpdatedEvent{Stats: frame.Stats}, nil
	case ws.TypeTimerUpdate:
		return TimerUpdateEvent{TicketID: frame.TicketID, TimeData: frame.TimeData}, nil
	case ws.TypeEmergencyAlert:
		return EmergencyAlertEvent{Alert: frame.Alert, Sound: frame.Sound, Priority: frame.Priority}, nil
	case ws.TypeSubscribed:
		return SubscribedEvent{Filters: frame.Filters}, nil
	default:
		return nil, fmt.Errorf("unknown frame type %q", frame.Type)
	}
}
