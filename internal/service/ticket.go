package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/prime3679/tablefire/api/internal/database"
	"github.com/prime3679/tablefire/api/internal/enum"
	"github.com/prime3679/tablefire/api/internal/ws"
)

// Errors returned by the ticket service.
var (
	ErrTicketNotFound      = errors.New("kitchen ticket not found")
	ErrInvalidTicketStatus = errors.New("invalid ticket status")
)

// Each pre-order line contributes a flat per-item estimate; the whole
// ticket never goes below the floor.
const (
	itemPrepMinutes      = 5
	minTicketPrepMinutes = 5
)

// Broadcaster pushes events to kitchen displays. Satisfied by *ws.Hub.
type Broadcaster interface {
	BroadcastToRestaurant(restaurantID uuid.UUID, event any)
}

// POSInjector pushes a pre-order into the external point-of-sale system.
// Satisfied by *pos.Client.
type POSInjector interface {
	InjectOrder(ctx context.Context, preorderID uuid.UUID) (string, error)
}

// TicketStore defines the DB methods needed for staff ticket transitions.
// Satisfied by *database.Queries (and its WithTx variant).
type TicketStore interface {
	UpdateTicketStatus(ctx context.Context, arg database.UpdateTicketStatusParams) (database.KitchenTicket, error)
	GetPreOrderByReservation(ctx context.Context, reservationID uuid.UUID) (database.Preorder, error)
	UpdatePreOrderStatus(ctx context.Context, arg database.UpdatePreOrderStatusParams) (database.Preorder, error)
	CreateAuditEvent(ctx context.Context, arg database.CreateAuditEventParams) (database.AuditEvent, error)
}

// NewTicketStore creates a TicketStore from a DBTX (pool or tx).
type NewTicketStore func(db database.DBTX) TicketStore

// TicketItem is one line of the snapshot written to a kitchen ticket at
// fire time. Copied from the pre-order so the ticket stays stable even if
// the pre-order is later adjusted.
type TicketItem struct {
	Name      string          `json:"name"`
	Quantity  int32           `json:"quantity"`
	Modifiers json.RawMessage `json:"modifiers"`
	Notes     string          `json:"notes,omitempty"`
	Allergens []string        `json:"allergens"`
}

// ticketFirer is the subset of store methods needed to fire a ticket at
// check-in time. CheckInStore embeds it so the firing happens inside the
// check-in transaction.
type ticketFirer interface {
	GetPreOrderByReservation(ctx context.Context, reservationID uuid.UUID) (database.Preorder, error)
	ListPreOrderItems(ctx context.Context, preorderID uuid.UUID) ([]database.PreorderItem, error)
	GetTicketByReservation(ctx context.Context, reservationID uuid.UUID) (database.KitchenTicket, error)
	CreateTicket(ctx context.Context, arg database.CreateTicketParams) (database.KitchenTicket, error)
	RearmTicket(ctx context.Context, arg database.RearmTicketParams) (database.KitchenTicket, error)
}

// fireTicket creates or re-arms the kitchen ticket for a reservation.
// Returns nil if the reservation has no pre-order or an empty one. The
// created flag distinguishes a fresh ticket from a re-armed one so the
// caller can pick the right broadcast event after commit.
func fireTicket(ctx context.Context, store ticketFirer, reservationID, restaurantID uuid.UUID) (*database.KitchenTicket, bool, error) {
	preorder, err := store.GetPreOrderByReservation(ctx, reservationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get preorder: %w", err)
	}

	items, err := store.ListPreOrderItems(ctx, preorder.ID)
	if err != nil {
		return nil, false, fmt.Errorf("list preorder items: %w", err)
	}
	if len(items) == 0 {
		return nil, false, nil
	}

	// A pre-staged ticket (e.g. HOLD) keeps its id and snapshot; it is
	// re-armed with a fresh fire-at instead of duplicated.
	existing, err := store.GetTicketByReservation(ctx, reservationID)
	if err == nil {
		ticket, err := store.RearmTicket(ctx, database.RearmTicketParams{
			ID:     existing.ID,
			Status: enum.TicketStatusPending,
			FireAt: time.Now(),
		})
		if err != nil {
			return nil, false, fmt.Errorf("rearm ticket: %w", err)
		}
		return &ticket, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("get ticket: %w", err)
	}

	snapshot := make([]TicketItem, 0, len(items))
	estimate := int32(0)
	for _, it := range items {
		snapshot = append(snapshot, TicketItem{
			Name:      it.Name,
			Quantity:  it.Quantity,
			Modifiers: json.RawMessage(it.Modifiers),
			Notes:     it.Notes.String,
			Allergens: it.Allergens,
		})
		estimate += itemPrepMinutes * it.Quantity
	}
	if estimate < minTicketPrepMinutes {
		estimate = minTicketPrepMinutes
	}

	itemsJSON, err := json.Marshal(snapshot)
	if err != nil {
		return nil, false, fmt.Errorf("marshal ticket items: %w", err)
	}

	ticket, err := store.CreateTicket(ctx, database.CreateTicketParams{
		ReservationID:        reservationID,
		RestaurantID:         restaurantID,
		Status:               enum.TicketStatusPending,
		EstimatedPrepMinutes: estimate,
		FireAt:               time.Now(),
		Items:                itemsJSON,
	})
	if err != nil {
		return nil, false, fmt.Errorf("create ticket: %w", err)
	}
	return &ticket, true, nil
}

// TicketService handles staff-driven ticket transitions.
type TicketService struct {
	pool     TxBeginner
	newStore NewTicketStore
	pos      POSInjector
	hub      Broadcaster
}

// NewTicketService creates a new TicketService.
func NewTicketService(pool TxBeginner, newStore NewTicketStore, pos POSInjector, hub Broadcaster) *TicketService {
	return &TicketService{pool: pool, newStore: newStore, pos: pos, hub: hub}
}

// StaffTransitionRequest is the validated input for a ticket transition.
type StaffTransitionRequest struct {
	TicketID             uuid.UUID
	Status               string
	EstimatedPrepMinutes *int32
}

// StaffTransition moves a ticket to a new status, restamping the matching
// timestamp. A repeated transition to the same status is an idempotent
// overwrite, not an error. On FIRED the pre-order is injected into the POS
// best-effort: injection failure is logged and never fails the transition.
func (s *TicketService) StaffTransition(ctx context.Context, req StaffTransitionRequest) (database.KitchenTicket, error) {
	switch req.Status {
	case enum.TicketStatusPending, enum.TicketStatusHold, enum.TicketStatusFired,
		enum.TicketStatusReady, enum.TicketStatusServed:
	default:
		return database.KitchenTicket{}, fmt.Errorf("%q: %w", req.Status, ErrInvalidTicketStatus)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.KitchenTicket{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	estimate := pgtype.Int4{}
	if req.EstimatedPrepMinutes != nil {
		estimate = pgtype.Int4{Int32: *req.EstimatedPrepMinutes, Valid: true}
	}

	ticket, err := store.UpdateTicketStatus(ctx, database.UpdateTicketStatusParams{
		ID:                   req.TicketID,
		Status:               req.Status,
		EstimatedPrepMinutes: estimate,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.KitchenTicket{}, ErrTicketNotFound
		}
		return database.KitchenTicket{}, fmt.Errorf("update ticket status: %w", err)
	}

	payload, _ := json.Marshal(map[string]any{
		"ticket_id": ticket.ID,
		"status":    req.Status,
	})
	if _, err := store.CreateAuditEvent(ctx, database.CreateAuditEventParams{
		RestaurantID:  pgtype.UUID{Bytes: ticket.RestaurantID, Valid: true},
		ReservationID: pgtype.UUID{Bytes: ticket.ReservationID, Valid: true},
		Kind:          enum.AuditTicketTransition,
		Payload:       payload,
	}); err != nil {
		return database.KitchenTicket{}, fmt.Errorf("create audit event: %w", err)
	}

	// Resolve the pre-order inside the tx so POS injection after commit
	// has a stable target.
	var preorderID *uuid.UUID
	if req.Status == enum.TicketStatusFired {
		preorder, err := store.GetPreOrderByReservation(ctx, ticket.ReservationID)
		if err == nil {
			preorderID = &preorder.ID
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return database.KitchenTicket{}, fmt.Errorf("get preorder: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return database.KitchenTicket{}, fmt.Errorf("commit tx: %w", err)
	}

	if preorderID != nil {
		s.injectPreOrder(ctx, *preorderID)
	}

	wire := ticketPayload(ticket)
	s.hub.BroadcastToRestaurant(ticket.RestaurantID, ws.NewTicketUpdated(wire))
	if req.Status == enum.TicketStatusReady {
		s.hub.BroadcastToRestaurant(ticket.RestaurantID, ws.NewTicketReady(wire, enum.SoundReadyAlert))
	}

	return ticket, nil
}

// injectPreOrder pushes the pre-order into the POS and records success by
// moving the pre-order to INJECTED. Any failure is logged and swallowed:
// the kitchen ticket is the source of truth.
func (s *TicketService) injectPreOrder(ctx context.Context, preorderID uuid.UUID) {
	posOrderID, err := s.pos.InjectOrder(ctx, preorderID)
	if err != nil {
		log.Printf("WARN: pos inject for preorder %s failed: %v", preorderID, err)
		return
	}
	log.Printf("pos inject for preorder %s succeeded: pos order %s", preorderID, posOrderID)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		log.Printf("WARN: mark preorder %s injected: begin tx: %v", preorderID, err)
		return
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	if _, err := store.UpdatePreOrderStatus(ctx, database.UpdatePreOrderStatusParams{
		ID:     preorderID,
		Status: enum.PreOrderStatusInjected,
	}); err != nil {
		log.Printf("WARN: mark preorder %s injected: %v", preorderID, err)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		log.Printf("WARN: mark preorder %s injected: commit: %v", preorderID, err)
	}
}

// ticketPayload converts a stored ticket into its over-the-wire shape.
func ticketPayload(t database.KitchenTicket) ws.TicketPayload {
	return ws.TicketPayload{
		ID:                   t.ID,
		ReservationID:        t.ReservationID,
		RestaurantID:         t.RestaurantID,
		Status:               t.Status,
		EstimatedPrepMinutes: t.EstimatedPrepMinutes,
		FireAt:               timePtr(t.FireAt),
		FiredAt:              timePtr(t.FiredAt),
		ReadyAt:              timePtr(t.ReadyAt),
		ServedAt:             timePtr(t.ServedAt),
		Items:                json.RawMessage(t.Items),
		CreatedAt:            t.CreatedAt,
	}
}

func timePtr(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}
