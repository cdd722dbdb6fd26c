package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/prime3679/tablefire/api/internal/database"
	"github.com/prime3679/tablefire/api/internal/enum"
	"github.com/prime3679/tablefire/api/internal/ws"
)

// Errors returned by the check-in orchestrator.
var (
	ErrInvalidCheckInMethod = errors.New("invalid check-in method")
	ErrReservationNotBooked = errors.New("reservation cannot be checked in")
	ErrAlreadyCheckedIn     = errors.New("reservation already checked in")
)

// CheckInStore defines the DB methods needed for check-in, including the
// ticket-firing subset so the ticket is written in the same transaction.
// Satisfied by *database.Queries (and its WithTx variant).
type CheckInStore interface {
	ticketFirer
	GetReservation(ctx context.Context, id uuid.UUID) (database.Reservation, error)
	UpdateReservationStatus(ctx context.Context, arg database.UpdateReservationStatusParams) (database.Reservation, error)
	GetCheckInByReservation(ctx context.Context, reservationID uuid.UUID) (database.Checkin, error)
	CreateCheckIn(ctx context.Context, arg database.CreateCheckInParams) (database.Checkin, error)
	CreateAuditEvent(ctx context.Context, arg database.CreateAuditEventParams) (database.AuditEvent, error)
}

// NewCheckInStore creates a CheckInStore from a DBTX (pool or tx).
type NewCheckInStore func(db database.DBTX) CheckInStore

// CheckInRequest is the validated input for a guest arrival.
type CheckInRequest struct {
	ReservationID uuid.UUID
	Method        string
	TableID       string
}

// CheckInResult is the outcome of a check-in: the scan record, the updated
// reservation and the kitchen ticket fired for it (nil when the
// reservation has no pre-order).
type CheckInResult struct {
	CheckIn       database.Checkin
	Reservation   database.Reservation
	Ticket        *database.KitchenTicket
	TicketCreated bool
}

// CheckInService transitions a reservation to CHECKED_IN on guest arrival
// and fires its kitchen ticket.
type CheckInService struct {
	pool     TxBeginner
	newStore NewCheckInStore
	hub      Broadcaster
}

// NewCheckInService creates a new CheckInService.
func NewCheckInService(pool TxBeginner, newStore NewCheckInStore, hub Broadcaster) *CheckInService {
	return &CheckInService{pool: pool, newStore: newStore, hub: hub}
}

// CheckIn records a guest arrival. The scan record, the reservation
// transition and the fired ticket are written in one transaction; the
// display broadcast happens only after commit. Manual check-in is the same
// operation with method=MANUAL, not a separate path.
func (s *CheckInService) CheckIn(ctx context.Context, req CheckInRequest) (*CheckInResult, error) {
	switch req.Method {
	case enum.CheckInMethodQRScan, enum.CheckInMethodManual, enum.CheckInMethodIntegration:
	default:
		return nil, fmt.Errorf("%q: %w", req.Method, ErrInvalidCheckInMethod)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	reservation, err := store.GetReservation(ctx, req.ReservationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	if reservation.Status != enum.ReservationStatusBooked {
		return nil, fmt.Errorf("reservation is %s: %w", reservation.Status, ErrReservationNotBooked)
	}

	// The checkins row is the source of truth for "already checked in";
	// its UNIQUE(reservation_id) constraint backs this read under races.
	if existing, err := store.GetCheckInByReservation(ctx, req.ReservationID); err == nil {
		return nil, fmt.Errorf("checked in at %s: %w", existing.ScannedAt.UTC().Format(time.RFC3339), ErrAlreadyCheckedIn)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check existing check-in: %w", err)
	}

	tableID := pgtype.Text{}
	if req.TableID != "" {
		tableID = pgtype.Text{String: req.TableID, Valid: true}
	}
	checkin, err := store.CreateCheckIn(ctx, database.CreateCheckInParams{
		ReservationID: req.ReservationID,
		RestaurantID:  reservation.RestaurantID,
		Method:        req.Method,
		TableID:       tableID,
	})
	if err != nil {
		return nil, fmt.Errorf("create check-in: %w", err)
	}

	reservation, err = store.UpdateReservationStatus(ctx, database.UpdateReservationStatusParams{
		ID:     req.ReservationID,
		Status: enum.ReservationStatusCheckedIn,
	})
	if err != nil {
		return nil, fmt.Errorf("update reservation: %w", err)
	}

	ticket, created, err := fireTicket(ctx, store, req.ReservationID, reservation.RestaurantID)
	if err != nil {
		return nil, err
	}

	payload, _ := json.Marshal(map[string]any{
		"method":     req.Method,
		"table_id":   req.TableID,
		"scanned_at": checkin.ScannedAt,
	})
	if _, err := store.CreateAuditEvent(ctx, database.CreateAuditEventParams{
		RestaurantID:  pgtype.UUID{Bytes: reservation.RestaurantID, Valid: true},
		ReservationID: pgtype.UUID{Bytes: req.ReservationID, Valid: true},
		Kind:          enum.AuditReservationCheckedIn,
		Payload:       payload,
	}); err != nil {
		return nil, fmt.Errorf("create audit event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	if ticket != nil {
		wire := ticketPayload(*ticket)
		if created {
			s.hub.BroadcastToRestaurant(reservation.RestaurantID, ws.NewTicketCreated(wire))
		} else {
			s.hub.BroadcastToRestaurant(reservation.RestaurantID, ws.NewTicketUpdated(wire))
		}
	}

	return &CheckInResult{
		CheckIn:       checkin,
		Reservation:   reservation,
		Ticket:        ticket,
		TicketCreated: created,
	}, nil
}

// Status reports the check-in state of a reservation: the reservation
// itself, its scan record if any, and its kitchen ticket if any.
func (s *CheckInService) Status(ctx context.Context, reservationID uuid.UUID) (*CheckInStatus, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	reservation, err := store.GetReservation(ctx, reservationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, fmt.Errorf("get reservation: %w", err)
	}

	status := &CheckInStatus{Reservation: reservation}

	if checkin, err := store.GetCheckInByReservation(ctx, reservationID); err == nil {
		status.CheckIn = &checkin
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get check-in: %w", err)
	}

	if ticket, err := store.GetTicketByReservation(ctx, reservationID); err == nil {
		status.Ticket = &ticket
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get ticket: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return status, nil
}

// CheckInStatus is the read-side view of a reservation's arrival state.
type CheckInStatus struct {
	Reservation database.Reservation
	CheckIn     *database.Checkin
	Ticket      *database.KitchenTicket
}
