package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const ticketColumns = `id, reservation_id, restaurant_id, status, estimated_prep_minutes,
fire_at, fired_at, ready_at, served_at, items, created_at, updated_at`

func scanTicket(row pgx.Row, t *KitchenTicket) error {
	return row.Scan(&t.ID, &t.ReservationID, &t.RestaurantID, &t.Status, &t.EstimatedPrepMinutes,
		&t.FireAt, &t.FiredAt, &t.ReadyAt, &t.ServedAt, &t.Items, &t.CreatedAt, &t.UpdatedAt)
}

const getTicket = `
SELECT ` + ticketColumns + `
FROM kitchen_tickets
WHERE id = $1
`

func (q *Queries) GetTicket(ctx context.Context, id uuid.UUID) (KitchenTicket, error) {
	var t KitchenTicket
	err := scanTicket(q.db.QueryRow(ctx, getTicket, id), &t)
	return t, err
}

const getTicketByReservation = `
SELECT ` + ticketColumns + `
FROM kitchen_tickets
WHERE reservation_id = $1
`

func (q *Queries) GetTicketByReservation(ctx context.Context, reservationID uuid.UUID) (KitchenTicket, error) {
	var t KitchenTicket
	err := scanTicket(q.db.QueryRow(ctx, getTicketByReservation, reservationID), &t)
	return t, err
}

const createTicket = `
INSERT INTO kitchen_tickets (reservation_id, restaurant_id, status, estimated_prep_minutes, fire_at, items)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + ticketColumns

type CreateTicketParams struct {
	ReservationID        uuid.UUID
	RestaurantID         uuid.UUID
	Status               string
	EstimatedPrepMinutes int32
	FireAt               time.Time
	Items                []byte
}

func (q *Queries) CreateTicket(ctx context.Context, arg CreateTicketParams) (KitchenTicket, error) {
	row := q.db.QueryRow(ctx, createTicket,
		arg.ReservationID, arg.RestaurantID, arg.Status, arg.EstimatedPrepMinutes, arg.FireAt, arg.Items)
	var t KitchenTicket
	err := scanTicket(row, &t)
	return t, err
}

// Re-arming keeps the ticket's id and item snapshot but queues it again with
// a fresh fire-at.
const rearmTicket = `
UPDATE kitchen_tickets
SET status = $2, fire_at = $3, updated_at = now()
WHERE id = $1
RETURNING ` + ticketColumns

type RearmTicketParams struct {
	ID     uuid.UUID
	Status string
	FireAt time.Time
}

func (q *Queries) RearmTicket(ctx context.Context, arg RearmTicketParams) (KitchenTicket, error) {
	row := q.db.QueryRow(ctx, rearmTicket, arg.ID, arg.Status, arg.FireAt)
	var t KitchenTicket
	err := scanTicket(row, &t)
	return t, err
}

// Timestamps are stamped by the status being entered; a repeated transition
// to the same status re-stamps rather than being rejected.
const updateTicketStatus = `
UPDATE kitchen_tickets
SET status = $2,
    estimated_prep_minutes = COALESCE($3, estimated_prep_minutes),
    fired_at  = CASE WHEN $2 = 'FIRED'  THEN now() ELSE fired_at  END,
    ready_at  = CASE WHEN $2 = 'READY'  THEN now() ELSE ready_at  END,
    served_at = CASE WHEN $2 = 'SERVED' THEN now() ELSE served_at END,
    updated_at = now()
WHERE id = $1
RETURNING ` + ticketColumns

type UpdateTicketStatusParams struct {
	ID                   uuid.UUID
	Status               string
	EstimatedPrepMinutes pgtype.Int4
}

func (q *Queries) UpdateTicketStatus(ctx context.Context, arg UpdateTicketStatusParams) (KitchenTicket, error) {
	row := q.db.QueryRow(ctx, updateTicketStatus, arg.ID, arg.Status, arg.EstimatedPrepMinutes)
	var t KitchenTicket
	err := scanTicket(row, &t)
	return t, err
}

const listTicketsByRestaurant = `
SELECT t.id, t.reservation_id, t.restaurant_id, t.status, t.estimated_prep_minutes,
       t.fire_at, t.fired_at, t.ready_at, t.served_at, t.items, t.created_at, t.updated_at,
       r.guest_name, r.party_size, r.starts_at
FROM kitchen_tickets t
JOIN reservations r ON r.id = t.reservation_id
WHERE t.restaurant_id = $1
  AND ($2::text IS NULL OR t.status = $2)
ORDER BY t.created_at ASC
`

type ListTicketsByRestaurantParams struct {
	RestaurantID uuid.UUID
	Status       pgtype.Text
}

type ListTicketsByRestaurantRow struct {
	KitchenTicket
	GuestName string
	PartySize int32
	StartsAt  time.Time
}

func (q *Queries) ListTicketsByRestaurant(ctx context.Context, arg ListTicketsByRestaurantParams) ([]ListTicketsByRestaurantRow, error) {
	rows, err := q.db.Query(ctx, listTicketsByRestaurant, arg.RestaurantID, arg.Status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tickets []ListTicketsByRestaurantRow
	for rows.Next() {
		var t ListTicketsByRestaurantRow
		if err := rows.Scan(&t.ID, &t.ReservationID, &t.RestaurantID, &t.Status, &t.EstimatedPrepMinutes,
			&t.FireAt, &t.FiredAt, &t.ReadyAt, &t.ServedAt, &t.Items, &t.CreatedAt, &t.UpdatedAt,
			&t.GuestName, &t.PartySize, &t.StartsAt); err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}
