package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const getReservation = `
SELECT id, restaurant_id, guest_name, guest_email, party_size, starts_at, status, created_at
FROM reservations
WHERE id = $1
`

func (q *Queries) GetReservation(ctx context.Context, id uuid.UUID) (Reservation, error) {
	row := q.db.QueryRow(ctx, getReservation, id)
	var r Reservation
	err := row.Scan(&r.ID, &r.RestaurantID, &r.GuestName, &r.GuestEmail,
		&r.PartySize, &r.StartsAt, &r.Status, &r.CreatedAt)
	return r, err
}

const updateReservationStatus = `
UPDATE reservations
SET status = $2
WHERE id = $1
RETURNING id, restaurant_id, guest_name, guest_email, party_size, starts_at, status, created_at
`

type UpdateReservationStatusParams struct {
	ID     uuid.UUID
	Status string
}

func (q *Queries) UpdateReservationStatus(ctx context.Context, arg UpdateReservationStatusParams) (Reservation, error) {
	row := q.db.QueryRow(ctx, updateReservationStatus, arg.ID, arg.Status)
	var r Reservation
	err := row.Scan(&r.ID, &r.RestaurantID, &r.GuestName, &r.GuestEmail,
		&r.PartySize, &r.StartsAt, &r.Status, &r.CreatedAt)
	return r, err
}

const createReservation = `
INSERT INTO reservations (restaurant_id, guest_name, guest_email, party_size, starts_at, status)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, restaurant_id, guest_name, guest_email, party_size, starts_at, status, created_at
`

type CreateReservationParams struct {
	RestaurantID uuid.UUID
	GuestName    string
	GuestEmail   pgtype.Text
	PartySize    int32
	StartsAt     time.Time
	Status       string
}

func (q *Queries) CreateReservation(ctx context.Context, arg CreateReservationParams) (Reservation, error) {
	row := q.db.QueryRow(ctx, createReservation,
		arg.RestaurantID, arg.GuestName, arg.GuestEmail, arg.PartySize, arg.StartsAt, arg.Status)
	var r Reservation
	err := row.Scan(&r.ID, &r.RestaurantID, &r.GuestName, &r.GuestEmail,
		&r.PartySize, &r.StartsAt, &r.Status, &r.CreatedAt)
	return r, err
}
