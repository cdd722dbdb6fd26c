package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const getCheckInByReservation = `
SELECT id, reservation_id, restaurant_id, method, table_id, scanned_at
FROM checkins
WHERE reservation_id = $1
`

func (q *Queries) GetCheckInByReservation(ctx context.Context, reservationID uuid.UUID) (Checkin, error) {
	row := q.db.QueryRow(ctx, getCheckInByReservation, reservationID)
	var c Checkin
	err := row.Scan(&c.ID, &c.ReservationID, &c.RestaurantID, &c.Method, &c.TableID, &c.ScannedAt)
	return c, err
}

const createCheckIn = `
INSERT INTO checkins (reservation_id, restaurant_id, method, table_id)
VALUES ($1, $2, $3, $4)
RETURNING id, reservation_id, restaurant_id, method, table_id, scanned_at
`

type CreateCheckInParams struct {
	ReservationID uuid.UUID
	RestaurantID  uuid.UUID
	Method        string
	TableID       pgtype.Text
}

func (q *Queries) CreateCheckIn(ctx context.Context, arg CreateCheckInParams) (Checkin, error) {
	row := q.db.QueryRow(ctx, createCheckIn, arg.ReservationID, arg.RestaurantID, arg.Method, arg.TableID)
	var c Checkin
	err := row.Scan(&c.ID, &c.ReservationID, &c.RestaurantID, &c.Method, &c.TableID, &c.ScannedAt)
	return c, err
}
