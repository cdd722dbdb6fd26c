package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createAuditEvent = `
INSERT INTO audit_events (restaurant_id, reservation_id, kind, payload)
VALUES ($1, $2, $3, $4)
RETURNING id, restaurant_id, reservation_id, kind, payload, created_at
`

type CreateAuditEventParams struct {
	RestaurantID  pgtype.UUID
	ReservationID pgtype.UUID
	Kind          string
	Payload       []byte
}

func (q *Queries) CreateAuditEvent(ctx context.Context, arg CreateAuditEventParams) (AuditEvent, error) {
	row := q.db.QueryRow(ctx, createAuditEvent, arg.RestaurantID, arg.ReservationID, arg.Kind, arg.Payload)
	var e AuditEvent
	err := row.Scan(&e.ID, &e.RestaurantID, &e.ReservationID, &e.Kind, &e.Payload, &e.CreatedAt)
	return e, err
}
