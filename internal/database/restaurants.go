package database

import (
	"context"

	"github.com/google/uuid"
)

const getRestaurant = `
SELECT id, name, slug, currency, tax_rate, created_at
FROM restaurants
WHERE id = $1
`

func (q *Queries) GetRestaurant(ctx context.Context, id uuid.UUID) (Restaurant, error) {
	row := q.db.QueryRow(ctx, getRestaurant, id)
	var r Restaurant
	err := row.Scan(&r.ID, &r.Name, &r.Slug, &r.Currency, &r.TaxRate, &r.CreatedAt)
	return r, err
}

const createRestaurant = `
INSERT INTO restaurants (name, slug, currency, tax_rate)
VALUES ($1, $2, $3, $4)
RETURNING id, name, slug, currency, tax_rate, created_at
`

type CreateRestaurantParams struct {
	Name     string
	Slug     string
	Currency string
	TaxRate  string
}

func (q *Queries) CreateRestaurant(ctx context.Context, arg CreateRestaurantParams) (Restaurant, error) {
	row := q.db.QueryRow(ctx, createRestaurant, arg.Name, arg.Slug, arg.Currency, arg.TaxRate)
	var r Restaurant
	err := row.Scan(&r.ID, &r.Name, &r.Slug, &r.Currency, &r.TaxRate, &r.CreatedAt)
	return r, err
}
