package database

import (
	"context"

	"github.com/google/uuid"
)

const getUserByEmail = `
SELECT id, restaurant_id, email, password_hash, name, role, created_at
FROM users
WHERE email = $1
`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRow(ctx, getUserByEmail, email)
	var u User
	err := row.Scan(&u.ID, &u.RestaurantID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &u.CreatedAt)
	return u, err
}

const createUser = `
INSERT INTO users (restaurant_id, email, password_hash, name, role)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, restaurant_id, email, password_hash, name, role, created_at
`

type CreateUserParams struct {
	RestaurantID uuid.UUID
	Email        string
	PasswordHash string
	Name         string
	Role         string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser,
		arg.RestaurantID, arg.Email, arg.PasswordHash, arg.Name, arg.Role)
	var u User
	err := row.Scan(&u.ID, &u.RestaurantID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &u.CreatedAt)
	return u, err
}
