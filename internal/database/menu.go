package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const getMenuItemBySKU = `
SELECT id, restaurant_id, sku, name, description, base_price, is_available,
       removed_from_service, allergens, prep_minutes, position, created_at, updated_at
FROM menu_items
WHERE restaurant_id = $1 AND sku = $2
`

type GetMenuItemBySKUParams struct {
	RestaurantID uuid.UUID
	Sku          string
}

func (q *Queries) GetMenuItemBySKU(ctx context.Context, arg GetMenuItemBySKUParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, getMenuItemBySKU, arg.RestaurantID, arg.Sku)
	var m MenuItem
	err := row.Scan(&m.ID, &m.RestaurantID, &m.Sku, &m.Name, &m.Description,
		&m.BasePrice, &m.IsAvailable, &m.RemovedFromService, &m.Allergens,
		&m.PrepMinutes, &m.Position, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

const listModifierGroupsByMenuItem = `
SELECT id, menu_item_id, name, required, position
FROM modifier_groups
WHERE menu_item_id = $1
ORDER BY position, name
`

func (q *Queries) ListModifierGroupsByMenuItem(ctx context.Context, menuItemID uuid.UUID) ([]ModifierGroup, error) {
	rows, err := q.db.Query(ctx, listModifierGroupsByMenuItem, menuItemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var groups []ModifierGroup
	for rows.Next() {
		var g ModifierGroup
		if err := rows.Scan(&g.ID, &g.MenuItemID, &g.Name, &g.Required, &g.Position); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

const listModifiersByGroup = `
SELECT id, modifier_group_id, name, price_delta, is_available, allergens, position
FROM modifiers
WHERE modifier_group_id = $1
ORDER BY position, name
`

func (q *Queries) ListModifiersByGroup(ctx context.Context, modifierGroupID uuid.UUID) ([]Modifier, error) {
	rows, err := q.db.Query(ctx, listModifiersByGroup, modifierGroupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var mods []Modifier
	for rows.Next() {
		var m Modifier
		if err := rows.Scan(&m.ID, &m.ModifierGroupID, &m.Name, &m.PriceDelta, &m.IsAvailable, &m.Allergens, &m.Position); err != nil {
			return nil, err
		}
		mods = append(mods, m)
	}
	return mods, rows.Err()
}

const createMenuItem = `
INSERT INTO menu_items (restaurant_id, sku, name, description, base_price,
                        is_available, removed_from_service, allergens, prep_minutes, position)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id, restaurant_id, sku, name, description, base_price, is_available,
          removed_from_service, allergens, prep_minutes, position, created_at, updated_at
`

type CreateMenuItemParams struct {
	RestaurantID       uuid.UUID
	Sku                string
	Name               string
	Description        pgtype.Text
	BasePrice          int64
	IsAvailable        bool
	RemovedFromService bool
	Allergens          []string
	PrepMinutes        int32
	Position           int32
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, createMenuItem,
		arg.RestaurantID, arg.Sku, arg.Name, arg.Description, arg.BasePrice,
		arg.IsAvailable, arg.RemovedFromService, arg.Allergens, arg.PrepMinutes, arg.Position)
	var m MenuItem
	err := row.Scan(&m.ID, &m.RestaurantID, &m.Sku, &m.Name, &m.Description,
		&m.BasePrice, &m.IsAvailable, &m.RemovedFromService, &m.Allergens,
		&m.PrepMinutes, &m.Position, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

const createModifierGroup = `
INSERT INTO modifier_groups (menu_item_id, name, required, position)
VALUES ($1, $2, $3, $4)
RETURNING id, menu_item_id, name, required, position
`

type CreateModifierGroupParams struct {
	MenuItemID uuid.UUID
	Name       string
	Required   bool
	Position   int32
}

func (q *Queries) CreateModifierGroup(ctx context.Context, arg CreateModifierGroupParams) (ModifierGroup, error) {
	row := q.db.QueryRow(ctx, createModifierGroup, arg.MenuItemID, arg.Name, arg.Required, arg.Position)
	var g ModifierGroup
	err := row.Scan(&g.ID, &g.MenuItemID, &g.Name, &g.Required, &g.Position)
	return g, err
}

const createModifier = `
INSERT INTO modifiers (modifier_group_id, name, price_delta, is_available, allergens, position)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, modifier_group_id, name, price_delta, is_available, allergens, position
`

type CreateModifierParams struct {
	ModifierGroupID uuid.UUID
	Name            string
	PriceDelta      int64
	IsAvailable     bool
	Allergens       []string
	Position        int32
}

func (q *Queries) CreateModifier(ctx context.Context, arg CreateModifierParams) (Modifier, error) {
	row := q.db.QueryRow(ctx, createModifier,
		arg.ModifierGroupID, arg.Name, arg.PriceDelta, arg.IsAvailable, arg.Allergens, arg.Position)
	var m Modifier
	err := row.Scan(&m.ID, &m.ModifierGroupID, &m.Name, &m.PriceDelta, &m.IsAvailable, &m.Allergens, &m.Position)
	return m, err
}
