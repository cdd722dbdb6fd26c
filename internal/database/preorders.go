package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const preorderColumns = `id, reservation_id, status, subtotal, tax, tip, total, currency, created_at, updated_at`

func scanPreorder(row pgx.Row, p *Preorder) error {
	return row.Scan(&p.ID, &p.ReservationID, &p.Status, &p.Subtotal, &p.Tax,
		&p.Tip, &p.Total, &p.Currency, &p.CreatedAt, &p.UpdatedAt)
}

const createPreOrder = `
INSERT INTO preorders (reservation_id, status, subtotal, tax, tip, total, currency)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + preorderColumns

type CreatePreOrderParams struct {
	ReservationID uuid.UUID
	Status        string
	Subtotal      int64
	Tax           int64
	Tip           int64
	Total         int64
	Currency      string
}

func (q *Queries) CreatePreOrder(ctx context.Context, arg CreatePreOrderParams) (Preorder, error) {
	row := q.db.QueryRow(ctx, createPreOrder,
		arg.ReservationID, arg.Status, arg.Subtotal, arg.Tax, arg.Tip, arg.Total, arg.Currency)
	var p Preorder
	err := scanPreorder(row, &p)
	return p, err
}

const getPreOrder = `
SELECT ` + preorderColumns + `
FROM preorders
WHERE id = $1
`

func (q *Queries) GetPreOrder(ctx context.Context, id uuid.UUID) (Preorder, error) {
	var p Preorder
	err := scanPreorder(q.db.QueryRow(ctx, getPreOrder, id), &p)
	return p, err
}

const getPreOrderByReservation = `
SELECT ` + preorderColumns + `
FROM preorders
WHERE reservation_id = $1
`

func (q *Queries) GetPreOrderByReservation(ctx context.Context, reservationID uuid.UUID) (Preorder, error) {
	var p Preorder
	err := scanPreorder(q.db.QueryRow(ctx, getPreOrderByReservation, reservationID), &p)
	return p, err
}

const updatePreOrderTotals = `
UPDATE preorders
SET subtotal = $2, tax = $3, total = $4, updated_at = now()
WHERE id = $1
RETURNING ` + preorderColumns

type UpdatePreOrderTotalsParams struct {
	ID       uuid.UUID
	Subtotal int64
	Tax      int64
	Total    int64
}

func (q *Queries) UpdatePreOrderTotals(ctx context.Context, arg UpdatePreOrderTotalsParams) (Preorder, error) {
	row := q.db.QueryRow(ctx, updatePreOrderTotals, arg.ID, arg.Subtotal, arg.Tax, arg.Total)
	var p Preorder
	err := scanPreorder(row, &p)
	return p, err
}

const updatePreOrderStatus = `
UPDATE preorders
SET status = $2, updated_at = now()
WHERE id = $1
RETURNING ` + preorderColumns

type UpdatePreOrderStatusParams struct {
	ID     uuid.UUID
	Status string
}

func (q *Queries) UpdatePreOrderStatus(ctx context.Context, arg UpdatePreOrderStatusParams) (Preorder, error) {
	row := q.db.QueryRow(ctx, updatePreOrderStatus, arg.ID, arg.Status)
	var p Preorder
	err := scanPreorder(row, &p)
	return p, err
}

const preorderItemColumns = `id, preorder_id, menu_item_id, sku, name, quantity,
unit_price, modifier_total, modifiers, notes, allergens, position`

const createPreOrderItem = `
INSERT INTO preorder_items (preorder_id, menu_item_id, sku, name, quantity,
                            unit_price, modifier_total, modifiers, notes, allergens, position)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING ` + preorderItemColumns

type CreatePreOrderItemParams struct {
	PreorderID    uuid.UUID
	MenuItemID    uuid.UUID
	Sku           string
	Name          string
	Quantity      int32
	UnitPrice     int64
	ModifierTotal int64
	Modifiers     []byte
	Notes         pgtype.Text
	Allergens     []string
	Position      int32
}

func (q *Queries) CreatePreOrderItem(ctx context.Context, arg CreatePreOrderItemParams) (PreorderItem, error) {
	row := q.db.QueryRow(ctx, createPreOrderItem,
		arg.PreorderID, arg.MenuItemID, arg.Sku, arg.Name, arg.Quantity,
		arg.UnitPrice, arg.ModifierTotal, arg.Modifiers, arg.Notes, arg.Allergens, arg.Position)
	var it PreorderItem
	err := row.Scan(&it.ID, &it.PreorderID, &it.MenuItemID, &it.Sku, &it.Name, &it.Quantity,
		&it.UnitPrice, &it.ModifierTotal, &it.Modifiers, &it.Notes, &it.Allergens, &it.Position)
	return it, err
}

const listPreOrderItems = `
SELECT ` + preorderItemColumns + `
FROM preorder_items
WHERE preorder_id = $1
ORDER BY position, id
`

func (q *Queries) ListPreOrderItems(ctx context.Context, preorderID uuid.UUID) ([]PreorderItem, error) {
	rows, err := q.db.Query(ctx, listPreOrderItems, preorderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PreorderItem
	for rows.Next() {
		var it PreorderItem
		if err := rows.Scan(&it.ID, &it.PreorderID, &it.MenuItemID, &it.Sku, &it.Name, &it.Quantity,
			&it.UnitPrice, &it.ModifierTotal, &it.Modifiers, &it.Notes, &it.Allergens, &it.Position); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

const getPreOrderItem = `
SELECT ` + preorderItemColumns + `
FROM preorder_items
WHERE id = $1 AND preorder_id = $2
`

type GetPreOrderItemParams struct {
	ID         uuid.UUID
	PreorderID uuid.UUID
}

func (q *Queries) GetPreOrderItem(ctx context.Context, arg GetPreOrderItemParams) (PreorderItem, error) {
	row := q.db.QueryRow(ctx, getPreOrderItem, arg.ID, arg.PreorderID)
	var it PreorderItem
	err := row.Scan(&it.ID, &it.PreorderID, &it.MenuItemID, &it.Sku, &it.Name, &it.Quantity,
		&it.UnitPrice, &it.ModifierTotal, &it.Modifiers, &it.Notes, &it.Allergens, &it.Position)
	return it, err
}

const updatePreOrderItemDetails = `
UPDATE preorder_items
SET quantity = $2, notes = $3
WHERE id = $1
RETURNING ` + preorderItemColumns

type UpdatePreOrderItemDetailsParams struct {
	ID       uuid.UUID
	Quantity int32
	Notes    pgtype.Text
}

func (q *Queries) UpdatePreOrderItemDetails(ctx context.Context, arg UpdatePreOrderItemDetailsParams) (PreorderItem, error) {
	row := q.db.QueryRow(ctx, updatePreOrderItemDetails, arg.ID, arg.Quantity, arg.Notes)
	var it PreorderItem
	err := row.Scan(&it.ID, &it.PreorderID, &it.MenuItemID, &it.Sku, &it.Name, &it.Quantity,
		&it.UnitPrice, &it.ModifierTotal, &it.Modifiers, &it.Notes, &it.Allergens, &it.Position)
	return it, err
}

const updatePreOrderItemPricing = `
UPDATE preorder_items
SET unit_price = $2, modifier_total = $3, modifiers = $4, allergens = $5
WHERE id = $1
RETURNING ` + preorderItemColumns

type UpdatePreOrderItemPricingParams struct {
	ID            uuid.UUID
	UnitPrice     int64
	ModifierTotal int64
	Modifiers     []byte
	Allergens     []string
}

func (q *Queries) UpdatePreOrderItemPricing(ctx context.Context, arg UpdatePreOrderItemPricingParams) (PreorderItem, error) {
	row := q.db.QueryRow(ctx, updatePreOrderItemPricing,
		arg.ID, arg.UnitPrice, arg.ModifierTotal, arg.Modifiers, arg.Allergens)
	var it PreorderItem
	err := row.Scan(&it.ID, &it.PreorderID, &it.MenuItemID, &it.Sku, &it.Name, &it.Quantity,
		&it.UnitPrice, &it.ModifierTotal, &it.Modifiers, &it.Notes, &it.Allergens, &it.Position)
	return it, err
}

const deletePreOrderItem = `
DELETE FROM preorder_items
WHERE id = $1 AND preorder_id = $2
`

type DeletePreOrderItemParams struct {
	ID         uuid.UUID
	PreorderID uuid.UUID
}

func (q *Queries) DeletePreOrderItem(ctx context.Context, arg DeletePreOrderItemParams) (int64, error) {
	tag, err := q.db.Exec(ctx, deletePreOrderItem, arg.ID, arg.PreorderID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
