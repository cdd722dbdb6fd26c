package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/prime3679/tablefire/api/internal/database"
	"github.com/prime3679/tablefire/api/internal/enum"
	"github.com/prime3679/tablefire/api/internal/pricing"
	"github.com/shopspring/decimal"
)

// Errors returned by the pre-order service.
var (
	ErrEmptyItems              = errors.New("items are required")
	ErrReservationNotFound     = errors.New("reservation not found")
	ErrInvalidReservationState = errors.New("reservation cannot take a preorder")
	ErrDuplicatePreOrder       = errors.New("reservation already has a preorder")
	ErrPreOrderNotFound        = errors.New("preorder not found")
	ErrNotDraft                = errors.New("preorder is no longer editable")
	ErrPreOrderItemNotFound    = errors.New("preorder item not found")
	ErrInvalidPreOrderStatus   = errors.New("invalid preorder status")
	ErrInvalidModifierGroupID  = errors.New("invalid modifier_group_id")
	ErrInvalidModifierID       = errors.New("invalid modifier_id")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PreOrderStore defines the DB methods needed for the pre-order lifecycle.
// Satisfied by *database.Queries (and its WithTx variant).
type PreOrderStore interface {
	GetReservation(ctx context.Context, id uuid.UUID) (database.Reservation, error)
	GetRestaurant(ctx context.Context, id uuid.UUID) (database.Restaurant, error)
	GetMenuItemBySKU(ctx context.Context, arg database.GetMenuItemBySKUParams) (database.MenuItem, error)
	ListModifierGroupsByMenuItem(ctx context.Context, menuItemID uuid.UUID) ([]database.ModifierGroup, error)
	ListModifiersByGroup(ctx context.Context, modifierGroupID uuid.UUID) ([]database.Modifier, error)
	CreatePreOrder(ctx context.Context, arg database.CreatePreOrderParams) (database.Preorder, error)
	GetPreOrder(ctx context.Context, id uuid.UUID) (database.Preorder, error)
	GetPreOrderByReservation(ctx context.Context, reservationID uuid.UUID) (database.Preorder, error)
	UpdatePreOrderTotals(ctx context.Context, arg database.UpdatePreOrderTotalsParams) (database.Preorder, error)
	UpdatePreOrderStatus(ctx context.Context, arg database.UpdatePreOrderStatusParams) (database.Preorder, error)
	CreatePreOrderItem(ctx context.Context, arg database.CreatePreOrderItemParams) (database.PreorderItem, error)
	ListPreOrderItems(ctx context.Context, preorderID uuid.UUID) ([]database.PreorderItem, error)
	GetPreOrderItem(ctx context.Context, arg database.GetPreOrderItemParams) (database.PreorderItem, error)
	UpdatePreOrderItemDetails(ctx context.Context, arg database.UpdatePreOrderItemDetailsParams) (database.PreorderItem, error)
	UpdatePreOrderItemPricing(ctx context.Context, arg database.UpdatePreOrderItemPricingParams) (database.PreorderItem, error)
	DeletePreOrderItem(ctx context.Context, arg database.DeletePreOrderItemParams) (int64, error)
	ListPaymentsByPreOrder(ctx context.Context, preorderID uuid.UUID) ([]database.Payment, error)
	CreateAuditEvent(ctx context.Context, arg database.CreateAuditEventParams) (database.AuditEvent, error)
}

// NewPreOrderStore creates a PreOrderStore from a DBTX (pool or tx).
type NewPreOrderStore func(db database.DBTX) PreOrderStore

// CreatePreOrderRequest is the validated input for creating a pre-order.
type CreatePreOrderRequest struct {
	ReservationID uuid.UUID
	Items         []PreOrderItemRequest
}

// PreOrderItemRequest is a single requested line.
type PreOrderItemRequest struct {
	Sku       string
	Quantity  int32
	Notes     string
	Modifiers []ModifierSelectionRequest
}

// ModifierSelectionRequest is a guest's modifier pick on a line.
type ModifierSelectionRequest struct {
	ModifierGroupID string
	ModifierID      string
}

// UpdatePreOrderItemRequest carries the editable fields of a line. Nil
// means "leave unchanged".
type UpdatePreOrderItemRequest struct {
	PreOrderID uuid.UUID
	ItemID     uuid.UUID
	Quantity   *int32
	Notes      *string
}

// PreOrderResult is a hydrated pre-order.
type PreOrderResult struct {
	PreOrder    database.Preorder
	Items       []database.PreorderItem
	Payments    []database.Payment
	Reservation database.Reservation
}

// PreOrderService owns the draft/edit lifecycle of a guest's pre-order.
// Totals are never patched in place: every mutation reprices the whole
// order from the current catalog so subtotal, tax and total cannot drift
// from the item lines.
type PreOrderService struct {
	pool     TxBeginner
	newStore NewPreOrderStore
}

// NewPreOrderService creates a new PreOrderService.
func NewPreOrderService(pool TxBeginner, newStore NewPreOrderStore) *PreOrderService {
	return &PreOrderService{pool: pool, newStore: newStore}
}

// Create validates, prices and persists a pre-order atomically.
func (s *PreOrderService) Create(ctx context.Context, req CreatePreOrderRequest) (*PreOrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	lines := make([]pricing.Line, 0, len(req.Items))
	for i, item := range req.Items {
		line := pricing.Line{
			Sku:      item.Sku,
			Quantity: item.Quantity,
			Notes:    item.Notes,
		}
		for j, sel := range item.Modifiers {
			groupID, err := uuid.Parse(sel.ModifierGroupID)
			if err != nil {
				return nil, fmt.Errorf("items[%d].modifiers[%d]: %w", i, j, ErrInvalidModifierGroupID)
			}
			modID, err := uuid.Parse(sel.ModifierID)
			if err != nil {
				return nil, fmt.Errorf("items[%d].modifiers[%d]: %w", i, j, ErrInvalidModifierID)
			}
			line.Selections = append(line.Selections, pricing.Selection{
				ModifierGroupID: groupID,
				ModifierID:      modID,
			})
		}
		lines = append(lines, line)
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
	if reservation.Status == enum.ReservationStatusCanceled || reservation.Status == enum.ReservationStatusNoShow {
		return nil, fmt.Errorf("reservation is %s: %w", reservation.Status, ErrInvalidReservationState)
	}

	if _, err := store.GetPreOrderByReservation(ctx, req.ReservationID); err == nil {
		return nil, ErrDuplicatePreOrder
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check existing preorder: %w", err)
	}

	restaurant, err := store.GetRestaurant(ctx, reservation.RestaurantID)
	if err != nil {
		return nil, fmt.Errorf("get restaurant: %w", err)
	}

	quote, err := pricing.Price(ctx, &storeCatalog{store: store, restaurantID: restaurant.ID}, numericToDecimal(restaurant.TaxRate), lines)
	if err != nil {
		return nil, err
	}

	preorder, err := store.CreatePreOrder(ctx, database.CreatePreOrderParams{
		ReservationID: req.ReservationID,
		Status:        enum.PreOrderStatusDraft,
		Subtotal:      quote.Subtotal,
		Tax:           quote.Tax,
		Tip:           0,
		Total:         quote.Total,
		Currency:      restaurant.Currency,
	})
	if err != nil {
		return nil, fmt.Errorf("create preorder: %w", err)
	}

	items := make([]database.PreorderItem, 0, len(quote.Lines))
	for i, line := range quote.Lines {
		params, err := itemParams(preorder.ID, int32(i), line)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, err)
		}
		item, err := store.CreatePreOrderItem(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: create: %w", i, err)
		}
		items = append(items, item)
	}

	payload, _ := json.Marshal(map[string]any{
		"item_count": len(items),
		"subtotal":   quote.Subtotal,
		"tax":        quote.Tax,
		"total":      quote.Total,
	})
	if _, err := store.CreateAuditEvent(ctx, database.CreateAuditEventParams{
		RestaurantID:  pgtype.UUID{Bytes: restaurant.ID, Valid: true},
		ReservationID: pgtype.UUID{Bytes: req.ReservationID, Valid: true},
		Kind:          enum.AuditPreOrderCreated,
		Payload:       payload,
	}); err != nil {
		return nil, fmt.Errorf("create audit event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &PreOrderResult{PreOrder: preorder, Items: items, Reservation: reservation}, nil
}

// UpdateItem changes a line's quantity and/or notes. A quantity change
// reprices the whole order.
func (s *PreOrderService) UpdateItem(ctx context.Context, req UpdatePreOrderItemRequest) (*PreOrderResult, error) {
	if req.Quantity != nil && (*req.Quantity < pricing.MinQuantity || *req.Quantity > pricing.MaxQuantity) {
		return nil, pricing.ErrInvalidQuantity
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	preorder, item, err := s.editableItem(ctx, store, req.PreOrderID, req.ItemID)
	if err != nil {
		return nil, err
	}

	quantity := item.Quantity
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	notes := item.Notes
	if req.Notes != nil {
		notes = pgtype.Text{String: *req.Notes, Valid: true}
	}

	if _, err := store.UpdatePreOrderItemDetails(ctx, database.UpdatePreOrderItemDetailsParams{
		ID:       item.ID,
		Quantity: quantity,
		Notes:    notes,
	}); err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}

	result, err := s.recalculate(ctx, store, preorder)
	if err != nil {
		return nil, err
	}

	payload, _ := json.Marshal(map[string]any{
		"item_id":  item.ID,
		"quantity": quantity,
	})
	if err := s.auditPreOrder(ctx, store, result.Reservation, enum.AuditPreOrderItemUpdated, payload); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return result, nil
}

// RemoveItem deletes a line and reprices the remaining order. Removing the
// last line collapses subtotal, tax and total to zero.
func (s *PreOrderService) RemoveItem(ctx context.Context, preOrderID, itemID uuid.UUID) (*PreOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	preorder, item, err := s.editableItem(ctx, store, preOrderID, itemID)
	if err != nil {
		return nil, err
	}

	deleted, err := store.DeletePreOrderItem(ctx, database.DeletePreOrderItemParams{
		ID:         item.ID,
		PreorderID: preorder.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("delete item: %w", err)
	}
	if deleted == 0 {
		return nil, ErrPreOrderItemNotFound
	}

	result, err := s.recalculate(ctx, store, preorder)
	if err != nil {
		return nil, err
	}

	payload, _ := json.Marshal(map[string]any{"item_id": item.ID})
	if err := s.auditPreOrder(ctx, store, result.Reservation, enum.AuditPreOrderItemRemoved, payload); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return result, nil
}

// Get returns the pre-order with its items, payments and reservation
// summary, read in one transaction.
func (s *PreOrderService) Get(ctx context.Context, id uuid.UUID) (*PreOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	preorder, err := store.GetPreOrder(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPreOrderNotFound
		}
		return nil, fmt.Errorf("get preorder: %w", err)
	}

	items, err := store.ListPreOrderItems(ctx, preorder.ID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	payments, err := store.ListPaymentsByPreOrder(ctx, preorder.ID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	reservation, err := store.GetReservation(ctx, preorder.ReservationID)
	if err != nil {
		return nil, fmt.Errorf("get reservation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &PreOrderResult{PreOrder: preorder, Items: items, Payments: payments, Reservation: reservation}, nil
}

// SetStatus moves the pre-order to the given status. Transition legality
// is not checked here: payment and staff flows sequence status changes
// externally, so any valid status is accepted from any current status.
func (s *PreOrderService) SetStatus(ctx context.Context, id uuid.UUID, status, actor string) (database.Preorder, error) {
	switch status {
	case enum.PreOrderStatusDraft, enum.PreOrderStatusAuthorized, enum.PreOrderStatusInjected,
		enum.PreOrderStatusClosed, enum.PreOrderStatusRefunded, enum.PreOrderStatusAdjusted:
	default:
		return database.Preorder{}, fmt.Errorf("%q: %w", status, ErrInvalidPreOrderStatus)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Preorder{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	preorder, err := store.UpdatePreOrderStatus(ctx, database.UpdatePreOrderStatusParams{ID: id, Status: status})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Preorder{}, ErrPreOrderNotFound
		}
		return database.Preorder{}, fmt.Errorf("update status: %w", err)
	}

	reservation, err := store.GetReservation(ctx, preorder.ReservationID)
	if err != nil {
		return database.Preorder{}, fmt.Errorf("get reservation: %w", err)
	}

	payload, _ := json.Marshal(map[string]any{"status": status, "actor": actor})
	if err := s.auditPreOrder(ctx, store, reservation, enum.AuditPreOrderStatusSet, payload); err != nil {
		return database.Preorder{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Preorder{}, fmt.Errorf("commit tx: %w", err)
	}
	return preorder, nil
}

// editableItem loads a pre-order and one of its lines, requiring DRAFT
// status.
func (s *PreOrderService) editableItem(ctx context.Context, store PreOrderStore, preOrderID, itemID uuid.UUID) (database.Preorder, database.PreorderItem, error) {
	preorder, err := store.GetPreOrder(ctx, preOrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Preorder{}, database.PreorderItem{}, ErrPreOrderNotFound
		}
		return database.Preorder{}, database.PreorderItem{}, fmt.Errorf("get preorder: %w", err)
	}
	if preorder.Status != enum.PreOrderStatusDraft {
		return database.Preorder{}, database.PreorderItem{}, fmt.Errorf("status is %s: %w", preorder.Status, ErrNotDraft)
	}

	item, err := store.GetPreOrderItem(ctx, database.GetPreOrderItemParams{ID: itemID, PreorderID: preOrderID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Preorder{}, database.PreorderItem{}, ErrPreOrderItemNotFound
		}
		return database.Preorder{}, database.PreorderItem{}, fmt.Errorf("get item: %w", err)
	}
	return preorder, item, nil
}

// recalculate reprices the whole order from its current lines and the
// current catalog, then overwrites totals and every line's price snapshot.
// Repricing everything instead of patching the changed line is what keeps
// the totals invariant from drifting across edit sequences.
func (s *PreOrderService) recalculate(ctx context.Context, store PreOrderStore, preorder database.Preorder) (*PreOrderResult, error) {
	reservation, err := store.GetReservation(ctx, preorder.ReservationID)
	if err != nil {
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	restaurant, err := store.GetRestaurant(ctx, reservation.RestaurantID)
	if err != nil {
		return nil, fmt.Errorf("get restaurant: %w", err)
	}

	items, err := store.ListPreOrderItems(ctx, preorder.ID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	lines := make([]pricing.Line, 0, len(items))
	for i, item := range items {
		var mods []pricing.SelectedModifier
		if len(item.Modifiers) > 0 {
			if err := json.Unmarshal(item.Modifiers, &mods); err != nil {
				return nil, fmt.Errorf("items[%d]: decode modifiers: %w", i, err)
			}
		}
		line := pricing.Line{Sku: item.Sku, Quantity: item.Quantity, Notes: item.Notes.String}
		for _, m := range mods {
			line.Selections = append(line.Selections, pricing.Selection{
				ModifierGroupID: m.ModifierGroupID,
				ModifierID:      m.ModifierID,
			})
		}
		lines = append(lines, line)
	}

	quote, err := pricing.Price(ctx, &storeCatalog{store: store, restaurantID: restaurant.ID}, numericToDecimal(restaurant.TaxRate), lines)
	if err != nil {
		return nil, err
	}

	updated := make([]database.PreorderItem, 0, len(items))
	for i, item := range items {
		line := quote.Lines[i]
		modsJSON, err := json.Marshal(line.Modifiers)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: encode modifiers: %w", i, err)
		}
		it, err := store.UpdatePreOrderItemPricing(ctx, database.UpdatePreOrderItemPricingParams{
			ID:            item.ID,
			UnitPrice:     line.UnitPrice,
			ModifierTotal: line.ModifierTotal,
			Modifiers:     modsJSON,
			Allergens:     line.Allergens,
		})
		if err != nil {
			return nil, fmt.Errorf("items[%d]: reprice: %w", i, err)
		}
		updated = append(updated, it)
	}

	repriced, err := store.UpdatePreOrderTotals(ctx, database.UpdatePreOrderTotalsParams{
		ID:       preorder.ID,
		Subtotal: quote.Subtotal,
		Tax:      quote.Tax,
		Total:    quote.Total,
	})
	if err != nil {
		return nil, fmt.Errorf("update totals: %w", err)
	}

	return &PreOrderResult{PreOrder: repriced, Items: updated, Reservation: reservation}, nil
}

func (s *PreOrderService) auditPreOrder(ctx context.Context, store PreOrderStore, reservation database.Reservation, kind string, payload []byte) error {
	if _, err := store.CreateAuditEvent(ctx, database.CreateAuditEventParams{
		RestaurantID:  pgtype.UUID{Bytes: reservation.RestaurantID, Valid: true},
		ReservationID: pgtype.UUID{Bytes: reservation.ID, Valid: true},
		Kind:          kind,
		Payload:       payload,
	}); err != nil {
		return fmt.Errorf("create audit event: %w", err)
	}
	return nil
}

// itemParams converts a priced line into insert params.
func itemParams(preorderID uuid.UUID, position int32, line pricing.PricedLine) (database.CreatePreOrderItemParams, error) {
	modsJSON, err := json.Marshal(line.Modifiers)
	if err != nil {
		return database.CreatePreOrderItemParams{}, fmt.Errorf("encode modifiers: %w", err)
	}
	notes := pgtype.Text{}
	if line.Notes != "" {
		notes = pgtype.Text{String: line.Notes, Valid: true}
	}
	return database.CreatePreOrderItemParams{
		PreorderID:    preorderID,
		MenuItemID:    line.MenuItemID,
		Sku:           line.Sku,
		Name:          line.Name,
		Quantity:      line.Quantity,
		UnitPrice:     line.UnitPrice,
		ModifierTotal: line.ModifierTotal,
		Modifiers:     modsJSON,
		Notes:         notes,
		Allergens:     line.Allergens,
		Position:      position,
	}, nil
}

// storeCatalog adapts a PreOrderStore into the pricing engine's catalog
// view, hydrating each menu item with its modifier groups.
type storeCatalog struct {
	store        PreOrderStore
	restaurantID uuid.UUID
}

func (c *storeCatalog) MenuItemBySKU(ctx context.Context, sku string) (pricing.MenuItem, bool, error) {
	m, err := c.store.GetMenuItemBySKU(ctx, database.GetMenuItemBySKUParams{
		RestaurantID: c.restaurantID,
		Sku:          sku,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pricing.MenuItem{}, false, nil
		}
		return pricing.MenuItem{}, false, fmt.Errorf("get menu item: %w", err)
	}

	groups, err := c.store.ListModifierGroupsByMenuItem(ctx, m.ID)
	if err != nil {
		return pricing.MenuItem{}, false, fmt.Errorf("list modifier groups: %w", err)
	}

	item := pricing.MenuItem{
		ID:                 m.ID,
		Sku:                m.Sku,
		Name:               m.Name,
		BasePrice:          m.BasePrice,
		IsAvailable:        m.IsAvailable,
		RemovedFromService: m.RemovedFromService,
		Allergens:          m.Allergens,
		PrepMinutes:        m.PrepMinutes,
	}
	for _, g := range groups {
		mods, err := c.store.ListModifiersByGroup(ctx, g.ID)
		if err != nil {
			return pricing.MenuItem{}, false, fmt.Errorf("list modifiers: %w", err)
		}
		group := pricing.ModifierGroup{ID: g.ID, Name: g.Name, Required: g.Required}
		for _, mod := range mods {
			group.Modifiers = append(group.Modifiers, pricing.Modifier{
				ID:          mod.ID,
				Name:        mod.Name,
				PriceDelta:  mod.PriceDelta,
				IsAvailable: mod.IsAvailable,
				Allergens:   mod.Allergens,
			})
		}
		item.Groups = append(item.Groups, group)
	}
	return item, true, nil
}

// numericToDecimal converts a pgtype.Numeric (e.g. a tax rate column) to a
// decimal, defaulting to zero on null or scan failure.
func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}
