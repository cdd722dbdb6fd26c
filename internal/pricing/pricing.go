// Package pricing turns a guest's item and modifier selections into an
// itemized, deterministic cost breakdown. It holds no state and performs no
// I/O: identical inputs against identical catalog state always produce an
// identical quote, which is what lets order edits recompute totals from
// scratch instead of patching them incrementally.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Errors returned by the pricing engine.
var (
	ErrItemNotFound            = errors.New("menu item not found")
	ErrItemUnavailable         = errors.New("menu item unavailable")
	ErrModifierGroupNotFound   = errors.New("modifier group not found")
	ErrModifierNotFound        = errors.New("modifier not found")
	ErrModifierUnavailable     = errors.New("modifier unavailable")
	ErrRequiredModifierMissing = errors.New("required modifier group has no selection")
	ErrInvalidQuantity         = errors.New("quantity must be between 1 and 10")
)

const (
	MinQuantity = 1
	MaxQuantity = 10
)

// Catalog resolves SKUs against current menu state. Satisfied by a
// store-backed adapter; the engine itself never touches the database.
type Catalog interface {
	MenuItemBySKU(ctx context.Context, sku string) (MenuItem, bool, error)
}

// MenuItem is a hydrated catalog entry: the item plus its modifier groups.
type MenuItem struct {
	ID                 uuid.UUID
	Sku                string
	Name               string
	BasePrice          int64
	IsAvailable        bool
	RemovedFromService bool
	Allergens          []string
	PrepMinutes        int32
	Groups             []ModifierGroup
}

type ModifierGroup struct {
	ID        uuid.UUID
	Name      string
	Required  bool
	Modifiers []Modifier
}

type Modifier struct {
	ID          uuid.UUID
	Name        string
	PriceDelta  int64
	IsAvailable bool
	Allergens   []string
}

// Line is one requested order line: a SKU, a quantity and the guest's
// modifier selections.
type Line struct {
	Sku        string
	Quantity   int32
	Notes      string
	Selections []Selection
}

type Selection struct {
	ModifierGroupID uuid.UUID
	ModifierID      uuid.UUID
}

// SelectedModifier is a resolved selection with name and price snapshotted
// at pricing time.
type SelectedModifier struct {
	ModifierGroupID uuid.UUID `json:"modifier_group_id"`
	ModifierID      uuid.UUID `json:"modifier_id"`
	Name            string    `json:"name"`
	PriceDelta      int64     `json:"price_delta"`
}

// PricedLine is the fully resolved, costed version of a Line.
type PricedLine struct {
	MenuItemID    uuid.UUID
	Sku           string
	Name          string
	Quantity      int32
	UnitPrice     int64
	ModifierTotal int64
	LineTotal     int64
	Modifiers     []SelectedModifier
	Allergens     []string
	PrepMinutes   int32
	Notes         string
}

// Quote is the result of pricing a whole order. All amounts are integer
// minor currency units.
type Quote struct {
	Lines    []PricedLine
	Subtotal int64
	Tax      int64
	Total    int64
}

// Price resolves every line against the catalog and computes the order
// totals. taxRate is a fraction (0.0825 for 8.25%); tax is rounded half-up
// on minor units.
func Price(ctx context.Context, catalog Catalog, taxRate decimal.Decimal, lines []Line) (Quote, error) {
	var quote Quote

	for i, line := range lines {
		if line.Quantity < MinQuantity || line.Quantity > MaxQuantity {
			return Quote{}, fmt.Errorf("items[%d]: %w", i, ErrInvalidQuantity)
		}

		item, found, err := catalog.MenuItemBySKU(ctx, line.Sku)
		if err != nil {
			return Quote{}, fmt.Errorf("items[%d]: lookup %q: %w", i, line.Sku, err)
		}
		if !found {
			return Quote{}, fmt.Errorf("items[%d]: sku %q: %w", i, line.Sku, ErrItemNotFound)
		}
		if !item.IsAvailable || item.RemovedFromService {
			return Quote{}, fmt.Errorf("items[%d]: %q: %w", i, item.Name, ErrItemUnavailable)
		}

		priced, err := priceLine(item, line)
		if err != nil {
			return Quote{}, fmt.Errorf("items[%d]: %w", i, err)
		}

		quote.Lines = append(quote.Lines, priced)
		quote.Subtotal += priced.LineTotal
	}

	quote.Tax = TaxOn(quote.Subtotal, taxRate)
	quote.Total = quote.Subtotal + quote.Tax
	return quote, nil
}

// TaxOn computes round-half-up(subtotal × rate) in minor units.
func TaxOn(subtotal int64, taxRate decimal.Decimal) int64 {
	return decimal.NewFromInt(subtotal).Mul(taxRate).Round(0).IntPart()
}

func priceLine(item MenuItem, line Line) (PricedLine, error) {
	groupsByID := make(map[uuid.UUID]ModifierGroup, len(item.Groups))
	for _, g := range item.Groups {
		groupsByID[g.ID] = g
	}

	var modifierTotal int64
	var selected []SelectedModifier
	selectedGroups := make(map[uuid.UUID]bool)
	allergens := newAllergenSet(item.Allergens)

	for _, sel := range line.Selections {
		group, ok := groupsByID[sel.ModifierGroupID]
		if !ok {
			return PricedLine{}, fmt.Errorf("%q: group %s: %w", item.Name, sel.ModifierGroupID, ErrModifierGroupNotFound)
		}

		mod, ok := findModifier(group, sel.ModifierID)
		if !ok {
			return PricedLine{}, fmt.Errorf("%q: group %q: modifier %s: %w", item.Name, group.Name, sel.ModifierID, ErrModifierNotFound)
		}
		if !mod.IsAvailable {
			return PricedLine{}, fmt.Errorf("%q: modifier %q: %w", item.Name, mod.Name, ErrModifierUnavailable)
		}

		modifierTotal += mod.PriceDelta
		selectedGroups[group.ID] = true
		allergens.add(mod.Allergens)
		selected = append(selected, SelectedModifier{
			ModifierGroupID: group.ID,
			ModifierID:      mod.ID,
			Name:            mod.Name,
			PriceDelta:      mod.PriceDelta,
		})
	}

	for _, g := range item.Groups {
		if g.Required && !selectedGroups[g.ID] {
			return PricedLine{}, fmt.Errorf("%q: group %q: %w", item.Name, g.Name, ErrRequiredModifierMissing)
		}
	}

	unitWithModifiers := item.BasePrice + modifierTotal

	return PricedLine{
		MenuItemID:    item.ID,
		Sku:           item.Sku,
		Name:          item.Name,
		Quantity:      line.Quantity,
		UnitPrice:     item.BasePrice,
		ModifierTotal: modifierTotal,
		LineTotal:     unitWithModifiers * int64(line.Quantity),
		Modifiers:     selected,
		Allergens:     allergens.sorted(),
		PrepMinutes:   item.PrepMinutes,
		Notes:         line.Notes,
	}, nil
}

func findModifier(group ModifierGroup, id uuid.UUID) (Modifier, bool) {
	for _, m := range group.Modifiers {
		if m.ID == id {
			return m, true
		}
	}
	return Modifier{}, false
}

// allergenSet dedupes allergen labels; sorted() makes output deterministic.
type allergenSet map[string]struct{}

func newAllergenSet(initial []string) allergenSet {
	s := make(allergenSet)
	s.add(initial)
	return s
}

func (s allergenSet) add(labels []string) {
	for _, l := range labels {
		s[l] = struct{}{}
	}
}

func (s allergenSet) sorted() []string {
	out := make([]string, 0, len(s))
	for l := range s {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}
