package pricing_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/prime3679/tablefire/api/internal/pricing"
	"github.com/shopspring/decimal"
)

// mapCatalog is an in-memory Catalog keyed by SKU.
type mapCatalog map[string]pricing.MenuItem

func (c mapCatalog) MenuItemBySKU(ctx context.Context, sku string) (pricing.MenuItem, bool, error) {
	item, ok := c[sku]
	return item, ok, nil
}

func taxRate(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func TestPriceSingleItemWithModifier(t *testing.T) {
	groupID := uuid.New()
	modID := uuid.New()
	catalog := mapCatalog{
		"BURGER": {
			ID:          uuid.New(),
			Sku:         "BURGER",
			Name:        "Smash Burger",
			BasePrice:   2500,
			IsAvailable: true,
			Groups: []pricing.ModifierGroup{
				{
					ID:   groupID,
					Name: "Extras",
					Modifiers: []pricing.Modifier{
						{ID: modID, Name: "Bacon", PriceDelta: 300, IsAvailable: true},
					},
				},
			},
		},
	}

	quote, err := pricing.Price(context.Background(), catalog, taxRate("0.0825"), []pricing.Line{
		{
			Sku:      "BURGER",
			Quantity: 3,
			Selections: []pricing.Selection{
				{ModifierGroupID: groupID, ModifierID: modID},
			},
		},
	})
	if err != nil {
		t.Fatalf("price: %v", err)
	}

	// (2500 + 300) * 3 = 8400; tax = round(8400 * 0.0825) = 693
	if quote.Subtotal != 8400 {
		t.Errorf("subtotal: got %d, want 8400", quote.Subtotal)
	}
	if quote.Tax != 693 {
		t.Errorf("tax: got %d, want 693", quote.Tax)
	}
	if quote.Total != 9093 {
		t.Errorf("total: got %d, want 9093", quote.Total)
	}

	line := quote.Lines[0]
	if line.UnitPrice != 2500 {
		t.Errorf("unit price: got %d, want 2500", line.UnitPrice)
	}
	if line.ModifierTotal != 300 {
		t.Errorf("modifier total: got %d, want 300", line.ModifierTotal)
	}
	if len(line.Modifiers) != 1 || line.Modifiers[0].Name != "Bacon" {
		t.Errorf("modifiers: got %+v", line.Modifiers)
	}
}

func TestPriceIsDeterministic(t *testing.T) {
	groupID := uuid.New()
	modID := uuid.New()
	catalog := mapCatalog{
		"PASTA": {
			ID:          uuid.New(),
			Sku:         "PASTA",
			Name:        "Cacio e Pepe",
			BasePrice:   1900,
			IsAvailable: true,
			Allergens:   []string{"gluten", "dairy"},
			Groups: []pricing.ModifierGroup{
				{
					ID:   groupID,
					Name: "Add-ons",
					Modifiers: []pricing.Modifier{
						{ID: modID, Name: "Shrimp", PriceDelta: 600, IsAvailable: true, Allergens: []string{"shellfish"}},
					},
				},
			},
		},
	}
	lines := []pricing.Line{
		{Sku: "PASTA", Quantity: 2, Selections: []pricing.Selection{{ModifierGroupID: groupID, ModifierID: modID}}},
	}

	first, err := pricing.Price(context.Background(), catalog, taxRate("0.0925"), lines)
	if err != nil {
		t.Fatalf("first price: %v", err)
	}
	second, err := pricing.Price(context.Background(), catalog, taxRate("0.0925"), lines)
	if err != nil {
		t.Fatalf("second price: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("pricing not deterministic:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestPriceAllergenUnion(t *testing.T) {
	groupID := uuid.New()
	modID := uuid.New()
	catalog := mapCatalog{
		"SALAD": {
			ID:          uuid.New(),
			Sku:         "SALAD",
			Name:        "Caesar Salad",
			BasePrice:   1500,
			IsAvailable: true,
			Allergens:   []string{"dairy", "egg"},
			Groups: []pricing.ModifierGroup{
				{
					ID:   groupID,
					Name: "Protein",
					Modifiers: []pricing.Modifier{
						{ID: modID, Name: "Anchovies", PriceDelta: 200, IsAvailable: true, Allergens: []string{"fish", "dairy"}},
					},
				},
			},
		},
	}

	quote, err := pricing.Price(context.Background(), catalog, taxRate("0"), []pricing.Line{
		{Sku: "SALAD", Quantity: 1, Selections: []pricing.Selection{{ModifierGroupID: groupID, ModifierID: modID}}},
	})
	if err != nil {
		t.Fatalf("price: %v", err)
	}

	want := []string{"dairy", "egg", "fish"}
	if !reflect.DeepEqual(quote.Lines[0].Allergens, want) {
		t.Errorf("allergens: got %v, want %v", quote.Lines[0].Allergens, want)
	}
}

func TestPriceErrors(t *testing.T) {
	requiredGroupID := uuid.New()
	optionalGroupID := uuid.New()
	modID := uuid.New()
	unavailableModID := uuid.New()

	catalog := mapCatalog{
		"STEAK": {
			ID:          uuid.New(),
			Sku:         "STEAK",
			Name:        "Ribeye",
			BasePrice:   4200,
			IsAvailable: true,
			Groups: []pricing.ModifierGroup{
				{
					ID:       requiredGroupID,
					Name:     "Temperature",
					Required: true,
					Modifiers: []pricing.Modifier{
						{ID: modID, Name: "Medium Rare", IsAvailable: true},
						{ID: unavailableModID, Name: "Well Done", IsAvailable: false},
					},
				},
				{ID: optionalGroupID, Name: "Sauce"},
			},
		},
		"EIGHTY_SIXED": {
			ID:                 uuid.New(),
			Sku:                "EIGHTY_SIXED",
			Name:               "Soft Shell Crab",
			BasePrice:          3100,
			IsAvailable:        true,
			RemovedFromService: true,
		},
		"DISABLED": {
			ID:          uuid.New(),
			Sku:         "DISABLED",
			Name:        "Seasonal Soup",
			BasePrice:   900,
			IsAvailable: false,
		},
	}

	tests := []struct {
		name    string
		lines   []pricing.Line
		wantErr error
	}{
		{
			name:    "unknown sku",
			lines:   []pricing.Line{{Sku: "NOPE", Quantity: 1}},
			wantErr: pricing.ErrItemNotFound,
		},
		{
			name:    "disabled item",
			lines:   []pricing.Line{{Sku: "DISABLED", Quantity: 1}},
			wantErr: pricing.ErrItemUnavailable,
		},
		{
			name:    "removed from service",
			lines:   []pricing.Line{{Sku: "EIGHTY_SIXED", Quantity: 1}},
			wantErr: pricing.ErrItemUnavailable,
		},
		{
			name:    "zero quantity",
			lines:   []pricing.Line{{Sku: "STEAK", Quantity: 0}},
			wantErr: pricing.ErrInvalidQuantity,
		},
		{
			name:    "quantity above cap",
			lines:   []pricing.Line{{Sku: "STEAK", Quantity: 11}},
			wantErr: pricing.ErrInvalidQuantity,
		},
		{
			name:    "required group not selected",
			lines:   []pricing.Line{{Sku: "STEAK", Quantity: 1}},
			wantErr: pricing.ErrRequiredModifierMissing,
		},
		{
			name: "unknown modifier group",
			lines: []pricing.Line{{Sku: "STEAK", Quantity: 1, Selections: []pricing.Selection{
				{ModifierGroupID: uuid.New(), ModifierID: modID},
			}}},
			wantErr: pricing.ErrModifierGroupNotFound,
		},
		{
			name: "unknown modifier",
			lines: []pricing.Line{{Sku: "STEAK", Quantity: 1, Selections: []pricing.Selection{
				{ModifierGroupID: requiredGroupID, ModifierID: uuid.New()},
			}}},
			wantErr: pricing.ErrModifierNotFound,
		},
		{
			name: "unavailable modifier",
			lines: []pricing.Line{{Sku: "STEAK", Quantity: 1, Selections: []pricing.Selection{
				{ModifierGroupID: requiredGroupID, ModifierID: unavailableModID},
			}}},
			wantErr: pricing.ErrModifierUnavailable,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := pricing.Price(context.Background(), catalog, taxRate("0.0825"), tc.lines)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("error: got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestTaxOnRoundsHalfUp(t *testing.T) {
	tests := []struct {
		subtotal int64
		rate     string
		want     int64
	}{
		{8400, "0.0825", 693},  // exact
		{9300, "0.0825", 767},  // 767.25 rounds down
		{1000, "0.0875", 88},   // 87.5 rounds up
		{0, "0.0825", 0},
	}
	for _, tc := range tests {
		if got := pricing.TaxOn(tc.subtotal, taxRate(tc.rate)); got != tc.want {
			t.Errorf("TaxOn(%d, %s): got %d, want %d", tc.subtotal, tc.rate, got, tc.want)
		}
	}
}

func TestPriceEmptyOrder(t *testing.T) {
	quote, err := pricing.Price(context.Background(), mapCatalog{}, taxRate("0.0825"), nil)
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if quote.Subtotal != 0 || quote.Tax != 0 || quote.Total != 0 {
		t.Errorf("empty order totals: got %d/%d/%d, want 0/0/0", quote.Subtotal, quote.Tax, quote.Total)
	}
}
