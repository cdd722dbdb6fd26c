package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Restaurant struct {
	ID        uuid.UUID
	Name      string
	Slug      string
	Currency  string
	TaxRate   pgtype.Numeric
	CreatedAt time.Time
}

type User struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Email        string
	PasswordHash string
	Name         string
	Role         string
	CreatedAt    time.Time
}

type MenuItem struct {
	ID                 uuid.UUID
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
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type ModifierGroup struct {
	ID         uuid.UUID
	MenuItemID uuid.UUID
	Name       string
	Required   bool
	Position   int32
}

type Modifier struct {
	ID              uuid.UUID
	ModifierGroupID uuid.UUID
	Name            string
	PriceDelta      int64
	IsAvailable     bool
	Allergens       []string
	Position        int32
}

type Reservation struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	GuestName    string
	GuestEmail   pgtype.Text
	PartySize    int32
	StartsAt     time.Time
	Status       string
	CreatedAt    time.Time
}

type Preorder struct {
	ID            uuid.UUID
	ReservationID uuid.UUID
	Status        string
	Subtotal      int64
	Tax           int64
	Tip           int64
	Total         int64
	Currency      string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PreorderItem snapshots name, unit price, modifier selections and allergens
// at order time so historical orders survive later catalog edits.
type PreorderItem struct {
	ID            uuid.UUID
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

type KitchenTicket struct {
	ID                   uuid.UUID
	ReservationID        uuid.UUID
	RestaurantID         uuid.UUID
	Status               string
	EstimatedPrepMinutes int32
	FireAt               pgtype.Timestamptz
	FiredAt              pgtype.Timestamptz
	ReadyAt              pgtype.Timestamptz
	ServedAt             pgtype.Timestamptz
	Items                []byte
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

type Checkin struct {
	ID            uuid.UUID
	ReservationID uuid.UUID
	RestaurantID  uuid.UUID
	Method        string
	TableID       pgtype.Text
	ScannedAt     time.Time
}

type Payment struct {
	ID          uuid.UUID
	PreorderID  uuid.UUID
	Amount      int64
	Status      string
	ProviderRef pgtype.Text
	CreatedAt   time.Time
}

type AuditEvent struct {
	ID            uuid.UUID
	RestaurantID  pgtype.UUID
	ReservationID pgtype.UUID
	Kind          string
	Payload       []byte
	CreatedAt     time.Time
}
