package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/prime3679/tablefire/api/internal/database"
	"github.com/prime3679/tablefire/api/internal/middleware"
	"github.com/prime3679/tablefire/api/internal/service"
)

// TicketServicer defines the service methods needed by ticket handlers.
// Satisfied by *service.TicketService; narrow interface for testability.
type TicketServicer interface {
	StaffTransition(ctx context.Context, req service.StaffTransitionRequest) (database.KitchenTicket, error)
}

// TicketStore defines the database methods needed by ticket read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type TicketStore interface {
	ListTicketsByRestaurant(ctx context.Context, arg database.ListTicketsByRestaurantParams) ([]database.ListTicketsByRestaurantRow, error)
}

// TicketHandler handles kitchen ticket endpoints.
type TicketHandler struct {
	svc   TicketServicer
	store TicketStore
}

// NewTicketHandler creates a new TicketHandler.
func NewTicketHandler(svc TicketServicer, store TicketStore) *TicketHandler {
	return &TicketHandler{svc: svc, store: store}
}

// RegisterRoutes registers ticket endpoints on the given Chi router.
// Expected to be mounted at /kitchen/tickets behind JWT middleware.
func (h *TicketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Patch("/{id}", h.UpdateStatus)
}

// --- Request / Response types ---

type updateTicketRequest struct {
	Status               string `json:"status"`
	EstimatedPrepMinutes *int32 `json:"estimated_prep_minutes"`
}

type ticketResponse struct {
	ID                   uuid.UUID       `json:"id"`
	ReservationID        uuid.UUID       `json:"reservation_id"`
	RestaurantID         uuid.UUID       `json:"restaurant_id"`
	Status               string          `json:"status"`
	EstimatedPrepMinutes int32           `json:"estimated_prep_minutes"`
	FireAt               *time.Time      `json:"fire_at"`
	FiredAt              *time.Time      `json:"fired_at"`
	ReadyAt              *time.Time      `json:"ready_at"`
	ServedAt             *time.Time      `json:"served_at"`
	Items                json.RawMessage `json:"items"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

type ticketListEntry struct {
	ticketResponse
	GuestName string    `json:"guest_name"`
	PartySize int32     `json:"party_size"`
	StartsAt  time.Time `json:"starts_at"`
}

type ticketListResponse struct {
	Tickets []ticketListEntry `json:"tickets"`
}

// --- Handlers ---

// List handles GET /kitchen/tickets?restaurant_id=&status=.
// Tickets come back oldest-created-first, the order the kitchen works them.
func (h *TicketHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	ridStr := r.URL.Query().Get("restaurant_id")
	if ridStr == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "restaurant_id is required"})
		return
	}
	restaurantID, err := uuid.Parse(ridStr)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}

	params := database.ListTicketsByRestaurantParams{RestaurantID: restaurantID}
	if s := r.URL.Query().Get("status"); s != "" {
		params.Status = pgtype.Text{String: s, Valid: true}
	}

	rows, err := h.store.ListTicketsByRestaurant(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list tickets: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	entries := make([]ticketListEntry, len(rows))
	for i, row := range rows {
		entries[i] = ticketListEntry{
			ticketResponse: toTicketResponse(row.KitchenTicket),
			GuestName:      row.GuestName,
			PartySize:      row.PartySize,
			StartsAt:       row.StartsAt,
		}
	}

	writeJSON(w, http.StatusOK, ticketListResponse{Tickets: entries})
}

// UpdateStatus handles PATCH /kitchen/tickets/{id}.
func (h *TicketHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	ticketID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid ticket ID"})
		return
	}

	var req updateTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	ticket, err := h.svc.StaffTransition(r.Context(), service.StaffTransitionRequest{
		TicketID:             ticketID,
		Status:               req.Status,
		EstimatedPrepMinutes: req.EstimatedPrepMinutes,
	})
	if err != nil {
		if errors.Is(err, service.ErrTicketNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		if isValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: update ticket: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toTicketResponse(ticket))
}

// --- Helpers ---

func toTicketResponse(t database.KitchenTicket) ticketResponse {
	return ticketResponse{
		ID:                   t.ID,
		ReservationID:        t.ReservationID,
		RestaurantID:         t.RestaurantID,
		Status:               t.Status,
		EstimatedPrepMinutes: t.EstimatedPrepMinutes,
		FireAt:               timePtr(t.FireAt),
		FiredAt:              timePtr(t.FiredAt),
		ReadyAt:              timePtr(t.ReadyAt),
		ServedAt:             timePtr(t.ServedAt),
		Items:                json.RawMessage(t.Items),
		CreatedAt:            t.CreatedAt,
		UpdatedAt:            t.UpdatedAt,
	}
}
