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
	"github.com/prime3679/tablefire/api/internal/database"
	"github.com/prime3679/tablefire/api/internal/service"
)

// CheckInServicer defines the service methods needed by check-in handlers.
// Satisfied by *service.CheckInService; narrow interface for testability.
type CheckInServicer interface {
	CheckIn(ctx context.Context, req service.CheckInRequest) (*service.CheckInResult, error)
	Status(ctx context.Context, reservationID uuid.UUID) (*service.CheckInStatus, error)
}

// CheckInHandler handles guest arrival endpoints.
type CheckInHandler struct {
	svc CheckInServicer
}

// NewCheckInHandler creates a new CheckInHandler.
func NewCheckInHandler(svc CheckInServicer) *CheckInHandler {
	return &CheckInHandler{svc: svc}
}

// RegisterRoutes registers check-in endpoints on the given Chi router.
// Expected to be mounted at /checkin.
func (h *CheckInHandler) RegisterRoutes(r chi.Router) {
	r.Post("/scan", h.Scan)
	r.Get("/status/{reservationId}", h.Status)
}

// --- Request / Response types ---

type checkInScanRequest struct {
	ReservationID string `json:"reservation_id"`
	Method        string `json:"method"`
	TableID       string `json:"table_id"`
}

type checkInResponse struct {
	ID            uuid.UUID `json:"id"`
	ReservationID uuid.UUID `json:"reservation_id"`
	RestaurantID  uuid.UUID `json:"restaurant_id"`
	Method        string    `json:"method"`
	TableID       *string   `json:"table_id"`
	ScannedAt     time.Time `json:"scanned_at"`
}

type checkInScanResponse struct {
	CheckIn       checkInResponse     `json:"checkin"`
	Reservation   reservationResponse `json:"reservation"`
	KitchenTicket *ticketResponse     `json:"kitchen_ticket"`
}

type checkInStatusResponse struct {
	Reservation   reservationResponse `json:"reservation"`
	CheckIn       *checkInResponse    `json:"checkin"`
	KitchenTicket *ticketResponse     `json:"kitchen_ticket"`
}

// --- Handlers ---

// Scan handles POST /checkin/scan. It moves the reservation to CHECKED_IN
// and fires the kitchen ticket for its pre-order, if one exists.
func (h *CheckInHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var req checkInScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	reservationID, err := uuid.Parse(req.ReservationID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid reservation ID"})
		return
	}

	if req.Method == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "method is required"})
		return
	}

	result, err := h.svc.CheckIn(r.Context(), service.CheckInRequest{
		ReservationID: reservationID,
		Method:        req.Method,
		TableID:       req.TableID,
	})
	if err != nil {
		if errors.Is(err, service.ErrReservationNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		if isValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: check in: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := checkInScanResponse{
		CheckIn:     toCheckInResponse(result.CheckIn),
		Reservation: toReservationResponse(result.Reservation),
	}
	if result.Ticket != nil {
		t := toTicketResponse(*result.Ticket)
		resp.KitchenTicket = &t
	}

	writeJSON(w, http.StatusOK, resp)
}

func toCheckInResponse(c database.Checkin) checkInResponse {
	return checkInResponse{
		ID:            c.ID,
		ReservationID: c.ReservationID,
		RestaurantID:  c.RestaurantID,
		Method:        c.Method,
		TableID:       textPtr(c.TableID),
		ScannedAt:     c.ScannedAt,
	}
}

// Status handles GET /checkin/status/{reservationId}.
func (h *CheckInHandler) Status(w http.ResponseWriter, r *http.Request) {
	reservationID, err := uuid.Parse(chi.URLParam(r, "reservationId"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid reservation ID"})
		return
	}

	status, err := h.svc.Status(r.Context(), reservationID)
	if err != nil {
		if errors.Is(err, service.ErrReservationNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: check-in status: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := checkInStatusResponse{
		Reservation: toReservationResponse(status.Reservation),
	}
	if status.CheckIn != nil {
		c := toCheckInResponse(*status.CheckIn)
		resp.CheckIn = &c
	}
	if status.Ticket != nil {
		t := toTicketResponse(*status.Ticket)
		resp.KitchenTicket = &t
	}

	writeJSON(w, http.StatusOK, resp)
}
