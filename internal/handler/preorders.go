package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prime3679/tablefire/api/internal/database"
	"github.com/prime3679/tablefire/api/internal/middleware"
	"github.com/prime3679/tablefire/api/internal/pricing"
	"github.com/prime3679/tablefire/api/internal/service"
)

// PreOrderServicer defines the service methods needed by pre-order handlers.
// Satisfied by *service.PreOrderService; narrow interface for testability.
type PreOrderServicer interface {
	Create(ctx context.Context, req service.CreatePreOrderRequest) (*service.PreOrderResult, error)
	Get(ctx context.Context, id uuid.UUID) (*service.PreOrderResult, error)
	UpdateItem(ctx context.Context, req service.UpdatePreOrderItemRequest) (*service.PreOrderResult, error)
	RemoveItem(ctx context.Context, preOrderID, itemID uuid.UUID) (*service.PreOrderResult, error)
	SetStatus(ctx context.Context, id uuid.UUID, status, actor string) (database.Preorder, error)
}

// PreOrderHandler handles pre-order endpoints.
type PreOrderHandler struct {
	svc PreOrderServicer
}

// NewPreOrderHandler creates a new PreOrderHandler.
func NewPreOrderHandler(svc PreOrderServicer) *PreOrderHandler {
	return &PreOrderHandler{svc: svc}
}

// RegisterRoutes registers the guest-facing pre-order endpoints.
// Expected to be mounted at /preorders.
func (h *PreOrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}/items/{itemId}", h.UpdateItem)
	r.Delete("/{id}/items/{itemId}", h.RemoveItem)
}

// RegisterStaffRoutes registers the staff-only status endpoint. Mounted
// separately so the guest routes can stay outside the JWT middleware.
func (h *PreOrderHandler) RegisterStaffRoutes(r chi.Router) {
	r.Patch("/{id}/status", h.SetStatus)
}

// --- Request / Response types ---

type createPreOrderRequest struct {
	ReservationID string                    `json:"reservation_id"`
	Items         []createPreOrderItemInput `json:"items"`
}

type createPreOrderItemInput struct {
	Sku       string                   `json:"sku"`
	Quantity  int32                    `json:"quantity"`
	Notes     string                   `json:"notes"`
	Modifiers []modifierSelectionInput `json:"modifiers"`
}

type modifierSelectionInput struct {
	ModifierGroupID string `json:"modifier_group_id"`
	ModifierID      string `json:"modifier_id"`
}

type updatePreOrderItemRequest struct {
	Quantity *int32  `json:"quantity"`
	Notes    *string `json:"notes"`
}

type setPreOrderStatusRequest struct {
	Status string `json:"status"`
}

type preOrderResponse struct {
	ID            uuid.UUID              `json:"id"`
	ReservationID uuid.UUID              `json:"reservation_id"`
	Status        string                 `json:"status"`
	Subtotal      int64                  `json:"subtotal"`
	Tax           int64                  `json:"tax"`
	Tip           int64                  `json:"tip"`
	Total         int64                  `json:"total"`
	Currency      string                 `json:"currency"`
	Items         []preOrderItemResponse `json:"items"`
	Payments      []paymentResponse      `json:"payments"`
	Reservation   reservationResponse    `json:"reservation"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

type preOrderItemResponse struct {
	ID            uuid.UUID       `json:"id"`
	MenuItemID    uuid.UUID       `json:"menu_item_id"`
	Sku           string          `json:"sku"`
	Name          string          `json:"name"`
	Quantity      int32           `json:"quantity"`
	UnitPrice     int64           `json:"unit_price"`
	ModifierTotal int64           `json:"modifier_total"`
	LineTotal     int64           `json:"line_total"`
	Modifiers     json.RawMessage `json:"modifiers"`
	Notes         *string         `json:"notes"`
	Allergens     []string        `json:"allergens"`
}

type paymentResponse struct {
	ID          uuid.UUID `json:"id"`
	Amount      int64     `json:"amount"`
	Status      string    `json:"status"`
	ProviderRef *string   `json:"provider_ref"`
	CreatedAt   time.Time `json:"created_at"`
}

type reservationResponse struct {
	ID           uuid.UUID `json:"id"`
	RestaurantID uuid.UUID `json:"restaurant_id"`
	GuestName    string    `json:"guest_name"`
	GuestEmail   *string   `json:"guest_email"`
	PartySize    int32     `json:"party_size"`
	StartsAt     time.Time `json:"starts_at"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// --- Handlers ---

// Create handles POST /preorders.
func (h *PreOrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPreOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	reservationID, err := uuid.Parse(req.ReservationID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid reservation ID"})
		return
	}

	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items are required"})
		return
	}

	for i, item := range req.Items {
		if item.Sku == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": formatItemError(i, "sku is required"),
			})
			return
		}
		if item.Quantity <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": formatItemError(i, "quantity must be > 0"),
			})
			return
		}
	}

	svcItems := make([]service.PreOrderItemRequest, len(req.Items))
	for i, item := range req.Items {
		mods := make([]service.ModifierSelectionRequest, len(item.Modifiers))
		for j, mod := range item.Modifiers {
			mods[j] = service.ModifierSelectionRequest{
				ModifierGroupID: mod.ModifierGroupID,
				ModifierID:      mod.ModifierID,
			}
		}
		svcItems[i] = service.PreOrderItemRequest{
			Sku:       item.Sku,
			Quantity:  item.Quantity,
			Notes:     item.Notes,
			Modifiers: mods,
		}
	}

	result, err := h.svc.Create(r.Context(), service.CreatePreOrderRequest{
		ReservationID: reservationID,
		Items:         svcItems,
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
		log.Printf("ERROR: create preorder: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toPreOrderResponse(result))
}

// Get handles GET /preorders/{id}.
func (h *PreOrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid preorder ID"})
		return
	}

	result, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrPreOrderNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: get preorder: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toPreOrderResponse(result))
}

// UpdateItem handles PATCH /preorders/{id}/items/{itemId}.
func (h *PreOrderHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	preOrderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid preorder ID"})
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "itemId"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item ID"})
		return
	}

	var req updatePreOrderItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Quantity == nil && req.Notes == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity or notes is required"})
		return
	}

	result, err := h.svc.UpdateItem(r.Context(), service.UpdatePreOrderItemRequest{
		PreOrderID: preOrderID,
		ItemID:     itemID,
		Quantity:   req.Quantity,
		Notes:      req.Notes,
	})
	if err != nil {
		h.writeMutationError(w, "update preorder item", err)
		return
	}

	writeJSON(w, http.StatusOK, toPreOrderResponse(result))
}

// RemoveItem handles DELETE /preorders/{id}/items/{itemId}.
func (h *PreOrderHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	preOrderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid preorder ID"})
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "itemId"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item ID"})
		return
	}

	result, err := h.svc.RemoveItem(r.Context(), preOrderID, itemID)
	if err != nil {
		h.writeMutationError(w, "remove preorder item", err)
		return
	}

	writeJSON(w, http.StatusOK, toPreOrderResponse(result))
}

// SetStatus handles PATCH /preorders/{id}/status (staff only).
func (h *PreOrderHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid preorder ID"})
		return
	}

	var req setPreOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	preorder, err := h.svc.SetStatus(r.Context(), id, req.Status, claims.UserID.String())
	if err != nil {
		h.writeMutationError(w, "set preorder status", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":     preorder.ID,
		"status": preorder.Status,
	})
}

func (h *PreOrderHandler) writeMutationError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, service.ErrPreOrderNotFound) || errors.Is(err, service.ErrPreOrderItemNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	if isValidationError(err) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	log.Printf("ERROR: %s: %v", op, err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}

// --- Helpers ---

func formatItemError(idx int, msg string) string {
	return "items[" + strconv.Itoa(idx) + "]: " + msg
}

// isValidationError checks if the error is a known validation error
// from the service layer that should result in 400 Bad Request.
func isValidationError(err error) bool {
	return errors.Is(err, service.ErrEmptyItems) ||
		errors.Is(err, service.ErrInvalidReservationState) ||
		errors.Is(err, service.ErrDuplicatePreOrder) ||
		errors.Is(err, service.ErrNotDraft) ||
		errors.Is(err, service.ErrInvalidPreOrderStatus) ||
		errors.Is(err, service.ErrInvalidModifierGroupID) ||
		errors.Is(err, service.ErrInvalidModifierID) ||
		errors.Is(err, service.ErrInvalidCheckInMethod) ||
		errors.Is(err, service.ErrReservationNotBooked) ||
		errors.Is(err, service.ErrAlreadyCheckedIn) ||
		errors.Is(err, service.ErrInvalidTicketStatus) ||
		errors.Is(err, pricing.ErrItemNotFound) ||
		errors.Is(err, pricing.ErrItemUnavailable) ||
		errors.Is(err, pricing.ErrModifierGroupNotFound) ||
		errors.Is(err, pricing.ErrModifierNotFound) ||
		errors.Is(err, pricing.ErrModifierUnavailable) ||
		errors.Is(err, pricing.ErrRequiredModifierMissing) ||
		errors.Is(err, pricing.ErrInvalidQuantity)
}

func toPreOrderResponse(result *service.PreOrderResult) preOrderResponse {
	p := result.PreOrder

	items := make([]preOrderItemResponse, len(result.Items))
	for i, item := range result.Items {
		items[i] = preOrderItemResponse{
			ID:            item.ID,
			MenuItemID:    item.MenuItemID,
			Sku:           item.Sku,
			Name:          item.Name,
			Quantity:      item.Quantity,
			UnitPrice:     item.UnitPrice,
			ModifierTotal: item.ModifierTotal,
			LineTotal:     (item.UnitPrice + item.ModifierTotal) * int64(item.Quantity),
			Modifiers:     json.RawMessage(item.Modifiers),
			Notes:         textPtr(item.Notes),
			Allergens:     item.Allergens,
		}
	}

	payments := make([]paymentResponse, len(result.Payments))
	for i, pay := range result.Payments {
		payments[i] = paymentResponse{
			ID:          pay.ID,
			Amount:      pay.Amount,
			Status:      pay.Status,
			ProviderRef: textPtr(pay.ProviderRef),
			CreatedAt:   pay.CreatedAt,
		}
	}

	return preOrderResponse{
		ID:            p.ID,
		ReservationID: p.ReservationID,
		Status:        p.Status,
		Subtotal:      p.Subtotal,
		Tax:           p.Tax,
		Tip:           p.Tip,
		Total:         p.Total,
		Currency:      p.Currency,
		Items:         items,
		Payments:      payments,
		Reservation:   toReservationResponse(result.Reservation),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func toReservationResponse(res database.Reservation) reservationResponse {
	return reservationResponse{
		ID:           res.ID,
		RestaurantID: res.RestaurantID,
		GuestName:    res.GuestName,
		GuestEmail:   textPtr(res.GuestEmail),
		PartySize:    res.PartySize,
		StartsAt:     res.StartsAt,
		Status:       res.Status,
		CreatedAt:    res.CreatedAt,
	}
}
