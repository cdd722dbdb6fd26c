package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/prime3679/tablefire/api/internal/database"
	"github.com/prime3679/tablefire/api/internal/handler"
	"github.com/prime3679/tablefire/api/internal/middleware"
	"github.com/prime3679/tablefire/api/internal/service"
)

// --- Mock TicketServicer ---

type mockTicketService struct {
	staffTransitionFn func(ctx context.Context, req service.StaffTransitionRequest) (database.KitchenTicket, error)
}

func (m *mockTicketService) StaffTransition(ctx context.Context, req service.StaffTransitionRequest) (database.KitchenTicket, error) {
	return m.staffTransitionFn(ctx, req)
}

// --- Mock TicketStore ---

type mockTicketListStore struct {
	listFn func(ctx context.Context, arg database.ListTicketsByRestaurantParams) ([]database.ListTicketsByRestaurantRow, error)
}

func (m *mockTicketListStore) ListTicketsByRestaurant(ctx context.Context, arg database.ListTicketsByRestaurantParams) ([]database.ListTicketsByRestaurantRow, error) {
	if m.listFn != nil {
		return m.listFn(ctx, arg)
	}
	return []database.ListTicketsByRestaurantRow{}, nil
}

func setupTicketRouter(svc *mockTicketService, store *mockTicketListStore) *chi.Mux {
	h := handler.NewTicketHandler(svc, store)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/kitchen/tickets", h.RegisterRoutes)
	return r
}

func testTicketRow(restaurantID uuid.UUID, status string, createdAt time.Time) database.ListTicketsByRestaurantRow {
	return database.ListTicketsByRestaurantRow{
		KitchenTicket: database.KitchenTicket{
			ID:                   uuid.New(),
			ReservationID:        uuid.New(),
			RestaurantID:         restaurantID,
			Status:               status,
			EstimatedPrepMinutes: 15,
			FireAt:               pgtype.Timestamptz{Time: createdAt, Valid: true},
			Items:                []byte(`[{"name":"Steak Frites","quantity":1,"modifiers":[],"allergens":[]}]`),
			CreatedAt:            createdAt,
			UpdatedAt:            createdAt,
		},
		GuestName: "Dana Whitfield",
		PartySize: 2,
		StartsAt:  createdAt.Add(30 * time.Minute),
	}
}

// --- List ---

func TestTicketList_HappyPath(t *testing.T) {
	restaurantID := uuid.New()
	now := time.Now()
	rows := []database.ListTicketsByRestaurantRow{
		testTicketRow(restaurantID, "PENDING", now.Add(-20*time.Minute)),
		testTicketRow(restaurantID, "FIRED", now.Add(-5*time.Minute)),
	}
	store := &mockTicketListStore{
		listFn: func(ctx context.Context, arg database.ListTicketsByRestaurantParams) ([]database.ListTicketsByRestaurantRow, error) {
			if arg.RestaurantID != restaurantID {
				t.Errorf("restaurant ID: got %v", arg.RestaurantID)
			}
			if arg.Status.Valid {
				t.Errorf("status filter should be absent, got %v", arg.Status)
			}
			return rows, nil
		},
	}
	router := setupTicketRouter(&mockTicketService{}, store)

	rr := doAuthRequest(t, router, "GET", "/kitchen/tickets?restaurant_id="+restaurantID.String(), nil, testClaims(restaurantID))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200 (body: %s)", rr.Code, rr.Body.String())
	}

	resp := decodeJSON(t, rr)
	tickets := resp["tickets"].([]interface{})
	if len(tickets) != 2 {
		t.Fatalf("tickets: got %d, want 2", len(tickets))
	}
	first := tickets[0].(map[string]interface{})
	if first["status"] != "PENDING" {
		t.Errorf("first ticket status: got %v (oldest-first order broken?)", first["status"])
	}
	if first["guest_name"] != "Dana Whitfield" {
		t.Errorf("guest_name: got %v", first["guest_name"])
	}
	if first["party_size"].(float64) != 2 {
		t.Errorf("party_size: got %v", first["party_size"])
	}
}

func TestTicketList_WithStatusFilter(t *testing.T) {
	restaurantID := uuid.New()
	store := &mockTicketListStore{
		listFn: func(ctx context.Context, arg database.ListTicketsByRestaurantParams) ([]database.ListTicketsByRestaurantRow, error) {
			if !arg.Status.Valid || arg.Status.String != "FIRED" {
				t.Errorf("status filter: got %+v, want FIRED", arg.Status)
			}
			return []database.ListTicketsByRestaurantRow{testTicketRow(restaurantID, "FIRED", time.Now())}, nil
		},
	}
	router := setupTicketRouter(&mockTicketService{}, store)

	rr := doAuthRequest(t, router, "GET", "/kitchen/tickets?restaurant_id="+restaurantID.String()+"&status=FIRED", nil, testClaims(restaurantID))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
}

func TestTicketList_MissingRestaurantID(t *testing.T) {
	router := setupTicketRouter(&mockTicketService{}, &mockTicketListStore{})

	rr := doAuthRequest(t, router, "GET", "/kitchen/tickets", nil, testClaims(uuid.New()))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rr.Code)
	}
}

func TestTicketList_Empty(t *testing.T) {
	restaurantID := uuid.New()
	router := setupTicketRouter(&mockTicketService{}, &mockTicketListStore{})

	rr := doAuthRequest(t, router, "GET", "/kitchen/tickets?restaurant_id="+restaurantID.String(), nil, testClaims(restaurantID))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
}

func TestTicketList_NoAuth(t *testing.T) {
	router := setupTicketRouter(&mockTicketService{}, &mockTicketListStore{})

	rr := doRequest(t, router, "GET", "/kitchen/tickets?restaurant_id="+uuid.NewString(), nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want 401", rr.Code)
	}
}

func TestTicketList_StoreError(t *testing.T) {
	restaurantID := uuid.New()
	store := &mockTicketListStore{
		listFn: func(ctx context.Context, arg database.ListTicketsByRestaurantParams) ([]database.ListTicketsByRestaurantRow, error) {
			return nil, errors.New("connection refused")
		},
	}
	router := setupTicketRouter(&mockTicketService{}, store)

	rr := doAuthRequest(t, router, "GET", "/kitchen/tickets?restaurant_id="+restaurantID.String(), nil, testClaims(restaurantID))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want 500", rr.Code)
	}
}

// --- UpdateStatus ---

func TestTicketUpdate_HappyPath(t *testing.T) {
	restaurantID := uuid.New()
	ticketID := uuid.New()
	now := time.Now()
	var gotReq service.StaffTransitionRequest
	svc := &mockTicketService{
		staffTransitionFn: func(ctx context.Context, req service.StaffTransitionRequest) (database.KitchenTicket, error) {
			gotReq = req
			return database.KitchenTicket{
				ID:            ticketID,
				RestaurantID:  restaurantID,
				ReservationID: uuid.New(),
				Status:        req.Status,
				FiredAt:       pgtype.Timestamptz{Time: now, Valid: true},
				Items:         []byte(`[]`),
				CreatedAt:     now,
				UpdatedAt:     now,
			}, nil
		},
	}
	router := setupTicketRouter(svc, &mockTicketListStore{})

	body := map[string]interface{}{"status": "FIRED", "estimated_prep_minutes": 25}
	rr := doAuthRequest(t, router, "PATCH", "/kitchen/tickets/"+ticketID.String(), body, testClaims(restaurantID))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200 (body: %s)", rr.Code, rr.Body.String())
	}

	if gotReq.TicketID != ticketID || gotReq.Status != "FIRED" {
		t.Errorf("request passed to service: %+v", gotReq)
	}
	if gotReq.EstimatedPrepMinutes == nil || *gotReq.EstimatedPrepMinutes != 25 {
		t.Errorf("estimate passed to service: %v", gotReq.EstimatedPrepMinutes)
	}

	resp := decodeJSON(t, rr)
	if resp["status"] != "FIRED" {
		t.Errorf("status in response: got %v", resp["status"])
	}
	if resp["fired_at"] == nil {
		t.Error("fired_at should be stamped")
	}
	if resp["served_at"] != nil {
		t.Errorf("served_at: got %v, want null", resp["served_at"])
	}
}

func TestTicketUpdate_NoEstimate(t *testing.T) {
	svc := &mockTicketService{
		staffTransitionFn: func(ctx context.Context, req service.StaffTransitionRequest) (database.KitchenTicket, error) {
			if req.EstimatedPrepMinutes != nil {
				t.Errorf("estimate should be nil when absent, got %v", *req.EstimatedPrepMinutes)
			}
			return database.KitchenTicket{ID: req.TicketID, Status: req.Status, Items: []byte(`[]`)}, nil
		},
	}
	router := setupTicketRouter(svc, &mockTicketListStore{})

	body := map[string]string{"status": "READY"}
	rr := doAuthRequest(t, router, "PATCH", "/kitchen/tickets/"+uuid.NewString(), body, testClaims(uuid.New()))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
}

func TestTicketUpdate_InvalidStatus(t *testing.T) {
	svc := &mockTicketService{
		staffTransitionFn: func(ctx context.Context, req service.StaffTransitionRequest) (database.KitchenTicket, error) {
			return database.KitchenTicket{}, service.ErrInvalidTicketStatus
		},
	}
	router := setupTicketRouter(svc, &mockTicketListStore{})

	body := map[string]string{"status": "BURNED"}
	rr := doAuthRequest(t, router, "PATCH", "/kitchen/tickets/"+uuid.NewString(), body, testClaims(uuid.New()))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rr.Code)
	}
}

func TestTicketUpdate_NotFound(t *testing.T) {
	svc := &mockTicketService{
		staffTransitionFn: func(ctx context.Context, req service.StaffTransitionRequest) (database.KitchenTicket, error) {
			return database.KitchenTicket{}, service.ErrTicketNotFound
		},
	}
	router := setupTicketRouter(svc, &mockTicketListStore{})

	body := map[string]string{"status": "READY"}
	rr := doAuthRequest(t, router, "PATCH", "/kitchen/tickets/"+uuid.NewString(), body, testClaims(uuid.New()))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", rr.Code)
	}
}

func TestTicketUpdate_MissingStatus(t *testing.T) {
	router := setupTicketRouter(&mockTicketService{}, &mockTicketListStore{})

	rr := doAuthRequest(t, router, "PATCH", "/kitchen/tickets/"+uuid.NewString(), map[string]string{}, testClaims(uuid.New()))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rr.Code)
	}
}

func TestTicketUpdate_InvalidTicketID(t *testing.T) {
	router := setupTicketRouter(&mockTicketService{}, &mockTicketListStore{})

	body := map[string]string{"status": "READY"}
	rr := doAuthRequest(t, router, "PATCH", "/kitchen/tickets/not-a-uuid", body, testClaims(uuid.New()))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rr.Code)
	}
}

func TestTicketUpdate_NoAuth(t *testing.T) {
	router := setupTicketRouter(&mockTicketService{}, &mockTicketListStore{})

	body := map[string]string{"status": "READY"}
	rr := doRequest(t, router, "PATCH", "/kitchen/tickets/"+uuid.NewString(), body)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want 401", rr.Code)
	}
}
