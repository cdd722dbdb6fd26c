package handler_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/prime3679/tablefire/api/internal/database"
	"github.com/prime3679/tablefire/api/internal/handler"
	"github.com/prime3679/tablefire/api/internal/service"
)

// --- Mock CheckInServicer ---

type mockCheckInService struct {
	checkInFn func(ctx context.Context, req service.CheckInRequest) (*service.CheckInResult, error)
	statusFn  func(ctx context.Context, reservationID uuid.UUID) (*service.CheckInStatus, error)
}

func (m *mockCheckInService) CheckIn(ctx context.Context, req service.CheckInRequest) (*service.CheckInResult, error) {
	return m.checkInFn(ctx, req)
}

func (m *mockCheckInService) Status(ctx context.Context, reservationID uuid.UUID) (*service.CheckInStatus, error) {
	return m.statusFn(ctx, reservationID)
}

func setupCheckInRouter(svc *mockCheckInService) *chi.Mux {
	h := handler.NewCheckInHandler(svc)
	r := chi.NewRouter()
	r.Route("/checkin", h.RegisterRoutes)
	return r
}

func testCheckInResult(withTicket bool) *service.CheckInResult {
	reservationID := uuid.New()
	restaurantID := uuid.New()
	now := time.Now()

	result := &service.CheckInResult{
		CheckIn: database.Checkin{
			ID:            uuid.New(),
			ReservationID: reservationID,
			RestaurantID:  restaurantID,
			Method:        "QR_SCAN",
			TableID:       pgtype.Text{String: "12", Valid: true},
			ScannedAt:     now,
		},
		Reservation: database.Reservation{
			ID:           reservationID,
			RestaurantID: restaurantID,
			GuestName:    "Dana Whitfield",
			PartySize:    2,
			StartsAt:     now.Add(15 * time.Minute),
			Status:       "CHECKED_IN",
			CreatedAt:    now.Add(-24 * time.Hour),
		},
	}

	if withTicket {
		result.Ticket = &database.KitchenTicket{
			ID:                   uuid.New(),
			ReservationID:        reservationID,
			RestaurantID:         restaurantID,
			Status:               "PENDING",
			EstimatedPrepMinutes: 10,
			FireAt:               pgtype.Timestamptz{Time: now, Valid: true},
			Items:                []byte(`[{"name":"Caesar Salad","quantity":2,"modifiers":[],"allergens":["dairy","egg"]}]`),
			CreatedAt:            now,
			UpdatedAt:            now,
		}
		result.TicketCreated = true
	}

	return result
}

// --- Scan ---

func TestCheckInScan_HappyPath(t *testing.T) {
	result := testCheckInResult(true)
	var gotReq service.CheckInRequest
	svc := &mockCheckInService{
		checkInFn: func(ctx context.Context, req service.CheckInRequest) (*service.CheckInResult, error) {
			gotReq = req
			return result, nil
		},
	}
	router := setupCheckInRouter(svc)

	body := map[string]string{
		"reservation_id": result.Reservation.ID.String(),
		"method":         "QR_SCAN",
		"table_id":       "12",
	}

	rr := doRequest(t, router, "POST", "/checkin/scan", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200 (body: %s)", rr.Code, rr.Body.String())
	}

	if gotReq.ReservationID != result.Reservation.ID {
		t.Errorf("reservation ID passed to service: got %v", gotReq.ReservationID)
	}
	if gotReq.Method != "QR_SCAN" || gotReq.TableID != "12" {
		t.Errorf("request passed to service: %+v", gotReq)
	}

	resp := decodeJSON(t, rr)
	reservation := resp["reservation"].(map[string]interface{})
	if reservation["status"] != "CHECKED_IN" {
		t.Errorf("reservation status: got %v", reservation["status"])
	}
	ticket := resp["kitchen_ticket"].(map[string]interface{})
	if ticket["status"] != "PENDING" {
		t.Errorf("ticket status: got %v", ticket["status"])
	}
	if ticket["estimated_prep_minutes"].(float64) != 10 {
		t.Errorf("estimated prep minutes: got %v", ticket["estimated_prep_minutes"])
	}
}

func TestCheckInScan_NoPreOrder(t *testing.T) {
	result := testCheckInResult(false)
	svc := &mockCheckInService{
		checkInFn: func(ctx context.Context, req service.CheckInRequest) (*service.CheckInResult, error) {
			return result, nil
		},
	}
	router := setupCheckInRouter(svc)

	body := map[string]string{
		"reservation_id": result.Reservation.ID.String(),
		"method":         "MANUAL",
	}

	rr := doRequest(t, router, "POST", "/checkin/scan", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}

	resp := decodeJSON(t, rr)
	if resp["kitchen_ticket"] != nil {
		t.Errorf("kitchen_ticket: got %v, want null", resp["kitchen_ticket"])
	}
}

func TestCheckInScan_ReservationNotFound(t *testing.T) {
	svc := &mockCheckInService{
		checkInFn: func(ctx context.Context, req service.CheckInRequest) (*service.CheckInResult, error) {
			return nil, service.ErrReservationNotFound
		},
	}
	router := setupCheckInRouter(svc)

	body := map[string]string{"reservation_id": uuid.NewString(), "method": "QR_SCAN"}
	rr := doRequest(t, router, "POST", "/checkin/scan", body)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", rr.Code)
	}
}

func TestCheckInScan_AlreadyCheckedIn(t *testing.T) {
	scannedAt := time.Now().Add(-10 * time.Minute)
	svc := &mockCheckInService{
		checkInFn: func(ctx context.Context, req service.CheckInRequest) (*service.CheckInResult, error) {
			return nil, fmt.Errorf("%w: checked in at %s", service.ErrAlreadyCheckedIn, scannedAt.Format(time.RFC3339))
		},
	}
	router := setupCheckInRouter(svc)

	body := map[string]string{"reservation_id": uuid.NewString(), "method": "QR_SCAN"}
	rr := doRequest(t, router, "POST", "/checkin/scan", body)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rr.Code)
	}

	resp := decodeJSON(t, rr)
	if msg := resp["error"].(string); !strings.Contains(msg, "checked in at") {
		t.Errorf("error should carry the original scan time, got %q", msg)
	}
}

func TestCheckInScan_NotBooked(t *testing.T) {
	svc := &mockCheckInService{
		checkInFn: func(ctx context.Context, req service.CheckInRequest) (*service.CheckInResult, error) {
			return nil, fmt.Errorf("%w: status is COMPLETED", service.ErrReservationNotBooked)
		},
	}
	router := setupCheckInRouter(svc)

	body := map[string]string{"reservation_id": uuid.NewString(), "method": "QR_SCAN"}
	rr := doRequest(t, router, "POST", "/checkin/scan", body)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rr.Code)
	}
}

func TestCheckInScan_MissingMethod(t *testing.T) {
	router := setupCheckInRouter(&mockCheckInService{})

	body := map[string]string{"reservation_id": uuid.NewString()}
	rr := doRequest(t, router, "POST", "/checkin/scan", body)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rr.Code)
	}
}

func TestCheckInScan_InvalidReservationID(t *testing.T) {
	router := setupCheckInRouter(&mockCheckInService{})

	body := map[string]string{"reservation_id": "nope", "method": "QR_SCAN"}
	rr := doRequest(t, router, "POST", "/checkin/scan", body)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rr.Code)
	}
}

func TestCheckInScan_InternalError(t *testing.T) {
	svc := &mockCheckInService{
		checkInFn: func(ctx context.Context, req service.CheckInRequest) (*service.CheckInResult, error) {
			return nil, errors.New("connection refused")
		},
	}
	router := setupCheckInRouter(svc)

	body := map[string]string{"reservation_id": uuid.NewString(), "method": "QR_SCAN"}
	rr := doRequest(t, router, "POST", "/checkin/scan", body)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want 500", rr.Code)
	}
}

// --- Status ---

func TestCheckInStatus_BeforeCheckIn(t *testing.T) {
	reservationID := uuid.New()
	svc := &mockCheckInService{
		statusFn: func(ctx context.Context, id uuid.UUID) (*service.CheckInStatus, error) {
			if id != reservationID {
				t.Errorf("reservation ID: got %v", id)
			}
			return &service.CheckInStatus{
				Reservation: database.Reservation{ID: reservationID, Status: "BOOKED", GuestName: "Dana Whitfield"},
			}, nil
		},
	}
	router := setupCheckInRouter(svc)

	rr := doRequest(t, router, "GET", "/checkin/status/"+reservationID.String(), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}

	resp := decodeJSON(t, rr)
	if resp["checkin"] != nil {
		t.Errorf("checkin: got %v, want null", resp["checkin"])
	}
	if resp["kitchen_ticket"] != nil {
		t.Errorf("kitchen_ticket: got %v, want null", resp["kitchen_ticket"])
	}
}

func TestCheckInStatus_AfterCheckIn(t *testing.T) {
	result := testCheckInResult(true)
	svc := &mockCheckInService{
		statusFn: func(ctx context.Context, id uuid.UUID) (*service.CheckInStatus, error) {
			return &service.CheckInStatus{
				Reservation: result.Reservation,
				CheckIn:     &result.CheckIn,
				Ticket:      result.Ticket,
			}, nil
		},
	}
	router := setupCheckInRouter(svc)

	rr := doRequest(t, router, "GET", "/checkin/status/"+result.Reservation.ID.String(), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}

	resp := decodeJSON(t, rr)
	checkin := resp["checkin"].(map[string]interface{})
	if checkin["method"] != "QR_SCAN" {
		t.Errorf("checkin method: got %v", checkin["method"])
	}
	if checkin["table_id"] != "12" {
		t.Errorf("table_id: got %v", checkin["table_id"])
	}
	if resp["kitchen_ticket"] == nil {
		t.Error("kitchen_ticket: got null, want ticket")
	}
}

func TestCheckInStatus_NotFound(t *testing.T) {
	svc := &mockCheckInService{
		statusFn: func(ctx context.Context, id uuid.UUID) (*service.CheckInStatus, error) {
			return nil, service.ErrReservationNotFound
		},
	}
	router := setupCheckInRouter(svc)

	rr := doRequest(t, router, "GET", "/checkin/status/"+uuid.NewString(), nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", rr.Code)
	}
}

func TestCheckInStatus_InvalidID(t *testing.T) {
	router := setupCheckInRouter(&mockCheckInService{})

	rr := doRequest(t, router, "GET", "/checkin/status/not-a-uuid", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rr.Code)
	}
}
