package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prime3679/tablefire/api/internal/config"
	"github.com/prime3679/tablefire/api/internal/database"
	"github.com/prime3679/tablefire/api/internal/handler"
	mw "github.com/prime3679/tablefire/api/internal/middleware"
	"github.com/prime3679/tablefire/api/internal/pos"
	"github.com/prime3679/tablefire/api/internal/service"
	"github.com/prime3679/tablefire/api/internal/ws"
)

// New creates a Chi router with all application routes wired up. Guest
// routes (pre-orders, check-in) are public the way a QR-scan flow has to
// be; kitchen and status routes sit behind JWT auth.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "https://app.tablefire.dev", "https://kds.tablefire.dev"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// WebSocket route (authenticates internally via ?token= query param)
	r.Get("/ws/restaurants/{rid}/kitchen", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	posClient := pos.NewClient(cfg.POSBaseURL)

	preorderService := service.NewPreOrderService(pool, func(db database.DBTX) service.PreOrderStore {
		return database.New(db)
	})
	checkinService := service.NewCheckInService(pool, func(db database.DBTX) service.CheckInStore {
		return database.New(db)
	}, hub)
	ticketService := service.NewTicketService(pool, func(db database.DBTX) service.TicketStore {
		return database.New(db)
	}, posClient, hub)

	preorderHandler := handler.NewPreOrderHandler(preorderService)
	checkinHandler := handler.NewCheckInHandler(checkinService)
	ticketHandler := handler.NewTicketHandler(ticketService, queries)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)

	r.Route("/api", func(r chi.Router) {
		// Auth (public)
		authHandler.RegisterRoutes(r)

		// Guest-facing routes (public), plus the staff-only status override
		// on the same path prefix.
		r.Route("/preorders", func(r chi.Router) {
			preorderHandler.RegisterRoutes(r)

			r.Group(func(r chi.Router) {
				r.Use(mw.Authenticate(cfg.JWTSecret))
				r.Use(mw.RequireRole("ADMIN", "MANAGER"))
				preorderHandler.RegisterStaffRoutes(r)
			})
		})
		r.Route("/checkin", checkinHandler.RegisterRoutes)

		// Kitchen routes (staff only)
		r.Group(func(r chi.Router) {
			r.Use(mw.Authenticate(cfg.JWTSecret))
			r.Use(mw.RequireRestaurant)

			r.Route("/kitchen/tickets", ticketHandler.RegisterRoutes)
		})
	})

	return r
}
