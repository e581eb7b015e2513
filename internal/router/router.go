package router

import (
	"net/http"

	"github.com/comanda-app/api/internal/config"
	"github.com/comanda-app/api/internal/database"
	"github.com/comanda-app/api/internal/enum"
	"github.com/comanda-app/api/internal/handler"
	mw "github.com/comanda-app/api/internal/middleware"
	"github.com/comanda-app/api/internal/notify"
	"github.com/comanda-app/api/internal/service"
	"github.com/comanda-app/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Deps are the long-lived collaborators built by main. Tracking may be nil
// when no Redis is configured.
type Deps struct {
	Queries  *database.Queries
	Pool     *pgxpool.Pool
	Hub      *ws.Hub
	Notifier notify.Notifier
	Tracking service.TrackingCache
	Log      *zap.Logger
}

// New creates a Chi router with all application routes wired up.
// Applies authentication, branch scoping, and role-based middleware as needed.
func New(cfg *config.Config, deps Deps) chi.Router {
	log := deps.Log
	queries := deps.Queries

	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(mw.RequestLogger(log))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Services
	pinAuthorizer := service.NewPINAuthorizer(queries)
	shiftService := service.NewShiftService(deps.Pool, func(db database.DBTX) service.ShiftStore {
		return database.New(db)
	}, pinAuthorizer, deps.Notifier, cfg.MovementAuthThreshold, log)
	orderService := service.NewOrderService(deps.Pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}, deps.Notifier, deps.Tracking, log)
	supplierService := service.NewSupplierService(deps.Pool, func(db database.DBTX) service.SupplierStore {
		return database.New(db)
	}, deps.Notifier, log)
	laborService := service.NewLaborService(queries, cfg.Location, log)

	// Handlers
	authHandler := handler.NewAuthHandler(queries, pinAuthorizer, cfg.JWTSecret, log)
	userHandler := handler.NewUserHandler(queries, log)
	registerHandler := handler.NewRegisterHandler(queries, log)
	shiftHandler := handler.NewShiftHandler(shiftService, log)
	orderHandler := handler.NewOrderHandler(orderService, cfg.Location, log)
	menuHandler := handler.NewMenuHandler(queries, log)
	supplierHandler := handler.NewSupplierHandler(supplierService, cfg.Location, log)
	laborHandler := handler.NewLaborHandler(laborService, cfg.Location, log)
	reportsHandler := handler.NewReportsHandler(shiftService, cfg.Location, log)

	// Public routes
	authHandler.RegisterRoutes(r)
	orderHandler.RegisterPublicRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/branches/{bid}", ws.ServeWS(deps.Hub, cfg.JWTSecret))

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		r.Route("/branches/{bid}", func(r chi.Router) {
			r.Use(mw.RequireBranch)

			// Every role: orders and the menu they are priced from.
			// Only couriers move the tracking marker.
			r.Route("/orders", func(r chi.Router) {
				orderHandler.RegisterRoutes(r)
				r.Group(func(r chi.Router) {
					r.Use(mw.RequireRole(enum.UserRoleRepartidor, enum.UserRoleAdmin, enum.UserRoleEncargado))
					orderHandler.RegisterCourierRoutes(r)
				})
			})
			menuHandler.RegisterRoutes(r)

			// Register staff
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleAdmin, enum.UserRoleEncargado, enum.UserRoleCajero))
				registerHandler.RegisterRoutes(r)
				shiftHandler.RegisterRoutes(r)
				authHandler.RegisterBranchRoutes(r)
			})

			// Supervisors
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleAdmin, enum.UserRoleEncargado))
				registerHandler.RegisterManagerRoutes(r)
				menuHandler.RegisterManagerRoutes(r)
				r.Route("/users", userHandler.RegisterRoutes)
				supplierHandler.RegisterRoutes(r)
				laborHandler.RegisterRoutes(r)
				r.Route("/reports", reportsHandler.RegisterRoutes)
			})
		})
	})

	log.Info("router initialized")
	return r
}
