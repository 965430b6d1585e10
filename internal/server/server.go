package server

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/landlord/internal/auth"
	"github.com/dukerupert/landlord/internal/dashboard"
	"github.com/dukerupert/landlord/internal/handler"
	"github.com/dukerupert/landlord/internal/ledger"
	"github.com/dukerupert/landlord/internal/middleware"
	"github.com/dukerupert/landlord/internal/notify"
	"github.com/dukerupert/landlord/internal/occupancy"
	"github.com/dukerupert/landlord/internal/store"
)

type Config struct {
	JWTSecret   string
	TokenTTL    time.Duration
	Location    *time.Location
	CORSOrigins []string
	// Now defaults to time.Now. Tests pin it.
	Now func() time.Time
}

type Server struct {
	db          *sql.DB
	authSvc     *auth.Service
	authH       *handler.AuthHandler
	houseH      *handler.HouseHandler
	tenantH     *handler.TenantHandler
	paymentH    *handler.PaymentHandler
	rateLimiter *middleware.RateLimiter
	corsOrigins []string
	logger      *slog.Logger
}

func New(db *sql.DB, notifier notify.Dispatcher, cfg Config, logger *slog.Logger) *Server {
	clock := cfg.Now
	if clock == nil {
		clock = time.Now
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	// One definition of "today" for every component.
	now := func() time.Time { return clock().In(loc) }

	houseStore := store.NewHouseStore(db)
	tenantStore := store.NewTenantStore(db)

	coord := occupancy.New(db, notifier, now, logger.With("component", "occupancy"))
	ldg := ledger.New(db, notifier, now, logger.With("component", "ledger"))
	agg := dashboard.New(db, now, loc)
	authSvc := auth.NewService(db, auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL), logger.With("component", "auth"))

	return &Server{
		db:          db,
		authSvc:     authSvc,
		authH:       handler.NewAuthHandler(authSvc, logger.With("component", "auth_handler")),
		houseH:      handler.NewHouseHandler(houseStore, coord, logger.With("component", "house")),
		tenantH:     handler.NewTenantHandler(tenantStore, houseStore, coord, ldg, logger.With("component", "tenant")),
		paymentH:    handler.NewPaymentHandler(ldg, agg, logger.With("component", "payment")),
		rateLimiter: middleware.NewRateLimiter(10, time.Minute),
		corsOrigins: cfg.CORSOrigins,
		logger:      logger,
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	limited := middleware.RateLimit(s.rateLimiter)
	outerMux.Handle("POST /api/auth/register", limited(http.HandlerFunc(s.authH.Register)))
	outerMux.Handle("POST /api/auth/login", limited(http.HandlerFunc(s.authH.Login)))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes, wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.authSvc, s.logger.With("component", "auth_middleware"))
	outerMux.Handle("/api/", authMiddleware(protectedMux))

	var h http.Handler = outerMux
	h = middleware.CORS(s.corsOrigins)(h)
	return middleware.RequestLogger(s.logger.With("component", "http"))(h)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write([]byte(`{"status":"` + status + `"}`))
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/auth/me", s.authH.Me)

	// Houses
	mux.HandleFunc("GET /api/houses", s.houseH.List)
	mux.HandleFunc("POST /api/houses", s.houseH.Create)
	mux.HandleFunc("GET /api/houses/with-tenants", s.houseH.ListWithTenants)
	mux.HandleFunc("GET /api/houses/{id}", s.houseH.Get)
	mux.HandleFunc("PUT /api/houses/{id}", s.houseH.Update)
	mux.HandleFunc("DELETE /api/houses/{id}", s.houseH.Delete)

	// Tenants
	mux.HandleFunc("GET /api/tenants", s.tenantH.List)
	mux.HandleFunc("POST /api/tenants", s.tenantH.Create)
	mux.HandleFunc("GET /api/tenants/{id}", s.tenantH.Get)
	mux.HandleFunc("PUT /api/tenants/{id}", s.tenantH.Update)
	mux.HandleFunc("DELETE /api/tenants/{id}", s.tenantH.Delete)
	mux.HandleFunc("GET /api/tenants/{id}/payments", s.tenantH.Payments)

	// Payments
	mux.HandleFunc("GET /api/payments", s.paymentH.List)
	mux.HandleFunc("POST /api/payments", s.paymentH.Create)
	mux.HandleFunc("GET /api/payments/dashboard", s.paymentH.Dashboard)
	mux.HandleFunc("POST /api/payments/send-reminders", s.paymentH.SendReminders)
	mux.HandleFunc("GET /api/payments/{id}", s.paymentH.Get)
	mux.HandleFunc("PUT /api/payments/{id}", s.paymentH.Update)
	mux.HandleFunc("DELETE /api/payments/{id}", s.paymentH.Delete)
}
