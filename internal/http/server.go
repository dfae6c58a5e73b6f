package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"smartledger/internal/log"
	"smartledger/internal/middleware/auth"
	"smartledger/internal/middleware/ratelimit"
	"smartledger/internal/middleware/security"
	"smartledger/internal/middleware/trace"
	"smartledger/internal/services"
)

// Pinger reports whether the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies are the services behind the handlers.
type Dependencies struct {
	Auth         *services.AuthService
	Transactions *services.TransactionService
	Budgets      *services.BudgetService
	Alerts       *services.AlertService
	Reports      *services.ReportService
	Store        Pinger
	Logger       *log.Logger
}

type Options struct {
	CookieName         string
	CookieSecure       bool
	LoginRatePerMinute int
}

type Server struct {
	http.Server
	deps         Dependencies
	opts         Options
	loginLimiter *ratelimit.Limiter
	clientIP     *security.ClientIP
}

// NewServer wires the routes and returns a ready-to-run server.
func NewServer(addr string, deps Dependencies, opts Options) *Server {
	if opts.CookieName == "" {
		opts.CookieName = "sl_session"
	}
	if deps.Logger == nil {
		deps.Logger = log.New(log.DefaultConfig())
	}
	rl := ratelimit.DefaultConfig()
	if opts.LoginRatePerMinute > 0 {
		rl.PerMinute = opts.LoginRatePerMinute
	}

	s := &Server{
		deps:         deps,
		opts:         opts,
		loginLimiter: ratelimit.NewLimiter(rl),
		clientIP:     security.NewClientIP(),
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// LoginLimiter exposes the limiter so idle buckets can be swept.
func (s *Server) LoginLimiter() *ratelimit.Limiter { return s.loginLimiter }

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(trace.Middleware)
	r.Use(log.Middleware(s.deps.Logger))
	r.Use(log.RequestIDMiddleware(trace.FromRequest))
	r.Use(log.AccessLog(s.clientIP.Extract))
	r.Use(security.Headers(security.DefaultHeadersConfig()))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) { NotFoundError().Write(w) })
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})

	r.Get("/healthz", s.handleHealth)

	r.Route("/users", func(r chi.Router) {
		r.With(s.loginLimiter.Middleware(s.clientIP.Extract, s.onRateLimited)).
			Post("/login", s.handleLogin)
		r.Post("/register", s.handleRegister)
		r.Post("/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession())
			r.Get("/alerts", s.handleListAlerts)
			r.Get("/alerts/unread-count", s.handleUnreadCount)
			r.Post("/alerts/read-all", s.handleMarkAllRead)
			r.Post("/alerts/{id}/read", s.handleMarkRead)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireSession())
		r.Get("/receipts", s.handleListReceipts)
		r.Post("/receipts/confirm", s.handleConfirmReceipt)
		r.Get("/receipts/{id}", s.handleGetReceipt)
		r.Put("/receipts/{id}", s.handleUpdateReceipt)
		r.Delete("/receipts/{id}", s.handleDeleteReceipt)
		r.Post("/budgets", s.handleAddBudget)
		r.Get("/reports/monthly", s.handleMonthlyReport)
	})

	return r
}

func (s *Server) requireSession() func(http.Handler) http.Handler {
	return auth.Required(s.deps.Auth, s.opts.CookieName, func(w http.ResponseWriter, r *http.Request) {
		UnauthorizedError().Write(w)
	})
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).
		WarnContext(r.Context(), "Rate limit exceeded", log.FieldClientIP, s.clientIP.Extract(r))
	ErrorResponse(http.StatusTooManyRequests, "too many requests").Write(w)
}

// userID returns the authenticated user. Only called behind requireSession.
func userID(r *http.Request) int64 {
	id, _ := auth.UserID(r.Context())
	return id
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if s.deps.Store != nil {
		if err := s.deps.Store.Ping(ctx); err != nil {
			log.FromContext(ctx).ErrorContext(ctx, "Health check failed", log.FieldError, err)
			NewJSONResponse().Status(http.StatusServiceUnavailable).
				Body(map[string]string{"status": "unavailable"}).Write(w)
			return
		}
	}
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}
