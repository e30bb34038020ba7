// Package http serves the JSON API over chi.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/IvaDonGon/TusGastos/internal/cache"
	applog "github.com/IvaDonGon/TusGastos/internal/log"
	"github.com/IvaDonGon/TusGastos/internal/middleware/ratelimit"
	"github.com/IvaDonGon/TusGastos/internal/middleware/security"
	"github.com/IvaDonGon/TusGastos/internal/services"
)

const requestTimeout = 30 * time.Second

// Services groups the application services the handlers call.
type Services struct {
	Occurrences *services.OccurrenceManager
	Definitions *services.DefinitionService
	Categories  *services.CategoryService
	Budget      *services.BudgetService
	Expenses    *services.ExpenseService
	Dashboard   *services.DashboardService
}

// Options configures everything around the handlers.
type Options struct {
	Auth AuthConfig
	// RateLimitPerMinute of zero disables limiting.
	RateLimitPerMinute int
	Location           *time.Location
	Logger             *applog.Logger
	// Caches is stopped on Shutdown when set.
	Caches *cache.Manager
	// Ready backs /readyz. Nil means always ready.
	Ready func(context.Context) error
	Now   func() time.Time
}

type Server struct {
	http.Server
	svc     Services
	auth    AuthConfig
	loc     *time.Location
	now     func() time.Time
	ready   func(context.Context) error
	limiter *ratelimit.Limiter
	caches  *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc Services, opts Options) *Server {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = applog.Discard()
	}

	s := &Server{
		svc:    svc,
		auth:   opts.Auth,
		loc:    opts.Location,
		now:    opts.Now,
		ready:  opts.Ready,
		caches: opts.Caches,
	}
	if opts.RateLimitPerMinute > 0 {
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute})
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(opts.Logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes(logger *applog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(applog.Middleware(logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(requestTimeout))
	r.Use(security.Headers(security.APIHeadersConfig()))

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.auth.Middleware)
		if s.limiter != nil {
			r.Use(s.limiter.Middleware(UserIDFromContext, func(w http.ResponseWriter, r *http.Request) {
				applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
					applog.FieldComponent, applog.ComponentRateLimit)
				writeError(w, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded, try again later")
			}))
		}

		r.Get("/dashboard", s.handleDashboard)

		r.Route("/occurrences", func(r chi.Router) {
			r.Post("/ensure", s.handleEnsure)
			r.Get("/pending", s.handlePending)
			r.Post("/confirm-all", s.handleConfirmAll)
			r.Post("/{id}/confirm", s.handleConfirm)
			r.Post("/{id}/omit", s.handleOmit)
		})

		r.Route("/recurring", func(r chi.Router) {
			r.Get("/", s.handleListDefinitions)
			r.Post("/", s.handleCreateDefinition)
			r.Get("/{id}", s.handleGetDefinition)
			r.Put("/{id}", s.handleUpdateDefinition)
			r.Delete("/{id}", s.handleDeleteDefinition)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", s.handleListCategories)
			r.Post("/", s.handleCreateCategory)
			r.Put("/{id}", s.handleUpdateCategory)
			r.Delete("/{id}", s.handleDeleteCategory)
		})

		r.Get("/limits", s.handleListLimits)
		r.Put("/limits/{categoryID}", s.handleSetLimit)
		r.Delete("/limits/{categoryID}", s.handleClearLimit)

		r.Get("/budget/alerts", s.handleBudgetAlerts)

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handleUpdateSettings)

		r.Route("/expenses", func(r chi.Router) {
			r.Get("/", s.handleListExpenses)
			r.Post("/", s.handleCreateExpense)
			r.Put("/{id}", s.handleUpdateExpense)
			r.Delete("/{id}", s.handleDeleteExpense)
		})
	})

	return r
}

// Shutdown stops the limiter and cache cleanup, then drains the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		if s.caches != nil {
			s.caches.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
			writeError(w, http.StatusServiceUnavailable, "not_ready", "storage unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
