// Package http serves the ledger store API: expense records per period,
// the monthly salary, monthly history totals and account login.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"saldo/internal/cache"
	"saldo/internal/log"
	"saldo/internal/middleware/ratelimit"
	"saldo/internal/middleware/security"
	"saldo/internal/middleware/trace"
	"saldo/internal/services"
	"saldo/internal/wire"
)

// Config holds server settings.
type Config struct {
	Addr               string
	RateLimitPerMinute int
	RequestTimeout     time.Duration // Default: 30 seconds
	CleanupInterval    time.Duration // Default: 5 minutes
	Categories         wire.CategoryResolver
	Logger             *log.Logger
}

type Server struct {
	http.Server
	ledger     *services.LedgerService
	auth       *services.AuthService
	categories wire.CategoryResolver
	limiter    *ratelimit.Limiter
	caches     *cache.Manager
	tracer     *trace.Middleware
	logger     *log.Logger

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server. The token cache of auth is swept periodically until Shutdown.
func NewServer(cfg Config, ledger *services.LedgerService, auth *services.AuthService) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Discard()
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}

	s := &Server{
		ledger:     ledger,
		auth:       auth,
		categories: cfg.Categories,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: cfg.RateLimitPerMinute,
			CleanupInterval:   cfg.CleanupInterval,
		}),
		caches: cache.NewManager(logger),
		tracer: trace.NewMiddleware(security.ClientIP),
		logger: logger.WithComponent(log.ComponentHTTP),
	}
	s.caches.Register(auth.Tokens())
	s.caches.StartCleanup(cfg.CleanupInterval)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(cfg.RequestTimeout),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes(timeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(log.Middleware(s.logger))
	r.Use(s.tracer.Middleware)
	r.Use(log.AccessLog)
	r.Use(chimw.Recoverer)
	r.Use(security.Headers(security.DefaultHeadersConfig()))
	r.Use(security.NewDetector(s.logger).Middleware)
	r.Use(chimw.Timeout(timeout))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusNotFound, "not_found", "No such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" not allowed")
	})

	r.Get("/healthz", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.limiter.Middleware(security.ClientIP, func(w http.ResponseWriter, r *http.Request) {
			writeJSONError(w, http.StatusTooManyRequests, "rate_limited", "Rate limit exceeded. Please try again later.")
		}))

		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(s.auth))

			r.Route("/gastos", func(r chi.Router) {
				r.Post("/", s.handleCreate)
				r.Get("/{year}/{month}", s.handleListPeriod)
				r.Put("/{id}", s.handleUpdate)
				r.Delete("/{id}", s.handleDelete)
			})
			r.Get("/gastos-acumulados", s.handleHistory)
			r.Get("/salario", s.handleGetSalary)
			r.Post("/salario", s.handleSetSalary)
		})
	})

	return r
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
