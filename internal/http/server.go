package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/dashboard"
	"fintrack/internal/identity"
	applog "fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// ServerConfig carries the HTTP settings resolved from config.Config.
type ServerConfig struct {
	Addr           string
	IdentityHeader string
	StoreTimeout   time.Duration
	RateLimitRPM   int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

type Server struct {
	http.Server

	dashboard    *dashboard.Service
	readiness    ports.Pinger
	logger       *applog.Logger
	storeTimeout time.Duration

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	startedAt        time.Time

	shutdownOnce sync.Once
}

// NewServer wires the router. readiness may be nil when the backend cannot
// report health.
func NewServer(cfg ServerConfig, svc *dashboard.Service, readiness ports.Pinger, logger *applog.Logger) *Server {
	if logger == nil {
		logger = applog.Discard()
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 30 * time.Second
	}

	detector := security.NewDetector()
	s := &Server{
		dashboard:        svc,
		readiness:        readiness,
		logger:           logger.WithComponent(applog.ComponentHTTP),
		storeTimeout:     cfg.StoreTimeout,
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitRPM}),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(logger, detector.ExtractClientIP),
		startedAt:        time.Now(),
	}
	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(cfg.IdentityHeader),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes(identityHeader string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(s.traceMiddleware.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.securityDetector.Middleware(s.logger))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) { NotFoundError().Write(w) })
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) { MethodNotAllowedError().Write(w) })

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/api/v1/dashboard", func(r chi.Router) {
		r.Use(s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
			TooManyRequestsError().Write(w)
		}))
		r.Use(identity.Middleware(identityHeader))

		r.Get("/", s.handleSummary)
		r.Get("/summary", s.handleSummary)
		r.Get("/income-vs-expenses", s.handleIncomeVsExpenses)
		r.Get("/recent", s.handleRecent)
	})
	return r
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
