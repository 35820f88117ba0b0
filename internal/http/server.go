package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"gestor/internal/cache"
	"gestor/internal/clock"
	"gestor/internal/log"
	"gestor/internal/middleware/ratelimit"
	"gestor/internal/middleware/security"
	"gestor/internal/middleware/trace"
	"gestor/internal/services"
)

const (
	defaultReportTimeout = 7 * time.Second
	readyTimeout         = 2 * time.Second
	minCleanupInterval   = time.Minute
)

// Config holds the transport settings of the API server.
type Config struct {
	Addr           string
	JWTSecret      string
	ReportTimeout  time.Duration
	CacheTTL       time.Duration
	CacheSize      int
	RateLimitRPS   float64
	RateLimitBurst int
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	http.Server
	reports       *services.ReportService
	store         Pinger
	auth          *Authenticator
	clientIP      *security.ClientIPResolver
	limiter       *ratelimit.Limiter
	tracer        *trace.Middleware
	clock         clock.Clock
	reportTimeout time.Duration
	logger        *log.Logger

	// Encoded report envelopes keyed by owner and normalized query.
	reportCache *cache.LRUCache[[]byte]
	caches      *cache.Manager

	shutdownOnce sync.Once
}

func NewServer(cfg Config, reports *services.ReportService, store Pinger, c clock.Clock, logger *log.Logger) *Server {
	if c == nil {
		c = clock.NewReal()
	}
	if logger == nil {
		logger = log.Discard()
	}
	if cfg.ReportTimeout <= 0 {
		cfg.ReportTimeout = defaultReportTimeout
	}

	s := &Server{
		reports:       reports,
		store:         store,
		auth:          NewAuthenticator(cfg.JWTSecret, c, logger),
		clientIP:      security.NewClientIPResolver(),
		clock:         c,
		reportTimeout: cfg.ReportTimeout,
		logger:        logger.WithComponent(log.ComponentHTTP),
		reportCache:   cache.NewLRUCache[[]byte](cfg.CacheSize, cfg.CacheTTL, c),
		caches:        cache.NewManager(logger),
	}
	s.limiter = ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
		Clock:             c,
	})
	s.tracer = trace.NewMiddleware(s.clientIP.ExtractClientIP)

	s.caches.Register(s.reportCache)
	s.caches.Start(context.Background(), max(cfg.CacheTTL, minCleanupInterval))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.Handle("GET /api/stats/summary", s.protect(s.handleSummary))
	mux.Handle("GET /api/stats/trends", s.protect(s.handleTrends))
	mux.Handle("GET /api/stats/categories", s.protect(s.handleCategories))
	mux.Handle("GET /api/stats/behavior", s.protect(s.handleBehavior))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           log.Middleware(logger)(s.tracer.Middleware(headers.Middleware(mux))),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.ReportTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// protect requires a bearer token and rate limits per owner.
func (s *Server) protect(h http.HandlerFunc) http.Handler {
	limit := s.limiter.Middleware(s.rateLimitKey, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldOwnerID, OwnerFromContext(r.Context()),
			log.FieldPath, r.URL.Path)
		TooManyRequestsError().Write(w)
	})
	return s.auth.Middleware(limit(h))
}

func (s *Server) rateLimitKey(r *http.Request) string {
	if owner := OwnerFromContext(r.Context()); owner != "" {
		return "owner:" + owner
	}
	return "ip:" + s.clientIP.ExtractClientIP(r)
}

func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
