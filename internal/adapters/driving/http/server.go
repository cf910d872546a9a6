package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/custodia-labs/maintenance-agent/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// DefaultMaxBodyBytes bounds /analyze request bodies (base64 images)
const DefaultMaxBodyBytes int64 = 20 << 20

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	logger     *slog.Logger

	// Services
	analysisService driving.AnalysisService
	logService      driving.LogService
	indexService    driving.IndexService
	authService     driving.AuthService

	// Infrastructure
	logStore Pinger // Log store health check
	lock     Pinger // Rebuild lock backend health check (optional)

	corsOrigins  []string
	rateLimit    RateLimitConfig
	maxBodyBytes int64
}

// Config holds server configuration
type Config struct {
	Host         string
	Port         int
	Version      string
	CORSOrigins  []string
	RateLimit    RateLimitConfig
	MaxBodyBytes int64
	Logger       *slog.Logger
}

// Services bundles the driving ports the server exposes
type Services struct {
	Analysis driving.AnalysisService
	Logs     driving.LogService
	Index    driving.IndexService
	Auth     driving.AuthService

	LogStore Pinger
	Lock     Pinger // can be nil
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:         "0.0.0.0",
		Port:         8080,
		Version:      "dev",
		CORSOrigins:  []string{"*"},
		RateLimit:    RateLimitConfig{RequestsPerSecond: 10, Burst: 20},
		MaxBodyBytes: DefaultMaxBodyBytes,
	}
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, svc Services) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}

	s := &Server{
		router:          http.NewServeMux(),
		version:         cfg.Version,
		logger:          logger,
		analysisService: svc.Analysis,
		logService:      svc.Logs,
		indexService:    svc.Index,
		authService:     svc.Auth,
		logStore:        svc.LogStore,
		lock:            svc.Lock,
		corsOrigins:     cfg.CORSOrigins,
		rateLimit:       cfg.RateLimit,
		maxBodyBytes:    maxBody,
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the router wrapped in the global middleware chain.
// Order, outermost first: recovery, request id, logging, CORS.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.router
	h = NewCORSMiddleware(s.corsOrigins).Handler(h)
	h = NewLoggingMiddleware(s.logger).Handler(h)
	h = NewRequestIDMiddleware().Handler(h)
	h = NewRecoveryMiddleware(s.logger).Handler(h)
	return h
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.authService)
	limiter := NewRateLimitMiddleware(s.rateLimit)
	canResolve := authMiddleware.RequireRole(resolveRoles...)

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)
	s.router.HandleFunc("GET /swagger/doc.json", s.handleSwaggerDoc)

	// Diagnosis (public, rate limited per client address)
	s.router.Handle("POST /analyze", limiter.Handler(http.HandlerFunc(s.handleAnalyze)))
	s.router.Handle("POST /api/v1/analyze", limiter.Handler(http.HandlerFunc(s.handleAnalyze)))

	// Auth endpoints
	s.router.HandleFunc("POST /api/v1/auth/login", s.handleLogin)
	s.router.Handle("GET /api/v1/me",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleGetMe)))

	// Reporting (any authenticated operator)
	s.router.Handle("GET /api/v1/logs",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleListLogs)))
	s.router.Handle("GET /api/v1/logs/report",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleLogReport)))
	s.router.Handle("GET /api/v1/logs/overdue",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleOverdueLogs)))
	s.router.Handle("GET /api/v1/logs/{id}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleGetLog)))

	// Resolution workflow (operators and admins)
	s.router.Handle("POST /api/v1/logs/{id}/resolve",
		authMiddleware.Authenticate(canResolve(http.HandlerFunc(s.handleResolveLog))))
	s.router.Handle("POST /api/v1/logs/{id}/unresolve",
		authMiddleware.Authenticate(canResolve(http.HandlerFunc(s.handleUnresolveLog))))

	// Manual index
	s.router.Handle("GET /api/v1/index/status",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleIndexStatus)))
	s.router.Handle("POST /api/v1/index/search",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleIndexSearch)))
	s.router.Handle("POST /api/v1/admin/index/rebuild",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleRebuildIndex))))
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the configured listen address
func (s *Server) Addr() string {
	return s.httpServer.Addr
}
