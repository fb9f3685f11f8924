package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/jonathan/procurement-caller/internal/catalog"
	"github.com/jonathan/procurement-caller/internal/db"
	"github.com/jonathan/procurement-caller/internal/logger"
	"github.com/jonathan/procurement-caller/internal/orchestrator"
	"github.com/jonathan/procurement-caller/internal/server/ratelimit"
	"github.com/jonathan/procurement-caller/internal/telephony"
	"github.com/sirupsen/logrus"
)

// CallHistory lists archived calls.
type CallHistory interface {
	ListCalls(ctx context.Context, limit int) ([]db.CallRecord, error)
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	orch        *orchestrator.Orchestrator
	catalog     *catalog.Store
	history     CallHistory
	gateway     telephony.Gateway
	renderer    telephony.Renderer
	signatures  *telephony.SignatureValidator
	publicURL   string
	rateLimiter *ratelimit.Limiter
	instructTTL time.Duration
}

// Config holds server configuration
type Config struct {
	Port         int
	Orchestrator *orchestrator.Orchestrator
	Gateway      telephony.Gateway
	Renderer     telephony.Renderer
	// Catalog defaults to an empty store.
	Catalog *catalog.Store
	// History is optional; without it /calls/history answers 503.
	History CallHistory
	// Signatures enables webhook signature checks when set.
	Signatures    *telephony.SignatureValidator
	PublicBaseURL string
	// RateLimit defaults to ratelimit.LoadConfig().
	RateLimit       *ratelimit.Config
	ProviderTimeout time.Duration
}

// New creates a new server instance
func New(cfg Config) (*Server, error) {
	if cfg.Orchestrator == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}
	if cfg.Gateway == nil {
		return nil, fmt.Errorf("telephony gateway is required")
	}
	if cfg.Catalog == nil {
		cfg.Catalog = catalog.NewStore()
	}
	if cfg.RateLimit == nil {
		cfg.RateLimit = ratelimit.LoadConfig()
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = 10 * time.Second
	}

	s := &Server{
		orch:        cfg.Orchestrator,
		catalog:     cfg.Catalog,
		history:     cfg.History,
		gateway:     cfg.Gateway,
		renderer:    cfg.Renderer,
		signatures:  cfg.Signatures,
		publicURL:   cfg.PublicBaseURL,
		rateLimiter: ratelimit.NewLimiter(cfg.RateLimit),
		instructTTL: cfg.ProviderTimeout,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	// Jobs
	mux.HandleFunc("POST /jobs", s.handleCreateJob)
	mux.HandleFunc("GET /jobs", s.handleListJobs)
	mux.HandleFunc("GET /jobs/{id}", s.handleGetJob)
	mux.HandleFunc("POST /jobs/{id}/end", s.handleEndJob)

	// Catalog
	mux.HandleFunc("POST /suppliers/import", s.handleImportSuppliers)
	mux.HandleFunc("GET /suppliers", s.handleListSuppliers)
	mux.HandleFunc("POST /products/import", s.handleImportProducts)
	mux.HandleFunc("GET /products", s.handleListProducts)
	mux.HandleFunc("GET /calls/history", s.handleCallHistory)

	// Provider webhooks
	mux.Handle("POST /webhooks/jobs/{id}/conference", s.withSignature(http.HandlerFunc(s.handleConferenceEvent)))
	mux.Handle("POST /webhooks/jobs/{id}/gather", s.withSignature(http.HandlerFunc(s.handleGather)))
	mux.Handle("POST /webhooks/jobs/{id}/status", s.withSignature(http.HandlerFunc(s.handleCallStatus)))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withRateLimit(s.withLogging(s.withCORS(mux))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the root handler including middleware.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	defer s.rateLimiter.Stop()

	errCh := make(chan error, 1)
	go func() {
		logger.L().Infof("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.L().Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.L().Info("Server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"remote":      r.RemoteAddr,
			"status":      rec.status,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("Request completed")
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(s.extractClientID(r), r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withSignature rejects webhook requests whose provider signature does not
// match. It is a pass-through when no validator is configured.
func (s *Server) withSignature(next http.Handler) http.Handler {
	if s.signatures == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			s.errorResponse(w, http.StatusBadRequest, "Invalid form body")
			return
		}
		fullURL := s.publicURL + r.URL.RequestURI()
		if !s.signatures.Valid(fullURL, r.PostForm, r.Header.Get(telephony.SignatureHeader)) {
			logger.WithFields(logrus.Fields{"path": r.URL.Path}).Warn("Rejected webhook with invalid signature")
			s.errorResponse(w, http.StatusForbidden, "invalid signature")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.L().WithError(err).Error("Error encoding JSON response")
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// errorFor maps err to a status and writes it. Validation failures carry
// the offending fields.
func (s *Server) errorFor(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	var request *orchestrator.ValidationError
	if errors.As(err, &request) {
		s.jsonResponse(w, status, map[string]any{"error": request.Message, "fields": request.Fields})
		return
	}
	if status == http.StatusInternalServerError {
		logger.L().WithError(err).Error("Request failed")
	}
	s.errorResponse(w, status, err.Error())
}

// extractClientID uses the IP address from RemoteAddr.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
	}
	if !info.ResetTime.IsZero() {
		response["reset_at"] = info.ResetTime.Format(time.RFC3339)
	}
	if info.RetryAfter > 0 {
		seconds := int(info.RetryAfter.Seconds()) + 1
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}

	logger.WithFields(logrus.Fields{"limit": info.Limit, "remaining": info.Remaining}).Warn("Rate limit exceeded")
	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
