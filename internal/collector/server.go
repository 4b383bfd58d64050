package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultMaxBodySize is the request body limit.
	DefaultMaxBodySize = 5 * 1024 * 1024

	// DefaultRateLimit is the sustained per-client request rate.
	DefaultRateLimit = 5

	// DefaultBurst is the per-client burst size.
	DefaultBurst = 20

	// clientIdleTTL is how long an idle client's limiter is kept.
	clientIdleTTL = 10 * time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Server receives report uploads over HTTP.
type Server struct {
	store       Store
	logger      *slog.Logger
	maxBodySize int64

	// A zero limit disables rate limiting.
	limit rate.Limit
	burst int

	mu      sync.Mutex
	clients map[string]*clientLimiter
	now     func() time.Time
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the logger.
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMaxBodySize sets the request body limit in bytes.
func WithMaxBodySize(n int64) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.maxBodySize = n
		}
	}
}

// WithRateLimit sets the per-client token bucket. A non-positive perSecond
// disables rate limiting.
func WithRateLimit(perSecond float64, burst int) ServerOption {
	return func(s *Server) {
		if perSecond <= 0 {
			s.limit = 0
			return
		}
		s.limit = rate.Limit(perSecond)
		s.burst = max(burst, 1)
	}
}

// NewServer creates a Server backed by store.
func NewServer(store Store, opts ...ServerOption) *Server {
	s := &Server{
		store:       store,
		logger:      slog.New(slog.DiscardHandler),
		maxBodySize: DefaultMaxBodySize,
		limit:       DefaultRateLimit,
		burst:       DefaultBurst,
		clients:     make(map[string]*clientLimiter),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP routes:
//
//	POST /report   store reports
//	GET  /reports  list stored reports (?limit=n)
//	GET  /healthz  liveness check
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /report", s.handleReport)
	mux.HandleFunc("GET /reports", s.handleList)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	return s.withCORS(s.withRateLimit(mux))
}

// ListenAndServe serves Handler on addr until ctx is canceled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("collector listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	go s.sweepClients(ctx)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down collector: %w", err)
		}
		return nil
	}
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	reports, err := s.decodeReports(w, r)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, ErrPayloadTooLarge):
			status = http.StatusRequestEntityTooLarge
		case errors.Is(err, ErrInvalidPayload):
			status = http.StatusBadRequest
		}
		s.logger.Warn("rejected report upload", "remote", clientKey(r), "error", err)
		writeJSON(w, status, UploadResponse{OK: false, Error: err.Error()})
		return
	}

	total, err := s.store.Prepend(r.Context(), reports)
	if err != nil {
		s.logger.Error("failed to store reports", "error", err)
		writeJSON(w, http.StatusInternalServerError, UploadResponse{OK: false, Error: err.Error()})
		return
	}

	s.logger.Info("stored reports", "stored", len(reports), "total", total)
	writeJSON(w, http.StatusOK, UploadResponse{OK: true, Stored: len(reports)})
}

// decodeReports accepts {"reports": [...]} or any other JSON value, which is
// stored as a single report. An empty body or JSON null yields no reports.
func (s *Server) decodeReports(w http.ResponseWriter, r *http.Request) ([]json.RawMessage, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: limit is %d bytes", ErrPayloadTooLarge, tooLarge.Limit)
		}
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return []json.RawMessage{}, nil
	}
	if !json.Valid(body) {
		return nil, ErrInvalidPayload
	}

	var envelope struct {
		Reports []json.RawMessage `json:"reports"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Reports != nil {
		return envelope.Reports, nil
	}
	return []json.RawMessage{json.RawMessage(body)}, nil
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, UploadResponse{OK: false, Error: "invalid limit"})
			return
		}
		limit = n
	}

	reports, err := s.store.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list reports", "error", err)
		writeJSON(w, http.StatusInternalServerError, UploadResponse{OK: false, Error: err.Error()})
		return
	}
	if reports == nil {
		reports = []json.RawMessage{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "reports": reports})
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limit > 0 && !s.allow(clientKey(r)) {
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, UploadResponse{OK: false, Error: "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withCORS allows browser extensions on any origin to upload.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) allow(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients[key]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.clients[key] = c
	}
	c.lastSeen = s.now()
	return c.limiter.Allow()
}

// sweepClients drops limiters of clients idle longer than clientIdleTTL.
func (s *Server) sweepClients(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.evictIdle()
		}
	}
}

func (s *Server) evictIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-clientIdleTTL)
	for key, c := range s.clients {
		if c.lastSeen.Before(cutoff) {
			delete(s.clients, key)
		}
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errchkjson // client disconnects are not actionable
}
