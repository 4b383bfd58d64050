package message

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"slices"
	"time"
)

// DefaultMaxRequestSize bounds the body of one message.
const DefaultMaxRequestSize = 1 * 1024 * 1024

// ErrNotLoopback is returned when the agent is asked to listen on an
// address other than localhost.
var ErrNotLoopback = errors.New("agent must listen on a loopback address")

// Server exposes a Handler over HTTP.
//
// Any page open in the user's browser can reach a loopback port, so
// requests carrying an Origin header are served only when that origin is
// allowed, and messages must be sent as application/json. Requests without
// an Origin come from local tools such as curl and are accepted.
type Server struct {
	handler *Handler
	origins []string
	logger  *slog.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithAllowedOrigins sets the browser origins allowed to call the agent,
// for example chrome-extension://<extension id>.
func WithAllowedOrigins(origins ...string) ServerOption {
	return func(s *Server) {
		s.origins = append(s.origins, origins...)
	}
}

// NewServer creates a Server for h. No browser origin is allowed unless
// WithAllowedOrigins is given.
func NewServer(h *Handler, logger *slog.Logger, opts ...ServerOption) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{handler: h, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP routes:
//
//	POST /message  handle one Request
//	GET  /healthz  liveness check
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /message", s.handleMessage)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, Response{OK: true})
	})
	return s.withOriginCheck(mux)
}

// ListenAndServe serves on addr until ctx is canceled. addr must resolve to
// a loopback interface.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if err := CheckLoopback(addr); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("agent listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down agent: %w", err)
		}
		return nil
	}
}

// CheckLoopback reports whether addr (host:port) names localhost or a
// loopback IP.
func CheckLoopback(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid agent address %q: %w", addr, err)
	}
	if host == "localhost" {
		return nil
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrNotLoopback, addr)
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	if !isJSON(r.Header.Get("Content-Type")) {
		writeJSON(w, http.StatusUnsupportedMediaType, Response{OK: false, Error: "messages must be sent as application/json"})
		return
	}

	var req Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, DefaultMaxRequestSize))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{OK: false, Error: "invalid message: " + err.Error()})
		return
	}

	resp := s.handler.Handle(r.Context(), req)
	writeJSON(w, http.StatusOK, resp)
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}

// withOriginCheck rejects browser requests from origins that are not
// allowed and answers CORS preflights for those that are.
func (s *Server) withOriginCheck(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Origin")

		origin := r.Header.Get("Origin")
		if origin != "" {
			if !slices.Contains(s.origins, origin) {
				s.logger.Warn("rejected request from disallowed origin", "origin", origin, "path", r.URL.Path)
				writeJSON(w, http.StatusForbidden, Response{OK: false, Error: "origin not allowed"})
				return
			}
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}

		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errchkjson // client disconnects are not actionable
}
