package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/metaforge-dev/metaforge/pkg/protocol"
)

// handler builds the gateway routes. The gateway wraps the same router
// as the socket transports: POST /api/actions/{action} carries a request
// envelope body (action taken from the URL), and the response is the
// usual envelope with an HTTP status derived from the error prefix.
func (s *Server) handler(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Post("/api/token", s.handleToken)

	r.Group(func(g chi.Router) {
		g.Use(s.auth.Middleware)
		g.Post("/api/actions/{action}", s.handleAction)
		g.Get("/api/types", s.handleTypes)
	})

	r.Get("/ws", s.handleWS(ctx))
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"pool":   s.pool.Stats(),
	})
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil {
		http.Error(w, "authentication disabled", http.StatusNotFound)
		return
	}

	var body struct {
		AccessKey string `json:"accessKey"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	token, expires, err := s.auth.Authenticate(body.AccessKey)
	if err != nil {
		http.Error(w, "invalid access key", http.StatusUnauthorized)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":     token,
		"expiresAt": expires.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var req protocol.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.Action = chi.URLParam(r, "action")
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	resp := s.router.Dispatch(r.Context(), &req)
	writeJSON(w, statusFor(resp), resp)
}

func (s *Server) handleTypes(w http.ResponseWriter, r *http.Request) {
	resp := s.router.Dispatch(r.Context(), &protocol.Request{
		ID:     uuid.NewString(),
		Action: "listTypes",
	})
	writeJSON(w, statusFor(resp), resp)
}

// statusFor maps the envelope's error prefix onto an HTTP status. The
// envelope itself is authoritative; the status is a convenience for
// plain HTTP clients.
func statusFor(resp *protocol.Response) int {
	if resp.Success {
		return http.StatusOK
	}
	switch {
	case strings.HasPrefix(resp.Error, "not found: "):
		return http.StatusNotFound
	case strings.HasPrefix(resp.Error, "validation: "):
		return http.StatusBadRequest
	case strings.HasPrefix(resp.Error, "provider unavailable: "):
		return http.StatusServiceUnavailable
	case strings.HasPrefix(resp.Error, "not implemented: "):
		return http.StatusNotImplemented
	case strings.HasPrefix(resp.Error, "timeout: "):
		return http.StatusGatewayTimeout
	case strings.HasPrefix(resp.Error, "unknown action: "):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// requestLogger logs one line per gateway request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rw.status),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote", r.RemoteAddr))
	})
}

// statusWriter captures the response status for logging.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Hijack keeps the WebSocket upgrade working through the logging wrapper.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hj.Hijack()
}
