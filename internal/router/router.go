// Package router dispatches request envelopes to registered action
// handlers. It is the one boundary every component error crosses on its
// way to a caller: handlers return plain errors, the router times the
// call, classifies the error into a stable message prefix, recovers
// panics, and always produces a response that echoes the request id.
package router

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/metaforge-dev/metaforge/internal/auth"
	"github.com/metaforge-dev/metaforge/internal/catalog"
	"github.com/metaforge-dev/metaforge/internal/object"
	"github.com/metaforge-dev/metaforge/internal/pattern"
	"github.com/metaforge-dev/metaforge/internal/provider"
	"github.com/metaforge-dev/metaforge/pkg/protocol"
)

// HandlerFunc processes one request and returns the response data or an
// error. Returned errors are classified by the router; handlers never
// build response envelopes themselves.
type HandlerFunc func(ctx context.Context, req *protocol.Request) (any, error)

// Router maps action names to handlers. Lookup is case-insensitive;
// names are stored lower-cased.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	logger   *zap.Logger
}

// New creates an empty router
func New(logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		handlers: make(map[string]HandlerFunc),
		logger:   logger,
	}
}

// Register adds a handler under the given action name. Registering the
// same name twice is a wiring bug, so it panics rather than silently
// shadowing the earlier handler.
func (r *Router) Register(action string, fn HandlerFunc) {
	key := strings.ToLower(action)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[key]; exists {
		panic(fmt.Sprintf("action already registered: %s", action))
	}
	r.handlers[key] = fn
}

// Actions returns the registered action names, lower-cased and sorted.
func (r *Router) Actions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch resolves and runs the handler for req. It never panics and
// never returns nil: unknown actions, handler errors, and handler panics
// all become error responses with the request id echoed and the elapsed
// time recorded.
func (r *Router) Dispatch(ctx context.Context, req *protocol.Request) (resp *protocol.Response) {
	start := time.Now()
	resp = &protocol.Response{}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("handler panicked",
				zap.String("id", resp.ID),
				zap.Any("panic", p),
				zap.ByteString("stack", debug.Stack()))
			resp.Success = false
			resp.Data = nil
			resp.Error = fmt.Sprintf("internal: %v", p)
		}
		resp.ProcessingTimeMs = time.Since(start).Milliseconds()
	}()

	if req == nil {
		resp.Error = "internal: nil request"
		return resp
	}
	resp.ID = req.ID

	r.mu.RLock()
	fn, ok := r.handlers[strings.ToLower(req.Action)]
	r.mu.RUnlock()

	if !ok {
		resp.Error = fmt.Sprintf("unknown action: %s", req.Action)
		r.logger.Warn("unknown action",
			zap.String("id", req.ID),
			zap.String("action", req.Action))
		return resp
	}

	data, err := fn(ctx, req)
	if err != nil {
		resp.Error = classify(err)
		r.logger.Warn("action failed",
			zap.String("id", req.ID),
			zap.String("action", req.Action),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return resp
	}

	resp.Success = true
	resp.Data = data
	r.logger.Debug("action completed",
		zap.String("id", req.ID),
		zap.String("action", req.Action),
		zap.Duration("duration", time.Since(start)))
	return resp
}

// classify converts a handler error into the wire message. Callers match
// on the prefix, so the mapping here is part of the protocol: "not
// found:", "validation:", "provider unavailable:", "not implemented:",
// "timeout:", and "internal:" for anything unrecognized. Partial pattern
// builds are not errors and never pass through here; the build report
// carries its own flag.
func classify(err error) string {
	switch {
	case errors.Is(err, catalog.ErrTypeNotFound),
		errors.Is(err, catalog.ErrEnumNotFound),
		errors.Is(err, object.ErrObjectNotFound),
		errors.Is(err, object.ErrUnknownCollection),
		errors.Is(err, pattern.ErrPatternNotFound),
		errors.Is(err, provider.ErrNotFound):
		return "not found: " + err.Error()
	case object.IsValidationFailed(err),
		errors.Is(err, object.ErrUnknownProperty),
		errors.Is(err, object.ErrReadOnlyProperty),
		errors.Is(err, auth.ErrInvalidKey),
		errors.Is(err, auth.ErrInvalidToken):
		return "validation: " + err.Error()
	case errors.Is(err, provider.ErrUnavailable):
		return "provider unavailable: " + err.Error()
	case errors.Is(err, object.ErrCascadeNotImplemented):
		return "not implemented: " + err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout: " + err.Error()
	default:
		return "internal: " + err.Error()
	}
}
