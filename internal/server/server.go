// Package server exposes the action router over persistent TCP and Unix
// socket connections (newline-framed JSON), plus an HTTP gateway with a
// WebSocket transport. All transports share one dispatch pool and one
// router, so every surface behaves identically.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/metaforge-dev/metaforge/internal/auth"
	"github.com/metaforge-dev/metaforge/internal/router"
)

// Defaults for pool sizing and framing.
const (
	DefaultWorkers    = 8
	DefaultQueueDepth = 64
	DefaultMaxLine    = 1 << 20 // 1 MB
)

// Config holds the endpoint configuration. Empty addresses disable the
// corresponding listener; at least one must be set.
type Config struct {
	// TCPAddr is the TCP listen address, e.g. "127.0.0.1:7171"
	TCPAddr string

	// SocketPath is the Unix socket path
	SocketPath string

	// HTTPAddr is the HTTP gateway listen address
	HTTPAddr string

	// Workers is the dispatch pool size
	Workers int

	// QueueDepth is the pending request buffer size
	QueueDepth int

	// MaxLineBytes caps one newline-framed request
	MaxLineBytes int
}

// DefaultConfig returns the standard endpoint configuration: TCP only,
// eight workers.
func DefaultConfig() Config {
	return Config{
		TCPAddr:      "127.0.0.1:7171",
		Workers:      DefaultWorkers,
		QueueDepth:   DefaultQueueDepth,
		MaxLineBytes: DefaultMaxLine,
	}
}

// Server accepts connections and feeds parsed requests to the dispatch
// pool. One Server may listen on TCP, Unix socket, and HTTP at once.
type Server struct {
	config Config
	router *router.Router
	auth   *auth.Service
	pool   *Pool
	logger *zap.Logger

	mu        sync.Mutex
	listeners []net.Listener
	httpLn    net.Listener
	httpSrv   *http.Server
	conns     map[*conn]struct{}
	wsConns   map[*wsClient]struct{}
	started   bool
	closed    bool

	wg        sync.WaitGroup
	acceptWG  sync.WaitGroup
	cancelCtx context.CancelFunc
}

// New creates a server over the given router. authSvc may be nil, which
// disables the HTTP/WS auth check.
func New(cfg Config, r *router.Router, authSvc *auth.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = DefaultQueueDepth
	}
	if cfg.MaxLineBytes <= 0 {
		cfg.MaxLineBytes = DefaultMaxLine
	}
	return &Server{
		config:  cfg,
		router:  r,
		auth:    authSvc,
		pool:    NewPool(r, cfg.Workers, cfg.QueueDepth, logger),
		logger:  logger,
		conns:   make(map[*conn]struct{}),
		wsConns: make(map[*wsClient]struct{}),
	}
}

// Start opens every configured listener and begins accepting. It returns
// once the listeners are bound; accept loops run in the background until
// Shutdown or ctx cancellation.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.New("server already started")
	}
	if s.config.TCPAddr == "" && s.config.SocketPath == "" && s.config.HTTPAddr == "" {
		return errors.New("no listen addresses configured")
	}

	ctx, cancel := context.WithCancel(ctx)

	// Bind everything before running anything, so a failed Start leaves no
	// goroutines behind.
	closeAll := func() {
		cancel()
		for _, ln := range s.listeners {
			ln.Close()
		}
		s.listeners = nil
		if s.httpLn != nil {
			s.httpLn.Close()
			s.httpLn = nil
		}
	}

	if s.config.TCPAddr != "" {
		ln, err := net.Listen("tcp", s.config.TCPAddr)
		if err != nil {
			closeAll()
			return fmt.Errorf("failed to listen on %s: %w", s.config.TCPAddr, err)
		}
		s.listeners = append(s.listeners, ln)
	}

	if s.config.SocketPath != "" {
		// A previous unclean shutdown can leave the socket file behind.
		if err := os.Remove(s.config.SocketPath); err != nil && !os.IsNotExist(err) {
			closeAll()
			return fmt.Errorf("failed to remove stale socket %s: %w", s.config.SocketPath, err)
		}
		ln, err := net.Listen("unix", s.config.SocketPath)
		if err != nil {
			closeAll()
			return fmt.Errorf("failed to listen on %s: %w", s.config.SocketPath, err)
		}
		s.listeners = append(s.listeners, ln)
	}

	if s.config.HTTPAddr != "" {
		ln, err := net.Listen("tcp", s.config.HTTPAddr)
		if err != nil {
			closeAll()
			return fmt.Errorf("failed to listen on %s: %w", s.config.HTTPAddr, err)
		}
		s.httpLn = ln
		s.httpSrv = &http.Server{
			Handler:           s.handler(ctx),
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	s.cancelCtx = cancel
	s.pool.Start()

	// Parent cancellation tears everything down. Shutdown cancels this ctx
	// last, so the watcher always exits; its work is then a no-op.
	go func() {
		<-ctx.Done()
		s.mu.Lock()
		lns := append([]net.Listener(nil), s.listeners...)
		hs := s.httpSrv
		open := make([]*conn, 0, len(s.conns))
		for c := range s.conns {
			open = append(open, c)
		}
		openWS := make([]*wsClient, 0, len(s.wsConns))
		for c := range s.wsConns {
			openWS = append(openWS, c)
		}
		s.mu.Unlock()
		for _, ln := range lns {
			ln.Close()
		}
		if hs != nil {
			hs.Close()
		}
		for _, c := range open {
			c.shutdownRead()
		}
		for _, c := range openWS {
			c.shut()
		}
	}()

	for _, ln := range s.listeners {
		s.logger.Info("listening",
			zap.String("transport", ln.Addr().Network()),
			zap.String("addr", ln.Addr().String()))
		s.acceptWG.Add(1)
		go s.acceptLoop(ctx, ln)
	}

	if s.httpSrv != nil {
		s.logger.Info("listening",
			zap.String("transport", "http"),
			zap.String("addr", s.httpLn.Addr().String()))
		s.acceptWG.Add(1)
		go func() {
			defer s.acceptWG.Done()
			if err := s.httpSrv.Serve(s.httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("http gateway failed", zap.Error(err))
			}
		}()
	}

	s.started = true
	return nil
}

// TCPAddr returns the bound TCP address, empty if the TCP listener is
// disabled. Useful when the config asked for port 0.
func (s *Server) TCPAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ln := range s.listeners {
		if ln.Addr().Network() == "tcp" {
			return ln.Addr().String()
		}
	}
	return ""
}

// HTTPAddr returns the bound HTTP gateway address, empty if disabled.
func (s *Server) HTTPAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.httpLn == nil {
		return ""
	}
	return s.httpLn.Addr().String()
}

// Shutdown stops accepting, half-closes every connection so queued
// responses still flush, waits for the connections to wind down, and
// drains the pool. The Unix socket file is removed by the listener close.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.started || s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	listeners := s.listeners
	httpSrv := s.httpSrv
	open := make([]*conn, 0, len(s.conns))
	for c := range s.conns {
		open = append(open, c)
	}
	openWS := make([]*wsClient, 0, len(s.wsConns))
	for c := range s.wsConns {
		openWS = append(openWS, c)
	}
	s.mu.Unlock()

	s.logger.Info("shutting down",
		zap.Int("connections", len(open)),
		zap.Int("websockets", len(openWS)))

	for _, ln := range listeners {
		ln.Close()
	}
	if httpSrv != nil {
		if err := httpSrv.Shutdown(ctx); err != nil {
			s.logger.Warn("http shutdown incomplete", zap.Error(err))
		}
	}
	s.acceptWG.Wait()

	for _, c := range open {
		c.shutdownRead()
	}
	for _, c := range openWS {
		c.shut()
	}
	s.wg.Wait()

	// Every reader is gone, so nothing can submit anymore.
	s.pool.Stop()

	if s.cancelCtx != nil {
		s.cancelCtx()
	}
	s.logger.Info("shutdown complete")
	return nil
}

// Stats reports dispatch pool activity.
func (s *Server) Stats() PoolStats {
	return s.pool.Stats()
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) {
	defer s.acceptWG.Done()

	for {
		nc, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
			s.logger.Warn("accept failed", zap.Error(err))
			continue
		}

		c := newConn(s, nc)
		if !s.addConn(c) {
			nc.Close()
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			c.serve(ctx)
		}()
	}
}

func (s *Server) addConn(c *conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[c] = struct{}{}
	return true
}

func (s *Server) removeConn(c *conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, c)
}

func (s *Server) addWS(c *wsClient) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.wsConns[c] = struct{}{}
	return true
}

func (s *Server) removeWS(c *wsClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.wsConns, c)
}
