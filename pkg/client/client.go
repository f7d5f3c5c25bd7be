// Package client is the Go client for the metaforge daemon protocol:
// newline-framed JSON request/response envelopes over a single persistent
// TCP or Unix socket connection, multiplexed by correlation ID.
//
// A Client is safe for concurrent use. Calls from any number of goroutines
// share one connection; the read loop routes each response back to its
// caller by ID, so responses may complete in any order.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/metaforge-dev/metaforge/pkg/protocol"
)

const (
	// DefaultTimeout bounds how long a call waits for its response before
	// abandoning it. Override per client with WithTimeout.
	DefaultTimeout = 30 * time.Second

	dialTimeout  = 10 * time.Second
	writeWait    = 10 * time.Second
	maxLineBytes = 1 << 20
)

var (
	// ErrTimeout is returned when no response arrived within the call
	// timeout. The request is abandoned client-side only: the server may
	// still complete it, but its response will be dropped on arrival.
	ErrTimeout = errors.New("request timed out")

	// ErrClosed is returned for calls made after Close, or calls that were
	// in flight when the connection went away cleanly.
	ErrClosed = errors.New("client closed")
)

// Option configures a Client at dial time.
type Option func(*Client)

// WithTimeout sets the per-call response timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger used for dropped-response and abandonment
// diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client is one multiplexed connection to a metaforge daemon.
type Client struct {
	nc      net.Conn
	logger  *zap.Logger
	timeout time.Duration

	// writeMu serializes request lines onto the connection.
	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan []byte
	err     error

	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to addr and starts the read loop. Accepted forms are
// "tcp://host:port", "unix:///path/to.sock", and a bare "host:port"
// (treated as TCP).
func Dial(addr string, opts ...Option) (*Client, error) {
	network, target := "tcp", addr
	switch {
	case strings.HasPrefix(addr, "tcp://"):
		target = strings.TrimPrefix(addr, "tcp://")
	case strings.HasPrefix(addr, "unix://"):
		network, target = "unix", strings.TrimPrefix(addr, "unix://")
	}

	nc, err := net.DialTimeout(network, target, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	c := &Client{
		nc:      nc,
		logger:  zap.NewNop(),
		timeout: DefaultTimeout,
		pending: make(map[string]chan []byte),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.readLoop()
	return c, nil
}

// Close tears down the connection. In-flight calls fail with ErrClosed.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.nc.Close()
	})
	return err
}

// Call sends one request and waits for its response envelope. A failure
// envelope is returned as-is, not as an error; err is non-nil only for
// transport problems, timeout, or context cancellation.
func (c *Client) Call(ctx context.Context, action, objectType string, params map[string]any) (*protocol.Response, error) {
	return c.Do(ctx, &protocol.Request{
		Action:     action,
		ObjectType: objectType,
		Parameters: params,
	})
}

// Do sends req and waits for the matching response. A missing ID is
// filled in with a fresh uuid.
func (c *Client) Do(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	ch := make(chan []byte, 1)
	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return nil, err
	}
	c.pending[req.ID] = ch
	c.mu.Unlock()
	defer c.forget(req.ID)

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	c.writeMu.Lock()
	c.nc.SetWriteDeadline(time.Now().Add(writeWait))
	_, err = c.nc.Write(append(data, '\n'))
	c.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case line := <-ch:
		var resp protocol.Response
		if err := json.Unmarshal(line, &resp); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		return &resp, nil
	case <-timer.C:
		c.logger.Debug("abandoning request",
			zap.String("id", req.ID),
			zap.String("action", req.Action),
			zap.Duration("timeout", c.timeout))
		return nil, fmt.Errorf("%w: no response to %s within %s", ErrTimeout, req.Action, c.timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, c.deadErr()
	}
}

func (c *Client) forget(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Client) deadErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	return ErrClosed
}

// readLoop is the single reader: it routes each response line to the
// caller registered under its ID and drops lines nobody is waiting for.
func (c *Client) readLoop() {
	scanner := bufio.NewScanner(c.nc)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var probe struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(line, &probe); err != nil {
			c.logger.Debug("discarding unparseable response line", zap.Error(err))
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[probe.ID]
		if ok {
			delete(c.pending, probe.ID)
		}
		c.mu.Unlock()

		if !ok {
			// The caller gave up on it, or it was never ours.
			c.logger.Debug("dropping response for abandoned request",
				zap.String("id", probe.ID))
			continue
		}
		// The channel is buffered and the entry is gone from the map, so
		// this send cannot block even if the caller has already left.
		ch <- append([]byte(nil), line...)
	}

	err := scanner.Err()
	if err == nil || errors.Is(err, net.ErrClosed) {
		err = ErrClosed
	} else {
		err = fmt.Errorf("connection lost: %w", err)
	}

	c.mu.Lock()
	c.err = err
	c.pending = make(map[string]chan []byte)
	c.mu.Unlock()
	close(c.done)
	c.Close()
}
