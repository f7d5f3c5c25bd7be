package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/metaforge-dev/metaforge/pkg/protocol"
)

// Time allowed to write one response to the peer.
const writeWait = 10 * time.Second

// conn is one accepted TCP or Unix socket connection. A reader goroutine
// scans newline-framed requests and submits them to the pool; a writer
// goroutine drains the outbound channel. Responses therefore come back in
// completion order, not request order; callers correlate by id.
type conn struct {
	id  string
	nc  net.Conn
	srv *Server

	out     chan *protocol.Response
	done    chan struct{}
	pending sync.WaitGroup
	once    sync.Once
}

func newConn(srv *Server, nc net.Conn) *conn {
	return &conn{
		id:   uuid.NewString()[:8],
		nc:   nc,
		srv:  srv,
		out:  make(chan *protocol.Response, 64),
		done: make(chan struct{}),
	}
}

// serve runs the reader loop until the peer disconnects or the server
// shuts down, then waits for in-flight requests so their responses still
// reach the writer before the connection closes.
func (c *conn) serve(ctx context.Context) {
	c.srv.wg.Add(1)
	go func() {
		defer c.srv.wg.Done()
		c.writePump()
	}()

	c.srv.logger.Debug("connection opened",
		zap.String("conn", c.id),
		zap.String("remote", c.nc.RemoteAddr().String()))

	scanner := bufio.NewScanner(c.nc)
	scanner.Buffer(make([]byte, 64*1024), c.srv.config.MaxLineBytes)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var req protocol.Request
		if err := json.Unmarshal(line, &req); err != nil {
			// The connection stays usable after a malformed line; echo
			// whatever id we can still dig out of it.
			c.reply(&protocol.Response{
				ID:    extractID(line),
				Error: "validation: malformed request: " + err.Error(),
			})
			continue
		}

		c.pending.Add(1)
		c.srv.pool.Submit(task{ctx: ctx, req: &req, reply: c.taskReply})
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		if errors.Is(err, bufio.ErrTooLong) {
			c.srv.logger.Warn("request line over limit, closing connection",
				zap.String("conn", c.id),
				zap.Int("limit", c.srv.config.MaxLineBytes))
		} else {
			c.srv.logger.Debug("connection read failed",
				zap.String("conn", c.id),
				zap.Error(err))
		}
	}

	c.pending.Wait()
	c.close()
}

// reply queues a response for writing. Safe after close; the response is
// dropped once the connection is gone.
func (c *conn) reply(resp *protocol.Response) {
	select {
	case c.out <- resp:
	case <-c.done:
	}
}

func (c *conn) taskReply(resp *protocol.Response) {
	defer c.pending.Done()
	c.reply(resp)
}

// writePump owns all writes and the final socket close, so queued
// responses still flush after the reader stops.
func (c *conn) writePump() {
	defer c.nc.Close()

	enc := json.NewEncoder(c.nc)
	for {
		select {
		case resp := <-c.out:
			c.nc.SetWriteDeadline(time.Now().Add(writeWait))
			if err := enc.Encode(resp); err != nil {
				c.srv.logger.Debug("connection write failed",
					zap.String("conn", c.id),
					zap.Error(err))
				c.close()
				return
			}
		case <-c.done:
			// Flush whatever was queued before the close.
			for {
				select {
				case resp := <-c.out:
					c.nc.SetWriteDeadline(time.Now().Add(writeWait))
					if err := enc.Encode(resp); err != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}

// shutdownRead half-closes the connection: the reader sees EOF and stops
// accepting work while queued responses still go out. Used by graceful
// shutdown.
func (c *conn) shutdownRead() {
	type closeReader interface {
		CloseRead() error
	}
	if cr, ok := c.nc.(closeReader); ok {
		cr.CloseRead()
		return
	}
	c.close()
}

// close signals shutdown to both pumps. The socket itself is closed by
// the writer once it has flushed.
func (c *conn) close() {
	c.once.Do(func() {
		close(c.done)
		c.srv.removeConn(c)
		c.srv.logger.Debug("connection closed", zap.String("conn", c.id))
	})
}

// extractID best-effort parses the id out of a line that failed full
// decoding, so even malformed requests get a correlated error back.
func extractID(line []byte) string {
	var probe struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(line, &probe); err != nil {
		return ""
	}
	return probe.ID
}
