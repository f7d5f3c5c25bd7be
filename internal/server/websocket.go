package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/metaforge-dev/metaforge/pkg/protocol"
)

const (
	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512 * 1024 // 512KB
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins in development
		// In production, implement proper origin checking
		return true
	},
}

// wsClient is one WebSocket connection: one request envelope per text
// message, responses multiplexed back in completion order. Same router,
// same pool as the socket transports.
type wsClient struct {
	id   string
	conn *websocket.Conn
	srv  *Server

	out  chan *protocol.Response
	done chan struct{}
	once sync.Once
}

// handleWS upgrades and runs a WebSocket session. When auth is enabled
// the token comes from the "token" query parameter or the Authorization
// header; browsers cannot set WS headers, hence the query fallback.
func (s *Server) handleWS(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.auth != nil {
			token := r.URL.Query().Get("token")
			if token == "" {
				token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			}
			if err := s.auth.ValidateToken(token); err != nil {
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}
		}

		conn, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			s.logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		c := &wsClient{
			id:   uuid.NewString()[:8],
			conn: conn,
			srv:  s,
			out:  make(chan *protocol.Response, 64),
			done: make(chan struct{}),
		}
		if !s.addWS(c) {
			conn.Close()
			return
		}

		s.logger.Debug("websocket connected", zap.String("conn", c.id))
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			c.writePump()
		}()
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			c.readPump(ctx)
		}()
	}
}

func (c *wsClient) readPump(ctx context.Context) {
	defer c.shut()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.srv.logger.Debug("websocket read failed",
					zap.String("conn", c.id),
					zap.Error(err))
			}
			return
		}

		var req protocol.Request
		if err := json.Unmarshal(message, &req); err != nil {
			c.reply(&protocol.Response{
				ID:    extractID(message),
				Error: "validation: malformed request: " + err.Error(),
			})
			continue
		}

		c.srv.pool.Submit(task{ctx: ctx, req: &req, reply: c.reply})
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case resp := <-c.out:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(resp); err != nil {
				c.shut()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.shut()
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

func (c *wsClient) reply(resp *protocol.Response) {
	select {
	case c.out <- resp:
	case <-c.done:
	}
}

// shut signals both pumps to stop. Safe to call more than once.
func (c *wsClient) shut() {
	c.once.Do(func() {
		close(c.done)
		c.srv.removeWS(c)
		c.srv.logger.Debug("websocket closed", zap.String("conn", c.id))
	})
}
