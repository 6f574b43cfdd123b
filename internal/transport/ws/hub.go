// Package ws exposes the realtime call feed over websockets. One connection
// per user: a new connection takes over the user's gateway subscription, so
// the most recent device wins. Each connection carries its own incoming-call
// coordinator, so at most one offer is visible at a time and accept/reject
// can be answered in-band.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/telecare-api/internal/application/call"
	"github.com/telecare-api/internal/domain"
	"github.com/telecare-api/internal/transport/http/middleware"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Frame is the wire envelope pushed to clients.
type Frame struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

const (
	frameTypeCallNotification = "call_notification"
	frameTypeCallAccepted     = "call_accepted"
	frameTypeCallRejected     = "call_rejected"
	frameTypeCallEnded        = "call_ended"
	frameTypeError            = "error"
)

// clientAction is what clients send upstream to answer the visible offer or
// hang up an active call.
type clientAction struct {
	Action string `json:"action"`
	CallID string `json:"call_id,omitempty"`
}

// Hub upgrades authenticated requests and bridges the gateway's realtime
// feed onto websocket connections.
type Hub struct {
	gateway  call.Gateway
	upgrader websocket.Upgrader
}

func NewHub(gw call.Gateway, allowedOrigins []string) *Hub {
	allowAll := len(allowedOrigins) == 1 && allowedOrigins[0] == "*"
	return &Hub{
		gateway: gw,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowAll {
					return true
				}
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true // non-browser client
				}
				for _, o := range allowedOrigins {
					if o == origin {
						return true
					}
				}
				return false
			},
		},
	}
}

// Serve handles one feed connection. Requires auth middleware upstream.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "profile_id", claims.ProfileID, "err", err)
		return
	}

	c := &feedConn{ws: conn}
	coord := call.NewCoordinator(claims.ProfileID, h.gateway, func(n domain.EnrichedCallNotification) {
		c.push(Frame{Type: frameTypeCallNotification, Data: n})
	})
	coord.Start()

	// Offers that arrived while the client was away are replayed so the
	// overlay state survives reconnects.
	if err := coord.Reconcile(r.Context()); err != nil {
		slog.Warn("active-call reconcile failed", "profile_id", claims.ProfileID, "err", err)
	}

	go c.pingLoop()
	c.readLoop(r.Context(), coord)

	coord.Stop()
	c.close()
}

// feedConn serializes writes; the coordinator surface callback, the action
// responses and the ping loop all write.
type feedConn struct {
	ws     *websocket.Conn
	mu     sync.Mutex
	closed bool
}

func (c *feedConn) push(f Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteJSON(f); err != nil {
		slog.Warn("feed push failed", "frame_type", f.Type, "err", err)
	}
}

func (c *feedConn) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for range ticker.C {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		err := c.ws.WriteMessage(websocket.PingMessage, nil)
		c.mu.Unlock()
		if err != nil {
			return
		}
	}
}

// readLoop handles client actions until the connection drops. Malformed
// frames are skipped rather than killing the feed.
func (c *feedConn) readLoop(ctx context.Context, coord *call.Coordinator) {
	c.ws.SetReadLimit(512)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		var msg clientAction
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		c.handle(ctx, coord, msg)
	}
}

func (c *feedConn) handle(ctx context.Context, coord *call.Coordinator, msg clientAction) {
	switch msg.Action {
	case "accept":
		res, err := coord.Accept(ctx)
		if err != nil {
			c.push(Frame{Type: frameTypeError, Data: map[string]string{"error": "no call offer to answer"}})
			return
		}
		c.push(Frame{Type: frameTypeCallAccepted, Data: res.Handoff})
	case "reject":
		if _, err := coord.Reject(ctx); err != nil {
			c.push(Frame{Type: frameTypeError, Data: map[string]string{"error": "no call offer to answer"}})
			return
		}
		c.push(Frame{Type: frameTypeCallRejected})
	case "end":
		if msg.CallID == "" {
			c.push(Frame{Type: frameTypeError, Data: map[string]string{"error": "call_id is required"}})
			return
		}
		// Best-effort, same as an in-call hang-up over HTTP.
		_ = coord.EndCall(ctx, msg.CallID)
		c.push(Frame{Type: frameTypeCallEnded, Data: map[string]string{"call_id": msg.CallID}})
	}
}

func (c *feedConn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	_ = c.ws.Close()
}
