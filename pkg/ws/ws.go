// Package ws keeps the live WebSocket sessions of signed-in users so the
// backend can push events (order status changes) to a specific buyer.
//
//	reg := ws.NewRegistry()
//	reg.Start()
//	defer reg.Shutdown()
//
//	// GET /api/ws?token=...
//	ws.Serve(w, r, reg, claims.UserID)
//
//	reg.SendTo(userID, "order.status", payload)
package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/artisanmart/storefront/pkg/logger"
	"github.com/artisanmart/storefront/pkg/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

var ErrRegistryClosed = errors.New("ws: registry is shut down")

// Session is one connected client.
type Session interface {
	// Send queues data and reports whether it was accepted.
	Send(data []byte) bool
	Close()
}

// Event is the frame pushed to clients.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Registry maps user ids to their open sessions. A user may hold several
// (one per tab).
type Registry struct {
	mu       sync.RWMutex
	sessions map[uint]map[Session]struct{}
	started  bool
	closed   bool
}

func NewRegistry() *Registry {
	return &Registry{sessions: map[uint]map[Session]struct{}{}}
}

// Start opens the registry for new sessions.
func (r *Registry) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started, r.closed = true, false
}

// Shutdown closes every session and refuses new ones.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = map[uint]map[Session]struct{}{}
	r.closed = true
	r.mu.Unlock()

	for _, set := range all {
		for s := range set {
			s.Close()
		}
	}
	metrics.LiveSessions.Set(0)
}

// Add registers s for userID.
func (r *Registry) Add(userID uint, s Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || !r.started {
		return ErrRegistryClosed
	}
	set, ok := r.sessions[userID]
	if !ok {
		set = map[Session]struct{}{}
		r.sessions[userID] = set
	}
	set[s] = struct{}{}
	metrics.LiveSessions.Inc()
	return nil
}

// Remove drops s. Removing an unknown session is a no-op.
func (r *Registry) Remove(userID uint, s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.sessions[userID]
	if !ok {
		return
	}
	if _, ok := set[s]; !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(r.sessions, userID)
	}
	metrics.LiveSessions.Dec()
}

// Lookup returns the sessions open for userID.
func (r *Registry) Lookup(userID uint) []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Session, 0, len(r.sessions[userID]))
	for s := range r.sessions[userID] {
		out = append(out, s)
	}
	return out
}

// Count returns the number of open sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, set := range r.sessions {
		n += len(set)
	}
	return n
}

// SendTo pushes an event to every session of userID and returns how many
// accepted it. A user with no session is not an error.
func (r *Registry) SendTo(userID uint, event string, data any) (int, error) {
	frame, err := json.Marshal(Event{Event: event, Data: data})
	if err != nil {
		return 0, err
	}
	delivered := 0
	for _, s := range r.Lookup(userID) {
		if s.Send(frame) {
			delivered++
		}
	}
	return delivered, nil
}

// Upgrader holds the websocket handshake settings.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// AllowOrigins restricts the handshake to the given origins. "*" allows
// any.
func AllowOrigins(origins ...string) {
	allowed := map[string]bool{}
	for _, o := range origins {
		allowed[o] = true
	}
	Upgrader.CheckOrigin = func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed["*"] || allowed[origin]
	}
}

// Serve upgrades the request and registers the connection for userID until
// the client goes away.
func Serve(w http.ResponseWriter, r *http.Request, reg *Registry, userID uint) {
	conn, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithCtx(r.Context()).Warn("ws: upgrade failed", "error", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, 64), done: make(chan struct{})}
	if err := reg.Add(userID, c); err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(writeWait))
		conn.Close()
		return
	}
	logger.Debug("ws: session opened", "user_id", userID)

	go c.writePump()
	go func() {
		c.readPump()
		reg.Remove(userID, c)
		c.Close()
		logger.Debug("ws: session closed", "user_id", userID)
	}()
}

// client is a Session backed by a websocket connection.
type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *client) Send(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *client) Close() {
	c.once.Do(func() { close(c.done) })
}

// readPump discards inbound frames; it exists to answer pings and notice
// disconnects.
func (c *client) readPump() {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("ws: unexpected close", "error", err)
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}
