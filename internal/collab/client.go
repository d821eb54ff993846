package collab

import (
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"

	"schemaboard/internal/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 1 << 20 // sync updates can be sizeable
)

// Client is one authenticated collaboration connection. Room membership and
// permission are owned by the hub and mutated only under its lock; the
// websocket pumps stay out of that state entirely.
type Client struct {
	ID     string
	UserID uuid.UUID
	Name   string

	hub  *Hub
	conn *websocket.Conn // nil for in-process test clients

	sendMu sync.Mutex
	send   chan Event
	closed bool

	// Guarded by hub.mu.
	room       *Room
	permission models.Permission
	lastCursor *CursorPos

	cursor   *cursorThrottle
	limiter  *rateLimiter
	lastSeen time.Time // guarded by hub.mu, refreshed on pong
}

func newClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, name string) *Client {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0))
	return &Client{
		ID:       id.String(),
		UserID:   userID,
		Name:     name,
		hub:      hub,
		conn:     conn,
		send:     make(chan Event, hub.cfg.SendBuffer),
		cursor:   newCursorThrottle(hub.cfg.CursorInterval),
		limiter:  newRateLimiter(hub.cfg.EventRateLimit, hub.cfg.EventRateWindow),
		lastSeen: time.Now(),
	}
}

// deliver hands an event to the outbound pump without blocking. A member that
// cannot keep up loses events instead of stalling the room; the CRDT sync
// layer recovers from gaps. Events for an already-unregistered connection are
// dropped: some deliveries (state handoff, join ack) run outside the hub lock
// and may race the sweep closing the channel.
func (c *Client) deliver(ev Event) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return
	}
	select {
	case c.send <- ev:
	default:
		c.hub.log.WithField("connection", c.ID).Warn("outbound buffer full, dropping event")
	}
}

func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// readPump consumes inbound frames and feeds them to the hub until the
// connection dies.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.hub.touch(c)
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.WithField("connection", c.ID).WithError(err).Debug("websocket closed unexpectedly")
			}
			return
		}

		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			c.deliver(errorEvent(ErrCodeBadPayload, "malformed event"))
			continue
		}
		c.hub.HandleEvent(c, ev)
	}
}

// writePump serializes outbound events and keeps the connection alive with
// pings. It exits when the hub closes the send channel.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
