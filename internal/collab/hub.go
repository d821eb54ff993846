package collab

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"schemaboard/internal/models"
)

// Returned by AccessResolver implementations; the hub maps both onto an
// access-denied notice for the requesting connection.
var (
	ErrDiagramNotFound = errors.New("diagram not found")
	ErrAccessDenied    = errors.New("access denied")
)

// DiagramAccess is the result of resolving a user's rights on a diagram.
type DiagramAccess struct {
	DiagramID  uuid.UUID
	Name       string
	OwnerID    uuid.UUID
	Permission models.Permission
}

// AccessResolver computes the permission a user holds on a diagram: owner →
// edit, listed collaborator → stored permission, public diagram → view,
// otherwise ErrAccessDenied.
type AccessResolver interface {
	ResolveAccess(ctx context.Context, diagramID, userID uuid.UUID) (*DiagramAccess, error)
}

// Config bounds the hub's per-room and per-connection behavior.
type Config struct {
	RoomCapacity    int
	CursorInterval  time.Duration
	EventRateLimit  int
	EventRateWindow time.Duration
	SweepInterval   time.Duration
	StaleAfter      time.Duration
	SendBuffer      int
}

func DefaultConfig() Config {
	return Config{
		RoomCapacity:    10,
		CursorInterval:  50 * time.Millisecond,
		EventRateLimit:  60,
		EventRateWindow: time.Second,
		SweepInterval:   30 * time.Second,
		StaleAfter:      2 * time.Minute,
		SendBuffer:      256,
	}
}

// Hub is the session registry for every collaboration connection and room in
// this process. It is constructed once and injected where needed; rooms are
// created on first join and destroyed when their last member leaves.
//
// Broadcasts reach only members connected to this process. Scaling out
// horizontally needs an external fan-out in front of the hub.
type Hub struct {
	cfg    Config
	access AccessResolver
	log    *logrus.Logger

	mu      sync.Mutex
	rooms   map[uuid.UUID]*Room
	clients map[string]*Client
}

func NewHub(access AccessResolver, log *logrus.Logger, cfg Config) *Hub {
	if cfg.RoomCapacity <= 0 {
		cfg = DefaultConfig()
	}
	return &Hub{
		cfg:     cfg,
		access:  access,
		log:     log,
		rooms:   make(map[uuid.UUID]*Room),
		clients: make(map[string]*Client),
	}
}

// NewClient wraps a fresh connection in a Client. conn may be nil for
// in-process use (tests exercise the hub through this path).
func (h *Hub) NewClient(conn *websocket.Conn, userID uuid.UUID, name string) *Client {
	return newClient(h, conn, userID, name)
}

// Register adds the connection to the registry and starts its pumps when it
// is socket-backed.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()

	h.log.WithFields(logrus.Fields{"connection": c.ID, "user": c.UserID}).Info("collaboration connection registered")

	if c.conn != nil {
		go c.writePump()
		go c.readPump()
	}
}

// Unregister removes the connection, leaving its room (with notification) and
// releasing its throttle state. Safe to call more than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.ID)
	h.leaveRoomLocked(c)
	h.mu.Unlock()

	c.cursor.stop()
	c.closeSend()
	h.log.WithField("connection", c.ID).Info("collaboration connection removed")
}

// HandleEvent dispatches one inbound event from the given connection.
func (h *Hub) HandleEvent(c *Client, ev Event) {
	switch ev.Type {
	case EventJoinDiagram:
		h.handleJoin(c, ev)
	case EventLeaveDiagram:
		h.handleLeave(c)
	case EventCursorMove:
		h.handleCursor(c, ev)
	case EventSyncUpdate, EventNodeAdd, EventNodeUpdate, EventNodeDelete,
		EventNodeMove, EventEdgeAdd, EventEdgeDelete:
		h.relayEdit(c, ev)
	case EventSelectionChange, EventAwarenessUpdate:
		h.relayInfo(c, ev)
	case EventRequestState:
		h.handleRequestState(c)
	case EventProvideState:
		h.handleProvideState(c, ev)
	default:
		c.deliver(errorEvent(ErrCodeBadPayload, "unknown event type"))
	}
}

func (h *Hub) handleJoin(c *Client, ev Event) {
	var ref DiagramRef
	if err := json.Unmarshal(ev.Payload, &ref); err != nil || ref.DiagramID == uuid.Nil {
		c.deliver(errorEvent(ErrCodeBadPayload, "join-diagram requires a diagram id"))
		return
	}

	access, err := h.access.ResolveAccess(context.Background(), ref.DiagramID, c.UserID)
	if err != nil {
		c.deliver(errorEvent(ErrCodeAccessDenied, "you do not have access to this diagram"))
		return
	}

	h.mu.Lock()
	room, ok := h.rooms[ref.DiagramID]
	if !ok {
		room = newRoom(ref.DiagramID, access.Name, access.OwnerID)
		h.rooms[ref.DiagramID] = room
	}

	if len(room.members) >= h.cfg.RoomCapacity && !room.hasUser(c.UserID) {
		h.mu.Unlock()
		c.deliver(errorEvent(ErrCodeCapacity, "this diagram already has the maximum number of collaborators"))
		return
	}

	// Joining from another room is a transparent move.
	rejoin := c.room == room
	if c.room != nil && !rejoin {
		h.leaveRoomLocked(c)
	}

	room.members[c.ID] = c
	c.room = room
	c.permission = access.Permission
	members := room.memberInfos()

	joined := newEvent(EventJoinedDiagram, JoinedDiagramPayload{
		DiagramID:  ref.DiagramID,
		Name:       access.Name,
		OwnerID:    access.OwnerID,
		Permission: access.Permission,
		Members:    members,
	})
	// A connection re-joining its current room gets a fresh ack but peers see
	// no second arrival.
	if !rejoin {
		room.broadcastExcept(c.ID, newEvent(EventUserJoined, MemberInfo{
			ConnectionID: c.ID,
			UserID:       c.UserID,
			Name:         c.Name,
			Permission:   access.Permission,
		}))
	}
	h.mu.Unlock()

	c.deliver(joined)
	h.log.WithFields(logrus.Fields{
		"connection": c.ID,
		"diagram":    ref.DiagramID,
		"permission": access.Permission,
	}).Info("joined collaboration room")
}

func (h *Hub) handleLeave(c *Client) {
	h.mu.Lock()
	h.leaveRoomLocked(c)
	h.mu.Unlock()
}

// leaveRoomLocked detaches the connection from its room, notifies the
// remaining members and tears the room down once empty. Caller holds h.mu.
func (h *Hub) leaveRoomLocked(c *Client) {
	room := c.room
	if room == nil {
		return
	}
	delete(room.members, c.ID)
	c.room = nil
	c.permission = ""
	c.lastCursor = nil

	if len(room.members) == 0 {
		delete(h.rooms, room.diagramID)
		h.log.WithField("diagram", room.diagramID).Debug("room empty, torn down")
		return
	}
	room.broadcastExcept(c.ID, newEvent(EventUserLeft, MemberInfo{
		ConnectionID: c.ID,
		UserID:       c.UserID,
		Name:         c.Name,
	}))
}

// handleCursor records the newest position and lets the throttle decide when
// to broadcast. Updates inside the throttle window are coalesced, latest
// wins; nothing is reported back to the sender.
func (h *Hub) handleCursor(c *Client, ev Event) {
	var p CursorMovePayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		return
	}

	h.mu.Lock()
	if c.room == nil {
		h.mu.Unlock()
		return
	}
	c.lastCursor = &CursorPos{X: p.X, Y: p.Y}
	h.mu.Unlock()

	c.cursor.offer(p, func(latest CursorMovePayload) {
		update := newEvent(EventCursorUpdate, CursorUpdatePayload{
			UserID: c.UserID,
			Name:   c.Name,
			X:      latest.X,
			Y:      latest.Y,
		})
		update.Sender = c.ID

		h.mu.Lock()
		if c.room != nil {
			c.room.broadcastExcept(c.ID, update)
		}
		h.mu.Unlock()
	})
}

// relayEdit broadcasts a mutating event to the rest of the room. Requires
// edit permission and is subject to the per-connection event quota; an
// exceeded quota is reported back, unlike cursor throttling.
func (h *Hub) relayEdit(c *Client, ev Event) {
	h.mu.Lock()
	room := c.room
	perm := c.permission
	h.mu.Unlock()

	if room == nil {
		c.deliver(errorEvent(ErrCodeNotJoined, "join a diagram first"))
		return
	}
	if !perm.CanEdit() {
		c.deliver(errorEvent(ErrCodeAccessDenied, "edit permission required"))
		return
	}
	if !c.limiter.allow(time.Now()) {
		c.deliver(errorEvent(ErrCodeRateLimited, "too many edit events, slow down"))
		return
	}

	out := ev
	out.Sender = c.ID

	h.mu.Lock()
	if c.room == room {
		room.broadcastExcept(c.ID, out)
	}
	h.mu.Unlock()
}

// relayInfo broadcasts presence-only events (selection, awareness). No
// permission needed; excess volume is dropped silently.
func (h *Hub) relayInfo(c *Client, ev Event) {
	h.mu.Lock()
	room := c.room
	h.mu.Unlock()

	if room == nil {
		return
	}
	if !c.limiter.allow(time.Now()) {
		return
	}

	out := ev
	out.Sender = c.ID

	h.mu.Lock()
	if c.room == room {
		room.broadcastExcept(c.ID, out)
	}
	h.mu.Unlock()
}

// handleRequestState asks an arbitrary other member to provide the current
// document state for a late joiner. No merging happens here; the state blob
// is opaque.
func (h *Hub) handleRequestState(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c.room == nil {
		return
	}
	source := c.room.anyOther(c.ID)
	if source == nil {
		return
	}
	req := newEvent(EventRequestState, DiagramRef{DiagramID: c.room.diagramID})
	req.Sender = c.ID
	source.deliver(req)
}

// handleProvideState routes a state snapshot back to the requester, if that
// connection is still around.
func (h *Hub) handleProvideState(c *Client, ev Event) {
	var p ProvideStatePayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil || p.RequesterID == "" {
		c.deliver(errorEvent(ErrCodeBadPayload, "provide-state requires a requester id"))
		return
	}

	h.mu.Lock()
	requester, ok := h.clients[p.RequesterID]
	sameRoom := ok && c.room != nil && requester.room == c.room
	h.mu.Unlock()

	if !sameRoom {
		return
	}
	out := ev
	out.Sender = c.ID
	requester.deliver(out)
}

// touch refreshes the liveness timestamp for the sweep.
func (h *Hub) touch(c *Client) {
	h.mu.Lock()
	c.lastSeen = time.Now()
	h.mu.Unlock()
}

// Run sweeps for connections whose transport died without a close frame,
// until the context is cancelled. Stale members are evicted exactly as if
// they had disconnected.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.sweep()
		}
	}
}

func (h *Hub) sweep() {
	cutoff := time.Now().Add(-h.cfg.StaleAfter)

	h.mu.Lock()
	var stale []*Client
	for _, c := range h.clients {
		if c.conn != nil && c.lastSeen.Before(cutoff) {
			stale = append(stale, c)
		}
	}
	h.mu.Unlock()

	for _, c := range stale {
		h.log.WithField("connection", c.ID).Warn("sweeping stale connection")
		c.conn.Close()
		h.Unregister(c)
	}
}

// RoomSize reports current membership of a diagram's room; zero when no room
// exists.
func (h *Hub) RoomSize(diagramID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[diagramID]
	if !ok {
		return 0
	}
	return len(room.members)
}
