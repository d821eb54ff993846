package collab

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schemaboard/internal/models"
)

type resolverFunc func(ctx context.Context, diagramID, userID uuid.UUID) (*DiagramAccess, error)

func (f resolverFunc) ResolveAccess(ctx context.Context, diagramID, userID uuid.UUID) (*DiagramAccess, error) {
	return f(ctx, diagramID, userID)
}

// grantAll resolves every user onto the same diagram with a fixed permission
// per user, defaulting to edit.
func grantAll(perms map[uuid.UUID]models.Permission) AccessResolver {
	return resolverFunc(func(_ context.Context, diagramID, userID uuid.UUID) (*DiagramAccess, error) {
		perm := models.PermissionEdit
		if p, ok := perms[userID]; ok {
			perm = p
		}
		return &DiagramAccess{
			DiagramID:  diagramID,
			Name:       "test diagram",
			OwnerID:    uuid.Nil,
			Permission: perm,
		}, nil
	})
}

func denyAll() AccessResolver {
	return resolverFunc(func(_ context.Context, _, _ uuid.UUID) (*DiagramAccess, error) {
		return nil, ErrAccessDenied
	})
}

func testHub(t *testing.T, access AccessResolver, mutate func(*Config)) *Hub {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	cfg := DefaultConfig()
	cfg.CursorInterval = 10 * time.Millisecond
	if mutate != nil {
		mutate(&cfg)
	}
	return NewHub(access, log, cfg)
}

func register(t *testing.T, h *Hub, name string) *Client {
	t.Helper()
	c := h.NewClient(nil, uuid.New(), name)
	h.Register(c)
	return c
}

func join(h *Hub, c *Client, diagramID uuid.UUID) {
	h.HandleEvent(c, newEvent(EventJoinDiagram, DiagramRef{DiagramID: diagramID}))
}

func nextEvent(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case ev := <-c.send:
		return ev
	case <-time.After(time.Second):
		t.Fatalf("client %s: no event arrived", c.Name)
		return Event{}
	}
}

func expectNoEvent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case ev := <-c.send:
		t.Fatalf("client %s: unexpected event %s", c.Name, ev.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func expectError(t *testing.T, c *Client, code string) {
	t.Helper()
	ev := nextEvent(t, c)
	require.Equal(t, EventError, ev.Type)
	var p ErrorPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &p))
	assert.Equal(t, code, p.Code)
}

func TestJoinAndMemberNotifications(t *testing.T) {
	h := testHub(t, grantAll(nil), nil)
	diagramID := uuid.New()

	alice := register(t, h, "alice")
	join(h, alice, diagramID)

	joined := nextEvent(t, alice)
	require.Equal(t, EventJoinedDiagram, joined.Type)
	var jp JoinedDiagramPayload
	require.NoError(t, json.Unmarshal(joined.Payload, &jp))
	assert.Equal(t, diagramID, jp.DiagramID)
	assert.Equal(t, models.PermissionEdit, jp.Permission)
	assert.Len(t, jp.Members, 1)

	bob := register(t, h, "bob")
	join(h, bob, diagramID)

	// Bob's acknowledgement lists both members.
	bj := nextEvent(t, bob)
	require.Equal(t, EventJoinedDiagram, bj.Type)
	require.NoError(t, json.Unmarshal(bj.Payload, &jp))
	assert.Len(t, jp.Members, 2)

	// Alice hears about bob; bob does not hear about himself.
	notice := nextEvent(t, alice)
	require.Equal(t, EventUserJoined, notice.Type)
	var mi MemberInfo
	require.NoError(t, json.Unmarshal(notice.Payload, &mi))
	assert.Equal(t, bob.ID, mi.ConnectionID)
	expectNoEvent(t, bob)

	assert.Equal(t, 2, h.RoomSize(diagramID))
}

func TestJoinDenied(t *testing.T) {
	h := testHub(t, denyAll(), nil)

	c := register(t, h, "outsider")
	join(h, c, uuid.New())

	expectError(t, c, ErrCodeAccessDenied)
	assert.Zero(t, h.RoomSize(uuid.Nil))
}

func TestJoinBadPayload(t *testing.T) {
	h := testHub(t, grantAll(nil), nil)

	c := register(t, h, "junk")
	h.HandleEvent(c, Event{Type: EventJoinDiagram, Payload: json.RawMessage(`{"diagram_id":"not-a-uuid"}`)})
	expectError(t, c, ErrCodeBadPayload)
}

func TestRoomCapacityCountsDistinctUsers(t *testing.T) {
	h := testHub(t, grantAll(nil), func(cfg *Config) { cfg.RoomCapacity = 2 })
	diagramID := uuid.New()

	alice := register(t, h, "alice")
	bob := register(t, h, "bob")
	join(h, alice, diagramID)
	join(h, bob, diagramID)
	nextEvent(t, alice) // joined
	nextEvent(t, bob)   // joined
	nextEvent(t, alice) // bob arrived

	carol := register(t, h, "carol")
	join(h, carol, diagramID)
	expectError(t, carol, ErrCodeCapacity)
	assert.Equal(t, 2, h.RoomSize(diagramID))

	// A second connection for an existing user is a reconnect, not a new seat.
	aliceAgain := h.NewClient(nil, alice.UserID, "alice")
	h.Register(aliceAgain)
	join(h, aliceAgain, diagramID)
	ev := nextEvent(t, aliceAgain)
	assert.Equal(t, EventJoinedDiagram, ev.Type)
	assert.Equal(t, 3, h.RoomSize(diagramID))
}

func TestRelayEditPermissionAndFanout(t *testing.T) {
	viewer := uuid.New()
	h := testHub(t, grantAll(map[uuid.UUID]models.Permission{viewer: models.PermissionView}), nil)
	diagramID := uuid.New()

	editor := register(t, h, "editor")
	watcher := h.NewClient(nil, viewer, "watcher")
	h.Register(watcher)

	join(h, editor, diagramID)
	join(h, watcher, diagramID)
	nextEvent(t, editor)  // joined
	nextEvent(t, watcher) // joined
	nextEvent(t, editor)  // watcher arrived

	// Not joined at all.
	stray := register(t, h, "stray")
	h.HandleEvent(stray, newEvent(EventNodeAdd, ElementPayload{DiagramID: diagramID}))
	expectError(t, stray, ErrCodeNotJoined)

	// View permission cannot mutate.
	h.HandleEvent(watcher, newEvent(EventNodeAdd, ElementPayload{DiagramID: diagramID}))
	expectError(t, watcher, ErrCodeAccessDenied)
	expectNoEvent(t, editor)

	// An editor's event reaches everyone else, tagged with the sender.
	h.HandleEvent(editor, newEvent(EventNodeMove, ElementPayload{DiagramID: diagramID}))
	relayed := nextEvent(t, watcher)
	assert.Equal(t, EventNodeMove, relayed.Type)
	assert.Equal(t, editor.ID, relayed.Sender)
	expectNoEvent(t, editor)
}

func TestRelayEditRateLimit(t *testing.T) {
	h := testHub(t, grantAll(nil), func(cfg *Config) { cfg.EventRateLimit = 2 })
	diagramID := uuid.New()

	a := register(t, h, "a")
	b := register(t, h, "b")
	join(h, a, diagramID)
	join(h, b, diagramID)
	nextEvent(t, a)
	nextEvent(t, b)
	nextEvent(t, a)

	h.HandleEvent(a, newEvent(EventNodeAdd, ElementPayload{DiagramID: diagramID}))
	h.HandleEvent(a, newEvent(EventNodeAdd, ElementPayload{DiagramID: diagramID}))
	nextEvent(t, b)
	nextEvent(t, b)

	// The third event in the window bounces with an explicit error.
	h.HandleEvent(a, newEvent(EventNodeAdd, ElementPayload{DiagramID: diagramID}))
	expectError(t, a, ErrCodeRateLimited)
	expectNoEvent(t, b)
}

func TestSelectionRelayDropsExcessSilently(t *testing.T) {
	h := testHub(t, grantAll(nil), func(cfg *Config) { cfg.EventRateLimit = 1 })
	diagramID := uuid.New()

	a := register(t, h, "a")
	b := register(t, h, "b")
	join(h, a, diagramID)
	join(h, b, diagramID)
	nextEvent(t, a)
	nextEvent(t, b)
	nextEvent(t, a)

	h.HandleEvent(a, newEvent(EventSelectionChange, SelectionPayload{DiagramID: diagramID}))
	h.HandleEvent(a, newEvent(EventSelectionChange, SelectionPayload{DiagramID: diagramID}))

	nextEvent(t, b)
	expectNoEvent(t, b)
	// Unlike edits, no error comes back for the dropped one.
	expectNoEvent(t, a)
}

func TestCursorMoveCoalesced(t *testing.T) {
	h := testHub(t, grantAll(nil), nil)
	diagramID := uuid.New()

	a := register(t, h, "a")
	b := register(t, h, "b")
	join(h, a, diagramID)
	join(h, b, diagramID)
	nextEvent(t, a)
	nextEvent(t, b)
	nextEvent(t, a)

	for i := 1; i <= 5; i++ {
		h.HandleEvent(a, newEvent(EventCursorMove, CursorMovePayload{DiagramID: diagramID, X: float64(i), Y: float64(i)}))
	}

	ev := nextEvent(t, b)
	require.Equal(t, EventCursorUpdate, ev.Type)
	var p CursorUpdatePayload
	require.NoError(t, json.Unmarshal(ev.Payload, &p))
	assert.Equal(t, 5.0, p.X, "the latest position wins")
	assert.Equal(t, a.UserID, p.UserID)

	expectNoEvent(t, b)
	expectNoEvent(t, a)
}

func TestLeaveAndRoomTeardown(t *testing.T) {
	h := testHub(t, grantAll(nil), nil)
	diagramID := uuid.New()

	a := register(t, h, "a")
	b := register(t, h, "b")
	join(h, a, diagramID)
	join(h, b, diagramID)
	nextEvent(t, a)
	nextEvent(t, b)
	nextEvent(t, a)

	h.HandleEvent(a, newEvent(EventLeaveDiagram, DiagramRef{DiagramID: diagramID}))
	left := nextEvent(t, b)
	require.Equal(t, EventUserLeft, left.Type)
	var mi MemberInfo
	require.NoError(t, json.Unmarshal(left.Payload, &mi))
	assert.Equal(t, a.ID, mi.ConnectionID)

	assert.Equal(t, 1, h.RoomSize(diagramID))

	h.HandleEvent(b, newEvent(EventLeaveDiagram, DiagramRef{DiagramID: diagramID}))
	assert.Zero(t, h.RoomSize(diagramID), "empty room is torn down")
}

func TestUnregisterLeavesRoomAndIsIdempotent(t *testing.T) {
	h := testHub(t, grantAll(nil), nil)
	diagramID := uuid.New()

	a := register(t, h, "a")
	b := register(t, h, "b")
	join(h, a, diagramID)
	join(h, b, diagramID)
	nextEvent(t, a)
	nextEvent(t, b)
	nextEvent(t, a)

	h.Unregister(a)
	left := nextEvent(t, b)
	assert.Equal(t, EventUserLeft, left.Type)
	assert.Equal(t, 1, h.RoomSize(diagramID))

	h.Unregister(a) // second call is a no-op
	assert.Equal(t, 1, h.RoomSize(diagramID))
}

func TestSwitchingDiagramsMovesRooms(t *testing.T) {
	h := testHub(t, grantAll(nil), nil)
	first := uuid.New()
	second := uuid.New()

	a := register(t, h, "a")
	b := register(t, h, "b")
	join(h, a, first)
	join(h, b, first)
	nextEvent(t, a)
	nextEvent(t, b)
	nextEvent(t, a)

	join(h, a, second)
	nextEvent(t, a) // joined second

	left := nextEvent(t, b)
	assert.Equal(t, EventUserLeft, left.Type)
	assert.Equal(t, 1, h.RoomSize(first))
	assert.Equal(t, 1, h.RoomSize(second))
}

func TestStateHandoff(t *testing.T) {
	h := testHub(t, grantAll(nil), nil)
	diagramID := uuid.New()

	holder := register(t, h, "holder")
	join(h, holder, diagramID)
	nextEvent(t, holder)

	// Nobody else in the room: the request goes nowhere.
	h.HandleEvent(holder, Event{Type: EventRequestState})
	expectNoEvent(t, holder)

	late := register(t, h, "late")
	join(h, late, diagramID)
	nextEvent(t, late)
	nextEvent(t, holder) // late arrived

	h.HandleEvent(late, Event{Type: EventRequestState})
	req := nextEvent(t, holder)
	require.Equal(t, EventRequestState, req.Type)
	assert.Equal(t, late.ID, req.Sender)

	h.HandleEvent(holder, newEvent(EventProvideState, ProvideStatePayload{
		RequesterID: req.Sender,
		State:       json.RawMessage(`{"doc":1}`),
	}))
	state := nextEvent(t, late)
	require.Equal(t, EventProvideState, state.Type)
	assert.Equal(t, holder.ID, state.Sender)

	var p ProvideStatePayload
	require.NoError(t, json.Unmarshal(state.Payload, &p))
	assert.JSONEq(t, `{"doc":1}`, string(p.State))
}

func TestRejoinSameRoomIsQuiet(t *testing.T) {
	h := testHub(t, grantAll(nil), nil)
	diagramID := uuid.New()

	a := register(t, h, "a")
	b := register(t, h, "b")
	join(h, a, diagramID)
	join(h, b, diagramID)
	nextEvent(t, a)
	nextEvent(t, b)
	nextEvent(t, a)

	// Joining the room a is already in refreshes a's ack only.
	join(h, a, diagramID)
	ack := nextEvent(t, a)
	require.Equal(t, EventJoinedDiagram, ack.Type)
	var jp JoinedDiagramPayload
	require.NoError(t, json.Unmarshal(ack.Payload, &jp))
	assert.Len(t, jp.Members, 2)

	expectNoEvent(t, b)
	assert.Equal(t, 2, h.RoomSize(diagramID))
}

func TestDeliverAfterUnregisterIsDropped(t *testing.T) {
	h := testHub(t, grantAll(nil), nil)
	diagramID := uuid.New()

	holder := register(t, h, "holder")
	late := register(t, h, "late")
	join(h, holder, diagramID)
	join(h, late, diagramID)
	nextEvent(t, holder)
	nextEvent(t, late)
	nextEvent(t, holder)

	h.HandleEvent(late, Event{Type: EventRequestState})
	req := nextEvent(t, holder)
	require.Equal(t, EventRequestState, req.Type)

	// The requester drops out before the snapshot lands; routing it must be
	// a silent no-op, not a send on a closed channel.
	h.Unregister(late)
	nextEvent(t, holder) // late left
	h.HandleEvent(holder, newEvent(EventProvideState, ProvideStatePayload{
		RequesterID: req.Sender,
		State:       json.RawMessage(`{"doc":1}`),
	}))

	late.deliver(newEvent(EventUserJoined, MemberInfo{}))
	_, open := <-late.send
	assert.False(t, open, "send channel stays closed")
}

func TestUnknownEventType(t *testing.T) {
	h := testHub(t, grantAll(nil), nil)
	c := register(t, h, "c")

	h.HandleEvent(c, Event{Type: "warp-speed"})
	expectError(t, c, ErrCodeBadPayload)
}
