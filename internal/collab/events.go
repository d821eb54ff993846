package collab

import (
	"encoding/json"

	"github.com/google/uuid"

	"schemaboard/internal/models"
)

// EventType names one message on the collaboration wire.
type EventType string

// Client → server.
const (
	EventJoinDiagram     EventType = "join-diagram"
	EventLeaveDiagram    EventType = "leave-diagram"
	EventCursorMove      EventType = "cursor-move"
	EventSyncUpdate      EventType = "sync-update"
	EventAwarenessUpdate EventType = "awareness-update"
	EventNodeAdd         EventType = "node-add"
	EventNodeUpdate      EventType = "node-update"
	EventNodeDelete      EventType = "node-delete"
	EventNodeMove        EventType = "node-move"
	EventEdgeAdd         EventType = "edge-add"
	EventEdgeDelete      EventType = "edge-delete"
	EventSelectionChange EventType = "selection-change"
	EventRequestState    EventType = "request-state"
	EventProvideState    EventType = "provide-state"
)

// Server → client.
const (
	EventJoinedDiagram EventType = "joined-diagram"
	EventUserJoined    EventType = "user-joined"
	EventUserLeft      EventType = "user-left"
	EventCursorUpdate  EventType = "cursor-update"
	EventError         EventType = "error"
)

// Event is the wire envelope. Sender carries the originating connection id on
// relayed events and is empty on client-sent ones.
type Event struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Sender  string          `json:"sender,omitempty"`
}

// DiagramRef is the payload of join-diagram, leave-diagram and request-state.
type DiagramRef struct {
	DiagramID uuid.UUID `json:"diagram_id"`
}

type CursorPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type CursorMovePayload struct {
	DiagramID uuid.UUID `json:"diagram_id"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
}

type CursorUpdatePayload struct {
	UserID uuid.UUID `json:"user_id"`
	Name   string    `json:"name"`
	X      float64   `json:"x"`
	Y      float64   `json:"y"`
}

// SyncUpdatePayload carries an opaque CRDT update blob. The relay never
// inspects it; conflict resolution belongs to the client-side CRDT.
type SyncUpdatePayload struct {
	DiagramID uuid.UUID       `json:"diagram_id"`
	Update    []byte          `json:"update"`
	Origin    json.RawMessage `json:"origin,omitempty"`
}

// ElementPayload is shared by the node-* and edge-* events; the element blob
// is relayed untouched.
type ElementPayload struct {
	DiagramID uuid.UUID       `json:"diagram_id"`
	Element   json.RawMessage `json:"element"`
}

type SelectionPayload struct {
	DiagramID     uuid.UUID `json:"diagram_id"`
	SelectedNodes []string  `json:"selected_nodes"`
	SelectedEdges []string  `json:"selected_edges"`
}

type AwarenessPayload struct {
	DiagramID uuid.UUID       `json:"diagram_id"`
	Awareness json.RawMessage `json:"awareness"`
}

// ProvideStatePayload routes a full document snapshot to one late joiner.
type ProvideStatePayload struct {
	RequesterID string          `json:"requester_id"`
	State       json.RawMessage `json:"state"`
}

// MemberInfo describes one room member as seen by every other member.
type MemberInfo struct {
	ConnectionID string            `json:"connection_id"`
	UserID       uuid.UUID         `json:"user_id"`
	Name         string            `json:"name"`
	Permission   models.Permission `json:"permission"`
	Cursor       *CursorPos        `json:"cursor,omitempty"`
}

// JoinedDiagramPayload is the join acknowledgement sent to the new member.
type JoinedDiagramPayload struct {
	DiagramID  uuid.UUID         `json:"diagram_id"`
	Name       string            `json:"name"`
	OwnerID    uuid.UUID         `json:"owner_id"`
	Permission models.Permission `json:"permission"`
	Members    []MemberInfo      `json:"members"`
}

// Error codes carried on the error event.
const (
	ErrCodeAccessDenied = "access-denied"
	ErrCodeCapacity     = "capacity-exceeded"
	ErrCodeRateLimited  = "rate-limited"
	ErrCodeNotJoined    = "not-joined"
	ErrCodeBadPayload   = "bad-payload"
)

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// newEvent marshals a typed payload into the wire envelope. Payload structs
// are all marshal-safe, so the error path is unreachable in practice.
func newEvent(t EventType, payload interface{}) Event {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = nil
	}
	return Event{Type: t, Payload: raw}
}

func errorEvent(code, message string) Event {
	return newEvent(EventError, ErrorPayload{Code: code, Message: message})
}
