package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Permission is the access level a user holds on a diagram.
type Permission string

const (
	PermissionView Permission = "view"
	PermissionEdit Permission = "edit"
)

func (p Permission) Valid() bool {
	return p == PermissionView || p == PermissionEdit
}

func (p Permission) CanEdit() bool {
	return p == PermissionEdit
}

// Viewport is the persisted pan/zoom state of the canvas.
type Viewport struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// Diagram matches the diagrams table. Tables and Edges hold the serialized
// node/edge payloads as JSONB; the editor core works on the decoded forms.
type Diagram struct {
	ID        uuid.UUID       `json:"id"`
	OwnerID   uuid.UUID       `json:"owner_id"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	Public    bool            `json:"public"`
	Tables    json.RawMessage `json:"tables"`
	Edges     json.RawMessage `json:"edges"`
	Viewport  Viewport        `json:"viewport"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (d *Diagram) Prepare() {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Slug == "" {
		d.Slug = uuid.NewString()
	}
	if len(d.Tables) == 0 {
		d.Tables = json.RawMessage("[]")
	}
	if len(d.Edges) == 0 {
		d.Edges = json.RawMessage("[]")
	}
	if d.Viewport.Zoom == 0 {
		d.Viewport.Zoom = 1
	}
}

// DiagramCollaborator is one shared-access grant: a user plus the permission
// they hold on one diagram.
type DiagramCollaborator struct {
	DiagramID  uuid.UUID  `json:"diagram_id"`
	UserID     uuid.UUID  `json:"user_id"`
	Permission Permission `json:"permission"`
	AddedAt    time.Time  `json:"added_at"`
}
