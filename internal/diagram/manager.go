package diagram

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"schemaboard/internal/schema"
)

// Edge is a rendered relationship line. Edges are a projection of the
// foreign-key facts stored on attributes (RefTable/RefAttr); they are
// recomputed from those fields and never edited directly, so the two can not
// drift apart.
type Edge struct {
	ID          string `json:"id"`
	SourceTable string `json:"source_table"`
	SourceAttr  string `json:"source_attr"`
	TargetTable string `json:"target_table"`
	TargetAttr  string `json:"target_attr"`
}

var (
	ErrTableNotFound    = errors.New("table not found")
	ErrAttrNotFound     = errors.New("attribute not found")
	ErrDuplicateName    = errors.New("name already in use")
	ErrInvalidReference = errors.New("invalid reference target")
	ErrInvalidHandle    = errors.New("invalid connection handle")
	ErrSelfReference    = errors.New("cannot connect a table to itself")
)

// Manager owns the canonical in-memory table list and derived edges for one
// open diagram.
type Manager struct {
	mu     sync.RWMutex
	tables []*schema.Table
	edges  []Edge

	// Identity of the attribute currently being edited in a dialog, as
	// "<tableID>/<attrName>". Cleared on bulk replace so a dialog never
	// touches an attribute from the previous node set.
	editing string
}

func NewManager() *Manager {
	return &Manager{}
}

// Tables returns a snapshot of the node list in declaration order.
func (m *Manager) Tables() []schema.Table {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]schema.Table, len(m.tables))
	for i, t := range m.tables {
		out[i] = *t
	}
	return out
}

// Edges returns the current derived relationship edges.
func (m *Manager) Edges() []Edge {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Edge, len(m.edges))
	copy(out, m.edges)
	return out
}

// AddTable appends a table, assigning an ID when the caller did not.
func (m *Manager) AddTable(t schema.Table) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if m.findByName(t.Name) != nil {
		return "", fmt.Errorf("%w: table %q", ErrDuplicateName, t.Name)
	}
	m.tables = append(m.tables, &t)
	m.rebuildEdges()
	return t.ID, nil
}

// DeleteTable removes a table. Any foreign-key attribute elsewhere that
// referenced it is demoted back to a normal attribute and its edge removed.
func (m *Manager) DeleteTable(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexByID(id)
	if idx < 0 {
		return ErrTableNotFound
	}
	name := m.tables[idx].Name
	m.tables = append(m.tables[:idx], m.tables[idx+1:]...)

	for _, t := range m.tables {
		for i := range t.Attributes {
			attr := &t.Attributes[i]
			if attr.Kind == schema.KindForeignKey && strings.EqualFold(attr.RefTable, name) {
				detach(attr)
			}
		}
	}
	m.rebuildEdges()
	return nil
}

// RenameTable changes a table's display name. The new name must not collide
// with another table after whitespace normalization, since the generator
// would reject the duplicate anyway.
func (m *Manager) RenameTable(id, newName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexByID(id)
	if idx < 0 {
		return ErrTableNotFound
	}
	for _, t := range m.tables {
		if t.ID != id && normalizedEqual(t.Name, newName) {
			return fmt.Errorf("%w: table %q", ErrDuplicateName, newName)
		}
	}

	oldName := m.tables[idx].Name
	m.tables[idx].Name = newName

	// Referencing attributes track the table by name; keep them in step.
	for _, t := range m.tables {
		for i := range t.Attributes {
			attr := &t.Attributes[i]
			if attr.Kind == schema.KindForeignKey && strings.EqualFold(attr.RefTable, oldName) {
				attr.RefTable = newName
			}
		}
	}
	m.rebuildEdges()
	return nil
}

// MoveTable updates canvas placement only.
func (m *Manager) MoveTable(id string, x, y float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexByID(id)
	if idx < 0 {
		return ErrTableNotFound
	}
	m.tables[idx].X = x
	m.tables[idx].Y = y
	return nil
}

// AddAttribute appends a column to a table. Attribute names are unique within
// their table.
func (m *Manager) AddAttribute(tableID string, attr schema.Attribute) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexByID(tableID)
	if idx < 0 {
		return ErrTableNotFound
	}
	t := m.tables[idx]
	if t.FindAttribute(attr.Name) != nil {
		return fmt.Errorf("%w: column %q", ErrDuplicateName, attr.Name)
	}
	if attr.Kind == schema.KindForeignKey {
		refTable, refAttr, err := m.resolveReferenceLocked(attr.RefTable, attr.RefAttr)
		if err != nil {
			return err
		}
		attr.RefTable = refTable
		attr.RefAttr = refAttr
	} else {
		attr.RefTable = ""
		attr.RefAttr = ""
	}
	if attr.Kind == schema.KindPrimaryKey {
		attr.NotNull = true
	}

	t.Attributes = append(t.Attributes, attr)
	m.rebuildEdges()
	return nil
}

// UpdateAttribute replaces the attribute named name on the given table.
// Changing kind away from foreign-key clears the reference pair; changing to
// foreign-key requires a valid target table and attribute.
func (m *Manager) UpdateAttribute(tableID, name string, updated schema.Attribute) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexByID(tableID)
	if idx < 0 {
		return ErrTableNotFound
	}
	t := m.tables[idx]

	attr := t.FindAttribute(name)
	if attr == nil {
		return ErrAttrNotFound
	}
	if !strings.EqualFold(name, updated.Name) && t.FindAttribute(updated.Name) != nil {
		return fmt.Errorf("%w: column %q", ErrDuplicateName, updated.Name)
	}

	switch updated.Kind {
	case schema.KindForeignKey:
		refTable, refAttr, err := m.resolveReferenceLocked(updated.RefTable, updated.RefAttr)
		if err != nil {
			return err
		}
		updated.RefTable = refTable
		updated.RefAttr = refAttr
	case schema.KindPrimaryKey:
		updated.NotNull = true
		updated.RefTable = ""
		updated.RefAttr = ""
	default:
		updated.RefTable = ""
		updated.RefAttr = ""
	}

	*attr = updated
	m.rebuildEdges()
	return nil
}

// DeleteAttribute removes a column and detaches anything referencing it.
func (m *Manager) DeleteAttribute(tableID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexByID(tableID)
	if idx < 0 {
		return ErrTableNotFound
	}
	t := m.tables[idx]

	pos := -1
	for i := range t.Attributes {
		if strings.EqualFold(t.Attributes[i].Name, name) {
			pos = i
			break
		}
	}
	if pos < 0 {
		return ErrAttrNotFound
	}
	removed := t.Attributes[pos].Name
	t.Attributes = append(t.Attributes[:pos], t.Attributes[pos+1:]...)

	for _, other := range m.tables {
		for i := range other.Attributes {
			attr := &other.Attributes[i]
			if attr.Kind == schema.KindForeignKey &&
				strings.EqualFold(attr.RefTable, t.Name) &&
				strings.EqualFold(attr.RefAttr, removed) {
				detach(attr)
			}
		}
	}
	m.rebuildEdges()
	return nil
}

// Replace swaps the entire node set atomically, as the SQL import path does.
// Any in-flight attribute edit is reset so it can not land on a stale
// attribute identity.
func (m *Manager) Replace(tables []schema.Table) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tables = make([]*schema.Table, len(tables))
	for i := range tables {
		t := tables[i]
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		m.tables[i] = &t
	}
	m.editing = ""
	m.rebuildEdges()
}

// BeginAttributeEdit records which attribute an edit dialog is working on.
func (m *Manager) BeginAttributeEdit(tableID, attrName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.editing = tableID + "/" + attrName
}

// EndAttributeEdit clears the in-flight edit state.
func (m *Manager) EndAttributeEdit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.editing = ""
}

// EditingAttribute reports the attribute identity currently being edited, or
// "" when none is.
func (m *Manager) EditingAttribute() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.editing
}

// Connect accepts a user-drawn canvas connection between two attribute
// handles. Handles follow the pattern "<tableID>-<attrName>-source" and
// "<tableID>-<attrName>-target". A valid connection turns the source
// attribute into a foreign key onto the target attribute.
func (m *Manager) Connect(sourceHandle, targetHandle string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	srcTable, srcAttr, err := m.resolveHandleLocked(sourceHandle, "-source")
	if err != nil {
		return err
	}
	dstTable, dstAttr, err := m.resolveHandleLocked(targetHandle, "-target")
	if err != nil {
		return err
	}
	if srcTable.ID == dstTable.ID {
		return ErrSelfReference
	}

	srcAttr.Kind = schema.KindForeignKey
	srcAttr.RefTable = dstTable.Name
	srcAttr.RefAttr = dstAttr.Name
	if dstAttr.Kind == schema.KindNormal {
		dstAttr.Kind = schema.KindPrimaryKey
		dstAttr.NotNull = true
	}
	m.rebuildEdges()
	return nil
}

func (m *Manager) resolveHandleLocked(handle, suffix string) (*schema.Table, *schema.Attribute, error) {
	if !strings.HasSuffix(handle, suffix) {
		return nil, nil, fmt.Errorf("%w: %q", ErrInvalidHandle, handle)
	}
	trimmed := strings.TrimSuffix(handle, suffix)

	for _, t := range m.tables {
		prefix := t.ID + "-"
		if !strings.HasPrefix(trimmed, prefix) {
			continue
		}
		attrName := trimmed[len(prefix):]
		if attr := t.FindAttribute(attrName); attr != nil {
			return t, attr, nil
		}
		return nil, nil, fmt.Errorf("%w: %q", ErrInvalidHandle, handle)
	}
	return nil, nil, fmt.Errorf("%w: %q", ErrInvalidHandle, handle)
}

// resolveReferenceLocked validates a reference pair case-insensitively and
// returns the target's declared spelling. Stored references always carry that
// spelling so SQL export, which matches attribute names exactly, accepts
// anything the manager accepted.
func (m *Manager) resolveReferenceLocked(refTable, refAttr string) (string, string, error) {
	if refTable == "" || refAttr == "" {
		return "", "", fmt.Errorf("%w: reference table and attribute are required", ErrInvalidReference)
	}
	t := m.findByName(refTable)
	if t == nil {
		return "", "", fmt.Errorf("%w: table %q", ErrInvalidReference, refTable)
	}
	attr := t.FindAttribute(refAttr)
	if attr == nil {
		return "", "", fmt.Errorf("%w: attribute %s.%s", ErrInvalidReference, refTable, refAttr)
	}
	return t.Name, attr.Name, nil
}

// rebuildEdges projects edges from the attribute-level foreign-key facts.
// An attribute whose reference no longer resolves yields no edge.
func (m *Manager) rebuildEdges() {
	var edges []Edge
	for _, t := range m.tables {
		for _, attr := range t.Attributes {
			if attr.Kind != schema.KindForeignKey {
				continue
			}
			target := m.findByName(attr.RefTable)
			if target == nil || target.FindAttribute(attr.RefAttr) == nil {
				continue
			}
			edges = append(edges, Edge{
				ID:          fmt.Sprintf("%s-%s-%s-%s", t.ID, attr.Name, target.ID, attr.RefAttr),
				SourceTable: t.ID,
				SourceAttr:  attr.Name,
				TargetTable: target.ID,
				TargetAttr:  attr.RefAttr,
			})
		}
	}
	m.edges = edges
}

func (m *Manager) indexByID(id string) int {
	for i, t := range m.tables {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (m *Manager) findByName(name string) *schema.Table {
	for _, t := range m.tables {
		if strings.EqualFold(t.Name, name) {
			return t
		}
	}
	return nil
}

func normalizedEqual(a, b string) bool {
	norm := func(s string) string {
		return strings.ToLower(strings.Join(strings.Fields(s), "_"))
	}
	return norm(a) == norm(b)
}

func detach(attr *schema.Attribute) {
	attr.Kind = schema.KindNormal
	attr.RefTable = ""
	attr.RefAttr = ""
}
