package diagram_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schemaboard/internal/diagram"
	"schemaboard/internal/schema"
)

func seedManager(t *testing.T) (*diagram.Manager, string, string) {
	t.Helper()
	m := diagram.NewManager()

	usersID, err := m.AddTable(schema.Table{
		Name: "users",
		Attributes: []schema.Attribute{
			{Name: "id", Kind: schema.KindPrimaryKey, DataType: schema.TypeInteger, NotNull: true},
			{Name: "email", Kind: schema.KindNormal, DataType: schema.TypeVarchar},
		},
	})
	require.NoError(t, err)

	ordersID, err := m.AddTable(schema.Table{
		Name: "orders",
		Attributes: []schema.Attribute{
			{Name: "id", Kind: schema.KindPrimaryKey, DataType: schema.TypeInteger, NotNull: true},
			{Name: "user_id", Kind: schema.KindForeignKey, DataType: schema.TypeInteger, RefTable: "users", RefAttr: "id"},
		},
	})
	require.NoError(t, err)

	return m, usersID, ordersID
}

func TestAddTableAssignsIDAndDerivesEdges(t *testing.T) {
	m, usersID, ordersID := seedManager(t)

	require.Len(t, m.Tables(), 2)
	edges := m.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, ordersID, edges[0].SourceTable)
	assert.Equal(t, "user_id", edges[0].SourceAttr)
	assert.Equal(t, usersID, edges[0].TargetTable)
	assert.Equal(t, "id", edges[0].TargetAttr)
}

func TestAddTableRejectsDuplicateName(t *testing.T) {
	m, _, _ := seedManager(t)

	_, err := m.AddTable(schema.Table{Name: "USERS"})
	assert.ErrorIs(t, err, diagram.ErrDuplicateName)
}

func TestDeleteTableDetachesInboundForeignKeys(t *testing.T) {
	m, usersID, ordersID := seedManager(t)

	require.NoError(t, m.DeleteTable(usersID))

	require.Len(t, m.Tables(), 1)
	assert.Empty(t, m.Edges())

	var orders schema.Table
	for _, tbl := range m.Tables() {
		if tbl.ID == ordersID {
			orders = tbl
		}
	}
	fk := orders.FindAttribute("user_id")
	require.NotNil(t, fk)
	assert.Equal(t, schema.KindNormal, fk.Kind)
	assert.Empty(t, fk.RefTable)
	assert.Empty(t, fk.RefAttr)
}

func TestDeleteTableUnknownID(t *testing.T) {
	m, _, _ := seedManager(t)
	assert.ErrorIs(t, m.DeleteTable("nope"), diagram.ErrTableNotFound)
}

func TestRenameTablePropagatesToReferences(t *testing.T) {
	m, usersID, _ := seedManager(t)

	require.NoError(t, m.RenameTable(usersID, "accounts"))

	for _, tbl := range m.Tables() {
		if tbl.Name != "orders" {
			continue
		}
		fk := tbl.FindAttribute("user_id")
		require.NotNil(t, fk)
		assert.Equal(t, "accounts", fk.RefTable)
	}
	assert.Len(t, m.Edges(), 1, "the edge survives the rename")
}

func TestRenameTableCollision(t *testing.T) {
	m, usersID, _ := seedManager(t)

	// "  ORDERS " normalizes to the same name as the existing table.
	err := m.RenameTable(usersID, "  ORDERS ")
	assert.ErrorIs(t, err, diagram.ErrDuplicateName)

	// Renaming a table to its own name is not a collision.
	assert.NoError(t, m.RenameTable(usersID, "users"))
}

func TestMoveTable(t *testing.T) {
	m, usersID, _ := seedManager(t)

	require.NoError(t, m.MoveTable(usersID, 42, 99.5))
	for _, tbl := range m.Tables() {
		if tbl.ID == usersID {
			assert.Equal(t, 42.0, tbl.X)
			assert.Equal(t, 99.5, tbl.Y)
		}
	}
}

func TestAddAttributeValidation(t *testing.T) {
	m, usersID, _ := seedManager(t)

	// Duplicate name, case-insensitive.
	err := m.AddAttribute(usersID, schema.Attribute{Name: "EMAIL", Kind: schema.KindNormal, DataType: schema.TypeText})
	assert.ErrorIs(t, err, diagram.ErrDuplicateName)

	// Foreign key without a resolvable target.
	err = m.AddAttribute(usersID, schema.Attribute{
		Name: "team_id", Kind: schema.KindForeignKey, DataType: schema.TypeInteger,
		RefTable: "teams", RefAttr: "id",
	})
	assert.ErrorIs(t, err, diagram.ErrInvalidReference)

	// A primary key is forced NOT NULL on the way in.
	require.NoError(t, m.AddAttribute(usersID, schema.Attribute{
		Name: "code", Kind: schema.KindPrimaryKey, DataType: schema.TypeVarchar,
	}))
	for _, tbl := range m.Tables() {
		if tbl.ID == usersID {
			attr := tbl.FindAttribute("code")
			require.NotNil(t, attr)
			assert.True(t, attr.NotNull)
		}
	}
}

func TestForeignKeyReferenceCanonicalized(t *testing.T) {
	m, usersID, ordersID := seedManager(t)

	// References resolve case-insensitively but are stored with the target's
	// declared spelling, so the strict SQL export accepts them.
	require.NoError(t, m.AddAttribute(ordersID, schema.Attribute{
		Name: "owner_id", Kind: schema.KindForeignKey, DataType: schema.TypeInteger,
		RefTable: "USERS", RefAttr: "ID",
	}))
	for _, tbl := range m.Tables() {
		if tbl.ID == ordersID {
			attr := tbl.FindAttribute("owner_id")
			require.NotNil(t, attr)
			assert.Equal(t, "users", attr.RefTable)
			assert.Equal(t, "id", attr.RefAttr)
		}
	}
	assert.Len(t, m.Edges(), 2)

	require.NoError(t, m.UpdateAttribute(usersID, "email", schema.Attribute{
		Name: "email", Kind: schema.KindForeignKey, DataType: schema.TypeVarchar,
		RefTable: "Orders", RefAttr: "Id",
	}))
	for _, tbl := range m.Tables() {
		if tbl.ID == usersID {
			attr := tbl.FindAttribute("email")
			require.NotNil(t, attr)
			assert.Equal(t, "orders", attr.RefTable)
			assert.Equal(t, "id", attr.RefAttr)
		}
	}

	_, err := schema.Generate(m.Tables())
	assert.NoError(t, err, "anything the manager accepts must export")
}

func TestUpdateAttributeKindTransitions(t *testing.T) {
	m, _, ordersID := seedManager(t)

	// Demoting the foreign key to normal clears its reference and the edge.
	require.NoError(t, m.UpdateAttribute(ordersID, "user_id", schema.Attribute{
		Name: "user_id", Kind: schema.KindNormal, DataType: schema.TypeInteger,
	}))
	assert.Empty(t, m.Edges())

	// Promoting it back requires a valid target again.
	err := m.UpdateAttribute(ordersID, "user_id", schema.Attribute{
		Name: "user_id", Kind: schema.KindForeignKey, DataType: schema.TypeInteger,
	})
	assert.ErrorIs(t, err, diagram.ErrInvalidReference)

	require.NoError(t, m.UpdateAttribute(ordersID, "user_id", schema.Attribute{
		Name: "user_id", Kind: schema.KindForeignKey, DataType: schema.TypeInteger,
		RefTable: "users", RefAttr: "id",
	}))
	assert.Len(t, m.Edges(), 1)

	// Switching to primary key strips the reference and forces NOT NULL.
	require.NoError(t, m.UpdateAttribute(ordersID, "user_id", schema.Attribute{
		Name: "user_id", Kind: schema.KindPrimaryKey, DataType: schema.TypeInteger,
	}))
	assert.Empty(t, m.Edges())
	for _, tbl := range m.Tables() {
		if tbl.ID == ordersID {
			attr := tbl.FindAttribute("user_id")
			require.NotNil(t, attr)
			assert.True(t, attr.NotNull)
			assert.Empty(t, attr.RefTable)
		}
	}
}

func TestUpdateAttributeRenameCollision(t *testing.T) {
	m, usersID, _ := seedManager(t)

	err := m.UpdateAttribute(usersID, "email", schema.Attribute{
		Name: "ID", Kind: schema.KindNormal, DataType: schema.TypeText,
	})
	assert.ErrorIs(t, err, diagram.ErrDuplicateName)
}

func TestDeleteAttributeDetachesReferencingColumns(t *testing.T) {
	m, usersID, ordersID := seedManager(t)

	require.NoError(t, m.DeleteAttribute(usersID, "id"))

	assert.Empty(t, m.Edges())
	for _, tbl := range m.Tables() {
		if tbl.ID == ordersID {
			fk := tbl.FindAttribute("user_id")
			require.NotNil(t, fk)
			assert.Equal(t, schema.KindNormal, fk.Kind)
		}
	}
}

func TestConnectHandles(t *testing.T) {
	m, usersID, ordersID := seedManager(t)

	// Demote the existing foreign key so the connection below recreates it.
	require.NoError(t, m.UpdateAttribute(ordersID, "user_id", schema.Attribute{
		Name: "user_id", Kind: schema.KindNormal, DataType: schema.TypeInteger,
	}))
	require.Empty(t, m.Edges())

	err := m.Connect(ordersID+"-user_id-source", usersID+"-email-target")
	require.NoError(t, err)

	edges := m.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, "user_id", edges[0].SourceAttr)
	assert.Equal(t, "email", edges[0].TargetAttr)

	// A plain target attribute becomes a primary key when connected to.
	for _, tbl := range m.Tables() {
		if tbl.ID == usersID {
			email := tbl.FindAttribute("email")
			require.NotNil(t, email)
			assert.Equal(t, schema.KindPrimaryKey, email.Kind)
			assert.True(t, email.NotNull)
		}
	}
}

func TestConnectRejectsBadHandles(t *testing.T) {
	m, usersID, ordersID := seedManager(t)

	// Wrong suffix.
	err := m.Connect(ordersID+"-user_id-target", usersID+"-id-target")
	assert.ErrorIs(t, err, diagram.ErrInvalidHandle)

	// Unknown attribute.
	err = m.Connect(ordersID+"-missing-source", usersID+"-id-target")
	assert.ErrorIs(t, err, diagram.ErrInvalidHandle)

	// Unknown table.
	err = m.Connect("nope-user_id-source", usersID+"-id-target")
	assert.ErrorIs(t, err, diagram.ErrInvalidHandle)

	// Same table on both ends.
	err = m.Connect(ordersID+"-user_id-source", ordersID+"-id-target")
	assert.ErrorIs(t, err, diagram.ErrSelfReference)
}

func TestReplaceResetsEditState(t *testing.T) {
	m, usersID, _ := seedManager(t)

	m.BeginAttributeEdit(usersID, "email")
	require.NotEmpty(t, m.EditingAttribute())

	m.Replace(schema.Parse(`
		CREATE TABLE products (id INT PRIMARY KEY);
		CREATE TABLE reviews (
			id INT PRIMARY KEY,
			product_id INT REFERENCES products(id)
		);
	`))

	assert.Empty(t, m.EditingAttribute())
	assert.Len(t, m.Tables(), 2)
	assert.Len(t, m.Edges(), 1)

	for _, tbl := range m.Tables() {
		assert.NotEmpty(t, tbl.ID, "replace assigns IDs to incoming tables")
	}
}
