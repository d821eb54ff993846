package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schemaboard/internal/schema"
)

func TestGenerateEmptyDiagram(t *testing.T) {
	sql, err := schema.Generate(nil)
	require.NoError(t, err)
	assert.Equal(t, schema.NothingToExport, sql)
}

func TestGenerateSingleTable(t *testing.T) {
	tables := []schema.Table{{
		Name: "users",
		Attributes: []schema.Attribute{
			{Name: "id", Kind: schema.KindPrimaryKey, DataType: schema.TypeInteger, AutoIncrement: true},
			{Name: "email", Kind: schema.KindNormal, DataType: schema.TypeVarchar, NotNull: true, Unique: true},
			{Name: "active", Kind: schema.KindNormal, DataType: schema.TypeBoolean, DefaultValue: "TRUE"},
		},
	}}

	sql, err := schema.Generate(tables)
	require.NoError(t, err)

	want := "CREATE TABLE users (\n" +
		"  id INTEGER IDENTITY(1,1) NOT NULL PRIMARY KEY,\n" +
		"  email VARCHAR(255) NOT NULL UNIQUE,\n" +
		"  active BOOLEAN DEFAULT TRUE\n" +
		");"
	assert.Equal(t, want, sql)
}

func TestGeneratePrimaryKeyImpliesNotNullAndSuppressesUnique(t *testing.T) {
	tables := []schema.Table{{
		Name: "t",
		Attributes: []schema.Attribute{
			// NotNull false and Unique true on a primary key: output must
			// still say NOT NULL and must not say UNIQUE.
			{Name: "id", Kind: schema.KindPrimaryKey, DataType: schema.TypeInteger, Unique: true},
		},
	}}

	sql, err := schema.Generate(tables)
	require.NoError(t, err)
	assert.Contains(t, sql, "id INTEGER NOT NULL PRIMARY KEY")
	assert.NotContains(t, sql, "UNIQUE")
}

func TestGenerateForeignKeyConstraints(t *testing.T) {
	tables := []schema.Table{
		{
			Name: "users",
			Attributes: []schema.Attribute{
				{Name: "id", Kind: schema.KindPrimaryKey, DataType: schema.TypeInteger},
			},
		},
		{
			Name: "orders",
			Attributes: []schema.Attribute{
				{Name: "id", Kind: schema.KindPrimaryKey, DataType: schema.TypeInteger},
				{Name: "user_id", Kind: schema.KindForeignKey, DataType: schema.TypeInteger, RefTable: "users", RefAttr: "id"},
			},
		},
	}

	sql, err := schema.Generate(tables)
	require.NoError(t, err)
	assert.Contains(t, sql, "FOREIGN KEY (user_id) REFERENCES users(id)")
	// Statements are separated by a blank line, users first.
	assert.Regexp(t, `(?s)CREATE TABLE users.*\n\nCREATE TABLE orders`, sql)
}

func TestGenerateNameNormalization(t *testing.T) {
	tables := []schema.Table{
		{
			Name: "  my   orders ",
			Attributes: []schema.Attribute{
				{Name: "id", Kind: schema.KindPrimaryKey, DataType: schema.TypeInteger},
			},
		},
		{
			// No name at all: a synthetic one is derived from the ID.
			ID: "abc123",
			Attributes: []schema.Attribute{
				{Name: "id", Kind: schema.KindPrimaryKey, DataType: schema.TypeInteger},
			},
		},
	}

	sql, err := schema.Generate(tables)
	require.NoError(t, err)
	assert.Contains(t, sql, "CREATE TABLE my_orders (")
	assert.Contains(t, sql, "CREATE TABLE Table_abc123 (")
}

func TestGenerateCollectsAllValidationProblems(t *testing.T) {
	tables := []schema.Table{
		{
			Name:       "empty",
			Attributes: nil, // problem 1: no columns
		},
		{
			Name: "users",
			Attributes: []schema.Attribute{
				{Name: "id", Kind: schema.KindPrimaryKey, DataType: schema.TypeInteger},
				{Name: "id", Kind: schema.KindNormal, DataType: schema.TypeText}, // problem 2: duplicate column
			},
		},
		{
			Name: "orders",
			Attributes: []schema.Attribute{
				{Name: "ref", Kind: schema.KindForeignKey, DataType: schema.TypeInteger, RefTable: "nowhere", RefAttr: "id"}, // problem 3
			},
		},
	}

	sql, err := schema.Generate(tables)
	assert.Empty(t, sql)

	var vErr *schema.ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Len(t, vErr.Problems, 3)
	assert.Contains(t, vErr.Problems[0], "no columns")
	assert.Contains(t, vErr.Problems[1], "duplicate column")
	assert.Contains(t, vErr.Problems[2], "unknown table")
}

func TestGenerateDuplicateTableNames(t *testing.T) {
	tables := []schema.Table{
		{Name: "users", Attributes: []schema.Attribute{{Name: "id", Kind: schema.KindPrimaryKey, DataType: schema.TypeInteger}}},
		{Name: "users", Attributes: []schema.Attribute{{Name: "id", Kind: schema.KindPrimaryKey, DataType: schema.TypeInteger}}},
	}

	_, err := schema.Generate(tables)
	var vErr *schema.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Problems[0], "duplicate table name")
}

func TestGenerateForeignKeyColumnMatchIsExact(t *testing.T) {
	tables := []schema.Table{
		{Name: "users", Attributes: []schema.Attribute{{Name: "ID", Kind: schema.KindPrimaryKey, DataType: schema.TypeInteger}}},
		{Name: "orders", Attributes: []schema.Attribute{
			{Name: "user_id", Kind: schema.KindForeignKey, DataType: schema.TypeInteger, RefTable: "users", RefAttr: "id"},
		}},
	}

	// "id" does not exactly match "ID"; unlike the parser, export is strict.
	_, err := schema.Generate(tables)
	var vErr *schema.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Problems[0], "unknown column")
}

func TestGenerateUnknownDataType(t *testing.T) {
	tables := []schema.Table{
		{Name: "users", Attributes: []schema.Attribute{
			{Name: "shape", Kind: schema.KindNormal, DataType: "GEOMETRY"},
		}},
	}

	_, err := schema.Generate(tables)
	var gErr *schema.GenerationError
	require.ErrorAs(t, err, &gErr)
	require.Len(t, gErr.Problems, 1)
	assert.Contains(t, gErr.Problems[0], `unsupported data type "GEOMETRY"`)
}

// Exported SQL fed back through the parser must describe the same schema and
// re-export to identical SQL.
func TestGenerateParseRoundTrip(t *testing.T) {
	tables := []schema.Table{
		{
			Name: "users",
			Attributes: []schema.Attribute{
				{Name: "id", Kind: schema.KindPrimaryKey, DataType: schema.TypeInteger, AutoIncrement: true},
				{Name: "email", Kind: schema.KindNormal, DataType: schema.TypeVarchar, NotNull: true, Unique: true},
				{Name: "joined", Kind: schema.KindNormal, DataType: schema.TypeDate},
			},
		},
		{
			Name: "orders",
			Attributes: []schema.Attribute{
				{Name: "id", Kind: schema.KindPrimaryKey, DataType: schema.TypeInteger},
				{Name: "total", Kind: schema.KindNormal, DataType: schema.TypeDecimal, NotNull: true},
				{Name: "user_id", Kind: schema.KindForeignKey, DataType: schema.TypeInteger, RefTable: "users", RefAttr: "id"},
			},
		},
	}

	first, err := schema.Generate(tables)
	require.NoError(t, err)

	reparsed := schema.Parse(first)
	require.Len(t, reparsed, 2)

	second, err := schema.Generate(reparsed)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
