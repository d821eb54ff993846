package services

import (
	"context"
	"fmt"

	"schemaboard/internal/database"
	"schemaboard/internal/diagram"
	"schemaboard/internal/repositories"
	"schemaboard/internal/schema"
	"schemaboard/internal/utils"
)

// SchemaService converts between SQL text, live database schemas and the
// diagram node/edge form the editor works on.
type SchemaService struct{}

func NewSchemaService() *SchemaService {
	return &SchemaService{}
}

// ImportResult is a parsed schema ready to load into the canvas.
type ImportResult struct {
	Tables []schema.Table `json:"tables"`
	Edges  []diagram.Edge `json:"edges"`
}

// ImportSQL parses a SQL script into positioned tables and derives the
// relationship edges. Parsing is lenient: malformed statements are skipped,
// so this never fails outright.
func (s *SchemaService) ImportSQL(sqlText string) *ImportResult {
	tables := schema.Parse(sqlText)

	mgr := diagram.NewManager()
	mgr.Replace(tables)

	return &ImportResult{
		Tables: mgr.Tables(),
		Edges:  mgr.Edges(),
	}
}

// ExportSQL renders the tables back to a CREATE TABLE script. The error, if
// any, is a schema.ValidationError or schema.GenerationError carrying every
// problem found.
func (s *SchemaService) ExportSQL(tables []schema.Table) (string, error) {
	return schema.Generate(tables)
}

// ImportFromDatabase introspects a running PostgreSQL database and maps its
// schema into diagram form. The connection is short-lived and closed before
// returning.
func (s *SchemaService) ImportFromDatabase(ctx context.Context, dsn, schemaName string) (*ImportResult, error) {
	if schemaName == "" {
		schemaName = "public"
	}

	pool, err := database.ConnectToSourceDatabase(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to source database: %w", err)
	}
	defer pool.Close()

	live, err := repositories.NewSchemaRepository(pool).LoadSchema(ctx, schemaName)
	if err != nil {
		return nil, fmt.Errorf("introspect schema %q: %w", schemaName, err)
	}

	tables := make([]schema.Table, 0, len(live))
	for _, lt := range live {
		tables = append(tables, mapLiveTable(lt))
	}
	schema.ArrangeGrid(tables)

	mgr := diagram.NewManager()
	mgr.Replace(tables)

	return &ImportResult{
		Tables: mgr.Tables(),
		Edges:  mgr.Edges(),
	}, nil
}

func mapLiveTable(lt repositories.LiveTable) schema.Table {
	fks := make(map[string]repositories.LiveForeignKey, len(lt.ForeignKeys))
	for _, fk := range lt.ForeignKeys {
		fks[fk.FromColumn] = fk
	}

	t := schema.Table{Name: lt.Name}
	for _, col := range lt.Columns {
		attr := schema.Attribute{
			Name:          col.Name,
			Kind:          schema.KindNormal,
			DataType:      schema.NormalizeType(col.DataType),
			NotNull:       !col.Nullable,
			Unique:        utils.Contains(lt.UniqueCols, col.Name),
			AutoIncrement: col.IsIdentity,
		}
		if col.Default != nil {
			attr.DefaultValue = *col.Default
		}
		if utils.Contains(lt.PrimaryKeys, col.Name) {
			attr.Kind = schema.KindPrimaryKey
			attr.NotNull = true
		}
		if fk, ok := fks[col.Name]; ok && attr.Kind != schema.KindPrimaryKey {
			attr.Kind = schema.KindForeignKey
			attr.RefTable = fk.ToTable
			attr.RefAttr = fk.ToColumn
		}
		t.Attributes = append(t.Attributes, attr)
	}
	return t
}
