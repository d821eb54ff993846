package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// LiveColumn, LiveForeignKey and LiveTable mirror information_schema rows of
// a user-supplied database during live import. They stay raw here; mapping
// onto the editor's data model happens in the schema service.
type LiveColumn struct {
	Name       string
	DataType   string
	Nullable   bool
	Default    *string
	IsIdentity bool
}

type LiveForeignKey struct {
	FromColumn string
	ToTable    string
	ToColumn   string
}

type LiveTable struct {
	Name        string
	Columns     []LiveColumn
	PrimaryKeys []string
	UniqueCols  []string
	ForeignKeys []LiveForeignKey
}

// SchemaRepository introspects a running Postgres database so a diagram can
// be bootstrapped from it.
type SchemaRepository struct {
	pool *pgxpool.Pool
}

func NewSchemaRepository(pool *pgxpool.Pool) *SchemaRepository {
	return &SchemaRepository{pool: pool}
}

func (r *SchemaRepository) GetTables(ctx context.Context, schema string) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1
		AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`

	rows, err := r.pool.Query(ctx, query, schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}

	return tables, rows.Err()
}

func (r *SchemaRepository) GetColumns(ctx context.Context, schema, table string) ([]LiveColumn, error) {
	query := `
		SELECT column_name, data_type, is_nullable, column_default, is_identity
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`

	rows, err := r.pool.Query(ctx, query, schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []LiveColumn
	for rows.Next() {
		var col LiveColumn
		var nullable, identity string
		if err := rows.Scan(&col.Name, &col.DataType, &nullable, &col.Default, &identity); err != nil {
			return nil, err
		}
		col.Nullable = nullable == "YES"
		col.IsIdentity = identity == "YES"
		columns = append(columns, col)
	}

	return columns, rows.Err()
}

func (r *SchemaRepository) GetPrimaryKeys(ctx context.Context, schema, table string) ([]string, error) {
	return r.constraintColumns(ctx, schema, table, "PRIMARY KEY")
}

// GetUniqueColumns returns columns covered by a single-column UNIQUE
// constraint.
func (r *SchemaRepository) GetUniqueColumns(ctx context.Context, schema, table string) ([]string, error) {
	return r.constraintColumns(ctx, schema, table, "UNIQUE")
}

func (r *SchemaRepository) constraintColumns(ctx context.Context, schema, table, constraintType string) ([]string, error) {
	query := `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = $3
			AND tc.table_schema = $1
			AND tc.table_name = $2
		ORDER BY kcu.ordinal_position
	`

	rows, err := r.pool.Query(ctx, query, schema, table, constraintType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}

	return cols, rows.Err()
}

func (r *SchemaRepository) GetForeignKeys(ctx context.Context, schema, table string) ([]LiveForeignKey, error) {
	query := `
		SELECT kcu.column_name, ccu.table_name, ccu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
			ON tc.constraint_name = ccu.constraint_name
			AND tc.table_schema = ccu.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
			AND tc.table_schema = $1
			AND tc.table_name = $2
	`

	rows, err := r.pool.Query(ctx, query, schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []LiveForeignKey
	for rows.Next() {
		var fk LiveForeignKey
		if err := rows.Scan(&fk.FromColumn, &fk.ToTable, &fk.ToColumn); err != nil {
			return nil, err
		}
		fks = append(fks, fk)
	}

	return fks, rows.Err()
}

// LoadSchema walks every base table of the given schema and assembles the
// full introspection result.
func (r *SchemaRepository) LoadSchema(ctx context.Context, schema string) ([]LiveTable, error) {
	names, err := r.GetTables(ctx, schema)
	if err != nil {
		return nil, err
	}

	tables := make([]LiveTable, 0, len(names))
	for _, name := range names {
		t := LiveTable{Name: name}

		if t.Columns, err = r.GetColumns(ctx, schema, name); err != nil {
			return nil, err
		}
		if t.PrimaryKeys, err = r.GetPrimaryKeys(ctx, schema, name); err != nil {
			return nil, err
		}
		if t.UniqueCols, err = r.GetUniqueColumns(ctx, schema, name); err != nil {
			return nil, err
		}
		if t.ForeignKeys, err = r.GetForeignKeys(ctx, schema, name); err != nil {
			return nil, err
		}

		tables = append(tables, t)
	}

	return tables, nil
}
