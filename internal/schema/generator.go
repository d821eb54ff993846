package schema

import (
	"fmt"
	"regexp"
	"strings"
)

// NothingToExport is returned by Generate for an empty diagram. It is a
// sentinel message, not an error.
const NothingToExport = "-- nothing to export"

// ValidationError aggregates every schema violation found during the
// pre-generation pass, so the user sees all problems in one report.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema validation failed:\n- %s", strings.Join(e.Problems, "\n- "))
}

// GenerationError aggregates per-table failures from the generation pass.
type GenerationError struct {
	Problems []string
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("SQL generation failed:\n- %s", strings.Join(e.Problems, "\n- "))
}

var nameSpaceRe = regexp.MustCompile(`\s+`)

// normalizeName collapses whitespace runs in a table name to underscores.
func normalizeName(name string) string {
	return nameSpaceRe.ReplaceAllString(strings.TrimSpace(name), "_")
}

// resolvedName returns the table name used for emission. An unnamed table
// gets a synthetic name and never fails validation on that alone.
func resolvedName(t *Table, index int) string {
	name := normalizeName(t.Name)
	if name != "" {
		return name
	}
	if t.ID != "" {
		return "Table_" + t.ID
	}
	return fmt.Sprintf("Table_%d", index)
}

// Generate renders the tables as CREATE TABLE statements. It is
// all-or-nothing: validation problems (or per-table generation failures) are
// collected and returned together, and no partial SQL is ever produced.
func Generate(tables []Table) (string, error) {
	if len(tables) == 0 {
		return NothingToExport, nil
	}

	names := make([]string, len(tables))
	for i := range tables {
		names[i] = resolvedName(&tables[i], i)
	}

	if problems := validate(tables, names); len(problems) > 0 {
		return "", &ValidationError{Problems: problems}
	}

	var stmts []string
	var failures []string
	for i := range tables {
		stmt, err := buildCreateTable(&tables[i], names[i])
		if err != nil {
			failures = append(failures, fmt.Sprintf("table %s: %v", names[i], err))
			continue
		}
		stmts = append(stmts, stmt)
	}
	if len(failures) > 0 {
		return "", &GenerationError{Problems: failures}
	}

	return strings.TrimSpace(strings.Join(stmts, "\n\n")), nil
}

// validate runs the full pre-flight pass, accumulating every violation
// instead of stopping at the first.
func validate(tables []Table, names []string) []string {
	var problems []string

	seen := make(map[string]int)
	for i, name := range names {
		if first, ok := seen[name]; ok {
			problems = append(problems, fmt.Sprintf("duplicate table name %q (tables %d and %d)", name, first+1, i+1))
			continue
		}
		seen[name] = i
	}

	byName := make(map[string]*Table, len(tables))
	for i := range tables {
		byName[names[i]] = &tables[i]
	}

	for i := range tables {
		t := &tables[i]
		name := names[i]

		if len(t.Attributes) == 0 {
			problems = append(problems, fmt.Sprintf("table %q has no columns", name))
		}

		attrSeen := make(map[string]bool)
		for _, attr := range t.Attributes {
			if strings.TrimSpace(attr.Name) == "" {
				problems = append(problems, fmt.Sprintf("table %q has a column with an empty name", name))
				continue
			}
			if attrSeen[attr.Name] {
				problems = append(problems, fmt.Sprintf("table %q has duplicate column %q", name, attr.Name))
				continue
			}
			attrSeen[attr.Name] = true

			if attr.Kind != KindForeignKey {
				continue
			}
			if attr.RefTable == "" || attr.RefAttr == "" {
				problems = append(problems, fmt.Sprintf("foreign key %s.%s is missing its reference target", name, attr.Name))
				continue
			}
			target, ok := byName[normalizeName(attr.RefTable)]
			if !ok {
				problems = append(problems, fmt.Sprintf("foreign key %s.%s references unknown table %q", name, attr.Name, attr.RefTable))
				continue
			}
			if !hasExactAttribute(target, attr.RefAttr) {
				problems = append(problems, fmt.Sprintf("foreign key %s.%s references unknown column %s.%s", name, attr.Name, attr.RefTable, attr.RefAttr))
			}
		}
	}

	return problems
}

func hasExactAttribute(t *Table, name string) bool {
	for _, attr := range t.Attributes {
		if attr.Name == name {
			return true
		}
	}
	return false
}

func isKnownType(dataType string) bool {
	for _, dt := range DataTypes {
		if dt == dataType {
			return true
		}
	}
	return false
}

// buildCreateTable emits one statement. Modifier order is fixed (IDENTITY,
// NOT NULL, UNIQUE, DEFAULT, PRIMARY KEY) so output is deterministic and
// diffable. Foreign-key constraints follow the column list, one per line, in
// declaration order.
func buildCreateTable(t *Table, name string) (string, error) {
	var lines []string

	for _, attr := range t.Attributes {
		if !isKnownType(attr.DataType) {
			return "", fmt.Errorf("unsupported data type %q on column %q", attr.DataType, attr.Name)
		}

		isPK := attr.Kind == KindPrimaryKey

		var b strings.Builder
		b.WriteString("  ")
		b.WriteString(attr.Name)
		b.WriteString(" ")
		b.WriteString(attr.DataType)
		if attr.AutoIncrement {
			b.WriteString(" IDENTITY(1,1)")
		}
		// A primary key is implicitly NOT NULL regardless of the stored flag.
		if attr.NotNull || isPK {
			b.WriteString(" NOT NULL")
		}
		// UNIQUE is redundant on a primary key.
		if attr.Unique && !isPK {
			b.WriteString(" UNIQUE")
		}
		if attr.DefaultValue != "" {
			b.WriteString(" DEFAULT ")
			b.WriteString(attr.DefaultValue)
		}
		if isPK {
			b.WriteString(" PRIMARY KEY")
		}
		lines = append(lines, b.String())
	}

	for _, attr := range t.Attributes {
		if attr.Kind != KindForeignKey {
			continue
		}
		lines = append(lines, fmt.Sprintf("  FOREIGN KEY (%s) REFERENCES %s(%s)",
			attr.Name, normalizeName(attr.RefTable), attr.RefAttr))
	}

	return fmt.Sprintf("CREATE TABLE %s (\n%s\n);", name, strings.Join(lines, ",\n")), nil
}
