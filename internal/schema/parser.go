package schema

import (
	"regexp"
	"strings"
)

// Grid used for the initial canvas placement of imported tables.
const (
	gridColumns    = 3
	gridCellWidth  = 320
	gridCellHeight = 360
)

// Default table colors, assigned round-robin on import.
var tableColors = []string{
	"#2563eb", "#16a34a", "#d97706", "#dc2626", "#7c3aed", "#0891b2",
}

var (
	lineCommentRe  = regexp.MustCompile(`--[^\n]*`)
	blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
	whitespaceRe   = regexp.MustCompile(`\s+`)

	createTableRe = regexp.MustCompile("(?i)^CREATE\\s+TABLE\\s+(?:IF\\s+NOT\\s+EXISTS\\s+)?[\"`]?(\\w+)[\"`]?")
	alterFKRe     = regexp.MustCompile("(?i)^ALTER\\s+TABLE\\s+[\"`]?(\\w+)[\"`]?\\s+ADD\\s+(?:CONSTRAINT\\s+\\w+\\s+)?FOREIGN\\s+KEY\\s*\\(\\s*[\"`]?(\\w+)[\"`]?\\s*\\)\\s*REFERENCES\\s+[\"`]?(\\w+)[\"`]?\\s*\\(\\s*[\"`]?(\\w+)[\"`]?\\s*\\)")
	inlineFKRe    = regexp.MustCompile("(?i)^FOREIGN\\s+KEY\\s*\\(\\s*[\"`]?(\\w+)[\"`]?\\s*\\)\\s*REFERENCES\\s+[\"`]?(\\w+)[\"`]?\\s*\\(\\s*[\"`]?(\\w+)[\"`]?\\s*\\)")
	tablePKRe     = regexp.MustCompile("(?i)^PRIMARY\\s+KEY\\s*\\(\\s*[\"`]?(\\w+)[\"`]?\\s*\\)")
	columnDefRe   = regexp.MustCompile("(?i)^[\"`]?(\\w+)[\"`]?\\s+([A-Za-z]+(?:\\s*\\([^)]*\\))?)(.*)$")
	referencesRe  = regexp.MustCompile("(?i)REFERENCES\\s+[\"`]?(\\w+)[\"`]?\\s*\\(\\s*[\"`]?(\\w+)[\"`]?\\s*\\)")
	defaultRe     = regexp.MustCompile(`(?i)DEFAULT\s+('[^']*'|\([^)]*\)|[^\s,]+)`)
)

// pendingRef is a foreign-key edge noted during statement parsing and applied
// once every table has been seen, so forward references work.
type pendingRef struct {
	table    string
	column   string
	refTable string
	refAttr  string
}

// Parse turns free-form SQL text into an ordered list of tables. The parse is
// best effort: statements it does not recognize are skipped, and it never
// returns an error. Only CREATE TABLE and ALTER TABLE ... ADD FOREIGN KEY are
// understood.
func Parse(sqlText string) []Table {
	cleaned := stripComments(sqlText)
	cleaned = whitespaceRe.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)

	var tables []*Table
	var pending []pendingRef

	for _, stmt := range strings.Split(cleaned, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}

		if m := createTableRe.FindStringSubmatch(stmt); m != nil {
			table, refs := parseCreateTable(m[1], stmt)
			tables = append(tables, table)
			pending = append(pending, refs...)
			continue
		}

		if m := alterFKRe.FindStringSubmatch(stmt); m != nil {
			pending = append(pending, pendingRef{
				table:    m[1],
				column:   m[2],
				refTable: m[3],
				refAttr:  m[4],
			})
			continue
		}

		// Anything else (DROP, INSERT, garbage) is ignored.
	}

	applyPendingRefs(tables, pending)

	out := make([]Table, len(tables))
	for i, t := range tables {
		out[i] = *t
	}
	ArrangeGrid(out)
	return out
}

// ArrangeGrid lays tables out left to right in rows of three and assigns each
// a color from the palette. Positions are overwritten.
func ArrangeGrid(tables []Table) {
	for i := range tables {
		tables[i].X = float64((i % gridColumns) * gridCellWidth)
		tables[i].Y = float64((i / gridColumns) * gridCellHeight)
		tables[i].Color = tableColors[i%len(tableColors)]
	}
}

func stripComments(s string) string {
	s = blockCommentRe.ReplaceAllString(s, " ")
	s = lineCommentRe.ReplaceAllString(s, " ")
	return s
}

// parseCreateTable extracts the parenthesized body of a CREATE TABLE
// statement and walks its clauses. A statement without a body still yields a
// table with no attributes.
func parseCreateTable(name, stmt string) (*Table, []pendingRef) {
	table := &Table{Name: name}

	lparen := strings.Index(stmt, "(")
	rparen := strings.LastIndex(stmt, ")")
	if lparen < 0 || rparen < lparen {
		return table, nil
	}
	body := stmt[lparen+1 : rparen]

	var refs []pendingRef
	for _, clause := range splitTopLevel(body) {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}

		if m := inlineFKRe.FindStringSubmatch(clause); m != nil {
			refs = append(refs, pendingRef{
				table:    name,
				column:   m[1],
				refTable: m[2],
				refAttr:  m[3],
			})
			continue
		}

		if m := tablePKRe.FindStringSubmatch(clause); m != nil {
			if attr := table.FindAttribute(m[1]); attr != nil {
				attr.Kind = KindPrimaryKey
				attr.NotNull = true
			}
			continue
		}

		m := columnDefRe.FindStringSubmatch(clause)
		if m == nil {
			continue
		}
		colName, rawType, rest := m[1], m[2], m[3]
		if isClauseKeyword(colName) {
			continue
		}

		attr := Attribute{
			Name:     colName,
			Kind:     KindNormal,
			DataType: NormalizeType(rawType),
		}

		upper := strings.ToUpper(rest)
		if rm := referencesRe.FindStringSubmatch(rest); rm != nil {
			refs = append(refs, pendingRef{
				table:    name,
				column:   colName,
				refTable: rm[1],
				refAttr:  rm[2],
			})
		}
		if strings.Contains(upper, "PRIMARY KEY") {
			attr.Kind = KindPrimaryKey
			attr.NotNull = true
		}
		if strings.Contains(upper, "NOT NULL") {
			attr.NotNull = true
		}
		if strings.Contains(upper, "UNIQUE") {
			attr.Unique = true
		}
		if strings.Contains(upper, "IDENTITY") {
			attr.AutoIncrement = true
		}
		if dm := defaultRe.FindStringSubmatch(rest); dm != nil {
			attr.DefaultValue = dm[1]
		}

		table.Attributes = append(table.Attributes, attr)
	}

	return table, refs
}

// splitTopLevel splits a CREATE TABLE body on commas, tracking parenthesis
// depth so commas inside DECIMAL(10,2) or CHECK(...) do not split.
func splitTopLevel(body string) []string {
	var parts []string
	depth := 0
	start := 0
	for i, r := range body {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, body[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, body[start:])
	return parts
}

// isClauseKeyword filters table-level constraint clauses that would otherwise
// match the column-definition shape.
func isClauseKeyword(ident string) bool {
	switch strings.ToUpper(ident) {
	case "CONSTRAINT", "PRIMARY", "FOREIGN", "UNIQUE", "CHECK", "KEY", "INDEX":
		return true
	}
	return false
}

// applyPendingRefs resolves the recorded foreign-key edges. Both table names
// are matched case-insensitively; an edge whose owning or referenced side is
// missing is dropped without complaint. A referenced attribute still marked
// normal is promoted to primary key, on the assumption that reference targets
// are keys.
func applyPendingRefs(tables []*Table, pending []pendingRef) {
	for _, ref := range pending {
		owner := findTable(tables, ref.table)
		target := findTable(tables, ref.refTable)
		if owner == nil || target == nil {
			continue
		}

		attr := owner.FindAttribute(ref.column)
		targetAttr := target.FindAttribute(ref.refAttr)
		if attr == nil || targetAttr == nil {
			continue
		}

		attr.Kind = KindForeignKey
		attr.RefTable = target.Name
		attr.RefAttr = targetAttr.Name

		if targetAttr.Kind == KindNormal {
			targetAttr.Kind = KindPrimaryKey
			targetAttr.NotNull = true
		}
	}
}

func findTable(tables []*Table, name string) *Table {
	for _, t := range tables {
		if strings.EqualFold(t.Name, name) {
			return t
		}
	}
	return nil
}
