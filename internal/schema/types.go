package schema

import "strings"

// AttributeKind classifies a column within a table.
type AttributeKind string

const (
	KindNormal     AttributeKind = "normal"
	KindPrimaryKey AttributeKind = "primary"
	KindForeignKey AttributeKind = "foreign"
)

// The fixed set of data types the editor understands. Raw SQL types are
// normalized into one of these; anything unrecognized becomes VARCHAR(255).
const (
	TypeVarchar   = "VARCHAR(255)"
	TypeChar      = "CHAR(10)"
	TypeInteger   = "INTEGER"
	TypeBigInt    = "BIGINT"
	TypeDecimal   = "DECIMAL(10,2)"
	TypeFloat     = "FLOAT"
	TypeDouble    = "DOUBLE"
	TypeBoolean   = "BOOLEAN"
	TypeDate      = "DATE"
	TypeDateTime  = "DATETIME"
	TypeTimestamp = "TIMESTAMP"
	TypeTime      = "TIME"
	TypeText      = "TEXT"
	TypeJSON      = "JSON"
	TypeBlob      = "BLOB"
)

// DataTypes lists every supported type, in display order.
var DataTypes = []string{
	TypeVarchar, TypeChar, TypeInteger, TypeBigInt, TypeDecimal,
	TypeFloat, TypeDouble, TypeBoolean, TypeDate, TypeDateTime,
	TypeTimestamp, TypeTime, TypeText, TypeJSON, TypeBlob,
}

// Attribute is a single column of a table.
type Attribute struct {
	Name          string        `json:"name"`
	Kind          AttributeKind `json:"kind"`
	DataType      string        `json:"data_type"`
	NotNull       bool          `json:"not_null"`
	Unique        bool          `json:"unique"`
	AutoIncrement bool          `json:"auto_increment"`
	DefaultValue  string        `json:"default_value,omitempty"`

	// Set only when Kind is KindForeignKey.
	RefTable string `json:"ref_table,omitempty"`
	RefAttr  string `json:"ref_attr,omitempty"`
}

// Table is one entity of the diagram: an ordered list of attributes plus
// canvas placement.
type Table struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	X          float64     `json:"x"`
	Y          float64     `json:"y"`
	Color      string      `json:"color"`
	Attributes []Attribute `json:"attributes"`
}

// FindAttribute returns the attribute with the given name, matched
// case-insensitively, or nil.
func (t *Table) FindAttribute(name string) *Attribute {
	for i := range t.Attributes {
		if strings.EqualFold(t.Attributes[i].Name, name) {
			return &t.Attributes[i]
		}
	}
	return nil
}

// NormalizeType maps a raw SQL type token onto the fixed enumeration.
// Matching is by prefix/substring so dialect variants (INT4, CHARACTER
// VARYING, NUMERIC, ...) land on a sensible bucket.
func NormalizeType(raw string) string {
	t := strings.ToUpper(strings.TrimSpace(raw))

	switch {
	case strings.Contains(t, "VARCHAR"), strings.Contains(t, "CHARACTER VARYING"):
		return TypeVarchar
	case strings.HasPrefix(t, "CHAR"), strings.HasPrefix(t, "CHARACTER"):
		return TypeChar
	case strings.HasPrefix(t, "BIGINT"), strings.HasPrefix(t, "INT8"):
		return TypeBigInt
	case strings.Contains(t, "INT"), strings.HasPrefix(t, "SERIAL"):
		return TypeInteger
	case strings.HasPrefix(t, "DECIMAL"), strings.HasPrefix(t, "NUMERIC"):
		return TypeDecimal
	case strings.HasPrefix(t, "FLOAT"), strings.HasPrefix(t, "REAL"):
		return TypeFloat
	case strings.HasPrefix(t, "DOUBLE"):
		return TypeDouble
	case strings.HasPrefix(t, "BOOL"):
		return TypeBoolean
	case strings.HasPrefix(t, "DATETIME"):
		return TypeDateTime
	case strings.HasPrefix(t, "TIMESTAMP"):
		return TypeTimestamp
	case strings.HasPrefix(t, "TIME"):
		return TypeTime
	case strings.HasPrefix(t, "DATE"):
		return TypeDate
	case strings.HasPrefix(t, "TEXT"), strings.HasPrefix(t, "CLOB"):
		return TypeText
	case strings.HasPrefix(t, "JSON"):
		return TypeJSON
	case strings.HasPrefix(t, "BLOB"), strings.HasPrefix(t, "BYTEA"):
		return TypeBlob
	default:
		return TypeVarchar
	}
}
