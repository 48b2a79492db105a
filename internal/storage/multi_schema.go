// TableSpec lives here so both multitable and the backend packages can import it
// without circular deps.
package storage

import "strings"

// TableSpec describes one destination table for DDL generation.
type TableSpec struct {
	Name            string           `json:"name"`
	AutoCreateTable bool             `json:"auto_create_table"`
	Columns         []ColumnSpec     `json:"columns"`
	PrimaryKey      []string         `json:"primary_key,omitempty"`
	Constraints     []ConstraintSpec `json:"constraints,omitempty"`
}

// ColumnSpec uses a portable type vocabulary (see ColumnType); backends map
// it to native types.
type ColumnSpec struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`

	// References is "table(column)". The table part is qualified the same way
	// as the owning table.
	References string `json:"references,omitempty"`
	Nullable   *bool  `json:"nullable,omitempty"`
}

type ConstraintSpec struct {
	Kind    string   `json:"kind"` // "unique"
	Columns []string `json:"columns"`
}

type ColumnType string

const (
	TypeBigInt  ColumnType = "bigint"
	TypeInt     ColumnType = "int"
	TypeText    ColumnType = "text"
	TypeKey     ColumnType = "key" // short text used as a key or join column
	TypeFloat   ColumnType = "float"
	TypeBoolean ColumnType = "boolean"
)

// IsNullable reports the column's nullability; nil means NOT NULL.
func (c ColumnSpec) IsNullable() bool {
	return c.Nullable != nil && *c.Nullable
}

// SplitQualifiedName splits a schema-qualified name into (schema, table).
//
// Examples:
//   - "public.countries" => ("public", "countries")
//   - "countries"        => ("", "countries")
//
// Only a single dot is handled; anything else is treated as unqualified.
func SplitQualifiedName(name string) (schema string, table string) {
	name = strings.TrimSpace(name)
	parts := strings.Split(name, ".")
	if len(parts) != 2 {
		return "", name
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
}

// Qualify prefixes table with schema when schema is set.
func Qualify(schema, table string) string {
	if schema == "" {
		return table
	}
	return schema + "." + table
}

// SplitReference parses a "table(column)" reference.
func SplitReference(ref string) (table, column string, ok bool) {
	ref = strings.TrimSpace(ref)
	open := strings.IndexByte(ref, '(')
	if open <= 0 || !strings.HasSuffix(ref, ")") {
		return "", "", false
	}
	return strings.TrimSpace(ref[:open]), strings.TrimSpace(ref[open+1 : len(ref)-1]), true
}
