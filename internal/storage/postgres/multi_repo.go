package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gamestar/internal/storage"
)

/*
MultiRepo implements storage.MultiRepository for Postgres.

It provides:
  - CREATE SCHEMA / CREATE TABLE IF NOT EXISTS from storage.TableSpec
  - Bulk appends through the COPY protocol (pgx CopyFrom)

A COPY is a single statement, so a failed CopyRows leaves no partial rows.
*/
type MultiRepo struct {
	pool *pgxpool.Pool
}

func init() {
	storage.RegisterMulti("postgres", NewMulti)
}

// NewMulti creates a new Postgres-backed MultiRepo.
func NewMulti(ctx context.Context, cfg storage.MultiConfig) (storage.MultiRepository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return &MultiRepo{pool: pool}, nil
}

// Close closes the connection pool.
func (r *MultiRepo) Close() {
	r.pool.Close()
}

// CopyRows streams rows into table with COPY FROM STDIN.
func (r *MultiRepo) CopyRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := r.pool.CopyFrom(ctx, tableIdentifier(table), columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("copy into %s: %w", table, err)
	}
	return n, nil
}

// EnsureTables creates missing schemas and tables, in the order given.
//
// Order matters when tables reference each other; callers pass dependencies
// first. This method is idempotent.
func (r *MultiRepo) EnsureTables(ctx context.Context, tables []storage.TableSpec) error {
	for _, t := range tables {
		if !t.AutoCreateTable {
			continue
		}
		schemaSQL, tableSQL, err := buildCreateSQL(t)
		if err != nil {
			return err
		}
		if schemaSQL != "" {
			if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
				return fmt.Errorf("create schema for %s: %w", t.Name, err)
			}
		}
		if _, err := r.pool.Exec(ctx, tableSQL); err != nil {
			return fmt.Errorf("create table %s: %w", t.Name, err)
		}
	}
	return nil
}

// tableIdentifier maps "schema.table" or "table" to a pgx.Identifier.
func tableIdentifier(name string) pgx.Identifier {
	schema, table := storage.SplitQualifiedName(name)
	if schema == "" {
		return pgx.Identifier{table}
	}
	return pgx.Identifier{schema, table}
}

func pgIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func pgType(t storage.ColumnType) (string, error) {
	switch t {
	case storage.TypeBigInt:
		return "BIGINT", nil
	case storage.TypeInt:
		return "INTEGER", nil
	case storage.TypeText, storage.TypeKey:
		return "TEXT", nil
	case storage.TypeFloat:
		return "DOUBLE PRECISION", nil
	case storage.TypeBoolean:
		return "BOOLEAN", nil
	default:
		return "", fmt.Errorf("unsupported column type %q", t)
	}
}

// buildColumnDef renders a single column definition.
//
// Nullable semantics:
//   - nullable == nil  => NOT NULL
//   - nullable == true => NULL (no NOT NULL clause)
//
// References are qualified with schema so a warehouse schema is self-contained.
func buildColumnDef(c storage.ColumnSpec, schema string) (string, error) {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return "", fmt.Errorf("column name must be set")
	}
	typ, err := pgType(c.Type)
	if err != nil {
		return "", fmt.Errorf("column %s: %w", name, err)
	}

	var b strings.Builder
	b.WriteString(pgIdent(name))
	b.WriteString(" ")
	b.WriteString(typ)
	if !c.IsNullable() {
		b.WriteString(" NOT NULL")
	}

	if ref := strings.TrimSpace(c.References); ref != "" {
		refTable, refCol, ok := storage.SplitReference(ref)
		if !ok {
			return "", fmt.Errorf("column %s: malformed reference %q", name, ref)
		}
		b.WriteString(" REFERENCES ")
		b.WriteString(tableIdentifier(storage.Qualify(schema, refTable)).Sanitize())
		b.WriteString(" (")
		b.WriteString(pgIdent(refCol))
		b.WriteString(")")
	}
	return b.String(), nil
}

func identList(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgIdent(strings.TrimSpace(c))
	}
	return strings.Join(quoted, ", ")
}

// buildConstraints renders PRIMARY KEY and UNIQUE table constraints.
func buildConstraints(t storage.TableSpec) ([]string, error) {
	var out []string
	if len(t.PrimaryKey) > 0 {
		out = append(out, "PRIMARY KEY ("+identList(t.PrimaryKey)+")")
	}
	for _, c := range t.Constraints {
		switch strings.ToLower(strings.TrimSpace(c.Kind)) {
		case "unique":
			if len(c.Columns) == 0 {
				return nil, fmt.Errorf("table %s: unique constraint requires columns", t.Name)
			}
			out = append(out, "UNIQUE ("+identList(c.Columns)+")")
		default:
			return nil, fmt.Errorf("table %s: unsupported constraint kind %q", t.Name, c.Kind)
		}
	}
	return out, nil
}

// buildCreateSQL builds the optional CREATE SCHEMA statement and the
// CREATE TABLE statement for t. It is pure so DDL can be tested without a database.
func buildCreateSQL(t storage.TableSpec) (schemaSQL, tableSQL string, err error) {
	if strings.TrimSpace(t.Name) == "" {
		return "", "", fmt.Errorf("table name is empty")
	}
	if len(t.Columns) == 0 {
		return "", "", fmt.Errorf("table %s: no columns", t.Name)
	}

	schema, _ := storage.SplitQualifiedName(t.Name)
	if schema != "" {
		schemaSQL = fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s;`, pgIdent(schema))
	}

	defs := make([]string, 0, len(t.Columns)+len(t.Constraints)+1)
	for _, c := range t.Columns {
		def, err := buildColumnDef(c, schema)
		if err != nil {
			return "", "", fmt.Errorf("table %s: %w", t.Name, err)
		}
		defs = append(defs, def)
	}
	constraints, err := buildConstraints(t)
	if err != nil {
		return "", "", err
	}
	defs = append(defs, constraints...)

	tableSQL = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (%s);`,
		tableIdentifier(t.Name).Sanitize(), strings.Join(defs, ", "))
	return schemaSQL, tableSQL, nil
}
