package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"gamestar/internal/storage"
)

// MultiRepo implements storage.MultiRepository for SQLite.
//
// Key design points vs Postgres:
//   - There is no COPY; CopyRows runs batched multi-row INSERTs inside one
//     transaction, which gives the same all-or-nothing result per table.
//   - Schema qualifiers are dropped: "warehouse.tag" is written to "tag".
//   - The pool is limited to one connection so ":memory:" databases are shared
//     by every statement.
type MultiRepo struct {
	db *sql.DB
}

// maxBindParams is SQLite's default SQLITE_MAX_VARIABLE_NUMBER (3.32+).
const maxBindParams = 32766

func init() {
	storage.RegisterMulti("sqlite", NewMulti)
}

func NewMulti(ctx context.Context, cfg storage.MultiConfig) (storage.MultiRepository, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &MultiRepo{db: db}, nil
}

func (r *MultiRepo) Close() { _ = r.db.Close() }

// EnsureTables creates missing tables in the order given.
func (r *MultiRepo) EnsureTables(ctx context.Context, tables []storage.TableSpec) error {
	for _, t := range tables {
		if !t.AutoCreateTable {
			continue
		}
		ddl, err := buildCreateSQL(t)
		if err != nil {
			return err
		}
		if _, err := r.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create table %s: %w", t.Name, err)
		}
	}
	return nil
}

// CopyRows inserts rows in batches inside a single transaction.
func (r *MultiRepo) CopyRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(columns) == 0 {
		return 0, fmt.Errorf("copy into %s: no columns", table)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	perBatch := maxBindParams / len(columns)
	if perBatch < 1 {
		perBatch = 1
	}

	var (
		total    int64
		stmt     *sql.Stmt
		stmtRows int
	)
	defer func() {
		if stmt != nil {
			_ = stmt.Close()
		}
	}()

	for start := 0; start < len(rows); start += perBatch {
		batch := rows[start:min(start+perBatch, len(rows))]

		// Full batches share one prepared statement; only the tail differs.
		if stmt == nil || stmtRows != len(batch) {
			if stmt != nil {
				_ = stmt.Close()
			}
			stmt, err = tx.PrepareContext(ctx, buildInsertSQL(table, columns, len(batch)))
			if err != nil {
				return 0, fmt.Errorf("copy into %s: prepare: %w", table, err)
			}
			stmtRows = len(batch)
		}

		args := make([]any, 0, len(batch)*len(columns))
		for i, row := range batch {
			if len(row) != len(columns) {
				return 0, fmt.Errorf("copy into %s: row %d has %d values, want %d", table, start+i, len(row), len(columns))
			}
			args = append(args, row...)
		}

		res, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			return 0, fmt.Errorf("copy into %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("copy into %s: commit: %w", table, err)
	}
	return total, nil
}

func sqlIdent(id string) string {
	// SQLite supports "quoted identifiers"
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// localTable drops a schema qualifier.
func localTable(name string) string {
	_, table := storage.SplitQualifiedName(name)
	return table
}

func buildInsertSQL(table string, columns []string, nRows int) string {
	colList := make([]string, 0, len(columns))
	for _, c := range columns {
		colList = append(colList, sqlIdent(c))
	}
	placeholders := "(" + strings.TrimRight(strings.Repeat("?,", len(columns)), ",") + ")"

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(sqlIdent(localTable(table)))
	b.WriteString(" (")
	b.WriteString(strings.Join(colList, ", "))
	b.WriteString(") VALUES ")
	for i := 0; i < nRows; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(placeholders)
	}
	return b.String()
}

func sqliteType(t storage.ColumnType) (string, error) {
	switch t {
	case storage.TypeBigInt, storage.TypeInt:
		return "INTEGER", nil
	case storage.TypeText, storage.TypeKey:
		return "TEXT", nil
	case storage.TypeFloat:
		return "REAL", nil
	case storage.TypeBoolean:
		return "BOOLEAN", nil
	default:
		return "", fmt.Errorf("unsupported column type %q", t)
	}
}

func joinIdentList(columns []string) string {
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		out = append(out, sqlIdent(strings.TrimSpace(c)))
	}
	return strings.Join(out, ", ")
}

// buildCreateSQL generates CREATE TABLE IF NOT EXISTS DDL for t.
func buildCreateSQL(t storage.TableSpec) (string, error) {
	if strings.TrimSpace(t.Name) == "" {
		return "", fmt.Errorf("table name is empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("table %s: no columns", t.Name)
	}

	parts := make([]string, 0, len(t.Columns)+len(t.Constraints)+1)
	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("table %s: column name must be set", t.Name)
		}
		typ, err := sqliteType(c.Type)
		if err != nil {
			return "", fmt.Errorf("table %s: column %s: %w", t.Name, name, err)
		}
		def := sqlIdent(name) + " " + typ
		if !c.IsNullable() {
			def += " NOT NULL"
		}
		if c.References != "" {
			refTable, refCol, ok := storage.SplitReference(c.References)
			if !ok {
				return "", fmt.Errorf("table %s: column %s: malformed reference %q", t.Name, name, c.References)
			}
			def += fmt.Sprintf(" REFERENCES %s (%s)", sqlIdent(refTable), sqlIdent(refCol))
		}
		parts = append(parts, def)
	}

	if len(t.PrimaryKey) > 0 {
		parts = append(parts, fmt.Sprintf("PRIMARY KEY (%s)", joinIdentList(t.PrimaryKey)))
	}
	for _, c := range t.Constraints {
		if !strings.EqualFold(strings.TrimSpace(c.Kind), "unique") {
			return "", fmt.Errorf("table %s: unsupported constraint kind %q", t.Name, c.Kind)
		}
		if len(c.Columns) == 0 {
			return "", fmt.Errorf("table %s: unique constraint requires columns", t.Name)
		}
		parts = append(parts, fmt.Sprintf("UNIQUE (%s)", joinIdentList(c.Columns)))
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);", sqlIdent(localTable(t.Name)), strings.Join(parts, ",\n  ")), nil
}
