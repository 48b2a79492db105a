package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"

	"gamestar/internal/storage"
)

// MultiRepo implements storage.MultiRepository for Microsoft SQL Server.
//
// CopyRows uses the TDS bulk-load path (mssql.CopyIn) inside a transaction:
// rows are buffered by the driver and sent when the statement is flushed, and
// a failure rolls the whole table back.
//
// Importing this package registers the "sqlserver" database/sql driver.
type MultiRepo struct {
	db dbConn
}

func init() {
	storage.RegisterMulti("mssql", NewMulti)
}

// NewMulti constructs a MultiRepo using database/sql and the "sqlserver" driver.
//
// This method validates connectivity via PingContext.
func NewMulti(ctx context.Context, cfg storage.MultiConfig) (storage.MultiRepository, error) {
	raw, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, err
	}

	// One table is loaded at a time; a small pool is plenty.
	raw.SetMaxOpenConns(4)
	raw.SetMaxIdleConns(4)

	if err := raw.PingContext(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}
	return &MultiRepo{db: &sqlDB{db: raw}}, nil
}

// Close releases database resources held by this repository.
func (r *MultiRepo) Close() {
	if r == nil || r.db == nil {
		return
	}
	_ = r.db.Close()
}

// EnsureTables creates missing schemas and tables in the order given.
//
// This method is idempotent and safe to run on every invocation.
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
			if _, err := r.db.ExecContext(ctx, schemaSQL); err != nil {
				return fmt.Errorf("mssql: create schema for %s: %w", t.Name, err)
			}
		}
		if _, err := r.db.ExecContext(ctx, tableSQL); err != nil {
			return fmt.Errorf("mssql: create table %s: %w", t.Name, err)
		}
	}
	return nil
}

// bulkOptions keeps explicit NULLs and checks constraints, so foreign keys are
// enforced the same way as on Postgres.
var bulkOptions = mssql.BulkOptions{CheckConstraints: true, KeepNulls: true}

// CopyRows bulk-loads rows into table.
func (r *MultiRepo) CopyRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if table == "" {
		return 0, fmt.Errorf("mssql: CopyRows: table is empty")
	}
	if len(columns) == 0 {
		return 0, fmt.Errorf("mssql: CopyRows: columns is empty")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, mssql.CopyIn(mssqlTableIdent(table), bulkOptions, columns...))
	if err != nil {
		return 0, fmt.Errorf("mssql: prepare bulk copy %s: %w", table, err)
	}
	defer stmt.Close()

	for i, row := range rows {
		if len(row) != len(columns) {
			return 0, fmt.Errorf("mssql: copy into %s: row %d has %d values, want %d", table, i, len(row), len(columns))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return 0, fmt.Errorf("mssql: copy into %s: row %d: %w", table, i, err)
		}
	}

	// An Exec without arguments flushes the buffered rows.
	res, err := stmt.ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("mssql: copy into %s: flush: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		n = int64(len(rows))
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("mssql: copy into %s: commit: %w", table, err)
	}
	return n, nil
}

// buildCreateSQL returns an optional guarded CREATE SCHEMA and a guarded
// CREATE TABLE for t.
func buildCreateSQL(t storage.TableSpec) (schemaSQL, tableSQL string, err error) {
	if strings.TrimSpace(t.Name) == "" {
		return "", "", fmt.Errorf("mssql: table name is empty")
	}
	if len(t.Columns) == 0 {
		return "", "", fmt.Errorf("mssql: table %s: no columns", t.Name)
	}

	schema, _ := storage.SplitQualifiedName(t.Name)
	if schema != "" {
		// CREATE SCHEMA must be the only statement in its batch.
		schemaSQL = fmt.Sprintf(
			"IF SCHEMA_ID(N'%s') IS NULL EXEC(N'CREATE SCHEMA %s');",
			escapeLiteral(schema), escapeLiteral(mssqlIdent(schema)),
		)
	}

	var parts []string
	for _, c := range t.Columns {
		def, err := mssqlColumnDef(c, schema)
		if err != nil {
			return "", "", fmt.Errorf("mssql: table %s: %w", t.Name, err)
		}
		parts = append(parts, def)
	}
	if len(t.PrimaryKey) > 0 {
		parts = append(parts, fmt.Sprintf("PRIMARY KEY (%s)", identList(t.PrimaryKey)))
	}
	for _, con := range t.Constraints {
		if !strings.EqualFold(con.Kind, "unique") {
			return "", "", fmt.Errorf("mssql: %s unsupported constraint kind: %s", t.Name, con.Kind)
		}
		if len(con.Columns) == 0 {
			return "", "", fmt.Errorf("mssql: %s unique constraint has no columns", t.Name)
		}
		parts = append(parts, fmt.Sprintf("UNIQUE (%s)", identList(con.Columns)))
	}

	return schemaSQL, wrapCreateIfMissing(t.Name, strings.Join(parts, ", ")), nil
}

// wrapCreateIfMissing wraps a CREATE TABLE statement in an OBJECT_ID guard.
//
// This keeps EnsureTables idempotent without requiring IF NOT EXISTS syntax.
func wrapCreateIfMissing(tableName string, innerDefs string) string {
	return fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NULL BEGIN CREATE TABLE %s (%s); END;",
		escapeLiteral(tableName),
		mssqlTableIdent(tableName),
		innerDefs,
	)
}

func mssqlType(t storage.ColumnType) (string, error) {
	switch t {
	case storage.TypeBigInt:
		return "BIGINT", nil
	case storage.TypeInt:
		return "INT", nil
	case storage.TypeText:
		return "NVARCHAR(MAX)", nil
	case storage.TypeKey:
		// Indexable; MAX columns cannot be keys.
		return "NVARCHAR(450)", nil
	case storage.TypeFloat:
		return "FLOAT", nil
	case storage.TypeBoolean:
		return "BIT", nil
	default:
		return "", fmt.Errorf("unsupported column type %q", t)
	}
}

// mssqlColumnDef builds a SQL Server column definition from storage.ColumnSpec.
func mssqlColumnDef(c storage.ColumnSpec, schema string) (string, error) {
	if strings.TrimSpace(c.Name) == "" {
		return "", fmt.Errorf("column name is empty")
	}
	typ, err := mssqlType(c.Type)
	if err != nil {
		return "", fmt.Errorf("column %s: %w", c.Name, err)
	}

	var b strings.Builder
	b.WriteString(mssqlIdent(c.Name))
	b.WriteString(" ")
	b.WriteString(typ)
	if c.IsNullable() {
		b.WriteString(" NULL")
	} else {
		b.WriteString(" NOT NULL")
	}
	if ref := strings.TrimSpace(c.References); ref != "" {
		refTable, refCol, ok := storage.SplitReference(ref)
		if !ok {
			return "", fmt.Errorf("column %s: malformed reference %q", c.Name, ref)
		}
		fmt.Fprintf(&b, " REFERENCES %s (%s)", mssqlTableIdent(storage.Qualify(schema, refTable)), mssqlIdent(refCol))
	}
	return b.String(), nil
}

func identList(cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = mssqlIdent(strings.TrimSpace(c))
	}
	return strings.Join(out, ", ")
}

func mssqlIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// mssqlTableIdent returns a bracket-quoted identifier for schema-qualified names.
//
// Example:
//
//	"dbo.fact_game" -> [dbo].[fact_game]
func mssqlTableIdent(name string) string {
	parts := strings.Split(name, ".")
	for i := range parts {
		parts[i] = mssqlIdent(strings.TrimSpace(parts[i]))
	}
	return strings.Join(parts, ".")
}

func escapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// ---- database/sql seam types ----

// dbConn is a small interface over *sql.DB used to make this package testable.
type dbConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (txConn, error)
	Close() error
}

// txConn is a small interface over *sql.Tx.
type txConn interface {
	PrepareContext(ctx context.Context, query string) (stmtConn, error)
	Commit() error
	Rollback() error
}

// stmtConn is a narrow adapter over *sql.Stmt.
type stmtConn interface {
	ExecContext(ctx context.Context, args ...any) (sql.Result, error)
	Close() error
}

// sqlDB wraps *sql.DB to implement dbConn.
type sqlDB struct {
	db *sql.DB
}

func (s *sqlDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, query, args...)
}

// BeginTx begins a transaction and returns a txConn wrapper.
func (s *sqlDB) BeginTx(ctx context.Context, opts *sql.TxOptions) (txConn, error) {
	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &sqlTx{tx: tx}, nil
}

func (s *sqlDB) Close() error { return s.db.Close() }

// sqlTx wraps *sql.Tx to implement txConn.
type sqlTx struct {
	tx *sql.Tx
}

func (s *sqlTx) PrepareContext(ctx context.Context, query string) (stmtConn, error) {
	return s.tx.PrepareContext(ctx, query)
}

func (s *sqlTx) Commit() error { return s.tx.Commit() }

func (s *sqlTx) Rollback() error { return s.tx.Rollback() }

var (
	_ dbConn   = (*sqlDB)(nil)
	_ txConn   = (*sqlTx)(nil)
	_ stmtConn = (*sql.Stmt)(nil)
)
