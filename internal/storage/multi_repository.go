package storage

import (
	"context"
	"fmt"
	"sync"
)

// MultiConfig is the minimal configuration needed to create a multi-table repository.
//
// Edge cases:
//   - Kind must be non-empty and must match a registered backend kind.
//   - DSN is passed through to the backend factory; validation is backend-specific.
type MultiConfig struct {
	Kind string
	DSN  string
}

// MultiRepository is the backend-agnostic write side of the warehouse loader.
//
// The loader computes every row in memory and hands each table to CopyRows
// exactly once, so backends only need a bulk append path and optional DDL.
// Each backend implements bulk append its own idiomatic way (Postgres COPY,
// SQL Server bulk copy, SQLite prepared inserts in one transaction).
type MultiRepository interface {
	// Close releases any backend resources (connections, prepared statements, etc).
	//
	// Callers should treat Close as "call once".
	Close()

	// EnsureTables creates schemas, tables and constraints that do not exist yet.
	// Tables with AutoCreateTable=false are skipped.
	EnsureTables(ctx context.Context, tables []TableSpec) error

	// CopyRows appends rows to table and returns the number written.
	//
	// Every row must have len(columns) values. The write is all-or-nothing per
	// call: on error no rows of this call remain visible.
	CopyRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)
}

type multiFactory func(ctx context.Context, cfg MultiConfig) (MultiRepository, error)

var (
	multiMu        sync.RWMutex
	multiFactories = map[string]multiFactory{}
)

// RegisterMulti registers a multi-table backend under a kind (e.g. "postgres", "sqlite").
//
// Call RegisterMulti from an init() function in a backend package; the kind
// string becomes the lookup key used by NewMulti.
//
// Panics:
//   - If kind is empty.
//   - If f is nil.
//   - If kind is already registered.
func RegisterMulti(kind string, f multiFactory) {
	multiMu.Lock()
	defer multiMu.Unlock()

	if kind == "" {
		panic("storage: RegisterMulti called with empty kind")
	}
	if f == nil {
		panic("storage: RegisterMulti called with nil factory")
	}
	if _, exists := multiFactories[kind]; exists {
		panic(fmt.Sprintf("storage: multi factory already registered for kind=%q", kind))
	}

	multiFactories[kind] = f
}

// NewMulti constructs a MultiRepository using the registered backend factory.
//
// Errors:
//   - Returns an error if cfg.Kind is empty or unsupported.
//   - Returns whatever error the registered factory returns.
func NewMulti(ctx context.Context, cfg MultiConfig) (MultiRepository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing multi.Kind")
	}

	multiMu.RLock()
	f := multiFactories[cfg.Kind]
	multiMu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported multi storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// Kinds lists the registered backend kinds.
func Kinds() []string {
	multiMu.RLock()
	defer multiMu.RUnlock()

	out := make([]string, 0, len(multiFactories))
	for k := range multiFactories {
		out = append(out, k)
	}
	return out
}
