package multitable

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"gamestar/internal/source"
	"gamestar/internal/storage"
	"gamestar/internal/transform"
)

type fakeLogger struct {
	msgs []string
}

func (l *fakeLogger) Printf(format string, v ...any) {
	l.msgs = append(l.msgs, fmt.Sprintf(format, v...))
}

func (l *fakeLogger) contains(sub string) bool {
	for _, m := range l.msgs {
		if strings.Contains(m, sub) {
			return true
		}
	}
	return false
}

type copyCall struct {
	table   string
	columns []string
	rows    [][]any
}

// fakeMultiRepo records every call. Tables listed in fail return that error
// from CopyRows.
type fakeMultiRepo struct {
	fail      map[string]error
	ensureErr error

	ensured [][]storage.TableSpec
	copies  []copyCall
	closed  int
}

func (r *fakeMultiRepo) Close() { r.closed++ }

func (r *fakeMultiRepo) EnsureTables(ctx context.Context, tables []storage.TableSpec) error {
	r.ensured = append(r.ensured, tables)
	return r.ensureErr
}

func (r *fakeMultiRepo) CopyRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	r.copies = append(r.copies, copyCall{table: table, columns: columns, rows: rows})
	if err, ok := r.fail[table]; ok {
		return 0, err
	}
	return int64(len(rows)), nil
}

func (r *fakeMultiRepo) copied(table string) (copyCall, bool) {
	for _, c := range r.copies {
		if c.table == table {
			return c, true
		}
	}
	return copyCall{}, false
}

func (r *fakeMultiRepo) tables() []string {
	out := make([]string, len(r.copies))
	for i, c := range r.copies {
		out[i] = c.table
	}
	return out
}

var errBoom = errors.New("boom")

// catalogDoc covers the shared-group, month-only, unknown-date and no-tag
// paths in three records.
const catalogDoc = `{
  "10": {
    "name": "Alpha",
    "release_date": "Oct 21, 2008",
    "price": 9.99,
    "windows": true,
    "supported_languages": ["English"],
    "full_audio_languages": ["English"],
    "developers": ["Studio A"],
    "positive": 6, "negative": 11,
    "packages": [{"title": "Alpha", "description": "", "subs": [
      {"text": "Alpha - $9.99", "description": "", "price": 9.99},
      {"text": "Alpha Deluxe - $19.99", "description": "", "price": 19.99}
    ]}],
    "movies": ["https://cdn/m1.mp4", "https://cdn/m1.mp4"],
    "screenshots": ["https://cdn/s1.jpg"],
    "tags": []
  },
  "20": {
    "name": "Beta",
    "release_date": "Oct 2017",
    "windows": true,
    "supported_languages": ["English"],
    "full_audio_languages": ["English"],
    "developers": ["Studio A"],
    "packages": [{"title": "Beta", "description": "", "subs": []}],
    "screenshots": ["https://cdn/s1.jpg"],
    "tags": {}
  },
  "30": {
    "name": "Gamma",
    "release_date": "Coming soon",
    "mac": true,
    "supported_languages": ["French", "English"],
    "full_audio_languages": [],
    "developers": [],
    "tags": []
  }
}`

func newCatalogSession(t *testing.T) *transform.Session {
	t.Helper()
	s := transform.NewSession()
	if _, err := source.StreamRecords(context.Background(), strings.NewReader(catalogDoc), s.Add); err != nil {
		t.Fatalf("StreamRecords() err=%v", err)
	}
	return s
}

func colIndex(t *testing.T, columns []string, name string) int {
	t.Helper()
	for i, c := range columns {
		if c == name {
			return i
		}
	}
	t.Fatalf("column %q not in %v", name, columns)
	return -1
}
