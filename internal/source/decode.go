package source

import (
	"context"
	"errors"
	"fmt"
	"io"

	json "github.com/goccy/go-json"
)

// StreamRecords decodes a catalog document of the form {"<id>": {...}, ...} and
// calls fn once per record, in document order.
//
// Only one record is decoded at a time. A record that does not match the Record
// shape aborts the stream with an error naming its id; fn errors abort it too.
func StreamRecords(ctx context.Context, r io.Reader, fn func(Record) error) (int, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, fmt.Errorf("source: read first token: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return 0, fmt.Errorf("source: document root must be an object keyed by id, got %v", tok)
	}

	n := 0
	for dec.More() {
		if err := ctx.Err(); err != nil {
			return n, err
		}

		keyTok, err := dec.Token()
		if err != nil {
			return n, fmt.Errorf("source: read record id after %d records: %w", n, err)
		}
		id, ok := keyTok.(string)
		if !ok {
			return n, fmt.Errorf("source: expected record id, got %v", keyTok)
		}

		var rec Record
		if err := dec.Decode(&rec); err != nil {
			return n, fmt.Errorf("source: record %q: %w", id, err)
		}
		rec.ID = id

		if err := fn(rec); err != nil {
			return n, err
		}
		n++
	}

	if end, err := dec.Token(); err != nil {
		return n, fmt.Errorf("source: read document end: %w", err)
	} else if d, ok := end.(json.Delim); !ok || d != '}' {
		return n, fmt.Errorf("source: expected document end '}', got %v", end)
	}
	return n, nil
}
