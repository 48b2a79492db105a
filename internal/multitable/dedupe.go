package multitable

import (
	"crypto/sha256"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RowHash returns a SHA-256 over a canonical encoding of row.
//
// Canonicalization rules:
//   - Every value carries a one-byte type tag, so int64(1) and "1" differ.
//   - Strings and bytes are length-prefixed, so no separator can collide.
//   - nil is its own tag, distinct from the empty string.
//   - time.Time values are encoded as RFC3339Nano in UTC.
func RowHash(row []any) [sha256.Size]byte {
	var b strings.Builder
	b.Grow(len(row) * 16)
	for _, v := range row {
		appendCanonicalValue(&b, v)
	}
	return sha256.Sum256([]byte(b.String()))
}

// DedupeRows drops rows identical across every column to an earlier row.
// Survivors keep their input order. The input slice is not modified.
func DedupeRows(rows [][]any) [][]any {
	if len(rows) < 2 {
		return rows
	}
	seen := make(map[[sha256.Size]byte]struct{}, len(rows))
	out := make([][]any, 0, len(rows))
	for _, r := range rows {
		h := RowHash(r)
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, r)
	}
	return out
}

// DedupeByKey keeps the first row for each distinct value of column key.
func DedupeByKey(rows [][]any, key int) [][]any {
	if len(rows) < 2 {
		return rows
	}
	seen := make(map[[sha256.Size]byte]struct{}, len(rows))
	out := make([][]any, 0, len(rows))
	for _, r := range rows {
		if key >= len(r) {
			out = append(out, r)
			continue
		}
		h := RowHash(r[key : key+1])
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, r)
	}
	return out
}

func appendLengthPrefixed(b *strings.Builder, tag byte, s string) {
	b.WriteByte(tag)
	b.WriteString(strconv.Itoa(len(s)))
	b.WriteByte(':')
	b.WriteString(s)
}

// appendCanonicalValue avoids fmt.Sprint for the types rows actually carry.
func appendCanonicalValue(b *strings.Builder, v any) {
	switch t := v.(type) {
	case nil:
		b.WriteByte('n')

	case string:
		appendLengthPrefixed(b, 's', t)
	case []byte:
		appendLengthPrefixed(b, 'x', string(t))

	case bool:
		if t {
			b.WriteString("bt")
		} else {
			b.WriteString("bf")
		}

	case int:
		appendLengthPrefixed(b, 'i', strconv.Itoa(t))
	case int32:
		appendLengthPrefixed(b, 'i', strconv.FormatInt(int64(t), 10))
	case int64:
		appendLengthPrefixed(b, 'i', strconv.FormatInt(t, 10))
	case uint64:
		appendLengthPrefixed(b, 'i', strconv.FormatUint(t, 10))

	case float32:
		appendLengthPrefixed(b, 'f', strconv.FormatFloat(float64(t), 'g', -1, 32))
	case float64:
		appendLengthPrefixed(b, 'f', strconv.FormatFloat(t, 'g', -1, 64))

	case time.Time:
		tt := t
		if !tt.IsZero() {
			tt = tt.UTC()
		}
		appendLengthPrefixed(b, 't', tt.Format(time.RFC3339Nano))

	default:
		appendLengthPrefixed(b, 'v', fmt.Sprint(t))
	}
}
