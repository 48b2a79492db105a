package dimension

import (
	"slices"
	"strconv"
	"strings"
)

// GroupKey is the canonical, order-insensitive form of one attribute collection
// (or a tuple of collections). Build it with Canonical.
type GroupKey string

// Canonical builds a GroupKey from one or more value sets.
//
// Each set is sorted and de-duplicated, so element order and repetition do not
// matter. Elements are length-prefixed and every set is terminated, so
// Canonical([a b], [c]) != Canonical([a], [b c]) and no value can forge a boundary.
// A nil or empty set yields the same key, the shared "no members" group.
func Canonical(sets ...[]string) GroupKey {
	var b strings.Builder
	for _, set := range sets {
		vals := slices.Clone(set)
		slices.Sort(vals)
		vals = slices.Compact(vals)

		b.WriteByte('{')
		for _, v := range vals {
			b.WriteString(strconv.Itoa(len(v)))
			b.WriteByte(':')
			b.WriteString(v)
		}
		b.WriteByte('}')
	}
	return GroupKey(b.String())
}

// PairElement encodes a (name, count) element for use inside Canonical, making the
// count part of the equality key.
func PairElement(name string, count int64) string {
	return strconv.Itoa(len(name)) + ":" + name + "=" + strconv.FormatInt(count, 10)
}

// Member is one (value, group id) row emitted when a group is first seen.
type Member[T any] struct {
	Value   T
	GroupID int64
}

// Group deduplicates attribute collections into surrogate-keyed groups.
//
// Ids start at 1 and grow by one per new key, in first-seen order. A key keeps
// its id for the lifetime of the Group. Member rows are emitted only when a key
// is assigned its id.
type Group[T any] struct {
	ids     map[GroupKey]int64
	members []Member[T]
}

func NewGroup[T any]() *Group[T] {
	return &Group[T]{ids: make(map[GroupKey]int64)}
}

// Resolve returns the id for key. On first sight it assigns the next id and
// emits one Member per element of members (in the given order).
func (g *Group[T]) Resolve(key GroupKey, members []T) int64 {
	if id, ok := g.ids[key]; ok {
		return id
	}
	id := int64(len(g.ids) + 1)
	g.ids[key] = id
	for _, m := range members {
		g.members = append(g.members, Member[T]{Value: m, GroupID: id})
	}
	return id
}

// Lookup returns the id previously assigned to key.
func (g *Group[T]) Lookup(key GroupKey) (int64, bool) {
	id, ok := g.ids[key]
	return id, ok
}

// Len is the number of distinct groups, which is also the highest id assigned.
func (g *Group[T]) Len() int { return len(g.ids) }

// Members returns every emitted member row. The slice must not be modified.
func (g *Group[T]) Members() []Member[T] { return g.members }
