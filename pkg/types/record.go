package types

import (
	"fmt"
	"sort"
)

// Record is one row: a mapping from column name to value.
type Record map[string]Value

// Filter selects records by exact equality. A record matches when every
// filter key is present in the record with an equal value. An empty
// filter matches every record.
type Filter map[string]Value

// NewRecord builds a Record from native Go values using ValueOf.
func NewRecord(fields map[string]any) (Record, error) {
	rec := make(Record, len(fields))
	for k, x := range fields {
		v, err := ValueOf(x)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", k, err)
		}
		rec[k] = v
	}
	return rec, nil
}

// MustRecord is NewRecord that panics on error. Intended for literals in
// tests and examples.
func MustRecord(fields map[string]any) Record {
	rec, err := NewRecord(fields)
	if err != nil {
		panic(err)
	}
	return rec
}

// NewFilter builds a Filter from native Go values using ValueOf.
func NewFilter(fields map[string]any) (Filter, error) {
	rec, err := NewRecord(fields)
	if err != nil {
		return nil, err
	}
	return Filter(rec), nil
}

// MustFilter is NewFilter that panics on error.
func MustFilter(fields map[string]any) Filter {
	return Filter(MustRecord(fields))
}

// Keys returns the record's column names in sorted order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy of the record with nil values replaced by Null.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = CloneValue(v)
	}
	return out
}

// Equal reports whether both records have the same keys with equal values.
func (r Record) Equal(other Record) bool {
	if len(r) != len(other) {
		return false
	}
	for k, v := range r {
		ov, ok := other[k]
		if !ok || !valuesEqual(v, ov) {
			return false
		}
	}
	return true
}

// Matches reports whether the record satisfies every entry of f. A filter
// key that is missing from the record never matches.
func (f Filter) Matches(r Record) bool {
	for k, want := range f {
		got, ok := r[k]
		if !ok || !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

// RecordsEqual reports whether two record slices are equal element by
// element.
func RecordsEqual(a, b []Record) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
