package types

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MetaKey is the reserved top-level key that holds the table registry in
// the persisted document. It is never a valid table name.
const MetaKey = "_meta"

// Table is one registered table: its ordered schema and its rows in
// insertion order. Keeping both in one struct means a table can never be
// registered without its row sequence or the other way around.
type Table struct {
	Name    string
	Columns []string
	Rows    []Record
}

// Snapshot is the complete database state and the unit of persistence.
// Tables are kept in definition order.
type Snapshot struct {
	Tables []*Table
}

// NewSnapshot returns an empty snapshot with no tables.
func NewSnapshot() *Snapshot {
	return &Snapshot{Tables: []*Table{}}
}

// Table returns the table with the given name.
func (s *Snapshot) Table(name string) (*Table, bool) {
	for _, t := range s.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// TableNames returns table names in definition order.
func (s *Snapshot) TableNames() []string {
	names := make([]string, len(s.Tables))
	for i, t := range s.Tables {
		names[i] = t.Name
	}
	return names
}

// AddTable registers a new table with an empty row sequence. It does not
// validate; callers run ValidateSchema and check for duplicates first.
func (s *Snapshot) AddTable(name string, columns []string) *Table {
	t := &Table{
		Name:    name,
		Columns: append([]string(nil), columns...),
		Rows:    []Record{},
	}
	s.Tables = append(s.Tables, t)
	return t
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	out := &Snapshot{Tables: make([]*Table, len(s.Tables))}
	for i, t := range s.Tables {
		out.Tables[i] = t.Clone()
	}
	return out
}

// Equal reports whether both snapshots hold the same tables in the same
// order with equal schemas and rows.
func (s *Snapshot) Equal(other *Snapshot) bool {
	if len(s.Tables) != len(other.Tables) {
		return false
	}
	for i, t := range s.Tables {
		o := other.Tables[i]
		if t.Name != o.Name || !stringsEqual(t.Columns, o.Columns) || !RecordsEqual(t.Rows, o.Rows) {
			return false
		}
	}
	return true
}

// Validate checks the structural invariants of a snapshot: unique, valid
// table names and well-formed schemas. Decoders call it on every loaded
// snapshot.
func (s *Snapshot) Validate() error {
	seen := make(map[string]bool, len(s.Tables))
	for _, t := range s.Tables {
		if seen[t.Name] {
			return fmt.Errorf("%w: duplicate table %q", ErrTableExists, t.Name)
		}
		seen[t.Name] = true
		if err := ValidateSchema(t.Name, t.Columns); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := &Table{
		Name:    t.Name,
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([]Record, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = r.Clone()
	}
	return out
}

// HasColumn reports whether name is one of the table's columns.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// ConformsTo reports whether the record's key set equals the column set.
// Missing and extra columns both fail.
func (t *Table) ConformsTo(r Record) bool {
	if len(r) != len(t.Columns) {
		return false
	}
	for _, c := range t.Columns {
		if _, ok := r[c]; !ok {
			return false
		}
	}
	return true
}

// ValidateSchema checks a table definition. The name must be non-empty and
// not MetaKey; columns must be a non-empty list of unique, non-empty names.
// Failures wrap ErrInvalidSchema.
func ValidateSchema(name string, columns []string) error {
	if name == "" {
		return fmt.Errorf("%w: table name is empty", ErrInvalidSchema)
	}
	if name == MetaKey {
		return fmt.Errorf("%w: table name %q is reserved", ErrInvalidSchema, name)
	}
	if !validName(name) {
		return fmt.Errorf("%w: table name %q must be UTF-8 without NUL", ErrInvalidSchema, name)
	}
	if len(columns) == 0 {
		return fmt.Errorf("%w: table %q has no columns", ErrInvalidSchema, name)
	}
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if c == "" {
			return fmt.Errorf("%w: table %q has an empty column name", ErrInvalidSchema, name)
		}
		if seen[c] {
			return fmt.Errorf("%w: table %q repeats column %q", ErrInvalidSchema, name, c)
		}
		if !validName(c) {
			return fmt.Errorf("%w: column %q must be UTF-8 without NUL", ErrInvalidSchema, c)
		}
		seen[c] = true
	}
	return nil
}

// validName reports whether s can be a key in every codec's document.
func validName(s string) bool {
	return utf8.ValidString(s) && !strings.ContainsRune(s, 0)
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
