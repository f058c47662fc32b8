package types

// TableStore is an embedded table database persisted as one encrypted
// snapshot. Every mutating operation validates first, then mutates the
// in-memory snapshot and writes the whole snapshot through its Persister.
// A validation failure leaves both memory and storage untouched.
type TableStore interface {
	// DefineTable registers a table with the given ordered columns.
	// Returns ErrTableExists if the name is taken and ErrInvalidSchema if
	// the name is reserved or the columns are empty or repeated.
	DefineTable(name string, columns []string) error

	// ListTables returns table names in definition order.
	ListTables() []string

	// TableSchema returns a copy of the table's columns.
	// Returns ErrTableNotFound if the table is not registered.
	TableSchema(name string) ([]string, error)

	// DatabaseInfo returns a copy of the whole registry.
	DatabaseInfo() map[string][]string

	// Insert appends a record whose key set must equal the table's column
	// set exactly. Returns ErrTableNotFound or ErrSchemaMismatch.
	Insert(table string, record Record) error

	// Read returns copies of the records matching filter. A nil or empty
	// filter returns every record in insertion order.
	Read(table string, filter Filter) ([]Record, error)

	// Update sets every key of updates on each matching record and returns
	// the number of records matched. An empty filter matches every record.
	// Returns ErrInvalidColumn, without changing anything, if a key of
	// updates is not a column of the table.
	Update(table string, filter Filter, updates Record) (int, error)

	// Delete removes the matching records and returns how many were
	// removed. An empty filter matches every record.
	Delete(table string, filter Filter) (int, error)

	// EncryptionKey returns the key the snapshot is encrypted with, in
	// base64url text. Callers are responsible for keeping it.
	EncryptionKey() string

	// Close releases the persister. Later calls return ErrStoreClosed.
	// Close is idempotent.
	Close() error
}

// Persister loads and saves whole snapshots. The store never touches
// storage except through this interface.
type Persister interface {
	// Load returns the persisted snapshot, or an empty snapshot when
	// nothing has been persisted yet. Returns ErrFileIO, ErrDecrypt or
	// ErrDeserialize; it never falls back to an empty snapshot on failure.
	Load() (*Snapshot, error)

	// Save replaces the persisted state with s. Returns ErrFileIO, or
	// ErrUnsupportedValue when s holds a value the encoding cannot carry.
	Save(s *Snapshot) error

	// CheckValue reports whether Save can encode v. It fails with
	// ErrUnsupportedValue exactly when including v would make Save fail
	// for that reason.
	CheckValue(v Value) error

	// Close releases any resources held by the persister.
	Close() error
}
