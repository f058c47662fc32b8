// Package engine implements types.TableStore over an in-memory snapshot
// that is written back through a types.Persister after every mutation.
package engine

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/tablestore/internal/cipher"
	"github.com/mesh-intelligence/tablestore/pkg/types"
)

// Store implements types.TableStore. All state lives in one snapshot
// guarded by mu; mutations hold the write lock across validation, the
// in-memory change, and the save.
type Store struct {
	mu        sync.RWMutex
	closed    bool
	snap      *types.Snapshot
	persister types.Persister
	cipher    cipher.Cipher
	log       *zap.SugaredLogger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// New loads the persisted snapshot through p and returns a ready store.
// c is the cipher p seals with; EncryptionKey reports its key. A load
// failure is returned as is; the store never starts from an empty snapshot
// when persisted state cannot be read.
func New(p types.Persister, c cipher.Cipher, opts ...Option) (*Store, error) {
	s := &Store{
		persister: p,
		cipher:    c,
		log:       zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(s)
	}

	snap, err := p.Load()
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	s.snap = snap
	s.log.Debugw("snapshot loaded", "tables", len(snap.Tables))
	return s, nil
}

// DefineTable implements types.TableStore.
func (s *Store) DefineTable(name string, columns []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return types.ErrStoreClosed
	}
	if _, ok := s.snap.Table(name); ok {
		return fmt.Errorf("%w: %q", types.ErrTableExists, name)
	}
	if err := types.ValidateSchema(name, columns); err != nil {
		return err
	}

	s.snap.AddTable(name, columns)
	s.log.Debugw("table defined", "table", name, "columns", len(columns))
	return s.save()
}

// ListTables implements types.TableStore. A closed store has no tables.
func (s *Store) ListTables() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil
	}
	return s.snap.TableNames()
}

// TableSchema implements types.TableStore.
func (s *Store) TableSchema(name string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, err := s.table(name)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), t.Columns...), nil
}

// DatabaseInfo implements types.TableStore.
func (s *Store) DatabaseInfo() map[string][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil
	}
	info := make(map[string][]string, len(s.snap.Tables))
	for _, t := range s.snap.Tables {
		info[t.Name] = append([]string(nil), t.Columns...)
	}
	return info
}

// Insert implements types.TableStore.
func (s *Store) Insert(table string, record types.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.table(table)
	if err != nil {
		return err
	}
	if !t.ConformsTo(record) {
		return fmt.Errorf("%w: table %q wants columns %v, got %v",
			types.ErrSchemaMismatch, table, t.Columns, record.Keys())
	}

	if err := s.checkValues(record); err != nil {
		return err
	}

	t.Rows = append(t.Rows, record.Clone())
	s.log.Debugw("row inserted", "table", table, "rows", len(t.Rows))
	return s.save()
}

// Read implements types.TableStore.
func (s *Store) Read(table string, filter types.Filter) ([]types.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, err := s.table(table)
	if err != nil {
		return nil, err
	}
	out := []types.Record{}
	for _, r := range t.Rows {
		if filter.Matches(r) {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

// Update implements types.TableStore.
func (s *Store) Update(table string, filter types.Filter, updates types.Record) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.table(table)
	if err != nil {
		return 0, err
	}
	for _, col := range updates.Keys() {
		if !t.HasColumn(col) {
			return 0, fmt.Errorf("%w: %q is not a column of %q", types.ErrInvalidColumn, col, table)
		}
	}
	if err := s.checkValues(updates); err != nil {
		return 0, err
	}

	n := 0
	for _, r := range t.Rows {
		if !filter.Matches(r) {
			continue
		}
		for col, v := range updates {
			r[col] = types.CloneValue(v)
		}
		n++
	}
	s.log.Debugw("rows updated", "table", table, "matched", n)
	return n, s.save()
}

// Delete implements types.TableStore.
func (s *Store) Delete(table string, filter types.Filter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.table(table)
	if err != nil {
		return 0, err
	}

	kept := t.Rows[:0]
	for _, r := range t.Rows {
		if !filter.Matches(r) {
			kept = append(kept, r)
		}
	}
	n := len(t.Rows) - len(kept)
	clear(t.Rows[len(kept):])
	t.Rows = kept
	s.log.Debugw("rows deleted", "table", table, "deleted", n)
	return n, s.save()
}

// EncryptionKey implements types.TableStore.
func (s *Store) EncryptionKey() string {
	return s.cipher.Key().String()
}

// Close implements types.TableStore.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.persister.Close()
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() (*types.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, types.ErrStoreClosed
	}
	return s.snap.Clone(), nil
}

// table returns the named table. Callers hold mu.
func (s *Store) table(name string) (*types.Table, error) {
	if s.closed {
		return nil, types.ErrStoreClosed
	}
	t, ok := s.snap.Table(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrTableNotFound, name)
	}
	return t, nil
}

// checkValues rejects values the persister could not encode, before
// anything in memory changes. Callers hold mu.
func (s *Store) checkValues(r types.Record) error {
	for _, col := range r.Keys() {
		if err := s.persister.CheckValue(r[col]); err != nil {
			return fmt.Errorf("column %q: %w", col, err)
		}
	}
	return nil
}

// save writes the whole snapshot. The in-memory change is kept when the
// write fails. Callers hold the write lock.
func (s *Store) save() error {
	if err := s.persister.Save(s.snap); err != nil {
		s.log.Errorw("snapshot save failed", "error", err)
		return fmt.Errorf("saving snapshot: %w", err)
	}
	s.log.Debugw("snapshot saved", "tables", len(s.snap.Tables))
	return nil
}

var _ types.TableStore = (*Store)(nil)
