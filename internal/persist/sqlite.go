package persist

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/tablestore/internal/cipher"
	"github.com/mesh-intelligence/tablestore/internal/codec"
	"github.com/mesh-intelligence/tablestore/pkg/types"
)

// ErrRevisionNotFound is returned by LoadRevision for an unknown revision.
var ErrRevisionNotFound = errors.New("revision not found")

const createSnapshots = `CREATE TABLE IF NOT EXISTS snapshots (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    revision TEXT NOT NULL UNIQUE,
    codec TEXT NOT NULL,
    created_at TEXT NOT NULL,
    payload BLOB NOT NULL
);`

// Revision describes one saved snapshot.
type Revision struct {
	ID        string    `json:"revision"`
	Codec     string    `json:"codec"`
	CreatedAt time.Time `json:"created_at"`
	Size      int       `json:"size"`
}

// SQLitePersister keeps a bounded history of full encrypted snapshots in a
// SQLite file. Each Save inserts a new revision identified by a UUIDv7 and
// prunes all but the newest history revisions; Load returns the newest.
// The database is opened and closed within each call.
type SQLitePersister struct {
	path    string
	history int
	sealer
}

// NewSQLitePersister returns a SQLitePersister for the database at path.
// A history below one keeps a single revision.
func NewSQLitePersister(path string, history int, c codec.Codec, ci cipher.Cipher) *SQLitePersister {
	if history < 1 {
		history = 1
	}
	return &SQLitePersister{
		path:    path,
		history: history,
		sealer:  sealer{codec: c, cipher: ci},
	}
}

// Path returns the database path.
func (p *SQLitePersister) Path() string { return p.path }

// Exists reports whether the database file is present.
func (p *SQLitePersister) Exists() (bool, error) {
	_, err := os.Stat(p.path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fileIOErr("stat", p.path, err)
}

// withDB opens the database, ensures the schema, and runs fn.
func (p *SQLitePersister) withDB(fn func(db *sql.DB) error) error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fileIOErr("mkdir", filepath.Dir(p.path), err)
	}
	db, err := sql.Open("sqlite", p.path)
	if err != nil {
		return fileIOErr("open", p.path, err)
	}
	defer db.Close()

	if _, err := db.Exec(createSnapshots); err != nil {
		return fileIOErr("create schema in", p.path, err)
	}
	return fn(db)
}

// Load implements types.Persister.
func (p *SQLitePersister) Load() (*types.Snapshot, error) {
	ok, err := p.Exists()
	if err != nil {
		return nil, err
	}
	if !ok {
		return types.NewSnapshot(), nil
	}

	var (
		codecName string
		payload   []byte
	)
	err = p.withDB(func(db *sql.DB) error {
		row := db.QueryRow("SELECT codec, payload FROM snapshots ORDER BY seq DESC LIMIT 1")
		return row.Scan(&codecName, &payload)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return types.NewSnapshot(), nil
	}
	if err != nil {
		return nil, p.queryErr(err)
	}
	return p.openWith(codecName, payload)
}

// LoadRevision decrypts one stored revision.
func (p *SQLitePersister) LoadRevision(id string) (*types.Snapshot, error) {
	var (
		codecName string
		payload   []byte
	)
	err := p.withDB(func(db *sql.DB) error {
		row := db.QueryRow("SELECT codec, payload FROM snapshots WHERE revision = ?", id)
		return row.Scan(&codecName, &payload)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRevisionNotFound, id)
	}
	if err != nil {
		return nil, p.queryErr(err)
	}
	return p.openWith(codecName, payload)
}

// openWith decodes a payload with the codec it was written with, which may
// differ from the codec currently configured for writes.
func (p *SQLitePersister) openWith(codecName string, payload []byte) (*types.Snapshot, error) {
	s := p.sealer
	if codecName != s.codec.Name() {
		c, err := codec.ForName(codecName)
		if err != nil {
			return nil, fmt.Errorf("%w: revision written with %v", types.ErrDeserialize, err)
		}
		s.codec = c
	}
	return s.open(payload)
}

// Save implements types.Persister.
func (p *SQLitePersister) Save(s *types.Snapshot) error {
	payload, err := p.seal(s)
	if err != nil {
		return err
	}
	rev, err := uuid.NewV7()
	if err != nil {
		rev = uuid.New()
	}

	err = p.withDB(func(db *sql.DB) error {
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if _, err := tx.Exec(
			"INSERT INTO snapshots (revision, codec, created_at, payload) VALUES (?, ?, ?, ?)",
			rev.String(), p.codec.Name(), time.Now().UTC().Format(time.RFC3339Nano), payload,
		); err != nil {
			return err
		}
		if _, err := tx.Exec(
			"DELETE FROM snapshots WHERE seq NOT IN (SELECT seq FROM snapshots ORDER BY seq DESC LIMIT ?)",
			p.history,
		); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return p.queryErr(err)
	}
	return nil
}

// Revisions lists stored revisions, newest first.
func (p *SQLitePersister) Revisions() ([]Revision, error) {
	ok, err := p.Exists()
	if err != nil || !ok {
		return nil, err
	}

	var out []Revision
	err = p.withDB(func(db *sql.DB) error {
		rows, err := db.Query("SELECT revision, codec, created_at, length(payload) FROM snapshots ORDER BY seq DESC")
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				r         Revision
				createdAt string
			)
			if err := rows.Scan(&r.ID, &r.Codec, &createdAt, &r.Size); err != nil {
				return err
			}
			if r.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
				return fmt.Errorf("parsing created_at of %s: %w", r.ID, err)
			}
			out = append(out, r)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, p.queryErr(err)
	}
	return out, nil
}

// Close implements types.Persister. The database is not held open.
func (p *SQLitePersister) Close() error { return nil }

// queryErr wraps a database failure in types.ErrFileIO unless it already
// carries a persistence sentinel.
func (p *SQLitePersister) queryErr(err error) error {
	if errors.Is(err, types.ErrFileIO) {
		return err
	}
	return fileIOErr("query", p.path, err)
}
