// Package tablestore provides the public API for opening an encrypted
// table store. It wires the key holder, codec, and persister selected by a
// types.Config into an engine.Store while keeping those pieces internal.
//
// Example:
//
//	store, err := tablestore.Open(types.Config{Path: "app.db"})
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//	err = store.DefineTable("users", []string{"id", "name"})
package tablestore

import (
	"fmt"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/tablestore/internal/cipher"
	"github.com/mesh-intelligence/tablestore/internal/codec"
	"github.com/mesh-intelligence/tablestore/internal/engine"
	"github.com/mesh-intelligence/tablestore/internal/persist"
	"github.com/mesh-intelligence/tablestore/pkg/types"
)

// Version is the release version of the module.
const Version = "0.3.0"

// Revision describes one snapshot kept by the sqlite backend.
type Revision = persist.Revision

// ErrRevisionNotFound is returned by LoadRevision for an unknown revision.
var ErrRevisionNotFound = persist.ErrRevisionNotFound

// Option adjusts how Open builds a store.
type Option func(*options)

type options struct {
	log       *zap.SugaredLogger
	fs        afero.Fs
	lookupEnv func(string) (string, bool)
}

// WithLogger sets the logger for the store. The default discards output.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *options) { o.log = l }
}

// WithFs sets the file system used by the file backend. The default is the
// OS file system. The sqlite backend always uses the OS file system.
func WithFs(fs afero.Fs) Option {
	return func(o *options) { o.fs = fs }
}

// WithLookupEnv replaces os.LookupEnv when reading the key variable.
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(o *options) { o.lookupEnv = fn }
}

func buildOptions(opts []Option) options {
	o := options{log: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = zap.NewNop().Sugar()
	}
	return o
}

// backend is the persister surface Open needs beyond types.Persister.
type backend interface {
	types.Persister
	Exists() (bool, error)
}

// Open resolves the key, loads the snapshot at cfg.Path, and returns a
// ready store. It fails with the load error when the file cannot be read,
// decrypted, or decoded; it never starts empty over an unreadable file.
//
// When no key, passphrase, or key variable is available a new key is
// generated and is only retrievable through EncryptionKey. Opening an
// existing file that way fails with types.ErrDecrypt.
func Open(cfg types.Config, opts ...Option) (types.TableStore, error) {
	return open(cfg, buildOptions(opts))
}

func open(cfg types.Config, o options) (*engine.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	cfg = cfg.Normalize()
	log := o.log.With("backend", cfg.Backend, "path", cfg.Path)

	ci, source, err := cipher.Resolve(cipher.ResolveOptions{
		Key:        cfg.Key,
		Passphrase: cfg.Passphrase,
		EnvVar:     cfg.KeyEnv,
		LookupEnv:  o.lookupEnv,
	})
	if err != nil {
		return nil, fmt.Errorf("resolving key: %w", err)
	}

	p, err := newBackend(cfg, o.fs, ci)
	if err != nil {
		return nil, err
	}

	log.Debugw("key resolved", "source", source.String())
	if source == cipher.SourceGenerated {
		exists, err := p.Exists()
		if err != nil {
			return nil, err
		}
		if exists {
			log.Warnw("generated a new key for an existing file; it cannot be decrypted",
				"key_env", cfg.KeyEnv)
		} else {
			log.Warnw("generated a new encryption key; keep it to reopen this store",
				"key_env", cfg.KeyEnv)
		}
	}

	return engine.New(p, ci, engine.WithLogger(log))
}

func newBackend(cfg types.Config, fs afero.Fs, ci cipher.Cipher) (backend, error) {
	c, err := codec.ForName(cfg.Codec)
	if err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case types.BackendSQLite:
		return persist.NewSQLitePersister(cfg.Path, cfg.History, c, ci), nil
	case types.BackendFile:
		return persist.NewFilePersister(fs, cfg.Path, c, ci), nil
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrBackendUnknown, cfg.Backend)
	}
}

// Revisions lists the snapshots kept by the sqlite backend, newest first.
// Listing needs no key.
func Revisions(cfg types.Config) ([]Revision, error) {
	p, err := historyBackend(cfg, nil)
	if err != nil {
		return nil, err
	}
	return p.Revisions()
}

// LoadRevision decrypts one revision kept by the sqlite backend. The key is
// resolved the same way Open resolves it.
func LoadRevision(cfg types.Config, id string, opts ...Option) (*types.Snapshot, error) {
	o := buildOptions(opts)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	cfg = cfg.Normalize()
	ci, _, err := cipher.Resolve(cipher.ResolveOptions{
		Key:        cfg.Key,
		Passphrase: cfg.Passphrase,
		EnvVar:     cfg.KeyEnv,
		LookupEnv:  o.lookupEnv,
	})
	if err != nil {
		return nil, fmt.Errorf("resolving key: %w", err)
	}
	p, err := historyBackend(cfg, ci)
	if err != nil {
		return nil, err
	}
	return p.LoadRevision(id)
}

func historyBackend(cfg types.Config, ci cipher.Cipher) (*persist.SQLitePersister, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	cfg = cfg.Normalize()
	if cfg.Backend != types.BackendSQLite {
		return nil, fmt.Errorf("%w: history needs the %s backend, have %s",
			types.ErrBackendUnknown, types.BackendSQLite, cfg.Backend)
	}
	c, err := codec.ForName(cfg.Codec)
	if err != nil {
		return nil, err
	}
	return persist.NewSQLitePersister(cfg.Path, cfg.History, c, ci), nil
}
