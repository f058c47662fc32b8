package persist

import (
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/mesh-intelligence/tablestore/internal/cipher"
	"github.com/mesh-intelligence/tablestore/internal/codec"
	"github.com/mesh-intelligence/tablestore/pkg/types"
)

// FilePersister keeps the snapshot in one encrypted file. Every Save
// rewrites the whole file with the temp-file, fsync, rename pattern, so a
// crash leaves either the old or the new contents, never a mix. No file
// handle outlives a single call.
type FilePersister struct {
	fs   afero.Fs
	path string
	sealer
}

// NewFilePersister returns a FilePersister for path on fs. A nil fs means
// the OS file system.
func NewFilePersister(fs afero.Fs, path string, c codec.Codec, ci cipher.Cipher) *FilePersister {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FilePersister{
		fs:     fs,
		path:   path,
		sealer: sealer{codec: c, cipher: ci},
	}
}

// Path returns the backing file path.
func (p *FilePersister) Path() string { return p.path }

// Exists reports whether the backing file is present.
func (p *FilePersister) Exists() (bool, error) {
	ok, err := afero.Exists(p.fs, p.path)
	if err != nil {
		return false, fileIOErr("stat", p.path, err)
	}
	return ok, nil
}

// Load implements types.Persister. A missing file yields an empty snapshot.
func (p *FilePersister) Load() (*types.Snapshot, error) {
	ok, err := p.Exists()
	if err != nil {
		return nil, err
	}
	if !ok {
		return types.NewSnapshot(), nil
	}
	data, err := afero.ReadFile(p.fs, p.path)
	if err != nil {
		return nil, fileIOErr("read", p.path, err)
	}
	return p.open(data)
}

// Save implements types.Persister.
func (p *FilePersister) Save(s *types.Snapshot) error {
	data, err := p.seal(s)
	if err != nil {
		return err
	}
	return p.writeAtomic(data)
}

// Close implements types.Persister. The file persister holds nothing open.
func (p *FilePersister) Close() error { return nil }

// writeAtomic replaces the backing file with data.
func (p *FilePersister) writeAtomic(data []byte) error {
	dir := filepath.Dir(p.path)
	if err := p.fs.MkdirAll(dir, 0o755); err != nil {
		return fileIOErr("mkdir", dir, err)
	}

	tmp, err := afero.TempFile(p.fs, dir, ".tablestore-*.tmp")
	if err != nil {
		return fileIOErr("create temp file in", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		p.fs.Remove(tmpName)
		return fileIOErr("write", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		p.fs.Remove(tmpName)
		return fileIOErr("sync", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		p.fs.Remove(tmpName)
		return fileIOErr("close", tmpName, err)
	}
	if err := p.fs.Chmod(tmpName, 0o600); err != nil {
		p.fs.Remove(tmpName)
		return fileIOErr("chmod", tmpName, err)
	}
	if err := p.fs.Rename(tmpName, p.path); err != nil {
		p.fs.Remove(tmpName)
		return fileIOErr("rename to", p.path, err)
	}
	return nil
}
