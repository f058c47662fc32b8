// Package persist implements types.Persister backends. Each backend stores
// the whole snapshot as one sealed blob: the snapshot is encoded by a
// codec.Codec and then sealed by a cipher.Cipher.
package persist

import (
	"fmt"

	"github.com/mesh-intelligence/tablestore/internal/cipher"
	"github.com/mesh-intelligence/tablestore/internal/codec"
	"github.com/mesh-intelligence/tablestore/pkg/types"
)

// sealer couples a codec and a cipher.
type sealer struct {
	codec  codec.Codec
	cipher cipher.Cipher
}

// seal encodes and encrypts s. An encoding failure keeps the codec's error,
// usually types.ErrUnsupportedValue.
func (s sealer) seal(snap *types.Snapshot) ([]byte, error) {
	plain, err := s.codec.Encode(snap)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	sealed, err := s.cipher.Seal(plain)
	if err != nil {
		return nil, fmt.Errorf("%w: sealing snapshot: %v", types.ErrFileIO, err)
	}
	return sealed, nil
}

// CheckValue implements types.Persister.
func (s sealer) CheckValue(v types.Value) error {
	return s.codec.Check(v)
}

// open decrypts and decodes a sealed blob. Errors wrap types.ErrDecrypt
// or types.ErrDeserialize.
func (s sealer) open(sealed []byte) (*types.Snapshot, error) {
	plain, err := s.cipher.Open(sealed)
	if err != nil {
		return nil, err
	}
	return s.codec.Decode(plain)
}

// fileIOErr wraps an I/O failure in types.ErrFileIO.
func fileIOErr(op, path string, err error) error {
	return fmt.Errorf("%w: %s %s: %v", types.ErrFileIO, op, path, err)
}
