// Package cipher seals and opens snapshot bytes with an authenticated
// cipher and resolves which key a store uses.
//
// The sealed envelope is
//
//	magic "TSE1" | mode (1 byte) | salt (16 bytes) | nonce (24 bytes) | ciphertext
//
// and the header (magic, mode and salt) is authenticated as additional
// data. The cipher is XChaCha20-Poly1305, so a wrong key or a corrupted
// file always fails to open instead of yielding garbage.
package cipher

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/mesh-intelligence/tablestore/pkg/types"
)

// KeySize is the length of an encryption key in bytes.
const KeySize = chacha20poly1305.KeySize

// Key is raw key material.
type Key [KeySize]byte

// GenerateKey returns a fresh random key.
func GenerateKey() (Key, error) {
	var k Key
	if _, err := rand.Read(k[:]); err != nil {
		return Key{}, fmt.Errorf("generating key: %w", err)
	}
	return k, nil
}

// ParseKey decodes key text. It accepts base64url and standard base64,
// padded or not. The decoded key must be exactly KeySize bytes.
func ParseKey(s string) (Key, error) {
	s = strings.TrimSpace(s)
	encodings := []*base64.Encoding{
		base64.URLEncoding,
		base64.RawURLEncoding,
		base64.StdEncoding,
		base64.RawStdEncoding,
	}
	for _, enc := range encodings {
		raw, err := enc.DecodeString(s)
		if err != nil {
			continue
		}
		if len(raw) != KeySize {
			return Key{}, fmt.Errorf("%w: key is %d bytes, want %d", types.ErrInvalidKey, len(raw), KeySize)
		}
		var k Key
		copy(k[:], raw)
		return k, nil
	}
	return Key{}, fmt.Errorf("%w: not base64", types.ErrInvalidKey)
}

// String returns the key as padded base64url text, the form ParseKey and
// the key environment variable expect.
func (k Key) String() string {
	return base64.URLEncoding.EncodeToString(k[:])
}
