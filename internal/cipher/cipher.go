package cipher

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/mesh-intelligence/tablestore/pkg/types"
)

// Envelope layout.
const (
	magic      = "TSE1"
	saltSize   = 16
	nonceSize  = chacha20poly1305.NonceSizeX
	headerSize = len(magic) + 1 + saltSize
	minSealed  = headerSize + nonceSize + chacha20poly1305.Overhead
)

// Envelope modes.
const (
	modeKey        byte = 0
	modePassphrase byte = 1
)

// Argon2id parameters for passphrase-derived keys.
var (
	argonTime    uint32 = 1
	argonMemory  uint32 = 64 * 1024
	argonThreads uint8  = 4
)

// Cipher seals and opens snapshot bytes.
type Cipher interface {
	// Seal encrypts plaintext into a new envelope with a fresh nonce.
	Seal(plaintext []byte) ([]byte, error)

	// Open authenticates and decrypts an envelope. Any failure wraps
	// types.ErrDecrypt.
	Open(sealed []byte) ([]byte, error)

	// Key returns the key currently used for sealing.
	Key() Key
}

// keyCipher uses a fixed raw key.
type keyCipher struct {
	key Key
}

// NewKeyCipher returns a Cipher for a raw key.
func NewKeyCipher(k Key) Cipher {
	return &keyCipher{key: k}
}

func (c *keyCipher) Key() Key { return c.key }

func (c *keyCipher) Seal(plaintext []byte) ([]byte, error) {
	var salt [saltSize]byte
	return seal(c.key, modeKey, salt, plaintext)
}

// Open ignores the envelope mode, so a key derived from a passphrase opens
// a passphrase envelope too.
func (c *keyCipher) Open(sealed []byte) ([]byte, error) {
	header, _, err := parseHeader(sealed)
	if err != nil {
		return nil, err
	}
	return open(c.key, header, sealed)
}

// passphraseCipher derives its key from a passphrase and the salt carried
// in the envelope. The salt of the last opened envelope is reused for
// sealing, so the derived key stays stable across saves.
type passphraseCipher struct {
	mu         sync.Mutex
	passphrase []byte
	salt       [saltSize]byte
	key        Key
}

// NewPassphraseCipher returns a Cipher deriving keys from passphrase with
// argon2id. A random salt is chosen until an envelope is opened.
func NewPassphraseCipher(passphrase string) (Cipher, error) {
	c := &passphraseCipher{passphrase: []byte(passphrase)}
	if _, err := rand.Read(c.salt[:]); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}
	c.key = deriveKey(c.passphrase, c.salt)
	return c, nil
}

func (c *passphraseCipher) Key() Key {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.key
}

func (c *passphraseCipher) Seal(plaintext []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return seal(c.key, modePassphrase, c.salt, plaintext)
}

func (c *passphraseCipher) Open(sealed []byte) ([]byte, error) {
	header, salt, err := parseHeader(sealed)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	key := c.key
	if salt != c.salt {
		key = deriveKey(c.passphrase, salt)
	}
	plaintext, err := open(key, header, sealed)
	if err != nil {
		return nil, err
	}
	c.salt, c.key = salt, key
	return plaintext, nil
}

// deriveKey returns the argon2id key for passphrase and salt.
func deriveKey(passphrase []byte, salt [saltSize]byte) Key {
	var k Key
	copy(k[:], argon2.IDKey(passphrase, salt[:], argonTime, argonMemory, argonThreads, KeySize))
	return k
}

func seal(key Key, mode byte, salt [saltSize]byte, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	out := make([]byte, 0, headerSize+nonceSize+len(plaintext)+aead.Overhead())
	out = append(out, magic...)
	out = append(out, mode)
	out = append(out, salt[:]...)
	header := append([]byte(nil), out...)

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, header), nil
}

func open(key Key, header, sealed []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrDecrypt, err)
	}
	nonce := sealed[headerSize : headerSize+nonceSize]
	plaintext, err := aead.Open(nil, nonce, sealed[headerSize+nonceSize:], header)
	if err != nil {
		return nil, fmt.Errorf("%w: wrong key or corrupt data", types.ErrDecrypt)
	}
	return plaintext, nil
}

// parseHeader checks the envelope framing and returns the header bytes and
// the salt.
func parseHeader(sealed []byte) ([]byte, [saltSize]byte, error) {
	var salt [saltSize]byte
	if len(sealed) < minSealed {
		return nil, salt, fmt.Errorf("%w: envelope truncated (%d bytes)", types.ErrDecrypt, len(sealed))
	}
	if !bytes.Equal(sealed[:len(magic)], []byte(magic)) {
		return nil, salt, fmt.Errorf("%w: not a tablestore envelope", types.ErrDecrypt)
	}
	mode := sealed[len(magic)]
	if mode != modeKey && mode != modePassphrase {
		return nil, salt, fmt.Errorf("%w: unknown envelope mode %d", types.ErrDecrypt, mode)
	}
	copy(salt[:], sealed[len(magic)+1:headerSize])
	return sealed[:headerSize], salt, nil
}
