package cipher

import (
	"fmt"
	"os"
)

// KeySource records where the key of a resolved Cipher came from.
type KeySource int

// Key sources, in precedence order.
const (
	SourceExplicit KeySource = iota
	SourcePassphrase
	SourceEnvironment
	SourceGenerated
)

func (s KeySource) String() string {
	switch s {
	case SourceExplicit:
		return "explicit"
	case SourcePassphrase:
		return "passphrase"
	case SourceEnvironment:
		return "environment"
	case SourceGenerated:
		return "generated"
	default:
		return fmt.Sprintf("source(%d)", int(s))
	}
}

// ResolveOptions are the inputs to Resolve.
type ResolveOptions struct {
	// Key is explicit key text.
	Key string

	// Passphrase is used when Key is empty.
	Passphrase string

	// EnvVar names the environment variable consulted next.
	EnvVar string

	// LookupEnv reads the environment. Nil means os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Resolve picks the key with precedence explicit key, passphrase,
// environment variable, then a freshly generated key.
//
// A generated key cannot open data saved under another key. Opening an
// existing file with a generated key fails with types.ErrDecrypt when the
// snapshot is loaded; callers that see SourceGenerated must persist the
// key themselves before saving anything they want to read back.
func Resolve(opts ResolveOptions) (Cipher, KeySource, error) {
	if opts.Key != "" {
		k, err := ParseKey(opts.Key)
		if err != nil {
			return nil, SourceExplicit, err
		}
		return NewKeyCipher(k), SourceExplicit, nil
	}

	if opts.Passphrase != "" {
		c, err := NewPassphraseCipher(opts.Passphrase)
		return c, SourcePassphrase, err
	}

	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if opts.EnvVar != "" {
		if text, ok := lookup(opts.EnvVar); ok && text != "" {
			k, err := ParseKey(text)
			if err != nil {
				return nil, SourceEnvironment, fmt.Errorf("%s: %w", opts.EnvVar, err)
			}
			return NewKeyCipher(k), SourceEnvironment, nil
		}
	}

	k, err := GenerateKey()
	if err != nil {
		return nil, SourceGenerated, err
	}
	return NewKeyCipher(k), SourceGenerated, nil
}
