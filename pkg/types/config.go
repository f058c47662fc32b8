package types

// Config selects the backend and the key for a TableStore.
type Config struct {
	// Backend is BackendFile (default when empty) or BackendSQLite.
	Backend string `json:"backend" yaml:"backend"`

	// Path is the backing file. There is no default.
	Path string `json:"path" yaml:"path"`

	// Codec is CodecJSON (default when empty) or CodecBSON.
	Codec string `json:"codec" yaml:"codec"`

	// Key is an explicit base64url encryption key. Takes precedence over
	// every other key source.
	Key string `json:"-" yaml:"-"`

	// Passphrase derives the key with argon2id when Key is empty.
	Passphrase string `json:"-" yaml:"-"`

	// KeyEnv names the environment variable consulted when neither Key nor
	// Passphrase is set. Empty means DefaultKeyEnv.
	KeyEnv string `json:"key_env" yaml:"key_env,omitempty"`

	// History is the number of revisions the sqlite backend keeps. Zero
	// means DefaultHistory.
	History int `json:"history" yaml:"history,omitempty"`
}

// Supported backend names.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Supported codec names.
const (
	CodecJSON = "json"
	CodecBSON = "bson"
)

// Defaults applied by Normalize.
const (
	DefaultKeyEnv  = "DB_ENCRYPTION_KEY"
	DefaultHistory = 10
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendFile:   true,
	BackendSQLite: true,
}

// knownCodecs lists the codecs that Validate accepts.
var knownCodecs = map[string]bool{
	CodecJSON: true,
	CodecBSON: true,
}

// Normalize returns a copy of c with defaults filled in.
func (c Config) Normalize() Config {
	if c.Backend == "" {
		c.Backend = BackendFile
	}
	if c.Codec == "" {
		c.Codec = CodecJSON
	}
	if c.KeyEnv == "" {
		c.KeyEnv = DefaultKeyEnv
	}
	if c.History == 0 {
		c.History = DefaultHistory
	}
	return c
}

// Validate checks that the Config is well-formed after defaults. It returns
// a sentinel error from this package on failure.
func (c Config) Validate() error {
	c = c.Normalize()
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if !knownCodecs[c.Codec] {
		return ErrCodecUnknown
	}
	if c.Path == "" {
		return ErrPathEmpty
	}
	if c.History < 0 {
		return ErrHistoryInvalid
	}
	return nil
}
