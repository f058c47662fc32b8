package tablestore

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mesh-intelligence/tablestore/internal/cipher"
	"github.com/mesh-intelligence/tablestore/pkg/types"
)

func noEnv(string) (string, bool) { return "", false }

func envWith(name, value string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		if k == name {
			return value, true
		}
		return "", false
	}
}

func populate(t *testing.T, s types.TableStore) {
	t.Helper()
	require.NoError(t, s.DefineTable("users", []string{"id", "name"}))
	require.NoError(t, s.Insert("users", types.MustRecord(map[string]any{"id": 1, "name": "Alice"})))
}

func TestOpenConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		cfg     types.Config
		wantErr error
	}{
		{"empty path", types.Config{}, types.ErrPathEmpty},
		{"unknown backend", types.Config{Path: "x", Backend: "redis"}, types.ErrBackendUnknown},
		{"unknown codec", types.Config{Path: "x", Codec: "xml"}, types.ErrCodecUnknown},
		{"bad key", types.Config{Path: "x", Key: "short"}, types.ErrInvalidKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(tt.cfg, WithFs(afero.NewMemMapFs()), WithLookupEnv(noEnv))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestOpenKeyFromEnvironment(t *testing.T) {
	fs := afero.NewMemMapFs()
	k, err := cipher.GenerateKey()
	require.NoError(t, err)
	env := WithLookupEnv(envWith(types.DefaultKeyEnv, k.String()))

	s, err := Open(types.Config{Path: "/data/app.db"}, WithFs(fs), env)
	require.NoError(t, err)
	populate(t, s)
	assert.Equal(t, k.String(), s.EncryptionKey())
	require.NoError(t, s.Close())

	again, err := Open(types.Config{Path: "/data/app.db"}, WithFs(fs), env)
	require.NoError(t, err)
	defer again.Close()
	rows, err := again.Read("users", nil)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestOpenExplicitKeyBeatsEnvironment(t *testing.T) {
	fs := afero.NewMemMapFs()
	explicit, err := cipher.GenerateKey()
	require.NoError(t, err)
	other, err := cipher.GenerateKey()
	require.NoError(t, err)

	s, err := Open(types.Config{Path: "/app.db", Key: explicit.String(), KeyEnv: "APP_KEY"},
		WithFs(fs), WithLookupEnv(envWith("APP_KEY", other.String())))
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, explicit.String(), s.EncryptionKey())
}

func TestOpenGeneratedKey(t *testing.T) {
	fs := afero.NewMemMapFs()
	core, logs := observer.New(zapcore.WarnLevel)
	log := WithLogger(zap.New(core).Sugar())

	s, err := Open(types.Config{Path: "/app.db"}, WithFs(fs), WithLookupEnv(noEnv), log)
	require.NoError(t, err)
	populate(t, s)
	key := s.EncryptionKey()
	require.NoError(t, s.Close())
	require.Equal(t, 1, logs.Len())

	t.Run("a second generated key cannot read the file", func(t *testing.T) {
		_, err := Open(types.Config{Path: "/app.db"}, WithFs(fs), WithLookupEnv(noEnv), log)
		assert.ErrorIs(t, err, types.ErrDecrypt)
		assert.Equal(t, 2, logs.Len())
		for _, entry := range logs.All() {
			for _, f := range entry.Context {
				assert.NotEqual(t, key, f.String, "key must never be logged")
			}
		}
	})

	t.Run("the reported key reopens the file", func(t *testing.T) {
		s, err := Open(types.Config{Path: "/app.db", Key: key}, WithFs(fs))
		require.NoError(t, err)
		defer s.Close()
		assert.Equal(t, []string{"users"}, s.ListTables())
	})
}

func TestOpenPassphrase(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := types.Config{Path: "/app.db", Passphrase: "correct horse battery staple", Codec: types.CodecBSON}

	s, err := Open(cfg, WithFs(fs))
	require.NoError(t, err)
	populate(t, s)
	require.NoError(t, s.Close())

	again, err := Open(cfg, WithFs(fs))
	require.NoError(t, err)
	defer again.Close()
	rows, err := again.Read("users", types.MustFilter(map[string]any{"name": "Alice"}))
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	wrong := cfg
	wrong.Passphrase = "wrong"
	_, err = Open(wrong, WithFs(fs))
	assert.ErrorIs(t, err, types.ErrDecrypt)
}

func TestSQLiteBackendHistory(t *testing.T) {
	k, err := cipher.GenerateKey()
	require.NoError(t, err)
	cfg := types.Config{
		Backend: types.BackendSQLite,
		Path:    filepath.Join(t.TempDir(), "app.sqlite"),
		Key:     k.String(),
		History: 2,
	}

	s, err := Open(cfg)
	require.NoError(t, err)
	populate(t, s)
	require.NoError(t, s.Insert("users", types.MustRecord(map[string]any{"id": 2, "name": "Bob"})))
	require.NoError(t, s.Close())

	revs, err := Revisions(cfg)
	require.NoError(t, err)
	require.Len(t, revs, 2)

	older, err := LoadRevision(cfg, revs[1].ID)
	require.NoError(t, err)
	users, ok := older.Table("users")
	require.True(t, ok)
	assert.Len(t, users.Rows, 1)

	_, err = LoadRevision(cfg, "nope")
	assert.ErrorIs(t, err, ErrRevisionNotFound)

	again, err := Open(cfg)
	require.NoError(t, err)
	defer again.Close()
	rows, err := again.Read("users", nil)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestRevisionsNeedSQLite(t *testing.T) {
	_, err := Revisions(types.Config{Path: "x"})
	assert.ErrorIs(t, err, types.ErrBackendUnknown)
}
