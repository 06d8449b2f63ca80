package kvstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "device_id")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "device_id", "DEV-ABC123XYZ"))
	v, err := s.Get(ctx, "device_id")
	require.NoError(t, err)
	assert.Equal(t, "DEV-ABC123XYZ", v)

	require.NoError(t, s.Set(ctx, "device_id", "DEV-000000000"))
	v, err = s.Get(ctx, "device_id")
	require.NoError(t, err)
	assert.Equal(t, "DEV-000000000", v)

	require.NoError(t, s.Delete(ctx, "device_id"))
	_, err = s.Get(ctx, "device_id")
	assert.ErrorIs(t, err, ErrNotFound)

	// deleting an absent key is not an error
	require.NoError(t, s.Delete(ctx, "license_key"))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.yaml")
	s, err := NewFileStore(path)
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.yaml")

	s, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "license_key", "KEY-1"))
	require.NoError(t, s.Close())

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	v, err := reopened.Get(ctx, "license_key")
	require.NoError(t, err)
	assert.Equal(t, "KEY-1", v)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	require.NoError(t, os.WriteFile(path, []byte("::: not yaml ["), 0o600))
	_, err := NewFileStore(path)
	assert.Error(t, err)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestNew_Backends(t *testing.T) {
	s, err := New(Options{Backend: BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = New(Options{Path: filepath.Join(t.TempDir(), "s.yaml")})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	_, err = New(Options{Backend: "etcd"})
	assert.Error(t, err)
}

func TestRedisStore_Key(t *testing.T) {
	assert.Equal(t, "scandesk:device_id", (&RedisStore{prefix: "scandesk"}).key("device_id"))
	assert.Equal(t, "device_id", (&RedisStore{}).key("device_id"))
}

func TestRedisConfig_Defaults(t *testing.T) {
	c := RedisConfig{Prefix: "x"}.withDefaults()
	assert.Equal(t, "localhost:6379", c.Addr)
	assert.Equal(t, 2, c.PoolSize)
	assert.Equal(t, "x", c.Prefix)
}
