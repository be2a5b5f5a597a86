package kv

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the contract every backend must satisfy.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound), "absent key should be ErrNotFound, got %v", err)

	require.NoError(t, s.Set(ctx, "k", "v1"))
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v1", got)

	require.NoError(t, s.Set(ctx, "k", "v2"))
	got, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", got)

	require.NoError(t, s.Remove(ctx, "k"))
	_, err = s.Get(ctx, "k")
	assert.True(t, errors.Is(err, ErrNotFound))

	// Idempotent remove
	require.NoError(t, s.Remove(ctx, "k"))
}

func TestMemory_Contract(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestMemory_Failing(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Set(ctx, "k", "v"))

	m.SetFailing(true)
	_, err := m.Get(ctx, "k")
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.True(t, errors.Is(m.Set(ctx, "k", "x"), ErrUnavailable))
	assert.True(t, errors.Is(m.Remove(ctx, "k"), ErrUnavailable))

	m.SetFailing(false)
	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got, "failed writes must not change stored data")
}

func TestMemory_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewMemory()
	assert.ErrorIs(t, m.Set(ctx, "k", "v"), context.Canceled)
	assert.Zero(t, m.Len())
}

func TestSQLite_Contract(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")
	ctx := context.Background()

	s1, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s1.Set(ctx, "snapshot", `{"version":1}`))
	require.NoError(t, s1.Close())

	s2, err := OpenSQLite(path)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.Get(ctx, "snapshot")
	require.NoError(t, err)
	assert.Equal(t, `{"version":1}`, got)
}

func TestSQLite_SchemaVersion(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	defer s.Close()

	v, err := s.schemaVersion()
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, v)
}

func TestSQLite_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")
	for i := 0; i < 3; i++ {
		s, err := OpenSQLite(path)
		require.NoError(t, err, "open iteration %d", i)
		require.NoError(t, s.Close())
	}
}

func TestSQLite_InvalidPath(t *testing.T) {
	_, err := OpenSQLite("/nonexistent/dir/kv.db")
	assert.Error(t, err)
}

func TestSQLite_ClosedIsUnavailable(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	ctx := context.Background()
	_, getErr := s.Get(ctx, "k")
	for name, err := range map[string]error{
		"get":    getErr,
		"set":    s.Set(ctx, "k", "v"),
		"remove": s.Remove(ctx, "k"),
	} {
		assert.True(t, errors.Is(err, ErrUnavailable), "%s: got %v", name, err)
		assert.Contains(t, err.Error(), name+" k: ", "driver error keeps the operation and key")
	}
}

func TestSQLite_CloseNilDB(t *testing.T) {
	s := &SQLite{}
	assert.NoError(t, s.Close())
}

func TestOpenRedis_Unreachable(t *testing.T) {
	_, err := OpenRedis(context.Background(), "127.0.0.1:1", "")
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Options{Kind: KindMemory})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = Open(ctx, Options{Kind: KindSQLite, Path: filepath.Join(t.TempDir(), "kv.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, s)
	require.NoError(t, Close(s))

	_, err = Open(ctx, Options{Kind: KindSQLite})
	assert.Error(t, err)

	_, err = Open(ctx, Options{Kind: "etcd"})
	assert.Error(t, err)
}
