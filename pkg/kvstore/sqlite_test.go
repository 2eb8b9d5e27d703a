package kvstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryKV_RoundTrip(t *testing.T) {
	kv := NewMemoryKV()
	_, ok, err := kv.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set("k", "v1"))
	require.NoError(t, kv.Set("k", "v2"))
	v, ok, err := kv.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v2", v)

	require.NoError(t, kv.Delete("k"))
	_, ok, err = kv.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteKV_RoundTrip(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "kv.db")
	kv, err := NewSQLiteKV(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	require.NoError(t, kv.Set("transcript", `[{"id":"a"}]`))
	require.NoError(t, kv.Set("transcript", `[{"id":"b"}]`))
	v, ok, err := kv.Get("transcript")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `[{"id":"b"}]`, v)

	// Values survive reopening the database.
	require.NoError(t, kv.Close())
	reopened, err := NewSQLiteKV(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	v, ok, err = reopened.Get("transcript")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `[{"id":"b"}]`, v)
}

func TestSQLiteKV_EmptyDSNFails(t *testing.T) {
	_, err := NewSQLiteKV("  ")
	require.Error(t, err)
}
