package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "cache"))
	require.NoError(t, err)

	_, err = store.Get(ctx, "doctors")
	assert.ErrorIs(t, err, ErrNotFound)

	key := "schedules_2026-10-01_2026-10-31_5C,Night"
	require.NoError(t, store.Set(ctx, key, []byte(`{"data":{},"timestamp":1}`)))
	require.NoError(t, store.Set(ctx, "a/b", []byte(`x`)))

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, `{"data":{},"timestamp":1}`, string(got))

	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/b", key}, keys)

	require.NoError(t, store.Remove(ctx, "a/b", "missing"))
	keys, err = store.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{key}, keys)
}

func TestFileStore_IgnoresForeignFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("x"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".tmp-123"), []byte("x"), 0600))
	require.NoError(t, store.Set(ctx, "doctors", []byte(`[]`)))

	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"doctors"}, keys)
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	value := []byte("abc")
	require.NoError(t, store.Set(ctx, "k", value))
	value[0] = 'z'

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}
