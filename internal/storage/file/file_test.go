package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/cartcraft/internal/storage"
)

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = s.Get(ctx, "cart")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.Set(ctx, "cart", []byte(`{"items":[]}`)))
	v, err := s.Get(ctx, "cart")
	require.NoError(t, err)
	assert.Equal(t, `{"items":[]}`, string(v))

	require.NoError(t, s.Set(ctx, "cart", []byte(`{"items":[1]}`)))
	v, err = s.Get(ctx, "cart")
	require.NoError(t, err)
	assert.Equal(t, `{"items":[1]}`, string(v))

	require.NoError(t, s.Remove(ctx, "cart"))
	require.NoError(t, s.Remove(ctx, "cart"))
	_, err = s.Get(ctx, "cart")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_KeyEscaping(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, "cartcraft:checkout.shipping", []byte(`{}`)))
	require.NoError(t, s.Set(ctx, "../escape", []byte(`{}`)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, e.IsDir())
		assert.Equal(t, dir, filepath.Dir(filepath.Join(dir, e.Name())))
	}
	assert.Len(t, entries, 2)
}

func TestStore_CorruptFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(s.path("orders"), []byte("not gzip"), 0o600))

	_, err = s.Get(ctx, "orders")
	require.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_Ping(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, s.Ping(context.Background()))

	require.NoError(t, os.RemoveAll(dir))
	require.Error(t, s.Ping(context.Background()))
}

func TestStore_CanceledContext(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, s.Set(ctx, "cart", []byte(`{}`)), context.Canceled)
}
