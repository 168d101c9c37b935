package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/cartcraft/internal/storage"
)

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "cartcraft.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Ping(ctx))

	_, err = s.Get(ctx, "orders")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.Set(ctx, "orders", []byte(`[]`)))
	require.NoError(t, s.Set(ctx, "orders", []byte(`[{"orderNumber":"CC1"}]`)))

	v, err := s.Get(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, `[{"orderNumber":"CC1"}]`, string(v))

	require.NoError(t, s.Remove(ctx, "orders"))
	require.NoError(t, s.Remove(ctx, "orders"))
	_, err = s.Get(ctx, "orders")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cartcraft.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "cart", []byte(`{"items":[]}`)))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	v, err := s.Get(ctx, "cart")
	require.NoError(t, err)
	assert.Equal(t, `{"items":[]}`, string(v))
}
