package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/cartcraft/internal/domain/product"
)

func TestSample(t *testing.T) {
	ctx := context.Background()
	c, err := Sample()
	require.NoError(t, err)

	all, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 8)
	assert.Equal(t, "1", all[0].ID)

	p, err := c.ByID(ctx, "4")
	require.NoError(t, err)
	assert.Equal(t, "Coffee Maker", p.Title)
	assert.True(t, decimal.RequireFromString("49.5").Equal(p.Price))
	assert.False(t, p.InStock())

	_, err = c.ByID(ctx, "missing")
	assert.ErrorIs(t, err, product.ErrNotFound)

	home, err := c.ByCategory(ctx, "HOME")
	require.NoError(t, err)
	require.Len(t, home, 2)
	assert.Equal(t, "6", home[1].ID)

	everything, err := c.ByCategory(ctx, " ")
	require.NoError(t, err)
	assert.Len(t, everything, 8)
}

func TestListIsolation(t *testing.T) {
	ctx := context.Background()
	c, err := New([]product.Product{{ID: "a", Title: "A", Price: decimal.NewFromInt(1)}})
	require.NoError(t, err)

	all, err := c.List(ctx)
	require.NoError(t, err)
	all[0].Title = "changed"

	p, err := c.ByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "A", p.Title)
}

func TestParseErrors(t *testing.T) {
	for _, tt := range []struct {
		name string
		data string
	}{
		{"NotArray", `{"id":"1"}`},
		{"EmptyID", `[{"title":"x","price":1}]`},
		{"Duplicate", `[{"id":"1","price":1},{"id":"1","price":2}]`},
		{"NegativePrice", `[{"id":"1","price":-1}]`},
		{"BadPrice", `[{"id":"1","price":"abc"}]`},
	} {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":"x","name":"Legacy","price":"2.50","stock":1}]`), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	p, err := c.ByID(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "Legacy", p.Title)
	assert.Equal(t, "2.5", p.Price.String())

	_, err = Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestProductEncode(t *testing.T) {
	p := product.Product{
		ID:       "1",
		Title:    "Pen",
		Price:    decimal.RequireFromString("2.50"),
		Stock:    0,
		Rating:   4.5,
		Category: "office",
	}
	var e jx.Encoder
	p.Encode(&e)
	assert.JSONEq(t, `{"id":"1","title":"Pen","price":2.5,"image":"","stock":0,"rating":4.5,"category":"office","inStock":false}`, e.String())
}
