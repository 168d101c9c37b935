// Package catalog serves the product catalog from a JSON file.
package catalog

import (
	"context"
	_ "embed"
	"os"
	"slices"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/cartcraft/internal/domain/product"
)

var _ product.Catalog = (*Static)(nil)

//go:embed products.json
var sampleProducts []byte

// Sample returns the catalog bundled with the binary.
func Sample() (*Static, error) {
	return Parse(sampleProducts)
}

// Static is an immutable in-memory catalog.
type Static struct {
	products []product.Product
	byID     map[string]int
}

// Load reads a JSON array of products from path.
func Load(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read catalog")
	}
	c, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return c, nil
}

// Parse decodes a JSON array of products. IDs must be unique and prices
// non-negative.
func Parse(data []byte) (*Static, error) {
	var products []product.Product
	if err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		var p product.Product
		if err := p.Decode(d); err != nil {
			return errors.Wrapf(err, "product %d", len(products))
		}
		products = append(products, p)
		return nil
	}); err != nil {
		return nil, err
	}
	return New(products)
}

// New builds a catalog from products, keeping their order.
func New(products []product.Product) (*Static, error) {
	c := &Static{
		products: slices.Clone(products),
		byID:     make(map[string]int, len(products)),
	}
	for i, p := range c.products {
		switch {
		case p.ID == "":
			return nil, errors.Errorf("product %d: empty id", i)
		case p.Price.IsNegative():
			return nil, errors.Errorf("product %q: negative price", p.ID)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, errors.Errorf("product %q: duplicate id", p.ID)
		}
		c.byID[p.ID] = i
	}
	return c, nil
}

// List returns every product.
func (c *Static) List(context.Context) ([]product.Product, error) {
	return slices.Clone(c.products), nil
}

// ByID returns the product with id or product.ErrNotFound.
func (c *Static) ByID(_ context.Context, id string) (*product.Product, error) {
	i, ok := c.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	p := c.products[i]
	return &p, nil
}

// ByCategory returns the products whose category matches, ignoring case.
// An empty category lists everything.
func (c *Static) ByCategory(ctx context.Context, category string) ([]product.Product, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return c.List(ctx)
	}
	var out []product.Product
	for _, p := range c.products {
		if strings.EqualFold(p.Category, category) {
			out = append(out, p)
		}
	}
	return out, nil
}
