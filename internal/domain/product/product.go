package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase.
type Product struct {
	ID       string
	Title    string
	Price    decimal.Decimal
	Image    string
	Stock    int
	Rating   float64
	Category string
}

// InStock reports whether at least one unit is available.
func (p Product) InStock() bool {
	return p.Stock > 0
}

// Catalog defines read operations for the product catalog.
type Catalog interface {
	List(ctx context.Context) ([]Product, error)
	ByID(ctx context.Context, id string) (*Product, error)
	ByCategory(ctx context.Context, category string) ([]Product, error)
}
