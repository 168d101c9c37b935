// Package cart owns the shopping cart: its line items, the aggregates derived
// from them, and their persistence.
package cart

import (
	"slices"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// MaxQuantity caps the quantity of a single line.
const MaxQuantity = 9999

var (
	// ErrInvalidQuantity is returned when an item is added with quantity below 1.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	// ErrQuantityLimit is returned when a line would exceed MaxQuantity.
	ErrQuantityLimit = errors.New("quantity exceeds line limit")
)

// LineItem is one product entry in the cart. Quantity is always between 1 and
// MaxQuantity; a zero quantity means the line is removed.
type LineItem struct {
	ProductID string
	Title     string
	Price     decimal.Decimal
	Image     string
	Quantity  int
	AddedAt   time.Time
}

// Subtotal returns Price × Quantity.
func (l LineItem) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is a snapshot of the cart contents. TotalItems and TotalPrice are
// derived from Items; use New to build a Cart with consistent aggregates.
type Cart struct {
	Items      []LineItem
	TotalItems int
	TotalPrice decimal.Decimal
}

// New returns a Cart holding items with its aggregates computed.
func New(items ...LineItem) Cart {
	c := Cart{Items: slices.Clone(items)}
	c.recalculate()
	return c
}

// IsEmpty reports whether the cart has no lines.
func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Item returns the line for productID.
func (c Cart) Item(productID string) (LineItem, bool) {
	if i := c.index(productID); i >= 0 {
		return c.Items[i], true
	}
	return LineItem{}, false
}

func (c Cart) index(productID string) int {
	return slices.IndexFunc(c.Items, func(l LineItem) bool {
		return l.ProductID == productID
	})
}

// clone returns a deep copy; LineItem holds no references, so copying the
// slice is enough.
func (c Cart) clone() Cart {
	items := slices.Clone(c.Items)
	if items == nil {
		items = []LineItem{}
	}
	return Cart{
		Items:      items,
		TotalItems: c.TotalItems,
		TotalPrice: c.TotalPrice,
	}
}

func (c *Cart) recalculate() {
	c.TotalItems = 0
	c.TotalPrice = decimal.Zero
	for _, l := range c.Items {
		c.TotalItems += l.Quantity
		c.TotalPrice = c.TotalPrice.Add(l.Subtotal())
	}
}
