// Package pricing computes shipping, tax and order totals for a cart.
//
// All arithmetic is done at full decimal precision; rounding to cents happens
// only when totals are displayed.
package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xenking/cartcraft/internal/domain/cart"
	"github.com/xenking/cartcraft/internal/domain/checkout"
)

// Rules holds the shipping and tax parameters.
type Rules struct {
	// FreeShippingThreshold is the inclusive subtotal at which shipping is free.
	FreeShippingThreshold decimal.Decimal
	BaseShipping          decimal.Decimal
	// ExpeditedSurcharge is added to BaseShipping for ExpeditedStates.
	ExpeditedSurcharge decimal.Decimal
	ExpeditedStates    []string
	TaxRates           map[string]decimal.Decimal
	DefaultTaxRate     decimal.Decimal
}

// DefaultRules returns the standard storefront rules.
func DefaultRules() Rules {
	return Rules{
		FreeShippingThreshold: decimal.NewFromInt(75),
		BaseShipping:          decimal.RequireFromString("9.99"),
		ExpeditedSurcharge:    decimal.NewFromInt(5),
		ExpeditedStates:       []string{"CA", "NY", "FL"},
		TaxRates: map[string]decimal.Decimal{
			"CA": decimal.RequireFromString("0.0875"),
			"NY": decimal.RequireFromString("0.08"),
			"TX": decimal.RequireFromString("0.0625"),
			"FL": decimal.RequireFromString("0.06"),
			"WA": decimal.RequireFromString("0.065"),
		},
		DefaultTaxRate: decimal.RequireFromString("0.05"),
	}
}

// Totals is the price breakdown of an order.
type Totals struct {
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Display is Totals formatted to two decimal places.
type Display struct {
	Subtotal string
	Shipping string
	Tax      string
	Total    string
}

// Display rounds every amount to cents for presentation.
func (t Totals) Display() Display {
	return Display{
		Subtotal: t.Subtotal.StringFixed(2),
		Shipping: t.Shipping.StringFixed(2),
		Tax:      t.Tax.StringFixed(2),
		Total:    t.Total.StringFixed(2),
	}
}

// Calculator applies Rules to a cart and shipping address.
type Calculator struct {
	rules Rules
}

// NewCalculator creates a Calculator using rules.
func NewCalculator(rules Rules) *Calculator {
	return &Calculator{rules: rules}
}

// Shipping returns the shipping charge for ct delivered to addr.
func (c *Calculator) Shipping(ct cart.Cart, addr checkout.ShippingInfo) decimal.Decimal {
	if ct.TotalPrice.GreaterThanOrEqual(c.rules.FreeShippingThreshold) {
		return decimal.Zero
	}
	cost := c.rules.BaseShipping
	state := normState(addr.State)
	for _, s := range c.rules.ExpeditedStates {
		if s == state {
			cost = cost.Add(c.rules.ExpeditedSurcharge)
			break
		}
	}
	return cost
}

// TaxRate returns the rate applied to deliveries in state.
func (c *Calculator) TaxRate(state string) decimal.Decimal {
	if r, ok := c.rules.TaxRates[normState(state)]; ok {
		return r
	}
	return c.rules.DefaultTaxRate
}

// Tax returns the sales tax on the cart subtotal. Shipping is not taxed.
func (c *Calculator) Tax(ct cart.Cart, addr checkout.ShippingInfo) decimal.Decimal {
	return ct.TotalPrice.Mul(c.TaxRate(addr.State))
}

// Totals returns the full breakdown. Total is exactly the sum of the parts.
func (c *Calculator) Totals(ct cart.Cart, addr checkout.ShippingInfo) Totals {
	t := Totals{
		Subtotal: ct.TotalPrice,
		Shipping: c.Shipping(ct, addr),
		Tax:      c.Tax(ct, addr),
	}
	t.Total = t.Subtotal.Add(t.Shipping).Add(t.Tax)
	return t
}

func normState(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
