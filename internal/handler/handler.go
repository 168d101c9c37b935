// Package handler exposes the storefront over a JSON HTTP API.
package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"

	"github.com/xenking/cartcraft/internal/domain/cart"
	"github.com/xenking/cartcraft/internal/domain/checkout"
	"github.com/xenking/cartcraft/internal/domain/order"
	"github.com/xenking/cartcraft/internal/domain/product"
)

const instrumentationName = "github.com/xenking/cartcraft/internal/handler"

// Deps holds the domain components served by the Handler.
type Deps struct {
	Catalog  product.Catalog
	Carts    *cart.Store
	Session  *checkout.SessionStore
	Ledger   *order.Ledger
	Checkout *order.Service
}

// Handler serves the storefront API for a single shopper session.
type Handler struct {
	catalog  product.Catalog
	carts    *cart.Store
	session  *checkout.SessionStore
	ledger   *order.Ledger
	checkout *order.Service

	mutations metric.Int64Counter
}

// New constructs a Handler. A nil MeterProvider disables metrics.
func New(deps Deps, mp metric.MeterProvider) (*Handler, error) {
	if mp == nil {
		mp = metricnoop.NewMeterProvider()
	}
	mutations, err := mp.Meter(instrumentationName).Int64Counter("cartcraft.cart.mutations",
		metric.WithDescription("Cart changes requested through the API"),
		metric.WithUnit("{mutation}"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create cart mutations counter")
	}
	return &Handler{
		catalog:   deps.Catalog,
		carts:     deps.Carts,
		session:   deps.Session,
		ledger:    deps.Ledger,
		checkout:  deps.Checkout,
		mutations: mutations,
	}, nil
}

// Register mounts every API route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/{id}", h.getProduct)

	mux.HandleFunc("GET /api/cart", h.getCart)
	mux.HandleFunc("DELETE /api/cart", h.clearCart)
	mux.HandleFunc("POST /api/cart/items", h.addItem)
	mux.HandleFunc("PUT /api/cart/items/{productId}", h.updateQuantity)
	mux.HandleFunc("DELETE /api/cart/items/{productId}", h.removeItem)

	mux.HandleFunc("GET /api/checkout/shipping", h.getShipping)
	mux.HandleFunc("PUT /api/checkout/shipping", h.saveShipping)
	mux.HandleFunc("GET /api/checkout/payment", h.getPayment)
	mux.HandleFunc("PUT /api/checkout/payment", h.savePayment)
	mux.HandleFunc("GET /api/checkout/stage", h.getStage)
	mux.HandleFunc("GET /api/checkout/review", h.review)
	mux.HandleFunc("POST /api/checkout/orders", h.placeOrder)
	mux.HandleFunc("GET /api/checkout/confirmation/{number}", h.confirmation)

	mux.HandleFunc("GET /api/orders", h.listOrders)
	mux.HandleFunc("GET /api/orders/{number}", h.getOrder)
	mux.HandleFunc("PUT /api/orders/{number}/status", h.updateStatus)
	mux.HandleFunc("POST /api/orders/{number}/reorder", h.reorder)
}
