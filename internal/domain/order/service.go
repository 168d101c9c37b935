package order

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/cartcraft/internal/domain/cart"
	"github.com/xenking/cartcraft/internal/domain/checkout"
	"github.com/xenking/cartcraft/internal/domain/pricing"
	"github.com/xenking/cartcraft/internal/domain/product"
)

const instrumentationName = "github.com/xenking/cartcraft/internal/domain/order"

// maxLookups bounds concurrent catalog lookups during reorder.
const maxLookups = 8

// CartStore is the part of cart.Store the checkout flow uses.
type CartStore interface {
	Get(ctx context.Context) cart.Cart
	AddItems(ctx context.Context, additions []cart.Addition) cart.Cart
	Checkout(ctx context.Context, ordered cart.Cart) cart.Cart
}

// Session is the part of checkout.SessionStore the checkout flow uses.
type Session interface {
	Shipping(ctx context.Context) *checkout.ShippingInfo
	Payment(ctx context.Context) *checkout.PaymentInfo
	Stage(placed bool) checkout.Stage
	Clear(ctx context.Context) error
}

var (
	_ CartStore = (*cart.Store)(nil)
	_ Session   = (*checkout.SessionStore)(nil)
)

// Review is everything shown on the review step.
type Review struct {
	Cart     cart.Cart
	Shipping checkout.ShippingInfo
	Payment  checkout.PaymentInfo
	Totals   pricing.Totals
}

// ReorderResult reports what a reorder added to the cart.
type ReorderResult struct {
	Added []cart.LineItem
	// Skipped holds product IDs that are gone from the catalog or out of stock.
	Skipped []string
	Cart    cart.Cart
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithCatalog enables catalog lookups on reorder. Without a catalog the
// past order's lines are re-added unchanged.
func WithCatalog(c product.Catalog) ServiceOption {
	return func(s *Service) { s.catalog = c }
}

// WithTracerProvider sets the provider used for checkout spans.
func WithTracerProvider(tp trace.TracerProvider) ServiceOption {
	return func(s *Service) { s.tp = tp }
}

// WithMeterProvider sets the provider used for order metrics.
func WithMeterProvider(mp metric.MeterProvider) ServiceOption {
	return func(s *Service) { s.mp = mp }
}

// Service runs the review, placement and reorder steps of checkout.
type Service struct {
	carts   CartStore
	session Session
	ledger  *Ledger
	calc    *pricing.Calculator
	catalog product.Catalog
	lg      *zap.Logger

	tp     trace.TracerProvider
	mp     metric.MeterProvider
	tracer trace.Tracer
	placed metric.Int64Counter
	totals metric.Float64Histogram

	mu sync.Mutex
}

// NewService creates a checkout Service.
func NewService(
	carts CartStore,
	session Session,
	ledger *Ledger,
	calc *pricing.Calculator,
	lg *zap.Logger,
	opts ...ServiceOption,
) (*Service, error) {
	s := &Service{
		carts:   carts,
		session: session,
		ledger:  ledger,
		calc:    calc,
		lg:      lg,
		tp:      tracenoop.NewTracerProvider(),
		mp:      metricnoop.NewMeterProvider(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.tracer = s.tp.Tracer(instrumentationName)
	meter := s.mp.Meter(instrumentationName)

	var err error
	if s.placed, err = meter.Int64Counter("cartcraft.orders.placed",
		metric.WithDescription("Orders written to the ledger"),
		metric.WithUnit("{order}"),
	); err != nil {
		return nil, errors.Wrap(err, "create orders counter")
	}
	if s.totals, err = meter.Float64Histogram("cartcraft.order.total",
		metric.WithDescription("Order grand total"),
		metric.WithUnit("USD"),
	); err != nil {
		return nil, errors.Wrap(err, "create order total histogram")
	}
	return s, nil
}

// Review returns the cart, both checkout slots and the computed totals. It
// returns a *checkout.PreconditionError when a step is incomplete or the
// cart is empty.
func (s *Service) Review(ctx context.Context) (*Review, error) {
	ctx, span := s.tracer.Start(ctx, "order.Review")
	defer span.End()

	return s.review(ctx)
}

func (s *Service) review(ctx context.Context) (*Review, error) {
	if err := checkout.Gate(checkout.StepReview, s.session.Stage(false)); err != nil {
		return nil, err
	}
	shipping, payment := s.session.Shipping(ctx), s.session.Payment(ctx)
	if shipping == nil || payment == nil {
		// Slots cleared between the gate and the read.
		return nil, checkout.Gate(checkout.StepReview, s.session.Stage(false))
	}

	c := s.carts.Get(ctx)
	if err := checkout.RequireItems(checkout.StepReview, c.IsEmpty()); err != nil {
		return nil, err
	}

	return &Review{
		Cart:     c,
		Shipping: *shipping,
		Payment:  *payment,
		Totals:   s.calc.Totals(c, *shipping),
	}, nil
}

// PlaceOrder writes the reviewed cart to the ledger, then removes the ordered
// lines from the cart and clears the checkout session. When the ledger write
// fails nothing is cleared.
func (s *Service) PlaceOrder(ctx context.Context) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.PlaceOrder")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.review(ctx)
	if err != nil {
		return nil, err
	}

	o, err := s.ledger.Place(ctx, PlaceRequest{
		Cart:     r.Cart,
		Shipping: r.Shipping,
		Payment:  r.Payment,
		Totals:   r.Totals,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "place order")
		return nil, errors.Wrap(err, "place order")
	}
	span.SetAttributes(
		attribute.String("order.id", o.ID),
		attribute.String("order.number", o.Number),
	)

	s.carts.Checkout(ctx, r.Cart)
	if err := s.session.Clear(ctx); err != nil {
		s.lg.Warn("Clear checkout session failed", zap.String("number", o.Number), zap.Error(err))
	}

	attrs := metric.WithAttributes(attribute.String("shipping.state", o.Shipping.State))
	s.placed.Add(ctx, 1, attrs)
	total, _ := o.Totals.Total.Float64()
	s.totals.Record(ctx, total, attrs)

	return o, nil
}

// Reorder adds the lines of a past order to the cart. With a catalog, each
// product is looked up for its current title and price, quantities are
// capped at current stock, and missing or out-of-stock products are skipped.
func (s *Service) Reorder(ctx context.Context, number string) (*ReorderResult, error) {
	ctx, span := s.tracer.Start(ctx, "order.Reorder",
		trace.WithAttributes(attribute.String("order.number", number)),
	)
	defer span.End()

	o := s.ledger.ByNumber(ctx, number)
	if o == nil {
		return nil, errors.Wrapf(ErrNotFound, "order %s", number)
	}

	additions, skipped, err := s.resolveLines(ctx, o.Items)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolve lines")
		return nil, errors.Wrap(err, "resolve reorder lines")
	}

	c := s.carts.AddItems(ctx, additions)
	added := make([]cart.LineItem, 0, len(additions))
	for _, a := range additions {
		if l, ok := c.Item(a.Product.ID); ok {
			l.Quantity = a.Quantity
			added = append(added, l)
		}
	}
	if len(skipped) > 0 {
		s.lg.Info("Reorder skipped unavailable products",
			zap.String("number", number),
			zap.Strings("product_ids", skipped),
		)
	}
	return &ReorderResult{Added: added, Skipped: skipped, Cart: c}, nil
}

func (s *Service) resolveLines(ctx context.Context, lines []cart.LineItem) ([]cart.Addition, []string, error) {
	if s.catalog == nil {
		additions := make([]cart.Addition, 0, len(lines))
		for _, l := range lines {
			additions = append(additions, cart.Addition{
				Product: product.Product{
					ID:    l.ProductID,
					Title: l.Title,
					Price: l.Price,
					Image: l.Image,
				},
				Quantity: l.Quantity,
			})
		}
		return additions, []string{}, nil
	}

	found := make([]*product.Product, len(lines))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxLookups)
	for i, l := range lines {
		g.Go(func() error {
			p, err := s.catalog.ByID(gctx, l.ProductID)
			switch {
			case errors.Is(err, product.ErrNotFound):
				return nil
			case err != nil:
				return errors.Wrapf(err, "lookup %s", l.ProductID)
			}
			found[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	additions := make([]cart.Addition, 0, len(lines))
	skipped := []string{}
	for i, l := range lines {
		p := found[i]
		if p == nil || !p.InStock() {
			skipped = append(skipped, l.ProductID)
			continue
		}
		additions = append(additions, cart.Addition{
			Product:  *p,
			Quantity: min(l.Quantity, p.Stock),
		})
	}
	return additions, skipped, nil
}
