package order

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/cartcraft/internal/domain/cart"
	"github.com/xenking/cartcraft/internal/domain/checkout"
	"github.com/xenking/cartcraft/internal/domain/pricing"
	"github.com/xenking/cartcraft/internal/storage"
)

// Key is the storage key holding the order list.
const Key = "orders"

const (
	numberAttempts = 5
	bloomCapacity  = 100_000
	bloomFPR       = 0.001
	deliveryDays   = 5
	trackingLen    = 9
	trackingChars  = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// ErrEmptyOrder is returned when placing an order for an empty cart.
var ErrEmptyOrder = errors.New("order has no items")

// PlaceRequest is the snapshot an order is built from.
type PlaceRequest struct {
	Cart     cart.Cart
	Shipping checkout.ShippingInfo
	Payment  checkout.PaymentInfo
	Totals   pricing.Totals
}

// LedgerOption configures a Ledger.
type LedgerOption func(*Ledger)

// WithClock overrides the placement clock.
func WithClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) { l.now = now }
}

// WithRand overrides the source of order number and tracking digits.
func WithRand(r *rand.Rand) LedgerOption {
	return func(l *Ledger) { l.rnd = r }
}

// Index receives every order the ledger writes. Index failures are logged
// and never fail the ledger write.
type Index interface {
	IndexOrder(ctx context.Context, o Order) error
}

// WithIndex mirrors placed orders and status changes into idx.
func WithIndex(idx Index) LedgerOption {
	return func(l *Ledger) { l.index = idx }
}

// Ledger is the append-only list of placed orders, newest first.
//
// Unlike the cart and checkout session, the ledger returns persistence
// errors from Place and UpdateStatus: an order that was not written was not
// placed. Reads log load failures and return no orders; the load is retried
// on the next call.
type Ledger struct {
	kv    storage.Store
	lg    *zap.Logger
	now   func() time.Time
	index Index

	mu     sync.Mutex
	rnd    *rand.Rand
	orders []Order
	loaded bool
	issued *bloom.BloomFilter
}

// NewLedger creates a Ledger over kv and attempts an initial load.
func NewLedger(ctx context.Context, kv storage.Store, lg *zap.Logger, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		kv:  kv,
		lg:  lg,
		now: time.Now,
		rnd: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(l)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.loadLocked(ctx); err != nil {
		lg.Warn("Load orders failed", zap.Error(err))
	}
	return l
}

func (l *Ledger) loadLocked(ctx context.Context) error {
	if l.loaded {
		return nil
	}

	orders := []Order{}
	data, err := l.kv.Get(ctx, Key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return &storage.PersistenceError{Op: "get", Key: Key, Err: err}
	default:
		orders, err = decodeOrders(data)
		if err != nil {
			return &storage.PersistenceError{Op: "decode", Key: Key, Err: err}
		}
	}

	l.issued = bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	for _, o := range orders {
		l.issued.AddString(o.Number)
	}
	l.orders = orders
	l.loaded = true
	return nil
}

func (l *Ledger) readLocked(ctx context.Context) []Order {
	if err := l.loadLocked(ctx); err != nil {
		l.lg.Warn("Load orders failed", zap.Error(err))
		return nil
	}
	return l.orders
}

// GenerateNumber returns a display order number: "CC", the last six digits
// of the millisecond clock and three random digits. Numbers already issued
// by this ledger are avoided when possible.
func (l *Ledger) GenerateNumber() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.nextNumberLocked(l.now())
}

func (l *Ledger) nextNumberLocked(now time.Time) string {
	var n string
	for range numberAttempts {
		n = fmt.Sprintf("CC%06d%03d", now.UnixMilli()%1_000_000, l.rnd.IntN(1000))
		if !l.issuedLocked(n) {
			return n
		}
	}
	l.lg.Warn("Order number collision persisted", zap.String("number", n), zap.Int("attempts", numberAttempts))
	return n
}

// issuedLocked screens n against the bloom filter and confirms hits with an
// exact scan.
func (l *Ledger) issuedLocked(n string) bool {
	if l.issued == nil || !l.issued.TestString(n) {
		return false
	}
	return slices.ContainsFunc(l.orders, func(o Order) bool { return o.Number == n })
}

func (l *Ledger) trackingNumberLocked() string {
	b := make([]byte, 0, 2+trackingLen)
	b = append(b, "1Z"...)
	for range trackingLen {
		b = append(b, trackingChars[l.rnd.IntN(len(trackingChars))])
	}
	return string(b)
}

// Place records a new confirmed order built from req. The order is visible
// only after it has been written.
func (l *Ledger) Place(ctx context.Context, req PlaceRequest) (*Order, error) {
	if req.Cart.IsEmpty() {
		return nil, ErrEmptyOrder
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.loadLocked(ctx); err != nil {
		return nil, err
	}

	now := l.now().UTC()
	o := Order{
		ID:                uuid.NewString(),
		Number:            l.nextNumberLocked(now),
		PlacedAt:          now,
		EstimatedDelivery: now.AddDate(0, 0, deliveryDays),
		Items:             slices.Clone(req.Cart.Items),
		Shipping:          req.Shipping,
		Payment:           req.Payment,
		Totals:            req.Totals,
		Status:            StatusConfirmed,
		TrackingNumber:    l.trackingNumberLocked(),
	}

	next := make([]Order, 0, len(l.orders)+1)
	next = append(next, o)
	next = append(next, l.orders...)
	if err := l.kv.Set(ctx, Key, encodeOrders(next)); err != nil {
		return nil, &storage.PersistenceError{Op: "set", Key: Key, Err: err}
	}

	l.orders = next
	l.issued.AddString(o.Number)
	l.lg.Info("Order placed",
		zap.String("order_id", o.ID),
		zap.String("number", o.Number),
		zap.Int("items", o.ItemCount()),
	)
	l.indexOrder(ctx, o)

	out := o.clone()
	return &out, nil
}

func (l *Ledger) indexOrder(ctx context.Context, o Order) {
	if l.index == nil {
		return
	}
	if err := l.index.IndexOrder(ctx, o); err != nil {
		l.lg.Warn("Index order failed",
			zap.String("number", o.Number),
			zap.Error(err),
		)
	}
}

// All returns every order, newest first.
func (l *Ledger) All(ctx context.Context) []Order {
	return l.Filter(ctx, Query{})
}

// Filter returns the orders matching q, newest first.
func (l *Ledger) Filter(ctx context.Context, q Query) []Order {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := []Order{}
	for _, o := range l.readLocked(ctx) {
		if q.match(o) {
			out = append(out, o.clone())
		}
	}
	return out
}

// Count returns the number of placed orders.
func (l *Ledger) Count(ctx context.Context) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.readLocked(ctx))
}

// ByNumber returns the order with the given display number, or nil.
func (l *Ledger) ByNumber(ctx context.Context, number string) *Order {
	l.mu.Lock()
	defer l.mu.Unlock()

	orders := l.readLocked(ctx)
	if l.issued == nil || !l.issued.TestString(number) {
		return nil
	}
	i := slices.IndexFunc(orders, func(o Order) bool { return o.Number == number })
	if i < 0 {
		return nil
	}
	out := orders[i].clone()
	return &out
}

// UpdateStatus records a status reported by fulfilment. Statuses only move
// forward; setting the current status again is a no-op. Reaching shipped or
// delivered stamps the matching date, including a skipped shipped date.
func (l *Ledger) UpdateStatus(ctx context.Context, number string, status Status) (*Order, error) {
	if status.rank() < 0 {
		return nil, errors.Wrapf(ErrUnknownStatus, "%q", status)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.loadLocked(ctx); err != nil {
		return nil, err
	}
	i := slices.IndexFunc(l.orders, func(o Order) bool { return o.Number == number })
	if i < 0 {
		return nil, errors.Wrapf(ErrNotFound, "order %s", number)
	}

	current := l.orders[i].Status
	switch {
	case current == status:
		out := l.orders[i].clone()
		return &out, nil
	case status.rank() < current.rank():
		return nil, errors.Wrapf(ErrStatusRegression, "%s to %s", current, status)
	}

	next := slices.Clone(l.orders)
	next[i] = next[i].clone()
	next[i].advance(status, l.now().UTC())
	if err := l.kv.Set(ctx, Key, encodeOrders(next)); err != nil {
		return nil, &storage.PersistenceError{Op: "set", Key: Key, Err: err}
	}
	l.orders = next
	l.lg.Info("Order status updated",
		zap.String("number", number),
		zap.String("from", string(current)),
		zap.String("to", string(status)),
	)
	l.indexOrder(ctx, next[i])

	out := next[i].clone()
	return &out, nil
}
