package cart

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/cartcraft/internal/domain/product"
	"github.com/xenking/cartcraft/internal/storage"
)

// Key is the storage key holding the cart snapshot.
const Key = "cart"

// Addition is one product/quantity pair for AddItems.
type Addition struct {
	Product  product.Product
	Quantity int
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used to stamp new lines.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store holds the cart in memory and mirrors every change to a storage.Store.
//
// Persistence is best-effort: load failures fall back to an empty cart and
// write failures are logged while the in-memory cart keeps operating.
type Store struct {
	kv  storage.Store
	lg  *zap.Logger
	now func() time.Time

	mu   sync.Mutex
	cart Cart
}

// NewStore loads the persisted cart from kv.
func NewStore(ctx context.Context, kv storage.Store, lg *zap.Logger, opts ...Option) *Store {
	s := &Store{
		kv:  kv,
		lg:  lg,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cart = s.load(ctx)
	return s
}

func (s *Store) load(ctx context.Context) Cart {
	data, err := s.kv.Get(ctx, Key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.lg.Warn("Load cart failed, starting empty",
				zap.Error(&storage.PersistenceError{Op: "get", Key: Key, Err: err}),
			)
		}
		return New()
	}

	c, err := decodeCart(data)
	if err != nil {
		s.lg.Warn("Decode cart failed, starting empty",
			zap.Error(&storage.PersistenceError{Op: "decode", Key: Key, Err: err}),
		)
		return New()
	}
	// Persisted aggregates are never trusted.
	c.recalculate()
	return c
}

// save must be called with s.mu held.
func (s *Store) save(ctx context.Context) {
	if err := s.kv.Set(ctx, Key, encodeCart(s.cart)); err != nil {
		s.lg.Warn("Persist cart failed",
			zap.Error(&storage.PersistenceError{Op: "set", Key: Key, Err: err}),
			zap.Int("items", len(s.cart.Items)),
		)
	}
}

// Get returns a deep copy of the current cart.
func (s *Store) Get(_ context.Context) Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cart.clone()
}

// AddItem adds quantity units of p. An existing line for the same product is
// incremented; otherwise a new line captures the product's current title,
// price and image. Stock is not checked. A line never grows past MaxQuantity.
func (s *Store) AddItem(ctx context.Context, p product.Product, quantity int) (Cart, error) {
	if quantity < 1 {
		return Cart{}, ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.fits(p.ID, quantity) {
		return Cart{}, errors.Wrapf(ErrQuantityLimit, "product %s", p.ID)
	}
	s.add(p, quantity)
	s.cart.recalculate()
	s.save(ctx)
	return s.cart.clone(), nil
}

// AddItems adds several products in one write. Entries with quantity below 1
// or that would push a line past MaxQuantity are skipped.
func (s *Store) AddItems(ctx context.Context, additions []Addition) Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for _, a := range additions {
		if a.Quantity < 1 || !s.fits(a.Product.ID, a.Quantity) {
			continue
		}
		s.add(a.Product, a.Quantity)
		changed = true
	}
	if changed {
		s.cart.recalculate()
		s.save(ctx)
	}
	return s.cart.clone()
}

// fits reports whether quantity more units of productID stay within
// MaxQuantity. Must be called with s.mu held.
func (s *Store) fits(productID string, quantity int) bool {
	current := 0
	if i := s.cart.index(productID); i >= 0 {
		current = s.cart.Items[i].Quantity
	}
	return quantity <= MaxQuantity-current
}

func (s *Store) add(p product.Product, quantity int) {
	if i := s.cart.index(p.ID); i >= 0 {
		s.cart.Items[i].Quantity += quantity
		return
	}
	s.cart.Items = append(s.cart.Items, LineItem{
		ProductID: p.ID,
		Title:     p.Title,
		Price:     p.Price,
		Image:     p.Image,
		Quantity:  quantity,
		AddedAt:   s.now().UTC(),
	})
}

// UpdateQuantity sets the quantity of the line for productID. A quantity of
// zero or less removes the line and larger values are capped at MaxQuantity.
// Unknown products leave the cart unchanged.
func (s *Store) UpdateQuantity(ctx context.Context, productID string, quantity int) Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.cart.index(productID)
	if i < 0 {
		return s.cart.clone()
	}

	if quantity <= 0 {
		s.cart.Items = slices.Delete(s.cart.Items, i, i+1)
	} else {
		s.cart.Items[i].Quantity = min(quantity, MaxQuantity)
	}
	s.cart.recalculate()
	s.save(ctx)
	return s.cart.clone()
}

// RemoveItem drops the line for productID, if any.
func (s *Store) RemoveItem(ctx context.Context, productID string) Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cart.index(productID) < 0 {
		return s.cart.clone()
	}

	s.cart.Items = slices.DeleteFunc(s.cart.Items, func(l LineItem) bool {
		return l.ProductID == productID
	})
	s.cart.recalculate()
	s.save(ctx)
	return s.cart.clone()
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cart = New()
	s.save(ctx)
	return s.cart.clone()
}

// Checkout removes the quantities of ordered from the cart. Lines or units
// added after ordered was read stay in the cart.
func (s *Store) Checkout(ctx context.Context, ordered Cart) Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range ordered.Items {
		i := s.cart.index(o.ProductID)
		if i < 0 {
			continue
		}
		if s.cart.Items[i].Quantity <= o.Quantity {
			s.cart.Items = slices.Delete(s.cart.Items, i, i+1)
			continue
		}
		s.cart.Items[i].Quantity -= o.Quantity
	}
	s.cart.recalculate()
	s.save(ctx)
	return s.cart.clone()
}
