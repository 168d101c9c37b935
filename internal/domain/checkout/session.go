package checkout

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.uber.org/zap"

	"github.com/xenking/cartcraft/internal/storage"
)

// Storage keys of the session slots.
const (
	ShippingKey = "checkout.shipping"
	PaymentKey  = "checkout.payment"
)

// SessionOption configures a SessionStore.
type SessionOption func(*SessionStore)

// WithCardMasking masks all but the last four card digits before the payment
// slot is saved.
func WithCardMasking(enabled bool) SessionOption {
	return func(s *SessionStore) { s.maskCards = enabled }
}

// SessionStore holds the shipping and payment slots of the checkout in
// progress. Slots are mirrored to a storage.Store best-effort.
type SessionStore struct {
	kv        storage.Store
	lg        *zap.Logger
	maskCards bool

	mu       sync.Mutex
	shipping *ShippingInfo
	payment  *PaymentInfo
}

// NewSessionStore loads persisted slots from kv. Unreadable slots are logged
// and treated as absent.
func NewSessionStore(ctx context.Context, kv storage.Store, lg *zap.Logger, opts ...SessionOption) *SessionStore {
	s := &SessionStore{kv: kv, lg: lg}
	for _, opt := range opts {
		opt(s)
	}

	var (
		shipping ShippingInfo
		payment  PaymentInfo
	)
	if s.load(ctx, ShippingKey, shipping.Decode) {
		s.shipping = &shipping
	}
	if s.load(ctx, PaymentKey, payment.Decode) {
		s.payment = &payment
	}
	return s
}

func (s *SessionStore) load(ctx context.Context, key string, decode func(*jx.Decoder) error) bool {
	data, err := s.kv.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return false
	}
	if err == nil {
		err = decode(jx.DecodeBytes(data))
		if err != nil {
			err = &storage.PersistenceError{Op: "decode", Key: key, Err: err}
		}
	} else {
		err = &storage.PersistenceError{Op: "get", Key: key, Err: err}
	}
	if err != nil {
		s.lg.Warn("Load checkout slot failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

type encoder interface {
	Encode(e *jx.Encoder)
}

func (s *SessionStore) save(ctx context.Context, key string, v encoder) {
	var e jx.Encoder
	v.Encode(&e)
	if err := s.kv.Set(ctx, key, e.Bytes()); err != nil {
		s.lg.Warn("Persist checkout slot failed",
			zap.String("key", key),
			zap.Error(&storage.PersistenceError{Op: "set", Key: key, Err: err}),
		)
	}
}

// SaveShipping validates info and stores it in the shipping slot. Invalid
// input returns a *ValidationError and leaves the slot untouched.
func (s *SessionStore) SaveShipping(ctx context.Context, info ShippingInfo) (ShippingInfo, error) {
	if err := info.Validate(); err != nil {
		return ShippingInfo{}, err
	}
	info = info.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.shipping = &info
	s.save(ctx, ShippingKey, info)
	return info, nil
}

// SavePayment validates form and stores it, without the CVV, in the payment
// slot. Invalid input returns a *ValidationError and leaves the slot
// untouched.
func (s *SessionStore) SavePayment(ctx context.Context, form PaymentForm) (PaymentInfo, error) {
	if err := form.Validate(); err != nil {
		return PaymentInfo{}, err
	}
	info := form.Info()
	if s.maskCards {
		info.CardNumber = MaskCardNumber(info.CardNumber)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.payment = &info
	s.save(ctx, PaymentKey, info)
	return info, nil
}

// Shipping returns a copy of the shipping slot or nil.
func (s *SessionStore) Shipping(_ context.Context) *ShippingInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shipping == nil {
		return nil
	}
	v := *s.shipping
	return &v
}

// Payment returns a copy of the payment slot or nil.
func (s *SessionStore) Payment(_ context.Context) *PaymentInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.payment == nil {
		return nil
	}
	v := *s.payment
	return &v
}

// Stage resolves the current slots against the state machine.
func (s *SessionStore) Stage(placed bool) Stage {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Resolve(s.shipping != nil, s.payment != nil, placed)
}

// Clear drops both slots. The in-memory slots are cleared even when removing
// the persisted copies fails; the first removal error is returned.
func (s *SessionStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.shipping = nil
	s.payment = nil

	var first error
	for _, key := range []string{ShippingKey, PaymentKey} {
		if err := s.kv.Remove(ctx, key); err != nil {
			perr := &storage.PersistenceError{Op: "remove", Key: key, Err: err}
			s.lg.Warn("Remove checkout slot failed", zap.String("key", key), zap.Error(perr))
			if first == nil {
				first = perr
			}
		}
	}
	return first
}
