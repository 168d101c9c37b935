package order

import (
	"context"
	"math/rand/v2"
	"regexp"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xenking/cartcraft/internal/domain/cart"
	"github.com/xenking/cartcraft/internal/domain/checkout"
	"github.com/xenking/cartcraft/internal/domain/pricing"
	"github.com/xenking/cartcraft/internal/storage"
	"github.com/xenking/cartcraft/internal/storage/memory"
)

// --- Fakes ---

type faultyStore struct {
	*memory.Store
	getErr error
	setErr error
}

func (f *faultyStore) Get(ctx context.Context, key string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.Store.Get(ctx, key)
}

func (f *faultyStore) Set(ctx context.Context, key string, value []byte) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.Store.Set(ctx, key, value)
}

type recordingIndex struct {
	err    error
	orders []Order
}

func (r *recordingIndex) IndexOrder(_ context.Context, o Order) error {
	r.orders = append(r.orders, o)
	return r.err
}

// --- Helpers ---

var placedAt = time.Date(2026, 3, 14, 15, 9, 26, 535_000_000, time.UTC)

type tickingClock struct {
	t time.Time
}

func (c *tickingClock) Now() time.Time {
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

func newTestLedger(t *testing.T, kv storage.Store, opts ...LedgerOption) *Ledger {
	t.Helper()
	clock := &tickingClock{t: placedAt}
	base := []LedgerOption{
		WithClock(clock.Now),
		WithRand(rand.New(rand.NewPCG(7, 11))),
	}
	return NewLedger(context.Background(), kv, zap.NewNop(), append(base, opts...)...)
}

func testRequest(titles ...string) PlaceRequest {
	items := make([]cart.LineItem, 0, len(titles))
	for i, title := range titles {
		items = append(items, cart.LineItem{
			ProductID: string(rune('1' + i)),
			Title:     title,
			Price:     decimal.RequireFromString("12.50"),
			Quantity:  i + 1,
			AddedAt:   placedAt.Add(-time.Hour),
		})
	}
	c := cart.New(items...)
	shipping := checkout.ShippingInfo{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com",
		Phone: "555", Address: "1 Way", City: "Austin", State: "TX", ZipCode: "73301", Country: "US",
	}
	return PlaceRequest{
		Cart:     c,
		Shipping: shipping,
		Payment:  checkout.PaymentInfo{CardNumber: "4111 1111 1111 1111", ExpiryDate: "01/30", CardName: "Ada", SameAsShipping: true},
		Totals:   pricing.NewCalculator(pricing.DefaultRules()).Totals(c, shipping),
	}
}

// requireMatchesRequest checks that o carries exactly what req placed.
func requireMatchesRequest(t *testing.T, req PlaceRequest, o Order) {
	t.Helper()
	require.Len(t, o.Items, len(req.Cart.Items))
	for i, want := range req.Cart.Items {
		got := o.Items[i]
		assert.Equal(t, want.ProductID, got.ProductID)
		assert.Equal(t, want.Title, got.Title)
		assert.Equal(t, want.Image, got.Image)
		assert.Equal(t, want.Quantity, got.Quantity)
		assert.True(t, want.Price.Equal(got.Price), "price %s != %s", got.Price, want.Price)
		assert.True(t, want.AddedAt.Equal(got.AddedAt), "added %s != %s", got.AddedAt, want.AddedAt)
	}
	assert.Equal(t, req.Shipping, o.Shipping)
	assert.Equal(t, req.Payment, o.Payment)
	assert.True(t, req.Totals.Subtotal.Equal(o.Totals.Subtotal), "subtotal")
	assert.True(t, req.Totals.Shipping.Equal(o.Totals.Shipping), "shipping")
	assert.True(t, req.Totals.Tax.Equal(o.Totals.Tax), "tax")
	assert.True(t, req.Totals.Total.Equal(o.Totals.Total), "total")
}

var (
	numberPattern   = regexp.MustCompile(`^CC\d{9}$`)
	trackingPattern = regexp.MustCompile(`^1Z[0-9A-Z]{9}$`)
)

// --- Tests ---

func TestLedger_Place(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t, memory.New())

	req := testRequest("Kettle", "Mug")
	o, err := l.Place(ctx, req)
	require.NoError(t, err)

	_, err = uuid.Parse(o.ID)
	require.NoError(t, err)
	assert.Regexp(t, numberPattern, o.Number)
	assert.Equal(t, "CC966536", o.Number[:8], "number embeds the millisecond clock")
	assert.Regexp(t, trackingPattern, o.TrackingNumber)
	assert.Equal(t, StatusConfirmed, o.Status)
	assert.Equal(t, placedAt.Add(time.Millisecond), o.PlacedAt)
	assert.Equal(t, o.PlacedAt.AddDate(0, 0, 5), o.EstimatedDelivery)
	assert.Equal(t, req.Cart.Items, o.Items)
	assert.Equal(t, req.Shipping, o.Shipping)
	assert.Equal(t, req.Payment, o.Payment)
	assert.True(t, req.Totals.Total.Equal(o.Totals.Total))
}

func TestLedger_Place_EmptyCart(t *testing.T) {
	l := newTestLedger(t, memory.New())
	_, err := l.Place(context.Background(), PlaceRequest{Cart: cart.New()})
	require.ErrorIs(t, err, ErrEmptyOrder)
	assert.Empty(t, l.All(context.Background()))
}

func TestLedger_NewestFirst(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	l := newTestLedger(t, kv)

	var numbers []string
	for _, title := range []string{"First", "Second", "Third"} {
		o, err := l.Place(ctx, testRequest(title))
		require.NoError(t, err)
		numbers = append(numbers, o.Number)
	}

	all := l.All(ctx)
	require.Len(t, all, 3)
	assert.Equal(t, numbers[2], all[0].Number)
	assert.Equal(t, numbers[1], all[1].Number)
	assert.Equal(t, numbers[0], all[2].Number)
	assert.Equal(t, 3, l.Count(ctx))

	reloaded := newTestLedger(t, kv).All(ctx)
	require.Len(t, reloaded, 3)
	for i := range all {
		assert.Equal(t, all[i].ID, reloaded[i].ID)
		assert.Equal(t, all[i].Number, reloaded[i].Number)
		assert.True(t, all[i].PlacedAt.Equal(reloaded[i].PlacedAt))
		assert.True(t, all[i].Totals.Total.Equal(reloaded[i].Totals.Total))
		assert.Equal(t, all[i].Shipping, reloaded[i].Shipping)
		assert.Equal(t, all[i].Payment, reloaded[i].Payment)
		require.Len(t, reloaded[i].Items, len(all[i].Items))
	}
}

func TestLedger_ByNumber(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	l := newTestLedger(t, kv)

	req := testRequest("Kettle", "Mug", "Teapot")
	placed, err := l.Place(ctx, req)
	require.NoError(t, err)
	_, err = l.Place(ctx, testRequest("Mug"))
	require.NoError(t, err)

	got := l.ByNumber(ctx, placed.Number)
	require.NotNil(t, got)
	assert.Equal(t, placed.ID, got.ID)
	requireMatchesRequest(t, req, *got)

	reloaded := newTestLedger(t, kv).ByNumber(ctx, placed.Number)
	require.NotNil(t, reloaded)
	assert.Equal(t, placed.ID, reloaded.ID)
	assert.True(t, placed.PlacedAt.Equal(reloaded.PlacedAt))
	requireMatchesRequest(t, req, *reloaded)

	assert.Nil(t, l.ByNumber(ctx, "CC000000000"))
	assert.Nil(t, l.ByNumber(ctx, ""))
}

func TestLedger_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t, memory.New())
	o, err := l.Place(ctx, testRequest("Kettle"))
	require.NoError(t, err)

	o.Items[0].Title = "tampered"
	all := l.All(ctx)
	all[0].Items[0].Title = "tampered"

	assert.Equal(t, "Kettle", l.ByNumber(ctx, o.Number).Items[0].Title)
}

func TestLedger_FailedWriteLeavesLedgerUnchanged(t *testing.T) {
	ctx := context.Background()
	kv := &faultyStore{Store: memory.New()}
	l := newTestLedger(t, kv)
	first, err := l.Place(ctx, testRequest("Kettle"))
	require.NoError(t, err)

	kv.setErr = errors.New("disk full")
	_, err = l.Place(ctx, testRequest("Mug"))
	var perr *storage.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, Key, perr.Key)

	all := l.All(ctx)
	require.Len(t, all, 1)
	assert.Equal(t, first.Number, all[0].Number)
}

func TestLedger_LoadFailure(t *testing.T) {
	ctx := context.Background()
	kv := &faultyStore{Store: memory.New(), getErr: errors.New("connection refused")}
	l := newTestLedger(t, kv)

	assert.Empty(t, l.All(ctx))
	_, err := l.Place(ctx, testRequest("Kettle"))
	var perr *storage.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "get", perr.Op)

	// Recovers once the backend does.
	kv.getErr = nil
	_, err = l.Place(ctx, testRequest("Kettle"))
	require.NoError(t, err)
	assert.Equal(t, 1, l.Count(ctx))
}

func TestLedger_CorruptRecordIsNotOverwritten(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	require.NoError(t, kv.Set(ctx, Key, []byte(`[{"orderNumber":`)))
	l := newTestLedger(t, kv)

	_, err := l.Place(ctx, testRequest("Kettle"))
	var perr *storage.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "decode", perr.Op)

	raw, err := kv.Get(ctx, Key)
	require.NoError(t, err)
	assert.Equal(t, `[{"orderNumber":`, string(raw))
}

func TestLedger_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	l := newTestLedger(t, kv)
	o, err := l.Place(ctx, testRequest("Kettle"))
	require.NoError(t, err)

	got, err := l.UpdateStatus(ctx, o.Number, StatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, got.Status)
	assert.Nil(t, got.ShippedAt)
	assert.Nil(t, got.DeliveredAt)

	shipped, err := l.UpdateStatus(ctx, o.Number, StatusShipped)
	require.NoError(t, err)
	require.NotNil(t, shipped.ShippedAt)
	assert.True(t, shipped.ShippedAt.After(o.PlacedAt))
	assert.Nil(t, shipped.DeliveredAt)

	again, err := l.UpdateStatus(ctx, o.Number, StatusShipped)
	require.NoError(t, err)
	assert.Equal(t, shipped.ShippedAt, again.ShippedAt)

	delivered, err := l.UpdateStatus(ctx, o.Number, StatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, delivered.Status)
	assert.Equal(t, shipped.ShippedAt, delivered.ShippedAt)
	require.NotNil(t, delivered.DeliveredAt)
	assert.True(t, delivered.DeliveredAt.After(*delivered.ShippedAt))

	_, err = l.UpdateStatus(ctx, o.Number, StatusShipped)
	require.ErrorIs(t, err, ErrStatusRegression)

	_, err = l.UpdateStatus(ctx, "CC000000000", StatusShipped)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = l.UpdateStatus(ctx, o.Number, Status("lost"))
	require.ErrorIs(t, err, ErrUnknownStatus)

	reloaded := newTestLedger(t, kv).ByNumber(ctx, o.Number)
	require.NotNil(t, reloaded)
	assert.Equal(t, StatusDelivered, reloaded.Status)
	require.NotNil(t, reloaded.ShippedAt)
	require.NotNil(t, reloaded.DeliveredAt)
	assert.True(t, delivered.ShippedAt.Equal(*reloaded.ShippedAt))
	assert.True(t, delivered.DeliveredAt.Equal(*reloaded.DeliveredAt))

	t.Run("SkipToDelivered", func(t *testing.T) {
		o, err := l.Place(ctx, testRequest("Toaster"))
		require.NoError(t, err)

		got, err := l.UpdateStatus(ctx, o.Number, StatusDelivered)
		require.NoError(t, err)
		require.NotNil(t, got.ShippedAt)
		require.NotNil(t, got.DeliveredAt)
		assert.True(t, got.ShippedAt.Equal(*got.DeliveredAt))
	})
}

func TestLedger_Filter(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t, memory.New())
	kettle, err := l.Place(ctx, testRequest("Electric Kettle"))
	require.NoError(t, err)
	mug, err := l.Place(ctx, testRequest("Mug", "Teapot"))
	require.NoError(t, err)
	_, err = l.UpdateStatus(ctx, mug.Number, StatusShipped)
	require.NoError(t, err)

	assert.Len(t, l.Filter(ctx, Query{}), 2)

	shipped := l.Filter(ctx, Query{Status: StatusShipped})
	require.Len(t, shipped, 1)
	assert.Equal(t, mug.Number, shipped[0].Number)

	byTitle := l.Filter(ctx, Query{Search: "kettle"})
	require.Len(t, byTitle, 1)
	assert.Equal(t, kettle.Number, byTitle[0].Number)

	byNumber := l.Filter(ctx, Query{Search: mug.Number})
	require.Len(t, byNumber, 1)

	assert.Empty(t, l.Filter(ctx, Query{Status: StatusDelivered}))
}

func TestLedger_GenerateNumberAvoidsIssued(t *testing.T) {
	ctx := context.Background()
	// A frozen clock and a single-valued rand force every candidate to
	// collide; the ledger still issues a number after its retries.
	frozen := func() time.Time { return placedAt }
	l := newTestLedger(t, memory.New(), WithClock(frozen), WithRand(rand.New(constSource(1<<63+1))))

	first, err := l.Place(ctx, testRequest("Kettle"))
	require.NoError(t, err)
	assert.Equal(t, "CC966535500", first.Number)
	assert.Equal(t, "1ZIIIIIIIII", first.TrackingNumber)

	second, err := l.Place(ctx, testRequest("Mug"))
	require.NoError(t, err)
	assert.Equal(t, first.Number, second.Number)
	assert.NotEqual(t, first.ID, second.ID)

	// With a varying source the collision is avoided.
	l = newTestLedger(t, memory.New(), WithClock(frozen))
	seen := make(map[string]bool)
	for range 20 {
		o, err := l.Place(ctx, testRequest("Kettle"))
		require.NoError(t, err)
		require.False(t, seen[o.Number], "duplicate %s", o.Number)
		seen[o.Number] = true
	}
	assert.Regexp(t, numberPattern, l.GenerateNumber())
}

type constSource uint64

func (c constSource) Uint64() uint64 { return uint64(c) }

func TestLedger_Index(t *testing.T) {
	ctx := context.Background()
	idx := &recordingIndex{}
	l := newTestLedger(t, memory.New(), WithIndex(idx))

	o, err := l.Place(ctx, testRequest("Kettle"))
	require.NoError(t, err)
	_, err = l.UpdateStatus(ctx, o.Number, StatusShipped)
	require.NoError(t, err)
	_, err = l.UpdateStatus(ctx, o.Number, StatusShipped)
	require.NoError(t, err)

	require.Len(t, idx.orders, 2)
	assert.Equal(t, StatusConfirmed, idx.orders[0].Status)
	assert.Equal(t, StatusShipped, idx.orders[1].Status)
	assert.True(t, o.Totals.Total.Equal(idx.orders[1].Totals.Total))

	idx.err = errors.New("index down")
	_, err = l.Place(ctx, testRequest("Mug"))
	require.NoError(t, err)
	assert.Equal(t, 2, l.Count(ctx))
	assert.Len(t, idx.orders, 3)
}
