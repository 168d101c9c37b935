package order

import (
	"slices"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/cartcraft/internal/domain/cart"
	"github.com/xenking/cartcraft/internal/domain/checkout"
	"github.com/xenking/cartcraft/internal/domain/pricing"
)

// Sentinel errors for order lookups and status changes.
var (
	ErrNotFound         = errors.New("order not found")
	ErrStatusRegression = errors.New("status cannot move backwards")
	ErrUnknownStatus    = errors.New("unknown order status")
)

// Status is the fulfilment state of an order.
type Status string

// Order statuses in fulfilment order.
const (
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
)

var statusOrder = []Status{StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered}

// ParseStatus returns the Status named by s or ErrUnknownStatus.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(statusOrder, st) {
		return "", errors.Wrapf(ErrUnknownStatus, "%q", s)
	}
	return st, nil
}

func (s Status) rank() int {
	return slices.Index(statusOrder, s)
}

// Progress describes how far along fulfilment an order is.
type Progress struct {
	Step    int
	Of      int
	Label   string
	Percent int
}

// StatusProgress maps a status onto the three-step fulfilment tracker.
// Confirmed orders and unrecognised statuses show as processing.
func StatusProgress(s Status) Progress {
	p := Progress{Step: 1, Of: 3, Label: "Processing"}
	switch s {
	case StatusShipped:
		p.Step, p.Label = 2, "Shipped"
	case StatusDelivered:
		p.Step, p.Label = 3, "Delivered"
	}
	p.Percent = p.Step * 100 / p.Of
	return p
}

// Order is a placed order. Everything except Status and the fulfilment
// stamps is fixed at placement.
type Order struct {
	ID                string
	Number            string
	PlacedAt          time.Time
	EstimatedDelivery time.Time
	Items             []cart.LineItem
	Shipping          checkout.ShippingInfo
	Payment           checkout.PaymentInfo
	Totals            pricing.Totals
	Status            Status
	TrackingNumber    string

	// ShippedAt and DeliveredAt are set when the order reaches that status.
	ShippedAt   *time.Time
	DeliveredAt *time.Time
}

// ItemCount returns the number of units across all lines.
func (o Order) ItemCount() int {
	n := 0
	for _, l := range o.Items {
		n += l.Quantity
	}
	return n
}

func (o Order) clone() Order {
	o.Items = slices.Clone(o.Items)
	o.ShippedAt = cloneTime(o.ShippedAt)
	o.DeliveredAt = cloneTime(o.DeliveredAt)
	return o
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// advance moves o to status, stamping the shipped and delivered times that
// status implies and are not yet recorded.
func (o *Order) advance(status Status, now time.Time) {
	o.Status = status
	if status.rank() >= StatusShipped.rank() && o.ShippedAt == nil {
		o.ShippedAt = &now
	}
	if status.rank() >= StatusDelivered.rank() && o.DeliveredAt == nil {
		o.DeliveredAt = &now
	}
}

// Query narrows Ledger.Filter. Zero values match everything.
type Query struct {
	Status Status
	// Search matches the order number or any item title, ignoring case.
	Search string
}

func (q Query) match(o Order) bool {
	if q.Status != "" && o.Status != q.Status {
		return false
	}
	term := strings.ToLower(strings.TrimSpace(q.Search))
	if term == "" {
		return true
	}
	if strings.Contains(strings.ToLower(o.Number), term) {
		return true
	}
	return slices.ContainsFunc(o.Items, func(l cart.LineItem) bool {
		return strings.Contains(strings.ToLower(l.Title), term)
	})
}
