package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xenking/cartcraft/internal/domain/cart"
)

type addItemRequest struct {
	ProductID string
	Quantity  int
}

func (req *addItemRequest) Decode(d *jx.Decoder) error {
	req.Quantity = 1
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productId":
			req.ProductID, err = d.Str()
		case "quantity":
			req.Quantity, err = d.Int()
		default:
			return d.Skip()
		}
		return err
	}); err != nil {
		return err
	}
	if req.ProductID == "" {
		return errors.New("productId is required")
	}
	return nil
}

// decodeQuantity reads {"quantity": n}.
func decodeQuantity(d *jx.Decoder) (int, error) {
	qty, found := 0, false
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "quantity" {
			return d.Skip()
		}
		found = true
		var err error
		qty, err = d.Int()
		return err
	})
	if err == nil && !found {
		err = errors.New("quantity is required")
	}
	return qty, err
}

func (h *Handler) countMutation(ctx context.Context, op string) {
	h.mutations.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

func writeCart(w http.ResponseWriter, c cart.Cart) {
	writeJSON(w, http.StatusOK, c.Encode)
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	writeCart(w, h.carts.Get(r.Context()))
}

// addItem resolves the product in the catalog and adds it at its current
// price. Out-of-stock products are refused.
func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req addItemRequest
	if err := decodeBody(w, r, req.Decode); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.catalog.ByID(ctx, req.ProductID)
	if err != nil {
		writeError(w, r, errors.Wrapf(err, "product %s", req.ProductID))
		return
	}
	if !p.InStock() {
		writeError(w, r, errors.Wrapf(errOutOfStock, "product %s", p.ID))
		return
	}

	c, err := h.carts.AddItem(ctx, *p, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.countMutation(ctx, "add")
	writeCart(w, c)
}

// updateQuantity sets a line's quantity. Zero removes the line.
func (h *Handler) updateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var qty int
	if err := decodeBody(w, r, func(d *jx.Decoder) (err error) {
		qty, err = decodeQuantity(d)
		return err
	}); err != nil {
		writeError(w, r, err)
		return
	}
	switch {
	case qty < 0:
		writeError(w, r, cart.ErrInvalidQuantity)
		return
	case qty > cart.MaxQuantity:
		writeError(w, r, cart.ErrQuantityLimit)
		return
	}

	c := h.carts.UpdateQuantity(ctx, r.PathValue("productId"), qty)
	h.countMutation(ctx, "update")
	writeCart(w, c)
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c := h.carts.RemoveItem(ctx, r.PathValue("productId"))
	h.countMutation(ctx, "remove")
	writeCart(w, c)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c := h.carts.Clear(ctx)
	h.countMutation(ctx, "clear")
	writeCart(w, c)
}
