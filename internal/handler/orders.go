package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/cartcraft/internal/domain/cart"
	"github.com/xenking/cartcraft/internal/domain/order"
)

// orderView is an order as shown to the shopper: masked card, tracker
// progress and display totals.
type orderView order.Order

func (v orderView) Encode(e *jx.Encoder) {
	o := order.Order(v)
	o.Payment = maskedPayment(o.Payment)
	p := order.StatusProgress(o.Status)

	e.ObjStart()
	e.FieldStart("order")
	o.Encode(e)
	e.FieldStart("progress")
	e.ObjStart()
	e.FieldStart("step")
	e.Int(p.Step)
	e.FieldStart("of")
	e.Int(p.Of)
	e.FieldStart("label")
	e.Str(p.Label)
	e.FieldStart("percent")
	e.Int(p.Percent)
	e.ObjEnd()
	e.FieldStart("itemCount")
	e.Int(o.ItemCount())
	e.FieldStart("display")
	o.Totals.Display().Encode(e)
	e.ObjEnd()
}

// listOrders serves the ledger newest first, filtered by ?status= and ?q=.
func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	var q order.Query
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, err := order.ParseStatus(raw)
		if err != nil {
			writeError(w, r, err)
			return
		}
		q.Status = st
	}
	q.Search = r.URL.Query().Get("q")

	orders := h.ledger.Filter(r.Context(), q)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("orders")
		e.ArrStart()
		for _, o := range orders {
			orderView(o).Encode(e)
		}
		e.ArrEnd()
		e.FieldStart("count")
		e.Int(len(orders))
		e.ObjEnd()
	})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	number := r.PathValue("number")
	o := h.ledger.ByNumber(r.Context(), number)
	if o == nil {
		writeError(w, r, errors.Wrapf(order.ErrNotFound, "order %s", number))
		return
	}
	writeJSON(w, http.StatusOK, orderView(*o).Encode)
}

// updateStatus applies a fulfilment update such as {"status":"shipped"}.
func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var raw string
	if err := decodeBody(w, r, func(d *jx.Decoder) error {
		return d.Obj(func(d *jx.Decoder, key string) error {
			if key != "status" {
				return d.Skip()
			}
			var err error
			raw, err = d.Str()
			return err
		})
	}); err != nil {
		writeError(w, r, err)
		return
	}
	st, err := order.ParseStatus(raw)
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.ledger.UpdateStatus(r.Context(), r.PathValue("number"), st)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderView(*o).Encode)
}

func (h *Handler) reorder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := h.checkout.Reorder(ctx, r.PathValue("number"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.countMutation(ctx, "reorder")
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("added")
		cart.EncodeItems(e, res.Added)
		e.FieldStart("skipped")
		e.ArrStart()
		for _, id := range res.Skipped {
			e.Str(id)
		}
		e.ArrEnd()
		e.FieldStart("cart")
		res.Cart.Encode(e)
		e.ObjEnd()
	})
}
