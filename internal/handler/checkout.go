package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/cartcraft/internal/domain/checkout"
	"github.com/xenking/cartcraft/internal/domain/order"
)

// maskedPayment hides all but the last four card digits in API output.
func maskedPayment(p checkout.PaymentInfo) checkout.PaymentInfo {
	p.CardNumber = checkout.MaskCardNumber(p.CardNumber)
	return p
}

func (h *Handler) requireItems(r *http.Request, step checkout.Step) error {
	return checkout.RequireItems(step, h.carts.Get(r.Context()).IsEmpty())
}

func (h *Handler) getShipping(w http.ResponseWriter, r *http.Request) {
	info := h.session.Shipping(r.Context())
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		if info == nil {
			e.Null()
			return
		}
		info.Encode(e)
	})
}

func (h *Handler) saveShipping(w http.ResponseWriter, r *http.Request) {
	if err := h.requireItems(r, checkout.StepShipping); err != nil {
		writeError(w, r, err)
		return
	}
	var info checkout.ShippingInfo
	if err := decodeBody(w, r, info.Decode); err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := h.session.SaveShipping(r.Context(), info)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved.Encode)
}

func (h *Handler) gatePayment(r *http.Request) error {
	if err := checkout.Gate(checkout.StepPayment, h.session.Stage(false)); err != nil {
		return err
	}
	return h.requireItems(r, checkout.StepPayment)
}

func (h *Handler) getPayment(w http.ResponseWriter, r *http.Request) {
	if err := h.gatePayment(r); err != nil {
		writeError(w, r, err)
		return
	}
	info := h.session.Payment(r.Context())
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		if info == nil {
			e.Null()
			return
		}
		maskedPayment(*info).Encode(e)
	})
}

func (h *Handler) savePayment(w http.ResponseWriter, r *http.Request) {
	if err := h.gatePayment(r); err != nil {
		writeError(w, r, err)
		return
	}
	var form checkout.PaymentForm
	if err := decodeBody(w, r, form.Decode); err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := h.session.SavePayment(r.Context(), form)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, maskedPayment(saved).Encode)
}

// getStage reports where the session stands. ?order= names a placed order,
// which resolves the session as placed.
func (h *Handler) getStage(w http.ResponseWriter, r *http.Request) {
	_, placed := h.placedOrder(r, r.URL.Query().Get("order"))
	stage := h.session.Stage(placed)
	empty := h.carts.Get(r.Context()).IsEmpty()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("stage")
		e.Str(stage.String())
		e.FieldStart("next")
		e.Str(stage.Next().String())
		e.FieldStart("cartEmpty")
		e.Bool(empty)
		e.ObjEnd()
	})
}

func (h *Handler) review(w http.ResponseWriter, r *http.Request) {
	rv, err := h.checkout.Review(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("cart")
		rv.Cart.Encode(e)
		e.FieldStart("shippingInfo")
		rv.Shipping.Encode(e)
		e.FieldStart("paymentInfo")
		maskedPayment(rv.Payment).Encode(e)
		e.FieldStart("totals")
		rv.Totals.Encode(e)
		e.FieldStart("display")
		rv.Totals.Display().Encode(e)
		e.ObjEnd()
	})
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.checkout.PlaceOrder(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/orders/"+o.Number)
	writeJSON(w, http.StatusCreated, orderView(*o).Encode)
}

func (h *Handler) placedOrder(r *http.Request, number string) (*order.Order, bool) {
	if number == "" {
		return nil, false
	}
	o := h.ledger.ByNumber(r.Context(), number)
	return o, o != nil
}

// confirmation serves the confirmation page for a placed order. Unknown
// numbers redirect to the step the session still needs.
func (h *Handler) confirmation(w http.ResponseWriter, r *http.Request) {
	o, placed := h.placedOrder(r, r.PathValue("number"))
	if err := checkout.Gate(checkout.StepConfirmation, h.session.Stage(placed)); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderView(*o).Encode)
}
