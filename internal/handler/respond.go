package handler

import (
	"io"
	"maps"
	"net/http"
	"slices"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/cartcraft/internal/domain/cart"
	"github.com/xenking/cartcraft/internal/domain/checkout"
	"github.com/xenking/cartcraft/internal/domain/order"
	"github.com/xenking/cartcraft/internal/domain/product"
	"github.com/xenking/cartcraft/internal/storage"
)

const maxBodySize = 64 << 10

// BadRequestError reports a malformed request body or parameter.
type BadRequestError struct {
	Err error
}

func (e *BadRequestError) Error() string {
	return "bad request: " + e.Err.Error()
}

func (e *BadRequestError) Unwrap() error {
	return e.Err
}

var errOutOfStock = errors.New("product is out of stock")

// decodeBody reads the request body as one JSON value.
func decodeBody(w http.ResponseWriter, r *http.Request, decode func(d *jx.Decoder) error) error {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return &BadRequestError{Err: errors.Wrap(err, "read body")}
	}
	if err := decode(jx.DecodeBytes(data)); err != nil {
		return &BadRequestError{Err: errors.Wrap(err, "decode body")}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	var e jx.Encoder
	encode(&e)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// errorStatus maps domain errors onto HTTP status codes.
func errorStatus(err error) int {
	var (
		validation   *checkout.ValidationError
		precondition *checkout.PreconditionError
		persistence  *storage.PersistenceError
		badRequest   *BadRequestError
	)
	switch {
	case errors.As(err, &validation),
		errors.As(err, &badRequest),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrQuantityLimit),
		errors.Is(err, order.ErrUnknownStatus):
		return http.StatusBadRequest
	case errors.As(err, &precondition),
		errors.Is(err, order.ErrEmptyOrder),
		errors.Is(err, errOutOfStock):
		return http.StatusConflict
	case errors.Is(err, product.ErrNotFound),
		errors.Is(err, order.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, order.ErrStatusRegression):
		return http.StatusUnprocessableEntity
	case errors.As(err, &persistence):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err with the status from errorStatus. Validation
// failures list their fields, precondition failures carry the redirect step
// and the notice to show.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		msg = "internal error"
	}

	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("error")
		e.Str(msg)

		var validation *checkout.ValidationError
		if errors.As(err, &validation) {
			e.FieldStart("fields")
			e.ObjStart()
			for _, k := range slices.Sorted(maps.Keys(validation.Fields)) {
				e.FieldStart(k)
				e.Str(validation.Fields[k])
			}
			e.ObjEnd()
		}
		var precondition *checkout.PreconditionError
		if errors.As(err, &precondition) {
			e.FieldStart("redirect")
			e.Str(precondition.Redirect.String())
			e.FieldStart("notice")
			e.Str(precondition.Notice)
		}
		e.ObjEnd()
	})
}
