package pricing

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/cartcraft/internal/codec"
)

// Encode writes the totals at full precision.
func (t Totals) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("subtotal")
	codec.EncodeDecimal(e, t.Subtotal)
	e.FieldStart("shipping")
	codec.EncodeDecimal(e, t.Shipping)
	e.FieldStart("tax")
	codec.EncodeDecimal(e, t.Tax)
	e.FieldStart("total")
	codec.EncodeDecimal(e, t.Total)
	e.ObjEnd()
}

// Decode reads totals written by Encode.
func (t *Totals) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "subtotal":
			t.Subtotal, err = codec.DecodeDecimal(d)
		case "shipping":
			t.Shipping, err = codec.DecodeDecimal(d)
		case "tax":
			t.Tax, err = codec.DecodeDecimal(d)
		case "total":
			t.Total, err = codec.DecodeDecimal(d)
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	})
}

// Encode writes the rounded totals as strings.
func (d Display) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("subtotal")
	e.Str(d.Subtotal)
	e.FieldStart("shipping")
	e.Str(d.Shipping)
	e.FieldStart("tax")
	e.Str(d.Tax)
	e.FieldStart("total")
	e.Str(d.Total)
	e.ObjEnd()
}
