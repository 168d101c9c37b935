package checkout

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/cartcraft/internal/codec"
)

// Encode writes the address as a JSON object.
func (s ShippingInfo) Encode(e *jx.Encoder) {
	e.ObjStart()
	for _, f := range s.fields() {
		e.FieldStart(f.key)
		e.Str(*f.val)
	}
	e.ObjEnd()
}

// Decode reads an address written by Encode.
func (s *ShippingInfo) Decode(d *jx.Decoder) error {
	byKey := make(map[string]*string, 9)
	for _, f := range s.fields() {
		byKey[f.key] = f.val
	}
	return d.Obj(func(d *jx.Decoder, key string) error {
		dst, ok := byKey[key]
		if !ok {
			return d.Skip()
		}
		v, err := codec.OptStr(d)
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		*dst = v
		return nil
	})
}

type strField struct {
	key string
	val *string
}

func (s *ShippingInfo) fields() []strField {
	return []strField{
		{"firstName", &s.FirstName},
		{"lastName", &s.LastName},
		{"email", &s.Email},
		{"phone", &s.Phone},
		{"address", &s.Address},
		{"city", &s.City},
		{"state", &s.State},
		{"zipCode", &s.ZipCode},
		{"country", &s.Country},
	}
}

// Encode writes the payment details as a JSON object.
func (p PaymentInfo) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("cardNumber")
	e.Str(p.CardNumber)
	e.FieldStart("expiryDate")
	e.Str(p.ExpiryDate)
	e.FieldStart("cardName")
	e.Str(p.CardName)
	e.FieldStart("sameAsShipping")
	e.Bool(p.SameAsShipping)
	e.FieldStart("billingAddress")
	e.Str(p.BillingAddress)
	e.FieldStart("billingCity")
	e.Str(p.BillingCity)
	e.FieldStart("billingState")
	e.Str(p.BillingState)
	e.FieldStart("billingZip")
	e.Str(p.BillingZip)
	e.ObjEnd()
}

// Decode reads payment details written by Encode. A "cvv" field, if present,
// is skipped.
func (p *PaymentInfo) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "cardNumber":
			p.CardNumber, err = codec.OptStr(d)
		case "expiryDate":
			p.ExpiryDate, err = codec.OptStr(d)
		case "cardName":
			p.CardName, err = codec.OptStr(d)
		case "sameAsShipping":
			p.SameAsShipping, err = d.Bool()
		case "billingAddress":
			p.BillingAddress, err = codec.OptStr(d)
		case "billingCity":
			p.BillingCity, err = codec.OptStr(d)
		case "billingState":
			p.BillingState, err = codec.OptStr(d)
		case "billingZip":
			p.BillingZip, err = codec.OptStr(d)
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	})
}

// Decode reads a submitted payment form, CVV included.
func (f *PaymentForm) Decode(d *jx.Decoder) error {
	raw, err := d.Raw()
	if err != nil {
		return err
	}
	if err := f.PaymentInfo.Decode(jx.DecodeBytes(raw)); err != nil {
		return err
	}
	return jx.DecodeBytes(raw).Obj(func(d *jx.Decoder, key string) error {
		if key != "cvv" {
			return d.Skip()
		}
		v, err := codec.OptStr(d)
		if err != nil {
			return errors.Wrap(err, `field "cvv"`)
		}
		f.CVV = v
		return nil
	})
}
