package order

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/cartcraft/internal/codec"
	"github.com/xenking/cartcraft/internal/domain/cart"
)

// Encode writes the order as a JSON object.
func (o Order) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("orderNumber")
	e.Str(o.Number)
	e.FieldStart("orderDate")
	codec.EncodeTime(e, o.PlacedAt)
	e.FieldStart("estimatedDelivery")
	codec.EncodeTime(e, o.EstimatedDelivery)
	e.FieldStart("items")
	cart.EncodeItems(e, o.Items)
	e.FieldStart("shippingInfo")
	o.Shipping.Encode(e)
	e.FieldStart("paymentInfo")
	o.Payment.Encode(e)
	e.FieldStart("totals")
	o.Totals.Encode(e)
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("trackingNumber")
	e.Str(o.TrackingNumber)
	if o.ShippedAt != nil {
		e.FieldStart("shippedDate")
		codec.EncodeTime(e, *o.ShippedAt)
	}
	if o.DeliveredAt != nil {
		e.FieldStart("deliveredDate")
		codec.EncodeTime(e, *o.DeliveredAt)
	}
	e.ObjEnd()
}

// Decode reads an order written by Encode. Unknown fields are skipped.
func (o *Order) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			o.ID, err = d.Str()
		case "orderNumber":
			o.Number, err = d.Str()
		case "orderDate":
			o.PlacedAt, err = codec.DecodeTime(d)
		case "estimatedDelivery":
			o.EstimatedDelivery, err = codec.DecodeTime(d)
		case "items":
			o.Items, err = cart.DecodeItems(d)
		case "shippingInfo":
			err = o.Shipping.Decode(d)
		case "paymentInfo":
			err = o.Payment.Decode(d)
		case "totals":
			err = o.Totals.Decode(d)
		case "status":
			var s string
			s, err = d.Str()
			o.Status = Status(s)
		case "trackingNumber":
			o.TrackingNumber, err = codec.OptStr(d)
		case "shippedDate":
			o.ShippedAt, err = codec.OptTime(d)
		case "deliveredDate":
			o.DeliveredAt, err = codec.OptTime(d)
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	})
}

func encodeOrders(orders []Order) []byte {
	var e jx.Encoder
	e.ArrStart()
	for _, o := range orders {
		o.Encode(&e)
	}
	e.ArrEnd()
	return e.Bytes()
}

func decodeOrders(data []byte) ([]Order, error) {
	orders := []Order{}
	err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		var o Order
		if err := o.Decode(d); err != nil {
			return errors.Wrapf(err, "order %d", len(orders))
		}
		if o.Number == "" {
			return errors.Errorf("order %d: missing number", len(orders))
		}
		orders = append(orders, o)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}
