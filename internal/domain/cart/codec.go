package cart

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/cartcraft/internal/codec"
)

// Encode writes the line as a JSON object.
func (l LineItem) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("productId")
	e.Str(l.ProductID)
	e.FieldStart("title")
	e.Str(l.Title)
	e.FieldStart("price")
	codec.EncodeDecimal(e, l.Price)
	e.FieldStart("image")
	e.Str(l.Image)
	e.FieldStart("quantity")
	e.Int(l.Quantity)
	e.FieldStart("addedAt")
	codec.EncodeTime(e, l.AddedAt)
	e.ObjEnd()
}

// Decode reads a line written by Encode. Unknown fields are skipped.
func (l *LineItem) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productId":
			l.ProductID, err = d.Str()
		case "title":
			l.Title, err = codec.OptStr(d)
		case "price":
			l.Price, err = codec.DecodeDecimal(d)
		case "image":
			l.Image, err = codec.OptStr(d)
		case "quantity":
			l.Quantity, err = d.Int()
		case "addedAt":
			l.AddedAt, err = codec.DecodeTime(d)
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	})
}

// EncodeItems writes lines as a JSON array.
func EncodeItems(e *jx.Encoder, items []LineItem) {
	e.ArrStart()
	for _, l := range items {
		l.Encode(e)
	}
	e.ArrEnd()
}

// DecodeItems reads a JSON array of lines.
func DecodeItems(d *jx.Decoder) ([]LineItem, error) {
	items := []LineItem{}
	err := d.Arr(func(d *jx.Decoder) error {
		var l LineItem
		if err := l.Decode(d); err != nil {
			return err
		}
		items = append(items, l)
		return nil
	})
	return items, err
}

// Encode writes the cart as a JSON object, aggregates included.
func (c Cart) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("items")
	EncodeItems(e, c.Items)
	e.FieldStart("totalItems")
	e.Int(c.TotalItems)
	e.FieldStart("totalPrice")
	codec.EncodeDecimal(e, c.TotalPrice)
	e.ObjEnd()
}

func encodeCart(c Cart) []byte {
	var e jx.Encoder
	c.Encode(&e)
	return e.Bytes()
}

// decodeCart reads the items of a persisted cart. The stored aggregates are
// ignored; callers recompute them.
func decodeCart(data []byte) (Cart, error) {
	var c Cart
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		if key != "items" {
			return d.Skip()
		}
		items, err := DecodeItems(d)
		if err != nil {
			return errors.Wrap(err, "items")
		}
		c.Items = items
		return nil
	})
	if err != nil {
		return Cart{}, err
	}
	for _, l := range c.Items {
		if l.ProductID == "" || l.Quantity < 1 {
			return Cart{}, errors.Errorf("invalid line %q with quantity %d", l.ProductID, l.Quantity)
		}
	}
	return c, nil
}
