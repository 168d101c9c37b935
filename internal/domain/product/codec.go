package product

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/cartcraft/internal/codec"
)

// Encode writes the product as a JSON object.
func (p Product) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("title")
	e.Str(p.Title)
	e.FieldStart("price")
	codec.EncodeDecimal(e, p.Price)
	e.FieldStart("image")
	e.Str(p.Image)
	e.FieldStart("stock")
	e.Int(p.Stock)
	e.FieldStart("rating")
	e.Float64(p.Rating)
	e.FieldStart("category")
	e.Str(p.Category)
	e.FieldStart("inStock")
	e.Bool(p.InStock())
	e.ObjEnd()
}

// Decode reads a product object. "name" is accepted as an alias of "title".
func (p *Product) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Str()
		case "title", "name":
			p.Title, err = d.Str()
		case "price":
			p.Price, err = codec.DecodeDecimal(d)
		case "image":
			p.Image, err = codec.OptStr(d)
		case "stock":
			p.Stock, err = d.Int()
		case "rating":
			p.Rating, err = d.Float64()
		case "category":
			p.Category, err = codec.OptStr(d)
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	})
}
