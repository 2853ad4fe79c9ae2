package schema

import (
	"time"

	"github.com/hamba/avro/v2"
)

const ProductSchemaTextV1 = `{
	"type": "record",
	"namespace": "storefront",
	"name": "product",
	"fields": [
		{"name": "id", "type": "string"},
		{"name": "name", "type": "string"},
		{"name": "brand", "type": "string"},
		{"name": "price", "type": "double"},
		{"name": "category", "type": "string"},
		{"name": "color", "type": "string", "default": ""},
		{"name": "size", "type": "string", "default": ""},
		{"name": "images", "type": {"type": "array", "items": "string"}, "default": []},
		{"name": "description", "type": "string", "default": ""},
		{"name": "special_offer", "type": "boolean", "default": false},
		{"name": "discount_percentage", "type": ["null", "int"], "default": null},
		{"name": "offer_ends_at", "type": ["null", {"type": "long", "logicalType": "timestamp-millis"}], "default": null}
	]
}`

type ProductV1 struct {
	ID                 string     `avro:"id"`
	Name               string     `avro:"name"`
	Brand              string     `avro:"brand"`
	Price              float64    `avro:"price"`
	Category           string     `avro:"category"`
	Color              string     `avro:"color"`
	Size               string     `avro:"size"`
	Images             []string   `avro:"images"`
	Description        string     `avro:"description"`
	SpecialOffer       bool       `avro:"special_offer"`
	DiscountPercentage *int       `avro:"discount_percentage"`
	OfferEndsAt        *time.Time `avro:"offer_ends_at"`
}

// ProductV1Avro parses [ProductSchemaTextV1] and panics on failure.
func ProductV1Avro() avro.Schema {
	return avro.MustParse(ProductSchemaTextV1)
}
