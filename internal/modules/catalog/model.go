package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Product is a row in the products table. Identity is the natural key
// (product_name, market); the surrogate product_id is assigned by the store
// on first insert and never changes.
type Product struct {
	ProductID    int64   `json:"product_id"`
	ProductName  string  `json:"product_name"`
	Brand        *string `json:"brand"`
	Market       string  `json:"market"`
	ProductImage *string `json:"product_image"`
	Tags         Tags    `json:"tags"`
}

// Price is an append-only observation of a product's price. PriceDate is
// assigned by the store at insertion time, so it records when the observation
// was ingested, not when it was scraped.
type Price struct {
	PriceID      int64            `json:"price_id"`
	Market       string           `json:"market"`
	ProductName  string           `json:"product_name"`
	ProductID    int64            `json:"product_id"`
	RegularPrice decimal.Decimal  `json:"regular_price"`
	SpecialPrice *decimal.Decimal `json:"special_price"`
	Campaign     *string          `json:"campaign"`
	PriceDate    time.Time        `json:"price_date"`
}

// PriceWithProduct is a price row joined with its product's descriptive fields.
type PriceWithProduct struct {
	Price
	Brand        *string `json:"brand"`
	ProductImage *string `json:"product_image"`
	Tags         Tags    `json:"tags"`
}

// ProductRecord is the inbound shape of a product message.
type ProductRecord struct {
	ProductName  string  `json:"product_name"`
	Brand        *string `json:"brand"`
	Market       string  `json:"market"`
	ProductImage *string `json:"product_image"`
	Tags         Tags    `json:"tags"`
}

// PriceRecord is the inbound shape of a price message.
type PriceRecord struct {
	Market       string           `json:"market"`
	ProductName  string           `json:"product_name"`
	SpecialPrice *decimal.Decimal `json:"special_price"`
	RegularPrice decimal.Decimal  `json:"regular_price"`
	Campaign     *string          `json:"campaign"`
}

// Normalize applies the no-discount convention: collectors that see no
// discount report the two prices as equal, which is stored as no special
// price at all.
func (r *PriceRecord) Normalize() {
	if r.SpecialPrice != nil && r.SpecialPrice.Equal(r.RegularPrice) {
		r.SpecialPrice = nil
	}
}

// Tags is an ordered sequence of category labels. Collectors disagree on the
// wire shape, so a bare JSON string is accepted as a single-element sequence.
type Tags []string

func (t *Tags) UnmarshalJSON(b []byte) error {
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*t = list
		return nil
	}
	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		if single == "" {
			*t = nil
		} else {
			*t = Tags{single}
		}
		return nil
	}
	return fmt.Errorf("tags must be a string or an array of strings")
}

// normalizeBatch decodes a message payload that is either a single record
// object or an array of records, always yielding a slice.
func normalizeBatch[T any](body []byte) ([]T, error) {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var many []T
		if err := json.Unmarshal(body, &many); err != nil {
			return nil, err
		}
		return many, nil
	}
	var one T
	if err := json.Unmarshal(body, &one); err != nil {
		return nil, err
	}
	return []T{one}, nil
}
