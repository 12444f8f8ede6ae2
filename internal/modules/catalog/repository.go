package catalog

import (
	"context"

	"github.com/shopspring/decimal"
)

// ProductFilters narrows the product listing.
type ProductFilters struct {
	Market      string
	Brand       string
	ProductName string
	ProductID   int64
}

// PriceFilters narrows the price listing.
type PriceFilters struct {
	Market    string
	ProductID int64
	Campaign  string
}

// WholeFilters narrows the joined price-with-product listing. It accepts the
// union of both listings' filters plus exact matches on the price columns.
type WholeFilters struct {
	Market       string
	Brand        string
	ProductName  string
	ProductImage string
	ProductID    int64
	PriceID      int64
	Campaign     string
	RegularPrice *decimal.Decimal
	SpecialPrice *decimal.Decimal
	PriceDate    string
}

// Repository defines the interface for product and price storage.
//
// The two write operations are each atomic: one transaction per call,
// committed only when every row of the batch went through.
type Repository interface {
	// UpsertProducts inserts or updates the batch keyed on
	// (product_name, market). Existing rows keep their product_id; only
	// brand, product_image and tags are updated.
	UpsertProducts(ctx context.Context, records []ProductRecord) error

	// InsertPrices resolves product_id for every record in one batched
	// lookup, drops records without a matching product, and inserts the
	// rest as one batch. It returns how many rows were inserted.
	InsertPrices(ctx context.Context, records []PriceRecord) (int, error)

	ListProducts(ctx context.Context, f ProductFilters, limit, offset int) ([]Product, int64, error)
	ListPrices(ctx context.Context, f PriceFilters, limit, offset int) ([]Price, int64, error)
	ListWhole(ctx context.Context, f WholeFilters, limit, offset int) ([]PriceWithProduct, int64, error)
}
