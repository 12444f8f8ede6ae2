package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock Repo ---

type MockListRepo struct {
	Products []Product
	Prices   []Price
	Whole    []PriceWithProduct

	lastProductFilters ProductFilters
	lastPriceFilters   PriceFilters
	lastWholeFilters   WholeFilters
	lastLimit          int
	lastOffset         int
}

func (m *MockListRepo) UpsertProducts(ctx context.Context, records []ProductRecord) error {
	return nil
}

func (m *MockListRepo) InsertPrices(ctx context.Context, records []PriceRecord) (int, error) {
	return 0, nil
}

func (m *MockListRepo) ListProducts(ctx context.Context, f ProductFilters, limit, offset int) ([]Product, int64, error) {
	m.lastProductFilters = f
	m.lastLimit = limit
	m.lastOffset = offset
	return m.Products, int64(len(m.Products)), nil
}

func (m *MockListRepo) ListPrices(ctx context.Context, f PriceFilters, limit, offset int) ([]Price, int64, error) {
	m.lastPriceFilters = f
	m.lastLimit = limit
	m.lastOffset = offset
	return m.Prices, int64(len(m.Prices)), nil
}

func (m *MockListRepo) ListWhole(ctx context.Context, f WholeFilters, limit, offset int) ([]PriceWithProduct, int64, error) {
	m.lastWholeFilters = f
	m.lastLimit = limit
	m.lastOffset = offset
	return m.Whole, int64(len(m.Whole)), nil
}

func noAuth(next http.Handler) http.Handler { return next }

func newTestRouter(repo Repository) *chi.Mux {
	router := chi.NewRouter()
	NewHandler(repo).RegisterRoutes(router, noAuth)
	return router
}

// --- Tests ---

func TestListProducts(t *testing.T) {
	brand := "X"
	repo := &MockListRepo{
		Products: []Product{
			{ProductID: 1, ProductName: "Milk 1L", Brand: &brand, Market: "a101", Tags: Tags{"Dairy"}},
		},
	}
	router := newTestRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/products?market=a101&brand=X&limit=5&offset=10", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Total    int64     `json:"total"`
		Products []Product `json:"products"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.Total)
	require.Len(t, resp.Products, 1)
	assert.Equal(t, "Milk 1L", resp.Products[0].ProductName)

	assert.Equal(t, "a101", repo.lastProductFilters.Market)
	assert.Equal(t, "X", repo.lastProductFilters.Brand)
	assert.Equal(t, 5, repo.lastLimit)
	assert.Equal(t, 10, repo.lastOffset)
}

func TestListProductsEmptyResult(t *testing.T) {
	router := newTestRouter(&MockListRepo{})

	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total":0,"products":[]}`, rec.Body.String())
}

func TestListProductsPaginationBounds(t *testing.T) {
	testCases := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
	}{
		{name: "defaults", query: "", wantLimit: 10, wantOffset: 0},
		{name: "limit capped at 100", query: "?limit=500", wantLimit: 100},
		{name: "limit floored at 1", query: "?limit=0", wantLimit: 1},
		{name: "negative offset ignored", query: "?offset=-5", wantLimit: 10, wantOffset: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &MockListRepo{}
			router := newTestRouter(repo)

			req := httptest.NewRequest(http.MethodGet, "/products"+tc.query, nil)
			router.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tc.wantLimit, repo.lastLimit)
			assert.Equal(t, tc.wantOffset, repo.lastOffset)
		})
	}
}

func TestListPrices(t *testing.T) {
	special := decimal.NewFromFloat(12.5)
	campaign := "Weekly"
	repo := &MockListRepo{
		Prices: []Price{
			{
				PriceID:      7,
				Market:       "a101",
				ProductName:  "Milk 1L",
				ProductID:    1,
				RegularPrice: decimal.NewFromFloat(15.0),
				SpecialPrice: &special,
				Campaign:     &campaign,
				PriceDate:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
			},
			{
				PriceID:      8,
				Market:       "a101",
				ProductName:  "Bread",
				ProductID:    2,
				RegularPrice: decimal.NewFromFloat(9.0),
				PriceDate:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
			},
		},
	}
	router := newTestRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/prices?product_id=1&campaign=Weekly", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Total  int64 `json:"total"`
		Prices []struct {
			RegularPrice float64  `json:"regular_price"`
			SpecialPrice *float64 `json:"special_price"`
			Campaign     *string  `json:"campaign"`
		} `json:"prices"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Prices, 2)

	assert.Equal(t, 15.0, resp.Prices[0].RegularPrice)
	require.NotNil(t, resp.Prices[0].SpecialPrice)
	assert.Equal(t, 12.5, *resp.Prices[0].SpecialPrice)
	assert.Nil(t, resp.Prices[1].SpecialPrice)

	assert.Equal(t, int64(1), repo.lastPriceFilters.ProductID)
	assert.Equal(t, "Weekly", repo.lastPriceFilters.Campaign)
}

func TestListWhole(t *testing.T) {
	brand := "Torku"
	image := "http://i/3.jpg"
	special := decimal.NewFromFloat(12.5)
	campaign := "Discount"
	repo := &MockListRepo{
		Whole: []PriceWithProduct{
			{
				Price: Price{
					PriceID:      7,
					Market:       "a101",
					ProductName:  "Milk 1L",
					ProductID:    1,
					RegularPrice: decimal.NewFromFloat(15.0),
					SpecialPrice: &special,
					Campaign:     &campaign,
					PriceDate:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
				},
				Brand:        &brand,
				ProductImage: &image,
				Tags:         Tags{"Dairy"},
			},
		},
	}
	router := newTestRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/whole?market=a101&brand=Torku&price_id=7&regular_price=15.00", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Total  int64 `json:"total"`
		Prices []struct {
			ProductName  string   `json:"product_name"`
			RegularPrice float64  `json:"regular_price"`
			SpecialPrice *float64 `json:"special_price"`
			Brand        *string  `json:"brand"`
			ProductImage *string  `json:"product_image"`
			Tags         []string `json:"tags"`
		} `json:"prices"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.Total)
	require.Len(t, resp.Prices, 1)

	// Product columns ride along with the price row.
	assert.Equal(t, "Milk 1L", resp.Prices[0].ProductName)
	assert.Equal(t, 15.0, resp.Prices[0].RegularPrice)
	require.NotNil(t, resp.Prices[0].Brand)
	assert.Equal(t, "Torku", *resp.Prices[0].Brand)
	require.NotNil(t, resp.Prices[0].ProductImage)
	assert.Equal(t, []string{"Dairy"}, resp.Prices[0].Tags)

	assert.Equal(t, "a101", repo.lastWholeFilters.Market)
	assert.Equal(t, "Torku", repo.lastWholeFilters.Brand)
	assert.Equal(t, int64(7), repo.lastWholeFilters.PriceID)
	require.NotNil(t, repo.lastWholeFilters.RegularPrice)
	assert.True(t, repo.lastWholeFilters.RegularPrice.Equal(decimal.NewFromFloat(15.0)))
}
