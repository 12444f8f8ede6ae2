package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AAlperA/PriceTrack/internal/modules/catalog"
)

const a101Category = `{
	"children": [
		{
			"name": "Dairy",
			"products": [
				{
					"price": {"normal": 1500, "discounted": 1250},
					"campaigns": "Weekly",
					"attributes": {"brand": "X", "name": "Milk 1L"},
					"images": [{"url": "http://i/1.jpg"}]
				},
				{
					"price": {"normal": 900, "discounted": 900},
					"campaigns": null,
					"attributes": {"brand": "Y", "name": "Bread"},
					"images": []
				}
			]
		}
	]
}`

type emitted struct {
	market  string
	topic   string
	payload any
}

func collect(t *testing.T, c Collector) []emitted {
	t.Helper()
	var out []emitted
	err := c.Scrape(context.Background(), func(market, topic string, payload any) error {
		out = append(out, emitted{market, topic, payload})
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestA101Scrape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The second category ends the walk.
		if r.URL.Query().Get("id") != "C01" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(a101Category))
	}))
	defer server.Close()

	got := collect(t, NewA101(server.URL+"/categories?id=C01"))

	require.Len(t, got, 4)
	for _, e := range got {
		assert.Equal(t, "a101", e.market)
	}
	assert.Equal(t, "product", got[0].topic)
	assert.Equal(t, "price", got[1].topic)

	product, ok := got[0].payload.(catalog.ProductRecord)
	require.True(t, ok)
	assert.Equal(t, "Milk 1L", product.ProductName)
	require.NotNil(t, product.Brand)
	assert.Equal(t, "X", *product.Brand)
	assert.Equal(t, catalog.Tags{"Dairy"}, product.Tags)
	require.NotNil(t, product.ProductImage)
	assert.Equal(t, "http://i/1.jpg", *product.ProductImage)

	price, ok := got[1].payload.(catalog.PriceRecord)
	require.True(t, ok)
	assert.True(t, price.RegularPrice.Equal(decimal.NewFromFloat(15.0)))
	require.NotNil(t, price.SpecialPrice)
	assert.True(t, price.SpecialPrice.Equal(decimal.NewFromFloat(12.5)))
	require.NotNil(t, price.Campaign)
	assert.Equal(t, "Weekly", *price.Campaign)

	// No discount reported: the equal prices collapse to no special price.
	undiscounted := got[3].payload.(catalog.PriceRecord)
	assert.Nil(t, undiscounted.SpecialPrice)
	assert.Nil(t, undiscounted.Campaign)
}

func TestRawCampaign(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  *string
	}{
		{name: "null", input: `null`, want: nil},
		{name: "empty array", input: `[]`, want: nil},
		{name: "empty string", input: `""`, want: nil},
		{name: "plain string", input: `"2 for 1"`, want: ptr("2 for 1")},
		{name: "structured label kept as raw text", input: `[{"tag":"W"}]`, want: ptr(`[{"tag":"W"}]`)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := rawCampaign([]byte(tc.input))
			if tc.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tc.want, *got)
		})
	}
}

func ptr(s string) *string { return &s }
