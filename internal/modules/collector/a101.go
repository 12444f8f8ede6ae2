package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AAlperA/PriceTrack/internal/modules/catalog"
)

// A101 walks the a101 category API. Category IDs are sequential (C01, C02, …)
// and the walk stops at the first 404.
type A101 struct {
	apiURL string
	client *http.Client
}

func NewA101(apiURL string) *A101 {
	return &A101{
		apiURL: apiURL,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *A101) Name() string { return "a101" }

type a101Response struct {
	Children []struct {
		Name     string `json:"name"`
		Products []struct {
			Price struct {
				Normal     int64 `json:"normal"`
				Discounted int64 `json:"discounted"`
			} `json:"price"`
			Campaigns  json.RawMessage `json:"campaigns"`
			Attributes struct {
				Brand string `json:"brand"`
				Name  string `json:"name"`
			} `json:"attributes"`
			Images []struct {
				URL string `json:"url"`
			} `json:"images"`
		} `json:"products"`
	} `json:"children"`
}

func (a *A101) Scrape(ctx context.Context, emit EmitFunc) error {
	const market = "a101"

	for categoryNum := 1; ; categoryNum++ {
		url := strings.Replace(a.apiURL, "id=C01", fmt.Sprintf("id=C%02d", categoryNum), 1)

		page, done, err := a.fetchCategory(ctx, url)
		if err != nil {
			return err
		}
		if done {
			log.Printf("No more data available on category %02d", categoryNum)
			return nil
		}
		log.Printf("fetched: %s", url)

		for _, category := range page.Children {
			tags := catalog.Tags{category.Name}
			for _, product := range category.Products {
				regular := decimal.New(product.Price.Normal, -2)
				special := decimal.New(product.Price.Discounted, -2)

				brand := product.Attributes.Brand
				var image *string
				if len(product.Images) > 0 {
					image = &product.Images[0].URL
				}

				productData := catalog.ProductRecord{
					ProductName:  product.Attributes.Name,
					Brand:        &brand,
					Market:       market,
					ProductImage: image,
					Tags:         tags,
				}

				priceData := catalog.PriceRecord{
					Market:       market,
					ProductName:  product.Attributes.Name,
					RegularPrice: regular,
					Campaign:     rawCampaign(product.Campaigns),
				}
				if !special.Equal(regular) {
					priceData.SpecialPrice = &special
				}

				if err := emit(market, "product", productData); err != nil {
					return err
				}
				if err := emit(market, "price", priceData); err != nil {
					return err
				}
			}
		}
	}
}

func (a *A101) fetchCategory(ctx context.Context, url string) (*a101Response, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("User-Agent", randomUserAgent())

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, true, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	var page a101Response
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", url, err)
	}
	return &page, false, nil
}

// rawCampaign turns the API's campaigns field, which may be a string, a
// structured label, or empty, into a nullable campaign column value.
func rawCampaign(raw json.RawMessage) *string {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" || text == "[]" || text == `""` {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return &s
	}
	return &text
}
