package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AAlperA/PriceTrack/internal/modules/catalog"
)

// Migros walks the migros category API. Categories come from a listing
// endpoint; each category is paginated with ?sayfa=N until the API reports
// zero pages or zero hits.
type Migros struct {
	categoriesURL string
	apiURL        string
	client        *http.Client
}

func NewMigros(categoriesURL, apiURL string) *Migros {
	return &Migros{
		categoriesURL: categoriesURL,
		apiURL:        apiURL,
		client:        &http.Client{Timeout: 30 * time.Second},
	}
}

func (m *Migros) Name() string { return "migros" }

type migrosCategories struct {
	Data []struct {
		Data struct {
			PrettyName string `json:"prettyName"`
		} `json:"data"`
	} `json:"data"`
}

type migrosPage struct {
	Data struct {
		SearchInfo struct {
			PageCount         int `json:"pageCount"`
			HitCount          int `json:"hitCount"`
			StoreProductInfos []struct {
				Name  string `json:"name"`
				Brand struct {
					Name string `json:"name"`
				} `json:"brand"`
				ShownPrice      int64 `json:"shownPrice"`
				LoyaltyPrice    int64 `json:"loyaltyPrice"`
				CrmDiscountTags []struct {
					Tag string `json:"tag"`
				} `json:"crmDiscountTags"`
				Images []struct {
					Urls struct {
						ProductHD string `json:"PRODUCT_HD"`
					} `json:"urls"`
				} `json:"images"`
				CategoriesForSorting []struct {
					Name string `json:"name"`
				} `json:"categoriesForSorting"`
			} `json:"storeProductInfos"`
		} `json:"searchInfo"`
	} `json:"data"`
}

func (m *Migros) Scrape(ctx context.Context, emit EmitFunc) error {
	const market = "migros"

	links, err := m.categoryLinks(ctx)
	if err != nil {
		return err
	}

	for _, link := range links {
		for pageNum := 1; ; pageNum++ {
			pageURL := fmt.Sprintf("%s?sayfa=%d", link, pageNum)

			page, status, err := m.fetchPage(ctx, pageURL)
			if err != nil {
				return err
			}
			if status != http.StatusOK {
				log.Printf("(✗) Status code %d for %s", status, pageURL)
				break
			}
			info := page.Data.SearchInfo
			if info.PageCount == 0 || info.HitCount == 0 {
				log.Printf("No more data available on page %d", pageNum)
				break
			}
			log.Printf("fetched: %s", pageURL)

			for _, product := range info.StoreProductInfos {
				regular := decimal.New(product.ShownPrice, -2)
				special := decimal.New(product.LoyaltyPrice, -2)

				var campaign *string
				if len(product.CrmDiscountTags) > 0 {
					campaign = &product.CrmDiscountTags[0].Tag
				}
				var image *string
				if len(product.Images) > 0 {
					image = &product.Images[0].Urls.ProductHD
				}
				tags := make(catalog.Tags, 0, len(product.CategoriesForSorting))
				for _, category := range product.CategoriesForSorting {
					tags = append(tags, category.Name)
				}
				brand := product.Brand.Name

				productData := catalog.ProductRecord{
					ProductName:  product.Name,
					Brand:        &brand,
					Market:       market,
					ProductImage: image,
					Tags:         tags,
				}

				priceData := catalog.PriceRecord{
					Market:       market,
					ProductName:  product.Name,
					RegularPrice: regular,
					Campaign:     campaign,
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
	return nil
}

func (m *Migros) categoryLinks(ctx context.Context) ([]string, error) {
	var categories migrosCategories
	if err := m.getJSON(ctx, m.categoriesURL, &categories); err != nil {
		return nil, err
	}

	links := make([]string, 0, len(categories.Data))
	for _, item := range categories.Data {
		links = append(links, m.apiURL+item.Data.PrettyName)
	}
	return links, nil
}

// fetchPage returns the page and the HTTP status; a non-200 status ends the
// category rather than the whole scrape.
func (m *Migros) fetchPage(ctx context.Context, url string) (*migrosPage, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", randomUserAgent())

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, nil
	}

	var page migrosPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode %s: %w", url, err)
	}
	return &page, resp.StatusCode, nil
}

func (m *Migros) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", randomUserAgent())

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}
