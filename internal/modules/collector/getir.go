package collector

import (
	"context"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/shopspring/decimal"

	"github.com/AAlperA/PriceTrack/internal/modules/catalog"
)

// Getir walks the getir storefront DOM. Unlike the API-backed collectors it
// batches the whole scrape and yields one product list and one price list.
type Getir struct {
	baseURL string
}

func NewGetir(baseURL string) *Getir {
	return &Getir{baseURL: baseURL}
}

func (g *Getir) Name() string { return "getir" }

func (g *Getir) Scrape(ctx context.Context, emit EmitFunc) error {
	const market = "getir"

	categories, err := g.categoryLinks()
	if err != nil {
		return err
	}
	log.Printf("Number of categories found: %d", len(categories))

	var products []catalog.ProductRecord
	var prices []catalog.PriceRecord

	c := colly.NewCollector(colly.UserAgent(randomUserAgent()))
	c.OnHTML(`a[href*="/buyuk/urun/"]`, func(e *colly.HTMLElement) {
		name := strings.TrimSpace(e.DOM.Find("figure").AttrOr("title", ""))
		if name == "" {
			return
		}

		var image *string
		if src, ok := e.DOM.Find(`img[data-testid="main-image"]`).Attr("src"); ok {
			image = &src
		}

		container := e.DOM.ParentsFiltered("article").First()
		regular, special, campaign := parsePriceSpans(container)

		var brand *string
		if i := strings.Index(name, " "); i > 0 {
			b := name[:i]
			brand = &b
		}

		products = append(products, catalog.ProductRecord{
			ProductName:  name,
			Brand:        brand,
			Market:       market,
			ProductImage: image,
			Tags:         categoryTags(e.Request.URL.Path),
		})

		// A card without a readable price still names the product, but it
		// must not land as a zero-lira price row.
		if regular == nil {
			return
		}
		price := catalog.PriceRecord{
			Market:       market,
			ProductName:  name,
			RegularPrice: *regular,
			SpecialPrice: special,
			Campaign:     campaign,
		}
		price.Normalize()
		prices = append(prices, price)
	})

	for _, categoryURL := range categories {
		if err := ctx.Err(); err != nil {
			return err
		}
		log.Printf("Category is processing: %s", categoryURL)
		if err := c.Visit(categoryURL); err != nil {
			log.Printf("(✗) Category processing error %s: %v", categoryURL, err)
			continue
		}
		time.Sleep(time.Duration(1000+rand.Intn(2000)) * time.Millisecond)
	}

	log.Printf("A total of %d products were found", len(products))
	log.Printf("A total of %d prices were found", len(prices))

	if err := emit(market, "product", products); err != nil {
		return err
	}
	return emit(market, "price", prices)
}

// categoryLinks scrapes the category URLs off the storefront home page.
func (g *Getir) categoryLinks() ([]string, error) {
	var links []string
	c := colly.NewCollector(colly.UserAgent(randomUserAgent()))
	c.OnHTML(`a[href*="/buyuk/kategori/"]`, func(e *colly.HTMLElement) {
		links = append(links, e.Request.AbsoluteURL(e.Attr("href")))
	})
	if err := c.Visit(g.baseURL); err != nil {
		return nil, err
	}
	return links, nil
}

// categoryTags derives a single category label from the URL path slug.
func categoryTags(path string) catalog.Tags {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) == 0 {
		return nil
	}
	slug := parts[len(parts)-1]
	words := strings.Split(slug, "-")
	if len(words) < 2 {
		return nil
	}
	label := strings.TrimSpace(strings.Join(words[:len(words)-1], " "))
	if label == "" {
		return nil
	}
	return catalog.Tags{label}
}

// parsePriceSpans reads the lira-tagged spans of a product card. Two prices
// mean the first is the regular price and the second a discount; a single
// price is the plain selling price.
func parsePriceSpans(container *goquery.Selection) (regular, special *decimal.Decimal, campaign *string) {
	if container == nil || container.Length() == 0 {
		return nil, nil, nil
	}

	var amounts []decimal.Decimal
	container.Find(`span[data-testid="text"]`).Each(func(_ int, s *goquery.Selection) {
		text := s.Text()
		if !strings.Contains(text, "₺") {
			return
		}
		if amount, err := parseLira(text); err == nil {
			amounts = append(amounts, amount)
		}
	})

	switch {
	case len(amounts) >= 2:
		regular = &amounts[0]
		special = &amounts[1]
		label := "Discount"
		campaign = &label
	case len(amounts) == 1:
		regular = &amounts[0]
	}
	return regular, special, campaign
}

// parseLira parses a Turkish lira amount like "₺1.234,56".
func parseLira(text string) (decimal.Decimal, error) {
	text = strings.ReplaceAll(text, "₺", "")
	text = strings.ReplaceAll(text, ".", "")
	text = strings.ReplaceAll(text, ",", ".")
	return decimal.NewFromString(strings.TrimSpace(text))
}
