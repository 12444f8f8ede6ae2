package catalog

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type productsResponse struct {
	Total    int64     `json:"total"`
	Products []Product `json:"products"`
}

type priceView struct {
	PriceID      int64    `json:"price_id"`
	Market       string   `json:"market"`
	ProductName  string   `json:"product_name"`
	ProductID    int64    `json:"product_id"`
	RegularPrice float64  `json:"regular_price"`
	SpecialPrice *float64 `json:"special_price"`
	Campaign     *string  `json:"campaign"`
	PriceDate    string   `json:"price_date"`
}

type pricesResponse struct {
	Total  int64       `json:"total"`
	Prices []priceView `json:"prices"`
}

type wholeView struct {
	priceView
	Brand        *string `json:"brand"`
	ProductImage *string `json:"product_image"`
	Tags         Tags    `json:"tags"`
}

type wholeResponse struct {
	Total  int64       `json:"total"`
	Prices []wholeView `json:"prices"`
}

// Handler exposes the read-only catalog API.
type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// RegisterRoutes mounts the listing endpoints behind the given auth middleware.
func (h *Handler) RegisterRoutes(router *chi.Mux, requireAuth func(http.Handler) http.Handler) {
	router.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/products", h.listProducts)
		r.Get("/prices", h.listPrices)
		r.Get("/whole", h.listWhole)
	})
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	filters := ProductFilters{
		Market:      r.URL.Query().Get("market"),
		Brand:       r.URL.Query().Get("brand"),
		ProductName: r.URL.Query().Get("product_name"),
	}
	if idStr := r.URL.Query().Get("product_id"); idStr != "" {
		if id, err := strconv.ParseInt(idStr, 10, 64); err == nil {
			filters.ProductID = id
		}
	}

	products, total, err := h.repo.ListProducts(r.Context(), filters, limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if products == nil {
		products = []Product{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(productsResponse{Total: total, Products: products})
}

func (h *Handler) listPrices(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	filters := PriceFilters{
		Market:   r.URL.Query().Get("market"),
		Campaign: r.URL.Query().Get("campaign"),
	}
	if idStr := r.URL.Query().Get("product_id"); idStr != "" {
		if id, err := strconv.ParseInt(idStr, 10, 64); err == nil {
			filters.ProductID = id
		}
	}

	prices, total, err := h.repo.ListPrices(r.Context(), filters, limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	views := make([]priceView, len(prices))
	for i, p := range prices {
		views[i] = toPriceView(p)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(pricesResponse{Total: total, Prices: views})
}

// listWhole serves prices joined with their product, filterable on the
// columns of both tables.
func (h *Handler) listWhole(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	q := r.URL.Query()

	filters := WholeFilters{
		Market:       q.Get("market"),
		Brand:        q.Get("brand"),
		ProductName:  q.Get("product_name"),
		ProductImage: q.Get("product_image"),
		Campaign:     q.Get("campaign"),
		PriceDate:    q.Get("price_date"),
	}
	if idStr := q.Get("product_id"); idStr != "" {
		if id, err := strconv.ParseInt(idStr, 10, 64); err == nil {
			filters.ProductID = id
		}
	}
	if idStr := q.Get("price_id"); idStr != "" {
		if id, err := strconv.ParseInt(idStr, 10, 64); err == nil {
			filters.PriceID = id
		}
	}
	if raw := q.Get("regular_price"); raw != "" {
		if d, err := decimal.NewFromString(raw); err == nil {
			filters.RegularPrice = &d
		}
	}
	if raw := q.Get("special_price"); raw != "" {
		if d, err := decimal.NewFromString(raw); err == nil {
			filters.SpecialPrice = &d
		}
	}

	rowsJoined, total, err := h.repo.ListWhole(r.Context(), filters, limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	views := make([]wholeView, len(rowsJoined))
	for i, row := range rowsJoined {
		views[i] = wholeView{
			priceView:    toPriceView(row.Price),
			Brand:        row.Brand,
			ProductImage: row.ProductImage,
			Tags:         row.Tags,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(wholeResponse{Total: total, Prices: views})
}

func toPriceView(p Price) priceView {
	view := priceView{
		PriceID:      p.PriceID,
		Market:       p.Market,
		ProductName:  p.ProductName,
		ProductID:    p.ProductID,
		RegularPrice: p.RegularPrice.InexactFloat64(),
		Campaign:     p.Campaign,
		PriceDate:    p.PriceDate.Format("2006-01-02T15:04:05Z07:00"),
	}
	if p.SpecialPrice != nil {
		v := p.SpecialPrice.InexactFloat64()
		view.SpecialPrice = &v
	}
	return view
}

func pagination(r *http.Request) (limit, offset int) {
	limit = 10
	offset = 0

	if oStr := r.URL.Query().Get("offset"); oStr != "" {
		if o, err := strconv.Atoi(oStr); err == nil && o >= 0 {
			offset = o
		}
	}
	if lStr := r.URL.Query().Get("limit"); lStr != "" {
		if l, err := strconv.Atoi(lStr); err == nil {
			if l < 1 {
				limit = 1
			} else if l > 100 {
				limit = 100
			} else {
				limit = l
			}
		}
	}
	return limit, offset
}
