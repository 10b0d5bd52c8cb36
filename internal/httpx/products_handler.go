package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yacosta738/go-shopping-cart/internal/catalog"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ProductCatalog is the slice of the catalog repo the handler uses.
type ProductCatalog interface {
	Create(ctx context.Context, p catalog.Product) (catalog.Product, error)
	Get(ctx context.Context, id string) (catalog.Product, error)
	Update(ctx context.Context, p catalog.Product) (catalog.Product, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]catalog.Product, error)
	ListAvailable(ctx context.Context, limit, offset int) ([]catalog.Product, error)
}

type ProductsHandler struct {
	Catalog ProductCatalog
}

type productReq struct {
	Name        string `json:"name"`
	SKU         string `json:"sku"`
	Description string `json:"description"`
	PriceCents  int64  `json:"price_cents"`
	HasDiscount bool   `json:"has_discount"`
}

type productResp struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	SKU         string    `json:"sku"`
	Description string    `json:"description"`
	PriceCents  int64     `json:"price_cents"`
	HasDiscount bool      `json:"has_discount"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (h *ProductsHandler) Register(r chi.Router) {
	r.Post("/products", h.create)
	r.Get("/products", h.list)
	r.Get("/products/{id}", h.get)
	r.Put("/products/{id}", h.update)
	r.Delete("/products/{id}", h.delete)
}

func (h *ProductsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req productReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Name == "" || req.SKU == "" || req.PriceCents < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing or invalid fields"})
		return
	}
	p, err := h.Catalog.Create(r.Context(), catalog.Product{
		Name:        req.Name,
		SKU:         req.SKU,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		HasDiscount: req.HasDiscount,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductResp(p))
}

func (h *ProductsHandler) list(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	var (
		ps  []catalog.Product
		err error
	)
	if r.URL.Query().Get("filter") == "available" {
		ps, err = h.Catalog.ListAvailable(r.Context(), limit, offset)
	} else {
		ps, err = h.Catalog.List(r.Context(), limit, offset)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]productResp, 0, len(ps))
	for _, p := range ps {
		out = append(out, toProductResp(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ProductsHandler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.Catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResp(p))
}

func (h *ProductsHandler) update(w http.ResponseWriter, r *http.Request) {
	var req productReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	p, err := h.Catalog.Update(r.Context(), catalog.Product{
		ID:          chi.URLParam(r, "id"),
		Name:        req.Name,
		SKU:         req.SKU,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		HasDiscount: req.HasDiscount,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResp(p))
}

func (h *ProductsHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toProductResp(p catalog.Product) productResp {
	return productResp{
		ID:          p.ID,
		Name:        p.Name,
		SKU:         p.SKU,
		Description: p.Description,
		PriceCents:  p.PriceCents,
		HasDiscount: p.HasDiscount,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func pagination(r *http.Request) (limit, offset int) {
	limit = defaultPageSize
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
