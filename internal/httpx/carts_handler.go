package httpx

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yacosta738/go-shopping-cart/internal/cart"
)

type CartsHandler struct {
	Carts *cart.Service
}

type productQuantityReq struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type cartItemResp struct {
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

type cartResp struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Status    string         `json:"status"`
	Items     []cartItemResp `json:"items"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type cartProductResp struct {
	ProductID   string `json:"product_id"`
	Name        string `json:"name"`
	SKU         string `json:"sku"`
	Description string `json:"description"`
	PriceCents  int64  `json:"price_cents"`
	HasDiscount bool   `json:"has_discount"`
	Quantity    int    `json:"quantity"`
}

type totalResp struct {
	TotalCents int64 `json:"total_cents"`
}

func (h *CartsHandler) Register(r chi.Router) {
	r.Post("/carts", h.create)
	r.Get("/carts", h.list)
	r.Get("/carts/{id}", h.get)
	r.Delete("/carts/{id}", h.delete)
	r.Post("/carts/{id}/add-product", h.addProduct)
	r.Delete("/carts/{id}/remove-product", h.removeProduct)
	r.Put("/carts/{id}/update-product", h.updateProduct)
	r.Get("/carts/{id}/products", h.listProducts)
	r.Get("/carts/{id}/total-price", h.totalPrice)
	r.Post("/carts/{id}/checkout", h.checkout)
}

func (h *CartsHandler) create(w http.ResponseWriter, r *http.Request) {
	c, err := h.Carts.Create(r.Context(), UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCartResp(c))
}

func (h *CartsHandler) list(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	cs, err := h.Carts.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]cartResp, 0, len(cs))
	for _, c := range cs {
		out = append(out, toCartResp(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *CartsHandler) get(w http.ResponseWriter, r *http.Request) {
	c, err := h.Carts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResp(c))
}

func (h *CartsHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Carts.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartsHandler) addProduct(w http.ResponseWriter, r *http.Request) {
	var req productQuantityReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.ProductID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing product_id"})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	c, err := h.Carts.AddProduct(r.Context(), chi.URLParam(r, "id"), req.ProductID, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCartResp(c))
}

// removeProduct drops quantity units from the line; with no quantity in the
// body the whole line goes.
func (h *CartsHandler) removeProduct(w http.ResponseWriter, r *http.Request) {
	var req productQuantityReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.ProductID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing product_id"})
		return
	}

	var (
		c   cart.Cart
		err error
	)
	if req.Quantity == 0 {
		c, err = h.Carts.RemoveLine(r.Context(), chi.URLParam(r, "id"), req.ProductID)
	} else {
		c, err = h.Carts.RemoveProduct(r.Context(), chi.URLParam(r, "id"), req.ProductID, req.Quantity)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResp(c))
}

func (h *CartsHandler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var req productQuantityReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.ProductID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing product_id"})
		return
	}
	c, err := h.Carts.UpdateQuantity(r.Context(), chi.URLParam(r, "id"), req.ProductID, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResp(c))
}

func (h *CartsHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	lines, err := h.Carts.ListProducts(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]cartProductResp, 0, len(lines))
	for _, l := range lines {
		out = append(out, cartProductResp{
			ProductID:   l.Product.ID,
			Name:        l.Product.Name,
			SKU:         l.Product.SKU,
			Description: l.Product.Description,
			PriceCents:  l.Product.PriceCents,
			HasDiscount: l.Product.HasDiscount,
			Quantity:    l.Quantity,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *CartsHandler) totalPrice(w http.ResponseWriter, r *http.Request) {
	total, err := h.Carts.TotalPrice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totalResp{TotalCents: total})
}

func (h *CartsHandler) checkout(w http.ResponseWriter, r *http.Request) {
	total, err := h.Carts.Checkout(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totalResp{TotalCents: total})
}

func toCartResp(c cart.Cart) cartResp {
	items := make([]cartItemResp, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, cartItemResp{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			AddedAt:   it.AddedAt,
		})
	}
	return cartResp{
		ID:        c.ID,
		UserID:    c.UserID,
		Status:    string(c.Status),
		Items:     items,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
