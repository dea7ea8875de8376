package mockapi

import (
	"net/http"

	"storefront-state/internal/catalog"
	"storefront-state/internal/domain"
	"storefront-state/internal/middleware"

	"github.com/go-chi/chi/v5"
)

type ProductHandler struct {
	catalog catalog.Provider
}

func NewProductHandler(c catalog.Provider) *ProductHandler {
	return &ProductHandler{catalog: c}
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.List(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if category := r.URL.Query().Get("category"); category != "" {
		filtered := products[:0]
		for _, p := range products {
			if p.Category == category {
				filtered = append(filtered, p)
			}
		}
		products = filtered
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// Create adds a product. Sellers become its owner.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var p domain.ProductSnapshot
	if !decode(w, r, &p) {
		return
	}
	if identity, ok := middleware.GetIdentity(r.Context()); ok && identity.Role == domain.RoleSeller {
		p.SellerID = identity.ID
		p.SellerName = identity.DisplayName
	}

	created, err := h.catalog.Create(r.Context(), p)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	var p domain.ProductSnapshot
	if !decode(w, r, &p) {
		return
	}
	p.ID = chi.URLParam(r, "id")

	updated, err := h.catalog.Update(r.Context(), p)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
