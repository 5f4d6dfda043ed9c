package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/ardiansyah/go-shop-api/internal/inventory"
	"github.com/go-chi/chi/v5"
)

// ProductsHandler serves the read-only catalog listing. Catalog writes belong
// to the catalog service; stock only moves through the inventory ledger.
type ProductsHandler struct {
	Ledger *inventory.Ledger
}

func (h *ProductsHandler) Register(r chi.Router) {
	r.Get("/products/", h.list)
}

func (h *ProductsHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Ledger.ListProducts(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}
