package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ardiansyah/go-shop-api/internal/cart"
	"github.com/ardiansyah/go-shop-api/internal/inventory"
	"github.com/ardiansyah/go-shop-api/internal/orders"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to HTTP responses. Unknown errors become a
// bare 500; the request logger has the details.
func writeError(w http.ResponseWriter, err error) {
	var cartShort *cart.InsufficientStockError
	var invShort *inventory.InsufficientStockError
	var orderShort *orders.InsufficientStockError

	switch {
	case errors.As(err, &cartShort):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":       cartShort.Error(),
			"max_addable": cartShort.MaxAddable,
		})
	case errors.As(err, &orderShort):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":              "insufficient stock",
			"insufficient_items": orderShort.Items,
		})
	case errors.As(err, &invShort):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":     invShort.Error(),
			"available": invShort.Available,
		})
	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, orders.ErrEmptyCart),
		errors.Is(err, orders.ErrInvalidState):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, cart.ErrLineNotFound),
		errors.Is(err, orders.ErrNotFound),
		errors.Is(err, inventory.ErrProductNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, orders.ErrConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
