package cart

import (
	"errors"
	"fmt"
	"time"

	"github.com/ardiansyah/go-shop-api/internal/inventory"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrLineNotFound    = errors.New("cart line not found")
)

// InsufficientStockError is returned when adding to a line would push its
// quantity past the available stock. MaxAddable is how much more the user can
// still add on top of what the cart already holds.
type InsufficientStockError struct {
	ProductID  string `json:"product_id"`
	Requested  int    `json:"requested"`
	MaxAddable int    `json:"max_addable"`
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("cannot add %d of product %s: only %d more available",
		e.Requested, e.ProductID, e.MaxAddable)
}

// Line is one (user, product) pairing pre-checkout. At most one line exists
// per pairing; repeated adds merge into it.
type Line struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LineView is a Line joined with its product, as served by GET /cart/.
type LineView struct {
	ID         string            `json:"id"`
	Product    inventory.Product `json:"product"`
	Quantity   int               `json:"quantity"`
	TotalPrice decimal.Decimal   `json:"total_price"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Total sums the per-line totals.
func Total(lines []LineView) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.TotalPrice)
	}
	return total
}
