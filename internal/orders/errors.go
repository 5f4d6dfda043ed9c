package orders

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart    = errors.New("cart is empty")
	ErrNotFound     = errors.New("order not found")
	ErrInvalidState = errors.New("only pending orders can be cancelled")

	// ErrConflict means a reservation failed at commit time even though the
	// upfront check passed: a concurrent writer got there first. The whole
	// transaction is rolled back and the caller may retry.
	ErrConflict = errors.New("stock changed while creating order")
)

// StockShortage is one line of an InsufficientStockError.
type StockShortage struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Requested   int    `json:"requested"`
	Available   int    `json:"available"`
}

// InsufficientStockError lists every cart line that failed the availability
// check. Order creation is all-or-nothing: one short line fails the lot.
type InsufficientStockError struct {
	Items []StockShortage
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %d product(s)", len(e.Items))
}
