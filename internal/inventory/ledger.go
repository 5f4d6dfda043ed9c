package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/ardiansyah/go-shop-api/internal/postgres"
	"github.com/jackc/pgx/v5"
)

var ErrProductNotFound = errors.New("product not found")

// InsufficientStockError reports a failed availability check or reservation,
// carrying how much stock was actually there.
type InsufficientStockError struct {
	ProductID string `json:"product_id"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// Ledger owns every mutation of product stock. Stock is only ever changed
// through Reserve/Release, inside a transaction that locks the product row.
type Ledger struct {
	DB postgres.DB
}

func (l *Ledger) GetProduct(ctx context.Context, id string) (Product, error) {
	var p Product
	err := l.DB.QueryRow(ctx, `
		SELECT id, name, description, price, stock, created_at, updated_at
		FROM products WHERE id=$1`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrProductNotFound
	}
	return p, err
}

func (l *Ledger) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := l.DB.Query(ctx, `
		SELECT id, name, description, price, stock, created_at, updated_at
		FROM products ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// IsAvailable reports whether the current persisted stock covers qty.
func (l *Ledger) IsAvailable(ctx context.Context, productID string, qty int) (bool, error) {
	var stock int
	err := l.DB.QueryRow(ctx, `SELECT stock FROM products WHERE id=$1`, productID).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, ErrProductNotFound
	}
	if err != nil {
		return false, err
	}
	return stock >= qty, nil
}

// Reserve decrements stock by qty in its own transaction. Fails with
// *InsufficientStockError and leaves stock unchanged when qty exceeds it.
func (l *Ledger) Reserve(ctx context.Context, productID string, qty int) error {
	tx, err := l.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := l.ReserveTx(ctx, tx, productID, qty); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Release returns qty to stock in its own transaction. No upper bound: the
// caller is trusted to release exactly what it reserved.
func (l *Ledger) Release(ctx context.Context, productID string, qty int) error {
	tx, err := l.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := l.ReleaseTx(ctx, tx, productID, qty); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ReserveTx is Reserve folded into a caller-owned transaction. The product row
// stays locked until that transaction ends, which is what serializes
// concurrent reservations per product.
func (l *Ledger) ReserveTx(ctx context.Context, tx pgx.Tx, productID string, qty int) error {
	var stock int
	err := tx.QueryRow(ctx, `SELECT stock FROM products WHERE id=$1 FOR UPDATE`, productID).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrProductNotFound
	}
	if err != nil {
		return err
	}
	if stock < qty {
		return &InsufficientStockError{ProductID: productID, Requested: qty, Available: stock}
	}
	_, err = tx.Exec(ctx, `
		UPDATE products SET stock = stock - $2, updated_at = now()
		WHERE id=$1`, productID, qty)
	return err
}

// ReleaseTx is Release folded into a caller-owned transaction.
func (l *Ledger) ReleaseTx(ctx context.Context, tx pgx.Tx, productID string, qty int) error {
	ct, err := tx.Exec(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = now()
		WHERE id=$1`, productID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrProductNotFound
	}
	return nil
}
