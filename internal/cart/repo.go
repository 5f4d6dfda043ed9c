package cart

import (
	"context"
	"errors"

	"github.com/ardiansyah/go-shop-api/internal/inventory"
	"github.com/ardiansyah/go-shop-api/internal/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type Repo struct {
	DB postgres.DB
}

// AddItem merges qty into the user's line for the product, creating the line
// if none exists. The merged quantity is checked against current stock before
// anything is written; on shortage the cart is left exactly as it was.
func (r *Repo) AddItem(ctx context.Context, userID, productID string, qty int) (Line, error) {
	if qty < 1 {
		return Line{}, ErrInvalidQuantity
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Line{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var stock int
	err = tx.QueryRow(ctx, `SELECT stock FROM products WHERE id=$1 FOR UPDATE`, productID).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return Line{}, inventory.ErrProductNotFound
	}
	if err != nil {
		return Line{}, err
	}

	var line Line
	existing := 0
	err = tx.QueryRow(ctx, `
		SELECT id, quantity FROM cart_lines
		WHERE user_id=$1 AND product_id=$2 FOR UPDATE`, userID, productID).
		Scan(&line.ID, &existing)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return Line{}, err
	}

	newQty := existing + qty
	if stock < newQty {
		max := stock - existing
		if max < 0 {
			max = 0
		}
		return Line{}, &InsufficientStockError{ProductID: productID, Requested: qty, MaxAddable: max}
	}

	if line.ID == "" {
		line.ID = uuid.NewString()
		err = tx.QueryRow(ctx, `
			INSERT INTO cart_lines(id, user_id, product_id, quantity)
			VALUES ($1, $2, $3, $4)
			RETURNING created_at, updated_at`,
			line.ID, userID, productID, newQty).
			Scan(&line.CreatedAt, &line.UpdatedAt)
	} else {
		err = tx.QueryRow(ctx, `
			UPDATE cart_lines SET quantity=$2, updated_at=now()
			WHERE id=$1
			RETURNING created_at, updated_at`,
			line.ID, newQty).
			Scan(&line.CreatedAt, &line.UpdatedAt)
	}
	if err != nil {
		return Line{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Line{}, err
	}

	line.UserID = userID
	line.ProductID = productID
	line.Quantity = newQty
	return line, nil
}

// UpdateQuantity sets a line's quantity outright. Stock is not re-checked
// here; order creation re-validates every line anyway.
func (r *Repo) UpdateQuantity(ctx context.Context, userID, lineID string, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	ct, err := r.DB.Exec(ctx, `
		UPDATE cart_lines SET quantity=$3, updated_at=now()
		WHERE id=$1 AND user_id=$2`, lineID, userID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrLineNotFound
	}
	return nil
}

// RemoveItem deletes the line if present; removing an absent line is a no-op.
func (r *Repo) RemoveItem(ctx context.Context, userID, lineID string) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM cart_lines WHERE id=$1 AND user_id=$2`, lineID, userID)
	return err
}

// Clear deletes every line the user has.
func (r *Repo) Clear(ctx context.Context, userID string) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM cart_lines WHERE user_id=$1`, userID)
	return err
}

// ListItems returns the user's lines joined with product detail, each with
// its derived total_price.
func (r *Repo) ListItems(ctx context.Context, userID string) ([]LineView, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT c.id, c.quantity, c.created_at,
		       p.id, p.name, p.description, p.price, p.stock, p.created_at, p.updated_at
		FROM cart_lines c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id=$1
		ORDER BY c.created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LineView
	for rows.Next() {
		var v LineView
		var p inventory.Product
		if err := rows.Scan(&v.ID, &v.Quantity, &v.CreatedAt,
			&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		v.Product = p
		v.TotalPrice = p.Price.Mul(decimal.NewFromInt(int64(v.Quantity)))
		out = append(out, v)
	}
	return out, rows.Err()
}
