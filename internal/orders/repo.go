package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/ardiansyah/go-shop-api/internal/inventory"
	"github.com/ardiansyah/go-shop-api/internal/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

type Repo struct {
	DB     postgres.DB
	Ledger *inventory.Ledger
}

type cartLine struct {
	productID   string
	productName string
	quantity    int
	price       decimal.Decimal
	stock       int
}

// CreateFromCart converts the user's cart into an order. Everything from the
// stock check to the cart clear runs in one transaction: no partial order,
// partial reservation or half-cleared cart is ever visible.
//
// Stock is checked twice. The first pass reads current stock for every line
// and collects all shortages so the caller sees the full list. The second
// happens inside ReserveTx under a row lock; a shortage there means another
// transaction interleaved, and the whole operation aborts as a retryable
// conflict.
func (r *Repo) CreateFromCart(ctx context.Context, userID, shippingAddress, paymentMethod string) (Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	lines, err := snapshotCart(ctx, tx, userID)
	if err != nil {
		return Order{}, err
	}
	if len(lines) == 0 {
		return Order{}, ErrEmptyCart
	}

	var shortages []StockShortage
	for _, l := range lines {
		if l.stock < l.quantity {
			shortages = append(shortages, StockShortage{
				ProductID:   l.productID,
				ProductName: l.productName,
				Requested:   l.quantity,
				Available:   l.stock,
			})
		}
	}
	if len(shortages) > 0 {
		return Order{}, &InsufficientStockError{Items: shortages}
	}

	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.price.Mul(decimal.NewFromInt(int64(l.quantity))))
	}

	o := Order{
		ID:              uuid.NewString(),
		UserID:          userID,
		OrderNumber:     NewOrderNumber(),
		Status:          StatusPending,
		TotalAmount:     total,
		ShippingAddress: shippingAddress,
		PaymentMethod:   paymentMethod,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO orders(id, user_id, order_number, status, total_amount, shipping_address, payment_method)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		o.ID, o.UserID, o.OrderNumber, o.Status, o.TotalAmount, o.ShippingAddress, o.PaymentMethod).
		Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}

	for _, l := range lines {
		if err := r.Ledger.ReserveTx(ctx, tx, l.productID, l.quantity); err != nil {
			var short *inventory.InsufficientStockError
			if errors.As(err, &short) {
				return Order{}, fmt.Errorf("%w: product %s", ErrConflict, l.productID)
			}
			return Order{}, wrapConflict(err)
		}

		item := Item{
			ID:          uuid.NewString(),
			OrderID:     o.ID,
			ProductID:   l.productID,
			ProductName: l.productName,
			Quantity:    l.quantity,
			Price:       l.price,
			Subtotal:    l.price.Mul(decimal.NewFromInt(int64(l.quantity))),
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items(id, order_id, product_id, product_name, quantity, price)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			item.ID, item.OrderID, item.ProductID, item.ProductName, item.Quantity, item.Price)
		if err != nil {
			return Order{}, err
		}
		o.Items = append(o.Items, item)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart_lines WHERE user_id=$1`, userID); err != nil {
		return Order{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, wrapConflict(err)
	}
	return o, nil
}

// Cancel restocks every item and flips the order to cancelled, atomically.
// The order row is locked first so two concurrent cancels cannot both pass
// the status check.
func (r *Repo) Cancel(ctx context.Context, userID, orderID string) (Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var o Order
	err = tx.QueryRow(ctx, `
		SELECT id, user_id, order_number, status, total_amount, shipping_address, payment_method, created_at, updated_at
		FROM orders WHERE id=$1 AND user_id=$2 FOR UPDATE`, orderID, userID).
		Scan(&o.ID, &o.UserID, &o.OrderNumber, &o.Status, &o.TotalAmount,
			&o.ShippingAddress, &o.PaymentMethod, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	if !CanTransition(o.Status, StatusCancelled) {
		return Order{}, ErrInvalidState
	}

	items, err := scanItems(tx.Query(ctx, `
		SELECT id, order_id, product_id, product_name, quantity, price
		FROM order_items WHERE order_id=$1`, o.ID))
	if err != nil {
		return Order{}, err
	}

	for _, it := range items {
		if err := r.Ledger.ReleaseTx(ctx, tx, it.ProductID, it.Quantity); err != nil {
			return Order{}, err
		}
	}

	err = tx.QueryRow(ctx, `
		UPDATE orders SET status=$2, updated_at=now()
		WHERE id=$1
		RETURNING updated_at`, o.ID, StatusCancelled).Scan(&o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, wrapConflict(err)
	}

	o.Status = StatusCancelled
	o.Items = items
	return o, nil
}

// List returns the user's orders, newest first, with items attached.
func (r *Repo) List(ctx context.Context, userID string) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, user_id, order_number, status, total_amount, shipping_address, payment_method, created_at, updated_at
		FROM orders WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.OrderNumber, &o.Status, &o.TotalAmount,
			&o.ShippingAddress, &o.PaymentMethod, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(out))
	byID := make(map[string]*Order, len(out))
	for i := range out {
		ids = append(ids, out[i].ID)
		byID[out[i].ID] = &out[i]
	}
	items, err := scanItems(r.DB.Query(ctx, `
		SELECT id, order_id, product_id, product_name, quantity, price
		FROM order_items WHERE order_id = ANY($1::uuid[])`, ids))
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if o := byID[it.OrderID]; o != nil {
			o.Items = append(o.Items, it)
		}
	}
	return out, nil
}

// Get returns one of the user's orders with items, or ErrNotFound.
func (r *Repo) Get(ctx context.Context, userID, orderID string) (Order, error) {
	var o Order
	err := r.DB.QueryRow(ctx, `
		SELECT id, user_id, order_number, status, total_amount, shipping_address, payment_method, created_at, updated_at
		FROM orders WHERE id=$1 AND user_id=$2`, orderID, userID).
		Scan(&o.ID, &o.UserID, &o.OrderNumber, &o.Status, &o.TotalAmount,
			&o.ShippingAddress, &o.PaymentMethod, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	o.Items, err = scanItems(r.DB.Query(ctx, `
		SELECT id, order_id, product_id, product_name, quantity, price
		FROM order_items WHERE order_id=$1`, o.ID))
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

func snapshotCart(ctx context.Context, tx pgx.Tx, userID string) ([]cartLine, error) {
	rows, err := tx.Query(ctx, `
		SELECT c.product_id, p.name, c.quantity, p.price, p.stock
		FROM cart_lines c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id=$1
		ORDER BY c.created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []cartLine
	for rows.Next() {
		var l cartLine
		if err := rows.Scan(&l.productID, &l.productName, &l.quantity, &l.price, &l.stock); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func scanItems(rows pgx.Rows, err error) ([]Item, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.Price); err != nil {
			return nil, err
		}
		it.Subtotal = it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		out = append(out, it)
	}
	return out, rows.Err()
}

// wrapConflict maps postgres serialization failures to the retryable
// ErrConflict; anything else passes through.
func wrapConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01") {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}
