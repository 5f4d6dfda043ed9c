package orders

import (
	"context"
	"testing"
	"time"

	"github.com/ardiansyah/go-shop-api/internal/inventory"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userID = "u-1"

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func newRepo(mock pgxmock.PgxPoolIface) *Repo {
	return &Repo{DB: mock, Ledger: &inventory.Ledger{DB: mock}}
}

func snapshotRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"product_id", "name", "quantity", "price", "stock"})
}

func TestCreateFromCartEmptyCart(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT c.product_id, p.name`).
		WithArgs(userID).
		WillReturnRows(snapshotRows())
	mock.ExpectRollback()

	_, err := newRepo(mock).CreateFromCart(context.Background(), userID, "", "COD")
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// One short line fails the whole operation before anything is written, and
// every short line is reported, not just the first.
func TestCreateFromCartCollectsAllShortages(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT c.product_id, p.name`).
		WithArgs(userID).
		WillReturnRows(snapshotRows().
			AddRow("p-a", "Apple", 2, decimal.RequireFromString("10.00"), 1).
			AddRow("p-b", "Banana", 1, decimal.RequireFromString("5.00"), 3).
			AddRow("p-c", "Cherry", 4, decimal.RequireFromString("2.00"), 0))
	mock.ExpectRollback()

	_, err := newRepo(mock).CreateFromCart(context.Background(), userID, "", "COD")

	var short *InsufficientStockError
	require.ErrorAs(t, err, &short)
	require.Len(t, short.Items, 2)
	assert.Equal(t, StockShortage{ProductID: "p-a", ProductName: "Apple", Requested: 2, Available: 1}, short.Items[0])
	assert.Equal(t, StockShortage{ProductID: "p-c", ProductName: "Cherry", Requested: 4, Available: 0}, short.Items[1])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateFromCartHappyPath(t *testing.T) {
	now := time.Now()
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT c.product_id, p.name`).
		WithArgs(userID).
		WillReturnRows(snapshotRows().
			AddRow("p-a", "Apple", 2, decimal.RequireFromString("10.00"), 5).
			AddRow("p-b", "Banana", 1, decimal.RequireFromString("5.00"), 3))
	mock.ExpectQuery(`INSERT INTO orders`).
		WithArgs(pgxmock.AnyArg(), userID, pgxmock.AnyArg(), StatusPending, pgxmock.AnyArg(), "Jl. Sudirman 1", "COD").
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	mock.ExpectQuery(`SELECT stock FROM products`).
		WithArgs("p-a").
		WillReturnRows(pgxmock.NewRows([]string{"stock"}).AddRow(5))
	mock.ExpectExec(`UPDATE products SET stock = stock -`).
		WithArgs("p-a", 2).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`INSERT INTO order_items`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "p-a", "Apple", 2, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	mock.ExpectQuery(`SELECT stock FROM products`).
		WithArgs("p-b").
		WillReturnRows(pgxmock.NewRows([]string{"stock"}).AddRow(3))
	mock.ExpectExec(`UPDATE products SET stock = stock -`).
		WithArgs("p-b", 1).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`INSERT INTO order_items`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "p-b", "Banana", 1, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	mock.ExpectExec(`DELETE FROM cart_lines`).
		WithArgs(userID).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectCommit()

	o, err := newRepo(mock).CreateFromCart(context.Background(), userID, "Jl. Sudirman 1", "COD")
	require.NoError(t, err)

	assert.Equal(t, StatusPending, o.Status)
	assert.True(t, o.TotalAmount.Equal(decimal.RequireFromString("25.00")), "total = %s", o.TotalAmount)
	assert.Regexp(t, `^ORD-`, o.OrderNumber)
	require.Len(t, o.Items, 2)
	assert.True(t, o.Items[0].Subtotal.Equal(decimal.RequireFromString("20.00")))
	assert.True(t, o.Items[1].Subtotal.Equal(decimal.RequireFromString("5.00")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// The upfront check passed but the locked re-check found less stock: a
// concurrent writer interleaved. The whole transaction rolls back and the
// caller gets a retryable conflict.
func TestCreateFromCartReservationConflict(t *testing.T) {
	now := time.Now()
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT c.product_id, p.name`).
		WithArgs(userID).
		WillReturnRows(snapshotRows().
			AddRow("p-a", "Apple", 2, decimal.RequireFromString("10.00"), 5))
	mock.ExpectQuery(`INSERT INTO orders`).
		WithArgs(pgxmock.AnyArg(), userID, pgxmock.AnyArg(), StatusPending, pgxmock.AnyArg(), "", "COD").
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectQuery(`SELECT stock FROM products`).
		WithArgs("p-a").
		WillReturnRows(pgxmock.NewRows([]string{"stock"}).AddRow(1))
	mock.ExpectRollback()

	_, err := newRepo(mock).CreateFromCart(context.Background(), userID, "", "COD")
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func cancelSelectRows(status Status, now time.Time) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "user_id", "order_number", "status", "total_amount",
		"shipping_address", "payment_method", "created_at", "updated_at"}).
		AddRow("o-1", userID, "ORD-AAAA0000BBBB", status, decimal.RequireFromString("25.00"),
			"", "COD", now, now)
}

func itemRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "order_id", "product_id", "product_name", "quantity", "price"}).
		AddRow("i-1", "o-1", "p-a", "Apple", 2, decimal.RequireFromString("10.00")).
		AddRow("i-2", "o-1", "p-b", "Banana", 1, decimal.RequireFromString("5.00"))
}

func TestCancelNotFound(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, user_id, order_number`).
		WithArgs("o-x", userID).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := newRepo(mock).Cancel(context.Background(), userID, "o-x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancelNonPending(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, user_id, order_number`).
		WithArgs("o-1", userID).
		WillReturnRows(cancelSelectRows(StatusCancelled, time.Now()))
	mock.ExpectRollback()

	_, err := newRepo(mock).Cancel(context.Background(), userID, "o-1")
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelRestocksAndFlipsStatus(t *testing.T) {
	now := time.Now()
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, user_id, order_number`).
		WithArgs("o-1", userID).
		WillReturnRows(cancelSelectRows(StatusPending, now))
	mock.ExpectQuery(`SELECT id, order_id, product_id`).
		WithArgs("o-1").
		WillReturnRows(itemRows())
	mock.ExpectExec(`UPDATE products SET stock = stock \+`).
		WithArgs("p-a", 2).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE products SET stock = stock \+`).
		WithArgs("p-b", 1).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(`UPDATE orders SET status=`).
		WithArgs("o-1", StatusCancelled).
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(now.Add(time.Second)))
	mock.ExpectCommit()

	o, err := newRepo(mock).Cancel(context.Background(), userID, "o-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, o.Status)
	require.Len(t, o.Items, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListNewestFirstWithItems(t *testing.T) {
	now := time.Now()
	mock := newMock(t)
	mock.ExpectQuery(`SELECT id, user_id, order_number`).
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "user_id", "order_number", "status", "total_amount",
			"shipping_address", "payment_method", "created_at", "updated_at"}).
			AddRow("o-2", userID, "ORD-222222222222", StatusPending, decimal.RequireFromString("5.00"), "", "COD", now, now).
			AddRow("o-1", userID, "ORD-111111111111", StatusCancelled, decimal.RequireFromString("25.00"), "", "COD", now.Add(-time.Hour), now))
	mock.ExpectQuery(`SELECT id, order_id, product_id`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "order_id", "product_id", "product_name", "quantity", "price"}).
			AddRow("i-1", "o-1", "p-a", "Apple", 2, decimal.RequireFromString("10.00")).
			AddRow("i-3", "o-2", "p-b", "Banana", 1, decimal.RequireFromString("5.00")))

	out, err := newRepo(mock).List(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "o-2", out[0].ID)
	require.Len(t, out[0].Items, 1)
	assert.Equal(t, "p-b", out[0].Items[0].ProductID)
	require.Len(t, out[1].Items, 1)
	assert.True(t, out[1].Items[0].Subtotal.Equal(decimal.RequireFromString("20.00")))
}

func TestGetNotOwned(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT id, user_id, order_number`).
		WithArgs("o-1", "someone-else").
		WillReturnError(pgx.ErrNoRows)

	_, err := newRepo(mock).Get(context.Background(), "someone-else", "o-1")
	assert.ErrorIs(t, err, ErrNotFound)
}
