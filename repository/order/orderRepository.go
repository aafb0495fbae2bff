package orderrepo

import (
	"context"
	"database/sql"

	"github.com/ivlisss/bookstore/model"
)

type Repo interface {
	InsertOrder(ctx context.Context, tx *sql.Tx, o *model.Order) error
	InsertItem(ctx context.Context, tx *sql.Tx, it *model.OrderItem) error

	GetOwnerAndStatusForUpdate(ctx context.Context, tx *sql.Tx, orderID int64) (ownerID int64, status model.OrderStatus, err error)
	ListItemsTx(ctx context.Context, tx *sql.Tx, orderID int64) ([]model.OrderItem, error)
	UpdateStatusTx(ctx context.Context, tx *sql.Tx, orderID int64, status model.OrderStatus) error

	ListByUser(ctx context.Context, userID int64) ([]model.Order, error)
	GetByIDForUser(ctx context.Context, orderID, userID int64) (*model.Order, error)
	GetByID(ctx context.Context, orderID int64) (*model.Order, error)

	// Admin back office.
	ListAll(ctx context.Context, status model.OrderStatus) ([]model.Order, error)
	CountByStatus(ctx context.Context) (map[model.OrderStatus]int64, error)
	DeliveredRevenue(ctx context.Context) (string, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

func (r *repo) InsertOrder(ctx context.Context, tx *sql.Tx, o *model.Order) error {
	const q = `
INSERT INTO orders (user_id, status, shipping_address, delivery_method, delivery_cost, total_amount)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING id, created_at, updated_at`
	return tx.QueryRowContext(ctx, q,
		o.UserID, o.Status, o.ShippingAddress, o.DeliveryMethod, o.DeliveryCost, o.TotalAmount,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
}

func (r *repo) InsertItem(ctx context.Context, tx *sql.Tx, it *model.OrderItem) error {
	const q = `
INSERT INTO order_items (order_id, book_id, quantity, price)
VALUES ($1,$2,$3,$4)
RETURNING id`
	return tx.QueryRowContext(ctx, q, it.OrderID, it.BookID, it.Quantity, it.Price).Scan(&it.ID)
}

func (r *repo) GetOwnerAndStatusForUpdate(ctx context.Context, tx *sql.Tx, orderID int64) (int64, model.OrderStatus, error) {
	const q = `
SELECT user_id, status
FROM orders
WHERE id = $1
FOR UPDATE`
	var uid int64
	var status model.OrderStatus
	err := tx.QueryRowContext(ctx, q, orderID).Scan(&uid, &status)
	return uid, status, err
}

func (r *repo) ListItemsTx(ctx context.Context, tx *sql.Tx, orderID int64) ([]model.OrderItem, error) {
	const q = `
SELECT id, order_id, book_id, quantity, price
FROM order_items
WHERE order_id = $1
ORDER BY id`
	rows, err := tx.QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.OrderItem
	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.BookID, &it.Quantity, &it.Price); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *repo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, orderID int64, status model.OrderStatus) error {
	const q = `
UPDATE orders
SET status = $2,
    updated_at = NOW()
WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, orderID, status)
	return err
}

const orderCols = `id, user_id, status, shipping_address, delivery_method, delivery_cost, total_amount, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (*model.Order, error) {
	var o model.Order
	err := row.Scan(&o.ID, &o.UserID, &o.Status, &o.ShippingAddress,
		&o.DeliveryMethod, &o.DeliveryCost, &o.TotalAmount, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *repo) ListByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	q := `SELECT ` + orderCols + ` FROM orders WHERE user_id=$1 ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

// GetByIDForUser filters by owner inside the query: an order that exists
// but belongs to someone else is indistinguishable from one that does
// not exist.
func (r *repo) GetByIDForUser(ctx context.Context, orderID, userID int64) (*model.Order, error) {
	q := `SELECT ` + orderCols + ` FROM orders WHERE id=$1 AND user_id=$2`
	o, err := scanOrder(r.db.QueryRowContext(ctx, q, orderID, userID))
	if err != nil {
		return nil, err
	}

	const qi = `
SELECT oi.id, oi.order_id, oi.book_id, b.title, oi.quantity, oi.price
FROM order_items oi
JOIN books b ON b.id = oi.book_id
WHERE oi.order_id = $1
ORDER BY oi.id`
	rows, err := r.db.QueryContext(ctx, qi, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.BookID, &it.BookTitle, &it.Quantity, &it.Price); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, it)
	}
	return o, rows.Err()
}

// GetByID is the unscoped admin read.
func (r *repo) GetByID(ctx context.Context, orderID int64) (*model.Order, error) {
	q := `SELECT ` + orderCols + ` FROM orders WHERE id=$1`
	return scanOrder(r.db.QueryRowContext(ctx, q, orderID))
}

func (r *repo) ListAll(ctx context.Context, status model.OrderStatus) ([]model.Order, error) {
	q := `SELECT ` + orderCols + ` FROM orders`
	var args []any
	if status != "" {
		q += ` WHERE status=$1`
		args = append(args, status)
	}
	q += ` ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

func (r *repo) CountByStatus(ctx context.Context) (map[model.OrderStatus]int64, error) {
	const q = `SELECT status, COUNT(*) FROM orders GROUP BY status`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[model.OrderStatus]int64)
	for rows.Next() {
		var s model.OrderStatus
		var n int64
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		out[s] = n
	}
	return out, rows.Err()
}

func (r *repo) DeliveredRevenue(ctx context.Context) (string, error) {
	const q = `
SELECT COALESCE(SUM(total_amount), 0)::TEXT
FROM orders
WHERE status = 'delivered'`
	var total string
	err := r.db.QueryRowContext(ctx, q).Scan(&total)
	return total, err
}

func collectOrders(rows *sql.Rows) ([]model.Order, error) {
	defer rows.Close()
	var out []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}
