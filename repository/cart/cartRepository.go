package cartrepo

import (
	"context"
	"database/sql"

	"github.com/ivlisss/bookstore/model"
)

type Repo interface {
	// GetOrCreate returns the user's cart, creating it on first access.
	GetOrCreate(ctx context.Context, userID int64) (*model.Cart, error)

	// UpsertItem inserts a line or atomically increments the existing
	// (cart, book) line by qty. Returns the resulting quantity.
	UpsertItem(ctx context.Context, cartID, bookID, qty int64) (int64, error)
	SetItemQuantity(ctx context.Context, cartID, bookID, qty int64) (bool, error)
	DeleteItem(ctx context.Context, cartID, bookID int64) (bool, error)
	DeleteItemByID(ctx context.Context, cartID, itemID int64) (bool, error)
	Clear(ctx context.Context, cartID int64) error

	ListItems(ctx context.Context, cartID int64) ([]model.CartItem, error)

	// Checkout-scoped variants running inside the caller's transaction.
	ListItemsForUpdate(ctx context.Context, tx *sql.Tx, cartID int64) ([]model.CartItem, error)
	ClearTx(ctx context.Context, tx *sql.Tx, cartID int64) error
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

func (r *repo) GetOrCreate(ctx context.Context, userID int64) (*model.Cart, error) {
	// carts.user_id is unique; the no-op conflict arm keeps concurrent
	// first accesses from racing each other.
	const ins = `
INSERT INTO carts (user_id)
VALUES ($1)
ON CONFLICT (user_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, ins, userID); err != nil {
		return nil, err
	}

	const q = `
SELECT id, user_id, created_at, updated_at
FROM carts
WHERE user_id = $1`
	var c model.Cart
	err := r.db.QueryRowContext(ctx, q, userID).Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repo) UpsertItem(ctx context.Context, cartID, bookID, qty int64) (int64, error) {
	const q = `
INSERT INTO cart_items (cart_id, book_id, quantity)
VALUES ($1, $2, $3)
ON CONFLICT (cart_id, book_id)
DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
RETURNING quantity`
	var out int64
	if err := r.db.QueryRowContext(ctx, q, cartID, bookID, qty).Scan(&out); err != nil {
		return 0, err
	}
	return out, nil
}

func (r *repo) SetItemQuantity(ctx context.Context, cartID, bookID, qty int64) (bool, error) {
	const q = `
UPDATE cart_items
SET quantity = $3
WHERE cart_id = $1
AND book_id = $2`
	res, err := r.db.ExecContext(ctx, q, cartID, bookID, qty)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *repo) DeleteItem(ctx context.Context, cartID, bookID int64) (bool, error) {
	const q = `DELETE FROM cart_items WHERE cart_id=$1 AND book_id=$2`
	res, err := r.db.ExecContext(ctx, q, cartID, bookID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// DeleteItemByID is scoped by cart id, so a foreign item id just
// deletes nothing.
func (r *repo) DeleteItemByID(ctx context.Context, cartID, itemID int64) (bool, error) {
	const q = `DELETE FROM cart_items WHERE cart_id=$1 AND id=$2`
	res, err := r.db.ExecContext(ctx, q, cartID, itemID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *repo) Clear(ctx context.Context, cartID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id=$1`, cartID)
	return err
}

const itemCols = `
SELECT ci.id, ci.cart_id, ci.book_id, b.title, ci.quantity, ci.added_at, b.price, b.stock_quantity
FROM cart_items ci
JOIN books b ON b.id = ci.book_id
WHERE ci.cart_id = $1
ORDER BY ci.added_at, ci.id`

func (r *repo) ListItems(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	rows, err := r.db.QueryContext(ctx, itemCols, cartID)
	if err != nil {
		return nil, err
	}
	return collectItems(rows)
}

// ListItemsForUpdate re-reads the lines with the joined book rows
// locked, so stock seen here cannot change until the tx ends.
func (r *repo) ListItemsForUpdate(ctx context.Context, tx *sql.Tx, cartID int64) ([]model.CartItem, error) {
	const q = itemCols + `
FOR UPDATE OF b`
	rows, err := tx.QueryContext(ctx, q, cartID)
	if err != nil {
		return nil, err
	}
	return collectItems(rows)
}

func (r *repo) ClearTx(ctx context.Context, tx *sql.Tx, cartID int64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id=$1`, cartID)
	return err
}

func collectItems(rows *sql.Rows) ([]model.CartItem, error) {
	defer rows.Close()
	var out []model.CartItem
	for rows.Next() {
		var it model.CartItem
		if err := rows.Scan(
			&it.ID, &it.CartID, &it.BookID, &it.BookTitle,
			&it.Quantity, &it.AddedAt, &it.Price, &it.Stock,
		); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
