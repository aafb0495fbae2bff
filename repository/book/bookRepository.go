package bookrepo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ivlisss/bookstore/model"
)

type Repo interface {
	Create(ctx context.Context, b *model.Book) error
	Update(ctx context.Context, b *model.Book) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
	GetByID(ctx context.Context, id int64) (*model.Book, error)
	List(ctx context.Context, f model.BookFilter) ([]model.Book, error)

	// Transactional stock operations used by checkout and cancellation.
	DecrementStock(ctx context.Context, tx *sql.Tx, id, qty int64) (bool, error)
	IncrementStock(ctx context.Context, tx *sql.Tx, id, qty int64) error
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

const bookCols = `id, title, slug, author_id, publisher_id, isbn, description, price, stock_quantity, created_at, updated_at`

func scanBook(row interface{ Scan(...any) error }) (*model.Book, error) {
	var b model.Book
	err := row.Scan(&b.ID, &b.Title, &b.Slug, &b.AuthorID, &b.PublisherID,
		&b.ISBN, &b.Description, &b.Price, &b.StockQuantity, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repo) Create(ctx context.Context, b *model.Book) error {
	const q = `
INSERT INTO books (title, slug, author_id, publisher_id, isbn, description, price, stock_quantity)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING id, created_at, updated_at`
	return r.db.QueryRowContext(ctx, q,
		b.Title, b.Slug, b.AuthorID, b.PublisherID, b.ISBN, b.Description, b.Price, b.StockQuantity,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
}

func (r *repo) Update(ctx context.Context, b *model.Book) (bool, error) {
	const q = `
UPDATE books
SET title=$2, slug=$3, author_id=$4, publisher_id=$5, isbn=$6,
    description=$7, price=$8, stock_quantity=$9, updated_at=NOW()
WHERE id=$1`
	res, err := r.db.ExecContext(ctx, q,
		b.ID, b.Title, b.Slug, b.AuthorID, b.PublisherID, b.ISBN, b.Description, b.Price, b.StockQuantity)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *repo) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM books WHERE id=$1`, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *repo) GetByID(ctx context.Context, id int64) (*model.Book, error) {
	q := `SELECT ` + bookCols + ` FROM books WHERE id=$1`
	return scanBook(r.db.QueryRowContext(ctx, q, id))
}

func (r *repo) List(ctx context.Context, f model.BookFilter) ([]model.Book, error) {
	var (
		where []string
		args  []any
		join  string
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.CategorySlug != "" {
		join = ` JOIN book_categories bc ON bc.book_id = b.id
 JOIN categories c ON c.id = bc.category_id`
		where = append(where, "c.slug = "+arg(f.CategorySlug))
	}
	if f.AuthorID > 0 {
		where = append(where, "b.author_id = "+arg(f.AuthorID))
	}
	if f.Search != "" {
		p := arg("%" + f.Search + "%")
		where = append(where, "(b.title ILIKE "+p+" OR b.description ILIKE "+p+" OR b.isbn ILIKE "+p+")")
	}
	if f.MinPrice != nil {
		where = append(where, "b.price >= "+arg(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		where = append(where, "b.price <= "+arg(*f.MaxPrice))
	}

	q := `SELECT b.id, b.title, b.slug, b.author_id, b.publisher_id, b.isbn, b.description,
       b.price, b.stock_quantity, b.created_at, b.updated_at
FROM books b` + join
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY b.title"
	if f.Limit > 0 {
		q += " LIMIT " + arg(f.Limit)
	}
	if f.Offset > 0 {
		q += " OFFSET " + arg(f.Offset)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// DecrementStock only succeeds when enough stock remains. The WHERE
// guard plus RowsAffected keeps stock_quantity from going negative
// under concurrent checkouts.
func (r *repo) DecrementStock(ctx context.Context, tx *sql.Tx, id, qty int64) (bool, error) {
	const q = `
UPDATE books
SET stock_quantity = stock_quantity - $2,
    updated_at = NOW()
WHERE id = $1
AND stock_quantity >= $2`
	res, err := tx.ExecContext(ctx, q, id, qty)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *repo) IncrementStock(ctx context.Context, tx *sql.Tx, id, qty int64) error {
	const q = `
UPDATE books
SET stock_quantity = stock_quantity + $2,
    updated_at = NOW()
WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, id, qty)
	return err
}
