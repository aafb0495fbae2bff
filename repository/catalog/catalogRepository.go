// Admin back office CRUD for categories, authors and publishers.
// Plain single-row queries; no cross-entity invariants live here.
package catalogrepo

import (
	"context"
	"database/sql"

	"github.com/ivlisss/bookstore/model"
)

type Repo interface {
	CreateCategory(ctx context.Context, c *model.Category) error
	ListCategories(ctx context.Context) ([]model.Category, error)
	DeleteCategory(ctx context.Context, id int64) (bool, error)

	CreateAuthor(ctx context.Context, a *model.Author) error
	ListAuthors(ctx context.Context) ([]model.Author, error)
	DeleteAuthor(ctx context.Context, id int64) (bool, error)

	CreatePublisher(ctx context.Context, p *model.Publisher) error
	ListPublishers(ctx context.Context) ([]model.Publisher, error)
	DeletePublisher(ctx context.Context, id int64) (bool, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

func (r *repo) CreateCategory(ctx context.Context, c *model.Category) error {
	const q = `
INSERT INTO categories (name, slug, description)
VALUES ($1,$2,$3)
RETURNING id`
	return r.db.QueryRowContext(ctx, q, c.Name, c.Slug, c.Description).Scan(&c.ID)
}

func (r *repo) ListCategories(ctx context.Context) ([]model.Category, error) {
	const q = `SELECT id, name, slug, description FROM categories ORDER BY name`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Description); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repo) DeleteCategory(ctx context.Context, id int64) (bool, error) {
	return r.del(ctx, `DELETE FROM categories WHERE id=$1`, id)
}

func (r *repo) CreateAuthor(ctx context.Context, a *model.Author) error {
	const q = `
INSERT INTO authors (first_name, last_name, bio, website)
VALUES ($1,$2,$3,$4)
RETURNING id`
	return r.db.QueryRowContext(ctx, q, a.FirstName, a.LastName, a.Bio, a.Website).Scan(&a.ID)
}

func (r *repo) ListAuthors(ctx context.Context) ([]model.Author, error) {
	const q = `SELECT id, first_name, last_name, bio, website FROM authors ORDER BY last_name, first_name`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Author
	for rows.Next() {
		var a model.Author
		if err := rows.Scan(&a.ID, &a.FirstName, &a.LastName, &a.Bio, &a.Website); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repo) DeleteAuthor(ctx context.Context, id int64) (bool, error) {
	return r.del(ctx, `DELETE FROM authors WHERE id=$1`, id)
}

func (r *repo) CreatePublisher(ctx context.Context, p *model.Publisher) error {
	const q = `
INSERT INTO publishers (name, address, website)
VALUES ($1,$2,$3)
RETURNING id`
	return r.db.QueryRowContext(ctx, q, p.Name, p.Address, p.Website).Scan(&p.ID)
}

func (r *repo) ListPublishers(ctx context.Context) ([]model.Publisher, error) {
	const q = `SELECT id, name, address, website FROM publishers ORDER BY name`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Publisher
	for rows.Next() {
		var p model.Publisher
		if err := rows.Scan(&p.ID, &p.Name, &p.Address, &p.Website); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repo) DeletePublisher(ctx context.Context, id int64) (bool, error) {
	return r.del(ctx, `DELETE FROM publishers WHERE id=$1`, id)
}

func (r *repo) del(ctx context.Context, q string, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
