package userrepo

import (
	"context"
	"database/sql"

	"github.com/ivlisss/bookstore/model"
)

type Repo interface {
	Create(ctx context.Context, u *model.User) error
	ByEmail(ctx context.Context, email string) (*model.User, error)
	ByID(ctx context.Context, id int64) (*model.User, error)
	UpdateProfile(ctx context.Context, u *model.User) (bool, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

const userCols = `id, first_name, last_name, email, username, password_hash, role, phone, address, city, postal_code, country, created_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Username,
		&u.PasswordHash, &u.Role, &u.Phone, &u.Address, &u.City, &u.PostalCode, &u.Country, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *repo) Create(ctx context.Context, u *model.User) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO users(first_name, last_name, email, username, password_hash, role)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id, created_at`,
		u.FirstName, u.LastName, u.Email, u.Username, u.PasswordHash, u.Role,
	).Scan(&u.ID, &u.CreatedAt)
}

func (r *repo) ByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `
        SELECT `+userCols+`
        FROM users
        WHERE lower(email) = lower($1)`,
		email,
	))
}

func (r *repo) ByID(ctx context.Context, id int64) (*model.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `
        SELECT `+userCols+`
        FROM users
        WHERE id = $1`,
		id,
	))
}

func (r *repo) UpdateProfile(ctx context.Context, u *model.User) (bool, error) {
	const q = `
UPDATE users
SET first_name=$2, last_name=$3, phone=$4, address=$5, city=$6, postal_code=$7, country=$8
WHERE id=$1`
	res, err := r.db.ExecContext(ctx, q,
		u.ID, u.FirstName, u.LastName, u.Phone, u.Address, u.City, u.PostalCode, u.Country)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
