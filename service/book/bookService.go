package booksvc

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/ivlisss/bookstore/model"
	bookrepo "github.com/ivlisss/bookstore/repository/book"
)

var (
	ErrNotFound = errors.New("book not found")
	ErrBadInput = errors.New("invalid payload")
)

type Repo = bookrepo.Repo

type Service interface {
	Create(ctx context.Context, b *model.Book) error
	Update(ctx context.Context, b *model.Book) error
	Delete(ctx context.Context, id int64) error
	Detail(ctx context.Context, id int64) (*model.Book, error)
	List(ctx context.Context, f model.BookFilter) ([]model.Book, error)
}

type service struct{ r Repo }

func New(r Repo) Service { return &service{r: r} }

func validate(b *model.Book) error {
	if strings.TrimSpace(b.Title) == "" || strings.TrimSpace(b.ISBN) == "" {
		return ErrBadInput
	}
	if b.Price.IsNegative() || b.StockQuantity < 0 {
		return ErrBadInput
	}
	return nil
}

func (s *service) Create(ctx context.Context, b *model.Book) error {
	if err := validate(b); err != nil {
		return err
	}
	if b.Slug == "" {
		b.Slug = slugify(b.Title)
	}
	return s.r.Create(ctx, b)
}

func (s *service) Update(ctx context.Context, b *model.Book) error {
	if err := validate(b); err != nil {
		return err
	}
	ok, err := s.r.Update(ctx, b)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	ok, err := s.r.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *service) Detail(ctx context.Context, id int64) (*model.Book, error) {
	b, err := s.r.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

func (s *service) List(ctx context.Context, f model.BookFilter) ([]model.Book, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	return s.r.List(ctx, f)
}

func slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	var b strings.Builder
	prevDash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash && b.Len() > 0 {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
