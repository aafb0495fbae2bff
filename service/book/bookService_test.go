// service/book/book_service_test.go
package booksvc_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ivlisss/bookstore/model"
	booksvc "github.com/ivlisss/bookstore/service/book"
)

type repoMock struct {
	createFn  func(ctx context.Context, b *model.Book) error
	updateFn  func(ctx context.Context, b *model.Book) (bool, error)
	deleteFn  func(ctx context.Context, id int64) (bool, error)
	getByIDFn func(ctx context.Context, id int64) (*model.Book, error)
	listFn    func(ctx context.Context, f model.BookFilter) ([]model.Book, error)
}

var _ booksvc.Repo = (*repoMock)(nil)

func (m *repoMock) Create(ctx context.Context, b *model.Book) error { return m.createFn(ctx, b) }
func (m *repoMock) Update(ctx context.Context, b *model.Book) (bool, error) {
	return m.updateFn(ctx, b)
}
func (m *repoMock) Delete(ctx context.Context, id int64) (bool, error) { return m.deleteFn(ctx, id) }
func (m *repoMock) GetByID(ctx context.Context, id int64) (*model.Book, error) {
	return m.getByIDFn(ctx, id)
}
func (m *repoMock) List(ctx context.Context, f model.BookFilter) ([]model.Book, error) {
	return m.listFn(ctx, f)
}
func (m *repoMock) DecrementStock(ctx context.Context, tx *sql.Tx, id, qty int64) (bool, error) {
	panic("not used")
}
func (m *repoMock) IncrementStock(ctx context.Context, tx *sql.Tx, id, qty int64) error {
	panic("not used")
}

func TestCreate_Validation(t *testing.T) {
	s := booksvc.New(&repoMock{})
	ctx := context.Background()

	cases := []model.Book{
		{Title: "", ISBN: "978-5-00000-000-1"},
		{Title: "Мастер и Маргарита", ISBN: " "},
		{Title: "Мастер и Маргарита", ISBN: "978-5-00000-000-1", Price: decimal.NewFromInt(-1)},
		{Title: "Мастер и Маргарита", ISBN: "978-5-00000-000-1", StockQuantity: -3},
	}
	for i, b := range cases {
		if err := s.Create(ctx, &b); !errors.Is(err, booksvc.ErrBadInput) {
			t.Fatalf("case %d: got %v; want ErrBadInput", i, err)
		}
	}
}

func TestCreate_SlugGenerated(t *testing.T) {
	m := &repoMock{
		createFn: func(ctx context.Context, b *model.Book) error {
			b.ID = 42
			return nil
		},
	}
	s := booksvc.New(m)

	b := &model.Book{
		Title: "The Go Programming Language",
		ISBN:  "978-0-13-419044-0",
		Price: decimal.RequireFromString("34.99"),
	}
	if err := s.Create(context.Background(), b); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if b.Slug != "the-go-programming-language" {
		t.Fatalf("slug = %q", b.Slug)
	}
	if b.ID != 42 {
		t.Fatalf("id = %d; want 42", b.ID)
	}
}

func TestCreate_SlugKept(t *testing.T) {
	m := &repoMock{
		createFn: func(ctx context.Context, b *model.Book) error { return nil },
	}
	s := booksvc.New(m)

	b := &model.Book{Title: "Капитал", Slug: "kapital", ISBN: "x"}
	if err := s.Create(context.Background(), b); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if b.Slug != "kapital" {
		t.Fatalf("slug = %q; want kapital", b.Slug)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	m := &repoMock{
		updateFn: func(ctx context.Context, b *model.Book) (bool, error) { return false, nil },
	}
	s := booksvc.New(m)

	err := s.Update(context.Background(), &model.Book{ID: 99, Title: "t", ISBN: "i"})
	if !errors.Is(err, booksvc.ErrNotFound) {
		t.Fatalf("got %v; want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	m := &repoMock{
		deleteFn: func(ctx context.Context, id int64) (bool, error) { return id == 7, nil },
	}
	s := booksvc.New(m)

	if err := s.Delete(context.Background(), 7); err != nil {
		t.Fatalf("Delete(7): %v", err)
	}
	if err := s.Delete(context.Background(), 8); !errors.Is(err, booksvc.ErrNotFound) {
		t.Fatalf("Delete(8): got %v; want ErrNotFound", err)
	}
}

func TestDetail_NotFound(t *testing.T) {
	m := &repoMock{
		getByIDFn: func(ctx context.Context, id int64) (*model.Book, error) { return nil, sql.ErrNoRows },
	}
	s := booksvc.New(m)

	if _, err := s.Detail(context.Background(), 99); !errors.Is(err, booksvc.ErrNotFound) {
		t.Fatalf("got %v; want ErrNotFound", err)
	}
}

func TestList_ClampsLimit(t *testing.T) {
	var got model.BookFilter
	m := &repoMock{
		listFn: func(ctx context.Context, f model.BookFilter) ([]model.Book, error) {
			got = f
			return nil, nil
		},
	}
	s := booksvc.New(m)

	if _, err := s.List(context.Background(), model.BookFilter{Limit: 0}); err != nil {
		t.Fatalf("List: %v", err)
	}
	if got.Limit != 20 {
		t.Fatalf("limit = %d; want 20", got.Limit)
	}

	if _, err := s.List(context.Background(), model.BookFilter{Limit: 500}); err != nil {
		t.Fatalf("List: %v", err)
	}
	if got.Limit != 20 {
		t.Fatalf("limit = %d; want 20", got.Limit)
	}
}
