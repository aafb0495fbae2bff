package cartsvc

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ivlisss/bookstore/model"
)

// errors used by controllers

type ErrCode string

const (
	ErrBookNotFound ErrCode = "BOOK_NOT_FOUND"
	ErrItemNotFound ErrCode = "ITEM_NOT_FOUND"
	ErrBadQuantity  ErrCode = "BAD_QUANTITY"
	ErrNoStock      ErrCode = "NO_STOCK"
)

type codedError struct{ code ErrCode }

func (e codedError) Error() string { return string(e.code) }
func (e codedError) Code() ErrCode { return e.code }
func makeErr(c ErrCode) error      { return codedError{code: c} }

// StockError carries the availability detail behind ErrNoStock.
type StockError struct {
	BookID    int64
	Requested int64
	Available int64
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for book %d: requested %d, available %d",
		e.BookID, e.Requested, e.Available)
}
func (e *StockError) Code() ErrCode { return ErrNoStock }

// Code extracts error code
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

type CartRepo interface {
	GetOrCreate(ctx context.Context, userID int64) (*model.Cart, error)
	UpsertItem(ctx context.Context, cartID, bookID, qty int64) (int64, error)
	SetItemQuantity(ctx context.Context, cartID, bookID, qty int64) (bool, error)
	DeleteItem(ctx context.Context, cartID, bookID int64) (bool, error)
	DeleteItemByID(ctx context.Context, cartID, itemID int64) (bool, error)
	Clear(ctx context.Context, cartID int64) error
	ListItems(ctx context.Context, cartID int64) ([]model.CartItem, error)
}

type BookRepo interface {
	GetByID(ctx context.Context, id int64) (*model.Book, error)
}

type Service interface {
	// Get returns the caller's cart with items and live totals,
	// creating the cart on first access.
	Get(ctx context.Context, userID int64) (*model.CartView, error)

	// AddItem merges into an existing (cart, book) line or creates one.
	AddItem(ctx context.Context, userID, bookID, qty int64) (*model.CartView, error)

	// UpdateItemQuantity overwrites a line; qty <= 0 deletes it.
	UpdateItemQuantity(ctx context.Context, userID, bookID, qty int64) (*model.CartView, error)

	// RemoveItem deletes the (cart, book) line; absent line is a no-op.
	RemoveItem(ctx context.Context, userID, bookID int64) (*model.CartView, error)

	// RemoveItemByID deletes one line by its own id; absent or
	// foreign-cart ids fail with ErrItemNotFound.
	RemoveItemByID(ctx context.Context, userID, itemID int64) (*model.CartView, error)

	Clear(ctx context.Context, userID int64) error
}

type service struct {
	carts CartRepo
	books BookRepo
}

func New(carts CartRepo, books BookRepo) Service {
	return &service{carts: carts, books: books}
}

func (s *service) Get(ctx context.Context, userID int64) (*model.CartView, error) {
	cart, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, cart)
}

func (s *service) AddItem(ctx context.Context, userID, bookID, qty int64) (*model.CartView, error) {
	if qty < 1 {
		return nil, makeErr(ErrBadQuantity)
	}

	book, err := s.books.GetByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrBookNotFound)
		}
		return nil, err
	}

	// Early courtesy check. Stock is authoritative at checkout only,
	// so this can still race with other buyers.
	if qty > book.StockQuantity {
		return nil, &StockError{BookID: bookID, Requested: qty, Available: book.StockQuantity}
	}

	cart, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.carts.UpsertItem(ctx, cart.ID, bookID, qty); err != nil {
		return nil, err
	}
	return s.view(ctx, cart)
}

func (s *service) UpdateItemQuantity(ctx context.Context, userID, bookID, qty int64) (*model.CartView, error) {
	cart, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	if qty <= 0 {
		// Zero or negative means "take the line out", never a zero row.
		if _, err := s.carts.DeleteItem(ctx, cart.ID, bookID); err != nil {
			return nil, err
		}
		return s.view(ctx, cart)
	}

	ok, err := s.carts.SetItemQuantity(ctx, cart.ID, bookID, qty)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, makeErr(ErrItemNotFound)
	}
	return s.view(ctx, cart)
}

func (s *service) RemoveItem(ctx context.Context, userID, bookID int64) (*model.CartView, error) {
	cart, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.carts.DeleteItem(ctx, cart.ID, bookID); err != nil {
		return nil, err
	}
	return s.view(ctx, cart)
}

func (s *service) RemoveItemByID(ctx context.Context, userID, itemID int64) (*model.CartView, error) {
	cart, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	ok, err := s.carts.DeleteItemByID(ctx, cart.ID, itemID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Also covers another user's item id: the delete is scoped to
		// the caller's cart, so existence never leaks.
		return nil, makeErr(ErrItemNotFound)
	}
	return s.view(ctx, cart)
}

func (s *service) Clear(ctx context.Context, userID int64) error {
	cart, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return err
	}
	return s.carts.Clear(ctx, cart.ID)
}

func (s *service) view(ctx context.Context, cart *model.Cart) (*model.CartView, error) {
	items, err := s.carts.ListItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	v := &model.CartView{
		Cart:       *cart,
		Items:      items,
		TotalPrice: decimal.Zero,
	}
	for _, it := range items {
		v.TotalItems += it.Quantity
		v.TotalPrice = v.TotalPrice.Add(it.TotalPrice())
	}
	return v, nil
}
