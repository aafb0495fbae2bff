package ordersvc

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ivlisss/bookstore/events"
	"github.com/ivlisss/bookstore/model"
)

// errors used by controllers

type ErrCode string

const (
	ErrNotFound          ErrCode = "NOT_FOUND"
	ErrEmptyCart         ErrCode = "EMPTY_CART"
	ErrNoStock           ErrCode = "NO_STOCK"
	ErrValidation        ErrCode = "VALIDATION"
	ErrInvalidTransition ErrCode = "INVALID_TRANSITION"
	ErrDuplicateRequest  ErrCode = "DUPLICATE_REQUEST"
)

type codedError struct{ code ErrCode }

func (e codedError) Error() string { return string(e.code) }
func (e codedError) Code() ErrCode { return e.code }
func makeErr(c ErrCode) error      { return codedError{code: c} }

// StockError reports the first cart line the catalog cannot cover.
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
	ListItemsForUpdate(ctx context.Context, tx *sql.Tx, cartID int64) ([]model.CartItem, error)
	ClearTx(ctx context.Context, tx *sql.Tx, cartID int64) error
}

type BookRepo interface {
	DecrementStock(ctx context.Context, tx *sql.Tx, id, qty int64) (bool, error)
	IncrementStock(ctx context.Context, tx *sql.Tx, id, qty int64) error
}

type OrderRepo interface {
	InsertOrder(ctx context.Context, tx *sql.Tx, o *model.Order) error
	InsertItem(ctx context.Context, tx *sql.Tx, it *model.OrderItem) error
	GetOwnerAndStatusForUpdate(ctx context.Context, tx *sql.Tx, orderID int64) (int64, model.OrderStatus, error)
	ListItemsTx(ctx context.Context, tx *sql.Tx, orderID int64) ([]model.OrderItem, error)
	UpdateStatusTx(ctx context.Context, tx *sql.Tx, orderID int64, status model.OrderStatus) error
	ListByUser(ctx context.Context, userID int64) ([]model.Order, error)
	GetByIDForUser(ctx context.Context, orderID, userID int64) (*model.Order, error)
	GetByID(ctx context.Context, orderID int64) (*model.Order, error)
	ListAll(ctx context.Context, status model.OrderStatus) ([]model.Order, error)
	CountByStatus(ctx context.Context) (map[model.OrderStatus]int64, error)
	DeliveredRevenue(ctx context.Context) (string, error)
}

// IdemStore remembers checkout idempotency keys. Reserve returns false
// when the key was already used.
type IdemStore interface {
	Reserve(ctx context.Context, key string) (bool, error)
}

type CheckoutInput struct {
	DeliveryMethod  model.DeliveryMethod
	ShippingAddress string
	IdempotencyKey  string
}

// Policy holds the order-flow knobs that are configuration, not code.
type Policy struct {
	// Flat courier surcharge added to delivery orders.
	DeliveryCost decimal.Decimal
	// Whether cancelling an order returns its items to stock.
	RestockOnCancel bool
}

type Stats struct {
	OrdersByStatus   map[model.OrderStatus]int64 `json:"orders_by_status"`
	DeliveredRevenue string                      `json:"delivered_revenue"`
}

type Service interface {
	// Checkout converts the caller's cart into an order, all or
	// nothing: stock re-checked and decremented, prices snapshotted,
	// cart emptied — or no writes at all.
	Checkout(ctx context.Context, userID int64, in CheckoutInput) (*model.Order, error)

	ListMine(ctx context.Context, userID int64) ([]model.Order, error)
	GetMine(ctx context.Context, userID, orderID int64) (*model.Order, error)

	// Cancel moves an owned pending/processing order to cancelled.
	Cancel(ctx context.Context, userID, orderID int64) (*model.Order, error)

	// Admin operations.
	UpdateStatus(ctx context.Context, orderID int64, next model.OrderStatus) (*model.Order, error)
	ListAll(ctx context.Context, status model.OrderStatus) ([]model.Order, error)
	Stats(ctx context.Context) (*Stats, error)
}

type service struct {
	db     *sql.DB
	carts  CartRepo
	books  BookRepo
	orders OrderRepo
	idem   IdemStore
	pub    *events.Publisher
	policy Policy
}

func New(db *sql.DB, carts CartRepo, books BookRepo, orders OrderRepo, idem IdemStore, pub *events.Publisher, policy Policy) Service {
	return &service{db: db, carts: carts, books: books, orders: orders, idem: idem, pub: pub, policy: policy}
}

func (s *service) Checkout(ctx context.Context, userID int64, in CheckoutInput) (o *model.Order, err error) {
	if !in.DeliveryMethod.Valid() {
		return nil, makeErr(ErrValidation)
	}
	address := strings.TrimSpace(in.ShippingAddress)
	deliveryCost := decimal.Zero
	switch in.DeliveryMethod {
	case model.DeliveryCourier:
		if address == "" {
			return nil, makeErr(ErrValidation)
		}
		deliveryCost = s.policy.DeliveryCost
	case model.DeliveryPickup:
		// Pickup ignores whatever address came in.
		address = model.PickupAddress
	}

	if in.IdempotencyKey != "" && s.idem != nil {
		ok, err := s.idem.Reserve(ctx, in.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, makeErr(ErrDuplicateRequest)
		}
	}

	cart, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Re-read the lines with the book rows locked: the stock and
	// prices seen here are the ones this order commits against.
	items, err := s.carts.ListItemsForUpdate(ctx, tx, cart.ID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, makeErr(ErrEmptyCart)
	}

	total := deliveryCost
	for _, it := range items {
		if it.Quantity > it.Stock {
			return nil, &StockError{BookID: it.BookID, Requested: it.Quantity, Available: it.Stock}
		}
		total = total.Add(it.TotalPrice())
	}

	o = &model.Order{
		UserID:          userID,
		Status:          model.OrderPending,
		ShippingAddress: address,
		DeliveryMethod:  in.DeliveryMethod,
		DeliveryCost:    deliveryCost,
		TotalAmount:     total,
	}
	if err = s.orders.InsertOrder(ctx, tx, o); err != nil {
		return nil, err
	}

	for _, it := range items {
		oi := model.OrderItem{
			OrderID:   o.ID,
			BookID:    it.BookID,
			BookTitle: it.BookTitle,
			Quantity:  it.Quantity,
			Price:     it.Price, // snapshot; frozen from here on
		}
		if err = s.orders.InsertItem(ctx, tx, &oi); err != nil {
			return nil, err
		}
		var ok bool
		ok, err = s.books.DecrementStock(ctx, tx, it.BookID, it.Quantity)
		if err != nil {
			return nil, err
		}
		if !ok {
			// Cannot happen while the row lock holds, but the guard
			// keeps a logic slip from ever overselling.
			err = &StockError{BookID: it.BookID, Requested: it.Quantity, Available: it.Stock}
			return nil, err
		}
		o.Items = append(o.Items, oi)
	}

	if err = s.carts.ClearTx(ctx, tx, cart.ID); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}

	s.pub.Publish(ctx, "order.created", o)
	return o, nil
}

func (s *service) ListMine(ctx context.Context, userID int64) ([]model.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

func (s *service) GetMine(ctx context.Context, userID, orderID int64) (*model.Order, error) {
	o, err := s.orders.GetByIDForUser(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	return o, nil
}

func (s *service) Cancel(ctx context.Context, userID, orderID int64) (o *model.Order, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	owner, status, err := s.orders.GetOwnerAndStatusForUpdate(ctx, tx, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	// A non-owner gets the same answer as a missing order.
	if owner != userID {
		return nil, makeErr(ErrNotFound)
	}
	if !status.Cancellable() {
		return nil, makeErr(ErrInvalidTransition)
	}

	if err = s.orders.UpdateStatusTx(ctx, tx, orderID, model.OrderCancelled); err != nil {
		return nil, err
	}

	if s.policy.RestockOnCancel {
		var items []model.OrderItem
		items, err = s.orders.ListItemsTx(ctx, tx, orderID)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			if err = s.books.IncrementStock(ctx, tx, it.BookID, it.Quantity); err != nil {
				return nil, err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	o, err = s.orders.GetByIDForUser(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	s.pub.Publish(ctx, "order.cancelled", o)
	return o, nil
}

func (s *service) UpdateStatus(ctx context.Context, orderID int64, next model.OrderStatus) (o *model.Order, err error) {
	if !next.Valid() {
		return nil, makeErr(ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, cur, err := s.orders.GetOwnerAndStatusForUpdate(ctx, tx, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	if !cur.CanTransitionTo(next) {
		return nil, makeErr(ErrInvalidTransition)
	}
	if err = s.orders.UpdateStatusTx(ctx, tx, orderID, next); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}

	o, err = s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.pub.Publish(ctx, "order.status_changed", o)
	return o, nil
}

func (s *service) ListAll(ctx context.Context, status model.OrderStatus) ([]model.Order, error) {
	if status != "" && !status.Valid() {
		return nil, makeErr(ErrValidation)
	}
	return s.orders.ListAll(ctx, status)
}

func (s *service) Stats(ctx context.Context) (*Stats, error) {
	counts, err := s.orders.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	revenue, err := s.orders.DeliveredRevenue(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{OrdersByStatus: counts, DeliveredRevenue: revenue}, nil
}
