// service/order/order_service_test.go
package ordersvc

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ivlisss/bookstore/model"
)

type cartRepoMock struct {
	getOrCreateFn        func(ctx context.Context, userID int64) (*model.Cart, error)
	listItemsForUpdateFn func(ctx context.Context, tx *sql.Tx, cartID int64) ([]model.CartItem, error)
	clearTxFn            func(ctx context.Context, tx *sql.Tx, cartID int64) error

	cleared bool
}

var _ CartRepo = (*cartRepoMock)(nil)

func (m *cartRepoMock) GetOrCreate(ctx context.Context, userID int64) (*model.Cart, error) {
	if m.getOrCreateFn != nil {
		return m.getOrCreateFn(ctx, userID)
	}
	return &model.Cart{ID: 1, UserID: userID}, nil
}

func (m *cartRepoMock) ListItemsForUpdate(ctx context.Context, tx *sql.Tx, cartID int64) ([]model.CartItem, error) {
	return m.listItemsForUpdateFn(ctx, tx, cartID)
}

func (m *cartRepoMock) ClearTx(ctx context.Context, tx *sql.Tx, cartID int64) error {
	m.cleared = true
	if m.clearTxFn != nil {
		return m.clearTxFn(ctx, tx, cartID)
	}
	return nil
}

type bookRepoMock struct {
	decrementFn func(ctx context.Context, tx *sql.Tx, id, qty int64) (bool, error)
	incrementFn func(ctx context.Context, tx *sql.Tx, id, qty int64) error

	decrements map[int64]int64
	increments map[int64]int64
}

var _ BookRepo = (*bookRepoMock)(nil)

func (m *bookRepoMock) DecrementStock(ctx context.Context, tx *sql.Tx, id, qty int64) (bool, error) {
	if m.decrementFn != nil {
		return m.decrementFn(ctx, tx, id, qty)
	}
	if m.decrements == nil {
		m.decrements = map[int64]int64{}
	}
	m.decrements[id] += qty
	return true, nil
}

func (m *bookRepoMock) IncrementStock(ctx context.Context, tx *sql.Tx, id, qty int64) error {
	if m.incrementFn != nil {
		return m.incrementFn(ctx, tx, id, qty)
	}
	if m.increments == nil {
		m.increments = map[int64]int64{}
	}
	m.increments[id] += qty
	return nil
}

type orderRepoMock struct {
	insertedOrder *model.Order
	insertedItems []model.OrderItem

	ownerFn       func(ctx context.Context, tx *sql.Tx, orderID int64) (int64, model.OrderStatus, error)
	listItemsTxFn func(ctx context.Context, tx *sql.Tx, orderID int64) ([]model.OrderItem, error)
	byIDForUserFn func(ctx context.Context, orderID, userID int64) (*model.Order, error)
	byIDFn        func(ctx context.Context, orderID int64) (*model.Order, error)

	statusWrites []model.OrderStatus
}

var _ OrderRepo = (*orderRepoMock)(nil)

func (m *orderRepoMock) InsertOrder(ctx context.Context, tx *sql.Tx, o *model.Order) error {
	o.ID = 77
	cp := *o
	m.insertedOrder = &cp
	return nil
}

func (m *orderRepoMock) InsertItem(ctx context.Context, tx *sql.Tx, it *model.OrderItem) error {
	it.ID = int64(len(m.insertedItems) + 1)
	m.insertedItems = append(m.insertedItems, *it)
	return nil
}

func (m *orderRepoMock) GetOwnerAndStatusForUpdate(ctx context.Context, tx *sql.Tx, orderID int64) (int64, model.OrderStatus, error) {
	return m.ownerFn(ctx, tx, orderID)
}

func (m *orderRepoMock) ListItemsTx(ctx context.Context, tx *sql.Tx, orderID int64) ([]model.OrderItem, error) {
	if m.listItemsTxFn != nil {
		return m.listItemsTxFn(ctx, tx, orderID)
	}
	return nil, nil
}

func (m *orderRepoMock) UpdateStatusTx(ctx context.Context, tx *sql.Tx, orderID int64, status model.OrderStatus) error {
	m.statusWrites = append(m.statusWrites, status)
	return nil
}

func (m *orderRepoMock) ListByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return nil, nil
}

func (m *orderRepoMock) GetByIDForUser(ctx context.Context, orderID, userID int64) (*model.Order, error) {
	if m.byIDForUserFn != nil {
		return m.byIDForUserFn(ctx, orderID, userID)
	}
	return &model.Order{ID: orderID, UserID: userID, Status: model.OrderCancelled}, nil
}

func (m *orderRepoMock) GetByID(ctx context.Context, orderID int64) (*model.Order, error) {
	if m.byIDFn != nil {
		return m.byIDFn(ctx, orderID)
	}
	return &model.Order{ID: orderID}, nil
}

func (m *orderRepoMock) ListAll(ctx context.Context, status model.OrderStatus) ([]model.Order, error) {
	return nil, nil
}

func (m *orderRepoMock) CountByStatus(ctx context.Context) (map[model.OrderStatus]int64, error) {
	return map[model.OrderStatus]int64{model.OrderPending: 2}, nil
}

func (m *orderRepoMock) DeliveredRevenue(ctx context.Context) (string, error) {
	return "123.45", nil
}

type idemMock struct {
	reserveFn func(ctx context.Context, key string) (bool, error)
}

func (m *idemMock) Reserve(ctx context.Context, key string) (bool, error) {
	return m.reserveFn(ctx, key)
}

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testPolicy() Policy {
	return Policy{DeliveryCost: price("3.00")}
}

func twoLineCart() []model.CartItem {
	return []model.CartItem{
		{ID: 1, CartID: 1, BookID: 1, BookTitle: "Война и мир", Quantity: 2, Price: price("10.00"), Stock: 5},
		{ID: 2, CartID: 1, BookID: 2, BookTitle: "Анна Каренина", Quantity: 1, Price: price("5.00"), Stock: 2},
	}
}

// --- checkout ---

func TestCheckout_Success(t *testing.T) {
	db, dbm, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	dbm.ExpectBegin()
	dbm.ExpectCommit()

	carts := &cartRepoMock{
		listItemsForUpdateFn: func(ctx context.Context, tx *sql.Tx, cartID int64) ([]model.CartItem, error) {
			return twoLineCart(), nil
		},
	}
	books := &bookRepoMock{}
	orders := &orderRepoMock{}
	svc := New(db, carts, books, orders, nil, nil, testPolicy())

	o, err := svc.Checkout(context.Background(), 10, CheckoutInput{
		DeliveryMethod:  model.DeliveryCourier,
		ShippingAddress: "ул. Ленина, д. 1",
	})
	require.NoError(t, err)
	require.EqualValues(t, 77, o.ID)
	require.Equal(t, model.OrderPending, o.Status)
	require.Equal(t, "ул. Ленина, д. 1", o.ShippingAddress)

	// 2 x 10.00 + 1 x 5.00 + 3.00 delivery
	require.True(t, o.TotalAmount.Equal(price("28.00")), "total = %s", o.TotalAmount)
	require.True(t, o.DeliveryCost.Equal(price("3.00")))

	// Unit prices are frozen on the order lines.
	require.Len(t, o.Items, 2)
	require.True(t, o.Items[0].Price.Equal(price("10.00")))
	require.True(t, o.Items[1].Price.Equal(price("5.00")))
	require.Equal(t, "Война и мир", o.Items[0].BookTitle)

	require.Equal(t, map[int64]int64{1: 2, 2: 1}, books.decrements)
	require.True(t, carts.cleared)
	require.NoError(t, dbm.ExpectationsWereMet())
}

func TestCheckout_PickupIgnoresAddress(t *testing.T) {
	db, dbm, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	dbm.ExpectBegin()
	dbm.ExpectCommit()

	carts := &cartRepoMock{
		listItemsForUpdateFn: func(ctx context.Context, tx *sql.Tx, cartID int64) ([]model.CartItem, error) {
			return twoLineCart(), nil
		},
	}
	svc := New(db, carts, &bookRepoMock{}, &orderRepoMock{}, nil, nil, testPolicy())

	o, err := svc.Checkout(context.Background(), 10, CheckoutInput{
		DeliveryMethod:  model.DeliveryPickup,
		ShippingAddress: "whatever the client sent",
	})
	require.NoError(t, err)
	require.Equal(t, model.PickupAddress, o.ShippingAddress)
	require.True(t, o.DeliveryCost.IsZero())
	require.True(t, o.TotalAmount.Equal(price("25.00")), "total = %s", o.TotalAmount)
	require.NoError(t, dbm.ExpectationsWereMet())
}

func TestCheckout_Validation(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := New(db, &cartRepoMock{}, &bookRepoMock{}, &orderRepoMock{}, nil, nil, testPolicy())

	_, err = svc.Checkout(context.Background(), 10, CheckoutInput{DeliveryMethod: "drone"})
	require.Equal(t, ErrValidation, Code(err))

	_, err = svc.Checkout(context.Background(), 10, CheckoutInput{
		DeliveryMethod:  model.DeliveryCourier,
		ShippingAddress: "   ",
	})
	require.Equal(t, ErrValidation, Code(err))
}

func TestCheckout_EmptyCart(t *testing.T) {
	db, dbm, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	dbm.ExpectBegin()
	dbm.ExpectRollback()

	carts := &cartRepoMock{
		listItemsForUpdateFn: func(ctx context.Context, tx *sql.Tx, cartID int64) ([]model.CartItem, error) {
			return nil, nil
		},
	}
	orders := &orderRepoMock{}
	svc := New(db, carts, &bookRepoMock{}, orders, nil, nil, testPolicy())

	_, err = svc.Checkout(context.Background(), 10, CheckoutInput{DeliveryMethod: model.DeliveryPickup})
	require.Equal(t, ErrEmptyCart, Code(err))
	require.Nil(t, orders.insertedOrder)
	require.NoError(t, dbm.ExpectationsWereMet())
}

func TestCheckout_InsufficientStock(t *testing.T) {
	db, dbm, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	dbm.ExpectBegin()
	dbm.ExpectRollback()

	carts := &cartRepoMock{
		listItemsForUpdateFn: func(ctx context.Context, tx *sql.Tx, cartID int64) ([]model.CartItem, error) {
			return []model.CartItem{
				{BookID: 2, BookTitle: "Анна Каренина", Quantity: 3, Price: price("5.00"), Stock: 2},
			}, nil
		},
	}
	books := &bookRepoMock{}
	orders := &orderRepoMock{}
	svc := New(db, carts, books, orders, nil, nil, testPolicy())

	_, err = svc.Checkout(context.Background(), 10, CheckoutInput{DeliveryMethod: model.DeliveryPickup})
	require.Equal(t, ErrNoStock, Code(err))

	var se *StockError
	require.ErrorAs(t, err, &se)
	require.EqualValues(t, 2, se.BookID)
	require.EqualValues(t, 3, se.Requested)
	require.EqualValues(t, 2, se.Available)

	// Whole checkout rolled back: no order, no decrements, cart intact.
	require.Nil(t, orders.insertedOrder)
	require.Empty(t, books.decrements)
	require.False(t, carts.cleared)
	require.NoError(t, dbm.ExpectationsWereMet())
}

func TestCheckout_DuplicateIdempotencyKey(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	idem := &idemMock{
		reserveFn: func(ctx context.Context, key string) (bool, error) { return false, nil },
	}
	svc := New(db, &cartRepoMock{}, &bookRepoMock{}, &orderRepoMock{}, idem, nil, testPolicy())

	_, err = svc.Checkout(context.Background(), 10, CheckoutInput{
		DeliveryMethod: model.DeliveryPickup,
		IdempotencyKey: "abc-123",
	})
	require.Equal(t, ErrDuplicateRequest, Code(err))
}

// One unit on the shelf, several buyers: the conditional stock
// decrement lets exactly one checkout commit.
func TestCheckout_OneWinnerUnderContention(t *testing.T) {
	const buyers = 4

	db, dbm, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	dbm.MatchExpectationsInOrder(false)
	for i := 0; i < buyers; i++ {
		dbm.ExpectBegin()
	}
	dbm.ExpectCommit()
	for i := 0; i < buyers-1; i++ {
		dbm.ExpectRollback()
	}

	var mu sync.Mutex
	stock := int64(1)

	carts := &cartRepoMock{
		listItemsForUpdateFn: func(ctx context.Context, tx *sql.Tx, cartID int64) ([]model.CartItem, error) {
			// Every buyer sees the unit as available; the decrement
			// decides who actually gets it.
			return []model.CartItem{
				{BookID: 1, BookTitle: "Война и мир", Quantity: 1, Price: price("10.00"), Stock: 1},
			}, nil
		},
	}
	books := &bookRepoMock{
		decrementFn: func(ctx context.Context, tx *sql.Tx, id, qty int64) (bool, error) {
			mu.Lock()
			defer mu.Unlock()
			if stock < qty {
				return false, nil
			}
			stock -= qty
			return true, nil
		},
	}
	svc := New(db, carts, books, &orderRepoMock{}, nil, nil, testPolicy())

	var wg sync.WaitGroup
	results := make(chan error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(uid int64) {
			defer wg.Done()
			_, err := svc.Checkout(context.Background(), uid, CheckoutInput{DeliveryMethod: model.DeliveryPickup})
			results <- err
		}(int64(i + 1))
	}
	wg.Wait()
	close(results)

	var wins, stockErrs int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case Code(err) == ErrNoStock:
			stockErrs++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, wins)
	require.Equal(t, buyers-1, stockErrs)
	require.EqualValues(t, 0, stock)
	require.NoError(t, dbm.ExpectationsWereMet())
}

// --- cancel ---

func TestCancel_PendingOrder(t *testing.T) {
	db, dbm, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	dbm.ExpectBegin()
	dbm.ExpectCommit()

	orders := &orderRepoMock{
		ownerFn: func(ctx context.Context, tx *sql.Tx, orderID int64) (int64, model.OrderStatus, error) {
			return 10, model.OrderPending, nil
		},
	}
	books := &bookRepoMock{}
	svc := New(db, &cartRepoMock{}, books, orders, nil, nil, testPolicy())

	o, err := svc.Cancel(context.Background(), 10, 77)
	require.NoError(t, err)
	require.Equal(t, model.OrderCancelled, o.Status)
	require.Equal(t, []model.OrderStatus{model.OrderCancelled}, orders.statusWrites)
	require.Empty(t, books.increments, "restock disabled by default")
	require.NoError(t, dbm.ExpectationsWereMet())
}

func TestCancel_RestockPolicy(t *testing.T) {
	db, dbm, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	dbm.ExpectBegin()
	dbm.ExpectCommit()

	orders := &orderRepoMock{
		ownerFn: func(ctx context.Context, tx *sql.Tx, orderID int64) (int64, model.OrderStatus, error) {
			return 10, model.OrderProcessing, nil
		},
		listItemsTxFn: func(ctx context.Context, tx *sql.Tx, orderID int64) ([]model.OrderItem, error) {
			return []model.OrderItem{
				{BookID: 1, Quantity: 2},
				{BookID: 2, Quantity: 1},
			}, nil
		},
	}
	books := &bookRepoMock{}
	pol := testPolicy()
	pol.RestockOnCancel = true
	svc := New(db, &cartRepoMock{}, books, orders, nil, nil, pol)

	_, err = svc.Cancel(context.Background(), 10, 77)
	require.NoError(t, err)
	require.Equal(t, map[int64]int64{1: 2, 2: 1}, books.increments)
	require.NoError(t, dbm.ExpectationsWereMet())
}

func TestCancel_NotOwner(t *testing.T) {
	db, dbm, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	dbm.ExpectBegin()
	dbm.ExpectRollback()

	orders := &orderRepoMock{
		ownerFn: func(ctx context.Context, tx *sql.Tx, orderID int64) (int64, model.OrderStatus, error) {
			return 999, model.OrderPending, nil
		},
	}
	svc := New(db, &cartRepoMock{}, &bookRepoMock{}, orders, nil, nil, testPolicy())

	// Someone else's order reads as missing, not forbidden.
	_, err = svc.Cancel(context.Background(), 10, 77)
	require.Equal(t, ErrNotFound, Code(err))
	require.Empty(t, orders.statusWrites)
	require.NoError(t, dbm.ExpectationsWereMet())
}

func TestCancel_AlreadyShipped(t *testing.T) {
	db, dbm, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	dbm.ExpectBegin()
	dbm.ExpectRollback()

	orders := &orderRepoMock{
		ownerFn: func(ctx context.Context, tx *sql.Tx, orderID int64) (int64, model.OrderStatus, error) {
			return 10, model.OrderShipped, nil
		},
	}
	svc := New(db, &cartRepoMock{}, &bookRepoMock{}, orders, nil, nil, testPolicy())

	_, err = svc.Cancel(context.Background(), 10, 77)
	require.Equal(t, ErrInvalidTransition, Code(err))
	require.NoError(t, dbm.ExpectationsWereMet())
}

func TestCancel_Missing(t *testing.T) {
	db, dbm, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	dbm.ExpectBegin()
	dbm.ExpectRollback()

	orders := &orderRepoMock{
		ownerFn: func(ctx context.Context, tx *sql.Tx, orderID int64) (int64, model.OrderStatus, error) {
			return 0, "", sql.ErrNoRows
		},
	}
	svc := New(db, &cartRepoMock{}, &bookRepoMock{}, orders, nil, nil, testPolicy())

	_, err = svc.Cancel(context.Background(), 10, 404)
	require.Equal(t, ErrNotFound, Code(err))
	require.NoError(t, dbm.ExpectationsWereMet())
}

// --- admin ---

func TestUpdateStatus_HappyPath(t *testing.T) {
	db, dbm, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	dbm.ExpectBegin()
	dbm.ExpectCommit()

	orders := &orderRepoMock{
		ownerFn: func(ctx context.Context, tx *sql.Tx, orderID int64) (int64, model.OrderStatus, error) {
			return 10, model.OrderPending, nil
		},
		byIDFn: func(ctx context.Context, orderID int64) (*model.Order, error) {
			return &model.Order{ID: orderID, Status: model.OrderProcessing}, nil
		},
	}
	svc := New(db, &cartRepoMock{}, &bookRepoMock{}, orders, nil, nil, testPolicy())

	o, err := svc.UpdateStatus(context.Background(), 77, model.OrderProcessing)
	require.NoError(t, err)
	require.Equal(t, model.OrderProcessing, o.Status)
	require.Equal(t, []model.OrderStatus{model.OrderProcessing}, orders.statusWrites)
	require.NoError(t, dbm.ExpectationsWereMet())
}

func TestUpdateStatus_SkippingStates(t *testing.T) {
	db, dbm, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	dbm.ExpectBegin()
	dbm.ExpectRollback()

	orders := &orderRepoMock{
		ownerFn: func(ctx context.Context, tx *sql.Tx, orderID int64) (int64, model.OrderStatus, error) {
			return 10, model.OrderPending, nil
		},
	}
	svc := New(db, &cartRepoMock{}, &bookRepoMock{}, orders, nil, nil, testPolicy())

	_, err = svc.UpdateStatus(context.Background(), 77, model.OrderDelivered)
	require.Equal(t, ErrInvalidTransition, Code(err))
	require.Empty(t, orders.statusWrites)
	require.NoError(t, dbm.ExpectationsWereMet())
}

func TestUpdateStatus_UnknownToken(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := New(db, &cartRepoMock{}, &bookRepoMock{}, &orderRepoMock{}, nil, nil, testPolicy())

	_, err = svc.UpdateStatus(context.Background(), 77, "lost")
	require.Equal(t, ErrValidation, Code(err))
}

func TestListAll_BadStatusFilter(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := New(db, &cartRepoMock{}, &bookRepoMock{}, &orderRepoMock{}, nil, nil, testPolicy())

	_, err = svc.ListAll(context.Background(), "unknown")
	require.Equal(t, ErrValidation, Code(err))
}

func TestStats(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := New(db, &cartRepoMock{}, &bookRepoMock{}, &orderRepoMock{}, nil, nil, testPolicy())

	st, err := svc.Stats(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 2, st.OrdersByStatus[model.OrderPending])
	require.Equal(t, "123.45", st.DeliveredRevenue)
}
