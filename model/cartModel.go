// model/cart.go
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Cart struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CartItem is one (book, quantity) line. At most one line per
// (cart, book) pair; re-adding the same book increments the line.
type CartItem struct {
	ID        int64     `json:"id"`
	CartID    int64     `json:"cart_id"`
	BookID    int64     `json:"book_id"`
	BookTitle string    `json:"book_title"`
	Quantity  int64     `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`

	// Live unit price from the catalog, not a snapshot. Cart totals
	// move with catalog price changes until checkout freezes them.
	Price decimal.Decimal `json:"price"`

	Stock int64 `json:"-"`
}

func (i CartItem) TotalPrice() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(i.Quantity))
}

// CartView is the cart plus its lines and derived totals.
type CartView struct {
	Cart       Cart            `json:"cart"`
	Items      []CartItem      `json:"items"`
	TotalItems int64           `json:"total_items"`
	TotalPrice decimal.Decimal `json:"total_price"`
}
