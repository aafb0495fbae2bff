// model/book.go
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Book struct {
	ID            int64           `json:"id"`
	Title         string          `json:"title"`
	Slug          string          `json:"slug"`
	AuthorID      *int64          `json:"author_id,omitempty"`
	PublisherID   *int64          `json:"publisher_id,omitempty"`
	ISBN          string          `json:"isbn"`
	Description   string          `json:"description,omitempty"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int64           `json:"stock_quantity"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
}

type Author struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Bio       string `json:"bio,omitempty"`
	Website   string `json:"website,omitempty"`
}

type Publisher struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Website string `json:"website,omitempty"`
}

// BookFilter narrows catalog listings. Zero values mean no constraint.
type BookFilter struct {
	CategorySlug string
	AuthorID     int64
	Search       string
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	Limit        int
	Offset       int
}
