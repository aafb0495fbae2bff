package book

type BookReq struct {
	Title         string `json:"title" validate:"required"`
	Slug          string `json:"slug" validate:"omitempty"`
	AuthorID      *int64 `json:"author_id" validate:"omitempty,gt=0"`
	PublisherID   *int64 `json:"publisher_id" validate:"omitempty,gt=0"`
	ISBN          string `json:"isbn" validate:"required,min=10,max=17"`
	Description   string `json:"description"`
	Price         string `json:"price" validate:"required"`
	StockQuantity int64  `json:"stock_quantity" validate:"gte=0"`
}
