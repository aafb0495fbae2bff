package cart

type AddItemReq struct {
	BookID   int64 `json:"book_id" validate:"required,gt=0"`
	Quantity int64 `json:"quantity" validate:"omitempty,gt=0"`
}

type UpdateItemReq struct {
	BookID int64 `json:"book_id" validate:"required,gt=0"`
	// Zero or negative removes the line.
	Quantity int64 `json:"quantity"`
}

type RemoveItemReq struct {
	BookID int64 `json:"book_id" validate:"required,gt=0"`
}
