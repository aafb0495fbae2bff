package order

type CheckoutReq struct {
	DeliveryMethod  string `json:"delivery_method" validate:"required,oneof=pickup delivery"`
	ShippingAddress string `json:"shipping_address" validate:"omitempty,max=500"`
}

type UpdateStatusReq struct {
	Status string `json:"status" validate:"required,oneof=pending processing shipped delivered cancelled"`
}
