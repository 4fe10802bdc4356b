package dto

// CreateOrderRequest optionally narrows a gateway order to a partial amount
// in rupees. Zero or absent means the full outstanding balance.
type CreateOrderRequest struct {
	Amount int64 `json:"amount" validate:"omitempty,gt=0"`
}
