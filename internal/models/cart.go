package models

import (
	"time"

	"github.com/google/uuid"
)

// Cart is keyed by an opaque session token passed explicitly by the caller.
// It stays mutable until its order reaches a terminal state.
type Cart struct {
	ID           uuid.UUID  `json:"id"`
	SessionToken string     `json:"session_token"`
	Items        []CartItem `json:"items"`
	Total        float64    `json:"total"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// CartItem carries the live product name and price from the catalog join.
// Unlike an OrderItem these are not snapshots.
type CartItem struct {
	CartID      uuid.UUID `json:"-"`
	ProductID   int64     `json:"product_id"`
	ProductName string    `json:"product_name"`
	UnitPrice   float64   `json:"unit_price"`
	Quantity    int       `json:"quantity"`
}

func (i *CartItem) Subtotal() float64 {
	return i.UnitPrice * float64(i.Quantity)
}

type AddItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required"`
	Quantity  int   `json:"quantity" validate:"omitempty,min=1"`
}

// UpdateQuantityRequest takes the product id from the URL path; a zero or
// negative quantity removes the line.
type UpdateQuantityRequest struct {
	ProductID int64 `json:"-"`
	Quantity  int   `json:"quantity"`
}
