package models

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCanceled  OrderStatus = "canceled"
)

// OrderStatusTransitions is the allowed-transitions table for the order
// lifecycle. Delivered and canceled are terminal.
var OrderStatusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusPaid, OrderStatusCanceled},
	OrderStatusPaid:      {OrderStatusShipped, OrderStatusCanceled},
	OrderStatusShipped:   {OrderStatusDelivered},
	OrderStatusDelivered: {},
	OrderStatusCanceled:  {},
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range OrderStatusTransitions[s] {
		if allowed == next {
			return true
		}
	}

	return false
}

func (s OrderStatus) IsTerminal() bool {
	return len(OrderStatusTransitions[s]) == 0
}

// Order is an immutable snapshot of a cart taken at checkout time. Its items
// keep the product name and price captured at that instant; later catalog
// changes never flow back into them.
type Order struct {
	ID        uuid.UUID   `json:"id"`
	CartID    uuid.UUID   `json:"cart_id"`
	Email     string      `json:"email,omitempty"`
	Phone     string      `json:"phone,omitempty"`
	Status    OrderStatus `json:"status"`
	Items     []OrderItem `json:"items"`
	Total     float64     `json:"total"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// ComputeTotal derives the order total from its item snapshots. The total is
// never stored authoritatively.
func (o *Order) ComputeTotal() float64 {
	var total float64

	for _, item := range o.Items {
		total += item.Subtotal()
	}

	return total
}

type OrderItem struct {
	ID          uuid.UUID `json:"id"`
	OrderID     uuid.UUID `json:"order_id"`
	ProductID   int64     `json:"product_id"`
	ProductName string    `json:"product_name"`
	UnitPrice   float64   `json:"unit_price"`
	Quantity    int       `json:"quantity"`
	CreatedAt   time.Time `json:"created_at"`
}

func (i *OrderItem) Subtotal() float64 {
	return i.UnitPrice * float64(i.Quantity)
}

type CheckoutRequest struct {
	Email string `json:"email,omitempty" validate:"omitempty,email"`
	Phone string `json:"phone,omitempty" validate:"omitempty,max=30"`
}

type UpdateOrderStatusRequest struct {
	Status OrderStatus `json:"status" validate:"required,oneof=pending paid shipped delivered canceled"`
}

type DashboardStats struct {
	OrdersByStatus  map[OrderStatus]int `json:"orders_by_status"`
	Revenue         float64             `json:"revenue"`
	LowStockLimit   int                 `json:"low_stock_limit"`
	LowStock        []*Product          `json:"low_stock"`
	OutOfStock      []*Product          `json:"out_of_stock"`
	PaymentsPending int                 `json:"payments_pending"`
}
