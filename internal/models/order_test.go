package models_test

import (
	"testing"

	"github.com/emontalvo/tienda-storefront/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestCanTransitionTo(t *testing.T) {

	tests := []struct {
		from models.OrderStatus
		to   models.OrderStatus
		want bool
	}{
		{models.OrderStatusPending, models.OrderStatusPaid, true},
		{models.OrderStatusPending, models.OrderStatusCanceled, true},
		{models.OrderStatusPending, models.OrderStatusShipped, false},
		{models.OrderStatusPending, models.OrderStatusDelivered, false},

		{models.OrderStatusPaid, models.OrderStatusShipped, true},
		{models.OrderStatusPaid, models.OrderStatusCanceled, true},
		{models.OrderStatusPaid, models.OrderStatusPending, false},
		{models.OrderStatusPaid, models.OrderStatusDelivered, false},

		{models.OrderStatusShipped, models.OrderStatusDelivered, true},
		{models.OrderStatusShipped, models.OrderStatusCanceled, false},

		{models.OrderStatusDelivered, models.OrderStatusCanceled, false},
		{models.OrderStatusCanceled, models.OrderStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+" to "+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, models.OrderStatusPending.IsTerminal())
	assert.False(t, models.OrderStatusPaid.IsTerminal())
	assert.False(t, models.OrderStatusShipped.IsTerminal())
	assert.True(t, models.OrderStatusDelivered.IsTerminal())
	assert.True(t, models.OrderStatusCanceled.IsTerminal())
}

func TestComputeTotal(t *testing.T) {

	order := &models.Order{
		Items: []models.OrderItem{
			{ProductName: "Mate Gourd", UnitPrice: 15.50, Quantity: 2},
			{ProductName: "Yerba 1kg", UnitPrice: 8.00, Quantity: 3},
		},
	}

	assert.InDelta(t, 55.00, order.ComputeTotal(), 0.001)

	// Snapshot prices are authoritative: mutating a line changes the total,
	// nothing else does.
	order.Items[0].UnitPrice = 20.00
	assert.InDelta(t, 64.00, order.ComputeTotal(), 0.001)
}

func TestComputeTotal_Empty(t *testing.T) {
	order := &models.Order{}
	assert.Zero(t, order.ComputeTotal())
}
