package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFulfillmentTransitions(t *testing.T) {
	allowed := []struct{ from, to OrderStatus }{
		{OrderStatusPending, OrderStatusProcessing},
		{OrderStatusPending, OrderStatusCancelled},
		{OrderStatusProcessing, OrderStatusShipped},
		{OrderStatusProcessing, OrderStatusDelivered},
		{OrderStatusProcessing, OrderStatusCancelled},
		{OrderStatusShipped, OrderStatusDelivered},
		{OrderStatusShipped, OrderStatusCancelled},
	}
	for _, tc := range allowed {
		assert.True(t, tc.from.CanTransitionTo(tc.to), "%s -> %s should be allowed", tc.from, tc.to)
	}

	denied := []struct{ from, to OrderStatus }{
		{OrderStatusPending, OrderStatusShipped},
		{OrderStatusPending, OrderStatusDelivered},
		{OrderStatusShipped, OrderStatusProcessing},
		{OrderStatusDelivered, OrderStatusCancelled},
		{OrderStatusCancelled, OrderStatusProcessing},
		{OrderStatusDelivered, OrderStatusPending},
		{OrderStatusPending, OrderStatusPending},
	}
	for _, tc := range denied {
		assert.False(t, tc.from.CanTransitionTo(tc.to), "%s -> %s should be denied", tc.from, tc.to)
	}
}

func TestValidOrderStatus(t *testing.T) {
	for _, s := range []OrderStatus{
		OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled,
	} {
		assert.True(t, ValidOrderStatus(s))
	}
	assert.False(t, ValidOrderStatus("completed"))
	assert.False(t, ValidOrderStatus(""))
}

func TestPaymentFinalized(t *testing.T) {
	order := Order{PaymentStatus: PaymentStatusPending}
	assert.False(t, order.PaymentFinalized())

	order.PaymentStatus = PaymentStatusCompleted
	assert.True(t, order.PaymentFinalized())

	order.PaymentStatus = PaymentStatusFailed
	assert.True(t, order.PaymentFinalized())
}

func TestItemsTotal(t *testing.T) {
	order := Order{Items: []OrderItem{
		{Price: 490, Quantity: 1},
		{Price: 5.5, Quantity: 2},
	}}
	assert.InDelta(t, 501.0, order.ItemsTotal(), 1e-9)
}
