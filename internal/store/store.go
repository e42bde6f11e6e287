// Package store is the boundary between the checkout flow and the database.
// Every mutation of an order's payment axis is expressed as a conditional
// update keyed on the current payment status, so concurrent finalization
// attempts are safe without locks.
package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
)

// CheckoutItem is a requested order line. The store resolves the product name
// and effective unit price itself so clients cannot dictate prices.
type CheckoutItem struct {
	ProductID primitive.ObjectID
	Quantity  int
}

// OrderStore persists orders and applies the conditional state transitions the
// reconciliation flow depends on.
type OrderStore interface {
	// CreateOrder snapshots the requested items against the live catalog,
	// decrements stock, computes the order total and persists the order, all
	// atomically. A duplicate order number fails with ErrDuplicateOrderNumber
	// and leaves nothing behind.
	CreateOrder(ctx context.Context, order *models.Order, items []CheckoutItem) error

	GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	GetOrderByReference(ctx context.Context, reference string) (*models.Order, error)

	// SetPaymentSession records the gateway session on the order exactly once.
	// Re-recording the same reference is a no-op; a different reference for an
	// order that already has one fails with ErrDuplicateReference.
	SetPaymentSession(ctx context.Context, orderNumber, reference, accessCode, authorizationURL string) error

	// CompletePayment flips paymentStatus pending->completed in one conditional
	// write; the fulfillment status moves pending->processing in the same write
	// but is left alone when the order already advanced or was cancelled. The
	// boolean reports whether this call performed the transition; false means
	// another path already finalized the order.
	CompletePayment(ctx context.Context, orderNumber string) (bool, error)

	// FailPayment flips paymentStatus pending->failed without touching the
	// fulfillment status. Same conditional semantics as CompletePayment.
	FailPayment(ctx context.Context, orderNumber string) (bool, error)

	// UpdateFulfillmentStatus moves the fulfillment axis from->to conditionally
	// on the order still being in from.
	UpdateFulfillmentStatus(ctx context.Context, orderNumber string, from, to models.OrderStatus) (bool, error)

	ListOrdersByUser(ctx context.Context, userID primitive.ObjectID, page, limit int64) ([]models.Order, error)
	ListOrders(ctx context.Context, status models.OrderStatus, page, limit int64) ([]models.Order, error)
}
