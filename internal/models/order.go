package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderStatus tracks the fulfillment axis of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// PaymentStatus tracks the financial axis of an order, independent of fulfillment.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// OrderItem is a snapshot of a product at order time. Name and price are copied
// from the catalog when the order is created and never follow later edits.
type OrderItem struct {
	ProductID primitive.ObjectID `bson:"productId" json:"productId"`
	Name      string             `bson:"name" json:"name"`
	Price     float64            `bson:"price" json:"price"`
	Quantity  int                `bson:"quantity" json:"quantity"`
}

// OrderAddress holds the structured shipping or billing address captured at checkout.
type OrderAddress struct {
	FirstName  string `bson:"firstName" json:"firstName"`
	LastName   string `bson:"lastName" json:"lastName"`
	Address    string `bson:"address" json:"address"`
	City       string `bson:"city" json:"city"`
	Region     string `bson:"region" json:"region"`
	PostalCode string `bson:"postalCode,omitempty" json:"postalCode,omitempty"`
	Phone      string `bson:"phone" json:"phone"`
	Email      string `bson:"email" json:"email"`
}

// Order is the persisted order document. OrderNumber is the customer-facing
// identifier and doubles as the gateway-side transaction reference.
type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrderNumber     string             `bson:"orderNumber" json:"orderNumber"`
	UserID          primitive.ObjectID `bson:"userId" json:"userId"`
	Items           []OrderItem        `bson:"items" json:"items"`
	ShippingAddress OrderAddress       `bson:"shippingAddress" json:"shippingAddress"`
	BillingAddress  OrderAddress       `bson:"billingAddress" json:"billingAddress"`
	TotalAmount     float64            `bson:"totalAmount" json:"totalAmount"`
	DeliveryFee     float64            `bson:"deliveryFee" json:"deliveryFee"`
	Status          OrderStatus        `bson:"status" json:"status"`
	PaymentStatus   PaymentStatus      `bson:"paymentStatus" json:"paymentStatus"`
	PaymentMethod   string             `bson:"paymentMethod" json:"paymentMethod"`

	// Gateway session fields, set once by payment initiation and reused on
	// re-initiation so one order never owns two payable sessions.
	PaymentReference        string `bson:"paymentReference,omitempty" json:"paymentReference,omitempty"`
	PaymentAccessCode       string `bson:"paymentAccessCode,omitempty" json:"-"`
	PaymentAuthorizationURL string `bson:"paymentAuthorizationUrl,omitempty" json:"-"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// ItemsTotal sums the snapshotted line items. TotalAmount is ItemsTotal plus the
// delivery fee, computed once at creation and never recomputed afterwards.
func (o *Order) ItemsTotal() float64 {
	var total float64
	for _, item := range o.Items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}

// PaymentFinalized reports whether the payment axis has reached a terminal state.
func (o *Order) PaymentFinalized() bool {
	return o.PaymentStatus == PaymentStatusCompleted || o.PaymentStatus == PaymentStatusFailed
}

var fulfillmentTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
}

// CanTransitionTo reports whether the fulfillment axis may move from the current
// status to next. Delivered and cancelled are terminal.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range fulfillmentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ValidOrderStatus reports whether the value is a known fulfillment status.
func ValidOrderStatus(s OrderStatus) bool {
	_, ok := fulfillmentTransitions[s]
	return ok
}
