package models

import "time"

// Notification types published to the admin feed.
const (
	NotificationTypeOrderPaid   = "order_paid"
	NotificationTypeOrderFailed = "order_payment_failed"
)

// Notification is an internal audit record surfaced in the admin back-office.
// ID is a UUID so records can be created before the database round trip.
type Notification struct {
	ID          string    `bson:"_id" json:"id"`
	Type        string    `bson:"type" json:"type"`
	Title       string    `bson:"title" json:"title"`
	Body        string    `bson:"body" json:"body"`
	OrderNumber string    `bson:"orderNumber,omitempty" json:"orderNumber,omitempty"`
	Read        bool      `bson:"read" json:"read"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
}
