// Package notify fans out downstream notifications after a payment outcome is
// recorded: customer SMS, operator SMS, a back-office notification record and a
// feed event. Everything here is best-effort; a notification failure must never
// undo or block the payment transition that already happened.
package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/models"
)

// Sender delivers a text message. Implemented by sms.Client.
type Sender interface {
	Send(ctx context.Context, message string, recipients ...string) error
}

// Publisher pushes a notification onto the admin real-time feed. Implemented by
// events.Producer.
type Publisher interface {
	PublishNotification(ctx context.Context, n *models.Notification) error
}

// Recorder persists the back-office notification record.
type Recorder interface {
	Insert(ctx context.Context, n *models.Notification) error
}

type Notifier struct {
	sms           Sender
	records       Recorder
	feed          Publisher
	operatorPhone string
	currency      string
}

func New(sms Sender, records Recorder, feed Publisher, operatorPhone, currency string) *Notifier {
	return &Notifier{
		sms:           sms,
		records:       records,
		feed:          feed,
		operatorPhone: operatorPhone,
		currency:      currency,
	}
}

// PaymentReceived runs the full fan-out for a freshly completed payment. The
// caller invokes it exactly once, on the path that won the conditional update.
func (n *Notifier) PaymentReceived(ctx context.Context, order *models.Order) {
	customerMsg := fmt.Sprintf(
		"Your order %s of %s %.2f has been received and is being processed. Thank you for shopping with us!",
		order.OrderNumber, n.currency, order.TotalAmount,
	)
	if err := n.sms.Send(ctx, customerMsg, order.ShippingAddress.Phone); err != nil {
		log.Println("[NOTIFY] [ERROR] customer sms failed:", err)
	}

	if n.operatorPhone != "" {
		operatorMsg := fmt.Sprintf(
			"New paid order %s: %s %.2f for %s %s (%s)",
			order.OrderNumber, n.currency, order.TotalAmount,
			order.ShippingAddress.FirstName, order.ShippingAddress.LastName,
			order.ShippingAddress.Phone,
		)
		if err := n.sms.Send(ctx, operatorMsg, n.operatorPhone); err != nil {
			log.Println("[NOTIFY] [ERROR] operator sms failed:", err)
		}
	}

	n.record(ctx, &models.Notification{
		ID:          uuid.NewString(),
		Type:        models.NotificationTypeOrderPaid,
		Title:       "Order paid",
		Body:        fmt.Sprintf("Order %s paid: %s %.2f", order.OrderNumber, n.currency, order.TotalAmount),
		OrderNumber: order.OrderNumber,
		CreatedAt:   time.Now(),
	})
}

// PaymentFailed records the failed attempt for the back office. No customer
// SMS; the storefront already shows the failure.
func (n *Notifier) PaymentFailed(ctx context.Context, order *models.Order) {
	n.record(ctx, &models.Notification{
		ID:          uuid.NewString(),
		Type:        models.NotificationTypeOrderFailed,
		Title:       "Payment failed",
		Body:        fmt.Sprintf("Payment for order %s was not confirmed by the gateway", order.OrderNumber),
		OrderNumber: order.OrderNumber,
		CreatedAt:   time.Now(),
	})
}

func (n *Notifier) record(ctx context.Context, notification *models.Notification) {
	if err := n.records.Insert(ctx, notification); err != nil {
		log.Println("[NOTIFY] [ERROR] notification insert failed:", err)
	}
	if n.feed != nil {
		if err := n.feed.PublishNotification(ctx, notification); err != nil {
			log.Println("[NOTIFY] [ERROR] feed publish failed:", err)
		}
	}
}

// MongoRecorder writes notification records to the notifications collection.
type MongoRecorder struct {
	db *mongo.Database
}

func NewMongoRecorder(db *mongo.Database) *MongoRecorder {
	return &MongoRecorder{db: db}
}

func (r *MongoRecorder) Insert(ctx context.Context, n *models.Notification) error {
	_, err := r.db.Collection("notifications").InsertOne(ctx, n)
	return err
}
