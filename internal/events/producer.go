// Package events publishes storefront events to Kafka. Admin dashboards
// subscribe to the notifications topic to learn of new back-office
// notifications in real time.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"storefront/internal/models"
)

// NotificationCreated is the feed event emitted whenever a back-office
// notification record is written.
type NotificationCreated struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	OrderNumber string    `json:"orderNumber,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Producer{writer: writer}
}

// PublishNotification emits a NotificationCreated event keyed by notification id.
func (p *Producer) PublishNotification(ctx context.Context, n *models.Notification) error {
	event := NotificationCreated{
		ID:          n.ID,
		Type:        n.Type,
		Title:       n.Title,
		Body:        n.Body,
		OrderNumber: n.OrderNumber,
		CreatedAt:   n.CreatedAt,
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(n.ID),
		Value: data,
		Time:  time.Now(),
	})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
