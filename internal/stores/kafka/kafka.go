package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

const (
	TopicOrderPaid            = `order-service.order-paid`
	TopicPrescriptionReviewed = `prescription-service.prescription-reviewed`
)

// OrderPaidEvent is published once the payment provider confirms payment.
type OrderPaidEvent struct {
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	UserID      string    `json:"user_id"`
	TotalAmount string    `json:"total_amount"`
	CreatedAt   time.Time `json:"created_at"`
}

// PrescriptionReviewedEvent is published when a pharmacist verifies or
// rejects a prescription.
type PrescriptionReviewedEvent struct {
	PrescriptionID string    `json:"prescription_id"`
	UserID         string    `json:"user_id"`
	Status         string    `json:"status"`
	ReviewedBy     string    `json:"reviewed_by"`
	CreatedAt      time.Time `json:"created_at"`
}

// Conf wraps the Kafka producer client.
type Conf struct {
	client *kgo.Client
}

func NewConf(brokers []string) (*Conf, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}
	return &Conf{client: client}, nil
}

// ProduceMessage publishes one record synchronously.
func (c *Conf) ProduceMessage(topic string, key, value []byte) error {
	record := &kgo.Record{Topic: topic, Key: key, Value: value}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("failed to produce message to %s: %w", topic, err)
	}
	return nil
}

func (c *Conf) Close() {
	c.client.Close()
}
