// Package events publishes order lifecycle notifications to a broker.
// Publishing is best effort: callers log failures and carry on.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"
)

const (
	OrderPlaced        = "order.placed"
	OrderPaid          = "order.paid"
	OrderPaymentFailed = "order.payment_failed"
	OrderStatusChanged = "order.status_changed"
	OrderBikerAssigned = "order.biker_assigned"
	OrderRefundDue     = "order.refund_due"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

// OrderEvent is the payload for every order subject.
type OrderEvent struct {
	OrderID    string    `json:"order_id"`
	UserID     string    `json:"user_id"`
	Status     string    `json:"status"`
	Payment    bool      `json:"payment"`
	Amount     string    `json:"amount"`
	BikerID    string    `json:"biker_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// New picks a publisher by broker name: "nats", "amqp" or "log".
func New(broker, natsURL, amqpURL string) (Publisher, error) {
	switch broker {
	case "nats":
		return NewNATSPublisher(natsURL)
	case "amqp":
		return NewAMQPPublisher(amqpURL)
	case "log", "":
		return LogPublisher{}, nil
	default:
		return nil, fmt.Errorf("unknown event broker %q", broker)
	}
}

// LogPublisher writes events to the standard logger only.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}
	log.Printf("[EVENTS] [INFO] %s %s", subject, payload)
	return nil
}

func (LogPublisher) Close() error { return nil }
