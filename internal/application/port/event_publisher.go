package port

import (
	"context"
	"time"
)

// Order lifecycle subjects.
const (
	SubjectOrderCreated = "orders.created"
	SubjectOrderUpdated = "orders.updated"
	SubjectOrderDeleted = "orders.deleted"
)

// OrderEvent is the payload published on the order subjects.
type OrderEvent struct {
	OrderID    int64     `json:"order_id"`
	Item       string    `json:"item,omitempty"`
	Quantity   int       `json:"quantity,omitempty"`
	Amount     float64   `json:"amount,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher defines the interface for publishing events to a message broker
type EventPublisher interface {
	// PublishEvent publishes an event to the specified subject
	PublishEvent(ctx context.Context, subject string, event interface{}) error

	// Close closes the connection to the message broker
	Close() error
}
