package invoices

import "context"

// Event types emitted after successful operations.
const (
	EventPayment  = "payment"
	EventDelivery = "delivery"
	EventStatus   = "status"
)

// Event describes a committed state change. The engine itself never
// notifies anyone; the calling layer publishes these after the write.
type Event struct {
	Type    string  `json:"type"`
	Invoice Invoice `json:"invoice"`
	Amount  float64 `json:"amount,omitempty"`
}

// EventPublisher forwards events to the notification layer. Publishing
// is best effort: a failed publish never fails the operation.
type EventPublisher interface {
	Publish(ctx context.Context, evt Event) error
}
