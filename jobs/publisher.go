package jobs

import (
	"context"

	"github.com/hibiken/asynq"

	"github.com/vlxd-erp/vlxd-erp/internal/invoices"
)

// EventPublisher enqueues notification tasks for invoice events. It
// implements invoices.EventPublisher.
type EventPublisher struct {
	client *asynq.Client
}

// NewEventPublisher constructs the publisher.
func NewEventPublisher(client *asynq.Client) *EventPublisher {
	return &EventPublisher{client: client}
}

// Publish enqueues an invoice:notify task for the event.
func (p *EventPublisher) Publish(ctx context.Context, evt invoices.Event) error {
	task, err := NewInvoiceNotifyTask(InvoiceNotifyPayload{
		Event:         evt.Type,
		InvoiceNumber: evt.Invoice.InvoiceNumber,
		CustomerName:  evt.Invoice.CustomerName,
		CustomerPhone: evt.Invoice.CustomerPhone,
		Status:        string(evt.Invoice.Status),
		PaymentStatus: string(evt.Invoice.PaymentStatus),
		Amount:        evt.Amount,
		Remaining:     evt.Invoice.RemainingAmount,
	})
	if err != nil {
		return err
	}
	_, err = p.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
	return err
}
