// Package jobs contains the background worker: notification fan-out and
// the scheduled low-stock scan.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskInvoiceNotify is the task type for invoice event notifications.
	TaskInvoiceNotify = "invoice:notify"
	// TaskLowStockScan is the task type for the scheduled stock scan.
	TaskLowStockScan = "inventory:lowstock_scan"
)

// vnd formats amounts with Vietnamese digit grouping.
var vnd = message.NewPrinter(language.Vietnamese)

// InvoiceNotifyPayload describes an invoice event to notify on.
type InvoiceNotifyPayload struct {
	EventID       string  `json:"event_id"`
	Event         string  `json:"event"`
	InvoiceNumber string  `json:"invoice_number"`
	CustomerName  string  `json:"customer_name"`
	CustomerPhone string  `json:"customer_phone"`
	Status        string  `json:"status"`
	PaymentStatus string  `json:"payment_status"`
	Amount        float64 `json:"amount,omitempty"`
	Remaining     float64 `json:"remaining"`
}

// Message renders the customer-facing notification text.
func (p InvoiceNotifyPayload) Message() string {
	switch p.Event {
	case "payment":
		return vnd.Sprintf("Hóa đơn %s: đã nhận thanh toán %.0f₫, còn lại %.0f₫",
			p.InvoiceNumber, p.Amount, p.Remaining)
	case "delivery":
		return vnd.Sprintf("Hóa đơn %s: cập nhật giao hàng, trạng thái %s", p.InvoiceNumber, p.Status)
	default:
		return vnd.Sprintf("Hóa đơn %s: trạng thái %s", p.InvoiceNumber, p.Status)
	}
}

// NewInvoiceNotifyTask constructs an Asynq task for an invoice event.
// An event ID is assigned when the caller leaves it empty.
func NewInvoiceNotifyTask(payload InvoiceNotifyPayload) (*asynq.Task, error) {
	if payload.EventID == "" {
		payload.EventID = uuid.NewString()
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInvoiceNotify, data), nil
}

// HandleInvoiceNotifyTask processes TaskInvoiceNotify tasks.
func HandleInvoiceNotifyTask(ctx context.Context, t *asynq.Task) error {
	var payload InvoiceNotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	// Delivery channel (SMS/Zalo) is wired by the operator; stdout keeps
	// the pipeline observable until then.
	fmt.Printf("[jobs] notify %s %s: %s\n", payload.EventID, payload.CustomerPhone, payload.Message())
	return nil
}

// NewLowStockScanTask constructs the scheduled scan task.
func NewLowStockScanTask() *asynq.Task {
	return asynq.NewTask(TaskLowStockScan, nil)
}
