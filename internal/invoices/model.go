// Package invoices implements the sales invoice aggregate: delivery
// reconciliation, payment processing and edit validation.
package invoices

import (
	"math"
	"time"
)

// Status represents the lifecycle of an invoice.
type Status string

const (
	StatusPending   Status = "pending"   // No delivery progress yet
	StatusConfirmed Status = "confirmed" // Partial delivery progress
	StatusDelivered Status = "delivered" // All items fully delivered
	StatusCancelled Status = "cancelled" // Cancelled by operator
)

// IsValid checks if the status is valid.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusDelivered, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status blocks further delivery or
// status changes.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// DeliveryStatus tracks how much of a line item has been delivered.
type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliveryPartial   DeliveryStatus = "partial"
	DeliveryDelivered DeliveryStatus = "delivered"
)

// PaymentStatus tracks paid versus total amount.
type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// LineItem is one material position on an invoice. DeliveredQuantity is
// the absolute total delivered so far, never an increment.
type LineItem struct {
	MaterialID        int64          `json:"material_id" db:"material_id"`
	MaterialName      string         `json:"material_name" db:"material_name"`
	Unit              string         `json:"unit" db:"unit"`
	OrderedQuantity   float64        `json:"ordered_quantity" db:"ordered_quantity"`
	UnitPrice         float64        `json:"unit_price" db:"unit_price"`
	TotalPrice        float64        `json:"total_price" db:"total_price"`
	DeliveredQuantity float64        `json:"delivered_quantity" db:"delivered_quantity"`
	DeliveryStatus    DeliveryStatus `json:"delivery_status" db:"delivery_status"`
}

// Invoice is the aggregate root for a customer order.
type Invoice struct {
	ID              int64         `json:"id" db:"id"`
	InvoiceNumber   string        `json:"invoice_number" db:"invoice_number"`
	CustomerName    string        `json:"customer_name" db:"customer_name"`
	CustomerPhone   string        `json:"customer_phone" db:"customer_phone"`
	CustomerAddress string        `json:"customer_address" db:"customer_address"`
	Items           []LineItem    `json:"items" db:"-"`
	DiscountRate    float64       `json:"discount_rate" db:"discount_rate"`
	Subtotal        float64       `json:"subtotal" db:"subtotal"`
	TotalAmount     float64       `json:"total_amount" db:"total_amount"`
	Status          Status        `json:"status" db:"status"`
	PaymentMethod   string        `json:"payment_method" db:"payment_method"`
	PaymentStatus   PaymentStatus `json:"payment_status" db:"payment_status"`
	PaidAmount      float64       `json:"paid_amount" db:"paid_amount"`
	RemainingAmount float64       `json:"remaining_amount" db:"remaining_amount"`
	Notes           *string       `json:"notes,omitempty" db:"notes"`
	DeliveryDate    *time.Time    `json:"delivery_date,omitempty" db:"delivery_date"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at" db:"updated_at"`
}

// DeliveryStatusFor derives per-item delivery status from quantities.
func DeliveryStatusFor(delivered, ordered float64) DeliveryStatus {
	switch {
	case delivered <= 0:
		return DeliveryPending
	case delivered >= ordered:
		return DeliveryDelivered
	default:
		return DeliveryPartial
	}
}

// PaymentStatusFor derives payment status from paid and remaining amounts.
func PaymentStatusFor(paid, remaining float64) PaymentStatus {
	switch {
	case paid <= 0:
		return PaymentUnpaid
	case remaining <= 0:
		return PaymentPaid
	default:
		return PaymentPartial
	}
}

// DeriveStatus computes the order-level status from item delivery states.
// Cancelled is never derived, only set explicitly.
func DeriveStatus(items []LineItem) Status {
	if len(items) == 0 {
		return StatusPending
	}
	allDelivered := true
	anyProgress := false
	for _, it := range items {
		switch it.DeliveryStatus {
		case DeliveryDelivered:
			anyProgress = true
		case DeliveryPartial:
			anyProgress = true
			allDelivered = false
		default:
			allDelivered = false
		}
	}
	switch {
	case allDelivered:
		return StatusDelivered
	case anyProgress:
		return StatusConfirmed
	default:
		return StatusPending
	}
}

// ComputeTotals returns subtotal and discounted total for a set of items.
func ComputeTotals(items []LineItem, discountRate float64) (subtotal, total float64) {
	for _, it := range items {
		subtotal += it.TotalPrice
	}
	total = subtotal * (1 - discountRate/100)
	return subtotal, total
}

// Recalculate refreshes every derived field on the invoice: line totals,
// delivery statuses, subtotal, total, remaining amount and payment status.
func (inv *Invoice) Recalculate() {
	for i := range inv.Items {
		it := &inv.Items[i]
		it.TotalPrice = it.OrderedQuantity * it.UnitPrice
		it.DeliveryStatus = DeliveryStatusFor(it.DeliveredQuantity, it.OrderedQuantity)
	}
	inv.Subtotal, inv.TotalAmount = ComputeTotals(inv.Items, inv.DiscountRate)
	inv.RemainingAmount = math.Max(0, inv.TotalAmount-inv.PaidAmount)
	inv.PaymentStatus = PaymentStatusFor(inv.PaidAmount, inv.RemainingAmount)
}

// Clone returns a deep copy so engine functions never mutate their input.
func (inv Invoice) Clone() Invoice {
	out := inv
	out.Items = make([]LineItem, len(inv.Items))
	copy(out.Items, inv.Items)
	if inv.Notes != nil {
		n := *inv.Notes
		out.Notes = &n
	}
	if inv.DeliveryDate != nil {
		d := *inv.DeliveryDate
		out.DeliveryDate = &d
	}
	return out
}

// RemainingToDeliver returns how much of a line is still undelivered.
func (it LineItem) RemainingToDeliver() float64 {
	return it.OrderedQuantity - it.DeliveredQuantity
}
