package invoices

import (
	"fmt"
	"math"
)

// ProcessPayment applies a payment amount to the invoice and recomputes
// the payment fields. Payment and delivery are independent axes, so the
// order status is never touched. Overpayment is rejected, never clamped.
func ProcessPayment(inv Invoice, amount float64) (Invoice, error) {
	if amount <= 0 {
		return inv, fmt.Errorf("payment %.2f: %w", amount, ErrInvalidAmount)
	}
	if amount > inv.RemainingAmount {
		return inv, fmt.Errorf("payment %.2f, remaining %.2f: %w",
			amount, inv.RemainingAmount, ErrAmountExceedsRemaining)
	}

	out := inv.Clone()
	out.PaidAmount += amount
	out.RemainingAmount = math.Max(0, out.TotalAmount-out.PaidAmount)
	out.PaymentStatus = PaymentStatusFor(out.PaidAmount, out.RemainingAmount)
	return out, nil
}
