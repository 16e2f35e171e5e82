package invoices

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessPaymentPartial(t *testing.T) {
	inv := testInvoice() // total 14,500,000

	out, err := ProcessPayment(inv, 5000000)
	require.NoError(t, err)
	assert.Equal(t, 5000000.0, out.PaidAmount)
	assert.Equal(t, inv.TotalAmount-5000000, out.RemainingAmount)
	assert.Equal(t, PaymentPartial, out.PaymentStatus)

	// Delivery axis is untouched.
	assert.Equal(t, inv.Status, out.Status)

	// Input stays untouched.
	assert.Equal(t, 0.0, inv.PaidAmount)
	assert.Equal(t, PaymentUnpaid, inv.PaymentStatus)
}

func TestProcessPaymentSettlesInvoice(t *testing.T) {
	inv := testInvoice()

	out, err := ProcessPayment(inv, 4500000)
	require.NoError(t, err)
	out, err = ProcessPayment(out, out.RemainingAmount)
	require.NoError(t, err)

	assert.Equal(t, inv.TotalAmount, out.PaidAmount)
	assert.Equal(t, 0.0, out.RemainingAmount)
	assert.Equal(t, PaymentPaid, out.PaymentStatus)
}

func TestProcessPaymentRejectsNonPositive(t *testing.T) {
	inv := testInvoice()

	_, err := ProcessPayment(inv, 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ProcessPayment(inv, -100)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestProcessPaymentRejectsOverpayment(t *testing.T) {
	inv := testInvoice()

	_, err := ProcessPayment(inv, inv.TotalAmount+1)
	assert.ErrorIs(t, err, ErrAmountExceedsRemaining)

	// A settled invoice accepts nothing more.
	out, err := ProcessPayment(inv, inv.TotalAmount)
	require.NoError(t, err)
	_, err = ProcessPayment(out, 1)
	assert.ErrorIs(t, err, ErrAmountExceedsRemaining)
}

func TestProcessPaymentIgnoresDeliveryState(t *testing.T) {
	inv := testInvoice()
	inv.Status = StatusCancelled

	// Outstanding balance on a cancelled order can still be collected.
	out, err := ProcessPayment(inv, 1000000)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, out.Status)
	assert.Equal(t, PaymentPartial, out.PaymentStatus)
}

func TestPaymentStatusFor(t *testing.T) {
	assert.Equal(t, PaymentUnpaid, PaymentStatusFor(0, 100))
	assert.Equal(t, PaymentPartial, PaymentStatusFor(40, 60))
	assert.Equal(t, PaymentPaid, PaymentStatusFor(100, 0))
	// Zero-total invoices with no payment stay unpaid.
	assert.Equal(t, PaymentUnpaid, PaymentStatusFor(0, 0))
}
