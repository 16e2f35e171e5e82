package invoices

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInvoice() Invoice {
	inv := Invoice{
		ID:            1,
		InvoiceNumber: "HD-20260815-0001",
		CustomerName:  "Anh Tuấn",
		CustomerPhone: "0901234567",
		Status:        StatusPending,
		PaymentStatus: PaymentUnpaid,
		Items: []LineItem{
			{MaterialID: 10, MaterialName: "Xi măng PC40", Unit: "bao", OrderedQuantity: 100, UnitPrice: 85000},
			{MaterialID: 20, MaterialName: "Thép phi 10", Unit: "cây", OrderedQuantity: 50, UnitPrice: 120000},
		},
	}
	inv.Recalculate()
	return inv
}

func TestCheckAvailabilityWithinStock(t *testing.T) {
	inv := testInvoice()
	stock := StockSnapshot{10: 200, 20: 80}

	short, err := CheckAvailability(inv, 0, 60, stock)
	require.NoError(t, err)
	assert.Nil(t, short)
}

func TestCheckAvailabilityShortfall(t *testing.T) {
	inv := testInvoice()
	stock := StockSnapshot{10: 30, 20: 80}

	short, err := CheckAvailability(inv, 0, 60, stock)
	require.NoError(t, err)
	require.NotNil(t, short)
	assert.Equal(t, int64(10), short.MaterialID)
	assert.Equal(t, 30.0, short.Available)
	assert.Equal(t, 60.0, short.AdditionalNeeded)
}

func TestCheckAvailabilityCountsOnlyAdditional(t *testing.T) {
	inv := testInvoice()
	inv.Items[0].DeliveredQuantity = 40
	inv.Recalculate()

	// 60 requested, 40 already delivered, only 20 more is needed.
	short, err := CheckAvailability(inv, 0, 60, StockSnapshot{10: 20, 20: 0})
	require.NoError(t, err)
	assert.Nil(t, short)

	short, err = CheckAvailability(inv, 0, 61, StockSnapshot{10: 20, 20: 0})
	require.NoError(t, err)
	require.NotNil(t, short)
	assert.Equal(t, 21.0, short.AdditionalNeeded)
}

func TestCheckAvailabilityReductionNeedsNoStock(t *testing.T) {
	inv := testInvoice()
	inv.Items[0].DeliveredQuantity = 40
	inv.Recalculate()

	short, err := CheckAvailability(inv, 0, 10, StockSnapshot{})
	require.NoError(t, err)
	assert.Nil(t, short)

	short, err = CheckAvailability(inv, 0, 40, StockSnapshot{})
	require.NoError(t, err)
	assert.Nil(t, short)
}

func TestCheckAvailabilityOverDelivery(t *testing.T) {
	inv := testInvoice()
	_, err := CheckAvailability(inv, 0, 101, StockSnapshot{10: 1000})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOverDelivery)
}

func TestCheckAvailabilityBadInput(t *testing.T) {
	inv := testInvoice()
	stock := StockSnapshot{10: 1000, 20: 1000}

	_, err := CheckAvailability(inv, -1, 10, stock)
	assert.ErrorIs(t, err, ErrItemIndexOutOfRange)

	_, err = CheckAvailability(inv, 5, 10, stock)
	assert.ErrorIs(t, err, ErrItemIndexOutOfRange)

	_, err = CheckAvailability(inv, 0, -1, stock)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestCheckAvailabilityUnknownMaterial(t *testing.T) {
	inv := testInvoice()
	_, err := CheckAvailability(inv, 0, 10, StockSnapshot{20: 50})
	assert.ErrorIs(t, err, ErrUnknownMaterial)
}

func TestApplyDeliveryPartial(t *testing.T) {
	inv := testInvoice()
	stock := StockSnapshot{10: 200, 20: 80}

	out, err := ApplyDelivery(inv, 0, 60, stock)
	require.NoError(t, err)
	assert.Equal(t, 60.0, out.Items[0].DeliveredQuantity)
	assert.Equal(t, DeliveryPartial, out.Items[0].DeliveryStatus)
	assert.Equal(t, StatusConfirmed, out.Status)

	// Input stays untouched.
	assert.Equal(t, 0.0, inv.Items[0].DeliveredQuantity)
	assert.Equal(t, StatusPending, inv.Status)
}

func TestApplyDeliveryCompletesInvoice(t *testing.T) {
	inv := testInvoice()
	stock := StockSnapshot{10: 200, 20: 80}

	out, err := ApplyDelivery(inv, 0, 100, stock)
	require.NoError(t, err)
	assert.Equal(t, DeliveryDelivered, out.Items[0].DeliveryStatus)
	assert.Equal(t, StatusConfirmed, out.Status)

	out, err = ApplyDelivery(out, 1, 50, stock)
	require.NoError(t, err)
	assert.Equal(t, DeliveryDelivered, out.Items[1].DeliveryStatus)
	assert.Equal(t, StatusDelivered, out.Status)
}

func TestApplyDeliveryIdempotent(t *testing.T) {
	inv := testInvoice()
	stock := StockSnapshot{10: 60, 20: 80}

	first, err := ApplyDelivery(inv, 0, 60, stock)
	require.NoError(t, err)

	// Repeating the same absolute quantity needs no stock at all.
	second, err := ApplyDelivery(first, 0, 60, StockSnapshot{})
	require.NoError(t, err)
	assert.Equal(t, first.Items[0].DeliveredQuantity, second.Items[0].DeliveredQuantity)
	assert.Equal(t, first.Status, second.Status)
}

func TestApplyDeliveryInsufficientStock(t *testing.T) {
	inv := testInvoice()
	_, err := ApplyDelivery(inv, 0, 60, StockSnapshot{10: 10, 20: 80})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Len(t, stockErr.Shortfalls, 1)
	assert.Equal(t, "Xi măng PC40", stockErr.Shortfalls[0].MaterialName)
}

func TestApplyDeliveryTerminalBlocked(t *testing.T) {
	stock := StockSnapshot{10: 1000, 20: 1000}

	inv := testInvoice()
	inv.Status = StatusCancelled
	_, err := ApplyDelivery(inv, 0, 10, stock)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	inv = testInvoice()
	inv.Status = StatusDelivered
	_, err = ApplyDelivery(inv, 0, 10, stock)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSetStatusCancel(t *testing.T) {
	inv := testInvoice()
	// Cancellation never touches stock.
	out, err := SetStatus(inv, StatusCancelled, StockSnapshot{})
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, out.Status)
}

func TestSetStatusPendingRejected(t *testing.T) {
	inv := testInvoice()
	_, err := SetStatus(inv, StatusPending, StockSnapshot{10: 1000, 20: 1000})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = SetStatus(inv, Status("shipping"), StockSnapshot{})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSetStatusTerminalBlocked(t *testing.T) {
	inv := testInvoice()
	inv.Status = StatusDelivered
	_, err := SetStatus(inv, StatusCancelled, StockSnapshot{})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSetStatusDeliveredFillsItems(t *testing.T) {
	inv := testInvoice()
	inv.Items[0].DeliveredQuantity = 40
	inv.Recalculate()

	out, err := SetStatus(inv, StatusDelivered, StockSnapshot{10: 60, 20: 50})
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, out.Status)
	for _, it := range out.Items {
		assert.Equal(t, it.OrderedQuantity, it.DeliveredQuantity)
		assert.Equal(t, DeliveryDelivered, it.DeliveryStatus)
	}
}

func TestSetStatusConsolidatesShortfalls(t *testing.T) {
	inv := testInvoice()
	_, err := SetStatus(inv, StatusDelivered, StockSnapshot{10: 10, 20: 5})
	require.Error(t, err)

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Len(t, stockErr.Shortfalls, 2)
	assert.Equal(t, int64(10), stockErr.Shortfalls[0].MaterialID)
	assert.Equal(t, int64(20), stockErr.Shortfalls[1].MaterialID)
}

func TestSetStatusSkipsDeliveredLines(t *testing.T) {
	inv := testInvoice()
	inv.Items[0].DeliveredQuantity = 100
	inv.Recalculate()

	// Line one is done, so only line two needs stock.
	out, err := SetStatus(inv, StatusDelivered, StockSnapshot{20: 50})
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, out.Status)
}

func TestDeriveStatus(t *testing.T) {
	assert.Equal(t, StatusPending, DeriveStatus(nil))
	assert.Equal(t, StatusPending, DeriveStatus([]LineItem{
		{OrderedQuantity: 10, DeliveryStatus: DeliveryPending},
	}))
	assert.Equal(t, StatusConfirmed, DeriveStatus([]LineItem{
		{OrderedQuantity: 10, DeliveryStatus: DeliveryPartial},
		{OrderedQuantity: 10, DeliveryStatus: DeliveryPending},
	}))
	assert.Equal(t, StatusDelivered, DeriveStatus([]LineItem{
		{OrderedQuantity: 10, DeliveryStatus: DeliveryDelivered},
		{OrderedQuantity: 10, DeliveryStatus: DeliveryDelivered},
	}))
}

func TestInsufficientStockErrorIs(t *testing.T) {
	err := &InsufficientStockError{Shortfalls: []Shortfall{{MaterialName: "Cát vàng", Available: 1, AdditionalNeeded: 2}}}
	assert.True(t, errors.Is(err, ErrInsufficientStock))
	assert.Contains(t, err.Error(), "Cát vàng")
}
