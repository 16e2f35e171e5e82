package invoices

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors for invoices.
var (
	// ErrNotFound indicates the requested invoice was not found.
	ErrNotFound = errors.New("invoice not found")

	// ErrInvalidAmount indicates a zero or negative quantity or payment amount.
	ErrInvalidAmount = errors.New("amount must be greater than zero")
	// ErrOverDelivery indicates a delivered quantity above the ordered quantity.
	ErrOverDelivery = errors.New("delivered quantity exceeds ordered quantity")
	// ErrAmountExceedsRemaining indicates a payment above the open balance.
	ErrAmountExceedsRemaining = errors.New("payment exceeds remaining amount")
	// ErrInvalidTransition indicates a change requested on a terminal invoice
	// or an unreachable target status.
	ErrInvalidTransition = errors.New("invalid invoice status transition")
	// ErrInsufficientStock indicates a delivery exceeding available stock.
	// Returned wrapped inside InsufficientStockError.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidEdit indicates a rejected item edit. Returned wrapped inside
	// EditValidationError.
	ErrInvalidEdit = errors.New("invalid invoice edit")
	// ErrItemIndexOutOfRange indicates a line item index outside the invoice.
	ErrItemIndexOutOfRange = errors.New("line item index out of range")
	// ErrEmptyItems indicates an invoice without line items.
	ErrEmptyItems = errors.New("at least one line item is required")
	// ErrUnknownMaterial indicates a line referencing a material that does
	// not exist in the ledger snapshot.
	ErrUnknownMaterial = errors.New("unknown material")
)

// Shortfall describes one line's stock deficit.
type Shortfall struct {
	MaterialID       int64   `json:"material_id"`
	MaterialName     string  `json:"material_name"`
	Available        float64 `json:"available"`
	AdditionalNeeded float64 `json:"additional_needed"`
}

func (s Shortfall) String() string {
	return fmt.Sprintf("%s: need %.2f more, only %.2f available", s.MaterialName, s.AdditionalNeeded, s.Available)
}

// InsufficientStockError carries every shortfall found by a check so the
// caller can show one consolidated message.
type InsufficientStockError struct {
	Shortfalls []Shortfall
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, len(e.Shortfalls))
	for i, s := range e.Shortfalls {
		parts[i] = s.String()
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}

// Is makes errors.Is(err, ErrInsufficientStock) work.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// EditValidationError carries every problem found when validating a
// proposed item list, not just the first.
type EditValidationError struct {
	Problems []string
}

func (e *EditValidationError) Error() string {
	return "invalid invoice edit: " + strings.Join(e.Problems, "; ")
}

// Is makes errors.Is(err, ErrInvalidEdit) work.
func (e *EditValidationError) Is(target error) bool {
	return target == ErrInvalidEdit
}
