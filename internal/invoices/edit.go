package invoices

import "fmt"

// ValidateEditedItems validates a proposed replacement item list for an
// existing invoice and, when valid, returns the invoice with the new
// items and recomputed totals.
//
// Availability headroom adds back the quantity the invoice already holds
// for a material, so editing never double-counts its own reservation.
// When a line's new ordered quantity drops below what was already
// delivered, the delivered quantity is clamped down: an order cannot
// retroactively have delivered more than it now contains.
//
// Every failing item produces one problem message; all problems are
// returned together inside EditValidationError.
func ValidateEditedItems(original Invoice, proposed []LineItem, stock StockView) (Invoice, error) {
	if original.Status.IsTerminal() {
		return original, fmt.Errorf("invoice %s is %s: %w", original.InvoiceNumber, original.Status, ErrInvalidTransition)
	}
	if len(proposed) == 0 {
		return original, ErrEmptyItems
	}

	existing := make(map[int64]LineItem, len(original.Items))
	for _, it := range original.Items {
		existing[it.MaterialID] = it
	}

	var problems []string
	items := make([]LineItem, 0, len(proposed))
	seen := make(map[int64]bool, len(proposed))
	for _, p := range proposed {
		if seen[p.MaterialID] {
			problems = append(problems, fmt.Sprintf("%s: listed more than once", p.MaterialName))
			continue
		}
		seen[p.MaterialID] = true

		if p.OrderedQuantity <= 0 {
			problems = append(problems, fmt.Sprintf("%s: quantity must be greater than zero", p.MaterialName))
			continue
		}
		if p.UnitPrice < 0 {
			problems = append(problems, fmt.Sprintf("%s: unit price must not be negative", p.MaterialName))
			continue
		}

		available, ok := stock.Available(p.MaterialID)
		if !ok {
			problems = append(problems, fmt.Sprintf("%s: material %d not found", p.MaterialName, p.MaterialID))
			continue
		}

		prior, had := existing[p.MaterialID]
		var originalQty float64
		if had {
			originalQty = prior.OrderedQuantity
		}
		headroom := available + originalQty
		if p.OrderedQuantity > headroom {
			problems = append(problems, fmt.Sprintf("%s: ordered %.2f exceeds available %.2f",
				p.MaterialName, p.OrderedQuantity, headroom))
			continue
		}

		item := LineItem{
			MaterialID:      p.MaterialID,
			MaterialName:    p.MaterialName,
			Unit:            p.Unit,
			OrderedQuantity: p.OrderedQuantity,
			UnitPrice:       p.UnitPrice,
			TotalPrice:      p.OrderedQuantity * p.UnitPrice,
		}
		if had {
			item.DeliveredQuantity = prior.DeliveredQuantity
			if item.DeliveredQuantity > item.OrderedQuantity {
				item.DeliveredQuantity = item.OrderedQuantity
			}
		}
		item.DeliveryStatus = DeliveryStatusFor(item.DeliveredQuantity, item.OrderedQuantity)
		items = append(items, item)
	}

	if len(problems) > 0 {
		return original, &EditValidationError{Problems: problems}
	}

	out := original.Clone()
	out.Items = items
	out.Subtotal, out.TotalAmount = ComputeTotals(items, out.DiscountRate)
	out.RemainingAmount = out.TotalAmount - out.PaidAmount
	if out.RemainingAmount < 0 {
		out.RemainingAmount = 0
	}
	out.PaymentStatus = PaymentStatusFor(out.PaidAmount, out.RemainingAmount)
	derived := DeriveStatus(items)
	if derived == StatusPending && original.Status == StatusConfirmed {
		// A manual confirmation is not undone by an item edit.
		derived = StatusConfirmed
	}
	out.Status = derived
	return out, nil
}
