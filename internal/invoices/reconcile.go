package invoices

import "fmt"

// StockView is a read-only snapshot of available stock taken for one
// operation. Engines only read availability; the service layer commits
// any stock delta in the same transaction as the invoice write.
type StockView interface {
	// Available returns current available quantity and whether the
	// material exists in the ledger.
	Available(materialID int64) (float64, bool)
}

// StockSnapshot is a materialID -> available quantity map implementing
// StockView. Used by the service layer and by tests.
type StockSnapshot map[int64]float64

// Available implements StockView.
func (s StockSnapshot) Available(materialID int64) (float64, bool) {
	qty, ok := s[materialID]
	return qty, ok
}

// CheckAvailability validates a requested absolute delivered quantity for
// one line item against the stock snapshot. A nil shortfall with nil error
// means the change is allowed. Reducing the delivered quantity never
// requires stock.
func CheckAvailability(inv Invoice, itemIndex int, requested float64, stock StockView) (*Shortfall, error) {
	if itemIndex < 0 || itemIndex >= len(inv.Items) {
		return nil, fmt.Errorf("%w: %d", ErrItemIndexOutOfRange, itemIndex)
	}
	if requested < 0 {
		return nil, fmt.Errorf("delivered quantity %.2f: %w", requested, ErrInvalidAmount)
	}
	item := inv.Items[itemIndex]
	if requested > item.OrderedQuantity {
		return nil, fmt.Errorf("%s: requested %.2f of %.2f ordered: %w",
			item.MaterialName, requested, item.OrderedQuantity, ErrOverDelivery)
	}
	additional := requested - item.DeliveredQuantity
	if additional <= 0 {
		return nil, nil
	}
	available, ok := stock.Available(item.MaterialID)
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrUnknownMaterial, item.MaterialID)
	}
	if additional > available {
		return &Shortfall{
			MaterialID:       item.MaterialID,
			MaterialName:     item.MaterialName,
			Available:        available,
			AdditionalNeeded: additional,
		}, nil
	}
	return nil, nil
}

// ApplyDelivery sets the absolute delivered quantity of one line item and
// re-derives the item and invoice statuses. The input invoice is never
// mutated; calling twice with the same quantity yields the same result.
func ApplyDelivery(inv Invoice, itemIndex int, newDelivered float64, stock StockView) (Invoice, error) {
	if inv.Status.IsTerminal() {
		return inv, fmt.Errorf("invoice %s is %s: %w", inv.InvoiceNumber, inv.Status, ErrInvalidTransition)
	}
	short, err := CheckAvailability(inv, itemIndex, newDelivered, stock)
	if err != nil {
		return inv, err
	}
	if short != nil {
		return inv, &InsufficientStockError{Shortfalls: []Shortfall{*short}}
	}

	out := inv.Clone()
	item := &out.Items[itemIndex]
	item.DeliveredQuantity = newDelivered
	item.DeliveryStatus = DeliveryStatusFor(item.DeliveredQuantity, item.OrderedQuantity)
	out.Status = DeriveStatus(out.Items)
	return out, nil
}

// SetStatus applies a manual operator status transition. Pending is only
// ever an initial or derived state, never a manual target. Before moving
// to confirmed or delivered, every undelivered remainder is checked
// against stock and all shortfalls are reported together. Delivered and
// cancelled are terminal.
func SetStatus(inv Invoice, target Status, stock StockView) (Invoice, error) {
	if !target.IsValid() || target == StatusPending {
		return inv, fmt.Errorf("target %q: %w", target, ErrInvalidTransition)
	}
	if inv.Status.IsTerminal() {
		return inv, fmt.Errorf("invoice %s is %s: %w", inv.InvoiceNumber, inv.Status, ErrInvalidTransition)
	}

	out := inv.Clone()
	if target == StatusCancelled {
		out.Status = StatusCancelled
		return out, nil
	}

	var shortfalls []Shortfall
	for i, item := range inv.Items {
		if item.RemainingToDeliver() <= 0 {
			continue
		}
		short, err := CheckAvailability(inv, i, item.OrderedQuantity, stock)
		if err != nil {
			return inv, err
		}
		if short != nil {
			shortfalls = append(shortfalls, *short)
		}
	}
	if len(shortfalls) > 0 {
		return inv, &InsufficientStockError{Shortfalls: shortfalls}
	}

	if target == StatusDelivered {
		for i := range out.Items {
			out.Items[i].DeliveredQuantity = out.Items[i].OrderedQuantity
			out.Items[i].DeliveryStatus = DeliveryDelivered
		}
	}
	out.Status = target
	return out, nil
}
