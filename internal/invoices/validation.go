package invoices

import "fmt"

// ValidateCreateRequest validates business rules on a create request.
func ValidateCreateRequest(req CreateRequest) error {
	if len(req.Items) == 0 {
		return ErrEmptyItems
	}
	return validateItemRequests(req.Items)
}

// ValidateUpdateItemsRequest validates business rules on an item edit.
func ValidateUpdateItemsRequest(req UpdateItemsRequest) error {
	if len(req.Items) == 0 {
		return ErrEmptyItems
	}
	return validateItemRequests(req.Items)
}

func validateItemRequests(items []ItemRequest) error {
	for i, it := range items {
		if it.OrderedQuantity <= 0 {
			return fmt.Errorf("item %d: %w", i+1, ErrInvalidAmount)
		}
	}
	return nil
}
