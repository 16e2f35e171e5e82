package invoices

import (
	"time"

	"github.com/vlxd-erp/vlxd-erp/internal/shared"
)

// CreateRequest represents a request to create an invoice.
type CreateRequest struct {
	CustomerName    string        `json:"customer_name" validate:"required,max=200"`
	CustomerPhone   string        `json:"customer_phone" validate:"omitempty,max=20"`
	CustomerAddress string        `json:"customer_address" validate:"omitempty,max=500"`
	DiscountRate    float64       `json:"discount_rate" validate:"gte=0,lte=100"`
	PaymentMethod   string        `json:"payment_method" validate:"omitempty,oneof=cash transfer debt"`
	Notes           *string       `json:"notes,omitempty"`
	DeliveryDate    *time.Time    `json:"delivery_date,omitempty"`
	Items           []ItemRequest `json:"items" validate:"required,min=1,dive"`
}

// ItemRequest is one line in a create or edit request.
type ItemRequest struct {
	MaterialID      int64   `json:"material_id" validate:"required,gt=0"`
	OrderedQuantity float64 `json:"ordered_quantity" validate:"required,gt=0"`
}

// UpdateItemsRequest replaces the item list of an existing invoice.
type UpdateItemsRequest struct {
	Items []ItemRequest `json:"items" validate:"required,min=1,dive"`
}

// DeliveryRequest sets the absolute delivered quantity of one line item.
// DeliveredQuantity is the new total, not an increment.
type DeliveryRequest struct {
	ItemIndex         int     `json:"item_index" validate:"gte=0"`
	DeliveredQuantity float64 `json:"delivered_quantity" validate:"gte=0"`
}

// StatusRequest requests a manual status transition.
type StatusRequest struct {
	Status Status `json:"status" validate:"required,oneof=confirmed delivered cancelled"`
}

// PaymentRequest applies a payment to an invoice.
type PaymentRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
	Method string  `json:"method" validate:"omitempty,oneof=cash transfer"`
}

// ListRequest filters invoice listings.
type ListRequest struct {
	Status        *Status        `json:"status,omitempty"`
	PaymentStatus *PaymentStatus `json:"payment_status,omitempty"`
	Search        *string        `json:"search,omitempty"`
	DateFrom      *time.Time     `json:"date_from,omitempty"`
	DateTo        *time.Time     `json:"date_to,omitempty"`
	Limit         int            `json:"limit" validate:"gte=0,lte=1000"`
	Offset        int            `json:"offset" validate:"gte=0"`
}

// ListResponse is the paginated listing payload.
type ListResponse struct {
	Invoices   []Invoice         `json:"invoices"`
	Pagination shared.Pagination `json:"pagination"`
}
