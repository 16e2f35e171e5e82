// Package inventory is the single source of truth for available stock
// per material.
package inventory

import (
	"errors"
	"time"
)

// Material is one stock-keeping construction material.
type Material struct {
	ID                int64     `json:"id" db:"id"`
	SKU               string    `json:"sku" db:"sku"`
	Name              string    `json:"name" db:"name"`
	Unit              string    `json:"unit" db:"unit"`
	UnitPrice         float64   `json:"unit_price" db:"unit_price"`
	AvailableQuantity float64   `json:"available_quantity" db:"available_quantity"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// Movement is one signed stock change. Positive quantities are receipts,
// negative quantities are consumption.
type Movement struct {
	ID         int64     `json:"id" db:"id"`
	MaterialID int64     `json:"material_id" db:"material_id"`
	Quantity   float64   `json:"quantity" db:"quantity"`
	Ref        string    `json:"ref" db:"ref"`
	Note       string    `json:"note" db:"note"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// CreateMaterialInput describes a new material.
type CreateMaterialInput struct {
	SKU             string  `json:"sku" validate:"required,max=50"`
	Name            string  `json:"name" validate:"required,max=200"`
	Unit            string  `json:"unit" validate:"required,max=20"`
	UnitPrice       float64 `json:"unit_price" validate:"gte=0"`
	InitialQuantity float64 `json:"initial_quantity" validate:"gte=0"`
}

// UpdateMaterialInput describes editable master data fields.
type UpdateMaterialInput struct {
	Name      *string  `json:"name,omitempty" validate:"omitempty,max=200"`
	Unit      *string  `json:"unit,omitempty" validate:"omitempty,max=20"`
	UnitPrice *float64 `json:"unit_price,omitempty" validate:"omitempty,gte=0"`
}

// ReceiveInput records inbound stock.
type ReceiveInput struct {
	Quantity float64 `json:"quantity" validate:"required,gt=0"`
	Note     string  `json:"note,omitempty" validate:"omitempty,max=500"`
}

// AdjustInput records a signed correction.
type AdjustInput struct {
	Quantity float64 `json:"quantity" validate:"required"`
	Note     string  `json:"note,omitempty" validate:"omitempty,max=500"`
}

// ListRequest filters material listings.
type ListRequest struct {
	Search *string
	Limit  int
	Offset int
}

// Domain errors.
var (
	// ErrNotFound indicates the material was not found.
	ErrNotFound = errors.New("material not found")
	// ErrNegativeStock triggered when a movement would leave negative stock.
	ErrNegativeStock = errors.New("inventory: negative stock not allowed")
	// ErrInvalidQuantity indicates a zero or wrong-signed quantity.
	ErrInvalidQuantity = errors.New("inventory: quantity must be non zero")
	// ErrDuplicateSKU indicates the SKU is already taken.
	ErrDuplicateSKU = errors.New("inventory: sku already exists")
)
