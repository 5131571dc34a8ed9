package domain

import (
	"fmt"
	"time"

	apperrors "github.com/utafrali/ordercore/pkg/errors"
)

// Stock movement reason constants.
const (
	MovementReasonOrder      = "order"
	MovementReasonCancel     = "cancel"
	MovementReasonAdjustment = "adjustment"
)

// Stock tracks the on-hand quantity of a product option. Options-less
// products use an empty ProductOptionID.
type Stock struct {
	ID              string    `json:"id"`
	ProductID       string    `json:"product_id"`
	ProductOptionID string    `json:"product_option_id,omitempty"`
	Quantity        int       `json:"quantity"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// StockMovement is an audit record of a quantity change.
type StockMovement struct {
	ID              string    `json:"id"`
	ProductID       string    `json:"product_id"`
	ProductOptionID string    `json:"product_option_id,omitempty"`
	QuantityChange  int       `json:"quantity_change"`
	Reason          string    `json:"reason"`
	ReferenceID     string    `json:"reference_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// IsValidMovementReason checks if a movement reason string is valid.
func IsValidMovementReason(reason string) bool {
	switch reason {
	case MovementReasonOrder, MovementReasonCancel, MovementReasonAdjustment:
		return true
	}
	return false
}

// InsufficientStock builds the error returned when a decrement would drive the
// quantity negative.
func InsufficientStock(productID string, requested, available int) error {
	return apperrors.Conflict("INSUFFICIENT_STOCK", fmt.Sprintf(
		"insufficient stock for product %s: requested %d, available %d",
		productID, requested, available,
	))
}
