package domain

import (
	apperrors "github.com/utafrali/ordercore/pkg/errors"
)

// Order item status constants.
const (
	OrderItemStatusOrdered   = "ORDERED"
	OrderItemStatusCancelled = "CANCELLED"
)

// OrderItem represents a line item in an order. ProductName and OptionName are
// snapshots taken at placement; later catalog changes do not affect the order.
type OrderItem struct {
	ID              string `json:"id"`
	OrderID         string `json:"order_id"`
	ProductID       string `json:"product_id"`
	ProductOptionID string `json:"product_option_id,omitempty"`
	ProductName     string `json:"product_name"`
	OptionName      string `json:"option_name,omitempty"`
	UnitPrice       int64  `json:"unit_price"`
	Quantity        int    `json:"quantity"`
	Status          string `json:"status"`
}

// Subtotal returns unit price times quantity for this line.
func (i *OrderItem) Subtotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

func (i *OrderItem) validate() error {
	if i.ProductID == "" {
		return apperrors.InvalidInput("product_id is required")
	}
	if i.ProductName == "" {
		return apperrors.InvalidInput("product_name is required")
	}
	if i.UnitPrice < 0 {
		return apperrors.InvalidInput("unit_price must be non-negative")
	}
	if i.Quantity < 1 {
		return apperrors.InvalidInput("quantity must be at least 1")
	}
	return nil
}
