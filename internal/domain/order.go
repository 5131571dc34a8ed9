package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/utafrali/ordercore/pkg/errors"
)

// Order status constants.
const (
	OrderStatusPendingPayment = "PENDING_PAYMENT"
	OrderStatusPaid           = "PAID"
	OrderStatusPreparing      = "PREPARING"
	OrderStatusShipped        = "SHIPPED"
	OrderStatusDelivered      = "DELIVERED"
	OrderStatusCancelled      = "CANCELLED"
)

// Order represents a customer order and its lifecycle state. All state
// transitions go through the methods below; they validate the current status
// and never touch other aggregates.
type Order struct {
	ID              string          `json:"id"`
	OrderNumber     string          `json:"order_number"`
	MemberID        string          `json:"member_id"`
	Status          string          `json:"status"`
	Items           []OrderItem     `json:"items"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	PaymentMethod   string          `json:"payment_method,omitempty"`
	TransactionID   string          `json:"transaction_id,omitempty"`
	ShippingFee     int64           `json:"shipping_fee"`
	DiscountAmount  int64           `json:"discount_amount"`
	TotalAmount     int64           `json:"total_amount"`
	TrackingNumber  string          `json:"tracking_number,omitempty"`
	CancelReason    string          `json:"cancel_reason,omitempty"`
	PaidAt          *time.Time      `json:"paid_at,omitempty"`
	ShippedAt       *time.Time      `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time      `json:"delivered_at,omitempty"`
	CancelledAt     *time.Time      `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ShippingAddress is the immutable delivery address snapshot taken at placement.
type ShippingAddress struct {
	RecipientName  string `json:"recipient_name"`
	RecipientPhone string `json:"recipient_phone"`
	ZipCode        string `json:"zip_code"`
	Address        string `json:"address"`
	AddressDetail  string `json:"address_detail,omitempty"`
}

// ValidStatuses returns all valid order statuses.
func ValidStatuses() []string {
	return []string{
		OrderStatusPendingPayment,
		OrderStatusPaid,
		OrderStatusPreparing,
		OrderStatusShipped,
		OrderStatusDelivered,
		OrderStatusCancelled,
	}
}

// IsValidStatus checks if a status string is valid.
func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// AllowedTransitions defines which status transitions are valid. Cancellation
// is only reachable before fulfilment starts.
func AllowedTransitions() map[string][]string {
	return map[string][]string{
		OrderStatusPendingPayment: {OrderStatusPaid, OrderStatusCancelled},
		OrderStatusPaid:           {OrderStatusPreparing, OrderStatusCancelled},
		OrderStatusPreparing:      {OrderStatusShipped},
		OrderStatusShipped:        {OrderStatusDelivered},
		OrderStatusDelivered:      {},
		OrderStatusCancelled:      {},
	}
}

// CanTransitionTo checks if the order can transition to the target status.
func (o *Order) CanTransitionTo(target string) bool {
	allowed, ok := AllowedTransitions()[o.Status]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// GenerateOrderNumber produces a human-facing order number.
func GenerateOrderNumber() string {
	return "ORD-" + strings.ToUpper(uuid.New().String()[:8])
}

// CalculateTotal returns the payable total: the sum of subtotals of items that
// are still ORDERED, plus shipping fee, minus the discount. May be negative;
// ValidateForPlacement rejects negative totals at placement time.
func (o *Order) CalculateTotal() int64 {
	var subtotal int64
	for i := range o.Items {
		if o.Items[i].Status == OrderItemStatusOrdered {
			subtotal += o.Items[i].Subtotal()
		}
	}
	return subtotal + o.ShippingFee - o.DiscountAmount
}

// OrderedItemCount returns the number of items that are still ORDERED.
func (o *Order) OrderedItemCount() int {
	n := 0
	for i := range o.Items {
		if o.Items[i].Status == OrderItemStatusOrdered {
			n++
		}
	}
	return n
}

// ValidateForPlacement checks the invariants that must hold before an order is
// persisted for the first time.
func (o *Order) ValidateForPlacement() error {
	if o.MemberID == "" {
		return apperrors.InvalidInput("member_id is required")
	}
	if len(o.Items) == 0 {
		return apperrors.InvalidInput("order must contain at least one item")
	}
	for i := range o.Items {
		if err := o.Items[i].validate(); err != nil {
			return err
		}
	}
	if err := o.ShippingAddress.validate(); err != nil {
		return err
	}
	if o.ShippingFee < 0 {
		return apperrors.InvalidInput("shipping_fee must be non-negative")
	}
	if o.DiscountAmount < 0 {
		return apperrors.InvalidInput("discount_amount must be non-negative")
	}
	if o.CalculateTotal() < 0 {
		return apperrors.InvalidInput("order total must not be negative")
	}
	return nil
}

func (a *ShippingAddress) validate() error {
	if a.RecipientName == "" {
		return apperrors.InvalidInput("recipient_name is required")
	}
	if a.RecipientPhone == "" {
		return apperrors.InvalidInput("recipient_phone is required")
	}
	if len(a.ZipCode) != 5 {
		return apperrors.InvalidInput("zip_code must be exactly 5 digits")
	}
	for _, c := range a.ZipCode {
		if c < '0' || c > '9' {
			return apperrors.InvalidInput("zip_code must be exactly 5 digits")
		}
	}
	if a.Address == "" {
		return apperrors.InvalidInput("address is required")
	}
	return nil
}

// MarkAsPaid transitions the order to PAID, recording the payment method and
// transaction id. Requires at least one ORDERED item.
func (o *Order) MarkAsPaid(method, transactionID string, now time.Time) error {
	if !o.CanTransitionTo(OrderStatusPaid) {
		return invalidTransition(o.Status, OrderStatusPaid)
	}
	if o.OrderedItemCount() == 0 {
		return apperrors.InvalidState("order has no items to pay for")
	}
	o.Status = OrderStatusPaid
	o.PaymentMethod = method
	o.TransactionID = transactionID
	o.PaidAt = &now
	o.UpdatedAt = now
	return nil
}

// StartPreparing transitions the order to PREPARING.
func (o *Order) StartPreparing(now time.Time) error {
	if !o.CanTransitionTo(OrderStatusPreparing) {
		return invalidTransition(o.Status, OrderStatusPreparing)
	}
	o.Status = OrderStatusPreparing
	o.UpdatedAt = now
	return nil
}

// Ship transitions the order to SHIPPED with a tracking number.
func (o *Order) Ship(trackingNumber string, now time.Time) error {
	if !o.CanTransitionTo(OrderStatusShipped) {
		return invalidTransition(o.Status, OrderStatusShipped)
	}
	if strings.TrimSpace(trackingNumber) == "" {
		return apperrors.InvalidInput("tracking_number is required")
	}
	o.Status = OrderStatusShipped
	o.TrackingNumber = trackingNumber
	o.ShippedAt = &now
	o.UpdatedAt = now
	return nil
}

// Deliver transitions the order to DELIVERED.
func (o *Order) Deliver(now time.Time) error {
	if !o.CanTransitionTo(OrderStatusDelivered) {
		return invalidTransition(o.Status, OrderStatusDelivered)
	}
	o.Status = OrderStatusDelivered
	o.DeliveredAt = &now
	o.UpdatedAt = now
	return nil
}

// Cancel transitions the order to CANCELLED with a reason.
func (o *Order) Cancel(reason string, now time.Time) error {
	if !o.CanTransitionTo(OrderStatusCancelled) {
		return invalidTransition(o.Status, OrderStatusCancelled)
	}
	o.Status = OrderStatusCancelled
	o.CancelReason = reason
	o.CancelledAt = &now
	o.UpdatedAt = now
	return nil
}

func invalidTransition(from, to string) error {
	return apperrors.InvalidState(fmt.Sprintf("cannot transition order from %s to %s", from, to))
}
