package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/utafrali/ordercore/pkg/errors"
)

// Payment status constants.
const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusCompleted = "COMPLETED"
	PaymentStatusFailed    = "FAILED"
	PaymentStatusCancelled = "CANCELLED"
)

// Payment method constants.
const (
	PaymentMethodCard           = "CARD"
	PaymentMethodBankTransfer   = "BANK_TRANSFER"
	PaymentMethodVirtualAccount = "VIRTUAL_ACCOUNT"
	PaymentMethodMobilePayment  = "MOBILE_PAYMENT"
)

// Payment domain errors.
var (
	ErrOrderAlreadyPaid        = apperrors.Conflict("ORDER_ALREADY_PAID", "order is not awaiting payment")
	ErrPaymentAlreadyProcessed = apperrors.Conflict("PAYMENT_ALREADY_PROCESSED", "payment has already been processed")
	ErrPaymentAmountMismatch   = apperrors.Conflict("PAYMENT_AMOUNT_MISMATCH", "payment amount does not match the requested amount")
	ErrPaymentCannotCancel     = apperrors.Conflict("PAYMENT_CANNOT_CANCEL", "only completed payments can be cancelled")
	ErrRefundFailed            = apperrors.Conflict("REFUND_FAILED", "payment gateway refused the refund")
)

// ValidPaymentMethod reports whether the given method is supported.
func ValidPaymentMethod(method string) bool {
	switch method {
	case PaymentMethodCard, PaymentMethodBankTransfer, PaymentMethodVirtualAccount, PaymentMethodMobilePayment:
		return true
	}
	return false
}

// Payment records one payment attempt for an order. Amount is a snapshot of
// the order total at request time.
type Payment struct {
	ID              string     `json:"id"`
	OrderID         string     `json:"order_id"`
	Method          string     `json:"method"`
	Status          string     `json:"status"`
	Amount          int64      `json:"amount"`
	TransactionID   string     `json:"transaction_id"`
	PGTransactionID string     `json:"pg_transaction_id,omitempty"`
	FailReason      string     `json:"fail_reason,omitempty"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// NewPayment creates a PENDING payment with a generated transaction id.
func NewPayment(orderID, method string, amount int64, now time.Time) *Payment {
	return &Payment{
		ID:            uuid.New().String(),
		OrderID:       orderID,
		Method:        method,
		Status:        PaymentStatusPending,
		Amount:        amount,
		TransactionID: GenerateTransactionID(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// GenerateTransactionID produces a unique payment transaction id.
func GenerateTransactionID() string {
	return "PAY-" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:12])
}

// CanConfirm reports whether the payment is still awaiting confirmation.
func (p *Payment) CanConfirm() bool {
	return p.Status == PaymentStatusPending
}

// CanCancel reports whether the payment can be refunded.
func (p *Payment) CanCancel() bool {
	return p.Status == PaymentStatusCompleted
}

// Complete marks the payment COMPLETED with the gateway transaction reference.
func (p *Payment) Complete(pgTransactionID string, now time.Time) error {
	if !p.CanConfirm() {
		return ErrPaymentAlreadyProcessed
	}
	p.Status = PaymentStatusCompleted
	p.PGTransactionID = pgTransactionID
	p.PaidAt = &now
	p.UpdatedAt = now
	return nil
}

// Fail marks the payment FAILED with the gateway failure reason.
func (p *Payment) Fail(reason string, now time.Time) error {
	if !p.CanConfirm() {
		return ErrPaymentAlreadyProcessed
	}
	p.Status = PaymentStatusFailed
	p.FailReason = reason
	p.UpdatedAt = now
	return nil
}

// Cancel marks a completed payment CANCELLED (refunded).
func (p *Payment) Cancel(now time.Time) error {
	if !p.CanCancel() {
		return ErrPaymentCannotCancel
	}
	p.Status = PaymentStatusCancelled
	p.CancelledAt = &now
	p.UpdatedAt = now
	return nil
}
