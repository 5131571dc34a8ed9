package gateway

import (
	"context"
)

// RequestInput holds the parameters for opening a payment session.
type RequestInput struct {
	TransactionID string
	OrderNumber   string
	Amount        int64
	Method        string
}

// ConfirmInput holds the parameters for confirming a payment.
type ConfirmInput struct {
	TransactionID string
	Amount        int64
}

// CancelInput holds the parameters for cancelling (refunding) a payment.
type CancelInput struct {
	TransactionID   string
	PGTransactionID string
	Amount          int64
	Reason          string
}

// Result holds the outcome of a gateway call.
type Result struct {
	Success         bool
	PGTransactionID string
	FailReason      string
}

// Gateway defines the interface for payment gateway integrations.
type Gateway interface {
	// Name returns the gateway name (e.g., "mock", "toss").
	Name() string

	// RequestPayment opens a payment session with the gateway.
	RequestPayment(ctx context.Context, input *RequestInput) (*Result, error)

	// ConfirmPayment captures the payment for the given transaction.
	ConfirmPayment(ctx context.Context, input *ConfirmInput) (*Result, error)

	// CancelPayment refunds a captured payment.
	CancelPayment(ctx context.Context, input *CancelInput) (*Result, error)
}
