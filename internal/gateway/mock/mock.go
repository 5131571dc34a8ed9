package mock

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/ordercore/internal/gateway"
)

// Gateway is a mock payment gateway for development and testing. Confirmation
// fails deterministically when the amount ends in 9999, so failure paths can
// be exercised without a real gateway.
type Gateway struct{}

// NewGateway creates a new mock payment gateway.
func NewGateway() *Gateway {
	return &Gateway{}
}

// Name returns the gateway name.
func (g *Gateway) Name() string {
	return "mock"
}

// RequestPayment simulates opening a payment session. It always succeeds.
func (g *Gateway) RequestPayment(_ context.Context, _ *gateway.RequestInput) (*gateway.Result, error) {
	// Simulate a small processing delay.
	time.Sleep(50 * time.Millisecond)

	return &gateway.Result{Success: true}, nil
}

// ConfirmPayment simulates capturing a payment. Amounts whose last four digits
// are 9999 are declined.
func (g *Gateway) ConfirmPayment(_ context.Context, input *gateway.ConfirmInput) (*gateway.Result, error) {
	time.Sleep(50 * time.Millisecond)

	if input.Amount%10000 == 9999 {
		return &gateway.Result{
			Success:    false,
			FailReason: "card declined",
		}, nil
	}

	return &gateway.Result{
		Success:         true,
		PGTransactionID: generatePGTransactionID(),
	}, nil
}

// CancelPayment simulates a refund that always succeeds.
func (g *Gateway) CancelPayment(_ context.Context, _ *gateway.CancelInput) (*gateway.Result, error) {
	time.Sleep(50 * time.Millisecond)

	return &gateway.Result{Success: true}, nil
}

func generatePGTransactionID() string {
	return "PG-" + strings.ToUpper(uuid.New().String()[:8])
}
