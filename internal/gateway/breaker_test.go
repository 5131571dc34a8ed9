package gateway

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type stubGateway struct {
	calls  int
	result *Result
	err    error
}

func (s *stubGateway) Name() string { return "stub" }

func (s *stubGateway) RequestPayment(_ context.Context, _ *RequestInput) (*Result, error) {
	s.calls++
	return s.result, s.err
}

func (s *stubGateway) ConfirmPayment(_ context.Context, _ *ConfirmInput) (*Result, error) {
	s.calls++
	return s.result, s.err
}

func (s *stubGateway) CancelPayment(_ context.Context, _ *CancelInput) (*Result, error) {
	s.calls++
	return s.result, s.err
}

func testBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		FailureRatio: 0.5,
		MinRequests:  3,
	}
}

func TestBreaker_PassesThroughSuccess(t *testing.T) {
	stub := &stubGateway{result: &Result{Success: true, PGTransactionID: "PG-1"}}
	b := NewBreakerWithConfig(stub, testBreakerConfig(), newTestLogger())

	result, err := b.ConfirmPayment(context.Background(), &ConfirmInput{TransactionID: "PAY-1", Amount: 1000})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "PG-1", result.PGTransactionID)
	assert.Equal(t, 1, stub.calls)
	assert.Equal(t, "stub", b.Name())
}

func TestBreaker_OpensAfterRepeatedTransportFailures(t *testing.T) {
	stub := &stubGateway{err: errors.New("connection refused")}
	b := NewBreakerWithConfig(stub, testBreakerConfig(), newTestLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := b.RequestPayment(ctx, &RequestInput{TransactionID: "PAY-1", Amount: 1000})
		require.Error(t, err)
	}

	// The breaker is open now; the gateway is no longer called.
	_, err := b.RequestPayment(ctx, &RequestInput{TransactionID: "PAY-1", Amount: 1000})
	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.Equal(t, 3, stub.calls)
}

func TestBreaker_DeclineDoesNotTrip(t *testing.T) {
	stub := &stubGateway{result: &Result{Success: false, FailReason: "card declined"}}
	b := NewBreakerWithConfig(stub, testBreakerConfig(), newTestLogger())
	ctx := context.Background()

	// Declines are successful round trips as far as the breaker is concerned.
	for i := 0; i < 10; i++ {
		result, err := b.ConfirmPayment(ctx, &ConfirmInput{TransactionID: "PAY-1", Amount: 1000})
		require.NoError(t, err)
		assert.False(t, result.Success)
	}

	assert.Equal(t, 10, stub.calls)
}
