package mock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/ordercore/internal/gateway"
)

func TestConfirmPayment_Success(t *testing.T) {
	g := NewGateway()

	result, err := g.ConfirmPayment(context.Background(), &gateway.ConfirmInput{
		TransactionID: "PAY-ABCDEF123456",
		Amount:        37000,
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
	require.Len(t, result.PGTransactionID, 11)
	assert.Equal(t, "PG-", result.PGTransactionID[:3])
}

func TestConfirmPayment_DeclinedAmount(t *testing.T) {
	g := NewGateway()

	for _, amount := range []int64{9999, 19999, 1239999} {
		result, err := g.ConfirmPayment(context.Background(), &gateway.ConfirmInput{
			TransactionID: "PAY-ABCDEF123456",
			Amount:        amount,
		})

		require.NoError(t, err)
		assert.False(t, result.Success, "amount %d", amount)
		assert.Equal(t, "card declined", result.FailReason)
		assert.Empty(t, result.PGTransactionID)
	}
}

func TestRequestPayment_AlwaysSucceeds(t *testing.T) {
	g := NewGateway()

	result, err := g.RequestPayment(context.Background(), &gateway.RequestInput{
		TransactionID: "PAY-ABCDEF123456",
		OrderNumber:   "ORD-A1B2C3D4",
		Amount:        9999, // decline only applies at confirmation
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestCancelPayment_AlwaysSucceeds(t *testing.T) {
	g := NewGateway()

	result, err := g.CancelPayment(context.Background(), &gateway.CancelInput{
		TransactionID:   "PAY-ABCDEF123456",
		PGTransactionID: "PG-AAAA1111",
		Amount:          37000,
		Reason:          "customer request",
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
}
