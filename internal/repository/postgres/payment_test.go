package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/ordercore/internal/domain"
	"github.com/utafrali/ordercore/pkg/database"
	apperrors "github.com/utafrali/ordercore/pkg/errors"
)

func samplePayment() *domain.Payment {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Payment{
		ID:            "pay-001",
		OrderID:       "ord-001",
		Method:        domain.PaymentMethodCard,
		Status:        domain.PaymentStatusPending,
		Amount:        37000,
		TransactionID: "PAY-ABCDEF123456",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

var paymentColumnNames = []string{
	"id", "order_id", "method", "status", "amount", "transaction_id", "pg_transaction_id",
	"fail_reason", "paid_at", "cancelled_at", "created_at", "updated_at",
}

func paymentRow(p *domain.Payment, extra ...any) []any {
	row := []any{
		p.ID, p.OrderID, p.Method, p.Status, p.Amount, p.TransactionID, p.PGTransactionID,
		p.FailReason, p.PaidAt, p.CancelledAt, p.CreatedAt, p.UpdatedAt,
	}
	return append(row, extra...)
}

// ─── Create ──────────────────────────────────────────────────────────────────

func TestPaymentRepository_Create(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepository(mock)
	p := samplePayment()

	mock.ExpectExec("INSERT INTO payments").
		WithArgs(
			p.ID, p.OrderID, p.Method, p.Status, p.Amount,
			p.TransactionID, p.PGTransactionID, p.FailReason,
			p.CreatedAt, p.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), p)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// ─── GetByID / GetByTransactionID ────────────────────────────────────────────

func TestPaymentRepository_GetByID(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepository(mock)
	p := samplePayment()

	mock.ExpectQuery("SELECT .+ FROM payments").
		WithArgs(p.ID).
		WillReturnRows(pgxmock.NewRows(paymentColumnNames).AddRow(paymentRow(p)...))

	result, err := repo.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, result.ID)
	assert.Equal(t, p.Amount, result.Amount)
	assert.Equal(t, p.TransactionID, result.TransactionID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_GetByID_NotFound(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM payments").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	result, err := repo.GetByID(context.Background(), "missing")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_GetByTransactionID(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepository(mock)
	p := samplePayment()

	mock.ExpectQuery("SELECT .+ FROM payments").
		WithArgs(p.TransactionID).
		WillReturnRows(pgxmock.NewRows(paymentColumnNames).AddRow(paymentRow(p)...))

	result, err := repo.GetByTransactionID(context.Background(), p.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, result.ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// ─── ListByOrder ─────────────────────────────────────────────────────────────

func TestPaymentRepository_ListByOrder(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepository(mock)
	p1 := samplePayment()
	p2 := samplePayment()
	p2.ID = "pay-002"
	p2.Status = domain.PaymentStatusFailed
	p2.FailReason = "card declined"

	mock.ExpectQuery("SELECT .+ FROM payments").
		WithArgs("ord-001").
		WillReturnRows(
			pgxmock.NewRows(paymentColumnNames).
				AddRow(paymentRow(p2)...).
				AddRow(paymentRow(p1)...),
		)

	payments, err := repo.ListByOrder(context.Background(), "ord-001")
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, "pay-002", payments[0].ID)
	assert.Equal(t, "card declined", payments[0].FailReason)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_ListByOrder_Empty(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM payments").
		WithArgs("ord-none").
		WillReturnRows(pgxmock.NewRows(paymentColumnNames))

	payments, err := repo.ListByOrder(context.Background(), "ord-none")
	require.NoError(t, err)
	assert.NotNil(t, payments)
	assert.Empty(t, payments)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// ─── Update ──────────────────────────────────────────────────────────────────

func TestPaymentRepository_Update(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepository(mock)
	p := samplePayment()
	require.NoError(t, p.Complete("PG-ABCD1234", time.Now().UTC()))

	mock.ExpectExec("UPDATE payments").
		WithArgs(
			p.Status, p.PGTransactionID, p.FailReason,
			p.PaidAt, p.CancelledAt,
			pgxmock.AnyArg(), // updated_at set at call time
			p.ID,
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.Update(context.Background(), p)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_Update_NotFound(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepository(mock)
	p := samplePayment()
	p.ID = "missing"

	mock.ExpectExec("UPDATE payments").
		WithArgs(
			p.Status, p.PGTransactionID, p.FailReason,
			p.PaidAt, p.CancelledAt,
			pgxmock.AnyArg(), p.ID,
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.Update(context.Background(), p)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
