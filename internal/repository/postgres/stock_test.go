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

var stockColumns = []string{"id", "product_id", "product_option_id", "quantity", "updated_at"}

// ─── Get ─────────────────────────────────────────────────────────────────────

func TestStockRepository_Get(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewStockRepository(mock)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT .+ FROM stock").
		WithArgs("prod-001", "opt-001").
		WillReturnRows(
			pgxmock.NewRows(stockColumns).
				AddRow("stk-001", "prod-001", "opt-001", 42, now),
		)

	s, err := repo.Get(context.Background(), "prod-001", "opt-001")
	require.NoError(t, err)
	assert.Equal(t, 42, s.Quantity)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStockRepository_Get_NotFound(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewStockRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM stock").
		WithArgs("prod-missing", "").
		WillReturnError(pgx.ErrNoRows)

	s, err := repo.Get(context.Background(), "prod-missing", "")
	assert.Nil(t, s)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// ─── Adjust ──────────────────────────────────────────────────────────────────

func TestStockRepository_Adjust_Decrease(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewStockRepository(mock)
	now := time.Now().UTC()

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	mock.ExpectQuery("SELECT .+ FROM stock .+ FOR UPDATE").
		WithArgs("prod-001", "").
		WillReturnRows(
			pgxmock.NewRows(stockColumns).
				AddRow("stk-001", "prod-001", "", 5, now),
		)
	mock.ExpectExec("UPDATE stock").
		WithArgs(3, pgxmock.AnyArg(), "stk-001").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO stock_movements").
		WithArgs(pgxmock.AnyArg(), "prod-001", "", -2, domain.MovementReasonOrder, "ord-001", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	s, err := repo.Adjust(context.Background(), "prod-001", "", -2, domain.MovementReasonOrder, "ord-001")
	require.NoError(t, err)
	assert.Equal(t, 3, s.Quantity)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStockRepository_Adjust_InsufficientStock(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewStockRepository(mock)
	now := time.Now().UTC()

	// The lock is acquired, the check fails, and the transaction rolls back
	// without touching the row.
	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	mock.ExpectQuery("SELECT .+ FROM stock .+ FOR UPDATE").
		WithArgs("prod-001", "").
		WillReturnRows(
			pgxmock.NewRows(stockColumns).
				AddRow("stk-001", "prod-001", "", 1, now),
		)
	mock.ExpectRollback()

	s, err := repo.Adjust(context.Background(), "prod-001", "", -3, domain.MovementReasonOrder, "ord-001")
	assert.Nil(t, s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient stock")
	assert.Contains(t, err.Error(), "requested 3")
	assert.Contains(t, err.Error(), "available 1")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStockRepository_Adjust_Increase(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewStockRepository(mock)
	now := time.Now().UTC()

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	mock.ExpectQuery("SELECT .+ FROM stock .+ FOR UPDATE").
		WithArgs("prod-001", "").
		WillReturnRows(
			pgxmock.NewRows(stockColumns).
				AddRow("stk-001", "prod-001", "", 0, now),
		)
	mock.ExpectExec("UPDATE stock").
		WithArgs(7, pgxmock.AnyArg(), "stk-001").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO stock_movements").
		WithArgs(pgxmock.AnyArg(), "prod-001", "", 7, domain.MovementReasonCancel, "ord-001", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	s, err := repo.Adjust(context.Background(), "prod-001", "", 7, domain.MovementReasonCancel, "ord-001")
	require.NoError(t, err)
	assert.Equal(t, 7, s.Quantity)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStockRepository_Adjust_InitializesMissingRow(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewStockRepository(mock)

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	mock.ExpectQuery("SELECT .+ FROM stock .+ FOR UPDATE").
		WithArgs("prod-new", "").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec("INSERT INTO stock ").
		WithArgs(pgxmock.AnyArg(), "prod-new", "", 50, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO stock_movements").
		WithArgs(pgxmock.AnyArg(), "prod-new", "", 50, domain.MovementReasonAdjustment, "restock-1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	s, err := repo.Adjust(context.Background(), "prod-new", "", 50, domain.MovementReasonAdjustment, "restock-1")
	require.NoError(t, err)
	assert.Equal(t, 50, s.Quantity)
	assert.NotEmpty(t, s.ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStockRepository_Adjust_DecreaseMissingRow(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewStockRepository(mock)

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	mock.ExpectQuery("SELECT .+ FROM stock .+ FOR UPDATE").
		WithArgs("prod-missing", "").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	s, err := repo.Adjust(context.Background(), "prod-missing", "", -1, domain.MovementReasonOrder, "ord-001")
	assert.Nil(t, s)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStockRepository_Adjust_BadReason(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewStockRepository(mock)

	s, err := repo.Adjust(context.Background(), "prod-001", "", 1, "restock", "")
	assert.Nil(t, s)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	// No transaction was opened.
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ─── ListMovements ───────────────────────────────────────────────────────────

func TestStockRepository_ListMovements(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewStockRepository(mock)
	now := time.Now().UTC()

	columns := []string{"id", "product_id", "product_option_id", "quantity_change", "reason", "reference_id", "created_at", "total_count"}
	mock.ExpectQuery("SELECT .+ FROM stock_movements").
		WithArgs("prod-001", 10, 0).
		WillReturnRows(
			pgxmock.NewRows(columns).
				AddRow("mov-002", "prod-001", "", 2, domain.MovementReasonCancel, "ord-002", now, 2).
				AddRow("mov-001", "prod-001", "", -2, domain.MovementReasonOrder, "ord-001", now.Add(-time.Hour), 2),
		)

	movements, total, err := repo.ListMovements(context.Background(), "prod-001", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, movements, 2)
	assert.Equal(t, 2, movements[0].QuantityChange)
	assert.Equal(t, -2, movements[1].QuantityChange)

	assert.NoError(t, mock.ExpectationsWereMet())
}
