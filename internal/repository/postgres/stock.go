package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/utafrali/ordercore/internal/domain"
	"github.com/utafrali/ordercore/pkg/database"
	apperrors "github.com/utafrali/ordercore/pkg/errors"
)

// StockRepository implements repository.StockRepository using PostgreSQL.
type StockRepository struct {
	pool database.DBTX
}

// NewStockRepository creates a new PostgreSQL-backed stock repository.
func NewStockRepository(pool database.DBTX) *StockRepository {
	return &StockRepository{pool: pool}
}

// Get retrieves the stock row for a product option.
func (r *StockRepository) Get(ctx context.Context, productID, productOptionID string) (*domain.Stock, error) {
	query := `
		SELECT id, product_id, product_option_id, quantity, updated_at
		FROM stock
		WHERE product_id = $1 AND product_option_id = $2`

	var s domain.Stock
	err := r.pool.QueryRow(ctx, query, productID, productOptionID).Scan(
		&s.ID,
		&s.ProductID,
		&s.ProductOptionID,
		&s.Quantity,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan stock: %w", err)
	}

	return &s, nil
}

// Adjust applies a quantity delta under a row lock and records a movement.
// The SELECT FOR UPDATE serializes concurrent adjustments on the same row so
// the quantity check and the update see the same value.
func (r *StockRepository) Adjust(ctx context.Context, productID, productOptionID string, delta int, reason, referenceID string) (*domain.Stock, error) {
	if !domain.IsValidMovementReason(reason) {
		return nil, apperrors.InvalidInput("invalid stock movement reason")
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var s domain.Stock
	err = tx.QueryRow(ctx, `
		SELECT id, product_id, product_option_id, quantity, updated_at
		FROM stock
		WHERE product_id = $1 AND product_option_id = $2
		FOR UPDATE`,
		productID, productOptionID,
	).Scan(&s.ID, &s.ProductID, &s.ProductOptionID, &s.Quantity, &s.UpdatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// A positive adjustment for an untracked product initializes its row.
		if delta < 0 {
			return nil, apperrors.ErrNotFound
		}
		s = domain.Stock{
			ID:              uuid.New().String(),
			ProductID:       productID,
			ProductOptionID: productOptionID,
			Quantity:        delta,
			UpdatedAt:       time.Now().UTC(),
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO stock (id, product_id, product_option_id, quantity, updated_at)
			VALUES ($1, $2, $3, $4, $5)`,
			s.ID, s.ProductID, s.ProductOptionID, s.Quantity, s.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("insert stock: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("lock stock row: %w", err)
	default:
		if delta < 0 && s.Quantity+delta < 0 {
			return nil, domain.InsufficientStock(productID, -delta, s.Quantity)
		}

		s.Quantity += delta
		s.UpdatedAt = time.Now().UTC()

		_, err = tx.Exec(ctx, `
			UPDATE stock
			SET quantity = $1, updated_at = $2
			WHERE id = $3`,
			s.Quantity, s.UpdatedAt, s.ID,
		)
		if err != nil {
			return nil, fmt.Errorf("update stock: %w", err)
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO stock_movements (id, product_id, product_option_id, quantity_change, reason, reference_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.New().String(), productID, productOptionID, delta, reason, referenceID, s.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert stock movement: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return &s, nil
}

// ListMovements returns movement history for a product, newest first.
func (r *StockRepository) ListMovements(ctx context.Context, productID string, offset, limit int) ([]domain.StockMovement, int, error) {
	query := `
		SELECT id, product_id, product_option_id, quantity_change, reason, reference_id, created_at,
		       count(*) OVER() AS total_count
		FROM stock_movements
		WHERE product_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, productID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list stock movements: %w", err)
	}
	defer rows.Close()

	var (
		movements  []domain.StockMovement
		totalCount int
	)

	for rows.Next() {
		var m domain.StockMovement
		if err := rows.Scan(
			&m.ID,
			&m.ProductID,
			&m.ProductOptionID,
			&m.QuantityChange,
			&m.Reason,
			&m.ReferenceID,
			&m.CreatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan stock movement row: %w", err)
		}
		movements = append(movements, m)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate stock movement rows: %w", err)
	}

	if movements == nil {
		movements = []domain.StockMovement{}
	}

	return movements, totalCount, nil
}
