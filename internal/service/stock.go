package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/ordercore/internal/domain"
	"github.com/utafrali/ordercore/internal/repository"
	apperrors "github.com/utafrali/ordercore/pkg/errors"
)

// StockService exposes stock reads and manual adjustments. Order placement
// and cancellation move stock inside the order workflow transaction instead.
type StockService struct {
	stock  repository.StockRepository
	logger *slog.Logger
}

// NewStockService creates a new stock service.
func NewStockService(stock repository.StockRepository, logger *slog.Logger) *StockService {
	return &StockService{
		stock:  stock,
		logger: logger,
	}
}

// GetStock retrieves the stock level for a product option.
func (s *StockService) GetStock(ctx context.Context, productID, productOptionID string) (*domain.Stock, error) {
	if productID == "" {
		return nil, apperrors.InvalidInput("product_id is required")
	}

	stock, err := s.stock.Get(ctx, productID, productOptionID)
	if err != nil {
		return nil, fmt.Errorf("get stock: %w", err)
	}

	return stock, nil
}

// AdjustStock applies a manual quantity delta, e.g. restocking or shrinkage
// correction.
func (s *StockService) AdjustStock(ctx context.Context, productID, productOptionID string, delta int, referenceID string) (*domain.Stock, error) {
	if productID == "" {
		return nil, apperrors.InvalidInput("product_id is required")
	}
	if delta == 0 {
		return nil, apperrors.InvalidInput("delta must not be zero")
	}

	stock, err := s.stock.Adjust(ctx, productID, productOptionID, delta, domain.MovementReasonAdjustment, referenceID)
	if err != nil {
		return nil, fmt.Errorf("adjust stock: %w", err)
	}

	s.logger.InfoContext(ctx, "stock adjusted",
		slog.String("product_id", productID),
		slog.Int("delta", delta),
		slog.Int("quantity", stock.Quantity),
	)

	return stock, nil
}

// ListStockMovements returns the movement history for a product.
func (s *StockService) ListStockMovements(ctx context.Context, productID string, page, perPage int) ([]domain.StockMovement, int, error) {
	if productID == "" {
		return nil, 0, apperrors.InvalidInput("product_id is required")
	}
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}

	movements, total, err := s.stock.ListMovements(ctx, productID, (page-1)*perPage, perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list stock movements: %w", err)
	}

	return movements, total, nil
}
