package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/ordercore/internal/domain"
	"github.com/utafrali/ordercore/internal/repository"
	"github.com/utafrali/ordercore/pkg/database"
	apperrors "github.com/utafrali/ordercore/pkg/errors"
)

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

const orderColumns = `o.id, o.order_number, o.member_id, o.status, o.payment_method, o.transaction_id,
	o.shipping_fee, o.discount_amount, o.total_amount, o.shipping_address,
	o.tracking_number, o.cancel_reason, o.paid_at, o.shipped_at, o.delivered_at, o.cancelled_at,
	o.created_at, o.updated_at`

// Create inserts a new order and its items atomically within a transaction.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	addressJSON, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshal shipping address: %w", err)
	}

	orderQuery := `
		INSERT INTO orders (id, order_number, member_id, status, payment_method, transaction_id, shipping_fee, discount_amount, total_amount, shipping_address, tracking_number, cancel_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err = tx.Exec(ctx, orderQuery,
		o.ID,
		o.OrderNumber,
		o.MemberID,
		o.Status,
		o.PaymentMethod,
		o.TransactionID,
		o.ShippingFee,
		o.DiscountAmount,
		o.TotalAmount,
		addressJSON,
		o.TrackingNumber,
		o.CancelReason,
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, product_id, product_option_id, product_name, option_name, unit_price, quantity, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for _, item := range o.Items {
		_, err = tx.Exec(ctx, itemQuery,
			item.ID,
			item.OrderID,
			item.ProductID,
			item.ProductOptionID,
			item.ProductName,
			item.OptionName,
			item.UnitPrice,
			item.Quantity,
			item.Status,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// GetByID retrieves an order by its ID, eagerly loading its items.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.getOne(ctx, "o.id = $1", id)
}

// GetByOrderNumber retrieves an order by its human-facing number.
func (r *OrderRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	return r.getOne(ctx, "o.order_number = $1", orderNumber)
}

// getOne fetches one order and its items in a single query using
// LEFT JOIN + JSONB_AGG to avoid an extra round trip for items.
func (r *OrderRepository) getOne(ctx context.Context, where string, arg any) (*domain.Order, error) {
	query := fmt.Sprintf(`
		SELECT
			%s,
			COALESCE(
				JSONB_AGG(
					JSONB_BUILD_OBJECT(
						'id', oi.id,
						'order_id', oi.order_id,
						'product_id', oi.product_id,
						'product_option_id', oi.product_option_id,
						'product_name', oi.product_name,
						'option_name', oi.option_name,
						'unit_price', oi.unit_price,
						'quantity', oi.quantity,
						'status', oi.status
					) ORDER BY oi.id
				) FILTER (WHERE oi.id IS NOT NULL),
				'[]'::jsonb
			) AS items
		FROM orders o
		LEFT JOIN order_items oi ON o.id = oi.order_id
		WHERE %s
		GROUP BY o.id`, orderColumns, where)

	var (
		o           domain.Order
		addressJSON []byte
		itemsJSON   []byte
	)

	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&o.ID,
		&o.OrderNumber,
		&o.MemberID,
		&o.Status,
		&o.PaymentMethod,
		&o.TransactionID,
		&o.ShippingFee,
		&o.DiscountAmount,
		&o.TotalAmount,
		&addressJSON,
		&o.TrackingNumber,
		&o.CancelReason,
		&o.PaidAt,
		&o.ShippedAt,
		&o.DeliveredAt,
		&o.CancelledAt,
		&o.CreatedAt,
		&o.UpdatedAt,
		&itemsJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	if len(addressJSON) > 0 && string(addressJSON) != "null" {
		if err := json.Unmarshal(addressJSON, &o.ShippingAddress); err != nil {
			return nil, fmt.Errorf("unmarshal shipping address: %w", err)
		}
	}

	if len(itemsJSON) > 0 && string(itemsJSON) != "null" && string(itemsJSON) != "[]" {
		if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
			return nil, fmt.Errorf("unmarshal order items: %w", err)
		}
	} else {
		o.Items = []domain.OrderItem{}
	}

	return &o, nil
}

// List returns orders matching the given filter with the total count.
func (r *OrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.MemberID != nil {
		conditions = append(conditions, fmt.Sprintf("member_id = $%d", argIndex))
		args = append(args, *filter.MemberID)
		argIndex++
	}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	// count(*) OVER() gives the total count without a second query.
	query := fmt.Sprintf(`
		SELECT id, order_number, member_id, status, payment_method, transaction_id,
			   shipping_fee, discount_amount, total_amount, shipping_address,
			   tracking_number, cancel_reason, paid_at, shipped_at, delivered_at, cancelled_at,
			   created_at, updated_at,
			   count(*) OVER() AS total_count
		FROM orders
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		whereClause, argIndex, argIndex+1,
	)

	limit := filter.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}

	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var totalCount int
	orders := make([]domain.Order, 0)

	for rows.Next() {
		var (
			o           domain.Order
			addressJSON []byte
		)

		if err := rows.Scan(
			&o.ID,
			&o.OrderNumber,
			&o.MemberID,
			&o.Status,
			&o.PaymentMethod,
			&o.TransactionID,
			&o.ShippingFee,
			&o.DiscountAmount,
			&o.TotalAmount,
			&addressJSON,
			&o.TrackingNumber,
			&o.CancelReason,
			&o.PaidAt,
			&o.ShippedAt,
			&o.DeliveredAt,
			&o.CancelledAt,
			&o.CreatedAt,
			&o.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan order row: %w", err)
		}

		if len(addressJSON) > 0 && string(addressJSON) != "null" {
			if err := json.Unmarshal(addressJSON, &o.ShippingAddress); err != nil {
				return nil, 0, fmt.Errorf("unmarshal shipping address: %w", err)
			}
		}

		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}

	// Batch-load items for all orders in a single query to avoid N+1.
	if len(orders) > 0 {
		orderIDs := make([]string, len(orders))
		for i := range orders {
			orderIDs[i] = orders[i].ID
		}

		itemsQuery := `
			SELECT id, order_id, product_id, product_option_id, product_name, option_name, unit_price, quantity, status
			FROM order_items
			WHERE order_id = ANY($1)
			ORDER BY id`

		itemRows, err := r.pool.Query(ctx, itemsQuery, orderIDs)
		if err != nil {
			return nil, 0, fmt.Errorf("batch load order items: %w", err)
		}
		defer itemRows.Close()

		itemsByOrderID := make(map[string][]domain.OrderItem, len(orders))
		for itemRows.Next() {
			var item domain.OrderItem
			if err := itemRows.Scan(
				&item.ID,
				&item.OrderID,
				&item.ProductID,
				&item.ProductOptionID,
				&item.ProductName,
				&item.OptionName,
				&item.UnitPrice,
				&item.Quantity,
				&item.Status,
			); err != nil {
				return nil, 0, fmt.Errorf("scan order item: %w", err)
			}
			itemsByOrderID[item.OrderID] = append(itemsByOrderID[item.OrderID], item)
		}
		if err := itemRows.Err(); err != nil {
			return nil, 0, fmt.Errorf("iterate batch order item rows: %w", err)
		}

		for i := range orders {
			if items, ok := itemsByOrderID[orders[i].ID]; ok {
				orders[i].Items = items
			} else {
				orders[i].Items = []domain.OrderItem{}
			}
		}
	}

	return orders, totalCount, nil
}

// Update persists the mutable fields of an order after a state transition.
// The shipping address and items are immutable here; item status changes go
// through UpdateItemStatus.
func (r *OrderRepository) Update(ctx context.Context, o *domain.Order) error {
	o.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE orders
		SET status = $1, payment_method = $2, transaction_id = $3, discount_amount = $4,
		    total_amount = $5, tracking_number = $6, cancel_reason = $7,
		    paid_at = $8, shipped_at = $9, delivered_at = $10, cancelled_at = $11, updated_at = $12
		WHERE id = $13`

	ct, err := r.pool.Exec(ctx, query,
		o.Status,
		o.PaymentMethod,
		o.TransactionID,
		o.DiscountAmount,
		o.TotalAmount,
		o.TrackingNumber,
		o.CancelReason,
		o.PaidAt,
		o.ShippedAt,
		o.DeliveredAt,
		o.CancelledAt,
		o.UpdatedAt,
		o.ID,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("order", o.ID)
	}

	return nil
}

// UpdateItemStatus changes the status of a single order item.
func (r *OrderRepository) UpdateItemStatus(ctx context.Context, orderID, itemID, status string) error {
	query := `
		UPDATE order_items
		SET status = $1
		WHERE id = $2 AND order_id = $3`

	ct, err := r.pool.Exec(ctx, query, status, itemID, orderID)
	if err != nil {
		return fmt.Errorf("update order item status: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("order item", itemID)
	}

	return nil
}
