package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/utafrali/ordercore/internal/domain"
	"github.com/utafrali/ordercore/internal/event"
	"github.com/utafrali/ordercore/internal/repository"
	"github.com/utafrali/ordercore/pkg/database"
	apperrors "github.com/utafrali/ordercore/pkg/errors"
	"github.com/utafrali/ordercore/pkg/middleware"
)

// OrderService implements the order workflow: placement, lifecycle
// transitions, and cancellation. Placement and cancellation run in a single
// database transaction covering the order, stock, and coupon tables.
type OrderService struct {
	pool     database.DBTX
	orders   repository.OrderRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(pool database.DBTX, orders repository.OrderRepository, producer *event.Producer, logger *slog.Logger) *OrderService {
	return &OrderService{
		pool:     pool,
		orders:   orders,
		producer: producer,
		logger:   logger,
	}
}

// PlaceOrderItemInput holds the parameters for an order line item.
type PlaceOrderItemInput struct {
	ProductID       string
	ProductOptionID string
	ProductName     string
	OptionName      string
	UnitPrice       int64
	Quantity        int
}

// PlaceOrderInput holds the parameters for placing an order.
type PlaceOrderInput struct {
	MemberID        string
	Items           []PlaceOrderItemInput
	ShippingAddress domain.ShippingAddress
	ShippingFee     int64
	MemberCouponID  string
}

// PlaceOrder creates a new order. Stock decrements, the optional coupon
// redemption, and the order insert all commit or roll back together, so a
// failure on any item leaves nothing behind.
func (s *OrderService) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*domain.Order, error) {
	now := time.Now().UTC()
	orderID := uuid.New().String()

	items := make([]domain.OrderItem, len(input.Items))
	for i, itemInput := range input.Items {
		items[i] = domain.OrderItem{
			ID:              uuid.New().String(),
			OrderID:         orderID,
			ProductID:       itemInput.ProductID,
			ProductOptionID: itemInput.ProductOptionID,
			ProductName:     itemInput.ProductName,
			OptionName:      itemInput.OptionName,
			UnitPrice:       itemInput.UnitPrice,
			Quantity:        itemInput.Quantity,
			Status:          domain.OrderItemStatusOrdered,
		}
	}

	order := &domain.Order{
		ID:              orderID,
		OrderNumber:     domain.GenerateOrderNumber(),
		MemberID:        input.MemberID,
		Status:          domain.OrderStatusPendingPayment,
		Items:           items,
		ShippingAddress: input.ShippingAddress,
		ShippingFee:     input.ShippingFee,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := order.ValidateForPlacement(); err != nil {
		return nil, err
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin placement transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Redeem the coupon first so the discount is known before the order row
	// is written.
	if input.MemberCouponID != "" {
		// The discount is computed on the item subtotal, before shipping.
		discount, err := s.redeemCoupon(ctx, tx, input.MemberCouponID, input.MemberID, orderID, sumOrdered(order), now)
		if err != nil {
			return nil, err
		}
		order.DiscountAmount = discount
	}

	order.TotalAmount = order.CalculateTotal()
	if order.TotalAmount < 0 {
		return nil, apperrors.InvalidInput("order total must not be negative")
	}

	for _, item := range order.Items {
		if err := decreaseStock(ctx, tx, item, orderID, now); err != nil {
			return nil, err
		}
	}

	if err := insertOrder(ctx, tx, order); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit placement transaction: %w", err)
	}

	if err := s.producer.PublishOrderPlaced(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.placed event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}

	s.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", order.ID),
		slog.String("order_number", order.OrderNumber),
		slog.String("member_id", order.MemberID),
		slog.Int64("total_amount", order.TotalAmount),
	)

	return order, nil
}

// redeemCoupon locks the member coupon row, validates it, and marks it used.
// Returns the discount for the given order amount.
func (s *OrderService) redeemCoupon(ctx context.Context, tx pgx.Tx, memberCouponID, memberID, orderID string, orderAmount int64, now time.Time) (int64, error) {
	var (
		mc domain.MemberCoupon
		c  domain.Coupon
	)

	err := tx.QueryRow(ctx, `
		SELECT mc.id, mc.member_id, mc.coupon_id, mc.used, mc.used_at, mc.order_id, mc.issued_at,
		       c.id, c.code, c.name, c.type, c.discount_value, c.minimum_order, c.maximum_discount,
		       c.valid_from, c.valid_to, c.total_quantity, c.used_quantity, c.active, c.deleted_at,
		       c.created_at, c.updated_at
		FROM member_coupons mc
		JOIN coupons c ON mc.coupon_id = c.id
		WHERE mc.id = $1
		FOR UPDATE OF mc, c`,
		memberCouponID,
	).Scan(
		&mc.ID, &mc.MemberID, &mc.CouponID, &mc.Used, &mc.UsedAt, &mc.OrderID, &mc.IssuedAt,
		&c.ID, &c.Code, &c.Name, &c.Type, &c.DiscountValue, &c.MinimumOrder, &c.MaximumDiscount,
		&c.ValidFrom, &c.ValidTo, &c.TotalQuantity, &c.UsedQuantity, &c.Active, &c.DeletedAt,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.NotFound("member coupon", memberCouponID)
		}
		return 0, fmt.Errorf("lock member coupon: %w", err)
	}
	mc.Coupon = &c

	if mc.MemberID != memberID {
		return 0, apperrors.Forbidden("coupon belongs to another member")
	}

	discount := c.CalculateDiscount(orderAmount, now)

	if err := mc.Use(orderID, now); err != nil {
		return 0, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE member_coupons
		SET used = TRUE, used_at = $1, order_id = $2
		WHERE id = $3`,
		now, orderID, mc.ID,
	)
	if err != nil {
		return 0, fmt.Errorf("mark member coupon used: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE coupons
		SET used_quantity = used_quantity + 1, updated_at = $1
		WHERE id = $2`,
		now, mc.CouponID,
	)
	if err != nil {
		return 0, fmt.Errorf("increment coupon used quantity: %w", err)
	}

	return discount, nil
}

// decreaseStock locks the stock row for an item, verifies availability, and
// decrements it. The SELECT FOR UPDATE serializes concurrent placements so
// two orders cannot consume the same unit.
func decreaseStock(ctx context.Context, tx pgx.Tx, item domain.OrderItem, orderID string, now time.Time) error {
	var quantity int
	err := tx.QueryRow(ctx, `
		SELECT quantity
		FROM stock
		WHERE product_id = $1 AND product_option_id = $2
		FOR UPDATE`,
		item.ProductID, item.ProductOptionID,
	).Scan(&quantity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFound("stock for product", item.ProductID)
		}
		return fmt.Errorf("lock stock row: %w", err)
	}

	if quantity < item.Quantity {
		return domain.InsufficientStock(item.ProductID, item.Quantity, quantity)
	}

	_, err = tx.Exec(ctx, `
		UPDATE stock
		SET quantity = quantity - $1, updated_at = $2
		WHERE product_id = $3 AND product_option_id = $4`,
		item.Quantity, now, item.ProductID, item.ProductOptionID,
	)
	if err != nil {
		return fmt.Errorf("decrease stock: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO stock_movements (id, product_id, product_option_id, quantity_change, reason, reference_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.New().String(), item.ProductID, item.ProductOptionID, -item.Quantity,
		domain.MovementReasonOrder, orderID, now,
	)
	if err != nil {
		return fmt.Errorf("record stock movement: %w", err)
	}

	return nil
}

// increaseStock returns an item's quantity to stock. Unconditional: restores
// never fail on quantity.
func increaseStock(ctx context.Context, tx pgx.Tx, item domain.OrderItem, orderID string, now time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE stock
		SET quantity = quantity + $1, updated_at = $2
		WHERE product_id = $3 AND product_option_id = $4`,
		item.Quantity, now, item.ProductID, item.ProductOptionID,
	)
	if err != nil {
		return fmt.Errorf("increase stock: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO stock_movements (id, product_id, product_option_id, quantity_change, reason, reference_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.New().String(), item.ProductID, item.ProductOptionID, item.Quantity,
		domain.MovementReasonCancel, orderID, now,
	)
	if err != nil {
		return fmt.Errorf("record stock movement: %w", err)
	}

	return nil
}

// insertOrder writes the order and its items inside the placement transaction.
func insertOrder(ctx context.Context, tx pgx.Tx, o *domain.Order) error {
	addressJSON, err := marshalAddress(o.ShippingAddress)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, order_number, member_id, status, payment_method, transaction_id, shipping_fee, discount_amount, total_amount, shipping_address, tracking_number, cancel_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		o.ID, o.OrderNumber, o.MemberID, o.Status, o.PaymentMethod, o.TransactionID,
		o.ShippingFee, o.DiscountAmount, o.TotalAmount, addressJSON,
		o.TrackingNumber, o.CancelReason, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range o.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_id, product_option_id, product_name, option_name, unit_price, quantity, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			item.ID, item.OrderID, item.ProductID, item.ProductOptionID,
			item.ProductName, item.OptionName, item.UnitPrice, item.Quantity, item.Status,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	return nil
}

// GetOrder retrieves an order. Members see only their own orders.
func (s *OrderService) GetOrder(ctx context.Context, id, memberID, role string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order by id: %w", err)
	}

	if err := authorizeOwner(order.MemberID, memberID, role); err != nil {
		return nil, err
	}

	return order, nil
}

// GetOrderByNumber retrieves an order by its human-facing number. Members see
// only their own orders.
func (s *OrderService) GetOrderByNumber(ctx context.Context, orderNumber, memberID, role string) (*domain.Order, error) {
	if strings.TrimSpace(orderNumber) == "" {
		return nil, apperrors.InvalidInput("order number is required")
	}

	order, err := s.orders.GetByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, fmt.Errorf("get order by number: %w", err)
	}

	if err := authorizeOwner(order.MemberID, memberID, role); err != nil {
		return nil, err
	}

	return order, nil
}

// ListOrders returns a filtered, paginated list of orders. Non-admin callers
// are restricted to their own orders.
func (s *OrderService) ListOrders(ctx context.Context, filter repository.OrderFilter, memberID, role string) ([]domain.Order, int, error) {
	if role != middleware.RoleAdmin {
		filter.MemberID = &memberID
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}
	if filter.PerPage > 100 {
		filter.PerPage = 100
	}

	orders, total, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}

	return orders, total, nil
}

// StartPreparing transitions a paid order to PREPARING.
func (s *OrderService) StartPreparing(ctx context.Context, id string) (*domain.Order, error) {
	return s.transition(ctx, id, func(o *domain.Order, now time.Time) error {
		return o.StartPreparing(now)
	})
}

// Ship transitions a preparing order to SHIPPED with a tracking number.
func (s *OrderService) Ship(ctx context.Context, id, trackingNumber string) (*domain.Order, error) {
	return s.transition(ctx, id, func(o *domain.Order, now time.Time) error {
		return o.Ship(trackingNumber, now)
	})
}

// Deliver transitions a shipped order to DELIVERED.
func (s *OrderService) Deliver(ctx context.Context, id string) (*domain.Order, error) {
	return s.transition(ctx, id, func(o *domain.Order, now time.Time) error {
		return o.Deliver(now)
	})
}

func (s *OrderService) transition(ctx context.Context, id string, apply func(*domain.Order, time.Time) error) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order for transition: %w", err)
	}

	oldStatus := order.Status
	if err := apply(order, time.Now().UTC()); err != nil {
		return nil, err
	}

	if err := s.orders.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}

	if err := s.producer.PublishOrderStatusChanged(ctx, order, oldStatus); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.status_changed event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order status updated",
		slog.String("order_id", order.ID),
		slog.String("old_status", oldStatus),
		slog.String("new_status", order.Status),
	)

	return order, nil
}

// CancelOrder cancels an order, returning stock for every item that was not
// already cancelled and releasing the redeemed coupon, all in one transaction.
func (s *OrderService) CancelOrder(ctx context.Context, id, reason, memberID, role string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order for cancel: %w", err)
	}

	if err := authorizeOwner(order.MemberID, memberID, role); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	oldStatus := order.Status
	if err := order.Cancel(reason, now); err != nil {
		return nil, err
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin cancellation transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, item := range order.Items {
		if item.Status != domain.OrderItemStatusOrdered {
			continue
		}
		if err := increaseStock(ctx, tx, item, order.ID, now); err != nil {
			return nil, err
		}
	}

	if err := restoreCoupon(ctx, tx, order.ID, now); err != nil {
		return nil, err
	}

	ct, err := tx.Exec(ctx, `
		UPDATE orders
		SET status = $1, cancel_reason = $2, cancelled_at = $3, updated_at = $4
		WHERE id = $5 AND status = $6`,
		order.Status, order.CancelReason, order.CancelledAt, now, order.ID, oldStatus,
	)
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		// Lost a race with a concurrent transition.
		return nil, apperrors.InvalidState("order status changed concurrently")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit cancellation transaction: %w", err)
	}

	if err := s.producer.PublishOrderCancelled(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.cancelled event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order cancelled",
		slog.String("order_id", order.ID),
		slog.String("reason", reason),
	)

	return order, nil
}

// restoreCoupon releases the coupon redeemed against the order, if any. A
// cancellation of an order without a coupon is a no-op here.
func restoreCoupon(ctx context.Context, tx pgx.Tx, orderID string, now time.Time) error {
	var memberCouponID, couponID string
	err := tx.QueryRow(ctx, `
		SELECT id, coupon_id
		FROM member_coupons
		WHERE order_id = $1 AND used = TRUE
		FOR UPDATE`,
		orderID,
	).Scan(&memberCouponID, &couponID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("lock member coupon for restore: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE member_coupons
		SET used = FALSE, used_at = NULL, order_id = NULL
		WHERE id = $1`,
		memberCouponID,
	)
	if err != nil {
		return fmt.Errorf("restore member coupon: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE coupons
		SET used_quantity = GREATEST(used_quantity - 1, 0), updated_at = $1
		WHERE id = $2`,
		now, couponID,
	)
	if err != nil {
		return fmt.Errorf("decrement coupon used quantity: %w", err)
	}

	return nil
}

// CancelOrderItem cancels a single line item without changing the order
// status. The item's quantity returns to stock and the order total is
// recomputed. The coupon stays redeemed.
func (s *OrderService) CancelOrderItem(ctx context.Context, orderID, itemID, memberID, role string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order for item cancel: %w", err)
	}

	if err := authorizeOwner(order.MemberID, memberID, role); err != nil {
		return nil, err
	}

	if order.Status != domain.OrderStatusPendingPayment && order.Status != domain.OrderStatusPaid {
		return nil, apperrors.InvalidState(fmt.Sprintf("cannot cancel items of a %s order", order.Status))
	}

	var target *domain.OrderItem
	for i := range order.Items {
		if order.Items[i].ID == itemID {
			target = &order.Items[i]
			break
		}
	}
	if target == nil {
		return nil, apperrors.NotFound("order item", itemID)
	}
	if target.Status != domain.OrderItemStatusOrdered {
		return nil, apperrors.InvalidState("order item is already cancelled")
	}

	now := time.Now().UTC()
	target.Status = domain.OrderItemStatusCancelled

	// The discount never exceeds what the remaining items plus shipping can
	// absorb, so the total stays non-negative.
	if remaining := sumOrdered(order) + order.ShippingFee; order.DiscountAmount > remaining {
		order.DiscountAmount = remaining
	}
	order.TotalAmount = order.CalculateTotal()
	order.UpdatedAt = now

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin item cancellation transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := increaseStock(ctx, tx, *target, order.ID, now); err != nil {
		return nil, err
	}

	ct, err := tx.Exec(ctx, `
		UPDATE order_items
		SET status = $1
		WHERE id = $2 AND order_id = $3 AND status = $4`,
		domain.OrderItemStatusCancelled, itemID, order.ID, domain.OrderItemStatusOrdered,
	)
	if err != nil {
		return nil, fmt.Errorf("cancel order item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return nil, apperrors.InvalidState("order item changed concurrently")
	}

	_, err = tx.Exec(ctx, `
		UPDATE orders
		SET discount_amount = $1, total_amount = $2, updated_at = $3
		WHERE id = $4`,
		order.DiscountAmount, order.TotalAmount, now, order.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update order totals: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit item cancellation transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "order item cancelled",
		slog.String("order_id", order.ID),
		slog.String("item_id", itemID),
		slog.Int64("total_amount", order.TotalAmount),
	)

	return order, nil
}

func marshalAddress(addr domain.ShippingAddress) ([]byte, error) {
	b, err := json.Marshal(addr)
	if err != nil {
		return nil, fmt.Errorf("marshal shipping address: %w", err)
	}
	return b, nil
}

func sumOrdered(o *domain.Order) int64 {
	var total int64
	for i := range o.Items {
		if o.Items[i].Status == domain.OrderItemStatusOrdered {
			total += o.Items[i].Subtotal()
		}
	}
	return total
}

// authorizeOwner allows the resource owner and admins.
func authorizeOwner(ownerID, memberID, role string) error {
	if memberID == ownerID || role == middleware.RoleAdmin {
		return nil
	}
	return apperrors.Forbidden("not allowed to access this resource")
}
