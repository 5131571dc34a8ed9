package repository

import (
	"context"

	"github.com/utafrali/ordercore/internal/domain"
)

// OrderFilter defines filter criteria for listing orders.
type OrderFilter struct {
	MemberID *string
	Status   *string
	Page     int
	PerPage  int
}

// CouponFilter defines filter criteria for listing coupon definitions.
type CouponFilter struct {
	Active  *bool
	Page    int
	PerPage int
}

// OrderRepository defines the interface for order persistence operations.
type OrderRepository interface {
	// Create inserts a new order and its items into the store atomically.
	Create(ctx context.Context, order *domain.Order) error

	// GetByID retrieves an order by its unique identifier, including items.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// GetByOrderNumber retrieves an order by its human-facing number.
	GetByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error)

	// List returns orders matching the given filter along with the total count.
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, int, error)

	// Update persists the mutable fields of an order after a state transition.
	Update(ctx context.Context, order *domain.Order) error

	// UpdateItemStatus changes the status of a single order item.
	UpdateItemStatus(ctx context.Context, orderID, itemID, status string) error
}

// StockRepository defines the interface for stock reads and standalone
// adjustments. Order placement and cancellation change stock inside the
// workflow transaction instead.
type StockRepository interface {
	// Get retrieves the stock row for a product option.
	Get(ctx context.Context, productID, productOptionID string) (*domain.Stock, error)

	// Adjust applies a quantity delta under a row lock and records a movement.
	// Fails when a negative delta would drive the quantity below zero. A
	// positive delta for an untracked product initializes its stock row.
	Adjust(ctx context.Context, productID, productOptionID string, delta int, reason, referenceID string) (*domain.Stock, error)

	// ListMovements returns movement history for a product, newest first.
	ListMovements(ctx context.Context, productID string, offset, limit int) ([]domain.StockMovement, int, error)
}

// CouponRepository defines the interface for coupon definition persistence.
type CouponRepository interface {
	// Create inserts a new coupon definition.
	Create(ctx context.Context, coupon *domain.Coupon) error

	// GetByID retrieves a coupon by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Coupon, error)

	// GetByCode retrieves a non-deleted coupon by its code.
	GetByCode(ctx context.Context, code string) (*domain.Coupon, error)

	// List returns coupons matching the given filter with the total count.
	List(ctx context.Context, filter CouponFilter) ([]domain.Coupon, int, error)

	// Update persists the mutable fields of a coupon.
	Update(ctx context.Context, coupon *domain.Coupon) error
}

// MemberCouponRepository defines the interface for issued coupon persistence.
type MemberCouponRepository interface {
	// Issue inserts a new member coupon. Fails when the member already holds
	// the coupon.
	Issue(ctx context.Context, mc *domain.MemberCoupon) error

	// GetByID retrieves a member coupon with its parent coupon loaded.
	GetByID(ctx context.Context, id string) (*domain.MemberCoupon, error)

	// ListByMember returns coupons issued to a member, newest first. With
	// availableOnly set, used, expired, and deactivated coupons are excluded.
	// Redemption state changes only inside the order workflow transactions.
	ListByMember(ctx context.Context, memberID string, availableOnly bool, offset, limit int) ([]domain.MemberCoupon, int, error)
}

// PaymentRepository defines the interface for payment persistence operations.
type PaymentRepository interface {
	// Create inserts a new payment attempt.
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByID retrieves a payment by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Payment, error)

	// GetByTransactionID retrieves a payment by its transaction id.
	GetByTransactionID(ctx context.Context, transactionID string) (*domain.Payment, error)

	// ListByOrder returns all payment attempts for an order, newest first.
	ListByOrder(ctx context.Context, orderID string) ([]domain.Payment, error)

	// Update persists the mutable fields of a payment.
	Update(ctx context.Context, payment *domain.Payment) error
}
