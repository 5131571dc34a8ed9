package domain

import (
	"time"

	apperrors "github.com/utafrali/ordercore/pkg/errors"
)

// Coupon type constants.
const (
	CouponTypePercentage  = "PERCENTAGE"
	CouponTypeFixedAmount = "FIXED_AMOUNT"
)

// Coupon domain errors.
var (
	ErrCouponAlreadyUsed = apperrors.Conflict("COUPON_ALREADY_USED", "coupon has already been used")
	ErrCouponExpired     = apperrors.Conflict("COUPON_EXPIRED", "coupon is expired or no longer valid")
)

// Coupon is a discount definition with a validity window and an issue quota.
// Codes are stored uppercase. Deleted coupons are soft-deleted via DeletedAt.
type Coupon struct {
	ID              string     `json:"id"`
	Code            string     `json:"code"`
	Name            string     `json:"name"`
	Type            string     `json:"type"`
	DiscountValue   int64      `json:"discount_value"`
	MinimumOrder    int64      `json:"minimum_order"`
	MaximumDiscount *int64     `json:"maximum_discount,omitempty"`
	ValidFrom       time.Time  `json:"valid_from"`
	ValidTo         time.Time  `json:"valid_to"`
	TotalQuantity   int        `json:"total_quantity"`
	UsedQuantity    int        `json:"used_quantity"`
	Active          bool       `json:"active"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Validate checks coupon definition invariants at creation time.
func (c *Coupon) Validate() error {
	if c.Code == "" {
		return apperrors.InvalidInput("code is required")
	}
	if c.Type != CouponTypePercentage && c.Type != CouponTypeFixedAmount {
		return apperrors.InvalidInput("type must be PERCENTAGE or FIXED_AMOUNT")
	}
	if c.DiscountValue <= 0 {
		return apperrors.InvalidInput("discount_value must be positive")
	}
	if c.Type == CouponTypePercentage && c.DiscountValue > 100 {
		return apperrors.InvalidInput("percentage discount cannot exceed 100")
	}
	if c.MinimumOrder < 0 {
		return apperrors.InvalidInput("minimum_order must be non-negative")
	}
	if !c.ValidTo.After(c.ValidFrom) {
		return apperrors.InvalidInput("valid_to must be after valid_from")
	}
	if c.TotalQuantity <= 0 {
		return apperrors.InvalidInput("total_quantity must be positive")
	}
	return nil
}

// IsValid reports whether the coupon can be used at the given instant: active,
// not deleted, strictly inside the validity window, and quota remaining.
// Bounds are exclusive: a coupon is not valid at exactly ValidFrom or ValidTo.
func (c *Coupon) IsValid(now time.Time) bool {
	return c.Active &&
		c.DeletedAt == nil &&
		now.After(c.ValidFrom) &&
		now.Before(c.ValidTo) &&
		c.UsedQuantity < c.TotalQuantity
}

// IsApplicable reports whether the coupon applies to an order of the given amount.
func (c *Coupon) IsApplicable(orderAmount int64, now time.Time) bool {
	return c.IsValid(now) && orderAmount >= c.MinimumOrder
}

// HasQuantityAvailable reports whether the issue quota is not yet exhausted.
func (c *Coupon) HasQuantityAvailable() bool {
	return c.UsedQuantity < c.TotalQuantity
}

// CalculateDiscount returns the discount for the given order amount. Returns 0
// when the coupon is not applicable. Percentage discounts round down and are
// capped at MaximumDiscount when set; the result never exceeds the order amount.
func (c *Coupon) CalculateDiscount(orderAmount int64, now time.Time) int64 {
	if !c.IsApplicable(orderAmount, now) {
		return 0
	}

	var discount int64
	switch c.Type {
	case CouponTypePercentage:
		discount = orderAmount * c.DiscountValue / 100
		if c.MaximumDiscount != nil && discount > *c.MaximumDiscount {
			discount = *c.MaximumDiscount
		}
	case CouponTypeFixedAmount:
		discount = c.DiscountValue
	}

	if discount > orderAmount {
		discount = orderAmount
	}
	return discount
}

// Deactivate turns the coupon off without deleting it.
func (c *Coupon) Deactivate(now time.Time) {
	c.Active = false
	c.UpdatedAt = now
}

// Delete soft-deletes the coupon.
func (c *Coupon) Delete(now time.Time) {
	c.Active = false
	c.DeletedAt = &now
	c.UpdatedAt = now
}
