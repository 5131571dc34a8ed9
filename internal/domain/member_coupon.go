package domain

import "time"

// MemberCoupon is a coupon issued to a specific member. It tracks single-use
// redemption against an order.
type MemberCoupon struct {
	ID       string     `json:"id"`
	MemberID string     `json:"member_id"`
	CouponID string     `json:"coupon_id"`
	Coupon   *Coupon    `json:"coupon,omitempty"`
	Used     bool       `json:"used"`
	UsedAt   *time.Time `json:"used_at,omitempty"`
	OrderID  *string    `json:"order_id,omitempty"`
	IssuedAt time.Time  `json:"issued_at"`
}

// IsAvailable reports whether the member coupon can still be redeemed.
func (mc *MemberCoupon) IsAvailable(now time.Time) bool {
	return !mc.Used && mc.Coupon != nil && mc.Coupon.IsValid(now)
}

// Use marks the member coupon as redeemed against the given order and
// increments the parent coupon's used quantity. Fails when already used or
// when the parent coupon is no longer valid.
func (mc *MemberCoupon) Use(orderID string, now time.Time) error {
	if mc.Used {
		return ErrCouponAlreadyUsed
	}
	if mc.Coupon == nil || !mc.Coupon.IsValid(now) {
		return ErrCouponExpired
	}
	mc.Used = true
	mc.UsedAt = &now
	mc.OrderID = &orderID
	mc.Coupon.UsedQuantity++
	return nil
}

// Restore reverts a redemption, e.g. when the order is cancelled. It is a
// no-op when the coupon was never used. The parent used quantity never goes
// below zero.
func (mc *MemberCoupon) Restore() {
	if !mc.Used {
		return
	}
	mc.Used = false
	mc.UsedAt = nil
	mc.OrderID = nil
	if mc.Coupon != nil && mc.Coupon.UsedQuantity > 0 {
		mc.Coupon.UsedQuantity--
	}
}
