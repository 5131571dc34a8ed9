package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }

func activeCoupon(typ string, value int64) *Coupon {
	now := time.Now().UTC()
	return &Coupon{
		ID:            "coupon-1",
		Code:          "WELCOME10",
		Name:          "Welcome discount",
		Type:          typ,
		DiscountValue: value,
		ValidFrom:     now.Add(-24 * time.Hour),
		ValidTo:       now.Add(24 * time.Hour),
		TotalQuantity: 100,
		Active:        true,
	}
}

// ============================================================================
// Coupon Validation Tests
// ============================================================================

func TestCouponValidate_Valid(t *testing.T) {
	assert.NoError(t, activeCoupon(CouponTypePercentage, 10).Validate())
	assert.NoError(t, activeCoupon(CouponTypeFixedAmount, 5000).Validate())
}

func TestCouponValidate_BadType(t *testing.T) {
	c := activeCoupon("BOGO", 10)
	assert.Error(t, c.Validate())
}

func TestCouponValidate_PercentageOverHundred(t *testing.T) {
	c := activeCoupon(CouponTypePercentage, 101)
	assert.Error(t, c.Validate())
}

func TestCouponValidate_NonPositiveValue(t *testing.T) {
	c := activeCoupon(CouponTypeFixedAmount, 0)
	assert.Error(t, c.Validate())
}

func TestCouponValidate_WindowInverted(t *testing.T) {
	c := activeCoupon(CouponTypePercentage, 10)
	c.ValidTo = c.ValidFrom
	assert.Error(t, c.Validate())
}

// ============================================================================
// Coupon Validity Window Tests
// ============================================================================

func TestIsValid_InsideWindow(t *testing.T) {
	c := activeCoupon(CouponTypePercentage, 10)
	assert.True(t, c.IsValid(time.Now().UTC()))
}

func TestIsValid_BoundsAreExclusive(t *testing.T) {
	c := activeCoupon(CouponTypePercentage, 10)
	assert.False(t, c.IsValid(c.ValidFrom))
	assert.False(t, c.IsValid(c.ValidTo))
	assert.True(t, c.IsValid(c.ValidFrom.Add(time.Nanosecond)))
	assert.True(t, c.IsValid(c.ValidTo.Add(-time.Nanosecond)))
}

func TestIsValid_BeforeWindow(t *testing.T) {
	c := activeCoupon(CouponTypePercentage, 10)
	assert.False(t, c.IsValid(c.ValidFrom.Add(-time.Hour)))
}

func TestIsValid_AfterWindow(t *testing.T) {
	c := activeCoupon(CouponTypePercentage, 10)
	assert.False(t, c.IsValid(c.ValidTo.Add(time.Hour)))
}

func TestIsValid_Inactive(t *testing.T) {
	c := activeCoupon(CouponTypePercentage, 10)
	c.Deactivate(time.Now().UTC())
	assert.False(t, c.IsValid(time.Now().UTC()))
}

func TestIsValid_SoftDeleted(t *testing.T) {
	c := activeCoupon(CouponTypePercentage, 10)
	c.Delete(time.Now().UTC())
	assert.False(t, c.IsValid(time.Now().UTC()))
	assert.NotNil(t, c.DeletedAt)
}

func TestIsValid_QuotaExhausted(t *testing.T) {
	c := activeCoupon(CouponTypePercentage, 10)
	c.UsedQuantity = c.TotalQuantity
	assert.False(t, c.IsValid(time.Now().UTC()))
	assert.False(t, c.HasQuantityAvailable())
}

// ============================================================================
// Discount Calculation Tests
// ============================================================================

func TestCalculateDiscount_PercentageWithCap(t *testing.T) {
	c := activeCoupon(CouponTypePercentage, 10)
	c.MaximumDiscount = int64Ptr(1000)
	// 10% of 50000 is 5000, capped at 1000
	assert.Equal(t, int64(1000), c.CalculateDiscount(50000, time.Now().UTC()))
}

func TestCalculateDiscount_PercentageUnderCap(t *testing.T) {
	c := activeCoupon(CouponTypePercentage, 10)
	c.MaximumDiscount = int64Ptr(1000)
	assert.Equal(t, int64(500), c.CalculateDiscount(5000, time.Now().UTC()))
}

func TestCalculateDiscount_PercentageRoundsDown(t *testing.T) {
	c := activeCoupon(CouponTypePercentage, 15)
	// 15% of 3333 is 499.95, floors to 499
	assert.Equal(t, int64(499), c.CalculateDiscount(3333, time.Now().UTC()))
}

func TestCalculateDiscount_FixedAmount(t *testing.T) {
	c := activeCoupon(CouponTypeFixedAmount, 5000)
	assert.Equal(t, int64(5000), c.CalculateDiscount(20000, time.Now().UTC()))
}

func TestCalculateDiscount_FixedCappedAtOrderAmount(t *testing.T) {
	c := activeCoupon(CouponTypeFixedAmount, 5000)
	assert.Equal(t, int64(3000), c.CalculateDiscount(3000, time.Now().UTC()))
}

func TestCalculateDiscount_BelowMinimumOrder(t *testing.T) {
	c := activeCoupon(CouponTypeFixedAmount, 5000)
	c.MinimumOrder = 10000
	assert.Equal(t, int64(0), c.CalculateDiscount(9999, time.Now().UTC()))
	assert.Equal(t, int64(5000), c.CalculateDiscount(10000, time.Now().UTC()))
}

func TestCalculateDiscount_ExpiredCoupon(t *testing.T) {
	c := activeCoupon(CouponTypePercentage, 10)
	assert.Equal(t, int64(0), c.CalculateDiscount(50000, c.ValidTo.Add(time.Hour)))
}

// ============================================================================
// Member Coupon Use/Restore Tests
// ============================================================================

func issuedMemberCoupon() *MemberCoupon {
	return &MemberCoupon{
		ID:       "mc-1",
		MemberID: "member-1",
		CouponID: "coupon-1",
		Coupon:   activeCoupon(CouponTypePercentage, 10),
		IssuedAt: time.Now().UTC().Add(-time.Hour),
	}
}

func TestMemberCouponUse_Success(t *testing.T) {
	mc := issuedMemberCoupon()
	now := time.Now().UTC()

	err := mc.Use("order-1", now)

	require.NoError(t, err)
	assert.True(t, mc.Used)
	require.NotNil(t, mc.UsedAt)
	assert.Equal(t, now, *mc.UsedAt)
	require.NotNil(t, mc.OrderID)
	assert.Equal(t, "order-1", *mc.OrderID)
	assert.Equal(t, 1, mc.Coupon.UsedQuantity)
}

func TestMemberCouponUse_AlreadyUsed(t *testing.T) {
	mc := issuedMemberCoupon()
	require.NoError(t, mc.Use("order-1", time.Now().UTC()))

	err := mc.Use("order-2", time.Now().UTC())

	assert.ErrorIs(t, err, ErrCouponAlreadyUsed)
	assert.Equal(t, "order-1", *mc.OrderID)
}

func TestMemberCouponUse_ExpiredCoupon(t *testing.T) {
	mc := issuedMemberCoupon()
	err := mc.Use("order-1", mc.Coupon.ValidTo.Add(time.Hour))
	assert.ErrorIs(t, err, ErrCouponExpired)
	assert.False(t, mc.Used)
}

func TestMemberCouponUse_MissingCoupon(t *testing.T) {
	mc := issuedMemberCoupon()
	mc.Coupon = nil
	err := mc.Use("order-1", time.Now().UTC())
	assert.ErrorIs(t, err, ErrCouponExpired)
}

func TestMemberCouponRestore_AfterUse(t *testing.T) {
	mc := issuedMemberCoupon()
	require.NoError(t, mc.Use("order-1", time.Now().UTC()))

	mc.Restore()

	assert.False(t, mc.Used)
	assert.Nil(t, mc.UsedAt)
	assert.Nil(t, mc.OrderID)
	assert.Equal(t, 0, mc.Coupon.UsedQuantity)
}

func TestMemberCouponRestore_UnusedIsNoop(t *testing.T) {
	mc := issuedMemberCoupon()
	mc.Coupon.UsedQuantity = 5

	mc.Restore()

	assert.False(t, mc.Used)
	assert.Equal(t, 5, mc.Coupon.UsedQuantity)
}

func TestMemberCouponRestore_UsedQuantityFloorsAtZero(t *testing.T) {
	mc := issuedMemberCoupon()
	mc.Used = true
	mc.Coupon.UsedQuantity = 0

	mc.Restore()

	assert.Equal(t, 0, mc.Coupon.UsedQuantity)
}

func TestMemberCouponIsAvailable(t *testing.T) {
	mc := issuedMemberCoupon()
	now := time.Now().UTC()
	assert.True(t, mc.IsAvailable(now))

	mc.Used = true
	assert.False(t, mc.IsAvailable(now))
}
