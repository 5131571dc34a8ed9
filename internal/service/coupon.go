package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/ordercore/internal/domain"
	"github.com/utafrali/ordercore/internal/event"
	"github.com/utafrali/ordercore/internal/repository"
	apperrors "github.com/utafrali/ordercore/pkg/errors"
)

// CouponService implements coupon definition management, issuance to members,
// and redemption bookkeeping.
type CouponService struct {
	coupons       repository.CouponRepository
	memberCoupons repository.MemberCouponRepository
	producer      *event.Producer
	logger        *slog.Logger
}

// NewCouponService creates a new coupon service.
func NewCouponService(coupons repository.CouponRepository, memberCoupons repository.MemberCouponRepository, producer *event.Producer, logger *slog.Logger) *CouponService {
	return &CouponService{
		coupons:       coupons,
		memberCoupons: memberCoupons,
		producer:      producer,
		logger:        logger,
	}
}

// CreateCouponInput holds the parameters for creating a coupon definition.
type CreateCouponInput struct {
	Code            string
	Name            string
	Type            string
	DiscountValue   int64
	MinimumOrder    int64
	MaximumDiscount *int64
	ValidFrom       time.Time
	ValidTo         time.Time
	TotalQuantity   int
}

// CreateCoupon creates a new coupon definition. Codes are normalized to
// uppercase.
func (s *CouponService) CreateCoupon(ctx context.Context, input CreateCouponInput) (*domain.Coupon, error) {
	now := time.Now().UTC()
	coupon := &domain.Coupon{
		ID:              uuid.New().String(),
		Code:            strings.ToUpper(strings.TrimSpace(input.Code)),
		Name:            input.Name,
		Type:            input.Type,
		DiscountValue:   input.DiscountValue,
		MinimumOrder:    input.MinimumOrder,
		MaximumDiscount: input.MaximumDiscount,
		ValidFrom:       input.ValidFrom,
		ValidTo:         input.ValidTo,
		TotalQuantity:   input.TotalQuantity,
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := coupon.Validate(); err != nil {
		return nil, err
	}

	if err := s.coupons.Create(ctx, coupon); err != nil {
		return nil, fmt.Errorf("create coupon: %w", err)
	}

	s.logger.InfoContext(ctx, "coupon created",
		slog.String("coupon_id", coupon.ID),
		slog.String("code", coupon.Code),
		slog.String("type", coupon.Type),
	)

	return coupon, nil
}

// GetCoupon retrieves a coupon definition by id.
func (s *CouponService) GetCoupon(ctx context.Context, id string) (*domain.Coupon, error) {
	coupon, err := s.coupons.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get coupon by id: %w", err)
	}
	return coupon, nil
}

// ListCoupons returns a filtered, paginated list of coupon definitions.
func (s *CouponService) ListCoupons(ctx context.Context, filter repository.CouponFilter) ([]domain.Coupon, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}
	if filter.PerPage > 100 {
		filter.PerPage = 100
	}

	coupons, total, err := s.coupons.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list coupons: %w", err)
	}

	return coupons, total, nil
}

// UpdateCouponInput holds the fields of a coupon definition that may change
// after creation. Code, type, and discount value are immutable.
type UpdateCouponInput struct {
	Name            string
	MinimumOrder    int64
	MaximumDiscount *int64
	ValidFrom       time.Time
	ValidTo         time.Time
}

// UpdateCoupon updates the mutable fields of a coupon definition.
func (s *CouponService) UpdateCoupon(ctx context.Context, id string, input UpdateCouponInput) (*domain.Coupon, error) {
	coupon, err := s.coupons.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get coupon for update: %w", err)
	}

	coupon.Name = input.Name
	coupon.MinimumOrder = input.MinimumOrder
	coupon.MaximumDiscount = input.MaximumDiscount
	coupon.ValidFrom = input.ValidFrom
	coupon.ValidTo = input.ValidTo
	coupon.UpdatedAt = time.Now().UTC()

	if err := coupon.Validate(); err != nil {
		return nil, err
	}

	if err := s.coupons.Update(ctx, coupon); err != nil {
		return nil, fmt.Errorf("update coupon: %w", err)
	}

	s.logger.InfoContext(ctx, "coupon updated", slog.String("coupon_id", id))

	return coupon, nil
}

// DeactivateCoupon turns a coupon off without deleting it. Already issued
// member coupons stop validating.
func (s *CouponService) DeactivateCoupon(ctx context.Context, id string) (*domain.Coupon, error) {
	coupon, err := s.coupons.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get coupon for deactivate: %w", err)
	}

	coupon.Deactivate(time.Now().UTC())

	if err := s.coupons.Update(ctx, coupon); err != nil {
		return nil, fmt.Errorf("deactivate coupon: %w", err)
	}

	s.logger.InfoContext(ctx, "coupon deactivated", slog.String("coupon_id", id))

	return coupon, nil
}

// DeleteCoupon soft-deletes a coupon definition.
func (s *CouponService) DeleteCoupon(ctx context.Context, id string) error {
	coupon, err := s.coupons.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get coupon for delete: %w", err)
	}

	coupon.Delete(time.Now().UTC())

	if err := s.coupons.Update(ctx, coupon); err != nil {
		return fmt.Errorf("delete coupon: %w", err)
	}

	s.logger.InfoContext(ctx, "coupon deleted", slog.String("coupon_id", id))

	return nil
}

// IssueCoupon issues a coupon to a member by code. A member can hold each
// coupon at most once.
func (s *CouponService) IssueCoupon(ctx context.Context, code, memberID string) (*domain.MemberCoupon, error) {
	if memberID == "" {
		return nil, apperrors.InvalidInput("member_id is required")
	}

	coupon, err := s.coupons.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get coupon by code: %w", err)
	}

	now := time.Now().UTC()
	if !coupon.Active || now.After(coupon.ValidTo) {
		return nil, domain.ErrCouponExpired
	}
	if !coupon.HasQuantityAvailable() {
		return nil, apperrors.Conflict("COUPON_EXHAUSTED", "coupon quota is exhausted")
	}

	mc := &domain.MemberCoupon{
		ID:       uuid.New().String(),
		MemberID: memberID,
		CouponID: coupon.ID,
		Coupon:   coupon,
		IssuedAt: now,
	}

	if err := s.memberCoupons.Issue(ctx, mc); err != nil {
		return nil, fmt.Errorf("issue coupon: %w", err)
	}

	if err := s.producer.PublishCouponIssued(ctx, mc); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish coupon.issued event",
			slog.String("member_coupon_id", mc.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "coupon issued",
		slog.String("member_coupon_id", mc.ID),
		slog.String("coupon_code", coupon.Code),
		slog.String("member_id", memberID),
	)

	return mc, nil
}

// ListMemberCoupons returns coupons issued to a member. With availableOnly
// set, used and no longer valid coupons are filtered out.
func (s *CouponService) ListMemberCoupons(ctx context.Context, memberID string, availableOnly bool, page, perPage int) ([]domain.MemberCoupon, int, error) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}

	coupons, total, err := s.memberCoupons.ListByMember(ctx, memberID, availableOnly, (page-1)*perPage, perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list member coupons: %w", err)
	}

	return coupons, total, nil
}

// ApplyCoupon computes the discount a member coupon would give on the stated
// order amount without redeeming it. Used for checkout previews.
func (s *CouponService) ApplyCoupon(ctx context.Context, memberCouponID, memberID string, orderAmount int64) (int64, error) {
	if orderAmount < 0 {
		return 0, apperrors.InvalidInput("order_amount must be non-negative")
	}

	mc, err := s.memberCoupons.GetByID(ctx, memberCouponID)
	if err != nil {
		return 0, fmt.Errorf("get member coupon: %w", err)
	}

	if mc.MemberID != memberID {
		return 0, apperrors.Forbidden("coupon belongs to another member")
	}

	now := time.Now().UTC()
	if mc.Used {
		return 0, domain.ErrCouponAlreadyUsed
	}
	if !mc.IsAvailable(now) {
		return 0, domain.ErrCouponExpired
	}

	return mc.Coupon.CalculateDiscount(orderAmount, now), nil
}
