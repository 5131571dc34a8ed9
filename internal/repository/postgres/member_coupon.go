package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/utafrali/ordercore/internal/domain"
	"github.com/utafrali/ordercore/pkg/database"
	apperrors "github.com/utafrali/ordercore/pkg/errors"
)

// MemberCouponRepository implements repository.MemberCouponRepository using
// PostgreSQL.
type MemberCouponRepository struct {
	pool database.DBTX
}

// NewMemberCouponRepository creates a new PostgreSQL-backed member coupon
// repository.
func NewMemberCouponRepository(pool database.DBTX) *MemberCouponRepository {
	return &MemberCouponRepository{pool: pool}
}

// Issue inserts a new member coupon. The unique index on (member_id,
// coupon_id) rejects duplicate issuance.
func (r *MemberCouponRepository) Issue(ctx context.Context, mc *domain.MemberCoupon) error {
	query := `
		INSERT INTO member_coupons (id, member_id, coupon_id, used, used_at, order_id, issued_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		mc.ID,
		mc.MemberID,
		mc.CouponID,
		mc.Used,
		mc.UsedAt,
		mc.OrderID,
		mc.IssuedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.AlreadyExists("member coupon", "coupon_id", mc.CouponID)
		}
		return fmt.Errorf("insert member coupon: %w", err)
	}

	return nil
}

// GetByID retrieves a member coupon with its parent coupon loaded.
func (r *MemberCouponRepository) GetByID(ctx context.Context, id string) (*domain.MemberCoupon, error) {
	query := `
		SELECT mc.id, mc.member_id, mc.coupon_id, mc.used, mc.used_at, mc.order_id, mc.issued_at,
		       c.id, c.code, c.name, c.type, c.discount_value, c.minimum_order, c.maximum_discount,
		       c.valid_from, c.valid_to, c.total_quantity, c.used_quantity, c.active, c.deleted_at,
		       c.created_at, c.updated_at
		FROM member_coupons mc
		JOIN coupons c ON mc.coupon_id = c.id
		WHERE mc.id = $1`

	var (
		mc domain.MemberCoupon
		c  domain.Coupon
	)

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&mc.ID,
		&mc.MemberID,
		&mc.CouponID,
		&mc.Used,
		&mc.UsedAt,
		&mc.OrderID,
		&mc.IssuedAt,
		&c.ID,
		&c.Code,
		&c.Name,
		&c.Type,
		&c.DiscountValue,
		&c.MinimumOrder,
		&c.MaximumDiscount,
		&c.ValidFrom,
		&c.ValidTo,
		&c.TotalQuantity,
		&c.UsedQuantity,
		&c.Active,
		&c.DeletedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan member coupon: %w", err)
	}

	mc.Coupon = &c
	return &mc, nil
}

// ListByMember returns coupons issued to a member, newest first. With
// availableOnly set, only coupons that can still be redeemed are returned.
func (r *MemberCouponRepository) ListByMember(ctx context.Context, memberID string, availableOnly bool, offset, limit int) ([]domain.MemberCoupon, int, error) {
	// Validity bounds are exclusive, matching the domain model.
	available := ""
	if availableOnly {
		available = `
		  AND NOT mc.used
		  AND c.active
		  AND c.deleted_at IS NULL
		  AND now() > c.valid_from AND now() < c.valid_to`
	}

	query := fmt.Sprintf(`
		SELECT mc.id, mc.member_id, mc.coupon_id, mc.used, mc.used_at, mc.order_id, mc.issued_at,
		       c.id, c.code, c.name, c.type, c.discount_value, c.minimum_order, c.maximum_discount,
		       c.valid_from, c.valid_to, c.total_quantity, c.used_quantity, c.active, c.deleted_at,
		       c.created_at, c.updated_at,
		       count(*) OVER() AS total_count
		FROM member_coupons mc
		JOIN coupons c ON mc.coupon_id = c.id
		WHERE mc.member_id = $1%s
		ORDER BY mc.issued_at DESC
		LIMIT $2 OFFSET $3`, available)

	rows, err := r.pool.Query(ctx, query, memberID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list member coupons: %w", err)
	}
	defer rows.Close()

	var (
		coupons    []domain.MemberCoupon
		totalCount int
	)

	for rows.Next() {
		var (
			mc domain.MemberCoupon
			c  domain.Coupon
		)
		if err := rows.Scan(
			&mc.ID,
			&mc.MemberID,
			&mc.CouponID,
			&mc.Used,
			&mc.UsedAt,
			&mc.OrderID,
			&mc.IssuedAt,
			&c.ID,
			&c.Code,
			&c.Name,
			&c.Type,
			&c.DiscountValue,
			&c.MinimumOrder,
			&c.MaximumDiscount,
			&c.ValidFrom,
			&c.ValidTo,
			&c.TotalQuantity,
			&c.UsedQuantity,
			&c.Active,
			&c.DeletedAt,
			&c.CreatedAt,
			&c.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan member coupon row: %w", err)
		}
		mc.Coupon = &c
		coupons = append(coupons, mc)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate member coupon rows: %w", err)
	}

	if coupons == nil {
		coupons = []domain.MemberCoupon{}
	}

	return coupons, totalCount, nil
}
