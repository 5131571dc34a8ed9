package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/utafrali/ordercore/internal/domain"
	"github.com/utafrali/ordercore/internal/repository"
	"github.com/utafrali/ordercore/pkg/database"
	apperrors "github.com/utafrali/ordercore/pkg/errors"
)

// CouponRepository implements repository.CouponRepository using PostgreSQL.
type CouponRepository struct {
	pool database.DBTX
}

// NewCouponRepository creates a new PostgreSQL-backed coupon repository.
func NewCouponRepository(pool database.DBTX) *CouponRepository {
	return &CouponRepository{pool: pool}
}

const couponColumns = `id, code, name, type, discount_value, minimum_order, maximum_discount,
	valid_from, valid_to, total_quantity, used_quantity, active, deleted_at, created_at, updated_at`

// Create inserts a new coupon definition.
func (r *CouponRepository) Create(ctx context.Context, c *domain.Coupon) error {
	query := `
		INSERT INTO coupons (id, code, name, type, discount_value, minimum_order, maximum_discount, valid_from, valid_to, total_quantity, used_quantity, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.pool.Exec(ctx, query,
		c.ID,
		c.Code,
		c.Name,
		c.Type,
		c.DiscountValue,
		c.MinimumOrder,
		c.MaximumDiscount,
		c.ValidFrom,
		c.ValidTo,
		c.TotalQuantity,
		c.UsedQuantity,
		c.Active,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.AlreadyExists("coupon", "code", c.Code)
		}
		return fmt.Errorf("insert coupon: %w", err)
	}

	return nil
}

// GetByID retrieves a coupon by its unique identifier.
func (r *CouponRepository) GetByID(ctx context.Context, id string) (*domain.Coupon, error) {
	query := fmt.Sprintf(`SELECT %s FROM coupons WHERE id = $1`, couponColumns)
	return r.scanCoupon(ctx, query, id)
}

// GetByCode retrieves a non-deleted coupon by its code.
func (r *CouponRepository) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	query := fmt.Sprintf(`SELECT %s FROM coupons WHERE code = $1 AND deleted_at IS NULL`, couponColumns)
	return r.scanCoupon(ctx, query, strings.ToUpper(code))
}

// List returns coupons matching the given filter with the total count.
// Soft-deleted coupons are excluded.
func (r *CouponRepository) List(ctx context.Context, filter repository.CouponFilter) ([]domain.Coupon, int, error) {
	conditions := []string{"deleted_at IS NULL"}
	var args []any
	argIndex := 1

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", argIndex))
		args = append(args, *filter.Active)
		argIndex++
	}

	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM coupons
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		couponColumns, strings.Join(conditions, " AND "), argIndex, argIndex+1,
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
		return nil, 0, fmt.Errorf("list coupons: %w", err)
	}
	defer rows.Close()

	var (
		coupons    []domain.Coupon
		totalCount int
	)

	for rows.Next() {
		var c domain.Coupon
		if err := rows.Scan(
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
			return nil, 0, fmt.Errorf("scan coupon row: %w", err)
		}
		coupons = append(coupons, c)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate coupon rows: %w", err)
	}

	if coupons == nil {
		coupons = []domain.Coupon{}
	}

	return coupons, totalCount, nil
}

// Update persists the mutable fields of a coupon.
func (r *CouponRepository) Update(ctx context.Context, c *domain.Coupon) error {
	c.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE coupons
		SET name = $1, discount_value = $2, minimum_order = $3, maximum_discount = $4,
		    valid_from = $5, valid_to = $6, total_quantity = $7, used_quantity = $8,
		    active = $9, deleted_at = $10, updated_at = $11
		WHERE id = $12`

	ct, err := r.pool.Exec(ctx, query,
		c.Name,
		c.DiscountValue,
		c.MinimumOrder,
		c.MaximumDiscount,
		c.ValidFrom,
		c.ValidTo,
		c.TotalQuantity,
		c.UsedQuantity,
		c.Active,
		c.DeletedAt,
		c.UpdatedAt,
		c.ID,
	)
	if err != nil {
		return fmt.Errorf("update coupon: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("coupon", c.ID)
	}

	return nil
}

// scanCoupon executes a query expected to return a single coupon row.
func (r *CouponRepository) scanCoupon(ctx context.Context, query string, args ...any) (*domain.Coupon, error) {
	var c domain.Coupon

	err := r.pool.QueryRow(ctx, query, args...).Scan(
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
		return nil, fmt.Errorf("scan coupon: %w", err)
	}

	return &c, nil
}
