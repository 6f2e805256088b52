package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edumart/checkout/internal/domain/coupon"
)

// couponTable maps a pool tag to its backing table. This is the only place
// the mapping exists; everything else carries the Pool value.
func couponTable(pool coupon.Pool) string {
	switch pool {
	case coupon.SchoolPool:
		return "coupons"
	case coupon.StudentPool:
		return "student_coupons"
	default:
		return "universal_coupons"
	}
}

const couponColumns = `id, code, discount_percentage, valid_from, valid_until,
	max_uses, current_uses`

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements the non-locking coupon lookup used by the
// validate-coupon preview. The checkout path locks rows through Store.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// Find looks a coupon up in its pool, scoped to the purchaser's school for
// the two owned pools. Returns coupon.ErrInvalid when no row matches.
func (r *CouponRepository) Find(ctx context.Context, pool coupon.Pool, code string, schoolID int64) (*coupon.Coupon, error) {
	return findCoupon(ctx, r.pool, pool, code, schoolID, false)
}

func findCoupon(ctx context.Context, q querier, pool coupon.Pool, code string, schoolID int64, forUpdate bool) (*coupon.Coupon, error) {
	var (
		sql  string
		args []any
	)
	if pool == coupon.UniversalPool {
		sql = fmt.Sprintf(`SELECT %s, 0 AS school_id FROM %s WHERE code = $1`,
			couponColumns, couponTable(pool))
		args = []any{code}
	} else {
		sql = fmt.Sprintf(`SELECT %s, school_id FROM %s WHERE code = $1 AND school_id = $2`,
			couponColumns, couponTable(pool))
		args = []any{code, schoolID}
	}
	if forUpdate {
		sql += " FOR UPDATE"
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("finding coupon in %s pool: %w", pool, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrInvalid
		}
		return nil, fmt.Errorf("finding coupon in %s pool: %w", pool, err)
	}
	c.Pool = pool
	return &c, nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c           coupon.Coupon
		maxUses     int32
		currentUses int32
	)
	err := row.Scan(
		&c.ID, &c.Code, &c.DiscountPercentage, &c.ValidFrom, &c.ValidUntil,
		&maxUses, &currentUses, &c.SchoolID,
	)
	c.MaxUses = int(maxUses)
	c.CurrentUses = int(currentUses)
	return c, err
}
