package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edumart/checkout/internal/domain/coupon"
	"github.com/edumart/checkout/internal/domain/reward"
	"github.com/edumart/checkout/internal/domain/user"
)

const (
	getSchoolBalanceSQL = `SELECT reward_points FROM schools WHERE id = $1`

	getSEBalanceSQL = `SELECT redeem_points FROM se_employees WHERE employee_id = $1`

	getSEHistorySQL = `SELECT order_id, coupon_code, coupon_pool, order_total,
		school_points, se_points, created_at
		FROM coupon_usage_log WHERE se_employee_id = $1
		ORDER BY created_at DESC`
)

var _ reward.Ledger = (*LedgerRepository)(nil)

// LedgerRepository implements the read side of the reward ledger backed by
// PostgreSQL.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository returns a LedgerRepository that uses the given pool.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// SchoolBalance returns the reward point balance of a school.
func (r *LedgerRepository) SchoolBalance(ctx context.Context, schoolID int64) (int64, error) {
	rows, err := r.pool.Query(ctx, getSchoolBalanceSQL, schoolID)
	if err != nil {
		return 0, fmt.Errorf("getting school %d balance: %w", schoolID, err)
	}

	balance, err := pgx.CollectExactlyOneRow(rows, pgx.RowTo[int64])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, user.ErrNotFound
		}
		return 0, fmt.Errorf("getting school %d balance: %w", schoolID, err)
	}
	return balance, nil
}

// SEBalance returns the redeem point balance of a sales executive.
func (r *LedgerRepository) SEBalance(ctx context.Context, employeeID string) (int64, error) {
	rows, err := r.pool.Query(ctx, getSEBalanceSQL, employeeID)
	if err != nil {
		return 0, fmt.Errorf("getting SE %q balance: %w", employeeID, err)
	}

	balance, err := pgx.CollectExactlyOneRow(rows, pgx.RowTo[int64])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, user.ErrNotFound
		}
		return 0, fmt.Errorf("getting SE %q balance: %w", employeeID, err)
	}
	return balance, nil
}

// SEHistory returns the redemptions credited to a sales executive, newest
// first.
func (r *LedgerRepository) SEHistory(ctx context.Context, employeeID string) ([]reward.Entry, error) {
	rows, err := r.pool.Query(ctx, getSEHistorySQL, employeeID)
	if err != nil {
		return nil, fmt.Errorf("getting SE %q history: %w", employeeID, err)
	}
	return pgx.CollectRows(rows, scanLedgerEntry)
}

func scanLedgerEntry(row pgx.CollectableRow) (reward.Entry, error) {
	var (
		e    reward.Entry
		pool string
	)
	err := row.Scan(
		&e.OrderID, &e.CouponCode, &pool, &e.OrderTotal,
		&e.SchoolPoints, &e.SEPoints, &e.CreatedAt,
	)
	e.Pool = coupon.Pool(pool)
	return e, err
}
