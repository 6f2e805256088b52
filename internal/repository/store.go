package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edumart/checkout/internal/domain/checkout"
	"github.com/edumart/checkout/internal/domain/coupon"
	"github.com/edumart/checkout/internal/domain/order"
	"github.com/edumart/checkout/internal/domain/product"
	"github.com/edumart/checkout/internal/domain/user"
)

const (
	productsForUpdateSQL = `SELECT id, name, price, category, stock_quantity
		FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE`

	decrementStockSQL = `UPDATE products SET stock_quantity = stock_quantity - $2
		WHERE id = $1 AND stock_quantity >= $2`

	createOrderSQL = `INSERT INTO orders (id, user_id, full_name, email, address,
		city, state, pincode, phone, total, coupon_code, discount_amount, items)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	redemptionCountSQL = `SELECT COUNT(*) FROM coupon_usage_log
		WHERE user_id = $1 AND coupon_code = $2`

	appendUsageLogSQL = `INSERT INTO coupon_usage_log (user_id, coupon_code,
		coupon_pool, discount_amount, order_total, order_id, school_points,
		se_points, school_id, se_employee_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	addSchoolPointsSQL = `UPDATE schools SET reward_points = reward_points + $2
		WHERE id = $1`

	addSEPointsSQL = `UPDATE se_employees SET redeem_points = redeem_points + $2
		WHERE employee_id = $1`

	clearCartSQL = `DELETE FROM cart_items WHERE cart_id IN
		(SELECT id FROM carts WHERE user_id = $1)`
)

var _ checkout.Store = (*Store)(nil)

// Store runs checkout units of work. Every Checkout call gets one database
// transaction; the tx handed to fn locks coupon and stock rows and guards
// the counter updates, which is what holds the no-over-redemption and
// no-over-sell invariants under concurrency.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore returns a Store that uses the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Checkout opens a transaction, runs fn against it, and commits when fn
// returns nil. Any error rolls the whole unit of work back.
func (s *Store) Checkout(ctx context.Context, fn func(tx checkout.Tx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(ptx pgx.Tx) error {
		return fn(&checkoutTx{tx: ptx})
	})
}

var _ checkout.Tx = (*checkoutTx)(nil)

// checkoutTx implements checkout.Tx over a single pgx transaction.
type checkoutTx struct {
	tx pgx.Tx
}

func (t *checkoutTx) UserRole(ctx context.Context, userID int64) (user.Role, error) {
	return userRole(ctx, t.tx, userID)
}

func (t *checkoutTx) Affiliation(ctx context.Context, userID int64, role user.Role) (user.Affiliation, error) {
	return affiliation(ctx, t.tx, userID, role)
}

func (t *checkoutTx) SEByID(ctx context.Context, employeeID string) (*user.SE, error) {
	return seByID(ctx, t.tx, employeeID)
}

// CouponForUpdate locks the coupon row for the rest of the transaction, so
// concurrent redemptions of the same code serialize on it.
func (t *checkoutTx) CouponForUpdate(ctx context.Context, pool coupon.Pool, code string, schoolID int64) (*coupon.Coupon, error) {
	return findCoupon(ctx, t.tx, pool, code, schoolID, true)
}

func (t *checkoutTx) RedemptionCount(ctx context.Context, userID int64, code string) (int64, error) {
	rows, err := t.tx.Query(ctx, redemptionCountSQL, userID, code)
	if err != nil {
		return 0, fmt.Errorf("counting redemptions: %w", err)
	}
	return pgx.CollectExactlyOneRow(rows, pgx.RowTo[int64])
}

// IncrementCouponUses bumps the usage counter with a max_uses guard. Zero
// rows affected means the coupon lost the race and the redemption must be
// rejected.
func (t *checkoutTx) IncrementCouponUses(ctx context.Context, pool coupon.Pool, couponID int64) error {
	sql := fmt.Sprintf(`UPDATE %s SET current_uses = current_uses + 1
		WHERE id = $1 AND current_uses < max_uses`, couponTable(pool))

	tag, err := t.tx.Exec(ctx, sql, couponID)
	if err != nil {
		return fmt.Errorf("incrementing uses in %s pool: %w", pool, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrInvalid
	}
	return nil
}

func (t *checkoutTx) ProductsForUpdate(ctx context.Context, ids []int64) ([]product.Product, error) {
	rows, err := t.tx.Query(ctx, productsForUpdateSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("locking products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// DecrementStock is guarded so stock can never go negative even if a caller
// skipped the verification pass.
func (t *checkoutTx) DecrementStock(ctx context.Context, productID int64, qty int) error {
	tag, err := t.tx.Exec(ctx, decrementStockSQL, productID, qty)
	if err != nil {
		return fmt.Errorf("decrementing stock for product %d: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("decrementing stock for product %d: %w", productID,
			&checkout.InsufficientStockError{ProductID: productID, Requested: qty})
	}
	return nil
}

// CreateOrder persists the order with its line items serialized into the
// JSONB snapshot column.
func (t *checkoutTx) CreateOrder(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}

	_, err = t.tx.Exec(ctx, createOrderSQL,
		o.ID, o.UserID, o.FullName, o.Email, o.Address,
		o.City, o.State, o.Pincode, o.Phone,
		o.Total, nullString(o.CouponCode), o.DiscountAmount, itemsJSON,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

func (t *checkoutTx) AppendUsageLog(ctx context.Context, rec *checkout.UsageRecord) error {
	_, err := t.tx.Exec(ctx, appendUsageLogSQL,
		rec.UserID, rec.CouponCode, string(rec.Pool),
		rec.DiscountAmount, rec.OrderTotal, rec.OrderID,
		rec.SchoolPoints, rec.SEPoints,
		nullInt64(rec.SchoolID), nullString(rec.SEEmployeeID),
	)
	if err != nil {
		return fmt.Errorf("appending usage log: %w", err)
	}
	return nil
}

func (t *checkoutTx) AddSchoolPoints(ctx context.Context, schoolID int64, points int64) error {
	_, err := t.tx.Exec(ctx, addSchoolPointsSQL, schoolID, points)
	if err != nil {
		return fmt.Errorf("adding %d points to school %d: %w", points, schoolID, err)
	}
	return nil
}

func (t *checkoutTx) AddSEPoints(ctx context.Context, employeeID string, points int64) error {
	_, err := t.tx.Exec(ctx, addSEPointsSQL, employeeID, points)
	if err != nil {
		return fmt.Errorf("adding %d points to SE %q: %w", points, employeeID, err)
	}
	return nil
}

// ClearCart empties the purchaser's cart. A user without a cart is a no-op.
func (t *checkoutTx) ClearCart(ctx context.Context, userID int64) error {
	_, err := t.tx.Exec(ctx, clearCartSQL, userID)
	if err != nil {
		return fmt.Errorf("clearing cart for user %d: %w", userID, err)
	}
	return nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullInt64(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}
