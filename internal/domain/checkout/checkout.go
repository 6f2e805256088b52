package checkout

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/edumart/checkout/internal/domain/coupon"
	"github.com/edumart/checkout/internal/domain/order"
	"github.com/edumart/checkout/internal/domain/product"
	"github.com/edumart/checkout/internal/domain/user"
)

// Sentinel errors for checkout validation.
var (
	ErrNoItems         = errors.New("cart items required")
	ErrInvalidTotal    = errors.New("order total must not be negative")
	ErrUnsupportedRole = errors.New("unsupported user type")
)

// MissingFieldError indicates a required shipping/contact field was blank.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID int64
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %d", e.ProductID)
}

// InsufficientStockError rejects the whole order when any single line item
// exceeds available stock.
type InsufficientStockError struct {
	ProductID int64
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: %d available, %d requested",
		e.ProductID, e.Available, e.Requested)
}

// Request is the input to PlaceOrder.
type Request struct {
	UserID     int64
	FullName   string
	Email      string
	Address    string
	City       string
	State      string
	Pincode    string
	Phone      string
	Total      decimal.Decimal
	CouponCode string
	Items      []order.LineItem
}

// Receipt is the result of a committed checkout. Point fields are always
// present and zero when not applicable to the purchaser's role.
type Receipt struct {
	OrderID      string
	Discount     decimal.Decimal
	Total        decimal.Decimal
	SchoolPoints int64
	SEPoints     int64
}

// UsageRecord is one append-only coupon redemption audit row.
type UsageRecord struct {
	UserID         int64
	CouponCode     string
	Pool           coupon.Pool
	DiscountAmount decimal.Decimal
	OrderTotal     decimal.Decimal
	OrderID        string
	SchoolPoints   int64
	SEPoints       int64
	SchoolID       int64  // zero when no school beneficiary
	SEEmployeeID   string // empty when no SE beneficiary
}

// Tx is the set of operations available inside one checkout transaction.
// Every mutation of the four shared counters (coupon uses, school points,
// SE points, stock) goes through here so it shares the commit/rollback
// boundary. Implementations must provide row-level locking semantics:
// CouponForUpdate and ProductsForUpdate lock the rows they return, and
// IncrementCouponUses / DecrementStock are conditional updates that fail
// rather than exceed max_uses or drive stock negative.
type Tx interface {
	UserRole(ctx context.Context, userID int64) (user.Role, error)
	Affiliation(ctx context.Context, userID int64, role user.Role) (user.Affiliation, error)
	SEByID(ctx context.Context, employeeID string) (*user.SE, error)

	CouponForUpdate(ctx context.Context, pool coupon.Pool, code string, schoolID int64) (*coupon.Coupon, error)
	RedemptionCount(ctx context.Context, userID int64, code string) (int64, error)
	IncrementCouponUses(ctx context.Context, pool coupon.Pool, couponID int64) error

	ProductsForUpdate(ctx context.Context, ids []int64) ([]product.Product, error)
	DecrementStock(ctx context.Context, productID int64, qty int) error

	CreateOrder(ctx context.Context, o *order.Order) error
	AppendUsageLog(ctx context.Context, rec *UsageRecord) error
	AddSchoolPoints(ctx context.Context, schoolID int64, points int64) error
	AddSEPoints(ctx context.Context, employeeID string, points int64) error

	ClearCart(ctx context.Context, userID int64) error
}

// Store opens a single database transaction for the duration of fn. A nil
// error from fn commits; any error rolls the whole unit of work back.
type Store interface {
	Checkout(ctx context.Context, fn func(tx Tx) error) error
}

// Dispatcher delivers post-commit notifications. Delivery is best-effort:
// failures are logged and never affect the committed order.
type Dispatcher interface {
	OrderPlaced(ctx context.Context, orderID string, email string)
}
