package reward

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/edumart/checkout/internal/domain/coupon"
)

// Entry is one settled redemption from the usage log.
type Entry struct {
	OrderID      string
	CouponCode   string
	Pool         coupon.Pool
	OrderTotal   decimal.Decimal
	SchoolPoints int64
	SEPoints     int64
	CreatedAt    time.Time
}

// Ledger reads settled reward state: balances and redemption history. Writes
// happen only inside the checkout transaction.
type Ledger interface {
	// SchoolBalance returns the reward point balance of a school, or
	// user.ErrNotFound when the school does not exist.
	SchoolBalance(ctx context.Context, schoolID int64) (int64, error)
	// SEBalance returns the redeem point balance of a sales executive, or
	// user.ErrNotFound when the SE does not exist.
	SEBalance(ctx context.Context, employeeID string) (int64, error)
	// SEHistory returns the redemptions credited to a sales executive, newest
	// first.
	SEHistory(ctx context.Context, employeeID string) ([]Entry, error)
}
