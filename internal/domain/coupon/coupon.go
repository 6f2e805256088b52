package coupon

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Pool identifies which of the three structurally identical coupon tables a
// code belongs to. The pool is resolved exactly once from the code prefix and
// carried as data through the rest of the checkout pipeline; it is never
// reconstructed from strings at individual write sites.
type Pool string

const (
	// SchoolPool holds SE-prefixed coupons redeemable by school accounts,
	// scoped to the owning school.
	SchoolPool Pool = "school"
	// StudentPool holds STU-prefixed coupons redeemable by students of the
	// owning school.
	StudentPool Pool = "student"
	// UniversalPool holds unprefixed coupons with no owning affiliation.
	UniversalPool Pool = "universal"
)

// Code prefixes. The prefix convention is public, so prefix/role mismatches
// are reported explicitly rather than hidden behind the generic error.
const (
	PrefixSchool  = "SE-"
	PrefixStudent = "STU-"
)

var (
	// ErrInvalid is the generic rejection for a coupon that is missing,
	// expired, exhausted, or not valid for the purchaser's school. The
	// conditions are deliberately indistinguishable to the caller so coupon
	// codes cannot be enumerated.
	ErrInvalid = errors.New("invalid or expired coupon")
	// ErrRoleMismatch is returned when the code's prefix targets a different
	// purchaser role, or when an SE account attempts to redeem any coupon.
	ErrRoleMismatch = errors.New("coupon not available for this account type")
	// ErrEmptyCode is returned when a code is required but blank.
	ErrEmptyCode = errors.New("coupon code is required")
)

// Coupon is one row from a coupon pool.
type Coupon struct {
	ID                 int64
	Pool               Pool
	Code               string
	DiscountPercentage decimal.Decimal
	ValidFrom          time.Time
	ValidUntil         time.Time
	MaxUses            int
	CurrentUses        int
	SchoolID           int64 // zero for the universal pool
}

// Usable reports whether the coupon can be redeemed at the given instant:
// inside its validity window (inclusive on both ends) and not exhausted.
func (c *Coupon) Usable(now time.Time) bool {
	if now.Before(c.ValidFrom) || now.After(c.ValidUntil) {
		return false
	}
	return c.CurrentUses < c.MaxUses
}

// PoolFor derives the pool a code belongs to from its prefix.
func PoolFor(code string) Pool {
	switch {
	case strings.HasPrefix(code, PrefixStudent):
		return StudentPool
	case strings.HasPrefix(code, PrefixSchool):
		return SchoolPool
	default:
		return UniversalPool
	}
}

// Repository provides non-locking coupon lookups, used by the preview
// (validate-coupon) path. The checkout path locks rows through its own
// transaction-scoped interface. schoolID is ignored for the universal pool.
type Repository interface {
	Find(ctx context.Context, pool Pool, code string, schoolID int64) (*Coupon, error)
}
