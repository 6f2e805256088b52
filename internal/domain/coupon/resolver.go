package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/edumart/checkout/internal/domain/user"
)

// Match is the result of a successful eligibility resolution: the coupon row
// for discount computation plus the pool tag later steps need to target the
// correct usage counter.
type Match struct {
	Coupon *Coupon
	Pool   Pool
}

// Resolver applies the pool/role eligibility rules shared by the checkout
// path and the validate-coupon preview, so the two can never disagree.
type Resolver struct {
	repo Repository
	now  func() time.Time
}

// NewResolver creates a Resolver backed by the given Repository.
func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo, now: time.Now}
}

// WithNow overrides the clock. Intended for tests.
func (r *Resolver) WithNow(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// PoolForRole returns the pool the code resolves to for the given purchaser
// role, enforcing the prefix convention. SE accounts never redeem coupons.
func PoolForRole(code string, role user.Role) (Pool, error) {
	if code == "" {
		return "", ErrEmptyCode
	}
	if role == user.RoleSE {
		return "", ErrRoleMismatch
	}

	pool := PoolFor(code)
	switch pool {
	case StudentPool:
		if role != user.RoleStudent {
			return "", ErrRoleMismatch
		}
	case SchoolPool:
		if role != user.RoleSchool {
			return "", ErrRoleMismatch
		}
	}
	return pool, nil
}

// Resolve determines the pool for the code, looks the coupon up scoped to the
// purchaser's school where the pool requires it, and checks that it is
// currently usable. All lookup failures collapse into ErrInvalid; only the
// public prefix convention yields the explicit ErrRoleMismatch.
func (r *Resolver) Resolve(ctx context.Context, code string, role user.Role, schoolID int64) (*Match, error) {
	pool, err := PoolForRole(code, role)
	if err != nil {
		return nil, err
	}

	c, err := r.repo.Find(ctx, pool, code, schoolID)
	if err != nil {
		if errors.Is(err, ErrInvalid) {
			return nil, ErrInvalid
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	if !c.Usable(r.now()) {
		return nil, ErrInvalid
	}

	return &Match{Coupon: c, Pool: pool}, nil
}
