// Package reward implements the pure discount and loyalty-point arithmetic
// for checkout settlement. Nothing here performs I/O; the orchestrator feeds
// it resolved inputs and persists whatever it returns.
package reward

import (
	"github.com/shopspring/decimal"

	"github.com/edumart/checkout/internal/domain/coupon"
	"github.com/edumart/checkout/internal/domain/user"
)

// SE roles recognized by the points program, each with its own
// points-per-100-currency multiplier.
const (
	SERoleCalling = "Calling SE"
	SERoleField   = "Field SE"

	schoolPointsPer100 = 2
	callingSEPer100    = 5
	fieldSEPer100      = 10
)

var hundred = decimal.NewFromInt(100)

// Input is everything the calculator needs, already resolved.
type Input struct {
	RawTotal decimal.Decimal
	Coupon   *coupon.Coupon // nil when no code was supplied
	Pool     coupon.Pool    // meaningful only when Coupon != nil
	Role     user.Role
	SERole   string // linked SE's role; empty when no SE is linked
}

// Result is the computed settlement. UnknownSERole flags a linked SE whose
// role string is not recognized; the caller logs it and awards no SE points.
type Result struct {
	Discount      decimal.Decimal
	FinalTotal    decimal.Decimal
	SchoolPoints  int64
	SEPoints      int64
	UnknownSERole bool
}

// Calculate computes the discount and both beneficiary point amounts.
// The discount itself is never rounded; only the points formula floors.
func Calculate(in Input) Result {
	out := Result{
		Discount:   decimal.Zero,
		FinalTotal: in.RawTotal,
	}

	if in.Coupon == nil {
		if out.FinalTotal.IsNegative() {
			out.FinalTotal = decimal.Zero
		}
		return out
	}

	out.Discount = in.RawTotal.Mul(in.Coupon.DiscountPercentage).Div(hundred)
	out.FinalTotal = in.RawTotal.Sub(out.Discount)
	if out.FinalTotal.IsNegative() {
		out.FinalTotal = decimal.Zero
	}

	blocks := pointBlocks(out.FinalTotal)

	// School points accrue to the purchaser's school: for students only via
	// their own (student-pool) coupons, for school accounts via any coupon.
	switch {
	case in.Role == user.RoleStudent && in.Pool == coupon.StudentPool:
		out.SchoolPoints = blocks * schoolPointsPer100
	case in.Role == user.RoleSchool:
		out.SchoolPoints = blocks * schoolPointsPer100
	}

	// SE points accrue only on school purchases with a linked SE.
	if in.Role == user.RoleSchool && in.SERole != "" {
		switch in.SERole {
		case SERoleCalling:
			out.SEPoints = blocks * callingSEPer100
		case SERoleField:
			out.SEPoints = blocks * fieldSEPer100
		default:
			out.UnknownSERole = true
		}
	}

	return out
}

// pointBlocks returns floor(total / 100), the number of full 100-currency
// blocks in the final total.
func pointBlocks(total decimal.Decimal) int64 {
	return total.Div(hundred).Floor().IntPart()
}
