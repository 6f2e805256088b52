package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order represents a placed order. Orders are immutable once created: the
// line items are a snapshot taken at checkout time, so later stock or price
// changes never retroactively alter them.
type Order struct {
	ID             string
	UserID         int64
	FullName       string
	Email          string
	Address        string
	City           string
	State          string
	Pincode        string
	Phone          string
	Total          decimal.Decimal
	CouponCode     string // empty when no coupon was applied
	DiscountAmount decimal.Decimal
	Items          []LineItem
	CreatedAt      time.Time
}

// LineItem is one product/quantity pair snapshotted at purchase time.
type LineItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}
