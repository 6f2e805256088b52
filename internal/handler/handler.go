// Package handler exposes the checkout engine over HTTP.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/edumart/checkout/internal/domain/checkout"
	"github.com/edumart/checkout/internal/domain/coupon"
	"github.com/edumart/checkout/internal/domain/order"
	"github.com/edumart/checkout/internal/domain/product"
	"github.com/edumart/checkout/internal/domain/reward"
	"github.com/edumart/checkout/internal/domain/user"
)

// Handler serves the checkout, catalog, and reward endpoints.
type Handler struct {
	checkout *checkout.Service
	products product.Repository
	ledger   reward.Ledger
	lg       *zap.Logger
}

// New creates a Handler.
func New(svc *checkout.Service, products product.Repository, ledger reward.Ledger, lg *zap.Logger) *Handler {
	return &Handler{
		checkout: svc,
		products: products,
		ledger:   ledger,
		lg:       lg,
	}
}

type cartItemBody struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type placeOrderBody struct {
	UserID     int64           `json:"userId"`
	FullName   string          `json:"fullName"`
	Email      string          `json:"email"`
	Address    string          `json:"address"`
	City       string          `json:"city"`
	State      string          `json:"state"`
	Pincode    string          `json:"pincode"`
	Phone      string          `json:"phone"`
	Total      decimal.Decimal `json:"total"`
	CouponCode string          `json:"couponCode"`
	CartItems  []cartItemBody  `json:"cartItems"`
}

type placeOrderResponse struct {
	Message             string          `json:"message"`
	OrderID             string          `json:"orderId"`
	Discount            decimal.Decimal `json:"discount"`
	SchoolPointsAwarded int64           `json:"schoolPointsAwarded"`
	SEPointsAwarded     int64           `json:"sePointsAwarded"`
}

// PlaceOrder handles POST /api/checkout/orders.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var body placeOrderBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items := make([]order.LineItem, len(body.CartItems))
	for i, it := range body.CartItems {
		items[i] = order.LineItem{ProductID: it.ProductID, Quantity: it.Quantity}
	}

	receipt, err := h.checkout.PlaceOrder(r.Context(), checkout.Request{
		UserID:     body.UserID,
		FullName:   body.FullName,
		Email:      body.Email,
		Address:    body.Address,
		City:       body.City,
		State:      body.State,
		Pincode:    body.Pincode,
		Phone:      body.Phone,
		Total:      body.Total,
		CouponCode: body.CouponCode,
		Items:      items,
	})
	if err != nil {
		h.writeMappedError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, placeOrderResponse{
		Message:             "order placed successfully",
		OrderID:             receipt.OrderID,
		Discount:            receipt.Discount,
		SchoolPointsAwarded: receipt.SchoolPoints,
		SEPointsAwarded:     receipt.SEPoints,
	})
}

type validateCouponBody struct {
	Code     string `json:"code"`
	UserID   int64  `json:"userId"`
	UserType string `json:"userType"`
}

type validateCouponResponse struct {
	DiscountPercentage string `json:"discount_percentage"`
	CouponTable        string `json:"coupon_table"`
	Message            string `json:"message"`
}

// ValidateCoupon handles POST /api/checkout/validate-coupon. It is a
// read-only preview: nothing is consumed or logged.
func (h *Handler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	var body validateCouponBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	preview, err := h.checkout.ValidateCoupon(r.Context(), body.Code, body.UserID, user.Role(body.UserType))
	if err != nil {
		h.writeMappedError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, validateCouponResponse{
		DiscountPercentage: preview.DiscountPercentage,
		CouponTable:        string(preview.Pool),
		Message:            "coupon is valid",
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeMappedError translates domain errors into HTTP status codes: 400 for
// malformed input, 404 for unknown accounts, 403 for coupon/role mismatches,
// 422 for business-rule rejections, 500 otherwise. Coupon rejections stay
// deliberately vague so codes cannot be enumerated.
func (h *Handler) writeMappedError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		missingField *checkout.MissingFieldError
		badQty       *checkout.InvalidQuantityError
		notFound     *checkout.ProductNotFoundError
		noStock      *checkout.InsufficientStockError
	)

	switch {
	case errors.Is(err, checkout.ErrNoItems),
		errors.Is(err, checkout.ErrInvalidTotal),
		errors.Is(err, checkout.ErrUnsupportedRole),
		errors.Is(err, coupon.ErrEmptyCode),
		errors.As(err, &missingField),
		errors.As(err, &badQty):
		writeError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, user.ErrNotFound),
		errors.Is(err, user.ErrNoAffiliation):
		writeError(w, http.StatusNotFound, err.Error())

	case errors.Is(err, coupon.ErrRoleMismatch):
		writeError(w, http.StatusForbidden, err.Error())

	case errors.Is(err, coupon.ErrInvalid):
		writeError(w, http.StatusUnprocessableEntity, coupon.ErrInvalid.Error())

	case errors.As(err, &notFound),
		errors.As(err, &noStock):
		writeError(w, http.StatusUnprocessableEntity, err.Error())

	default:
		h.lg.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
