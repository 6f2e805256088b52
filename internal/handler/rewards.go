package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/edumart/checkout/internal/domain/reward"
)

type schoolBalanceResponse struct {
	SchoolID     int64 `json:"schoolId"`
	RewardPoints int64 `json:"rewardPoints"`
}

// SchoolRewardPoints handles GET /api/schools/{schoolID}/reward-points.
func (h *Handler) SchoolRewardPoints(w http.ResponseWriter, r *http.Request) {
	schoolID, err := strconv.ParseInt(chi.URLParam(r, "schoolID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid school id")
		return
	}

	balance, err := h.ledger.SchoolBalance(r.Context(), schoolID)
	if err != nil {
		h.writeMappedError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, schoolBalanceResponse{
		SchoolID:     schoolID,
		RewardPoints: balance,
	})
}

type seBalanceResponse struct {
	EmployeeID   string `json:"employeeId"`
	RedeemPoints int64  `json:"redeemPoints"`
}

// SERedeemPoints handles GET /api/se/{employeeID}/redeem-points.
func (h *Handler) SERedeemPoints(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employeeID")

	balance, err := h.ledger.SEBalance(r.Context(), employeeID)
	if err != nil {
		h.writeMappedError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, seBalanceResponse{
		EmployeeID:   employeeID,
		RedeemPoints: balance,
	})
}

type rewardEntryResponse struct {
	OrderID      string          `json:"orderId"`
	CouponCode   string          `json:"couponCode"`
	CouponTable  string          `json:"coupon_table"`
	OrderTotal   decimal.Decimal `json:"orderTotal"`
	SchoolPoints int64           `json:"schoolPoints"`
	SEPoints     int64           `json:"sePoints"`
	CreatedAt    time.Time       `json:"createdAt"`
}

type seRewardsResponse struct {
	EmployeeID   string                `json:"employeeId"`
	RedeemPoints int64                 `json:"redeemPoints"`
	TotalEarned  int64                 `json:"totalEarned"`
	Redemptions  []rewardEntryResponse `json:"redemptions"`
}

// SERewards handles GET /api/se/{employeeID}/rewards: the SE's balance plus
// every redemption credited to them, newest first.
func (h *Handler) SERewards(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employeeID")

	balance, err := h.ledger.SEBalance(r.Context(), employeeID)
	if err != nil {
		h.writeMappedError(w, r, err)
		return
	}

	history, err := h.ledger.SEHistory(r.Context(), employeeID)
	if err != nil {
		h.writeMappedError(w, r, err)
		return
	}

	resp := seRewardsResponse{
		EmployeeID:   employeeID,
		RedeemPoints: balance,
		Redemptions:  make([]rewardEntryResponse, len(history)),
	}
	for i, e := range history {
		resp.TotalEarned += e.SEPoints
		resp.Redemptions[i] = toRewardEntryResponse(e)
	}
	writeJSON(w, http.StatusOK, resp)
}

func toRewardEntryResponse(e reward.Entry) rewardEntryResponse {
	return rewardEntryResponse{
		OrderID:      e.OrderID,
		CouponCode:   e.CouponCode,
		CouponTable:  string(e.Pool),
		OrderTotal:   e.OrderTotal,
		SchoolPoints: e.SchoolPoints,
		SEPoints:     e.SEPoints,
		CreatedAt:    e.CreatedAt,
	}
}
