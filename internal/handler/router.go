package handler

import (
	"github.com/go-chi/chi/v5"
)

// Routes mounts every API endpoint on a chi router. Health endpoints live
// outside the /api prefix and are mounted by the application wiring.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Route("/checkout", func(r chi.Router) {
			r.Post("/orders", h.PlaceOrder)
			r.Post("/validate-coupon", h.ValidateCoupon)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Get("/{productID}", h.GetProduct)
		})

		r.Get("/schools/{schoolID}/reward-points", h.SchoolRewardPoints)

		r.Route("/se/{employeeID}", func(r chi.Router) {
			r.Get("/redeem-points", h.SERedeemPoints)
			r.Get("/rewards", h.SERewards)
		})
	})

	return r
}
