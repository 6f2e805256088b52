package checkout

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edumart/checkout/internal/domain/coupon"
	"github.com/edumart/checkout/internal/domain/order"
	"github.com/edumart/checkout/internal/domain/reward"
	"github.com/edumart/checkout/internal/domain/user"
)

// state names the orchestrator's progress through one checkout. The failed
// state is attached to rollback logs so any single step can be traced (and
// fail-injected in tests).
type state string

const (
	stateStarted          state = "started"
	stateRoleResolved     state = "role_resolved"
	stateCouponResolved   state = "coupon_resolved"
	stateCouponSkipped    state = "coupon_skipped"
	stateStockVerified    state = "stock_verified"
	stateRewardsComputed  state = "rewards_computed"
	stateOrderPersisted   state = "order_persisted"
	stateLedgerUpdated    state = "ledger_updated"
	stateStockDecremented state = "stock_decremented"
	stateCartCleared      state = "cart_cleared"
)

// Service sequences a checkout inside one atomic transaction and settles the
// coupon/reward ledgers. It also backs the read-only coupon preview endpoint
// so preview and checkout can never apply different eligibility rules.
type Service struct {
	store    Store
	users    user.Repository
	coupons  *coupon.Resolver
	notifier Dispatcher
	lg       *zap.Logger
	now      func() time.Time
}

// NewService creates a checkout Service.
func NewService(store Store, users user.Repository, coupons *coupon.Resolver, notifier Dispatcher, lg *zap.Logger) *Service {
	return &Service{
		store:    store,
		users:    users,
		coupons:  coupons,
		notifier: notifier,
		lg:       lg,
		now:      time.Now,
	}
}

// run carries the mutable state of one checkout through its steps.
type run struct {
	req   Request
	state state

	role        user.Role
	affiliation user.Affiliation
	match       *coupon.Match
	seRole      string
	result      reward.Result
	orderID     string
}

// PlaceOrder validates the request, then executes the checkout state machine
// inside a single transaction: resolve role and affiliation, resolve the
// coupon, verify stock for the whole cart, compute the settlement, persist
// the order, update the reward ledgers, decrement stock, and clear the cart.
// Any step failure rolls the entire unit of work back.
func (s *Service) PlaceOrder(ctx context.Context, req Request) (*Receipt, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	r := &run{req: req, state: stateStarted}

	err := s.store.Checkout(ctx, func(tx Tx) error {
		for _, step := range []func(context.Context, Tx, *run) error{
			s.resolveRole,
			s.resolveCoupon,
			s.verifyStock,
			s.computeRewards,
			s.persistOrder,
			s.updateLedger,
			s.decrementStock,
			s.clearCart,
		} {
			if err := step(ctx, tx, r); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.lg.Info("checkout rolled back",
			zap.Int64("user_id", req.UserID),
			zap.String("state", string(r.state)),
			zap.Error(err),
		)
		return nil, err
	}

	// Post-commit, best-effort. Never affects the committed order.
	s.notifier.OrderPlaced(ctx, r.orderID, req.Email)

	return &Receipt{
		OrderID:      r.orderID,
		Discount:     r.result.Discount,
		Total:        r.result.FinalTotal,
		SchoolPoints: r.result.SchoolPoints,
		SEPoints:     r.result.SEPoints,
	}, nil
}

// validateRequest rejects malformed input before any transaction side effect.
func validateRequest(req Request) error {
	if len(req.Items) == 0 {
		return ErrNoItems
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return &InvalidQuantityError{ProductID: item.ProductID}
		}
	}
	if req.Total.IsNegative() {
		return ErrInvalidTotal
	}
	for _, f := range []struct{ name, value string }{
		{"fullName", req.FullName},
		{"email", req.Email},
		{"address", req.Address},
		{"phone", req.Phone},
	} {
		if f.value == "" {
			return &MissingFieldError{Field: f.name}
		}
	}
	return nil
}

func (s *Service) resolveRole(ctx context.Context, tx Tx, r *run) error {
	role, err := tx.UserRole(ctx, r.req.UserID)
	if err != nil {
		return err
	}
	if !role.Valid() {
		return errors.Wrapf(ErrUnsupportedRole, "user type %q", role)
	}
	r.role = role

	if role != user.RoleSE {
		aff, err := tx.Affiliation(ctx, r.req.UserID, role)
		if err != nil {
			return err
		}
		r.affiliation = aff
	}

	r.state = stateRoleResolved
	return nil
}

func (s *Service) resolveCoupon(ctx context.Context, tx Tx, r *run) error {
	if r.req.CouponCode == "" {
		r.state = stateCouponSkipped
		return nil
	}

	pool, err := coupon.PoolForRole(r.req.CouponCode, r.role)
	if err != nil {
		return err
	}

	c, err := tx.CouponForUpdate(ctx, pool, r.req.CouponCode, r.affiliation.SchoolID)
	if err != nil {
		return err
	}
	if !c.Usable(s.now()) {
		return coupon.ErrInvalid
	}

	r.match = &coupon.Match{Coupon: c, Pool: pool}

	if r.role == user.RoleSchool && r.affiliation.SEEmployeeID != "" {
		se, err := tx.SEByID(ctx, r.affiliation.SEEmployeeID)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				// Dangling SE linkage is a data issue, not the purchaser's
				// problem: checkout proceeds without SE points.
				s.lg.Warn("linked SE not found, skipping SE points",
					zap.String("employee_id", r.affiliation.SEEmployeeID),
					zap.Int64("school_id", r.affiliation.SchoolID),
				)
			} else {
				return err
			}
		} else {
			r.seRole = se.Role
		}
	}

	r.state = stateCouponResolved
	return nil
}

// verifyStock locks and checks every line item before anything is mutated:
// an insufficiency anywhere aborts the whole order.
func (s *Service) verifyStock(ctx context.Context, tx Tx, r *run) error {
	ids := make([]int64, len(r.req.Items))
	for i, item := range r.req.Items {
		ids[i] = item.ProductID
	}

	products, err := tx.ProductsForUpdate(ctx, ids)
	if err != nil {
		return err
	}

	stock := make(map[int64]int, len(products))
	for _, p := range products {
		stock[p.ID] = p.Stock
	}

	// Aggregate quantities so a product listed twice is checked as one demand.
	requested := make(map[int64]int, len(r.req.Items))
	for _, item := range r.req.Items {
		requested[item.ProductID] += item.Quantity
	}

	for _, item := range r.req.Items {
		available, ok := stock[item.ProductID]
		if !ok {
			return &ProductNotFoundError{ProductID: item.ProductID}
		}
		if want := requested[item.ProductID]; available < want {
			return &InsufficientStockError{
				ProductID: item.ProductID,
				Available: available,
				Requested: want,
			}
		}
	}

	r.state = stateStockVerified
	return nil
}

func (s *Service) computeRewards(ctx context.Context, tx Tx, r *run) error {
	in := reward.Input{
		RawTotal: r.req.Total,
		Role:     r.role,
		SERole:   r.seRole,
	}
	if r.match != nil {
		in.Coupon = r.match.Coupon
		in.Pool = r.match.Pool
	}
	r.result = reward.Calculate(in)

	if r.result.UnknownSERole {
		s.lg.Warn("unrecognized SE role, no SE points awarded",
			zap.String("employee_id", r.affiliation.SEEmployeeID),
			zap.String("se_role", r.seRole),
		)
	}

	// SE points are only awarded on the purchaser's first redemption of this
	// code; repeat redemptions keep the discount but credit no SE.
	if r.result.SEPoints > 0 {
		count, err := tx.RedemptionCount(ctx, r.req.UserID, r.req.CouponCode)
		if err != nil {
			return err
		}
		if count > 0 {
			r.result.SEPoints = 0
		}
	}

	r.state = stateRewardsComputed
	return nil
}

func (s *Service) persistOrder(ctx context.Context, tx Tx, r *run) error {
	r.orderID = uuid.New().String()

	o := &order.Order{
		ID:             r.orderID,
		UserID:         r.req.UserID,
		FullName:       r.req.FullName,
		Email:          r.req.Email,
		Address:        r.req.Address,
		City:           r.req.City,
		State:          r.req.State,
		Pincode:        r.req.Pincode,
		Phone:          r.req.Phone,
		Total:          r.result.FinalTotal,
		CouponCode:     r.req.CouponCode,
		DiscountAmount: r.result.Discount,
		Items:          r.req.Items,
	}
	if err := tx.CreateOrder(ctx, o); err != nil {
		return errors.Wrap(err, "create order")
	}

	r.state = stateOrderPersisted
	return nil
}

// updateLedger settles the coupon counter, both beneficiary balances, and the
// audit log. The coupon counter increment is the concurrency-sensitive write:
// its conditional update is what rejects the loser of a max_uses race.
func (s *Service) updateLedger(ctx context.Context, tx Tx, r *run) error {
	if r.match == nil {
		r.state = stateLedgerUpdated
		return nil
	}

	if err := tx.IncrementCouponUses(ctx, r.match.Pool, r.match.Coupon.ID); err != nil {
		return err
	}

	if r.result.SchoolPoints > 0 {
		if err := tx.AddSchoolPoints(ctx, r.affiliation.SchoolID, r.result.SchoolPoints); err != nil {
			return errors.Wrap(err, "add school points")
		}
	}

	// SE points are a secondary reward step: a failure here is logged and the
	// checkout continues, trading strict reward atomicity for order
	// completion. The audit row is zeroed so the log matches the balance.
	if r.result.SEPoints > 0 {
		if err := tx.AddSEPoints(ctx, r.affiliation.SEEmployeeID, r.result.SEPoints); err != nil {
			s.lg.Warn("SE points update failed, continuing checkout",
				zap.String("employee_id", r.affiliation.SEEmployeeID),
				zap.Int64("points", r.result.SEPoints),
				zap.Error(err),
			)
			r.result.SEPoints = 0
		}
	}

	rec := &UsageRecord{
		UserID:         r.req.UserID,
		CouponCode:     r.req.CouponCode,
		Pool:           r.match.Pool,
		DiscountAmount: r.result.Discount,
		OrderTotal:     r.result.FinalTotal,
		OrderID:        r.orderID,
		SchoolPoints:   r.result.SchoolPoints,
		SEPoints:       r.result.SEPoints,
		SchoolID:       r.affiliation.SchoolID,
		SEEmployeeID:   r.affiliation.SEEmployeeID,
	}
	if err := tx.AppendUsageLog(ctx, rec); err != nil {
		return errors.Wrap(err, "append usage log")
	}

	r.state = stateLedgerUpdated
	return nil
}

func (s *Service) decrementStock(ctx context.Context, tx Tx, r *run) error {
	for _, item := range r.req.Items {
		if err := tx.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}
	r.state = stateStockDecremented
	return nil
}

// clearCart empties the purchaser's cart. Absence of a cart is not an error.
func (s *Service) clearCart(ctx context.Context, tx Tx, r *run) error {
	if err := tx.ClearCart(ctx, r.req.UserID); err != nil {
		return errors.Wrap(err, "clear cart")
	}
	r.state = stateCartCleared
	return nil
}

// Preview is the result of a read-only coupon validation.
type Preview struct {
	DiscountPercentage string
	Pool               coupon.Pool
}

// ValidateCoupon runs the same eligibility rules as checkout without
// consuming anything: no counter increment, no usage log.
func (s *Service) ValidateCoupon(ctx context.Context, code string, userID int64, claimedRole user.Role) (*Preview, error) {
	if code == "" {
		return nil, coupon.ErrEmptyCode
	}
	if !claimedRole.Valid() {
		return nil, errors.Wrapf(ErrUnsupportedRole, "user type %q", claimedRole)
	}

	role, err := s.users.RoleByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if role != claimedRole {
		return nil, coupon.ErrRoleMismatch
	}

	var schoolID int64
	if role != user.RoleSE {
		aff, err := s.users.Affiliation(ctx, userID, role)
		if err != nil {
			return nil, err
		}
		schoolID = aff.SchoolID
	}

	match, err := s.coupons.Resolve(ctx, code, role, schoolID)
	if err != nil {
		return nil, err
	}

	return &Preview{
		DiscountPercentage: match.Coupon.DiscountPercentage.String(),
		Pool:               match.Pool,
	}, nil
}
