package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/edumart/checkout/internal/domain/coupon"
	"github.com/edumart/checkout/internal/domain/order"
	"github.com/edumart/checkout/internal/domain/product"
	"github.com/edumart/checkout/internal/domain/user"
)

// --- Mocks ---

// mockTx is a scriptable checkout transaction. Each operation can be given an
// error to inject, and every mutation is recorded so tests can assert exactly
// what a rolled-back or committed checkout touched.
type mockTx struct {
	role        user.Role
	roleErr     error
	affiliation user.Affiliation
	affErr      error
	se          *user.SE
	seErr       error

	coupon          *coupon.Coupon
	couponErr       error
	redemptions     int64
	redemptionsErr  error
	incrementErr    error
	incrementCalls  int
	incrementedPool coupon.Pool

	products    []product.Product
	productsErr error

	createOrderErr error
	createdOrder   *order.Order

	usageLogErr  error
	usageRecords []*UsageRecord

	schoolPointsErr   error
	schoolPointsAdded int64
	schoolPointsTo    int64

	sePointsErr   error
	sePointsAdded int64
	sePointsTo    string

	stockErr   error
	decrements map[int64]int

	clearCartErr    error
	cartClearedFor  int64
	cartClearCalled bool
}

func (m *mockTx) UserRole(_ context.Context, _ int64) (user.Role, error) {
	return m.role, m.roleErr
}

func (m *mockTx) Affiliation(_ context.Context, _ int64, _ user.Role) (user.Affiliation, error) {
	return m.affiliation, m.affErr
}

func (m *mockTx) SEByID(_ context.Context, _ string) (*user.SE, error) {
	if m.seErr != nil {
		return nil, m.seErr
	}
	if m.se == nil {
		return nil, user.ErrNotFound
	}
	return m.se, nil
}

func (m *mockTx) CouponForUpdate(_ context.Context, _ coupon.Pool, _ string, _ int64) (*coupon.Coupon, error) {
	if m.couponErr != nil {
		return nil, m.couponErr
	}
	if m.coupon == nil {
		return nil, coupon.ErrInvalid
	}
	return m.coupon, nil
}

func (m *mockTx) RedemptionCount(_ context.Context, _ int64, _ string) (int64, error) {
	return m.redemptions, m.redemptionsErr
}

func (m *mockTx) IncrementCouponUses(_ context.Context, pool coupon.Pool, _ int64) error {
	if m.incrementErr != nil {
		return m.incrementErr
	}
	m.incrementCalls++
	m.incrementedPool = pool
	return nil
}

func (m *mockTx) ProductsForUpdate(_ context.Context, _ []int64) ([]product.Product, error) {
	return m.products, m.productsErr
}

func (m *mockTx) DecrementStock(_ context.Context, productID int64, qty int) error {
	if m.stockErr != nil {
		return m.stockErr
	}
	if m.decrements == nil {
		m.decrements = make(map[int64]int)
	}
	m.decrements[productID] += qty
	return nil
}

func (m *mockTx) CreateOrder(_ context.Context, o *order.Order) error {
	if m.createOrderErr != nil {
		return m.createOrderErr
	}
	m.createdOrder = o
	return nil
}

func (m *mockTx) AppendUsageLog(_ context.Context, rec *UsageRecord) error {
	if m.usageLogErr != nil {
		return m.usageLogErr
	}
	m.usageRecords = append(m.usageRecords, rec)
	return nil
}

func (m *mockTx) AddSchoolPoints(_ context.Context, schoolID int64, points int64) error {
	if m.schoolPointsErr != nil {
		return m.schoolPointsErr
	}
	m.schoolPointsTo = schoolID
	m.schoolPointsAdded += points
	return nil
}

func (m *mockTx) AddSEPoints(_ context.Context, employeeID string, points int64) error {
	if m.sePointsErr != nil {
		return m.sePointsErr
	}
	m.sePointsTo = employeeID
	m.sePointsAdded += points
	return nil
}

func (m *mockTx) ClearCart(_ context.Context, userID int64) error {
	if m.clearCartErr != nil {
		return m.clearCartErr
	}
	m.cartClearCalled = true
	m.cartClearedFor = userID
	return nil
}

// mockStore runs fn against the scripted tx and records whether the unit of
// work committed or rolled back.
type mockStore struct {
	tx         *mockTx
	rolledBack bool
	committed  bool
}

func (m *mockStore) Checkout(_ context.Context, fn func(tx Tx) error) error {
	if err := fn(m.tx); err != nil {
		m.rolledBack = true
		return err
	}
	m.committed = true
	return nil
}

type mockUserRepo struct {
	role    user.Role
	roleErr error
	aff     user.Affiliation
	affErr  error
}

func (m *mockUserRepo) RoleByID(_ context.Context, _ int64) (user.Role, error) {
	return m.role, m.roleErr
}

func (m *mockUserRepo) Affiliation(_ context.Context, _ int64, _ user.Role) (user.Affiliation, error) {
	return m.aff, m.affErr
}

type mockCouponFinder struct {
	coupon *coupon.Coupon
	err    error
}

func (m *mockCouponFinder) Find(_ context.Context, _ coupon.Pool, _ string, _ int64) (*coupon.Coupon, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.coupon, nil
}

type mockDispatcher struct {
	orderIDs []string
}

func (m *mockDispatcher) OrderPlaced(_ context.Context, orderID string, _ string) {
	m.orderIDs = append(m.orderIDs, orderID)
}

// --- Helpers ---

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func activeCoupon(id int64, code string, pct int64, schoolID int64) *coupon.Coupon {
	return &coupon.Coupon{
		ID:                 id,
		Code:               code,
		DiscountPercentage: decimal.NewFromInt(pct),
		ValidFrom:          fixedNow.Add(-time.Hour),
		ValidUntil:         fixedNow.Add(time.Hour),
		MaxUses:            100,
		SchoolID:           schoolID,
	}
}

func newService(t *testing.T, store Store, users user.Repository, finder coupon.Repository) (*Service, *mockDispatcher) {
	t.Helper()
	if users == nil {
		users = &mockUserRepo{}
	}
	if finder == nil {
		finder = &mockCouponFinder{}
	}
	dispatcher := &mockDispatcher{}
	resolver := coupon.NewResolver(finder).WithNow(func() time.Time { return fixedNow })
	svc := NewService(store, users, resolver, dispatcher, zaptest.NewLogger(t))
	svc.now = func() time.Time { return fixedNow }
	return svc, dispatcher
}

func baseRequest() Request {
	return Request{
		UserID:   42,
		FullName: "Asha Verma",
		Email:    "asha@example.com",
		Address:  "12 Lake Road",
		City:     "Pune",
		State:    "MH",
		Pincode:  "411001",
		Phone:    "9999999999",
		Total:    decimal.NewFromInt(500),
		Items: []order.LineItem{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 1},
		},
	}
}

func stocked(items ...product.Product) []product.Product { return items }

// --- Validation ---

func TestPlaceOrder_Validation(t *testing.T) {
	svc, _ := newService(t, &mockStore{tx: &mockTx{}}, nil, nil)

	t.Run("empty items", func(t *testing.T) {
		req := baseRequest()
		req.Items = nil
		_, err := svc.PlaceOrder(context.Background(), req)
		require.ErrorIs(t, err, ErrNoItems)
	})

	t.Run("non-positive quantity", func(t *testing.T) {
		req := baseRequest()
		req.Items[1].Quantity = 0
		_, err := svc.PlaceOrder(context.Background(), req)
		var iq *InvalidQuantityError
		require.ErrorAs(t, err, &iq)
		assert.Equal(t, int64(2), iq.ProductID)
	})

	t.Run("negative total", func(t *testing.T) {
		req := baseRequest()
		req.Total = decimal.NewFromInt(-1)
		_, err := svc.PlaceOrder(context.Background(), req)
		require.ErrorIs(t, err, ErrInvalidTotal)
	})

	t.Run("missing contact field", func(t *testing.T) {
		req := baseRequest()
		req.Email = ""
		_, err := svc.PlaceOrder(context.Background(), req)
		var mf *MissingFieldError
		require.ErrorAs(t, err, &mf)
		assert.Equal(t, "email", mf.Field)
	})
}

// --- Happy paths ---

func TestPlaceOrder_NoCoupon(t *testing.T) {
	tx := &mockTx{
		role: user.RoleStudent,
		affiliation: user.Affiliation{
			Role:     user.RoleStudent,
			SchoolID: 7,
		},
		products: stocked(
			product.Product{ID: 1, Stock: 5, Price: decimal.NewFromInt(100)},
			product.Product{ID: 2, Stock: 5, Price: decimal.NewFromInt(300)},
		),
	}
	store := &mockStore{tx: tx}
	svc, dispatcher := newService(t, store, nil, nil)

	receipt, err := svc.PlaceOrder(context.Background(), baseRequest())

	require.NoError(t, err)
	assert.True(t, store.committed)
	assert.True(t, decimal.Zero.Equal(receipt.Discount))
	assert.True(t, decimal.NewFromInt(500).Equal(receipt.Total))
	assert.Zero(t, receipt.SchoolPoints)
	assert.Zero(t, receipt.SEPoints)
	assert.Zero(t, tx.incrementCalls, "no coupon, no counter increment")
	assert.Empty(t, tx.usageRecords, "no coupon, no usage log")
	assert.Equal(t, map[int64]int{1: 2, 2: 1}, tx.decrements)
	assert.True(t, tx.cartClearCalled)
	assert.Equal(t, []string{receipt.OrderID}, dispatcher.orderIDs)
}

func TestPlaceOrder_StudentCouponScenario(t *testing.T) {
	// Student from school 7, total 500, STU- coupon at 15%:
	// discount 75, final 425, school points floor(425/100)*2 = 8.
	tx := &mockTx{
		role:        user.RoleStudent,
		affiliation: user.Affiliation{Role: user.RoleStudent, SchoolID: 7},
		coupon:      activeCoupon(11, "STU-0007-ABC123", 15, 7),
		products: stocked(
			product.Product{ID: 1, Stock: 5},
			product.Product{ID: 2, Stock: 5},
		),
	}
	store := &mockStore{tx: tx}
	svc, _ := newService(t, store, nil, nil)

	req := baseRequest()
	req.CouponCode = "STU-0007-ABC123"

	receipt, err := svc.PlaceOrder(context.Background(), req)

	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(75).Equal(receipt.Discount), "got %s", receipt.Discount)
	assert.True(t, decimal.NewFromInt(425).Equal(receipt.Total), "got %s", receipt.Total)
	assert.Equal(t, int64(8), receipt.SchoolPoints)
	assert.Zero(t, receipt.SEPoints)

	assert.Equal(t, 1, tx.incrementCalls)
	assert.Equal(t, coupon.StudentPool, tx.incrementedPool)
	assert.Equal(t, int64(8), tx.schoolPointsAdded)
	assert.Equal(t, int64(7), tx.schoolPointsTo)

	require.Len(t, tx.usageRecords, 1)
	rec := tx.usageRecords[0]
	assert.Equal(t, "STU-0007-ABC123", rec.CouponCode)
	assert.Equal(t, coupon.StudentPool, rec.Pool)
	assert.Equal(t, int64(8), rec.SchoolPoints)
	assert.Equal(t, receipt.OrderID, rec.OrderID)

	require.NotNil(t, tx.createdOrder)
	assert.True(t, decimal.NewFromInt(425).Equal(tx.createdOrder.Total))
	assert.Equal(t, "STU-0007-ABC123", tx.createdOrder.CouponCode)
}

func TestPlaceOrder_SchoolWithFieldSE(t *testing.T) {
	tx := &mockTx{
		role: user.RoleSchool,
		affiliation: user.Affiliation{
			Role:         user.RoleSchool,
			SchoolID:     3,
			SEEmployeeID: "SE-031",
		},
		se:     &user.SE{EmployeeID: "SE-031", Role: "Field SE"},
		coupon: activeCoupon(5, "SE-2025-PROMO", 5, 3),
		products: stocked(
			product.Product{ID: 1, Stock: 5},
			product.Product{ID: 2, Stock: 5},
		),
	}
	store := &mockStore{tx: tx}
	svc, _ := newService(t, store, nil, nil)

	req := baseRequest()
	req.Total = decimal.NewFromInt(1000)
	req.CouponCode = "SE-2025-PROMO"

	receipt, err := svc.PlaceOrder(context.Background(), req)

	require.NoError(t, err)
	// discount 50, final 950: school 18, field SE 90.
	assert.Equal(t, int64(18), receipt.SchoolPoints)
	assert.Equal(t, int64(90), receipt.SEPoints)
	assert.Equal(t, int64(90), tx.sePointsAdded)
	assert.Equal(t, "SE-031", tx.sePointsTo)
	require.Len(t, tx.usageRecords, 1)
	assert.Equal(t, int64(90), tx.usageRecords[0].SEPoints)
}

func TestPlaceOrder_RepeatRedemptionSkipsSEPoints(t *testing.T) {
	tx := &mockTx{
		role: user.RoleSchool,
		affiliation: user.Affiliation{
			Role:         user.RoleSchool,
			SchoolID:     3,
			SEEmployeeID: "SE-031",
		},
		se:          &user.SE{EmployeeID: "SE-031", Role: "Field SE"},
		coupon:      activeCoupon(5, "SE-2025-PROMO", 5, 3),
		redemptions: 1,
		products:    stocked(product.Product{ID: 1, Stock: 5}, product.Product{ID: 2, Stock: 5}),
	}
	store := &mockStore{tx: tx}
	svc, _ := newService(t, store, nil, nil)

	req := baseRequest()
	req.Total = decimal.NewFromInt(1000)
	req.CouponCode = "SE-2025-PROMO"

	receipt, err := svc.PlaceOrder(context.Background(), req)

	require.NoError(t, err)
	assert.Zero(t, receipt.SEPoints, "repeat redemption credits no SE")
	assert.Zero(t, tx.sePointsAdded)
	assert.Equal(t, int64(18), receipt.SchoolPoints, "school points unaffected")
}

func TestPlaceOrder_SECheckoutWithoutCoupon(t *testing.T) {
	tx := &mockTx{
		role:     user.RoleSE,
		products: stocked(product.Product{ID: 1, Stock: 5}, product.Product{ID: 2, Stock: 5}),
	}
	store := &mockStore{tx: tx}
	svc, _ := newService(t, store, nil, nil)

	receipt, err := svc.PlaceOrder(context.Background(), baseRequest())

	require.NoError(t, err)
	assert.Zero(t, receipt.SchoolPoints)
	assert.Zero(t, receipt.SEPoints)
}

func TestPlaceOrder_SEWithCouponRejected(t *testing.T) {
	tx := &mockTx{role: user.RoleSE}
	store := &mockStore{tx: tx}
	svc, _ := newService(t, store, nil, nil)

	req := baseRequest()
	req.CouponCode = "WELCOME10"

	_, err := svc.PlaceOrder(context.Background(), req)

	require.ErrorIs(t, err, coupon.ErrRoleMismatch)
	assert.True(t, store.rolledBack)
}

func TestPlaceOrder_RolePrefixMismatch(t *testing.T) {
	tx := &mockTx{
		role:        user.RoleSchool,
		affiliation: user.Affiliation{Role: user.RoleSchool, SchoolID: 3},
	}
	store := &mockStore{tx: tx}
	svc, _ := newService(t, store, nil, nil)

	req := baseRequest()
	req.CouponCode = "STU-0007-ABC123"

	_, err := svc.PlaceOrder(context.Background(), req)

	require.ErrorIs(t, err, coupon.ErrRoleMismatch)
	assert.True(t, store.rolledBack)
	assert.Zero(t, tx.incrementCalls)
}

// --- Atomicity / failure injection ---

// TestPlaceOrder_StepFailureRollsBackEverything fail-injects each step of the
// state machine in turn and asserts that nothing observable survives: no
// order, no counter increment, no usage log, no stock decrement.
func TestPlaceOrder_StepFailureRollsBackEverything(t *testing.T) {
	boom := errors.New("injected failure")

	script := func() *mockTx {
		return &mockTx{
			role:        user.RoleStudent,
			affiliation: user.Affiliation{Role: user.RoleStudent, SchoolID: 7},
			coupon:      activeCoupon(11, "STU-0007-ABC123", 15, 7),
			products:    stocked(product.Product{ID: 1, Stock: 5}, product.Product{ID: 2, Stock: 5}),
		}
	}

	tests := []struct {
		name   string
		inject func(tx *mockTx)
	}{
		{"role lookup fails", func(tx *mockTx) { tx.roleErr = boom }},
		{"affiliation lookup fails", func(tx *mockTx) { tx.affErr = boom }},
		{"coupon lookup fails", func(tx *mockTx) { tx.couponErr = boom }},
		{"stock lock fails", func(tx *mockTx) { tx.productsErr = boom }},
		{"order insert fails", func(tx *mockTx) { tx.createOrderErr = boom }},
		{"counter increment fails", func(tx *mockTx) { tx.incrementErr = boom }},
		{"school points fail", func(tx *mockTx) { tx.schoolPointsErr = boom }},
		{"usage log fails", func(tx *mockTx) { tx.usageLogErr = boom }},
		{"stock decrement fails", func(tx *mockTx) { tx.stockErr = boom }},
		{"cart clear fails", func(tx *mockTx) { tx.clearCartErr = boom }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := script()
			tt.inject(tx)
			store := &mockStore{tx: tx}
			svc, dispatcher := newService(t, store, nil, nil)

			req := baseRequest()
			req.CouponCode = "STU-0007-ABC123"

			_, err := svc.PlaceOrder(context.Background(), req)

			require.Error(t, err)
			assert.True(t, store.rolledBack)
			assert.False(t, store.committed)
			assert.Empty(t, dispatcher.orderIDs, "no notification for a failed checkout")
		})
	}
}

func TestPlaceOrder_InsufficientStockAbortsWholeCart(t *testing.T) {
	// Item 2 of the cart is short; nothing may be decremented.
	tx := &mockTx{
		role:        user.RoleStudent,
		affiliation: user.Affiliation{Role: user.RoleStudent, SchoolID: 7},
		products: stocked(
			product.Product{ID: 1, Stock: 5},
			product.Product{ID: 2, Stock: 0},
		),
	}
	store := &mockStore{tx: tx}
	svc, _ := newService(t, store, nil, nil)

	_, err := svc.PlaceOrder(context.Background(), baseRequest())

	var ise *InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, int64(2), ise.ProductID)
	assert.Equal(t, 0, ise.Available)
	assert.Equal(t, 1, ise.Requested)

	assert.True(t, store.rolledBack)
	assert.Nil(t, tx.createdOrder)
	assert.Empty(t, tx.decrements)
	assert.Zero(t, tx.incrementCalls)
}

func TestPlaceOrder_UnknownProductInCart(t *testing.T) {
	tx := &mockTx{
		role:        user.RoleStudent,
		affiliation: user.Affiliation{Role: user.RoleStudent, SchoolID: 7},
		products:    stocked(product.Product{ID: 1, Stock: 5}), // product 2 missing
	}
	store := &mockStore{tx: tx}
	svc, _ := newService(t, store, nil, nil)

	_, err := svc.PlaceOrder(context.Background(), baseRequest())

	var pnf *ProductNotFoundError
	require.ErrorAs(t, err, &pnf)
	assert.Equal(t, int64(2), pnf.ProductID)
	assert.True(t, store.rolledBack)
}

func TestPlaceOrder_DuplicateLineItemsCheckedAsAggregateDemand(t *testing.T) {
	tx := &mockTx{
		role:        user.RoleStudent,
		affiliation: user.Affiliation{Role: user.RoleStudent, SchoolID: 7},
		products:    stocked(product.Product{ID: 1, Stock: 3}),
	}
	store := &mockStore{tx: tx}
	svc, _ := newService(t, store, nil, nil)

	req := baseRequest()
	req.Items = []order.LineItem{
		{ProductID: 1, Quantity: 2},
		{ProductID: 1, Quantity: 2},
	}

	_, err := svc.PlaceOrder(context.Background(), req)

	var ise *InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, 4, ise.Requested)
}

func TestPlaceOrder_SEPointsFailureIsSecondary(t *testing.T) {
	// SE balance update failing must not abort the checkout; the audit row
	// records zero SE points so the log matches the balance.
	tx := &mockTx{
		role: user.RoleSchool,
		affiliation: user.Affiliation{
			Role:         user.RoleSchool,
			SchoolID:     3,
			SEEmployeeID: "SE-031",
		},
		se:          &user.SE{EmployeeID: "SE-031", Role: "Calling SE"},
		coupon:      activeCoupon(5, "SE-2025-PROMO", 5, 3),
		sePointsErr: errors.New("se balance update failed"),
		products:    stocked(product.Product{ID: 1, Stock: 5}, product.Product{ID: 2, Stock: 5}),
	}
	store := &mockStore{tx: tx}
	svc, _ := newService(t, store, nil, nil)

	req := baseRequest()
	req.Total = decimal.NewFromInt(1000)
	req.CouponCode = "SE-2025-PROMO"

	receipt, err := svc.PlaceOrder(context.Background(), req)

	require.NoError(t, err)
	assert.True(t, store.committed)
	assert.Zero(t, receipt.SEPoints)
	assert.Equal(t, int64(18), receipt.SchoolPoints)
	require.Len(t, tx.usageRecords, 1)
	assert.Zero(t, tx.usageRecords[0].SEPoints)
}

func TestPlaceOrder_MissingLinkedSESkipsSEPoints(t *testing.T) {
	tx := &mockTx{
		role: user.RoleSchool,
		affiliation: user.Affiliation{
			Role:         user.RoleSchool,
			SchoolID:     3,
			SEEmployeeID: "SE-GONE",
		},
		se:       nil, // SEByID returns user.ErrNotFound
		coupon:   activeCoupon(5, "SE-2025-PROMO", 5, 3),
		products: stocked(product.Product{ID: 1, Stock: 5}, product.Product{ID: 2, Stock: 5}),
	}
	store := &mockStore{tx: tx}
	svc, _ := newService(t, store, nil, nil)

	req := baseRequest()
	req.Total = decimal.NewFromInt(1000)
	req.CouponCode = "SE-2025-PROMO"

	receipt, err := svc.PlaceOrder(context.Background(), req)

	require.NoError(t, err)
	assert.Zero(t, receipt.SEPoints)
	assert.Equal(t, int64(18), receipt.SchoolPoints)
}

func TestPlaceOrder_ExpiredCouponRejectedInsideTx(t *testing.T) {
	expired := activeCoupon(11, "STU-0007-ABC123", 15, 7)
	expired.ValidUntil = fixedNow.Add(-time.Minute)

	tx := &mockTx{
		role:        user.RoleStudent,
		affiliation: user.Affiliation{Role: user.RoleStudent, SchoolID: 7},
		coupon:      expired,
	}
	store := &mockStore{tx: tx}
	svc, _ := newService(t, store, nil, nil)

	req := baseRequest()
	req.CouponCode = "STU-0007-ABC123"

	_, err := svc.PlaceOrder(context.Background(), req)

	require.ErrorIs(t, err, coupon.ErrInvalid)
	assert.True(t, store.rolledBack)
}

// --- Preview ---

func TestValidateCoupon(t *testing.T) {
	tests := []struct {
		name     string
		users    *mockUserRepo
		finder   *mockCouponFinder
		code     string
		claimed  user.Role
		wantPct  string
		wantPool coupon.Pool
		wantErr  error
	}{
		{
			name:     "valid student coupon",
			users:    &mockUserRepo{role: user.RoleStudent, aff: user.Affiliation{SchoolID: 7}},
			finder:   &mockCouponFinder{coupon: activeCoupon(1, "STU-0007-ABC123", 15, 7)},
			code:     "STU-0007-ABC123",
			claimed:  user.RoleStudent,
			wantPct:  "15",
			wantPool: coupon.StudentPool,
		},
		{
			name:    "claimed role differs from stored role",
			users:   &mockUserRepo{role: user.RoleStudent},
			finder:  &mockCouponFinder{},
			code:    "WELCOME10",
			claimed: user.RoleSchool,
			wantErr: coupon.ErrRoleMismatch,
		},
		{
			name:    "empty code",
			users:   &mockUserRepo{role: user.RoleStudent},
			finder:  &mockCouponFinder{},
			code:    "",
			claimed: user.RoleStudent,
			wantErr: coupon.ErrEmptyCode,
		},
		{
			name:    "unknown code",
			users:   &mockUserRepo{role: user.RoleStudent, aff: user.Affiliation{SchoolID: 7}},
			finder:  &mockCouponFinder{err: coupon.ErrInvalid},
			code:    "NOPE",
			claimed: user.RoleStudent,
			wantErr: coupon.ErrInvalid,
		},
		{
			name:    "no affiliation profile",
			users:   &mockUserRepo{role: user.RoleSchool, affErr: user.ErrNoAffiliation},
			finder:  &mockCouponFinder{},
			code:    "SE-2025-PROMO",
			claimed: user.RoleSchool,
			wantErr: user.ErrNoAffiliation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newService(t, &mockStore{tx: &mockTx{}}, tt.users, tt.finder)

			preview, err := svc.ValidateCoupon(context.Background(), tt.code, 42, tt.claimed)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPct, preview.DiscountPercentage)
			assert.Equal(t, tt.wantPool, preview.Pool)
		})
	}
}
