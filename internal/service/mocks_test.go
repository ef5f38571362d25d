package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fairyhunter13/love-coupon-system/internal/eligibility"
	"github.com/fairyhunter13/love-coupon-system/internal/model"
	"github.com/fairyhunter13/love-coupon-system/pkg/database"
)

const (
	aliceID  = "a1a1a1a1-0000-4000-8000-000000000001"
	bobID    = "b2b2b2b2-0000-4000-8000-000000000002"
	carolID  = "c3c3c3c3-0000-4000-8000-000000000003"
	couponID = "d4d4d4d4-0000-4000-8000-000000000004"
)

// mockCouponRepository is a mock implementation of CouponRepositoryInterface.
type mockCouponRepository struct {
	insertFn          func(ctx context.Context, coupon *model.Coupon) error
	getByIDFn         func(ctx context.Context, id string) (*model.Coupon, error)
	getForUpdateFn    func(ctx context.Context, tx database.TxQuerier, id string) (*model.Coupon, error)
	listCreatedByFn   func(ctx context.Context, createdBy string) ([]model.Coupon, error)
	listCreatedByTxFn func(ctx context.Context, tx database.TxQuerier, createdBy string) ([]model.Coupon, error)
	listForPartnerFn  func(ctx context.Context, partnerID string) ([]model.Coupon, error)
	deleteFn          func(ctx context.Context, id, createdBy string) (bool, error)
}

func (m *mockCouponRepository) Insert(ctx context.Context, coupon *model.Coupon) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, coupon)
	}
	return nil
}

func (m *mockCouponRepository) GetByID(ctx context.Context, id string) (*model.Coupon, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockCouponRepository) GetForUpdate(ctx context.Context, tx database.TxQuerier, id string) (*model.Coupon, error) {
	if m.getForUpdateFn != nil {
		return m.getForUpdateFn(ctx, tx, id)
	}
	return nil, ErrCouponNotFound
}

func (m *mockCouponRepository) ListCreatedBy(ctx context.Context, createdBy string) ([]model.Coupon, error) {
	if m.listCreatedByFn != nil {
		return m.listCreatedByFn(ctx, createdBy)
	}
	return []model.Coupon{}, nil
}

func (m *mockCouponRepository) ListCreatedByTx(ctx context.Context, tx database.TxQuerier, createdBy string) ([]model.Coupon, error) {
	if m.listCreatedByTxFn != nil {
		return m.listCreatedByTxFn(ctx, tx, createdBy)
	}
	return []model.Coupon{}, nil
}

func (m *mockCouponRepository) ListForPartner(ctx context.Context, partnerID string) ([]model.Coupon, error) {
	if m.listForPartnerFn != nil {
		return m.listForPartnerFn(ctx, partnerID)
	}
	return []model.Coupon{}, nil
}

func (m *mockCouponRepository) Delete(ctx context.Context, id, createdBy string) (bool, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id, createdBy)
	}
	return true, nil
}

// mockRedemptionRepository is a mock implementation of RedemptionRepositoryInterface.
type mockRedemptionRepository struct {
	listFn              func(ctx context.Context, filter model.RedemptionFilter) ([]model.Redemption, error)
	listTxFn            func(ctx context.Context, tx database.TxQuerier, filter model.RedemptionFilter) ([]model.Redemption, error)
	redeemedCouponIDsFn func(ctx context.Context, couponIDs []string) ([]string, error)
	getByCouponFn       func(ctx context.Context, couponID string) (*model.Redemption, error)
	latestByFn          func(ctx context.Context, userID string) (*model.Redemption, error)
	insertFn            func(ctx context.Context, tx database.TxQuerier, redemption *model.Redemption) error
}

func (m *mockRedemptionRepository) List(ctx context.Context, filter model.RedemptionFilter) ([]model.Redemption, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return []model.Redemption{}, nil
}

func (m *mockRedemptionRepository) ListTx(ctx context.Context, tx database.TxQuerier, filter model.RedemptionFilter) ([]model.Redemption, error) {
	if m.listTxFn != nil {
		return m.listTxFn(ctx, tx, filter)
	}
	return []model.Redemption{}, nil
}

func (m *mockRedemptionRepository) RedeemedCouponIDs(ctx context.Context, couponIDs []string) ([]string, error) {
	if m.redeemedCouponIDsFn != nil {
		return m.redeemedCouponIDsFn(ctx, couponIDs)
	}
	return []string{}, nil
}

func (m *mockRedemptionRepository) GetByCoupon(ctx context.Context, couponID string) (*model.Redemption, error) {
	if m.getByCouponFn != nil {
		return m.getByCouponFn(ctx, couponID)
	}
	return nil, nil
}

func (m *mockRedemptionRepository) LatestBy(ctx context.Context, userID string) (*model.Redemption, error) {
	if m.latestByFn != nil {
		return m.latestByFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockRedemptionRepository) Insert(ctx context.Context, tx database.TxQuerier, redemption *model.Redemption) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, tx, redemption)
	}
	return nil
}

// mockProfileRepository is a mock implementation of ProfileRepositoryInterface.
// Without overrides every id resolves to a profile partnered with partners[id].
type mockProfileRepository struct {
	getByIDFn       func(ctx context.Context, id string) (*model.Profile, error)
	lockForUpdateFn func(ctx context.Context, tx database.TxQuerier, id string) (*model.Profile, error)
}

var partners = map[string]string{aliceID: bobID, bobID: aliceID}

func profileOf(id string) *model.Profile {
	p := &model.Profile{ID: id}
	if partner, ok := partners[id]; ok {
		p.PartnerID = &partner
	}
	return p
}

func (m *mockProfileRepository) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return profileOf(id), nil
}

func (m *mockProfileRepository) LockForUpdate(ctx context.Context, tx database.TxQuerier, id string) (*model.Profile, error) {
	if m.lockForUpdateFn != nil {
		return m.lockForUpdateFn(ctx, tx, id)
	}
	return profileOf(id), nil
}

// mockMoodRepository is a mock implementation of MoodRepositoryInterface.
type mockMoodRepository struct {
	upsertFn     func(ctx context.Context, m *model.MoodCheck) error
	getForDateFn func(ctx context.Context, userID string, date time.Time) (*model.MoodCheck, error)
}

func (m *mockMoodRepository) Upsert(ctx context.Context, mc *model.MoodCheck) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, mc)
	}
	return nil
}

func (m *mockMoodRepository) GetForDate(ctx context.Context, userID string, date time.Time) (*model.MoodCheck, error) {
	if m.getForDateFn != nil {
		return m.getForDateFn(ctx, userID, date)
	}
	return nil, nil
}

// mockAccessLogRepository records every insert.
type mockAccessLogRepository struct {
	mu      sync.Mutex
	entries []string
	err     error
}

func (m *mockAccessLogRepository) Insert(ctx context.Context, couponID, accessedBy, accessType, userAgent string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, accessType)
	return m.err
}

// mockTx is a mock implementation of pgx.Tx for testing transactions.
type mockTx struct {
	commitFn   func(ctx context.Context) error
	rollbackFn func(ctx context.Context) error

	committed  bool
	rolledBack bool
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, errors.New("nested transactions not supported")
}

func (m *mockTx) Commit(ctx context.Context) error {
	m.committed = true
	if m.commitFn != nil {
		return m.commitFn(ctx)
	}
	return nil
}

func (m *mockTx) Rollback(ctx context.Context) error {
	m.rolledBack = true
	if m.rollbackFn != nil {
		return m.rollbackFn(ctx)
	}
	return nil
}

func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	return nil
}

func (m *mockTx) LargeObjects() pgx.LargeObjects {
	return pgx.LargeObjects{}
}

func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}

func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

func (m *mockTx) Conn() *pgx.Conn {
	return nil
}

// mockTxBeginner is a mock implementation of TxBeginner.
type mockTxBeginner struct {
	beginFn func(ctx context.Context) (pgx.Tx, error)
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	if m.beginFn != nil {
		return m.beginFn(ctx)
	}
	return &mockTx{}, nil
}

func fixedClock(t time.Time) eligibility.Clock {
	return eligibility.ClockFunc(func() time.Time { return t })
}

// settableClock is a clock tests can move forward.
type settableClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *settableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *settableClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// createdCoupons returns n coupons created by creator for their partner.
func createdCoupons(creator string, n int) []model.Coupon {
	out := make([]model.Coupon, n)
	for i := range out {
		out[i] = model.Coupon{
			ID:         fmt.Sprintf("%s-created-%d", creator[:8], i),
			CreatedBy:  creator,
			ForPartner: partners[creator],
			Title:      fmt.Sprintf("coupon %d", i),
		}
	}
	return out
}

func strPtr(s string) *string {
	return &s
}
