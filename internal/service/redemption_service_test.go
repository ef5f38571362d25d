package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/love-coupon-system/internal/eligibility"
	"github.com/fairyhunter13/love-coupon-system/internal/model"
	"github.com/fairyhunter13/love-coupon-system/pkg/database"
)

var testNow = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

// couponForAlice is the coupon bob created for alice that alice redeems in these tests.
func couponForAlice() *model.Coupon {
	return &model.Coupon{ID: couponID, CreatedBy: bobID, ForPartner: aliceID, Title: "Breakfast in bed"}
}

type redeemFixture struct {
	tx          *mockTx
	coupons     *mockCouponRepository
	redemptions *mockRedemptionRepository
	profiles    *mockProfileRepository
	inserted    []*model.Redemption
}

// newRedeemFixture prepares alice with created coupons of her own, of which the ids in
// redeemed were already redeemed by bob, and her own redemptions in own.
func newRedeemFixture(created []model.Coupon, redeemed []string, own []model.Redemption) *redeemFixture {
	f := &redeemFixture{tx: &mockTx{}}
	f.coupons = &mockCouponRepository{
		getForUpdateFn: func(ctx context.Context, tx database.TxQuerier, id string) (*model.Coupon, error) {
			return couponForAlice(), nil
		},
		listCreatedByTxFn: func(ctx context.Context, tx database.TxQuerier, createdBy string) ([]model.Coupon, error) {
			return created, nil
		},
		listCreatedByFn: func(ctx context.Context, createdBy string) ([]model.Coupon, error) {
			return created, nil
		},
	}
	f.redemptions = &mockRedemptionRepository{
		listTxFn: func(ctx context.Context, tx database.TxQuerier, filter model.RedemptionFilter) ([]model.Redemption, error) {
			if filter.By != "" {
				return own, nil
			}
			out := []model.Redemption{}
			for _, id := range redeemed {
				out = append(out, model.Redemption{CouponID: id, RedeemedBy: bobID})
			}
			return out, nil
		},
		listFn: func(ctx context.Context, filter model.RedemptionFilter) ([]model.Redemption, error) {
			return own, nil
		},
		redeemedCouponIDsFn: func(ctx context.Context, couponIDs []string) ([]string, error) {
			return redeemed, nil
		},
		insertFn: func(ctx context.Context, tx database.TxQuerier, r *model.Redemption) error {
			f.inserted = append(f.inserted, r)
			return nil
		},
	}
	f.profiles = &mockProfileRepository{}
	return f
}

func (f *redeemFixture) pool() *mockTxBeginner {
	return &mockTxBeginner{
		beginFn: func(ctx context.Context) (pgx.Tx, error) {
			return f.tx, nil
		},
	}
}

func (f *redeemFixture) service() *RedemptionService {
	return NewRedemptionServiceWithTxBeginner(f.pool(), f.coupons, f.redemptions, f.profiles, nil).
		WithClock(fixedClock(testNow))
}

func TestRedemptionService_Redeem_Success(t *testing.T) {
	f := newRedeemFixture(createdCoupons(aliceID, 4), nil, nil)

	red, err := f.service().Redeem(context.Background(), aliceID, couponID, strPtr("  best morning  "))

	require.NoError(t, err)
	require.Len(t, f.inserted, 1)
	assert.Equal(t, couponID, red.CouponID)
	assert.Equal(t, aliceID, red.RedeemedBy)
	assert.Equal(t, testNow, red.RedeemedAt)
	assert.Equal(t, "best morning", *red.ReflectionNote)
	assert.NotEmpty(t, red.ID)
	assert.True(t, f.tx.committed, "transaction should be committed")
}

func TestRedemptionService_Redeem_BlankNoteStoredAsNil(t *testing.T) {
	f := newRedeemFixture(createdCoupons(aliceID, 4), nil, nil)

	red, err := f.service().Redeem(context.Background(), aliceID, couponID, strPtr("   "))

	require.NoError(t, err)
	assert.Nil(t, red.ReflectionNote)
}

func TestRedemptionService_Redeem_InsufficientQuota(t *testing.T) {
	f := newRedeemFixture(createdCoupons(aliceID, 3), nil, nil)

	red, err := f.service().Redeem(context.Background(), aliceID, couponID, nil)

	require.Error(t, err)
	assert.Nil(t, red)
	assert.True(t, errors.Is(err, ErrInsufficientQuota), "error should be ErrInsufficientQuota")
	var qe *eligibility.QuotaError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, 1, qe.Deficit)
	assert.Empty(t, f.inserted, "nothing should be recorded")
	assert.False(t, f.tx.committed)
	assert.True(t, f.tx.rolledBack)
}

func TestRedemptionService_Redeem_RedeemedCouponsDoNotCountTowardQuota(t *testing.T) {
	created := createdCoupons(aliceID, 4)
	f := newRedeemFixture(created, []string{created[0].ID}, nil)

	_, err := f.service().Redeem(context.Background(), aliceID, couponID, nil)

	var qe *eligibility.QuotaError
	require.True(t, errors.As(err, &qe), "expected quota error, got %v", err)
	assert.Equal(t, 1, qe.Deficit)
}

func TestRedemptionService_Redeem_DailyLimitReached(t *testing.T) {
	own := []model.Redemption{{ID: "r1", CouponID: "other", RedeemedBy: aliceID, RedeemedAt: testNow.Add(-3 * time.Hour)}}
	f := newRedeemFixture(createdCoupons(aliceID, 5), nil, own)

	_, err := f.service().Redeem(context.Background(), aliceID, couponID, nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDailyLimitReached))
	var le *eligibility.LimitError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), le.RetryAt)
	assert.Empty(t, f.inserted)
	assert.False(t, f.tx.committed)
}

func TestRedemptionService_Redeem_QuotaCheckedBeforeDailyLimit(t *testing.T) {
	own := []model.Redemption{{ID: "r1", CouponID: "other", RedeemedBy: aliceID, RedeemedAt: testNow.Add(-time.Hour)}}
	f := newRedeemFixture(createdCoupons(aliceID, 2), nil, own)

	_, err := f.service().Redeem(context.Background(), aliceID, couponID, nil)

	assert.True(t, errors.Is(err, ErrInsufficientQuota))
	assert.False(t, errors.Is(err, ErrDailyLimitReached))
}

func TestRedemptionService_Redeem_YesterdayDoesNotBlock(t *testing.T) {
	own := []model.Redemption{{ID: "r1", CouponID: "other", RedeemedBy: aliceID, RedeemedAt: time.Date(2026, 3, 9, 23, 59, 59, 0, time.UTC)}}
	f := newRedeemFixture(createdCoupons(aliceID, 4), nil, own)

	_, err := f.service().Redeem(context.Background(), aliceID, couponID, nil)

	require.NoError(t, err)
}

func TestRedemptionService_Redeem_UsesConfiguredLocation(t *testing.T) {
	// 23:00 and 02:00 UTC fall on different UTC days but both on March 9 in UTC-5.
	now := time.Date(2026, 3, 10, 2, 0, 0, 0, time.UTC)
	own := []model.Redemption{{ID: "r1", CouponID: "other", RedeemedBy: aliceID, RedeemedAt: time.Date(2026, 3, 9, 23, 0, 0, 0, time.UTC)}}

	f := newRedeemFixture(createdCoupons(aliceID, 4), nil, own)
	_, err := f.service().WithClock(fixedClock(now)).Redeem(context.Background(), aliceID, couponID, nil)
	require.NoError(t, err, "different calendar days in UTC")

	f = newRedeemFixture(createdCoupons(aliceID, 4), nil, own)
	engine := eligibility.NewEngine(eligibility.DefaultCreationQuota, eligibility.CalendarDay{Location: time.FixedZone("UTC-5", -5*3600)}, eligibility.DefaultImageVisibility)
	svc := NewRedemptionServiceWithTxBeginner(f.pool(), f.coupons, f.redemptions, f.profiles, engine).WithClock(fixedClock(now))
	_, err = svc.Redeem(context.Background(), aliceID, couponID, nil)
	assert.True(t, errors.Is(err, ErrDailyLimitReached), "same calendar day in UTC-5")
	assert.Empty(t, f.inserted)
}

func TestRedemptionService_RequestLocationDoesNotMoveDailyWindow(t *testing.T) {
	first := time.Date(2026, 3, 10, 9, 58, 0, 0, time.UTC)
	now := first.Add(3 * time.Minute)
	own := []model.Redemption{{ID: "r1", CouponID: "other", RedeemedBy: aliceID, RedeemedAt: first}}

	// 10:01 UTC is 00:01 on March 10 in UTC-10, while 09:58 UTC is still March 9 there.
	for _, zone := range []string{"UTC", "Etc/GMT+10", "Pacific/Kiritimati"} {
		t.Run(zone, func(t *testing.T) {
			loc, err := time.LoadLocation(zone)
			require.NoError(t, err)
			ctx := WithLocation(context.Background(), loc)

			f := newRedeemFixture(createdCoupons(aliceID, 4), nil, own)
			svc := f.service().WithClock(fixedClock(now))

			v, err := svc.CheckEligibility(ctx, aliceID)
			require.NoError(t, err)
			assert.Equal(t, eligibility.ReasonDailyLimitReached, v.Reason)

			_, err = svc.Redeem(ctx, aliceID, couponID, nil)
			assert.True(t, errors.Is(err, ErrDailyLimitReached))
			assert.Empty(t, f.inserted)
		})
	}
}

func TestRedemptionService_Redeem_PendingDeleteIsNotRedeemable(t *testing.T) {
	f := newRedeemFixture(createdCoupons(aliceID, 4), nil, nil)
	svc := f.service().WithPendingDeletes(pendingStub{ids: eligibility.IDSet{couponID: {}}})

	_, err := svc.Redeem(context.Background(), aliceID, couponID, nil)

	assert.True(t, errors.Is(err, ErrCouponNotFound))
	assert.Empty(t, f.inserted)
	assert.False(t, f.tx.committed)
}

func TestRedemptionService_PendingDeletesDoNotCountTowardQuota(t *testing.T) {
	created := createdCoupons(aliceID, 4)
	pending := pendingStub{ids: eligibility.IDSet{created[0].ID: {}}}

	f := newRedeemFixture(created, nil, nil)
	svc := f.service().WithPendingDeletes(pending)

	v, err := svc.CheckEligibility(context.Background(), aliceID)
	require.NoError(t, err)
	assert.Equal(t, eligibility.ReasonInsufficientQuota, v.Reason)
	assert.Equal(t, 1, v.Deficit)

	_, err = svc.Redeem(context.Background(), aliceID, couponID, nil)
	var qe *eligibility.QuotaError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, 1, qe.Deficit)
	assert.Empty(t, f.inserted)
}

func TestRedemptionService_Redeem_PendingLookupFailure(t *testing.T) {
	f := newRedeemFixture(createdCoupons(aliceID, 4), nil, nil)
	svc := f.service().WithPendingDeletes(pendingStub{err: errors.New("redis down")})

	_, err := svc.Redeem(context.Background(), aliceID, couponID, nil)

	assert.True(t, errors.Is(err, ErrPersistence))
	assert.Empty(t, f.inserted)
}

func TestRedemptionService_Redeem_NotRecipient(t *testing.T) {
	f := newRedeemFixture(createdCoupons(bobID, 4), nil, nil)

	// bob created the coupon for alice; he cannot redeem it himself
	_, err := f.service().Redeem(context.Background(), bobID, couponID, nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotRecipient))
	assert.Empty(t, f.inserted)
}

func TestRedemptionService_Redeem_CouponNotFound(t *testing.T) {
	f := newRedeemFixture(createdCoupons(aliceID, 4), nil, nil)
	f.coupons.getForUpdateFn = func(ctx context.Context, tx database.TxQuerier, id string) (*model.Coupon, error) {
		return nil, ErrCouponNotFound
	}

	_, err := f.service().Redeem(context.Background(), aliceID, couponID, nil)

	assert.True(t, errors.Is(err, ErrCouponNotFound))
	assert.False(t, errors.Is(err, ErrPersistence), "domain errors are not persistence failures")
}

func TestRedemptionService_Redeem_AlreadyRedeemed(t *testing.T) {
	f := newRedeemFixture(createdCoupons(aliceID, 4), nil, nil)
	f.redemptions.insertFn = func(ctx context.Context, tx database.TxQuerier, r *model.Redemption) error {
		return ErrAlreadyRedeemed
	}

	_, err := f.service().Redeem(context.Background(), aliceID, couponID, nil)

	assert.True(t, errors.Is(err, ErrAlreadyRedeemed))
	assert.False(t, f.tx.committed)
}

func TestRedemptionService_Redeem_ProfileNotFound(t *testing.T) {
	f := newRedeemFixture(createdCoupons(aliceID, 4), nil, nil)
	f.profiles.lockForUpdateFn = func(ctx context.Context, tx database.TxQuerier, id string) (*model.Profile, error) {
		return nil, ErrProfileNotFound
	}

	_, err := f.service().Redeem(context.Background(), aliceID, couponID, nil)

	assert.True(t, errors.Is(err, ErrProfileNotFound))
}

func TestRedemptionService_Redeem_LocksProfileBeforeCoupon(t *testing.T) {
	f := newRedeemFixture(createdCoupons(aliceID, 4), nil, nil)
	var order []string
	f.profiles.lockForUpdateFn = func(ctx context.Context, tx database.TxQuerier, id string) (*model.Profile, error) {
		order = append(order, "profile")
		return profileOf(id), nil
	}
	f.coupons.getForUpdateFn = func(ctx context.Context, tx database.TxQuerier, id string) (*model.Coupon, error) {
		order = append(order, "coupon")
		return couponForAlice(), nil
	}

	_, err := f.service().Redeem(context.Background(), aliceID, couponID, nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"profile", "coupon"}, order)
}

func TestRedemptionService_Redeem_SnapshotReadsThroughTx(t *testing.T) {
	f := newRedeemFixture(createdCoupons(aliceID, 4), nil, nil)
	var seen []database.TxQuerier
	f.coupons.listCreatedByTxFn = func(ctx context.Context, tx database.TxQuerier, createdBy string) ([]model.Coupon, error) {
		seen = append(seen, tx)
		return createdCoupons(aliceID, 4), nil
	}

	_, err := f.service().Redeem(context.Background(), aliceID, couponID, nil)

	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Same(t, f.tx, seen[0])
}

func TestRedemptionService_Redeem_BeginTxError(t *testing.T) {
	f := newRedeemFixture(createdCoupons(aliceID, 4), nil, nil)
	pool := &mockTxBeginner{
		beginFn: func(ctx context.Context) (pgx.Tx, error) {
			return nil, errors.New("connection refused")
		},
	}
	svc := NewRedemptionServiceWithTxBeginner(pool, f.coupons, f.redemptions, f.profiles, nil)

	_, err := svc.Redeem(context.Background(), aliceID, couponID, nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPersistence))
	var pe *PersistenceError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "begin tx", pe.Op)
}

func TestRedemptionService_Redeem_SnapshotErrorIsPersistence(t *testing.T) {
	f := newRedeemFixture(nil, nil, nil)
	f.coupons.listCreatedByTxFn = func(ctx context.Context, tx database.TxQuerier, createdBy string) ([]model.Coupon, error) {
		return nil, errors.New("read timeout")
	}

	_, err := f.service().Redeem(context.Background(), aliceID, couponID, nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPersistence))
	assert.Contains(t, err.Error(), "read timeout")
	assert.Empty(t, f.inserted)
	assert.True(t, f.tx.rolledBack)
}

func TestRedemptionService_Redeem_CommitError(t *testing.T) {
	f := newRedeemFixture(createdCoupons(aliceID, 4), nil, nil)
	f.tx.commitFn = func(ctx context.Context) error {
		return errors.New("commit failed")
	}

	red, err := f.service().Redeem(context.Background(), aliceID, couponID, nil)

	require.Error(t, err)
	assert.Nil(t, red)
	assert.True(t, errors.Is(err, ErrPersistence))
}

func TestRedemptionService_CheckEligibility(t *testing.T) {
	tests := []struct {
		name    string
		created int
		own     []model.Redemption
		want    eligibility.Reason
		deficit int
	}{
		{name: "allowed", created: 4, want: eligibility.ReasonNone},
		{name: "no coupons created", created: 0, want: eligibility.ReasonInsufficientQuota, deficit: 4},
		{name: "redeemed today", created: 4, want: eligibility.ReasonDailyLimitReached,
			own: []model.Redemption{{RedeemedBy: aliceID, RedeemedAt: testNow.Add(-time.Minute)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRedeemFixture(createdCoupons(aliceID, tt.created), nil, tt.own)

			v, err := f.service().CheckEligibility(context.Background(), aliceID)

			require.NoError(t, err)
			assert.Equal(t, tt.want == eligibility.ReasonNone, v.Allowed)
			assert.Equal(t, tt.want, v.Reason)
			assert.Equal(t, tt.deficit, v.Deficit)
			assert.Empty(t, f.inserted, "pre-flight check must not write")
		})
	}
}

func TestRedemptionService_CheckEligibility_ReadError(t *testing.T) {
	f := newRedeemFixture(nil, nil, nil)
	f.redemptions.listFn = func(ctx context.Context, filter model.RedemptionFilter) ([]model.Redemption, error) {
		return nil, errors.New("boom")
	}

	_, err := f.service().CheckEligibility(context.Background(), aliceID)

	assert.True(t, errors.Is(err, ErrPersistence))
}

func TestRedemptionService_Today(t *testing.T) {
	f := newRedeemFixture(nil, nil, nil)
	var filters []model.RedemptionFilter
	f.redemptions.listFn = func(ctx context.Context, filter model.RedemptionFilter) ([]model.Redemption, error) {
		if filter.By == bobID {
			return []model.Redemption{
				{ID: "b1", RedeemedBy: bobID, RedeemedAt: testNow.Add(-5 * time.Hour)},
				{ID: "b2", RedeemedBy: bobID, RedeemedAt: testNow.Add(-time.Hour)},
			}, nil
		}
		return []model.Redemption{}, nil
	}
	f.redemptions.listFn = wrapListFn(f.redemptions.listFn, &filters)

	out, err := f.service().Today(context.Background(), aliceID)

	require.NoError(t, err)
	assert.Nil(t, out.Mine)
	require.NotNil(t, out.Partner)
	assert.Equal(t, "b2", out.Partner.ID, "latest redemption in the window")
	for _, fl := range filters {
		assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), fl.From)
		assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), fl.To)
	}
}

func TestRedemptionService_Today_NoPartner(t *testing.T) {
	f := newRedeemFixture(nil, nil, nil)

	out, err := f.service().Today(context.Background(), carolID)

	require.NoError(t, err)
	assert.Nil(t, out.Mine)
	assert.Nil(t, out.Partner)
}

func wrapListFn(
	fn func(ctx context.Context, filter model.RedemptionFilter) ([]model.Redemption, error),
	seen *[]model.RedemptionFilter,
) func(ctx context.Context, filter model.RedemptionFilter) ([]model.Redemption, error) {
	var mu sync.Mutex
	return func(ctx context.Context, filter model.RedemptionFilter) ([]model.Redemption, error) {
		mu.Lock()
		*seen = append(*seen, filter)
		mu.Unlock()
		return fn(ctx, filter)
	}
}

func TestPersist(t *testing.T) {
	assert.NoError(t, persist("op", nil))
	assert.Same(t, ErrNoPartner, persist("op", ErrNoPartner))

	wrapped := fmt.Errorf("ctx: %w", ErrCouponNotFound)
	assert.Equal(t, wrapped, persist("op", wrapped))

	err := persist("insert", errors.New("disk full"))
	var pe *PersistenceError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "insert", pe.Op)
	assert.Equal(t, "insert: disk full", err.Error())

	assert.Same(t, err, persist("outer", err), "already classified errors are not wrapped twice")
}
