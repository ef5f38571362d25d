package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/love-coupon-system/internal/eligibility"
	"github.com/fairyhunter13/love-coupon-system/internal/insights"
	"github.com/fairyhunter13/love-coupon-system/internal/kvstore"
	"github.com/fairyhunter13/love-coupon-system/internal/model"
)

func day(d, h int) time.Time {
	return time.Date(2026, 3, d, h, 0, 0, 0, time.UTC)
}

type insightsFixture struct {
	created     []model.Coupon
	mine        []model.Redemption
	partner     []model.Redemption
	store       *kvstore.MemoryStore
	clock       *settableClock
	redemptions *mockRedemptionRepository
}

func newInsightsFixture() *insightsFixture {
	f := &insightsFixture{
		created: createdCoupons(aliceID, 5),
		mine: []model.Redemption{
			{ID: "m1", RedeemedBy: aliceID, RedeemedAt: day(8, 9)},
			{ID: "m2", RedeemedBy: aliceID, RedeemedAt: day(9, 9), ReflectionNote: strPtr("lovely")},
			{ID: "m3", RedeemedBy: aliceID, RedeemedAt: day(10, 9)},
		},
		partner: []model.Redemption{
			{ID: "p1", RedeemedBy: bobID, RedeemedAt: day(7, 10)},
		},
		store: kvstore.NewMemoryStore(),
		clock: &settableClock{now: testNow},
	}
	f.redemptions = &mockRedemptionRepository{
		listFn: func(ctx context.Context, filter model.RedemptionFilter) ([]model.Redemption, error) {
			if filter.By == bobID {
				return f.partner, nil
			}
			return f.mine, nil
		},
		latestByFn: func(ctx context.Context, userID string) (*model.Redemption, error) {
			if len(f.mine) == 0 {
				return nil, nil
			}
			last := f.mine[len(f.mine)-1]
			return &last, nil
		},
	}
	return f
}

func (f *insightsFixture) service() *InsightsService {
	coupons := &mockCouponRepository{
		listCreatedByFn: func(ctx context.Context, createdBy string) ([]model.Coupon, error) {
			return f.created, nil
		},
	}
	return NewInsightsService(coupons, f.redemptions, &mockProfileRepository{}, f.store, eligibility.DefaultEngine()).
		WithClock(f.clock)
}

func TestInsightsService_Summary(t *testing.T) {
	f := newInsightsFixture()
	svc := f.service()
	ctx := context.Background()

	sum, err := svc.Summary(ctx, aliceID)

	require.NoError(t, err)
	assert.Equal(t, model.Totals{Created: 5, Redeemed: 3, PartnerRedeemed: 1}, sum.Totals)
	assert.Equal(t, 4, sum.Streak, "the couple's redemptions cover March 7 through 10")

	total := 0
	for _, n := range sum.Distribution.ByWeekday {
		total += n
	}
	assert.Equal(t, 4, total)
	assert.Equal(t, 3, sum.Distribution.ByHour[9])

	require.NotNil(t, sum.Reminder.DaysSince)
	assert.Equal(t, 0, *sum.Reminder.DaysSince)
	assert.False(t, sum.Reminder.Show)

	require.Len(t, sum.NewMilestones, 1)
	assert.Equal(t, "created_5", sum.NewMilestones[0].ID)

	stats := statsOf(f.created, f.mine, 4)
	assert.Equal(t, 1, stats.Reflections)
	assert.Equal(t, insights.Unlocked(stats, testNow, time.UTC), sum.NewAchievements)
	assert.Len(t, sum.Achievements, len(insights.Catalogue()))
	unlocked := 0
	for _, a := range sum.Achievements {
		if a.Unlocked {
			unlocked++
			require.NotNil(t, a.UnlockedAt)
		}
	}
	assert.Equal(t, len(sum.NewAchievements), unlocked)
}

func TestInsightsService_Summary_ReportsNewItemsOnce(t *testing.T) {
	f := newInsightsFixture()
	svc := f.service()
	ctx := context.Background()

	first, err := svc.Summary(ctx, aliceID)
	require.NoError(t, err)
	require.NotEmpty(t, first.NewMilestones)
	require.NotEmpty(t, first.NewAchievements)

	second, err := svc.Summary(ctx, aliceID)
	require.NoError(t, err)
	assert.Empty(t, second.NewMilestones)
	assert.Empty(t, second.NewAchievements)
	assert.Equal(t, first.Achievements, second.Achievements, "unlocked achievements stay unlocked")
}

func TestInsightsService_Summary_AchievementsArePermanent(t *testing.T) {
	f := newInsightsFixture()
	svc := f.service()
	ctx := context.Background()

	first, err := svc.Summary(ctx, aliceID)
	require.NoError(t, err)

	f.created = nil
	f.mine = nil
	f.partner = nil
	later, err := svc.Summary(ctx, aliceID)
	require.NoError(t, err)

	for i, a := range later.Achievements {
		assert.Equal(t, first.Achievements[i].Unlocked, a.Unlocked, a.ID)
	}
}

func TestInsightsService_Summary_NoPartner(t *testing.T) {
	f := newInsightsFixture()

	sum, err := f.service().Summary(context.Background(), carolID)

	require.NoError(t, err)
	assert.Zero(t, sum.Totals.PartnerRedeemed)
}

func TestInsightsService_Summary_NoRedemptions(t *testing.T) {
	f := newInsightsFixture()
	f.mine = nil
	f.partner = nil

	sum, err := f.service().Summary(context.Background(), aliceID)

	require.NoError(t, err)
	assert.Nil(t, sum.Reminder.DaysSince)
	assert.False(t, sum.Reminder.Show)
	assert.Zero(t, sum.Streak)
}

func TestInsightsService_Summary_LoadError(t *testing.T) {
	f := newInsightsFixture()
	f.redemptions.listFn = func(ctx context.Context, filter model.RedemptionFilter) ([]model.Redemption, error) {
		return nil, errors.New("boom")
	}

	_, err := f.service().Summary(context.Background(), aliceID)

	assert.True(t, errors.Is(err, ErrPersistence))
}

func TestInsightsService_DismissReminder(t *testing.T) {
	f := newInsightsFixture()
	f.clock.now = day(10, 9).Add(8 * 24 * time.Hour)
	svc := f.service()
	ctx := context.Background()

	sum, err := svc.Summary(ctx, aliceID)
	require.NoError(t, err)
	require.NotNil(t, sum.Reminder.DaysSince)
	assert.Equal(t, 8, *sum.Reminder.DaysSince)
	assert.True(t, sum.Reminder.Show)

	require.NoError(t, svc.DismissReminder(ctx, aliceID))

	sum, err = svc.Summary(ctx, aliceID)
	require.NoError(t, err)
	assert.False(t, sum.Reminder.Show, "dismissed for this redemption date")

	// a new redemption moves the reminder to a new date that is not dismissed
	f.mine = append(f.mine, model.Redemption{ID: "m4", RedeemedBy: aliceID, RedeemedAt: f.clock.Now().Add(-7 * 24 * time.Hour)})
	sum, err = svc.Summary(ctx, aliceID)
	require.NoError(t, err)
	assert.True(t, sum.Reminder.Show)
}

func TestInsightsService_DismissReminder_NothingToDismiss(t *testing.T) {
	f := newInsightsFixture()
	f.mine = nil
	svc := f.service()

	require.NoError(t, svc.DismissReminder(context.Background(), aliceID))

	keys, err := f.store.Keys(context.Background(), kvstore.PrefixReminderDismissed)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestInsightsService_DismissReminder_PrunesOldDismissals(t *testing.T) {
	f := newInsightsFixture()
	svc := f.service()
	ctx := context.Background()

	old := insights.Dismissals{"2025-01-01": testNow.Add(-31 * 24 * time.Hour)}
	require.NoError(t, kvstore.SetJSON(ctx, f.store, kvstore.ReminderDismissedKey(aliceID), old, 0))

	require.NoError(t, svc.DismissReminder(ctx, aliceID))

	var got insights.Dismissals
	require.NoError(t, kvstore.GetJSON(ctx, f.store, kvstore.ReminderDismissedKey(aliceID), &got))
	assert.NotContains(t, got, "2025-01-01")
	assert.Contains(t, got, "2026-03-10")
}

func TestInsightsService_Summary_AnniversaryOncePerDay(t *testing.T) {
	f := newInsightsFixture()
	started := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	profiles := &mockProfileRepository{
		getByIDFn: func(ctx context.Context, id string) (*model.Profile, error) {
			p := profileOf(id)
			p.RelationshipStartDate = &started
			return p, nil
		},
	}
	coupons := &mockCouponRepository{
		listCreatedByFn: func(ctx context.Context, createdBy string) ([]model.Coupon, error) {
			return f.created, nil
		},
	}
	svc := NewInsightsService(coupons, f.redemptions, profiles, f.store, eligibility.DefaultEngine()).WithClock(f.clock)
	ctx := context.Background()

	sum, err := svc.Summary(ctx, aliceID)
	require.NoError(t, err)
	require.NotNil(t, sum.Anniversary)
	assert.Equal(t, insights.AnniversaryRelationship, sum.Anniversary.Kind)
	assert.Equal(t, 2, sum.Anniversary.Years)

	f.clock.Advance(6 * time.Hour)
	sum, err = svc.Summary(ctx, aliceID)
	require.NoError(t, err)
	assert.Nil(t, sum.Anniversary, "celebrated once per day")

	f.clock.Advance(365 * 24 * time.Hour)
	sum, err = svc.Summary(ctx, aliceID)
	require.NoError(t, err)
	require.NotNil(t, sum.Anniversary)
	assert.Equal(t, 3, sum.Anniversary.Years)
}

func TestInsightsService_Summary_NoAnniversary(t *testing.T) {
	f := newInsightsFixture()

	sum, err := f.service().Summary(context.Background(), aliceID)

	require.NoError(t, err)
	assert.Nil(t, sum.Anniversary)
	_, err = f.store.Get(context.Background(), kvstore.AnniversaryKey(aliceID))
	assert.True(t, errors.Is(err, kvstore.ErrNotFound), "no marker without an anniversary")
}
