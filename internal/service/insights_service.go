package service

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fairyhunter13/love-coupon-system/internal/eligibility"
	"github.com/fairyhunter13/love-coupon-system/internal/insights"
	"github.com/fairyhunter13/love-coupon-system/internal/kvstore"
	"github.com/fairyhunter13/love-coupon-system/internal/model"
)

// InsightsService builds the relationship dashboard and remembers which milestones,
// achievements, anniversaries and reminders the actor has already seen.
type InsightsService struct {
	coupons     CouponRepositoryInterface
	redemptions RedemptionRepositoryInterface
	profiles    ProfileRepositoryInterface
	store       kvstore.Store
	loc         LocationDefault
	clock       eligibility.Clock

	mu sync.Mutex // guards the celebrated/unlocked read-modify-write
}

// NewInsightsService creates a new InsightsService.
func NewInsightsService(
	coupons CouponRepositoryInterface,
	redemptions RedemptionRepositoryInterface,
	profiles ProfileRepositoryInterface,
	store kvstore.Store,
	defaults LocationDefault,
) *InsightsService {
	return &InsightsService{
		coupons:     coupons,
		redemptions: redemptions,
		profiles:    profiles,
		store:       store,
		loc:         defaults,
		clock:       eligibility.SystemClock,
	}
}

// WithClock replaces the clock. Returns s for chaining.
func (s *InsightsService) WithClock(clock eligibility.Clock) *InsightsService {
	s.clock = clock
	return s
}

// anniversaryMarkerTTL keeps the "celebrated today" marker past any local midnight.
const anniversaryMarkerTTL = 48 * time.Hour

func redemptionTimes(reds ...[]model.Redemption) []time.Time {
	var out []time.Time
	for _, rs := range reds {
		for _, r := range rs {
			out = append(out, r.RedeemedAt)
		}
	}
	return out
}

func statsOf(created []model.Coupon, mine []model.Redemption, streak int) insights.Stats {
	st := insights.Stats{
		Created:    len(created),
		Redeemed:   len(mine),
		Streak:     streak,
		RedeemedAt: redemptionTimes(mine),
	}
	for _, c := range created {
		if c.IsSurprise {
			st.Surprise++
		}
		if c.HasImage() {
			st.WithImage++
		}
	}
	for _, r := range mine {
		if r.ReflectionNote != nil {
			st.Reflections++
		}
	}
	return st
}

// Summary computes totals, the couple's streak and distribution, the reminder,
// and the milestones and achievements reached since the previous call.
func (s *InsightsService) Summary(ctx context.Context, actorID string) (sum *model.InsightsSummary, err error) {
	ctx, span := startSpan(ctx, "InsightsService.Summary", actorID)
	defer func() { endSpan(span, &err) }()

	profile, err := s.profiles.GetByID(ctx, actorID)
	if err != nil {
		return nil, persist("get profile", err)
	}

	var (
		created []model.Coupon
		mine    []model.Redemption
		partner []model.Redemption
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		created, err = s.coupons.ListCreatedBy(gctx, actorID)
		return err
	})
	g.Go(func() error {
		var err error
		mine, err = s.redemptions.List(gctx, model.RedemptionFilter{By: actorID})
		return err
	})
	if profile.PartnerID != nil {
		partnerID := *profile.PartnerID
		g.Go(func() error {
			var err error
			partner, err = s.redemptions.List(gctx, model.RedemptionFilter{By: partnerID})
			return err
		})
	}
	if err = g.Wait(); err != nil {
		return nil, persist("load insights data", err)
	}

	now := s.clock.Now()
	loc := LocationFrom(ctx, s.loc.Location())
	couple := redemptionTimes(mine, partner)
	streak := insights.Streak(couple, now, loc)

	sum = &model.InsightsSummary{
		Totals: model.Totals{
			Created:         len(created),
			Redeemed:        len(mine),
			PartnerRedeemed: len(partner),
		},
		Streak:       streak,
		Distribution: insights.Distribute(couple, now, loc),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sum.Reminder, err = s.reminder(ctx, actorID, mine, now); err != nil {
		return nil, err
	}
	if sum.Anniversary, err = s.anniversary(ctx, actorID, profile, created, now, loc); err != nil {
		return nil, err
	}
	if sum.NewMilestones, err = s.newMilestones(ctx, actorID, len(created), len(mine), streak, now); err != nil {
		return nil, err
	}
	sum.NewAchievements, sum.Achievements, err = s.achievements(ctx, actorID, statsOf(created, mine, streak), now, loc)
	if err != nil {
		return nil, err
	}
	return sum, nil
}

func (s *InsightsService) reminder(ctx context.Context, actorID string, mine []model.Redemption, now time.Time) (insights.Reminder, error) {
	dismissed := insights.Dismissals{}
	if err := kvstore.LoadJSON(ctx, s.store, kvstore.ReminderDismissedKey(actorID), &dismissed); err != nil {
		return insights.Reminder{}, persist("load reminder dismissals", err)
	}
	if dismissed.Prune(now) {
		if err := kvstore.SetJSON(ctx, s.store, kvstore.ReminderDismissedKey(actorID), dismissed, 0); err != nil {
			return insights.Reminder{}, persist("save reminder dismissals", err)
		}
	}

	var last *time.Time
	if len(mine) > 0 {
		t := mine[len(mine)-1].RedeemedAt
		last = &t
	}
	return insights.EvaluateReminder(last, now, dismissed), nil
}

// anniversary reports today's anniversary once per local day.
func (s *InsightsService) anniversary(ctx context.Context, actorID string, profile *model.Profile, created []model.Coupon, now time.Time, loc *time.Location) (*insights.Anniversary, error) {
	var first *time.Time
	for i := range created {
		if first == nil || created[i].CreatedAt.Before(*first) {
			first = &created[i].CreatedAt
		}
	}
	a := insights.AnniversaryOn(profile.RelationshipStartDate, first, now, loc)
	if a == nil {
		return nil, nil
	}

	today := now.In(loc).Format(time.DateOnly)
	var last string
	if err := kvstore.LoadJSON(ctx, s.store, kvstore.AnniversaryKey(actorID), &last); err != nil {
		return nil, persist("load anniversary marker", err)
	}
	if last == today {
		return nil, nil
	}
	if err := kvstore.SetJSON(ctx, s.store, kvstore.AnniversaryKey(actorID), today, anniversaryMarkerTTL); err != nil {
		return nil, persist("save anniversary marker", err)
	}
	return a, nil
}

func (s *InsightsService) newMilestones(ctx context.Context, actorID string, created, redeemed, streak int, now time.Time) ([]insights.Milestone, error) {
	celebrated := map[string]time.Time{}
	if err := kvstore.LoadJSON(ctx, s.store, kvstore.MilestonesKey(actorID), &celebrated); err != nil {
		return nil, persist("load milestones", err)
	}

	fresh := []insights.Milestone{}
	for _, m := range insights.Milestones(created, redeemed, streak) {
		if _, seen := celebrated[m.ID]; seen {
			continue
		}
		celebrated[m.ID] = now.UTC()
		fresh = append(fresh, m)
	}
	if len(fresh) > 0 {
		if err := kvstore.SetJSON(ctx, s.store, kvstore.MilestonesKey(actorID), celebrated, 0); err != nil {
			return nil, persist("save milestones", err)
		}
	}
	return fresh, nil
}

func (s *InsightsService) achievements(ctx context.Context, actorID string, st insights.Stats, now time.Time, loc *time.Location) ([]insights.Achievement, []model.AchievementStatus, error) {
	unlockedAt := map[string]time.Time{}
	if err := kvstore.LoadJSON(ctx, s.store, kvstore.AchievementsKey(actorID), &unlockedAt); err != nil {
		return nil, nil, persist("load achievements", err)
	}

	fresh := []insights.Achievement{}
	for _, a := range insights.Unlocked(st, now, loc) {
		if _, ok := unlockedAt[a.ID]; ok {
			continue
		}
		unlockedAt[a.ID] = now.UTC()
		fresh = append(fresh, a)
	}
	if len(fresh) > 0 {
		if err := kvstore.SetJSON(ctx, s.store, kvstore.AchievementsKey(actorID), unlockedAt, 0); err != nil {
			return nil, nil, persist("save achievements", err)
		}
	}

	// Achievements are permanent: once stored they stay unlocked even if the stats drop.
	catalogue := insights.Catalogue()
	all := make([]model.AchievementStatus, len(catalogue))
	for i, a := range catalogue {
		all[i] = model.AchievementStatus{Achievement: a}
		if at, ok := unlockedAt[a.ID]; ok {
			all[i].Unlocked = true
			all[i].UnlockedAt = &at
		}
	}
	return fresh, all, nil
}

// DismissReminder hides the reminder until the actor redeems again.
func (s *InsightsService) DismissReminder(ctx context.Context, actorID string) (err error) {
	ctx, span := startSpan(ctx, "InsightsService.DismissReminder", actorID)
	defer func() { endSpan(span, &err) }()

	last, err := s.redemptions.LatestBy(ctx, actorID)
	if err != nil {
		return persist("get latest redemption", err)
	}
	if last == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	dismissed := insights.Dismissals{}
	if err = kvstore.LoadJSON(ctx, s.store, kvstore.ReminderDismissedKey(actorID), &dismissed); err != nil {
		return persist("load reminder dismissals", err)
	}
	dismissed.Prune(now)
	dismissed[insights.ReminderDate(last.RedeemedAt)] = now.UTC()
	if err = kvstore.SetJSON(ctx, s.store, kvstore.ReminderDismissedKey(actorID), dismissed, 0); err != nil {
		return persist("save reminder dismissals", err)
	}
	return nil
}
