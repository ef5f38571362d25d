package service

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/love-coupon-system/internal/eligibility"
	"github.com/fairyhunter13/love-coupon-system/internal/model"
)

// Moods lists the accepted mood values.
var Moods = []string{"happy", "loving", "grateful", "peaceful", "excited"}

// MoodService records one mood check per partner per calendar day.
type MoodService struct {
	moods MoodRepositoryInterface
	loc   LocationDefault
	clock eligibility.Clock
}

// LocationDefault resolves the zone used when the request carries none.
type LocationDefault interface {
	Location() *time.Location
}

// NewMoodService creates a new MoodService. Calendar days fall back to the zone of defaults.
func NewMoodService(moods MoodRepositoryInterface, defaults LocationDefault) *MoodService {
	return &MoodService{moods: moods, loc: defaults, clock: eligibility.SystemClock}
}

// WithClock replaces the clock. Returns s for chaining.
func (s *MoodService) WithClock(clock eligibility.Clock) *MoodService {
	s.clock = clock
	return s
}

func (s *MoodService) today(ctx context.Context) time.Time {
	return eligibility.StartOfDay(s.clock.Now(), LocationFrom(ctx, s.loc.Location()))
}

// Record stores the actor's mood for today, replacing an earlier check from the same day.
func (s *MoodService) Record(ctx context.Context, actorID, mood string) (check *model.MoodCheck, err error) {
	ctx, span := startSpan(ctx, "MoodService.Record", actorID)
	defer func() { endSpan(span, &err) }()

	if !slices.Contains(Moods, mood) {
		return nil, ErrInvalidRequest
	}
	check = &model.MoodCheck{
		ID:        uuid.NewString(),
		UserID:    actorID,
		Mood:      mood,
		CheckDate: s.today(ctx),
	}
	if err = s.moods.Upsert(ctx, check); err != nil {
		return nil, persist("upsert mood", err)
	}
	return check, nil
}

// Today returns the actor's mood check for today, or nil if there is none yet.
func (s *MoodService) Today(ctx context.Context, actorID string) (check *model.MoodCheck, err error) {
	ctx, span := startSpan(ctx, "MoodService.Today", actorID)
	defer func() { endSpan(span, &err) }()

	check, err = s.moods.GetForDate(ctx, actorID, s.today(ctx))
	if err != nil {
		return nil, persist("get mood", err)
	}
	return check, nil
}
