package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/love-coupon-system/internal/eligibility"
	"github.com/fairyhunter13/love-coupon-system/internal/kvstore"
	"github.com/fairyhunter13/love-coupon-system/internal/model"
)

// DefaultSoftDeleteTimeout is how long a deletion can be undone.
const DefaultSoftDeleteTimeout = 30 * time.Second

// pendingDelete is the value stored under kvstore.PendingDeleteKey.
type pendingDelete struct {
	CouponID    string    `json:"coupon_id"`
	CreatedBy   string    `json:"created_by"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

// DeletionService implements undoable coupon deletion: a delete is scheduled,
// can be undone within the timeout, and is purged by the Sweeper afterwards.
type DeletionService struct {
	store       kvstore.Store
	coupons     CouponRepositoryInterface
	redemptions RedemptionRepositoryInterface
	timeout     time.Duration
	clock       eligibility.Clock
}

// NewDeletionService creates a DeletionService. A non-positive timeout uses DefaultSoftDeleteTimeout.
func NewDeletionService(store kvstore.Store, coupons CouponRepositoryInterface, redemptions RedemptionRepositoryInterface, timeout time.Duration) *DeletionService {
	if timeout <= 0 {
		timeout = DefaultSoftDeleteTimeout
	}
	return &DeletionService{
		store:       store,
		coupons:     coupons,
		redemptions: redemptions,
		timeout:     timeout,
		clock:       eligibility.SystemClock,
	}
}

// WithClock replaces the clock. Returns s for chaining.
func (s *DeletionService) WithClock(clock eligibility.Clock) *DeletionService {
	s.clock = clock
	return s
}

// remainingSeconds rounds up so a countdown shows 1 until the very end, clamped at 0.
func (s *DeletionService) remainingSeconds(p pendingDelete, now time.Time) int {
	left := p.ScheduledAt.Add(s.timeout).Sub(now)
	if left <= 0 {
		return 0
	}
	return int((left + time.Second - 1) / time.Second)
}

func (s *DeletionService) load(ctx context.Context, couponID string) (*pendingDelete, error) {
	var p pendingDelete
	if err := kvstore.GetJSON(ctx, s.store, kvstore.PendingDeleteKey(couponID), &p); err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return nil, ErrNotPendingDelete
		}
		return nil, err
	}
	return &p, nil
}

// Schedule starts the undo countdown for a coupon the actor created.
// Redeemed coupons cannot be deleted; their redemption is history.
func (s *DeletionService) Schedule(ctx context.Context, actorID, couponID string) (resp *model.PendingDeleteResponse, err error) {
	ctx, span := startSpan(ctx, "DeletionService.Schedule", actorID, attribute.String("coupon.id", couponID))
	defer func() { endSpan(span, &err) }()

	coupon, err := s.coupons.GetByID(ctx, couponID)
	if err != nil {
		return nil, persist("get coupon", err)
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}
	if coupon.CreatedBy != actorID {
		return nil, ErrNotCreator
	}

	red, err := s.redemptions.GetByCoupon(ctx, couponID)
	if err != nil {
		return nil, persist("get redemption", err)
	}
	if red != nil {
		return nil, ErrAlreadyRedeemed
	}

	now := s.clock.Now()
	p := pendingDelete{CouponID: couponID, CreatedBy: actorID, ScheduledAt: now.UTC()}
	if err = kvstore.SetJSON(ctx, s.store, kvstore.PendingDeleteKey(couponID), p, 0); err != nil {
		return nil, persist("store pending delete", err)
	}

	return &model.PendingDeleteResponse{
		CouponID:         couponID,
		ScheduledAt:      p.ScheduledAt,
		RemainingSeconds: s.remainingSeconds(p, now),
	}, nil
}

// Undo cancels a scheduled deletion. It races the Sweeper through kvstore.Store.Take,
// so exactly one of them wins.
func (s *DeletionService) Undo(ctx context.Context, actorID, couponID string) (err error) {
	ctx, span := startSpan(ctx, "DeletionService.Undo", actorID, attribute.String("coupon.id", couponID))
	defer func() { endSpan(span, &err) }()

	p, err := s.load(ctx, couponID)
	if err != nil {
		return persist("load pending delete", err)
	}
	if p.CreatedBy != actorID {
		return ErrNotCreator
	}
	if _, err = s.store.Take(ctx, kvstore.PendingDeleteKey(couponID)); err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return ErrNotPendingDelete
		}
		return persist("cancel pending delete", err)
	}
	return nil
}

// Remaining returns the whole seconds left to undo, rounded up.
func (s *DeletionService) Remaining(ctx context.Context, couponID string) (int, error) {
	p, err := s.load(ctx, couponID)
	if err != nil {
		return 0, persist("load pending delete", err)
	}
	return s.remainingSeconds(*p, s.clock.Now()), nil
}

// IsPending reports whether the coupon is scheduled for deletion.
func (s *DeletionService) IsPending(ctx context.Context, couponID string) (bool, error) {
	_, err := s.store.Get(ctx, kvstore.PendingDeleteKey(couponID))
	if errors.Is(err, kvstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, persist("check pending delete", err)
	}
	return true, nil
}

// PendingSet returns the ids of every coupon scheduled for deletion.
func (s *DeletionService) PendingSet(ctx context.Context) (eligibility.IDSet, error) {
	keys, err := s.store.Keys(ctx, kvstore.PrefixPendingDelete)
	if err != nil {
		return nil, persist("list pending deletes", err)
	}
	set := make(eligibility.IDSet, len(keys))
	for _, k := range keys {
		set[strings.TrimPrefix(k, kvstore.PrefixPendingDelete)] = struct{}{}
	}
	return set, nil
}

// PurgeExpired deletes every coupon whose undo window has elapsed and returns how many were removed.
// A failure on one coupon does not stop the others; all failures are joined into the returned error.
// A coupon whose delete fails stays pending and is retried by the next sweep.
func (s *DeletionService) PurgeExpired(ctx context.Context) (int, error) {
	keys, err := s.store.Keys(ctx, kvstore.PrefixPendingDelete)
	if err != nil {
		return 0, persist("list pending deletes", err)
	}

	now := s.clock.Now()
	purged := 0
	var errs []error
	for _, key := range keys {
		couponID := strings.TrimPrefix(key, kvstore.PrefixPendingDelete)
		p, err := s.load(ctx, couponID)
		if errors.Is(err, ErrNotPendingDelete) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("load %s: %w", couponID, err))
			continue
		}
		if s.remainingSeconds(*p, now) > 0 {
			continue
		}
		if _, err := s.store.Take(ctx, key); err != nil {
			if !errors.Is(err, kvstore.ErrNotFound) {
				errs = append(errs, fmt.Errorf("claim %s: %w", couponID, err))
			}
			continue
		}

		deleted, err := s.coupons.Delete(ctx, couponID, p.CreatedBy)
		switch {
		case errors.Is(err, ErrAlreadyRedeemed):
			log.Info().Str("coupon_id", couponID).Msg("coupon redeemed before its deletion was purged; keeping it")
		case err != nil:
			errs = append(errs, fmt.Errorf("delete %s: %w", couponID, err))
			// Put the countdown back so the next sweep retries this coupon.
			if rerr := kvstore.SetJSON(ctx, s.store, key, p, 0); rerr != nil {
				log.Error().Err(rerr).Str("coupon_id", couponID).Msg("failed to restore pending delete after purge failure")
				errs = append(errs, fmt.Errorf("restore %s: %w", couponID, rerr))
			}
		case deleted:
			purged++
		}
	}

	if len(errs) > 0 {
		return purged, persist("purge expired deletes", errors.Join(errs...))
	}
	return purged, nil
}
