package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/fairyhunter13/love-coupon-system/internal/eligibility"
	"github.com/fairyhunter13/love-coupon-system/internal/model"
	"github.com/fairyhunter13/love-coupon-system/pkg/database"
)

// RedemptionService gates and records coupon redemptions.
type RedemptionService struct {
	pool        TxBeginner
	coupons     CouponRepositoryInterface
	redemptions RedemptionRepositoryInterface
	profiles    ProfileRepositoryInterface
	engine      *eligibility.Engine
	pending     PendingDeleteChecker
	clock       eligibility.Clock
}

// NewRedemptionService creates a new RedemptionService with the given pool and repositories.
func NewRedemptionService(
	pool *pgxpool.Pool,
	coupons CouponRepositoryInterface,
	redemptions RedemptionRepositoryInterface,
	profiles ProfileRepositoryInterface,
	engine *eligibility.Engine,
) *RedemptionService {
	return NewRedemptionServiceWithTxBeginner(pool, coupons, redemptions, profiles, engine)
}

// NewRedemptionServiceWithTxBeginner creates a RedemptionService with a custom TxBeginner.
// Primarily used for testing.
func NewRedemptionServiceWithTxBeginner(
	pool TxBeginner,
	coupons CouponRepositoryInterface,
	redemptions RedemptionRepositoryInterface,
	profiles ProfileRepositoryInterface,
	engine *eligibility.Engine,
) *RedemptionService {
	if engine == nil {
		engine = eligibility.DefaultEngine()
	}
	return &RedemptionService{
		pool:        pool,
		coupons:     coupons,
		redemptions: redemptions,
		profiles:    profiles,
		engine:      engine,
		clock:       eligibility.SystemClock,
	}
}

// WithClock replaces the clock. Returns s for chaining.
func (s *RedemptionService) WithClock(clock eligibility.Clock) *RedemptionService {
	s.clock = clock
	return s
}

// WithPendingDeletes makes coupons whose deletion is counting down unredeemable
// and excludes them from the creator's quota. Returns s for chaining.
func (s *RedemptionService) WithPendingDeletes(pending PendingDeleteChecker) *RedemptionService {
	s.pending = pending
	return s
}

func (s *RedemptionService) pendingSet(ctx context.Context) (eligibility.IDSet, error) {
	if s.pending == nil {
		return eligibility.IDSet{}, nil
	}
	return s.pending.PendingSet(ctx)
}

// withoutPending drops coupons scheduled for deletion from the quota count.
func withoutPending(snap eligibility.Snapshot, pending eligibility.IDSet) eligibility.Snapshot {
	if len(pending) == 0 {
		return snap
	}
	kept := make([]model.Coupon, 0, len(snap.Created))
	for _, c := range snap.Created {
		if !pending.Has(c.ID) {
			kept = append(kept, c)
		}
	}
	snap.Created = kept
	return snap
}

func couponIDs(coupons []model.Coupon) []string {
	ids := make([]string, len(coupons))
	for i, c := range coupons {
		ids[i] = c.ID
	}
	return ids
}

func redeemedSetOf(ids []string) eligibility.IDSet {
	set := make(eligibility.IDSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// snapshotTx reads everything CanRedeem needs through tx.
func (s *RedemptionService) snapshotTx(ctx context.Context, tx database.TxQuerier, actorID string, window eligibility.Window) (eligibility.Snapshot, error) {
	created, err := s.coupons.ListCreatedByTx(ctx, tx, actorID)
	if err != nil {
		return eligibility.Snapshot{}, fmt.Errorf("list created coupons: %w", err)
	}

	redeemed := eligibility.IDSet{}
	if len(created) > 0 {
		reds, err := s.redemptions.ListTx(ctx, tx, model.RedemptionFilter{CouponIDs: couponIDs(created)})
		if err != nil {
			return eligibility.Snapshot{}, fmt.Errorf("list redemptions of created coupons: %w", err)
		}
		redeemed = eligibility.RedeemedSet(reds)
	}

	own, err := s.redemptions.ListTx(ctx, tx, model.RedemptionFilter{By: actorID, From: window.Start, To: window.End})
	if err != nil {
		return eligibility.Snapshot{}, fmt.Errorf("list own redemptions: %w", err)
	}

	return eligibility.Snapshot{Created: created, Redeemed: redeemed, Own: own}, nil
}

// snapshot reads the same data as snapshotTx outside a transaction, fetching concurrently.
func (s *RedemptionService) snapshot(ctx context.Context, actorID string, window eligibility.Window) (eligibility.Snapshot, error) {
	var (
		created []model.Coupon
		own     []model.Redemption
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		created, err = s.coupons.ListCreatedBy(gctx, actorID)
		if err != nil {
			return fmt.Errorf("list created coupons: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		own, err = s.redemptions.List(gctx, model.RedemptionFilter{By: actorID, From: window.Start, To: window.End})
		if err != nil {
			return fmt.Errorf("list own redemptions: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return eligibility.Snapshot{}, err
	}

	ids, err := s.redemptions.RedeemedCouponIDs(ctx, couponIDs(created))
	if err != nil {
		return eligibility.Snapshot{}, fmt.Errorf("get redeemed coupon ids: %w", err)
	}
	return eligibility.Snapshot{Created: created, Redeemed: redeemedSetOf(ids), Own: own}, nil
}

// CheckEligibility is the read-only pre-flight check behind the redeem button.
// It never writes; Redeem re-checks inside its transaction.
func (s *RedemptionService) CheckEligibility(ctx context.Context, actorID string) (v eligibility.Verdict, err error) {
	ctx, span := startSpan(ctx, "RedemptionService.CheckEligibility", actorID)
	defer func() { endSpan(span, &err) }()

	now := s.clock.Now()

	snap, err := s.snapshot(ctx, actorID, s.engine.WindowFor(now))
	if err != nil {
		return eligibility.Verdict{}, persist("check eligibility", err)
	}
	pending, err := s.pendingSet(ctx)
	if err != nil {
		return eligibility.Verdict{}, persist("list pending deletes", err)
	}
	snap = withoutPending(snap, pending)

	v = s.engine.CanRedeem(actorID, snap, now)
	span.SetAttributes(attribute.Bool("eligibility.allowed", v.Allowed), attribute.String("eligibility.reason", string(v.Reason)))
	return v, nil
}

// Redeem atomically checks eligibility and records the redemption.
// The actor's profile row is locked first so concurrent redeems by the same actor
// serialize, and the coupon row is locked so it cannot be deleted underneath.
// Returns:
//   - ErrProfileNotFound if the actor has no profile
//   - ErrCouponNotFound if the coupon doesn't exist or its deletion is pending
//   - ErrNotRecipient if the coupon is addressed to someone else
//   - *eligibility.QuotaError (ErrInsufficientQuota) if the actor has too few outstanding coupons
//   - *eligibility.LimitError (ErrDailyLimitReached) if the actor already redeemed in this window
//   - ErrAlreadyRedeemed if the coupon was redeemed before
//   - *PersistenceError for store failures, in which case nothing is recorded
func (s *RedemptionService) Redeem(ctx context.Context, actorID, couponID string, note *string) (red *model.Redemption, err error) {
	ctx, span := startSpan(ctx, "RedemptionService.Redeem", actorID, attribute.String("coupon.id", couponID))
	defer func() { endSpan(span, &err) }()

	now := s.clock.Now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, persist("begin tx", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // Safe: no-op if committed

	// 1. Serialize redeems by the same actor
	if _, err = s.profiles.LockForUpdate(ctx, tx, actorID); err != nil {
		return nil, persist("lock profile", err)
	}

	// 2. Lock the coupon row (SELECT FOR UPDATE)
	coupon, err := s.coupons.GetForUpdate(ctx, tx, couponID)
	if err != nil {
		return nil, persist("get coupon for update", err)
	}
	if coupon.ForPartner != actorID {
		return nil, ErrNotRecipient
	}
	pending, err := s.pendingSet(ctx)
	if err != nil {
		return nil, persist("list pending deletes", err)
	}
	if pending.Has(coupon.ID) {
		return nil, ErrCouponNotFound
	}

	// 3. Evaluate against a snapshot read under the locks
	snap, err := s.snapshotTx(ctx, tx, actorID, s.engine.WindowFor(now))
	if err != nil {
		return nil, persist("read eligibility snapshot", err)
	}
	snap = withoutPending(snap, pending)
	if verdict := s.engine.CanRedeem(actorID, snap, now); !verdict.Allowed {
		span.SetAttributes(attribute.String("eligibility.reason", string(verdict.Reason)))
		return nil, verdict.Err()
	}

	// 4. Insert (UNIQUE(coupon_id) catches a coupon redeemed twice)
	red = &model.Redemption{
		ID:             uuid.NewString(),
		CouponID:       coupon.ID,
		RedeemedBy:     actorID,
		ReflectionNote: normalizeNote(note),
		RedeemedAt:     now.UTC(),
		Coupon:         coupon,
	}
	if err = s.redemptions.Insert(ctx, tx, red); err != nil {
		return nil, persist("insert redemption", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, persist("commit", err)
	}
	return red, nil
}

// Today returns the redemptions made in the current window by the actor and by their partner.
func (s *RedemptionService) Today(ctx context.Context, actorID string) (out *model.DailyRedemptions, err error) {
	ctx, span := startSpan(ctx, "RedemptionService.Today", actorID)
	defer func() { endSpan(span, &err) }()

	profile, err := s.profiles.GetByID(ctx, actorID)
	if err != nil {
		return nil, persist("get profile", err)
	}

	window := s.engine.WindowFor(s.clock.Now())
	out = &model.DailyRedemptions{}

	latestIn := func(ctx context.Context, userID string) (*model.Redemption, error) {
		reds, err := s.redemptions.List(ctx, model.RedemptionFilter{By: userID, From: window.Start, To: window.End})
		if err != nil {
			return nil, err
		}
		if len(reds) == 0 {
			return nil, nil
		}
		latest := reds[len(reds)-1]
		return &latest, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		out.Mine, err = latestIn(gctx, actorID)
		return err
	})
	if profile.PartnerID != nil {
		partnerID := *profile.PartnerID
		g.Go(func() error {
			var err error
			out.Partner, err = latestIn(gctx, partnerID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, persist("list today's redemptions", err)
	}
	return out, nil
}

func normalizeNote(note *string) *string {
	if note == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*note)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
