package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/fairyhunter13/love-coupon-system/internal/eligibility"
	"github.com/fairyhunter13/love-coupon-system/internal/model"
)

// PendingDeleteChecker reports coupons whose deletion is counting down.
type PendingDeleteChecker interface {
	PendingSet(ctx context.Context) (eligibility.IDSet, error)
}

// FavoriteLister lists an actor's favorite coupon ids.
type FavoriteLister interface {
	List(ctx context.Context, actorID string) ([]string, error)
}

// CouponService provides business logic for creating and listing coupons.
type CouponService struct {
	coupons     CouponRepositoryInterface
	redemptions RedemptionRepositoryInterface
	profiles    ProfileRepositoryInterface
	pending     PendingDeleteChecker
	favorites   FavoriteLister
}

// NewCouponService creates a new CouponService with the given repositories.
func NewCouponService(
	coupons CouponRepositoryInterface,
	redemptions RedemptionRepositoryInterface,
	profiles ProfileRepositoryInterface,
	pending PendingDeleteChecker,
	favorites FavoriteLister,
) *CouponService {
	return &CouponService{
		coupons:     coupons,
		redemptions: redemptions,
		profiles:    profiles,
		pending:     pending,
		favorites:   favorites,
	}
}

// Create creates a coupon from the actor for their partner.
// Returns ErrNoPartner if the actor is not linked to anyone.
// Returns ErrInvalidRequest if request data is nil or incomplete.
func (s *CouponService) Create(ctx context.Context, actorID string, req *model.CreateCouponRequest) (coupon *model.Coupon, err error) {
	ctx, span := startSpan(ctx, "CouponService.Create", actorID)
	defer func() { endSpan(span, &err) }()

	// Defense-in-depth: check for nil pointer even though handler validates
	if req == nil || strings.TrimSpace(req.Title) == "" {
		return nil, ErrInvalidRequest
	}

	profile, err := s.profiles.GetByID(ctx, actorID)
	if err != nil {
		return nil, persist("get profile", err)
	}
	if profile.PartnerID == nil || *profile.PartnerID == "" {
		return nil, ErrNoPartner
	}

	coupon = &model.Coupon{
		ID:          uuid.NewString(),
		CreatedBy:   actorID,
		ForPartner:  *profile.PartnerID,
		Title:       strings.TrimSpace(req.Title),
		Description: normalizeNote(req.Description),
		ImageURL:    normalizeNote(req.ImageURL),
		IsSurprise:  req.IsSurprise,
	}
	if err = s.coupons.Insert(ctx, coupon); err != nil {
		return nil, persist("insert coupon", err)
	}
	return coupon, nil
}

// listing fetches coupons with the pending-delete and favorite sets concurrently,
// then resolves which of them are redeemed.
func (s *CouponService) listing(ctx context.Context, actorID string, fetch func(context.Context) ([]model.Coupon, error)) ([]model.Coupon, eligibility.IDSet, eligibility.IDSet, eligibility.IDSet, error) {
	var (
		coupons []model.Coupon
		pending eligibility.IDSet
		favs    []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		coupons, err = fetch(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		pending, err = s.pending.PendingSet(gctx)
		if err != nil {
			return fmt.Errorf("pending deletes: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		favs, err = s.favorites.List(gctx, actorID)
		if err != nil {
			return fmt.Errorf("favorites: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, nil, nil, err
	}

	ids, err := s.redemptions.RedeemedCouponIDs(ctx, couponIDs(coupons))
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("get redeemed coupon ids: %w", err)
	}
	return coupons, redeemedSetOf(ids), pending, redeemedSetOf(favs), nil
}

// ListAvailable returns the coupons addressed to the actor that are still redeemable,
// hiding those whose deletion is pending.
func (s *CouponService) ListAvailable(ctx context.Context, actorID string) (views []model.CouponView, err error) {
	ctx, span := startSpan(ctx, "CouponService.ListAvailable", actorID)
	defer func() { endSpan(span, &err) }()

	coupons, redeemed, pending, favs, err := s.listing(ctx, actorID, func(ctx context.Context) ([]model.Coupon, error) {
		return s.coupons.ListForPartner(ctx, actorID)
	})
	if err != nil {
		return nil, persist("list available coupons", err)
	}

	views = []model.CouponView{}
	for _, c := range eligibility.Available(coupons, redeemed, actorID) {
		if pending.Has(c.ID) {
			continue
		}
		views = append(views, model.CouponView{
			Coupon:     c,
			State:      string(eligibility.StateAvailable),
			IsFavorite: favs.Has(c.ID),
		})
	}
	return views, nil
}

// ListCreated returns the actor's own coupons with their availability state.
func (s *CouponService) ListCreated(ctx context.Context, actorID string) (views []model.CouponView, err error) {
	ctx, span := startSpan(ctx, "CouponService.ListCreated", actorID)
	defer func() { endSpan(span, &err) }()

	coupons, redeemed, pending, favs, err := s.listing(ctx, actorID, func(ctx context.Context) ([]model.Coupon, error) {
		return s.coupons.ListCreatedBy(ctx, actorID)
	})
	if err != nil {
		return nil, persist("list created coupons", err)
	}

	views = make([]model.CouponView, 0, len(coupons))
	for _, c := range coupons {
		if pending.Has(c.ID) {
			continue
		}
		views = append(views, model.CouponView{
			Coupon:     c,
			State:      string(eligibility.StateOf(c, redeemed)),
			IsFavorite: favs.Has(c.ID),
		})
	}
	return views, nil
}
