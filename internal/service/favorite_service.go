package service

import (
	"context"
	"slices"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/love-coupon-system/internal/kvstore"
)

// FavoriteService keeps each partner's favorite coupons in the keyed store.
type FavoriteService struct {
	store   kvstore.Store
	coupons CouponRepositoryInterface

	mu sync.Mutex // serializes read-modify-write of a favorites list
}

// NewFavoriteService creates a new FavoriteService.
func NewFavoriteService(store kvstore.Store, coupons CouponRepositoryInterface) *FavoriteService {
	return &FavoriteService{store: store, coupons: coupons}
}

// Toggle adds or removes couponID from the actor's favorites and reports whether it is now a favorite.
func (s *FavoriteService) Toggle(ctx context.Context, actorID, couponID string) (favorite bool, err error) {
	ctx, span := startSpan(ctx, "FavoriteService.Toggle", actorID, attribute.String("coupon.id", couponID))
	defer func() { endSpan(span, &err) }()

	coupon, err := s.coupons.GetByID(ctx, couponID)
	if err != nil {
		return false, persist("get coupon", err)
	}
	if coupon == nil || (coupon.CreatedBy != actorID && coupon.ForPartner != actorID) {
		return false, ErrCouponNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	favs, err := s.load(ctx, actorID)
	if err != nil {
		return false, err
	}
	if i := slices.Index(favs, couponID); i >= 0 {
		favs = slices.Delete(favs, i, i+1)
	} else {
		favs = append(favs, couponID)
		favorite = true
	}
	if err = kvstore.SetJSON(ctx, s.store, kvstore.FavoritesKey(actorID), favs, 0); err != nil {
		return false, persist("save favorites", err)
	}
	return favorite, nil
}

// List returns the actor's favorite coupon ids in the order they were added.
func (s *FavoriteService) List(ctx context.Context, actorID string) ([]string, error) {
	return s.load(ctx, actorID)
}

func (s *FavoriteService) load(ctx context.Context, actorID string) ([]string, error) {
	favs := []string{}
	if err := kvstore.LoadJSON(ctx, s.store, kvstore.FavoritesKey(actorID), &favs); err != nil {
		return nil, persist("load favorites", err)
	}
	return favs, nil
}
