package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/love-coupon-system/internal/eligibility"
	"github.com/fairyhunter13/love-coupon-system/internal/model"
)

// ImageService decides whether a coupon's image may be shown.
type ImageService struct {
	coupons     CouponRepositoryInterface
	redemptions RedemptionRepositoryInterface
	accessLogs  AccessLogRepositoryInterface
	window      eligibility.ImageWindow
	clock       eligibility.Clock
}

// NewImageService creates a new ImageService.
func NewImageService(
	coupons CouponRepositoryInterface,
	redemptions RedemptionRepositoryInterface,
	accessLogs AccessLogRepositoryInterface,
	window eligibility.ImageWindow,
) *ImageService {
	return &ImageService{
		coupons:     coupons,
		redemptions: redemptions,
		accessLogs:  accessLogs,
		window:      window,
		clock:       eligibility.SystemClock,
	}
}

// WithClock replaces the clock. Returns s for chaining.
func (s *ImageService) WithClock(clock eligibility.Clock) *ImageService {
	s.clock = clock
	return s
}

// View returns the image of a coupon the actor created or received.
// Unredeemed coupons always show their image. Redeemed ones show it for the
// visibility window; every view of a redeemed coupon is written to the access log.
// When the window has passed View returns the view with the URL withheld and ErrImageExpired.
func (s *ImageService) View(ctx context.Context, actorID, couponID, userAgent string) (view *model.ImageView, err error) {
	ctx, span := startSpan(ctx, "ImageService.View", actorID, attribute.String("coupon.id", couponID))
	defer func() { endSpan(span, &err) }()

	coupon, err := s.coupons.GetByID(ctx, couponID)
	if err != nil {
		return nil, persist("get coupon", err)
	}
	// Strangers get the same answer as for a missing coupon
	if coupon == nil || (coupon.CreatedBy != actorID && coupon.ForPartner != actorID) {
		return nil, ErrCouponNotFound
	}
	if !coupon.HasImage() {
		return nil, ErrNoImage
	}

	red, err := s.redemptions.GetByCoupon(ctx, couponID)
	if err != nil {
		return nil, persist("get redemption", err)
	}
	if red == nil {
		return &model.ImageView{CouponID: couponID, URL: *coupon.ImageURL, Visible: true}, nil
	}

	vis := s.window.Evaluate(red.RedeemedAt, s.clock.Now())
	accessType := model.AccessView
	if !vis.Visible {
		accessType = model.AccessExpiredAttempt
	}
	if logErr := s.accessLogs.Insert(ctx, couponID, actorID, accessType, userAgent); logErr != nil {
		log.Warn().Err(logErr).
			Str("coupon_id", couponID).
			Str("access_type", accessType).
			Msg("failed to record image access")
	}

	view = &model.ImageView{
		CouponID:     couponID,
		Redeemed:     true,
		Visible:      vis.Visible,
		HoursElapsed: vis.HoursElapsed(),
	}
	remaining, ok := vis.Remaining()
	if !ok {
		return view, ErrImageExpired
	}
	secs := int64((remaining + time.Second - 1) / time.Second)
	view.URL = *coupon.ImageURL
	view.RemainingSeconds = &secs
	return view, nil
}
