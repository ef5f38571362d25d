package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/fairyhunter13/love-coupon-system/internal/model"
	"github.com/fairyhunter13/love-coupon-system/internal/service"
)

// ImageServiceInterface defines the interface for image visibility.
type ImageServiceInterface interface {
	View(ctx context.Context, actorID, couponID, userAgent string) (*model.ImageView, error)
}

// ImageHandler handles HTTP requests for coupon images.
type ImageHandler struct {
	service ImageServiceInterface
}

// NewImageHandler creates a new ImageHandler.
func NewImageHandler(svc ImageServiceInterface) *ImageHandler {
	return &ImageHandler{service: svc}
}

// View handles GET /api/coupons/:id/image. An expired image answers 410 with
// how long ago the coupon was redeemed.
func (h *ImageHandler) View(c *fiber.Ctx) error {
	id, ok := couponID(c)
	if !ok {
		return badCouponID(c)
	}

	view, err := h.service.View(c.UserContext(), actorID(c), id, c.Get(fiber.HeaderUserAgent))
	if errors.Is(err, service.ErrImageExpired) && view != nil {
		return c.Status(fiber.StatusGone).JSON(fiber.Map{
			"error":         "image no longer visible",
			"coupon_id":     view.CouponID,
			"hours_elapsed": view.HoursElapsed,
		})
	}
	if err != nil {
		return writeError(c, err, "failed to load coupon image")
	}
	return c.JSON(view)
}
