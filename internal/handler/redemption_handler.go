package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/love-coupon-system/internal/eligibility"
	"github.com/fairyhunter13/love-coupon-system/internal/model"
)

// RedemptionServiceInterface defines the interface for redemption business logic.
type RedemptionServiceInterface interface {
	CheckEligibility(ctx context.Context, actorID string) (eligibility.Verdict, error)
	Redeem(ctx context.Context, actorID, couponID string, note *string) (*model.Redemption, error)
	Today(ctx context.Context, actorID string) (*model.DailyRedemptions, error)
}

// RedemptionHandler handles HTTP requests for redemptions.
type RedemptionHandler struct {
	service   RedemptionServiceInterface
	validator *validator.Validate
}

// NewRedemptionHandler creates a new RedemptionHandler with the given service and validator.
func NewRedemptionHandler(svc RedemptionServiceInterface, v *validator.Validate) *RedemptionHandler {
	return &RedemptionHandler{service: svc, validator: v}
}

// Eligibility handles GET /api/redemptions/eligibility. It always answers 200;
// the verdict itself says whether redeeming is allowed.
func (h *RedemptionHandler) Eligibility(c *fiber.Ctx) error {
	v, err := h.service.CheckEligibility(c.UserContext(), actorID(c))
	if err != nil {
		return writeError(c, err, "failed to check redemption eligibility")
	}
	resp := model.EligibilityResponse{
		Allowed: v.Allowed,
		Reason:  string(v.Reason),
		Deficit: v.Deficit,
	}
	if !v.RetryAt.IsZero() {
		resp.RetryAt = &v.RetryAt
	}
	return c.JSON(resp)
}

// Redeem handles POST /api/redemptions.
func (h *RedemptionHandler) Redeem(c *fiber.Ctx) error {
	var req model.RedeemCouponRequest

	// Parse JSON body
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	// Validate request
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	red, err := h.service.Redeem(c.UserContext(), actorID(c), req.CouponID, req.ReflectionNote)
	if err != nil {
		return writeError(c, err, "failed to redeem coupon")
	}

	log.Info().
		Str("request_id", c.GetRespHeader(fiber.HeaderXRequestID)).
		Str("actor_id", actorID(c)).
		Str("coupon_id", red.CouponID).
		Str("redemption_id", red.ID).
		Msg("coupon redeemed successfully")

	return c.Status(fiber.StatusCreated).JSON(red)
}

// Today handles GET /api/redemptions/today.
func (h *RedemptionHandler) Today(c *fiber.Ctx) error {
	out, err := h.service.Today(c.UserContext(), actorID(c))
	if err != nil {
		return writeError(c, err, "failed to load today's redemptions")
	}
	return c.JSON(out)
}
