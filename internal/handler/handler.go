package handler

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/love-coupon-system/internal/eligibility"
	"github.com/fairyhunter13/love-coupon-system/internal/service"
	appvalidator "github.com/fairyhunter13/love-coupon-system/internal/validator"
)

// Request headers read by the actor middleware.
const (
	HeaderUserID   = "X-User-ID"
	HeaderTimezone = "X-Timezone"
)

const actorKey = "actor_id"

// Actor identifies the calling partner from the X-User-ID header and attaches the
// optional X-Timezone to the request context, where it localizes mood dates and
// insights. The daily redemption limit ignores it. Authentication happens upstream.
func Actor() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := strings.TrimSpace(c.Get(HeaderUserID))
		if raw == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing " + HeaderUserID + " header"})
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: " + HeaderUserID + " must be a valid UUID"})
		}
		c.Locals(actorKey, id.String())

		if tz := strings.TrimSpace(c.Get(HeaderTimezone)); tz != "" {
			if !appvalidator.IsTimezone(tz) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: unknown time zone " + strconv.Quote(tz)})
			}
			loc, _ := time.LoadLocation(tz)
			c.SetUserContext(service.WithLocation(c.UserContext(), loc))
		}
		return c.Next()
	}
}

// actorID returns the id stored by Actor.
func actorID(c *fiber.Ctx) string {
	id, _ := c.Locals(actorKey).(string)
	return id
}

// couponID parses the :id route parameter.
func couponID(c *fiber.Ctx) (string, bool) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return "", false
	}
	return id.String(), true
}

func badCouponID(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: coupon id must be a valid UUID"})
}

// formatValidationError converts validator errors to client-facing messages.
// Field names are JSON names, see validator.New.
func formatValidationError(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		fe := ve[0]
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			return "invalid request: " + field + " is required"
		case "notblank":
			return "invalid request: " + field + " cannot be whitespace only"
		case "max":
			return "invalid request: " + field + " exceeds maximum length of " + fe.Param()
		case "oneof":
			return "invalid request: " + field + " must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
		case "url":
			return "invalid request: " + field + " must be a valid URL"
		case "uuid":
			return "invalid request: " + field + " must be a valid UUID"
		default:
			return "invalid request: " + field + " is invalid"
		}
	}
	return "invalid request"
}

// writeError maps a service error to a status and body. Unknown errors are logged and become 500.
func writeError(c *fiber.Ctx, err error, msg string) error {
	var qe *eligibility.QuotaError
	if errors.As(err, &qe) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "create more coupons for your partner before redeeming",
			"reason":  string(eligibility.ReasonInsufficientQuota),
			"deficit": qe.Deficit,
		})
	}
	var le *eligibility.LimitError
	if errors.As(err, &le) {
		wait := int(math.Ceil(time.Until(le.RetryAt).Seconds()))
		if wait < 0 {
			wait = 0
		}
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(wait))
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error":    "you already redeemed a coupon today",
			"reason":   string(eligibility.ReasonDailyLimitReached),
			"retry_at": le.RetryAt,
		})
	}

	switch {
	case errors.Is(err, service.ErrAlreadyRedeemed):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "coupon already redeemed"})
	case errors.Is(err, service.ErrNoPartner):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "link a partner first"})
	case errors.Is(err, service.ErrNotRecipient):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "coupon is not addressed to you"})
	case errors.Is(err, service.ErrNotCreator):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "only the creator can do this"})
	case errors.Is(err, service.ErrCouponNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "coupon not found"})
	case errors.Is(err, service.ErrProfileNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "profile not found"})
	case errors.Is(err, service.ErrNotPendingDelete):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "coupon is not pending deletion"})
	case errors.Is(err, service.ErrNoImage):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "coupon has no image"})
	case errors.Is(err, service.ErrImageExpired):
		return c.Status(fiber.StatusGone).JSON(fiber.Map{"error": "image no longer visible"})
	case errors.Is(err, service.ErrInvalidRequest):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}

	log.Error().
		Err(err).
		Str("request_id", c.GetRespHeader(fiber.HeaderXRequestID)).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Str("actor_id", actorID(c)).
		Msg(msg)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}
