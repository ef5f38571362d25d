package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/fairyhunter13/love-coupon-system/internal/model"
)

// MoodServiceInterface defines the interface for daily mood checks.
type MoodServiceInterface interface {
	Record(ctx context.Context, actorID, mood string) (*model.MoodCheck, error)
	Today(ctx context.Context, actorID string) (*model.MoodCheck, error)
}

// MoodHandler handles HTTP requests for mood checks.
type MoodHandler struct {
	service   MoodServiceInterface
	validator *validator.Validate
}

// NewMoodHandler creates a new MoodHandler.
func NewMoodHandler(svc MoodServiceInterface, v *validator.Validate) *MoodHandler {
	return &MoodHandler{service: svc, validator: v}
}

// Record handles PUT /api/moods/today.
func (h *MoodHandler) Record(c *fiber.Ctx) error {
	var req model.RecordMoodRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	check, err := h.service.Record(c.UserContext(), actorID(c), req.Mood)
	if err != nil {
		return writeError(c, err, "failed to record mood")
	}
	return c.JSON(check)
}

// Today handles GET /api/moods/today. Answers 204 when no mood was recorded yet.
func (h *MoodHandler) Today(c *fiber.Ctx) error {
	check, err := h.service.Today(c.UserContext(), actorID(c))
	if err != nil {
		return writeError(c, err, "failed to load mood")
	}
	if check == nil {
		return c.Status(fiber.StatusNoContent).Send(nil)
	}
	return c.JSON(check)
}
