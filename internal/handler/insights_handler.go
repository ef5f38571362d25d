package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/fairyhunter13/love-coupon-system/internal/model"
)

// InsightsServiceInterface defines the interface for the insights dashboard.
type InsightsServiceInterface interface {
	Summary(ctx context.Context, actorID string) (*model.InsightsSummary, error)
	DismissReminder(ctx context.Context, actorID string) error
}

// InsightsHandler handles HTTP requests for insights.
type InsightsHandler struct {
	service InsightsServiceInterface
}

// NewInsightsHandler creates a new InsightsHandler.
func NewInsightsHandler(svc InsightsServiceInterface) *InsightsHandler {
	return &InsightsHandler{service: svc}
}

// Summary handles GET /api/insights.
func (h *InsightsHandler) Summary(c *fiber.Ctx) error {
	sum, err := h.service.Summary(c.UserContext(), actorID(c))
	if err != nil {
		return writeError(c, err, "failed to build insights")
	}
	return c.JSON(sum)
}

// DismissReminder handles POST /api/insights/reminder/dismiss.
func (h *InsightsHandler) DismissReminder(c *fiber.Ctx) error {
	if err := h.service.DismissReminder(c.UserContext(), actorID(c)); err != nil {
		return writeError(c, err, "failed to dismiss reminder")
	}
	return c.Status(fiber.StatusNoContent).Send(nil)
}
