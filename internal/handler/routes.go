package handler

import "github.com/gofiber/fiber/v2"

// Handlers bundles everything RegisterRoutes mounts.
type Handlers struct {
	Health      *HealthHandler
	Coupons     *CouponHandler
	Redemptions *RedemptionHandler
	Images      *ImageHandler
	Insights    *InsightsHandler
	Moods       *MoodHandler
}

// RegisterRoutes mounts /health and the actor-scoped /api routes on app.
func RegisterRoutes(app *fiber.App, h Handlers) {
	app.Get("/health", h.Health.Check)

	api := app.Group("/api", Actor())

	// Coupon routes
	api.Post("/coupons", h.Coupons.CreateCoupon)
	api.Get("/coupons/available", h.Coupons.ListAvailable)
	api.Get("/coupons/created", h.Coupons.ListCreated)
	api.Delete("/coupons/:id", h.Coupons.ScheduleDelete)
	api.Post("/coupons/:id/restore", h.Coupons.UndoDelete)
	api.Post("/coupons/:id/favorite", h.Coupons.ToggleFavorite)
	api.Get("/coupons/:id/image", h.Images.View)
	api.Get("/favorites", h.Coupons.ListFavorites)

	// Redemption routes
	api.Get("/redemptions/eligibility", h.Redemptions.Eligibility)
	api.Post("/redemptions", h.Redemptions.Redeem)
	api.Get("/redemptions/today", h.Redemptions.Today)

	// Insights and mood routes
	api.Get("/insights", h.Insights.Summary)
	api.Post("/insights/reminder/dismiss", h.Insights.DismissReminder)
	api.Put("/moods/today", h.Moods.Record)
	api.Get("/moods/today", h.Moods.Today)
}
