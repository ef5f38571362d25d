package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/love-coupon-system/internal/model"
)

// CouponServiceInterface defines the interface for coupon business logic.
type CouponServiceInterface interface {
	Create(ctx context.Context, actorID string, req *model.CreateCouponRequest) (*model.Coupon, error)
	ListAvailable(ctx context.Context, actorID string) ([]model.CouponView, error)
	ListCreated(ctx context.Context, actorID string) ([]model.CouponView, error)
}

// DeletionServiceInterface defines the interface for undoable coupon deletion.
type DeletionServiceInterface interface {
	Schedule(ctx context.Context, actorID, couponID string) (*model.PendingDeleteResponse, error)
	Undo(ctx context.Context, actorID, couponID string) error
}

// FavoriteServiceInterface defines the interface for favorites.
type FavoriteServiceInterface interface {
	Toggle(ctx context.Context, actorID, couponID string) (bool, error)
	List(ctx context.Context, actorID string) ([]string, error)
}

// CouponHandler handles HTTP requests for coupon operations.
type CouponHandler struct {
	coupons   CouponServiceInterface
	deletions DeletionServiceInterface
	favorites FavoriteServiceInterface
	validator *validator.Validate
}

// NewCouponHandler creates a new CouponHandler with the given services and validator.
func NewCouponHandler(coupons CouponServiceInterface, deletions DeletionServiceInterface, favorites FavoriteServiceInterface, v *validator.Validate) *CouponHandler {
	return &CouponHandler{coupons: coupons, deletions: deletions, favorites: favorites, validator: v}
}

// CreateCoupon handles POST /api/coupons requests to create a coupon for the actor's partner.
func (h *CouponHandler) CreateCoupon(c *fiber.Ctx) error {
	var req model.CreateCouponRequest

	// Parse JSON body
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	// Validate request
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	coupon, err := h.coupons.Create(c.UserContext(), actorID(c), &req)
	if err != nil {
		return writeError(c, err, "failed to create coupon")
	}

	log.Info().
		Str("actor_id", actorID(c)).
		Str("coupon_id", coupon.ID).
		Bool("surprise", coupon.IsSurprise).
		Msg("coupon created")

	return c.Status(fiber.StatusCreated).JSON(coupon)
}

// ListAvailable handles GET /api/coupons/available.
func (h *CouponHandler) ListAvailable(c *fiber.Ctx) error {
	views, err := h.coupons.ListAvailable(c.UserContext(), actorID(c))
	if err != nil {
		return writeError(c, err, "failed to list available coupons")
	}
	return c.JSON(views)
}

// ListCreated handles GET /api/coupons/created.
func (h *CouponHandler) ListCreated(c *fiber.Ctx) error {
	views, err := h.coupons.ListCreated(c.UserContext(), actorID(c))
	if err != nil {
		return writeError(c, err, "failed to list created coupons")
	}
	return c.JSON(views)
}

// ScheduleDelete handles DELETE /api/coupons/:id. The coupon disappears from listings
// immediately and is removed for good once the undo window passes.
func (h *CouponHandler) ScheduleDelete(c *fiber.Ctx) error {
	id, ok := couponID(c)
	if !ok {
		return badCouponID(c)
	}
	resp, err := h.deletions.Schedule(c.UserContext(), actorID(c), id)
	if err != nil {
		return writeError(c, err, "failed to schedule coupon deletion")
	}
	return c.Status(fiber.StatusAccepted).JSON(resp)
}

// UndoDelete handles POST /api/coupons/:id/restore.
func (h *CouponHandler) UndoDelete(c *fiber.Ctx) error {
	id, ok := couponID(c)
	if !ok {
		return badCouponID(c)
	}
	if err := h.deletions.Undo(c.UserContext(), actorID(c), id); err != nil {
		return writeError(c, err, "failed to undo coupon deletion")
	}
	return c.Status(fiber.StatusNoContent).Send(nil)
}

// ToggleFavorite handles POST /api/coupons/:id/favorite.
func (h *CouponHandler) ToggleFavorite(c *fiber.Ctx) error {
	id, ok := couponID(c)
	if !ok {
		return badCouponID(c)
	}
	favorite, err := h.favorites.Toggle(c.UserContext(), actorID(c), id)
	if err != nil {
		return writeError(c, err, "failed to toggle favorite")
	}
	return c.JSON(fiber.Map{"coupon_id": id, "is_favorite": favorite})
}

// ListFavorites handles GET /api/favorites.
func (h *CouponHandler) ListFavorites(c *fiber.Ctx) error {
	ids, err := h.favorites.List(c.UserContext(), actorID(c))
	if err != nil {
		return writeError(c, err, "failed to list favorites")
	}
	return c.JSON(fiber.Map{"coupon_ids": ids})
}
