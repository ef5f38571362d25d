package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fairyhunter13/love-coupon-system/internal/model"
	"github.com/fairyhunter13/love-coupon-system/pkg/database"
)

// CouponRepositoryInterface defines the interface for coupon data access.
type CouponRepositoryInterface interface {
	Insert(ctx context.Context, coupon *model.Coupon) error
	GetByID(ctx context.Context, id string) (*model.Coupon, error)
	GetForUpdate(ctx context.Context, tx database.TxQuerier, id string) (*model.Coupon, error)
	ListCreatedBy(ctx context.Context, createdBy string) ([]model.Coupon, error)
	ListCreatedByTx(ctx context.Context, tx database.TxQuerier, createdBy string) ([]model.Coupon, error)
	ListForPartner(ctx context.Context, partnerID string) ([]model.Coupon, error)
	Delete(ctx context.Context, id, createdBy string) (bool, error)
}

// RedemptionRepositoryInterface defines the interface for redemption data access.
type RedemptionRepositoryInterface interface {
	List(ctx context.Context, filter model.RedemptionFilter) ([]model.Redemption, error)
	ListTx(ctx context.Context, tx database.TxQuerier, filter model.RedemptionFilter) ([]model.Redemption, error)
	RedeemedCouponIDs(ctx context.Context, couponIDs []string) ([]string, error)
	GetByCoupon(ctx context.Context, couponID string) (*model.Redemption, error)
	LatestBy(ctx context.Context, userID string) (*model.Redemption, error)
	Insert(ctx context.Context, tx database.TxQuerier, redemption *model.Redemption) error
}

// ProfileRepositoryInterface defines the interface for profile data access.
type ProfileRepositoryInterface interface {
	GetByID(ctx context.Context, id string) (*model.Profile, error)
	LockForUpdate(ctx context.Context, tx database.TxQuerier, id string) (*model.Profile, error)
}

// MoodRepositoryInterface defines the interface for mood check data access.
type MoodRepositoryInterface interface {
	Upsert(ctx context.Context, m *model.MoodCheck) error
	GetForDate(ctx context.Context, userID string, date time.Time) (*model.MoodCheck, error)
}

// AccessLogRepositoryInterface defines the interface for image access logging.
type AccessLogRepositoryInterface interface {
	Insert(ctx context.Context, couponID, accessedBy, accessType, userAgent string) error
}

// TxBeginner defines the interface for beginning transactions.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
