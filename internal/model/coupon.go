package model

import "time"

// Profile is a user of the app, optionally linked to one partner.
type Profile struct {
	ID                    string     `json:"id"`
	Email                 string     `json:"email"`
	PartnerID             *string    `json:"partner_id"`
	RelationshipStartDate *time.Time `json:"relationship_start_date,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
}

// Coupon is a promise one partner creates for the other.
type Coupon struct {
	ID          string    `json:"id"`
	CreatedBy   string    `json:"created_by"`
	ForPartner  string    `json:"for_partner"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	ImageURL    *string   `json:"image_url"`
	IsSurprise  bool      `json:"is_surprise"`
	CreatedAt   time.Time `json:"created_at"`
}

// HasImage reports whether an image is attached to the coupon.
func (c Coupon) HasImage() bool {
	return c.ImageURL != nil && *c.ImageURL != ""
}

// Redemption records a partner claiming a coupon.
type Redemption struct {
	ID             string    `json:"id"`
	CouponID       string    `json:"coupon_id"`
	RedeemedBy     string    `json:"redeemed_by"`
	ReflectionNote *string   `json:"reflection_note"`
	RedeemedAt     time.Time `json:"redeemed_at"`

	// Coupon is populated when the query joins the coupon row; nil otherwise.
	Coupon *Coupon `json:"coupon,omitempty"`
}

// RedemptionFilter narrows a redemption listing. Zero values mean "no constraint".
type RedemptionFilter struct {
	By        string
	CouponIDs []string
	From      time.Time // inclusive
	To        time.Time // exclusive
}

// MoodCheck is a user's mood for one calendar day.
type MoodCheck struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Mood      string    `json:"mood"`
	CheckDate time.Time `json:"check_date"`
	CreatedAt time.Time `json:"created_at"`
}

// Image access types written to image_access_logs.
const (
	AccessView           = "view"
	AccessExpiredAttempt = "expired_attempt"
)

// CreateCouponRequest is the DTO for creating a coupon.
type CreateCouponRequest struct {
	Title       string  `json:"title" validate:"required,notblank,max=255"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	ImageURL    *string `json:"image_url" validate:"omitempty,url,max=2048"`
	IsSurprise  bool    `json:"is_surprise"`
}

// RedeemCouponRequest is the DTO for redeeming a coupon.
type RedeemCouponRequest struct {
	CouponID       string  `json:"coupon_id" validate:"required,uuid"`
	ReflectionNote *string `json:"reflection_note" validate:"omitempty,max=2000"`
}

// RecordMoodRequest is the DTO for today's mood check.
type RecordMoodRequest struct {
	Mood string `json:"mood" validate:"required,oneof=happy loving grateful peaceful excited"`
}
