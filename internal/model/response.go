package model

import (
	"time"

	"github.com/fairyhunter13/love-coupon-system/internal/insights"
)

// CouponView is a coupon annotated with its derived availability.
type CouponView struct {
	Coupon
	State      string `json:"state"`
	IsFavorite bool   `json:"is_favorite"`
}

// EligibilityResponse is the API response DTO for the pre-flight redemption check.
type EligibilityResponse struct {
	Allowed bool       `json:"allowed"`
	Reason  string     `json:"reason,omitempty"`
	Deficit int        `json:"deficit,omitempty"`
	RetryAt *time.Time `json:"retry_at,omitempty"`
}

// DailyRedemptions holds today's redemption for the actor and for their partner.
type DailyRedemptions struct {
	Mine    *Redemption `json:"mine"`
	Partner *Redemption `json:"partner"`
}

// ImageView is the API response DTO for an image visibility check.
type ImageView struct {
	CouponID         string  `json:"coupon_id"`
	URL              string  `json:"url"`
	Redeemed         bool    `json:"redeemed"`
	Visible          bool    `json:"visible"`
	RemainingSeconds *int64  `json:"remaining_seconds,omitempty"`
	HoursElapsed     float64 `json:"hours_elapsed,omitempty"`
}

// PendingDeleteResponse is returned when a coupon deletion is scheduled.
type PendingDeleteResponse struct {
	CouponID         string    `json:"coupon_id"`
	ScheduledAt      time.Time `json:"scheduled_at"`
	RemainingSeconds int       `json:"remaining_seconds"`
}

// Totals counts the couple's activity.
type Totals struct {
	Created         int `json:"created"`
	Redeemed        int `json:"redeemed"`
	PartnerRedeemed int `json:"partner_redeemed"`
}

// AchievementStatus is a catalogue entry with whether and when the actor unlocked it.
type AchievementStatus struct {
	insights.Achievement
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}

// InsightsSummary is the API response DTO for the insights dashboard.
type InsightsSummary struct {
	Totals          Totals                 `json:"totals"`
	Streak          int                    `json:"streak"`
	Distribution    insights.Distribution  `json:"distribution"`
	Reminder        insights.Reminder      `json:"reminder"`
	Anniversary     *insights.Anniversary  `json:"anniversary"`
	NewMilestones   []insights.Milestone   `json:"new_milestones"`
	NewAchievements []insights.Achievement `json:"new_achievements"`
	Achievements    []AchievementStatus    `json:"achievements"`
}
