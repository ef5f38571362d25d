package eligibility

import (
	"time"

	"github.com/fairyhunter13/love-coupon-system/internal/model"
)

// Snapshot is the data a redemption check reads. The caller fetches it, typically
// inside the same transaction that will record the redemption.
type Snapshot struct {
	// Created holds the coupons the actor created.
	Created []model.Coupon
	// Redeemed is the set of coupon ids redeemed by anyone.
	Redeemed IDSet
	// Own holds the actor's redemptions, at least those that may fall inside the current window.
	Own []model.Redemption
}

// Engine composes the quota gate, the daily limiter and the image window.
type Engine struct {
	Gate    QuotaGate
	Limiter DailyLimiter
	Images  ImageWindow
}

// NewEngine returns an Engine with the given quota, window policy and image visibility.
func NewEngine(quota int, policy WindowPolicy, visibility time.Duration) *Engine {
	return &Engine{
		Gate:    QuotaGate{Quota: quota},
		Limiter: DailyLimiter{Policy: policy},
		Images:  ImageWindow{Duration: visibility},
	}
}

// DefaultEngine uses quota 4, calendar days in UTC and a 12 hour image window.
func DefaultEngine() *Engine {
	return NewEngine(DefaultCreationQuota, CalendarDay{Location: time.UTC}, DefaultImageVisibility)
}

// CanRedeem runs the quota gate first and the daily limiter second, returning the first denial.
func (e *Engine) CanRedeem(actorID string, s Snapshot, now time.Time) Verdict {
	if v := e.Gate.Evaluate(actorID, s.Created, s.Redeemed); !v.Allowed {
		return v
	}
	return e.Limiter.Evaluate(actorID, s.Own, now)
}

// WindowFor returns the limiter window containing now.
func (e *Engine) WindowFor(now time.Time) Window {
	return e.Limiter.policy().Window(now)
}

// Location returns the zone of a calendar-day policy, or UTC for other policies.
func (e *Engine) Location() *time.Location {
	if cd, ok := e.Limiter.policy().(CalendarDay); ok {
		return cd.loc()
	}
	return time.UTC
}

// WithPolicy returns a copy of e that uses policy for the daily limiter.
func (e *Engine) WithPolicy(policy WindowPolicy) *Engine {
	cp := *e
	cp.Limiter = DailyLimiter{Policy: policy}
	return &cp
}
