package eligibility

import (
	"time"

	"github.com/fairyhunter13/love-coupon-system/internal/model"
)

// DailyLimiter allows one redemption per actor per window.
type DailyLimiter struct {
	Policy WindowPolicy
}

func (l DailyLimiter) policy() WindowPolicy {
	if l.Policy == nil {
		return CalendarDay{}
	}
	return l.Policy
}

// Evaluate denies when any of the actor's redemptions falls in the window containing now.
// Redemptions made by other actors are ignored.
func (l DailyLimiter) Evaluate(actorID string, own []model.Redemption, now time.Time) Verdict {
	p := l.policy()
	w := p.Window(now)

	var blocking *model.Redemption
	for i := range own {
		r := &own[i]
		if r.RedeemedBy != actorID || !w.Contains(r.RedeemedAt) {
			continue
		}
		if blocking == nil || r.RedeemedAt.After(blocking.RedeemedAt) {
			blocking = r
		}
	}
	if blocking == nil {
		return Allow()
	}
	return Verdict{
		Reason:  ReasonDailyLimitReached,
		RetryAt: p.ReopensAt(blocking.RedeemedAt, now),
	}
}
