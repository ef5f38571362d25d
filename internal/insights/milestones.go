package insights

import "fmt"

// MilestoneKind groups milestones by the counter they track.
type MilestoneKind string

const (
	MilestoneCreated  MilestoneKind = "coupon_created"
	MilestoneRedeemed MilestoneKind = "coupon_redeemed"
	MilestoneStreak   MilestoneKind = "streak"
)

var (
	countThresholds  = []int{1, 5, 10, 25, 50, 100, 200, 365, 500, 1000}
	streakThresholds = []int{3, 7, 14, 30, 60, 100, 365}
)

var milestoneMessages = map[MilestoneKind]map[int]string{
	MilestoneCreated: {
		1:    "Your first coupon! The journey of a thousand moments begins with one.",
		5:    "5 coupons created! You're building something beautiful!",
		10:   "Double digits! 10 coupons of love!",
		25:   "25 coupons! You're a romance architect!",
		50:   "Half a hundred! 50 moments of joy created!",
		100:  "CENTURY! 100 coupons! You're legendary!",
		200:  "200 coupons! Your love language is strong!",
		365:  "A FULL YEAR! 365 coupons, one for every day!",
		500:  "FIVE HUNDRED! You're a coupon grandmaster!",
		1000: "ONE THOUSAND! Ultimate coupon royalty!",
	},
	MilestoneRedeemed: {
		1:    "First redemption! The magic begins!",
		5:    "5 moments lived! Creating memories together!",
		10:   "10 redemptions! Making moments count!",
		25:   "25 shared experiences! The love is real!",
		50:   "50 beautiful moments! Half a hundred memories!",
		100:  "CENTURY OF LOVE! 100 moments shared!",
		200:  "200 redemptions! You two are unstoppable!",
		365:  "A YEAR OF MOMENTS! 365 days of love!",
		500:  "500 MOMENTS! Legendary love story!",
		1000: "1000 MEMORIES! Absolute relationship goals!",
	},
	MilestoneStreak: {
		3:   "3-day streak! The fire starts!",
		7:   "Week streak! 7 days strong!",
		14:  "Two weeks! Consistency is key!",
		30:  "MONTH STREAK! 30 days of daily love!",
		60:  "TWO MONTHS! 60 days and counting!",
		100: "HUNDRED DAY STREAK! Unstoppable!",
		365: "YEAR STREAK! 365 consecutive days!",
	},
}

var milestonePrefix = map[MilestoneKind]string{
	MilestoneCreated:  "created",
	MilestoneRedeemed: "redeemed",
	MilestoneStreak:   "streak",
}

// Milestone is a celebration reached when a counter lands exactly on a threshold.
type Milestone struct {
	ID      string        `json:"id"`
	Kind    MilestoneKind `json:"kind"`
	Count   int           `json:"count"`
	Message string        `json:"message"`
}

func milestoneAt(kind MilestoneKind, thresholds []int, value int) (Milestone, bool) {
	for _, th := range thresholds {
		if th == value {
			return Milestone{
				ID:      fmt.Sprintf("%s_%d", milestonePrefix[kind], th),
				Kind:    kind,
				Count:   th,
				Message: milestoneMessages[kind][th],
			}, true
		}
	}
	return Milestone{}, false
}

// Milestones returns the milestones whose threshold equals the current counters.
// Callers dedupe against already celebrated ids.
func Milestones(created, redeemed, streak int) []Milestone {
	var out []Milestone
	if m, ok := milestoneAt(MilestoneCreated, countThresholds, created); ok {
		out = append(out, m)
	}
	if m, ok := milestoneAt(MilestoneRedeemed, countThresholds, redeemed); ok {
		out = append(out, m)
	}
	if m, ok := milestoneAt(MilestoneStreak, streakThresholds, streak); ok {
		out = append(out, m)
	}
	return out
}
