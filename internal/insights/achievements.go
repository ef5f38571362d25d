package insights

import "time"

// Category groups achievements for display.
type Category string

const (
	CategoryCreator  Category = "creator"
	CategoryRedeemer Category = "redeemer"
	CategoryStreak   Category = "streak"
	CategorySpecial  Category = "special"
)

// Achievement is a permanent badge unlocked by the partner's activity.
type Achievement struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
}

// Stats is the input for achievement checks.
type Stats struct {
	Created     int
	Surprise    int
	WithImage   int
	Redeemed    int
	Reflections int
	Streak      int
	// RedeemedAt holds the partner's own redemption times.
	RedeemedAt []time.Time
}

type rule struct {
	Achievement
	met func(s Stats, now time.Time, loc *time.Location) bool
}

func atLeast(field func(Stats) int, n int) func(Stats, time.Time, *time.Location) bool {
	return func(s Stats, _ time.Time, _ *time.Location) bool { return field(s) >= n }
}

func anyRedemption(pred func(time.Time) bool) func(Stats, time.Time, *time.Location) bool {
	return func(s Stats, _ time.Time, loc *time.Location) bool {
		for _, t := range s.RedeemedAt {
			if pred(t.In(loc)) {
				return true
			}
		}
		return false
	}
}

func countRedemptions(n int, pred func(time.Time) bool) func(Stats, time.Time, *time.Location) bool {
	return func(s Stats, _ time.Time, loc *time.Location) bool {
		c := 0
		for _, t := range s.RedeemedAt {
			if pred(t.In(loc)) {
				c++
			}
		}
		return c >= n
	}
}

// everyRecentMonth is met when each of the last n calendar months, current one
// included, has at least one redemption.
func everyRecentMonth(n int) func(Stats, time.Time, *time.Location) bool {
	return func(s Stats, now time.Time, loc *time.Location) bool {
		seen := make(map[[2]int]bool)
		for _, t := range s.RedeemedAt {
			lt := t.In(loc)
			seen[[2]int{lt.Year(), int(lt.Month())}] = true
		}
		local := now.In(loc)
		first := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
		for i := 0; i < n; i++ {
			m := first.AddDate(0, -i, 0)
			if !seen[[2]int{m.Year(), int(m.Month())}] {
				return false
			}
		}
		return true
	}
}

var (
	statCreated     = func(s Stats) int { return s.Created }
	statSurprise    = func(s Stats) int { return s.Surprise }
	statWithImage   = func(s Stats) int { return s.WithImage }
	statRedeemed    = func(s Stats) int { return s.Redeemed }
	statReflections = func(s Stats) int { return s.Reflections }
	statStreak      = func(s Stats) int { return s.Streak }
)

var catalogue = []rule{
	{Achievement{"first_coupon", "First Step", "Created your first coupon", CategoryCreator}, atLeast(statCreated, 1)},
	{Achievement{"creative_mind", "Creative Mind", "Created 10 coupons", CategoryCreator}, atLeast(statCreated, 10)},
	{Achievement{"coupon_master", "Coupon Master", "Created 50 coupons", CategoryCreator}, atLeast(statCreated, 50)},
	{Achievement{"legendary_creator", "Legendary Creator", "Created 100 coupons", CategoryCreator}, atLeast(statCreated, 100)},
	{Achievement{"surprise_specialist", "Surprise Specialist", "Created 10 surprise coupons", CategoryCreator}, atLeast(statSurprise, 10)},
	{Achievement{"photographer", "Photographer", "Created 10 image coupons", CategoryCreator}, atLeast(statWithImage, 10)},

	{Achievement{"first_redemption", "First Taste", "Redeemed your first coupon", CategoryRedeemer}, atLeast(statRedeemed, 1)},
	{Achievement{"memory_maker", "Memory Maker", "Redeemed 10 coupons", CategoryRedeemer}, atLeast(statRedeemed, 10)},
	{Achievement{"moment_master", "Moment Master", "Redeemed 50 coupons", CategoryRedeemer}, atLeast(statRedeemed, 50)},
	{Achievement{"legendary_redeemer", "Legendary Redeemer", "Redeemed 100 coupons", CategoryRedeemer}, atLeast(statRedeemed, 100)},
	{Achievement{"reflective_soul", "Reflective Soul", "Added reflection notes to 10 redemptions", CategoryRedeemer}, atLeast(statReflections, 10)},

	{Achievement{"consistent", "Consistent", "Maintained a 3-day streak", CategoryStreak}, atLeast(statStreak, 3)},
	{Achievement{"dedicated", "Dedicated", "Maintained a 7-day streak", CategoryStreak}, atLeast(statStreak, 7)},
	{Achievement{"unstoppable", "Unstoppable", "Maintained a 30-day streak", CategoryStreak}, atLeast(statStreak, 30)},
	{Achievement{"legendary_streak", "Legendary Streak", "Maintained a 100-day streak", CategoryStreak}, atLeast(statStreak, 100)},

	{Achievement{"early_bird", "Early Bird", "Redeemed a coupon before 8 AM", CategorySpecial},
		anyRedemption(func(t time.Time) bool { return t.Hour() < 8 })},
	{Achievement{"night_owl", "Night Owl", "Redeemed a coupon after 10 PM", CategorySpecial},
		anyRedemption(func(t time.Time) bool { return t.Hour() >= 22 })},
	{Achievement{"weekend_warrior", "Weekend Warrior", "Redeemed coupons on 10 weekends", CategorySpecial},
		countRedemptions(10, func(t time.Time) bool { return t.Weekday() == time.Saturday || t.Weekday() == time.Sunday })},
	{Achievement{"midweek_magic", "Midweek Magic", "Redeemed coupons on 10 Wednesdays", CategorySpecial},
		countRedemptions(10, func(t time.Time) bool { return t.Weekday() == time.Wednesday })},
	{Achievement{"monthly_consistent", "Monthly Consistent", "Redeemed at least one coupon every month for 3 months", CategorySpecial},
		everyRecentMonth(3)},
}

// Catalogue lists every achievement in display order.
func Catalogue() []Achievement {
	out := make([]Achievement, len(catalogue))
	for i, r := range catalogue {
		out[i] = r.Achievement
	}
	return out
}

// Unlocked returns the achievements whose condition s meets, evaluated in loc.
func Unlocked(s Stats, now time.Time, loc *time.Location) []Achievement {
	if loc == nil {
		loc = time.UTC
	}
	var out []Achievement
	for _, r := range catalogue {
		if r.met(s, now, loc) {
			out = append(out, r.Achievement)
		}
	}
	return out
}
