// Package insights derives activity statistics, milestones and achievements from
// a partner's coupon and redemption history. All functions are pure.
package insights

import "time"

type civilDate struct {
	year  int
	month time.Month
	day   int
}

func dateOf(t time.Time, loc *time.Location) civilDate {
	y, m, d := t.In(loc).Date()
	return civilDate{y, m, d}
}

func (d civilDate) prev(loc *time.Location) civilDate {
	y, m, dd := time.Date(d.year, d.month, d.day-1, 12, 0, 0, 0, loc).Date()
	return civilDate{y, m, dd}
}

// Streak counts consecutive local calendar days with at least one redemption,
// ending today. When nothing was redeemed today yet the count ends yesterday,
// so an ongoing streak is not reported as broken before the day is over.
func Streak(redeemedAt []time.Time, now time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	days := make(map[civilDate]struct{}, len(redeemedAt))
	for _, t := range redeemedAt {
		days[dateOf(t, loc)] = struct{}{}
	}

	cursor := dateOf(now, loc)
	if _, ok := days[cursor]; !ok {
		cursor = cursor.prev(loc)
	}

	streak := 0
	for {
		if _, ok := days[cursor]; !ok {
			return streak
		}
		streak++
		cursor = cursor.prev(loc)
	}
}
