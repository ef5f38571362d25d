package insights

import "time"

const (
	// ReminderThresholdDays is the gap after which a redemption reminder is shown.
	ReminderThresholdDays = 7
	// DismissalRetention is how long a reminder dismissal is remembered.
	DismissalRetention = 30 * 24 * time.Hour
)

// Reminder nudges a partner who has not redeemed anything for a while.
type Reminder struct {
	// DaysSince is nil when the partner never redeemed.
	DaysSince *int `json:"days_since_last_redemption"`
	Show      bool `json:"show"`
	// LastDate is the UTC date of the last redemption, the key a dismissal is stored under.
	LastDate string `json:"last_redemption_date,omitempty"`
}

// Dismissals maps a last-redemption date to when its reminder was dismissed.
type Dismissals map[string]time.Time

// Prune drops dismissals older than DismissalRetention and reports whether anything changed.
func (d Dismissals) Prune(now time.Time) bool {
	changed := false
	for date, at := range d {
		if now.Sub(at) >= DismissalRetention {
			delete(d, date)
			changed = true
		}
	}
	return changed
}

// ReminderDate is the dismissal key for a redemption time.
func ReminderDate(last time.Time) string {
	return last.UTC().Format(time.DateOnly)
}

// EvaluateReminder computes the reminder. Days are whole 24 hour periods since last.
func EvaluateReminder(last *time.Time, now time.Time, dismissed Dismissals) Reminder {
	if last == nil {
		return Reminder{}
	}
	days := int(now.Sub(*last) / (24 * time.Hour))
	if days < 0 {
		days = 0
	}
	date := ReminderDate(*last)
	r := Reminder{DaysSince: &days, LastDate: date}
	if days >= ReminderThresholdDays {
		_, isDismissed := dismissed[date]
		r.Show = !isDismissed
	}
	return r
}
