package eligibility

import "time"

// DefaultImageVisibility is how long a redeemed coupon's image stays viewable.
const DefaultImageVisibility = 12 * time.Hour

// Visibility is the result of an image window check.
type Visibility struct {
	Visible bool
	// Elapsed is now minus the redemption time. Negative when redeemed_at is in the future.
	Elapsed   time.Duration
	remaining time.Duration
}

// Remaining returns the time left before the image hides. ok is false once it is hidden.
func (v Visibility) Remaining() (time.Duration, bool) {
	if !v.Visible {
		return 0, false
	}
	return v.remaining, true
}

// HoursElapsed returns the elapsed time in fractional hours.
func (v Visibility) HoursElapsed() float64 {
	return v.Elapsed.Hours()
}

// ImageWindow hides a coupon image once Duration has passed since redemption.
type ImageWindow struct {
	Duration time.Duration
}

// Evaluate is visible while now - redeemedAt <= Duration, boundary included.
// Redemption times ahead of now count as visible, with more than Duration remaining.
func (w ImageWindow) Evaluate(redeemedAt, now time.Time) Visibility {
	d := w.Duration
	if d <= 0 {
		d = DefaultImageVisibility
	}
	elapsed := now.Sub(redeemedAt)
	if elapsed > d {
		return Visibility{Visible: false, Elapsed: elapsed}
	}
	return Visibility{Visible: true, Elapsed: elapsed, remaining: d - elapsed}
}
