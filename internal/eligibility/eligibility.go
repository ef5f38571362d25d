// Package eligibility decides whether a partner may redeem a coupon and whether
// a redeemed coupon's image is still viewable.
//
// Every function here is a pure predicate over an already-fetched snapshot and a
// caller-supplied "now". Nothing in this package performs I/O or holds state, so
// evaluations are safe to repeat and to run concurrently.
package eligibility

import (
	"errors"
	"fmt"
	"time"
)

// Reason identifies why a redemption was denied.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonInsufficientQuota Reason = "INSUFFICIENT_QUOTA"
	ReasonDailyLimitReached Reason = "DAILY_LIMIT_REACHED"
)

var (
	// ErrInsufficientQuota matches any *QuotaError.
	ErrInsufficientQuota = errors.New("insufficient creation quota")

	// ErrDailyLimitReached is returned when the actor already redeemed a coupon in the current window.
	ErrDailyLimitReached = errors.New("daily redemption limit reached")
)

// QuotaError reports how many more coupons the actor has to create before redeeming.
type QuotaError struct {
	Deficit int
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%s: create %d more coupon(s)", ErrInsufficientQuota, e.Deficit)
}

// Is lets errors.Is(err, ErrInsufficientQuota) match.
func (e *QuotaError) Is(target error) bool {
	return target == ErrInsufficientQuota
}

// LimitError is the daily limit denial with the time the limiter reopens.
type LimitError struct {
	RetryAt time.Time
}

func (e *LimitError) Error() string {
	return ErrDailyLimitReached.Error()
}

// Is lets errors.Is(err, ErrDailyLimitReached) match.
func (e *LimitError) Is(target error) bool {
	return target == ErrDailyLimitReached
}

// Verdict is the allow/deny result of a redemption check.
type Verdict struct {
	Allowed bool
	Reason  Reason
	// Deficit is set for ReasonInsufficientQuota.
	Deficit int
	// RetryAt is set for ReasonDailyLimitReached: the earliest instant the limiter reopens.
	RetryAt time.Time
}

// Allow returns an allowing verdict.
func Allow() Verdict {
	return Verdict{Allowed: true}
}

// Err converts a denial into the matching error, or nil when allowed.
func (v Verdict) Err() error {
	if v.Allowed {
		return nil
	}
	switch v.Reason {
	case ReasonInsufficientQuota:
		return &QuotaError{Deficit: v.Deficit}
	case ReasonDailyLimitReached:
		return &LimitError{RetryAt: v.RetryAt}
	default:
		return fmt.Errorf("redemption denied: %s", v.Reason)
	}
}

// Clock supplies the current time. Injected so tests can pin "now".
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)
