package insights

import (
	"fmt"
	"time"
)

// AnniversaryKind says what an anniversary counts from.
type AnniversaryKind string

const (
	// AnniversaryRelationship counts whole years from the profile's relationship start date.
	AnniversaryRelationship AnniversaryKind = "relationship"
	// AnniversaryApp counts whole years from the partner's first coupon.
	AnniversaryApp AnniversaryKind = "app"
	// AnniversaryQuarterly marks every third month from the first coupon, during the first year.
	AnniversaryQuarterly AnniversaryKind = "monthly"
)

// Anniversary is a date worth celebrating today.
type Anniversary struct {
	Kind    AnniversaryKind `json:"type"`
	Since   time.Time       `json:"date"`
	Years   int             `json:"years,omitempty"`
	Months  int             `json:"months,omitempty"`
	Message string          `json:"message"`
}

func monthsBetween(start, end civilDate) int {
	return (end.year-start.year)*12 + int(end.month-start.month)
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// AnniversaryOn returns the anniversary falling on now's local date, or nil.
// relationshipStart is a calendar date and is read in UTC; firstCoupon is an instant
// and is read in loc. The relationship anniversary wins over the app ones.
func AnniversaryOn(relationshipStart, firstCoupon *time.Time, now time.Time, loc *time.Location) *Anniversary {
	if loc == nil {
		loc = time.UTC
	}
	today := dateOf(now, loc)

	if relationshipStart != nil {
		start := dateOf(*relationshipStart, time.UTC)
		if years := today.year - start.year; years > 0 && today.month == start.month && today.day == start.day {
			return &Anniversary{
				Kind:    AnniversaryRelationship,
				Since:   *relationshipStart,
				Years:   years,
				Message: fmt.Sprintf("Happy anniversary! %s together!", plural(years, "year")),
			}
		}
	}

	if firstCoupon == nil {
		return nil
	}
	first := dateOf(*firstCoupon, loc)
	if today.day != first.day {
		return nil
	}
	months := monthsBetween(first, today)
	years := months / 12
	switch {
	case years > 0 && today.month == first.month:
		return &Anniversary{
			Kind:    AnniversaryApp,
			Since:   *firstCoupon,
			Years:   years,
			Message: fmt.Sprintf("%s of creating beautiful moments together!", plural(years, "year")),
		}
	case years == 0 && months > 0 && months%3 == 0:
		return &Anniversary{
			Kind:    AnniversaryQuarterly,
			Since:   *firstCoupon,
			Months:  months,
			Message: fmt.Sprintf("%d months of love coupons! Keep the magic alive!", months),
		}
	}
	return nil
}
