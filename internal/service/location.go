package service

import (
	"context"
	"time"
)

type locationKey struct{}

// WithLocation attaches the caller's time zone. Mood dates and insights use it
// instead of the configured default. RedemptionService never does: the daily
// limit is enforced in the configured zone only.
func WithLocation(ctx context.Context, loc *time.Location) context.Context {
	if loc == nil {
		return ctx
	}
	return context.WithValue(ctx, locationKey{}, loc)
}

// LocationFrom returns the zone attached with WithLocation, or fallback.
func LocationFrom(ctx context.Context, fallback *time.Location) *time.Location {
	if loc, ok := ctx.Value(locationKey{}).(*time.Location); ok {
		return loc
	}
	return fallback
}
