package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Purger is implemented by DeletionService.
type Purger interface {
	PurgeExpired(ctx context.Context) (int, error)
}

// Sweeper periodically purges coupons whose undo window elapsed.
type Sweeper struct {
	purger   Purger
	interval time.Duration
}

// NewSweeper creates a Sweeper. A non-positive interval defaults to one second.
func NewSweeper(purger Purger, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Second
	}
	return &Sweeper{purger: purger, interval: interval}
}

// Run purges on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", s.interval).Msg("soft delete sweeper started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("soft delete sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	n, err := s.purger.PurgeExpired(ctx)
	if err != nil {
		log.Error().Err(err).Int("purged", n).Msg("failed to purge expired coupon deletions")
		return
	}
	if n > 0 {
		log.Info().Int("purged", n).Msg("purged expired coupon deletions")
	}
}
