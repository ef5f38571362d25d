package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/love-coupon-system/internal/model"
	"github.com/fairyhunter13/love-coupon-system/internal/service"
)

// MoodRepository provides data access for daily mood checks.
type MoodRepository struct {
	pool PoolInterface
}

// NewMoodRepository creates a new MoodRepository with the given pool.
func NewMoodRepository(pool *pgxpool.Pool) *MoodRepository {
	return &MoodRepository{pool: pool}
}

// NewMoodRepositoryWithPool creates a new MoodRepository with a custom pool interface.
func NewMoodRepositoryWithPool(pool PoolInterface) *MoodRepository {
	return &MoodRepository{pool: pool}
}

// dateOnly strips the clock so pgx encodes the calendar date unchanged.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Upsert records the mood for m.CheckDate, replacing an earlier check on the same day.
// The stored id and created_at are written back into m.
func (r *MoodRepository) Upsert(ctx context.Context, m *model.MoodCheck) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO mood_checks (id, user_id, mood, check_date)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, check_date) DO UPDATE SET mood = EXCLUDED.mood
		 RETURNING id, created_at`,
		m.ID, m.UserID, m.Mood, dateOnly(m.CheckDate),
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		if pgErrorCode(err) == pgForeignKeyViolation {
			return service.ErrProfileNotFound
		}
		return fmt.Errorf("upsert mood check: %w", err)
	}
	return nil
}

// GetForDate returns the user's mood check for the date, or nil, nil when none was recorded.
func (r *MoodRepository) GetForDate(ctx context.Context, userID string, date time.Time) (*model.MoodCheck, error) {
	var m model.MoodCheck
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, mood, check_date, created_at FROM mood_checks WHERE user_id = $1 AND check_date = $2`,
		userID, dateOnly(date),
	).Scan(&m.ID, &m.UserID, &m.Mood, &m.CheckDate, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get mood check for %s: %w", userID, err)
	}
	return &m, nil
}
