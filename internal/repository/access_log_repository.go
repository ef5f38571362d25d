package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AccessLogRepository records image views.
type AccessLogRepository struct {
	pool PoolInterface
}

// NewAccessLogRepository creates a new AccessLogRepository with the given pool.
func NewAccessLogRepository(pool *pgxpool.Pool) *AccessLogRepository {
	return &AccessLogRepository{pool: pool}
}

// NewAccessLogRepositoryWithPool creates a new AccessLogRepository with a custom pool interface.
func NewAccessLogRepositoryWithPool(pool PoolInterface) *AccessLogRepository {
	return &AccessLogRepository{pool: pool}
}

// Insert appends an access log entry. An empty userAgent is stored as NULL.
func (r *AccessLogRepository) Insert(ctx context.Context, couponID, accessedBy, accessType, userAgent string) error {
	var ua *string
	if userAgent != "" {
		ua = &userAgent
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO image_access_logs (coupon_id, accessed_by, access_type, user_agent) VALUES ($1, $2, $3, $4)`,
		couponID, accessedBy, accessType, ua)
	if err != nil {
		return fmt.Errorf("insert image access log: %w", err)
	}
	return nil
}
