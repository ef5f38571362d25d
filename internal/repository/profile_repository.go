package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/love-coupon-system/internal/model"
	"github.com/fairyhunter13/love-coupon-system/internal/service"
	"github.com/fairyhunter13/love-coupon-system/pkg/database"
)

// ProfileRepository provides read access to profiles. Profiles are written by the auth system.
type ProfileRepository struct {
	pool PoolInterface
}

// NewProfileRepository creates a new ProfileRepository with the given pool.
func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

// NewProfileRepositoryWithPool creates a new ProfileRepository with a custom pool interface.
func NewProfileRepositoryWithPool(pool PoolInterface) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

const profileColumns = `id, email, partner_id, relationship_start_date, created_at`

func scanProfile(row pgx.Row) (*model.Profile, error) {
	var p model.Profile
	if err := row.Scan(&p.ID, &p.Email, &p.PartnerID, &p.RelationshipStartDate, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByID retrieves a profile. Returns service.ErrProfileNotFound when absent.
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	p, err := scanProfile(r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrProfileNotFound
		}
		return nil, fmt.Errorf("get profile %s: %w", id, err)
	}
	return p, nil
}

// LockForUpdate reads a profile with a row lock (SELECT FOR UPDATE).
// Redeems by the same user serialize on this lock, so the daily limit
// check and the insert that follows it cannot interleave.
func (r *ProfileRepository) LockForUpdate(ctx context.Context, tx database.TxQuerier, id string) (*model.Profile, error) {
	p, err := scanProfile(tx.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrProfileNotFound
		}
		return nil, fmt.Errorf("lock profile %s: %w", id, err)
	}
	return p, nil
}
