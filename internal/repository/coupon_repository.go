package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/love-coupon-system/internal/model"
	"github.com/fairyhunter13/love-coupon-system/internal/service"
	"github.com/fairyhunter13/love-coupon-system/pkg/database"
)

// PostgreSQL error codes the repositories translate into domain errors.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// PoolInterface defines the database operations needed by repositories.
// This allows for easier testing with mocks.
type PoolInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// CouponRepository provides data access for coupons using pgx.
type CouponRepository struct {
	pool PoolInterface
}

// NewCouponRepository creates a new CouponRepository with the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// NewCouponRepositoryWithPool creates a new CouponRepository with a custom pool interface.
// This is primarily used for testing.
func NewCouponRepositoryWithPool(pool PoolInterface) *CouponRepository {
	return &CouponRepository{pool: pool}
}

const couponColumns = `id, created_by, for_partner, title, description, image_url, is_surprise, created_at`

func scanCoupon(row pgx.Row, c *model.Coupon) error {
	return row.Scan(
		&c.ID,
		&c.CreatedBy,
		&c.ForPartner,
		&c.Title,
		&c.Description,
		&c.ImageURL,
		&c.IsSurprise,
		&c.CreatedAt,
	)
}

func collectCoupons(rows pgx.Rows) ([]model.Coupon, error) {
	defer rows.Close()

	coupons := []model.Coupon{}
	for rows.Next() {
		var c model.Coupon
		if err := scanCoupon(rows, &c); err != nil {
			return nil, fmt.Errorf("scan coupon: %w", err)
		}
		coupons = append(coupons, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate coupon rows: %w", err)
	}
	return coupons, nil
}

// Insert inserts a new coupon and fills in its created_at.
// Returns service.ErrProfileNotFound if the creator or recipient has no profile.
func (r *CouponRepository) Insert(ctx context.Context, coupon *model.Coupon) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO coupons (id, created_by, for_partner, title, description, image_url, is_surprise)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at`,
		coupon.ID, coupon.CreatedBy, coupon.ForPartner, coupon.Title,
		coupon.Description, coupon.ImageURL, coupon.IsSurprise,
	).Scan(&coupon.CreatedAt)
	if err != nil {
		if pgErrorCode(err) == pgForeignKeyViolation {
			return service.ErrProfileNotFound
		}
		return fmt.Errorf("insert coupon: %w", err)
	}
	return nil
}

// GetByID retrieves a coupon by its id.
// Returns nil, nil if the coupon is not found (service layer handles this).
func (r *CouponRepository) GetByID(ctx context.Context, id string) (*model.Coupon, error) {
	var coupon model.Coupon
	err := scanCoupon(r.pool.QueryRow(ctx, `SELECT `+couponColumns+` FROM coupons WHERE id = $1`, id), &coupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get coupon %s: %w", id, err)
	}
	return &coupon, nil
}

// GetForUpdate retrieves a coupon with a row lock (SELECT FOR UPDATE).
// The lock is held until the transaction completes.
// Returns service.ErrCouponNotFound if the coupon doesn't exist.
func (r *CouponRepository) GetForUpdate(ctx context.Context, tx database.TxQuerier, id string) (*model.Coupon, error) {
	var coupon model.Coupon
	err := scanCoupon(tx.QueryRow(ctx, `SELECT `+couponColumns+` FROM coupons WHERE id = $1 FOR UPDATE`, id), &coupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrCouponNotFound
		}
		return nil, fmt.Errorf("get coupon for update %s: %w", id, err)
	}
	return &coupon, nil
}

// ListCreatedBy returns every coupon the user created, newest first.
func (r *CouponRepository) ListCreatedBy(ctx context.Context, createdBy string) ([]model.Coupon, error) {
	return r.ListCreatedByTx(ctx, r.pool, createdBy)
}

// ListCreatedByTx is ListCreatedBy on the given querier, typically an open transaction.
func (r *CouponRepository) ListCreatedByTx(ctx context.Context, tx database.TxQuerier, createdBy string) ([]model.Coupon, error) {
	rows, err := tx.Query(ctx,
		`SELECT `+couponColumns+` FROM coupons WHERE created_by = $1 ORDER BY created_at DESC`, createdBy)
	if err != nil {
		return nil, fmt.Errorf("list coupons created by %s: %w", createdBy, err)
	}
	return collectCoupons(rows)
}

// ListForPartner returns every coupon addressed to the user, newest first.
func (r *CouponRepository) ListForPartner(ctx context.Context, partnerID string) ([]model.Coupon, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+couponColumns+` FROM coupons WHERE for_partner = $1 ORDER BY created_at DESC`, partnerID)
	if err != nil {
		return nil, fmt.Errorf("list coupons for %s: %w", partnerID, err)
	}
	return collectCoupons(rows)
}

// Delete removes an unredeemed coupon owned by createdBy.
// Returns false when nothing matched: the coupon is gone, owned by someone else or already redeemed.
func (r *CouponRepository) Delete(ctx context.Context, id, createdBy string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM coupons
		 WHERE id = $1 AND created_by = $2
		   AND NOT EXISTS (SELECT 1 FROM redemptions WHERE coupon_id = $1)`,
		id, createdBy)
	if err != nil {
		if pgErrorCode(err) == pgForeignKeyViolation {
			return false, service.ErrAlreadyRedeemed
		}
		return false, fmt.Errorf("delete coupon %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}
