package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/love-coupon-system/internal/model"
	"github.com/fairyhunter13/love-coupon-system/internal/service"
	"github.com/fairyhunter13/love-coupon-system/pkg/database"
)

// RedemptionRepository provides data access for redemptions using pgx.
type RedemptionRepository struct {
	pool PoolInterface
}

// NewRedemptionRepository creates a new RedemptionRepository with the given pool.
func NewRedemptionRepository(pool *pgxpool.Pool) *RedemptionRepository {
	return &RedemptionRepository{pool: pool}
}

// NewRedemptionRepositoryWithPool creates a new RedemptionRepository with a custom pool interface.
// This is primarily used for testing.
func NewRedemptionRepositoryWithPool(pool PoolInterface) *RedemptionRepository {
	return &RedemptionRepository{pool: pool}
}

const redemptionSelect = `SELECT r.id, r.coupon_id, r.redeemed_by, r.reflection_note, r.redeemed_at,
	c.id, c.created_by, c.for_partner, c.title, c.description, c.image_url, c.is_surprise, c.created_at
	FROM redemptions r
	JOIN coupons c ON c.id = r.coupon_id`

// buildRedemptionQuery turns a filter into a parameterized query, oldest first.
func buildRedemptionQuery(f model.RedemptionFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.By != "" {
		add("r.redeemed_by = $%d", f.By)
	}
	if len(f.CouponIDs) > 0 {
		add("r.coupon_id = ANY($%d::uuid[])", f.CouponIDs)
	}
	if !f.From.IsZero() {
		add("r.redeemed_at >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("r.redeemed_at < $%d", f.To)
	}

	query := redemptionSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	return query + " ORDER BY r.redeemed_at, r.id", args
}

// List returns the redemptions matching the filter, each with its coupon attached.
func (r *RedemptionRepository) List(ctx context.Context, filter model.RedemptionFilter) ([]model.Redemption, error) {
	return r.ListTx(ctx, r.pool, filter)
}

// ListTx is List on the given querier, typically an open transaction.
func (r *RedemptionRepository) ListTx(ctx context.Context, tx database.TxQuerier, filter model.RedemptionFilter) ([]model.Redemption, error) {
	query, args := buildRedemptionQuery(filter)

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list redemptions: %w", err)
	}
	defer rows.Close()

	redemptions := []model.Redemption{}
	for rows.Next() {
		var (
			red model.Redemption
			c   model.Coupon
		)
		if err := rows.Scan(
			&red.ID, &red.CouponID, &red.RedeemedBy, &red.ReflectionNote, &red.RedeemedAt,
			&c.ID, &c.CreatedBy, &c.ForPartner, &c.Title, &c.Description, &c.ImageURL, &c.IsSurprise, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan redemption: %w", err)
		}
		red.Coupon = &c
		redemptions = append(redemptions, red)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate redemption rows: %w", err)
	}
	return redemptions, nil
}

// RedeemedCouponIDs returns which of the given coupons have been redeemed by anyone.
func (r *RedemptionRepository) RedeemedCouponIDs(ctx context.Context, couponIDs []string) ([]string, error) {
	if len(couponIDs) == 0 {
		return []string{}, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT coupon_id FROM redemptions WHERE coupon_id = ANY($1::uuid[])`, couponIDs)
	if err != nil {
		return nil, fmt.Errorf("get redeemed coupon ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan redeemed coupon id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate redeemed coupon ids: %w", err)
	}
	return ids, nil
}

// GetByCoupon returns the redemption of a coupon, or nil, nil when it is unredeemed.
func (r *RedemptionRepository) GetByCoupon(ctx context.Context, couponID string) (*model.Redemption, error) {
	var red model.Redemption
	err := r.pool.QueryRow(ctx,
		`SELECT id, coupon_id, redeemed_by, reflection_note, redeemed_at FROM redemptions WHERE coupon_id = $1`,
		couponID,
	).Scan(&red.ID, &red.CouponID, &red.RedeemedBy, &red.ReflectionNote, &red.RedeemedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get redemption for coupon %s: %w", couponID, err)
	}
	return &red, nil
}

// LatestBy returns the user's most recent redemption, or nil, nil when there is none.
func (r *RedemptionRepository) LatestBy(ctx context.Context, userID string) (*model.Redemption, error) {
	var red model.Redemption
	err := r.pool.QueryRow(ctx,
		`SELECT id, coupon_id, redeemed_by, reflection_note, redeemed_at
		 FROM redemptions WHERE redeemed_by = $1
		 ORDER BY redeemed_at DESC LIMIT 1`,
		userID,
	).Scan(&red.ID, &red.CouponID, &red.RedeemedBy, &red.ReflectionNote, &red.RedeemedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get latest redemption by %s: %w", userID, err)
	}
	return &red, nil
}

// Insert records a redemption within a transaction.
// Returns service.ErrAlreadyRedeemed if the coupon already has a redemption:
// the UNIQUE(coupon_id) constraint is the final word when two redeems race.
func (r *RedemptionRepository) Insert(ctx context.Context, tx database.TxQuerier, red *model.Redemption) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO redemptions (id, coupon_id, redeemed_by, reflection_note, redeemed_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		red.ID, red.CouponID, red.RedeemedBy, red.ReflectionNote, red.RedeemedAt)
	if err != nil {
		switch pgErrorCode(err) {
		case pgUniqueViolation:
			return service.ErrAlreadyRedeemed
		case pgForeignKeyViolation:
			return service.ErrCouponNotFound
		}
		return fmt.Errorf("insert redemption: %w", err)
	}
	return nil
}
