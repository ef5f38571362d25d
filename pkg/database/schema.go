package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is the subset of TxQuerier needed to apply DDL.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Schema is the idempotent DDL for the coupon store.
// UNIQUE(coupon_id) on redemptions is what makes a coupon redeemable at most once
// even when two requests race past the eligibility check.
const Schema = `
CREATE TABLE IF NOT EXISTS profiles (
	id UUID PRIMARY KEY,
	email VARCHAR(255) NOT NULL,
	partner_id UUID REFERENCES profiles(id) ON DELETE SET NULL,
	relationship_start_date DATE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS coupons (
	id UUID PRIMARY KEY,
	created_by UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	for_partner UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	title VARCHAR(255) NOT NULL,
	description TEXT,
	image_url TEXT,
	is_surprise BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS redemptions (
	id UUID PRIMARY KEY,
	coupon_id UUID NOT NULL REFERENCES coupons(id) ON DELETE RESTRICT,
	redeemed_by UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	reflection_note TEXT,
	redeemed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (coupon_id)
);

CREATE TABLE IF NOT EXISTS mood_checks (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	mood VARCHAR(32) NOT NULL,
	check_date DATE NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (user_id, check_date)
);

CREATE TABLE IF NOT EXISTS image_access_logs (
	id BIGSERIAL PRIMARY KEY,
	coupon_id UUID NOT NULL REFERENCES coupons(id) ON DELETE CASCADE,
	accessed_by UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	access_type VARCHAR(32) NOT NULL CHECK (access_type IN ('view', 'expired_attempt')),
	user_agent TEXT,
	accessed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_coupons_created_by ON coupons(created_by);
CREATE INDEX IF NOT EXISTS idx_coupons_for_partner ON coupons(for_partner);
CREATE INDEX IF NOT EXISTS idx_redemptions_redeemed_by_at ON redemptions(redeemed_by, redeemed_at);
CREATE INDEX IF NOT EXISTS idx_image_access_logs_coupon ON image_access_logs(coupon_id);
`

// EnsureSchema applies Schema. Safe to run on every start.
func EnsureSchema(ctx context.Context, db Execer) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
