package profile

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Store reads profiles and their distribution rules.
type Store interface {
	RadiusProfile(ctx context.Context, id uuid.UUID) (*RadiusProfile, error)
	BillingProfile(ctx context.Context, id uuid.UUID) (*BillingProfile, error)
	// RadiusProfileWallets lists the fixed deposits linked to a RADIUS
	// profile.
	RadiusProfileWallets(ctx context.Context, radiusProfileID uuid.UUID) ([]RadiusProfileWallet, error)
	// BillingProfileWallets lists one direction's rules ordered by
	// display_order. The ordering is load-bearing for the ledger audit trail.
	BillingProfileWallets(ctx context.Context, billingProfileID uuid.UUID, direction Direction) ([]BillingProfileWallet, error)
}

type queryer interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// Repository is the Postgres-backed Store.
type Repository struct {
	q queryer
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{q: db}
}

// NewTxRepository binds profile reads to an open transaction.
func NewTxRepository(tx *sqlx.Tx) *Repository {
	return &Repository{q: tx}
}

func (r *Repository) RadiusProfile(ctx context.Context, id uuid.UUID) (*RadiusProfile, error) {
	var p RadiusProfile
	err := r.q.GetContext(ctx, &p, `SELECT id, name, created_at FROM radius_profiles WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) BillingProfile(ctx context.Context, id uuid.UUID) (*BillingProfile, error) {
	var p BillingProfile
	err := r.q.GetContext(ctx, &p, `
		SELECT id, name, price, duration_days, created_at FROM billing_profiles WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) RadiusProfileWallets(ctx context.Context, radiusProfileID uuid.UUID) ([]RadiusProfileWallet, error) {
	var list []RadiusProfileWallet
	err := r.q.SelectContext(ctx, &list, `
		SELECT id, radius_profile_id, custom_wallet_id, amount
		FROM radius_profile_wallets
		WHERE radius_profile_id = $1
		ORDER BY id
	`, radiusProfileID)
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *Repository) BillingProfileWallets(ctx context.Context, billingProfileID uuid.UUID, direction Direction) ([]BillingProfileWallet, error) {
	var list []BillingProfileWallet
	err := r.q.SelectContext(ctx, &list, `
		SELECT id, billing_profile_id, custom_wallet_id, direction, display_order, amount
		FROM billing_profile_wallets
		WHERE billing_profile_id = $1 AND direction = $2
		ORDER BY display_order, id
	`, billingProfileID, direction)
	if err != nil {
		return nil, err
	}
	return list, nil
}
