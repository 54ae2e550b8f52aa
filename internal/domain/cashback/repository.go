package cashback

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// queryer covers both *sqlx.DB and *sqlx.Tx so the same repository serves
// plain reads and activation-scoped reads.
type queryer interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// Repository is the Postgres-backed rule Store.
type Repository struct {
	q queryer
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{q: db}
}

// NewTxRepository binds the rule reads to an open transaction.
func NewTxRepository(tx *sqlx.Tx) *Repository {
	return &Repository{q: tx}
}

func (r *Repository) UserAmount(ctx context.Context, userID, billingProfileID uuid.UUID) (*int64, error) {
	var amount int64
	err := r.q.GetContext(ctx, &amount, `
		SELECT amount FROM user_cashbacks
		WHERE user_id = $1 AND billing_profile_id = $2
	`, userID, billingProfileID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &amount, nil
}

func (r *Repository) GroupAmount(ctx context.Context, userID, billingProfileID uuid.UUID) (*int64, error) {
	var amount int64
	err := r.q.GetContext(ctx, &amount, `
		SELECT cpa.amount
		FROM cashback_group_users cgu
		JOIN cashback_profile_amounts cpa
			ON cpa.group_id = cgu.group_id AND cpa.billing_profile_id = $2
		WHERE cgu.user_id = $1
		LIMIT 1
	`, userID, billingProfileID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &amount, nil
}

func (r *Repository) Supervisor(ctx context.Context, userID uuid.UUID) (*uuid.UUID, error) {
	var supervisorID uuid.UUID
	err := r.q.GetContext(ctx, &supervisorID, `
		SELECT supervisor_id FROM subscribers
		WHERE id = $1 AND supervisor_id IS NOT NULL
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &supervisorID, nil
}

func (r *Repository) SubAgentAmount(ctx context.Context, supervisorID, subAgentID, billingProfileID uuid.UUID) (*int64, error) {
	var amount int64
	err := r.q.GetContext(ctx, &amount, `
		SELECT amount FROM sub_agent_cashbacks
		WHERE supervisor_id = $1 AND sub_agent_id = $2 AND billing_profile_id = $3
	`, supervisorID, subAgentID, billingProfileID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &amount, nil
}
