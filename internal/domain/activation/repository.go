package activation

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const billingColumns = `id, subscriber_id, amount, cashback_total, activation_type, status,
	payment_method, radius_profile_id, billing_profile_id, transaction_group_id,
	payment_transaction_id, new_expire_at, created_by, created_at, completed_at`

const radiusColumns = `id, billing_activation_id, subscriber_id, previous_expire_at,
	current_expire_at, next_expire_at, previous_profile_id, new_profile_id,
	previous_billing_profile_id, new_billing_profile_id, previous_balance, new_balance,
	is_deleted, deleted_at, restored_at, created_at`

// txStore implements Store over one open transaction.
type txStore struct {
	tx *sqlx.Tx
}

func (s *txStore) CreateBilling(ctx context.Context, b *BillingActivation) error {
	_, err := s.tx.ExecContext(ctx, `
		INSERT INTO billing_activations (`+billingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, b.ID, b.SubscriberID, b.Amount, b.CashbackTotal, b.Type, b.Status,
		b.PaymentMethod, b.RadiusProfileID, b.BillingProfileID, b.TransactionGroupID,
		b.PaymentTransactionID, b.NewExpireAt, b.CreatedBy, b.CreatedAt, b.CompletedAt)
	return err
}

func (s *txStore) UpdateBilling(ctx context.Context, b *BillingActivation) error {
	_, err := s.tx.ExecContext(ctx, `
		UPDATE billing_activations
		SET cashback_total = $1, status = $2, payment_transaction_id = $3,
			new_expire_at = $4, completed_at = $5
		WHERE id = $6
	`, b.CashbackTotal, b.Status, b.PaymentTransactionID, b.NewExpireAt, b.CompletedAt, b.ID)
	return err
}

func (s *txStore) BillingForUpdate(ctx context.Context, id uuid.UUID) (*BillingActivation, error) {
	var b BillingActivation
	err := s.tx.GetContext(ctx, &b, `
		SELECT `+billingColumns+` FROM billing_activations WHERE id = $1 FOR UPDATE
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrActivationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *txStore) CreateRadius(ctx context.Context, a *RadiusActivation) error {
	_, err := s.tx.ExecContext(ctx, `
		INSERT INTO radius_activations (`+radiusColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, a.ID, a.BillingActivationID, a.SubscriberID, a.PreviousExpireAt,
		a.CurrentExpireAt, a.NextExpireAt, a.PreviousProfileID, a.NewProfileID,
		a.PreviousBillingProfID, a.NewBillingProfID, a.PreviousBalance, a.NewBalance,
		a.IsDeleted, a.DeletedAt, a.RestoredAt, a.CreatedAt)
	return err
}

func (s *txStore) UpdateRadius(ctx context.Context, a *RadiusActivation) error {
	_, err := s.tx.ExecContext(ctx, `
		UPDATE radius_activations
		SET is_deleted = $1, deleted_at = $2, restored_at = $3
		WHERE id = $4
	`, a.IsDeleted, a.DeletedAt, a.RestoredAt, a.ID)
	return err
}

func (s *txStore) RadiusByBillingID(ctx context.Context, billingActivationID uuid.UUID) (*RadiusActivation, error) {
	var a RadiusActivation
	err := s.tx.GetContext(ctx, &a, `
		SELECT `+radiusColumns+` FROM radius_activations
		WHERE billing_activation_id = $1 FOR UPDATE
	`, billingActivationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrActivationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Repository serves activation reads outside the unit of work.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Billing(ctx context.Context, id uuid.UUID) (*BillingActivation, error) {
	var b BillingActivation
	err := r.db.GetContext(ctx, &b, `SELECT `+billingColumns+` FROM billing_activations WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrActivationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *Repository) Radius(ctx context.Context, billingActivationID uuid.UUID) (*RadiusActivation, error) {
	var a RadiusActivation
	err := r.db.GetContext(ctx, &a, `
		SELECT `+radiusColumns+` FROM radius_activations WHERE billing_activation_id = $1
	`, billingActivationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrActivationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListBySubscriber returns activation headers for one subscriber, newest
// first.
func (r *Repository) ListBySubscriber(ctx context.Context, subscriberID uuid.UUID, limit, offset int) ([]BillingActivation, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var list []BillingActivation
	err := r.db.SelectContext(ctx, &list, `
		SELECT `+billingColumns+` FROM billing_activations
		WHERE subscriber_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, subscriberID, limit, offset)
	if err != nil {
		return nil, err
	}
	return list, nil
}
