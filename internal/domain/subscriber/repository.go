package subscriber

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("subscriber not found")

const columns = `id, username, balance, expire_at, radius_profile_id, billing_profile_id,
	supervisor_id, created_at, updated_at`

// Store is the transactional surface the activation engine needs.
type Store interface {
	// GetForUpdate locks the subscriber row for the duration of the
	// activation so concurrent activations for one subscriber serialize.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Subscriber, error)
	Update(ctx context.Context, s *Subscriber) error
}

// Repository is the Postgres-backed subscriber access. Reads outside a
// transaction use Get.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Subscriber, error) {
	var s Subscriber
	err := r.db.GetContext(ctx, &s, `SELECT `+columns+` FROM subscribers WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// TxStore implements Store over one open transaction.
type TxStore struct {
	tx *sqlx.Tx
}

func NewTxStore(tx *sqlx.Tx) *TxStore {
	return &TxStore{tx: tx}
}

func (s *TxStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*Subscriber, error) {
	var sub Subscriber
	err := s.tx.GetContext(ctx, &sub, `SELECT `+columns+` FROM subscribers WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *TxStore) Update(ctx context.Context, sub *Subscriber) error {
	_, err := s.tx.ExecContext(ctx, `
		UPDATE subscribers
		SET balance = $1, expire_at = $2, radius_profile_id = $3, billing_profile_id = $4,
			updated_at = now()
		WHERE id = $5
	`, sub.Balance, sub.ExpireAt, sub.RadiusProfileID, sub.BillingProfileID, sub.ID)
	return err
}
