package activation

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Ali-Mohammed/openRadius-sub005/internal/domain/cashback"
	"github.com/Ali-Mohammed/openRadius-sub005/internal/domain/profile"
	"github.com/Ali-Mohammed/openRadius-sub005/internal/domain/subscriber"
	"github.com/Ali-Mohammed/openRadius-sub005/internal/domain/wallet"
)

// Store is the activation-record surface inside the unit of work.
type Store interface {
	CreateBilling(ctx context.Context, b *BillingActivation) error
	UpdateBilling(ctx context.Context, b *BillingActivation) error
	BillingForUpdate(ctx context.Context, id uuid.UUID) (*BillingActivation, error)
	CreateRadius(ctx context.Context, a *RadiusActivation) error
	UpdateRadius(ctx context.Context, a *RadiusActivation) error
	RadiusByBillingID(ctx context.Context, billingActivationID uuid.UUID) (*RadiusActivation, error)
}

// Tx is the unit of work every activation runs in. All stores observe the
// same database transaction; Commit publishes everything or nothing.
type Tx interface {
	Wallets() wallet.Store
	Subscribers() subscriber.Store
	Profiles() profile.Store
	Cashback() cashback.Store
	Activations() Store
	Commit() error
	Rollback() error
}

// Datastore opens units of work.
type Datastore interface {
	Begin(ctx context.Context) (Tx, error)
}

// sqlxDatastore is the Postgres-backed Datastore.
type sqlxDatastore struct {
	db *sqlx.DB
}

func NewDatastore(db *sqlx.DB) Datastore {
	return &sqlxDatastore{db: db}
}

func (d *sqlxDatastore) Begin(ctx context.Context) (Tx, error) {
	tx, err := d.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	return &sqlxTx{
		tx:          tx,
		wallets:     wallet.NewTxStore(tx),
		subscribers: subscriber.NewTxStore(tx),
		profiles:    profile.NewTxRepository(tx),
		rules:       cashback.NewTxRepository(tx),
		activations: &txStore{tx: tx},
	}, nil
}

type sqlxTx struct {
	tx          *sqlx.Tx
	wallets     wallet.Store
	subscribers subscriber.Store
	profiles    profile.Store
	rules       cashback.Store
	activations Store
}

func (t *sqlxTx) Wallets() wallet.Store            { return t.wallets }
func (t *sqlxTx) Subscribers() subscriber.Store    { return t.subscribers }
func (t *sqlxTx) Profiles() profile.Store          { return t.profiles }
func (t *sqlxTx) Cashback() cashback.Store         { return t.rules }
func (t *sqlxTx) Activations() Store               { return t.activations }
func (t *sqlxTx) Commit() error                    { return t.tx.Commit() }
func (t *sqlxTx) Rollback() error                  { return t.tx.Rollback() }
