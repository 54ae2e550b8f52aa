package wallet

import (
	"context"

	"github.com/google/uuid"
)

// Store is the transaction-scoped surface every money movement goes through.
// Implementations pin all reads and writes to one enclosing database
// transaction so a balance adjustment is never committed without its paired
// ledger row.
type Store interface {
	// UserWalletForUpdate loads a user wallet under a row lock.
	UserWalletForUpdate(ctx context.Context, id uuid.UUID) (*UserWallet, error)
	// UserWalletByOwnerForUpdate resolves a user's wallet by owning user id.
	UserWalletByOwnerForUpdate(ctx context.Context, userID uuid.UUID) (*UserWallet, error)
	// CustomWalletForUpdate loads a custom wallet under a row lock.
	CustomWalletForUpdate(ctx context.Context, id uuid.UUID) (*CustomWallet, error)

	// Apply mutates the wallet balance and writes the Transaction plus its
	// WalletHistory mirror. Fails with *InsufficientBalanceError when a debit
	// would breach allow_negative_balance=false.
	Apply(ctx context.Context, e Entry) (*Transaction, error)
	// Append writes a Transaction without touching the balance and therefore
	// without a WalletHistory row. Used for collected cashback.
	Append(ctx context.Context, e Entry) (*Transaction, error)

	Transaction(ctx context.Context, id uuid.UUID) (*Transaction, error)
	// ReversalOf finds the live compensating entry pointing at originalID.
	ReversalOf(ctx context.Context, originalID uuid.UUID) (*Transaction, error)
	SetTransactionStatus(ctx context.Context, id uuid.UUID, status Status) error
	SetTransactionDeleted(ctx context.Context, id uuid.UUID, deleted bool) error
	// TagGroupActivation backfills activation_id on every row of a group.
	TagGroupActivation(ctx context.Context, groupID, activationID uuid.UUID) error
}

// StoreTx is a Store bound to an open transaction.
type StoreTx interface {
	Store
	Commit() error
	Rollback() error
}

// TxFactory opens transaction-scoped stores.
type TxFactory interface {
	Begin(ctx context.Context) (StoreTx, error)
}
