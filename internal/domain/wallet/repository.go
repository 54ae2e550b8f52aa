package wallet

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const transactionColumns = `id, wallet_kind, wallet_id, amount, amount_type, balance_before,
	balance_after, transaction_type, status, cashback_status, related_transaction_id,
	transaction_group_id, billing_activation_id, activation_id, description, created_by,
	is_deleted, created_at`

// sqlxFactory opens txStores over a shared pool.
type sqlxFactory struct {
	db *sqlx.DB
}

// NewTxFactory returns the Postgres-backed TxFactory.
func NewTxFactory(db *sqlx.DB) TxFactory {
	return &sqlxFactory{db: db}
}

func (f *sqlxFactory) Begin(ctx context.Context) (StoreTx, error) {
	tx, err := f.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	return &txStore{tx: tx}, nil
}

// txStore implements Store over one sqlx transaction. Wallet rows are read
// FOR UPDATE so concurrent activations touching the same wallet serialize
// their read-modify-write.
type txStore struct {
	tx *sqlx.Tx
}

// NewTxStore binds a Store to an existing transaction, for callers that own
// the enclosing unit of work.
func NewTxStore(tx *sqlx.Tx) Store {
	return &txStore{tx: tx}
}

func (s *txStore) Commit() error   { return s.tx.Commit() }
func (s *txStore) Rollback() error { return s.tx.Rollback() }

func (s *txStore) UserWalletForUpdate(ctx context.Context, id uuid.UUID) (*UserWallet, error) {
	var w UserWallet
	err := s.tx.GetContext(ctx, &w, `
		SELECT id, user_id, current_balance, status, allow_negative_balance, created_at, updated_at
		FROM user_wallets WHERE id = $1 FOR UPDATE
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *txStore) UserWalletByOwnerForUpdate(ctx context.Context, userID uuid.UUID) (*UserWallet, error) {
	var w UserWallet
	err := s.tx.GetContext(ctx, &w, `
		SELECT id, user_id, current_balance, status, allow_negative_balance, created_at, updated_at
		FROM user_wallets WHERE user_id = $1 FOR UPDATE
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *txStore) CustomWalletForUpdate(ctx context.Context, id uuid.UUID) (*CustomWallet, error) {
	var w CustomWallet
	err := s.tx.GetContext(ctx, &w, `
		SELECT id, name, current_balance, status, allow_negative_balance,
			cashback_mode, cashback_require_approval, created_at, updated_at
		FROM custom_wallets WHERE id = $1 FOR UPDATE
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// lockBalance reads the current balance and allow-negative flag under a row
// lock for either wallet kind.
func (s *txStore) lockBalance(ctx context.Context, ref Ref) (balance int64, allowNegative bool, err error) {
	var query string
	switch ref.Kind {
	case KindUser:
		query = `SELECT current_balance, allow_negative_balance FROM user_wallets WHERE id = $1 FOR UPDATE`
	case KindCustom:
		query = `SELECT current_balance, allow_negative_balance FROM custom_wallets WHERE id = $1 FOR UPDATE`
	default:
		return 0, false, ErrInvalidWalletKind
	}

	row := s.tx.QueryRowxContext(ctx, query, ref.ID)
	if err := row.Scan(&balance, &allowNegative); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, ErrWalletNotFound
		}
		return 0, false, err
	}
	return balance, allowNegative, nil
}

func (s *txStore) writeBalance(ctx context.Context, ref Ref, balance int64) error {
	var query string
	switch ref.Kind {
	case KindUser:
		query = `UPDATE user_wallets SET current_balance = $1, updated_at = now() WHERE id = $2`
	case KindCustom:
		query = `UPDATE custom_wallets SET current_balance = $1, updated_at = now() WHERE id = $2`
	default:
		return ErrInvalidWalletKind
	}
	_, err := s.tx.ExecContext(ctx, query, balance, ref.ID)
	return err
}

func (s *txStore) Apply(ctx context.Context, e Entry) (*Transaction, error) {
	if e.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	before, allowNegative, err := s.lockBalance(ctx, e.Wallet)
	if err != nil {
		return nil, err
	}

	after := before + e.AmountType.Signed(e.Amount)
	if after < 0 && !allowNegative {
		return nil, &InsufficientBalanceError{Wallet: e.Wallet, Short: -after}
	}

	if err := s.writeBalance(ctx, e.Wallet, after); err != nil {
		return nil, err
	}

	t := newTransaction(e, before, after)
	if err := s.insertTransaction(ctx, t); err != nil {
		return nil, err
	}
	if err := s.insertHistory(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *txStore) Append(ctx context.Context, e Entry) (*Transaction, error) {
	if e.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	// Balance untouched, but the wallet must exist: lock and reuse the
	// current balance for before == after.
	before, _, err := s.lockBalance(ctx, e.Wallet)
	if err != nil {
		return nil, err
	}

	t := newTransaction(e, before, before)
	if err := s.insertTransaction(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func newTransaction(e Entry, before, after int64) *Transaction {
	status := e.Status
	if status == "" {
		status = StatusCompleted
	}
	cbStatus := e.CashbackStatus
	if cbStatus == "" {
		cbStatus = CashbackNone
	}
	return &Transaction{
		ID:                   uuid.New(),
		WalletKind:           e.Wallet.Kind,
		WalletID:             e.Wallet.ID,
		Amount:               e.Amount,
		AmountType:           e.AmountType,
		BalanceBefore:        before,
		BalanceAfter:         after,
		Type:                 e.Type,
		Status:               status,
		CashbackStatus:       cbStatus,
		RelatedTransactionID: e.RelatedTransactionID,
		TransactionGroupID:   e.GroupID,
		BillingActivationID:  e.BillingActivationID,
		ActivationID:         e.ActivationID,
		Description:          e.Description,
		CreatedBy:            e.Actor,
		CreatedAt:            time.Now().UTC(),
	}
}

func (s *txStore) insertTransaction(ctx context.Context, t *Transaction) error {
	_, err := s.tx.ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`, t.ID, t.WalletKind, t.WalletID, t.Amount, t.AmountType, t.BalanceBefore,
		t.BalanceAfter, t.Type, t.Status, t.CashbackStatus, t.RelatedTransactionID,
		t.TransactionGroupID, t.BillingActivationID, t.ActivationID, t.Description,
		t.CreatedBy, t.IsDeleted, t.CreatedAt)
	return err
}

func (s *txStore) insertHistory(ctx context.Context, t *Transaction) error {
	_, err := s.tx.ExecContext(ctx, `
		INSERT INTO wallet_history (id, transaction_id, wallet_kind, wallet_id, amount,
			amount_type, balance_before, balance_after, transaction_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, uuid.New(), t.ID, t.WalletKind, t.WalletID, t.Amount, t.AmountType,
		t.BalanceBefore, t.BalanceAfter, t.Type, t.CreatedAt)
	return err
}

func (s *txStore) Transaction(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	var t Transaction
	err := s.tx.GetContext(ctx, &t, `
		SELECT `+transactionColumns+` FROM transactions WHERE id = $1 FOR UPDATE
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *txStore) ReversalOf(ctx context.Context, originalID uuid.UUID) (*Transaction, error) {
	var t Transaction
	err := s.tx.GetContext(ctx, &t, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE related_transaction_id = $1 AND transaction_type = $2 AND is_deleted = false
		ORDER BY created_at DESC LIMIT 1
	`, originalID, TypeReversal)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *txStore) SetTransactionStatus(ctx context.Context, id uuid.UUID, status Status) error {
	_, err := s.tx.ExecContext(ctx, `UPDATE transactions SET status = $1 WHERE id = $2`, status, id)
	return err
}

func (s *txStore) SetTransactionDeleted(ctx context.Context, id uuid.UUID, deleted bool) error {
	_, err := s.tx.ExecContext(ctx, `UPDATE transactions SET is_deleted = $1 WHERE id = $2`, deleted, id)
	return err
}

func (s *txStore) TagGroupActivation(ctx context.Context, groupID, activationID uuid.UUID) error {
	_, err := s.tx.ExecContext(ctx, `
		UPDATE transactions SET activation_id = $1 WHERE transaction_group_id = $2
	`, activationID, groupID)
	return err
}

// Repository serves the read side: wallet lookups, transaction listings and
// aggregation. Mutations go through Store.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) UserWallet(ctx context.Context, id uuid.UUID) (*UserWallet, error) {
	var w UserWallet
	err := r.db.GetContext(ctx, &w, `
		SELECT id, user_id, current_balance, status, allow_negative_balance, created_at, updated_at
		FROM user_wallets WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *Repository) CustomWallet(ctx context.Context, id uuid.UUID) (*CustomWallet, error) {
	var w CustomWallet
	err := r.db.GetContext(ctx, &w, `
		SELECT id, name, current_balance, status, allow_negative_balance,
			cashback_mode, cashback_require_approval, created_at, updated_at
		FROM custom_wallets WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// ListTransactions returns live ledger rows for one wallet, newest first.
// Soft-deleted rows are excluded; they stay in the table for audit.
func (r *Repository) ListTransactions(ctx context.Context, ref Ref, limit, offset int) ([]Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var list []Transaction
	err := r.db.SelectContext(ctx, &list, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE wallet_kind = $1 AND wallet_id = $2 AND is_deleted = false
		ORDER BY created_at DESC LIMIT $3 OFFSET $4
	`, ref.Kind, ref.ID, limit, offset)
	if err != nil {
		return nil, err
	}
	return list, nil
}

// Stats aggregates live transactions by type and status.
func (r *Repository) Stats(ctx context.Context) ([]StatRow, error) {
	var rows []StatRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT transaction_type, status, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total
		FROM transactions
		WHERE is_deleted = false
		GROUP BY transaction_type, status
		ORDER BY transaction_type, status
	`)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
