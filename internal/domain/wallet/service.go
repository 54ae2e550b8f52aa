package wallet

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const statsCacheKey = "ledger:stats"

// Publisher pushes committed ledger rows to the realtime feed. Implementations
// must be safe for concurrent use; a nil Publisher disables the feed.
type Publisher interface {
	PublishTransaction(t *Transaction)
}

// Service owns standalone ledger operations: top-ups, generic transaction
// reversal/restore, batch delete/restore and the read-side listings/stats.
// Activation-driven movements live in the activation package and share the
// same Store.
type Service struct {
	txf           TxFactory
	repo          *Repository
	cache         *redis.Client
	pub           Publisher
	statsCacheTTL time.Duration
}

func NewService(txf TxFactory, repo *Repository, cache *redis.Client, pub Publisher, statsCacheTTL time.Duration) *Service {
	if statsCacheTTL <= 0 {
		statsCacheTTL = 30 * time.Second
	}
	return &Service{txf: txf, repo: repo, cache: cache, pub: pub, statsCacheTTL: statsCacheTTL}
}

func (s *Service) publish(t *Transaction) {
	if s.pub != nil && t != nil {
		s.pub.PublishTransaction(t)
	}
}

// TopUp credits a wallet outside any activation. The row carries no group id;
// it is a standalone adjustment.
func (s *Service) TopUp(ctx context.Context, actor uuid.UUID, ref Ref, amount int64, note string) (*Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	st, err := s.txf.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer st.Rollback()

	t, err := st.Apply(ctx, Entry{
		Wallet:      ref,
		Amount:      amount,
		AmountType:  AmountCredit,
		Type:        TypeTopUp,
		Description: note,
		Actor:       actor,
	})
	if err != nil {
		return nil, err
	}
	if err := st.Commit(); err != nil {
		return nil, err
	}

	log.Info().
		Str("wallet_kind", string(ref.Kind)).
		Str("wallet_id", ref.ID.String()).
		Int64("amount", amount).
		Str("actor", actor.String()).
		Msg("wallet topup applied")
	s.publish(t)
	return t, nil
}

// ReverseTransaction soft-deletes the original row, synthesizes the exact
// compensating entry and applies the inverse balance delta. The original is
// marked reversed and linked to the reversal via related_transaction_id.
func (s *Service) ReverseTransaction(ctx context.Context, actor uuid.UUID, id uuid.UUID, reason string) (uuid.UUID, error) {
	st, err := s.txf.Begin(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	defer st.Rollback()

	orig, err := st.Transaction(ctx, id)
	if err != nil {
		return uuid.Nil, err
	}
	if orig.IsDeleted {
		return uuid.Nil, ErrTransactionNotFound
	}
	if orig.Status == StatusReversed {
		return uuid.Nil, ErrAlreadyReversed
	}

	entry := Entry{
		Wallet:               Ref{Kind: orig.WalletKind, ID: orig.WalletID},
		Amount:               orig.Amount,
		AmountType:           orig.AmountType.Inverse(),
		Type:                 TypeReversal,
		RelatedTransactionID: &orig.ID,
		GroupID:              orig.TransactionGroupID,
		Description:          reason,
		Actor:                actor,
	}

	// A row that never moved money (collected cashback) is compensated
	// without a balance delta.
	var rev *Transaction
	if orig.ChangedBalance() {
		rev, err = st.Apply(ctx, entry)
	} else {
		rev, err = st.Append(ctx, entry)
	}
	if err != nil {
		return uuid.Nil, err
	}

	if err := st.SetTransactionDeleted(ctx, orig.ID, true); err != nil {
		return uuid.Nil, err
	}
	if err := st.SetTransactionStatus(ctx, orig.ID, StatusReversed); err != nil {
		return uuid.Nil, err
	}
	if err := st.Commit(); err != nil {
		return uuid.Nil, err
	}

	log.Info().
		Str("transaction_id", orig.ID.String()).
		Str("reversal_id", rev.ID.String()).
		Str("actor", actor.String()).
		Msg("transaction reversed")
	s.publish(rev)
	return rev.ID, nil
}

// RestoreTransaction undoes a reversal: the original delta is re-applied and
// the compensating entry is soft-deleted.
func (s *Service) RestoreTransaction(ctx context.Context, actor uuid.UUID, id uuid.UUID) error {
	st, err := s.txf.Begin(ctx)
	if err != nil {
		return err
	}
	defer st.Rollback()

	orig, err := st.Transaction(ctx, id)
	if err != nil {
		return err
	}
	if orig.Status != StatusReversed {
		return ErrNotReversed
	}

	rev, err := st.ReversalOf(ctx, orig.ID)
	if err != nil {
		return err
	}

	if orig.ChangedBalance() {
		// Re-apply the original delta by inverting the reversal.
		_, err = st.Apply(ctx, Entry{
			Wallet:               Ref{Kind: orig.WalletKind, ID: orig.WalletID},
			Amount:               orig.Amount,
			AmountType:           orig.AmountType,
			Type:                 TypeAdjustment,
			RelatedTransactionID: &rev.ID,
			GroupID:              orig.TransactionGroupID,
			Description:          "restore of reversed transaction",
			Actor:                actor,
		})
		if err != nil {
			return err
		}
	}

	if err := st.SetTransactionDeleted(ctx, rev.ID, true); err != nil {
		return err
	}
	if err := st.SetTransactionDeleted(ctx, orig.ID, false); err != nil {
		return err
	}
	if err := st.SetTransactionStatus(ctx, orig.ID, StatusCompleted); err != nil {
		return err
	}
	if err := st.Commit(); err != nil {
		return err
	}

	log.Info().
		Str("transaction_id", orig.ID.String()).
		Str("actor", actor.String()).
		Msg("reversed transaction restored")
	return nil
}

// BulkDeleteTransactions reverses each id independently. One failing item does
// not roll back the others; callers get an itemized outcome.
func (s *Service) BulkDeleteTransactions(ctx context.Context, actor uuid.UUID, ids []uuid.UUID, reason string) []BulkResult {
	results := make([]BulkResult, 0, len(ids))
	for _, id := range ids {
		if _, err := s.ReverseTransaction(ctx, actor, id, reason); err != nil {
			results = append(results, BulkResult{ID: id, OK: false, Error: err.Error()})
			continue
		}
		results = append(results, BulkResult{ID: id, OK: true})
	}
	return results
}

// BulkRestoreTransactions restores each id independently.
func (s *Service) BulkRestoreTransactions(ctx context.Context, actor uuid.UUID, ids []uuid.UUID) []BulkResult {
	results := make([]BulkResult, 0, len(ids))
	for _, id := range ids {
		if err := s.RestoreTransaction(ctx, actor, id); err != nil {
			results = append(results, BulkResult{ID: id, OK: false, Error: err.Error()})
			continue
		}
		results = append(results, BulkResult{ID: id, OK: true})
	}
	return results
}

// GetWallet resolves either wallet kind for the read API.
func (s *Service) GetWallet(ctx context.Context, ref Ref) (interface{}, error) {
	switch ref.Kind {
	case KindUser:
		return s.repo.UserWallet(ctx, ref.ID)
	case KindCustom:
		return s.repo.CustomWallet(ctx, ref.ID)
	default:
		return nil, ErrInvalidWalletKind
	}
}

func (s *Service) ListTransactions(ctx context.Context, ref Ref, limit, offset int) ([]Transaction, error) {
	return s.repo.ListTransactions(ctx, ref, limit, offset)
}

// Stats returns counts and sums grouped by type and status, cached in Redis
// to keep dashboard polling off the ledger table.
func (s *Service) Stats(ctx context.Context) ([]StatRow, error) {
	if s.cache != nil {
		if payload, err := s.cache.Get(ctx, statsCacheKey).Bytes(); err == nil {
			var rows []StatRow
			if err := json.Unmarshal(payload, &rows); err == nil {
				return rows, nil
			}
		}
	}

	rows, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if payload, err := json.Marshal(rows); err == nil {
			if err := s.cache.Set(ctx, statsCacheKey, payload, s.statsCacheTTL).Err(); err != nil {
				log.Warn().Err(err).Msg("failed to cache ledger stats")
			}
		}
	}
	return rows, nil
}
