package wallet

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memState struct {
	user   map[uuid.UUID]*UserWallet
	custom map[uuid.UUID]*CustomWallet
	ledger []*Transaction
}

func newMemState() *memState {
	return &memState{
		user:   make(map[uuid.UUID]*UserWallet),
		custom: make(map[uuid.UUID]*CustomWallet),
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for id, w := range s.user {
		cp := *w
		c.user[id] = &cp
	}
	for id, w := range s.custom {
		cp := *w
		c.custom[id] = &cp
	}
	for _, t := range s.ledger {
		cp := *t
		c.ledger = append(c.ledger, &cp)
	}
	return c
}

type fakeFactory struct {
	state *memState
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{state: newMemState()}
}

func (f *fakeFactory) Begin(context.Context) (StoreTx, error) {
	return &fakeTx{f: f, state: f.state.clone()}, nil
}

type fakeTx struct {
	f     *fakeFactory
	state *memState
}

func (t *fakeTx) Commit() error {
	t.f.state = t.state
	return nil
}

func (t *fakeTx) Rollback() error { return nil }

func (t *fakeTx) UserWalletForUpdate(_ context.Context, id uuid.UUID) (*UserWallet, error) {
	w, ok := t.state.user[id]
	if !ok {
		return nil, ErrWalletNotFound
	}
	return w, nil
}

func (t *fakeTx) UserWalletByOwnerForUpdate(_ context.Context, userID uuid.UUID) (*UserWallet, error) {
	for _, w := range t.state.user {
		if w.UserID == userID {
			return w, nil
		}
	}
	return nil, ErrWalletNotFound
}

func (t *fakeTx) CustomWalletForUpdate(_ context.Context, id uuid.UUID) (*CustomWallet, error) {
	w, ok := t.state.custom[id]
	if !ok {
		return nil, ErrWalletNotFound
	}
	return w, nil
}

func (t *fakeTx) balance(ref Ref) (int64, bool, error) {
	switch ref.Kind {
	case KindUser:
		w, ok := t.state.user[ref.ID]
		if !ok {
			return 0, false, ErrWalletNotFound
		}
		return w.Balance, w.AllowNegative, nil
	case KindCustom:
		w, ok := t.state.custom[ref.ID]
		if !ok {
			return 0, false, ErrWalletNotFound
		}
		return w.Balance, w.AllowNegative, nil
	default:
		return 0, false, ErrInvalidWalletKind
	}
}

func (t *fakeTx) setBalance(ref Ref, balance int64) {
	switch ref.Kind {
	case KindUser:
		t.state.user[ref.ID].Balance = balance
	case KindCustom:
		t.state.custom[ref.ID].Balance = balance
	}
}

func (t *fakeTx) record(e Entry, before, after int64) *Transaction {
	trx := newTransaction(e, before, after)
	t.state.ledger = append(t.state.ledger, trx)
	return trx
}

func (t *fakeTx) Apply(_ context.Context, e Entry) (*Transaction, error) {
	if e.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	before, allowNeg, err := t.balance(e.Wallet)
	if err != nil {
		return nil, err
	}
	after := before + e.AmountType.Signed(e.Amount)
	if after < 0 && !allowNeg {
		return nil, &InsufficientBalanceError{Wallet: e.Wallet, Short: -after}
	}
	t.setBalance(e.Wallet, after)
	return t.record(e, before, after), nil
}

func (t *fakeTx) Append(_ context.Context, e Entry) (*Transaction, error) {
	if e.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	before, _, err := t.balance(e.Wallet)
	if err != nil {
		return nil, err
	}
	return t.record(e, before, before), nil
}

func (t *fakeTx) Transaction(_ context.Context, id uuid.UUID) (*Transaction, error) {
	for _, trx := range t.state.ledger {
		if trx.ID == id {
			return trx, nil
		}
	}
	return nil, ErrTransactionNotFound
}

func (t *fakeTx) ReversalOf(_ context.Context, originalID uuid.UUID) (*Transaction, error) {
	for _, trx := range t.state.ledger {
		if trx.RelatedTransactionID != nil && *trx.RelatedTransactionID == originalID && !trx.IsDeleted {
			return trx, nil
		}
	}
	return nil, ErrTransactionNotFound
}

func (t *fakeTx) SetTransactionStatus(_ context.Context, id uuid.UUID, status Status) error {
	for _, trx := range t.state.ledger {
		if trx.ID == id {
			trx.Status = status
			return nil
		}
	}
	return ErrTransactionNotFound
}

func (t *fakeTx) SetTransactionDeleted(_ context.Context, id uuid.UUID, deleted bool) error {
	for _, trx := range t.state.ledger {
		if trx.ID == id {
			trx.IsDeleted = deleted
			return nil
		}
	}
	return ErrTransactionNotFound
}

func (t *fakeTx) TagGroupActivation(_ context.Context, groupID, activationID uuid.UUID) error {
	for _, trx := range t.state.ledger {
		if trx.TransactionGroupID != nil && *trx.TransactionGroupID == groupID {
			id := activationID
			trx.ActivationID = &id
		}
	}
	return nil
}

type capturePublisher struct {
	published []*Transaction
}

func (p *capturePublisher) PublishTransaction(t *Transaction) {
	p.published = append(p.published, t)
}

func newTestService(f *fakeFactory, pub Publisher) *Service {
	return NewService(f, nil, nil, pub, 0)
}

func seedUserWallet(f *fakeFactory, balance int64) Ref {
	id := uuid.New()
	f.state.user[id] = &UserWallet{
		ID:      id,
		UserID:  uuid.New(),
		Balance: balance,
		Status:  WalletActive,
	}
	return Ref{Kind: KindUser, ID: id}
}

func TestTopUpCreditsWallet(t *testing.T) {
	f := newFakeFactory()
	pub := &capturePublisher{}
	svc := newTestService(f, pub)
	ref := seedUserWallet(f, 40)

	trx, err := svc.TopUp(context.Background(), uuid.New(), ref, 60, "cash desk")
	require.NoError(t, err)

	assert.Equal(t, TypeTopUp, trx.Type)
	assert.Equal(t, AmountCredit, trx.AmountType)
	assert.Equal(t, int64(40), trx.BalanceBefore)
	assert.Equal(t, int64(100), trx.BalanceAfter)
	assert.Nil(t, trx.TransactionGroupID)

	assert.Equal(t, int64(100), f.state.user[ref.ID].Balance)
	require.Len(t, pub.published, 1)
	assert.Equal(t, trx.ID, pub.published[0].ID)
}

func TestTopUpRejectsNonPositiveAmount(t *testing.T) {
	f := newFakeFactory()
	svc := newTestService(f, nil)
	ref := seedUserWallet(f, 0)

	_, err := svc.TopUp(context.Background(), uuid.New(), ref, 0, "")
	require.ErrorIs(t, err, ErrInvalidAmount)
	assert.Empty(t, f.state.ledger)
}

func TestReverseCreditProducesLinkedDebit(t *testing.T) {
	f := newFakeFactory()
	svc := newTestService(f, nil)
	ref := seedUserWallet(f, 0)

	orig, err := svc.TopUp(context.Background(), uuid.New(), ref, 100, "")
	require.NoError(t, err)

	revID, err := svc.ReverseTransaction(context.Background(), uuid.New(), orig.ID, "entered twice")
	require.NoError(t, err)

	assert.Equal(t, int64(0), f.state.user[ref.ID].Balance)

	var rev, reversed *Transaction
	for _, trx := range f.state.ledger {
		switch trx.ID {
		case revID:
			rev = trx
		case orig.ID:
			reversed = trx
		}
	}
	require.NotNil(t, rev)
	require.NotNil(t, reversed)

	assert.Equal(t, TypeReversal, rev.Type)
	assert.Equal(t, AmountDebit, rev.AmountType)
	assert.Equal(t, orig.Amount, rev.Amount)
	require.NotNil(t, rev.RelatedTransactionID)
	assert.Equal(t, orig.ID, *rev.RelatedTransactionID)

	assert.Equal(t, StatusReversed, reversed.Status)
	assert.True(t, reversed.IsDeleted)
}

func TestReverseRowThatNeverMovedMoney(t *testing.T) {
	f := newFakeFactory()
	svc := newTestService(f, nil)
	ref := seedUserWallet(f, 50)

	// Simulate a collected cashback row: ledger presence, no balance delta.
	st, err := f.Begin(context.Background())
	require.NoError(t, err)
	pending, err := st.Append(context.Background(), Entry{
		Wallet:         ref,
		Amount:         25,
		AmountType:     AmountCredit,
		Type:           TypeCashback,
		Status:         StatusPending,
		CashbackStatus: CashbackPending,
		Actor:          uuid.New(),
	})
	require.NoError(t, err)
	require.NoError(t, st.Commit())

	revID, err := svc.ReverseTransaction(context.Background(), uuid.New(), pending.ID, "rule removed")
	require.NoError(t, err)

	// Compensation of a no-delta row must not move money either.
	assert.Equal(t, int64(50), f.state.user[ref.ID].Balance)
	for _, trx := range f.state.ledger {
		if trx.ID == revID {
			assert.False(t, trx.ChangedBalance())
		}
	}
}

func TestReverseTwiceRefused(t *testing.T) {
	f := newFakeFactory()
	svc := newTestService(f, nil)
	ref := seedUserWallet(f, 0)

	orig, err := svc.TopUp(context.Background(), uuid.New(), ref, 100, "")
	require.NoError(t, err)

	_, err = svc.ReverseTransaction(context.Background(), uuid.New(), orig.ID, "")
	require.NoError(t, err)

	_, err = svc.ReverseTransaction(context.Background(), uuid.New(), orig.ID, "")
	require.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestRestoreRoundTrip(t *testing.T) {
	f := newFakeFactory()
	svc := newTestService(f, nil)
	ref := seedUserWallet(f, 0)
	actor := uuid.New()

	orig, err := svc.TopUp(context.Background(), actor, ref, 100, "")
	require.NoError(t, err)

	revID, err := svc.ReverseTransaction(context.Background(), actor, orig.ID, "oops")
	require.NoError(t, err)
	require.Equal(t, int64(0), f.state.user[ref.ID].Balance)

	require.NoError(t, svc.RestoreTransaction(context.Background(), actor, orig.ID))

	assert.Equal(t, int64(100), f.state.user[ref.ID].Balance)

	for _, trx := range f.state.ledger {
		switch trx.ID {
		case orig.ID:
			assert.Equal(t, StatusCompleted, trx.Status)
			assert.False(t, trx.IsDeleted)
		case revID:
			assert.True(t, trx.IsDeleted)
		}
	}
}

func TestRestoreRequiresReversedStatus(t *testing.T) {
	f := newFakeFactory()
	svc := newTestService(f, nil)
	ref := seedUserWallet(f, 0)

	orig, err := svc.TopUp(context.Background(), uuid.New(), ref, 10, "")
	require.NoError(t, err)

	require.ErrorIs(t, svc.RestoreTransaction(context.Background(), uuid.New(), orig.ID), ErrNotReversed)
}

func TestBulkDeleteIsPerItem(t *testing.T) {
	f := newFakeFactory()
	svc := newTestService(f, nil)
	ref := seedUserWallet(f, 0)
	actor := uuid.New()

	good, err := svc.TopUp(context.Background(), actor, ref, 30, "")
	require.NoError(t, err)
	bogus := uuid.New()

	results := svc.BulkDeleteTransactions(context.Background(), actor, []uuid.UUID{good.ID, bogus}, "cleanup")
	require.Len(t, results, 2)

	assert.True(t, results[0].OK)
	assert.Equal(t, good.ID, results[0].ID)
	assert.False(t, results[1].OK)
	assert.NotEmpty(t, results[1].Error)

	// The failing item did not poison the succeeding one.
	assert.Equal(t, int64(0), f.state.user[ref.ID].Balance)
}

func TestBulkRestoreIsPerItem(t *testing.T) {
	f := newFakeFactory()
	svc := newTestService(f, nil)
	ref := seedUserWallet(f, 0)
	actor := uuid.New()

	orig, err := svc.TopUp(context.Background(), actor, ref, 30, "")
	require.NoError(t, err)
	_, err = svc.ReverseTransaction(context.Background(), actor, orig.ID, "")
	require.NoError(t, err)

	results := svc.BulkRestoreTransactions(context.Background(), actor, []uuid.UUID{orig.ID, uuid.New()})
	require.Len(t, results, 2)
	assert.True(t, results[0].OK)
	assert.False(t, results[1].OK)

	assert.Equal(t, int64(30), f.state.user[ref.ID].Balance)
}

func TestReverseDebitBlockedByNegativeGuard(t *testing.T) {
	f := newFakeFactory()
	svc := newTestService(f, nil)
	ref := seedUserWallet(f, 100)
	actor := uuid.New()

	credit, err := svc.TopUp(context.Background(), actor, ref, 50, "")
	require.NoError(t, err)

	// Drain the wallet below the credit so its reversal would go negative.
	st, err := f.Begin(context.Background())
	require.NoError(t, err)
	_, err = st.Apply(context.Background(), Entry{
		Wallet:     ref,
		Amount:     130,
		AmountType: AmountDebit,
		Type:       TypeAdjustment,
		Actor:      actor,
	})
	require.NoError(t, err)
	require.NoError(t, st.Commit())

	_, err = svc.ReverseTransaction(context.Background(), actor, credit.ID, "")
	var short *InsufficientBalanceError
	require.ErrorAs(t, err, &short)
	assert.Equal(t, int64(30), short.Short)

	// Failed reversal leaves the original untouched.
	for _, trx := range f.state.ledger {
		if trx.ID == credit.ID {
			assert.Equal(t, StatusCompleted, trx.Status)
			assert.False(t, trx.IsDeleted)
		}
	}
}
