package activation

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/Ali-Mohammed/openRadius-sub005/internal/domain/cashback"
	"github.com/Ali-Mohammed/openRadius-sub005/internal/domain/profile"
	"github.com/Ali-Mohammed/openRadius-sub005/internal/domain/subscriber"
	"github.com/Ali-Mohammed/openRadius-sub005/internal/domain/wallet"
)

// memState is the mutable world a unit of work operates on. Begin hands a
// transaction a deep copy; Commit swaps the copy in, Rollback discards it.
type memState struct {
	userWallets   map[uuid.UUID]*wallet.UserWallet
	customWallets map[uuid.UUID]*wallet.CustomWallet
	ledger        []*wallet.Transaction
	history       []*wallet.WalletHistory
	subscribers   map[uuid.UUID]*subscriber.Subscriber
	billings      map[uuid.UUID]*BillingActivation
	radius        map[uuid.UUID]*RadiusActivation
}

func newMemState() *memState {
	return &memState{
		userWallets:   make(map[uuid.UUID]*wallet.UserWallet),
		customWallets: make(map[uuid.UUID]*wallet.CustomWallet),
		subscribers:   make(map[uuid.UUID]*subscriber.Subscriber),
		billings:      make(map[uuid.UUID]*BillingActivation),
		radius:        make(map[uuid.UUID]*RadiusActivation),
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for id, w := range s.userWallets {
		cp := *w
		c.userWallets[id] = &cp
	}
	for id, w := range s.customWallets {
		cp := *w
		c.customWallets[id] = &cp
	}
	for _, t := range s.ledger {
		cp := *t
		c.ledger = append(c.ledger, &cp)
	}
	for _, h := range s.history {
		cp := *h
		c.history = append(c.history, &cp)
	}
	for id, sub := range s.subscribers {
		cp := *sub
		c.subscribers[id] = &cp
	}
	for id, b := range s.billings {
		cp := *b
		c.billings[id] = &cp
	}
	for id, r := range s.radius {
		cp := *r
		c.radius[id] = &cp
	}
	return c
}

// memDatastore is the whole in-memory backend: canonical state plus static
// rule tables that the engine and resolver read.
type memDatastore struct {
	state *memState

	radiusRules  map[uuid.UUID][]profile.RadiusProfileWallet
	billingRules map[uuid.UUID][]profile.BillingProfileWallet

	radiusProfiles  map[uuid.UUID]*profile.RadiusProfile
	billingProfiles map[uuid.UUID]*profile.BillingProfile

	cashbackStore *memCashbackStore

	beginErr error
}

func newMemDatastore() *memDatastore {
	return &memDatastore{
		state:           newMemState(),
		radiusRules:     make(map[uuid.UUID][]profile.RadiusProfileWallet),
		billingRules:    make(map[uuid.UUID][]profile.BillingProfileWallet),
		radiusProfiles:  make(map[uuid.UUID]*profile.RadiusProfile),
		billingProfiles: make(map[uuid.UUID]*profile.BillingProfile),
		cashbackStore:   newMemCashbackStore(),
	}
}

func (d *memDatastore) Begin(ctx context.Context) (Tx, error) {
	if d.beginErr != nil {
		return nil, d.beginErr
	}
	return &memTx{ds: d, state: d.state.clone()}, nil
}

func (d *memDatastore) addUserWallet(w *wallet.UserWallet) {
	d.state.userWallets[w.ID] = w
}

func (d *memDatastore) addCustomWallet(w *wallet.CustomWallet) {
	d.state.customWallets[w.ID] = w
}

func (d *memDatastore) addSubscriber(s *subscriber.Subscriber) {
	d.state.subscribers[s.ID] = s
}

func (d *memDatastore) addRadiusProfile(p *profile.RadiusProfile) {
	d.radiusProfiles[p.ID] = p
}

func (d *memDatastore) addBillingProfile(p *profile.BillingProfile) {
	d.billingProfiles[p.ID] = p
}

type memTx struct {
	ds    *memDatastore
	state *memState
}

func (t *memTx) Wallets() wallet.Store         { return &memWalletStore{state: t.state} }
func (t *memTx) Subscribers() subscriber.Store { return &memSubscriberStore{state: t.state} }
func (t *memTx) Profiles() profile.Store       { return &memProfileStore{ds: t.ds} }
func (t *memTx) Cashback() cashback.Store      { return t.ds.cashbackStore }
func (t *memTx) Activations() Store            { return &memActivationStore{state: t.state} }

func (t *memTx) Commit() error {
	t.ds.state = t.state
	return nil
}

func (t *memTx) Rollback() error { return nil }

type memWalletStore struct {
	state *memState
}

func (s *memWalletStore) UserWalletForUpdate(_ context.Context, id uuid.UUID) (*wallet.UserWallet, error) {
	w, ok := s.state.userWallets[id]
	if !ok {
		return nil, wallet.ErrWalletNotFound
	}
	return w, nil
}

func (s *memWalletStore) UserWalletByOwnerForUpdate(_ context.Context, userID uuid.UUID) (*wallet.UserWallet, error) {
	for _, w := range s.state.userWallets {
		if w.UserID == userID {
			return w, nil
		}
	}
	return nil, wallet.ErrWalletNotFound
}

func (s *memWalletStore) CustomWalletForUpdate(_ context.Context, id uuid.UUID) (*wallet.CustomWallet, error) {
	w, ok := s.state.customWallets[id]
	if !ok {
		return nil, wallet.ErrWalletNotFound
	}
	return w, nil
}

func (s *memWalletStore) balance(ref wallet.Ref) (int64, bool, error) {
	switch ref.Kind {
	case wallet.KindUser:
		w, ok := s.state.userWallets[ref.ID]
		if !ok {
			return 0, false, wallet.ErrWalletNotFound
		}
		return w.Balance, w.AllowNegative, nil
	case wallet.KindCustom:
		w, ok := s.state.customWallets[ref.ID]
		if !ok {
			return 0, false, wallet.ErrWalletNotFound
		}
		return w.Balance, w.AllowNegative, nil
	default:
		return 0, false, wallet.ErrInvalidWalletKind
	}
}

func (s *memWalletStore) setBalance(ref wallet.Ref, balance int64) {
	switch ref.Kind {
	case wallet.KindUser:
		s.state.userWallets[ref.ID].Balance = balance
	case wallet.KindCustom:
		s.state.customWallets[ref.ID].Balance = balance
	}
}

func (s *memWalletStore) record(e wallet.Entry, before, after int64) *wallet.Transaction {
	status := e.Status
	if status == "" {
		status = wallet.StatusCompleted
	}
	cbStatus := e.CashbackStatus
	if cbStatus == "" {
		cbStatus = wallet.CashbackNone
	}
	t := &wallet.Transaction{
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
	}
	s.state.ledger = append(s.state.ledger, t)
	return t
}

func (s *memWalletStore) Apply(_ context.Context, e wallet.Entry) (*wallet.Transaction, error) {
	if e.Amount <= 0 {
		return nil, wallet.ErrInvalidAmount
	}
	before, allowNeg, err := s.balance(e.Wallet)
	if err != nil {
		return nil, err
	}
	after := before + e.AmountType.Signed(e.Amount)
	if after < 0 && !allowNeg {
		return nil, &wallet.InsufficientBalanceError{Wallet: e.Wallet, Short: -after}
	}
	s.setBalance(e.Wallet, after)
	t := s.record(e, before, after)
	s.state.history = append(s.state.history, &wallet.WalletHistory{
		ID:            uuid.New(),
		TransactionID: t.ID,
		WalletKind:    t.WalletKind,
		WalletID:      t.WalletID,
		Amount:        t.Amount,
		AmountType:    t.AmountType,
		BalanceBefore: before,
		BalanceAfter:  after,
		Type:          t.Type,
	})
	return t, nil
}

func (s *memWalletStore) Append(_ context.Context, e wallet.Entry) (*wallet.Transaction, error) {
	if e.Amount <= 0 {
		return nil, wallet.ErrInvalidAmount
	}
	before, _, err := s.balance(e.Wallet)
	if err != nil {
		return nil, err
	}
	return s.record(e, before, before), nil
}

func (s *memWalletStore) Transaction(_ context.Context, id uuid.UUID) (*wallet.Transaction, error) {
	for _, t := range s.state.ledger {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, wallet.ErrTransactionNotFound
}

func (s *memWalletStore) ReversalOf(_ context.Context, originalID uuid.UUID) (*wallet.Transaction, error) {
	for _, t := range s.state.ledger {
		if t.RelatedTransactionID != nil && *t.RelatedTransactionID == originalID && !t.IsDeleted {
			return t, nil
		}
	}
	return nil, wallet.ErrTransactionNotFound
}

func (s *memWalletStore) SetTransactionStatus(_ context.Context, id uuid.UUID, status wallet.Status) error {
	for _, t := range s.state.ledger {
		if t.ID == id {
			t.Status = status
			return nil
		}
	}
	return wallet.ErrTransactionNotFound
}

func (s *memWalletStore) SetTransactionDeleted(_ context.Context, id uuid.UUID, deleted bool) error {
	for _, t := range s.state.ledger {
		if t.ID == id {
			t.IsDeleted = deleted
			return nil
		}
	}
	return wallet.ErrTransactionNotFound
}

func (s *memWalletStore) TagGroupActivation(_ context.Context, groupID, activationID uuid.UUID) error {
	for _, t := range s.state.ledger {
		if t.TransactionGroupID != nil && *t.TransactionGroupID == groupID {
			id := activationID
			t.ActivationID = &id
		}
	}
	return nil
}

type memSubscriberStore struct {
	state *memState
}

func (s *memSubscriberStore) GetForUpdate(_ context.Context, id uuid.UUID) (*subscriber.Subscriber, error) {
	sub, ok := s.state.subscribers[id]
	if !ok {
		return nil, subscriber.ErrNotFound
	}
	return sub, nil
}

func (s *memSubscriberStore) Update(_ context.Context, sub *subscriber.Subscriber) error {
	if _, ok := s.state.subscribers[sub.ID]; !ok {
		return subscriber.ErrNotFound
	}
	s.state.subscribers[sub.ID] = sub
	return nil
}

type memProfileStore struct {
	ds *memDatastore
}

func (s *memProfileStore) RadiusProfile(_ context.Context, id uuid.UUID) (*profile.RadiusProfile, error) {
	p, ok := s.ds.radiusProfiles[id]
	if !ok {
		return nil, profile.ErrProfileNotFound
	}
	return p, nil
}

func (s *memProfileStore) BillingProfile(_ context.Context, id uuid.UUID) (*profile.BillingProfile, error) {
	p, ok := s.ds.billingProfiles[id]
	if !ok {
		return nil, profile.ErrProfileNotFound
	}
	return p, nil
}

func (s *memProfileStore) RadiusProfileWallets(_ context.Context, radiusProfileID uuid.UUID) ([]profile.RadiusProfileWallet, error) {
	return s.ds.radiusRules[radiusProfileID], nil
}

func (s *memProfileStore) BillingProfileWallets(_ context.Context, billingProfileID uuid.UUID, direction profile.Direction) ([]profile.BillingProfileWallet, error) {
	var rules []profile.BillingProfileWallet
	for _, r := range s.ds.billingRules[billingProfileID] {
		if r.Direction == direction {
			rules = append(rules, r)
		}
	}
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].DisplayOrder < rules[j].DisplayOrder })
	return rules, nil
}

type memCashbackStore struct {
	userAmounts     map[uuid.UUID]int64
	groupAmounts    map[uuid.UUID]int64
	supervisors     map[uuid.UUID]uuid.UUID
	subAgentAmounts map[uuid.UUID]int64
}

func newMemCashbackStore() *memCashbackStore {
	return &memCashbackStore{
		userAmounts:     make(map[uuid.UUID]int64),
		groupAmounts:    make(map[uuid.UUID]int64),
		supervisors:     make(map[uuid.UUID]uuid.UUID),
		subAgentAmounts: make(map[uuid.UUID]int64),
	}
}

func (s *memCashbackStore) UserAmount(_ context.Context, userID, _ uuid.UUID) (*int64, error) {
	if a, ok := s.userAmounts[userID]; ok {
		return &a, nil
	}
	return nil, nil
}

func (s *memCashbackStore) GroupAmount(_ context.Context, userID, _ uuid.UUID) (*int64, error) {
	if a, ok := s.groupAmounts[userID]; ok {
		return &a, nil
	}
	return nil, nil
}

func (s *memCashbackStore) Supervisor(_ context.Context, userID uuid.UUID) (*uuid.UUID, error) {
	if sup, ok := s.supervisors[userID]; ok {
		return &sup, nil
	}
	return nil, nil
}

func (s *memCashbackStore) SubAgentAmount(_ context.Context, _, subAgentID, _ uuid.UUID) (*int64, error) {
	if a, ok := s.subAgentAmounts[subAgentID]; ok {
		return &a, nil
	}
	return nil, nil
}

type memActivationStore struct {
	state *memState
}

func (s *memActivationStore) CreateBilling(_ context.Context, b *BillingActivation) error {
	cp := *b
	s.state.billings[b.ID] = &cp
	return nil
}

func (s *memActivationStore) UpdateBilling(_ context.Context, b *BillingActivation) error {
	if _, ok := s.state.billings[b.ID]; !ok {
		return ErrActivationNotFound
	}
	cp := *b
	s.state.billings[b.ID] = &cp
	return nil
}

func (s *memActivationStore) BillingForUpdate(_ context.Context, id uuid.UUID) (*BillingActivation, error) {
	b, ok := s.state.billings[id]
	if !ok {
		return nil, ErrActivationNotFound
	}
	return b, nil
}

func (s *memActivationStore) CreateRadius(_ context.Context, a *RadiusActivation) error {
	cp := *a
	s.state.radius[a.BillingActivationID] = &cp
	return nil
}

func (s *memActivationStore) UpdateRadius(_ context.Context, a *RadiusActivation) error {
	if _, ok := s.state.radius[a.BillingActivationID]; !ok {
		return ErrActivationNotFound
	}
	cp := *a
	s.state.radius[a.BillingActivationID] = &cp
	return nil
}

func (s *memActivationStore) RadiusByBillingID(_ context.Context, billingActivationID uuid.UUID) (*RadiusActivation, error) {
	a, ok := s.state.radius[billingActivationID]
	if !ok {
		return nil, ErrActivationNotFound
	}
	return a, nil
}
