package activation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Ali-Mohammed/openRadius-sub005/internal/domain/cashback"
	"github.com/Ali-Mohammed/openRadius-sub005/internal/domain/wallet"
)

// CreateRequest drives one activation. Optional fields default to the
// subscriber's current profiles and the billing profile's price/duration.
type CreateRequest struct {
	SubscriberID     uuid.UUID
	Type             ActivationType
	PaymentMethod    PaymentMethod
	Amount           *int64
	DurationDays     *int
	NextExpireAt     *time.Time
	RadiusProfileID  *uuid.UUID
	BillingProfileID *uuid.UUID
	// PayerWallet overrides the funding wallet; defaults to the
	// subscriber's own user wallet. Agents may pay from pooled custom
	// wallets.
	PayerWallet *wallet.Ref
}

// Service is the activation orchestrator. Every Create/Delete/Restore runs
// as one all-or-nothing unit of work; no partial ledger state is ever
// observable.
type Service struct {
	ds       Datastore
	engine   *Engine
	resolver *cashback.Resolver
	repo     *Repository
	pub      wallet.Publisher
	now      func() time.Time
}

func NewService(ds Datastore, engine *Engine, resolver *cashback.Resolver, repo *Repository, pub wallet.Publisher) *Service {
	return &Service{
		ds:       ds,
		engine:   engine,
		resolver: resolver,
		repo:     repo,
		pub:      pub,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) publish(ts []*wallet.Transaction) {
	if s.pub == nil {
		return
	}
	for _, t := range ts {
		s.pub.PublishTransaction(t)
	}
}

// payerContext is what the payment step resolved: the locked wallet, its
// owner for cashback attribution and the custom-wallet policy override.
type payerContext struct {
	ref         wallet.Ref
	ownerID     uuid.UUID
	balance     int64
	allowNeg    bool
	active      bool
	customOverr *wallet.CustomWallet
}

func (s *Service) resolvePayer(ctx context.Context, tx Tx, actor uuid.UUID, subscriberID uuid.UUID, override *wallet.Ref) (*payerContext, error) {
	if override == nil {
		w, err := tx.Wallets().UserWalletByOwnerForUpdate(ctx, subscriberID)
		if err != nil {
			return nil, err
		}
		return &payerContext{
			ref:      w.Ref(),
			ownerID:  w.UserID,
			balance:  w.Balance,
			allowNeg: w.AllowNegative,
			active:   w.Status == wallet.WalletActive,
		}, nil
	}

	switch override.Kind {
	case wallet.KindUser:
		w, err := tx.Wallets().UserWalletForUpdate(ctx, override.ID)
		if err != nil {
			return nil, err
		}
		return &payerContext{
			ref:      w.Ref(),
			ownerID:  w.UserID,
			balance:  w.Balance,
			allowNeg: w.AllowNegative,
			active:   w.Status == wallet.WalletActive,
		}, nil
	case wallet.KindCustom:
		w, err := tx.Wallets().CustomWalletForUpdate(ctx, override.ID)
		if err != nil {
			return nil, err
		}
		// Pooled wallets have no single owner; cashback attributes to the
		// acting agent.
		return &payerContext{
			ref:         w.Ref(),
			ownerID:     actor,
			balance:     w.Balance,
			allowNeg:    w.AllowNegative,
			active:      w.Status == wallet.WalletActive,
			customOverr: w,
		}, nil
	default:
		return nil, wallet.ErrInvalidWalletKind
	}
}

// Create runs the full activation: payment, cashback, distribution,
// expiration, subscriber update and the summary records, committed as one
// transaction tagged with a single group id.
func (s *Service) Create(ctx context.Context, actor uuid.UUID, req CreateRequest) (*Result, error) {
	now := s.now()

	tx, err := s.ds.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Step 1: subscriber and effective profiles.
	sub, err := tx.Subscribers().GetForUpdate(ctx, req.SubscriberID)
	if err != nil {
		return nil, err
	}

	radiusProfileID := sub.RadiusProfileID
	if req.RadiusProfileID != nil {
		radiusProfileID = *req.RadiusProfileID
	}
	billingProfileID := sub.BillingProfileID
	if req.BillingProfileID != nil {
		billingProfileID = *req.BillingProfileID
	}

	if _, err := tx.Profiles().RadiusProfile(ctx, radiusProfileID); err != nil {
		return nil, err
	}
	bp, err := tx.Profiles().BillingProfile(ctx, billingProfileID)
	if err != nil {
		return nil, err
	}

	amount := bp.Price
	if req.Amount != nil {
		amount = *req.Amount
	}
	duration := bp.DurationDays
	if req.DurationDays != nil {
		duration = *req.DurationDays
	}
	if amount < 0 || (req.PaymentMethod == PaymentWallet && amount <= 0) {
		return nil, wallet.ErrInvalidAmount
	}

	// Steps 2-3: the summary header is the anchor everything references,
	// and one group id spans the whole activation.
	groupID := uuid.New()
	billing := &BillingActivation{
		ID:                 uuid.New(),
		SubscriberID:       sub.ID,
		Amount:             amount,
		Type:               req.Type,
		Status:             StatusProcessing,
		PaymentMethod:      req.PaymentMethod,
		RadiusProfileID:    radiusProfileID,
		BillingProfileID:   billingProfileID,
		TransactionGroupID: groupID,
		CreatedBy:          actor,
		CreatedAt:          now,
	}
	if err := tx.Activations().CreateBilling(ctx, billing); err != nil {
		return nil, err
	}

	// Step 4: wallet payment, cashback and distribution.
	prevBalance := sub.Balance
	newBalance := sub.Balance
	var cashbackTotal int64
	var produced []*wallet.Transaction

	if req.PaymentMethod == PaymentWallet {
		payer, err := s.resolvePayer(ctx, tx, actor, sub.ID, req.PayerWallet)
		if err != nil {
			return nil, err
		}
		if !payer.active {
			return nil, wallet.ErrWalletInactive
		}
		if !payer.allowNeg && payer.balance < amount {
			return nil, &wallet.InsufficientBalanceError{Wallet: payer.ref, Short: amount - payer.balance}
		}

		paymentTx, err := tx.Wallets().Apply(ctx, wallet.Entry{
			Wallet:              payer.ref,
			Amount:              amount,
			AmountType:          wallet.AmountDebit,
			Type:                wallet.TypePayment,
			GroupID:             &groupID,
			BillingActivationID: &billing.ID,
			Description:         "service activation payment",
			Actor:               actor,
		})
		if err != nil {
			return nil, err
		}
		billing.PaymentTransactionID = &paymentTx.ID
		prevBalance = paymentTx.BalanceBefore
		newBalance = paymentTx.BalanceAfter
		produced = append(produced, paymentTx)

		var instantCashback int64
		res, err := s.resolver.Resolve(ctx, payer.ownerID, billingProfileID)
		if err != nil {
			return nil, err
		}
		if res.Amount > 0 {
			policy := s.resolver.PolicyFor(payer.customOverr)
			cbTx, err := s.applyCashback(ctx, tx, payer.ref, res.Amount, wallet.TypeCashback, policy, groupID, billing.ID, actor)
			if err != nil {
				return nil, err
			}
			if policy.Mode == cashback.ModeInstant {
				instantCashback = res.Amount
				newBalance = cbTx.BalanceAfter
			}
			cashbackTotal += res.Amount
			produced = append(produced, cbTx)
		}

		subRes, err := s.resolver.ResolveSubAgent(ctx, payer.ownerID, billingProfileID)
		if err != nil {
			return nil, err
		}
		if subRes.Amount > 0 {
			supWallet, err := tx.Wallets().UserWalletByOwnerForUpdate(ctx, subRes.SupervisorID)
			if err != nil {
				return nil, err
			}
			saTx, err := s.applyCashback(ctx, tx, supWallet.Ref(), subRes.Amount, wallet.TypeSubAgentCashback, s.resolver.Default(), groupID, billing.ID, actor)
			if err != nil {
				return nil, err
			}
			cashbackTotal += subRes.Amount
			produced = append(produced, saTx)
		}

		outcome, err := s.engine.Distribute(ctx, tx, DistributionInput{
			Amount:              amount,
			RadiusProfileID:     radiusProfileID,
			BillingProfileID:    billingProfileID,
			GroupID:             groupID,
			BillingActivationID: billing.ID,
			InstantCashback:     instantCashback,
			Actor:               actor,
		})
		if err != nil {
			return nil, err
		}
		produced = append(produced, outcome.Transactions...)
	}

	// Step 5: new expiration.
	next := s.nextExpiration(sub.ExpireAt, now, duration, req.NextExpireAt)

	// Step 6: subscriber record.
	prevExpire := sub.ExpireAt
	prevProfile := sub.RadiusProfileID
	prevBillingProfile := sub.BillingProfileID

	sub.ExpireAt = next
	sub.RadiusProfileID = radiusProfileID
	sub.BillingProfileID = billingProfileID
	if req.PaymentMethod == PaymentWallet && req.PayerWallet == nil {
		sub.Balance = newBalance
	}
	if err := tx.Subscribers().Update(ctx, sub); err != nil {
		return nil, err
	}

	// Step 7: the domain effect snapshot, plus the legacy activation_id tag
	// on every ledger row of the group.
	radius := &RadiusActivation{
		ID:                    uuid.New(),
		BillingActivationID:   billing.ID,
		SubscriberID:          sub.ID,
		PreviousExpireAt:      prevExpire,
		CurrentExpireAt:       now,
		NextExpireAt:          next,
		PreviousProfileID:     prevProfile,
		NewProfileID:          radiusProfileID,
		PreviousBillingProfID: prevBillingProfile,
		NewBillingProfID:      billingProfileID,
		PreviousBalance:       prevBalance,
		NewBalance:            newBalance,
		CreatedAt:             now,
	}
	if err := tx.Activations().CreateRadius(ctx, radius); err != nil {
		return nil, err
	}
	if err := tx.Wallets().TagGroupActivation(ctx, groupID, radius.ID); err != nil {
		return nil, err
	}

	// Step 8: finalize the header.
	billing.Status = StatusCompleted
	billing.CashbackTotal = cashbackTotal
	billing.NewExpireAt = next
	billing.CompletedAt = &now
	if err := tx.Activations().UpdateBilling(ctx, billing); err != nil {
		return nil, err
	}

	// Step 9: all or nothing.
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.Info().
		Str("billing_activation_id", billing.ID.String()).
		Str("subscriber_id", sub.ID.String()).
		Str("group_id", groupID.String()).
		Int64("amount", amount).
		Int64("cashback_total", cashbackTotal).
		Time("new_expire_at", next).
		Str("actor", actor.String()).
		Msg("activation completed")
	s.publish(produced)

	return &Result{
		ID:            billing.ID,
		Amount:        amount,
		CashbackTotal: cashbackTotal,
		NewExpireAt:   next,
		Status:        billing.Status,
		GroupID:       groupID,
	}, nil
}

func (s *Service) applyCashback(ctx context.Context, tx Tx, ref wallet.Ref, amount int64, txType wallet.TransactionType, policy cashback.Policy, groupID, billingID, actor uuid.UUID) (*wallet.Transaction, error) {
	entry := wallet.Entry{
		Wallet:              ref,
		Amount:              amount,
		AmountType:          wallet.AmountCredit,
		Type:                txType,
		GroupID:             &groupID,
		BillingActivationID: &billingID,
		Description:         "activation cashback",
		Actor:               actor,
	}

	if policy.Mode == cashback.ModeInstant {
		entry.CashbackStatus = wallet.CashbackCompleted
		return tx.Wallets().Apply(ctx, entry)
	}

	// Collected: the ledger row exists but the balance waits for the claim
	// or approval.
	entry.Status = wallet.StatusPending
	if policy.RequireApproval {
		entry.CashbackStatus = wallet.CashbackWaitingApproval
	} else {
		entry.CashbackStatus = wallet.CashbackPending
	}
	return tx.Wallets().Append(ctx, entry)
}

// nextExpiration implements step 5: an explicit next expiration wins,
// otherwise the duration extends from whichever is later, the current
// expiration or now.
func (s *Service) nextExpiration(current, now time.Time, durationDays int, explicit *time.Time) time.Time {
	if explicit != nil {
		return *explicit
	}
	base := current
	if base.Before(now) {
		base = now
	}
	return base.AddDate(0, 0, durationDays)
}

// Delete rolls an activation back: subscriber state is restored and the
// records are soft-deleted. No compensating ledger entries are written here;
// money reversal is a separate, explicit operation on transactions.
func (s *Service) Delete(ctx context.Context, actor uuid.UUID, billingActivationID uuid.UUID) error {
	now := s.now()

	tx, err := s.ds.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	billing, err := tx.Activations().BillingForUpdate(ctx, billingActivationID)
	if err != nil {
		return err
	}
	if billing.Status == StatusRolledBack {
		return ErrAlreadyRolledBack
	}
	if billing.Status != StatusCompleted {
		return ErrActivationNotFound
	}

	radius, err := tx.Activations().RadiusByBillingID(ctx, billingActivationID)
	if err != nil {
		return err
	}
	// A window that already elapsed was consumed; it cannot be handed back.
	if radius.NextExpireAt.Before(now) {
		return ErrAlreadyConsumed
	}

	sub, err := tx.Subscribers().GetForUpdate(ctx, billing.SubscriberID)
	if err != nil {
		return err
	}
	sub.ExpireAt = radius.PreviousExpireAt
	sub.RadiusProfileID = radius.PreviousProfileID
	sub.BillingProfileID = radius.PreviousBillingProfID
	if err := tx.Subscribers().Update(ctx, sub); err != nil {
		return err
	}

	radius.IsDeleted = true
	radius.DeletedAt = &now
	radius.RestoredAt = nil
	if err := tx.Activations().UpdateRadius(ctx, radius); err != nil {
		return err
	}

	billing.Status = StatusRolledBack
	if err := tx.Activations().UpdateBilling(ctx, billing); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	log.Info().
		Str("billing_activation_id", billing.ID.String()).
		Str("subscriber_id", sub.ID.String()).
		Str("actor", actor.String()).
		Msg("activation rolled back")
	return nil
}

// Restore re-applies a rolled-back activation's next state to the subscriber.
func (s *Service) Restore(ctx context.Context, actor uuid.UUID, billingActivationID uuid.UUID) error {
	now := s.now()

	tx, err := s.ds.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	billing, err := tx.Activations().BillingForUpdate(ctx, billingActivationID)
	if err != nil {
		return err
	}
	if billing.Status != StatusRolledBack {
		return ErrNotRolledBack
	}

	radius, err := tx.Activations().RadiusByBillingID(ctx, billingActivationID)
	if err != nil {
		return err
	}

	sub, err := tx.Subscribers().GetForUpdate(ctx, billing.SubscriberID)
	if err != nil {
		return err
	}
	sub.ExpireAt = radius.NextExpireAt
	sub.RadiusProfileID = radius.NewProfileID
	sub.BillingProfileID = radius.NewBillingProfID
	if err := tx.Subscribers().Update(ctx, sub); err != nil {
		return err
	}

	radius.IsDeleted = false
	radius.DeletedAt = nil
	radius.RestoredAt = &now
	if err := tx.Activations().UpdateRadius(ctx, radius); err != nil {
		return err
	}

	billing.Status = StatusCompleted
	if err := tx.Activations().UpdateBilling(ctx, billing); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	log.Info().
		Str("billing_activation_id", billing.ID.String()).
		Str("actor", actor.String()).
		Msg("activation restored")
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*BillingActivation, *RadiusActivation, error) {
	billing, err := s.repo.Billing(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	radius, err := s.repo.Radius(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return billing, radius, nil
}

func (s *Service) ListBySubscriber(ctx context.Context, subscriberID uuid.UUID, limit, offset int) ([]BillingActivation, error) {
	return s.repo.ListBySubscriber(ctx, subscriberID, limit, offset)
}
