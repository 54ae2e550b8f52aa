package activation

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Ali-Mohammed/openRadius-sub005/internal/domain/profile"
	"github.com/Ali-Mohammed/openRadius-sub005/internal/domain/wallet"
)

// DistributionInput carries everything the engine needs; it never reaches
// outside the unit of work it is given.
type DistributionInput struct {
	Amount              int64
	RadiusProfileID     uuid.UUID
	BillingProfileID    uuid.UUID
	GroupID             uuid.UUID
	BillingActivationID uuid.UUID
	// InstantCashback is the portion of cashback already credited inside
	// this activation. Collected cashback has not left the payer's accounted
	// funds and must not reduce the remaining amount.
	InstantCashback int64
	Actor           uuid.UUID
}

// DistributionOutcome reports the running totals of the four stages.
type DistributionOutcome struct {
	RadiusProfileWalletTotal int64
	TotalOutAmount           int64
	TotalInAmount            int64
	Remaining                int64
	Transactions             []*wallet.Transaction
}

// Engine applies the four-stage distribution of an activation amount. The
// stage order is part of the audit contract: RADIUS-profile deposits, then
// billing "out" deductions, then billing "in" credits, then the remaining
// amount. Identical inputs must always produce the identical transaction
// sequence.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

func (e *Engine) Distribute(ctx context.Context, tx Tx, in DistributionInput) (*DistributionOutcome, error) {
	out := &DistributionOutcome{}

	entry := func(walletID uuid.UUID, amount int64, at wallet.AmountType, desc string) wallet.Entry {
		return wallet.Entry{
			Wallet:              wallet.Ref{Kind: wallet.KindCustom, ID: walletID},
			Amount:              amount,
			AmountType:          at,
			Type:                wallet.TypeDistribution,
			GroupID:             &in.GroupID,
			BillingActivationID: &in.BillingActivationID,
			Description:         desc,
			Actor:               in.Actor,
		}
	}

	// Stage 1: fixed deposits linked to the RADIUS profile.
	radiusRules, err := tx.Profiles().RadiusProfileWallets(ctx, in.RadiusProfileID)
	if err != nil {
		return nil, err
	}
	for _, rule := range radiusRules {
		if rule.Amount <= 0 {
			continue
		}
		t, err := tx.Wallets().Apply(ctx, entry(rule.CustomWalletID, rule.Amount, wallet.AmountCredit, "radius profile wallet deposit"))
		if err != nil {
			return nil, err
		}
		out.RadiusProfileWalletTotal += rule.Amount
		out.Transactions = append(out.Transactions, t)
	}

	// Stage 2: billing "out" deductions, in display order.
	outRules, err := tx.Profiles().BillingProfileWallets(ctx, in.BillingProfileID, profile.DirectionOut)
	if err != nil {
		return nil, err
	}
	for _, rule := range outRules {
		if rule.Amount <= 0 {
			continue
		}
		t, err := tx.Wallets().Apply(ctx, entry(rule.CustomWalletID, rule.Amount, wallet.AmountDebit, "billing profile out deduction"))
		if err != nil {
			return nil, err
		}
		out.TotalOutAmount += rule.Amount
		out.Transactions = append(out.Transactions, t)
	}

	// Stage 3: billing "in" fixed credits.
	inRules, err := tx.Profiles().BillingProfileWallets(ctx, in.BillingProfileID, profile.DirectionIn)
	if err != nil {
		return nil, err
	}
	for _, rule := range inRules {
		if rule.Amount <= 0 {
			continue
		}
		t, err := tx.Wallets().Apply(ctx, entry(rule.CustomWalletID, rule.Amount, wallet.AmountCredit, "billing profile in credit"))
		if err != nil {
			return nil, err
		}
		out.TotalInAmount += rule.Amount
		out.Transactions = append(out.Transactions, t)
	}

	// Stage 4: whatever is left after all allocations.
	out.Remaining = in.Amount - out.RadiusProfileWalletTotal - out.TotalInAmount - in.InstantCashback
	if out.Remaining > 0 {
		remainingRules, err := tx.Profiles().BillingProfileWallets(ctx, in.BillingProfileID, profile.DirectionRemaining)
		if err != nil {
			return nil, err
		}
		for _, rule := range remainingRules {
			t, err := tx.Wallets().Apply(ctx, entry(rule.CustomWalletID, out.Remaining, wallet.AmountCredit, "billing profile remaining credit"))
			if err != nil {
				return nil, err
			}
			out.Transactions = append(out.Transactions, t)
		}
	}

	log.Debug().
		Str("billing_activation_id", in.BillingActivationID.String()).
		Int64("radius_profile_wallet_total", out.RadiusProfileWalletTotal).
		Int64("total_in", out.TotalInAmount).
		Int64("remaining", out.Remaining).
		Int("transactions", len(out.Transactions)).
		Msg("distribution applied")
	return out, nil
}
