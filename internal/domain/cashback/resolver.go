package cashback

import (
	"context"

	"github.com/google/uuid"

	"github.com/Ali-Mohammed/openRadius-sub005/internal/domain/wallet"
)

// Resolver determines the cashback owed for one activation. Individual
// overrides win over group-assigned amounts; sub-agent cashback is an
// independent credit to the supervisor.
type Resolver struct {
	store         Store
	defaultPolicy Policy
}

func NewResolver(store Store, defaultPolicy Policy) *Resolver {
	return &Resolver{store: store, defaultPolicy: defaultPolicy}
}

// Resolve returns the primary cashback for the payer on this billing profile.
func (r *Resolver) Resolve(ctx context.Context, payerID, billingProfileID uuid.UUID) (Resolution, error) {
	if amount, err := r.store.UserAmount(ctx, payerID, billingProfileID); err != nil {
		return Resolution{}, err
	} else if amount != nil {
		return Resolution{Amount: *amount, Source: SourceIndividual}, nil
	}

	if amount, err := r.store.GroupAmount(ctx, payerID, billingProfileID); err != nil {
		return Resolution{}, err
	} else if amount != nil {
		return Resolution{Amount: *amount, Source: SourceGroup}, nil
	}

	return Resolution{Source: SourceNone}, nil
}

// ResolveSubAgent returns the supervisor's cut when the payer is somebody's
// sub-agent. A zero-value resolution means nothing is owed.
func (r *Resolver) ResolveSubAgent(ctx context.Context, payerID, billingProfileID uuid.UUID) (SubAgentResolution, error) {
	supervisorID, err := r.store.Supervisor(ctx, payerID)
	if err != nil {
		return SubAgentResolution{}, err
	}
	if supervisorID == nil {
		return SubAgentResolution{}, nil
	}

	amount, err := r.store.SubAgentAmount(ctx, *supervisorID, payerID, billingProfileID)
	if err != nil {
		return SubAgentResolution{}, err
	}
	if amount == nil {
		return SubAgentResolution{}, nil
	}
	return SubAgentResolution{Amount: *amount, SupervisorID: *supervisorID}, nil
}

// PolicyFor returns the effective policy for cashback landing on the given
// custom wallet, falling back to the global default. Pass nil for user
// wallets; they never carry an override.
func (r *Resolver) PolicyFor(w *wallet.CustomWallet) Policy {
	if w == nil || w.CashbackMode == nil {
		return r.defaultPolicy
	}

	mode, err := ParseMode(*w.CashbackMode)
	if err != nil {
		return r.defaultPolicy
	}

	policy := Policy{Mode: mode, RequireApproval: r.defaultPolicy.RequireApproval}
	if w.CashbackRequireApproval != nil {
		policy.RequireApproval = *w.CashbackRequireApproval
	}
	return policy
}

// Default returns the global policy.
func (r *Resolver) Default() Policy {
	return r.defaultPolicy
}
