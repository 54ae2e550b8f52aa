package cashback

import (
	"context"

	"github.com/google/uuid"
)

// Store reads the cashback rule tables. All methods return (nil, nil) when no
// rule matches; rules never mutate inside an activation.
type Store interface {
	// UserAmount returns the individual override for (user, billing profile).
	UserAmount(ctx context.Context, userID, billingProfileID uuid.UUID) (*int64, error)
	// GroupAmount returns the payer's group amount for the billing profile.
	GroupAmount(ctx context.Context, userID, billingProfileID uuid.UUID) (*int64, error)
	// Supervisor returns the payer's supervisor, if any.
	Supervisor(ctx context.Context, userID uuid.UUID) (*uuid.UUID, error)
	// SubAgentAmount returns what the supervisor earns for this sub-agent and
	// billing profile.
	SubAgentAmount(ctx context.Context, supervisorID, subAgentID, billingProfileID uuid.UUID) (*int64, error)
}
