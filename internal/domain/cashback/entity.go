package cashback

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidMode = errors.New("invalid cashback mode")

// Mode selects when a resolved cashback amount reaches the wallet balance.
type Mode string

const (
	// ModeInstant credits the wallet inside the activation transaction.
	ModeInstant Mode = "instant"
	// ModeCollected records the cashback but defers the balance credit until
	// it is claimed or approved.
	ModeCollected Mode = "collected"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeInstant, ModeCollected:
		return Mode(s), nil
	default:
		return "", ErrInvalidMode
	}
}

// Source says which rule produced the amount.
type Source string

const (
	SourceIndividual Source = "individual"
	SourceGroup      Source = "group"
	SourceNone       Source = "none"
)

// Policy is the effective application mode for one credit.
type Policy struct {
	Mode            Mode
	RequireApproval bool
}

// Resolution is the outcome of the primary cashback lookup.
type Resolution struct {
	Amount int64
	Source Source
}

// SubAgentResolution is the secondary cashback owed to a payer's supervisor.
type SubAgentResolution struct {
	Amount       int64
	SupervisorID uuid.UUID
}

// UserCashback is a per-user override keyed by billing profile.
type UserCashback struct {
	ID               uuid.UUID `db:"id"`
	UserID           uuid.UUID `db:"user_id"`
	BillingProfileID uuid.UUID `db:"billing_profile_id"`
	Amount           int64     `db:"amount"`
	CreatedAt        time.Time `db:"created_at"`
}

// CashbackGroup assigns shared amounts to a set of users.
type CashbackGroup struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

type CashbackGroupUser struct {
	GroupID uuid.UUID `db:"group_id"`
	UserID  uuid.UUID `db:"user_id"`
}

// CashbackProfileAmount is a group's amount for one billing profile.
type CashbackProfileAmount struct {
	GroupID          uuid.UUID `db:"group_id"`
	BillingProfileID uuid.UUID `db:"billing_profile_id"`
	Amount           int64     `db:"amount"`
}

// SubAgentCashback is what a supervisor earns when one of their sub-agents
// transacts on a billing profile.
type SubAgentCashback struct {
	ID               uuid.UUID `db:"id"`
	SupervisorID     uuid.UUID `db:"supervisor_id"`
	SubAgentID       uuid.UUID `db:"sub_agent_id"`
	BillingProfileID uuid.UUID `db:"billing_profile_id"`
	Amount           int64     `db:"amount"`
}
