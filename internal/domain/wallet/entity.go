package wallet

import (
	"time"

	"github.com/google/uuid"
)

// Kind discriminates the two wallet tables. Parsed once at the boundary;
// business logic only ever sees the closed type.
type Kind string

const (
	KindUser   Kind = "user"
	KindCustom Kind = "custom"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindUser, KindCustom:
		return Kind(s), nil
	default:
		return "", ErrInvalidWalletKind
	}
}

// AmountType marks a ledger row as a credit or a debit.
type AmountType string

const (
	AmountCredit AmountType = "credit"
	AmountDebit  AmountType = "debit"
)

// Inverse returns the opposite amount type, used when synthesizing reversals.
func (a AmountType) Inverse() AmountType {
	if a == AmountCredit {
		return AmountDebit
	}
	return AmountCredit
}

// Signed returns amount with the sign implied by the amount type.
func (a AmountType) Signed(amount int64) int64 {
	if a == AmountDebit {
		return -amount
	}
	return amount
}

type TransactionType string

const (
	TypePayment          TransactionType = "payment"
	TypeCashback         TransactionType = "cashback"
	TypeSubAgentCashback TransactionType = "sub_agent_cashback"
	TypeTopUp            TransactionType = "topup"
	TypeDistribution     TransactionType = "distribution"
	TypeReversal         TransactionType = "reversal"
	TypeAdjustment       TransactionType = "adjustment"
)

type Status string

const (
	StatusCompleted Status = "completed"
	StatusPending   Status = "pending"
	StatusReversed  Status = "reversed"
)

// CashbackStatus tracks the lifecycle of incentive credits. Collected cashback
// sits in pending/waiting_approval without touching the balance.
type CashbackStatus string

const (
	CashbackNone            CashbackStatus = "none"
	CashbackCompleted       CashbackStatus = "completed"
	CashbackPending         CashbackStatus = "pending"
	CashbackWaitingApproval CashbackStatus = "waiting_approval"
)

type WalletStatus string

const (
	WalletActive   WalletStatus = "active"
	WalletInactive WalletStatus = "inactive"
)

// Ref identifies a wallet across both kinds.
type Ref struct {
	Kind Kind      `json:"kind"`
	ID   uuid.UUID `json:"id"`
}

// UserWallet belongs to one subscriber or agent.
type UserWallet struct {
	ID            uuid.UUID    `db:"id" json:"id"`
	UserID        uuid.UUID    `db:"user_id" json:"user_id"`
	Balance       int64        `db:"current_balance" json:"current_balance"`
	Status        WalletStatus `db:"status" json:"status"`
	AllowNegative bool         `db:"allow_negative_balance" json:"allow_negative_balance"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at" json:"updated_at"`
}

func (w *UserWallet) Ref() Ref { return Ref{Kind: KindUser, ID: w.ID} }

// CustomWallet is a shared pooled account (commission pools, provider payout
// pools). CashbackMode/CashbackRequireApproval, when set, override the global
// cashback policy for credits landing here.
type CustomWallet struct {
	ID                      uuid.UUID    `db:"id" json:"id"`
	Name                    string       `db:"name" json:"name"`
	Balance                 int64        `db:"current_balance" json:"current_balance"`
	Status                  WalletStatus `db:"status" json:"status"`
	AllowNegative           bool         `db:"allow_negative_balance" json:"allow_negative_balance"`
	CashbackMode            *string      `db:"cashback_mode" json:"cashback_mode,omitempty"`
	CashbackRequireApproval *bool        `db:"cashback_require_approval" json:"cashback_require_approval,omitempty"`
	CreatedAt               time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt               time.Time    `db:"updated_at" json:"updated_at"`
}

func (w *CustomWallet) Ref() Ref { return Ref{Kind: KindCustom, ID: w.ID} }

// Transaction is an immutable ledger row. After creation only status and the
// soft-delete flag ever change.
type Transaction struct {
	ID                   uuid.UUID       `db:"id" json:"id"`
	WalletKind           Kind            `db:"wallet_kind" json:"wallet_kind"`
	WalletID             uuid.UUID       `db:"wallet_id" json:"wallet_id"`
	Amount               int64           `db:"amount" json:"amount"`
	AmountType           AmountType      `db:"amount_type" json:"amount_type"`
	BalanceBefore        int64           `db:"balance_before" json:"balance_before"`
	BalanceAfter         int64           `db:"balance_after" json:"balance_after"`
	Type                 TransactionType `db:"transaction_type" json:"transaction_type"`
	Status               Status          `db:"status" json:"status"`
	CashbackStatus       CashbackStatus  `db:"cashback_status" json:"cashback_status"`
	RelatedTransactionID *uuid.UUID      `db:"related_transaction_id" json:"related_transaction_id,omitempty"`
	TransactionGroupID   *uuid.UUID      `db:"transaction_group_id" json:"transaction_group_id,omitempty"`
	BillingActivationID  *uuid.UUID      `db:"billing_activation_id" json:"billing_activation_id,omitempty"`
	ActivationID         *uuid.UUID      `db:"activation_id" json:"activation_id,omitempty"`
	Description          string          `db:"description" json:"description"`
	CreatedBy            uuid.UUID       `db:"created_by" json:"created_by"`
	IsDeleted            bool            `db:"is_deleted" json:"is_deleted"`
	CreatedAt            time.Time       `db:"created_at" json:"created_at"`
}

// ChangedBalance reports whether the row moved money when it was written.
// Collected cashback produces a Transaction with before == after.
func (t *Transaction) ChangedBalance() bool {
	return t.BalanceBefore != t.BalanceAfter
}

// WalletHistory is the append-only audit mirror of a Transaction. Written only
// when the underlying balance numerically changed.
type WalletHistory struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	TransactionID uuid.UUID       `db:"transaction_id" json:"transaction_id"`
	WalletKind    Kind            `db:"wallet_kind" json:"wallet_kind"`
	WalletID      uuid.UUID       `db:"wallet_id" json:"wallet_id"`
	Amount        int64           `db:"amount" json:"amount"`
	AmountType    AmountType      `db:"amount_type" json:"amount_type"`
	BalanceBefore int64           `db:"balance_before" json:"balance_before"`
	BalanceAfter  int64           `db:"balance_after" json:"balance_after"`
	Type          TransactionType `db:"transaction_type" json:"transaction_type"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// Entry describes one ledger write. Amount is always positive; direction comes
// from AmountType.
type Entry struct {
	Wallet               Ref
	Amount               int64
	AmountType           AmountType
	Type                 TransactionType
	Status               Status
	CashbackStatus       CashbackStatus
	RelatedTransactionID *uuid.UUID
	GroupID              *uuid.UUID
	BillingActivationID  *uuid.UUID
	ActivationID         *uuid.UUID
	Description          string
	Actor                uuid.UUID
}

// StatRow is one bucket of the aggregation endpoint.
type StatRow struct {
	Type   TransactionType `db:"transaction_type" json:"transaction_type"`
	Status Status          `db:"status" json:"status"`
	Count  int64           `db:"count" json:"count"`
	Total  int64           `db:"total" json:"total"`
}

// BulkResult is the per-item outcome of a batch delete/restore. Batches are
// deliberately not one transaction; each item commits or fails on its own.
type BulkResult struct {
	ID    uuid.UUID `json:"id"`
	OK    bool      `json:"ok"`
	Error string    `json:"error,omitempty"`
}
