package activation

import (
	"time"

	"github.com/google/uuid"
)

// ActivationStatus is the orchestrator state machine:
// pending -> processing -> completed | failed, completed -> rolled_back on
// delete, rolled_back -> completed on restore.
type ActivationStatus string

const (
	StatusPending    ActivationStatus = "pending"
	StatusProcessing ActivationStatus = "processing"
	StatusCompleted  ActivationStatus = "completed"
	StatusFailed     ActivationStatus = "failed"
	StatusRolledBack ActivationStatus = "rolled_back"
)

// ActivationType classifies the business event.
type ActivationType string

const (
	TypeNew           ActivationType = "new"
	TypeRenew         ActivationType = "renew"
	TypeProfileChange ActivationType = "profile_change"
)

func ParseActivationType(s string) (ActivationType, error) {
	switch ActivationType(s) {
	case TypeNew, TypeRenew, TypeProfileChange:
		return ActivationType(s), nil
	default:
		return "", ErrInvalidActivationType
	}
}

// PaymentMethod selects how the activation is funded. Cash activations touch
// no wallet.
type PaymentMethod string

const (
	PaymentWallet PaymentMethod = "wallet"
	PaymentCash   PaymentMethod = "cash"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(s) {
	case PaymentWallet, PaymentCash:
		return PaymentMethod(s), nil
	default:
		return "", ErrInvalidPaymentMethod
	}
}

// BillingActivation is the per-activation summary header. It is created
// first, with status processing, and every other record of the activation
// references it.
type BillingActivation struct {
	ID                   uuid.UUID        `db:"id" json:"id"`
	SubscriberID         uuid.UUID        `db:"subscriber_id" json:"subscriber_id"`
	Amount               int64            `db:"amount" json:"amount"`
	CashbackTotal        int64            `db:"cashback_total" json:"cashback_total"`
	Type                 ActivationType   `db:"activation_type" json:"activation_type"`
	Status               ActivationStatus `db:"status" json:"status"`
	PaymentMethod        PaymentMethod    `db:"payment_method" json:"payment_method"`
	RadiusProfileID      uuid.UUID        `db:"radius_profile_id" json:"radius_profile_id"`
	BillingProfileID     uuid.UUID        `db:"billing_profile_id" json:"billing_profile_id"`
	TransactionGroupID   uuid.UUID        `db:"transaction_group_id" json:"transaction_group_id"`
	PaymentTransactionID *uuid.UUID       `db:"payment_transaction_id" json:"payment_transaction_id,omitempty"`
	NewExpireAt          time.Time        `db:"new_expire_at" json:"new_expire_at"`
	CreatedBy            uuid.UUID        `db:"created_by" json:"created_by"`
	CreatedAt            time.Time        `db:"created_at" json:"created_at"`
	CompletedAt          *time.Time       `db:"completed_at" json:"completed_at,omitempty"`
}

// RadiusActivation is the subscriber-facing effect of one BillingActivation:
// the before/after snapshot needed for exact rollback and restore.
type RadiusActivation struct {
	ID                    uuid.UUID  `db:"id" json:"id"`
	BillingActivationID   uuid.UUID  `db:"billing_activation_id" json:"billing_activation_id"`
	SubscriberID          uuid.UUID  `db:"subscriber_id" json:"subscriber_id"`
	PreviousExpireAt      time.Time  `db:"previous_expire_at" json:"previous_expire_at"`
	CurrentExpireAt       time.Time  `db:"current_expire_at" json:"current_expire_at"`
	NextExpireAt          time.Time  `db:"next_expire_at" json:"next_expire_at"`
	PreviousProfileID     uuid.UUID  `db:"previous_profile_id" json:"previous_profile_id"`
	NewProfileID          uuid.UUID  `db:"new_profile_id" json:"new_profile_id"`
	PreviousBillingProfID uuid.UUID  `db:"previous_billing_profile_id" json:"previous_billing_profile_id"`
	NewBillingProfID      uuid.UUID  `db:"new_billing_profile_id" json:"new_billing_profile_id"`
	PreviousBalance       int64      `db:"previous_balance" json:"previous_balance"`
	NewBalance            int64      `db:"new_balance" json:"new_balance"`
	IsDeleted             bool       `db:"is_deleted" json:"is_deleted"`
	DeletedAt             *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
	RestoredAt            *time.Time `db:"restored_at" json:"restored_at,omitempty"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
}

// Result is what CreateActivation hands back to the API.
type Result struct {
	ID            uuid.UUID        `json:"id"`
	Amount        int64            `json:"amount"`
	CashbackTotal int64            `json:"cashback_total"`
	NewExpireAt   time.Time        `json:"new_expire_at"`
	Status        ActivationStatus `json:"status"`
	GroupID       uuid.UUID        `json:"transaction_group_id"`
}
