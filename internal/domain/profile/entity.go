package profile

import (
	"time"

	"github.com/google/uuid"
)

// Direction routes a billing-profile distribution rule.
type Direction string

const (
	// DirectionOut deducts a fixed amount from the pooled wallet.
	DirectionOut Direction = "out"
	// DirectionIn credits a fixed amount to the pooled wallet.
	DirectionIn Direction = "in"
	// DirectionRemaining receives whatever is left after all other
	// allocations.
	DirectionRemaining Direction = "remaining"
)

func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionOut, DirectionIn, DirectionRemaining:
		return Direction(s), nil
	default:
		return "", ErrInvalidDirection
	}
}

// RadiusProfile is the service profile pushed to the NAS. Inventory CRUD is
// out of scope here; the billing engine only reads it.
type RadiusProfile struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// BillingProfile prices an activation and defines its default duration.
type BillingProfile struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Price        int64     `db:"price" json:"price"`
	DurationDays int       `db:"duration_days" json:"duration_days"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// RadiusProfileWallet is a fixed credit tied to a RADIUS profile; every
// activation on the profile deposits Amount into the custom wallet.
type RadiusProfileWallet struct {
	ID              uuid.UUID `db:"id" json:"id"`
	RadiusProfileID uuid.UUID `db:"radius_profile_id" json:"radius_profile_id"`
	CustomWalletID  uuid.UUID `db:"custom_wallet_id" json:"custom_wallet_id"`
	Amount          int64     `db:"amount" json:"amount"`
}

// BillingProfileWallet is one ordered distribution rule of a billing profile.
type BillingProfileWallet struct {
	ID               uuid.UUID `db:"id" json:"id"`
	BillingProfileID uuid.UUID `db:"billing_profile_id" json:"billing_profile_id"`
	CustomWalletID   uuid.UUID `db:"custom_wallet_id" json:"custom_wallet_id"`
	Direction        Direction `db:"direction" json:"direction"`
	DisplayOrder     int       `db:"display_order" json:"display_order"`
	Amount           int64     `db:"amount" json:"amount"`
}
