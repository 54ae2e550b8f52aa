package subscriber

import (
	"time"

	"github.com/google/uuid"
)

// Subscriber is the RADIUS account the billing engine activates. Balance
// mirrors the subscriber's user wallet and is refreshed whenever an
// activation debits it.
type Subscriber struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	Username         string     `db:"username" json:"username"`
	Balance          int64      `db:"balance" json:"balance"`
	ExpireAt         time.Time  `db:"expire_at" json:"expire_at"`
	RadiusProfileID  uuid.UUID  `db:"radius_profile_id" json:"radius_profile_id"`
	BillingProfileID uuid.UUID  `db:"billing_profile_id" json:"billing_profile_id"`
	SupervisorID     *uuid.UUID `db:"supervisor_id" json:"supervisor_id,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}
