package activation

import (
	"time"

	"github.com/google/uuid"

	"github.com/Ali-Mohammed/openRadius-sub005/internal/domain/wallet"
)

type createActivationRequest struct {
	SubscriberID     uuid.UUID  `json:"subscriber_id" validate:"required"`
	Type             string     `json:"activation_type" validate:"required,oneof=new renew profile_change"`
	PaymentMethod    string     `json:"payment_method" validate:"required,payment_method"`
	Amount           *int64     `json:"amount,omitempty" validate:"omitempty,gt=0"`
	DurationDays     *int       `json:"duration_days,omitempty" validate:"omitempty,gt=0"`
	NextExpireAt     *time.Time `json:"next_expire_at,omitempty"`
	RadiusProfileID  *uuid.UUID `json:"radius_profile_id,omitempty"`
	BillingProfileID *uuid.UUID `json:"billing_profile_id,omitempty"`
	PayerWalletKind  *string    `json:"payer_wallet_kind,omitempty" validate:"omitempty,wallet_kind"`
	PayerWalletID    *uuid.UUID `json:"payer_wallet_id,omitempty" validate:"required_with=PayerWalletKind"`
}

func (r *createActivationRequest) toCreateRequest() (CreateRequest, error) {
	at, err := ParseActivationType(r.Type)
	if err != nil {
		return CreateRequest{}, err
	}
	pm, err := ParsePaymentMethod(r.PaymentMethod)
	if err != nil {
		return CreateRequest{}, err
	}

	req := CreateRequest{
		SubscriberID:     r.SubscriberID,
		Type:             at,
		PaymentMethod:    pm,
		Amount:           r.Amount,
		DurationDays:     r.DurationDays,
		NextExpireAt:     r.NextExpireAt,
		RadiusProfileID:  r.RadiusProfileID,
		BillingProfileID: r.BillingProfileID,
	}
	if r.PayerWalletKind != nil && r.PayerWalletID != nil {
		kind, err := wallet.ParseKind(*r.PayerWalletKind)
		if err != nil {
			return CreateRequest{}, err
		}
		req.PayerWallet = &wallet.Ref{Kind: kind, ID: *r.PayerWalletID}
	}
	return req, nil
}

type activationResponse struct {
	Billing *BillingActivation `json:"billing_activation"`
	Radius  *RadiusActivation  `json:"radius_activation"`
}
