package activation

import "errors"

var (
	ErrInvalidActivationType = errors.New("invalid activation type")
	ErrInvalidPaymentMethod  = errors.New("invalid payment method")
	ErrActivationNotFound    = errors.New("activation not found")
	ErrAlreadyConsumed       = errors.New("activation period already consumed")
	ErrNotRolledBack         = errors.New("activation is not rolled back")
	ErrAlreadyRolledBack     = errors.New("activation already rolled back")
)
