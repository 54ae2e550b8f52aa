package wallet

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidWalletKind   = errors.New("invalid wallet kind")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrWalletInactive      = errors.New("wallet is inactive")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrAlreadyReversed     = errors.New("transaction already reversed")
	ErrNotReversed         = errors.New("transaction is not reversed")
	ErrInternal            = errors.New("internal wallet error")
)

// InsufficientBalanceError carries the exact shortage so callers can surface
// it to the client.
type InsufficientBalanceError struct {
	Wallet Ref
	Short  int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance on %s wallet %s: short %d", e.Wallet.Kind, e.Wallet.ID, e.Short)
}
