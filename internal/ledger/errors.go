package ledger

import "errors"

// Error kinds returned by the ledger. Callers match them with errors.Is.
var (
	ErrInvalidQuantityFormat = errors.New("invalid quantity format")
	ErrPrecisionExceeded     = errors.New("quantity has more than 4 decimal places")
	ErrUnsupportedAsset      = errors.New("unsupported asset")
	ErrQuoteUnavailable      = errors.New("quote unavailable")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	// ErrMutationConflict is transient: the balances moved under the transfer. Safe to retry.
	ErrMutationConflict   = errors.New("balance mutation conflict")
	ErrProvisioningFailed = errors.New("account provisioning failed")
	ErrAccountNotFound    = errors.New("account not found")
	ErrAccountExists      = errors.New("account already exists")
)
