package contract

import "errors"

// Contract errors. Every rejected precondition maps to exactly one of these
// so callers can branch with errors.Is; any error aborts the invocation and
// the host discards every buffered write.
var (
	ErrInvalidAddress        = errors.New("invalid address")
	ErrZeroAmount            = errors.New("amount must be positive")
	ErrOverflow              = errors.New("arithmetic overflow")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrNoAllowance           = errors.New("no allowance for this account")
	ErrExpired               = errors.New("allowance is expired")
	ErrCapExceeded           = errors.New("minting would exceed the cap")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrNoMinter              = errors.New("minting permanently revoked")
	ErrDuplicateAccount      = errors.New("duplicate initial account")

	// ErrInvalidInput covers malformed non-ledger input: token metadata,
	// logos, conflicting expirations.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is returned by queries for absent optional state.
	ErrNotFound = errors.New("not found")

	// ErrReceiveRejected is returned by the host when a recipient contract
	// rejects a send notification, rolling back the invocation.
	ErrReceiveRejected = errors.New("receive rejected by recipient")
)

// ErrorCode returns the stable taxonomy name for err, for event logs and
// API payloads. Unknown errors report as "internal".
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidAddress):
		return "invalid_address"
	case errors.Is(err, ErrZeroAmount):
		return "zero_amount"
	case errors.Is(err, ErrOverflow):
		return "overflow"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrInsufficientAllowance):
		return "insufficient_allowance"
	case errors.Is(err, ErrNoAllowance):
		return "no_allowance"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrCapExceeded):
		return "cap_exceeded"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNoMinter):
		return "no_minter"
	case errors.Is(err, ErrDuplicateAccount):
		return "duplicate_account"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrReceiveRejected):
		return "receive_rejected"
	default:
		return "internal"
	}
}
