package token

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// amountBits is the width of a ledger amount. Balances, allowances and the
// total supply all fit in 128 bits; arithmetic runs on 256-bit integers and
// rejects any result that no longer fits.
const amountBits = 128

var (
	// ErrAmountRange is returned when a value does not fit in 128 bits.
	ErrAmountRange = errors.New("amount exceeds 128 bits")
	// ErrAmountUnderflow is returned when a subtraction would go negative.
	ErrAmountUnderflow = errors.New("amount underflow")
)

// Amount is an unsigned 128-bit token quantity. The zero value is zero.
// JSON encoding is a decimal string so that values survive encoders that
// round large numbers.
type Amount struct {
	v uint256.Int
}

// NewAmount returns the amount for a uint64 value.
func NewAmount(u uint64) Amount {
	var a Amount
	a.v.SetUint64(u)
	return a
}

// ParseAmount parses a decimal string into an Amount.
func ParseAmount(s string) (Amount, error) {
	var a Amount
	if err := a.v.SetFromDecimal(s); err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if a.v.BitLen() > amountBits {
		return Amount{}, ErrAmountRange
	}
	return a, nil
}

// Add returns a+b, or ErrAmountRange if the sum does not fit in 128 bits.
func (a Amount) Add(b Amount) (Amount, error) {
	var sum Amount
	if _, overflow := sum.v.AddOverflow(&a.v, &b.v); overflow || sum.v.BitLen() > amountBits {
		return Amount{}, ErrAmountRange
	}
	return sum, nil
}

// Sub returns a-b, or ErrAmountUnderflow if b > a.
func (a Amount) Sub(b Amount) (Amount, error) {
	var diff Amount
	if _, underflow := diff.v.SubOverflow(&a.v, &b.v); underflow {
		return Amount{}, ErrAmountUnderflow
	}
	return diff, nil
}

// Cmp returns -1, 0 or 1 comparing a to b.
func (a Amount) Cmp(b Amount) int {
	return a.v.Cmp(&b.v)
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool {
	return a.v.IsZero()
}

// String returns the decimal representation.
func (a Amount) String() string {
	return a.v.Dec()
}

// Display renders the amount scaled by the token's decimal precision,
// e.g. 1234500 with 6 decimals renders "1.2345".
func (a Amount) Display(decimals uint8) string {
	return decimal.NewFromBigInt(a.v.ToBig(), -int32(decimals)).String()
}

// MarshalJSON encodes the amount as a decimal string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.v.Dec() + `"`), nil
}

// UnmarshalJSON decodes a decimal string (quoted or bare).
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
