package token

import (
	"errors"
	"time"
)

// Expiration bounds an allowance in time. At most one of the fields may be
// set; the zero value never expires.
type Expiration struct {
	AtHeight uint64 `json:"at_height,omitempty"`
	AtTime   int64  `json:"at_time,omitempty"` // unix seconds
}

// ErrExpirationConflict is returned when both bounds are set.
var ErrExpirationConflict = errors.New("expiration cannot set both height and time")

// Validate rejects expirations with both bounds set.
func (e Expiration) Validate() error {
	if e.AtHeight != 0 && e.AtTime != 0 {
		return ErrExpirationConflict
	}
	return nil
}

// IsNever reports whether the expiration is unbounded.
func (e Expiration) IsNever() bool {
	return e.AtHeight == 0 && e.AtTime == 0
}

// IsExpired evaluates the expiration against a block height and time.
// A bound is expired once the block reaches it.
func (e Expiration) IsExpired(height uint64, blockTime time.Time) bool {
	if e.AtHeight != 0 && height >= e.AtHeight {
		return true
	}
	if e.AtTime != 0 && blockTime.Unix() >= e.AtTime {
		return true
	}
	return false
}
