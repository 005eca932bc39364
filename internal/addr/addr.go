package addr

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Validate checks that s is a well-formed account address.
func Validate(s string) error {
	if !common.IsHexAddress(s) {
		return fmt.Errorf("not a hex address: %q", s)
	}
	return nil
}

// Canonical validates s and returns its canonical (EIP-55 checksummed)
// form. All ledger keys are derived from the canonical form so that two
// spellings of the same address always hit the same entry.
func Canonical(s string) (string, error) {
	if err := Validate(s); err != nil {
		return "", err
	}
	return common.HexToAddress(s).Hex(), nil
}
