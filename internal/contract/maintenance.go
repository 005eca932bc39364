package contract

import (
	"encoding/json"
	"fmt"

	"github.com/matrixise/tokend/internal/state"
	"github.com/matrixise/tokend/internal/token"
)

// PruneExpired removes allowance records whose expiration has passed.
// Spending paths re-check expiration on every use, so pruning is purely a
// storage reclamation; the host runs it on a schedule in its own
// transaction. Returns the number of records removed.
func PruneExpired(kv state.KV, env Env) int {
	var expired [][]byte
	kv.Iterate([]byte{prefixAllowance}, func(key, value []byte) bool {
		var rec allowanceRecord
		if err := json.Unmarshal(value, &rec); err != nil {
			return true
		}
		if rec.Expires.IsExpired(env.Height, env.Time) {
			k := make([]byte, len(key))
			copy(k, key)
			expired = append(expired, k)
		}
		return true
	})
	for _, key := range expired {
		kv.Delete(key)
	}
	return len(expired)
}

// AuditSupply recomputes the sum of all balances and compares it with the
// stored total supply. Transfer never touches supply and Mint/Burn move it
// in lockstep with a balance, so any mismatch means corrupt state.
func AuditSupply(kv state.KV) error {
	var sum token.Amount
	var sumErr error
	kv.Iterate([]byte{prefixBalance}, func(key, value []byte) bool {
		bal, err := token.ParseAmount(string(value))
		if err != nil {
			sumErr = fmt.Errorf("corrupt balance at %q: %w", key, err)
			return false
		}
		sum, err = sum.Add(bal)
		if err != nil {
			sumErr = fmt.Errorf("balance sum overflow: %w", err)
			return false
		}
		return true
	})
	if sumErr != nil {
		return sumErr
	}

	supply := getTotalSupply(kv)
	if sum.Cmp(supply) != 0 {
		return fmt.Errorf("supply invariant violated: stored %s, balances sum to %s", supply, sum)
	}
	return nil
}

// Instantiated reports whether the token has been established.
func Instantiated(kv state.KV) bool {
	_, ok := kv.Get(tokenInfoKey)
	return ok
}
