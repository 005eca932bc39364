package contract

import (
	"encoding/json"
	"fmt"

	"github.com/matrixise/tokend/internal/state"
	"github.com/matrixise/tokend/internal/token"
)

// Keyspace layout: single-byte prefixes, address parts separated by a NUL
// (canonical addresses are hex strings and never contain one).
//
//	0x00                           -> tokenInfo
//	0x01                           -> total supply
//	0x02 | account                 -> balance
//	0x03 | owner | 0x00 | spender  -> allowance record
//	0x04                           -> marketing info
//	0x05                           -> logo
const (
	prefixTokenInfo   byte = 0x00
	prefixTotalSupply byte = 0x01
	prefixBalance     byte = 0x02
	prefixAllowance   byte = 0x03
	prefixMarketing   byte = 0x04
	prefixLogo        byte = 0x05
)

var (
	tokenInfoKey   = []byte{prefixTokenInfo}
	totalSupplyKey = []byte{prefixTotalSupply}
	marketingKey   = []byte{prefixMarketing}
	logoKey        = []byte{prefixLogo}
)

func balanceKey(account string) []byte {
	return append([]byte{prefixBalance}, account...)
}

func allowancePrefix(owner string) []byte {
	key := append([]byte{prefixAllowance}, owner...)
	return append(key, 0x00)
}

func allowanceKey(owner, spender string) []byte {
	return append(allowancePrefix(owner), spender...)
}

// tokenInfo is the metadata record, immutable after instantiation except
// for the minter, which may be reassigned by itself or revoked for good.
type tokenInfo struct {
	Name     string       `json:"name"`
	Symbol   string       `json:"symbol"`
	Decimals uint8        `json:"decimals"`
	Mint     *minterState `json:"mint,omitempty"`
}

// minterState keeps the cap after revocation so historical queries stay
// meaningful; Revoked distinguishes "revoked" from "never configured".
type minterState struct {
	Minter  string        `json:"minter,omitempty"`
	Cap     *token.Amount `json:"cap,omitempty"`
	Revoked bool          `json:"revoked,omitempty"`
}

type allowanceRecord struct {
	Allowance token.Amount     `json:"allowance"`
	Expires   token.Expiration `json:"expires"`
}

type marketingState struct {
	Project     string `json:"project,omitempty"`
	Description string `json:"description,omitempty"`
	Marketing   string `json:"marketing,omitempty"`
}

func loadTokenInfo(kv state.KV) (*tokenInfo, error) {
	raw, ok := kv.Get(tokenInfoKey)
	if !ok {
		return nil, fmt.Errorf("%w: token not instantiated", ErrUnauthorized)
	}
	var info tokenInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("corrupt token info: %w", err)
	}
	return &info, nil
}

func saveTokenInfo(kv state.KV, info *tokenInfo) error {
	raw, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encode token info: %w", err)
	}
	kv.Set(tokenInfoKey, raw)
	return nil
}

func getTotalSupply(kv state.KV) token.Amount {
	raw, ok := kv.Get(totalSupplyKey)
	if !ok {
		return token.Amount{}
	}
	supply, err := token.ParseAmount(string(raw))
	if err != nil {
		return token.Amount{}
	}
	return supply
}

func setTotalSupply(kv state.KV, supply token.Amount) {
	kv.Set(totalSupplyKey, []byte(supply.String()))
}

// getBalance treats an absent entry as zero.
func getBalance(kv state.KV, account string) token.Amount {
	raw, ok := kv.Get(balanceKey(account))
	if !ok {
		return token.Amount{}
	}
	bal, err := token.ParseAmount(string(raw))
	if err != nil {
		return token.Amount{}
	}
	return bal
}

// setBalance removes the entry when the balance hits zero, so iteration over
// the balance prefix yields exactly the set of holders.
func setBalance(kv state.KV, account string, bal token.Amount) {
	if bal.IsZero() {
		kv.Delete(balanceKey(account))
		return
	}
	kv.Set(balanceKey(account), []byte(bal.String()))
}

func loadAllowance(kv state.KV, owner, spender string) (allowanceRecord, bool) {
	raw, ok := kv.Get(allowanceKey(owner, spender))
	if !ok {
		return allowanceRecord{}, false
	}
	var rec allowanceRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return allowanceRecord{}, false
	}
	return rec, true
}

// saveAllowance keeps the zero-remaining == absent equivalence by deleting
// emptied records.
func saveAllowance(kv state.KV, owner, spender string, rec allowanceRecord) error {
	if rec.Allowance.IsZero() {
		kv.Delete(allowanceKey(owner, spender))
		return nil
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode allowance: %w", err)
	}
	kv.Set(allowanceKey(owner, spender), raw)
	return nil
}

func loadMarketing(kv state.KV) (marketingState, bool) {
	raw, ok := kv.Get(marketingKey)
	if !ok {
		return marketingState{}, false
	}
	var m marketingState
	if err := json.Unmarshal(raw, &m); err != nil {
		return marketingState{}, false
	}
	return m, true
}

func saveMarketing(kv state.KV, m marketingState) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode marketing info: %w", err)
	}
	kv.Set(marketingKey, raw)
	return nil
}
