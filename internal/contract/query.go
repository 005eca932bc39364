package contract

import (
	"encoding/json"
	"fmt"

	"github.com/matrixise/tokend/internal/addr"
	"github.com/matrixise/tokend/internal/state"
	"github.com/matrixise/tokend/internal/token"
)

// Pagination bounds for the listing queries.
const (
	defaultPageLimit = 10
	maxPageLimit     = 30
)

// Query answers one read-only projection as a JSON value. Queries never
// mutate state; an expired-but-unpruned allowance is still visible here.
func Query(kv state.KV, env Env, msg token.QueryMsg) (json.RawMessage, error) {
	switch {
	case msg.Balance != nil:
		return queryBalance(kv, *msg.Balance)
	case msg.Allowance != nil:
		return queryAllowance(kv, *msg.Allowance)
	case msg.AllAllowances != nil:
		return queryAllAllowances(kv, *msg.AllAllowances)
	case msg.AllAccounts != nil:
		return queryAllAccounts(kv, *msg.AllAccounts)
	case msg.TokenInfo != nil:
		return queryTokenInfo(kv)
	case msg.Minter != nil:
		return queryMinter(kv)
	case msg.MarketingInfo != nil:
		return queryMarketingInfo(kv)
	case msg.DownloadLogo != nil:
		return queryDownloadLogo(kv)
	default:
		return nil, token.ErrEmptyQueryMsg
	}
}

func marshalResponse(v any) (json.RawMessage, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode query response: %w", err)
	}
	return raw, nil
}

func queryBalance(kv state.KV, q token.BalanceQuery) (json.RawMessage, error) {
	account, err := addr.Canonical(q.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	bal := getBalance(kv, account)

	resp := token.BalanceResponse{Balance: bal}
	if info, err := loadTokenInfo(kv); err == nil {
		resp.Display = bal.Display(info.Decimals)
	}
	return marshalResponse(resp)
}

func queryAllowance(kv state.KV, q token.AllowanceQuery) (json.RawMessage, error) {
	owner, err := addr.Canonical(q.Owner)
	if err != nil {
		return nil, fmt.Errorf("%w: owner: %v", ErrInvalidAddress, err)
	}
	spender, err := addr.Canonical(q.Spender)
	if err != nil {
		return nil, fmt.Errorf("%w: spender: %v", ErrInvalidAddress, err)
	}

	// Absent records read back as a zero allowance that never expires.
	rec, _ := loadAllowance(kv, owner, spender)
	return marshalResponse(token.AllowanceResponse{
		Allowance: rec.Allowance,
		Expires:   rec.Expires,
	})
}

func pageLimit(limit uint32) int {
	switch {
	case limit == 0:
		return defaultPageLimit
	case limit > maxPageLimit:
		return maxPageLimit
	default:
		return int(limit)
	}
}

func queryAllAllowances(kv state.KV, q token.AllAllowancesQuery) (json.RawMessage, error) {
	owner, err := addr.Canonical(q.Owner)
	if err != nil {
		return nil, fmt.Errorf("%w: owner: %v", ErrInvalidAddress, err)
	}
	startAfter := ""
	if q.StartAfter != "" {
		startAfter, err = addr.Canonical(q.StartAfter)
		if err != nil {
			return nil, fmt.Errorf("%w: start_after: %v", ErrInvalidAddress, err)
		}
	}

	limit := pageLimit(q.Limit)
	prefix := allowancePrefix(owner)
	resp := token.AllAllowancesResponse{Allowances: []token.AllowanceInfo{}}

	kv.Iterate(prefix, func(key, value []byte) bool {
		spender := string(key[len(prefix):])
		if startAfter != "" && spender <= startAfter {
			return true
		}
		var rec allowanceRecord
		if err := json.Unmarshal(value, &rec); err != nil {
			return true
		}
		resp.Allowances = append(resp.Allowances, token.AllowanceInfo{
			Spender:   spender,
			Allowance: rec.Allowance,
			Expires:   rec.Expires,
		})
		return len(resp.Allowances) < limit
	})

	return marshalResponse(resp)
}

// queryAllAccounts lists current holders. Accounts debited to zero have
// their entries removed, so they do not appear here.
func queryAllAccounts(kv state.KV, q token.AllAccountsQuery) (json.RawMessage, error) {
	startAfter := ""
	if q.StartAfter != "" {
		var err error
		startAfter, err = addr.Canonical(q.StartAfter)
		if err != nil {
			return nil, fmt.Errorf("%w: start_after: %v", ErrInvalidAddress, err)
		}
	}

	limit := pageLimit(q.Limit)
	resp := token.AllAccountsResponse{Accounts: []string{}}

	kv.Iterate([]byte{prefixBalance}, func(key, value []byte) bool {
		account := string(key[1:])
		if startAfter != "" && account <= startAfter {
			return true
		}
		resp.Accounts = append(resp.Accounts, account)
		return len(resp.Accounts) < limit
	})

	return marshalResponse(resp)
}

func queryTokenInfo(kv state.KV) (json.RawMessage, error) {
	info, err := loadTokenInfo(kv)
	if err != nil {
		return nil, err
	}
	supply := getTotalSupply(kv)
	return marshalResponse(token.TokenInfoResponse{
		Name:        info.Name,
		Symbol:      info.Symbol,
		Decimals:    info.Decimals,
		TotalSupply: supply,
		Display:     supply.Display(info.Decimals),
	})
}

// queryMinter returns null when minting was never enabled or has been
// revoked.
func queryMinter(kv state.KV) (json.RawMessage, error) {
	info, err := loadTokenInfo(kv)
	if err != nil {
		return nil, err
	}
	if info.Mint == nil || info.Mint.Revoked {
		return json.RawMessage("null"), nil
	}
	return marshalResponse(token.MinterResponse{
		Minter: info.Mint.Minter,
		Cap:    info.Mint.Cap,
	})
}

func queryMarketingInfo(kv state.KV) (json.RawMessage, error) {
	m, _ := loadMarketing(kv)
	_, hasLogo := kv.Get(logoKey)
	return marshalResponse(token.MarketingInfoResponse{
		Project:     m.Project,
		Description: m.Description,
		Marketing:   m.Marketing,
		HasLogo:     hasLogo,
	})
}

func queryDownloadLogo(kv state.KV) (json.RawMessage, error) {
	raw, ok := kv.Get(logoKey)
	if !ok {
		return nil, fmt.Errorf("%w: no logo stored", ErrNotFound)
	}
	var logo token.Logo
	if err := json.Unmarshal(raw, &logo); err != nil {
		return nil, fmt.Errorf("corrupt logo: %w", err)
	}

	resp := token.DownloadLogoResponse{}
	switch {
	case len(logo.SVG) > 0:
		resp.MimeType = "image/svg+xml"
		resp.Data = logo.SVG
	case len(logo.PNG) > 0:
		resp.MimeType = "image/png"
		resp.Data = logo.PNG
	default:
		resp.MimeType = "text/x-url"
		resp.Data = []byte(logo.URL)
	}
	return marshalResponse(resp)
}
