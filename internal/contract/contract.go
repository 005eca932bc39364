// Package contract implements the fungible-token ledger state machine:
// balances, total supply and delegated-spending allowances, mutated through
// a fixed set of entry points. All entry points take the invocation's
// transactional view of state; the host commits it only when they succeed.
package contract

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/matrixise/tokend/internal/addr"
	"github.com/matrixise/tokend/internal/state"
	"github.com/matrixise/tokend/internal/token"
)

var symbolPattern = regexp.MustCompile(`^[a-zA-Z\-]{3,12}$`)

// logoSizeCap bounds embedded logo blobs.
const logoSizeCap = 5 * 1024

// Instantiate establishes metadata, the initial distribution and the
// optional minter. This is the only entry point that writes balances and
// total supply without a prior balance check.
func Instantiate(kv state.KV, env Env, info MessageInfo, msg token.InstantiateMsg) (*Response, error) {
	if _, ok := kv.Get(tokenInfoKey); ok {
		return nil, fmt.Errorf("%w: already instantiated", ErrUnauthorized)
	}
	if err := validateMetadata(msg); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(msg.InitialBalances))
	var supply token.Amount
	for _, ib := range msg.InitialBalances {
		account, err := addr.Canonical(ib.Address)
		if err != nil {
			return nil, fmt.Errorf("%w: initial balance: %v", ErrInvalidAddress, err)
		}
		if _, dup := seen[account]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAccount, account)
		}
		seen[account] = struct{}{}

		supply, err = supply.Add(ib.Amount)
		if err != nil {
			return nil, fmt.Errorf("%w: initial supply", ErrOverflow)
		}
		if !ib.Amount.IsZero() {
			setBalance(kv, account, ib.Amount)
		}
	}

	var mint *minterState
	if msg.Mint != nil {
		minter, err := addr.Canonical(msg.Mint.Minter)
		if err != nil {
			return nil, fmt.Errorf("%w: minter: %v", ErrInvalidAddress, err)
		}
		if msg.Mint.Cap != nil && supply.Cmp(*msg.Mint.Cap) > 0 {
			return nil, fmt.Errorf("%w: initial supply %s over cap %s",
				ErrCapExceeded, supply, *msg.Mint.Cap)
		}
		mint = &minterState{Minter: minter, Cap: msg.Mint.Cap}
	}

	if msg.Marketing != nil {
		m := marketingState{
			Project:     msg.Marketing.Project,
			Description: msg.Marketing.Description,
		}
		if msg.Marketing.Marketing != "" {
			admin, err := addr.Canonical(msg.Marketing.Marketing)
			if err != nil {
				return nil, fmt.Errorf("%w: marketing admin: %v", ErrInvalidAddress, err)
			}
			m.Marketing = admin
		}
		if err := saveMarketing(kv, m); err != nil {
			return nil, err
		}
		if msg.Marketing.Logo != nil {
			if err := storeLogo(kv, msg.Marketing.Logo); err != nil {
				return nil, err
			}
		}
	}

	setTotalSupply(kv, supply)
	if err := saveTokenInfo(kv, &tokenInfo{
		Name:     msg.Name,
		Symbol:   msg.Symbol,
		Decimals: msg.Decimals,
		Mint:     mint,
	}); err != nil {
		return nil, err
	}

	return newResponse("instantiate").
		attr("name", msg.Name).
		attr("symbol", msg.Symbol).
		attr("total_supply", supply.String()), nil
}

func validateMetadata(msg token.InstantiateMsg) error {
	if n := len(msg.Name); n < 3 || n > 50 {
		return fmt.Errorf("%w: name length must be 3..50", ErrInvalidInput)
	}
	if !symbolPattern.MatchString(msg.Symbol) {
		return fmt.Errorf("%w: symbol must match %s", ErrInvalidInput, symbolPattern)
	}
	if msg.Decimals > 18 {
		return fmt.Errorf("%w: decimals must be at most 18", ErrInvalidInput)
	}
	return nil
}

// Execute dispatches one state-transition message. Exactly one variant must
// be set; the switch is exhaustive over the operation kinds.
func Execute(kv state.KV, env Env, info MessageInfo, msg token.ExecuteMsg) (*Response, error) {
	sender, err := addr.Canonical(info.Sender)
	if err != nil {
		return nil, fmt.Errorf("%w: sender: %v", ErrInvalidAddress, err)
	}
	info.Sender = sender

	switch {
	case msg.Transfer != nil:
		return executeTransfer(kv, info, *msg.Transfer)
	case msg.Burn != nil:
		return executeBurn(kv, info, *msg.Burn)
	case msg.Send != nil:
		return executeSend(kv, info, *msg.Send)
	case msg.Mint != nil:
		return executeMint(kv, info, *msg.Mint)
	case msg.IncreaseAllowance != nil:
		return executeIncreaseAllowance(kv, env, info, *msg.IncreaseAllowance)
	case msg.DecreaseAllowance != nil:
		return executeDecreaseAllowance(kv, env, info, *msg.DecreaseAllowance)
	case msg.TransferFrom != nil:
		return executeTransferFrom(kv, env, info, *msg.TransferFrom)
	case msg.BurnFrom != nil:
		return executeBurnFrom(kv, env, info, *msg.BurnFrom)
	case msg.SendFrom != nil:
		return executeSendFrom(kv, env, info, *msg.SendFrom)
	case msg.UpdateMinter != nil:
		return executeUpdateMinter(kv, info, *msg.UpdateMinter)
	case msg.UpdateMarketing != nil:
		return executeUpdateMarketing(kv, info, *msg.UpdateMarketing)
	case msg.UploadLogo != nil:
		return executeUploadLogo(kv, info, *msg.UploadLogo)
	default:
		return nil, token.ErrEmptyExecuteMsg
	}
}

// transferBalance moves amount between accounts after a balance check.
// A self-transfer passes the check and writes nothing, so the same key is
// never debited below zero on its way to being credited.
func transferBalance(kv state.KV, from, to string, amount token.Amount) error {
	fromBal := getBalance(kv, from)
	if fromBal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: balance %s, want %s", ErrInsufficientFunds, fromBal, amount)
	}
	if from == to {
		return nil
	}

	newFrom, err := fromBal.Sub(amount)
	if err != nil {
		return fmt.Errorf("%w: debit %s", ErrInsufficientFunds, from)
	}
	newTo, err := getBalance(kv, to).Add(amount)
	if err != nil {
		// Unreachable while supply fits 128 bits; checked regardless.
		return fmt.Errorf("%w: credit %s", ErrOverflow, to)
	}
	setBalance(kv, from, newFrom)
	setBalance(kv, to, newTo)
	return nil
}

func executeTransfer(kv state.KV, info MessageInfo, msg token.TransferMsg) (*Response, error) {
	recipient, err := addr.Canonical(msg.Recipient)
	if err != nil {
		return nil, fmt.Errorf("%w: recipient: %v", ErrInvalidAddress, err)
	}
	if msg.Amount.IsZero() {
		return nil, ErrZeroAmount
	}
	if err := transferBalance(kv, info.Sender, recipient, msg.Amount); err != nil {
		return nil, err
	}

	return newResponse("transfer").
		attr("from", info.Sender).
		attr("to", recipient).
		attr("amount", msg.Amount.String()), nil
}

// burnBalance debits owner and shrinks total supply by the same amount,
// preserving supply == sum of balances.
func burnBalance(kv state.KV, owner string, amount token.Amount) error {
	bal := getBalance(kv, owner)
	if bal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: balance %s, want %s", ErrInsufficientFunds, bal, amount)
	}
	newBal, err := bal.Sub(amount)
	if err != nil {
		return fmt.Errorf("%w: debit %s", ErrInsufficientFunds, owner)
	}
	supply, err := getTotalSupply(kv).Sub(amount)
	if err != nil {
		// Supply >= any single balance, so this indicates corrupt state.
		return fmt.Errorf("total supply underflow burning %s: %w", amount, err)
	}
	setBalance(kv, owner, newBal)
	setTotalSupply(kv, supply)
	return nil
}

func executeBurn(kv state.KV, info MessageInfo, msg token.BurnMsg) (*Response, error) {
	if msg.Amount.IsZero() {
		return nil, ErrZeroAmount
	}
	if err := burnBalance(kv, info.Sender, msg.Amount); err != nil {
		return nil, err
	}

	return newResponse("burn").
		attr("from", info.Sender).
		attr("amount", msg.Amount.String()), nil
}

func executeSend(kv state.KV, info MessageInfo, msg token.SendMsg) (*Response, error) {
	recipient, err := addr.Canonical(msg.Contract)
	if err != nil {
		return nil, fmt.Errorf("%w: contract: %v", ErrInvalidAddress, err)
	}
	if msg.Amount.IsZero() {
		return nil, ErrZeroAmount
	}
	if err := transferBalance(kv, info.Sender, recipient, msg.Amount); err != nil {
		return nil, err
	}

	resp := newResponse("send").
		attr("from", info.Sender).
		attr("to", recipient).
		attr("amount", msg.Amount.String())
	resp.Messages = append(resp.Messages, ReceiveMsg{
		Contract: recipient,
		Sender:   info.Sender,
		Amount:   msg.Amount,
		Msg:      msg.Msg,
	})
	return resp, nil
}

func executeMint(kv state.KV, info MessageInfo, msg token.MintMsg) (*Response, error) {
	tokInfo, err := loadTokenInfo(kv)
	if err != nil {
		return nil, err
	}
	if tokInfo.Mint == nil {
		return nil, fmt.Errorf("%w: minting not enabled", ErrUnauthorized)
	}
	if tokInfo.Mint.Revoked {
		return nil, ErrNoMinter
	}
	if tokInfo.Mint.Minter != info.Sender {
		return nil, fmt.Errorf("%w: only the minter may mint", ErrUnauthorized)
	}
	recipient, err := addr.Canonical(msg.Recipient)
	if err != nil {
		return nil, fmt.Errorf("%w: recipient: %v", ErrInvalidAddress, err)
	}
	if msg.Amount.IsZero() {
		return nil, ErrZeroAmount
	}

	supply, err := getTotalSupply(kv).Add(msg.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: total supply", ErrOverflow)
	}
	if tokInfo.Mint.Cap != nil && supply.Cmp(*tokInfo.Mint.Cap) > 0 {
		return nil, fmt.Errorf("%w: supply %s over cap %s", ErrCapExceeded, supply, *tokInfo.Mint.Cap)
	}
	newBal, err := getBalance(kv, recipient).Add(msg.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: recipient balance", ErrOverflow)
	}

	setTotalSupply(kv, supply)
	setBalance(kv, recipient, newBal)

	return newResponse("mint").
		attr("to", recipient).
		attr("amount", msg.Amount.String()), nil
}

// executeUpdateMinter reassigns the mint authority, or revokes it for good
// when NewMinter is nil. The cap carries over; a revoked minter can never
// be re-established.
func executeUpdateMinter(kv state.KV, info MessageInfo, msg token.UpdateMinterMsg) (*Response, error) {
	tokInfo, err := loadTokenInfo(kv)
	if err != nil {
		return nil, err
	}
	if tokInfo.Mint == nil {
		return nil, fmt.Errorf("%w: minting not enabled", ErrUnauthorized)
	}
	if tokInfo.Mint.Revoked {
		return nil, ErrNoMinter
	}
	if tokInfo.Mint.Minter != info.Sender {
		return nil, fmt.Errorf("%w: only the minter may update the minter", ErrUnauthorized)
	}

	newMinter := "none"
	if msg.NewMinter == nil {
		tokInfo.Mint.Minter = ""
		tokInfo.Mint.Revoked = true
	} else {
		minter, err := addr.Canonical(*msg.NewMinter)
		if err != nil {
			return nil, fmt.Errorf("%w: new minter: %v", ErrInvalidAddress, err)
		}
		tokInfo.Mint.Minter = minter
		newMinter = minter
	}
	if err := saveTokenInfo(kv, tokInfo); err != nil {
		return nil, err
	}

	return newResponse("update_minter").
		attr("new_minter", newMinter), nil
}

// requireMarketingAdmin loads marketing state and checks the caller is its
// admin. Absent state or an unset admin both reject.
func requireMarketingAdmin(kv state.KV, sender string) (marketingState, error) {
	m, ok := loadMarketing(kv)
	if !ok || m.Marketing == "" {
		return marketingState{}, fmt.Errorf("%w: no marketing admin configured", ErrUnauthorized)
	}
	if m.Marketing != sender {
		return marketingState{}, fmt.Errorf("%w: only the marketing admin may do this", ErrUnauthorized)
	}
	return m, nil
}

// executeUpdateMarketing applies field updates: nil keeps the current
// value, an empty string clears it.
func executeUpdateMarketing(kv state.KV, info MessageInfo, msg token.UpdateMarketingMsg) (*Response, error) {
	m, err := requireMarketingAdmin(kv, info.Sender)
	if err != nil {
		return nil, err
	}

	if msg.Project != nil {
		m.Project = *msg.Project
	}
	if msg.Description != nil {
		m.Description = *msg.Description
	}
	if msg.Marketing != nil {
		if *msg.Marketing == "" {
			m.Marketing = ""
		} else {
			admin, err := addr.Canonical(*msg.Marketing)
			if err != nil {
				return nil, fmt.Errorf("%w: marketing admin: %v", ErrInvalidAddress, err)
			}
			m.Marketing = admin
		}
	}
	if err := saveMarketing(kv, m); err != nil {
		return nil, err
	}

	return newResponse("update_marketing"), nil
}

func executeUploadLogo(kv state.KV, info MessageInfo, logo token.Logo) (*Response, error) {
	if _, err := requireMarketingAdmin(kv, info.Sender); err != nil {
		return nil, err
	}
	if err := storeLogo(kv, &logo); err != nil {
		return nil, err
	}
	return newResponse("upload_logo"), nil
}

func storeLogo(kv state.KV, logo *token.Logo) error {
	set := 0
	if logo.URL != "" {
		set++
	}
	if len(logo.SVG) > 0 {
		set++
	}
	if len(logo.PNG) > 0 {
		set++
	}
	if set != 1 {
		return fmt.Errorf("%w: logo must be exactly one of url, embedded_svg, embedded_png", ErrInvalidInput)
	}
	if len(logo.SVG) > logoSizeCap || len(logo.PNG) > logoSizeCap {
		return fmt.Errorf("%w: embedded logo over %d bytes", ErrInvalidInput, logoSizeCap)
	}

	raw, err := json.Marshal(logo)
	if err != nil {
		return fmt.Errorf("encode logo: %w", err)
	}
	kv.Set(logoKey, raw)
	return nil
}
