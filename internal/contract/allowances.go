package contract

import (
	"fmt"

	"github.com/matrixise/tokend/internal/addr"
	"github.com/matrixise/tokend/internal/state"
	"github.com/matrixise/tokend/internal/token"
)

// canonicalSpender validates the spender and rejects self-allowances, which
// would let an account bypass its own balance checks' audit trail.
func canonicalSpender(owner, spender string) (string, error) {
	s, err := addr.Canonical(spender)
	if err != nil {
		return "", fmt.Errorf("%w: spender: %v", ErrInvalidAddress, err)
	}
	if s == owner {
		return "", fmt.Errorf("%w: cannot set allowance on own account", ErrInvalidAddress)
	}
	return s, nil
}

// applyExpiration replaces (never merges) the record's expiration when a
// new one is supplied. Setting an already-expired bound is rejected.
func applyExpiration(rec *allowanceRecord, expires *token.Expiration, env Env) error {
	if expires == nil {
		return nil
	}
	if err := expires.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if expires.IsExpired(env.Height, env.Time) {
		return fmt.Errorf("%w: cannot set an expiration in the past", ErrExpired)
	}
	rec.Expires = *expires
	return nil
}

func executeIncreaseAllowance(kv state.KV, env Env, info MessageInfo, msg token.IncreaseAllowanceMsg) (*Response, error) {
	spender, err := canonicalSpender(info.Sender, msg.Spender)
	if err != nil {
		return nil, err
	}

	rec, _ := loadAllowance(kv, info.Sender, spender)
	rec.Allowance, err = rec.Allowance.Add(msg.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: allowance", ErrOverflow)
	}
	if err := applyExpiration(&rec, msg.Expires, env); err != nil {
		return nil, err
	}
	if err := saveAllowance(kv, info.Sender, spender, rec); err != nil {
		return nil, err
	}

	return newResponse("increase_allowance").
		attr("owner", info.Sender).
		attr("spender", spender).
		attr("amount", msg.Amount.String()), nil
}

func executeDecreaseAllowance(kv state.KV, env Env, info MessageInfo, msg token.DecreaseAllowanceMsg) (*Response, error) {
	spender, err := canonicalSpender(info.Sender, msg.Spender)
	if err != nil {
		return nil, err
	}

	// Absent record counts as zero remaining.
	rec, _ := loadAllowance(kv, info.Sender, spender)
	rec.Allowance, err = rec.Allowance.Sub(msg.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot decrease below zero", ErrInsufficientAllowance)
	}
	if err := applyExpiration(&rec, msg.Expires, env); err != nil {
		return nil, err
	}
	if err := saveAllowance(kv, info.Sender, spender, rec); err != nil {
		return nil, err
	}

	return newResponse("decrease_allowance").
		attr("owner", info.Sender).
		attr("spender", spender).
		attr("amount", msg.Amount.String()), nil
}

// spendAllowance deducts amount from the (owner, spender) allowance. The
// record must exist, must not be expired, and must have enough remaining;
// an expired record is never auto-spent even while still in storage.
func spendAllowance(kv state.KV, env Env, owner, spender string, amount token.Amount) error {
	rec, ok := loadAllowance(kv, owner, spender)
	if !ok {
		return fmt.Errorf("%w: %s has none from %s", ErrNoAllowance, spender, owner)
	}
	if rec.Expires.IsExpired(env.Height, env.Time) {
		return ErrExpired
	}
	if rec.Allowance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: remaining %s, want %s", ErrInsufficientAllowance, rec.Allowance, amount)
	}

	var err error
	rec.Allowance, err = rec.Allowance.Sub(amount)
	if err != nil {
		return fmt.Errorf("%w: remaining %s, want %s", ErrInsufficientAllowance, rec.Allowance, amount)
	}
	return saveAllowance(kv, owner, spender, rec)
}

func executeTransferFrom(kv state.KV, env Env, info MessageInfo, msg token.TransferFromMsg) (*Response, error) {
	owner, err := addr.Canonical(msg.Owner)
	if err != nil {
		return nil, fmt.Errorf("%w: owner: %v", ErrInvalidAddress, err)
	}
	recipient, err := addr.Canonical(msg.Recipient)
	if err != nil {
		return nil, fmt.Errorf("%w: recipient: %v", ErrInvalidAddress, err)
	}
	if msg.Amount.IsZero() {
		return nil, ErrZeroAmount
	}

	// Allowance is a spending limit, not a balance guarantee: the owner's
	// funds are checked separately inside transferBalance.
	if err := spendAllowance(kv, env, owner, info.Sender, msg.Amount); err != nil {
		return nil, err
	}
	if err := transferBalance(kv, owner, recipient, msg.Amount); err != nil {
		return nil, err
	}

	return newResponse("transfer_from").
		attr("from", owner).
		attr("to", recipient).
		attr("by", info.Sender).
		attr("amount", msg.Amount.String()), nil
}

func executeBurnFrom(kv state.KV, env Env, info MessageInfo, msg token.BurnFromMsg) (*Response, error) {
	owner, err := addr.Canonical(msg.Owner)
	if err != nil {
		return nil, fmt.Errorf("%w: owner: %v", ErrInvalidAddress, err)
	}
	if msg.Amount.IsZero() {
		return nil, ErrZeroAmount
	}

	if err := spendAllowance(kv, env, owner, info.Sender, msg.Amount); err != nil {
		return nil, err
	}
	if err := burnBalance(kv, owner, msg.Amount); err != nil {
		return nil, err
	}

	return newResponse("burn_from").
		attr("from", owner).
		attr("by", info.Sender).
		attr("amount", msg.Amount.String()), nil
}

func executeSendFrom(kv state.KV, env Env, info MessageInfo, msg token.SendFromMsg) (*Response, error) {
	owner, err := addr.Canonical(msg.Owner)
	if err != nil {
		return nil, fmt.Errorf("%w: owner: %v", ErrInvalidAddress, err)
	}
	recipient, err := addr.Canonical(msg.Contract)
	if err != nil {
		return nil, fmt.Errorf("%w: contract: %v", ErrInvalidAddress, err)
	}
	if msg.Amount.IsZero() {
		return nil, ErrZeroAmount
	}

	if err := spendAllowance(kv, env, owner, info.Sender, msg.Amount); err != nil {
		return nil, err
	}
	if err := transferBalance(kv, owner, recipient, msg.Amount); err != nil {
		return nil, err
	}

	resp := newResponse("send_from").
		attr("from", owner).
		attr("to", recipient).
		attr("by", info.Sender).
		attr("amount", msg.Amount.String())
	resp.Messages = append(resp.Messages, ReceiveMsg{
		Contract: recipient,
		Sender:   info.Sender,
		Amount:   msg.Amount,
		Msg:      msg.Msg,
	})
	return resp, nil
}
