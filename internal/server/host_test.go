package server

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matrixise/tokend/internal/contract"
	"github.com/matrixise/tokend/internal/state"
	"github.com/matrixise/tokend/internal/storage"
	"github.com/matrixise/tokend/internal/token"
)

const (
	owner    = "0x1111111111111111111111111111111111111111"
	holder   = "0x2222222222222222222222222222222222222222"
	staking  = "0x3333333333333333333333333333333333333333"
	stranger = "0x4444444444444444444444444444444444444444"
	coinbase = "0x5555555555555555555555555555555555555555"
)

type recordingSink struct {
	fail    bool
	commits int
	heights []uint64
	events  []storage.Event
	writes  [][]state.Write
}

func (s *recordingSink) CommitInvocation(_ context.Context, height uint64, writes []state.Write, events []storage.Event) error {
	if s.fail {
		return errors.New("connection refused")
	}
	s.commits++
	s.heights = append(s.heights, height)
	s.events = append(s.events, events...)
	s.writes = append(s.writes, writes)
	return nil
}

func newTestHost(t *testing.T, sink Sink) *Host {
	t.Helper()
	host := NewHost(state.NewMemStore(), 0, sink, nil)
	_, err := host.Instantiate(context.Background(), owner, token.InstantiateMsg{
		Name:     "Test Token",
		Symbol:   "TEST",
		Decimals: 6,
		InitialBalances: []token.InitialBalance{
			{Address: owner, Amount: token.NewAmount(1000)},
		},
		Mint: &token.MinterData{Minter: coinbase},
	})
	require.NoError(t, err)
	return host
}

func hostBalance(t *testing.T, host *Host, account string) string {
	t.Helper()
	raw, err := host.Query(context.Background(), token.QueryMsg{
		Balance: &token.BalanceQuery{Address: account},
	})
	require.NoError(t, err)
	var resp token.BalanceResponse
	require.NoError(t, json.Unmarshal(raw, &resp))
	return resp.Balance.String()
}

func TestHostHeightAdvance(t *testing.T) {
	host := newTestHost(t, nil)
	assert.Equal(t, uint64(1), host.Height())
	assert.True(t, host.Instantiated())

	result, err := host.Execute(context.Background(), owner, token.ExecuteMsg{
		Transfer: &token.TransferMsg{Recipient: holder, Amount: token.NewAmount(100)},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), result.Height)
	assert.NotEmpty(t, result.InvocationID)
	assert.Equal(t, "transfer", result.Response.Attr("action"))

	// A failed invocation consumes no height and moves nothing.
	_, err = host.Execute(context.Background(), owner, token.ExecuteMsg{
		Transfer: &token.TransferMsg{Recipient: holder, Amount: token.NewAmount(100_000)},
	})
	assert.ErrorIs(t, err, contract.ErrInsufficientFunds)
	assert.Equal(t, uint64(2), host.Height())
	assert.Equal(t, "900", hostBalance(t, host, owner))
	assert.Equal(t, "100", hostBalance(t, host, holder))
}

func TestHostSendDelivery(t *testing.T) {
	host := newTestHost(t, nil)

	var got contract.ReceiveMsg
	require.NoError(t, host.RegisterReceiver(staking, ReceiverFunc(func(_ context.Context, msg contract.ReceiveMsg) error {
		got = msg
		return nil
	})))

	payload := json.RawMessage(`{"bond":{}}`)
	_, err := host.Execute(context.Background(), owner, token.ExecuteMsg{
		Send: &token.SendMsg{Contract: staking, Amount: token.NewAmount(250), Msg: payload},
	})
	require.NoError(t, err)

	assert.Equal(t, staking, got.Contract)
	assert.Equal(t, owner, got.Sender)
	assert.Equal(t, "250", got.Amount.String())
	assert.JSONEq(t, `{"bond":{}}`, string(got.Msg))
	assert.Equal(t, "250", hostBalance(t, host, staking))
}

func TestHostSendWithoutReceiver(t *testing.T) {
	host := newTestHost(t, nil)

	_, err := host.Execute(context.Background(), owner, token.ExecuteMsg{
		Send: &token.SendMsg{Contract: stranger, Amount: token.NewAmount(1)},
	})
	assert.ErrorIs(t, err, contract.ErrNotFound)
	assert.Equal(t, "1000", hostBalance(t, host, owner))
	assert.Equal(t, uint64(1), host.Height())
}

func TestHostReceiverRejectionRollsBack(t *testing.T) {
	host := newTestHost(t, nil)

	require.NoError(t, host.RegisterReceiver(staking, ReceiverFunc(func(context.Context, contract.ReceiveMsg) error {
		return errors.New("bonding window closed")
	})))

	_, err := host.Execute(context.Background(), owner, token.ExecuteMsg{
		Send: &token.SendMsg{Contract: staking, Amount: token.NewAmount(250)},
	})
	assert.ErrorIs(t, err, contract.ErrReceiveRejected)

	// The balance moves roll back with the rejection.
	assert.Equal(t, "1000", hostBalance(t, host, owner))
	assert.Equal(t, "0", hostBalance(t, host, staking))
	assert.Equal(t, uint64(1), host.Height())
}

func TestHostSinkMirrorsCommits(t *testing.T) {
	sink := &recordingSink{}
	host := newTestHost(t, sink)

	_, err := host.Execute(context.Background(), coinbase, token.ExecuteMsg{
		Mint: &token.MintMsg{Recipient: holder, Amount: token.NewAmount(42)},
	})
	require.NoError(t, err)

	require.Equal(t, 2, sink.commits) // instantiate + mint
	assert.Equal(t, []uint64{1, 2}, sink.heights)

	mint := sink.events[1]
	assert.Equal(t, "mint", mint.Action)
	assert.Equal(t, coinbase, mint.Sender)
	require.True(t, mint.Amount.Valid)
	assert.Equal(t, "42", mint.Amount.Decimal.String())
	assert.NotEmpty(t, sink.writes[1])
}

func TestHostSinkFailureRollsBack(t *testing.T) {
	sink := &recordingSink{}
	host := newTestHost(t, sink)
	sink.fail = true

	_, err := host.Execute(context.Background(), owner, token.ExecuteMsg{
		Transfer: &token.TransferMsg{Recipient: holder, Amount: token.NewAmount(100)},
	})
	require.Error(t, err)

	// Memory never runs ahead of a failed durable commit.
	assert.Equal(t, "1000", hostBalance(t, host, owner))
	assert.Equal(t, uint64(1), host.Height())
}

func TestHostPruneExpired(t *testing.T) {
	host := newTestHost(t, nil)

	expires := token.Expiration{AtHeight: 3}
	_, err := host.Execute(context.Background(), owner, token.ExecuteMsg{
		IncreaseAllowance: &token.IncreaseAllowanceMsg{
			Spender: holder, Amount: token.NewAmount(5), Expires: &expires,
		},
	})
	require.NoError(t, err)

	// Nothing expired yet: no height consumed.
	removed, err := host.PruneExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
	assert.Equal(t, uint64(2), host.Height())

	// Advance past the bound, then prune.
	_, err = host.Execute(context.Background(), owner, token.ExecuteMsg{
		Transfer: &token.TransferMsg{Recipient: holder, Amount: token.NewAmount(1)},
	})
	require.NoError(t, err)

	removed, err = host.PruneExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, uint64(4), host.Height())
	assert.NoError(t, host.AuditSupply())
}
