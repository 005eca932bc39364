package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/matrixise/tokend/internal/addr"
	"github.com/matrixise/tokend/internal/contract"
	"github.com/matrixise/tokend/internal/state"
	"github.com/matrixise/tokend/internal/storage"
	"github.com/matrixise/tokend/internal/token"
)

// Receiver consumes the notification a Send or SendFrom addresses to a
// registered contract account. Returning an error rejects the notification
// and rolls back the whole invocation.
type Receiver interface {
	Receive(ctx context.Context, msg contract.ReceiveMsg) error
}

// ReceiverFunc adapts a function to the Receiver interface.
type ReceiverFunc func(ctx context.Context, msg contract.ReceiveMsg) error

func (f ReceiverFunc) Receive(ctx context.Context, msg contract.ReceiveMsg) error {
	return f(ctx, msg)
}

// Sink mirrors committed invocations to durable storage. A nil sink keeps
// the ledger memory-only.
type Sink interface {
	CommitInvocation(ctx context.Context, height uint64, writes []state.Write, events []storage.Event) error
}

// InvocationResult is the outcome of one committed invocation.
type InvocationResult struct {
	Height       uint64             `json:"height"`
	InvocationID string             `json:"invocation_id"`
	Response     *contract.Response `json:"response"`
}

// Host serializes invocations against the ledger. Each committed invocation
// advances the height by one; a failed invocation consumes no height and
// leaves no trace in state. The sink commit happens before the in-memory
// commit, so durable storage never runs ahead of memory.
type Host struct {
	log  *slog.Logger
	sink Sink

	mu        sync.RWMutex
	store     *state.MemStore
	height    uint64
	receivers map[string]Receiver
	now       func() time.Time
}

// NewHost wraps store, resuming at the given height. sink may be nil.
func NewHost(store *state.MemStore, height uint64, sink Sink, log *slog.Logger) *Host {
	if log == nil {
		log = slog.Default()
	}
	return &Host{
		log:       log,
		sink:      sink,
		store:     store,
		height:    height,
		receivers: make(map[string]Receiver),
		now:       time.Now,
	}
}

// Height returns the last committed height.
func (h *Host) Height() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.height
}

// Instantiated reports whether the token has been established.
func (h *Host) Instantiated() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return contract.Instantiated(h.store)
}

// RegisterReceiver binds a contract account to its notification handler.
// Send and SendFrom can only target registered accounts.
func (h *Host) RegisterReceiver(address string, r Receiver) error {
	a, err := addr.Canonical(address)
	if err != nil {
		return fmt.Errorf("%w: %v", contract.ErrInvalidAddress, err)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.receivers[a] = r
	return nil
}

func (h *Host) newEnv() contract.Env {
	return contract.Env{
		Height:       h.height + 1,
		Time:         h.now().UTC(),
		InvocationID: uuid.NewString(),
	}
}

func (h *Host) invoke(ctx context.Context, sender string, do func(kv state.KV, env contract.Env) (*contract.Response, error)) (*InvocationResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	env := h.newEnv()
	txn := state.NewTxn(h.store)

	resp, err := do(txn, env)
	if err != nil {
		txn.Discard()
		return nil, err
	}

	// Notifications are delivered inside the invocation boundary: a
	// rejection rolls back everything, including the balance moves that
	// produced the notification.
	for _, m := range resp.Messages {
		recv, ok := h.receivers[m.Contract]
		if !ok {
			txn.Discard()
			return nil, fmt.Errorf("%w: no contract registered at %s", contract.ErrNotFound, m.Contract)
		}
		if err := recv.Receive(ctx, m); err != nil {
			txn.Discard()
			return nil, fmt.Errorf("%w: %s: %v", contract.ErrReceiveRejected, m.Contract, err)
		}
	}

	if h.sink != nil {
		if err := h.sink.CommitInvocation(ctx, env.Height, txn.Writes(), invocationEvents(env, sender, resp)); err != nil {
			txn.Discard()
			return nil, fmt.Errorf("persist invocation: %w", err)
		}
	}

	txn.Commit()
	h.height = env.Height
	h.log.Debug("invocation committed",
		"height", env.Height,
		"invocation_id", env.InvocationID,
		"action", resp.Attr("action"),
	)

	return &InvocationResult{
		Height:       env.Height,
		InvocationID: env.InvocationID,
		Response:     resp,
	}, nil
}

// Instantiate establishes the token. It can succeed at most once.
func (h *Host) Instantiate(ctx context.Context, sender string, msg token.InstantiateMsg) (*InvocationResult, error) {
	return h.invoke(ctx, sender, func(kv state.KV, env contract.Env) (*contract.Response, error) {
		return contract.Instantiate(kv, env, contract.MessageInfo{Sender: sender}, msg)
	})
}

// Execute runs one state-changing operation on behalf of sender.
func (h *Host) Execute(ctx context.Context, sender string, msg token.ExecuteMsg) (*InvocationResult, error) {
	return h.invoke(ctx, sender, func(kv state.KV, env contract.Env) (*contract.Response, error) {
		return contract.Execute(kv, env, contract.MessageInfo{Sender: sender}, msg)
	})
}

// Query answers a read-only projection at the current height.
func (h *Host) Query(ctx context.Context, msg token.QueryMsg) (json.RawMessage, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	env := contract.Env{Height: h.height, Time: h.now().UTC()}
	return contract.Query(h.store, env, msg)
}

// PruneExpired removes expired allowance records in a maintenance
// invocation of its own. When nothing is expired no height is consumed.
func (h *Host) PruneExpired(ctx context.Context) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	env := h.newEnv()
	txn := state.NewTxn(h.store)
	removed := contract.PruneExpired(txn, env)
	if removed == 0 {
		txn.Discard()
		return 0, nil
	}

	if h.sink != nil {
		ev := storage.Event{
			InvocationID: uuid.MustParse(env.InvocationID),
			Action:       "prune_expired",
			Attributes:   json.RawMessage(fmt.Sprintf(`[{"key":"removed","value":"%d"}]`, removed)),
		}
		if err := h.sink.CommitInvocation(ctx, env.Height, txn.Writes(), []storage.Event{ev}); err != nil {
			txn.Discard()
			return 0, fmt.Errorf("persist prune: %w", err)
		}
	}

	txn.Commit()
	h.height = env.Height
	h.log.Info("pruned expired allowances", "removed", removed, "height", env.Height)
	return removed, nil
}

// AuditSupply checks that stored balances still sum to the total supply.
func (h *Host) AuditSupply() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return contract.AuditSupply(h.store)
}

// invocationEvents flattens a response into its audit-log row. The amount
// attribute, when present, is lifted into a NUMERIC column so range queries
// work server-side.
func invocationEvents(env contract.Env, sender string, resp *contract.Response) []storage.Event {
	attrs, err := json.Marshal(resp.Attributes)
	if err != nil {
		attrs = []byte("[]")
	}
	ev := storage.Event{
		InvocationID: uuid.MustParse(env.InvocationID),
		Action:       resp.Attr("action"),
		Sender:       sender,
		Attributes:   attrs,
	}
	if a := resp.Attr("amount"); a != "" {
		if d, err := decimal.NewFromString(a); err == nil {
			ev.Amount = decimal.NullDecimal{Decimal: d, Valid: true}
		}
	}
	return []storage.Event{ev}
}
