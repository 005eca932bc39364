package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matrixise/tokend/internal/state"
)

// Store persists the ledger in PostgreSQL: a key/value snapshot of contract
// state plus an append-only event log. The in-memory state stays
// authoritative at runtime; the snapshot exists so a restart can resume at
// the last committed height.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new PostgreSQL store with connection pooling
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Tune connection pool
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 1 * time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	// NUMERIC columns scan into shopspring decimals.
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close closes the connection pool
func (s *Store) Close() {
	s.pool.Close()
}

// Ping verifies the connection is alive
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// CommitInvocation applies one invocation's state writes and event rows in a
// single transaction and advances the checkpoint height. Either everything
// lands or nothing does, matching the in-memory commit it mirrors.
func (s *Store) CommitInvocation(ctx context.Context, height uint64, writes []state.Write, events []Event) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, w := range writes {
		if w.Deleted {
			batch.Queue(`DELETE FROM ledger_state WHERE key = $1`, w.Key)
		} else {
			batch.Queue(`
				INSERT INTO ledger_state (key, value)
				VALUES ($1, $2)
				ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
				w.Key, w.Value)
		}
	}
	for _, ev := range events {
		batch.Queue(`
			INSERT INTO ledger_events
			(invocation_id, height, action, sender, amount, attributes)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			ev.InvocationID,
			int64(height),
			ev.Action,
			ev.Sender,
			ev.Amount,
			ev.Attributes,
		)
	}
	batch.Queue(`
		INSERT INTO ledger_checkpoint (id, height)
		VALUES (TRUE, $1)
		ON CONFLICT (id) DO UPDATE SET height = EXCLUDED.height`,
		int64(height))

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("commit invocation at height %d: %w", height, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	return tx.Commit(ctx)
}

// LoadState restores the full key/value snapshot and the last committed
// height. A fresh database yields an empty store at height zero.
func (s *Store) LoadState(ctx context.Context) (*state.MemStore, uint64, error) {
	store := state.NewMemStore()

	rows, err := s.pool.Query(ctx, `SELECT key, value FROM ledger_state`)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load state: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var key, value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, 0, fmt.Errorf("failed to scan state row: %w", err)
		}
		store.Set(key, value)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read state rows: %w", err)
	}

	var height int64
	err = s.pool.QueryRow(ctx, `SELECT height FROM ledger_checkpoint`).Scan(&height)
	if errors.Is(err, pgx.ErrNoRows) {
		return store, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	return store, uint64(height), nil
}

// RecentEvents returns the newest audit-log rows, most recent first.
func (s *Store) RecentEvents(ctx context.Context, limit int) ([]EventRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, invocation_id, height, action, sender, amount, attributes, created_at
		FROM ledger_events
		ORDER BY id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []EventRow
	for rows.Next() {
		var ev EventRow
		var height int64
		if err := rows.Scan(
			&ev.ID,
			&ev.InvocationID,
			&height,
			&ev.Action,
			&ev.Sender,
			&ev.Amount,
			&ev.Attributes,
			&ev.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		ev.Height = uint64(height)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read event rows: %w", err)
	}

	return events, nil
}
