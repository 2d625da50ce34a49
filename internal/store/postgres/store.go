package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wolfeidau/wallchart/internal/store"
)

// writerLockKey is the advisory lock held by every read-write transaction.
const writerLockKey int64 = 0x77616c6c6368

var _ store.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL. Read-write transactions take
// a transaction scoped advisory lock so they run one at a time, read-only
// transactions run concurrently on a repeatable read snapshot.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new PostgreSQL-backed store using the shared pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Update runs fn in a read-write transaction.
func (s *Store) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.run(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, true, fn)
}

// View runs fn in a read-only transaction.
func (s *Store) View(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.run(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, false, fn)
}

func (s *Store) run(ctx context.Context, opts pgx.TxOptions, writer bool, fn func(tx store.Tx) error) error {
	pgxTx, err := s.pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", mapPostgresError(err))
	}
	defer pgxTx.Rollback(ctx) //nolint:errcheck // rollback is safe to call after commit

	if writer {
		// Taken before any read so every statement sees the previous writer's commit
		if _, err := pgxTx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, writerLockKey); err != nil {
			return fmt.Errorf("failed to acquire writer lock: %w", mapPostgresError(err))
		}
	}

	if err := fn(&tx{tx: pgxTx}); err != nil {
		return err
	}

	if err := pgxTx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", mapPostgresError(err))
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
