package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/wallchart/internal/store"
	"github.com/wolfeidau/wallchart/internal/store/memory"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

// DefaultPath is used when no database path is configured.
const DefaultPath = "wallchart.db"

var _ store.Store = (*Store)(nil)

// Store serves reads and writes from memory and writes the full state to a
// SQLite database before every commit, so the file always matches the last
// committed transaction.
type Store struct {
	*memory.Store
	db   *sql.DB
	path string
}

// Open opens or creates the database at path and loads its content.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	db, err := openDB(ctx, path)
	if err != nil {
		return nil, err
	}

	snap, err := ReadSnapshot(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db, path: path}
	s.Store = memory.NewStore(memory.WithCommitHook(s.persist))
	if len(snap.Departments) > 0 || len(snap.Workers) > 0 {
		s.ImportState(snap)
	}

	log.Info().
		Str("path", path).
		Int("workers", len(snap.Workers)).
		Int("departments", len(snap.Departments)).
		Msg("Opened sqlite store")

	return s, nil
}

func (s *Store) persist(ctx context.Context, snap *store.Snapshot) error {
	if err := WriteSnapshot(ctx, s.db, snap); err != nil {
		return fmt.Errorf("failed to persist state: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database path.
func (s *Store) Path() string { return s.path }

// WriteFile writes the snapshot to a new database file at path, replacing any
// existing file.
func WriteFile(ctx context.Context, path string, snap *store.Snapshot) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	db, err := openDB(ctx, path)
	if err != nil {
		return err
	}
	if err := WriteSnapshot(ctx, db, snap); err != nil {
		_ = db.Close()
		return err
	}
	return db.Close()
}

// ReadFile loads a snapshot from the database file at path.
func ReadFile(ctx context.Context, path string) (*store.Snapshot, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := openDB(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	return ReadSnapshot(ctx, db)
}

func openDB(ctx context.Context, path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := CreateSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
