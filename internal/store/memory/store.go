package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/wolfeidau/wallchart/internal/models"
	"github.com/wolfeidau/wallchart/internal/store"
)

var _ store.Store = (*Store)(nil)

// CommitHook is called with the state a read-write transaction is about to
// commit. Returning an error aborts the commit.
type CommitHook func(ctx context.Context, snap *store.Snapshot) error

// Store implements store.Store in memory. Each read-write transaction works on
// a copy of the state which replaces the live state only if the transaction
// succeeds.
type Store struct {
	mu     sync.RWMutex
	state  *state
	commit CommitHook
}

// Option configures a Store.
type Option func(*Store)

// WithCommitHook registers a hook run before every commit.
func WithCommitHook(hook CommitHook) Option {
	return func(s *Store) {
		s.commit = hook
	}
}

// NewStore creates an empty store seeded with the Admin department.
func NewStore(opts ...Option) *Store {
	s := &Store{state: newState()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Update runs fn against a copy of the state and swaps it in on success.
func (s *Store) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.clone()
	if err := fn(&tx{state: next}); err != nil {
		return err
	}

	if s.commit != nil {
		if err := s.commit(ctx, next.snapshot()); err != nil {
			return err
		}
	}

	s.state = next
	return nil
}

// View runs fn against the live state under a read lock.
func (s *Store) View(_ context.Context, fn func(tx store.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return fn(&tx{state: s.state, readOnly: true})
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// ExportState returns a copy of the full state.
func (s *Store) ExportState() *store.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state.snapshot()
}

// ImportState replaces the state with the snapshot. Records keep their IDs.
func (s *Store) ImportState(snap *store.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = stateFromSnapshot(snap)
}

func sortedIDs[V any](m map[int64]V) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func seededDepartments() map[int64]*models.Department {
	admin := models.AdminDepartment()
	return map[int64]*models.Department{admin.ID: admin}
}
