package store

import (
	"context"
	"fmt"

	"github.com/wolfeidau/wallchart/internal/models"
)

// Snapshot is the full content of a store at a point in time.
type Snapshot struct {
	Units          []*models.Unit          `json:"units"`
	Departments    []*models.Department    `json:"departments"`
	Workers        []*models.Worker        `json:"workers"`
	StructureTests []*models.StructureTest `json:"structure_tests"`
	Participation  []*models.Participation `json:"participation"`
}

// Export reads a consistent snapshot of the whole store.
func Export(ctx context.Context, s Store) (*Snapshot, error) {
	snap := &Snapshot{}
	err := s.View(ctx, func(tx Tx) error {
		var err error
		if snap.Units, err = tx.ListUnits(ctx); err != nil {
			return fmt.Errorf("failed to list units: %w", err)
		}
		if snap.Departments, err = tx.ListDepartments(ctx); err != nil {
			return fmt.Errorf("failed to list departments: %w", err)
		}
		if snap.Workers, err = tx.ListWorkers(ctx, WorkerFilter{}); err != nil {
			return fmt.Errorf("failed to list workers: %w", err)
		}
		if snap.StructureTests, err = tx.ListStructureTests(ctx); err != nil {
			return fmt.Errorf("failed to list structure tests: %w", err)
		}
		if snap.Participation, err = tx.ListParticipation(ctx, ParticipationFilter{}); err != nil {
			return fmt.Errorf("failed to list participation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}
