package participation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/wolfeidau/wallchart/internal/auth"
	"github.com/wolfeidau/wallchart/internal/models"
	"github.com/wolfeidau/wallchart/internal/store"
	"github.com/wolfeidau/wallchart/internal/telemetry"
)

// Controller applies participation toggles under department scoped
// authorization.
type Controller struct {
	store store.Store
	clock func() time.Time
	log   zerolog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the time source used for participation dates.
func WithClock(clock func() time.Time) Option {
	return func(c *Controller) {
		c.clock = clock
	}
}

// New creates a Controller.
func New(s store.Store, opts ...Option) *Controller {
	c := &Controller{
		store: s,
		clock: time.Now,
		log:   log.Logger.With().Str("component", "participation").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetParticipation records (desired true) or clears (desired false) the
// worker's participation in the structure test. Both directions are
// idempotent. The worker is resolved first, then the actor is checked
// against the worker's organizing department, then the test is resolved.
// An unauthorized call changes nothing.
func (c *Controller) SetParticipation(ctx context.Context, actor models.Actor, workerID, testID int64, desired bool) error {
	var outcome string
	err := c.store.Update(ctx, func(tx store.Tx) error {
		w, err := tx.GetWorker(ctx, workerID)
		if err != nil {
			return err
		}

		if err := auth.RequireWorkerAccess(actor, w, auth.PermParticipationToggle); err != nil {
			return err
		}

		if _, err := tx.GetStructureTest(ctx, testID); err != nil {
			return err
		}

		if desired {
			created, err := tx.AddParticipation(ctx, &models.Participation{
				WorkerID:        workerID,
				StructureTestID: testID,
				Added:           models.Date(c.clock()),
			})
			if err != nil {
				return fmt.Errorf("failed to add participation: %w", err)
			}
			outcome = "unchanged"
			if created {
				outcome = "added"
			}
			return nil
		}

		removed, err := tx.RemoveParticipation(ctx, workerID, testID)
		if err != nil {
			return fmt.Errorf("failed to remove participation: %w", err)
		}
		outcome = "unchanged"
		if removed {
			outcome = "removed"
		}
		return nil
	})

	switch {
	case auth.IsAuthorization(err):
		outcome = "unauthorized"
	case errors.Is(err, store.ErrNotFound):
		outcome = "not_found"
	case err != nil:
		outcome = "error"
	}
	telemetry.GetMetrics().ParticipationTogglesTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)))

	c.log.Debug().
		Int64("actor", actor.WorkerID).
		Int64("worker_id", workerID).
		Int64("structure_test_id", testID).
		Bool("desired", desired).
		Str("outcome", outcome).
		Msg("Participation toggle")

	return err
}

// TestStatus is one structure test and whether the worker took part.
type TestStatus struct {
	Test         *models.StructureTest `json:"test"`
	Participated bool                  `json:"participated"`
	Added        *time.Time            `json:"added,omitempty"`
}

// WorkerParticipation is a worker with every structure test in creation order.
type WorkerParticipation struct {
	Worker *models.Worker `json:"worker"`
	// Editable reports whether the actor may toggle this worker.
	Editable bool         `json:"editable"`
	Tests    []TestStatus `json:"tests"`
}

// ListForWorker returns the worker's participation in every structure test.
// Any logged in actor may read it.
func (c *Controller) ListForWorker(ctx context.Context, actor models.Actor, workerID int64) (*WorkerParticipation, error) {
	var out *WorkerParticipation
	err := c.store.View(ctx, func(tx store.Tx) error {
		w, err := tx.GetWorker(ctx, workerID)
		if err != nil {
			return err
		}

		tests, err := tx.ListStructureTests(ctx)
		if err != nil {
			return err
		}

		rows, err := tx.ListParticipation(ctx, store.ParticipationFilter{WorkerID: &workerID})
		if err != nil {
			return err
		}
		added := make(map[int64]time.Time, len(rows))
		for _, p := range rows {
			added[p.StructureTestID] = p.Added
		}

		out = &WorkerParticipation{
			Worker:   w,
			Editable: auth.RequireWorkerAccess(actor, w, auth.PermParticipationToggle) == nil,
			Tests:    make([]TestStatus, 0, len(tests)),
		}
		for _, st := range tests {
			status := TestStatus{Test: st}
			if d, ok := added[st.ID]; ok {
				status.Participated = true
				status.Added = &d
			}
			out.Tests = append(out.Tests, status)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
