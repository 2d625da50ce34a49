package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfeidau/wallchart/internal/models"
	"github.com/wolfeidau/wallchart/internal/roster"
	"github.com/wolfeidau/wallchart/internal/store"
	"github.com/wolfeidau/wallchart/internal/telemetry"
)

// Report summarises one reconciliation run.
type Report struct {
	RowCount           int      `json:"row_count"`
	NewCount           int      `json:"new_count"`
	ReturningCount     int      `json:"returning_count"`
	DepartedCount      int      `json:"departed_count"`
	UnitsCreated       int      `json:"units_created"`
	DepartmentsCreated int      `json:"departments_created"`
	NewWorkers         []string `json:"new_workers"`
}

// Reconciler merges roster feeds into the entity store.
type Reconciler struct {
	store store.Store
	clock func() time.Time
	log   zerolog.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithClock sets the time source used for added and updated dates.
func WithClock(clock func() time.Time) Option {
	return func(r *Reconciler) {
		r.clock = clock
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Reconciler) {
		r.log = logger
	}
}

// New creates a Reconciler.
func New(s store.Store, opts ...Option) *Reconciler {
	r := &Reconciler{
		store: s,
		clock: time.Now,
		log:   log.Logger.With().Str("component", "reconcile").Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile applies the feed rows in order inside one store transaction and
// then marks every worker the run did not see as inactive. Manually curated
// worker fields are never changed. If any row is invalid nothing is written.
//
// An empty rows slice deactivates every worker, callers guard against empty
// or truncated feeds before calling.
func (r *Reconciler) Reconcile(ctx context.Context, rows []roster.Row, mapping roster.Mapping) (*Report, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "reconcile.Reconcile")
	defer span.End()

	metrics := telemetry.GetMetrics()
	start := time.Now()
	today := models.Date(r.clock())

	var report *Report
	err := r.store.Update(ctx, func(tx store.Tx) error {
		run := &run{
			tx:          tx,
			mapping:     mapping,
			today:       today,
			report:      &Report{RowCount: len(rows), NewWorkers: []string{}},
			units:       make(map[string]*models.Unit),
			departments: make(map[string]*models.Department),
			touched:     make(map[int64]struct{}, len(rows)),
		}

		for _, row := range rows {
			if err := row.Validate(); err != nil {
				return err
			}
			if err := run.checkDepartment(row); err != nil {
				return err
			}
			if err := run.apply(ctx, row); err != nil {
				return fmt.Errorf("line %d: %w", row.Line, err)
			}
		}

		departed, err := tx.DeactivateWorkersExcept(ctx, run.touched)
		if err != nil {
			return fmt.Errorf("failed to mark departed workers: %w", err)
		}
		run.report.DepartedCount = departed

		report = run.report
		return nil
	})
	if err != nil {
		metrics.ImportFailuresTotal.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "reconcile failed")
		r.log.Error().Err(err).Int("rows", len(rows)).Msg("Roster reconciliation failed")
		return nil, err
	}

	metrics.ImportRunsTotal.Add(ctx, 1)
	metrics.ImportRowsTotal.Add(ctx, int64(report.RowCount))
	metrics.WorkersNewTotal.Add(ctx, int64(report.NewCount))
	metrics.WorkersReturningTotal.Add(ctx, int64(report.ReturningCount))
	metrics.WorkersDepartedTotal.Add(ctx, int64(report.DepartedCount))
	metrics.ImportDuration.Record(ctx, float64(time.Since(start).Milliseconds()))

	span.SetAttributes(
		attribute.Int("wallchart.rows", report.RowCount),
		attribute.Int("wallchart.new", report.NewCount),
		attribute.Int("wallchart.returning", report.ReturningCount),
		attribute.Int("wallchart.departed", report.DepartedCount),
	)

	r.log.Info().
		Int("rows", report.RowCount).
		Int("new", report.NewCount).
		Int("returning", report.ReturningCount).
		Int("departed", report.DepartedCount).
		Int("units_created", report.UnitsCreated).
		Int("departments_created", report.DepartmentsCreated).
		Dur("duration", time.Since(start)).
		Msg("Roster reconciled")

	return report, nil
}

// run holds the state of one reconciliation transaction.
type run struct {
	tx      store.Tx
	mapping roster.Mapping
	today   time.Time
	report  *Report

	units       map[string]*models.Unit
	departments map[string]*models.Department
	touched     map[int64]struct{}
}

// checkDepartment rejects rows that resolve to the Admin department, whose
// members are administrators.
func (r *run) checkDepartment(row roster.Row) error {
	if strings.EqualFold(r.mapping.Department(row.DepartmentLabel), models.AdminDepartmentName) {
		return &roster.ValidationError{
			Line:   row.Line,
			Field:  "department",
			Reason: fmt.Sprintf("%q maps to the reserved %s department", row.DepartmentLabel, models.AdminDepartmentName),
		}
	}
	return nil
}

func (r *run) apply(ctx context.Context, row roster.Row) error {
	unit, err := r.unit(ctx, r.mapping.Unit(row.UnitLabel))
	if err != nil {
		return err
	}

	dept, err := r.department(ctx, r.mapping.Department(row.DepartmentLabel), unit.ID)
	if err != nil {
		return err
	}

	return r.worker(ctx, row, dept.ID)
}

func (r *run) unit(ctx context.Context, name string) (*models.Unit, error) {
	if u, ok := r.units[name]; ok {
		return u, nil
	}

	u, err := r.tx.GetUnitByName(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		u = &models.Unit{Name: name, Slug: roster.Slug(name)}
		if err := r.tx.CreateUnit(ctx, u); err != nil {
			return nil, fmt.Errorf("failed to create unit %q: %w", name, err)
		}
		r.report.UnitsCreated++
	} else if err != nil {
		return nil, fmt.Errorf("failed to get unit %q: %w", name, err)
	}

	r.units[name] = u
	return u, nil
}

// department upserts the department by canonical name. The unit reference is
// set the first time the department is seen with a unit and never changed
// afterwards.
func (r *run) department(ctx context.Context, name string, unitID int64) (*models.Department, error) {
	if d, ok := r.departments[name]; ok {
		return d, nil
	}

	d, err := r.tx.GetDepartmentByName(ctx, name)
	switch {
	case errors.Is(err, store.ErrNotFound):
		slug, err := r.uniqueSlug(ctx, name)
		if err != nil {
			return nil, err
		}
		d = &models.Department{Name: name, Slug: slug, UnitID: models.Ptr(unitID)}
		if err := r.tx.CreateDepartment(ctx, d); err != nil {
			return nil, fmt.Errorf("failed to create department %q: %w", name, err)
		}
		r.report.DepartmentsCreated++

	case err != nil:
		return nil, fmt.Errorf("failed to get department %q: %w", name, err)

	case d.UnitID == nil:
		d.UnitID = models.Ptr(unitID)
		if err := r.tx.UpdateDepartment(ctx, d); err != nil {
			return nil, fmt.Errorf("failed to set unit of department %q: %w", name, err)
		}
	}

	r.departments[name] = d
	return d, nil
}

// uniqueSlug returns the slug of name, suffixed with a counter when another
// department already uses it.
func (r *run) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := roster.Slug(name)
	if base == "" {
		base = "department"
	}

	slug := base
	for n := 2; ; n++ {
		_, err := r.tx.GetDepartmentBySlug(ctx, slug)
		if errors.Is(err, store.ErrNotFound) {
			return slug, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to check slug %q: %w", slug, err)
		}
		slug = base + "-" + strconv.Itoa(n)
	}
}

// worker creates or refreshes the worker named by the row. Only the fields
// the feed owns are written on refresh.
func (r *run) worker(ctx context.Context, row roster.Row, deptID int64) error {
	w, err := r.tx.GetWorkerByName(ctx, row.Name)
	switch {
	case errors.Is(err, store.ErrNotFound):
		w = &models.Worker{
			Name:                   row.Name,
			CampusLabel:            models.Ptr(row.UnitLabel),
			HomeDepartmentID:       models.Ptr(deptID),
			OrganizingDepartmentID: models.Ptr(deptID),
			Active:                 true,
			Added:                  r.today,
			Updated:                r.today,
		}
		if row.JobCode != "" {
			w.ContractCode = models.Ptr(row.JobCode)
		}
		if err := r.tx.CreateWorker(ctx, w); err != nil {
			return fmt.Errorf("failed to create worker %q: %w", row.Name, err)
		}
		r.report.NewCount++
		r.report.NewWorkers = append(r.report.NewWorkers, w.Name)

	case err != nil:
		return fmt.Errorf("failed to get worker %q: %w", row.Name, err)

	default:
		returning := !w.Active

		w.HomeDepartmentID = models.Ptr(deptID)
		w.CampusLabel = models.Ptr(row.UnitLabel)
		if row.JobCode != "" {
			w.ContractCode = models.Ptr(row.JobCode)
		}
		w.Updated = r.today
		w.Active = true

		if err := r.tx.UpdateWorker(ctx, w); err != nil {
			return fmt.Errorf("failed to update worker %q: %w", row.Name, err)
		}
		if returning {
			r.report.ReturningCount++
		}
	}

	r.touched[w.ID] = struct{}{}
	return nil
}
