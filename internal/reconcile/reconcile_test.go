package reconcile

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wolfeidau/wallchart/internal/models"
	"github.com/wolfeidau/wallchart/internal/roster"
	"github.com/wolfeidau/wallchart/internal/store"
	"github.com/wolfeidau/wallchart/internal/store/memory"
)

var (
	day1 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	day2 = time.Date(2024, 3, 8, 9, 0, 0, 0, time.UTC)
)

func row(name, unit, dept string) roster.Row {
	return roster.Row{Name: name, UnitLabel: unit, DepartmentLabel: dept, JobCode: "2310"}
}

func clockAt(t *time.Time) Option {
	return WithClock(func() time.Time { return *t })
}

func worker(t *testing.T, s store.Store, name string) *models.Worker {
	t.Helper()
	var w *models.Worker
	require.NoError(t, s.View(context.Background(), func(tx store.Tx) error {
		var err error
		w, err = tx.GetWorkerByName(context.Background(), name)
		return err
	}))
	return w
}

func TestReconcile_createsRecords(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	now := day1
	r := New(s, clockAt(&now))

	report, err := r.Reconcile(ctx, []roster.Row{
		row("Doe,Jane", "BX", "ANTHROPOLOGY DEPT"),
		row("Roe,Sam", "BX", "anthropology dept"),
		row("Poe,Al", "BK", "History Dept"),
	}, roster.Mapping{})
	require.NoError(t, err)

	require.Equal(t, &Report{
		RowCount:           3,
		NewCount:           3,
		UnitsCreated:       2,
		DepartmentsCreated: 2,
		NewWorkers:         []string{"Doe,Jane", "Roe,Sam", "Poe,Al"},
	}, report)

	jane := worker(t, s, "Doe,Jane")
	require.True(t, jane.Active)
	require.Equal(t, models.Date(day1), jane.Added)
	require.Equal(t, models.Date(day1), jane.Updated)
	require.Equal(t, "BX", *jane.CampusLabel)
	require.Equal(t, "2310", *jane.ContractCode)
	require.Equal(t, *jane.HomeDepartmentID, *jane.OrganizingDepartmentID)

	require.NoError(t, s.View(ctx, func(tx store.Tx) error {
		dept, err := tx.GetDepartment(ctx, *jane.HomeDepartmentID)
		require.NoError(t, err)
		require.Equal(t, "Anthropology Dept", dept.Name)
		require.Equal(t, "anthropology-dept", dept.Slug)

		unit, err := tx.GetUnitByName(ctx, "BX")
		require.NoError(t, err)
		require.Equal(t, unit.ID, *dept.UnitID)
		return nil
	}))
}

func TestReconcile_idempotent(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	now := day1
	r := New(s, clockAt(&now))

	rows := []roster.Row{
		row("Doe,Jane", "BX", "Anthropology Dept"),
		row("Roe,Sam", "BX", "History Dept"),
	}

	_, err := r.Reconcile(ctx, rows, roster.Mapping{})
	require.NoError(t, err)
	first, err := store.Export(ctx, s)
	require.NoError(t, err)

	report, err := r.Reconcile(ctx, rows, roster.Mapping{})
	require.NoError(t, err)
	require.Zero(t, report.NewCount)
	require.Zero(t, report.ReturningCount)
	require.Zero(t, report.DepartedCount)

	second, err := store.Export(ctx, s)
	require.NoError(t, err)
	require.Equal(t, first, second)

	now = day2
	_, err = r.Reconcile(ctx, rows, roster.Mapping{})
	require.NoError(t, err)

	third, err := store.Export(ctx, s)
	require.NoError(t, err)
	require.Len(t, third.Workers, 2)
	require.Len(t, third.Departments, 3) // Admin plus two
	for _, w := range third.Workers {
		require.Equal(t, models.Date(day2), w.Updated)
		require.Equal(t, models.Date(day1), w.Added)
	}
}

func TestReconcile_staleness(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	now := day1
	r := New(s, clockAt(&now))

	_, err := r.Reconcile(ctx, []roster.Row{
		row("Doe,Jane", "BX", "Anthropology Dept"),
		row("Roe,Sam", "BX", "Anthropology Dept"),
		row("Poe,Al", "BX", "History Dept"),
	}, roster.Mapping{})
	require.NoError(t, err)

	// same day, so only the touched set can tell who was refreshed
	report, err := r.Reconcile(ctx, []roster.Row{
		row("Roe,Sam", "BX", "Anthropology Dept"),
		row("Poe,Al", "BX", "History Dept"),
	}, roster.Mapping{})
	require.NoError(t, err)
	require.Equal(t, 1, report.DepartedCount)

	require.False(t, worker(t, s, "Doe,Jane").Active)
	require.True(t, worker(t, s, "Roe,Sam").Active)
	require.True(t, worker(t, s, "Poe,Al").Active)

	now = day2
	report, err = r.Reconcile(ctx, []roster.Row{
		row("Doe,Jane", "BX", "Anthropology Dept"),
		row("Roe,Sam", "BX", "Anthropology Dept"),
		row("Poe,Al", "BX", "History Dept"),
	}, roster.Mapping{})
	require.NoError(t, err)
	require.Equal(t, 1, report.ReturningCount)
	require.Zero(t, report.NewCount)
	require.True(t, worker(t, s, "Doe,Jane").Active)
}

func TestReconcile_dedupByName(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	r := New(s)

	report, err := r.Reconcile(ctx, []roster.Row{
		row("Doe,Jane", "BX", "Anthropology Dept"),
		row("Doe,Jane", "BX", "History Dept"),
	}, roster.Mapping{})
	require.NoError(t, err)
	require.Equal(t, 1, report.NewCount)

	snap, err := store.Export(ctx, s)
	require.NoError(t, err)
	require.Len(t, snap.Workers, 1)

	jane := snap.Workers[0]
	require.NoError(t, s.View(ctx, func(tx store.Tx) error {
		history, err := tx.GetDepartmentByName(ctx, "History Dept")
		require.NoError(t, err)
		anthro, err := tx.GetDepartmentByName(ctx, "Anthropology Dept")
		require.NoError(t, err)

		// home follows the feed, organizing stays where it was first set
		require.Equal(t, history.ID, *jane.HomeDepartmentID)
		require.Equal(t, anthro.ID, *jane.OrganizingDepartmentID)
		return nil
	}))
}

func TestReconcile_preservesCuratedFields(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	r := New(s)

	rows := []roster.Row{row("Doe,Jane", "BX", "Anthropology Dept")}
	_, err := r.Reconcile(ctx, rows, roster.Mapping{})
	require.NoError(t, err)

	require.NoError(t, s.Update(ctx, func(tx store.Tx) error {
		w, err := tx.GetWorkerByName(ctx, "Doe,Jane")
		require.NoError(t, err)
		w.PreferredName = models.Ptr("JJ")
		w.Pronouns = models.Ptr("she/her")
		w.Email = models.Ptr("jane@example.edu")
		w.Phone = models.Ptr("(510) 555-0100")
		w.Notes = models.Ptr("steward")
		w.OrganizingDepartmentID = models.Ptr(models.AdminDepartmentID)
		w.PasswordHash = models.Ptr("hash")
		w.DepartmentChairOf = models.Ptr(models.AdminDepartmentID)
		return tx.UpdateWorker(ctx, w)
	}))

	_, err = r.Reconcile(ctx, []roster.Row{{Name: "Doe,Jane", UnitLabel: "BK", DepartmentLabel: "History Dept"}}, roster.Mapping{})
	require.NoError(t, err)

	w := worker(t, s, "Doe,Jane")
	require.Equal(t, "JJ", *w.PreferredName)
	require.Equal(t, "she/her", *w.Pronouns)
	require.Equal(t, "jane@example.edu", *w.Email)
	require.Equal(t, "(510) 555-0100", *w.Phone)
	require.Equal(t, "steward", *w.Notes)
	require.Equal(t, models.AdminDepartmentID, *w.OrganizingDepartmentID)
	require.Equal(t, "hash", *w.PasswordHash)
	require.Equal(t, models.AdminDepartmentID, *w.DepartmentChairOf)

	require.Equal(t, "BK", *w.CampusLabel)
	require.Equal(t, "2310", *w.ContractCode, "contract is kept when the feed omits it")
}

func TestReconcile_mappingMergesDepartments(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	r := New(s)

	mapping := roster.Mapping{
		Departments: map[string]string{
			"ANTHRO DEPT":       "Anthropology",
			"ANTHROPOLOGY DEPT": "Anthropology",
		},
		Units: map[string]string{"BX": "UAW 4811"},
	}

	report, err := r.Reconcile(ctx, []roster.Row{
		row("Doe,Jane", "BX", "ANTHRO DEPT"),
		row("Roe,Sam", "BX", "ANTHROPOLOGY DEPT"),
	}, mapping)
	require.NoError(t, err)
	require.Equal(t, 1, report.DepartmentsCreated)

	jane, sam := worker(t, s, "Doe,Jane"), worker(t, s, "Roe,Sam")
	require.Equal(t, *jane.OrganizingDepartmentID, *sam.OrganizingDepartmentID)
	require.Equal(t, "BX", *jane.CampusLabel)

	require.NoError(t, s.View(ctx, func(tx store.Tx) error {
		_, err := tx.GetUnitByName(ctx, "UAW 4811")
		return err
	}))
}

func TestReconcile_unitSetOnlyOnce(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	r := New(s)

	var unsetID int64
	require.NoError(t, s.Update(ctx, func(tx store.Tx) error {
		d := &models.Department{Name: "History Dept", Slug: "history-dept"}
		err := tx.CreateDepartment(ctx, d)
		unsetID = d.ID
		return err
	}))

	_, err := r.Reconcile(ctx, []roster.Row{
		row("Doe,Jane", "BX", "History Dept"),
		row("Roe,Sam", "BK", "History Dept"),
	}, roster.Mapping{})
	require.NoError(t, err)

	_, err = r.Reconcile(ctx, []roster.Row{row("Poe,Al", "BK", "History Dept")}, roster.Mapping{})
	require.NoError(t, err)

	require.NoError(t, s.View(ctx, func(tx store.Tx) error {
		dept, err := tx.GetDepartment(ctx, unsetID)
		require.NoError(t, err)
		bx, err := tx.GetUnitByName(ctx, "BX")
		require.NoError(t, err)
		require.Equal(t, bx.ID, *dept.UnitID)
		return nil
	}))
}

func TestReconcile_slugCollision(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	r := New(s)

	_, err := r.Reconcile(ctx, []roster.Row{
		row("Doe,Jane", "BX", "Art, Design"),
		row("Roe,Sam", "BX", "Art Design"),
	}, roster.Mapping{})
	require.NoError(t, err)

	require.NoError(t, s.View(ctx, func(tx store.Tx) error {
		a, err := tx.GetDepartmentByName(ctx, "Art, Design")
		require.NoError(t, err)
		b, err := tx.GetDepartmentByName(ctx, "Art Design")
		require.NoError(t, err)
		require.Equal(t, "art-design", a.Slug)
		require.Equal(t, "art-design-2", b.Slug)
		return nil
	}))
}

func TestReconcile_invalidRowWritesNothing(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	r := New(s)

	_, err := r.Reconcile(ctx, []roster.Row{
		row("Doe,Jane", "BX", "Anthropology Dept"),
		{Line: 3, Name: "Roe,Sam", UnitLabel: "BX"},
	}, roster.Mapping{})

	var ve *roster.ValidationError
	require.True(t, errors.As(err, &ve))
	require.Equal(t, 3, ve.Line)

	snap, err := store.Export(ctx, s)
	require.NoError(t, err)
	require.Empty(t, snap.Workers)
	require.Empty(t, snap.Units)
}

func TestReconcile_rejectsAdminDepartment(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	r := New(s)

	for _, tc := range []struct {
		name    string
		label   string
		mapping roster.Mapping
	}{
		{name: "title cased label", label: "ADMIN"},
		{name: "mapped label", label: "OFFICE", mapping: roster.Mapping{Departments: map[string]string{"OFFICE": "admin"}}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := r.Reconcile(ctx, []roster.Row{
				row("Roe,Sam", "BX", "History"),
				{Line: 3, Name: "Doe,Jane", UnitLabel: "BX", DepartmentLabel: tc.label, JobCode: "2310"},
			}, tc.mapping)

			var ve *roster.ValidationError
			require.True(t, errors.As(err, &ve))
			require.Equal(t, 3, ve.Line)
			require.Equal(t, "department", ve.Field)
			require.True(t, roster.IsValidation(err))

			snap, err := store.Export(ctx, s)
			require.NoError(t, err)
			require.Empty(t, snap.Workers)
			require.Empty(t, snap.Units)
			require.Len(t, snap.Departments, 1)
			require.Nil(t, snap.Departments[0].UnitID)
		})
	}
}

func TestReconcile_sweepsManualWorkers(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	now := day1
	r := New(s, clockAt(&now))

	// added by hand on the same day the feed runs
	require.NoError(t, s.Update(ctx, func(tx store.Tx) error {
		return tx.CreateWorker(ctx, &models.Worker{
			Name:             "Poe,Edgar",
			ContractCode:     models.Ptr(models.ManualContract),
			HomeDepartmentID: models.Ptr(models.AdminDepartmentID),
			Active:           true,
			Added:            models.Date(day1),
			Updated:          models.Date(day1),
		})
	}))

	report, err := r.Reconcile(ctx, []roster.Row{row("Doe,Jane", "BX", "History")}, roster.Mapping{})
	require.NoError(t, err)
	require.Equal(t, 1, report.DepartedCount)

	poe := worker(t, s, "Poe,Edgar")
	require.False(t, poe.Active)
	require.Equal(t, models.ManualContract, *poe.ContractCode)

	// a later feed that lists the worker brings them back as returning
	report, err = r.Reconcile(ctx, []roster.Row{row("Doe,Jane", "BX", "History"), row("Poe,Edgar", "BX", "History")}, roster.Mapping{})
	require.NoError(t, err)
	require.Equal(t, 1, report.ReturningCount)
	require.True(t, worker(t, s, "Poe,Edgar").Active)
}

func TestReconcile_emptyFeedDeactivatesEveryone(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	r := New(s)

	_, err := r.Reconcile(ctx, []roster.Row{row("Doe,Jane", "BX", "Anthropology Dept")}, roster.Mapping{})
	require.NoError(t, err)

	report, err := r.Reconcile(ctx, nil, roster.Mapping{})
	require.NoError(t, err)
	require.Equal(t, 1, report.DepartedCount)
	require.False(t, worker(t, s, "Doe,Jane").Active)
}

func TestImporter(t *testing.T) {
	ctx := context.Background()
	header := "Last Name;First Name;Middle Name;Unit;Job Sect Desc;Job Code\n"

	t.Run("imports csv", func(t *testing.T) {
		s := memory.NewStore()
		imp := NewImporter(New(s), 0)

		report, err := imp.Import(ctx, "roster.csv", strings.NewReader(header+
			"Doe;Jane;;BX;Anthropology Dept;2310\nRoe;Sam;;BX;Anthropology Dept;2310\n"), roster.Mapping{})
		require.NoError(t, err)
		require.Equal(t, 2, report.NewCount)
	})

	t.Run("rejects empty feed without touching the store", func(t *testing.T) {
		s := memory.NewStore()
		_, err := New(s).Reconcile(ctx, []roster.Row{row("Doe,Jane", "BX", "Anthropology Dept")}, roster.Mapping{})
		require.NoError(t, err)

		_, err = NewImporter(New(s), 0).Import(ctx, "roster.csv", strings.NewReader(header), roster.Mapping{})
		require.ErrorIs(t, err, roster.ErrEmptyFeed)
		require.True(t, worker(t, s, "Doe,Jane").Active)
	})

	t.Run("rejects short feed", func(t *testing.T) {
		s := memory.NewStore()
		_, err := NewImporter(New(s), 5).Import(ctx, "roster.csv", strings.NewReader(header+
			"Doe;Jane;;BX;Anthropology Dept;2310\n"), roster.Mapping{})
		require.ErrorIs(t, err, ErrShortFeed)
	})

	t.Run("rejects other file types", func(t *testing.T) {
		s := memory.NewStore()
		_, err := NewImporter(New(s), 0).Import(ctx, "roster.pdf", strings.NewReader("x"), roster.Mapping{})
		require.True(t, roster.IsValidation(err))
	})
}
