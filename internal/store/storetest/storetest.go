// Package storetest holds behaviour tests shared by every store.Store implementation.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/wallchart/internal/models"
	"github.com/wolfeidau/wallchart/internal/store"
)

// Factory returns an empty store for a single test.
type Factory func(t *testing.T) store.Store

var day = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

// Run runs the shared behaviour tests against stores created by open.
func Run(t *testing.T, open Factory) {
	t.Run("admin department is seeded", func(t *testing.T) { testAdminSeeded(t, open(t)) })
	t.Run("units", func(t *testing.T) { testUnits(t, open(t)) })
	t.Run("departments", func(t *testing.T) { testDepartments(t, open(t)) })
	t.Run("workers", func(t *testing.T) { testWorkers(t, open(t)) })
	t.Run("deactivate workers", func(t *testing.T) { testDeactivate(t, open(t)) })
	t.Run("structure tests", func(t *testing.T) { testStructureTests(t, open(t)) })
	t.Run("participation", func(t *testing.T) { testParticipation(t, open(t)) })
	t.Run("rollback", func(t *testing.T) { testRollback(t, open(t)) })
	t.Run("view is read only", func(t *testing.T) { testViewReadOnly(t, open(t)) })
	t.Run("export", func(t *testing.T) { testExport(t, open(t)) })
}

func update(t *testing.T, s store.Store, fn func(ctx context.Context, tx store.Tx)) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.Update(ctx, func(tx store.Tx) error {
		fn(ctx, tx)
		return nil
	}))
}

func view(t *testing.T, s store.Store, fn func(ctx context.Context, tx store.Tx)) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.View(ctx, func(tx store.Tx) error {
		fn(ctx, tx)
		return nil
	}))
}

func requireUnique(t *testing.T, err error, field string) {
	t.Helper()
	var uv *store.UniqueViolation
	require.ErrorAs(t, err, &uv)
	require.Equal(t, field, uv.Field)
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func newWorker(name string, dept *int64) *models.Worker {
	return &models.Worker{
		Name:                   name,
		HomeDepartmentID:       dept,
		OrganizingDepartmentID: dept,
		Active:                 true,
		Added:                  day,
		Updated:                day,
	}
}

func testAdminSeeded(t *testing.T, s store.Store) {
	view(t, s, func(ctx context.Context, tx store.Tx) {
		dept, err := tx.GetDepartment(ctx, models.AdminDepartmentID)
		require.NoError(t, err)
		require.Equal(t, models.AdminDepartmentName, dept.Name)

		dept, err = tx.GetDepartmentBySlug(ctx, models.AdminDepartmentSlug)
		require.NoError(t, err)
		require.Equal(t, models.AdminDepartmentID, dept.ID)
	})

	err := s.Update(context.Background(), func(tx store.Tx) error {
		return tx.DeleteDepartment(context.Background(), models.AdminDepartmentID)
	})
	require.ErrorIs(t, err, store.ErrProtected)
}

func testUnits(t *testing.T, s store.Store) {
	var unit *models.Unit
	var chair *models.Worker
	update(t, s, func(ctx context.Context, tx store.Tx) {
		unit = &models.Unit{Name: "UCSC", Slug: "ucsc"}
		require.NoError(t, tx.CreateUnit(ctx, unit))
		require.NotZero(t, unit.ID)

		requireUnique(t, tx.CreateUnit(ctx, &models.Unit{Name: "UCSC", Slug: "ucsc-2"}), "name")

		dept := &models.Department{Name: "Physics", Slug: "physics", UnitID: &unit.ID}
		require.NoError(t, tx.CreateDepartment(ctx, dept))

		chair = newWorker("Chair,Unit", &dept.ID)
		chair.UnitChairOf = &unit.ID
		require.NoError(t, tx.CreateWorker(ctx, chair))

		got, err := tx.GetUnitByName(ctx, "UCSC")
		require.NoError(t, err)
		require.Equal(t, unit.ID, got.ID)
	})

	update(t, s, func(ctx context.Context, tx store.Tx) {
		require.NoError(t, tx.DeleteUnit(ctx, unit.ID))
		require.ErrorIs(t, tx.DeleteUnit(ctx, unit.ID), store.ErrNotFound)
	})

	view(t, s, func(ctx context.Context, tx store.Tx) {
		_, err := tx.GetUnit(ctx, unit.ID)
		require.ErrorIs(t, err, store.ErrUnitNotFound)

		dept, err := tx.GetDepartmentByName(ctx, "Physics")
		require.NoError(t, err)
		require.Nil(t, dept.UnitID)

		worker, err := tx.GetWorker(ctx, chair.ID)
		require.NoError(t, err)
		require.Nil(t, worker.UnitChairOf)

		units, err := tx.ListUnits(ctx)
		require.NoError(t, err)
		require.Empty(t, units)
	})
}

func testDepartments(t *testing.T, s store.Store) {
	var math *models.Department
	var worker *models.Worker
	update(t, s, func(ctx context.Context, tx store.Tx) {
		math = &models.Department{Name: "Mathematics", Slug: "mathematics", Alias: models.Ptr("Math")}
		require.NoError(t, tx.CreateDepartment(ctx, math))

		requireUnique(t, tx.CreateDepartment(ctx, &models.Department{Name: "Mathematics", Slug: "other"}), "name")
		requireUnique(t, tx.CreateDepartment(ctx, &models.Department{Name: "Other", Slug: "mathematics"}), "slug")
		requireUnique(t, tx.CreateDepartment(ctx, &models.Department{Name: "Other", Slug: "other", Alias: models.Ptr("Math")}), "alias")

		err := tx.CreateDepartment(ctx, &models.Department{Name: "Ghost", Slug: "ghost", UnitID: models.Ptr(int64(999))})
		require.ErrorIs(t, err, store.ErrInvalidReference)

		math.Alias = models.Ptr("Maths")
		require.NoError(t, tx.UpdateDepartment(ctx, math))

		worker = newWorker("Doe,Jane", &math.ID)
		worker.DepartmentChairOf = &math.ID
		require.NoError(t, tx.CreateWorker(ctx, worker))
	})

	update(t, s, func(ctx context.Context, tx store.Tx) {
		require.NoError(t, tx.DeleteDepartment(ctx, math.ID))
	})

	view(t, s, func(ctx context.Context, tx store.Tx) {
		_, err := tx.GetDepartment(ctx, math.ID)
		require.ErrorIs(t, err, store.ErrDepartmentNotFound)

		got, err := tx.GetWorker(ctx, worker.ID)
		require.NoError(t, err)
		require.Nil(t, got.HomeDepartmentID)
		require.Nil(t, got.OrganizingDepartmentID)
		require.Nil(t, got.DepartmentChairOf)

		depts, err := tx.ListDepartments(ctx)
		require.NoError(t, err)
		require.Len(t, depts, 1)
	})
}

func testWorkers(t *testing.T, s store.Store) {
	var jane, john *models.Worker
	update(t, s, func(ctx context.Context, tx store.Tx) {
		dept := &models.Department{Name: "Physics", Slug: "physics"}
		require.NoError(t, tx.CreateDepartment(ctx, dept))

		jane = newWorker("Doe,Jane", &dept.ID)
		jane.Email = models.Ptr("jane@example.com")
		jane.Phone = models.Ptr("(808) 555-0100")
		jane.PasswordHash = models.Ptr("hash")
		require.NoError(t, tx.CreateWorker(ctx, jane))

		john = newWorker("Roe,John", &dept.ID)
		require.NoError(t, tx.CreateWorker(ctx, john))
		require.NotEqual(t, jane.ID, john.ID)

		requireUnique(t, tx.CreateWorker(ctx, newWorker("Doe,Jane", &dept.ID)), "name")

		dup := newWorker("Other,Person", &dept.ID)
		dup.Email = models.Ptr("jane@example.com")
		requireUnique(t, tx.CreateWorker(ctx, dup), "email")

		dup.Email = nil
		dup.Phone = models.Ptr("(808) 555-0100")
		requireUnique(t, tx.CreateWorker(ctx, dup), "phone")

		john.Email = models.Ptr("jane@example.com")
		requireUnique(t, tx.UpdateWorker(ctx, john), "email")

		john.Email = models.Ptr("john@example.com")
		john.Name = "Roe,Johnny"
		require.NoError(t, tx.UpdateWorker(ctx, john))

		err := tx.UpdateWorker(ctx, &models.Worker{ID: 9999, Name: "Nobody"})
		require.ErrorIs(t, err, store.ErrWorkerNotFound)

		bad := newWorker("Bad,Ref", models.Ptr(int64(9999)))
		require.ErrorIs(t, tx.CreateWorker(ctx, bad), store.ErrInvalidReference)
	})

	view(t, s, func(ctx context.Context, tx store.Tx) {
		got, err := tx.GetWorkerByName(ctx, "Roe,Johnny")
		require.NoError(t, err)
		require.Equal(t, john.ID, got.ID)

		_, err = tx.GetWorkerByName(ctx, "Roe,John")
		require.ErrorIs(t, err, store.ErrWorkerNotFound)

		got, err = tx.GetWorkerByEmail(ctx, "jane@example.com")
		require.NoError(t, err)
		require.Equal(t, jane.ID, got.ID)
		require.Equal(t, "hash", *got.PasswordHash)
		require.True(t, got.Added.Equal(day))

		users, err := tx.ListWorkers(ctx, store.WorkerFilter{UsersOnly: true})
		require.NoError(t, err)
		require.Len(t, users, 1)

		all, err := tx.ListWorkers(ctx, store.WorkerFilter{OrganizingDepartmentID: jane.OrganizingDepartmentID})
		require.NoError(t, err)
		require.Len(t, all, 2)
		require.Equal(t, jane.ID, all[0].ID)
	})
}

func testDeactivate(t *testing.T, s store.Store) {
	ids := make([]int64, 0, 3)
	update(t, s, func(ctx context.Context, tx store.Tx) {
		for _, name := range []string{"A,A", "B,B", "C,C"} {
			w := newWorker(name, nil)
			require.NoError(t, tx.CreateWorker(ctx, w))
			ids = append(ids, w.ID)
		}
		w, err := tx.GetWorker(ctx, ids[2])
		require.NoError(t, err)
		w.Active = false
		require.NoError(t, tx.UpdateWorker(ctx, w))
	})

	update(t, s, func(ctx context.Context, tx store.Tx) {
		count, err := tx.DeactivateWorkersExcept(ctx, map[int64]struct{}{ids[0]: {}})
		require.NoError(t, err)
		require.Equal(t, 1, count)
	})

	view(t, s, func(ctx context.Context, tx store.Tx) {
		active, err := tx.ListWorkers(ctx, store.WorkerFilter{Active: models.Ptr(true)})
		require.NoError(t, err)
		require.Len(t, active, 1)
		require.Equal(t, ids[0], active[0].ID)
	})
}

func testStructureTests(t *testing.T, s store.Store) {
	var first, second *models.StructureTest
	var worker *models.Worker
	update(t, s, func(ctx context.Context, tx store.Tx) {
		first = &models.StructureTest{Name: "Members", Active: true, Added: day}
		second = &models.StructureTest{Name: "Petition", Description: "Spring petition", Active: true, Added: day}
		require.NoError(t, tx.CreateStructureTest(ctx, first))
		require.NoError(t, tx.CreateStructureTest(ctx, second))
		require.Less(t, first.ID, second.ID)

		requireUnique(t, tx.CreateStructureTest(ctx, &models.StructureTest{Name: "Members", Added: day}), "name")

		second.Active = false
		require.NoError(t, tx.UpdateStructureTest(ctx, second))

		worker = newWorker("Doe,Jane", nil)
		require.NoError(t, tx.CreateWorker(ctx, worker))
		for _, test := range []*models.StructureTest{first, second} {
			created, err := tx.AddParticipation(ctx, &models.Participation{WorkerID: worker.ID, StructureTestID: test.ID, Added: day})
			require.NoError(t, err)
			require.True(t, created)
		}
	})

	update(t, s, func(ctx context.Context, tx store.Tx) {
		require.NoError(t, tx.DeleteStructureTest(ctx, second.ID))
	})

	view(t, s, func(ctx context.Context, tx store.Tx) {
		tests, err := tx.ListStructureTests(ctx)
		require.NoError(t, err)
		require.Len(t, tests, 1)
		require.Equal(t, first.ID, tests[0].ID)

		rows, err := tx.ListParticipation(ctx, store.ParticipationFilter{WorkerID: &worker.ID})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		require.Equal(t, first.ID, rows[0].StructureTestID)

		_, err = tx.GetStructureTest(ctx, second.ID)
		require.ErrorIs(t, err, store.ErrStructureTestNotFound)
	})
}

func testParticipation(t *testing.T, s store.Store) {
	var test *models.StructureTest
	var worker *models.Worker
	update(t, s, func(ctx context.Context, tx store.Tx) {
		test = &models.StructureTest{Name: "Members", Active: true, Added: day}
		require.NoError(t, tx.CreateStructureTest(ctx, test))
		worker = newWorker("Doe,Jane", nil)
		require.NoError(t, tx.CreateWorker(ctx, worker))

		row := &models.Participation{WorkerID: worker.ID, StructureTestID: test.ID, Added: day}
		created, err := tx.AddParticipation(ctx, row)
		require.NoError(t, err)
		require.True(t, created)

		created, err = tx.AddParticipation(ctx, row)
		require.NoError(t, err)
		require.False(t, created)

		_, err = tx.AddParticipation(ctx, &models.Participation{WorkerID: 9999, StructureTestID: test.ID, Added: day})
		require.ErrorIs(t, err, store.ErrInvalidReference)
	})

	update(t, s, func(ctx context.Context, tx store.Tx) {
		removed, err := tx.RemoveParticipation(ctx, worker.ID, test.ID)
		require.NoError(t, err)
		require.True(t, removed)

		removed, err = tx.RemoveParticipation(ctx, worker.ID, test.ID)
		require.NoError(t, err)
		require.False(t, removed)

		_, err = tx.AddParticipation(ctx, &models.Participation{WorkerID: worker.ID, StructureTestID: test.ID, Added: day})
		require.NoError(t, err)
	})

	update(t, s, func(ctx context.Context, tx store.Tx) {
		require.NoError(t, tx.DeleteWorker(ctx, worker.ID))
	})

	view(t, s, func(ctx context.Context, tx store.Tx) {
		rows, err := tx.ListParticipation(ctx, store.ParticipationFilter{})
		require.NoError(t, err)
		require.Empty(t, rows)
	})
}

func testRollback(t *testing.T, s store.Store) {
	ctx := context.Background()
	errBoom := errors.New("boom")

	err := s.Update(ctx, func(tx store.Tx) error {
		if err := tx.CreateUnit(ctx, &models.Unit{Name: "UCSC", Slug: "ucsc"}); err != nil {
			return err
		}
		if err := tx.CreateWorker(ctx, newWorker("Doe,Jane", nil)); err != nil {
			return err
		}
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	view(t, s, func(ctx context.Context, tx store.Tx) {
		_, err := tx.GetUnitByName(ctx, "UCSC")
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = tx.GetWorkerByName(ctx, "Doe,Jane")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func testViewReadOnly(t *testing.T, s store.Store) {
	ctx := context.Background()
	err := s.View(ctx, func(tx store.Tx) error {
		return tx.CreateUnit(ctx, &models.Unit{Name: "UCSC", Slug: "ucsc"})
	})
	require.Error(t, err)
}

func testExport(t *testing.T, s store.Store) {
	update(t, s, func(ctx context.Context, tx store.Tx) {
		unit := &models.Unit{Name: "UCSC", Slug: "ucsc"}
		require.NoError(t, tx.CreateUnit(ctx, unit))
		dept := &models.Department{Name: "Physics", Slug: "physics", UnitID: &unit.ID}
		require.NoError(t, tx.CreateDepartment(ctx, dept))
		worker := newWorker("Doe,Jane", &dept.ID)
		require.NoError(t, tx.CreateWorker(ctx, worker))
		test := &models.StructureTest{Name: "Members", Active: true, Added: day}
		require.NoError(t, tx.CreateStructureTest(ctx, test))
		_, err := tx.AddParticipation(ctx, &models.Participation{WorkerID: worker.ID, StructureTestID: test.ID, Added: day})
		require.NoError(t, err)
	})

	snap, err := store.Export(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, snap.Units, 1)
	require.Len(t, snap.Departments, 2)
	require.Len(t, snap.Workers, 1)
	require.Len(t, snap.StructureTests, 1)
	require.Len(t, snap.Participation, 1)
}
