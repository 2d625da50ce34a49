package participation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wolfeidau/wallchart/internal/auth"
	"github.com/wolfeidau/wallchart/internal/models"
	"github.com/wolfeidau/wallchart/internal/reconcile"
	"github.com/wolfeidau/wallchart/internal/roster"
	"github.com/wolfeidau/wallchart/internal/store"
	"github.com/wolfeidau/wallchart/internal/store/memory"
)

var today = time.Date(2024, 4, 2, 15, 0, 0, 0, time.UTC)

type fixture struct {
	store   store.Store
	ctrl    *Controller
	deptX   int64
	deptY   int64
	worker  int64
	test    int64
	actorX  models.Actor
	actorY  models.Actor
	chairY  models.Actor
	unknown int64
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	s := memory.NewStore()
	f := &fixture{store: s, ctrl: New(s, WithClock(func() time.Time { return today })), unknown: 999}

	require.NoError(t, s.Update(ctx, func(tx store.Tx) error {
		x := &models.Department{Name: "Dept X", Slug: "dept-x"}
		y := &models.Department{Name: "Dept Y", Slug: "dept-y"}
		require.NoError(t, tx.CreateDepartment(ctx, x))
		require.NoError(t, tx.CreateDepartment(ctx, y))
		f.deptX, f.deptY = x.ID, y.ID

		w := &models.Worker{
			Name:                   "Doe,Jane",
			HomeDepartmentID:       &x.ID,
			OrganizingDepartmentID: &x.ID,
			Active:                 true,
			Added:                  today,
			Updated:                today,
		}
		require.NoError(t, tx.CreateWorker(ctx, w))
		f.worker = w.ID

		st := &models.StructureTest{Name: "T1", Active: true, Added: today}
		require.NoError(t, tx.CreateStructureTest(ctx, st))
		f.test = st.ID
		return nil
	}))

	f.actorX = models.Actor{WorkerID: 10, OrganizingDepartmentID: models.Ptr(f.deptX)}
	f.actorY = models.Actor{WorkerID: 11, OrganizingDepartmentID: models.Ptr(f.deptY)}
	f.chairY = models.Actor{WorkerID: 12, OrganizingDepartmentID: models.Ptr(f.deptY), IsAdmin: true}
	return f
}

func (f *fixture) rows(t *testing.T) []*models.Participation {
	t.Helper()
	snap, err := store.Export(context.Background(), f.store)
	require.NoError(t, err)
	return snap.Participation
}

func TestSetParticipation(t *testing.T) {
	ctx := context.Background()

	t.Run("own department adds and removes idempotently", func(t *testing.T) {
		f := setup(t)

		require.NoError(t, f.ctrl.SetParticipation(ctx, f.actorX, f.worker, f.test, true))
		require.NoError(t, f.ctrl.SetParticipation(ctx, f.actorX, f.worker, f.test, true))
		rows := f.rows(t)
		require.Len(t, rows, 1)
		require.Equal(t, models.Date(today), rows[0].Added)

		require.NoError(t, f.ctrl.SetParticipation(ctx, f.actorX, f.worker, f.test, false))
		require.NoError(t, f.ctrl.SetParticipation(ctx, f.actorX, f.worker, f.test, false))
		require.Empty(t, f.rows(t))
	})

	t.Run("other department is rejected without change", func(t *testing.T) {
		f := setup(t)

		err := f.ctrl.SetParticipation(ctx, f.actorY, f.worker, f.test, true)
		require.ErrorIs(t, err, auth.ErrUnauthorized)
		require.Empty(t, f.rows(t))

		require.NoError(t, f.ctrl.SetParticipation(ctx, f.actorX, f.worker, f.test, true))
		err = f.ctrl.SetParticipation(ctx, f.actorY, f.worker, f.test, false)
		require.ErrorIs(t, err, auth.ErrUnauthorized)
		require.Len(t, f.rows(t), 1)
	})

	t.Run("actor without department is rejected", func(t *testing.T) {
		f := setup(t)
		err := f.ctrl.SetParticipation(ctx, models.Actor{WorkerID: 13}, f.worker, f.test, true)
		require.ErrorIs(t, err, auth.ErrUnauthorized)
	})

	t.Run("admins are system wide", func(t *testing.T) {
		f := setup(t)
		require.NoError(t, f.ctrl.SetParticipation(ctx, f.chairY, f.worker, f.test, true))
		require.NoError(t, f.ctrl.SetParticipation(ctx, models.AdminActor(), f.worker, f.test, false))
		require.Empty(t, f.rows(t))
	})

	t.Run("missing worker", func(t *testing.T) {
		f := setup(t)
		err := f.ctrl.SetParticipation(ctx, models.AdminActor(), f.unknown, f.test, true)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("missing test is checked after authorization", func(t *testing.T) {
		f := setup(t)
		err := f.ctrl.SetParticipation(ctx, f.actorY, f.worker, f.unknown, true)
		require.ErrorIs(t, err, auth.ErrUnauthorized)

		err = f.ctrl.SetParticipation(ctx, f.actorX, f.worker, f.unknown, true)
		require.ErrorIs(t, err, store.ErrStructureTestNotFound)
	})
}

func TestListForWorker(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	var t2 int64
	require.NoError(t, f.store.Update(ctx, func(tx store.Tx) error {
		st := &models.StructureTest{Name: "T2", Active: true, Added: today}
		err := tx.CreateStructureTest(ctx, st)
		t2 = st.ID
		return err
	}))
	require.NoError(t, f.ctrl.SetParticipation(ctx, f.actorX, f.worker, t2, true))

	got, err := f.ctrl.ListForWorker(ctx, f.actorY, f.worker)
	require.NoError(t, err)
	require.False(t, got.Editable)
	require.Len(t, got.Tests, 2)
	require.Equal(t, "T1", got.Tests[0].Test.Name)
	require.False(t, got.Tests[0].Participated)
	require.Nil(t, got.Tests[0].Added)
	require.Equal(t, "T2", got.Tests[1].Test.Name)
	require.True(t, got.Tests[1].Participated)
	require.Equal(t, models.Date(today), *got.Tests[1].Added)

	got, err = f.ctrl.ListForWorker(ctx, f.actorX, f.worker)
	require.NoError(t, err)
	require.True(t, got.Editable)

	_, err = f.ctrl.ListForWorker(ctx, f.actorX, f.unknown)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestImportToggleReimport(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	clock := func() time.Time { return today }
	rec := reconcile.New(s, reconcile.WithClock(clock))
	ctrl := New(s, WithClock(clock))

	_, err := rec.Reconcile(ctx, []roster.Row{
		{Line: 2, Name: "Doe,Jane", UnitLabel: "BX", DepartmentLabel: "Dept X"},
		{Line: 3, Name: "Roe,Sam", UnitLabel: "BX", DepartmentLabel: "Dept X"},
	}, roster.Mapping{})
	require.NoError(t, err)

	var jane, sam *models.Worker
	var deptX, deptY, t1 int64
	require.NoError(t, s.Update(ctx, func(tx store.Tx) error {
		var err error
		jane, err = tx.GetWorkerByName(ctx, "Doe,Jane")
		require.NoError(t, err)
		x, err := tx.GetDepartmentByName(ctx, "Dept X")
		require.NoError(t, err)
		deptX = x.ID

		y := &models.Department{Name: "Dept Y", Slug: "dept-y"}
		require.NoError(t, tx.CreateDepartment(ctx, y))
		deptY = y.ID

		st := &models.StructureTest{Name: "T1", Active: true, Added: today}
		require.NoError(t, tx.CreateStructureTest(ctx, st))
		t1 = st.ID
		return nil
	}))

	actorX := models.Actor{WorkerID: 100, OrganizingDepartmentID: &deptX}
	actorY := models.Actor{WorkerID: 101, OrganizingDepartmentID: &deptY}

	require.NoError(t, ctrl.SetParticipation(ctx, actorX, jane.ID, t1, true))

	err = ctrl.SetParticipation(ctx, actorY, jane.ID, t1, true)
	require.ErrorIs(t, err, auth.ErrUnauthorized)

	_, err = rec.Reconcile(ctx, []roster.Row{
		{Line: 2, Name: "Roe,Sam", UnitLabel: "BX", DepartmentLabel: "Dept X"},
	}, roster.Mapping{})
	require.NoError(t, err)

	require.NoError(t, s.View(ctx, func(tx store.Tx) error {
		var err error
		jane, err = tx.GetWorkerByName(ctx, "Doe,Jane")
		require.NoError(t, err)
		sam, err = tx.GetWorkerByName(ctx, "Roe,Sam")
		require.NoError(t, err)

		rows, err := tx.ListParticipation(ctx, store.ParticipationFilter{WorkerID: &jane.ID})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		require.Equal(t, t1, rows[0].StructureTestID)
		return nil
	}))

	require.False(t, jane.Active)
	require.True(t, sam.Active)
}
