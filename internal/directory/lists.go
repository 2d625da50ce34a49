package directory

import (
	"context"

	"github.com/wolfeidau/wallchart/internal/auth"
	"github.com/wolfeidau/wallchart/internal/models"
	"github.com/wolfeidau/wallchart/internal/store"
)

// WorkerRecord is a worker joined with the names of their departments.
type WorkerRecord struct {
	*models.Worker
	OrganizingDepartmentName string `json:"organizing_dept_name,omitempty"`
	OrganizingDepartmentSlug string `json:"organizing_dept_slug,omitempty"`
	HomeDepartmentName       string `json:"department_name,omitempty"`
	CanLogin                 bool   `json:"is_user"`
	Admin                    bool   `json:"is_admin"`
}

// ParticipationRecord is a participation row with the worker's organizing
// department.
type ParticipationRecord struct {
	*models.Participation
	OrganizingDepartmentID *int64 `json:"organizing_dept_id,omitempty"`
}

// Workers lists workers matching filter.
func (s *Service) Workers(ctx context.Context, actor models.Actor, filter store.WorkerFilter) ([]WorkerRecord, error) {
	if err := auth.RequirePermission(actor, auth.PermReportsView); err != nil {
		return nil, err
	}
	return s.workerRecords(ctx, filter)
}

// Users lists the workers able to log in.
func (s *Service) Users(ctx context.Context, actor models.Actor) ([]WorkerRecord, error) {
	if err := auth.RequirePermission(actor, auth.PermUsersList); err != nil {
		return nil, err
	}
	return s.workerRecords(ctx, store.WorkerFilter{UsersOnly: true})
}

// Worker returns one worker record.
func (s *Service) Worker(ctx context.Context, actor models.Actor, workerID int64) (*WorkerRecord, error) {
	if err := auth.RequirePermission(actor, auth.PermReportsView); err != nil {
		return nil, err
	}

	var rec WorkerRecord
	err := s.store.View(ctx, func(tx store.Tx) error {
		w, err := tx.GetWorker(ctx, workerID)
		if err != nil {
			return err
		}
		depts, err := departmentIndex(ctx, tx)
		if err != nil {
			return err
		}
		rec = record(w, depts)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Service) workerRecords(ctx context.Context, filter store.WorkerFilter) ([]WorkerRecord, error) {
	records := []WorkerRecord{}
	err := s.store.View(ctx, func(tx store.Tx) error {
		workers, err := tx.ListWorkers(ctx, filter)
		if err != nil {
			return err
		}
		depts, err := departmentIndex(ctx, tx)
		if err != nil {
			return err
		}
		for _, w := range workers {
			records = append(records, record(w, depts))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Departments lists every department.
func (s *Service) Departments(ctx context.Context, actor models.Actor) ([]*models.Department, error) {
	if err := auth.RequirePermission(actor, auth.PermReportsView); err != nil {
		return nil, err
	}
	depts := []*models.Department{}
	err := s.store.View(ctx, func(tx store.Tx) error {
		list, err := tx.ListDepartments(ctx)
		depts = append(depts, list...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return depts, nil
}

// Units lists every unit.
func (s *Service) Units(ctx context.Context, actor models.Actor) ([]*models.Unit, error) {
	if err := auth.RequirePermission(actor, auth.PermReportsView); err != nil {
		return nil, err
	}
	units := []*models.Unit{}
	err := s.store.View(ctx, func(tx store.Tx) error {
		list, err := tx.ListUnits(ctx)
		units = append(units, list...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return units, nil
}

// StructureTests lists every structure test in creation order.
func (s *Service) StructureTests(ctx context.Context, actor models.Actor) ([]*models.StructureTest, error) {
	if err := auth.RequirePermission(actor, auth.PermReportsView); err != nil {
		return nil, err
	}
	tests := []*models.StructureTest{}
	err := s.store.View(ctx, func(tx store.Tx) error {
		list, err := tx.ListStructureTests(ctx)
		tests = append(tests, list...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tests, nil
}

// Participation lists participation rows matching filter.
func (s *Service) Participation(ctx context.Context, actor models.Actor, filter store.ParticipationFilter) ([]ParticipationRecord, error) {
	if err := auth.RequirePermission(actor, auth.PermReportsView); err != nil {
		return nil, err
	}

	records := []ParticipationRecord{}
	err := s.store.View(ctx, func(tx store.Tx) error {
		rows, err := tx.ListParticipation(ctx, filter)
		if err != nil {
			return err
		}
		workers, err := tx.ListWorkers(ctx, store.WorkerFilter{})
		if err != nil {
			return err
		}
		org := make(map[int64]*int64, len(workers))
		for _, w := range workers {
			org[w.ID] = w.OrganizingDepartmentID
		}
		for _, p := range rows {
			records = append(records, ParticipationRecord{Participation: p, OrganizingDepartmentID: org[p.WorkerID]})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func departmentIndex(ctx context.Context, tx store.Tx) (map[int64]*models.Department, error) {
	depts, err := tx.ListDepartments(ctx)
	if err != nil {
		return nil, err
	}
	index := make(map[int64]*models.Department, len(depts))
	for _, d := range depts {
		index[d.ID] = d
	}
	return index, nil
}

func record(w *models.Worker, depts map[int64]*models.Department) WorkerRecord {
	rec := WorkerRecord{Worker: w, CanLogin: w.IsUser(), Admin: w.IsAdmin()}
	if w.OrganizingDepartmentID != nil {
		if d, ok := depts[*w.OrganizingDepartmentID]; ok {
			rec.OrganizingDepartmentName = d.DisplayName()
			rec.OrganizingDepartmentSlug = d.Slug
		}
	}
	if w.HomeDepartmentID != nil {
		if d, ok := depts[*w.HomeDepartmentID]; ok {
			rec.HomeDepartmentName = d.DisplayName()
		}
	}
	return rec
}
