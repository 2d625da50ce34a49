package directory

import (
	"context"
	"strings"

	"github.com/wolfeidau/wallchart/internal/auth"
	"github.com/wolfeidau/wallchart/internal/models"
	"github.com/wolfeidau/wallchart/internal/roster"
	"github.com/wolfeidau/wallchart/internal/store"
)

// CreateUnit adds a unit.
func (s *Service) CreateUnit(ctx context.Context, actor models.Actor, name string) (*models.Unit, error) {
	if err := auth.RequirePermission(actor, auth.PermDirectoryManage); err != nil {
		return nil, err
	}
	name, err := required("name", name)
	if err != nil {
		return nil, err
	}

	unit := &models.Unit{Name: name, Slug: roster.Slug(name)}
	err = s.store.Update(ctx, func(tx store.Tx) error {
		return tx.CreateUnit(ctx, unit)
	})
	if err != nil {
		return nil, err
	}
	return unit, nil
}

// DeleteUnit removes a unit. Its departments are left without a unit.
func (s *Service) DeleteUnit(ctx context.Context, actor models.Actor, unitID int64) error {
	if err := auth.RequirePermission(actor, auth.PermDirectoryManage); err != nil {
		return err
	}
	return s.store.Update(ctx, func(tx store.Tx) error {
		return tx.DeleteUnit(ctx, unitID)
	})
}

// DepartmentBySlug resolves a department slug.
func (s *Service) DepartmentBySlug(ctx context.Context, slug string) (*models.Department, error) {
	var dept *models.Department
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		dept, err = tx.GetDepartmentBySlug(ctx, slug)
		return err
	})
	return dept, err
}

// UpdateDepartment sets the alias or unit of a department.
func (s *Service) UpdateDepartment(ctx context.Context, actor models.Actor, departmentID int64, patch models.DepartmentPatch) (*models.Department, error) {
	if err := auth.RequirePermission(actor, auth.PermDirectoryManage); err != nil {
		return nil, err
	}

	var dept *models.Department
	err := s.store.Update(ctx, func(tx store.Tx) error {
		d, err := tx.GetDepartment(ctx, departmentID)
		if err != nil {
			return err
		}
		if patch.Alias != nil {
			d.Alias = optional(*patch.Alias)
		}
		if patch.UnitID != nil {
			if *patch.UnitID < 0 {
				d.UnitID = nil
			} else {
				u, err := tx.GetUnit(ctx, *patch.UnitID)
				if err != nil {
					return err
				}
				d.UnitID = &u.ID
			}
		}
		if err := tx.UpdateDepartment(ctx, d); err != nil {
			return err
		}
		dept = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dept, nil
}

// DeleteDepartment removes a department. Workers referencing it keep their
// records with the reference cleared. The Admin department cannot be removed.
func (s *Service) DeleteDepartment(ctx context.Context, actor models.Actor, departmentID int64) error {
	if err := auth.RequirePermission(actor, auth.PermDirectoryManage); err != nil {
		return err
	}
	err := s.store.Update(ctx, func(tx store.Tx) error {
		return tx.DeleteDepartment(ctx, departmentID)
	})
	if err != nil {
		return err
	}
	s.log.Info().Int64("department_id", departmentID).Int64("actor", actor.WorkerID).Msg("Department deleted")
	return nil
}

// CreateStructureTest adds an active structure test dated today.
func (s *Service) CreateStructureTest(ctx context.Context, actor models.Actor, name, description string) (*models.StructureTest, error) {
	if err := auth.RequirePermission(actor, auth.PermDirectoryManage); err != nil {
		return nil, err
	}
	name, err := required("name", name)
	if err != nil {
		return nil, err
	}

	st := &models.StructureTest{
		Name:        name,
		Description: strings.TrimSpace(description),
		Active:      true,
		Added:       models.Date(s.clock()),
	}
	err = s.store.Update(ctx, func(tx store.Tx) error {
		return tx.CreateStructureTest(ctx, st)
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// UpdateStructureTest edits a structure test.
func (s *Service) UpdateStructureTest(ctx context.Context, actor models.Actor, testID int64, patch models.StructureTestPatch) (*models.StructureTest, error) {
	if err := auth.RequirePermission(actor, auth.PermDirectoryManage); err != nil {
		return nil, err
	}

	var st *models.StructureTest
	err := s.store.Update(ctx, func(tx store.Tx) error {
		t, err := tx.GetStructureTest(ctx, testID)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			if t.Name, err = required("name", *patch.Name); err != nil {
				return err
			}
		}
		if patch.Description != nil {
			t.Description = strings.TrimSpace(*patch.Description)
		}
		if patch.Active != nil {
			t.Active = *patch.Active
		}
		if err := tx.UpdateStructureTest(ctx, t); err != nil {
			return err
		}
		st = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// DeleteStructureTest removes a structure test and its participation rows.
func (s *Service) DeleteStructureTest(ctx context.Context, actor models.Actor, testID int64) error {
	if err := auth.RequirePermission(actor, auth.PermDirectoryManage); err != nil {
		return err
	}
	return s.store.Update(ctx, func(tx store.Tx) error {
		return tx.DeleteStructureTest(ctx, testID)
	})
}
