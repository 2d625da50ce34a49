package directory

import (
	"context"
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"

	"github.com/wolfeidau/wallchart/internal/auth"
	"github.com/wolfeidau/wallchart/internal/models"
	"github.com/wolfeidau/wallchart/internal/store"
)

// EditResult is the outcome of a worker edit. Warnings name patch values
// that were dropped instead of applied.
type EditResult struct {
	Worker   *models.Worker `json:"worker"`
	Warnings []string       `json:"warnings,omitempty"`
}

func (r *EditResult) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Chairs are the chair roles of a worker. A nil field clears the role.
type Chairs struct {
	UnitID       *int64 `json:"unit_chair_id"`
	DepartmentID *int64 `json:"dept_chair_id"`
}

// AddWorker creates a worker by hand. Manual workers carry the manual
// contract code and are homed in the Admin department.
func (s *Service) AddWorker(ctx context.Context, actor models.Actor, name string, patch models.WorkerPatch) (*EditResult, error) {
	if err := auth.RequirePermission(actor, auth.PermWorkersManage); err != nil {
		return nil, err
	}
	name, err := required("name", name)
	if err != nil {
		return nil, err
	}

	today := models.Date(s.clock())
	res := &EditResult{}
	err = s.store.Update(ctx, func(tx store.Tx) error {
		w := &models.Worker{
			Name:             name,
			ContractCode:     models.Ptr(models.ManualContract),
			HomeDepartmentID: models.Ptr(models.AdminDepartmentID),
			Active:           true,
			Added:            today,
			Updated:          today,
		}
		if err := s.apply(ctx, tx, w, patch, res); err != nil {
			return err
		}
		if err := tx.CreateWorker(ctx, w); err != nil {
			return err
		}
		res.Worker = w
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Int64("worker_id", res.Worker.ID).Int64("actor", actor.WorkerID).Msg("Worker added")
	return res, nil
}

// EditWorker applies patch to a worker. The actor must be an admin or belong
// to the worker's organizing department, and every field in the patch must be
// allowed for the actor's role.
func (s *Service) EditWorker(ctx context.Context, actor models.Actor, workerID int64, patch models.WorkerPatch) (*EditResult, error) {
	res := &EditResult{}
	err := s.store.Update(ctx, func(tx store.Tx) error {
		w, err := tx.GetWorker(ctx, workerID)
		if err != nil {
			return err
		}
		if err := auth.RequireWorkerAccess(actor, w, auth.PermWorkersEdit); err != nil {
			return err
		}
		if field, bad := patch.Disallowed(actor.Role()); bad {
			return fmt.Errorf("%w: %s may not change %s", auth.ErrUnauthorized, actor.Role(), field)
		}

		if err := s.apply(ctx, tx, w, patch, res); err != nil {
			return err
		}
		if err := tx.UpdateWorker(ctx, w); err != nil {
			return err
		}
		res.Worker = w
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("worker_id", workerID).
		Int64("actor", actor.WorkerID).
		Interface("fields", patch.Fields()).
		Int("warnings", len(res.Warnings)).
		Msg("Worker edited")
	return res, nil
}

// apply copies the patch onto w. Values that cannot be used are dropped with
// a warning rather than failing the edit.
func (s *Service) apply(ctx context.Context, tx store.Tx, w *models.Worker, patch models.WorkerPatch, res *EditResult) error {
	if patch.PreferredName != nil {
		w.PreferredName = optional(*patch.PreferredName)
	}
	if patch.Pronouns != nil {
		w.Pronouns = optional(*patch.Pronouns)
	}
	if patch.Notes != nil {
		w.Notes = optional(*patch.Notes)
	}
	if patch.Email != nil {
		w.Email = optional(strings.ToLower(*patch.Email))
	}
	if patch.Phone != nil {
		phone, err := s.normalizePhone(*patch.Phone)
		if err != nil {
			res.warn("phone %q was not saved: %v", *patch.Phone, err)
		} else {
			w.Phone = phone
		}
	}
	if patch.Active != nil {
		w.Active = *patch.Active
	}
	if patch.OrganizingDepartmentID != nil {
		if *patch.OrganizingDepartmentID < 0 {
			w.OrganizingDepartmentID = nil
		} else {
			dept, err := tx.GetDepartment(ctx, *patch.OrganizingDepartmentID)
			if err != nil {
				return err
			}
			w.OrganizingDepartmentID = &dept.ID
		}
	}
	if patch.Password != nil {
		switch {
		case *patch.Password == "":
			res.warn("password was not set: empty password")
		case w.Email == nil:
			res.warn("password was not set: an email address is required to log in")
		default:
			hash, err := s.verifier.Hash(*patch.Password)
			if err != nil {
				return err
			}
			w.PasswordHash = &hash
		}
	}
	return nil
}

// normalizePhone formats a phone number in national format for the
// configured region. An empty value clears the phone.
func (s *Service) normalizePhone(raw string) (*string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	num, err := phonenumbers.Parse(raw, s.region)
	if err != nil {
		return nil, err
	}
	formatted := phonenumbers.Format(num, phonenumbers.NATIONAL)
	return &formatted, nil
}

// DeleteWorker removes a worker and their participation.
func (s *Service) DeleteWorker(ctx context.Context, actor models.Actor, workerID int64) error {
	if err := auth.RequirePermission(actor, auth.PermWorkersManage); err != nil {
		return err
	}
	err := s.store.Update(ctx, func(tx store.Tx) error {
		return tx.DeleteWorker(ctx, workerID)
	})
	if err != nil {
		return err
	}
	s.log.Info().Int64("worker_id", workerID).Int64("actor", actor.WorkerID).Msg("Worker deleted")
	return nil
}

// RevokeLogin clears the worker's password so they can no longer log in.
// The worker record itself is kept.
func (s *Service) RevokeLogin(ctx context.Context, actor models.Actor, workerID int64) error {
	if err := auth.RequirePermission(actor, auth.PermWorkersManage); err != nil {
		return err
	}
	err := s.store.Update(ctx, func(tx store.Tx) error {
		w, err := tx.GetWorker(ctx, workerID)
		if err != nil {
			return err
		}
		w.PasswordHash = nil
		return tx.UpdateWorker(ctx, w)
	})
	if err != nil {
		return err
	}
	s.log.Info().Int64("worker_id", workerID).Int64("actor", actor.WorkerID).Msg("Login revoked")
	return nil
}

// SetChairs replaces the chair roles of a worker.
func (s *Service) SetChairs(ctx context.Context, actor models.Actor, workerID int64, chairs Chairs) (*models.Worker, error) {
	if err := auth.RequirePermission(actor, auth.PermWorkersManage); err != nil {
		return nil, err
	}

	var worker *models.Worker
	err := s.store.Update(ctx, func(tx store.Tx) error {
		w, err := tx.GetWorker(ctx, workerID)
		if err != nil {
			return err
		}
		if chairs.UnitID != nil {
			if _, err := tx.GetUnit(ctx, *chairs.UnitID); err != nil {
				return err
			}
		}
		if chairs.DepartmentID != nil {
			if _, err := tx.GetDepartment(ctx, *chairs.DepartmentID); err != nil {
				return err
			}
		}
		w.UnitChairOf = chairs.UnitID
		w.DepartmentChairOf = chairs.DepartmentID
		if err := tx.UpdateWorker(ctx, w); err != nil {
			return err
		}
		worker = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return worker, nil
}
