package auth

import (
	"fmt"
	"slices"

	"github.com/wolfeidau/wallchart/internal/models"
)

// Permission represents an authorized action
type Permission string

const (
	PermParticipationToggle Permission = "participation:toggle"
	PermWorkersEdit         Permission = "workers:edit"
	PermWorkersManage       Permission = "workers:manage"
	PermDirectoryManage     Permission = "directory:manage"
	PermUsersList           Permission = "users:list"
	PermRosterImport        Permission = "roster:import"
	PermBackupExport        Permission = "backup:export"
	PermReportsView         Permission = "reports:view"
)

// RolePermissions maps roles to allowed permissions
var RolePermissions = map[models.Role][]Permission{
	models.RoleAdmin: {
		PermParticipationToggle,
		PermWorkersEdit,
		PermWorkersManage,
		PermDirectoryManage,
		PermUsersList,
		PermRosterImport,
		PermBackupExport,
		PermReportsView,
	},
	models.RoleOrganizer: {
		PermParticipationToggle,
		PermWorkersEdit,
		PermReportsView,
	},
}

// HasPermission checks if a role has a specific permission
func HasPermission(role models.Role, perm Permission) bool {
	perms, ok := RolePermissions[role]
	if !ok {
		return false
	}
	return slices.Contains(perms, perm)
}

// RequirePermission returns ErrUnauthorized if the actor's role lacks perm.
func RequirePermission(actor models.Actor, perm Permission) error {
	if !HasPermission(actor.Role(), perm) {
		return fmt.Errorf("%w: %s requires %s", ErrUnauthorized, actor.Role(), perm)
	}
	return nil
}

// RequireWorkerAccess returns ErrUnauthorized unless the actor holds perm and
// is an admin or belongs to the worker's organizing department.
func RequireWorkerAccess(actor models.Actor, w *models.Worker, perm Permission) error {
	if err := RequirePermission(actor, perm); err != nil {
		return err
	}
	if !actor.CanManage(w) {
		return fmt.Errorf("%w: worker %d is organized by another department", ErrUnauthorized, w.ID)
	}
	return nil
}
