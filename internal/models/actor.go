package models

// BuiltinAdminID is the worker ID used by the configured administrator login,
// which has no worker record.
const BuiltinAdminID int64 = 0

// Actor is the caller of an operation. It is rebuilt from the store on every
// request and passed explicitly, so role changes apply immediately.
type Actor struct {
	WorkerID               int64
	OrganizingDepartmentID *int64
	IsAdmin                bool
}

// AdminActor returns the actor for the built-in administrator login.
func AdminActor() Actor {
	return Actor{
		WorkerID:               BuiltinAdminID,
		OrganizingDepartmentID: Ptr(AdminDepartmentID),
		IsAdmin:                true,
	}
}

// ActorFor builds the actor for a logged in worker.
func ActorFor(w *Worker) Actor {
	return Actor{
		WorkerID:               w.ID,
		OrganizingDepartmentID: clonePtr(w.OrganizingDepartmentID),
		IsAdmin:                w.IsAdmin(),
	}
}

// CanManage returns true if the actor may change the worker's participation
// and organizer-editable fields.
func (a Actor) CanManage(w *Worker) bool {
	if a.IsAdmin {
		return true
	}
	if a.OrganizingDepartmentID == nil {
		return false
	}
	return w.OrganizedBy(*a.OrganizingDepartmentID)
}

// Role returns the patch role of the actor.
func (a Actor) Role() Role {
	if a.IsAdmin {
		return RoleAdmin
	}
	return RoleOrganizer
}
