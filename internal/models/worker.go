package models

import "time"

// Contract code assigned to workers added by hand rather than by the feed.
const ManualContract = "manual"

// Worker is a member of the roster. A worker with a password hash is also a
// user of the system.
type Worker struct {
	ID   int64  `json:"id"`
	Name string `json:"name"` // dedup key, "Last,First Middle"

	// Curated by organizers, never written by reconciliation
	PreferredName *string `json:"preferred_name,omitempty"`
	Pronouns      *string `json:"pronouns,omitempty"`
	Email         *string `json:"email,omitempty"`
	Phone         *string `json:"phone,omitempty"`
	Notes         *string `json:"notes,omitempty"`

	// Owned by the roster feed
	ContractCode     *string `json:"contract,omitempty"`
	CampusLabel      *string `json:"unit,omitempty"`
	HomeDepartmentID *int64  `json:"department_id,omitempty"`

	OrganizingDepartmentID *int64 `json:"organizing_dept_id,omitempty"` // only changed by an administrator

	// Chair roles, both grant administrator capability
	UnitChairOf       *int64 `json:"unit_chair_id,omitempty"`
	DepartmentChairOf *int64 `json:"dept_chair_id,omitempty"`

	Active  bool      `json:"active"`
	Added   time.Time `json:"added"`
	Updated time.Time `json:"updated"`

	PasswordHash *string `json:"-"`
}

// IsUser returns true if the worker is able to log in.
func (w *Worker) IsUser() bool {
	return w.PasswordHash != nil && *w.PasswordHash != ""
}

// IsAdmin returns true if the worker chairs a unit or department, or organizes
// for the Admin department.
func (w *Worker) IsAdmin() bool {
	if w.UnitChairOf != nil || w.DepartmentChairOf != nil {
		return true
	}
	return w.OrganizingDepartmentID != nil && *w.OrganizingDepartmentID == AdminDepartmentID
}

// OrganizedBy returns true if the worker is organized by the given department.
func (w *Worker) OrganizedBy(departmentID int64) bool {
	return w.OrganizingDepartmentID != nil && *w.OrganizingDepartmentID == departmentID
}

// HomedIn returns true if the worker's home department is the given department.
func (w *Worker) HomedIn(departmentID int64) bool {
	return w.HomeDepartmentID != nil && *w.HomeDepartmentID == departmentID
}

// DisplayName prefers the preferred name over the roster name.
func (w *Worker) DisplayName() string {
	if w.PreferredName != nil && *w.PreferredName != "" {
		return *w.PreferredName
	}
	return w.Name
}

// Clone returns a deep copy of the worker.
func (w *Worker) Clone() *Worker {
	clone := *w
	clone.PreferredName = clonePtr(w.PreferredName)
	clone.Pronouns = clonePtr(w.Pronouns)
	clone.Email = clonePtr(w.Email)
	clone.Phone = clonePtr(w.Phone)
	clone.Notes = clonePtr(w.Notes)
	clone.ContractCode = clonePtr(w.ContractCode)
	clone.CampusLabel = clonePtr(w.CampusLabel)
	clone.HomeDepartmentID = clonePtr(w.HomeDepartmentID)
	clone.OrganizingDepartmentID = clonePtr(w.OrganizingDepartmentID)
	clone.UnitChairOf = clonePtr(w.UnitChairOf)
	clone.DepartmentChairOf = clonePtr(w.DepartmentChairOf)
	clone.PasswordHash = clonePtr(w.PasswordHash)
	return &clone
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
