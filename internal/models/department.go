package models

// The Admin department is seeded by every store. Organizing for it grants
// administrator capability.
const (
	AdminDepartmentID   int64 = 0
	AdminDepartmentName       = "Admin"
	AdminDepartmentSlug       = "admin"
)

// Department groups workers. Departments are created on first reference by
// the roster feed and are only removed by an administrator.
type Department struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"` // unique canonical name
	Slug   string  `json:"slug"` // unique, used in URLs
	Alias  *string `json:"alias,omitempty"`
	UnitID *int64  `json:"unit_id,omitempty"` // weak reference, nulled when the unit is deleted
}

// AdminDepartment returns the seeded Admin department.
func AdminDepartment() *Department {
	return &Department{
		ID:   AdminDepartmentID,
		Name: AdminDepartmentName,
		Slug: AdminDepartmentSlug,
	}
}

// DisplayName returns the alias when one is set.
func (d *Department) DisplayName() string {
	if d.Alias != nil && *d.Alias != "" {
		return *d.Alias
	}
	return d.Name
}

// Clone returns a deep copy of the department.
func (d *Department) Clone() *Department {
	clone := *d
	clone.Alias = clonePtr(d.Alias)
	clone.UnitID = clonePtr(d.UnitID)
	return &clone
}
