package models

// Field names a worker attribute that can be changed by a patch.
type Field string

const (
	FieldPreferredName          Field = "preferred_name"
	FieldPronouns               Field = "pronouns"
	FieldEmail                  Field = "email"
	FieldPhone                  Field = "phone"
	FieldNotes                  Field = "notes"
	FieldActive                 Field = "active"
	FieldOrganizingDepartmentID Field = "organizing_dept_id"
	FieldPassword               Field = "password"
)

// Role selects the allow-list applied to a patch.
type Role int

const (
	// RoleOrganizer is any logged in worker editing someone in their own
	// organizing department.
	RoleOrganizer Role = iota
	// RoleAdmin may change every field.
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	default:
		return "organizer"
	}
}

var organizerFields = map[Field]struct{}{
	FieldPreferredName: {},
	FieldPronouns:      {},
	FieldEmail:         {},
	FieldPhone:         {},
	FieldNotes:         {},
	FieldActive:        {},
}

// Allows returns true if the role may change the field.
func (r Role) Allows(f Field) bool {
	if r == RoleAdmin {
		return true
	}
	_, ok := organizerFields[f]
	return ok
}

// WorkerPatch is a partial update of a worker. Nil fields are left alone, an
// empty string clears an optional text field.
type WorkerPatch struct {
	PreferredName          *string `json:"preferred_name,omitempty"`
	Pronouns               *string `json:"pronouns,omitempty"`
	Email                  *string `json:"email,omitempty"`
	Phone                  *string `json:"phone,omitempty"`
	Notes                  *string `json:"notes,omitempty"`
	Active                 *bool   `json:"active,omitempty"`
	OrganizingDepartmentID *int64  `json:"organizing_dept_id,omitempty"`
	Password               *string `json:"password,omitempty"`
}

// Fields returns the fields the patch touches.
func (p *WorkerPatch) Fields() []Field {
	var fields []Field
	if p.PreferredName != nil {
		fields = append(fields, FieldPreferredName)
	}
	if p.Pronouns != nil {
		fields = append(fields, FieldPronouns)
	}
	if p.Email != nil {
		fields = append(fields, FieldEmail)
	}
	if p.Phone != nil {
		fields = append(fields, FieldPhone)
	}
	if p.Notes != nil {
		fields = append(fields, FieldNotes)
	}
	if p.Active != nil {
		fields = append(fields, FieldActive)
	}
	if p.OrganizingDepartmentID != nil {
		fields = append(fields, FieldOrganizingDepartmentID)
	}
	if p.Password != nil {
		fields = append(fields, FieldPassword)
	}
	return fields
}

// Disallowed returns the first field the role may not change.
func (p *WorkerPatch) Disallowed(role Role) (Field, bool) {
	for _, f := range p.Fields() {
		if !role.Allows(f) {
			return f, true
		}
	}
	return "", false
}

// DepartmentPatch is an administrator edit of a department.
type DepartmentPatch struct {
	Alias  *string `json:"alias,omitempty"`   // empty string clears
	UnitID *int64  `json:"unit_id,omitempty"` // negative clears
}

// StructureTestPatch edits a structure test.
type StructureTestPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}
