package models

// Unit is the top level grouping above departments, usually a campus.
type Unit struct {
	ID   int64  `json:"id"`
	Name string `json:"name"` // unique, taken verbatim from the roster feed
	Slug string `json:"slug"`
}

// Clone returns a copy of the unit.
func (u *Unit) Clone() *Unit {
	clone := *u
	return &clone
}
