package models

import "time"

// StructureTest is a named organizing milestone. Tests are ordered by ID, the
// first created test is the baseline and the most recent one is the latest.
type StructureTest struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Active      bool      `json:"active"`
	Added       time.Time `json:"added"`
}

// Clone returns a copy of the structure test.
func (s *StructureTest) Clone() *StructureTest {
	clone := *s
	return &clone
}

// Participation records that a worker took part in a structure test. The row
// existing is the only participation signal.
type Participation struct {
	WorkerID        int64     `json:"worker_id"`
	StructureTestID int64     `json:"structure_test_id"`
	Added           time.Time `json:"added"`
}

// Clone returns a copy of the participation row.
func (p *Participation) Clone() *Participation {
	clone := *p
	return &clone
}
