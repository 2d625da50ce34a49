package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/wolfeidau/wallchart/internal/models"
)

// Sentinel errors for common error conditions
var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrInvalidReference = errors.New("invalid reference")
	ErrProtected        = errors.New("record is protected")
	ErrReadOnly         = errors.New("read-only transaction")
)

// Entity specific not found errors, all matching ErrNotFound.
var (
	ErrUnitNotFound          = fmt.Errorf("unit %w", ErrNotFound)
	ErrDepartmentNotFound    = fmt.Errorf("department %w", ErrNotFound)
	ErrWorkerNotFound        = fmt.Errorf("worker %w", ErrNotFound)
	ErrStructureTestNotFound = fmt.Errorf("structure test %w", ErrNotFound)
)

// UniqueViolation is returned when a write would break a uniqueness rule.
// It matches ErrAlreadyExists.
type UniqueViolation struct {
	Entity string
	Field  string
	Value  string
}

func (e *UniqueViolation) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s with this %s already exists", e.Entity, e.Field)
	}
	return fmt.Sprintf("%s with %s %q already exists", e.Entity, e.Field, e.Value)
}

func (e *UniqueViolation) Unwrap() error {
	return ErrAlreadyExists
}

// Store is the entity store. All access happens inside a transaction, and
// read-write transactions are serialized so there is a single logical writer.
type Store interface {
	// Update runs fn in a read-write transaction. If fn returns an error no
	// change made by fn is kept.
	Update(ctx context.Context, fn func(tx Tx) error) error

	// View runs fn against a consistent read-only view of the store.
	// Mutations inside View return ErrReadOnly.
	View(ctx context.Context, fn func(tx Tx) error) error

	Close() error
}

// Tx is the set of operations available inside a transaction. Getters return
// ErrXNotFound, writes that break uniqueness return *UniqueViolation. Returned
// records are copies owned by the caller.
type Tx interface {
	// Units
	GetUnit(ctx context.Context, id int64) (*models.Unit, error)
	GetUnitByName(ctx context.Context, name string) (*models.Unit, error)
	CreateUnit(ctx context.Context, unit *models.Unit) error
	// DeleteUnit removes the unit and nulls department and chair references to it.
	DeleteUnit(ctx context.Context, id int64) error
	ListUnits(ctx context.Context) ([]*models.Unit, error)

	// Departments
	GetDepartment(ctx context.Context, id int64) (*models.Department, error)
	GetDepartmentByName(ctx context.Context, name string) (*models.Department, error)
	GetDepartmentBySlug(ctx context.Context, slug string) (*models.Department, error)
	CreateDepartment(ctx context.Context, dept *models.Department) error
	UpdateDepartment(ctx context.Context, dept *models.Department) error
	// DeleteDepartment removes the department and nulls worker references to
	// it. The Admin department returns ErrProtected.
	DeleteDepartment(ctx context.Context, id int64) error
	ListDepartments(ctx context.Context) ([]*models.Department, error)

	// Workers
	GetWorker(ctx context.Context, id int64) (*models.Worker, error)
	GetWorkerByName(ctx context.Context, name string) (*models.Worker, error)
	GetWorkerByEmail(ctx context.Context, email string) (*models.Worker, error)
	CreateWorker(ctx context.Context, worker *models.Worker) error
	UpdateWorker(ctx context.Context, worker *models.Worker) error
	// DeleteWorker removes the worker and their participation rows.
	DeleteWorker(ctx context.Context, id int64) error
	ListWorkers(ctx context.Context, filter WorkerFilter) ([]*models.Worker, error)
	// DeactivateWorkersExcept marks every worker whose ID is not in keep as
	// inactive and returns how many were active before.
	DeactivateWorkersExcept(ctx context.Context, keep map[int64]struct{}) (int, error)

	// Structure tests
	GetStructureTest(ctx context.Context, id int64) (*models.StructureTest, error)
	CreateStructureTest(ctx context.Context, test *models.StructureTest) error
	UpdateStructureTest(ctx context.Context, test *models.StructureTest) error
	// DeleteStructureTest removes the test and its participation rows.
	DeleteStructureTest(ctx context.Context, id int64) error
	// ListStructureTests returns tests in creation order.
	ListStructureTests(ctx context.Context) ([]*models.StructureTest, error)

	// Participation
	// AddParticipation inserts the row if it is absent and reports whether it
	// was created. Unknown worker or test IDs return ErrInvalidReference.
	AddParticipation(ctx context.Context, p *models.Participation) (bool, error)
	// RemoveParticipation deletes the row if present and reports whether it existed.
	RemoveParticipation(ctx context.Context, workerID, structureTestID int64) (bool, error)
	ListParticipation(ctx context.Context, filter ParticipationFilter) ([]*models.Participation, error)
}

// WorkerFilter narrows ListWorkers. Zero value lists every worker.
type WorkerFilter struct {
	Active                 *bool
	OrganizingDepartmentID *int64
	HomeDepartmentID       *int64
	UsersOnly              bool
}

// Match returns true if the worker passes the filter.
func (f WorkerFilter) Match(w *models.Worker) bool {
	if f.Active != nil && w.Active != *f.Active {
		return false
	}
	if f.OrganizingDepartmentID != nil && !w.OrganizedBy(*f.OrganizingDepartmentID) {
		return false
	}
	if f.HomeDepartmentID != nil && !w.HomedIn(*f.HomeDepartmentID) {
		return false
	}
	if f.UsersOnly && !w.IsUser() {
		return false
	}
	return true
}

// ParticipationFilter narrows ListParticipation.
type ParticipationFilter struct {
	WorkerID        *int64
	StructureTestID *int64
}

// Match returns true if the participation row passes the filter.
func (f ParticipationFilter) Match(p *models.Participation) bool {
	if f.WorkerID != nil && p.WorkerID != *f.WorkerID {
		return false
	}
	if f.StructureTestID != nil && p.StructureTestID != *f.StructureTestID {
		return false
	}
	return true
}
