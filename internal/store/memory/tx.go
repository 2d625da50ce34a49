package memory

import (
	"context"

	"github.com/wolfeidau/wallchart/internal/models"
	"github.com/wolfeidau/wallchart/internal/store"
)

var _ store.Tx = (*tx)(nil)

type tx struct {
	state    *state
	readOnly bool
}

func (t *tx) writable() error {
	if t.readOnly {
		return store.ErrReadOnly
	}
	return nil
}

// Units

func (t *tx) GetUnit(_ context.Context, id int64) (*models.Unit, error) {
	unit, ok := t.state.units[id]
	if !ok {
		return nil, store.ErrUnitNotFound
	}
	return unit.Clone(), nil
}

func (t *tx) GetUnitByName(_ context.Context, name string) (*models.Unit, error) {
	for _, unit := range t.state.units {
		if unit.Name == name {
			return unit.Clone(), nil
		}
	}
	return nil, store.ErrUnitNotFound
}

func (t *tx) CreateUnit(_ context.Context, unit *models.Unit) error {
	if err := t.writable(); err != nil {
		return err
	}
	for _, existing := range t.state.units {
		if existing.Name == unit.Name {
			return &store.UniqueViolation{Entity: "unit", Field: "name", Value: unit.Name}
		}
	}

	unit.ID = t.state.nextUnitID
	t.state.nextUnitID++
	t.state.units[unit.ID] = unit.Clone()
	return nil
}

func (t *tx) DeleteUnit(_ context.Context, id int64) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.state.units[id]; !ok {
		return store.ErrUnitNotFound
	}
	delete(t.state.units, id)

	for deptID, dept := range t.state.departments {
		if dept.UnitID != nil && *dept.UnitID == id {
			clone := dept.Clone()
			clone.UnitID = nil
			t.state.departments[deptID] = clone
		}
	}
	for workerID, worker := range t.state.workers {
		if worker.UnitChairOf != nil && *worker.UnitChairOf == id {
			clone := worker.Clone()
			clone.UnitChairOf = nil
			t.state.workers[workerID] = clone
		}
	}
	return nil
}

func (t *tx) ListUnits(_ context.Context) ([]*models.Unit, error) {
	units := make([]*models.Unit, 0, len(t.state.units))
	for _, id := range sortedIDs(t.state.units) {
		units = append(units, t.state.units[id].Clone())
	}
	return units, nil
}

// Departments

func (t *tx) GetDepartment(_ context.Context, id int64) (*models.Department, error) {
	dept, ok := t.state.departments[id]
	if !ok {
		return nil, store.ErrDepartmentNotFound
	}
	return dept.Clone(), nil
}

func (t *tx) GetDepartmentByName(_ context.Context, name string) (*models.Department, error) {
	for _, dept := range t.state.departments {
		if dept.Name == name {
			return dept.Clone(), nil
		}
	}
	return nil, store.ErrDepartmentNotFound
}

func (t *tx) GetDepartmentBySlug(_ context.Context, slug string) (*models.Department, error) {
	for _, dept := range t.state.departments {
		if dept.Slug == slug {
			return dept.Clone(), nil
		}
	}
	return nil, store.ErrDepartmentNotFound
}

func (t *tx) CreateDepartment(_ context.Context, dept *models.Department) error {
	if err := t.writable(); err != nil {
		return err
	}
	if err := t.checkDepartment(dept, -1); err != nil {
		return err
	}

	dept.ID = t.state.nextDepartmentID
	t.state.nextDepartmentID++
	t.state.departments[dept.ID] = dept.Clone()
	return nil
}

func (t *tx) UpdateDepartment(_ context.Context, dept *models.Department) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.state.departments[dept.ID]; !ok {
		return store.ErrDepartmentNotFound
	}
	if err := t.checkDepartment(dept, dept.ID); err != nil {
		return err
	}

	t.state.departments[dept.ID] = dept.Clone()
	return nil
}

// checkDepartment enforces uniqueness and references, ignoring the department with ID self.
func (t *tx) checkDepartment(dept *models.Department, self int64) error {
	for id, existing := range t.state.departments {
		if id == self {
			continue
		}
		if existing.Name == dept.Name {
			return &store.UniqueViolation{Entity: "department", Field: "name", Value: dept.Name}
		}
		if existing.Slug == dept.Slug {
			return &store.UniqueViolation{Entity: "department", Field: "slug", Value: dept.Slug}
		}
		if dept.Alias != nil && existing.Alias != nil && *existing.Alias == *dept.Alias {
			return &store.UniqueViolation{Entity: "department", Field: "alias", Value: *dept.Alias}
		}
	}
	if dept.UnitID != nil {
		if _, ok := t.state.units[*dept.UnitID]; !ok {
			return store.ErrInvalidReference
		}
	}
	return nil
}

func (t *tx) DeleteDepartment(_ context.Context, id int64) error {
	if err := t.writable(); err != nil {
		return err
	}
	if id == models.AdminDepartmentID {
		return store.ErrProtected
	}
	if _, ok := t.state.departments[id]; !ok {
		return store.ErrDepartmentNotFound
	}
	delete(t.state.departments, id)

	refersTo := func(ref *int64) bool { return ref != nil && *ref == id }
	for workerID, worker := range t.state.workers {
		if !refersTo(worker.HomeDepartmentID) && !refersTo(worker.OrganizingDepartmentID) && !refersTo(worker.DepartmentChairOf) {
			continue
		}
		clone := worker.Clone()
		if refersTo(clone.HomeDepartmentID) {
			clone.HomeDepartmentID = nil
		}
		if refersTo(clone.OrganizingDepartmentID) {
			clone.OrganizingDepartmentID = nil
		}
		if refersTo(clone.DepartmentChairOf) {
			clone.DepartmentChairOf = nil
		}
		t.state.workers[workerID] = clone
	}
	return nil
}

func (t *tx) ListDepartments(_ context.Context) ([]*models.Department, error) {
	depts := make([]*models.Department, 0, len(t.state.departments))
	for _, id := range sortedIDs(t.state.departments) {
		depts = append(depts, t.state.departments[id].Clone())
	}
	return depts, nil
}

// Workers

func (t *tx) GetWorker(_ context.Context, id int64) (*models.Worker, error) {
	worker, ok := t.state.workers[id]
	if !ok {
		return nil, store.ErrWorkerNotFound
	}
	return worker.Clone(), nil
}

func (t *tx) GetWorkerByName(_ context.Context, name string) (*models.Worker, error) {
	id, ok := t.state.workersByName[name]
	if !ok {
		return nil, store.ErrWorkerNotFound
	}
	return t.state.workers[id].Clone(), nil
}

func (t *tx) GetWorkerByEmail(_ context.Context, email string) (*models.Worker, error) {
	for _, worker := range t.state.workers {
		if worker.Email != nil && *worker.Email == email {
			return worker.Clone(), nil
		}
	}
	return nil, store.ErrWorkerNotFound
}

func (t *tx) CreateWorker(_ context.Context, worker *models.Worker) error {
	if err := t.writable(); err != nil {
		return err
	}
	if err := t.checkWorker(worker, -1); err != nil {
		return err
	}

	worker.ID = t.state.nextWorkerID
	t.state.nextWorkerID++
	t.state.workers[worker.ID] = worker.Clone()
	t.state.workersByName[worker.Name] = worker.ID
	return nil
}

func (t *tx) UpdateWorker(_ context.Context, worker *models.Worker) error {
	if err := t.writable(); err != nil {
		return err
	}
	existing, ok := t.state.workers[worker.ID]
	if !ok {
		return store.ErrWorkerNotFound
	}
	if err := t.checkWorker(worker, worker.ID); err != nil {
		return err
	}

	if existing.Name != worker.Name {
		delete(t.state.workersByName, existing.Name)
		t.state.workersByName[worker.Name] = worker.ID
	}
	t.state.workers[worker.ID] = worker.Clone()
	return nil
}

// checkWorker enforces uniqueness and references, ignoring the worker with ID self.
func (t *tx) checkWorker(worker *models.Worker, self int64) error {
	if id, ok := t.state.workersByName[worker.Name]; ok && id != self {
		return &store.UniqueViolation{Entity: "worker", Field: "name", Value: worker.Name}
	}
	if worker.Email != nil || worker.Phone != nil {
		for id, existing := range t.state.workers {
			if id == self {
				continue
			}
			if sameValue(worker.Email, existing.Email) {
				return &store.UniqueViolation{Entity: "worker", Field: "email", Value: *worker.Email}
			}
			if sameValue(worker.Phone, existing.Phone) {
				return &store.UniqueViolation{Entity: "worker", Field: "phone", Value: *worker.Phone}
			}
		}
	}

	for _, ref := range []*int64{worker.HomeDepartmentID, worker.OrganizingDepartmentID, worker.DepartmentChairOf} {
		if ref == nil {
			continue
		}
		if _, ok := t.state.departments[*ref]; !ok {
			return store.ErrInvalidReference
		}
	}
	if worker.UnitChairOf != nil {
		if _, ok := t.state.units[*worker.UnitChairOf]; !ok {
			return store.ErrInvalidReference
		}
	}
	return nil
}

func sameValue(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}

func (t *tx) DeleteWorker(_ context.Context, id int64) error {
	if err := t.writable(); err != nil {
		return err
	}
	worker, ok := t.state.workers[id]
	if !ok {
		return store.ErrWorkerNotFound
	}
	delete(t.state.workers, id)
	delete(t.state.workersByName, worker.Name)

	for key := range t.state.participation {
		if key.workerID == id {
			delete(t.state.participation, key)
		}
	}
	return nil
}

func (t *tx) ListWorkers(_ context.Context, filter store.WorkerFilter) ([]*models.Worker, error) {
	var workers []*models.Worker
	for _, id := range sortedIDs(t.state.workers) {
		worker := t.state.workers[id]
		if filter.Match(worker) {
			workers = append(workers, worker.Clone())
		}
	}
	return workers, nil
}

func (t *tx) DeactivateWorkersExcept(_ context.Context, keep map[int64]struct{}) (int, error) {
	if err := t.writable(); err != nil {
		return 0, err
	}
	count := 0
	for id, worker := range t.state.workers {
		if _, ok := keep[id]; ok || !worker.Active {
			continue
		}
		clone := worker.Clone()
		clone.Active = false
		t.state.workers[id] = clone
		count++
	}
	return count, nil
}

// Structure tests

func (t *tx) GetStructureTest(_ context.Context, id int64) (*models.StructureTest, error) {
	test, ok := t.state.tests[id]
	if !ok {
		return nil, store.ErrStructureTestNotFound
	}
	return test.Clone(), nil
}

func (t *tx) CreateStructureTest(_ context.Context, test *models.StructureTest) error {
	if err := t.writable(); err != nil {
		return err
	}
	if err := t.checkStructureTest(test, -1); err != nil {
		return err
	}

	test.ID = t.state.nextTestID
	t.state.nextTestID++
	t.state.tests[test.ID] = test.Clone()
	return nil
}

func (t *tx) UpdateStructureTest(_ context.Context, test *models.StructureTest) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.state.tests[test.ID]; !ok {
		return store.ErrStructureTestNotFound
	}
	if err := t.checkStructureTest(test, test.ID); err != nil {
		return err
	}

	t.state.tests[test.ID] = test.Clone()
	return nil
}

func (t *tx) checkStructureTest(test *models.StructureTest, self int64) error {
	for id, existing := range t.state.tests {
		if id != self && existing.Name == test.Name {
			return &store.UniqueViolation{Entity: "structure test", Field: "name", Value: test.Name}
		}
	}
	return nil
}

func (t *tx) DeleteStructureTest(_ context.Context, id int64) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.state.tests[id]; !ok {
		return store.ErrStructureTestNotFound
	}
	delete(t.state.tests, id)

	for key := range t.state.participation {
		if key.testID == id {
			delete(t.state.participation, key)
		}
	}
	return nil
}

func (t *tx) ListStructureTests(_ context.Context) ([]*models.StructureTest, error) {
	tests := make([]*models.StructureTest, 0, len(t.state.tests))
	for _, id := range sortedIDs(t.state.tests) {
		tests = append(tests, t.state.tests[id].Clone())
	}
	return tests, nil
}

// Participation

func (t *tx) AddParticipation(_ context.Context, p *models.Participation) (bool, error) {
	if err := t.writable(); err != nil {
		return false, err
	}
	if _, ok := t.state.workers[p.WorkerID]; !ok {
		return false, store.ErrInvalidReference
	}
	if _, ok := t.state.tests[p.StructureTestID]; !ok {
		return false, store.ErrInvalidReference
	}

	key := participationKey{p.WorkerID, p.StructureTestID}
	if _, ok := t.state.participation[key]; ok {
		return false, nil
	}
	t.state.participation[key] = p.Clone()
	return true, nil
}

func (t *tx) RemoveParticipation(_ context.Context, workerID, structureTestID int64) (bool, error) {
	if err := t.writable(); err != nil {
		return false, err
	}
	key := participationKey{workerID, structureTestID}
	if _, ok := t.state.participation[key]; !ok {
		return false, nil
	}
	delete(t.state.participation, key)
	return true, nil
}

func (t *tx) ListParticipation(_ context.Context, filter store.ParticipationFilter) ([]*models.Participation, error) {
	var rows []*models.Participation
	for _, p := range t.state.participation {
		if filter.Match(p) {
			rows = append(rows, p.Clone())
		}
	}
	sortParticipation(rows)
	return rows, nil
}
