package report

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/wolfeidau/wallchart/internal/models"
	"github.com/wolfeidau/wallchart/internal/store"
)

// NoUnit is the unit name shown for departments without a unit.
const NoUnit = "No Unit"

// Counts are the participation totals of a group of active workers. Each
// worker is counted once per figure however many tests they took part in.
type Counts struct {
	Total    int           `json:"total"`
	None     int           `json:"none"`
	Baseline int           `json:"baseline"`
	Latest   int           `json:"latest"`
	PerTest  map[int64]int `json:"per_test"`
}

// DepartmentRow is the roll-up of one department.
type DepartmentRow struct {
	DepartmentID int64   `json:"department_id"`
	Name         string  `json:"name"`
	Slug         string  `json:"slug"`
	Alias        *string `json:"alias,omitempty"`
	UnitName     string  `json:"unit_name"`
	Counts
}

// DepartmentReport holds a row for every department.
type DepartmentReport struct {
	BaselineTest *models.StructureTest   `json:"baseline_test"`
	LatestTest   *models.StructureTest   `json:"latest_test"`
	Tests        []*models.StructureTest `json:"tests"`
	Rows         []DepartmentRow         `json:"rows"`
}

// UnitRow is the roll-up of the departments of one unit.
type UnitRow struct {
	UnitID int64  `json:"unit_id"`
	Name   string `json:"name"`
	Slug   string `json:"slug"`
	Counts
}

// UnitReport holds a row for every unit.
type UnitReport struct {
	BaselineTest *models.StructureTest   `json:"baseline_test"`
	LatestTest   *models.StructureTest   `json:"latest_test"`
	Tests        []*models.StructureTest `json:"tests"`
	Rows         []UnitRow               `json:"rows"`
}

// Summary is the administrator dashboard header.
type Summary struct {
	DepartmentCount   int        `json:"department_count"`
	ActiveWorkerCount int        `json:"active_worker_count"`
	LastUpdated       *time.Time `json:"last_updated"`
}

// TestSummary is a structure test with how many workers took part.
type TestSummary struct {
	Test         *models.StructureTest `json:"test"`
	Participants int                   `json:"participants"`
}

// StructureTestReport lists every structure test.
type StructureTestReport struct {
	ActiveWorkers int           `json:"active_workers"`
	Tests         []TestSummary `json:"tests"`
}

// WorkerWithTests is a worker and the IDs of the tests they took part in.
type WorkerWithTests struct {
	Worker *models.Worker `json:"worker"`
	Tests  []int64        `json:"tests"`
}

// DepartmentSheet is the wall chart of one department.
type DepartmentSheet struct {
	Department *models.Department      `json:"department"`
	Tests      []*models.StructureTest `json:"tests"`
	// Active workers organized by the department.
	Active []WorkerWithTests `json:"active"`
	// Inactive workers organized by and homed in the department.
	Inactive []*models.Worker `json:"inactive"`
	// External workers are homed in the department but organized elsewhere.
	External []*models.Worker `json:"external"`
}

// Reporter computes roll-ups from a consistent view of the store.
//
// A worker belongs to their organizing department. Counts are built by
// grouping active workers and looking up each worker's participation set
// once, so a worker in several tests never inflates a total and a worker in
// none is never dropped.
type Reporter struct {
	store store.Store
}

// New creates a Reporter.
func New(s store.Store) *Reporter {
	return &Reporter{store: s}
}

// Departments returns a row for every department, including departments
// without active workers.
func (r *Reporter) Departments(ctx context.Context) (*DepartmentReport, error) {
	d, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	unitNames := make(map[int64]string, len(d.units))
	for _, u := range d.units {
		unitNames[u.ID] = u.Name
	}

	byDept := d.group(func(w *models.Worker) *int64 { return w.OrganizingDepartmentID })

	rep := &DepartmentReport{Tests: d.tests, Rows: make([]DepartmentRow, 0, len(d.departments))}
	rep.BaselineTest, rep.LatestTest = d.baseline(), d.latest()

	for _, dept := range d.departments {
		unitName := NoUnit
		if dept.UnitID != nil {
			if name, ok := unitNames[*dept.UnitID]; ok {
				unitName = name
			}
		}
		rep.Rows = append(rep.Rows, DepartmentRow{
			DepartmentID: dept.ID,
			Name:         dept.Name,
			Slug:         dept.Slug,
			Alias:        dept.Alias,
			UnitName:     unitName,
			Counts:       d.count(byDept[dept.ID]),
		})
	}

	slices.SortFunc(rep.Rows, func(a, b DepartmentRow) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.DepartmentID, b.DepartmentID))
	})
	return rep, nil
}

// Units returns a row for every unit. Workers of departments without a unit
// are not counted in any row.
func (r *Reporter) Units(ctx context.Context) (*UnitReport, error) {
	d, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	unitOf := make(map[int64]int64, len(d.departments))
	for _, dept := range d.departments {
		if dept.UnitID != nil {
			unitOf[dept.ID] = *dept.UnitID
		}
	}

	byUnit := d.group(func(w *models.Worker) *int64 {
		if w.OrganizingDepartmentID == nil {
			return nil
		}
		unitID, ok := unitOf[*w.OrganizingDepartmentID]
		if !ok {
			return nil
		}
		return &unitID
	})

	rep := &UnitReport{Tests: d.tests, Rows: make([]UnitRow, 0, len(d.units))}
	rep.BaselineTest, rep.LatestTest = d.baseline(), d.latest()

	for _, u := range d.units {
		rep.Rows = append(rep.Rows, UnitRow{
			UnitID: u.ID,
			Name:   u.Name,
			Slug:   u.Slug,
			Counts: d.count(byUnit[u.ID]),
		})
	}

	slices.SortFunc(rep.Rows, func(a, b UnitRow) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.UnitID, b.UnitID))
	})
	return rep, nil
}

// Summary returns the dashboard figures. The Admin department is not counted.
func (r *Reporter) Summary(ctx context.Context) (*Summary, error) {
	d, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	s := &Summary{}
	for _, dept := range d.departments {
		if dept.ID != models.AdminDepartmentID {
			s.DepartmentCount++
		}
	}
	for _, w := range d.workers {
		if w.Active {
			s.ActiveWorkerCount++
		}
		if s.LastUpdated == nil || w.Updated.After(*s.LastUpdated) {
			updated := w.Updated
			s.LastUpdated = &updated
		}
	}
	return s, nil
}

// StructureTests returns every test in creation order with its participant
// count.
func (r *Reporter) StructureTests(ctx context.Context) (*StructureTestReport, error) {
	d, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	perTest := make(map[int64]int, len(d.tests))
	for _, set := range d.participation {
		for testID := range set {
			perTest[testID]++
		}
	}

	rep := &StructureTestReport{Tests: make([]TestSummary, 0, len(d.tests))}
	for _, w := range d.workers {
		if w.Active {
			rep.ActiveWorkers++
		}
	}
	for _, st := range d.tests {
		rep.Tests = append(rep.Tests, TestSummary{Test: st, Participants: perTest[st.ID]})
	}
	return rep, nil
}

// DepartmentSheet returns the wall chart of a department.
func (r *Reporter) DepartmentSheet(ctx context.Context, departmentID int64) (*DepartmentSheet, error) {
	d, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	idx := slices.IndexFunc(d.departments, func(dept *models.Department) bool { return dept.ID == departmentID })
	if idx < 0 {
		return nil, store.ErrDepartmentNotFound
	}

	sheet := &DepartmentSheet{
		Department: d.departments[idx],
		Tests:      d.tests,
		Active:     []WorkerWithTests{},
		Inactive:   []*models.Worker{},
		External:   []*models.Worker{},
	}

	for _, w := range d.workers {
		organized, homed := w.OrganizedBy(departmentID), w.HomedIn(departmentID)
		switch {
		case w.Active && organized:
			tests := make([]int64, 0, len(d.participation[w.ID]))
			for testID := range d.participation[w.ID] {
				tests = append(tests, testID)
			}
			slices.Sort(tests)
			sheet.Active = append(sheet.Active, WorkerWithTests{Worker: w, Tests: tests})
		case !w.Active && organized && homed:
			sheet.Inactive = append(sheet.Inactive, w)
		case w.Active && homed:
			sheet.External = append(sheet.External, w)
		}
	}

	return sheet, nil
}

// DepartmentSheetBySlug returns the wall chart of the department with slug.
func (r *Reporter) DepartmentSheetBySlug(ctx context.Context, slug string) (*DepartmentSheet, error) {
	var id int64
	err := r.store.View(ctx, func(tx store.Tx) error {
		dept, err := tx.GetDepartmentBySlug(ctx, slug)
		if err != nil {
			return err
		}
		id = dept.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.DepartmentSheet(ctx, id)
}

// Former returns the inactive workers.
func (r *Reporter) Former(ctx context.Context) ([]*models.Worker, error) {
	var workers []*models.Worker
	err := r.store.View(ctx, func(tx store.Tx) error {
		var err error
		workers, err = tx.ListWorkers(ctx, store.WorkerFilter{Active: models.Ptr(false)})
		return err
	})
	if err != nil {
		return nil, err
	}
	if workers == nil {
		workers = []*models.Worker{}
	}
	return workers, nil
}
