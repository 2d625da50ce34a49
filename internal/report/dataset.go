package report

import (
	"cmp"
	"context"
	"slices"

	"github.com/wolfeidau/wallchart/internal/models"
	"github.com/wolfeidau/wallchart/internal/store"
)

// dataset is everything a report reads, loaded in one transaction.
type dataset struct {
	units       []*models.Unit
	departments []*models.Department
	tests       []*models.StructureTest
	// workers sorted by name
	workers []*models.Worker
	// participation maps worker ID to the set of test IDs
	participation map[int64]map[int64]struct{}
}

func (r *Reporter) load(ctx context.Context) (*dataset, error) {
	d := &dataset{participation: make(map[int64]map[int64]struct{})}

	err := r.store.View(ctx, func(tx store.Tx) error {
		var err error
		if d.units, err = tx.ListUnits(ctx); err != nil {
			return err
		}
		if d.departments, err = tx.ListDepartments(ctx); err != nil {
			return err
		}
		if d.tests, err = tx.ListStructureTests(ctx); err != nil {
			return err
		}
		if d.workers, err = tx.ListWorkers(ctx, store.WorkerFilter{}); err != nil {
			return err
		}

		rows, err := tx.ListParticipation(ctx, store.ParticipationFilter{})
		if err != nil {
			return err
		}
		for _, p := range rows {
			set, ok := d.participation[p.WorkerID]
			if !ok {
				set = make(map[int64]struct{})
				d.participation[p.WorkerID] = set
			}
			set[p.StructureTestID] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if d.tests == nil {
		d.tests = []*models.StructureTest{}
	}
	slices.SortFunc(d.workers, func(a, b *models.Worker) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return d, nil
}

// baseline is the first structure test created.
func (d *dataset) baseline() *models.StructureTest {
	if len(d.tests) == 0 {
		return nil
	}
	return d.tests[0]
}

// latest is the most recently created structure test.
func (d *dataset) latest() *models.StructureTest {
	if len(d.tests) == 0 {
		return nil
	}
	return d.tests[len(d.tests)-1]
}

// group buckets active workers by the key returned by fn. Workers with a nil
// key are left out.
func (d *dataset) group(fn func(w *models.Worker) *int64) map[int64][]*models.Worker {
	groups := make(map[int64][]*models.Worker)
	for _, w := range d.workers {
		if !w.Active {
			continue
		}
		key := fn(w)
		if key == nil {
			continue
		}
		groups[*key] = append(groups[*key], w)
	}
	return groups
}

// count computes the totals of a group with one lookup per worker.
func (d *dataset) count(workers []*models.Worker) Counts {
	c := Counts{PerTest: make(map[int64]int, len(d.tests))}
	for _, st := range d.tests {
		c.PerTest[st.ID] = 0
	}

	baseline, latest := d.baseline(), d.latest()
	for _, w := range workers {
		set := d.participation[w.ID]

		c.Total++
		if len(set) == 0 {
			c.None++
		}
		if baseline != nil {
			if _, ok := set[baseline.ID]; ok {
				c.Baseline++
			}
		}
		if latest != nil {
			if _, ok := set[latest.ID]; ok {
				c.Latest++
			}
		}
		for testID := range set {
			c.PerTest[testID]++
		}
	}
	return c
}
