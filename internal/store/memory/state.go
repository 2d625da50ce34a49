package memory

import (
	"maps"
	"sort"

	"github.com/wolfeidau/wallchart/internal/models"
	"github.com/wolfeidau/wallchart/internal/store"
)

type participationKey struct {
	workerID int64
	testID   int64
}

// state holds every record. Stored records are never mutated in place, a
// change replaces the map entry, so clone only copies the maps.
type state struct {
	units         map[int64]*models.Unit
	departments   map[int64]*models.Department
	workers       map[int64]*models.Worker
	workersByName map[string]int64
	tests         map[int64]*models.StructureTest
	participation map[participationKey]*models.Participation

	nextUnitID       int64
	nextDepartmentID int64
	nextWorkerID     int64
	nextTestID       int64
}

func newState() *state {
	return &state{
		units:            make(map[int64]*models.Unit),
		departments:      seededDepartments(),
		workers:          make(map[int64]*models.Worker),
		workersByName:    make(map[string]int64),
		tests:            make(map[int64]*models.StructureTest),
		participation:    make(map[participationKey]*models.Participation),
		nextUnitID:       1,
		nextDepartmentID: 1,
		nextWorkerID:     1,
		nextTestID:       1,
	}
}

func (s *state) clone() *state {
	return &state{
		units:            maps.Clone(s.units),
		departments:      maps.Clone(s.departments),
		workers:          maps.Clone(s.workers),
		workersByName:    maps.Clone(s.workersByName),
		tests:            maps.Clone(s.tests),
		participation:    maps.Clone(s.participation),
		nextUnitID:       s.nextUnitID,
		nextDepartmentID: s.nextDepartmentID,
		nextWorkerID:     s.nextWorkerID,
		nextTestID:       s.nextTestID,
	}
}

func (s *state) snapshot() *store.Snapshot {
	snap := &store.Snapshot{
		Units:          make([]*models.Unit, 0, len(s.units)),
		Departments:    make([]*models.Department, 0, len(s.departments)),
		Workers:        make([]*models.Worker, 0, len(s.workers)),
		StructureTests: make([]*models.StructureTest, 0, len(s.tests)),
		Participation:  make([]*models.Participation, 0, len(s.participation)),
	}
	for _, id := range sortedIDs(s.units) {
		snap.Units = append(snap.Units, s.units[id].Clone())
	}
	for _, id := range sortedIDs(s.departments) {
		snap.Departments = append(snap.Departments, s.departments[id].Clone())
	}
	for _, id := range sortedIDs(s.workers) {
		snap.Workers = append(snap.Workers, s.workers[id].Clone())
	}
	for _, id := range sortedIDs(s.tests) {
		snap.StructureTests = append(snap.StructureTests, s.tests[id].Clone())
	}
	for _, p := range s.participation {
		snap.Participation = append(snap.Participation, p.Clone())
	}
	sortParticipation(snap.Participation)
	return snap
}

func stateFromSnapshot(snap *store.Snapshot) *state {
	s := newState()
	for _, u := range snap.Units {
		s.units[u.ID] = u.Clone()
		s.nextUnitID = max(s.nextUnitID, u.ID+1)
	}
	for _, d := range snap.Departments {
		s.departments[d.ID] = d.Clone()
		s.nextDepartmentID = max(s.nextDepartmentID, d.ID+1)
	}
	for _, w := range snap.Workers {
		s.workers[w.ID] = w.Clone()
		s.workersByName[w.Name] = w.ID
		s.nextWorkerID = max(s.nextWorkerID, w.ID+1)
	}
	for _, t := range snap.StructureTests {
		s.tests[t.ID] = t.Clone()
		s.nextTestID = max(s.nextTestID, t.ID+1)
	}
	for _, p := range snap.Participation {
		s.participation[participationKey{p.WorkerID, p.StructureTestID}] = p.Clone()
	}
	return s
}

func sortParticipation(rows []*models.Participation) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].WorkerID != rows[j].WorkerID {
			return rows[i].WorkerID < rows[j].WorkerID
		}
		return rows[i].StructureTestID < rows[j].StructureTestID
	})
}
