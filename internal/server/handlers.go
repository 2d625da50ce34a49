package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/wolfeidau/wallchart/internal/auth"
	"github.com/wolfeidau/wallchart/internal/login"
	"github.com/wolfeidau/wallchart/internal/models"
	"github.com/wolfeidau/wallchart/internal/store"
)

func actorOf(r *http.Request) models.Actor {
	actor, _ := login.ActorFromContext(r.Context())
	return actor
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil {
		return 0, badRequest("invalid %s", name)
	}
	return id, nil
}

func queryInt(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, badRequest("invalid %s", name)
	}
	return &v, nil
}

func queryBool(r *http.Request, name string) (*bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, badRequest("invalid %s", name)
	}
	return &v, nil
}

type sessionResponse struct {
	WorkerID               int64  `json:"worker_id"`
	OrganizingDepartmentID *int64 `json:"organizing_dept_id"`
	IsAdmin                bool   `json:"is_admin"`
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) {
	actor := actorOf(r)
	writeJSON(w, http.StatusOK, sessionResponse{
		WorkerID:               actor.WorkerID,
		OrganizingDepartmentID: actor.OrganizingDepartmentID,
		IsAdmin:                actor.IsAdmin,
	})
}

// toggleParticipation answers with an empty body. A missing record and a
// refused toggle both produce 400 so callers cannot probe other departments.
func (s *Server) toggleParticipation(w http.ResponseWriter, r *http.Request) {
	workerID, err := pathID(r, "worker")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	testID, err := pathID(r, "test")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var desired bool
	switch r.PathValue("status") {
	case "1":
		desired = true
	case "0":
		desired = false
	default:
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	err = s.Participation.SetParticipation(r.Context(), actorOf(r), workerID, testID, desired)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusOK)
	case errors.Is(err, store.ErrNotFound), auth.IsAuthorization(err):
		w.WriteHeader(http.StatusBadRequest)
	default:
		status, _ := statusFor(err)
		w.WriteHeader(status)
	}
}

func (s *Server) listWorkers(w http.ResponseWriter, r *http.Request) {
	var (
		filter store.WorkerFilter
		err    error
	)
	if filter.Active, err = queryBool(r, "active"); err != nil {
		writeError(w, r, err)
		return
	}
	if filter.OrganizingDepartmentID, err = queryInt(r, "organizing_dept_id"); err != nil {
		writeError(w, r, err)
		return
	}
	if filter.HomeDepartmentID, err = queryInt(r, "home_dept_id"); err != nil {
		writeError(w, r, err)
		return
	}

	workers, err := s.Directory.Workers(r.Context(), actorOf(r), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, workers)
}

func (s *Server) getWorker(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	worker, err := s.Directory.Worker(r.Context(), actorOf(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, worker)
}

func (s *Server) workerParticipation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := s.Participation.ListForWorker(r.Context(), actorOf(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listDepartments(w http.ResponseWriter, r *http.Request) {
	depts, err := s.Directory.Departments(r.Context(), actorOf(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, depts)
}

func (s *Server) listUnits(w http.ResponseWriter, r *http.Request) {
	units, err := s.Directory.Units(r.Context(), actorOf(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, units)
}

func (s *Server) listStructureTests(w http.ResponseWriter, r *http.Request) {
	tests, err := s.Directory.StructureTests(r.Context(), actorOf(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tests)
}

func (s *Server) listParticipation(w http.ResponseWriter, r *http.Request) {
	var (
		filter store.ParticipationFilter
		err    error
	)
	if filter.WorkerID, err = queryInt(r, "worker_id"); err != nil {
		writeError(w, r, err)
		return
	}
	if filter.StructureTestID, err = queryInt(r, "structure_test_id"); err != nil {
		writeError(w, r, err)
		return
	}

	rows, err := s.Directory.Participation(r.Context(), actorOf(r), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.Directory.Users(r.Context(), actorOf(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) listFormer(w http.ResponseWriter, r *http.Request) {
	workers, err := s.Reports.Former(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, workers)
}

func (s *Server) departmentReport(w http.ResponseWriter, r *http.Request) {
	out, err := s.Reports.Departments(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) unitReport(w http.ResponseWriter, r *http.Request) {
	out, err := s.Reports.Units(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) structureTestReport(w http.ResponseWriter, r *http.Request) {
	out, err := s.Reports.StructureTests(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) summary(w http.ResponseWriter, r *http.Request) {
	out, err := s.Reports.Summary(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// departmentSheet serves one department's wall chart. The slug "-" selects
// the actor's own organizing department.
func (s *Server) departmentSheet(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	if slug == "-" {
		actor := actorOf(r)
		if actor.OrganizingDepartmentID == nil {
			writeError(w, r, store.ErrDepartmentNotFound)
			return
		}
		sheet, err := s.Reports.DepartmentSheet(r.Context(), *actor.OrganizingDepartmentID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sheet)
		return
	}

	sheet, err := s.Reports.DepartmentSheetBySlug(r.Context(), slug)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sheet)
}
