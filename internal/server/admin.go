package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/wolfeidau/wallchart/internal/directory"
	"github.com/wolfeidau/wallchart/internal/models"
	"github.com/wolfeidau/wallchart/internal/roster"
)

const checksumHeader = "X-Checksum-Crc64nvme"

// importRoster reconciles an uploaded feed. The multipart form carries the
// feed in "record" and an optional mapping table in "mapping".
func (s *Server) importRoster(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		writeError(w, r, badRequest("invalid upload"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("record")
	if err != nil {
		writeError(w, r, badRequest("missing record file"))
		return
	}
	defer file.Close()

	mapping := s.cfg.Mapping
	mf, _, err := r.FormFile("mapping")
	switch {
	case err == nil:
		defer mf.Close()
		if mapping, err = roster.LoadMapping(mf); err != nil {
			writeError(w, r, err)
			return
		}
	case !errors.Is(err, http.ErrMissingFile):
		writeError(w, r, badRequest("invalid mapping file"))
		return
	}

	rep, err := s.Importer.Import(r.Context(), header.Filename, file, mapping)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

type addWorkerRequest struct {
	Name string `json:"name"`
	models.WorkerPatch
}

func (s *Server) addWorker(w http.ResponseWriter, r *http.Request) {
	var req addWorkerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.Directory.AddWorker(r.Context(), actorOf(r), req.Name, req.WorkerPatch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) editWorker(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch models.WorkerPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.Directory.EditWorker(r.Context(), actorOf(r), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) deleteWorker(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Directory.DeleteWorker(r.Context(), actorOf(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setChairs(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var chairs directory.Chairs
	if err := decodeJSON(r, &chairs); err != nil {
		writeError(w, r, err)
		return
	}
	worker, err := s.Directory.SetChairs(r.Context(), actorOf(r), id, chairs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, worker)
}

func (s *Server) revokeLogin(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Directory.RevokeLogin(r.Context(), actorOf(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createUnitRequest struct {
	Name string `json:"name"`
}

func (s *Server) createUnit(w http.ResponseWriter, r *http.Request) {
	var req createUnitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	unit, err := s.Directory.CreateUnit(r.Context(), actorOf(r), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, unit)
}

func (s *Server) deleteUnit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Directory.DeleteUnit(r.Context(), actorOf(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) updateDepartment(w http.ResponseWriter, r *http.Request) {
	dept, err := s.Directory.DepartmentBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch models.DepartmentPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	dept, err = s.Directory.UpdateDepartment(r.Context(), actorOf(r), dept.ID, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dept)
}

func (s *Server) deleteDepartment(w http.ResponseWriter, r *http.Request) {
	dept, err := s.Directory.DepartmentBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Directory.DeleteDepartment(r.Context(), actorOf(r), dept.ID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createStructureTestRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) createStructureTest(w http.ResponseWriter, r *http.Request) {
	var req createStructureTestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	st, err := s.Directory.CreateStructureTest(r.Context(), actorOf(r), req.Name, req.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (s *Server) updateStructureTest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch models.StructureTestPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	st, err := s.Directory.UpdateStructureTest(r.Context(), actorOf(r), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) deleteStructureTest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Directory.DeleteStructureTest(r.Context(), actorOf(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// downloadBackup buffers the artifact so the checksum header can be sent
// ahead of the body.
func (s *Server) downloadBackup(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	art, err := s.Backups.Write(r.Context(), &buf)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/zstd")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", art.Name))
	w.Header().Set("Content-Length", strconv.FormatInt(art.Size, 10))
	w.Header().Set(checksumHeader, art.ChecksumHex())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
