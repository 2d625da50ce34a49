package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/minio/crc64nvme"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/wolfeidau/wallchart/internal/auth"
	"github.com/wolfeidau/wallchart/internal/backup"
	"github.com/wolfeidau/wallchart/internal/directory"
	"github.com/wolfeidau/wallchart/internal/login"
	"github.com/wolfeidau/wallchart/internal/models"
	"github.com/wolfeidau/wallchart/internal/participation"
	"github.com/wolfeidau/wallchart/internal/reconcile"
	"github.com/wolfeidau/wallchart/internal/report"
	"github.com/wolfeidau/wallchart/internal/roster"
	"github.com/wolfeidau/wallchart/internal/store"
	"github.com/wolfeidau/wallchart/internal/store/memory"
)

const (
	adminPassword     = "admin-password"
	organizerPassword = "hunter22"
	trustedOrigin     = "https://wallchart.example.edu"
)

type testEnv struct {
	store   store.Store
	handler http.Handler

	history, chemistry *models.Department
	test               *models.StructureTest
	organizer          *models.Worker
	target, outsider   *models.Worker
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	v := auth.BcryptVerifier{Cost: bcrypt.MinCost}
	s := memory.NewStore()
	env := &testEnv{store: s}

	hash, err := v.Hash(organizerPassword)
	require.NoError(t, err)

	day := models.Date(time.Now())
	require.NoError(t, s.Update(ctx, func(tx store.Tx) error {
		u := &models.Unit{Name: "Manoa", Slug: "manoa"}
		require.NoError(t, tx.CreateUnit(ctx, u))

		env.history = &models.Department{Name: "History", Slug: "history", UnitID: &u.ID}
		env.chemistry = &models.Department{Name: "Chemistry", Slug: "chemistry", UnitID: &u.ID}
		require.NoError(t, tx.CreateDepartment(ctx, env.history))
		require.NoError(t, tx.CreateDepartment(ctx, env.chemistry))

		env.test = &models.StructureTest{Name: "Card drive", Active: true, Added: day}
		require.NoError(t, tx.CreateStructureTest(ctx, env.test))

		worker := func(name string, dept *models.Department) *models.Worker {
			w := &models.Worker{
				Name:                   name,
				HomeDepartmentID:       &dept.ID,
				OrganizingDepartmentID: &dept.ID,
				Active:                 true,
				Added:                  day,
				Updated:                day,
			}
			return w
		}
		env.organizer = worker("Doe,Jane", env.history)
		env.organizer.Email = models.Ptr("jane@example.edu")
		env.organizer.PasswordHash = &hash
		env.target = worker("Roe,Richard", env.history)
		env.outsider = worker("Poe,Edgar", env.chemistry)
		for _, w := range []*models.Worker{env.organizer, env.target, env.outsider} {
			require.NoError(t, tx.CreateWorker(ctx, w))
		}
		return nil
	}))

	authn, err := auth.NewAuthenticator(s, v, adminPassword)
	require.NoError(t, err)
	sessions, err := login.NewHandler(authn, []byte("0123456789abcdef0123456789abcdef"), time.Hour)
	require.NoError(t, err)

	srv := NewServer(Services{
		Sessions:      sessions,
		Participation: participation.New(s),
		Reports:       report.New(s),
		Directory:     directory.New(s, v),
		Importer:      reconcile.NewImporter(reconcile.New(s), 0),
		Backups:       backup.NewExporter(s),
	}, Config{CORSOrigins: []string{trustedOrigin}})

	env.handler, err = srv.Handler(zerolog.Nop())
	require.NoError(t, err)
	return env
}

func (e *testEnv) do(t *testing.T, req *http.Request, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) request(t *testing.T, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.do(t, req, cookie)
}

func (e *testEnv) login(t *testing.T, email, password string) *http.Cookie {
	t.Helper()
	rec := e.request(t, http.MethodPost, "/login", map[string]string{"email": email, "password": password}, nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	for _, c := range rec.Result().Cookies() {
		if c.Name == login.CookieName {
			return c
		}
	}
	t.Fatal("no session cookie")
	return nil
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	env := setup(t)
	rec := env.request(t, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRequiresSession(t *testing.T) {
	env := setup(t)

	for _, path := range []string{"/api/workers", "/api/reports/departments", "/download_db"} {
		rec := env.request(t, http.MethodGet, path, nil, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	rec := env.request(t, http.MethodPut, fmt.Sprintf("/participation/%d/%d/1", env.target.ID, env.test.ID), nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSession(t *testing.T) {
	env := setup(t)
	cookie := env.login(t, "jane@example.edu", organizerPassword)

	rec := env.request(t, http.MethodGet, "/api/session", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[sessionResponse](t, rec)
	require.Equal(t, env.organizer.ID, got.WorkerID)
	require.Equal(t, &env.history.ID, got.OrganizingDepartmentID)
	require.False(t, got.IsAdmin)
}

func TestToggleParticipation(t *testing.T) {
	env := setup(t)
	cookie := env.login(t, "jane@example.edu", organizerPassword)
	path := func(worker, test int64, status string) string {
		return fmt.Sprintf("/participation/%d/%d/%s", worker, test, status)
	}

	t.Run("own department", func(t *testing.T) {
		rec := env.request(t, http.MethodPut, path(env.target.ID, env.test.ID, "1"), nil, cookie)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Empty(t, rec.Body.String())

		rec = env.request(t, http.MethodGet, fmt.Sprintf("/api/workers/%d/participation", env.target.ID), nil, cookie)
		require.Equal(t, http.StatusOK, rec.Code)
		got := decode[participation.WorkerParticipation](t, rec)
		require.True(t, got.Editable)
		require.Len(t, got.Tests, 1)
		require.True(t, got.Tests[0].Participated)

		rec = env.request(t, http.MethodGet, path(env.target.ID, env.test.ID, "0"), nil, cookie)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("other department looks like a missing record", func(t *testing.T) {
		refused := env.request(t, http.MethodPut, path(env.outsider.ID, env.test.ID, "1"), nil, cookie)
		missing := env.request(t, http.MethodPut, path(9999, env.test.ID, "1"), nil, cookie)

		require.Equal(t, http.StatusBadRequest, refused.Code)
		require.Equal(t, http.StatusBadRequest, missing.Code)
		require.Empty(t, refused.Body.String())
		require.Empty(t, missing.Body.String())
	})

	t.Run("invalid status", func(t *testing.T) {
		rec := env.request(t, http.MethodPut, path(env.target.ID, env.test.ID, "2"), nil, cookie)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("admin can toggle anyone", func(t *testing.T) {
		admin := env.login(t, auth.AdminLogin, adminPassword)
		rec := env.request(t, http.MethodPut, path(env.outsider.ID, env.test.ID, "1"), nil, admin)
		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestCrossOriginToggleRejected(t *testing.T) {
	env := setup(t)
	cookie := env.login(t, "jane@example.edu", organizerPassword)

	req := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/participation/%d/%d/1", env.target.ID, env.test.ID), nil)
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	req.Header.Set("Origin", "https://attacker.example")
	rec := env.do(t, req, cookie)
	require.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodPut, fmt.Sprintf("/participation/%d/%d/1", env.target.ID, env.test.ID), nil)
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	req.Header.Set("Origin", trustedOrigin)
	rec = env.do(t, req, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	// a cross-site link follows with the Lax cookie, it must not toggle
	req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/participation/%d/%d/1", env.outsider.ID, env.test.ID), nil)
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	rec = env.do(t, req, cookie)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	require.NoError(t, env.store.View(context.Background(), func(tx store.Tx) error {
		rows, err := tx.ListParticipation(context.Background(), store.ParticipationFilter{WorkerID: &env.outsider.ID})
		require.NoError(t, err)
		require.Empty(t, rows)
		return nil
	}))
}

func TestCORS(t *testing.T) {
	env := setup(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/workers", nil)
	req.Header.Set("Origin", trustedOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := env.do(t, req, nil)
	require.Equal(t, trustedOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodOptions, "/api/workers", nil)
	req.Header.Set("Origin", "https://attacker.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec = env.do(t, req, nil)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestAdminRoutesForbiddenForOrganizer(t *testing.T) {
	env := setup(t)
	cookie := env.login(t, "jane@example.edu", organizerPassword)

	tests := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, "/api/users", nil},
		{http.MethodPost, "/api/units", map[string]string{"name": "Hilo"}},
		{http.MethodPost, "/api/workers", map[string]string{"name": "New,Person"}},
		{http.MethodDelete, fmt.Sprintf("/api/workers/%d", env.target.ID), nil},
		{http.MethodDelete, "/api/departments/history", nil},
		{http.MethodGet, "/download_db", nil},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := env.request(t, tt.method, tt.path, tt.body, cookie)
			require.Equal(t, http.StatusForbidden, rec.Code)
		})
	}
}

func TestEditWorker(t *testing.T) {
	env := setup(t)
	cookie := env.login(t, "jane@example.edu", organizerPassword)

	t.Run("organizer edits own department", func(t *testing.T) {
		rec := env.request(t, http.MethodPatch, fmt.Sprintf("/api/workers/%d", env.target.ID),
			map[string]string{"notes": "signed at the rally"}, cookie)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		got := decode[directory.EditResult](t, rec)
		require.Equal(t, "signed at the rally", *got.Worker.Notes)
	})

	t.Run("organizer cannot move workers", func(t *testing.T) {
		rec := env.request(t, http.MethodPatch, fmt.Sprintf("/api/workers/%d", env.target.ID),
			map[string]int64{"organizing_dept_id": env.chemistry.ID}, cookie)
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.JSONEq(t, `{"error":"forbidden"}`, rec.Body.String())
	})

	t.Run("organizer cannot edit other departments", func(t *testing.T) {
		rec := env.request(t, http.MethodPatch, fmt.Sprintf("/api/workers/%d", env.outsider.ID),
			map[string]string{"notes": "x"}, cookie)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unknown field", func(t *testing.T) {
		rec := env.request(t, http.MethodPatch, fmt.Sprintf("/api/workers/%d", env.target.ID),
			map[string]string{"salary": "1"}, cookie)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAdminManagement(t *testing.T) {
	env := setup(t)
	admin := env.login(t, auth.AdminLogin, adminPassword)

	rec := env.request(t, http.MethodPost, "/api/workers",
		map[string]string{"name": "Manual,Mary", "email": "Mary@Example.edu"}, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	added := decode[directory.EditResult](t, rec)
	require.Equal(t, "mary@example.edu", *added.Worker.Email)

	rec = env.request(t, http.MethodPost, "/api/workers",
		map[string]string{"name": "Other,Mary", "email": "mary@example.edu"}, admin)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = env.request(t, http.MethodPost, "/api/units", map[string]string{"name": "Hilo"}, admin)
	require.Equal(t, http.StatusCreated, rec.Code)
	unit := decode[models.Unit](t, rec)
	require.Equal(t, "hilo", unit.Slug)

	rec = env.request(t, http.MethodPatch, "/api/departments/chemistry",
		map[string]any{"alias": "Chem", "unit_id": unit.ID}, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	dept := decode[models.Department](t, rec)
	require.Equal(t, "Chem", *dept.Alias)
	require.Equal(t, unit.ID, *dept.UnitID)

	rec = env.request(t, http.MethodPost, "/api/structure-tests",
		map[string]string{"name": "Strike vote", "description": "authorization vote"}, admin)
	require.Equal(t, http.StatusCreated, rec.Code)
	st := decode[models.StructureTest](t, rec)

	rec = env.request(t, http.MethodPatch, fmt.Sprintf("/api/structure-tests/%d", st.ID),
		map[string]bool{"active": false}, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, decode[models.StructureTest](t, rec).Active)

	rec = env.request(t, http.MethodPut, fmt.Sprintf("/api/workers/%d/chairs", env.target.ID),
		map[string]int64{"dept_chair_id": env.history.ID}, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.request(t, http.MethodDelete, fmt.Sprintf("/api/users/%d", env.organizer.ID), nil, admin)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.request(t, http.MethodPost, "/login",
		map[string]string{"email": "jane@example.edu", "password": organizerPassword}, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.request(t, http.MethodDelete, fmt.Sprintf("/api/structure-tests/%d", st.ID), nil, admin)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.request(t, http.MethodDelete, fmt.Sprintf("/api/units/%d", unit.ID), nil, admin)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.request(t, http.MethodDelete, "/api/departments/chemistry", nil, admin)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.request(t, http.MethodDelete, fmt.Sprintf("/api/workers/%d", env.outsider.ID), nil, admin)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestErrorMapping(t *testing.T) {
	env := setup(t)
	admin := env.login(t, auth.AdminLogin, adminPassword)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"missing worker", http.MethodGet, "/api/workers/9999", nil, http.StatusNotFound},
		{"bad id", http.MethodGet, "/api/workers/abc", nil, http.StatusBadRequest},
		{"bad filter", http.MethodGet, "/api/workers?active=maybe", nil, http.StatusBadRequest},
		{"duplicate unit", http.MethodPost, "/api/units", map[string]string{"name": "Manoa"}, http.StatusConflict},
		{"blank unit", http.MethodPost, "/api/units", map[string]string{"name": "  "}, http.StatusUnprocessableEntity},
		{"admin department", http.MethodDelete, "/api/departments/admin", nil, http.StatusConflict},
		{"missing department", http.MethodDelete, "/api/departments/nope", nil, http.StatusNotFound},
		{"missing sheet", http.MethodGet, "/api/departments/nope/sheet", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.request(t, tt.method, tt.path, tt.body, admin)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			require.Contains(t, decode[map[string]string](t, rec), "error")
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
		msg    string
	}{
		{fmt.Errorf("wrapped: %w", auth.ErrUnauthorized), http.StatusForbidden, "forbidden"},
		{&roster.ValidationError{Line: 3, Field: "name", Reason: "is required"}, http.StatusUnprocessableEntity, ""},
		{roster.ErrEmptyFeed, http.StatusUnprocessableEntity, ""},
		{fmt.Errorf("%w: got 1 rows", reconcile.ErrShortFeed), http.StatusUnprocessableEntity, ""},
		{&store.UniqueViolation{Entity: "worker", Field: "email", Value: "a@b"}, http.StatusConflict, ""},
		{errors.New("connection reset by peer"), http.StatusInternalServerError, "internal error"},
	}
	for _, tt := range tests {
		status, msg := statusFor(tt.err)
		require.Equal(t, tt.status, status, tt.err.Error())
		if tt.msg != "" {
			require.Equal(t, tt.msg, msg)
		}
	}
}

func TestReports(t *testing.T) {
	env := setup(t)
	cookie := env.login(t, "jane@example.edu", organizerPassword)

	rec := env.request(t, http.MethodGet, "/api/reports/departments", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	depts := decode[report.DepartmentReport](t, rec)
	require.Len(t, depts.Rows, 3)

	rec = env.request(t, http.MethodGet, "/api/reports/summary", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[report.Summary](t, rec)
	require.Equal(t, 2, summary.DepartmentCount)
	require.Equal(t, 3, summary.ActiveWorkerCount)

	rec = env.request(t, http.MethodGet, "/api/reports/structure-tests", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.request(t, http.MethodGet, "/api/departments/-/sheet", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	sheet := decode[report.DepartmentSheet](t, rec)
	require.Equal(t, "History", sheet.Department.Name)
	require.Len(t, sheet.Active, 2)

	rec = env.request(t, http.MethodGet, "/api/departments/chemistry/sheet", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.request(t, http.MethodGet, fmt.Sprintf("/api/workers?organizing_dept_id=%d", env.history.ID), nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]directory.WorkerRecord](t, rec), 2)

	rec = env.request(t, http.MethodGet, "/api/former", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[]`, rec.Body.String())
}

func uploadRequest(t *testing.T, files map[string][2]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for field, f := range files {
		part, err := mw.CreateFormFile(field, f[0])
		require.NoError(t, err)
		_, err = io.WriteString(part, f[1])
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestImport(t *testing.T) {
	env := setup(t)
	admin := env.login(t, auth.AdminLogin, adminPassword)

	feed := strings.Join([]string{
		"Last Name;First Name;Middle Name;Unit;Job Sect Desc;Job Code",
		"Doe;Jane;;Manoa;HISTORY;A1",
		"Roe;Richard;;Manoa;HISTORY;A1",
		"Smith;Ann;;Manoa;GEOLOGY;A1",
	}, "\n")

	t.Run("feed with mapping", func(t *testing.T) {
		rec := env.do(t, uploadRequest(t, map[string][2]string{
			"record":  {"roster.csv", feed},
			"mapping": {"mapping.yaml", "departments:\n  GEOLOGY: Earth Sciences\n"},
		}), admin)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		got := decode[reconcile.Report](t, rec)
		require.Equal(t, 3, got.RowCount)
		require.Equal(t, 1, got.NewCount)
		require.Equal(t, 1, got.DepartedCount)

		rec = env.request(t, http.MethodGet, "/api/departments", nil, admin)
		require.Contains(t, rec.Body.String(), "Earth Sciences")
	})

	t.Run("malformed mapping", func(t *testing.T) {
		rec := env.do(t, uploadRequest(t, map[string][2]string{
			"record":  {"roster.csv", feed},
			"mapping": {"mapping.yaml", "departments: [not, a, map"},
		}), admin)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		require.Contains(t, rec.Body.String(), "mapping")
	})

	t.Run("unsupported file type", func(t *testing.T) {
		rec := env.do(t, uploadRequest(t, map[string][2]string{"record": {"roster.pdf", feed}}), admin)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("empty feed", func(t *testing.T) {
		rec := env.do(t, uploadRequest(t, map[string][2]string{
			"record": {"roster.csv", "Last Name;First Name;Middle Name;Unit;Job Sect Desc;Job Code\n"},
		}), admin)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("missing record", func(t *testing.T) {
		rec := env.do(t, uploadRequest(t, map[string][2]string{"other": {"roster.csv", feed}}), admin)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestDownloadBackup(t *testing.T) {
	env := setup(t)
	admin := env.login(t, auth.AdminLogin, adminPassword)

	rec := env.request(t, http.MethodGet, "/download_db", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)

	name := fmt.Sprintf("wallcharts-backup-%s.db.zst", time.Now().Format(time.DateOnly))
	require.Equal(t, "attachment; filename="+name, rec.Header().Get("Content-Disposition"))
	require.Equal(t, "application/zstd", rec.Header().Get("Content-Type"))
	require.Equal(t, fmt.Sprintf("%016x", crc64nvme.Checksum(rec.Body.Bytes())), rec.Header().Get(checksumHeader))
}
