package server

import (
	"fmt"
	"net/http"
	"strings"

	"filippo.io/csrf"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/wolfeidau/wallchart/internal/backup"
	"github.com/wolfeidau/wallchart/internal/directory"
	httpmiddleware "github.com/wolfeidau/wallchart/internal/http"
	"github.com/wolfeidau/wallchart/internal/login"
	"github.com/wolfeidau/wallchart/internal/participation"
	"github.com/wolfeidau/wallchart/internal/reconcile"
	"github.com/wolfeidau/wallchart/internal/report"
	"github.com/wolfeidau/wallchart/internal/roster"
)

// DefaultMaxUploadBytes limits roster uploads.
const DefaultMaxUploadBytes = 32 << 20

// Services are the components the HTTP API is built on.
type Services struct {
	Sessions      *login.Handler
	Participation *participation.Controller
	Reports       *report.Reporter
	Directory     *directory.Service
	Importer      *reconcile.Importer
	Backups       *backup.Exporter
}

// Config holds HTTP level settings.
type Config struct {
	// CORSOrigins are allowed to call /api/ with credentials and are trusted
	// by the CSRF check on browser routes.
	CORSOrigins []string
	// Mapping is used for uploads that do not include a mapping file.
	Mapping        roster.Mapping
	MaxUploadBytes int64
}

// Server wraps the HTTP API
type Server struct {
	Services
	cfg Config
}

// NewServer creates a new server with the given services
func NewServer(svc Services, cfg Config) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	return &Server{Services: svc, cfg: cfg}
}

// Handler returns the HTTP handler for the server
func (s *Server) Handler(log zerolog.Logger) (http.Handler, error) {
	mux := http.NewServeMux()
	s.routes(mux)

	// CSRF protection for browser routes (not applied to API routes)
	protection := csrf.New()
	for _, origin := range s.cfg.CORSOrigins {
		if err := protection.AddTrustedOrigin(origin); err != nil {
			return nil, fmt.Errorf("invalid trusted origin %q: %w", origin, err)
		}
	}
	browser := protection.Handler(mux)
	api := withCORS(s.cfg.CORSOrigins, mux)

	// API routes get CORS, browser routes get CSRF
	var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isAPIRoute(r.URL.Path) {
			api.ServeHTTP(w, r)
		} else {
			browser.ServeHTTP(w, r)
		}
	})

	handler = httpmiddleware.RequestLogger(log)(handler)
	handler = httpmiddleware.ClientIPMiddleware()(handler)
	return otelhttp.NewHandler(handler, "wallchart"), nil
}

func (s *Server) routes(mux *http.ServeMux) {
	authed := func(h http.HandlerFunc) http.Handler {
		return s.Sessions.RequireAuth(h)
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return s.Sessions.RequireAuth(login.RequireAdmin(h))
	}

	// Health check endpoint for load balancer
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.HandleFunc("POST /login", s.Sessions.Login)
	mux.HandleFunc("POST /logout", s.Sessions.Logout)
	mux.Handle("GET /api/session", authed(s.session))

	// Participation toggles, PUT only
	mux.Handle("PUT /participation/{worker}/{test}/{status}", authed(s.toggleParticipation))

	// Read surfaces
	mux.Handle("GET /api/workers", authed(s.listWorkers))
	mux.Handle("GET /api/workers/{id}", authed(s.getWorker))
	mux.Handle("GET /api/workers/{id}/participation", authed(s.workerParticipation))
	mux.Handle("GET /api/departments", authed(s.listDepartments))
	mux.Handle("GET /api/departments/{slug}/sheet", authed(s.departmentSheet))
	mux.Handle("GET /api/units", authed(s.listUnits))
	mux.Handle("GET /api/participation", authed(s.listParticipation))
	mux.Handle("GET /api/structure-tests", authed(s.listStructureTests))
	mux.Handle("GET /api/former", authed(s.listFormer))
	mux.Handle("GET /api/reports/departments", authed(s.departmentReport))
	mux.Handle("GET /api/reports/units", authed(s.unitReport))
	mux.Handle("GET /api/reports/structure-tests", authed(s.structureTestReport))
	mux.Handle("GET /api/reports/summary", authed(s.summary))
	mux.Handle("GET /api/users", admin(s.listUsers))

	// Worker edits are department scoped, the directory enforces the rule
	mux.Handle("PATCH /api/workers/{id}", authed(s.editWorker))

	// Administration
	mux.Handle("POST /api/import", admin(s.importRoster))
	mux.Handle("POST /api/workers", admin(s.addWorker))
	mux.Handle("DELETE /api/workers/{id}", admin(s.deleteWorker))
	mux.Handle("PUT /api/workers/{id}/chairs", admin(s.setChairs))
	mux.Handle("DELETE /api/users/{id}", admin(s.revokeLogin))
	mux.Handle("POST /api/units", admin(s.createUnit))
	mux.Handle("DELETE /api/units/{id}", admin(s.deleteUnit))
	mux.Handle("PATCH /api/departments/{slug}", admin(s.updateDepartment))
	mux.Handle("DELETE /api/departments/{slug}", admin(s.deleteDepartment))
	mux.Handle("POST /api/structure-tests", admin(s.createStructureTest))
	mux.Handle("PATCH /api/structure-tests/{id}", admin(s.updateStructureTest))
	mux.Handle("DELETE /api/structure-tests/{id}", admin(s.deleteStructureTest))
	mux.Handle("GET /download_db", admin(s.downloadBackup))
}

// isAPIRoute returns true if the path is an API route that needs CORS instead of CSRF
func isAPIRoute(path string) bool {
	return strings.HasPrefix(path, "/api/")
}

// withCORS adds CORS support to the API handler.
func withCORS(allowedOrigins []string, h http.Handler) http.Handler {
	middleware := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Content-Disposition", checksumHeader},
		AllowCredentials: true, // Required for cookie-based authentication
	})
	return middleware.Handler(h)
}
