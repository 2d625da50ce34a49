package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/wolfeidau/wallchart/internal/auth"
	"github.com/wolfeidau/wallchart/internal/backup"
	"github.com/wolfeidau/wallchart/internal/directory"
	"github.com/wolfeidau/wallchart/internal/logger"
	"github.com/wolfeidau/wallchart/internal/login"
	"github.com/wolfeidau/wallchart/internal/participation"
	"github.com/wolfeidau/wallchart/internal/report"
	"github.com/wolfeidau/wallchart/internal/server"
	"github.com/wolfeidau/wallchart/internal/telemetry"
)

// defaultAdminPassword is rejected at startup.
const defaultAdminPassword = "changeme"

type ServerCmd struct {
	// Server configuration
	Listen string `help:"HTTP server listen address" default:"0.0.0.0:8080" env:"WALLCHART_LISTEN"`
	Cert   string `help:"path to TLS cert file" default:"" env:"WALLCHART_TLS_CERT"`
	Key    string `help:"path to TLS key file" default:"" env:"WALLCHART_TLS_KEY"`

	// CORS configuration
	CORSOrigins []string `help:"allowed CORS origins for API requests" env:"WALLCHART_CORS_ORIGINS"`

	// Authentication
	AdminPassword string        `help:"administrator password or bcrypt hash" required:"" env:"WALLCHART_ADMIN_PASSWORD"`
	SessionSecret string        `help:"secret used to sign session cookies, at least 32 bytes" required:"" env:"WALLCHART_SESSION_SECRET"`
	SessionTTL    time.Duration `help:"session TTL" default:"168h" env:"WALLCHART_SESSION_TTL"`

	// Records
	PhoneRegion    string `help:"default region for phone numbers" default:"US" env:"WALLCHART_PHONE_REGION"`
	MaxUploadBytes int64  `help:"maximum roster upload size in bytes" default:"33554432" env:"WALLCHART_MAX_UPLOAD_BYTES"`

	// Operational modes
	Tracing     bool    `help:"enable tracing" default:"false" env:"WALLCHART_TRACING"`
	SampleRatio float64 `help:"fraction of traces recorded" default:"1" env:"WALLCHART_TRACE_SAMPLE_RATIO"`

	Feed  FeedFlags  `embed:"" prefix:"feed-"`
	Store StoreFlags `embed:""`
}

// Validate rejects unsafe secrets before anything is started.
func (c *ServerCmd) Validate() error {
	if c.AdminPassword == defaultAdminPassword {
		return errors.New("admin password must be changed from the default (--admin-password or WALLCHART_ADMIN_PASSWORD)")
	}
	if len(c.SessionSecret) < 32 {
		return errors.New("session secret must be at least 32 bytes (256 bits) for HMAC-SHA256")
	}
	if (c.Cert == "") != (c.Key == "") {
		return errors.New("TLS certificate and key must be set together (--cert and --key)")
	}
	return c.Feed.validate()
}

func (c *ServerCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)
	logger.Install(log)

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting server")

	// Setup telemetry if enabled
	if c.Tracing {
		log.Info().Msg("Tracing is enabled")
		shutdown, err := telemetry.InitTelemetry(ctx, telemetry.Config{
			ServiceName: "wallchart-server",
			Version:     globals.Version,
			SampleRatio: c.SampleRatio,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
			shutdown = func(ctx context.Context) error { return nil }
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
	}

	st, err := c.Store.open(ctx, false)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close store")
		}
	}()

	importer, mapping, err := c.Feed.importer(st)
	if err != nil {
		return fmt.Errorf("failed to load mapping: %w", err)
	}

	verifier := auth.NewBcryptVerifier()
	authn, err := auth.NewAuthenticator(st, verifier, c.AdminPassword)
	if err != nil {
		return fmt.Errorf("failed to initialize authenticator: %w", err)
	}

	sessions, err := login.NewHandler(authn, []byte(c.SessionSecret), c.SessionTTL)
	if err != nil {
		return fmt.Errorf("failed to initialize sessions: %w", err)
	}

	srv := server.NewServer(server.Services{
		Sessions:      sessions,
		Participation: participation.New(st),
		Reports:       report.New(st),
		Directory:     directory.New(st, verifier, directory.WithRegion(c.PhoneRegion), directory.WithLogger(log)),
		Importer:      importer,
		Backups:       backup.NewExporter(st),
	}, server.Config{
		CORSOrigins:    c.CORSOrigins,
		Mapping:        mapping,
		MaxUploadBytes: c.MaxUploadBytes,
	})

	handler, err := srv.Handler(log)
	if err != nil {
		return err
	}

	if c.Cert == "" {
		log.Info().Str("addr", c.Listen).Str("store", c.Store.StoreType).Msg("Starting HTTP server")
		return configureHTTPServer(c.Listen, handler).ListenAndServe()
	}

	// Validate TLS certificates
	if _, err := os.Stat(c.Cert); err != nil {
		return fmt.Errorf("TLS certificate not found at %s: %w", c.Cert, err)
	}
	if _, err := os.Stat(c.Key); err != nil {
		return fmt.Errorf("TLS key not found at %s: %w", c.Key, err)
	}

	log.Info().Str("addr", c.Listen).Str("store", c.Store.StoreType).Msg("Starting HTTPS server")
	return configureHTTPServer(c.Listen, handler).ListenAndServeTLS(c.Cert, c.Key)
}
