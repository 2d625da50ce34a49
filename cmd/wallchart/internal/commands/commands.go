package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/wallchart/internal/reconcile"
	"github.com/wolfeidau/wallchart/internal/roster"
	"github.com/wolfeidau/wallchart/internal/store"
	memorystore "github.com/wolfeidau/wallchart/internal/store/memory"
	postgresstore "github.com/wolfeidau/wallchart/internal/store/postgres"
	sqlitestore "github.com/wolfeidau/wallchart/internal/store/sqlite"
)

type Globals struct {
	Debug   bool
	Version string
}

func configureHTTPServer(addr string, handler http.Handler) *http.Server {
	// Create HTTP server
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       5 * time.Minute,
		MaxHeaderBytes:    8 * 1024, // 8KiB
	}
}

// StoreFlags selects and configures the entity store.
type StoreFlags struct {
	StoreType     string             `help:"store type (memory, sqlite or postgres)" default:"sqlite" env:"WALLCHART_STORE_TYPE" enum:"memory,sqlite,postgres"`
	SQLiteStore   SQLiteStoreFlags   `embed:"" prefix:"sqlite-"`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
}

type SQLiteStoreFlags struct {
	Path string `help:"SQLite database file" default:"wallchart.db" env:"WALLCHART_SQLITE_PATH"`
}

type PostgresStoreFlags struct {
	// Connection Configuration
	ConnString string `help:"PostgreSQL connection string" env:"POSTGRES_CONNECTION_STRING"`

	// Connection Pool Configuration
	MaxConns        int32 `help:"maximum number of connections in pool" default:"20"`
	MinConns        int32 `help:"minimum number of connections in pool" default:"2"`
	MaxConnLifetime int32 `help:"maximum connection lifetime in seconds" default:"3600"`
	MaxConnIdleTime int32 `help:"maximum connection idle time in seconds" default:"1800"`

	// Migration Configuration
	AutoMigrate bool `help:"run database migrations on startup" default:"false" env:"WALLCHART_POSTGRES_AUTO_MIGRATE"`
}

func (s *PostgresStoreFlags) validate() error {
	if s.ConnString == "" {
		return errors.New("PostgreSQL connection string is required (--postgres-conn-string or POSTGRES_CONNECTION_STRING)")
	}
	return nil
}

// open creates the configured store. migrate forces Postgres migrations
// regardless of AutoMigrate.
func (f *StoreFlags) open(ctx context.Context, migrate bool) (store.Store, error) {
	switch f.StoreType {
	case "postgres":
		if err := f.PostgresStore.validate(); err != nil {
			return nil, err
		}
		pool, err := postgresstore.NewPool(ctx, &postgresstore.PoolConfig{
			ConnString:      f.PostgresStore.ConnString,
			MaxConns:        f.PostgresStore.MaxConns,
			MinConns:        f.PostgresStore.MinConns,
			MaxConnLifetime: f.PostgresStore.MaxConnLifetime,
			MaxConnIdleTime: f.PostgresStore.MaxConnIdleTime,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create connection pool: %w", err)
		}

		if migrate || f.PostgresStore.AutoMigrate {
			if err := postgresstore.RunMigrations(ctx, pool); err != nil {
				pool.Close()
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
			log.Info().Msg("Database migrations completed")
		}

		log.Info().Msg("Using PostgreSQL store")
		return postgresstore.NewStore(pool), nil

	case "memory":
		log.Warn().Msg("Using in-memory store, data is lost on exit")
		return memorystore.NewStore(), nil

	default:
		s, err := sqlitestore.Open(ctx, f.SQLiteStore.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return s, nil
	}
}

// FeedFlags configure how roster feeds are read and mapped.
type FeedFlags struct {
	MappingFile string `help:"YAML mapping of feed labels to canonical names" env:"WALLCHART_MAPPING_FILE"`
	Delimiter   string `help:"field delimiter of CSV feeds" default:";" env:"WALLCHART_FEED_DELIMITER"`
	MinRows     int    `help:"reject feeds with fewer rows, 0 disables the check" default:"0" env:"WALLCHART_FEED_MIN_ROWS"`
}

func (f *FeedFlags) validate() error {
	if utf8.RuneCountInString(f.Delimiter) != 1 {
		return fmt.Errorf("feed delimiter must be a single character, got %q", f.Delimiter)
	}
	if f.MinRows < 0 {
		return errors.New("feed minimum rows must not be negative")
	}
	return nil
}

// importer builds the feed importer and loads the mapping table.
func (f *FeedFlags) importer(s store.Store) (*reconcile.Importer, roster.Mapping, error) {
	mapping, err := roster.LoadMappingFile(f.MappingFile)
	if err != nil {
		return nil, roster.Mapping{}, err
	}

	delim, _ := utf8.DecodeRuneInString(f.Delimiter)
	importer := reconcile.NewImporter(reconcile.New(s), f.MinRows)
	importer.Format.Delimiter = delim
	return importer, mapping, nil
}
