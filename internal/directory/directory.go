package directory

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/wallchart/internal/auth"
	"github.com/wolfeidau/wallchart/internal/roster"
	"github.com/wolfeidau/wallchart/internal/store"
)

// DefaultRegion is the phone number region used when none is configured.
const DefaultRegion = "US"

// Service manages records by hand. Every call runs in one store transaction
// and takes the acting user explicitly.
type Service struct {
	store    store.Store
	verifier auth.Verifier
	region   string
	clock    func() time.Time
	log      zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithRegion sets the region phone numbers are parsed in.
func WithRegion(region string) Option {
	return func(s *Service) {
		s.region = strings.ToUpper(region)
	}
}

// WithClock sets the time source used for added and updated dates.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.log = logger
	}
}

// New creates a Service. v hashes passwords set through EditWorker.
func New(st store.Store, v auth.Verifier, opts ...Option) *Service {
	s := &Service{
		store:    st,
		verifier: v,
		region:   DefaultRegion,
		clock:    time.Now,
		log:      log.Logger.With().Str("component", "directory").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// required trims value and returns a validation error when nothing is left.
func required(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", &roster.ValidationError{Field: field, Reason: "required"}
	}
	return value, nil
}

// optional trims value and maps an empty result to nil.
func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
