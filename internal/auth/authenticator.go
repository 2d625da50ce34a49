package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/wolfeidau/wallchart/internal/models"
	"github.com/wolfeidau/wallchart/internal/store"
	"github.com/wolfeidau/wallchart/internal/telemetry"
)

// AdminLogin is the login name of the configured administrator, which has
// no worker record.
const AdminLogin = "admin"

// Authenticator checks login credentials. Every attempt performs exactly
// one password verification whether or not the login exists.
type Authenticator struct {
	store     store.Store
	verifier  Verifier
	adminHash string
	dummyHash string
}

// NewAuthenticator creates an Authenticator. adminPassword is either the
// plain administrator password, hashed here once, or a bcrypt hash as printed
// by the hash-password command.
func NewAuthenticator(s store.Store, v Verifier, adminPassword string) (*Authenticator, error) {
	if adminPassword == "" {
		return nil, fmt.Errorf("admin password is required")
	}

	adminHash := adminPassword
	if !isBcryptHash(adminPassword) {
		var err error
		if adminHash, err = v.Hash(adminPassword); err != nil {
			return nil, fmt.Errorf("failed to hash admin password: %w", err)
		}
	}

	dummy, err := dummyHash(v)
	if err != nil {
		return nil, fmt.Errorf("failed to create dummy hash: %w", err)
	}

	return &Authenticator{
		store:     s,
		verifier:  v,
		adminHash: adminHash,
		dummyHash: dummy,
	}, nil
}

// Authenticate returns the actor for a login and password. The login is
// AdminLogin or a worker's email address. Inactive workers and workers
// without a password cannot log in.
func (a *Authenticator) Authenticate(ctx context.Context, login, password string) (models.Actor, error) {
	login = strings.ToLower(strings.TrimSpace(login))

	actor, err := a.authenticate(ctx, login, password)

	outcome := "success"
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		outcome = "invalid"
	case err != nil:
		outcome = "error"
	}
	telemetry.GetMetrics().LoginAttemptsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)))

	if err != nil {
		log.Ctx(ctx).Info().Str("outcome", outcome).Msg("Login failed")
		return models.Actor{}, err
	}
	return actor, nil
}

func (a *Authenticator) authenticate(ctx context.Context, login, password string) (models.Actor, error) {
	if login == AdminLogin {
		if !a.verifier.Verify(a.adminHash, password) {
			return models.Actor{}, ErrInvalidCredentials
		}
		return models.AdminActor(), nil
	}

	var worker *models.Worker
	err := a.store.View(ctx, func(tx store.Tx) error {
		w, err := tx.GetWorkerByEmail(ctx, login)
		if err != nil {
			return err
		}
		worker = w
		return nil
	})
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return models.Actor{}, fmt.Errorf("failed to load worker: %w", err)
	}

	if worker == nil || !worker.IsUser() || !worker.Active {
		a.verifier.Verify(a.dummyHash, password)
		return models.Actor{}, ErrInvalidCredentials
	}

	if !a.verifier.Verify(*worker.PasswordHash, password) {
		return models.Actor{}, ErrInvalidCredentials
	}

	return models.ActorFor(worker), nil
}

// Resolve rebuilds the actor for a session subject.
func (a *Authenticator) Resolve(ctx context.Context, workerID int64) (models.Actor, error) {
	var actor models.Actor
	err := a.store.View(ctx, func(tx store.Tx) error {
		var err error
		actor, err = ResolveActor(ctx, tx, workerID)
		return err
	})
	return actor, err
}

// ResolveActor builds the actor from the current worker record so role and
// department changes apply on the next request. Workers that are gone or can
// no longer log in are ErrUnauthorized.
func ResolveActor(ctx context.Context, tx store.Tx, workerID int64) (models.Actor, error) {
	if workerID == models.BuiltinAdminID {
		return models.AdminActor(), nil
	}

	w, err := tx.GetWorker(ctx, workerID)
	if errors.Is(err, store.ErrNotFound) {
		return models.Actor{}, ErrUnauthorized
	}
	if err != nil {
		return models.Actor{}, err
	}
	if !w.Active || !w.IsUser() {
		return models.Actor{}, ErrUnauthorized
	}

	return models.ActorFor(w), nil
}

func isBcryptHash(s string) bool {
	return len(s) == 60 && (strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$"))
}
