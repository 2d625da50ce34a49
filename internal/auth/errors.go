package auth

import (
	"errors"

	"github.com/wolfeidau/wallchart/internal/store"
)

var (
	// ErrUnauthorized is returned when an actor may not perform an operation.
	// Callers outside the service boundary get no further detail.
	ErrUnauthorized = errors.New("not authorized")

	// ErrInvalidCredentials is returned for every failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNotFound matches every missing record.
	ErrNotFound = store.ErrNotFound
)

// IsAuthorization returns true if err is an authorization failure.
func IsAuthorization(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
