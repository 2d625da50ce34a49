package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/wolfeidau/wallchart/internal/store"
)

// constraintFields maps unique constraint names to the entity and field they protect.
var constraintFields = map[string][2]string{
	"units_name_key":           {"unit", "name"},
	"departments_name_key":     {"department", "name"},
	"departments_slug_key":     {"department", "slug"},
	"departments_alias_key":    {"department", "alias"},
	"workers_name_key":         {"worker", "name"},
	"workers_email_key":        {"worker", "email"},
	"workers_phone_key":        {"worker", "phone"},
	"structure_tests_name_key": {"structure test", "name"},
}

// mapPostgresError maps PostgreSQL-specific errors to store errors.
// Returns the original error if it's not a PostgreSQL error or doesn't match known patterns.
func mapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		if field, ok := constraintFields[pgErr.ConstraintName]; ok {
			return &store.UniqueViolation{Entity: field[0], Field: field[1], Value: detailValue(pgErr.Detail)}
		}
		return fmt.Errorf("unique constraint violation: %s: %w", pgErr.ConstraintName, store.ErrAlreadyExists)

	case pgerrcode.ForeignKeyViolation:
		return fmt.Errorf("%w: %s", store.ErrInvalidReference, pgErr.ConstraintName)

	case pgerrcode.CheckViolation:
		return fmt.Errorf("check constraint violation: %s: %w", pgErr.ConstraintName, err)

	case pgerrcode.ReadOnlySQLTransaction:
		return store.ErrReadOnly

	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
		return fmt.Errorf("transaction conflict (retryable): %w", err)

	case pgerrcode.ConnectionException,
		pgerrcode.ConnectionDoesNotExist,
		pgerrcode.ConnectionFailure,
		pgerrcode.CannotConnectNow,
		pgerrcode.SQLClientUnableToEstablishSQLConnection:
		return fmt.Errorf("database connection error: %w", err)

	case pgerrcode.AdminShutdown,
		pgerrcode.CrashShutdown:
		return fmt.Errorf("database server unavailable: %w", err)

	case pgerrcode.QueryCanceled:
		return fmt.Errorf("query canceled: %w", err)

	default:
		return fmt.Errorf("postgres error [%s]: %s (detail: %s, hint: %s): %w",
			pgErr.Code, pgErr.Message, pgErr.Detail, pgErr.Hint, err)
	}
}

// detailValue extracts the value from a detail like `Key (name)=(Doe,Jane) already exists.`
func detailValue(detail string) string {
	_, rest, ok := strings.Cut(detail, ")=(")
	if !ok {
		return ""
	}
	value, _, ok := strings.Cut(rest, ") already exists")
	if !ok {
		return ""
	}
	return value
}
