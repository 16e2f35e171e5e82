package shared

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrConcurrentModification indicates the underlying record changed
	// between read and write. Operations are pure over their inputs, so
	// the caller can safely retry.
	ErrConcurrentModification = errors.New("record modified concurrently")
)

// Postgres error codes surfaced as ErrConcurrentModification.
const (
	pgUniqueViolation    = "23505"
	pgSerializationError = "40001"
	pgDeadlockDetected   = "40P01"
)

// MapPgError translates transaction conflicts into the domain error the
// caller is expected to retry on. Other errors pass through unchanged.
func MapPgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation, pgSerializationError, pgDeadlockDetected:
			return ErrConcurrentModification
		}
	}
	return err
}
