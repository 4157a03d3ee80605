/*
errors.go - Centralized error types for the client engine

PURPOSE:
  All domain error types in one place. Other packages (clients, stats, api)
  wrap these errors with additional context rather than inventing parallel
  taxonomies.

ERROR CATEGORIES:
  1. Not-found errors   - Unknown client id; surfaced to callers, never retried
  2. Validation errors  - Malformed input, rejected before touching the store
  3. Availability errors - Backing store unreachable or core schema missing;
                           fatal at startup since the engine cannot operate
                           without its tables

USAGE:
    if errors.Is(err, segments.ErrClientNotFound) {
        // 404
    }
*/
package segments

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrClientNotFound is returned when a client id resolves to no record.
	ErrClientNotFound = errors.New("client not found")

	// ErrEmptyClientID is returned for a blank client id, before any store
	// round-trip.
	ErrEmptyClientID = errors.New("client id must not be empty")

	// ErrDataUnavailable is returned when the record store cannot be reached
	// or the clients table is missing. Operations do not retry; startup code
	// should treat this as fatal.
	ErrDataUnavailable = errors.New("client data unavailable")

	// ErrUnknownColumn is returned when a search filter names a column that
	// does not exist in the clients schema.
	ErrUnknownColumn = errors.New("unknown client column")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ClientNotFoundError identifies which client id missed.
type ClientNotFoundError struct {
	ID string
}

func (e *ClientNotFoundError) Error() string {
	return fmt.Sprintf("client %q not found", e.ID)
}

func (e *ClientNotFoundError) Unwrap() error {
	return ErrClientNotFound
}

// SchemaError reports a missing table or column discovered at startup.
type SchemaError struct {
	Table  string
	Detail string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error on table %s: %s", e.Table, e.Detail)
}

func (e *SchemaError) Unwrap() error {
	return ErrDataUnavailable
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing client.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrClientNotFound)
}

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrEmptyClientID) || errors.Is(err, ErrUnknownColumn)
}
