// pkg/core/errors.go
package core

import "errors"

var (
	// ErrInvalidConfig is returned when a commander is configured outside the enumerated values
	ErrInvalidConfig = errors.New("invalid commander config")

	// ErrRosterQueryFailed is returned when the host cannot answer a unit query
	ErrRosterQueryFailed = errors.New("roster query failed")

	// ErrTerrainUnavailable is returned when the host cannot answer terrain queries for the area
	ErrTerrainUnavailable = errors.New("terrain unavailable")

	// ErrInitializationFailed is reported when a commander never completes its first sync
	ErrInitializationFailed = errors.New("commander initialization failed")

	// ErrAssignmentConflict signals a broken squad membership invariant
	ErrAssignmentConflict = errors.New("assignment conflict")

	// ErrTerminated is returned by operations on a terminated commander
	ErrTerminated = errors.New("commander terminated")
)

// IsFatal reports whether err ends a commander's lifecycle
func IsFatal(err error) bool {
	return errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrInitializationFailed) ||
		errors.Is(err, ErrTerminated)
}
