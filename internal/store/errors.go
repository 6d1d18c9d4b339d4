package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the
	// store. This is the generic form of the entity-specific not found errors.
	ErrNotFound = errors.New("entity not found")

	// ErrTaskNotFound indicates that the requested task record does not exist.
	ErrTaskNotFound = fmt.Errorf("%w: task", ErrNotFound)

	// ErrGroupNotFound indicates that the requested group has no recorded
	// members.
	ErrGroupNotFound = fmt.Errorf("%w: group", ErrNotFound)

	// ErrScheduleNotFound indicates that the requested schedule does not exist.
	ErrScheduleNotFound = fmt.Errorf("%w: schedule", ErrNotFound)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
// Blocking retrieval treats these as "not yet available" and keeps polling;
// every other error propagates.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
