// Package storage defines the event-storage collaborator boundary of the
// aggregation core. The core only reads through EventSource; event and
// exception records are owned by the backing store and never created or
// destroyed here.
package storage

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// EventSource connects a backing store (database, remote API, memory) to the
// aggregation core. Implementations may block on I/O; they own their retry
// and timeout policy. Please use the error types provided.
type EventSource interface {
	// RecurringEvents returns events carrying a recurrence rule whose own
	// start date is not after to.
	RecurringEvents(from, to time.Time) ([]Event, error)
	// Exceptions returns the exception records of one recurring event.
	Exceptions(eventID uuid.UUID) ([]ExceptionRecord, error)
	// EventsInRange returns non-recurring events overlapping [from, to].
	EventsInRange(from, to time.Time) ([]Event, error)
}

var (
	// ErrNotFound is returned when a requested record doesn't exist.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidInput is returned when the input parameters are invalid.
	ErrInvalidInput = errors.New("invalid input parameters")
	// ErrConflict is returned when a record with the same identity exists.
	ErrConflict = errors.New("record conflict")
)

// Date normalizes t to midnight in its own location. Exception records and
// occurrence dates compare at date granularity.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
