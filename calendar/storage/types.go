package storage

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"
)

// Event is a stored calendar event. An empty RRule means the event does not
// recur; otherwise RRule holds RFC 5545 recurrence rule text, the wire and
// storage format for recurrence definitions.
type Event struct {
	ID          uuid.UUID
	Title       string
	Description string
	Location    string
	// Start and End are local wall-clock instants; timezone conversion
	// happens before events reach this core. End must not precede Start.
	Start  time.Time
	End    time.Time
	AllDay bool
	RRule  string
}

// Duration returns the event's span, applied to every occurrence.
func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// Recurring reports whether the event carries a recurrence rule.
func (e Event) Recurring() bool { return e.RRule != "" }

// ExceptionKind says what an exception does to its target occurrence.
type ExceptionKind int

const (
	// Excluded drops the occurrence entirely.
	Excluded ExceptionKind = iota
	// Modified overlays Override fields onto the occurrence.
	Modified
)

func (k ExceptionKind) String() string {
	if k == Excluded {
		return "excluded"
	}
	return "modified"
}

// ExceptionRecord overrides a single occurrence of a recurring event. Records
// are unique per (EventID, Date); Date is midnight-normalized. The parent is
// referenced by id value, never by pointer, so no ownership cycle exists
// between events, exceptions and occurrences.
type ExceptionRecord struct {
	EventID  uuid.UUID
	Date     time.Time
	Kind     ExceptionKind
	Override Override
}

// Override carries the replacement fields of a Modified exception. Absent
// fields leave the occurrence unchanged. StartTime replaces the time of day
// on the occurrence's own date (the date identity is never moved); Duration
// recomputes the occurrence end.
type Override struct {
	Title       mo.Option[string]
	Description mo.Option[string]
	Location    mo.Option[string]
	StartTime   mo.Option[time.Time]
	Duration    mo.Option[time.Duration]
}
