// Package calendar assembles the day-by-day, month-shaped calendar view:
// it merges non-recurring events, expanded recurring occurrences and
// resolved holidays into week rows of seven days. Recurrence expansion
// lives in calendar/recurrence, holiday resolution in calendar/holiday,
// and memoization in calendar/cache; this package orchestrates them.
package calendar

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/oernster/calendifier-sub002/calendar/holiday"
)

// ErrInvalidRequest is returned when a month request is structurally
// invalid (month or first-day-of-week out of range).
var ErrInvalidRequest = errors.New("invalid month request")

// Occurrence is one concrete instance of an event on a specific date. It is
// derived per request and never stored; the parent event is referenced by
// EventID value only.
type Occurrence struct {
	EventID     uuid.UUID
	Date        time.Time // midnight-normalized occurrence date
	Start       time.Time
	End         time.Time
	Title       string
	Description string
	Location    string
	AllDay      bool
	// Modified marks occurrences reshaped by a Modified exception. They
	// behave like plain occurrences downstream and are never re-expanded.
	Modified bool
}

// CalendarDay is one cell of the month grid.
type CalendarDay struct {
	Date        time.Time
	Today       bool
	Weekend     bool
	OtherMonth  bool
	Occurrences []Occurrence
	Holidays    []holiday.Entry
}

// CalendarWeek is one grid row of exactly seven days.
type CalendarWeek [7]CalendarDay

// CalendarMonth is the fully assembled month view.
type CalendarMonth struct {
	Year      int
	Month     time.Month
	MonthName string
	// WeekdayNames are ordered from the requested first day of week.
	WeekdayNames [7]string
	Weeks        []CalendarWeek
}

// MonthRequest carries everything BuildMonth needs. Now is injected by the
// caller; the core never reads a system clock.
type MonthRequest struct {
	Year    int
	Month   time.Month
	Locale  string
	Country string
	// FirstDay is the first day of the week: 0 = Monday .. 6 = Sunday.
	FirstDay int
	Now      time.Time
}

// Translator supplies localized month and weekday names. Gaps fall back to
// the English names.
type Translator interface {
	MonthName(m time.Month, locale string) mo.Option[string]
	WeekdayName(d time.Weekday, locale string) mo.Option[string]
}

// HolidayResolver is the holiday collaborator, satisfied by
// holiday.Resolver.
type HolidayResolver interface {
	Resolve(country string, year int, locale string) ([]holiday.Entry, error)
}

// FirstDayWeekday converts the 0=Monday..6=Sunday convention to
// time.Weekday.
func FirstDayWeekday(firstDay int) time.Weekday {
	return time.Weekday((firstDay + 1) % 7)
}

// weekend days are fixed Saturday/Sunday, locale-independent.
func isWeekend(d time.Weekday) bool {
	return d == time.Saturday || d == time.Sunday
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
