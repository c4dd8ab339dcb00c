package calendar

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/oernster/calendifier-sub002/calendar/cache"
	"github.com/oernster/calendifier-sub002/calendar/holiday"
	"github.com/oernster/calendifier-sub002/calendar/recurrence"
	"github.com/oernster/calendifier-sub002/calendar/storage"
	"github.com/oernster/calendifier-sub002/pkg/metrics"
)

// Aggregator is the top-level orchestrator of the aggregation core. It is
// stateless per call except for the shared cache and safe for concurrent
// use; locale and country travel as request parameters, never as ambient
// state.
type Aggregator struct {
	events     storage.EventSource
	holidays   HolidayResolver
	cache      *cache.Cache
	translator Translator
	logger     *slog.Logger
	metrics    *metrics.Manager
	expander   recurrence.Expander
}

// New creates an Aggregator over the event-storage and holiday
// collaborators. holidays may be nil for a holiday-less calendar.
func New(events storage.EventSource, holidays HolidayResolver, opts ...Option) *Aggregator {
	a := &Aggregator{
		events:   events,
		holidays: holidays,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// BuildMonth assembles the month view for req: the month's days padded with
// adjacent-month days to complete weeks under the requested first day of
// week, every day carrying its occurrences and holidays. Holiday and
// translation gaps degrade to partial results; only structurally invalid
// requests and storage failures abort the build.
func (a *Aggregator) BuildMonth(req MonthRequest) (*CalendarMonth, error) {
	started := time.Now()

	if req.Month < time.January || req.Month > time.December {
		return nil, fmt.Errorf("month %d: %w", req.Month, ErrInvalidRequest)
	}
	if req.FirstDay < 0 || req.FirstDay > 6 {
		return nil, fmt.Errorf("first day of week %d: %w", req.FirstDay, ErrInvalidRequest)
	}

	loc := req.Now.Location()
	firstWD := FirstDayWeekday(req.FirstDay)
	monthStart := time.Date(req.Year, req.Month, 1, 0, 0, 0, 0, loc)
	monthEnd := monthStart.AddDate(0, 1, -1)
	gridStart := startOfWeek(monthStart, firstWD)
	gridEnd := startOfWeek(monthEnd, firstWD).AddDate(0, 0, 6)

	occurrences, err := a.collectOccurrences(gridStart, gridEnd)
	if err != nil {
		return nil, err
	}
	holidaysByDate := a.collectHolidays(req.Country, req.Locale, gridStart, gridEnd)

	occByDate := make(map[string][]Occurrence)
	for _, occ := range occurrences {
		k := occ.Date.Format(time.DateOnly)
		occByDate[k] = append(occByDate[k], occ)
	}

	var days []CalendarDay
	for d := gridStart; !d.After(gridEnd); d = d.AddDate(0, 0, 1) {
		k := d.Format(time.DateOnly)
		dayOccs := occByDate[k]
		sortDayOccurrences(dayOccs)
		days = append(days, CalendarDay{
			Date:        d,
			Today:       sameDate(d, req.Now),
			Weekend:     isWeekend(d.Weekday()),
			OtherMonth:  d.Month() != req.Month,
			Occurrences: dayOccs,
			Holidays:    holidaysByDate[k],
		})
	}

	weeks := make([]CalendarWeek, 0, len(days)/7)
	for i := 0; i+7 <= len(days); i += 7 {
		var week CalendarWeek
		copy(week[:], days[i:i+7])
		weeks = append(weeks, week)
	}

	month := &CalendarMonth{
		Year:         req.Year,
		Month:        req.Month,
		MonthName:    a.monthName(req.Month, req.Locale),
		WeekdayNames: a.weekdayNames(firstWD, req.Locale),
		Weeks:        weeks,
	}
	a.metrics.RecordBuild(time.Since(started))
	return month, nil
}

// ExpandRange is the flattened agenda API: it expands one event's recurrence
// rule over [from, to] and applies the supplied exceptions, without month
// shaping. A malformed rule or an unbounded range is surfaced to the caller.
// A non-recurring event yields its own date when it falls in range.
func (a *Aggregator) ExpandRange(ev storage.Event, excs []storage.ExceptionRecord, from, to time.Time) ([]Occurrence, error) {
	if !ev.Recurring() {
		date := dateOf(ev.Start)
		if date.Before(dateOf(from)) || date.After(dateOf(to)) {
			return nil, nil
		}
		return ApplyExceptions([]Occurrence{materialize(ev, date)}, excs), nil
	}

	started := time.Now()
	rule, err := recurrence.Parse(ev.RRule)
	if err != nil {
		a.metrics.RecordExpansion(time.Since(started), err)
		return nil, err
	}
	dates, err := a.expander.Expand(rule, ev.Start, from, to)
	a.metrics.RecordExpansion(time.Since(started), err)
	if err != nil {
		return nil, err
	}

	occs := make([]Occurrence, 0, len(dates))
	for _, d := range dates {
		occs = append(occs, materialize(ev, d))
	}
	return ApplyExceptions(occs, excs), nil
}

// InvalidateEvent drops cached expansions of one event, called after its
// definition or exceptions mutate.
func (a *Aggregator) InvalidateEvent(id uuid.UUID) {
	if a.cache != nil {
		a.cache.InvalidateEvent(id.String())
	}
}

// InvalidateHolidays drops cached holiday sets, called after locale or
// country settings change.
func (a *Aggregator) InvalidateHolidays() {
	if a.cache != nil {
		a.cache.InvalidateHolidays()
	}
}

// collectOccurrences gathers recurring expansions and non-recurring events
// over the grid range.
func (a *Aggregator) collectOccurrences(from, to time.Time) ([]Occurrence, error) {
	defs, err := a.events.RecurringEvents(from, to)
	if err != nil {
		return nil, fmt.Errorf("recurring definitions: %w", err)
	}

	var out []Occurrence
	for _, ev := range defs {
		occs, err := a.expandCached(ev, from, to)
		if err != nil {
			if errors.Is(err, recurrence.ErrMalformedRule) {
				// A broken stored rule must not take the whole month down.
				a.logger.Warn("skipping event with malformed recurrence rule",
					"event_id", ev.ID, "rule", ev.RRule, "error", err)
				continue
			}
			return nil, fmt.Errorf("expand event %s: %w", ev.ID, err)
		}
		out = append(out, occs...)
	}

	plain, err := a.events.EventsInRange(from, to)
	if err != nil {
		return nil, fmt.Errorf("non-recurring events: %w", err)
	}
	for _, ev := range plain {
		date := dateOf(ev.Start)
		if date.Before(dateOf(from)) || date.After(dateOf(to)) {
			continue
		}
		out = append(out, materialize(ev, date))
	}
	return out, nil
}

// expandCached serves one event's occurrence list from the cache, computing
// expansion plus exception resolution on a miss.
func (a *Aggregator) expandCached(ev storage.Event, from, to time.Time) ([]Occurrence, error) {
	if a.cache == nil {
		return a.expandEvent(ev, from, to)
	}

	key := cache.ExpansionKey(ev.ID.String(), from, to)
	value, hit, err := a.cache.GetOrCompute(key, func() (any, error) {
		return a.expandEvent(ev, from, to)
	})
	a.metrics.RecordCacheAccess("expansion", hit)
	if err != nil {
		return nil, err
	}
	occs, ok := value.([]Occurrence)
	if !ok {
		a.logger.Error("evicting corrupted expansion entry",
			"event_id", ev.ID, "error", cache.ErrCorrupted)
		a.cache.Evict(key)
		return a.expandEvent(ev, from, to)
	}
	return occs, nil
}

func (a *Aggregator) expandEvent(ev storage.Event, from, to time.Time) ([]Occurrence, error) {
	started := time.Now()
	rule, err := recurrence.Parse(ev.RRule)
	if err != nil {
		a.metrics.RecordExpansion(time.Since(started), err)
		return nil, err
	}
	dates, err := a.expander.Expand(rule, ev.Start, from, to)
	a.metrics.RecordExpansion(time.Since(started), err)
	if err != nil {
		return nil, err
	}

	excs, err := a.events.Exceptions(ev.ID)
	if err != nil {
		return nil, fmt.Errorf("exceptions: %w", err)
	}

	occs := make([]Occurrence, 0, len(dates))
	for _, d := range dates {
		occs = append(occs, materialize(ev, d))
	}
	return ApplyExceptions(occs, excs), nil
}

// collectHolidays resolves holidays for every year the grid range touches,
// bucketed by date. Failures degrade to an empty set for that year; a
// calendar with no holidays is valid, a calendar that fails to render is
// not.
func (a *Aggregator) collectHolidays(country, locale string, from, to time.Time) map[string][]holiday.Entry {
	byDate := make(map[string][]holiday.Entry)
	if a.holidays == nil || country == "" {
		return byDate
	}

	for year := from.Year(); year <= to.Year(); year++ {
		entries, err := a.holidaysCached(country, year, locale)
		if err != nil {
			if errors.Is(err, holiday.ErrUnsupportedCountry) {
				a.logger.Warn("no holiday data for country", "country", country, "year", year)
			} else {
				a.logger.Warn("holiday resolution failed", "country", country, "year", year, "error", err)
			}
			continue
		}
		for _, e := range entries {
			k := e.Date.Format(time.DateOnly)
			byDate[k] = append(byDate[k], e)
		}
	}
	return byDate
}

func (a *Aggregator) holidaysCached(country string, year int, locale string) ([]holiday.Entry, error) {
	compute := func() (any, error) {
		a.metrics.RecordHolidayResolution()
		return a.holidays.Resolve(country, year, locale)
	}

	if a.cache == nil {
		v, err := compute()
		if err != nil {
			return nil, err
		}
		return v.([]holiday.Entry), nil
	}

	key := cache.HolidayKey(country, year, locale)
	value, hit, err := a.cache.GetOrCompute(key, compute)
	a.metrics.RecordCacheAccess("holidays", hit)
	if err != nil {
		return nil, err
	}
	entries, ok := value.([]holiday.Entry)
	if !ok {
		a.logger.Error("evicting corrupted holiday entry",
			"country", country, "year", year, "error", cache.ErrCorrupted)
		a.cache.Evict(key)
		v, err := compute()
		if err != nil {
			return nil, err
		}
		return v.([]holiday.Entry), nil
	}
	return entries, nil
}

func (a *Aggregator) monthName(m time.Month, locale string) string {
	if a.translator != nil {
		if name, ok := a.translator.MonthName(m, locale).Get(); ok {
			return name
		}
	}
	return m.String()
}

func (a *Aggregator) weekdayNames(first time.Weekday, locale string) [7]string {
	var names [7]string
	for i := 0; i < 7; i++ {
		wd := time.Weekday((int(first) + i) % 7)
		names[i] = wd.String()
		if a.translator != nil {
			if name, ok := a.translator.WeekdayName(wd, locale).Get(); ok {
				names[i] = name
			}
		}
	}
	return names
}

// materialize derives one occurrence of ev on date, carrying the event's
// time of day and duration.
func materialize(ev storage.Event, date time.Time) Occurrence {
	start := time.Date(date.Year(), date.Month(), date.Day(),
		ev.Start.Hour(), ev.Start.Minute(), ev.Start.Second(), 0, date.Location())
	return Occurrence{
		EventID:     ev.ID,
		Date:        date,
		Start:       start,
		End:         start.Add(ev.Duration()),
		Title:       ev.Title,
		Description: ev.Description,
		Location:    ev.Location,
		AllDay:      ev.AllDay,
	}
}

// sortDayOccurrences orders one day's entries for display: all-day entries
// before timed ones, timed ones by start time, ties broken by title then
// event id for determinism.
func sortDayOccurrences(occs []Occurrence) {
	sort.SliceStable(occs, func(i, j int) bool {
		a, b := occs[i], occs[j]
		if a.AllDay != b.AllDay {
			return a.AllDay
		}
		if !a.AllDay && !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return a.EventID.String() < b.EventID.String()
	})
}

// startOfWeek returns the most recent first-day-of-week on or before t.
func startOfWeek(t time.Time, first time.Weekday) time.Time {
	offset := (int(t.Weekday()) - int(first) + 7) % 7
	d := t.AddDate(0, 0, -offset)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, t.Location())
}
