package recurrence

import (
	"fmt"
	"sort"
	"time"
)

// Expander performs bounded recurrence expansion. The zero value uses the
// defaults below.
type Expander struct {
	// MaxSpan caps the expansion range for open-ended rules (no COUNT, no
	// UNTIL). Requests over the cap fail with ErrUnboundedRange.
	MaxSpan time.Duration
	// MaxPeriods is a safety valve on period advances, guarding against
	// rules whose constraints never produce a candidate.
	MaxPeriods int
}

const (
	defaultMaxSpan    = 366 * 24 * time.Hour
	defaultMaxPeriods = 10000
)

// Expand expands rule into concrete occurrence dates within
// [rangeStart, rangeEnd] using the default expander configuration.
func Expand(rule Rule, anchor, rangeStart, rangeEnd time.Time) ([]time.Time, error) {
	return Expander{}.Expand(rule, anchor, rangeStart, rangeEnd)
}

// Expand generates the dates rule produces within [rangeStart, rangeEnd],
// both inclusive, expanding from anchor (the recurring event's own start
// date). Results are midnight-normalized in anchor's location, strictly
// ascending, with no duplicates. Candidates before anchor are never
// generated; candidates between anchor and rangeStart consume COUNT but are
// not returned. The call is stateless and restartable.
//
// Month days absent from a short month are skipped for that period, never
// clamped. Feb 29 and year-day 366 are produced only in leap years.
func (x Expander) Expand(rule Rule, anchor, rangeStart, rangeEnd time.Time) ([]time.Time, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	maxSpan := x.MaxSpan
	if maxSpan <= 0 {
		maxSpan = defaultMaxSpan
	}
	maxPeriods := x.MaxPeriods
	if maxPeriods <= 0 {
		maxPeriods = defaultMaxPeriods
	}

	if rangeEnd.IsZero() || rangeEnd.Before(rangeStart) {
		return nil, fmt.Errorf("expansion range [%s, %s] is not bounded: %w",
			rangeStart.Format(time.DateOnly), rangeEnd.Format(time.DateOnly), ErrUnboundedRange)
	}
	if !rule.Bounded() && rangeEnd.Sub(rangeStart) > maxSpan {
		return nil, fmt.Errorf("open-ended rule over a %s range exceeds the %s cap: %w",
			rangeEnd.Sub(rangeStart), maxSpan, ErrUnboundedRange)
	}

	loc := anchor.Location()
	anchorDate := dateIn(anchor, loc)
	startDate := dateIn(rangeStart, loc)
	endDate := dateIn(rangeEnd, loc)

	hardStop := endDate
	var untilDate time.Time
	if u, ok := rule.Until.Get(); ok {
		untilDate = dateIn(u, loc)
		if untilDate.Before(hardStop) {
			hardStop = untilDate
		}
	}

	var out []time.Time
	emitted := 0
	for i := 0; i < maxPeriods; i++ {
		ps := periodStart(rule, anchorDate, i)
		if ps.After(hardStop) {
			break
		}

		cands := periodCandidates(rule, anchorDate, ps)
		cands = applySetPos(cands, rule.BySetPos)
		for _, c := range cands {
			if c.Before(anchorDate) {
				continue
			}
			if !untilDate.IsZero() && c.After(untilDate) {
				return out, nil
			}
			if n, ok := rule.Count.Get(); ok && emitted >= n {
				return out, nil
			}
			emitted++
			if !c.Before(startDate) && !c.After(endDate) {
				out = append(out, c)
			}
		}
		if n, ok := rule.Count.Get(); ok && emitted >= n {
			break
		}
	}
	return out, nil
}

// HasOccurrence reports whether rule produces at least one date within
// [rangeStart, rangeEnd].
func (x Expander) HasOccurrence(rule Rule, anchor, rangeStart, rangeEnd time.Time) (bool, error) {
	dates, err := x.Expand(rule, anchor, rangeStart, rangeEnd)
	if err != nil {
		return false, err
	}
	return len(dates) > 0, nil
}

// periodStart returns the start of the i-th period after the anchor's own:
// the day itself (daily), the week start per WKST (weekly), the first of the
// month (monthly) or Jan 1 (yearly), advanced by i*Interval periods.
func periodStart(rule Rule, anchor time.Time, i int) time.Time {
	n := i * rule.Interval
	switch rule.Freq {
	case Daily:
		return anchor.AddDate(0, 0, n)
	case Weekly:
		return weekStartOf(anchor, rule.WeekStart).AddDate(0, 0, 7*n)
	case Monthly:
		first := time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, anchor.Location())
		return first.AddDate(0, n, 0)
	default: // Yearly
		return time.Date(anchor.Year()+n, time.January, 1, 0, 0, 0, 0, anchor.Location())
	}
}

// periodCandidates generates the rule's candidate dates for the period
// starting at ps, sorted ascending and deduplicated, before BYSETPOS.
func periodCandidates(rule Rule, anchor, ps time.Time) []time.Time {
	var cands []time.Time
	switch rule.Freq {
	case Daily:
		cands = dailyCandidates(rule, ps)
	case Weekly:
		cands = weeklyCandidates(rule, anchor, ps)
	case Monthly:
		cands = monthlyCandidates(rule, anchor, ps)
	default:
		cands = yearlyCandidates(rule, anchor, ps)
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].Before(cands[j]) })
	return dedupeDates(cands)
}

func dailyCandidates(rule Rule, day time.Time) []time.Time {
	if !monthAllowed(rule.ByMonth, day.Month()) {
		return nil
	}
	if len(rule.ByMonthDay) > 0 && !monthDayMatches(rule.ByMonthDay, day) {
		return nil
	}
	if len(rule.ByDay) > 0 && !weekdayInSet(rule.ByDay, day.Weekday()) {
		return nil
	}
	return []time.Time{day}
}

func weeklyCandidates(rule Rule, anchor, weekStart time.Time) []time.Time {
	targets := rule.ByDay
	if len(targets) == 0 {
		targets = []WeekdayNum{{Day: anchor.Weekday()}}
	}
	var cands []time.Time
	for i := 0; i < 7; i++ {
		d := weekStart.AddDate(0, 0, i)
		if !monthAllowed(rule.ByMonth, d.Month()) {
			continue
		}
		if weekdayInSet(targets, d.Weekday()) {
			cands = append(cands, d)
		}
	}
	return cands
}

func monthlyCandidates(rule Rule, anchor, monthStart time.Time) []time.Time {
	year, month := monthStart.Year(), monthStart.Month()
	if !monthAllowed(rule.ByMonth, month) {
		return nil
	}

	var days []int
	switch {
	case len(rule.ByMonthDay) > 0 && len(rule.ByDay) > 0:
		days = intersectInts(
			resolveMonthDays(rule.ByMonthDay, year, month),
			weekdaysInMonth(rule.ByDay, year, month))
	case len(rule.ByMonthDay) > 0:
		days = resolveMonthDays(rule.ByMonthDay, year, month)
	case len(rule.ByDay) > 0:
		days = weekdaysInMonth(rule.ByDay, year, month)
	default:
		// Anchor's day of month; short months are skipped, never clamped.
		if anchor.Day() <= daysInMonth(year, month) {
			days = []int{anchor.Day()}
		}
	}

	cands := make([]time.Time, 0, len(days))
	for _, d := range days {
		cands = append(cands, time.Date(year, month, d, 0, 0, 0, 0, monthStart.Location()))
	}
	return cands
}

func yearlyCandidates(rule Rule, anchor, yearStart time.Time) []time.Time {
	year := yearStart.Year()
	loc := yearStart.Location()

	switch {
	case len(rule.ByYearDay) > 0:
		total := 365
		if isLeap(year) {
			total = 366
		}
		var cands []time.Time
		for _, yd := range rule.ByYearDay {
			n := yd
			if n < 0 {
				n = total + n + 1
			}
			if n < 1 || n > total {
				continue
			}
			d := yearStart.AddDate(0, 0, n-1)
			if !monthAllowed(rule.ByMonth, d.Month()) {
				continue
			}
			if len(rule.ByDay) > 0 && !weekdayInSet(rule.ByDay, d.Weekday()) {
				continue
			}
			cands = append(cands, d)
		}
		return cands

	case len(rule.ByWeekNo) > 0:
		targets := rule.ByDay
		if len(targets) == 0 {
			targets = []WeekdayNum{{Day: anchor.Weekday()}}
		}
		week1 := week1Start(year, rule.WeekStart, loc)
		total := weeksInYear(year, rule.WeekStart, loc)
		var cands []time.Time
		for _, wn := range rule.ByWeekNo {
			n := wn
			if n < 0 {
				n = total + n + 1
			}
			if n < 1 || n > total {
				continue
			}
			ws := week1.AddDate(0, 0, 7*(n-1))
			for i := 0; i < 7; i++ {
				d := ws.AddDate(0, 0, i)
				// Numbered weeks can spill into adjacent years; only days of
				// the requested year are produced.
				if d.Year() != year {
					continue
				}
				if weekdayInSet(targets, d.Weekday()) {
					cands = append(cands, d)
				}
			}
		}
		return cands

	case len(rule.ByMonthDay) > 0:
		months := rule.ByMonth
		if len(months) == 0 {
			months = allMonths
		}
		var cands []time.Time
		for _, m := range months {
			for _, d := range resolveMonthDays(rule.ByMonthDay, year, m) {
				date := time.Date(year, m, d, 0, 0, 0, 0, loc)
				if len(rule.ByDay) > 0 && !weekdayInSet(rule.ByDay, date.Weekday()) {
					continue
				}
				cands = append(cands, date)
			}
		}
		return cands

	case len(rule.ByDay) > 0:
		// With BYMONTH the weekday set is confined to the listed months and
		// ordinals count within each month; without it the set spans the
		// whole year and ordinals count within the year.
		if len(rule.ByMonth) > 0 {
			var cands []time.Time
			for _, m := range rule.ByMonth {
				for _, d := range weekdaysInMonth(rule.ByDay, year, m) {
					cands = append(cands, time.Date(year, m, d, 0, 0, 0, 0, loc))
				}
			}
			return cands
		}
		return weekdaysInYear(rule.ByDay, year, loc)

	case len(rule.ByMonth) > 0:
		var cands []time.Time
		for _, m := range rule.ByMonth {
			if anchor.Day() <= daysInMonth(year, m) {
				cands = append(cands, time.Date(year, m, anchor.Day(), 0, 0, 0, 0, loc))
			}
		}
		return cands

	default:
		if anchor.Month() == time.February && anchor.Day() == 29 && !isLeap(year) {
			return nil
		}
		return []time.Time{time.Date(year, anchor.Month(), anchor.Day(), 0, 0, 0, 0, loc)}
	}
}

var allMonths = []time.Month{
	time.January, time.February, time.March, time.April, time.May, time.June,
	time.July, time.August, time.September, time.October, time.November, time.December,
}

// resolveMonthDays maps +-day-of-month values onto concrete days of the given
// month, dropping values the month does not have.
func resolveMonthDays(monthDays []int, year int, month time.Month) []int {
	n := daysInMonth(year, month)
	var days []int
	for _, md := range monthDays {
		d := md
		if d < 0 {
			d = n + d + 1
		}
		if d >= 1 && d <= n {
			days = append(days, d)
		}
	}
	sort.Ints(days)
	return days
}

// weekdaysInMonth resolves BYDAY entries within one month, honoring
// ordinals (2 = second such weekday, -1 = last).
func weekdaysInMonth(set []WeekdayNum, year int, month time.Month) []int {
	n := daysInMonth(year, month)
	var days []int
	for _, wd := range set {
		var matches []int
		for d := 1; d <= n; d++ {
			if time.Date(year, month, d, 0, 0, 0, 0, time.UTC).Weekday() == wd.Day {
				matches = append(matches, d)
			}
		}
		days = append(days, selectOrdinal(matches, wd.Ordinal)...)
	}
	sort.Ints(days)
	return dedupeInts(days)
}

// weekdaysInYear resolves BYDAY entries across a whole year, with ordinals
// counting within the year.
func weekdaysInYear(set []WeekdayNum, year int, loc *time.Location) []time.Time {
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	var cands []time.Time
	for _, wd := range set {
		offset := (int(wd.Day) - int(jan1.Weekday()) + 7) % 7
		var matches []time.Time
		for d := jan1.AddDate(0, 0, offset); d.Year() == year; d = d.AddDate(0, 0, 7) {
			matches = append(matches, d)
		}
		switch {
		case wd.Ordinal == 0:
			cands = append(cands, matches...)
		case wd.Ordinal > 0 && wd.Ordinal <= len(matches):
			cands = append(cands, matches[wd.Ordinal-1])
		case wd.Ordinal < 0 && -wd.Ordinal <= len(matches):
			cands = append(cands, matches[len(matches)+wd.Ordinal])
		}
	}
	return cands
}

func selectOrdinal(matches []int, ordinal int) []int {
	switch {
	case ordinal == 0:
		return matches
	case ordinal > 0 && ordinal <= len(matches):
		return []int{matches[ordinal-1]}
	case ordinal < 0 && -ordinal <= len(matches):
		return []int{matches[len(matches)+ordinal]}
	}
	return nil
}

// applySetPos keeps only the listed positions of one period's candidate set
// (1 = first, -1 = last). Out-of-range positions are ignored.
func applySetPos(cands []time.Time, setPos []int) []time.Time {
	if len(setPos) == 0 || len(cands) == 0 {
		return cands
	}
	var kept []time.Time
	for _, sp := range setPos {
		idx := sp - 1
		if sp < 0 {
			idx = len(cands) + sp
		}
		if idx >= 0 && idx < len(cands) {
			kept = append(kept, cands[idx])
		}
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].Before(kept[j]) })
	return dedupeDates(kept)
}

// week1Start returns the start of week 1 of the year: the first week,
// beginning on wkst, containing at least four days of the year.
func week1Start(year int, wkst time.Weekday, loc *time.Location) time.Time {
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	offset := (int(jan1.Weekday()) - int(wkst) + 7) % 7
	if offset <= 3 {
		return jan1.AddDate(0, 0, -offset)
	}
	return jan1.AddDate(0, 0, 7-offset)
}

func weeksInYear(year int, wkst time.Weekday, loc *time.Location) int {
	w1 := week1Start(year, wkst, loc)
	next := week1Start(year+1, wkst, loc)
	weeks := 0
	for d := w1; d.Before(next); d = d.AddDate(0, 0, 7) {
		weeks++
	}
	return weeks
}

func weekStartOf(t time.Time, wkst time.Weekday) time.Time {
	offset := (int(t.Weekday()) - int(wkst) + 7) % 7
	d := t.AddDate(0, 0, -offset)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, t.Location())
}

func dateIn(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func monthAllowed(set []time.Month, m time.Month) bool {
	if len(set) == 0 {
		return true
	}
	for _, sm := range set {
		if sm == m {
			return true
		}
	}
	return false
}

func monthDayMatches(set []int, d time.Time) bool {
	n := daysInMonth(d.Year(), d.Month())
	for _, md := range set {
		resolved := md
		if resolved < 0 {
			resolved = n + resolved + 1
		}
		if resolved == d.Day() {
			return true
		}
	}
	return false
}

func weekdayInSet(set []WeekdayNum, wd time.Weekday) bool {
	for _, e := range set {
		if e.Day == wd {
			return true
		}
	}
	return false
}

func intersectInts(a, b []int) []int {
	inB := make(map[int]bool, len(b))
	for _, v := range b {
		inB[v] = true
	}
	var out []int
	for _, v := range a {
		if inB[v] {
			out = append(out, v)
		}
	}
	return out
}

func dedupeInts(vals []int) []int {
	var out []int
	for i, v := range vals {
		if i == 0 || v != vals[i-1] {
			out = append(out, v)
		}
	}
	return out
}

func dedupeDates(dates []time.Time) []time.Time {
	var out []time.Time
	for i, d := range dates {
		if i == 0 || !d.Equal(dates[i-1]) {
			out = append(out, d)
		}
	}
	return out
}
