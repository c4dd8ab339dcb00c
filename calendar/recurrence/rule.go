package recurrence

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/samber/mo"
)

// Freq is the base repetition frequency of a recurrence rule.
type Freq int

const (
	Daily Freq = iota
	Weekly
	Monthly
	Yearly
)

var freqNames = map[Freq]string{
	Daily:   "DAILY",
	Weekly:  "WEEKLY",
	Monthly: "MONTHLY",
	Yearly:  "YEARLY",
}

var freqFromName = map[string]Freq{
	"DAILY":   Daily,
	"WEEKLY":  Weekly,
	"MONTHLY": Monthly,
	"YEARLY":  Yearly,
}

func (f Freq) String() string { return freqNames[f] }

var dayFromAbbrev = map[string]time.Weekday{
	"SU": time.Sunday,
	"MO": time.Monday,
	"TU": time.Tuesday,
	"WE": time.Wednesday,
	"TH": time.Thursday,
	"FR": time.Friday,
	"SA": time.Saturday,
}

var dayAbbrev = map[time.Weekday]string{
	time.Sunday:    "SU",
	time.Monday:    "MO",
	time.Tuesday:   "TU",
	time.Wednesday: "WE",
	time.Thursday:  "TH",
	time.Friday:    "FR",
	time.Saturday:  "SA",
}

// WeekdayNum is one BYDAY entry: a weekday with an optional ordinal.
// Ordinal 0 selects every such weekday in the period; a positive ordinal
// counts from the start of the period (month or year), a negative one from
// the end (-1 = last).
type WeekdayNum struct {
	Day     time.Weekday
	Ordinal int
}

// Rule is the structured form of an RFC 5545 recurrence rule, covering the
// FREQ, INTERVAL, COUNT, UNTIL, BYDAY, BYMONTHDAY, BYMONTH, BYYEARDAY,
// BYWEEKNO, BYSETPOS and WKST parts. Negative BYMONTHDAY/BYYEARDAY/BYWEEKNO/
// BYSETPOS values count from the end of their period.
type Rule struct {
	Freq       Freq
	Interval   int // >= 1, default 1
	Count      mo.Option[int]
	Until      mo.Option[time.Time]
	ByDay      []WeekdayNum
	ByMonthDay []int // +-1..31
	ByMonth    []time.Month
	ByYearDay  []int // +-1..366
	ByWeekNo   []int // +-1..53
	BySetPos   []int // +-1..366, never combined with BYMONTHDAY
	WeekStart  time.Weekday
}

// Bounded reports whether the rule terminates on its own, via COUNT or UNTIL.
func (r Rule) Bounded() bool {
	return r.Count.IsPresent() || r.Until.IsPresent()
}

// Parse parses recurrence rule text like "FREQ=WEEKLY;BYDAY=MO,WE;INTERVAL=2"
// and validates it. Errors unwrap to ErrMalformedRule.
func Parse(text string) (Rule, error) {
	if strings.TrimSpace(text) == "" {
		return Rule{}, parseError(text, "empty rule")
	}

	r := Rule{Interval: 1, WeekStart: time.Monday}
	var hasFreq bool
	seen := map[string]bool{}

	for _, part := range strings.Split(text, ";") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return Rule{}, parseError(text, "invalid rule part %q", part)
		}
		key := strings.ToUpper(strings.TrimSpace(kv[0]))
		val := strings.ToUpper(strings.TrimSpace(kv[1]))
		if val == "" {
			return Rule{}, parseError(text, "empty value for %s", key)
		}
		if seen[key] {
			return Rule{}, parseError(text, "duplicate part %s", key)
		}
		seen[key] = true

		switch key {
		case "FREQ":
			f, ok := freqFromName[val]
			if !ok {
				return Rule{}, parseError(text, "unknown frequency %q", val)
			}
			r.Freq = f
			hasFreq = true

		case "INTERVAL":
			n, err := strconv.Atoi(val)
			if err != nil || n < 1 {
				return Rule{}, parseError(text, "invalid INTERVAL %q", val)
			}
			r.Interval = n

		case "COUNT":
			n, err := strconv.Atoi(val)
			if err != nil || n < 1 {
				return Rule{}, parseError(text, "invalid COUNT %q", val)
			}
			r.Count = mo.Some(n)

		case "UNTIL":
			t, err := time.Parse("20060102T150405Z", val)
			if err != nil {
				t, err = time.Parse("20060102", val)
				if err != nil {
					return Rule{}, parseError(text, "invalid UNTIL %q", val)
				}
			}
			r.Until = mo.Some(t)

		case "BYDAY":
			for _, entry := range strings.Split(val, ",") {
				wd, err := parseWeekdayNum(entry)
				if err != nil {
					return Rule{}, parseError(text, "invalid BYDAY entry %q", entry)
				}
				r.ByDay = append(r.ByDay, wd)
			}

		case "BYMONTHDAY":
			vals, err := parseIntList(val, 31)
			if err != nil {
				return Rule{}, parseError(text, "invalid BYMONTHDAY %q", val)
			}
			r.ByMonthDay = vals

		case "BYMONTH":
			for _, s := range strings.Split(val, ",") {
				n, err := strconv.Atoi(s)
				if err != nil || n < 1 || n > 12 {
					return Rule{}, parseError(text, "invalid BYMONTH %q", s)
				}
				r.ByMonth = append(r.ByMonth, time.Month(n))
			}

		case "BYYEARDAY":
			vals, err := parseIntList(val, 366)
			if err != nil {
				return Rule{}, parseError(text, "invalid BYYEARDAY %q", val)
			}
			r.ByYearDay = vals

		case "BYWEEKNO":
			vals, err := parseIntList(val, 53)
			if err != nil {
				return Rule{}, parseError(text, "invalid BYWEEKNO %q", val)
			}
			r.ByWeekNo = vals

		case "BYSETPOS":
			vals, err := parseIntList(val, 366)
			if err != nil {
				return Rule{}, parseError(text, "invalid BYSETPOS %q", val)
			}
			r.BySetPos = vals

		case "WKST":
			wd, ok := dayFromAbbrev[val]
			if !ok {
				return Rule{}, parseError(text, "invalid WKST %q", val)
			}
			r.WeekStart = wd

		default:
			return Rule{}, parseError(text, "unsupported rule part %q", key)
		}
	}

	if !hasFreq {
		return Rule{}, parseError(text, "FREQ is required")
	}
	if err := r.Validate(); err != nil {
		return Rule{}, err
	}
	return r, nil
}

// parseWeekdayNum parses a BYDAY entry like "MO", "2TU" or "-1FR".
func parseWeekdayNum(s string) (WeekdayNum, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return WeekdayNum{}, fmt.Errorf("too short")
	}
	abbrev := s[len(s)-2:]
	wd, ok := dayFromAbbrev[abbrev]
	if !ok {
		return WeekdayNum{}, fmt.Errorf("unknown weekday %q", abbrev)
	}
	ord := 0
	if prefix := s[:len(s)-2]; prefix != "" {
		n, err := strconv.Atoi(prefix)
		if err != nil || n == 0 || n < -53 || n > 53 {
			return WeekdayNum{}, fmt.Errorf("bad ordinal %q", prefix)
		}
		ord = n
	}
	return WeekdayNum{Day: wd, Ordinal: ord}, nil
}

// parseIntList parses a comma-separated list of non-zero integers bounded by
// +-max.
func parseIntList(val string, max int) ([]int, error) {
	var out []int
	for _, s := range strings.Split(val, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || n == 0 || n > max || n < -max {
			return nil, fmt.Errorf("value %q out of range", s)
		}
		out = append(out, n)
	}
	return out, nil
}

// Validate checks the rule's structural invariants. The returned error
// unwraps to ErrMalformedRule.
func (r Rule) Validate() error {
	text := r.String()
	if _, ok := freqNames[r.Freq]; !ok {
		return parseError(text, "unknown frequency %d", int(r.Freq))
	}
	if r.Interval < 1 {
		return parseError(text, "interval must be >= 1, got %d", r.Interval)
	}
	if r.Count.IsPresent() && r.Until.IsPresent() {
		return parseError(text, "COUNT and UNTIL are mutually exclusive")
	}
	if n, ok := r.Count.Get(); ok && n < 1 {
		return parseError(text, "COUNT must be >= 1, got %d", n)
	}
	if len(r.ByMonthDay) > 0 && r.Freq == Weekly {
		return parseError(text, "BYMONTHDAY is not valid with FREQ=WEEKLY")
	}
	if len(r.ByYearDay) > 0 && r.Freq != Yearly {
		return parseError(text, "BYYEARDAY requires FREQ=YEARLY")
	}
	if len(r.ByWeekNo) > 0 && r.Freq != Yearly {
		return parseError(text, "BYWEEKNO requires FREQ=YEARLY")
	}
	for _, wd := range r.ByDay {
		if wd.Ordinal == 0 {
			continue
		}
		if r.Freq != Monthly && r.Freq != Yearly {
			return parseError(text, "BYDAY ordinals require FREQ=MONTHLY or FREQ=YEARLY")
		}
		if len(r.ByWeekNo) > 0 {
			return parseError(text, "BYDAY ordinals are not valid with BYWEEKNO")
		}
	}
	if len(r.BySetPos) > 0 {
		if len(r.ByMonthDay) > 0 {
			// The interaction of the two filters is ambiguous; such rules are
			// rejected outright instead of guessing.
			return parseError(text, "BYSETPOS cannot be combined with BYMONTHDAY")
		}
		if len(r.ByDay) == 0 && len(r.ByMonth) == 0 && len(r.ByYearDay) == 0 && len(r.ByWeekNo) == 0 {
			return parseError(text, "BYSETPOS requires another BY part")
		}
	}
	for _, m := range r.ByMonth {
		if m < time.January || m > time.December {
			return parseError(text, "BYMONTH value %d out of range", int(m))
		}
	}
	return nil
}

// String serializes the rule back to RFC 5545 text. Parse(r.String()) yields
// an equivalent rule.
func (r Rule) String() string {
	parts := []string{"FREQ=" + freqNames[r.Freq]}

	if r.Interval > 1 {
		parts = append(parts, fmt.Sprintf("INTERVAL=%d", r.Interval))
	}
	if n, ok := r.Count.Get(); ok {
		parts = append(parts, fmt.Sprintf("COUNT=%d", n))
	}
	if u, ok := r.Until.Get(); ok {
		layout := "20060102T150405Z"
		if u.Equal(time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)) {
			layout = "20060102"
		}
		parts = append(parts, "UNTIL="+u.Format(layout))
	}
	if len(r.ByDay) > 0 {
		entries := make([]string, len(r.ByDay))
		for i, wd := range r.ByDay {
			if wd.Ordinal != 0 {
				entries[i] = fmt.Sprintf("%d%s", wd.Ordinal, dayAbbrev[wd.Day])
			} else {
				entries[i] = dayAbbrev[wd.Day]
			}
		}
		parts = append(parts, "BYDAY="+strings.Join(entries, ","))
	}
	if len(r.ByMonthDay) > 0 {
		parts = append(parts, "BYMONTHDAY="+joinInts(r.ByMonthDay))
	}
	if len(r.ByMonth) > 0 {
		months := make([]int, len(r.ByMonth))
		for i, m := range r.ByMonth {
			months[i] = int(m)
		}
		parts = append(parts, "BYMONTH="+joinInts(months))
	}
	if len(r.ByYearDay) > 0 {
		parts = append(parts, "BYYEARDAY="+joinInts(r.ByYearDay))
	}
	if len(r.ByWeekNo) > 0 {
		parts = append(parts, "BYWEEKNO="+joinInts(r.ByWeekNo))
	}
	if len(r.BySetPos) > 0 {
		parts = append(parts, "BYSETPOS="+joinInts(r.BySetPos))
	}
	if r.WeekStart != time.Monday {
		parts = append(parts, "WKST="+dayAbbrev[r.WeekStart])
	}

	return strings.Join(parts, ";")
}

func joinInts(vals []int) string {
	strs := make([]string, len(vals))
	for i, v := range vals {
		strs[i] = strconv.Itoa(v)
	}
	return strings.Join(strs, ",")
}
