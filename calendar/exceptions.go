package calendar

import (
	"time"

	"github.com/google/uuid"

	"github.com/oernster/calendifier-sub002/calendar/storage"
)

type exceptionKey struct {
	eventID uuid.UUID
	date    string
}

// ApplyExceptions filters and reshapes raw occurrences through exception
// records. An Excluded record drops its occurrence; a Modified record
// overlays the override fields while keeping the occurrence's date identity;
// occurrences without a record pass through unchanged. Input order is
// preserved and the operation is idempotent: applying the same exceptions
// twice yields the same result.
func ApplyExceptions(occs []Occurrence, excs []storage.ExceptionRecord) []Occurrence {
	if len(excs) == 0 {
		return occs
	}

	index := make(map[exceptionKey]storage.ExceptionRecord, len(excs))
	for _, rec := range excs {
		index[exceptionKey{rec.EventID, rec.Date.Format(time.DateOnly)}] = rec
	}

	out := make([]Occurrence, 0, len(occs))
	for _, occ := range occs {
		rec, ok := index[exceptionKey{occ.EventID, occ.Date.Format(time.DateOnly)}]
		if !ok {
			out = append(out, occ)
			continue
		}
		if rec.Kind == storage.Excluded {
			continue
		}
		out = append(out, applyOverride(occ, rec.Override))
	}
	return out
}

func applyOverride(occ Occurrence, o storage.Override) Occurrence {
	duration := occ.End.Sub(occ.Start)
	if v, ok := o.Title.Get(); ok {
		occ.Title = v
	}
	if v, ok := o.Description.Get(); ok {
		occ.Description = v
	}
	if v, ok := o.Location.Get(); ok {
		occ.Location = v
	}
	if v, ok := o.StartTime.Get(); ok {
		// Only the time of day moves; the occurrence keeps its date.
		occ.Start = time.Date(occ.Date.Year(), occ.Date.Month(), occ.Date.Day(),
			v.Hour(), v.Minute(), v.Second(), 0, occ.Date.Location())
	}
	if v, ok := o.Duration.Get(); ok {
		duration = v
	}
	occ.End = occ.Start.Add(duration)
	occ.Modified = true
	return occ
}
