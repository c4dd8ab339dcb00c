// Package ics imports and exports events and exception records as iCalendar
// documents. Recurrence rules travel as RFC 5545 RRULE text and are
// validated at the boundary, so malformed rules fail at import time instead
// of surfacing during month builds.
package ics

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/oernster/calendifier-sub002/calendar/recurrence"
	"github.com/oernster/calendifier-sub002/calendar/storage"
)

const productID = "-//Calendifier//Calendar Core//EN"

// Older go-ical versions do not export a constant for RECURRENCE-ID.
const propRecurrenceID = "RECURRENCE-ID"

// Import decodes a VCALENDAR stream into events and exception records.
// VEVENTs with a RECURRENCE-ID become Modified exception records of the
// event sharing their UID; EXDATE values become Excluded records. UIDs that
// are UUIDs are preserved, others are replaced with minted ids.
func Import(r io.Reader) ([]storage.Event, []storage.ExceptionRecord, error) {
	cal, err := ical.NewDecoder(r).Decode()
	if err != nil {
		return nil, nil, fmt.Errorf("decode calendar: %w", err)
	}

	idByUID := map[string]uuid.UUID{}
	eventID := func(comp *ical.Component) uuid.UUID {
		uid := propValue(comp, ical.PropUID)
		if id, ok := idByUID[uid]; ok {
			return id
		}
		id, err := uuid.Parse(uid)
		if err != nil {
			id = uuid.New()
		}
		if uid != "" {
			idByUID[uid] = id
		}
		return id
	}

	var events []storage.Event
	var exceptions []storage.ExceptionRecord
	var overrides []*ical.Component

	for _, child := range cal.Children {
		if child.Name != ical.CompEvent {
			continue
		}
		// Override instances are resolved after their parents so the UID
		// mapping is complete.
		if child.Props.Get(propRecurrenceID) != nil {
			overrides = append(overrides, child)
			continue
		}

		ev, excluded, err := importEvent(child, eventID(child))
		if err != nil {
			return nil, nil, err
		}
		events = append(events, ev)
		exceptions = append(exceptions, excluded...)
	}

	for _, comp := range overrides {
		rec, err := importOverride(comp, eventID(comp))
		if err != nil {
			return nil, nil, err
		}
		exceptions = append(exceptions, rec)
	}
	return events, exceptions, nil
}

func importEvent(comp *ical.Component, id uuid.UUID) (storage.Event, []storage.ExceptionRecord, error) {
	ev := storage.Event{
		ID:          id,
		Title:       propValue(comp, ical.PropSummary),
		Description: propValue(comp, ical.PropDescription),
		Location:    propValue(comp, ical.PropLocation),
	}

	startProp := comp.Props.Get(ical.PropDateTimeStart)
	if startProp == nil {
		return storage.Event{}, nil, fmt.Errorf("event %s: missing DTSTART", id)
	}
	start, dateOnly, err := parseDateTime(startProp)
	if err != nil {
		return storage.Event{}, nil, fmt.Errorf("event %s: %w", id, err)
	}
	ev.Start = start
	ev.AllDay = dateOnly

	switch endProp := comp.Props.Get(ical.PropDateTimeEnd); {
	case endProp != nil:
		end, _, err := parseDateTime(endProp)
		if err != nil {
			return storage.Event{}, nil, fmt.Errorf("event %s: %w", id, err)
		}
		if dateOnly {
			// DTEND of an all-day event is exclusive.
			end = end.AddDate(0, 0, -1)
		}
		ev.End = end
	case dateOnly:
		ev.End = start
	default:
		ev.End = start
	}
	if ev.End.Before(ev.Start) {
		return storage.Event{}, nil, fmt.Errorf("event %s: end precedes start: %w", id, storage.ErrInvalidInput)
	}

	if rruleProp := comp.Props.Get(ical.PropRecurrenceRule); rruleProp != nil && rruleProp.Value != "" {
		if _, err := recurrence.Parse(rruleProp.Value); err != nil {
			return storage.Event{}, nil, fmt.Errorf("event %s: %w", id, err)
		}
		ev.RRule = rruleProp.Value
	}

	var excluded []storage.ExceptionRecord
	for _, prop := range comp.Props[ical.PropExceptionDates] {
		for _, value := range strings.Split(prop.Value, ",") {
			value = strings.TrimSpace(value)
			if value == "" {
				continue
			}
			date, _, err := parseDateTimeValue(value, prop.Params)
			if err != nil {
				return storage.Event{}, nil, fmt.Errorf("event %s: EXDATE: %w", id, err)
			}
			excluded = append(excluded, storage.ExceptionRecord{
				EventID: id,
				Date:    storage.Date(date),
				Kind:    storage.Excluded,
			})
		}
	}
	return ev, excluded, nil
}

func importOverride(comp *ical.Component, id uuid.UUID) (storage.ExceptionRecord, error) {
	recIDProp := comp.Props.Get(propRecurrenceID)
	date, _, err := parseDateTime(recIDProp)
	if err != nil {
		return storage.ExceptionRecord{}, fmt.Errorf("override of %s: %w", id, err)
	}

	rec := storage.ExceptionRecord{
		EventID: id,
		Date:    storage.Date(date),
		Kind:    storage.Modified,
	}
	if v := propValue(comp, ical.PropSummary); v != "" {
		rec.Override.Title = mo.Some(v)
	}
	if v := propValue(comp, ical.PropDescription); v != "" {
		rec.Override.Description = mo.Some(v)
	}
	if v := propValue(comp, ical.PropLocation); v != "" {
		rec.Override.Location = mo.Some(v)
	}
	if startProp := comp.Props.Get(ical.PropDateTimeStart); startProp != nil {
		start, _, err := parseDateTime(startProp)
		if err != nil {
			return storage.ExceptionRecord{}, fmt.Errorf("override of %s: %w", id, err)
		}
		rec.Override.StartTime = mo.Some(start)
		if endProp := comp.Props.Get(ical.PropDateTimeEnd); endProp != nil {
			end, _, err := parseDateTime(endProp)
			if err != nil {
				return storage.ExceptionRecord{}, fmt.Errorf("override of %s: %w", id, err)
			}
			rec.Override.Duration = mo.Some(end.Sub(start))
		}
	}
	return rec, nil
}

// Export encodes events and their exception records as a VCALENDAR.
// Excluded records become EXDATE lines on their parent; Modified records
// become override VEVENTs with a RECURRENCE-ID.
func Export(w io.Writer, events []storage.Event, excs map[uuid.UUID][]storage.ExceptionRecord) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	for _, ev := range events {
		comp := ical.NewEvent().Component
		comp.Props.SetText(ical.PropUID, ev.ID.String())
		comp.Props.SetDateTime(ical.PropDateTimeStamp, time.Now())
		comp.Props.SetText(ical.PropSummary, ev.Title)
		if ev.Description != "" {
			comp.Props.SetText(ical.PropDescription, ev.Description)
		}
		if ev.Location != "" {
			comp.Props.SetText(ical.PropLocation, ev.Location)
		}

		if ev.AllDay {
			setDateProp(comp, ical.PropDateTimeStart, ev.Start)
			// Exclusive DTEND per RFC 5545.
			setDateProp(comp, ical.PropDateTimeEnd, ev.End.AddDate(0, 0, 1))
		} else {
			comp.Props.SetDateTime(ical.PropDateTimeStart, ev.Start)
			comp.Props.SetDateTime(ical.PropDateTimeEnd, ev.End)
		}

		if ev.RRule != "" {
			// RRULE values are RECUR typed; text escaping would corrupt the
			// semicolons.
			prop := ical.NewProp(ical.PropRecurrenceRule)
			prop.Value = ev.RRule
			comp.Props.Set(prop)
		}

		for _, rec := range excs[ev.ID] {
			if rec.Kind != storage.Excluded {
				continue
			}
			prop := ical.NewProp(ical.PropExceptionDates)
			prop.Value = rec.Date.Format("20060102")
			prop.Params = ical.Params{"VALUE": []string{"DATE"}}
			comp.Props.Add(prop)
		}
		cal.Children = append(cal.Children, comp)

		for _, rec := range excs[ev.ID] {
			if rec.Kind != storage.Modified {
				continue
			}
			cal.Children = append(cal.Children, exportOverride(ev, rec))
		}
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encode calendar: %w", err)
	}
	return nil
}

func exportOverride(ev storage.Event, rec storage.ExceptionRecord) *ical.Component {
	comp := ical.NewEvent().Component
	comp.Props.SetText(ical.PropUID, ev.ID.String())
	comp.Props.SetDateTime(ical.PropDateTimeStamp, time.Now())
	setDateProp(comp, propRecurrenceID, rec.Date)

	comp.Props.SetText(ical.PropSummary, rec.Override.Title.OrElse(ev.Title))
	if v, ok := rec.Override.Description.Get(); ok {
		comp.Props.SetText(ical.PropDescription, v)
	}
	if v, ok := rec.Override.Location.Get(); ok {
		comp.Props.SetText(ical.PropLocation, v)
	}

	start := time.Date(rec.Date.Year(), rec.Date.Month(), rec.Date.Day(),
		ev.Start.Hour(), ev.Start.Minute(), ev.Start.Second(), 0, rec.Date.Location())
	if v, ok := rec.Override.StartTime.Get(); ok {
		start = time.Date(rec.Date.Year(), rec.Date.Month(), rec.Date.Day(),
			v.Hour(), v.Minute(), v.Second(), 0, rec.Date.Location())
	}
	duration := rec.Override.Duration.OrElse(ev.Duration())
	comp.Props.SetDateTime(ical.PropDateTimeStart, start)
	comp.Props.SetDateTime(ical.PropDateTimeEnd, start.Add(duration))
	return comp
}

func setDateProp(comp *ical.Component, name string, t time.Time) {
	prop := ical.NewProp(name)
	prop.Value = t.Format("20060102")
	prop.Params = ical.Params{"VALUE": []string{"DATE"}}
	comp.Props.Set(prop)
}

func propValue(comp *ical.Component, name string) string {
	if prop := comp.Props.Get(name); prop != nil {
		return prop.Value
	}
	return ""
}

// parseDateTime reads a DATE or DATE-TIME property, reporting whether the
// value was date-only.
func parseDateTime(prop *ical.Prop) (time.Time, bool, error) {
	return parseDateTimeValue(prop.Value, prop.Params)
}

func parseDateTimeValue(value string, params ical.Params) (time.Time, bool, error) {
	dateOnly := false
	if v := params["VALUE"]; len(v) > 0 && strings.EqualFold(v[0], "DATE") {
		dateOnly = true
	}

	if dateOnly {
		t, err := time.Parse("20060102", value)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("invalid date %q: %w", value, err)
		}
		return t, true, nil
	}
	for _, layout := range []string{"20060102T150405Z", "20060102T150405"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, false, nil
		}
	}
	if t, err := time.Parse("20060102", value); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, fmt.Errorf("invalid date-time %q", value)
}
