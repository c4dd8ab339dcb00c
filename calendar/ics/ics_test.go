package ics

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oernster/calendifier-sub002/calendar/recurrence"
	"github.com/oernster/calendifier-sub002/calendar/storage"
)

// iCalendar requires CRLF line endings.
func icalDoc(lines ...string) string {
	return strings.Join(lines, "\r\n") + "\r\n"
}

func TestImport(t *testing.T) {
	doc := icalDoc(
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//Test//EN",
		"BEGIN:VEVENT",
		"UID:standup",
		"DTSTAMP:20250101T000000Z",
		"DTSTART:20250107T090000Z",
		"DTEND:20250107T091500Z",
		"SUMMARY:Standup",
		"LOCATION:Room 1",
		"RRULE:FREQ=WEEKLY;BYDAY=TU",
		"EXDATE;VALUE=DATE:20250211",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:standup",
		"DTSTAMP:20250101T000000Z",
		"RECURRENCE-ID;VALUE=DATE:20250218",
		"DTSTART:20250218T140000Z",
		"DTEND:20250218T143000Z",
		"SUMMARY:Retro",
		"END:VEVENT",
		"END:VCALENDAR",
	)

	events, excs, err := Import(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Len(t, excs, 2)

	ev := events[0]
	assert.NotEqual(t, uuid.Nil, ev.ID, "non-UUID UIDs get a minted id")
	assert.Equal(t, "Standup", ev.Title)
	assert.Equal(t, "Room 1", ev.Location)
	assert.Equal(t, "FREQ=WEEKLY;BYDAY=TU", ev.RRule)
	assert.False(t, ev.AllDay)
	assert.True(t, ev.Start.Equal(time.Date(2025, 1, 7, 9, 0, 0, 0, time.UTC)))
	assert.Equal(t, 15*time.Minute, ev.Duration())

	excluded := excs[0]
	assert.Equal(t, ev.ID, excluded.EventID, "exceptions resolve to their parent's id")
	assert.Equal(t, storage.Excluded, excluded.Kind)
	assert.Equal(t, "2025-02-11", excluded.Date.Format(time.DateOnly))

	modified := excs[1]
	assert.Equal(t, ev.ID, modified.EventID)
	assert.Equal(t, storage.Modified, modified.Kind)
	assert.Equal(t, "2025-02-18", modified.Date.Format(time.DateOnly))
	assert.Equal(t, mo.Some("Retro"), modified.Override.Title)
	assert.Equal(t, mo.Some(30*time.Minute), modified.Override.Duration)
	start, ok := modified.Override.StartTime.Get()
	require.True(t, ok)
	assert.Equal(t, 14, start.Hour())
}

func TestImport_AllDay(t *testing.T) {
	doc := icalDoc(
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//Test//EN",
		"BEGIN:VEVENT",
		"UID:conf",
		"DTSTAMP:20250101T000000Z",
		"DTSTART;VALUE=DATE:20250214",
		"DTEND;VALUE=DATE:20250215",
		"SUMMARY:Conference",
		"END:VEVENT",
		"END:VCALENDAR",
	)

	events, _, err := Import(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	assert.True(t, ev.AllDay)
	assert.Equal(t, "2025-02-14", ev.Start.Format(time.DateOnly))
	// DTEND of an all-day event is exclusive; a one-day event ends on its
	// own date.
	assert.Equal(t, "2025-02-14", ev.End.Format(time.DateOnly))
}

func TestImport_MalformedRule(t *testing.T) {
	doc := icalDoc(
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//Test//EN",
		"BEGIN:VEVENT",
		"UID:bad",
		"DTSTAMP:20250101T000000Z",
		"DTSTART:20250107T090000Z",
		"SUMMARY:Broken",
		"RRULE:FREQ=SOMETIMES",
		"END:VEVENT",
		"END:VCALENDAR",
	)

	_, _, err := Import(strings.NewReader(doc))
	assert.ErrorIs(t, err, recurrence.ErrMalformedRule,
		"malformed rules fail at import, not during month builds")
}

func TestImport_MissingStart(t *testing.T) {
	doc := icalDoc(
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//Test//EN",
		"BEGIN:VEVENT",
		"UID:nostart",
		"DTSTAMP:20250101T000000Z",
		"SUMMARY:No start",
		"END:VEVENT",
		"END:VCALENDAR",
	)

	_, _, err := Import(strings.NewReader(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DTSTART")
}

func TestImport_PreservesUUIDs(t *testing.T) {
	id := uuid.New()
	doc := icalDoc(
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//Test//EN",
		"BEGIN:VEVENT",
		"UID:"+id.String(),
		"DTSTAMP:20250101T000000Z",
		"DTSTART:20250214T190000Z",
		"SUMMARY:Dinner",
		"END:VEVENT",
		"END:VCALENDAR",
	)

	events, _, err := Import(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, id, events[0].ID)
}

func TestExportImportRoundTrip(t *testing.T) {
	weekly := storage.Event{
		ID:          uuid.New(),
		Title:       "Standup",
		Description: "Daily sync",
		Location:    "Room 1",
		Start:       time.Date(2025, 1, 7, 9, 0, 0, 0, time.UTC),
		End:         time.Date(2025, 1, 7, 9, 15, 0, 0, time.UTC),
		RRule:       "FREQ=WEEKLY;BYDAY=TU",
	}
	allDay := storage.Event{
		ID:     uuid.New(),
		Title:  "Conference",
		Start:  time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC),
		End:    time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC),
		AllDay: true,
	}
	excs := map[uuid.UUID][]storage.ExceptionRecord{
		weekly.ID: {
			{
				EventID: weekly.ID,
				Date:    time.Date(2025, 2, 11, 0, 0, 0, 0, time.UTC),
				Kind:    storage.Excluded,
			},
			{
				EventID:  weekly.ID,
				Date:     time.Date(2025, 2, 18, 0, 0, 0, 0, time.UTC),
				Kind:     storage.Modified,
				Override: storage.Override{Title: mo.Some("Retro")},
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, []storage.Event{weekly, allDay}, excs))

	events, gotExcs, err := Import(&buf)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Len(t, gotExcs, 2)

	byID := map[uuid.UUID]storage.Event{}
	for _, ev := range events {
		byID[ev.ID] = ev
	}

	gotWeekly, ok := byID[weekly.ID]
	require.True(t, ok, "UUID UIDs survive the round trip")
	assert.Equal(t, weekly.Title, gotWeekly.Title)
	assert.Equal(t, weekly.Description, gotWeekly.Description)
	assert.Equal(t, weekly.RRule, gotWeekly.RRule)
	assert.True(t, gotWeekly.Start.Equal(weekly.Start))
	assert.True(t, gotWeekly.End.Equal(weekly.End))

	gotAllDay, ok := byID[allDay.ID]
	require.True(t, ok)
	assert.True(t, gotAllDay.AllDay)
	assert.Equal(t, "2025-02-14", gotAllDay.Start.Format(time.DateOnly))
	assert.Equal(t, "2025-02-14", gotAllDay.End.Format(time.DateOnly))

	kinds := map[storage.ExceptionKind]storage.ExceptionRecord{}
	for _, rec := range gotExcs {
		assert.Equal(t, weekly.ID, rec.EventID)
		kinds[rec.Kind] = rec
	}
	assert.Equal(t, "2025-02-11", kinds[storage.Excluded].Date.Format(time.DateOnly))
	modified := kinds[storage.Modified]
	assert.Equal(t, "2025-02-18", modified.Date.Format(time.DateOnly))
	assert.Equal(t, mo.Some("Retro"), modified.Override.Title)
}
