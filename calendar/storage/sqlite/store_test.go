package sqlite

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oernster/calendifier-sub002/calendar/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleEvent(title string, start time.Time, rrule string) storage.Event {
	return storage.Event{
		Title: title,
		Start: start,
		End:   start.Add(time.Hour),
		RRule: rrule,
	}
}

func TestEventRoundTrip(t *testing.T) {
	s := openTestStore(t)

	created, err := s.CreateEvent(storage.Event{
		Title:       "Standup",
		Description: "Daily sync",
		Location:    "Room 1",
		Start:       time.Date(2025, 1, 7, 9, 0, 0, 0, time.UTC),
		End:         time.Date(2025, 1, 7, 9, 15, 0, 0, time.UTC),
		RRule:       "FREQ=WEEKLY;BYDAY=TU",
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)

	got, err := s.GetEvent(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Title, got.Title)
	assert.Equal(t, created.Description, got.Description)
	assert.Equal(t, created.Location, got.Location)
	assert.Equal(t, created.RRule, got.RRule)
	assert.True(t, created.Start.Equal(got.Start))
	assert.True(t, created.End.Equal(got.End))
	assert.False(t, got.AllDay)

	_, err = s.GetEvent(uuid.New())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCreateEvent_Validation(t *testing.T) {
	s := openTestStore(t)
	ev := sampleEvent("Backwards", time.Date(2025, 1, 7, 9, 0, 0, 0, time.UTC), "")
	ev.End = ev.Start.Add(-time.Hour)
	_, err := s.CreateEvent(ev)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestUpdateDeleteEvent(t *testing.T) {
	s := openTestStore(t)
	ev, err := s.CreateEvent(sampleEvent("Standup",
		time.Date(2025, 1, 7, 9, 0, 0, 0, time.UTC), ""))
	require.NoError(t, err)

	ev.Title = "Standup (renamed)"
	ev.AllDay = true
	require.NoError(t, s.UpdateEvent(ev))
	got, err := s.GetEvent(ev.ID)
	require.NoError(t, err)
	assert.Equal(t, "Standup (renamed)", got.Title)
	assert.True(t, got.AllDay)

	require.NoError(t, s.DeleteEvent(ev.ID))
	_, err = s.GetEvent(ev.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, s.DeleteEvent(ev.ID), storage.ErrNotFound)
	assert.ErrorIs(t, s.UpdateEvent(ev), storage.ErrNotFound)
}

func TestExceptionRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ev, err := s.CreateEvent(sampleEvent("Standup",
		time.Date(2025, 1, 7, 9, 0, 0, 0, time.UTC), "FREQ=WEEKLY;BYDAY=TU"))
	require.NoError(t, err)

	rec := storage.ExceptionRecord{
		EventID: ev.ID,
		Date:    time.Date(2025, 2, 11, 0, 0, 0, 0, time.UTC),
		Kind:    storage.Modified,
		Override: storage.Override{
			Title:     mo.Some("Retro"),
			StartTime: mo.Some(time.Date(2025, 2, 11, 14, 0, 0, 0, time.UTC)),
			Duration:  mo.Some(30 * time.Minute),
		},
	}
	require.NoError(t, s.PutException(rec))

	got, err := s.Exceptions(ev.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ev.ID, got[0].EventID)
	assert.Equal(t, storage.Modified, got[0].Kind)
	assert.Equal(t, "2025-02-11", got[0].Date.Format(time.DateOnly))
	assert.Equal(t, mo.Some("Retro"), got[0].Override.Title)
	assert.True(t, got[0].Override.Description.IsAbsent())
	assert.Equal(t, mo.Some(30*time.Minute), got[0].Override.Duration)

	start, ok := got[0].Override.StartTime.Get()
	require.True(t, ok)
	assert.True(t, start.Equal(time.Date(2025, 2, 11, 14, 0, 0, 0, time.UTC)))
}

func TestPutException_Upsert(t *testing.T) {
	s := openTestStore(t)
	ev, err := s.CreateEvent(sampleEvent("Standup",
		time.Date(2025, 1, 7, 9, 0, 0, 0, time.UTC), "FREQ=WEEKLY;BYDAY=TU"))
	require.NoError(t, err)

	rec := storage.ExceptionRecord{
		EventID: ev.ID,
		Date:    time.Date(2025, 2, 11, 0, 0, 0, 0, time.UTC),
		Kind:    storage.Excluded,
	}
	require.NoError(t, s.PutException(rec))

	rec.Kind = storage.Modified
	rec.Override.Title = mo.Some("Retro")
	require.NoError(t, s.PutException(rec))

	got, err := s.Exceptions(ev.ID)
	require.NoError(t, err)
	require.Len(t, got, 1, "same (event, date) slot is replaced")
	assert.Equal(t, storage.Modified, got[0].Kind)
}

func TestPutException_UnknownEvent(t *testing.T) {
	s := openTestStore(t)
	err := s.PutException(storage.ExceptionRecord{
		EventID: uuid.New(),
		Date:    time.Date(2025, 2, 11, 0, 0, 0, 0, time.UTC),
		Kind:    storage.Excluded,
	})
	assert.Error(t, err, "foreign key enforcement rejects orphan records")
}

func TestDeleteEvent_CascadesExceptions(t *testing.T) {
	s := openTestStore(t)
	ev, err := s.CreateEvent(sampleEvent("Standup",
		time.Date(2025, 1, 7, 9, 0, 0, 0, time.UTC), "FREQ=WEEKLY;BYDAY=TU"))
	require.NoError(t, err)
	require.NoError(t, s.PutException(storage.ExceptionRecord{
		EventID: ev.ID,
		Date:    time.Date(2025, 2, 11, 0, 0, 0, 0, time.UTC),
		Kind:    storage.Excluded,
	}))

	require.NoError(t, s.DeleteEvent(ev.ID))
	got, err := s.Exceptions(ev.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRecurringEvents(t *testing.T) {
	s := openTestStore(t)
	weekly, err := s.CreateEvent(sampleEvent("Standup",
		time.Date(2025, 1, 7, 9, 0, 0, 0, time.UTC), "FREQ=WEEKLY;BYDAY=TU"))
	require.NoError(t, err)
	_, err = s.CreateEvent(sampleEvent("Dentist",
		time.Date(2025, 2, 14, 14, 0, 0, 0, time.UTC), ""))
	require.NoError(t, err)
	_, err = s.CreateEvent(sampleEvent("Future series",
		time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC), "FREQ=DAILY;COUNT=5"))
	require.NoError(t, err)

	got, err := s.RecurringEvents(
		time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, weekly.ID, got[0].ID)
}

func TestEventsInRange(t *testing.T) {
	s := openTestStore(t)
	dinner, err := s.CreateEvent(sampleEvent("Dinner",
		time.Date(2025, 2, 14, 19, 0, 0, 0, time.UTC), ""))
	require.NoError(t, err)
	_, err = s.CreateEvent(sampleEvent("March thing",
		time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), ""))
	require.NoError(t, err)
	_, err = s.CreateEvent(sampleEvent("Standup",
		time.Date(2025, 1, 7, 9, 0, 0, 0, time.UTC), "FREQ=WEEKLY;BYDAY=TU"))
	require.NoError(t, err)

	got, err := s.EventsInRange(
		time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, dinner.ID, got[0].ID)

	// An evening event on the range's last day still overlaps.
	got, err = s.EventsInRange(
		time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
