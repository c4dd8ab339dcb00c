package memory

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oernster/calendifier-sub002/calendar/storage"
)

func sampleEvent(title string, start time.Time, rrule string) storage.Event {
	return storage.Event{
		Title: title,
		Start: start,
		End:   start.Add(time.Hour),
		RRule: rrule,
	}
}

func TestCreateGetEvent(t *testing.T) {
	s := New()
	created, err := s.CreateEvent(sampleEvent("Standup",
		time.Date(2025, 1, 7, 9, 0, 0, 0, time.UTC), "FREQ=WEEKLY;BYDAY=TU"))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID, "a zero id is assigned")

	got, err := s.GetEvent(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	_, err = s.GetEvent(uuid.New())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCreateEvent_Validation(t *testing.T) {
	s := New()
	ev := sampleEvent("Backwards", time.Date(2025, 1, 7, 9, 0, 0, 0, time.UTC), "")
	ev.End = ev.Start.Add(-time.Hour)
	_, err := s.CreateEvent(ev)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	ok, err := s.CreateEvent(sampleEvent("A", time.Date(2025, 1, 7, 9, 0, 0, 0, time.UTC), ""))
	require.NoError(t, err)
	_, err = s.CreateEvent(ok)
	assert.ErrorIs(t, err, storage.ErrConflict)
}

func TestUpdateDeleteEvent(t *testing.T) {
	s := New()
	ev, err := s.CreateEvent(sampleEvent("Standup",
		time.Date(2025, 1, 7, 9, 0, 0, 0, time.UTC), ""))
	require.NoError(t, err)

	ev.Title = "Standup (renamed)"
	require.NoError(t, s.UpdateEvent(ev))
	got, err := s.GetEvent(ev.ID)
	require.NoError(t, err)
	assert.Equal(t, "Standup (renamed)", got.Title)

	require.NoError(t, s.DeleteEvent(ev.ID))
	_, err = s.GetEvent(ev.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, s.DeleteEvent(ev.ID), storage.ErrNotFound)
	assert.ErrorIs(t, s.UpdateEvent(ev), storage.ErrNotFound)
}

func TestExceptions(t *testing.T) {
	s := New()
	ev, err := s.CreateEvent(sampleEvent("Standup",
		time.Date(2025, 1, 7, 9, 0, 0, 0, time.UTC), "FREQ=WEEKLY;BYDAY=TU"))
	require.NoError(t, err)

	rec := storage.ExceptionRecord{
		EventID: ev.ID,
		// A non-midnight timestamp normalizes to its date slot.
		Date: time.Date(2025, 2, 11, 15, 30, 0, 0, time.UTC),
		Kind: storage.Excluded,
	}
	require.NoError(t, s.PutException(rec))

	got, err := s.Exceptions(ev.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, time.Date(2025, 2, 11, 0, 0, 0, 0, time.UTC), got[0].Date)

	// Same slot, new kind: the record is replaced, not duplicated.
	rec.Kind = storage.Modified
	rec.Override = storage.Override{Title: mo.Some("Retro")}
	require.NoError(t, s.PutException(rec))
	got, err = s.Exceptions(ev.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, storage.Modified, got[0].Kind)

	require.NoError(t, s.DeleteException(ev.ID, rec.Date))
	got, err = s.Exceptions(ev.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.ErrorIs(t, s.DeleteException(ev.ID, rec.Date), storage.ErrNotFound)

	orphan := storage.ExceptionRecord{EventID: uuid.New(), Date: rec.Date}
	assert.ErrorIs(t, s.PutException(orphan), storage.ErrNotFound)
}

func TestDeleteEvent_RemovesExceptions(t *testing.T) {
	s := New()
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
	s := New()
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
	require.Len(t, got, 1, "series starting after the range are not returned")
	assert.Equal(t, weekly.ID, got[0].ID)
}

func TestEventsInRange(t *testing.T) {
	s := New()
	feb14, err := s.CreateEvent(sampleEvent("Dinner",
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
	require.Len(t, got, 1, "recurring and out-of-range events are excluded")
	assert.Equal(t, feb14.ID, got[0].ID)

	// An event late on the range's last day still overlaps.
	got, err = s.EventsInRange(
		time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
