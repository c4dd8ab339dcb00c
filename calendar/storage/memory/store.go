// Package memory provides an in-memory EventSource, usable as a reference
// implementation and as a test double.
package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oernster/calendifier-sub002/calendar/storage"
)

type exceptionKey struct {
	eventID uuid.UUID
	date    string
}

// Store keeps events and exception records in maps guarded by a RWMutex.
type Store struct {
	mu         sync.RWMutex
	events     map[uuid.UUID]storage.Event
	exceptions map[exceptionKey]storage.ExceptionRecord
}

var _ storage.EventSource = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		events:     make(map[uuid.UUID]storage.Event),
		exceptions: make(map[exceptionKey]storage.ExceptionRecord),
	}
}

// CreateEvent stores a new event. A zero ID is assigned one.
func (s *Store) CreateEvent(ev storage.Event) (storage.Event, error) {
	if ev.End.Before(ev.Start) {
		return storage.Event{}, fmt.Errorf("event end precedes start: %w", storage.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if _, exists := s.events[ev.ID]; exists {
		return storage.Event{}, fmt.Errorf("event %s: %w", ev.ID, storage.ErrConflict)
	}
	s.events[ev.ID] = ev
	return ev, nil
}

// UpdateEvent replaces a stored event. Callers invalidate the expansion
// cache for ev.ID afterwards.
func (s *Store) UpdateEvent(ev storage.Event) error {
	if ev.End.Before(ev.Start) {
		return fmt.Errorf("event end precedes start: %w", storage.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.events[ev.ID]; !exists {
		return fmt.Errorf("event %s: %w", ev.ID, storage.ErrNotFound)
	}
	s.events[ev.ID] = ev
	return nil
}

// DeleteEvent removes an event and its exception records.
func (s *Store) DeleteEvent(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.events[id]; !exists {
		return fmt.Errorf("event %s: %w", id, storage.ErrNotFound)
	}
	delete(s.events, id)
	for k := range s.exceptions {
		if k.eventID == id {
			delete(s.exceptions, k)
		}
	}
	return nil
}

// GetEvent returns one event by id.
func (s *Store) GetEvent(id uuid.UUID) (storage.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.events[id]
	if !ok {
		return storage.Event{}, fmt.Errorf("event %s: %w", id, storage.ErrNotFound)
	}
	return ev, nil
}

// PutException stores or replaces the exception record for its
// (event, date) slot.
func (s *Store) PutException(rec storage.ExceptionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.events[rec.EventID]; !exists {
		return fmt.Errorf("event %s: %w", rec.EventID, storage.ErrNotFound)
	}
	rec.Date = storage.Date(rec.Date)
	s.exceptions[exceptionKey{rec.EventID, rec.Date.Format(time.DateOnly)}] = rec
	return nil
}

// DeleteException removes the exception record for (eventID, date), if any.
func (s *Store) DeleteException(eventID uuid.UUID, date time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := exceptionKey{eventID, storage.Date(date).Format(time.DateOnly)}
	if _, exists := s.exceptions[k]; !exists {
		return fmt.Errorf("exception %s/%s: %w", eventID, k.date, storage.ErrNotFound)
	}
	delete(s.exceptions, k)
	return nil
}

// RecurringEvents implements storage.EventSource.
func (s *Store) RecurringEvents(from, to time.Time) ([]storage.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []storage.Event
	for _, ev := range s.events {
		if ev.Recurring() && !storage.Date(ev.Start).After(to) {
			out = append(out, ev)
		}
	}
	return out, nil
}

// Exceptions implements storage.EventSource.
func (s *Store) Exceptions(eventID uuid.UUID) ([]storage.ExceptionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []storage.ExceptionRecord
	for k, rec := range s.exceptions {
		if k.eventID == eventID {
			out = append(out, rec)
		}
	}
	return out, nil
}

// EventsInRange implements storage.EventSource.
func (s *Store) EventsInRange(from, to time.Time) ([]storage.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []storage.Event
	for _, ev := range s.events {
		if ev.Recurring() {
			continue
		}
		// to is a date; events any time during that day still overlap.
		if ev.Start.Before(to.AddDate(0, 0, 1)) && !ev.End.Before(from) {
			out = append(out, ev)
		}
	}
	return out, nil
}
