// Package sqlite provides a SQLite-backed EventSource.
package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"github.com/samber/mo"
	_ "modernc.org/sqlite"

	"github.com/oernster/calendifier-sub002/calendar/storage"
)

//go:embed migrations/*.sql
var migrations embed.FS

// timeLayout preserves the wall clock and offset of stored instants. The
// fixed width keeps lexicographic SQL comparisons consistent within one
// deployment's offset.
const timeLayout = time.RFC3339

// Store is a SQLite EventSource. Use ":memory:" as the path for tests.
type Store struct {
	db *sql.DB
}

var _ storage.EventSource = (*Store)(nil)

// Open opens (creating if needed) the database at path and runs migrations.
func Open(path string) (*Store, error) {
	// _pragma applies per connection, so pooled connections all get WAL,
	// the busy timeout and foreign key enforcement.
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// CreateEvent stores a new event. A zero ID is assigned one.
func (s *Store) CreateEvent(ev storage.Event) (storage.Event, error) {
	if ev.End.Before(ev.Start) {
		return storage.Event{}, fmt.Errorf("event end precedes start: %w", storage.ErrInvalidInput)
	}
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	_, err := s.db.Exec(
		`INSERT INTO events (id, title, description, location, start_time, end_time, all_day, rrule)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID.String(), ev.Title, ev.Description, ev.Location,
		ev.Start.Format(timeLayout), ev.End.Format(timeLayout), boolToInt(ev.AllDay), ev.RRule,
	)
	if err != nil {
		return storage.Event{}, fmt.Errorf("insert event: %w", err)
	}
	return ev, nil
}

// UpdateEvent replaces a stored event. Callers invalidate the expansion
// cache for ev.ID afterwards.
func (s *Store) UpdateEvent(ev storage.Event) error {
	if ev.End.Before(ev.Start) {
		return fmt.Errorf("event end precedes start: %w", storage.ErrInvalidInput)
	}
	res, err := s.db.Exec(
		`UPDATE events SET title = ?, description = ?, location = ?, start_time = ?, end_time = ?, all_day = ?, rrule = ?
		 WHERE id = ?`,
		ev.Title, ev.Description, ev.Location,
		ev.Start.Format(timeLayout), ev.End.Format(timeLayout), boolToInt(ev.AllDay), ev.RRule,
		ev.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return requireRows(res, ev.ID)
}

// DeleteEvent removes an event; exception records cascade.
func (s *Store) DeleteEvent(id uuid.UUID) error {
	res, err := s.db.Exec(`DELETE FROM events WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return requireRows(res, id)
}

// GetEvent returns one event by id.
func (s *Store) GetEvent(id uuid.UUID) (storage.Event, error) {
	row := s.db.QueryRow(
		`SELECT id, title, description, location, start_time, end_time, all_day, rrule
		 FROM events WHERE id = ?`, id.String())
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Event{}, fmt.Errorf("event %s: %w", id, storage.ErrNotFound)
	}
	return ev, err
}

// PutException stores or replaces the exception record for its
// (event, date) slot.
func (s *Store) PutException(rec storage.ExceptionRecord) error {
	var title, description, location, startTime sql.NullString
	var duration sql.NullInt64
	if v, ok := rec.Override.Title.Get(); ok {
		title = sql.NullString{String: v, Valid: true}
	}
	if v, ok := rec.Override.Description.Get(); ok {
		description = sql.NullString{String: v, Valid: true}
	}
	if v, ok := rec.Override.Location.Get(); ok {
		location = sql.NullString{String: v, Valid: true}
	}
	if v, ok := rec.Override.StartTime.Get(); ok {
		startTime = sql.NullString{String: v.Format(timeLayout), Valid: true}
	}
	if v, ok := rec.Override.Duration.Get(); ok {
		duration = sql.NullInt64{Int64: int64(v / time.Second), Valid: true}
	}

	_, err := s.db.Exec(
		`INSERT INTO event_exceptions (event_id, date, kind, title, description, location, start_time, duration_seconds)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (event_id, date) DO UPDATE SET
		   kind = excluded.kind, title = excluded.title, description = excluded.description,
		   location = excluded.location, start_time = excluded.start_time,
		   duration_seconds = excluded.duration_seconds`,
		rec.EventID.String(), storage.Date(rec.Date).Format(time.DateOnly), int(rec.Kind),
		title, description, location, startTime, duration,
	)
	if err != nil {
		return fmt.Errorf("upsert exception: %w", err)
	}
	return nil
}

// DeleteException removes the exception record for (eventID, date), if any.
func (s *Store) DeleteException(eventID uuid.UUID, date time.Time) error {
	res, err := s.db.Exec(
		`DELETE FROM event_exceptions WHERE event_id = ? AND date = ?`,
		eventID.String(), storage.Date(date).Format(time.DateOnly))
	if err != nil {
		return fmt.Errorf("delete exception: %w", err)
	}
	return requireRows(res, eventID)
}

// RecurringEvents implements storage.EventSource.
func (s *Store) RecurringEvents(from, to time.Time) ([]storage.Event, error) {
	rows, err := s.db.Query(
		`SELECT id, title, description, location, start_time, end_time, all_day, rrule
		 FROM events WHERE rrule != '' AND start_time <= ? ORDER BY start_time`,
		to.AddDate(0, 0, 1).Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("query recurring events: %w", err)
	}
	return collectEvents(rows)
}

// Exceptions implements storage.EventSource.
func (s *Store) Exceptions(eventID uuid.UUID) ([]storage.ExceptionRecord, error) {
	rows, err := s.db.Query(
		`SELECT event_id, date, kind, title, description, location, start_time, duration_seconds
		 FROM event_exceptions WHERE event_id = ? ORDER BY date`, eventID.String())
	if err != nil {
		return nil, fmt.Errorf("query exceptions: %w", err)
	}
	defer rows.Close()

	var out []storage.ExceptionRecord
	for rows.Next() {
		var idStr, dateStr string
		var kind int
		var title, description, location, startTime sql.NullString
		var duration sql.NullInt64
		if err := rows.Scan(&idStr, &dateStr, &kind, &title, &description, &location, &startTime, &duration); err != nil {
			return nil, fmt.Errorf("scan exception: %w", err)
		}

		rec := storage.ExceptionRecord{Kind: storage.ExceptionKind(kind)}
		if rec.EventID, err = uuid.Parse(idStr); err != nil {
			return nil, fmt.Errorf("parse exception event id: %w", err)
		}
		if rec.Date, err = time.ParseInLocation(time.DateOnly, dateStr, time.Local); err != nil {
			return nil, fmt.Errorf("parse exception date: %w", err)
		}
		if title.Valid {
			rec.Override.Title = mo.Some(title.String)
		}
		if description.Valid {
			rec.Override.Description = mo.Some(description.String)
		}
		if location.Valid {
			rec.Override.Location = mo.Some(location.String)
		}
		if startTime.Valid {
			t, err := time.Parse(timeLayout, startTime.String)
			if err != nil {
				return nil, fmt.Errorf("parse exception start: %w", err)
			}
			rec.Override.StartTime = mo.Some(t)
		}
		if duration.Valid {
			rec.Override.Duration = mo.Some(time.Duration(duration.Int64) * time.Second)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// EventsInRange implements storage.EventSource.
func (s *Store) EventsInRange(from, to time.Time) ([]storage.Event, error) {
	rows, err := s.db.Query(
		`SELECT id, title, description, location, start_time, end_time, all_day, rrule
		 FROM events WHERE rrule = '' AND start_time < ? AND end_time >= ? ORDER BY start_time`,
		to.AddDate(0, 0, 1).Format(timeLayout), from.Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("query events in range: %w", err)
	}
	return collectEvents(rows)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (storage.Event, error) {
	var ev storage.Event
	var idStr, startStr, endStr string
	var allDay int
	err := row.Scan(&idStr, &ev.Title, &ev.Description, &ev.Location, &startStr, &endStr, &allDay, &ev.RRule)
	if err != nil {
		return storage.Event{}, err
	}
	if ev.ID, err = uuid.Parse(idStr); err != nil {
		return storage.Event{}, fmt.Errorf("parse event id: %w", err)
	}
	if ev.Start, err = time.Parse(timeLayout, startStr); err != nil {
		return storage.Event{}, fmt.Errorf("parse event start: %w", err)
	}
	if ev.End, err = time.Parse(timeLayout, endStr); err != nil {
		return storage.Event{}, fmt.Errorf("parse event end: %w", err)
	}
	ev.AllDay = allDay != 0
	return ev, nil
}

func collectEvents(rows *sql.Rows) ([]storage.Event, error) {
	defer rows.Close()
	var out []storage.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func requireRows(res sql.Result, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("record %s: %w", id, storage.ErrNotFound)
	}
	return nil
}
