// Package storage is the append-only audit trail. The director is its only
// writer; everything else reads through the paginated API.
package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// Event is one audit record, ordered by id descending for retrieval.
type Event struct {
	ID        int64  `json:"-"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Details   string `json:"details"`
}

// Pagination describes a page of the event log. Pages are 1-indexed.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	TotalCount int  `json:"total_count"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// PersistenceError marks a failed event-log write. It is logged by callers
// and never blocks the decision or command path.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// EventStore persists events in a single SQLite table.
type EventStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewEventStore opens (or creates) the store at path. Import a database/sql
// driver registered as "sqlite" (modernc.org/sqlite) in the main package.
func NewEventStore(path string) (*EventStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &PersistenceError{Op: "open", Err: err}
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TEXT NOT NULL,
			event_type TEXT NOT NULL,
			details TEXT NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, &PersistenceError{Op: "init schema", Err: err}
	}
	return &EventStore{db: db, now: time.Now}, nil
}

// Append adds one event. Order of ids is the order of appends.
func (s *EventStore) Append(eventType, details string) error {
	_, err := s.db.Exec(
		"INSERT INTO events (timestamp, event_type, details) VALUES (?, ?, ?)",
		s.now().UTC().Format(time.RFC3339Nano), eventType, details,
	)
	if err != nil {
		return &PersistenceError{Op: "append", Err: err}
	}
	return nil
}

// List returns one page of events, newest first. page is clamped to >= 1;
// limit <= 0 falls back to 100.
func (s *EventStore) List(page, limit int) ([]Event, Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 100
	}
	offset := (page - 1) * limit

	var total int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM events").Scan(&total); err != nil {
		return nil, Pagination{}, &PersistenceError{Op: "count", Err: err}
	}

	rows, err := s.db.Query(
		"SELECT id, timestamp, event_type, details FROM events ORDER BY id DESC LIMIT ? OFFSET ?",
		limit, offset,
	)
	if err != nil {
		return nil, Pagination{}, &PersistenceError{Op: "list", Err: err}
	}
	defer rows.Close()

	events := make([]Event, 0, limit)
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Type, &e.Details); err != nil {
			return nil, Pagination{}, &PersistenceError{Op: "scan", Err: err}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, Pagination{}, &PersistenceError{Op: "iterate", Err: err}
	}

	totalPages := (total + limit - 1) / limit
	p := Pagination{
		Page:       page,
		Limit:      limit,
		TotalCount: total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
	return events, p, nil
}

// Count returns the number of stored events, used by the health probe.
func (s *EventStore) Count() (int, error) {
	var total int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM events").Scan(&total); err != nil {
		return 0, &PersistenceError{Op: "count", Err: err}
	}
	return total, nil
}

func (s *EventStore) Close() error {
	return s.db.Close()
}
