// Package showlog provides the append-only show log: the audit trail of
// every control action taken during a show.
//
// Entries are never edited or deleted. Each entry carries a per-show
// sequence number assigned at insert time, so the order of events is
// reconstructable even if wall clocks skew between operator machines.
package showlog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EventType identifies what a log entry records.
type EventType string

const (
	EventShowStart  EventType = "show_start"
	EventShowHold   EventType = "show_hold"
	EventShowResume EventType = "show_resume"
	EventShowEnd    EventType = "show_end"
	EventCueGo      EventType = "cue_go"
	EventCueStandby EventType = "cue_standby"
	EventCueSkip    EventType = "cue_skip"
	EventNote       EventType = "note"
)

// Entry is a single show log record.
type Entry struct {
	ID        string    `json:"id"`
	ShowID    string    `json:"show_id"`
	Seq       int64     `json:"seq"`
	EventType EventType `json:"event_type"`
	CueID     *string   `json:"cue_id,omitempty"`
	Notes     *string   `json:"notes,omitempty"`
	Actor     string    `json:"actor"`
	CreatedAt time.Time `json:"created_at"`
}

// Filter controls which log entries to return.
type Filter struct {
	EventType EventType // optional: filter by event type
	CueID     string    // optional: filter by cue
	Limit     int       // default 50, max 200
	Offset    int       // pagination offset
}

// ListResult contains the paginated show log results.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Appender defines the interface for show log operations.
// Append-only: there is no update or delete.
type Appender interface {
	Append(ctx context.Context, entry *Entry) error
	List(ctx context.Context, showID string, filter Filter) (*ListResult, error)
}

// SQLiteAppender stores show log entries in SQLite.
type SQLiteAppender struct {
	db *sql.DB
}

// NewSQLiteAppender creates a new show log appender.
func NewSQLiteAppender(db *sql.DB) *SQLiteAppender {
	return &SQLiteAppender{db: db}
}

// Append inserts a new log entry, assigning the next per-show sequence
// number atomically. The ID and CreatedAt are generated if empty.
func (a *SQLiteAppender) Append(ctx context.Context, entry *Entry) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning log append: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	if err := AppendTx(ctx, tx, entry); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing log append: %w", err)
	}
	return nil
}

// AppendTx inserts a log entry inside an existing transaction. This lets the
// show repository append the log record in the same transaction as the state
// change it documents, so a crash can never separate the two.
//
// The sequence number is claimed with MAX(seq)+1 scoped to the show. SQLite's
// single-writer model makes this race-free.
func AppendTx(ctx context.Context, tx *sql.Tx, entry *Entry) error {
	if entry.ID == "" {
		entry.ID = "log-" + uuid.NewString()[:8]
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	row := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM show_logs WHERE show_id = ?`,
		entry.ShowID,
	)
	if err := row.Scan(&entry.Seq); err != nil {
		return fmt.Errorf("claiming log sequence: %w", err)
	}

	var cueID, notes any
	if entry.CueID != nil {
		cueID = *entry.CueID
	}
	if entry.Notes != nil {
		notes = *entry.Notes
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO show_logs (id, show_id, seq, event_type, cue_id, notes, actor, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.ShowID, entry.Seq, string(entry.EventType),
		cueID, notes, entry.Actor,
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting log entry: %w", err)
	}

	return nil
}

// List returns log entries for a show matching the filter, ordered by
// sequence number ascending.
func (a *SQLiteAppender) List(ctx context.Context, showID string, filter Filter) (*ListResult, error) {
	// Clamp limit.
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 200 { //nolint:mnd // max page size for show log queries
		filter.Limit = 200
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	// Build WHERE clause dynamically.
	conditions := []string{"show_id = ?"}
	args := []any{showID}

	if filter.EventType != "" {
		conditions = append(conditions, "event_type = ?")
		args = append(args, string(filter.EventType))
	}
	if filter.CueID != "" {
		conditions = append(conditions, "cue_id = ?")
		args = append(args, filter.CueID)
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	// Get total count.
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM show_logs %s", where) //nolint:gosec // WHERE built from parameterised conditions, not user input
	var total int
	if err := a.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting log entries: %w", err)
	}

	// Get paginated results.
	query := fmt.Sprintf( //nolint:gosec // WHERE built from parameterised conditions, not user input
		"SELECT id, show_id, seq, event_type, cue_id, notes, actor, created_at FROM show_logs %s ORDER BY seq LIMIT ? OFFSET ?",
		where,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying log entries: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only rows close

	entries := make([]Entry, 0, filter.Limit)
	for rows.Next() {
		var (
			e         Entry
			eventType string
			cueID     sql.NullString
			notes     sql.NullString
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.ShowID, &e.Seq, &eventType, &cueID, &notes, &e.Actor, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning log entry: %w", err)
		}
		e.EventType = EventType(eventType)
		if cueID.Valid {
			e.CueID = &cueID.String
		}
		if notes.Valid {
			e.Notes = &notes.String
		}
		ts, parseErr := time.Parse(time.RFC3339Nano, createdAt)
		if parseErr != nil {
			return nil, fmt.Errorf("parsing log timestamp: %w", parseErr)
		}
		e.CreatedAt = ts
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating log entries: %w", err)
	}

	return &ListResult{
		Entries: entries,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}
