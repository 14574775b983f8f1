package show

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/showcall/showcall-core/internal/showlog"
)

// Repository defines the interface for show persistence.
// This abstraction allows different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
//
// The Apply* methods write a state change and its show log entry in a single
// transaction: a command's effects and its audit record are durably committed
// together or not at all.
type Repository interface {
	// Show operations. Shows are never deleted.
	CreateShow(ctx context.Context, s *Show) error
	GetShow(ctx context.Context, id string) (*Show, error)
	ListShows(ctx context.Context) ([]Show, error)

	// Cue operations.
	CreateCue(ctx context.Context, c *Cue) error
	GetCue(ctx context.Context, id string) (*Cue, error)
	ListCues(ctx context.Context, showID string) ([]Cue, error)
	UpdateCue(ctx context.Context, c *Cue) error
	DeleteCue(ctx context.Context, id string) error

	// Command writes: state change plus log entry, atomically.
	ApplyShowChange(ctx context.Context, s *Show, entry *showlog.Entry) error
	ApplyCueChange(ctx context.Context, c *Cue, s *Show, entry *showlog.Entry) error

	// ReorderCues reassigns sort orders for the given full cue ordering in a
	// single transaction. A partial reorder is never observable.
	ReorderCues(ctx context.Context, showID string, orderedIDs []string) error

	// AppendLog appends a log entry with no accompanying state change (notes).
	AppendLog(ctx context.Context, entry *showlog.Entry) error
}

// Column lists for SELECT queries.
const (
	showColumns = `id, name, status, current_cue_id, started_at, held_at, held_reason,
			ended_at, created_at, updated_at`

	cueColumns = `id, show_id, number, sort_order, type, description, trigger_type,
			trigger_value, duration_seconds, department, assigned_to, dependencies,
			is_standby, status, standby_at, executed_at, notes, created_at, updated_at`
)

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// CreateShow inserts a new show.
func (r *SQLiteRepository) CreateShow(ctx context.Context, s *Show) error {
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	if s.Status == "" {
		s.Status = StatusNotStarted
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO shows (id, name, status, current_cue_id, started_at, held_at,
			held_reason, ended_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Name, string(s.Status),
		nullString(s.CurrentCueID), nullTime(s.StartedAt), nullTime(s.HeldAt),
		nullString(s.HeldReason), nullTime(s.EndedAt),
		formatTime(s.CreatedAt), formatTime(s.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrShowExists
		}
		return fmt.Errorf("inserting show: %w", err)
	}
	return nil
}

// GetShow retrieves a show by its unique identifier.
func (r *SQLiteRepository) GetShow(ctx context.Context, id string) (*Show, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+showColumns+` FROM shows WHERE id = ?`, id)
	s, err := scanShow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShowNotFound
		}
		return nil, fmt.Errorf("querying show by id: %w", err)
	}
	return s, nil
}

// ListShows retrieves all shows, most recently created first.
func (r *SQLiteRepository) ListShows(ctx context.Context) ([]Show, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+showColumns+` FROM shows ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying shows: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only rows close

	var shows []Show
	for rows.Next() {
		s, scanErr := scanShow(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning show: %w", scanErr)
		}
		shows = append(shows, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating shows: %w", err)
	}
	return shows, nil
}

// CreateCue inserts a new cue.
func (r *SQLiteRepository) CreateCue(ctx context.Context, c *Cue) error {
	depsJSON, err := json.Marshal(dependenciesOrEmpty(c.Dependencies))
	if err != nil {
		return fmt.Errorf("marshalling dependencies: %w", err)
	}

	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	if c.Status == "" {
		c.Status = CuePending
	}
	if c.TriggerType == "" {
		c.TriggerType = TriggerManual
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO cues (id, show_id, number, sort_order, type, description,
			trigger_type, trigger_value, duration_seconds, department, assigned_to,
			dependencies, is_standby, status, standby_at, executed_at, notes,
			created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.ShowID, c.Number, c.SortOrder, string(c.Type), c.Description,
		string(c.TriggerType), nullString(c.TriggerValue), nullInt(c.DurationSeconds),
		c.Department, nullString(c.AssignedTo), string(depsJSON),
		boolToInt(c.IsStandby), string(c.Status),
		nullTime(c.StandbyAt), nullTime(c.ExecutedAt), nullString(c.Notes),
		formatTime(c.CreatedAt), formatTime(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting cue: %w", err)
	}
	return nil
}

// GetCue retrieves a cue by its unique identifier.
func (r *SQLiteRepository) GetCue(ctx context.Context, id string) (*Cue, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+cueColumns+` FROM cues WHERE id = ?`, id)
	c, err := scanCue(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCueNotFound
		}
		return nil, fmt.Errorf("querying cue by id: %w", err)
	}
	return c, nil
}

// ListCues retrieves all cues for a show in running order.
func (r *SQLiteRepository) ListCues(ctx context.Context, showID string) ([]Cue, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+cueColumns+` FROM cues WHERE show_id = ? ORDER BY sort_order`, showID)
	if err != nil {
		return nil, fmt.Errorf("querying cues: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only rows close

	var cues []Cue
	for rows.Next() {
		c, scanErr := scanCue(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning cue: %w", scanErr)
		}
		cues = append(cues, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cues: %w", err)
	}
	return cues, nil
}

// UpdateCue updates a cue's editable fields (not its status or sort order;
// those change through ApplyCueChange and ReorderCues).
func (r *SQLiteRepository) UpdateCue(ctx context.Context, c *Cue) error {
	depsJSON, err := json.Marshal(dependenciesOrEmpty(c.Dependencies))
	if err != nil {
		return fmt.Errorf("marshalling dependencies: %w", err)
	}

	c.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx,
		`UPDATE cues SET number = ?, type = ?, description = ?, trigger_type = ?,
			trigger_value = ?, duration_seconds = ?, department = ?, assigned_to = ?,
			dependencies = ?, is_standby = ?, notes = ?, updated_at = ?
		 WHERE id = ?`,
		c.Number, string(c.Type), c.Description, string(c.TriggerType),
		nullString(c.TriggerValue), nullInt(c.DurationSeconds), c.Department,
		nullString(c.AssignedTo), string(depsJSON), boolToInt(c.IsStandby),
		nullString(c.Notes), formatTime(c.UpdatedAt), c.ID,
	)
	if err != nil {
		return fmt.Errorf("updating cue: %w", err)
	}
	return requireOneRow(result, ErrCueNotFound)
}

// DeleteCue removes a cue. Only valid during show preparation; the sequencer
// enforces the state checks before calling this.
func (r *SQLiteRepository) DeleteCue(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM cues WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting cue: %w", err)
	}
	return requireOneRow(result, ErrCueNotFound)
}

// ApplyShowChange updates the show's lifecycle fields and appends the log
// entry in one transaction.
func (r *SQLiteRepository) ApplyShowChange(ctx context.Context, s *Show, entry *showlog.Entry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning show change: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	s.UpdatedAt = time.Now().UTC()
	result, err := tx.ExecContext(ctx,
		`UPDATE shows SET status = ?, current_cue_id = ?, started_at = ?,
			held_at = ?, held_reason = ?, ended_at = ?, updated_at = ?
		 WHERE id = ?`,
		string(s.Status), nullString(s.CurrentCueID), nullTime(s.StartedAt),
		nullTime(s.HeldAt), nullString(s.HeldReason), nullTime(s.EndedAt),
		formatTime(s.UpdatedAt), s.ID,
	)
	if err != nil {
		return fmt.Errorf("updating show: %w", err)
	}
	if err := requireOneRow(result, ErrShowNotFound); err != nil {
		return err
	}

	if entry != nil {
		if err := showlog.AppendTx(ctx, tx, entry); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing show change: %w", err)
	}
	return nil
}

// ApplyCueChange updates a cue's status fields, optionally the show row
// (current_cue_id after a Go), and appends the log entry, all in one
// transaction.
func (r *SQLiteRepository) ApplyCueChange(ctx context.Context, c *Cue, s *Show, entry *showlog.Entry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning cue change: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	c.UpdatedAt = time.Now().UTC()
	result, err := tx.ExecContext(ctx,
		`UPDATE cues SET status = ?, standby_at = ?, executed_at = ?, updated_at = ?
		 WHERE id = ?`,
		string(c.Status), nullTime(c.StandbyAt), nullTime(c.ExecutedAt),
		formatTime(c.UpdatedAt), c.ID,
	)
	if err != nil {
		return fmt.Errorf("updating cue status: %w", err)
	}
	if err := requireOneRow(result, ErrCueNotFound); err != nil {
		return err
	}

	if s != nil {
		s.UpdatedAt = c.UpdatedAt
		showResult, showErr := tx.ExecContext(ctx,
			`UPDATE shows SET current_cue_id = ?, updated_at = ? WHERE id = ?`,
			nullString(s.CurrentCueID), formatTime(s.UpdatedAt), s.ID,
		)
		if showErr != nil {
			return fmt.Errorf("updating show current cue: %w", showErr)
		}
		if err := requireOneRow(showResult, ErrShowNotFound); err != nil {
			return err
		}
	}

	if entry != nil {
		if err := showlog.AppendTx(ctx, tx, entry); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing cue change: %w", err)
	}
	return nil
}

// ReorderCues reassigns sort_order = index+1 for each cue in orderedIDs.
//
// The UNIQUE(show_id, sort_order) constraint is enforced immediately in
// SQLite, so the reassignment runs in two passes: park every cue on a
// negative sort order, then flip the sign. Both passes share one
// transaction, so readers only ever see the old or the new ordering.
func (r *SQLiteRepository) ReorderCues(ctx context.Context, showID string, orderedIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning reorder: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	now := formatTime(time.Now().UTC())

	for i, id := range orderedIDs {
		result, execErr := tx.ExecContext(ctx,
			`UPDATE cues SET sort_order = ?, updated_at = ? WHERE id = ? AND show_id = ?`,
			-(i + 1), now, id, showID,
		)
		if execErr != nil {
			return fmt.Errorf("parking cue order: %w", execErr)
		}
		if err := requireOneRow(result, ErrInvalidReorder); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE cues SET sort_order = -sort_order WHERE show_id = ? AND sort_order < 0`,
		showID,
	); err != nil {
		return fmt.Errorf("finalising cue order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing reorder: %w", err)
	}
	return nil
}

// AppendLog appends a standalone log entry (notes have no state change).
func (r *SQLiteRepository) AppendLog(ctx context.Context, entry *showlog.Entry) error {
	appender := showlog.NewSQLiteAppender(r.db)
	return appender.Append(ctx, entry)
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanShow(row rowScanner) (*Show, error) {
	var (
		s            Show
		status       string
		currentCueID sql.NullString
		startedAt    sql.NullString
		heldAt       sql.NullString
		heldReason   sql.NullString
		endedAt      sql.NullString
		createdAt    string
		updatedAt    string
	)

	if err := row.Scan(&s.ID, &s.Name, &status, &currentCueID, &startedAt,
		&heldAt, &heldReason, &endedAt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	s.Status = Status(status)
	s.CurrentCueID = fromNullString(currentCueID)
	s.HeldReason = fromNullString(heldReason)

	var err error
	if s.StartedAt, err = parseNullTime(startedAt); err != nil {
		return nil, err
	}
	if s.HeldAt, err = parseNullTime(heldAt); err != nil {
		return nil, err
	}
	if s.EndedAt, err = parseNullTime(endedAt); err != nil {
		return nil, err
	}
	if s.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if s.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	return &s, nil
}

func scanCue(row rowScanner) (*Cue, error) { //nolint:gocognit // column-by-column scan and null handling
	var (
		c            Cue
		cueType      string
		triggerType  string
		triggerValue sql.NullString
		duration     sql.NullInt64
		assignedTo   sql.NullString
		depsJSON     string
		isStandby    int
		status       string
		standbyAt    sql.NullString
		executedAt   sql.NullString
		notes        sql.NullString
		createdAt    string
		updatedAt    string
	)

	if err := row.Scan(&c.ID, &c.ShowID, &c.Number, &c.SortOrder, &cueType,
		&c.Description, &triggerType, &triggerValue, &duration, &c.Department,
		&assignedTo, &depsJSON, &isStandby, &status, &standbyAt, &executedAt,
		&notes, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	c.Type = CueType(cueType)
	c.TriggerType = TriggerType(triggerType)
	c.TriggerValue = fromNullString(triggerValue)
	c.AssignedTo = fromNullString(assignedTo)
	c.Notes = fromNullString(notes)
	c.IsStandby = isStandby != 0
	c.Status = CueStatus(status)

	if duration.Valid {
		v := int(duration.Int64)
		c.DurationSeconds = &v
	}

	if err := json.Unmarshal([]byte(depsJSON), &c.Dependencies); err != nil {
		return nil, fmt.Errorf("unmarshalling dependencies: %w", err)
	}
	if len(c.Dependencies) == 0 {
		c.Dependencies = nil
	}

	var err error
	if c.StandbyAt, err = parseNullTime(standbyAt); err != nil {
		return nil, err
	}
	if c.ExecutedAt, err = parseNullTime(executedAt); err != nil {
		return nil, err
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	return &c, nil
}

// requireOneRow returns notFound if the statement affected no rows.
func requireOneRow(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// isUniqueViolation reports whether err is a SQLite unique constraint error.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func dependenciesOrEmpty(deps []string) []string {
	if deps == nil {
		return []string{}
	}
	return deps
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func nullInt(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
