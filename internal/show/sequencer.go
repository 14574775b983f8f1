package show

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/showcall/showcall-core/internal/showlog"
)

// Logger defines the logging interface used by the Sequencer.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// CueSpec describes a cue to create.
type CueSpec struct {
	Number          string      `json:"number"`
	Type            CueType     `json:"type"`
	Description     string      `json:"description"`
	TriggerType     TriggerType `json:"trigger_type"`
	TriggerValue    *string     `json:"trigger_value,omitempty"`
	DurationSeconds *int        `json:"duration_seconds,omitempty"`
	Department      string      `json:"department"`
	AssignedTo      *string     `json:"assigned_to,omitempty"`
	Dependencies    []string    `json:"dependencies,omitempty"`
	IsStandby       bool        `json:"is_standby"`
	Notes           *string     `json:"notes,omitempty"`
}

// CueUpdate carries the editable cue fields for an update. Nil pointers
// leave the field unchanged.
type CueUpdate struct {
	Number          *string      `json:"number,omitempty"`
	Type            *CueType     `json:"type,omitempty"`
	Description     *string      `json:"description,omitempty"`
	TriggerType     *TriggerType `json:"trigger_type,omitempty"`
	TriggerValue    *string      `json:"trigger_value,omitempty"`
	DurationSeconds *int         `json:"duration_seconds,omitempty"`
	Department      *string      `json:"department,omitempty"`
	AssignedTo      *string      `json:"assigned_to,omitempty"`
	Dependencies    []string     `json:"dependencies,omitempty"`
	IsStandby       *bool        `json:"is_standby,omitempty"`
	Notes           *string      `json:"notes,omitempty"`
}

// Sequencer owns the authoritative ordering and execution state of one
// show's cues. It is the state machine core: every control command is
// validated against the in-memory snapshot, written through the repository,
// and only then applied to the snapshot. A failed durable write therefore
// leaves the snapshot untouched and the command reports ErrPersistence.
//
// The Sequencer is NOT safe for concurrent use. Its session wraps it in a
// serialised command queue, so exactly one command is in flight per show.
type Sequencer struct {
	repo   Repository
	logger Logger

	show *Show
	cues map[string]*Cue

	// goResults caches the result of each executed Go so a retried Go
	// returns the identical payload without re-executing.
	goResults map[string]*GoResult
}

// Load builds a Sequencer for showID from persisted state.
func Load(ctx context.Context, repo Repository, showID string, logger Logger) (*Sequencer, error) {
	if logger == nil {
		logger = noopLogger{}
	}

	s, err := repo.GetShow(ctx, showID)
	if err != nil {
		return nil, err
	}

	cues, err := repo.ListCues(ctx, showID)
	if err != nil {
		return nil, fmt.Errorf("loading cues: %w", err)
	}

	seq := &Sequencer{
		repo:      repo,
		logger:    logger,
		show:      s,
		cues:      make(map[string]*Cue, len(cues)),
		goResults: make(map[string]*GoResult),
	}
	for i := range cues {
		seq.cues[cues[i].ID] = &cues[i]
	}
	return seq, nil
}

// ShowID returns the identifier of the show this sequencer drives.
func (q *Sequencer) ShowID() string {
	return q.show.ID
}

// ShowState returns a copy of the current show state.
func (q *Sequencer) ShowState() *Show {
	return q.show.DeepCopy()
}

// Status returns the show's current status.
func (q *Sequencer) Status() Status {
	return q.show.Status
}

// CreateCue appends a new cue to the show's running order.
//
// The cue gets sort_order = max(existing)+1. Dependency edges are validated
// here, at creation time: unknown targets, self-references, and cycles are
// all rejected so Go never sees a malformed graph.
func (q *Sequencer) CreateCue(ctx context.Context, spec CueSpec, actor string) (*Cue, error) {
	if q.show.Status == StatusCompleted {
		return nil, fmt.Errorf("%w: show is completed", ErrInvalidShowState)
	}

	cue := &Cue{
		ID:              "cue-" + uuid.NewString()[:8],
		ShowID:          q.show.ID,
		Number:          spec.Number,
		SortOrder:       q.maxSortOrder() + 1,
		Type:            spec.Type,
		Description:     spec.Description,
		TriggerType:     spec.TriggerType,
		TriggerValue:    spec.TriggerValue,
		DurationSeconds: spec.DurationSeconds,
		Department:      spec.Department,
		AssignedTo:      spec.AssignedTo,
		Dependencies:    spec.Dependencies,
		IsStandby:       spec.IsStandby,
		Status:          CuePending,
		Notes:           spec.Notes,
	}
	if cue.TriggerType == "" {
		cue.TriggerType = TriggerManual
	}

	if err := ValidateCue(cue); err != nil {
		return nil, err
	}
	if err := ValidateDependencies(cue, q.cues); err != nil {
		return nil, err
	}

	if err := q.repo.CreateCue(ctx, cue); err != nil {
		return nil, persistenceError(err)
	}

	q.cues[cue.ID] = cue
	q.logger.Info("cue created",
		"show_id", q.show.ID,
		"cue_id", cue.ID,
		"number", cue.Number,
		"sort_order", cue.SortOrder,
		"actor", actor,
	)
	return cue.DeepCopy(), nil
}

// Start transitions the show from not_started to running.
func (q *Sequencer) Start(ctx context.Context, actor string) (*Show, error) {
	if q.show.Status != StatusNotStarted {
		return nil, fmt.Errorf("%w: cannot start from %s", ErrInvalidShowState, q.show.Status)
	}

	next := q.show.DeepCopy()
	now := time.Now().UTC()
	next.Status = StatusRunning
	next.StartedAt = &now

	if err := q.applyShowChange(ctx, next, showlog.EventShowStart, nil, actor); err != nil {
		return nil, err
	}

	q.logger.Info("show started", "show_id", q.show.ID, "actor", actor)
	return next.DeepCopy(), nil
}

// Hold pauses a running show. A reason is required; it is recorded on the
// show and in the log. Cue state is untouched: Hold only blocks Go and
// Standby until Resume.
func (q *Sequencer) Hold(ctx context.Context, reason, actor string) (*Show, error) {
	if q.show.Status != StatusRunning {
		return nil, fmt.Errorf("%w: cannot hold from %s", ErrInvalidShowState, q.show.Status)
	}
	if reason == "" {
		return nil, fmt.Errorf("%w: hold reason is required", ErrInvalidCue)
	}
	if len(reason) > maxHoldReasonLen {
		return nil, fmt.Errorf("%w: hold reason exceeds %d characters", ErrInvalidCue, maxHoldReasonLen)
	}

	next := q.show.DeepCopy()
	now := time.Now().UTC()
	next.Status = StatusHold
	next.HeldAt = &now
	next.HeldReason = &reason

	if err := q.applyShowChange(ctx, next, showlog.EventShowHold, &reason, actor); err != nil {
		return nil, err
	}

	q.logger.Info("show held", "show_id", q.show.ID, "reason", reason, "actor", actor)
	return next.DeepCopy(), nil
}

// Resume returns a held show to running and clears the hold fields.
func (q *Sequencer) Resume(ctx context.Context, actor string) (*Show, error) {
	if q.show.Status != StatusHold {
		return nil, fmt.Errorf("%w: cannot resume from %s", ErrInvalidShowState, q.show.Status)
	}

	next := q.show.DeepCopy()
	next.Status = StatusRunning
	next.HeldAt = nil
	next.HeldReason = nil

	if err := q.applyShowChange(ctx, next, showlog.EventShowResume, nil, actor); err != nil {
		return nil, err
	}

	q.logger.Info("show resumed", "show_id", q.show.ID, "actor", actor)
	return next.DeepCopy(), nil
}

// End completes the show from running or hold. Completed is terminal: every
// subsequent command fails with ErrInvalidShowState.
func (q *Sequencer) End(ctx context.Context, actor string) (*Show, error) {
	if q.show.Status != StatusRunning && q.show.Status != StatusHold {
		return nil, fmt.Errorf("%w: cannot end from %s", ErrInvalidShowState, q.show.Status)
	}

	next := q.show.DeepCopy()
	now := time.Now().UTC()
	next.Status = StatusCompleted
	next.EndedAt = &now

	if err := q.applyShowChange(ctx, next, showlog.EventShowEnd, nil, actor); err != nil {
		return nil, err
	}

	q.logger.Info("show ended", "show_id", q.show.ID, "actor", actor)
	return next.DeepCopy(), nil
}

// Go executes a cue now.
//
// Preconditions: show running, cue pending or standby, all dependencies
// executed. Unmet dependencies are reported, never auto-fired: executing a
// chain requires explicit operator intent per cue.
//
// Go is idempotent per cue. A Go on an already-executed cue returns the
// prior result without a second cue_go log entry, so at-least-once delivery
// from a flaky console is safe.
func (q *Sequencer) Go(ctx context.Context, cueID, actor string) (*GoResult, error) { //nolint:gocognit // state machine: precondition checks then persist-and-apply
	cue, ok := q.cues[cueID]
	if !ok {
		return nil, ErrCueNotFound
	}

	// Idempotent replay path. Checked before show status: a redelivered Go
	// on an executed cue returns the recorded result even if the show has
	// since been held or ended. Only new executions hit the state gates.
	if cue.Status == CueExecuted {
		if cached, hit := q.goResults[cueID]; hit {
			return cached, nil
		}
		// Session was rehydrated since the original Go; rebuild the result
		// from persisted state.
		result := &GoResult{
			ExecutedCue: cue.DeepCopy(),
			NextCue:     q.nextActionable(cue.SortOrder),
		}
		q.goResults[cueID] = result
		return result, nil
	}

	switch q.show.Status {
	case StatusHold:
		return nil, ErrShowOnHold
	case StatusRunning:
		// Proceed.
	case StatusNotStarted, StatusCompleted:
		return nil, fmt.Errorf("%w: show is %s", ErrInvalidShowState, q.show.Status)
	default:
		return nil, fmt.Errorf("%w: show is %s", ErrInvalidShowState, q.show.Status)
	}

	if cue.Status != CuePending && cue.Status != CueStandby {
		return nil, fmt.Errorf("%w: cue is %s", ErrInvalidCueState, cue.Status)
	}

	if unmet := UnmetDependencies(cue, q.cues); len(unmet) > 0 {
		return nil, &UnmetDependenciesError{CueID: cueID, Unmet: unmet}
	}

	nextCue := cue.DeepCopy()
	now := time.Now().UTC()
	nextCue.Status = CueExecuted
	nextCue.ExecutedAt = &now

	nextShow := q.show.DeepCopy()
	nextShow.CurrentCueID = &nextCue.ID

	entry := &showlog.Entry{
		ShowID:    q.show.ID,
		EventType: showlog.EventCueGo,
		CueID:     &nextCue.ID,
		Actor:     actor,
	}

	if err := q.repo.ApplyCueChange(ctx, nextCue, nextShow, entry); err != nil {
		return nil, persistenceError(err)
	}

	q.cues[cueID] = nextCue
	q.show = nextShow

	result := &GoResult{
		ExecutedCue: nextCue.DeepCopy(),
		NextCue:     q.nextActionable(nextCue.SortOrder),
	}
	q.goResults[cueID] = result

	q.logger.Info("cue executed",
		"show_id", q.show.ID,
		"cue_id", cueID,
		"number", nextCue.Number,
		"actor", actor,
	)
	return result, nil
}

// Standby marks a pending cue as imminent. Requires a running show.
func (q *Sequencer) Standby(ctx context.Context, cueID, actor string) (*Cue, error) {
	cue, ok := q.cues[cueID]
	if !ok {
		return nil, ErrCueNotFound
	}

	switch q.show.Status {
	case StatusHold:
		return nil, ErrShowOnHold
	case StatusRunning:
		// Proceed.
	case StatusNotStarted, StatusCompleted:
		return nil, fmt.Errorf("%w: show is %s", ErrInvalidShowState, q.show.Status)
	default:
		return nil, fmt.Errorf("%w: show is %s", ErrInvalidShowState, q.show.Status)
	}

	if cue.Status != CuePending {
		return nil, fmt.Errorf("%w: cue is %s", ErrInvalidCueState, cue.Status)
	}

	next := cue.DeepCopy()
	now := time.Now().UTC()
	next.Status = CueStandby
	next.StandbyAt = &now

	entry := &showlog.Entry{
		ShowID:    q.show.ID,
		EventType: showlog.EventCueStandby,
		CueID:     &next.ID,
		Actor:     actor,
	}

	if err := q.repo.ApplyCueChange(ctx, next, nil, entry); err != nil {
		return nil, persistenceError(err)
	}

	q.cues[cueID] = next
	q.logger.Info("cue on standby", "show_id", q.show.ID, "cue_id", cueID, "actor", actor)
	return next.DeepCopy(), nil
}

// Skip marks a pending or standby cue as skipped. Allowed in any show state
// except completed. A skipped cue does not satisfy dependents' requirements;
// they must be skipped too or have the edge cleared.
func (q *Sequencer) Skip(ctx context.Context, cueID, actor string) (*Cue, error) {
	if q.show.Status == StatusCompleted {
		return nil, fmt.Errorf("%w: show is completed", ErrInvalidShowState)
	}

	cue, ok := q.cues[cueID]
	if !ok {
		return nil, ErrCueNotFound
	}
	if cue.Status != CuePending && cue.Status != CueStandby {
		return nil, fmt.Errorf("%w: cue is %s", ErrInvalidCueState, cue.Status)
	}

	next := cue.DeepCopy()
	next.Status = CueSkipped

	entry := &showlog.Entry{
		ShowID:    q.show.ID,
		EventType: showlog.EventCueSkip,
		CueID:     &next.ID,
		Actor:     actor,
	}

	if err := q.repo.ApplyCueChange(ctx, next, nil, entry); err != nil {
		return nil, persistenceError(err)
	}

	q.cues[cueID] = next
	q.logger.Info("cue skipped", "show_id", q.show.ID, "cue_id", cueID, "actor", actor)
	return next.DeepCopy(), nil
}

// Reorder replaces the show's running order with orderedIDs.
//
// The ID set must exactly match the show's current cues: every cue exactly
// once, nothing extra. Sort orders are reassigned index+1 atomically; a
// partial reorder is never observable.
func (q *Sequencer) Reorder(ctx context.Context, orderedIDs []string, actor string) ([]Cue, error) {
	if q.show.Status == StatusCompleted {
		return nil, fmt.Errorf("%w: show is completed", ErrInvalidShowState)
	}

	if len(orderedIDs) != len(q.cues) {
		return nil, fmt.Errorf("%w: got %d IDs, show has %d cues",
			ErrInvalidReorder, len(orderedIDs), len(q.cues))
	}
	seen := make(map[string]struct{}, len(orderedIDs))
	for _, id := range orderedIDs {
		if _, ok := q.cues[id]; !ok {
			return nil, fmt.Errorf("%w: unknown cue %s", ErrInvalidReorder, id)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: duplicate cue %s", ErrInvalidReorder, id)
		}
		seen[id] = struct{}{}
	}

	if err := q.repo.ReorderCues(ctx, q.show.ID, orderedIDs); err != nil {
		return nil, persistenceError(err)
	}

	for i, id := range orderedIDs {
		q.cues[id].SortOrder = i + 1
	}

	q.logger.Info("cues reordered", "show_id", q.show.ID, "count", len(orderedIDs), "actor", actor)
	return q.Cues(), nil
}

// AddNote appends a free-text note to the show log, optionally referencing
// a cue. Notes never change show or cue state.
func (q *Sequencer) AddNote(ctx context.Context, cueID *string, text, actor string) (*showlog.Entry, error) {
	if q.show.Status == StatusCompleted {
		return nil, fmt.Errorf("%w: show is completed", ErrInvalidShowState)
	}
	if text == "" {
		return nil, fmt.Errorf("%w: note text is required", ErrInvalidCue)
	}
	if cueID != nil {
		if _, ok := q.cues[*cueID]; !ok {
			return nil, ErrCueNotFound
		}
	}

	entry := &showlog.Entry{
		ShowID:    q.show.ID,
		EventType: showlog.EventNote,
		CueID:     cueID,
		Notes:     &text,
		Actor:     actor,
	}

	if err := q.repo.AppendLog(ctx, entry); err != nil {
		return nil, persistenceError(err)
	}
	return entry, nil
}

// UpdateCue edits a cue's descriptive fields. Only pending and standby cues
// are editable; executed and skipped cues are frozen for the audit trail.
func (q *Sequencer) UpdateCue(ctx context.Context, cueID string, update CueUpdate, actor string) (*Cue, error) { //nolint:gocognit,gocyclo // field-by-field patch application
	if q.show.Status == StatusCompleted {
		return nil, fmt.Errorf("%w: show is completed", ErrInvalidShowState)
	}

	cue, ok := q.cues[cueID]
	if !ok {
		return nil, ErrCueNotFound
	}
	if cue.Status != CuePending && cue.Status != CueStandby {
		return nil, fmt.Errorf("%w: cue is %s", ErrInvalidCueState, cue.Status)
	}

	next := cue.DeepCopy()
	if update.Number != nil {
		next.Number = *update.Number
	}
	if update.Type != nil {
		next.Type = *update.Type
	}
	if update.Description != nil {
		next.Description = *update.Description
	}
	if update.TriggerType != nil {
		next.TriggerType = *update.TriggerType
	}
	if update.TriggerValue != nil {
		next.TriggerValue = update.TriggerValue
	}
	if update.DurationSeconds != nil {
		next.DurationSeconds = update.DurationSeconds
	}
	if update.Department != nil {
		next.Department = *update.Department
	}
	if update.AssignedTo != nil {
		next.AssignedTo = update.AssignedTo
	}
	if update.Dependencies != nil {
		next.Dependencies = update.Dependencies
	}
	if update.IsStandby != nil {
		next.IsStandby = *update.IsStandby
	}
	if update.Notes != nil {
		next.Notes = update.Notes
	}

	if err := ValidateCue(next); err != nil {
		return nil, err
	}
	if err := ValidateDependencies(next, q.cues); err != nil {
		return nil, err
	}

	if err := q.repo.UpdateCue(ctx, next); err != nil {
		return nil, persistenceError(err)
	}

	q.cues[cueID] = next
	q.logger.Info("cue updated", "show_id", q.show.ID, "cue_id", cueID, "actor", actor)
	return next.DeepCopy(), nil
}

// DeleteCue removes a cue during show preparation. Only pending cues of a
// not-started show can be deleted, and never one that another cue depends
// on: the dependent's edge must be cleared first.
func (q *Sequencer) DeleteCue(ctx context.Context, cueID, actor string) error {
	if q.show.Status != StatusNotStarted {
		return fmt.Errorf("%w: cues can only be deleted before the show starts", ErrInvalidShowState)
	}

	cue, ok := q.cues[cueID]
	if !ok {
		return ErrCueNotFound
	}
	if cue.Status != CuePending {
		return fmt.Errorf("%w: cue is %s", ErrInvalidCueState, cue.Status)
	}

	for _, other := range q.cues {
		for _, dep := range other.Dependencies {
			if dep == cueID {
				return fmt.Errorf("%w: cue %s depends on %s", ErrInvalidCue, other.ID, cueID)
			}
		}
	}

	if err := q.repo.DeleteCue(ctx, cueID); err != nil {
		return persistenceError(err)
	}

	delete(q.cues, cueID)
	q.logger.Info("cue deleted", "show_id", q.show.ID, "cue_id", cueID, "actor", actor)
	return nil
}

// Cues returns copies of all cues in running order.
func (q *Sequencer) Cues() []Cue {
	cues := make([]Cue, 0, len(q.cues))
	for _, c := range q.cues {
		cues = append(cues, *c.DeepCopy())
	}
	sort.Slice(cues, func(i, j int) bool { return cues[i].SortOrder < cues[j].SortOrder })
	return cues
}

// applyShowChange persists a show transition with its log entry, then
// commits it to the in-memory snapshot.
func (q *Sequencer) applyShowChange(ctx context.Context, next *Show, event showlog.EventType, notes *string, actor string) error {
	entry := &showlog.Entry{
		ShowID:    q.show.ID,
		EventType: event,
		Notes:     notes,
		Actor:     actor,
	}
	if err := q.repo.ApplyShowChange(ctx, next, entry); err != nil {
		return persistenceError(err)
	}
	q.show = next
	return nil
}

// nextActionable returns a copy of the cue with the smallest sort order
// strictly greater than after that is still pending or standby. Sort orders
// are unique within a show, so no tie-break is needed.
func (q *Sequencer) nextActionable(after int) *Cue {
	var best *Cue
	for _, c := range q.cues {
		if c.SortOrder <= after {
			continue
		}
		if c.Status != CuePending && c.Status != CueStandby {
			continue
		}
		if best == nil || c.SortOrder < best.SortOrder {
			best = c
		}
	}
	return best.DeepCopy()
}

func (q *Sequencer) maxSortOrder() int {
	maxOrder := 0
	for _, c := range q.cues {
		if c.SortOrder > maxOrder {
			maxOrder = c.SortOrder
		}
	}
	return maxOrder
}

// persistenceError classifies a repository error. Domain sentinels pass
// through untouched; infrastructure failures are wrapped as ErrPersistence
// so callers know a retry is safe.
func persistenceError(err error) error {
	switch {
	case errors.Is(err, ErrShowNotFound),
		errors.Is(err, ErrCueNotFound),
		errors.Is(err, ErrShowExists),
		errors.Is(err, ErrInvalidReorder):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
}
