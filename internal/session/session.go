package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/showcall/showcall-core/internal/show"
)

// ErrSessionClosed is returned by Submit after the registry has evicted the
// session. Callers should re-resolve the session and retry.
var ErrSessionClosed = errors.New("session: closed")

// subscriberBufferSize is the per-subscriber event buffer. A subscriber
// that falls this far behind starts losing events rather than stalling
// command processing.
const subscriberBufferSize = 64

// Event is emitted once per successful command.
type Event struct {
	ShowID  string    `json:"show_id"`
	Type    string    `json:"type"`
	Payload any       `json:"payload,omitempty"`
	At      time.Time `json:"at"`
}

// Event types emitted by a session.
const (
	EventShowStarted = "show.started"
	EventShowHeld    = "show.held"
	EventShowResumed = "show.resumed"
	EventShowEnded   = "show.ended"
	EventCueCreated  = "cue.created"
	EventCueExecuted = "cue.executed"
	EventCueStandby  = "cue.standby"
	EventCueSkipped  = "cue.skipped"
	EventCueUpdated  = "cue.updated"
	EventCueDeleted  = "cue.deleted"
	EventCuesReorder = "cues.reordered"
	EventNoteAdded   = "note.added"
)

// Emitter receives every event a session produces. Implementations fan out
// to WebSocket clients, MQTT topics, or telemetry; they must not block.
type Emitter interface {
	Emit(ev Event)
}

// Logger defines the logging interface used by sessions and the registry.
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

// envelope carries one submitted command through the queue.
type envelope struct {
	ctx     context.Context
	cmd     Command
	outcome chan outcome
}

// outcome is the terminal result of one command.
type outcome struct {
	result any
	err    error
}

// Session serialises all commands for one show.
//
// Many operator connections submit concurrently; a single worker goroutine
// applies commands strictly in arrival order against the show's Sequencer.
// That actor-style queue is the only mutation path for the show's state, so
// the Sequencer itself needs no locks.
//
// Submit blocks until the command has been applied and durably persisted
// (or failed). A caller's context cancels a command only while it is still
// queued; once applying, it runs to completion.
type Session struct {
	showID string
	seq    *show.Sequencer
	logger Logger

	queue chan *envelope
	done  chan struct{}
	once  sync.Once

	emitters []Emitter

	mu          sync.Mutex
	subscribers map[int]chan Event
	nextSubID   int

	// completedAt is when this session observed the show reach completed;
	// zero until then. The registry uses it for eviction.
	completedAt time.Time
}

// newSession wraps seq in a serialised command queue and starts its worker.
func newSession(seq *show.Sequencer, queueSize int, emitters []Emitter, logger Logger) *Session {
	if logger == nil {
		logger = noopLogger{}
	}
	if queueSize < 1 {
		queueSize = 1
	}

	s := &Session{
		showID:      seq.ShowID(),
		seq:         seq,
		logger:      logger,
		queue:       make(chan *envelope, queueSize),
		done:        make(chan struct{}),
		emitters:    emitters,
		subscribers: make(map[int]chan Event),
	}

	if seq.Status() == show.StatusCompleted {
		s.completedAt = time.Now().UTC()
	}

	go s.run()
	return s
}

// ShowID returns the show this session serves.
func (s *Session) ShowID() string {
	return s.showID
}

// Submit enqueues cmd and blocks until it has been applied and persisted.
// The returned value depends on the command (e.g. *show.GoResult for Go).
func (s *Session) Submit(ctx context.Context, cmd Command) (any, error) {
	env := &envelope{
		ctx: ctx,
		cmd: cmd,
		// Buffered so the worker never blocks delivering to a caller that
		// already gave up waiting.
		outcome: make(chan outcome, 1),
	}

	select {
	case s.queue <- env:
	case <-s.done:
		return nil, ErrSessionClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case out := <-env.outcome:
		return out.result, out.err
	case <-s.done:
		// Closed with this command still queued. The worker drains the
		// queue on exit, but a submitter must never outlive the session.
		return nil, ErrSessionClosed
	case <-ctx.Done():
		// The command may still apply; the worker checks env.ctx before
		// starting and skips commands whose submitter has gone away.
		return nil, ctx.Err()
	}
}

// Subscribe registers for this session's event stream. One event is
// delivered per successful command. The returned cancel func must be called
// to release the subscription; it is safe to call more than once.
func (s *Session) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	ch := make(chan Event, subscriberBufferSize)
	s.subscribers[id] = ch
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			if existing, ok := s.subscribers[id]; ok {
				delete(s.subscribers, id)
				close(existing)
			}
			s.mu.Unlock()
		})
	}
	return ch, cancel
}

// run is the session worker: it applies queued commands one at a time until
// the session closes.
func (s *Session) run() {
	for {
		// Shutdown wins over queued work so nothing applies after close.
		select {
		case <-s.done:
			s.drainQueue()
			s.drainSubscribers()
			return
		default:
		}

		select {
		case <-s.done:
			s.drainQueue()
			s.drainSubscribers()
			return
		case env := <-s.queue:
			// A cancelled submitter's command is dropped if it has not
			// begun applying.
			if err := env.ctx.Err(); err != nil {
				env.outcome <- outcome{err: err}
				continue
			}

			result, ev, err := s.apply(env.ctx, env.cmd)
			if err == nil && ev != nil {
				s.publish(*ev)
			}
			env.outcome <- outcome{result: result, err: err}
		}
	}
}

// apply dispatches one command to the sequencer and builds the resulting
// event. The type switch is exhaustive over the Command variants.
func (s *Session) apply(ctx context.Context, cmd Command) (any, *Event, error) { //nolint:gocyclo // exhaustive command dispatch
	switch c := cmd.(type) {
	case CreateCue:
		cue, err := s.seq.CreateCue(ctx, c.Spec, c.Actor)
		if err != nil {
			return nil, nil, err
		}
		return cue, s.event(EventCueCreated, cue), nil

	case StartShow:
		st, err := s.seq.Start(ctx, c.Actor)
		if err != nil {
			return nil, nil, err
		}
		return st, s.event(EventShowStarted, st), nil

	case EndShow:
		st, err := s.seq.End(ctx, c.Actor)
		if err != nil {
			return nil, nil, err
		}
		s.markCompleted()
		return st, s.event(EventShowEnded, st), nil

	case HoldShow:
		st, err := s.seq.Hold(ctx, c.Reason, c.Actor)
		if err != nil {
			return nil, nil, err
		}
		return st, s.event(EventShowHeld, st), nil

	case ResumeShow:
		st, err := s.seq.Resume(ctx, c.Actor)
		if err != nil {
			return nil, nil, err
		}
		return st, s.event(EventShowResumed, st), nil

	case Go:
		res, err := s.seq.Go(ctx, c.CueID, c.Actor)
		if err != nil {
			return nil, nil, err
		}
		return res, s.event(EventCueExecuted, res), nil

	case Standby:
		cue, err := s.seq.Standby(ctx, c.CueID, c.Actor)
		if err != nil {
			return nil, nil, err
		}
		return cue, s.event(EventCueStandby, cue), nil

	case Skip:
		cue, err := s.seq.Skip(ctx, c.CueID, c.Actor)
		if err != nil {
			return nil, nil, err
		}
		return cue, s.event(EventCueSkipped, cue), nil

	case Reorder:
		cues, err := s.seq.Reorder(ctx, c.OrderedCueIDs, c.Actor)
		if err != nil {
			return nil, nil, err
		}
		return cues, s.event(EventCuesReorder, cues), nil

	case AddNote:
		entry, err := s.seq.AddNote(ctx, c.CueID, c.Text, c.Actor)
		if err != nil {
			return nil, nil, err
		}
		return entry, s.event(EventNoteAdded, entry), nil

	case UpdateCue:
		cue, err := s.seq.UpdateCue(ctx, c.CueID, c.Update, c.Actor)
		if err != nil {
			return nil, nil, err
		}
		return cue, s.event(EventCueUpdated, cue), nil

	case DeleteCue:
		if err := s.seq.DeleteCue(ctx, c.CueID, c.Actor); err != nil {
			return nil, nil, err
		}
		return nil, s.event(EventCueDeleted, map[string]string{"cue_id": c.CueID}), nil

	default:
		return nil, nil, fmt.Errorf("session: unknown command %T", cmd)
	}
}

func (s *Session) event(eventType string, payload any) *Event {
	return &Event{
		ShowID:  s.showID,
		Type:    eventType,
		Payload: payload,
		At:      time.Now().UTC(),
	}
}

// publish fans an event out to emitters and subscribers. Slow subscribers
// lose events rather than blocking the command queue.
func (s *Session) publish(ev Event) {
	for _, e := range s.emitters {
		e.Emit(ev)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			s.logger.Warn("session subscriber lagging, dropping event",
				"show_id", s.showID,
				"subscriber", id,
				"event", ev.Type,
			)
		}
	}
}

func (s *Session) markCompleted() {
	s.mu.Lock()
	s.completedAt = time.Now().UTC()
	s.mu.Unlock()
}

// evictableSince returns when the show completed, or zero if it has not.
func (s *Session) evictableSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completedAt
}

// close stops the worker and closes all subscriber channels. Queued
// commands that have not begun applying fail with ErrSessionClosed: the
// worker drains them on exit, and Submit also watches done so no caller
// stays blocked. Safe to call more than once.
func (s *Session) close() {
	s.once.Do(func() {
		close(s.done)
	})
}

// drainQueue fails every queued command that never began applying. Outcome
// channels are buffered, so delivery never blocks even when the submitter
// already returned via done.
func (s *Session) drainQueue() {
	for {
		select {
		case env := <-s.queue:
			env.outcome <- outcome{err: ErrSessionClosed}
		default:
			return
		}
	}
}

// drainSubscribers closes every subscriber channel on shutdown.
func (s *Session) drainSubscribers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.subscribers {
		delete(s.subscribers, id)
		close(ch)
	}
}
