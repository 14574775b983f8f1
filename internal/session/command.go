package session

import "github.com/showcall/showcall-core/internal/show"

// Command is the closed set of operator actions a show session accepts.
//
// The original console protocol dispatched on a free-text "action" field;
// here each action is its own type behind an unexported marker method, so a
// malformed command cannot be constructed and dispatch is an exhaustive
// type switch.
type Command interface {
	isCommand()
}

// CreateCue adds a cue to the show's running order.
type CreateCue struct {
	Spec  show.CueSpec
	Actor string
}

// StartShow moves the show from not_started to running.
type StartShow struct {
	Actor string
}

// EndShow completes the show from running or hold.
type EndShow struct {
	Actor string
}

// HoldShow pauses a running show with a reason.
type HoldShow struct {
	Reason string
	Actor  string
}

// ResumeShow returns a held show to running.
type ResumeShow struct {
	Actor string
}

// Go executes a cue now.
type Go struct {
	CueID string
	Actor string
}

// Standby marks a cue as imminent.
type Standby struct {
	CueID string
	Actor string
}

// Skip marks a cue as skipped without executing it.
type Skip struct {
	CueID string
	Actor string
}

// Reorder replaces the show's full running order.
type Reorder struct {
	OrderedCueIDs []string
	Actor         string
}

// AddNote appends a note to the show log, optionally referencing a cue.
type AddNote struct {
	CueID *string
	Text  string
	Actor string
}

// UpdateCue edits a cue's descriptive fields.
type UpdateCue struct {
	CueID  string
	Update show.CueUpdate
	Actor  string
}

// DeleteCue removes a pending cue before the show starts.
type DeleteCue struct {
	CueID string
	Actor string
}

func (CreateCue) isCommand()  {}
func (StartShow) isCommand()  {}
func (EndShow) isCommand()    {}
func (HoldShow) isCommand()   {}
func (ResumeShow) isCommand() {}
func (Go) isCommand()         {}
func (Standby) isCommand()    {}
func (Skip) isCommand()       {}
func (Reorder) isCommand()    {}
func (AddNote) isCommand()    {}
func (UpdateCue) isCommand()  {}
func (DeleteCue) isCommand()  {}
