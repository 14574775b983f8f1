package show

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors for the show package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, show.ErrInvalidShowState) {
//	    // handle illegal command
//	}
var (
	// ErrShowNotFound is returned when a show ID does not exist.
	ErrShowNotFound = errors.New("show: not found")

	// ErrShowExists is returned when creating a show with an ID that already exists.
	ErrShowExists = errors.New("show: already exists")

	// ErrCueNotFound is returned when a cue ID does not exist in the show.
	ErrCueNotFound = errors.New("show: cue not found")

	// ErrInvalidShowState is returned when a command is not legal in the
	// show's current status (e.g. Go before StartShow, anything after EndShow).
	ErrInvalidShowState = errors.New("show: command not valid in current state")

	// ErrShowOnHold is returned for Go and Standby while the show is held.
	ErrShowOnHold = errors.New("show: on hold")

	// ErrInvalidCueState is returned when a cue transition is not legal from
	// the cue's current status (e.g. Standby on an executed cue).
	ErrInvalidCueState = errors.New("show: cue transition not valid")

	// ErrInvalidReorder is returned when a reorder request's cue ID set does
	// not exactly match the show's current cue set.
	ErrInvalidReorder = errors.New("show: reorder must list every cue exactly once")

	// ErrCyclicDependency is returned at cue creation/update when the
	// proposed dependency edges would form a cycle.
	ErrCyclicDependency = errors.New("show: cyclic cue dependency")

	// ErrUnknownDependency is returned at cue creation/update when a
	// dependency references a cue that does not exist in the show.
	ErrUnknownDependency = errors.New("show: unknown cue dependency")

	// ErrInvalidCue is returned when cue validation fails.
	ErrInvalidCue = errors.New("show: invalid cue")

	// ErrPersistence is returned when a durable write fails. The command's
	// in-memory effects are rolled back; callers may safely retry (Go is
	// idempotent).
	ErrPersistence = errors.New("show: persistence failure")
)

// UnmetDependenciesError reports a Go on a cue whose dependencies are not all
// executed. It lists the blocking cue IDs so the operator can fire or skip
// them explicitly; ShowCall never auto-fires a dependency chain.
type UnmetDependenciesError struct {
	CueID string
	Unmet []string
}

func (e *UnmetDependenciesError) Error() string {
	return fmt.Sprintf("show: cue %s has unmet dependencies: %s",
		e.CueID, strings.Join(e.Unmet, ", "))
}

// IsUnmetDependencies reports whether err is an UnmetDependenciesError and
// returns it for access to the blocking IDs.
func IsUnmetDependencies(err error) (*UnmetDependenciesError, bool) {
	var ue *UnmetDependenciesError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}
