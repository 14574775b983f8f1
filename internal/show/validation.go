package show

import "fmt"

// Validation constants.
const (
	maxNameLength      = 200
	maxNumberLength    = 20
	maxDescriptionLen  = 1000
	maxDepartmentLen   = 100
	maxDependencies    = 50
	maxHoldReasonLen   = 500
	maxDurationSeconds = 86400 // 24 hours
	maxTriggerValueLen = 200
)

// Pre-computed validation sets for O(1) lookups.
var (
	validCueTypes     map[CueType]struct{}
	validTriggerTypes map[TriggerType]struct{}
)

func init() {
	validCueTypes = make(map[CueType]struct{}, len(AllCueTypes()))
	for _, t := range AllCueTypes() {
		validCueTypes[t] = struct{}{}
	}
	validTriggerTypes = make(map[TriggerType]struct{}, len(AllTriggerTypes()))
	for _, t := range AllTriggerTypes() {
		validTriggerTypes[t] = struct{}{}
	}
}

// ValidateShowName checks a show name for length and presence.
func ValidateShowName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidCue)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidCue, maxNameLength)
	}
	return nil
}

// ValidateCue performs field-level validation on a cue. Dependency graph
// checks are separate (see ValidateDependencies) because they need the
// show's full cue set.
func ValidateCue(c *Cue) error {
	if c == nil {
		return ErrInvalidCue
	}

	if c.Number == "" {
		return fmt.Errorf("%w: number is required", ErrInvalidCue)
	}
	if len(c.Number) > maxNumberLength {
		return fmt.Errorf("%w: number exceeds %d characters", ErrInvalidCue, maxNumberLength)
	}

	if _, ok := validCueTypes[c.Type]; !ok {
		return fmt.Errorf("%w: invalid cue type %q", ErrInvalidCue, c.Type)
	}

	if c.TriggerType != "" {
		if _, ok := validTriggerTypes[c.TriggerType]; !ok {
			return fmt.Errorf("%w: invalid trigger type %q", ErrInvalidCue, c.TriggerType)
		}
	}
	if c.TriggerValue != nil && len(*c.TriggerValue) > maxTriggerValueLen {
		return fmt.Errorf("%w: trigger value exceeds %d characters", ErrInvalidCue, maxTriggerValueLen)
	}

	if len(c.Description) > maxDescriptionLen {
		return fmt.Errorf("%w: description exceeds %d characters", ErrInvalidCue, maxDescriptionLen)
	}
	if len(c.Department) > maxDepartmentLen {
		return fmt.Errorf("%w: department exceeds %d characters", ErrInvalidCue, maxDepartmentLen)
	}

	if c.DurationSeconds != nil && (*c.DurationSeconds < 0 || *c.DurationSeconds > maxDurationSeconds) {
		return fmt.Errorf("%w: duration must be 0-%d seconds", ErrInvalidCue, maxDurationSeconds)
	}

	if len(c.Dependencies) > maxDependencies {
		return fmt.Errorf("%w: exceeds maximum of %d dependencies", ErrInvalidCue, maxDependencies)
	}
	seen := make(map[string]struct{}, len(c.Dependencies))
	for _, dep := range c.Dependencies {
		if dep == "" {
			return fmt.Errorf("%w: empty dependency ID", ErrInvalidCue)
		}
		if _, dup := seen[dep]; dup {
			return fmt.Errorf("%w: duplicate dependency %q", ErrInvalidCue, dep)
		}
		seen[dep] = struct{}{}
	}

	return nil
}

// ValidateDependencies checks the proposed dependency edges for cue against
// the show's existing cues. It rejects unknown targets, self-references, and
// cycles. Validation happens at creation/update time so a Go never has to
// deal with a cyclic graph.
//
// The cycle check runs a depth-first traversal over the existing dependency
// edges with the proposed edges overlaid.
func ValidateDependencies(cue *Cue, cues map[string]*Cue) error {
	if len(cue.Dependencies) == 0 {
		return nil
	}

	for _, depID := range cue.Dependencies {
		if depID == cue.ID {
			return fmt.Errorf("%w: cue %s depends on itself", ErrCyclicDependency, cue.ID)
		}
		if _, ok := cues[depID]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownDependency, depID)
		}
	}

	// Overlay the proposed edges and walk from the new cue. A path back to
	// the cue itself means the insert would create a cycle.
	edges := func(id string) []string {
		if id == cue.ID {
			return cue.Dependencies
		}
		if c, ok := cues[id]; ok {
			return c.Dependencies
		}
		return nil
	}

	visited := make(map[string]struct{})
	var walk func(id string) bool
	walk = func(id string) bool {
		if id == cue.ID {
			return true
		}
		if _, done := visited[id]; done {
			return false
		}
		visited[id] = struct{}{}
		for _, next := range edges(id) {
			if walk(next) {
				return true
			}
		}
		return false
	}

	for _, depID := range cue.Dependencies {
		if walk(depID) {
			return fmt.Errorf("%w: via %s", ErrCyclicDependency, depID)
		}
	}

	return nil
}
