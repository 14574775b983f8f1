package show

import "time"

// Status represents the live state of a show.
//
// Transitions:
//
//	not_started --start--> running
//	running     --hold---> hold
//	hold        --resume-> running
//	running     --end----> completed
//	hold        --end----> completed
//
// completed is terminal; shows are never deleted, only completed.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusRunning    Status = "running"
	StatusHold       Status = "hold"
	StatusCompleted  Status = "completed"
)

// CueStatus represents the execution state of a single cue.
//
// Transitions (executed and skipped are terminal):
//
//	pending          --standby--> standby
//	pending|standby  --go------>  executed
//	pending|standby  --skip---->  skipped
type CueStatus string

const (
	CuePending  CueStatus = "pending"
	CueStandby  CueStatus = "standby"
	CueExecuted CueStatus = "executed"
	CueSkipped  CueStatus = "skipped"
)

// CueType categorises what a cue triggers.
type CueType string

const (
	CueLighting   CueType = "lighting"
	CueSound      CueType = "sound"
	CueVideo      CueType = "video"
	CuePyro       CueType = "pyro"
	CueAutomation CueType = "automation"
	CueScenic     CueType = "scenic"
	CueFollowSpot CueType = "follow_spot"
	CueComms      CueType = "comms"
	CueCustom     CueType = "custom"
)

// AllCueTypes returns all valid cue types.
func AllCueTypes() []CueType {
	return []CueType{
		CueLighting,
		CueSound,
		CueVideo,
		CuePyro,
		CueAutomation,
		CueScenic,
		CueFollowSpot,
		CueComms,
		CueCustom,
	}
}

// TriggerType records how a cue is fired. ShowCall does not drive timecode,
// MIDI, or OSC hardware itself; the trigger source is recorded so the cue
// sheet and log show where a Go originated.
type TriggerType string

const (
	TriggerManual   TriggerType = "manual"
	TriggerTimecode TriggerType = "timecode"
	TriggerMIDI     TriggerType = "midi"
	TriggerOSC      TriggerType = "osc"
	TriggerFollow   TriggerType = "follow"
)

// AllTriggerTypes returns all valid trigger types.
func AllTriggerTypes() []TriggerType {
	return []TriggerType{
		TriggerManual,
		TriggerTimecode,
		TriggerMIDI,
		TriggerOSC,
		TriggerFollow,
	}
}

// Show is one run-of-show instance for a live event.
//
// A show owns its cues exclusively. CurrentCueID is a weak reference to the
// most recently executed cue; it never owns the cue.
type Show struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status Status `json:"status"`

	CurrentCueID *string `json:"current_cue_id,omitempty"`

	StartedAt  *time.Time `json:"started_at,omitempty"`
	HeldAt     *time.Time `json:"held_at,omitempty"`
	HeldReason *string    `json:"held_reason,omitempty"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Cue is a single triggerable unit of show action.
//
// SortOrder is unique within a show and defines the running order.
// Dependencies lists cue IDs that must be executed before this cue is
// eligible for Go. A skipped dependency does not satisfy the requirement.
type Cue struct {
	ID     string `json:"id"`
	ShowID string `json:"show_id"`

	// Number is the operator-facing label, e.g. "LX1" or "SND14.5".
	Number    string `json:"number"`
	SortOrder int    `json:"sort_order"`

	Type        CueType `json:"type"`
	Description string  `json:"description"`

	TriggerType  TriggerType `json:"trigger_type"`
	TriggerValue *string     `json:"trigger_value,omitempty"`

	DurationSeconds *int `json:"duration_seconds,omitempty"`

	// Department groups cues on the cue sheet, e.g. "Audio". Free text.
	Department string `json:"department"`

	// AssignedTo is a weak reference to the responsible operator.
	AssignedTo *string `json:"assigned_to,omitempty"`

	Dependencies []string `json:"dependencies,omitempty"`

	// IsStandby marks a cue that only ever goes to standby (warnings,
	// safety checks) and is not expected to fire.
	IsStandby bool `json:"is_standby"`

	Status     CueStatus  `json:"status"`
	StandbyAt  *time.Time `json:"standby_at,omitempty"`
	ExecutedAt *time.Time `json:"executed_at,omitempty"`

	Notes *string `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GoResult is the payload returned by a successful (or idempotently
// repeated) Go command.
type GoResult struct {
	ExecutedCue *Cue `json:"executed_cue"`

	// NextCue is the cue with the smallest sort order strictly greater than
	// the executed cue's that is still pending or standby. Nil when the
	// executed cue was the last actionable one.
	NextCue *Cue `json:"next_cue,omitempty"`
}

// LiveStatus is the read-model served to operator consoles and spectators.
type LiveStatus struct {
	Status         Status     `json:"status"`
	CurrentCue     *Cue       `json:"current_cue,omitempty"`
	NextCue        *Cue       `json:"next_cue,omitempty"`
	ElapsedSeconds int64      `json:"elapsed_time"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	HeldReason     *string    `json:"held_reason,omitempty"`
}

// CueSheet groups a show's cues by department for the printed/on-screen sheet.
type CueSheet struct {
	TotalCues    int              `json:"total_cues"`
	ByDepartment map[string][]Cue `json:"by_department"`
	Cues         []Cue            `json:"cues"`
}

// DeepCopy creates a complete independent copy of the Show.
func (s *Show) DeepCopy() *Show {
	if s == nil {
		return nil
	}

	cpy := *s // Shallow copy of value fields

	cpy.CurrentCueID = cloneStringPtr(s.CurrentCueID)
	cpy.HeldReason = cloneStringPtr(s.HeldReason)
	cpy.StartedAt = cloneTimePtr(s.StartedAt)
	cpy.HeldAt = cloneTimePtr(s.HeldAt)
	cpy.EndedAt = cloneTimePtr(s.EndedAt)

	return &cpy
}

// DeepCopy creates a complete independent copy of the Cue.
// The Dependencies slice is cloned so modifications to the copy do not
// affect the original.
func (c *Cue) DeepCopy() *Cue {
	if c == nil {
		return nil
	}

	cpy := *c

	cpy.TriggerValue = cloneStringPtr(c.TriggerValue)
	cpy.AssignedTo = cloneStringPtr(c.AssignedTo)
	cpy.Notes = cloneStringPtr(c.Notes)
	cpy.StandbyAt = cloneTimePtr(c.StandbyAt)
	cpy.ExecutedAt = cloneTimePtr(c.ExecutedAt)
	if c.DurationSeconds != nil {
		v := *c.DurationSeconds
		cpy.DurationSeconds = &v
	}
	if c.Dependencies != nil {
		cpy.Dependencies = make([]string, len(c.Dependencies))
		copy(cpy.Dependencies, c.Dependencies)
	}

	return &cpy
}

// cloneStringPtr creates an independent copy of a *string.
func cloneStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// cloneTimePtr creates an independent copy of a *time.Time.
func cloneTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
