package auth

// Role represents an authorisation tier for show operations.
type Role string

const (
	// RoleStageManager calls the show: full control including start, hold,
	// resume, end, reorder, and cue edits.
	RoleStageManager Role = "stage_manager"

	// RoleOperator runs a department's board: Go, standby, skip, and notes,
	// but not show lifecycle or running-order changes.
	RoleOperator Role = "operator"

	// RoleViewer watches the cue sheet and live status read-only. Crew
	// monitors and front-of-house displays authenticate as viewers.
	RoleViewer Role = "viewer"
)

// ValidRoles is the set of valid operator roles.
var ValidRoles = []Role{RoleStageManager, RoleOperator, RoleViewer}

// IsValidRole returns true if the role is recognised.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// CanControl reports whether the role may issue cue control commands
// (Go, standby, skip, notes).
func (r Role) CanControl() bool {
	return r == RoleStageManager || r == RoleOperator
}

// CanManage reports whether the role may change show lifecycle and the
// running order (start, hold, resume, end, create, edit, delete, reorder).
func (r Role) CanManage() bool {
	return r == RoleStageManager
}

// Operator is an authenticated crew member identity.
type Operator struct {
	ID string `json:"id"`

	// CallSign is the name recorded as the actor on show log entries,
	// e.g. "SM Dana" or "LX op".
	CallSign string `json:"call_sign"`

	Role Role `json:"role"`
}
