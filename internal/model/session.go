package model

// SessionContext identifies who is operating the terminal for a single call.
// It is an explicit value threaded through every coordinator and shift-manager
// operation rather than ambient global state, so a mid-operation operator
// switch is detectable: Epoch is bumped on every login, switch, and logout,
// and operations carrying a stale epoch are aborted.
type SessionContext struct {
	OperatorID   string `json:"operatorId"`
	OperatorName string `json:"operatorName"`
	Role         string `json:"role"`
	ShiftID      string `json:"shiftId,omitempty"`
	// ViewOnly sessions may browse history and reports but have no drawer
	// open; no Shift record exists for them.
	ViewOnly bool  `json:"viewOnly"`
	Epoch    int64 `json:"epoch"`
}

// SystemSession is the internal identity used for calls that happen outside
// any operator session (login lookups, background sync). It bypasses session
// validation and operator scoping.
func SystemSession() SessionContext {
	return SessionContext{Role: "system"}
}

// IsSystem reports whether this is the internal system identity.
func (s SessionContext) IsSystem() bool {
	return s.Role == "system" && s.OperatorID == ""
}
