package txflow

// State is the lifecycle position of the current operation.
type State int

const (
	StateIdle State = iota
	StateBuilding
	StateAwaitingSignature
	StateSubmitted
	StateAwaitingFinality
	StateConfirmed
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBuilding:
		return "building"
	case StateAwaitingSignature:
		return "awaiting_signature"
	case StateSubmitted:
		return "submitted"
	case StateAwaitingFinality:
		return "awaiting_finality"
	case StateConfirmed:
		return "confirmed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// terminal reports whether a new operation may start from this state.
func (s State) terminal() bool {
	return s == StateIdle || s == StateConfirmed || s == StateFailed
}
