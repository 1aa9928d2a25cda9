package core

// ProbeState is the state of the spell checker readiness probe
type ProbeState int

const (
	StateIdle ProbeState = iota
	StateProbing
	StateRetrying
	StateSucceeded
	StateFailed
)

func (s ProbeState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProbing:
		return "probing"
	case StateRetrying:
		return "retrying"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
