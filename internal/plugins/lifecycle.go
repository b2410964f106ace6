package plugins

// State is the lifecycle position of a loaded plugin.
type State int

// Lifecycle states.
const (
	StateUnloaded State = iota
	StateLoaded
	StateInitialized
	StateDisposed
	StateFailed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoaded:
		return "loaded"
	case StateInitialized:
		return "initialized"
	case StateDisposed:
		return "disposed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
