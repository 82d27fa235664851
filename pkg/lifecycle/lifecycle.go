package lifecycle

// State is the connection state of a backplane.
type State int32

const (
	// StateClosed means no connection has been established yet.
	StateClosed State = iota
	// StateConnected means the store is open and the receive loop runs.
	StateConnected
	// StateDisposing means shutdown was requested.
	StateDisposing
	// StateDisposed is terminal.
	StateDisposed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "Closed"
	case StateConnected:
		return "Connected"
	case StateDisposing:
		return "Disposing"
	case StateDisposed:
		return "Disposed"
	default:
		return "Unknown"
	}
}

// EventEmitter is called after every successful state change.
type EventEmitter interface {
	OnStateChange(previous, current State, reason string)
}
