// Package lifecycle holds the connection state machine of a backplane and
// the helpers that pace and track its background work.
//
// # State Machine
//
//   - Closed -> Connected     first successful connect
//   - Closed -> Disposing     dispose before connecting
//   - Connected -> Disposing  dispose while running
//   - Disposing -> Disposed   shutdown finished
//
// The state lives in one atomic cell. Transitions use CompareAndSwap when
// they depend on the current state and Swap when they must win regardless,
// which is how disposal always beats a connect that completes concurrently:
//
//	m := lifecycle.NewManager(logger, emitter)
//	if m.CompareAndSwap(lifecycle.StateClosed, lifecycle.StateConnected, "connected") {
//	    // start receiving
//	}
//	switch m.Swap(lifecycle.StateDisposing, "dispose") {
//	case lifecycle.StateClosed, lifecycle.StateConnected:
//	    // shut down
//	}
//
// Background goroutines started with Manager.Go are awaited by
// WaitWithTimeout. Backoff paces reconnect attempts with a fixed or
// exponential delay.
//
// # Version
//
// Current version: 2.0.0
// Minimum compatible version: 2.0.0
package lifecycle
