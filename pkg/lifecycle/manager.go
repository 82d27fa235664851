package lifecycle

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bft-labs/logbus/pkg/log"
)

// ErrShutdownTimeout is returned by WaitWithTimeout when workers outlive the
// timeout.
var ErrShutdownTimeout = errors.New("shutdown timeout")

// ShutdownTimeout is the default maximum time to wait for graceful shutdown.
const ShutdownTimeout = 30 * time.Second

// Manager holds the connection state in a single atomic cell and tracks
// background workers. State only changes through CompareAndSwap and Swap,
// so concurrent callers never need a lock to agree on who won a transition.
type Manager struct {
	state        atomic.Int32
	wg           sync.WaitGroup
	logger       log.Logger
	eventEmitter EventEmitter
}

// NewManager creates a manager in StateClosed. logger and emitter may be nil.
func NewManager(logger log.Logger, emitter EventEmitter) *Manager {
	if logger == nil {
		logger = log.NoopLogger{}
	}
	return &Manager{logger: logger, eventEmitter: emitter}
}

// State returns the current state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// CompareAndSwap moves from old to new if the current state is old.
func (m *Manager) CompareAndSwap(old, new State, reason string) bool {
	if !m.state.CompareAndSwap(int32(old), int32(new)) {
		return false
	}
	m.changed(old, new, reason)
	return true
}

// Swap stores new and returns the previous state. StateDisposed is
// terminal: Swap leaves it in place, reports it and notifies nobody.
func (m *Manager) Swap(new State, reason string) State {
	for {
		old := State(m.state.Load())
		if old == StateDisposed {
			return old
		}
		if m.state.CompareAndSwap(int32(old), int32(new)) {
			if old != new {
				m.changed(old, new, reason)
			}
			return old
		}
	}
}

func (m *Manager) changed(old, new State, reason string) {
	if m.eventEmitter != nil {
		m.eventEmitter.OnStateChange(old, new, reason)
	}
	m.logger.Info("state transition",
		log.String("from", old.String()),
		log.String("to", new.String()),
		log.String("reason", reason),
	)
}

// Go runs fn on a tracked worker goroutine.
func (m *Manager) Go(fn func()) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		fn()
	}()
}

// WaitWithTimeout waits for all workers to finish.
// Returns ErrShutdownTimeout if the timeout expires.
func (m *Manager) WaitWithTimeout(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-timer.C:
		m.logger.Warn("shutdown timeout, workers still running",
			log.Duration("timeout", timeout),
		)
		return ErrShutdownTimeout
	}
}
