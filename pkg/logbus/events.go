package logbus

import (
	"time"

	"github.com/bft-labs/logbus/pkg/lifecycle"
)

// State is the connection state of a Backplane.
type State = lifecycle.State

// Connection states.
const (
	StateClosed    = lifecycle.StateClosed
	StateConnected = lifecycle.StateConnected
	StateDisposing = lifecycle.StateDisposing
	StateDisposed  = lifecycle.StateDisposed
)

// StateChangeEvent is emitted on every connection state change.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// ConnectErrorEvent is emitted when a connect attempt fails.
type ConnectErrorEvent struct {
	Error   error
	Attempt int
	// RetryIn is zero when the error is fatal and no retry follows.
	RetryIn time.Duration
}

// SendErrorEvent is emitted when Send fails to connect or append.
type SendErrorEvent struct {
	Error       error
	StreamIndex int
}

// DeliveryErrorEvent is emitted when a record could not be delivered.
type DeliveryErrorEvent struct {
	Error       error
	StreamIndex int
}

// ReceiveRestartEvent is emitted when the receive loop stops and the
// backplane reconnects.
type ReceiveRestartEvent struct {
	Error error
}

// EventHandler receives backplane events. Calls are synchronous and come
// from the goroutine that caused them, so implementations should return
// quickly. Embed BaseEventHandler to implement only some methods.
type EventHandler interface {
	OnStateChange(StateChangeEvent)
	OnConnectError(ConnectErrorEvent)
	OnSendError(SendErrorEvent)
	OnDeliveryError(DeliveryErrorEvent)
	OnReceiveRestart(ReceiveRestartEvent)
}

// BaseEventHandler implements EventHandler with no-ops.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent)       {}
func (BaseEventHandler) OnConnectError(ConnectErrorEvent)     {}
func (BaseEventHandler) OnSendError(SendErrorEvent)           {}
func (BaseEventHandler) OnDeliveryError(DeliveryErrorEvent)   {}
func (BaseEventHandler) OnReceiveRestart(ReceiveRestartEvent) {}

// eventEmitterWrapper adapts EventHandler to the internal emitter interface.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e eventEmitterWrapper) OnStateChange(previous, current lifecycle.State, reason string) {
	e.handler.OnStateChange(StateChangeEvent{Previous: previous, Current: current, Reason: reason})
}

func (e eventEmitterWrapper) OnConnectError(err error, attempt int, retryIn time.Duration) {
	e.handler.OnConnectError(ConnectErrorEvent{Error: err, Attempt: attempt, RetryIn: retryIn})
}

func (e eventEmitterWrapper) OnSendError(err error, streamIndex int) {
	e.handler.OnSendError(SendErrorEvent{Error: err, StreamIndex: streamIndex})
}

func (e eventEmitterWrapper) OnDeliveryError(err error, streamIndex int) {
	e.handler.OnDeliveryError(DeliveryErrorEvent{Error: err, StreamIndex: streamIndex})
}

func (e eventEmitterWrapper) OnReceiveRestart(err error) {
	e.handler.OnReceiveRestart(ReceiveRestartEvent{Error: err})
}
