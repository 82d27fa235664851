package app

import (
	"time"

	"github.com/bft-labs/logbus/pkg/lifecycle"
)

// EventEmitter receives notifications from the controller, the send path
// and the receive loop. Calls are synchronous.
type EventEmitter interface {
	lifecycle.EventEmitter
	OnConnectError(err error, attempt int, retryIn time.Duration)
	OnReceiveRestart(err error)
	OnSendError(err error, streamIndex int)
	OnDeliveryError(err error, streamIndex int)
}

// NoopEmitter discards every event.
type NoopEmitter struct{}

func (NoopEmitter) OnStateChange(lifecycle.State, lifecycle.State, string) {}
func (NoopEmitter) OnConnectError(error, int, time.Duration)               {}
func (NoopEmitter) OnReceiveRestart(error)                                 {}
func (NoopEmitter) OnSendError(error, int)                                 {}
func (NoopEmitter) OnDeliveryError(error, int)                             {}

// stateObserver records the state gauge before forwarding.
type stateObserver struct {
	tm   telemetry
	next EventEmitter
}

func (o stateObserver) OnStateChange(previous, current lifecycle.State, reason string) {
	o.tm.state(current)
	o.next.OnStateChange(previous, current, reason)
}
