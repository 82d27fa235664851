package logbus

import (
	"github.com/bft-labs/logbus/internal/domain"
	"github.com/bft-labs/logbus/internal/ports"
)

// Re-exported types so hosts need only this package.
type (
	// Message is one application message inside a batch.
	Message = domain.Message

	// Record is the stored unit of the log.
	Record = domain.Record

	// RecordID is a store-assigned, ordered record identifier.
	RecordID = domain.RecordID

	// Subscriber receives decoded batches from the receive loop.
	Subscriber = ports.Subscriber

	// StreamObserver is optionally implemented by a Subscriber to learn
	// which streams are open once connected.
	StreamObserver = ports.StreamObserver

	// LogStore is the bounded log a backplane runs on.
	LogStore = ports.LogStore

	// Cursor is a tailing read handle of a LogStore.
	Cursor = ports.Cursor
)

// Error classes. Test with errors.Is.
var (
	ErrConfiguration = domain.ErrConfiguration
	ErrConnect       = domain.ErrConnect
	ErrTransport     = domain.ErrTransport
	ErrTail          = domain.ErrTail
	ErrDelivery      = domain.ErrDelivery
	ErrEncoding      = domain.ErrEncoding
	ErrDisposed      = domain.ErrDisposed
)

// SubscriberFuncs adapts plain functions to Subscriber. A nil Received
// accepts every batch; a nil Error ignores failures.
type SubscriberFuncs struct {
	Received func(streamIndex int, token uint64, msgs []Message) error
	Error    func(streamIndex int, err error)
}

func (f SubscriberFuncs) OnReceived(streamIndex int, token uint64, msgs []Message) error {
	if f.Received == nil {
		return nil
	}
	return f.Received(streamIndex, token, msgs)
}

func (f SubscriberFuncs) OnError(streamIndex int, err error) {
	if f.Error != nil {
		f.Error(streamIndex, err)
	}
}
var _ ports.Subscriber = SubscriberFuncs{}
