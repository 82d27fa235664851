package ports

import "github.com/bft-labs/logbus/internal/domain"

// Subscriber receives the records consumed by the receive loop.
// Both callbacks run on the receive loop goroutine and must return promptly.
type Subscriber interface {
	// OnReceived is invoked once per consumed record, in per-stream order.
	// A returned error is reported through OnError; the record is still
	// marked consumed and is not delivered again.
	OnReceived(streamIndex int, token uint64, msgs []domain.Message) error

	// OnError is invoked when delivering or decoding a record fails.
	OnError(streamIndex int, err error)
}

// StreamObserver is optionally implemented by a Subscriber that tracks
// which streams are open. OnStreamOpen is called for every configured
// stream after the first successful connection.
type StreamObserver interface {
	OnStreamOpen(streamIndex int)
}
