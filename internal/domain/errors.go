package domain

import "errors"

// Domain errors classify every failure surfaced by the backplane.
// Wrapped errors keep both the class and the cause, so callers can check
// either with errors.Is.
var (
	// ErrConfiguration is returned for missing or invalid settings and for a
	// pre-existing collection that is not bounded. It is never retried.
	ErrConfiguration = errors.New("logbus: configuration error")

	// ErrConnect is returned when the log store cannot be reached or
	// initialized. The controller retries it until disposal.
	ErrConnect = errors.New("logbus: connect error")

	// ErrTransport is returned when an append fails while connected.
	ErrTransport = errors.New("logbus: transport error")

	// ErrTail is returned when the receive loop loses its tailing cursor.
	ErrTail = errors.New("logbus: tail error")

	// ErrDelivery wraps a subscriber or decode failure for a single record.
	ErrDelivery = errors.New("logbus: delivery error")

	// ErrEncoding is returned when a message batch cannot be encoded or decoded.
	ErrEncoding = errors.New("logbus: encoding error")

	// ErrDisposed is returned by operations issued after disposal started.
	ErrDisposed = errors.New("logbus: disposed")
)
