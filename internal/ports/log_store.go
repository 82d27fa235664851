package ports

import (
	"context"

	"github.com/bft-labs/logbus/internal/domain"
)

// LogStore owns the bounded append-only collection backing the backplane.
// Implementations must be safe for concurrent Append calls; Tail and
// MarkConsumed are only used by the single active receive loop.
type LogStore interface {
	// Open connects to the store and ensures the bounded collection exists.
	// A missing collection is created with its size and count caps and one
	// consumed sentinel record. An existing collection that is not bounded
	// yields domain.ErrConfiguration. Opening an already initialized
	// collection is a no-op.
	Open(ctx context.Context) error

	// Append durably stores rec as unconsumed and returns the assigned ID.
	Append(ctx context.Context, rec domain.Record) (domain.RecordID, error)

	// Tail opens a cursor over records with ID > after and unconsumed status,
	// in increasing ID order.
	Tail(ctx context.Context, after domain.RecordID) (Cursor, error)

	// MarkConsumed flips the status of the record to consumed in place.
	MarkConsumed(ctx context.Context, id domain.RecordID) error

	// Healthy reports whether the store session is believed connected.
	Healthy() bool

	// Close disconnects from the store. It is safe to call more than once.
	Close(ctx context.Context) error

	// Name returns a short description of the target for logs.
	Name() string
}

// Cursor is a tailing read handle returned by LogStore.Tail.
type Cursor interface {
	// TryNext returns the next matching record. When nothing new is
	// available it returns ok=false and a nil error; await-capable cursors
	// block for a bounded time before doing so.
	TryNext(ctx context.Context) (rec domain.Record, ok bool, err error)

	// Alive reports whether the cursor can still yield records. A dead
	// cursor must be closed and a new one opened from the last watermark.
	Alive() bool

	// AwaitCapable reports whether TryNext already waits server-side for
	// new data, so callers need no explicit poll sleep.
	AwaitCapable() bool

	// Close releases the cursor.
	Close(ctx context.Context) error
}
