package pebblestore

import (
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = pebble.ErrNotFound

// SyncMode defines durability behavior for commits.
type SyncMode int

const (
	// SyncGrouped lets Pebble coalesce WAL syncs within SyncInterval.
	SyncGrouped SyncMode = iota
	// SyncAlways fsyncs the WAL on each commit.
	SyncAlways
	// SyncNever leaves WAL syncing to Pebble's own policy.
	SyncNever
)

const defaultSyncInterval = 5 * time.Millisecond

// Options configures Open.
type Options struct {
	// DataDir is the database directory. Required, also for in-memory
	// filesystems.
	DataDir string
	// FS overrides the filesystem. Nil means the OS filesystem.
	FS vfs.FS
	// Sync selects the commit durability.
	Sync SyncMode
	// SyncInterval bounds WAL group commit for SyncGrouped.
	SyncInterval time.Duration
	// Pebble allows advanced tuning. Nil uses Pebble defaults.
	Pebble *pebble.Options
}

// DB is a Pebble database with a fixed commit policy.
type DB struct {
	inner     *pebble.DB
	writeSync bool
}

// Open creates or opens the database described by opts.
func Open(opts Options) (*DB, error) {
	if opts.DataDir == "" {
		return nil, errors.New("pebblestore: DataDir is required")
	}

	po := opts.Pebble
	if po == nil {
		po = &pebble.Options{}
	}
	if opts.FS != nil {
		po.FS = opts.FS
	}

	if opts.Sync == SyncGrouped {
		interval := opts.SyncInterval
		if interval <= 0 {
			interval = defaultSyncInterval
		}
		po.WALMinSyncInterval = func() time.Duration { return interval }
	}

	inner, err := pebble.Open(opts.DataDir, po)
	if err != nil {
		return nil, fmt.Errorf("pebblestore: open %s: %w", opts.DataDir, err)
	}
	return &DB{inner: inner, writeSync: opts.Sync != SyncNever}, nil
}

// Close closes the database. Calling it on a nil DB is a no-op.
func (db *DB) Close() error {
	if db == nil || db.inner == nil {
		return nil
	}
	return db.inner.Close()
}

// NewBatch creates a batch for atomic multi-key updates.
func (db *DB) NewBatch() *pebble.Batch {
	return db.inner.NewBatch()
}

// Commit applies b with the configured sync policy and closes it.
func (db *DB) Commit(b *pebble.Batch) error {
	if b == nil {
		return errors.New("pebblestore: nil batch")
	}
	defer b.Close()

	opts := pebble.NoSync
	if db.writeSync {
		opts = pebble.Sync
	}
	return b.Commit(opts)
}

// Set writes a single key.
func (db *DB) Set(key, value []byte) error {
	b := db.inner.NewBatch()
	if err := b.Set(key, value, nil); err != nil {
		b.Close()
		return err
	}
	return db.Commit(b)
}

// Get returns a copy of the value stored under key, or ErrNotFound.
func (db *DB) Get(key []byte) ([]byte, error) {
	val, closer, err := db.inner.Get(key)
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return append([]byte(nil), val...), nil
}

// NewIter returns an iterator over [lower, upper).
func (db *DB) NewIter(lower, upper []byte) (*pebble.Iterator, error) {
	return db.inner.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
}

// DeleteRange removes every key in [start, end).
func (db *DB) DeleteRange(start, end []byte) error {
	b := db.inner.NewBatch()
	if err := b.DeleteRange(start, end, nil); err != nil {
		b.Close()
		return err
	}
	return db.Commit(b)
}
