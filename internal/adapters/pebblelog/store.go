// Package pebblelog implements the bounded tailing log on an embedded
// Pebble database. It emulates a capped collection: a fixed size and record
// count, oldest-first eviction, in-place status updates and cursors that
// wait for new appends.
package pebblelog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/bft-labs/logbus/internal/domain"
	"github.com/bft-labs/logbus/internal/ports"
	pebblestore "github.com/bft-labs/logbus/internal/storage/pebble"
)

var errClosed = errors.New("pebblelog: store closed")

const defaultAwaitTimeout = time.Second

// Config configures a Store.
type Config struct {
	// Target is mem://name, pebble:///dir or a plain directory.
	Target string
	// Collection names the bounded collection.
	Collection string
	// MaxBytes caps the summed size of stored entries.
	MaxBytes int64
	// MaxRecords caps the number of stored entries.
	MaxRecords int64
	// AwaitTimeout bounds how long TryNext waits for an append.
	AwaitTimeout time.Duration
	// DisableAwait makes cursors return immediately, like a store that
	// cannot block server-side.
	DisableAwait bool
	// Logger receives lifecycle messages. Nil discards them.
	Logger ports.Logger
}

// Store is a ports.LogStore on an embedded Pebble database.
type Store struct {
	cfg    Config
	target target
	logger ports.Logger

	mu     sync.Mutex
	eng    *engine
	closed bool

	done    chan struct{}
	healthy atomic.Bool
}

var _ ports.LogStore = (*Store)(nil)

// New validates cfg and returns an unopened Store.
func New(cfg Config) (*Store, error) {
	t, err := parseTarget(cfg.Target)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}
	if cfg.Collection == "" || strings.ContainsRune(cfg.Collection, '/') {
		return nil, fmt.Errorf("%w: invalid collection name %q", domain.ErrConfiguration, cfg.Collection)
	}
	if cfg.MaxBytes <= 0 || cfg.MaxRecords <= 0 {
		return nil, fmt.Errorf("%w: collection caps must be positive", domain.ErrConfiguration)
	}
	if cfg.AwaitTimeout <= 0 {
		cfg.AwaitTimeout = defaultAwaitTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = ports.NoopLogger{}
	}

	return &Store{
		cfg:    cfg,
		target: t,
		logger: logger,
		done:   make(chan struct{}),
	}, nil
}

// Name describes the target and collection.
func (s *Store) Name() string {
	return s.target.key + "#" + s.cfg.Collection
}

// Healthy reports whether the store is open.
func (s *Store) Healthy() bool {
	return s.healthy.Load()
}

// Open attaches to the shared engine of the target and ensures the
// collection exists.
func (s *Store) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}
	if s.eng == nil {
		eng, err := acquire(s.target)
		if err != nil {
			return err
		}
		s.eng = eng
		s.logger.Info("opened database", ports.String("target", s.target.key))
	}

	if err := s.ensureCollection(); err != nil {
		return err
	}
	s.healthy.Store(true)
	return nil
}

func (s *Store) ensureCollection() error {
	e := s.eng
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return errClosed
	}

	coll := s.cfg.Collection
	cs := e.collection(coll)
	if cs.loaded {
		return nil
	}

	raw, err := e.db.Get(keyMeta(coll))
	switch {
	case err == nil:
		m, err := decodeMeta(raw)
		if err != nil {
			return fmt.Errorf("pebblelog: collection %s metadata: %w", coll, err)
		}
		if !m.Capped {
			return fmt.Errorf("%w: collection %s exists but is not capped", domain.ErrConfiguration, coll)
		}
		cs.meta, cs.loaded = m, true
		cs.ids.seed(m.LastID)
		s.logger.Info("opened collection",
			ports.String("collection", coll),
			ports.Int64("records", m.Count))
		return nil
	case !errors.Is(err, pebblestore.ErrNotFound):
		return err
	}

	id := cs.ids.next()
	sentinel := encodeEntry(domain.StatusConsumed, 0, nil)
	m := meta{
		Capped:     true,
		MaxBytes:   s.cfg.MaxBytes,
		MaxRecords: s.cfg.MaxRecords,
		Count:      1,
		Bytes:      int64(len(sentinel)),
		LastID:     id,
	}

	b := e.db.NewBatch()
	if err := b.Set(keyEntry(coll, id), sentinel, nil); err != nil {
		b.Close()
		return err
	}
	if err := b.Set(keyMeta(coll), encodeMeta(m), nil); err != nil {
		b.Close()
		return err
	}
	if err := e.db.Commit(b); err != nil {
		return err
	}

	cs.meta, cs.loaded = m, true
	cs.wake()
	s.logger.Info("created capped collection",
		ports.String("collection", coll),
		ports.Int64("max_bytes", m.MaxBytes),
		ports.Int64("max_records", m.MaxRecords))
	return nil
}

func (s *Store) engine() (*engine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errClosed
	}
	if s.eng == nil {
		return nil, errors.New("pebblelog: store not opened")
	}
	return s.eng, nil
}

// Append stores rec as unconsumed and evicts the oldest entries while the
// collection exceeds either cap.
func (s *Store) Append(ctx context.Context, rec domain.Record) (domain.RecordID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e, err := s.engine()
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, errClosed
	}
	coll := s.cfg.Collection
	cs := e.collection(coll)
	if !cs.loaded {
		s.healthy.Store(false)
		return nil, fmt.Errorf("pebblelog: collection %s does not exist", coll)
	}

	val := encodeEntry(domain.StatusUnconsumed, rec.StreamIndex, rec.Value)
	size := int64(len(val))
	if size > cs.meta.MaxBytes {
		return nil, fmt.Errorf("pebblelog: record of %d bytes exceeds collection size %d", size, cs.meta.MaxBytes)
	}

	id := cs.ids.next()
	m := cs.meta
	m.Count++
	m.Bytes += size
	m.LastID = id

	b := e.db.NewBatch()
	if err := b.Set(keyEntry(coll, id), val, nil); err != nil {
		b.Close()
		return nil, err
	}
	if m.Count > m.MaxRecords || m.Bytes > m.MaxBytes {
		if err := s.evict(e, b, &m); err != nil {
			b.Close()
			return nil, err
		}
	}
	if err := b.Set(keyMeta(coll), encodeMeta(m), nil); err != nil {
		b.Close()
		return nil, err
	}
	if err := e.db.Commit(b); err != nil {
		return nil, err
	}

	cs.meta = m
	cs.wake()
	return id, nil
}

// evict adds deletes of the oldest committed entries to b until m is
// within its caps. The entry being appended is not visible to the iterator.
func (s *Store) evict(e *engine, b *pebble.Batch, m *meta) error {
	coll := s.cfg.Collection
	it, err := e.db.NewIter(entryPrefix(coll), entryUpper(coll))
	if err != nil {
		return err
	}
	defer it.Close()

	for it.First(); it.Valid() && (m.Count > m.MaxRecords || m.Bytes > m.MaxBytes); it.Next() {
		if err := b.Delete(bytes.Clone(it.Key()), nil); err != nil {
			return err
		}
		m.Count--
		m.Bytes -= int64(len(it.Value()))
	}
	return it.Error()
}

// MarkConsumed flips a record to consumed. A record that was already
// evicted is ignored.
func (s *Store) MarkConsumed(ctx context.Context, id domain.RecordID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e, err := s.engine()
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return errClosed
	}

	key := keyEntry(s.cfg.Collection, id)
	raw, err := e.db.Get(key)
	if errors.Is(err, pebblestore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	ent, err := decodeEntry(raw)
	if err != nil {
		return err
	}
	if ent.status == domain.StatusConsumed {
		return nil
	}
	return e.db.Set(key, encodeEntry(domain.StatusConsumed, ent.stream, ent.payload))
}

// Tail opens a cursor over unconsumed records with ID > after.
func (s *Store) Tail(ctx context.Context, after domain.RecordID) (ports.Cursor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e, err := s.engine()
	if err != nil {
		return nil, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, errClosed
	}
	cs := e.collection(s.cfg.Collection)
	if !cs.loaded {
		return nil, fmt.Errorf("pebblelog: collection %s does not exist", s.cfg.Collection)
	}

	return &cursor{
		store: s,
		eng:   e,
		cs:    cs,
		gen:   cs.gen,
		after: append(domain.RecordID(nil), after...),
		alive: true,
	}, nil
}

// Drop deletes the collection. Open cursors die and appends fail until the
// collection is opened again.
func (s *Store) Drop(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e, err := s.engine()
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return errClosed
	}
	lower, upper := collectionBounds(s.cfg.Collection)
	if err := e.db.DeleteRange(lower, upper); err != nil {
		return err
	}
	cs := e.collection(s.cfg.Collection)
	cs.loaded = false
	cs.meta = meta{}
	cs.gen++
	cs.wake()
	s.logger.Info("dropped collection", ports.String("collection", s.cfg.Collection))
	return nil
}

// Close detaches from the engine; the last store on a target closes the
// database.
func (s *Store) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.healthy.Store(false)
	close(s.done)

	if s.eng == nil {
		return nil
	}
	err := s.eng.release()
	s.eng = nil
	return err
}
