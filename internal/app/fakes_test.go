package app

import (
	"context"
	"encoding/binary"
	"strings"
	"sync"
	"time"

	"github.com/bft-labs/logbus/internal/domain"
	"github.com/bft-labs/logbus/internal/ports"
	"github.com/bft-labs/logbus/pkg/lifecycle"
)

// fakeStore is an in-memory LogStore with injectable failures.
type fakeStore struct {
	mu           sync.Mutex
	openFn       func(ctx context.Context, n int) error
	opens        int
	closes       int
	appends      int
	appendErr    error
	appendBreaks bool // a failed append clears healthy
	tailErr      error
	nextErr      error
	records      []domain.Record
	seq          uint64
	healthy      bool
}

var _ ports.LogStore = (*fakeStore)(nil)

func (f *fakeStore) Open(ctx context.Context) error {
	f.mu.Lock()
	f.opens++
	n, fn := f.opens, f.openFn
	f.mu.Unlock()

	if fn != nil {
		if err := fn(ctx, n); err != nil {
			return err
		}
	}
	f.mu.Lock()
	f.healthy = true
	f.mu.Unlock()
	return nil
}

func (f *fakeStore) Append(_ context.Context, rec domain.Record) (domain.RecordID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appends++
	if f.appendErr != nil {
		if f.appendBreaks {
			f.healthy = false
		}
		return nil, f.appendErr
	}
	f.seq++
	id := binary.BigEndian.AppendUint64(nil, f.seq)
	rec.ID = id
	rec.Status = domain.StatusUnconsumed
	f.records = append(f.records, rec)
	return id, nil
}

func (f *fakeStore) Tail(_ context.Context, after domain.RecordID) (ports.Cursor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tailErr != nil {
		err := f.tailErr
		f.tailErr = nil
		return nil, err
	}
	return &fakeCursor{store: f, pos: append(domain.RecordID(nil), after...)}, nil
}

func (f *fakeStore) MarkConsumed(_ context.Context, id domain.RecordID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.records {
		if f.records[i].ID.Compare(id) == 0 {
			f.records[i].Status = domain.StatusConsumed
		}
	}
	return nil
}

func (f *fakeStore) Healthy() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.healthy
}

func (f *fakeStore) Close(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	f.healthy = false
	return nil
}

func (f *fakeStore) Name() string { return "fake" }

func (f *fakeStore) counts() (opens, closes, appends int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens, f.closes, f.appends
}

func (f *fakeStore) unconsumed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.records {
		if r.Status == domain.StatusUnconsumed {
			n++
		}
	}
	return n
}

type fakeCursor struct {
	store *fakeStore
	pos   domain.RecordID
}

func (c *fakeCursor) TryNext(context.Context) (domain.Record, bool, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if err := c.store.nextErr; err != nil {
		c.store.nextErr = nil
		return domain.Record{}, false, err
	}
	for _, r := range c.store.records {
		if r.ID.Compare(c.pos) <= 0 {
			continue
		}
		c.pos = r.ID
		if r.Status == domain.StatusUnconsumed {
			return r, true, nil
		}
	}
	return domain.Record{}, false, nil
}

func (c *fakeCursor) Alive() bool                 { return true }
func (c *fakeCursor) AwaitCapable() bool          { return false }
func (c *fakeCursor) Close(context.Context) error { return nil }

// recordingSubscriber collects deliveries per stream.
type recordingSubscriber struct {
	mu         sync.Mutex
	got        map[int][]string
	errStreams []int
	errs       []error
	opened     []int
	onReceived func(streamIndex int, msgs []domain.Message) error
}

func newRecordingSubscriber() *recordingSubscriber {
	return &recordingSubscriber{got: make(map[int][]string)}
}

func (s *recordingSubscriber) OnReceived(streamIndex int, _ uint64, msgs []domain.Message) error {
	if s.onReceived != nil {
		if err := s.onReceived(streamIndex, msgs); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	vals := make([]string, 0, len(msgs))
	for _, m := range msgs {
		vals = append(vals, string(m.Value))
	}
	s.got[streamIndex] = append(s.got[streamIndex], strings.Join(vals, ","))
	return nil
}

func (s *recordingSubscriber) OnError(streamIndex int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errStreams = append(s.errStreams, streamIndex)
	s.errs = append(s.errs, err)
}

func (s *recordingSubscriber) OnStreamOpen(streamIndex int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened = append(s.opened, streamIndex)
}

func (s *recordingSubscriber) stream(i int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.got[i]...)
}

func (s *recordingSubscriber) errorCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.errs)
}

// recordingEmitter counts controller events.
type recordingEmitter struct {
	NoopEmitter
	mu            sync.Mutex
	states        []lifecycle.State
	connectErrors []time.Time
	restarts      int
	sendErrors    int
}

func (e *recordingEmitter) OnStateChange(_, current lifecycle.State, _ string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.states = append(e.states, current)
}

func (e *recordingEmitter) OnConnectError(error, int, time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.connectErrors = append(e.connectErrors, time.Now())
}

func (e *recordingEmitter) OnReceiveRestart(error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.restarts++
}

func (e *recordingEmitter) OnSendError(error, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sendErrors++
}

func (e *recordingEmitter) snapshot() (states []lifecycle.State, connectErrors []time.Time, restarts int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]lifecycle.State(nil), e.states...), append([]time.Time(nil), e.connectErrors...), e.restarts
}

func msgs(values ...string) []domain.Message {
	out := make([]domain.Message, 0, len(values))
	for _, v := range values {
		out = append(out, domain.Message{Key: "k", Value: []byte(v)})
	}
	return out
}
