package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hashicorp/go-metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/logbus/internal/adapters/pebblelog"
	"github.com/bft-labs/logbus/internal/domain"
)

func newPebbleStore(t *testing.T, name string) *pebblelog.Store {
	t.Helper()
	s, err := pebblelog.New(pebblelog.Config{
		Target:       "mem://app-" + name,
		Collection:   "messagebus",
		MaxBytes:     1 << 20,
		MaxRecords:   1000,
		AwaitTimeout: 50 * time.Millisecond,
	})
	require.NoError(t, err)
	return s
}

func startController(t *testing.T, c *Controller) {
	t.Helper()
	c.Start()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, c.WaitConnected(ctx))
	t.Cleanup(func() {
		c.Dispose()
		_ = c.Wait(2 * time.Second)
	})
}

func TestStreamOrderScenario(t *testing.T) {
	store := newPebbleStore(t, t.Name())
	sub := newRecordingSubscriber()
	c := NewController(testConfig(), store, sub, nil, nil, nil)
	startController(t, c)
	sender := NewSender(c)

	for _, s := range []struct {
		stream int
		value  string
	}{{1, "A"}, {2, "B"}, {1, "C"}} {
		_, err := sender.Send(context.Background(), s.stream, msgs(s.value))
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		return len(sub.stream(1)) == 2 && len(sub.stream(2)) == 1
	}, 3*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"A", "C"}, sub.stream(1))
	assert.Equal(t, []string{"B"}, sub.stream(2))

	// every delivered record is consumed: a fresh cursor sees nothing
	cur, err := store.Tail(context.Background(), domain.MinRecordID)
	require.NoError(t, err)
	_, ok, err := cur.TryNext(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFailedDeliveryIsNotRedelivered(t *testing.T) {
	store := &fakeStore{}
	sub := newRecordingSubscriber()
	failed := false
	sub.onReceived = func(streamIndex int, m []domain.Message) error {
		if string(m[0].Value) == "poison" && !failed {
			failed = true
			return errors.New("hub unavailable")
		}
		return nil
	}
	c := NewController(testConfig(), store, sub, nil, nil, nil)
	startController(t, c)
	sender := NewSender(c)

	_, err := sender.Send(context.Background(), 3, msgs("poison"))
	require.NoError(t, err)
	_, err = sender.Send(context.Background(), 3, msgs("after"))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(sub.stream(3)) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"after"}, sub.stream(3))
	assert.Zero(t, store.unconsumed())

	sub.mu.Lock()
	require.Len(t, sub.errs, 1)
	assert.ErrorIs(t, sub.errs[0], domain.ErrDelivery)
	assert.Equal(t, 3, sub.errStreams[0])
	sub.mu.Unlock()

	// a new loop generation starts from the minimum watermark and must not
	// see the failed record again
	store.mu.Lock()
	store.nextErr = errors.New("connection reset")
	store.mu.Unlock()
	_, err = sender.Send(context.Background(), 3, msgs("later"))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(sub.stream(3)) == 2 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{"after", "later"}, sub.stream(3))
	assert.Equal(t, 1, sub.errorCount())
}

func TestSubscriberPanicIsRecovered(t *testing.T) {
	store := &fakeStore{}
	sub := newRecordingSubscriber()
	sub.onReceived = func(_ int, m []domain.Message) error {
		if string(m[0].Value) == "boom" {
			panic("subscriber bug")
		}
		return nil
	}
	c := NewController(testConfig(), store, sub, nil, nil, nil)
	startController(t, c)
	sender := NewSender(c)

	_, err := sender.Send(context.Background(), 0, msgs("boom"))
	require.NoError(t, err)
	_, err = sender.Send(context.Background(), 0, msgs("fine"))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(sub.stream(0)) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, sub.errorCount())
	assert.True(t, c.Healthy())
}

func TestUndecodableRecordReportsDeliveryError(t *testing.T) {
	store := &fakeStore{}
	sub := newRecordingSubscriber()
	c := NewController(testConfig(), store, sub, nil, nil, nil)
	startController(t, c)

	_, err := store.Append(context.Background(), domain.Record{StreamIndex: 5, Value: []byte{0x12, 0xff}})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return sub.errorCount() == 1 }, 2*time.Second, 5*time.Millisecond)
	sub.mu.Lock()
	assert.ErrorIs(t, sub.errs[0], domain.ErrDelivery)
	assert.ErrorIs(t, sub.errs[0], domain.ErrEncoding)
	assert.Equal(t, 5, sub.errStreams[0])
	sub.mu.Unlock()
	assert.Zero(t, store.unconsumed())
}

func TestSendErrors(t *testing.T) {
	store := &fakeStore{}
	em := &recordingEmitter{}
	c := NewController(testConfig(), store, newRecordingSubscriber(), nil, em, nil)
	startController(t, c)
	sender := NewSender(c)

	_, err := sender.Send(context.Background(), 0, nil)
	assert.ErrorIs(t, err, domain.ErrEncoding)

	store.mu.Lock()
	store.appendErr = errors.New("not primary")
	store.mu.Unlock()
	_, err = sender.Send(context.Background(), 0, msgs("x"))
	assert.ErrorIs(t, err, domain.ErrTransport)
	_, _, appends := store.counts()
	assert.Equal(t, 1, appends, "append must not be retried")

	em.mu.Lock()
	assert.Equal(t, 1, em.sendErrors)
	em.mu.Unlock()

	c.Dispose()
	_, err = sender.Send(context.Background(), 0, msgs("late"))
	assert.ErrorIs(t, err, domain.ErrDisposed)
}

func TestSendConnectsWhenUnhealthy(t *testing.T) {
	store := &fakeStore{}
	c := NewController(testConfig(), store, newRecordingSubscriber(), nil, nil, nil)
	t.Cleanup(c.Dispose)

	id, err := NewSender(c).Send(context.Background(), 0, msgs("first"))
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	opens, _, appends := store.counts()
	assert.Equal(t, 1, opens)
	assert.Equal(t, 1, appends)
}

func TestSendMetrics(t *testing.T) {
	sink := metrics.NewInmemSink(time.Minute, time.Minute)
	store := &fakeStore{}
	c := NewController(testConfig(), store, newRecordingSubscriber(), nil, nil, sink)
	startController(t, c)

	_, err := NewSender(c).Send(context.Background(), 7, msgs("m"))
	require.NoError(t, err)

	found := false
	for _, interval := range sink.Data() {
		interval.RLock()
		for key, counter := range interval.Counters {
			if strings.HasPrefix(key, "logbus.send.count") {
				found = true
				assert.Contains(t, key, "stream=7")
				assert.Contains(t, key, "instance=test")
				assert.EqualValues(t, 1, counter.Count)
			}
		}
		interval.RUnlock()
	}
	assert.True(t, found, "send counter not emitted")
}
