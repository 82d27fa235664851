package pebblelog

import (
	"bytes"
	"context"
	"time"

	"github.com/bft-labs/logbus/internal/domain"
	"github.com/bft-labs/logbus/internal/ports"
)

// cursor tails one collection. pos is the last entry it scanned, consumed
// or not; if that entry gets evicted the cursor has lost its place and dies.
type cursor struct {
	store *Store
	eng   *engine
	cs    *collState
	gen   uint64
	after domain.RecordID
	pos   domain.RecordID
	alive bool
}

var _ ports.Cursor = (*cursor)(nil)

func (c *cursor) AwaitCapable() bool { return !c.store.cfg.DisableAwait }

func (c *cursor) Alive() bool {
	if !c.alive {
		return false
	}
	select {
	case <-c.store.done:
		c.alive = false
	default:
	}
	return c.alive
}

func (c *cursor) Close(context.Context) error {
	c.alive = false
	return nil
}

// TryNext returns the next unconsumed record. An await-capable cursor
// blocks up to AwaitTimeout for an append before reporting nothing new.
func (c *cursor) TryNext(ctx context.Context) (domain.Record, bool, error) {
	for waited := false; ; waited = true {
		if !c.Alive() {
			return domain.Record{}, false, nil
		}
		rec, ok, notify, err := c.scan()
		if err != nil || ok || !c.alive {
			return rec, ok, err
		}
		if waited || !c.AwaitCapable() {
			return domain.Record{}, false, nil
		}

		timer := time.NewTimer(c.store.cfg.AwaitTimeout)
		select {
		case <-notify:
			timer.Stop()
		case <-timer.C:
			return domain.Record{}, false, nil
		case <-c.store.done:
			timer.Stop()
			c.alive = false
			return domain.Record{}, false, nil
		case <-ctx.Done():
			timer.Stop()
			return domain.Record{}, false, ctx.Err()
		}
	}
}

// scan looks for the next unconsumed entry after the cursor position. It
// also returns the append notification channel current at scan time, so an
// append that lands after the scan always wakes the waiter.
func (c *cursor) scan() (domain.Record, bool, <-chan struct{}, error) {
	e := c.eng
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed || c.cs.gen != c.gen || !c.cs.loaded {
		c.alive = false
		return domain.Record{}, false, nil, nil
	}
	notify := c.cs.notify

	coll := c.store.cfg.Collection
	it, err := e.db.NewIter(entryPrefix(coll), entryUpper(coll))
	if err != nil {
		return domain.Record{}, false, nil, err
	}
	defer it.Close()

	switch {
	case c.pos != nil:
		posKey := keyEntry(coll, c.pos)
		if !it.SeekGE(posKey) || !bytes.Equal(it.Key(), posKey) {
			c.alive = false
			return domain.Record{}, false, nil, it.Error()
		}
		it.Next()
	case !c.after.IsMin():
		it.SeekGE(append(keyEntry(coll, c.after), 0))
	default:
		it.First()
	}

	for ; it.Valid(); it.Next() {
		id := idFromEntryKey(coll, it.Key())
		ent, err := decodeEntry(it.Value())
		if err != nil {
			return domain.Record{}, false, nil, err
		}
		c.pos = id
		if ent.status == domain.StatusConsumed {
			continue
		}
		return domain.Record{
			ID:          id,
			StreamIndex: ent.stream,
			Value:       bytes.Clone(ent.payload),
			Status:      ent.status,
			Created:     idTime(id),
		}, true, notify, nil
	}
	return domain.Record{}, false, notify, it.Error()
}
