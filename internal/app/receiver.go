package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bft-labs/logbus/internal/codec"
	"github.com/bft-labs/logbus/internal/domain"
	"github.com/bft-labs/logbus/internal/ports"
	"github.com/bft-labs/logbus/pkg/lifecycle"
)

// Receiver is the tailing consumption loop. One generation runs per
// healthy connection.
type Receiver struct {
	ctrl *Controller
	sub  ports.Subscriber

	// mu serializes delivery across loop generations.
	mu sync.Mutex
}

func newReceiver(ctrl *Controller, sub ports.Subscriber) *Receiver {
	return &Receiver{ctrl: ctrl, sub: sub}
}

func (r *Receiver) active(ctx context.Context) bool {
	return ctx.Err() == nil && r.ctrl.State() == lifecycle.StateConnected
}

// Run tails the log from the minimum watermark until the state leaves
// Connected, ctx ends, or the store fails. A store failure marks the
// connection unhealthy and is returned wrapped in domain.ErrTail.
func (r *Receiver) Run(ctx context.Context) error {
	store := r.ctrl.store
	watermark := domain.MinRecordID
	r.ctrl.logger.Info("receive loop started",
		ports.String("store", store.Name()),
		ports.String("from", watermark.String()))

	for r.active(ctx) {
		cur, err := store.Tail(ctx, watermark)
		if err != nil {
			return r.fail(ctx, err)
		}

		yielded, err := r.drain(ctx, cur, &watermark)
		closeCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		_ = cur.Close(closeCtx)
		cancel()
		if err != nil {
			return r.fail(ctx, err)
		}

		// a cursor that dies before yielding anything would otherwise be
		// reopened in a tight loop
		if !yielded {
			r.sleep(ctx)
		}
	}
	return nil
}

// drain consumes cur until it dies or the loop must stop.
func (r *Receiver) drain(ctx context.Context, cur ports.Cursor, watermark *domain.RecordID) (bool, error) {
	yielded := false
	for r.active(ctx) {
		rec, ok, err := cur.TryNext(ctx)
		if err != nil {
			return yielded, err
		}
		if ok {
			yielded = true
			r.deliver(rec)
			if err := r.ctrl.store.MarkConsumed(ctx, rec.ID); err != nil {
				return yielded, err
			}
			*watermark = rec.ID
			continue
		}

		if !cur.Alive() {
			r.ctrl.logger.Debug("cursor dead, reopening", ports.String("from", watermark.String()))
			return yielded, nil
		}
		if !cur.AwaitCapable() {
			r.sleep(ctx)
		}
	}
	return yielded, nil
}

func (r *Receiver) fail(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	r.ctrl.markUnhealthy()
	err = fmt.Errorf("%w: %w", domain.ErrTail, err)
	r.ctrl.logger.Error("receive loop failed", ports.Err(err))
	return err
}

func (r *Receiver) sleep(ctx context.Context) {
	timer := time.NewTimer(r.ctrl.cfg.PollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// deliver hands one record to the subscriber. Failures are reported but
// never stop the loop; the caller marks the record consumed either way.
func (r *Receiver) deliver(rec domain.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()

	label := streamLabel(rec.StreamIndex)
	if err := r.invoke(rec); err != nil {
		err = fmt.Errorf("%w: record %s: %w", domain.ErrDelivery, rec.ID, err)
		r.ctrl.tm.incr(MetricDeliverErrorCount, label)
		r.ctrl.logger.Error("error delivering record",
			ports.Err(err),
			ports.Int("stream", rec.StreamIndex),
			ports.Int("bytes", len(rec.Value)))
		r.ctrl.emitter.OnDeliveryError(err, rec.StreamIndex)
		r.reportError(rec.StreamIndex, err)
		return
	}
	r.ctrl.tm.incr(MetricDeliverCount, label)
}

func (r *Receiver) invoke(rec domain.Record) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("subscriber panic: %v", p)
		}
	}()

	msgs, err := codec.Decode(rec.Value)
	if err != nil {
		return err
	}
	return r.sub.OnReceived(rec.StreamIndex, rec.OrderingToken(), msgs)
}

func (r *Receiver) reportError(streamIndex int, err error) {
	defer func() {
		if p := recover(); p != nil {
			r.ctrl.logger.Error("subscriber error hook panicked", ports.String("panic", fmt.Sprint(p)))
		}
	}()
	r.sub.OnError(streamIndex, err)
}
