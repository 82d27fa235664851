package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bft-labs/logbus/internal/codec"
	"github.com/bft-labs/logbus/internal/domain"
	"github.com/bft-labs/logbus/internal/ports"
)

// Sender is the append path. It is safe for concurrent use.
type Sender struct {
	ctrl *Controller
}

// NewSender returns the send path of ctrl.
func NewSender(ctrl *Controller) *Sender {
	return &Sender{ctrl: ctrl}
}

// Send encodes msgs and appends them as one record. When the connection is
// not healthy it waits for a connect first. Append failures are returned
// as domain.ErrTransport and never retried here. When the store reports
// its session broken by the failure, the next Send reconnects first.
func (s *Sender) Send(ctx context.Context, streamIndex int, msgs []domain.Message) (domain.RecordID, error) {
	c := s.ctrl
	start := time.Now()
	label := streamLabel(streamIndex)
	c.logger.Debug("send called", ports.Int("stream", streamIndex), ports.Int("messages", len(msgs)))

	payload, err := codec.Encode(streamIndex, msgs)
	if err != nil {
		return nil, err
	}
	if c.disposing() {
		return nil, domain.ErrDisposed
	}

	if !c.Healthy() {
		if err := c.EnsureConnected(ctx); err != nil {
			if !errors.Is(err, domain.ErrConnect) && !errors.Is(err, domain.ErrDisposed) {
				err = fmt.Errorf("%w: %w", domain.ErrConnect, err)
			}
			s.failed(err, streamIndex)
			return nil, err
		}
	}

	id, err := c.store.Append(ctx, domain.Record{StreamIndex: streamIndex, Value: payload})
	if err != nil {
		err = fmt.Errorf("%w: append to stream %d: %w", domain.ErrTransport, streamIndex, err)
		if !c.store.Healthy() {
			// the next Send reconnects
			c.markUnhealthy()
		}
		s.failed(err, streamIndex)
		return nil, err
	}

	c.tm.incr(MetricSendCount, label)
	c.tm.since(MetricSendLatency, start, label)
	c.logger.Debug("record appended", ports.Stringer("id", id), ports.Int("stream", streamIndex))
	return id, nil
}

func (s *Sender) failed(err error, streamIndex int) {
	s.ctrl.tm.incr(MetricSendErrorCount, streamLabel(streamIndex))
	s.ctrl.emitter.OnSendError(err, streamIndex)
}
