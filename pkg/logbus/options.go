package logbus

import (
	"github.com/hashicorp/go-metrics"

	"github.com/bft-labs/logbus/internal/ports"
	"github.com/bft-labs/logbus/pkg/log"
)

// Logger is the structured logging interface from pkg/log.
type Logger = log.Logger

// Option configures optional behavior of a Backplane.
type Option func(*options)

type options struct {
	logger       Logger
	store        ports.LogStore
	eventHandler EventHandler
	metricSink   metrics.MetricSink
	instanceID   string
	sendOnly     bool
}

func defaultOptions() options {
	return options{
		logger:     log.NoopLogger{},
		metricSink: &metrics.BlackholeSink{},
	}
}

// WithLogger sets a custom logger.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithStore replaces the store selected by Config.ConnectionString. The
// backplane takes ownership and closes it on Close.
func WithStore(store LogStore) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithEventHandler sets a handler for backplane events.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithMetricSink sends metrics to sink instead of discarding them.
func WithMetricSink(sink metrics.MetricSink) Option {
	return func(o *options) {
		if sink != nil {
			o.metricSink = sink
		}
	}
}

// WithInstanceID overrides the generated instance identifier used in logs
// and metric labels.
func WithInstanceID(id string) Option {
	return func(o *options) {
		o.instanceID = id
	}
}

// WithSendOnly disables the receive loop. The backplane appends records
// but never tails or consumes any, so the subscriber may be nil.
func WithSendOnly() Option {
	return func(o *options) {
		o.sendOnly = true
	}
}
