package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-metrics"

	"github.com/bft-labs/logbus/internal/domain"
	"github.com/bft-labs/logbus/internal/ports"
	"github.com/bft-labs/logbus/pkg/lifecycle"
)

// Default controller timings.
const (
	DefaultRetryDelay     = 2 * time.Second
	DefaultPollInterval   = 150 * time.Millisecond
	DefaultConnectTimeout = 10 * time.Second
)

// Config contains the controller and receive loop settings.
type Config struct {
	RetryDelay     time.Duration
	RetryMaxDelay  time.Duration
	RetryJitter    float64
	PollInterval   time.Duration
	ConnectTimeout time.Duration
	StreamCount    int
	Instance       string

	// SendOnly skips the receive loop. Nothing is tailed or consumed.
	SendOnly bool
}

func (c *Config) setDefaults() {
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.StreamCount <= 0 {
		c.StreamCount = 1
	}
}

// attempt is one in-flight connect shared by every concurrent caller.
type attempt struct {
	done chan struct{}
	err  error
}

// Controller owns the connection state machine. A supervisor goroutine
// connects with retry, runs one receive loop generation per healthy
// connection and reconnects when a generation fails.
type Controller struct {
	cfg     Config
	store   ports.LogStore
	logger  ports.Logger
	emitter EventEmitter
	tm      telemetry
	state   *lifecycle.Manager

	receiver *Receiver

	healthy atomic.Bool
	pending atomic.Pointer[attempt]

	runCtx    context.Context
	cancelRun context.CancelFunc

	shutdownOnce sync.Once
	connected    chan struct{}
	connectOnce  sync.Once
	halted       chan struct{}
	fatal        atomic.Pointer[error]
}

// NewController wires a controller. emitter and sink may be nil.
func NewController(
	cfg Config,
	store ports.LogStore,
	sub ports.Subscriber,
	logger ports.Logger,
	emitter EventEmitter,
	sink metrics.MetricSink,
) *Controller {
	cfg.setDefaults()
	if logger == nil {
		logger = ports.NoopLogger{}
	}
	if emitter == nil {
		emitter = NoopEmitter{}
	}
	tm := newTelemetry(sink, cfg.Instance)
	runCtx, cancel := context.WithCancel(context.Background())

	c := &Controller{
		cfg:       cfg,
		store:     store,
		logger:    logger,
		emitter:   emitter,
		tm:        tm,
		state:     lifecycle.NewManager(logger, stateObserver{tm: tm, next: emitter}),
		runCtx:    runCtx,
		cancelRun: cancel,
		connected: make(chan struct{}),
		halted:    make(chan struct{}),
	}
	c.receiver = newReceiver(c, sub)
	return c
}

// State returns the current connection state.
func (c *Controller) State() lifecycle.State { return c.state.State() }

// Healthy reports whether the store session is believed usable.
func (c *Controller) Healthy() bool { return c.healthy.Load() }

func (c *Controller) disposing() bool { return c.state.State() >= lifecycle.StateDisposing }

// Start launches the supervisor, which performs the first connect.
func (c *Controller) Start() {
	c.state.Go(c.supervise)
}

// EnsureConnected returns nil once the store is connected. Concurrent
// callers share a single attempt; only the caller that registers it talks
// to the store. A failed attempt is forgotten so the next call retries.
func (c *Controller) EnsureConnected(ctx context.Context) error {
	for {
		if c.healthy.Load() {
			return nil
		}
		if c.disposing() {
			return domain.ErrDisposed
		}

		a := c.pending.Load()
		if a == nil {
			mine := &attempt{done: make(chan struct{})}
			if !c.pending.CompareAndSwap(nil, mine) {
				continue
			}
			go c.connect(mine)
			a = mine
		}

		select {
		case <-a.done:
			return a.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// connect runs one attempt bounded by ConnectTimeout and disposal only.
// Callers stop waiting on their own contexts without failing the attempt
// for the others.
func (c *Controller) connect(a *attempt) {
	defer close(a.done)

	ctx, cancel := context.WithTimeout(c.runCtx, c.cfg.ConnectTimeout)
	defer cancel()

	if err := c.store.Open(ctx); err != nil {
		a.err = fmt.Errorf("%w: %s: %w", domain.ErrConnect, c.store.Name(), err)
		c.tm.incr(MetricConnectErrorCount)
		c.pending.CompareAndSwap(a, nil)
		return
	}
	c.tm.incr(MetricConnectCount)
	c.healthy.Store(true)
}

// markUnhealthy forces the next EnsureConnected to reconnect.
func (c *Controller) markUnhealthy() {
	c.pending.Store(nil)
	c.healthy.Store(false)
}

func (c *Controller) supervise() {
	backoff := lifecycle.NewBackoff(c.cfg.RetryDelay, c.cfg.RetryMaxDelay, c.cfg.RetryJitter)
	failures := 0

	for {
		err := c.EnsureConnected(c.runCtx)
		if c.disposing() {
			c.shutdown()
			return
		}

		if err != nil {
			failures++
			if errors.Is(err, domain.ErrConfiguration) {
				c.logger.Error("store configuration is invalid, giving up", ports.Err(err))
				c.emitter.OnConnectError(err, failures, 0)
				c.halt(err)
				return
			}

			delay := backoff.Current()
			c.logger.Error("error connecting to store",
				ports.Err(err),
				ports.Int("attempt", failures),
				ports.Duration("retry_in", delay))
			c.emitter.OnConnectError(err, failures, delay)

			_ = backoff.Wait(c.runCtx)
			continue
		}

		failures = 0
		backoff.Reset()

		if c.state.CompareAndSwap(lifecycle.StateClosed, lifecycle.StateConnected, "connected to "+c.store.Name()) {
			c.openStreams()
		} else if c.disposing() {
			c.shutdown()
			return
		}

		if c.cfg.SendOnly {
			<-c.runCtx.Done()
			c.shutdown()
			return
		}

		err = c.receiver.Run(c.runCtx)
		if c.disposing() {
			c.shutdown()
			return
		}
		c.tm.incr(MetricReceiveRestartCount)
		c.logger.Warn("receive loop stopped, reconnecting", ports.Err(err))
		c.emitter.OnReceiveRestart(err)
	}
}

// openStreams announces every stream, then releases WaitConnected.
func (c *Controller) openStreams() {
	if obs, ok := c.receiver.sub.(ports.StreamObserver); ok {
		for i := 0; i < c.cfg.StreamCount; i++ {
			obs.OnStreamOpen(i)
		}
	}
	c.connectOnce.Do(func() { close(c.connected) })
}

func (c *Controller) halt(err error) {
	c.fatal.Store(&err)
	close(c.halted)
}

// WaitConnected blocks until the first successful connect, a fatal
// configuration error, disposal or the end of ctx.
func (c *Controller) WaitConnected(ctx context.Context) error {
	select {
	case <-c.connected:
		return nil
	case <-c.halted:
		return *c.fatal.Load()
	case <-c.runCtx.Done():
		return domain.ErrDisposed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dispose moves to Disposing whatever the current state is. Shutdown runs
// right away unless another disposal already owns it. Safe to call from
// any goroutine, any number of times.
func (c *Controller) Dispose() {
	switch c.state.Swap(lifecycle.StateDisposing, "dispose requested") {
	case lifecycle.StateConnected, lifecycle.StateClosed:
		c.shutdown()
	}
}

func (c *Controller) shutdown() {
	c.shutdownOnce.Do(func() {
		c.logger.Info("shutdown...")
		c.cancelRun()
		c.markUnhealthy()

		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.ConnectTimeout)
		defer cancel()
		if err := c.store.Close(ctx); err != nil {
			c.logger.Warn("error closing store", ports.Err(err))
		}

		c.state.CompareAndSwap(lifecycle.StateDisposing, lifecycle.StateDisposed, "shutdown complete")
		c.logger.Info("goodbye...")
	})
}

// Wait waits for the supervisor and receive loop to exit.
func (c *Controller) Wait(timeout time.Duration) error {
	return c.state.WaitWithTimeout(timeout)
}
