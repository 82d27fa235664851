package logbus

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/bft-labs/logbus/internal/app"
	"github.com/bft-labs/logbus/internal/domain"
	"github.com/bft-labs/logbus/pkg/lifecycle"
	"github.com/bft-labs/logbus/pkg/log"
)

// Backplane relays message batches between application instances through
// a shared bounded log. Every instance appends what it sends and tails
// what all instances append.
type Backplane struct {
	cfg    Config
	id     string
	logger Logger

	ctrl   *app.Controller
	sender *app.Sender

	closeOnce sync.Once
	closeErr  error
}

// New creates a Backplane and starts connecting in the background.
//
// The store is picked from cfg.ConnectionString unless WithStore is given.
// Decoded batches are handed to sub, one at a time. sub may be nil only
// together with WithSendOnly.
//
// Example:
//
//	bp, err := logbus.New(logbus.Config{
//	    ConnectionString: "mongodb://localhost:27017/chat",
//	}, subscriber, logbus.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer bp.Close()
//
//	err = bp.Send(ctx, 0, []logbus.Message{{Key: "room-1", Value: payload}})
func New(cfg Config, sub Subscriber, opts ...Option) (*Backplane, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := validateModuleVersions(); err != nil {
		return nil, fmt.Errorf("module version incompatible: %w", err)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if sub == nil {
		if !o.sendOnly {
			return nil, fmt.Errorf("%w: subscriber is required", domain.ErrConfiguration)
		}
		sub = SubscriberFuncs{}
	}
	if o.instanceID == "" {
		o.instanceID = uuid.NewString()
	}
	logger := log.With(o.logger, log.String("instance", o.instanceID))

	store := o.store
	if store == nil {
		var err error
		if store, err = NewStore(cfg, logger); err != nil {
			return nil, err
		}
	}

	var emitter app.EventEmitter
	if o.eventHandler != nil {
		emitter = eventEmitterWrapper{handler: o.eventHandler}
	}

	ctrl := app.NewController(app.Config{
		RetryDelay:     cfg.RetryDelay,
		RetryMaxDelay:  cfg.RetryMaxDelay,
		PollInterval:   cfg.PollInterval,
		ConnectTimeout: cfg.ConnectTimeout,
		StreamCount:    cfg.StreamCount,
		Instance:       o.instanceID,
		SendOnly:       o.sendOnly,
	}, store, sub, logger, emitter, o.metricSink)

	b := &Backplane{
		cfg:    cfg,
		id:     o.instanceID,
		logger: logger,
		ctrl:   ctrl,
		sender: app.NewSender(ctrl),
	}

	logger.Info("backplane starting",
		log.String("store", store.Name()),
		log.String("collection", cfg.Collection),
	)
	ctrl.Start()
	return b, nil
}

// ID returns the instance identifier.
func (b *Backplane) ID() string { return b.id }

// Send appends msgs as one record on streamIndex. It connects first when
// the backplane is not connected, and does not retry a failed append.
func (b *Backplane) Send(ctx context.Context, streamIndex int, msgs []Message) error {
	_, err := b.SendRecord(ctx, streamIndex, msgs)
	return err
}

// SendRecord is Send returning the identifier the store assigned.
func (b *Backplane) SendRecord(ctx context.Context, streamIndex int, msgs []Message) (RecordID, error) {
	return b.sender.Send(ctx, streamIndex, msgs)
}

// State returns the current connection state.
func (b *Backplane) State() State { return b.ctrl.State() }

// Connected reports whether the backplane is connected and healthy.
func (b *Backplane) Connected() bool {
	return b.ctrl.State() == lifecycle.StateConnected && b.ctrl.Healthy()
}

// WaitConnected blocks until the first connect succeeds. It returns the
// error that stopped retries when the store configuration is unusable,
// ErrDisposed after Close, or the context error.
func (b *Backplane) WaitConnected(ctx context.Context) error {
	return b.ctrl.WaitConnected(ctx)
}

// Close disposes the backplane and waits up to Config.ShutdownTimeout for
// background work to stop. Safe to call more than once.
func (b *Backplane) Close() error {
	b.closeOnce.Do(func() {
		b.ctrl.Dispose()
		b.closeErr = b.ctrl.Wait(b.cfg.ShutdownTimeout)
		if b.closeErr != nil {
			b.logger.Warn("backplane shutdown incomplete", log.Err(b.closeErr))
		}
	})
	return b.closeErr
}

// validateModuleVersions checks that every public module this package
// depends on is compatible.
func validateModuleVersions() error {
	modules := map[string]struct {
		version    string
		minVersion string
	}{
		"log":       {log.Version, log.MinCompatibleVersion},
		"lifecycle": {lifecycle.Version, lifecycle.MinCompatibleVersion},
		"logbus":    {Version, MinCompatibleVersion},
	}

	for name, m := range modules {
		if !isVersionCompatible(m.version, m.minVersion) {
			return fmt.Errorf("module %s version %s is below minimum compatible version %s",
				name, m.version, m.minVersion)
		}
	}
	return nil
}

// isVersionCompatible reports whether version >= minVersion.
// Versions are "major.minor.patch".
func isVersionCompatible(version, minVersion string) bool {
	var vMajor, vMinor, vPatch int
	var mMajor, mMinor, mPatch int

	_, _ = fmt.Sscanf(version, "%d.%d.%d", &vMajor, &vMinor, &vPatch)
	_, _ = fmt.Sscanf(minVersion, "%d.%d.%d", &mMajor, &mMinor, &mPatch)

	if vMajor != mMajor {
		return vMajor > mMajor
	}
	if vMinor != mMinor {
		return vMinor > mMinor
	}
	return vPatch >= mPatch
}

