package logbus

import (
	"fmt"
	"strings"
	"time"

	"github.com/bft-labs/logbus/internal/app"
	"github.com/bft-labs/logbus/internal/domain"
	"github.com/bft-labs/logbus/pkg/lifecycle"
)

// Configuration defaults.
const (
	DefaultCollection         = "messagebus"
	DefaultRetryDelay         = app.DefaultRetryDelay
	DefaultMaxCollectionBytes = int64(2 << 30)
	DefaultMaxRecords         = int64(10000)
	DefaultPollInterval       = app.DefaultPollInterval
	DefaultAwaitTimeout       = time.Second
	DefaultConnectTimeout     = app.DefaultConnectTimeout
	DefaultStreamCount        = 1
	DefaultShutdownTimeout    = lifecycle.ShutdownTimeout
)

// Config holds the settings of a Backplane. It is read once by New and
// never changes afterwards.
type Config struct {
	// ConnectionString selects the store: mongodb://host/db,
	// mongodb+srv://..., mem://name, pebble:///dir or a plain directory.
	ConnectionString string

	// Collection names the bounded collection. Default: "messagebus".
	Collection string

	// RetryDelay is the wait between connect attempts. Default: 2s.
	RetryDelay time.Duration

	// RetryMaxDelay enables exponential backoff from RetryDelay up to this
	// value. Zero keeps the delay fixed.
	RetryMaxDelay time.Duration

	// MaxCollectionBytes caps the collection size. Default: 2 GiB.
	MaxCollectionBytes int64

	// MaxRecords caps the number of records. Default: 10000.
	MaxRecords int64

	// PollInterval is the sleep between polls of a cursor that cannot wait
	// server-side. Default: 150ms.
	PollInterval time.Duration

	// AwaitTimeout bounds one server-side wait for new records. Default: 1s.
	AwaitTimeout time.Duration

	// ConnectTimeout bounds a single connect attempt. Default: 10s.
	ConnectTimeout time.Duration

	// StreamCount is the number of streams announced to a
	// StreamObserver subscriber after the first connect. Default: 1.
	StreamCount int

	// ShutdownTimeout bounds how long Close waits for background work.
	// Default: 30s.
	ShutdownTimeout time.Duration
}

// SetDefaults fills zero fields with default values.
func (c *Config) SetDefaults() {
	if c.Collection == "" {
		c.Collection = DefaultCollection
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if c.MaxCollectionBytes == 0 {
		c.MaxCollectionBytes = DefaultMaxCollectionBytes
	}
	if c.MaxRecords == 0 {
		c.MaxRecords = DefaultMaxRecords
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.AwaitTimeout == 0 {
		c.AwaitTimeout = DefaultAwaitTimeout
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.StreamCount == 0 {
		c.StreamCount = DefaultStreamCount
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
}

// Validate checks the configuration. Errors wrap ErrConfiguration.
func (c Config) Validate() error {
	var problems []string
	if c.Collection == "" || strings.ContainsAny(c.Collection, "/$") {
		problems = append(problems, fmt.Sprintf("invalid collection name %q", c.Collection))
	}
	if c.RetryDelay < 0 || c.RetryMaxDelay < 0 {
		problems = append(problems, "retry delays must not be negative")
	}
	if c.MaxCollectionBytes <= 0 {
		problems = append(problems, "max collection bytes must be positive")
	}
	if c.MaxRecords <= 0 {
		problems = append(problems, "max records must be positive")
	}
	if c.PollInterval < 0 || c.AwaitTimeout < 0 || c.ConnectTimeout < 0 || c.ShutdownTimeout < 0 {
		problems = append(problems, "timeouts must not be negative")
	}
	if c.StreamCount < 0 {
		problems = append(problems, "stream count must not be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}
