package logbus

import (
	"fmt"

	"github.com/bft-labs/logbus/internal/adapters/mongolog"
	"github.com/bft-labs/logbus/internal/adapters/pebblelog"
	"github.com/bft-labs/logbus/internal/domain"
)

// NewStore builds the store addressed by cfg.ConnectionString without
// opening it. cfg should have its defaults set.
func NewStore(cfg Config, logger Logger) (LogStore, error) {
	conn := cfg.ConnectionString
	switch {
	case conn == "":
		return nil, fmt.Errorf("%w: connection string is required", domain.ErrConfiguration)
	case mongolog.IsTarget(conn):
		return mongolog.New(mongolog.Config{
			URI:            conn,
			Collection:     cfg.Collection,
			MaxBytes:       cfg.MaxCollectionBytes,
			MaxRecords:     cfg.MaxRecords,
			AwaitTimeout:   cfg.AwaitTimeout,
			ConnectTimeout: cfg.ConnectTimeout,
			Logger:         logger,
		})
	case pebblelog.IsTarget(conn):
		return pebblelog.New(pebblelog.Config{
			Target:       conn,
			Collection:   cfg.Collection,
			MaxBytes:     cfg.MaxCollectionBytes,
			MaxRecords:   cfg.MaxRecords,
			AwaitTimeout: cfg.AwaitTimeout,
			Logger:       logger,
		})
	default:
		return nil, fmt.Errorf("%w: unsupported connection string %q", domain.ErrConfiguration, conn)
	}
}
