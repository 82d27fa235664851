// Package logbus is a scale-out message backplane over a bounded,
// append-only log.
//
// Example usage:
//
//	bp, err := logbus.New(logbus.Config{
//	    ConnectionString: "mongodb://localhost:27017/chat",
//	}, subscriber)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer bp.Close()
//
// The full API lives in github.com/bft-labs/logbus/pkg/logbus.
package logbus

import (
	"github.com/bft-labs/logbus/pkg/logbus"
)

// Config holds the configuration of a Backplane.
type Config = logbus.Config

// Backplane relays message batches through a shared bounded log.
type Backplane = logbus.Backplane

// Message is one application message inside a batch.
type Message = logbus.Message

// Subscriber receives decoded batches.
type Subscriber = logbus.Subscriber

// Option configures optional behavior of a Backplane.
type Option = logbus.Option

// New creates a Backplane and starts connecting in the background.
func New(cfg Config, sub Subscriber, opts ...Option) (*Backplane, error) {
	return logbus.New(cfg, sub, opts...)
}
