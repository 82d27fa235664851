package ports

import (
	"time"

	"github.com/bft-labs/logbus/pkg/log"
)

// Logger is the structured logging port used by the application layer.
type Logger = log.Logger

// Field represents a structured log field.
type Field = log.Field

// String creates a string field.
func String(key, value string) Field { return log.String(key, value) }

// Int creates an int field.
func Int(key string, value int) Field { return log.Int(key, value) }

// Uint64 creates a uint64 field.
func Uint64(key string, value uint64) Field { return log.Uint64(key, value) }

// Duration creates a duration field.
func Duration(key string, value time.Duration) Field { return log.Duration(key, value) }

// Stringer creates a string field from any fmt.Stringer.
func Stringer(key string, value interface{ String() string }) Field { return log.Stringer(key, value) }

// Err creates an error field.
func Err(err error) Field { return log.Err(err) }

// Int64 creates an int64 field.
func Int64(key string, value int64) Field { return log.Int64(key, value) }

// NoopLogger discards every entry.
type NoopLogger = log.NoopLogger
