package cliconfig

import (
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/bft-labs/logbus/pkg/logbus"
)

// Config holds CLI configuration for logbus.
type Config struct {
	Connection string
	Collection string

	MaxBytes   int64
	MaxRecords int64

	RetryDelay     time.Duration
	RetryMaxDelay  time.Duration
	PollInterval   time.Duration
	AwaitTimeout   time.Duration
	ConnectTimeout time.Duration

	StreamCount int

	LogLevel string
	LogJSON  bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Collection:     logbus.DefaultCollection,
		MaxBytes:       logbus.DefaultMaxCollectionBytes,
		MaxRecords:     logbus.DefaultMaxRecords,
		RetryDelay:     logbus.DefaultRetryDelay,
		PollInterval:   logbus.DefaultPollInterval,
		AwaitTimeout:   logbus.DefaultAwaitTimeout,
		ConnectTimeout: logbus.DefaultConnectTimeout,
		StreamCount:    logbus.DefaultStreamCount,
		LogLevel:       "info",
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Connection == "" {
		return fmt.Errorf("connection is required")
	}
	if c.Collection == "" {
		return fmt.Errorf("collection is required")
	}
	if c.MaxBytes <= 0 {
		return fmt.Errorf("max bytes must be positive")
	}
	if c.MaxRecords <= 0 {
		return fmt.Errorf("max records must be positive")
	}
	if c.RetryDelay <= 0 {
		return fmt.Errorf("retry delay must be positive")
	}
	if c.RetryMaxDelay < 0 {
		return fmt.Errorf("retry max delay must not be negative")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	return nil
}

// Backplane converts the CLI configuration to the library configuration.
func (c Config) Backplane() logbus.Config {
	return logbus.Config{
		ConnectionString:   c.Connection,
		Collection:         c.Collection,
		RetryDelay:         c.RetryDelay,
		RetryMaxDelay:      c.RetryMaxDelay,
		MaxCollectionBytes: c.MaxBytes,
		MaxRecords:         c.MaxRecords,
		PollInterval:       c.PollInterval,
		AwaitTimeout:       c.AwaitTimeout,
		ConnectTimeout:     c.ConnectTimeout,
		StreamCount:        c.StreamCount,
	}
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt64 sets an int64 value if positive and flag not changed.
func (s *configSetter) setInt64(flag string, value int64, dst *int64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if positive.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setInt64FromString parses a string to int64 and sets the destination if positive.
func (s *configSetter) setInt64FromString(flag, value string, dst *int64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString accepts "true" and "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
