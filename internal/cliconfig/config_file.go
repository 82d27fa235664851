package cliconfig

import (
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Connection     string `toml:"connection"`
	Collection     string `toml:"collection"`
	MaxBytes       int64  `toml:"max_bytes"`
	MaxRecords     int64  `toml:"max_records"`
	RetryDelay     string `toml:"retry_delay"`
	RetryMaxDelay  string `toml:"retry_max_delay"`
	PollInterval   string `toml:"poll_interval"`
	AwaitTimeout   string `toml:"await_timeout"`
	ConnectTimeout string `toml:"connect_timeout"`
	StreamCount    int    `toml:"stream_count"`
	LogLevel       string `toml:"log_level"`
	LogJSON        *bool  `toml:"log_json"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.logbus/config.toml, or "" when the home
// directory is unknown.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".logbus", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("connection", fc.Connection, &cfg.Connection)
	s.setString("collection", fc.Collection, &cfg.Collection)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	s.setInt64("max-bytes", fc.MaxBytes, &cfg.MaxBytes)
	s.setInt64("max-records", fc.MaxRecords, &cfg.MaxRecords)
	s.setInt("streams", fc.StreamCount, &cfg.StreamCount)

	durations := []struct {
		flag  string
		value string
		dst   *time.Duration
	}{
		{"retry-delay", fc.RetryDelay, &cfg.RetryDelay},
		{"retry-max-delay", fc.RetryMaxDelay, &cfg.RetryMaxDelay},
		{"poll", fc.PollInterval, &cfg.PollInterval},
		{"await-timeout", fc.AwaitTimeout, &cfg.AwaitTimeout},
		{"connect-timeout", fc.ConnectTimeout, &cfg.ConnectTimeout},
	}
	for _, d := range durations {
		if err := s.setDuration(d.flag, d.value, d.dst); err != nil {
			return err
		}
	}

	s.setBool("log-json", fc.LogJSON, &cfg.LogJSON)
	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
