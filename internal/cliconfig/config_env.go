package cliconfig

import "os"

// EnvPrefix prefixes every environment variable read by ApplyEnvConfig.
const EnvPrefix = "LOGBUS_"

// ApplyEnvConfig applies LOGBUS_* environment variables to cfg. Values
// override the config file but not flags that have been set explicitly.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)
	env := func(name string) string { return os.Getenv(EnvPrefix + name) }

	s.setString("connection", env("CONNECTION"), &cfg.Connection)
	s.setString("collection", env("COLLECTION"), &cfg.Collection)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setInt64FromString("max-bytes", env("MAX_BYTES"), &cfg.MaxBytes); err != nil {
		return err
	}
	if err := s.setInt64FromString("max-records", env("MAX_RECORDS"), &cfg.MaxRecords); err != nil {
		return err
	}
	if err := s.setIntFromString("streams", env("STREAM_COUNT"), &cfg.StreamCount); err != nil {
		return err
	}

	if err := s.setDuration("retry-delay", env("RETRY_DELAY"), &cfg.RetryDelay); err != nil {
		return err
	}
	if err := s.setDuration("retry-max-delay", env("RETRY_MAX_DELAY"), &cfg.RetryMaxDelay); err != nil {
		return err
	}
	if err := s.setDuration("poll", env("POLL_INTERVAL"), &cfg.PollInterval); err != nil {
		return err
	}
	if err := s.setDuration("await-timeout", env("AWAIT_TIMEOUT"), &cfg.AwaitTimeout); err != nil {
		return err
	}
	if err := s.setDuration("connect-timeout", env("CONNECT_TIMEOUT"), &cfg.ConnectTimeout); err != nil {
		return err
	}

	s.setBoolFromString("log-json", env("LOG_JSON"), &cfg.LogJSON)
	return nil
}
