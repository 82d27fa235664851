package cliconfig

import (
	"testing"
	"time"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name: "applies all valid env vars",
			envVars: map[string]string{
				"LOGBUS_CONNECTION":      "mem://env",
				"LOGBUS_COLLECTION":      "env-bus",
				"LOGBUS_MAX_BYTES":       "4096",
				"LOGBUS_MAX_RECORDS":     "50",
				"LOGBUS_RETRY_DELAY":     "3s",
				"LOGBUS_RETRY_MAX_DELAY": "1m",
				"LOGBUS_POLL_INTERVAL":   "20ms",
				"LOGBUS_STREAM_COUNT":    "8",
				"LOGBUS_LOG_LEVEL":       "debug",
				"LOGBUS_LOG_JSON":        "1",
			},
			changed: map[string]bool{},
			expected: Config{
				Connection:    "mem://env",
				Collection:    "env-bus",
				MaxBytes:      4096,
				MaxRecords:    50,
				RetryDelay:    3 * time.Second,
				RetryMaxDelay: time.Minute,
				PollInterval:  20 * time.Millisecond,
				StreamCount:   8,
				LogLevel:      "debug",
				LogJSON:       true,
			},
		},
		{
			name: "respects changed flags",
			envVars: map[string]string{
				"LOGBUS_CONNECTION": "mem://env",
				"LOGBUS_COLLECTION": "env-bus",
			},
			changed:  map[string]bool{"connection": true},
			initial:  Config{Connection: "mem://flag"},
			expected: Config{Connection: "mem://flag", Collection: "env-bus"},
		},
		{
			name:    "returns error for invalid duration",
			envVars: map[string]string{"LOGBUS_RETRY_DELAY": "not-a-duration"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:    "returns error for invalid int",
			envVars: map[string]string{"LOGBUS_MAX_RECORDS": "many"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:     "handles bool 'false' as false",
			envVars:  map[string]string{"LOGBUS_LOG_JSON": "false"},
			changed:  map[string]bool{},
			initial:  Config{LogJSON: true},
			expected: Config{LogJSON: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := tt.initial
			err := ApplyEnvConfig(&cfg, tt.changed)
			if tt.wantErr {
				if err == nil {
					t.Error("ApplyEnvConfig() expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyEnvConfig() unexpected error: %v", err)
			}
			if cfg != tt.expected {
				t.Errorf("ApplyEnvConfig() = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

// Precedence order: CLI > Env > File.
func TestConfigPrecedence(t *testing.T) {
	trueVal := true
	fileConf := FileConfig{
		Connection: "mem://file",
		Collection: "file-bus",
		RetryDelay: "9s",
		LogJSON:    &trueVal,
	}

	t.Setenv("LOGBUS_CONNECTION", "mem://env")
	t.Setenv("LOGBUS_COLLECTION", "env-bus")

	changed := map[string]bool{"connection": true}
	cfg := Config{Connection: "mem://cli"}

	if err := ApplyFileConfig(&cfg, fileConf, changed); err != nil {
		t.Fatalf("ApplyFileConfig failed: %v", err)
	}
	if err := ApplyEnvConfig(&cfg, changed); err != nil {
		t.Fatalf("ApplyEnvConfig failed: %v", err)
	}

	if cfg.Connection != "mem://cli" {
		t.Errorf("Connection = %v, want mem://cli (CLI should win)", cfg.Connection)
	}
	if cfg.Collection != "env-bus" {
		t.Errorf("Collection = %v, want env-bus (env should override file)", cfg.Collection)
	}
	if cfg.RetryDelay != 9*time.Second {
		t.Errorf("RetryDelay = %v, want 9s (file should set)", cfg.RetryDelay)
	}
	if !cfg.LogJSON {
		t.Error("LogJSON = false, want true (file should set)")
	}
}
