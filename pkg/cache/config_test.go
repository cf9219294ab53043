package cache

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/c360/boundcache/errors"
)

func TestConfig_UnmarshalJSON_DurationStrings(t *testing.T) {
	tests := []struct {
		name     string
		jsonData string
		want     Config
		wantErr  bool
	}{
		{
			name: "duration strings",
			jsonData: `{
				"enabled": true,
				"max_entries": 1000,
				"default_ttl": "1h",
				"cleanup_interval": "5m",
				"persist_timeout": "3s"
			}`,
			want: Config{
				Enabled:         true,
				MaxEntries:      1000,
				DefaultTTL:      1 * time.Hour,
				CleanupInterval: 5 * time.Minute,
				PersistTimeout:  3 * time.Second,
			},
		},
		{
			name: "integer nanoseconds",
			jsonData: `{
				"enabled": true,
				"default_ttl": 3600000000000,
				"cleanup_interval": 300000000000
			}`,
			want: Config{
				Enabled:         true,
				DefaultTTL:      1 * time.Hour,
				CleanupInterval: 5 * time.Minute,
			},
		},
		{
			name: "mixed formats",
			jsonData: `{
				"enabled": true,
				"max_entries": 500,
				"max_memory_bytes": 1048576,
				"default_ttl": "2h30m",
				"cleanup_interval": 60000000000,
				"persist": true,
				"max_persist_entries": 20
			}`,
			want: Config{
				Enabled:           true,
				MaxEntries:        500,
				MaxMemoryBytes:    1 << 20,
				DefaultTTL:        2*time.Hour + 30*time.Minute,
				CleanupInterval:   1 * time.Minute,
				Persist:           true,
				MaxPersistEntries: 20,
			},
		},
		{
			name:     "invalid duration string",
			jsonData: `{"enabled": true, "default_ttl": "invalid"}`,
			wantErr:  true,
		},
		{
			name:     "duration of wrong type",
			jsonData: `{"enabled": true, "persist_timeout": true}`,
			wantErr:  true,
		},
		{
			name:     "minimal config",
			jsonData: `{"enabled": false}`,
			want:     Config{Enabled: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Config
			err := json.Unmarshal([]byte(tt.jsonData), &got)

			if (err != nil) != tt.wantErr {
				t.Errorf("Config.UnmarshalJSON() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if got != tt.want {
				t.Errorf("Config.UnmarshalJSON() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestConfig_MarshalJSON_RoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Persist = true

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal raw: %v", err)
	}
	if raw["default_ttl"] != "5m0s" {
		t.Errorf("default_ttl = %v, want duration string 5m0s", raw["default_ttl"])
	}

	var got Config
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got != cfg {
		t.Errorf("round trip = %+v, want %+v", got, cfg)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"disabled skips checks", func(c *Config) { c.Enabled = false; c.MaxEntries = -1 }, false},
		{"zero entries", func(c *Config) { c.MaxEntries = 0 }, true},
		{"negative memory", func(c *Config) { c.MaxMemoryBytes = -5 }, true},
		{"zero ttl", func(c *Config) { c.DefaultTTL = 0 }, true},
		{"zero cleanup", func(c *Config) { c.CleanupInterval = 0 }, true},
		{"persist without cap", func(c *Config) { c.Persist = true; c.MaxPersistEntries = 0 }, true},
		{"persist without timeout", func(c *Config) { c.Persist = true; c.PersistTimeout = 0 }, true},
		{"cap ignored without persist", func(c *Config) { c.MaxPersistEntries = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.IsInvalid(err) {
				t.Errorf("Validate() error should be classified invalid, got %v", err)
			}
		})
	}
}

func TestConfig_WithDefaults(t *testing.T) {
	got := Config{MaxEntries: 7, Persist: true}.WithDefaults()

	if got.MaxEntries != 7 {
		t.Errorf("MaxEntries = %d, want 7", got.MaxEntries)
	}
	if got.MaxMemoryBytes != DefaultMaxMemoryBytes {
		t.Errorf("MaxMemoryBytes = %d, want %d", got.MaxMemoryBytes, DefaultMaxMemoryBytes)
	}
	if got.MaxPersistEntries != DefaultMaxPersistEntries {
		t.Errorf("MaxPersistEntries = %d, want %d", got.MaxPersistEntries, DefaultMaxPersistEntries)
	}
	if got.PersistTimeout != DefaultPersistTimeout {
		t.Errorf("PersistTimeout = %v, want %v", got.PersistTimeout, DefaultPersistTimeout)
	}
	if !got.Persist || got.Enabled {
		t.Errorf("WithDefaults must leave Enabled and Persist alone, got %+v", got)
	}
}
