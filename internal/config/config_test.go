package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Pinger.Identifier != "auto" {
		t.Errorf("Pinger.Identifier = %s, want auto", cfg.Pinger.Identifier)
	}
	if cfg.Pinger.Retries != 3 {
		t.Errorf("Pinger.Retries = %d, want 3", cfg.Pinger.Retries)
	}
	if cfg.Pinger.AttemptTimeout != time.Second {
		t.Errorf("Pinger.AttemptTimeout = %v, want 1s", cfg.Pinger.AttemptTimeout)
	}
	if cfg.Pinger.PayloadSize != 56 {
		t.Errorf("Pinger.PayloadSize = %d, want 56", cfg.Pinger.PayloadSize)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %s, want info", cfg.Log.Level)
	}
	if cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled should be false by default")
	}
	if cfg.Monitor.Interval != 10*time.Second {
		t.Errorf("Monitor.Interval = %v, want 10s", cfg.Monitor.Interval)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config failed validation: %v", err)
	}
}

func TestParse_ValidConfig(t *testing.T) {
	yamlConfig := `
pinger:
  identifier: "0x1234"
  privileged: true
  retries: 5
  attempt_timeout: 500ms
log:
  level: "debug"
metrics:
  enabled: true
  address: ":9200"
monitor:
  targets:
    - 1.1.1.1
    - 8.8.8.8
  interval: 30s
  rate_limit: 2
`

	cfg, err := Parse([]byte(yamlConfig))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	id, auto, err := cfg.Pinger.IdentifierValue()
	if err != nil {
		t.Fatalf("IdentifierValue() error = %v", err)
	}
	if auto {
		t.Error("identifier should not be auto")
	}
	if id != 0x1234 {
		t.Errorf("identifier = 0x%04x, want 0x1234", id)
	}
	if cfg.Pinger.Retries != 5 {
		t.Errorf("Pinger.Retries = %d, want 5", cfg.Pinger.Retries)
	}
	if cfg.Pinger.AttemptTimeout != 500*time.Millisecond {
		t.Errorf("Pinger.AttemptTimeout = %v, want 500ms", cfg.Pinger.AttemptTimeout)
	}
	// Unset fields keep their defaults.
	if cfg.Pinger.PayloadSize != 56 {
		t.Errorf("Pinger.PayloadSize = %d, want default 56", cfg.Pinger.PayloadSize)
	}
	if len(cfg.Monitor.Targets) != 2 {
		t.Errorf("Monitor.Targets = %v, want 2 entries", cfg.Monitor.Targets)
	}
	if cfg.Monitor.RateLimit != 2 {
		t.Errorf("Monitor.RateLimit = %v, want 2", cfg.Monitor.RateLimit)
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("pinger: [not a map"))
	if err == nil {
		t.Error("Parse() should fail on invalid YAML")
	}
}

func TestParse_EnvExpansion(t *testing.T) {
	os.Setenv("ETHPING_TEST_TARGET", "192.0.2.10")
	defer os.Unsetenv("ETHPING_TEST_TARGET")

	cfg, err := Parse([]byte("monitor:\n  targets: [\"${ETHPING_TEST_TARGET}\"]\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Monitor.Targets[0] != "192.0.2.10" {
		t.Errorf("target = %s, want 192.0.2.10", cfg.Monitor.Targets[0])
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "zero retries",
			mutate:  func(c *Config) { c.Pinger.Retries = 0 },
			wantErr: "retries",
		},
		{
			name:    "negative timeout",
			mutate:  func(c *Config) { c.Pinger.AttemptTimeout = -time.Second },
			wantErr: "attempt_timeout",
		},
		{
			name:    "zero poll interval",
			mutate:  func(c *Config) { c.Pinger.PollInterval = 0 },
			wantErr: "poll_interval",
		},
		{
			name:    "payload too small",
			mutate:  func(c *Config) { c.Pinger.PayloadSize = 4 },
			wantErr: "payload_size",
		},
		{
			name:    "bad identifier",
			mutate:  func(c *Config) { c.Pinger.Identifier = "70000" },
			wantErr: "identifier",
		},
		{
			name:    "literal identifier without privileged",
			mutate:  func(c *Config) { c.Pinger.Identifier = "0x1234" },
			wantErr: "privileged",
		},
		{
			name: "literal identifier with privileged",
			mutate: func(c *Config) {
				c.Pinger.Identifier = "0x1234"
				c.Pinger.Privileged = true
			},
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Log.Level = "verbose" },
			wantErr: "log level",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: "log format",
		},
		{
			name: "metrics without address",
			mutate: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.Address = ""
			},
			wantErr: "metrics.address",
		},
		{
			name:    "empty target entry",
			mutate:  func(c *Config) { c.Monitor.Targets = []string{"1.1.1.1", "  "} },
			wantErr: "empty",
		},
		{
			name: "targets with zero interval",
			mutate: func(c *Config) {
				c.Monitor.Targets = []string{"1.1.1.1"}
				c.Monitor.Interval = 0
			},
			wantErr: "interval",
		},
		{
			name:    "negative rate limit",
			mutate:  func(c *Config) { c.Monitor.RateLimit = -1 },
			wantErr: "rate_limit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() should fail")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestIdentifierValue(t *testing.T) {
	tests := []struct {
		in       string
		wantID   uint16
		wantAuto bool
		wantErr  bool
	}{
		{"auto", 0, true, false},
		{"", 0, true, false},
		{"AUTO", 0, true, false},
		{"4660", 4660, false, false},
		{"0x1234", 0x1234, false, false},
		{"0", 0, false, false},
		{"65535", 65535, false, false},
		{"65536", 0, false, true},
		{"-1", 0, false, true},
		{"ping", 0, false, true},
	}

	for _, tt := range tests {
		p := PingerConfig{Identifier: tt.in}
		id, auto, err := p.IdentifierValue()
		if tt.wantErr {
			if err == nil {
				t.Errorf("IdentifierValue(%q) should fail", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("IdentifierValue(%q) error = %v", tt.in, err)
			continue
		}
		if id != tt.wantID || auto != tt.wantAuto {
			t.Errorf("IdentifierValue(%q) = (%d, %v), want (%d, %v)", tt.in, id, auto, tt.wantID, tt.wantAuto)
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Error("Load() should fail for a missing file")
	}
}

func TestLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ethping.yaml")
	content := "monitor:\n  targets: [\"192.0.2.1\"]\n  interval: 5s\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Monitor.Interval != 5*time.Second {
		t.Errorf("Monitor.Interval = %v, want 5s", cfg.Monitor.Interval)
	}
}
