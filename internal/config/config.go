// Package config provides configuration parsing and validation for the
// EthernetICMP tools.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete tool configuration.
type Config struct {
	Pinger  PingerConfig  `yaml:"pinger"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
	Monitor MonitorConfig `yaml:"monitor"`
}

// PingerConfig contains ping engine settings.
type PingerConfig struct {
	// Identifier is the 16-bit ICMP identifier: "auto" to derive it from
	// the socket or process, or a decimal/hex literal. A literal requires
	// privileged mode; unprivileged sockets carry a kernel-assigned
	// identifier that a configured value cannot override.
	Identifier string `yaml:"identifier"`

	// Privileged selects a raw ICMP socket instead of an unprivileged
	// datagram socket.
	Privileged bool `yaml:"privileged"`

	// Retries is the total number of attempts per ping.
	Retries int `yaml:"retries"`

	// AttemptTimeout is the reply window for each attempt.
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`

	// PollInterval paces the blocking poll loop.
	PollInterval time.Duration `yaml:"poll_interval"`

	// PayloadSize is the echo payload size in bytes (at least 8, which
	// carries the send timestamp).
	PayloadSize int `yaml:"payload_size"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// MetricsConfig contains the Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// MonitorConfig contains the watch-mode settings.
type MonitorConfig struct {
	// Targets are the IPv4 addresses or hostnames to ping continuously.
	Targets []string `yaml:"targets"`

	// Interval is how often each target is pinged.
	Interval time.Duration `yaml:"interval"`

	// RateLimit caps total pings per second across all targets.
	// 0 disables the cap.
	RateLimit float64 `yaml:"rate_limit"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Pinger: PingerConfig{
			Identifier:     "auto",
			Privileged:     false,
			Retries:        3,
			AttemptTimeout: time.Second,
			PollInterval:   10 * time.Millisecond,
			PayloadSize:    56,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: ":9135",
		},
		Monitor: MonitorConfig{
			Targets:  []string{},
			Interval: 10 * time.Second,
		},
	}
}

// Load reads and parses a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses configuration from YAML bytes, expanding environment
// variable references and applying defaults for unset fields.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	_, auto, err := c.Pinger.IdentifierValue()
	if err != nil {
		return err
	}
	if !auto && !c.Pinger.Privileged {
		return fmt.Errorf("pinger.identifier %q requires privileged mode: unprivileged sockets use a kernel-assigned identifier", c.Pinger.Identifier)
	}
	if c.Pinger.Retries < 1 {
		return fmt.Errorf("pinger.retries must be at least 1, got %d", c.Pinger.Retries)
	}
	if c.Pinger.AttemptTimeout <= 0 {
		return fmt.Errorf("pinger.attempt_timeout must be positive, got %v", c.Pinger.AttemptTimeout)
	}
	if c.Pinger.PollInterval <= 0 {
		return fmt.Errorf("pinger.poll_interval must be positive, got %v", c.Pinger.PollInterval)
	}
	if c.Pinger.PayloadSize < 8 {
		return fmt.Errorf("pinger.payload_size must be at least 8, got %d", c.Pinger.PayloadSize)
	}

	if !isValidLogLevel(c.Log.Level) {
		return fmt.Errorf("invalid log level: %q", c.Log.Level)
	}
	if !isValidLogFormat(c.Log.Format) {
		return fmt.Errorf("invalid log format: %q", c.Log.Format)
	}

	if c.Metrics.Enabled && c.Metrics.Address == "" {
		return fmt.Errorf("metrics.address required when metrics are enabled")
	}

	for _, target := range c.Monitor.Targets {
		if strings.TrimSpace(target) == "" {
			return fmt.Errorf("monitor.targets contains an empty entry")
		}
	}
	if len(c.Monitor.Targets) > 0 && c.Monitor.Interval <= 0 {
		return fmt.Errorf("monitor.interval must be positive, got %v", c.Monitor.Interval)
	}
	if c.Monitor.RateLimit < 0 {
		return fmt.Errorf("monitor.rate_limit must not be negative, got %v", c.Monitor.RateLimit)
	}

	return nil
}

// IdentifierValue resolves the identifier setting. auto reports true when
// the identifier should be derived from the socket or process at runtime.
func (p PingerConfig) IdentifierValue() (id uint16, auto bool, err error) {
	s := strings.TrimSpace(p.Identifier)
	if s == "" || strings.EqualFold(s, "auto") {
		return 0, true, nil
	}

	v, perr := strconv.ParseUint(s, 0, 16)
	if perr != nil {
		return 0, false, fmt.Errorf("invalid pinger.identifier %q: expected \"auto\" or a 16-bit value", p.Identifier)
	}
	return uint16(v), false, nil
}

func isValidLogLevel(level string) bool {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

func isValidLogFormat(format string) bool {
	switch strings.ToLower(format) {
	case "text", "json":
		return true
	}
	return false
}
