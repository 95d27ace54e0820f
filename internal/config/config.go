// Package config loads the daemon settings file.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Well-known paths. The rules file holds the link policy; the YAML file
// holds daemon settings.
const (
	DefaultPath      = "/etc/seqlinkd/config.yaml"
	DefaultRulesPath = "/etc/seqlinkd/rules.conf"
)

// Config holds all daemon settings.
type Config struct {
	ClientName        string `yaml:"client_name"`
	RulesPath         string `yaml:"rules_path"`
	JournalPath       string `yaml:"journal_path"`
	ControlSocket     string `yaml:"control_socket"`
	PIDFile           string `yaml:"pid_file"`
	LogLevel          string `yaml:"log_level"`
	LogFormat         string `yaml:"log_format"`
	WaitForDevice     bool   `yaml:"wait_for_device"`
	DeviceWaitSeconds int    `yaml:"device_wait_seconds"`
}

// Default returns the built-in settings used when no file exists.
func Default() *Config {
	return &Config{
		ClientName:        "seqlinkd",
		RulesPath:         DefaultRulesPath,
		JournalPath:       "",
		ControlSocket:     "/run/seqlinkd/control.sock",
		PIDFile:           "",
		LogLevel:          "info",
		LogFormat:         "text",
		WaitForDevice:     true,
		DeviceWaitSeconds: 30,
	}
}

// Load reads daemon settings from a YAML file. Empty path falls back to
// DefaultPath. Missing file returns defaults. Invalid YAML returns an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Start with defaults, YAML overwrites only specified fields.
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Level maps the configured log level to slog. Unknown values fall back to
// info rather than failing startup.
func (c *Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// DefaultYAML returns a commented settings file for first-time setup.
func DefaultYAML() string {
	return `# seqlinkd daemon settings
#
# The link policy itself lives in the rules file (rules_path below), not
# here. This file only configures the daemon process.

# Name the daemon registers with the sequencer.
client_name: seqlinkd

# Link policy rules. Missing file means every link is allowed.
rules_path: /etc/seqlinkd/rules.conf

# Append-only JSONL journal of link attempts. Empty disables journaling.
journal_path: ""

# Unix socket for the status API (seqlinkd status / endpoints).
# Empty disables the control server.
control_socket: /run/seqlinkd/control.sock

# PID lock file preventing duplicate daemons. Empty disables the lock.
# Not needed under systemd.
pid_file: ""

# debug | info | warn | error
log_level: info

# text | json
log_format: text

# Wait for the sequencer device node to appear before starting. Useful at
# boot, when the daemon can win the race against the sound subsystem.
wait_for_device: true

# How long to wait for the device. 0 waits forever.
device_wait_seconds: 30
`
}
