package server

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mwren/partyline/pkg/model"
	"gopkg.in/yaml.v3"
)

// Config holds server configuration.
type Config struct {
	Addr           string        // UDP bind address (e.g. ":5000")
	MetricsAddr    string        // HTTP bind address for /metrics (empty = disabled)
	DefaultChannel string        // channel every user joins on login
	SessionTimeout time.Duration // inactivity window before a session is reaped
	ReapInterval   time.Duration // how often the reaper scans for expired sessions
	ChannelsFile   string        // YAML file defining channels to create on startup
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:           ":5000",
		MetricsAddr:    ":5002",
		DefaultChannel: "Common",
		SessionTimeout: 120 * time.Second,
		ReapInterval:   120 * time.Second,
	}
}

// fileConfig is the YAML shape of a server config file. Durations are
// given in seconds.
type fileConfig struct {
	Addr               string `yaml:"addr,omitempty"`
	MetricsAddr        string `yaml:"metrics_addr,omitempty"`
	DefaultChannel     string `yaml:"default_channel,omitempty"`
	SessionTimeoutSecs int    `yaml:"session_timeout_secs,omitempty"`
	ReapIntervalSecs   int    `yaml:"reap_interval_secs,omitempty"`
	ChannelsFile       string `yaml:"channels_file,omitempty"`
}

// LoadConfig reads a YAML config file over the defaults. Absent fields
// keep their default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path) //nolint:gosec // path from user-provided CLI config
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	if fc.Addr != "" {
		cfg.Addr = fc.Addr
	}
	if fc.MetricsAddr != "" {
		cfg.MetricsAddr = fc.MetricsAddr
	}
	if fc.DefaultChannel != "" {
		cfg.DefaultChannel = fc.DefaultChannel
	}
	if fc.SessionTimeoutSecs > 0 {
		cfg.SessionTimeout = time.Duration(fc.SessionTimeoutSecs) * time.Second
	}
	if fc.ReapIntervalSecs > 0 {
		cfg.ReapInterval = time.Duration(fc.ReapIntervalSecs) * time.Second
	}
	if fc.ChannelsFile != "" {
		cfg.ChannelsFile = fc.ChannelsFile
	}
	return cfg, nil
}

// ChannelYAML represents one channel in the preload file.
type ChannelYAML struct {
	Name string `yaml:"name"`
}

// ChannelsConfig is the top-level YAML config for channel preloading.
type ChannelsConfig struct {
	Channels []ChannelYAML `yaml:"channels"`
}

// LoadChannelsFromYAML reads a channels YAML file and creates the
// listed channels in the registry.
func LoadChannelsFromYAML(path string, reg *ChannelRegistry) error {
	data, err := os.ReadFile(path) //nolint:gosec // path from user-provided CLI config
	if err != nil {
		return fmt.Errorf("read channels config: %w", err)
	}
	return ImportChannelsFromYAML(data, reg)
}

// ImportChannelsFromYAML parses YAML data and creates channels in the
// registry. Invalid names are skipped with a log entry rather than
// aborting the import.
func ImportChannelsFromYAML(data []byte, reg *ChannelRegistry) error {
	var cfg ChannelsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse channels config: %w", err)
	}

	created := 0
	for _, ch := range cfg.Channels {
		if err := model.ValidateName(ch.Name); err != nil {
			slog.Error("skipping channel from config", "name", ch.Name, "err", err)
			continue
		}
		if reg.Create(ch.Name) {
			created++
			slog.Debug("created channel from config", "name", ch.Name)
		}
	}

	slog.Info("imported channels from YAML", "count", created)
	return nil
}
