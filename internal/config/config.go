package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/penwyp/go-daystream/internal/core/constants"
	"github.com/penwyp/go-daystream/internal/util"
)

const (
	StreamDashboard = "dashboard"
	StreamAI        = "ai"

	SourceDir   = "dir"
	SourceStore = "store"
)

// Outputs lists the supported output formats.
var Outputs = []string{"table", "json", "csv", "summary"}

// Config is the on-disk configuration. Command-line flags override it.
type Config struct {
	DataDir       string        `yaml:"data_dir"`
	DBPath        string        `yaml:"db_path"`
	Source        string        `yaml:"source"` // dir, store
	Timezone      string        `yaml:"timezone"`
	Stream        string        `yaml:"stream"` // dashboard, ai
	Output        string        `yaml:"output"`
	BucketMinutes int           `yaml:"bucket_minutes"`
	GapMinutes    int           `yaml:"gap_minutes"`
	Concurrency   int           `yaml:"concurrency"`
	Watch         WatchConfig   `yaml:"watch"`
	Logging       LoggingConfig `yaml:"logging"`
}

type WatchConfig struct {
	Debounce string `yaml:"debounce"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
	File   string `yaml:"file"`
}

// DefaultPath returns ~/.go-daystream/config.yaml.
func DefaultPath() string {
	return filepath.Join("~", ".go-daystream", "config.yaml")
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DataDir:       "~/.go-daystream/exports",
		DBPath:        "~/.go-daystream/daystream.db",
		Source:        SourceDir,
		Timezone:      "Local",
		Stream:        StreamDashboard,
		Output:        "table",
		BucketMinutes: int(constants.BucketSize / time.Minute),
		GapMinutes:    int(constants.GapThreshold / time.Minute),
		Concurrency:   4,
		Watch: WatchConfig{
			Debounce: constants.WatchDebounce.String(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			File:   "~/.go-daystream/logs/app.log",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Marshal encodes the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	path = ExpandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := c.Marshal()
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

func (c *Config) applyEnvOverrides() {
	if dir := os.Getenv("DAYSTREAM_DATA_DIR"); dir != "" {
		c.DataDir = dir
	}
	if path := os.Getenv("DAYSTREAM_DB"); path != "" {
		c.DBPath = path
	}
	if tz := os.Getenv("DAYSTREAM_TZ"); tz != "" {
		c.Timezone = tz
	}
}

// Validate fills defaults for empty fields and rejects invalid values.
func (c *Config) Validate() error {
	def := DefaultConfig()
	if c.DataDir == "" {
		c.DataDir = def.DataDir
	}
	if c.DBPath == "" {
		c.DBPath = def.DBPath
	}
	if c.Source == "" {
		c.Source = def.Source
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.Stream == "" {
		c.Stream = def.Stream
	}
	if c.Output == "" {
		c.Output = def.Output
	}
	if c.BucketMinutes == 0 {
		c.BucketMinutes = def.BucketMinutes
	}
	if c.GapMinutes == 0 {
		c.GapMinutes = def.GapMinutes
	}
	if c.Concurrency == 0 {
		c.Concurrency = def.Concurrency
	}
	if c.Watch.Debounce == "" {
		c.Watch.Debounce = def.Watch.Debounce
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = def.Logging.Format
	}

	switch c.Source {
	case SourceDir, SourceStore:
	default:
		return fmt.Errorf("invalid source '%s' (expected dir or store)", c.Source)
	}
	switch c.Stream {
	case StreamDashboard, StreamAI:
	default:
		return fmt.Errorf("invalid stream '%s' (expected dashboard or ai)", c.Stream)
	}
	if !isOneOf(c.Output, Outputs) {
		return fmt.Errorf("invalid output '%s' (expected %s)", c.Output, strings.Join(Outputs, ", "))
	}
	if c.BucketMinutes < 0 || c.BucketMinutes > 24*60 || (24*60)%c.BucketMinutes != 0 {
		return fmt.Errorf("bucket_minutes must divide a day evenly, got %d", c.BucketMinutes)
	}
	if c.GapMinutes < 0 {
		return fmt.Errorf("gap_minutes must not be negative, got %d", c.GapMinutes)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative, got %d", c.Concurrency)
	}
	if _, err := time.ParseDuration(c.Watch.Debounce); err != nil {
		return fmt.Errorf("invalid watch.debounce '%s': %w", c.Watch.Debounce, err)
	}
	if _, err := util.LoadLocation(c.Timezone); err != nil {
		return err
	}
	if !isOneOf(strings.ToLower(c.Logging.Level), []string{"debug", "info", "warn", "warning", "error"}) {
		return fmt.Errorf("invalid logging level '%s'", c.Logging.Level)
	}
	if c.Logging.Format != string(util.FormatText) && c.Logging.Format != string(util.FormatJSON) {
		return fmt.Errorf("invalid logging format '%s' (expected text or json)", c.Logging.Format)
	}
	return nil
}

func (c *Config) BucketSize() time.Duration {
	return time.Duration(c.BucketMinutes) * time.Minute
}

func (c *Config) GapThreshold() time.Duration {
	return time.Duration(c.GapMinutes) * time.Minute
}

// WatchDebounce returns the watch debounce, falling back to the default.
func (c *Config) WatchDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil {
		return constants.WatchDebounce
	}
	return d
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}

func isOneOf(value string, options []string) bool {
	for _, o := range options {
		if value == o {
			return true
		}
	}
	return false
}
