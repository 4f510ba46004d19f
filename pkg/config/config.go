// Package config provides configuration loading and validation for the
// fbpulse pipeline.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

// Sentinel validation errors.
var (
	ErrInvalidRankingLimit = errors.New("ranking limit must be positive")
	ErrNoTrackedSectors    = errors.New("at least one tracked sector is required")
	ErrInvalidLogLevel     = errors.New("invalid log level")
	ErrInvalidLogFormat    = errors.New("invalid log format")
)

// Default configuration values.
const (
	defaultDataDir      = "data"
	defaultExportSubdir = "exports"
	defaultRankingLimit = 10
	defaultLogLevel     = "info"
	defaultLogFormat    = "text"
	envPrefix           = "FBPULSE"
)

// defaultTrackedSectors mirrors the canonical sector taxonomy in
// internal/registry; config speaks plain strings so it stays decoupled
// from the engine types.
var defaultTrackedSectors = []string{
	"MOBILE", "RESTAURANT_CAFE", "PUB_BAR", "TAKEAWAY", "HOTEL",
}

// Config holds all pipeline configuration.
type Config struct {
	// DataDir is where run state (previous counts, ledger, rankings,
	// summaries) lives.
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`

	// ExportDir is where monthly new-business CSV logs are appended.
	ExportDir string `mapstructure:"export_dir" yaml:"export_dir"`

	// RankingLimit bounds each growth/reduction list.
	RankingLimit int `mapstructure:"ranking_limit" yaml:"ranking_limit"`

	// TrackedSectors is the closed set of sector labels the engine
	// processes, in reporting order.
	TrackedSectors []string `mapstructure:"tracked_sectors" yaml:"tracked_sectors"`

	// MetricsFile, when set, receives Prometheus textfile-collector
	// output at the end of each run.
	MetricsFile string `mapstructure:"metrics_file" yaml:"metrics_file"`

	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Tracing TracingConfig `mapstructure:"tracing" yaml:"tracing"`
}

// LoggingConfig holds structured-logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// TracingConfig holds OTLP trace-export settings. Empty endpoint means
// tracing is disabled.
type TracingConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint"`
	Insecure     bool   `mapstructure:"insecure" yaml:"insecure"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DataDir:        defaultDataDir,
		ExportDir:      "",
		RankingLimit:   defaultRankingLimit,
		TrackedSectors: append([]string(nil), defaultTrackedSectors...),
		Logging: LoggingConfig{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}

// Load reads configuration from the given file (optional; empty path
// means defaults plus environment only) and FBPULSE_* environment
// variables, then validates it.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("data_dir", defaultDataDir)
	v.SetDefault("export_dir", "")
	v.SetDefault("ranking_limit", defaultRankingLimit)
	v.SetDefault("tracked_sectors", defaultTrackedSectors)
	v.SetDefault("metrics_file", "")
	v.SetDefault("logging.level", defaultLogLevel)
	v.SetDefault("logging.format", defaultLogFormat)
	v.SetDefault("tracing.otlp_endpoint", "")
	v.SetDefault("tracing.insecure", false)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)

		err := v.ReadInConfig()
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config

	err := v.Unmarshal(&cfg)
	if err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.RankingLimit <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRankingLimit, c.RankingLimit)
	}

	if len(c.TrackedSectors) == 0 {
		return ErrNoTrackedSectors
	}

	_, err := c.LogLevel()
	if err != nil {
		return err
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Logging.Format)
	}

	return nil
}

// ExportPath returns the export directory, defaulting to
// <data_dir>/exports when unset.
func (c *Config) ExportPath() string {
	if c.ExportDir != "" {
		return c.ExportDir
	}

	return c.DataDir + "/" + defaultExportSubdir
}

// LogLevel parses the configured logging level.
func (c *Config) LogLevel() (slog.Level, error) {
	switch strings.ToLower(c.Logging.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}
}
