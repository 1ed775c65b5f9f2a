// Package config provides configuration management for claude-reporter.
// Configuration is loaded with the following priority (highest to lowest):
//  1. CLI flags
//  2. Local project config: .claude-reporter/config.toml
//  3. User-level config: ~/.claude-reporter/config.toml
//
// Note: For telemetry settings, environment variables (OTEL_*) take highest
// priority per OpenTelemetry conventions.
package config

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const (
	// ConfigFileName is the name of the configuration file
	ConfigFileName = "config.toml"
	// ReporterDir is the directory name for claude-reporter files
	ReporterDir = ".claude-reporter"
)

// Config represents the complete CLI configuration
type Config struct {
	// OutputDir is the custom output directory for report files
	OutputDir string `toml:"output_dir"`

	Cache     CacheConfig     `toml:"cache"`
	Convert   ConvertConfig   `toml:"convert"`
	Logging   LoggingConfig   `toml:"logging"`
	Analytics AnalyticsConfig `toml:"analytics"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

// CacheConfig holds parse cache settings
type CacheConfig struct {
	// Enabled controls whether parse results are cached between runs
	Enabled *bool `toml:"enabled"`
	// Dir is a custom cache database location; empty means
	// ~/.claude-reporter/cache.db
	Dir string `toml:"dir"`
	// Fingerprint selects how file changes are detected: "mtime" (size and
	// modification time, the default) or "sha256" (content hash)
	Fingerprint string `toml:"fingerprint"`
}

// ConvertConfig holds conversion settings
type ConvertConfig struct {
	// Workers bounds file-level parallelism; zero or one means sequential
	Workers int `toml:"workers"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	// Console enables error/warn/info output to stdout
	Console *bool `toml:"console"`
	// Log enables writing error/warn/info output to
	// .claude-reporter/debug.log
	Log *bool `toml:"log"`
	// Debug enables debug-level output (requires Console or Log)
	Debug *bool `toml:"debug"`
	// Silent suppresses all non-error output
	Silent *bool `toml:"silent"`
}

// AnalyticsConfig holds analytics settings
type AnalyticsConfig struct {
	// Enabled controls whether usage analytics are sent
	Enabled *bool `toml:"enabled"`
}

// TelemetryConfig holds OpenTelemetry metrics settings
type TelemetryConfig struct {
	// Enabled controls whether metrics are exported
	Enabled *bool `toml:"enabled"`
	// Endpoint is the OTLP gRPC collector endpoint
	Endpoint string `toml:"endpoint"`
}

// CLIOverrides holds CLI flag values that override config file settings.
// These are applied after config files are loaded.
type CLIOverrides struct {
	// General
	OutputDir string

	// Cache
	NoCache          bool
	CacheDir         string
	CacheFingerprint string

	// Conversion
	Workers int

	// Logging
	Console bool
	Log     bool
	Debug   bool
	Silent  bool

	// Analytics
	NoAnalytics bool
}

// Load reads configuration from files and CLI flags.
// Priority: CLI flags > local project config > user-level config
func Load(cliOverrides *CLIOverrides) (*Config, error) {
	cfg := &Config{}

	// Load user-level config first (lowest priority)
	userConfigPath := getUserConfigPath()
	if userConfigPath != "" {
		if err := loadTOMLFile(userConfigPath, cfg); err != nil {
			slog.Debug("No user-level config loaded", "path", userConfigPath, "error", err)
		} else {
			slog.Debug("Loaded user-level config", "path", userConfigPath)
		}
	}

	// Load local project config (overwrites user-level)
	localConfigPath := getLocalConfigPath()
	if localConfigPath != "" {
		if err := loadTOMLFile(localConfigPath, cfg); err != nil {
			slog.Debug("No local project config loaded", "path", localConfigPath, "error", err)
		} else {
			slog.Debug("Loaded local project config", "path", localConfigPath)
		}
	}

	// Apply CLI flag overrides (highest priority)
	if cliOverrides != nil {
		applyCLIOverrides(cfg, cliOverrides)
	}

	return cfg, nil
}

// getUserConfigPath returns the path to ~/.claude-reporter/config.toml
func getUserConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		slog.Debug("Could not determine home directory", "error", err)
		return ""
	}
	return filepath.Join(home, ReporterDir, ConfigFileName)
}

// getLocalConfigPath returns the path to .claude-reporter/config.toml in the current directory
func getLocalConfigPath() string {
	cwd, err := os.Getwd()
	if err != nil {
		slog.Debug("Could not determine current directory", "error", err)
		return ""
	}
	return filepath.Join(cwd, ReporterDir, ConfigFileName)
}

// loadTOMLFile reads a TOML file and decodes it into the config struct.
// Fields are merged (later calls overwrite earlier values).
func loadTOMLFile(path string, cfg *Config) error {
	_, err := toml.DecodeFile(path, cfg)
	return err
}

// applyCLIOverrides applies CLI flag overrides to the config.
func applyCLIOverrides(cfg *Config, o *CLIOverrides) {
	// General
	if o.OutputDir != "" {
		cfg.OutputDir = o.OutputDir
	}

	// Cache (--no-cache sets enabled to false)
	if o.NoCache {
		disabled := false
		cfg.Cache.Enabled = &disabled
	}
	if o.CacheDir != "" {
		cfg.Cache.Dir = o.CacheDir
	}
	if o.CacheFingerprint != "" {
		cfg.Cache.Fingerprint = o.CacheFingerprint
	}

	// Conversion
	if o.Workers > 0 {
		cfg.Convert.Workers = o.Workers
	}

	// Logging flags only override if explicitly set (true)
	if o.Console {
		enabled := true
		cfg.Logging.Console = &enabled
	}
	if o.Log {
		enabled := true
		cfg.Logging.Log = &enabled
	}
	if o.Debug {
		enabled := true
		cfg.Logging.Debug = &enabled
	}
	if o.Silent {
		enabled := true
		cfg.Logging.Silent = &enabled
	}

	// Analytics (--no-usage-analytics sets enabled to false)
	if o.NoAnalytics {
		disabled := false
		cfg.Analytics.Enabled = &disabled
	}
}

// --- Getter methods ---

// GetOutputDir returns the output directory, or empty string to use default.
func (c *Config) GetOutputDir() string {
	return c.OutputDir
}

// IsCacheEnabled returns whether the parse cache is enabled.
// Defaults to true if not explicitly set.
func (c *Config) IsCacheEnabled() bool {
	if c.Cache.Enabled != nil {
		return *c.Cache.Enabled
	}
	return true // default enabled
}

// GetCachePath returns the cache database path.
// Defaults to ~/.claude-reporter/cache.db if not set.
func (c *Config) GetCachePath() string {
	if c.Cache.Dir != "" {
		return filepath.Join(c.Cache.Dir, "cache.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(ReporterDir, "cache.db")
	}
	return filepath.Join(home, ReporterDir, "cache.db")
}

// GetCacheFingerprint returns the configured fingerprint mode name.
// Defaults to "mtime" if not explicitly set.
func (c *Config) GetCacheFingerprint() string {
	if c.Cache.Fingerprint != "" {
		return c.Cache.Fingerprint
	}
	return "mtime"
}

// GetWorkers returns the configured worker count.
// Defaults to 1 (sequential) if not explicitly set.
func (c *Config) GetWorkers() int {
	if c.Convert.Workers > 0 {
		return c.Convert.Workers
	}
	return 1
}

// IsConsoleEnabled returns whether console logging is enabled.
// Defaults to false if not explicitly set.
func (c *Config) IsConsoleEnabled() bool {
	if c.Logging.Console != nil {
		return *c.Logging.Console
	}
	return false // default disabled
}

// IsLogEnabled returns whether file logging is enabled.
// Defaults to false if not explicitly set.
func (c *Config) IsLogEnabled() bool {
	if c.Logging.Log != nil {
		return *c.Logging.Log
	}
	return false // default disabled
}

// IsDebugEnabled returns whether debug logging is enabled.
// Defaults to false if not explicitly set.
func (c *Config) IsDebugEnabled() bool {
	if c.Logging.Debug != nil {
		return *c.Logging.Debug
	}
	return false // default disabled
}

// IsSilentEnabled returns whether silent mode is enabled.
// Defaults to false if not explicitly set.
func (c *Config) IsSilentEnabled() bool {
	if c.Logging.Silent != nil {
		return *c.Logging.Silent
	}
	return false // default disabled
}

// IsAnalyticsEnabled returns whether analytics are enabled.
// Defaults to true if not explicitly set.
func (c *Config) IsAnalyticsEnabled() bool {
	if c.Analytics.Enabled != nil {
		return *c.Analytics.Enabled
	}
	return true // default enabled
}

// IsTelemetryEnabled returns whether metrics export is enabled.
// Defaults to false if not explicitly set.
func (c *Config) IsTelemetryEnabled() bool {
	if c.Telemetry.Enabled != nil {
		return *c.Telemetry.Enabled
	}
	return false // default disabled
}

// GetTelemetryEndpoint returns the OTLP collector endpoint, or empty
// string to use the OTEL_EXPORTER_OTLP_ENDPOINT environment variable.
func (c *Config) GetTelemetryEndpoint() string {
	return c.Telemetry.Endpoint
}
