package config

import (
	"os"
	"path/filepath"
	"testing"
)

// Helper to create a temporary config file with the given content
func createTempConfigFile(t *testing.T, dir, content string) string {
	t.Helper()
	reporterDir := filepath.Join(dir, ReporterDir)
	if err := os.MkdirAll(reporterDir, 0755); err != nil {
		t.Fatalf("Failed to create %s dir: %v", ReporterDir, err)
	}
	configPath := filepath.Join(reporterDir, ConfigFileName)
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return configPath
}

// setupConfigDirs points HOME and the working directory at fresh temp
// directories and restores both on cleanup.
func setupConfigDirs(t *testing.T) (home, project string) {
	t.Helper()

	origWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(origWd) })

	home = t.TempDir()
	project = t.TempDir()
	t.Setenv("HOME", home)
	if err := os.Chdir(project); err != nil {
		t.Fatalf("Failed to chdir: %v", err)
	}
	return home, project
}

// TestLoadPrecedence tests that project config overrides user config
func TestLoadPrecedence(t *testing.T) {
	tests := []struct {
		name           string
		userConfig     string
		projectConfig  string
		expectedOutDir string
	}{
		{
			name:           "project config overrides user config",
			userConfig:     `output_dir = "/user/path"`,
			projectConfig:  `output_dir = "/project/path"`,
			expectedOutDir: "/project/path",
		},
		{
			name:           "user config used when no project config",
			userConfig:     `output_dir = "/user/path"`,
			projectConfig:  "",
			expectedOutDir: "/user/path",
		},
		{
			name:           "project config used when no user config",
			userConfig:     "",
			projectConfig:  `output_dir = "/project/path"`,
			expectedOutDir: "/project/path",
		},
		{
			name:           "empty when no config files",
			userConfig:     "",
			projectConfig:  "",
			expectedOutDir: "",
		},
		{
			name: "project nested config overrides user nested config",
			userConfig: `
[cache]
enabled = true
`,
			projectConfig: `
[cache]
enabled = false
`,
			expectedOutDir: "", // We check cache separately below
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempHome, tempProject := setupConfigDirs(t)

			if tt.userConfig != "" {
				createTempConfigFile(t, tempHome, tt.userConfig)
			}
			if tt.projectConfig != "" {
				createTempConfigFile(t, tempProject, tt.projectConfig)
			}

			cfg, err := Load(nil)
			if err != nil {
				t.Fatalf("Load() returned error: %v", err)
			}

			if cfg.GetOutputDir() != tt.expectedOutDir {
				t.Errorf("GetOutputDir() = %q, want %q", cfg.GetOutputDir(), tt.expectedOutDir)
			}

			if tt.name == "project nested config overrides user nested config" {
				if cfg.IsCacheEnabled() {
					t.Errorf("IsCacheEnabled() = true, want false (project should override user)")
				}
			}
		})
	}
}

// TestCLIOverrides tests that CLI flags override config file settings
func TestCLIOverrides(t *testing.T) {
	tests := []struct {
		name      string
		config    string
		overrides *CLIOverrides
		validate  func(t *testing.T, cfg *Config)
	}{
		{
			name:      "output dir flag overrides config file",
			config:    `output_dir = "/from/config"`,
			overrides: &CLIOverrides{OutputDir: "/from/flag"},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.GetOutputDir() != "/from/flag" {
					t.Errorf("GetOutputDir() = %q, want %q", cfg.GetOutputDir(), "/from/flag")
				}
			},
		},
		{
			name: "no-cache flag disables enabled cache",
			config: `
[cache]
enabled = true
`,
			overrides: &CLIOverrides{NoCache: true},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.IsCacheEnabled() {
					t.Error("IsCacheEnabled() = true, want false")
				}
			},
		},
		{
			name: "workers flag overrides config file",
			config: `
[convert]
workers = 2
`,
			overrides: &CLIOverrides{Workers: 8},
			validate: func(t *testing.T, cfg *Config) {
				if got := cfg.GetWorkers(); got != 8 {
					t.Errorf("GetWorkers() = %d, want 8", got)
				}
			},
		},
		{
			name: "fingerprint flag overrides config file",
			config: `
[cache]
fingerprint = "mtime"
`,
			overrides: &CLIOverrides{CacheFingerprint: "sha256"},
			validate: func(t *testing.T, cfg *Config) {
				if got := cfg.GetCacheFingerprint(); got != "sha256" {
					t.Errorf("GetCacheFingerprint() = %q, want %q", got, "sha256")
				}
			},
		},
		{
			name: "debug flag enables debug logging",
			config: `
[logging]
debug = false
`,
			overrides: &CLIOverrides{Debug: true},
			validate: func(t *testing.T, cfg *Config) {
				if !cfg.IsDebugEnabled() {
					t.Error("IsDebugEnabled() = false, want true")
				}
			},
		},
		{
			name: "no-analytics flag disables analytics",
			config: `
[analytics]
enabled = true
`,
			overrides: &CLIOverrides{NoAnalytics: true},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.IsAnalyticsEnabled() {
					t.Error("IsAnalyticsEnabled() = true, want false")
				}
			},
		},
		{
			name:      "unset flags leave config values alone",
			config:    `output_dir = "/from/config"`,
			overrides: &CLIOverrides{},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.GetOutputDir() != "/from/config" {
					t.Errorf("GetOutputDir() = %q, want %q", cfg.GetOutputDir(), "/from/config")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, tempProject := setupConfigDirs(t)

			if tt.config != "" {
				createTempConfigFile(t, tempProject, tt.config)
			}

			cfg, err := Load(tt.overrides)
			if err != nil {
				t.Fatalf("Load() returned error: %v", err)
			}
			tt.validate(t, cfg)
		})
	}
}

// TestDefaults tests getter defaults when nothing is configured
func TestDefaults(t *testing.T) {
	setupConfigDirs(t)

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if !cfg.IsCacheEnabled() {
		t.Error("IsCacheEnabled() default = false, want true")
	}
	if got := cfg.GetCacheFingerprint(); got != "mtime" {
		t.Errorf("GetCacheFingerprint() default = %q, want %q", got, "mtime")
	}
	if got := cfg.GetWorkers(); got != 1 {
		t.Errorf("GetWorkers() default = %d, want 1", got)
	}
	if cfg.IsConsoleEnabled() {
		t.Error("IsConsoleEnabled() default = true, want false")
	}
	if cfg.IsLogEnabled() {
		t.Error("IsLogEnabled() default = true, want false")
	}
	if cfg.IsDebugEnabled() {
		t.Error("IsDebugEnabled() default = true, want false")
	}
	if cfg.IsSilentEnabled() {
		t.Error("IsSilentEnabled() default = true, want false")
	}
	if !cfg.IsAnalyticsEnabled() {
		t.Error("IsAnalyticsEnabled() default = false, want true")
	}
	if cfg.IsTelemetryEnabled() {
		t.Error("IsTelemetryEnabled() default = true, want false")
	}
}

// TestGetCachePath tests cache path resolution
func TestGetCachePath(t *testing.T) {
	tempHome, tempProject := setupConfigDirs(t)

	createTempConfigFile(t, tempProject, `
[cache]
dir = "/custom/cache"
`)
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if got, want := cfg.GetCachePath(), filepath.Join("/custom/cache", "cache.db"); got != want {
		t.Errorf("GetCachePath() = %q, want %q", got, want)
	}

	// Default falls back under the home dotdir.
	empty := &Config{}
	want := filepath.Join(tempHome, ReporterDir, "cache.db")
	if got := empty.GetCachePath(); got != want {
		t.Errorf("GetCachePath() default = %q, want %q", got, want)
	}
}

// TestInvalidTOML tests that a malformed config file is skipped
func TestInvalidTOML(t *testing.T) {
	_, tempProject := setupConfigDirs(t)

	createTempConfigFile(t, tempProject, `output_dir = [broken`)

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.GetOutputDir() != "" {
		t.Errorf("GetOutputDir() = %q, want empty for malformed config", cfg.GetOutputDir())
	}
}
