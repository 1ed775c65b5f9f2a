package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/nhannguyenhuu241/claude-reporter/pkg/analytics"
	cmdpkg "github.com/nhannguyenhuu241/claude-reporter/pkg/cmd"
	"github.com/nhannguyenhuu241/claude-reporter/pkg/config"
	"github.com/nhannguyenhuu241/claude-reporter/pkg/log"
	"github.com/nhannguyenhuu241/claude-reporter/pkg/telemetry"
	"github.com/nhannguyenhuu241/claude-reporter/pkg/utils"
)

// The current version of the CLI
var version = "dev" // Replaced with actual version in the production build process

// Flags / Modes / Options

// General Options
var noAnalytics bool // flag to disable usage analytics
var outputDir string // custom output directory for report files
// Cache Options
var noCache bool            // flag to disable the parse cache
var cacheDir string         // custom parse cache directory
var cacheFingerprint string // fingerprint mode: mtime or sha256
// Conversion Options
var workers int // file-level parallelism for conversion
// Logging and Debugging Options
var console bool // flag to enable logging to the console
var logFile bool // flag to enable logging to the log file
var debug bool   // flag to enable debug level logging
var silent bool  // flag to enable silent output (no user messages)

var runtime = &cmdpkg.Runtime{}

// validateFlags checks for mutually exclusive flag combinations
func validateFlags() error {
	if console && silent {
		return utils.ValidationError{Message: "cannot use --console and --silent together. These flags are mutually exclusive"}
	}
	if debug && !console && !logFile {
		return utils.ValidationError{Message: "--debug requires either --console or --log to be specified"}
	}
	if cacheFingerprint != "" && cacheFingerprint != "mtime" && cacheFingerprint != "sha256" {
		return utils.ValidationError{Message: "--fingerprint must be 'mtime' or 'sha256'"}
	}
	if workers < 0 {
		return utils.ValidationError{Message: "--workers must be zero or positive"}
	}
	return nil
}

// createRootCommand creates the root command
func createRootCommand() *cobra.Command {
	examples := `
# Convert the Claude transcripts for the current project directory
claude-reporter convert

# List reconstructed sessions
claude-reporter list

# Watch for transcript activity and reconvert continuously
claude-reporter watch

# Clear the parse cache
claude-reporter cache clear`

	return &cobra.Command{
		Use:   "claude-reporter [command]",
		Short: "claude-reporter turns Claude Code transcripts into session reports",
		Long: `claude-reporter reads the JSONL transcript files Claude Code writes under
~/.claude/projects, reconstructs complete sessions from them — including
summaries generated in other files — and emits versioned JSON reports.`,
		Example:           examples,
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate flags before any other setup
			if err := validateFlags(); err != nil {
				fmt.Println() // Visual separation before error message
				return err
			}

			// Merge config files with flag overrides
			cfg, err := config.Load(&config.CLIOverrides{
				OutputDir:        outputDir,
				NoCache:          noCache,
				CacheDir:         cacheDir,
				CacheFingerprint: cacheFingerprint,
				Workers:          workers,
				Console:          console,
				Log:              logFile,
				Debug:            debug,
				Silent:           silent,
				NoAnalytics:      noAnalytics,
			})
			if err != nil {
				return err
			}
			runtime.Config = cfg
			runtime.Version = version

			// Configure logging per the merged configuration
			var logPath string
			if cfg.IsLogEnabled() {
				pathConfig, err := utils.NewOutputPathConfig(cfg.GetOutputDir())
				if err != nil {
					return err
				}
				logPath = pathConfig.GetLogPath()
			}
			if err := log.Setup(log.Options{
				Console: cfg.IsConsoleEnabled(),
				File:    cfg.IsLogEnabled(),
				Path:    logPath,
				Debug:   cfg.IsDebugEnabled(),
				Silent:  cfg.IsSilentEnabled(),
			}); err != nil {
				return fmt.Errorf("failed to set up logger: %v", err)
			}

			if cfg.IsConsoleEnabled() || cfg.IsLogEnabled() {
				slog.Info("=== claude-reporter starting ===")
				slog.Info("Version", "version", version)
				slog.Info("Command line", "args", strings.Join(os.Args, " "))
				if cwd, err := os.Getwd(); err == nil {
					slog.Info("Current working directory", "cwd", cwd)
				}
			}

			// Metrics export is opt-in via config
			if cfg.IsTelemetryEnabled() {
				if err := telemetry.Init(cmd.Context(), telemetry.Options{
					ServiceName: "claude-reporter",
					Endpoint:    cfg.GetTelemetryEndpoint(),
					Enabled:     true,
				}); err != nil {
					slog.Warn("Failed to initialize telemetry", "error", err)
				}
			}

			return nil
		},
		Run: func(c *cobra.Command, args []string) {
			// Track help command usage (when no command is specified)
			analytics.TrackEvent(analytics.EventHelpCommand, analytics.Properties{
				"help_topic":  "general",
				"help_reason": "requested",
			})
			_ = c.Help()
		},
	}
}

var rootCmd *cobra.Command

func main() {
	// Peek at logging flags before cobra parses them, so command
	// construction happens with logging already configured.
	for _, arg := range os.Args[1:] {
		switch arg {
		case "--console":
			console = true
		case "--log":
			logFile = true
		case "--debug":
			debug = true
		case "--silent":
			silent = true
		case "--no-usage-analytics":
			noAnalytics = true
		}
	}

	rootCmd = createRootCommand()
	convertCmd := cmdpkg.CreateConvertCommand(runtime)
	listCmd := cmdpkg.CreateListCommand(runtime)
	watchCmd := cmdpkg.CreateWatchCommand(runtime)
	cacheCmd := cmdpkg.CreateCacheCommand(runtime)
	versionCmd := cmdpkg.CreateVersionCommand(version)

	// Set version for the automatic version flag
	rootCmd.Version = version
	rootCmd.SetVersionTemplate("claude-reporter {{.Version}}")

	// Set our custom help command (for "claude-reporter help")
	rootCmd.SetHelpCommand(cmdpkg.CreateHelpCommand(rootCmd))

	// Add the subcommands
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(versionCmd)

	// Global flags available on all commands
	rootCmd.PersistentFlags().BoolVar(&console, "console", false, "enable error/warn/info output to stdout")
	rootCmd.PersistentFlags().BoolVar(&logFile, "log", false, "write error/warn/info output to ./.claude-reporter/debug.log")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug-level output (requires --console or --log)")
	rootCmd.PersistentFlags().BoolVar(&silent, "silent", false, "suppress all non-error output")
	rootCmd.PersistentFlags().BoolVar(&noAnalytics, "no-usage-analytics", false, "disable usage analytics")
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "disable the parse cache for this run")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "custom parse cache directory (default: ~/.claude-reporter)")
	rootCmd.PersistentFlags().StringVar(&cacheFingerprint, "fingerprint", "", "file change detection: mtime or sha256 (default: mtime)")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "parse this many transcript files concurrently (default: 1)")

	// Initialize analytics with the full CLI command (unless disabled)
	if !noAnalytics {
		fullCommand := strings.Join(os.Args, " ")
		if err := analytics.Init(fullCommand, version); err != nil {
			// Log error but don't fail - analytics should not break the app
			slog.Warn("Failed to initialize analytics", "error", err)
		}
		defer func() { _ = analytics.Close() }()
	}

	// Ensure proper cleanup and logging on exit
	defer func() {
		if r := recover(); r != nil {
			slog.Error("=== claude-reporter PANIC ===", "panic", r)
			shutdownTelemetry()
			log.Close()
			panic(r) // Re-panic after logging
		}
		shutdownTelemetry()
		if console || logFile {
			slog.Info("=== claude-reporter exiting ===", "code", 0, "status", "normal termination")
		}
		log.Close()
	}()

	if err := fang.Execute(context.Background(), rootCmd, fang.WithVersion(version)); err != nil {
		if console || logFile {
			slog.Error("=== claude-reporter exiting ===", "code", 1, "status", "error")
			slog.Error("Error", "error", err)
		}
		fmt.Fprintln(os.Stderr) // Visual separation makes error output more noticeable

		// Only show usage for actual command/flag errors from Cobra.
		// For all other errors (file system, cache, parse), usage is noise.
		errMsg := err.Error()
		isCommandError := strings.Contains(errMsg, "unknown command") ||
			strings.Contains(errMsg, "unknown flag") ||
			strings.Contains(errMsg, "invalid argument") ||
			strings.Contains(errMsg, "required flag") ||
			strings.Contains(errMsg, "accepts") || // e.g., "accepts 1 arg(s), received 2"
			strings.Contains(errMsg, "no such flag") ||
			strings.Contains(errMsg, "flag needs an argument")
		if isCommandError {
			_ = rootCmd.Usage() // Ignore error; we're exiting anyway
			fmt.Println()
		}

		shutdownTelemetry()
		log.Close()
		_ = analytics.Close()
		os.Exit(1)
	}
}

// shutdownTelemetry flushes pending metrics with a bounded wait.
func shutdownTelemetry() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := telemetry.Shutdown(ctx); err != nil {
		slog.Debug("telemetry shutdown", "error", err)
	}
}
