package utils

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Directory constants
const REPORTER_DIR = ".claude-reporter"
const REPORTS_DIR = "reports"
const DEBUG_LOG_FILE = "debug.log"

// OutputConfig interface defines methods for getting output directories
type OutputConfig interface {
	GetReportsDir() string
	GetReporterDir() string
	GetLogPath() string
}

// OutputPathConfig manages all output directory configuration
type OutputPathConfig struct {
	BaseDir string // Validated absolute path for --output-dir; when set, all outputs go here
}

// Ensure OutputPathConfig implements OutputConfig interface
var _ OutputConfig = (*OutputPathConfig)(nil)

// resolveDir converts dir to an absolute path, creates it if needed, and verifies it is writable.
// Returns the resolved absolute path or an error.
func resolveDir(dir string) (string, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return "", ValidationError{Message: fmt.Sprintf("invalid directory path: %v", err)}
	}

	info, err := os.Stat(absPath)
	if err == nil {
		if !info.IsDir() {
			return "", ValidationError{Message: fmt.Sprintf("path exists but is not a directory: %s", absPath)}
		}
		// Verify write permission
		if file, err := os.CreateTemp(absPath, ".claude_reporter_write_test_*"); err != nil {
			return "", ValidationError{Message: fmt.Sprintf("directory is not writable: %s", absPath)}
		} else {
			_ = file.Close()
			_ = os.Remove(file.Name())
		}
		slog.Debug("Using existing directory", "path", absPath)
	} else if os.IsNotExist(err) {
		slog.Info("Creating directory", "path", absPath)
		if err := os.MkdirAll(absPath, 0755); err != nil {
			return "", ValidationError{Message: fmt.Sprintf("failed to create directory: %v", err)}
		}
	} else {
		return "", ValidationError{Message: fmt.Sprintf("error checking directory: %v", err)}
	}

	return absPath, nil
}

// NewOutputPathConfig creates and validates an output configuration
func NewOutputPathConfig(dir string) (*OutputPathConfig, error) {
	if dir == "" {
		return &OutputPathConfig{}, nil // Use defaults
	}

	absPath, err := resolveDir(dir)
	if err != nil {
		return nil, err
	}

	return &OutputPathConfig{BaseDir: absPath}, nil
}

// getBasePath returns the base directory for all non-report outputs
// (statistics.json, debug.log). When --output-dir is set it uses that
// directory; otherwise falls back to {cwd}/.claude-reporter.
func (c *OutputPathConfig) getBasePath() string {
	if c.BaseDir != "" {
		return c.BaseDir
	}
	cwd, err := os.Getwd()
	if err != nil {
		return REPORTER_DIR
	}
	return filepath.Join(cwd, REPORTER_DIR)
}

// GetReportsDir returns the directory where report documents are written.
// When --output-dir is set, reports go directly in that directory (no
// reports/ subfolder). Otherwise they live in {cwd}/.claude-reporter/reports/.
func (c *OutputPathConfig) GetReportsDir() string {
	if c.BaseDir != "" {
		return c.BaseDir
	}
	return filepath.Join(c.getBasePath(), REPORTS_DIR)
}

// GetReporterDir returns the base directory for statistics.json and debug.log.
func (c *OutputPathConfig) GetReporterDir() string {
	return c.getBasePath()
}

// GetLogPath returns the debug log file path
func (c *OutputPathConfig) GetLogPath() string {
	return filepath.Join(c.getBasePath(), DEBUG_LOG_FILE)
}

// ValidationError represents errors from flag validation that should not display usage
type ValidationError struct {
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

// EnsureReportsDirectoryExists creates the reports directory if it doesn't
// exist. This should be called before writing report files to handle cases
// where the directory is deleted during a long-running watch command.
func EnsureReportsDirectoryExists(config OutputConfig) error {
	reportsPath := config.GetReportsDir()
	if err := os.MkdirAll(reportsPath, 0755); err != nil {
		return fmt.Errorf("error creating reports directory: %v", err)
	}
	return nil
}
