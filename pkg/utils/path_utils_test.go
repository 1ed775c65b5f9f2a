package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewOutputPathConfigDefaults(t *testing.T) {
	config, err := NewOutputPathConfig("")
	if err != nil {
		t.Fatalf("NewOutputPathConfig: %v", err)
	}
	if config.BaseDir != "" {
		t.Errorf("BaseDir = %q, want empty for defaults", config.BaseDir)
	}

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	wantReports := filepath.Join(cwd, REPORTER_DIR, REPORTS_DIR)
	if got := config.GetReportsDir(); got != wantReports {
		t.Errorf("GetReportsDir() = %q, want %q", got, wantReports)
	}
	wantLog := filepath.Join(cwd, REPORTER_DIR, DEBUG_LOG_FILE)
	if got := config.GetLogPath(); got != wantLog {
		t.Errorf("GetLogPath() = %q, want %q", got, wantLog)
	}
}

func TestNewOutputPathConfigExplicitDir(t *testing.T) {
	dir := t.TempDir()
	config, err := NewOutputPathConfig(dir)
	if err != nil {
		t.Fatalf("NewOutputPathConfig: %v", err)
	}

	// Explicit output dir takes everything directly, no reports/ subfolder.
	if got := config.GetReportsDir(); got != dir {
		t.Errorf("GetReportsDir() = %q, want %q", got, dir)
	}
	if got := config.GetReporterDir(); got != dir {
		t.Errorf("GetReporterDir() = %q, want %q", got, dir)
	}
	if got := config.GetLogPath(); got != filepath.Join(dir, DEBUG_LOG_FILE) {
		t.Errorf("GetLogPath() = %q", got)
	}
}

func TestNewOutputPathConfigCreatesMissing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports", "nested")
	config, err := NewOutputPathConfig(dir)
	if err != nil {
		t.Fatalf("NewOutputPathConfig: %v", err)
	}
	if config.BaseDir != dir {
		t.Errorf("BaseDir = %q, want %q", config.BaseDir, dir)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("directory not created: %v", err)
	}
}

func TestNewOutputPathConfigRejectsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := NewOutputPathConfig(path)
	if err == nil {
		t.Fatal("expected error for non-directory path")
	}
	if _, ok := err.(ValidationError); !ok {
		t.Errorf("error type = %T, want ValidationError", err)
	}
}

func TestEnsureReportsDirectoryExists(t *testing.T) {
	base := t.TempDir()
	config := &OutputPathConfig{BaseDir: filepath.Join(base, "out")}

	if err := EnsureReportsDirectoryExists(config); err != nil {
		t.Fatalf("EnsureReportsDirectoryExists: %v", err)
	}
	if info, err := os.Stat(config.GetReportsDir()); err != nil || !info.IsDir() {
		t.Errorf("reports directory not created: %v", err)
	}

	// Second call on an existing directory is a no-op.
	if err := EnsureReportsDirectoryExists(config); err != nil {
		t.Errorf("EnsureReportsDirectoryExists (repeat): %v", err)
	}
}
