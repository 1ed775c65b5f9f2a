// Package project maps working directories to Claude Code project
// transcript directories and derives human-readable session slugs.
package project

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// nonProjectChars matches everything Claude Code replaces with a dash when
// deriving a project directory name from a working directory.
var nonProjectChars = regexp.MustCompile(`[^a-zA-Z0-9-]`)

// ProjectsDir returns the path to the Claude Code projects directory
// (~/.claude/projects), verifying that it exists.
func ProjectsDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	projectsDir := filepath.Join(homeDir, ".claude", "projects")
	if _, err := os.Stat(projectsDir); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("claude projects directory not found at %s", projectsDir)
		}
		return "", fmt.Errorf("error checking claude projects directory: %w", err)
	}
	return projectsDir, nil
}

// EncodeProjectPath converts an absolute working directory into the
// directory name Claude Code uses under ~/.claude/projects: every
// non-alphanumeric character becomes a dash, with a leading dash.
// "/Users/ann/My Projects(1)/app" becomes "-Users-ann-My-Projects-1--app".
func EncodeProjectPath(path string) string {
	name := nonProjectChars.ReplaceAllString(path, "-")
	if !strings.HasPrefix(name, "-") {
		name = "-" + name
	}
	return name
}

// Dir returns the Claude Code project transcript directory for the given
// working directory, or for the current working directory when path is
// empty. Symlinks are resolved first because Claude Code encodes the real
// path when it creates project directories.
func Dir(path string) (string, error) {
	cwd := path
	if cwd == "" {
		var err error
		cwd, err = os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get current working directory: %w", err)
		}
	}

	realPath, err := filepath.EvalSymlinks(cwd)
	if err != nil {
		return "", fmt.Errorf("failed to resolve symlinks in %s: %w", cwd, err)
	}
	if realPath != cwd {
		slog.Debug("resolved symlinks in working directory", "original", cwd, "resolved", realPath)
	}

	projectsDir, err := ProjectsDir()
	if err != nil {
		return "", err
	}

	dir := filepath.Join(projectsDir, EncodeProjectPath(realPath))
	slog.Debug("mapped working directory to project directory", "cwd", realPath, "projectDir", dir)
	return dir, nil
}
