// Package cmd contains CLI command implementations for claude-reporter.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nhannguyenhuu241/claude-reporter/pkg/cache"
	"github.com/nhannguyenhuu241/claude-reporter/pkg/config"
	"github.com/nhannguyenhuu241/claude-reporter/pkg/convert"
	"github.com/nhannguyenhuu241/claude-reporter/pkg/project"
	"github.com/nhannguyenhuu241/claude-reporter/pkg/utils"
)

// Runtime carries the configuration and build metadata commands need.
// main populates it once in PersistentPreRunE, after flags and config
// files are merged.
type Runtime struct {
	Config  *config.Config
	Version string
}

// NewConverter builds a Converter per the active configuration. The
// returned cleanup closes the cache store and must be called even when the
// conversion fails.
func (r *Runtime) NewConverter(sessionID string) (*convert.Converter, func(), error) {
	opts := convert.Options{
		Workers:   r.Config.GetWorkers(),
		SessionID: sessionID,
	}

	cleanup := func() {}
	if r.Config.IsCacheEnabled() {
		cachePath := r.Config.GetCachePath()
		if err := os.MkdirAll(filepath.Dir(cachePath), 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
		store, err := cache.OpenStore(cachePath)
		if err != nil {
			// A broken cache store degrades to uncached parsing.
			slog.Warn("could not open parse cache, continuing without it", "path", cachePath, "error", err)
		} else {
			opts.Cache = cache.NewManager(store, cache.FingerprintMode(r.Config.GetCacheFingerprint()))
			cleanup = func() { _ = store.Close() }
		}
	}

	return convert.New(opts), cleanup, nil
}

// ResolveScope maps a command's positional argument onto a conversion
// scope. No argument means the Claude project directory for the current
// working directory; an explicit path is used as given.
func ResolveScope(args []string) (path string, isDir bool, err error) {
	if len(args) == 0 {
		cwd, err := os.Getwd()
		if err != nil {
			return "", false, err
		}
		dir, err := project.Dir(cwd)
		if err != nil {
			return "", false, err
		}
		return dir, true, nil
	}

	info, err := os.Stat(args[0])
	if err != nil {
		return "", false, utils.ValidationError{Message: fmt.Sprintf("cannot access %s: %v", args[0], err)}
	}
	return args[0], info.IsDir(), nil
}
