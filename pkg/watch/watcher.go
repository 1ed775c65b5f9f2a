// Package watch monitors a transcript directory for JSONL activity and
// triggers incremental reconversion as sessions grow.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces bursts of write events into one reconversion.
// Claude Code appends to a session file many times per minute while a
// conversation is active.
const DefaultDebounce = 500 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	// Dir is the directory to monitor. If it does not exist yet, the
	// watcher waits on the parent for its creation.
	Dir string

	// Debounce is the quiet period before changed files are reported.
	// Zero means DefaultDebounce.
	Debounce time.Duration

	// OnChange is invoked with the set of changed JSONL paths after each
	// debounce window. Invocations are serialized on the watcher goroutine.
	OnChange func(ctx context.Context, changed []string)
}

// Watcher monitors a directory for JSONL creates and writes.
type Watcher struct {
	opts Options
}

// New creates a Watcher. OnChange is required.
func New(opts Options) (*Watcher, error) {
	if opts.OnChange == nil {
		return nil, fmt.Errorf("watch: OnChange callback is required")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	return &Watcher{opts: opts}, nil
}

// Run blocks until ctx is cancelled, reporting changed JSONL files through
// OnChange. The directory not existing yet is not an error; Run waits for
// it to appear.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	dir := w.opts.Dir
	if _, err := os.Stat(dir); err != nil {
		slog.Warn("watch directory not present, waiting for creation", "dir", dir, "error", err)
		dir, err = w.awaitCreation(ctx, watcher, dir)
		if err != nil {
			return err
		}
	}

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	slog.Info("monitoring transcript directory", "dir", dir, "debounce", w.opts.Debounce)

	// pending accumulates changed paths until the debounce timer fires.
	pending := make(map[string]struct{})
	timer := time.NewTimer(w.opts.Debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("watch cancelled")
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(event.Name, ".jsonl") {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			slog.Debug("transcript activity", "op", event.Op.String(), "file", event.Name)
			if len(pending) == 0 {
				timer.Reset(w.opts.Debounce)
			}
			pending[event.Name] = struct{}{}

		case <-timer.C:
			changed := make([]string, 0, len(pending))
			for path := range pending {
				changed = append(changed, path)
			}
			pending = make(map[string]struct{})
			slog.Debug("debounce window closed", "changed", len(changed))
			w.opts.OnChange(ctx, changed)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

// awaitCreation watches dir's parent until dir is created, then returns the
// created directory's actual name (the filesystem may differ in case).
func (w *Watcher) awaitCreation(ctx context.Context, watcher *fsnotify.Watcher, dir string) (string, error) {
	parent := filepath.Dir(dir)
	want := filepath.Base(dir)
	if err := watcher.Add(parent); err != nil {
		return "", fmt.Errorf("failed to watch parent directory %s: %w", parent, err)
	}
	defer func() {
		_ = watcher.Remove(parent)
	}()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return "", fmt.Errorf("watcher closed while waiting for %s", dir)
			}
			if event.Has(fsnotify.Create) && strings.EqualFold(filepath.Base(event.Name), want) {
				slog.Info("watch directory created", "dir", event.Name)
				return event.Name, nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return "", fmt.Errorf("watcher closed while waiting for %s", dir)
			}
			slog.Error("watcher error while waiting for directory", "error", err)
		}
	}
}
