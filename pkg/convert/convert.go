// Package convert sequences the transcript pipeline — cache-backed
// parsing, deduplication, session aggregation, and summary matching — over
// single files, directories of files, or the full Claude Code project
// hierarchy, and exposes the resulting ordered session model to rendering.
package convert

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/nhannguyenhuu241/claude-reporter/pkg/cache"
	"github.com/nhannguyenhuu241/claude-reporter/pkg/session"
	"github.com/nhannguyenhuu241/claude-reporter/pkg/telemetry"
	"github.com/nhannguyenhuu241/claude-reporter/pkg/transcript"
)

// IgnoreFileName is the optional per-directory ignore file honored during
// directory and hierarchy conversions. Patterns use gitignore syntax and
// exclude matching transcript files or project subdirectories.
const IgnoreFileName = ".reporterignore"

// Options configures a Converter.
type Options struct {
	// Cache memoizes per-file parse results. Nil disables caching and every
	// file is parsed directly.
	Cache *cache.Manager

	// Workers bounds file-level parallelism. Zero or one means sequential
	// processing, the baseline contract.
	Workers int

	// SessionID restricts output to a single session when non-empty.
	SessionID string
}

// Stats summarizes one conversion run for the diagnostics channel.
type Stats struct {
	FilesProcessed     int              `json:"filesProcessed"`
	FilesSkipped       int              `json:"filesSkipped"`
	LinesSkipped       int              `json:"linesSkipped"`
	EntriesParsed      int              `json:"entriesParsed"`
	DuplicatesRemoved  int              `json:"duplicatesRemoved"`
	SessionsBuilt      int              `json:"sessionsBuilt"`
	SummariesAttached  int              `json:"summariesAttached"`
	SummariesUnmatched int              `json:"summariesUnmatched"`
	CacheHits          int              `json:"cacheHits"`
	Usage              transcript.Usage `json:"usage"`
	Duration           time.Duration    `json:"duration"`
}

// Result is the output of a conversion run: the ordered session collection
// for the rendering collaborator, plus every recovered diagnostic. A run
// always completes and produces output for all well-formed input; problems
// surface here, not as aborts.
type Result struct {
	RunID       string                  `json:"runId"`
	Sessions    []session.Session       `json:"sessions"`
	Diagnostics []transcript.Diagnostic `json:"diagnostics,omitempty"`
	Stats       Stats                   `json:"stats"`
}

// Converter runs conversions. The zero value converts sequentially with no
// cache.
type Converter struct {
	opts Options
}

// New creates a Converter with the given options.
func New(opts Options) *Converter {
	return &Converter{opts: opts}
}

// ConvertFile converts a single JSONL transcript file.
func (c *Converter) ConvertFile(ctx context.Context, path string) (*Result, error) {
	return c.run(ctx, []string{path})
}

// ConvertDirectory converts every .jsonl file directly inside dir. A file
// that cannot be read at all is skipped with a diagnostic; sibling files
// are still processed.
func (c *Converter) ConvertDirectory(ctx context.Context, dir string) (*Result, error) {
	files, diags, err := discoverFiles(dir, false)
	if err != nil {
		return nil, err
	}
	result, err := c.run(ctx, files)
	if err != nil {
		return nil, err
	}
	prependDiagnostics(result, diags)
	return result, nil
}

// ConvertProject converts the full project hierarchy rooted at root
// (typically ~/.claude/projects), recursing into every project
// subdirectory. Session ordering in the result is global across all
// subdirectories.
func (c *Converter) ConvertProject(ctx context.Context, root string) (*Result, error) {
	files, diags, err := discoverFiles(root, true)
	if err != nil {
		return nil, err
	}
	result, err := c.run(ctx, files)
	if err != nil {
		return nil, err
	}
	prependDiagnostics(result, diags)
	return result, nil
}

// discoverFiles lists .jsonl files under dir, sorted for deterministic
// processing order. An IgnoreFileName file at the root excludes matching
// paths. Unreadable subdirectories become diagnostics, not errors.
func discoverFiles(dir string, recursive bool) ([]string, []transcript.Diagnostic, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, nil, fmt.Errorf("cannot access %s: %w", dir, err)
	}

	matcher := loadIgnoreFile(dir)

	var files []string
	var diags []transcript.Diagnostic
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			diags = append(diags, transcript.Diagnostic{
				File:   path,
				Reason: fmt.Sprintf("unreadable: %v", err),
			})
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			rel = path
		}
		if info.IsDir() {
			if path != dir && (!recursive || (matcher != nil && matcher.MatchesPath(rel+"/"))) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".jsonl") {
			return nil
		}
		if matcher != nil && matcher.MatchesPath(rel) {
			slog.Debug("ignoring transcript file", "file", rel)
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	sort.Strings(files)
	return files, diags, nil
}

// loadIgnoreFile compiles dir's ignore file, or returns nil when absent or
// malformed.
func loadIgnoreFile(dir string) *ignore.GitIgnore {
	path := filepath.Join(dir, IgnoreFileName)
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	matcher, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		slog.Warn("could not compile ignore file", "path", path, "error", err)
		return nil
	}
	slog.Debug("loaded ignore file", "path", path)
	return matcher
}

// run executes the pipeline over an explicit file list.
func (c *Converter) run(ctx context.Context, files []string) (*Result, error) {
	start := time.Now()
	result := &Result{RunID: uuid.New().String()}
	slog.Info("conversion starting", "runId", result.RunID, "files", len(files))

	// Phase 1: parse every file (cache-backed), accumulating entries in
	// file order. This is the only phase that may run per-file work
	// concurrently; everything after it needs the globally complete entry
	// set.
	parses, err := c.parseFiles(ctx, files, result)
	if err != nil {
		return nil, err
	}

	var entries []transcript.Entry
	for _, p := range parses {
		entries = append(entries, p.Entries...)
	}
	result.Stats.EntriesParsed = len(entries)

	// Phase 2: deduplicate across the whole scope.
	unique := transcript.Deduplicate(entries)
	result.Stats.DuplicatesRemoved = len(entries) - len(unique)

	// Phase 3: aggregate sessions, then attach summaries in a second pass
	// over the complete message-identifier index.
	messages, summaries := session.SplitSummaries(unique)
	sessions, err := session.Build(messages)
	if err != nil {
		return nil, fmt.Errorf("session aggregation failed: %w", err)
	}

	match := session.AttachSummaries(sessions, summaries)
	for _, unmatched := range match.Unmatched {
		result.Diagnostics = append(result.Diagnostics, transcript.Diagnostic{
			File:   unmatched.File,
			Line:   unmatched.Line,
			ID:     unmatched.LeafUUID,
			Reason: "unmatched summary: leaf message not found in conversion scope",
		})
	}

	if c.opts.SessionID != "" {
		sessions = filterSessions(sessions, c.opts.SessionID)
	}

	session.SortByFirstTimestamp(sessions)
	result.Sessions = sessions

	// Finalize stats.
	result.Stats.SessionsBuilt = len(sessions)
	result.Stats.SummariesAttached = match.Attached
	result.Stats.SummariesUnmatched = len(match.Unmatched)
	for _, s := range sessions {
		result.Stats.Usage = result.Stats.Usage.Add(s.Usage)
	}
	result.Stats.Duration = time.Since(start)

	telemetry.RecordConversion(ctx,
		result.Stats.SessionsBuilt,
		result.Stats.SummariesAttached,
		result.Stats.SummariesUnmatched,
		result.Stats.Usage.InputTokens,
		result.Stats.Usage.OutputTokens,
		result.Stats.Usage.CacheCreationTokens,
		result.Stats.Usage.CacheReadTokens,
		result.Stats.Duration)

	slog.Info("conversion completed",
		"runId", result.RunID,
		"files", result.Stats.FilesProcessed,
		"sessions", result.Stats.SessionsBuilt,
		"entries", result.Stats.EntriesParsed,
		"duplicates", result.Stats.DuplicatesRemoved,
		"linesSkipped", result.Stats.LinesSkipped,
		"summariesUnmatched", result.Stats.SummariesUnmatched,
		"duration", result.Stats.Duration)
	return result, nil
}

// parseOne parses a single file through the cache when one is configured.
func (c *Converter) parseOne(ctx context.Context, path string) (transcript.ParseResult, bool, error) {
	if c.opts.Cache != nil {
		return c.opts.Cache.GetOrParse(ctx, path)
	}
	result, err := transcript.ParseFile(path)
	return result, false, err
}

// filterSessions keeps only the session with the given identifier.
func filterSessions(sessions []session.Session, id string) []session.Session {
	for _, s := range sessions {
		if s.ID == id {
			return []session.Session{s}
		}
	}
	return nil
}

// prependDiagnostics puts discovery-phase diagnostics ahead of run
// diagnostics so file-level problems read before line-level ones.
func prependDiagnostics(result *Result, diags []transcript.Diagnostic) {
	if len(diags) == 0 {
		return
	}
	result.Diagnostics = append(diags, result.Diagnostics...)
	result.Stats.FilesSkipped += len(diags)
}
