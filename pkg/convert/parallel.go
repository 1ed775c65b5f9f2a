package convert

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nhannguyenhuu241/claude-reporter/pkg/telemetry"
	"github.com/nhannguyenhuu241/claude-reporter/pkg/transcript"
)

// fileParse is the outcome of parsing one file, tagged with its position in
// the sorted file list so concurrent results merge back deterministically.
type fileParse struct {
	index  int
	path   string
	result transcript.ParseResult
	hit    bool
	err    error
}

// parseFiles runs phase 1 over the file list and folds every outcome into
// result at a single accumulation point, in sorted file order regardless of
// worker count. An unreadable file becomes a file-level diagnostic; only
// context cancellation aborts the run.
func (c *Converter) parseFiles(ctx context.Context, files []string, result *Result) ([]transcript.ParseResult, error) {
	var outcomes []fileParse
	var err error
	if c.opts.Workers > 1 && len(files) > 1 {
		outcomes, err = c.parseConcurrent(ctx, files)
	} else {
		outcomes, err = c.parseSequential(ctx, files)
	}
	if err != nil {
		return nil, err
	}

	parses := make([]transcript.ParseResult, 0, len(outcomes))
	for _, o := range outcomes {
		if o.err != nil {
			result.Diagnostics = append(result.Diagnostics, transcript.Diagnostic{
				File:   o.path,
				Reason: fmt.Sprintf("file skipped: %v", o.err),
			})
			result.Stats.FilesSkipped++
			slog.Warn("skipping unreadable transcript file", "file", o.path, "error", o.err)
			continue
		}
		result.Diagnostics = append(result.Diagnostics, o.result.Diagnostics...)
		result.Stats.LinesSkipped += len(o.result.Diagnostics)
		result.Stats.FilesProcessed++
		if o.hit {
			result.Stats.CacheHits++
		}
		telemetry.RecordFileParsed(ctx, len(o.result.Entries), len(o.result.Diagnostics))
		parses = append(parses, o.result)
	}
	return parses, nil
}

func (c *Converter) parseSequential(ctx context.Context, files []string) ([]fileParse, error) {
	outcomes := make([]fileParse, 0, len(files))
	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, hit, err := c.parseOne(ctx, path)
		outcomes = append(outcomes, fileParse{index: i, path: path, result: result, hit: hit, err: err})
	}
	return outcomes, nil
}

// parseConcurrent parses files on a bounded worker pool. Workers only parse;
// outcomes land in a preallocated slot per file, so the merged view is
// identical to a sequential run.
func (c *Converter) parseConcurrent(ctx context.Context, files []string) ([]fileParse, error) {
	workers := c.opts.Workers
	if workers > len(files) {
		workers = len(files)
	}
	slog.Debug("parsing files concurrently", "files", len(files), "workers", workers)

	outcomes := make([]fileParse, len(files))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				result, hit, err := c.parseOne(ctx, files[i])
				outcomes[i] = fileParse{index: i, path: files[i], result: result, hit: hit, err: err}
			}
		}()
	}

	var cancelled error
feed:
	for i := range files {
		// Checked before the select: a worker ready on jobs would otherwise
		// race the done channel and occasionally win after cancellation.
		if err := ctx.Err(); err != nil {
			cancelled = err
			break feed
		}
		select {
		case jobs <- i:
		case <-ctx.Done():
			cancelled = ctx.Err()
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if cancelled != nil {
		return nil, cancelled
	}
	return outcomes, nil
}
