package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhannguyenhuu241/claude-reporter/pkg/analytics"
	"github.com/nhannguyenhuu241/claude-reporter/pkg/convert"
	"github.com/nhannguyenhuu241/claude-reporter/pkg/log"
	"github.com/nhannguyenhuu241/claude-reporter/pkg/schema"
	"github.com/nhannguyenhuu241/claude-reporter/pkg/watch"
)

// truncateSessionID shortens a UUID to first5...last5 for display.
// Full IDs are available in --json output; the short form is enough
// to visually distinguish sessions.
func truncateSessionID(id string) string {
	if len(id) <= 13 {
		return id
	}
	return id[:5] + "..." + id[len(id)-5:]
}

// CreateWatchCommand creates the watch command.
func CreateWatchCommand(rt *Runtime) *cobra.Command {
	examples := `
# Watch the current project's transcripts and reconvert on activity
claude-reporter watch

# Watch an explicit transcript directory
claude-reporter watch ~/.claude/projects/-home-me-src-app

# Emit one JSON line per reconversion (for programmatic use)
claude-reporter watch --json`

	watchCmd := &cobra.Command{
		Use:     "watch [path]",
		Aliases: []string{"w"},
		Short:   "Watch Claude Code transcripts and reconvert on activity",
		Long: `Monitor a transcript directory and regenerate the session report whenever
Claude Code appends to a session file.

With no argument, watches the transcript directory recorded for the
current working directory. The directory not existing yet is fine; the
watcher waits for Claude Code to create it.`,
		Example: examples,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.Info("Running in watch mode")

			jsonOutput, _ := cmd.Flags().GetBool("json")
			outputDir, _ := cmd.Flags().GetString("output-dir")
			debounce, _ := cmd.Flags().GetDuration("debounce")

			dir, _, err := resolveWatchDir(args)
			if err != nil {
				return err
			}

			converter, cleanup, err := rt.NewConverter("")
			if err != nil {
				return err
			}
			defer cleanup()

			analytics.TrackEvent(analytics.EventWatchStarted, analytics.Properties{
				"json_output": jsonOutput,
			})

			if !log.IsSilent() && !jsonOutput {
				fmt.Println()
				fmt.Println("Watching for Claude Code activity in: " + dir)
				fmt.Println("   Press Ctrl+C to stop watching")
				fmt.Println()
			}

			// Reconvert the whole directory on each change burst. The parse
			// cache keeps this cheap: unchanged files are served from the
			// store and only the appended-to sessions are reparsed.
			onChange := func(ctx context.Context, changed []string) {
				result, err := converter.ConvertDirectory(ctx, dir)
				if err != nil {
					// Keep the watcher alive through transient failures.
					slog.Error("reconversion failed", "error", err)
					return
				}

				reportPath, err := writeReport(outputDir, result.RunID, mustMarshalReport(rt, result))
				if err != nil {
					slog.Error("failed to write report", "error", err)
					return
				}

				analytics.TrackEvent(analytics.EventWatchUpdate, analytics.Properties{
					"changed_files": len(changed),
					"sessions":      result.Stats.SessionsBuilt,
				})

				if log.IsSilent() {
					return
				}
				if jsonOutput {
					record := map[string]interface{}{
						"timestamp":     time.Now().Format(time.RFC3339),
						"changed_files": changed,
						"report_file":   reportPath,
						"sessions":      result.Stats.SessionsBuilt,
						"entries":       result.Stats.EntriesParsed,
						"lines_skipped": result.Stats.LinesSkipped,
					}
					_ = json.NewEncoder(os.Stdout).Encode(record)
				} else {
					for _, s := range result.Sessions {
						fmt.Printf("  %s  %s · %d messages · %d tokens\n",
							time.Now().Format("15:04:05"),
							truncateSessionID(s.ID),
							len(s.Entries),
							s.Usage.Total())
					}
				}
			}

			watcher, err := watch.New(watch.Options{
				Dir:      dir,
				Debounce: debounce,
				OnChange: onChange,
			})
			if err != nil {
				return err
			}

			// Graceful cancellation on Ctrl+C.
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	watchCmd.Flags().Bool("json", false, "output reconversion updates as JSON lines (one JSON object per line)")
	watchCmd.Flags().String("output-dir", "", "custom output directory for report files (default: ./.claude-reporter/reports)")
	watchCmd.Flags().Duration("debounce", watch.DefaultDebounce, "quiet period before a change burst triggers reconversion")

	return watchCmd
}

// resolveWatchDir maps the optional positional argument onto the directory
// to monitor. Unlike ResolveScope, a missing directory is acceptable here.
func resolveWatchDir(args []string) (string, bool, error) {
	if len(args) > 0 {
		return args[0], true, nil
	}
	return ResolveScope(args)
}

// mustMarshalReport serializes the report document. Marshaling our own
// structs cannot fail; an error here means a programming mistake.
func mustMarshalReport(rt *Runtime, result *convert.Result) []byte {
	doc := schema.FromResult(result, "claude-reporter", rt.Version)
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		panic(err)
	}
	return data
}
