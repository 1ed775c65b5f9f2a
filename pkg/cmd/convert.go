package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nhannguyenhuu241/claude-reporter/pkg/analytics"
	"github.com/nhannguyenhuu241/claude-reporter/pkg/convert"
	"github.com/nhannguyenhuu241/claude-reporter/pkg/log"
	"github.com/nhannguyenhuu241/claude-reporter/pkg/project"
	"github.com/nhannguyenhuu241/claude-reporter/pkg/schema"
	"github.com/nhannguyenhuu241/claude-reporter/pkg/utils"
)

// convertFlags holds the flags for the convert command.
type convertFlags struct {
	sessionID string
	all       bool
	print     bool
	validate  bool
	outputDir string
	showDiags bool
}

var cFlags convertFlags

// CreateConvertCommand creates the convert command.
func CreateConvertCommand(rt *Runtime) *cobra.Command {
	examples := `
# Convert the Claude transcripts for the current project directory
claude-reporter convert

# Convert a single transcript file
claude-reporter convert ~/.claude/projects/-home-me-src-app/b2fc61e0.jsonl

# Convert every project under ~/.claude/projects
claude-reporter convert --all

# Convert only one session and print the report to stdout
claude-reporter convert -s 5c5c2876-febd-4c87-b80c-d0655f1cd3fd --print

# Convert with the report validated against the embedded schema
claude-reporter convert --validate`

	convertCmd := &cobra.Command{
		Use:     "convert [path]",
		Aliases: []string{"c"},
		Short:   "Convert Claude Code transcripts into session reports",
		Long: `Reconstruct sessions from Claude Code JSONL transcript files and write a
versioned JSON report.

With no argument, converts the transcripts recorded for the current working
directory. Pass a .jsonl file or a directory to convert an explicit scope,
or --all for the complete project hierarchy.`,
		Example: examples,
		Args:    cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if cFlags.all && len(args) > 0 {
				return utils.ValidationError{Message: "cannot use --all together with an explicit path"}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.Info("Running convert command")

			converter, cleanup, err := rt.NewConverter(cFlags.sessionID)
			if err != nil {
				return err
			}
			defer cleanup()

			var result *convert.Result
			switch {
			case cFlags.all:
				root, err := project.ProjectsDir()
				if err != nil {
					return err
				}
				result, err = converter.ConvertProject(cmd.Context(), root)
				if err != nil {
					return trackConvertError(err)
				}
			default:
				path, isDir, err := ResolveScope(args)
				if err != nil {
					return err
				}
				if isDir {
					result, err = converter.ConvertDirectory(cmd.Context(), path)
				} else {
					result, err = converter.ConvertFile(cmd.Context(), path)
				}
				if err != nil {
					return trackConvertError(err)
				}
			}

			if cFlags.sessionID != "" && len(result.Sessions) == 0 {
				return fmt.Errorf("session %s not found in conversion scope", cFlags.sessionID)
			}

			doc := schema.FromResult(result, "claude-reporter", rt.Version)

			data, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode report: %w", err)
			}

			if cFlags.validate {
				if err := schema.ValidateJSON(data); err != nil {
					return err
				}
				slog.Debug("report validated against embedded schema")
			}

			reportDiagnostics(result)

			if cFlags.print {
				fmt.Println(string(data))
			} else {
				reportPath, err := writeReport(cFlags.outputDir, doc.RunID, data)
				if err != nil {
					return err
				}
				recordStatistics(cFlags.outputDir, result)
				log.UserSuccess("Report written: %s (%d sessions, %d entries)",
					reportPath, result.Stats.SessionsBuilt, result.Stats.EntriesParsed)
			}

			analytics.TrackEvent(analytics.EventConvertComplete, analytics.Properties{
				"files_processed":     result.Stats.FilesProcessed,
				"sessions_built":      result.Stats.SessionsBuilt,
				"entries_parsed":      result.Stats.EntriesParsed,
				"lines_skipped":       result.Stats.LinesSkipped,
				"duplicates_removed":  result.Stats.DuplicatesRemoved,
				"summaries_unmatched": result.Stats.SummariesUnmatched,
				"cache_hits":          result.Stats.CacheHits,
				"duration_ms":         result.Stats.Duration.Milliseconds(),
			})
			return nil
		},
	}

	convertCmd.Flags().StringVarP(&cFlags.sessionID, "session", "s", "", "convert only the session with this ID")
	convertCmd.Flags().BoolVar(&cFlags.all, "all", false, "convert the complete ~/.claude/projects hierarchy")
	convertCmd.Flags().BoolVar(&cFlags.print, "print", false, "print the report to stdout instead of saving")
	convertCmd.Flags().BoolVar(&cFlags.validate, "validate", false, "validate the report against the embedded JSON Schema before writing")
	convertCmd.Flags().StringVar(&cFlags.outputDir, "output-dir", "", "custom output directory for report files (default: ./.claude-reporter/reports)")
	convertCmd.Flags().BoolVar(&cFlags.showDiags, "diagnostics", false, "print every recovered diagnostic, not just the summary")

	return convertCmd
}

// trackConvertError reports a failed run to analytics before returning it.
func trackConvertError(err error) error {
	analytics.TrackEvent(analytics.EventConvertError, analytics.Properties{
		"error": err.Error(),
	})
	return err
}

// reportDiagnostics surfaces recovered problems to the user. The run
// succeeded; these are lines, files, or summaries it had to work around.
func reportDiagnostics(result *convert.Result) {
	if len(result.Diagnostics) == 0 {
		return
	}
	log.UserWarn("%d diagnostics recorded during conversion (run with --diagnostics for details)\n", len(result.Diagnostics))
	if cFlags.showDiags {
		for _, d := range result.Diagnostics {
			log.UserMessage("  %s\n", d.String())
		}
	}
}

// writeReport persists the report atomically under the reports directory.
func writeReport(outputDir, runID string, data []byte) (string, error) {
	pathConfig, err := utils.NewOutputPathConfig(outputDir)
	if err != nil {
		return "", err
	}
	if err := utils.EnsureReportsDirectoryExists(pathConfig); err != nil {
		return "", err
	}

	reportPath := filepath.Join(pathConfig.GetReportsDir(), runID+".json")
	tempPath := reportPath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	if err := os.Rename(tempPath, reportPath); err != nil {
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("failed to finalize report: %w", err)
	}
	return reportPath, nil
}

// recordStatistics updates the per-session statistics rollup. Failures are
// logged, never fatal.
func recordStatistics(outputDir string, result *convert.Result) {
	pathConfig, err := utils.NewOutputPathConfig(outputDir)
	if err != nil {
		return
	}
	collector := utils.NewStatisticsCollector(pathConfig.GetReporterDir())
	for i := range result.Sessions {
		s := &result.Sessions[i]
		if err := collector.AddSessionStats(s.ID, utils.ComputeSessionStatistics(s)); err != nil {
			slog.Warn("failed to record session statistics", "sessionId", s.ID, "error", err)
			return
		}
	}
}
