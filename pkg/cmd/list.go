package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nhannguyenhuu241/claude-reporter/pkg/analytics"
	"github.com/nhannguyenhuu241/claude-reporter/pkg/log"
	"github.com/nhannguyenhuu241/claude-reporter/pkg/project"
	"github.com/nhannguyenhuu241/claude-reporter/pkg/session"
)

// Column widths for table output (excluding NAME which is dynamic).
const (
	sessionIDWidth = 36 // UUID length
	createdWidth   = 17 // "Jan 02, 2006 15:04"
	messagesWidth  = 8
	tokensWidth    = 10
	columnSpacing  = 2 // Spaces between columns
)

// listFlags holds the flags for the list command.
type listFlags struct {
	json bool
	all  bool
}

var lFlags listFlags

// sessionListing is one row of list output.
type sessionListing struct {
	SessionID    string `json:"sessionId"`
	CreatedAt    string `json:"createdAt"`
	MessageCount int    `json:"messageCount"`
	TotalTokens  int64  `json:"totalTokens"`
	Name         string `json:"name"`
	WorkingDir   string `json:"workingDir,omitempty"`
}

// CreateListCommand creates the list command.
func CreateListCommand(rt *Runtime) *cobra.Command {
	examples := `
# List sessions recorded for the current project directory
claude-reporter list

# List sessions across every project
claude-reporter list --all

# Output as JSON (for programmatic use)
claude-reporter list --json | jq`

	cmd := &cobra.Command{
		Use:     "list [path]",
		Aliases: []string{"ls"},
		Short:   "List reconstructed Claude Code sessions",
		Long: `List sessions showing session ID, creation date, size, and name.

By default, outputs a human-readable table for the current project
directory. Use --json for machine-readable output and --all to span every
project under ~/.claude/projects.`,
		Example: examples,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.Info("Running list command")

			converter, cleanup, err := rt.NewConverter("")
			if err != nil {
				return err
			}
			defer cleanup()

			var sessions []session.Session
			if lFlags.all {
				root, err := project.ProjectsDir()
				if err != nil {
					return err
				}
				result, err := converter.ConvertProject(cmd.Context(), root)
				if err != nil {
					return err
				}
				sessions = result.Sessions
			} else {
				path, isDir, err := ResolveScope(args)
				if err != nil {
					return err
				}
				if !isDir {
					result, err := converter.ConvertFile(cmd.Context(), path)
					if err != nil {
						return err
					}
					sessions = result.Sessions
				} else {
					result, err := converter.ConvertDirectory(cmd.Context(), path)
					if err != nil {
						return err
					}
					sessions = result.Sessions
				}
			}

			if len(sessions) == 0 {
				if !log.IsSilent() {
					log.UserMessage("No Claude Code sessions found for this scope.\n")
				}
				if lFlags.json {
					fmt.Println("[]")
				}
				return nil
			}

			listings := make([]sessionListing, 0, len(sessions))
			for i := range sessions {
				listings = append(listings, toListing(&sessions[i]))
			}

			if err := outputSessions(listings); err != nil {
				return err
			}

			analytics.TrackEvent(analytics.EventListComplete, analytics.Properties{
				"session_count": len(listings),
				"scope_all":     lFlags.all,
			})
			return nil
		},
	}

	cmd.Flags().BoolVar(&lFlags.json, "json", false, "Output as JSON (default is human-readable table)")
	cmd.Flags().BoolVar(&lFlags.all, "all", false, "list sessions from every project under ~/.claude/projects")

	return cmd
}

// toListing flattens a session into a display row. The name is the
// session's summary when one is attached, otherwise its first user message.
func toListing(s *session.Session) sessionListing {
	name := s.FirstUserText()
	if s.Summary != nil && s.Summary.Summary != "" {
		name = s.Summary.Summary
	}
	return sessionListing{
		SessionID:    s.ID,
		CreatedAt:    s.FirstTimestamp.Format(time.RFC3339),
		MessageCount: len(s.Entries),
		TotalTokens:  s.Usage.Total(),
		Name:         name,
		WorkingDir:   s.WorkingDir,
	}
}

// outputSessions outputs sessions as JSON or a human-readable table.
func outputSessions(listings []sessionListing) error {
	if lFlags.json {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(listings); err != nil {
			return fmt.Errorf("failed to encode sessions as JSON: %w", err)
		}
	} else {
		printSessionTable(listings)
	}
	return nil
}

// printSessionTable outputs sessions as a formatted table.
func printSessionTable(listings []sessionListing) {
	if len(listings) == 0 {
		return
	}

	termWidth := getTerminalWidth()
	nameWidth := calculateNameWidth(termWidth)

	fmt.Println() // Visual separation before table

	fmt.Printf("%-*s  %-*s  %*s  %*s  %s\n",
		sessionIDWidth, "SESSION ID",
		createdWidth, "CREATED",
		messagesWidth, "MESSAGES",
		tokensWidth, "TOKENS",
		"NAME")

	fmt.Printf("%s  %s  %s  %s  %s\n",
		strings.Repeat("-", sessionIDWidth),
		strings.Repeat("-", createdWidth),
		strings.Repeat("-", messagesWidth),
		strings.Repeat("-", tokensWidth),
		strings.Repeat("-", min(nameWidth, 20))) // Cap separator at 20 chars for NAME

	for _, row := range listings {
		fmt.Printf("%-*s  %-*s  %*d  %*d  %s\n",
			sessionIDWidth, row.SessionID,
			createdWidth, formatCreatedAt(row.CreatedAt),
			messagesWidth, row.MessageCount,
			tokensWidth, row.TotalTokens,
			truncateString(row.Name, nameWidth))
	}

	fmt.Println() // Visual separation after table
}

// getTerminalWidth returns the terminal width, defaulting to 80 if unavailable.
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

// calculateNameWidth calculates the available width for the NAME column.
func calculateNameWidth(termWidth int) int {
	fixedWidth := sessionIDWidth + createdWidth + messagesWidth + tokensWidth + (columnSpacing * 4)
	nameWidth := termWidth - fixedWidth

	return max(nameWidth, 10) // Minimum width of 10 for NAME
}

// truncateString truncates a string to maxLen runes, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// formatCreatedAt formats an ISO 8601 timestamp to human-readable format.
func formatCreatedAt(timestamp string) string {
	t, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return timestamp // Return original if parsing fails
	}
	return t.Local().Format("Jan 02, 2006 15:04")
}
