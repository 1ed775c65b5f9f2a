package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhannguyenhuu241/claude-reporter/pkg/analytics"
)

// CreateHelpCommand creates a custom help command so usage of the help
// topics can be tracked. rootCmd is needed to look up subcommands when the
// user types "claude-reporter help <command>".
func CreateHelpCommand(rootCmd *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:     "help [command]",
		Aliases: []string{"h"},
		Short:   "Help about any command",
		Run: func(cmd *cobra.Command, args []string) {
			helpTopic := "general"
			helpReason := "requested"

			if len(args) > 0 {
				targetCmd, _, err := rootCmd.Find(args)
				if err != nil {
					helpReason = "unknown_command"
					fmt.Printf("Unknown command: %s\n", args[0])
					_ = rootCmd.Help()
				} else {
					helpTopic = args[0]
					_ = targetCmd.Help()
				}
			} else {
				_ = rootCmd.Help()
			}

			analytics.TrackEvent(analytics.EventHelpCommand, analytics.Properties{
				"help_topic":  helpTopic,
				"help_reason": helpReason,
			})
		},
	}
}
