package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhannguyenhuu241/claude-reporter/pkg/analytics"
	"github.com/nhannguyenhuu241/claude-reporter/pkg/cache"
	"github.com/nhannguyenhuu241/claude-reporter/pkg/log"
)

// CreateCacheCommand creates the cache command and its subcommands.
func CreateCacheCommand(rt *Runtime) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the parse cache",
		Long: `The parse cache stores per-file parse results keyed by a content
fingerprint, so repeated conversions only reparse transcripts that changed.
This command inspects or resets it.`,
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show parse cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openConfiguredStore(rt)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			count, err := store.Count(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to read cache statistics: %w", err)
			}

			fmt.Printf("Cache database:  %s\n", rt.Config.GetCachePath())
			fmt.Printf("Fingerprint:     %s\n", rt.Config.GetCacheFingerprint())
			fmt.Printf("Cached files:    %d\n", count)
			fmt.Printf("Format version:  %d\n", cache.FormatVersion)
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached parse result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.Info("Clearing parse cache", "path", rt.Config.GetCachePath())

			store, err := openConfiguredStore(rt)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("failed to clear cache: %w", err)
			}

			analytics.TrackEvent(analytics.EventCacheCleared, nil)
			log.UserSuccess("Parse cache cleared.")
			return nil
		},
	}

	cacheCmd.AddCommand(statsCmd)
	cacheCmd.AddCommand(clearCmd)
	return cacheCmd
}

// openConfiguredStore opens the cache store at its configured location.
func openConfiguredStore(rt *Runtime) (*cache.Store, error) {
	path := rt.Config.GetCachePath()
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("no parse cache at %s", path)
	}
	return cache.OpenStore(path)
}
