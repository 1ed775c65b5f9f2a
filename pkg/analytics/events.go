package analytics

import (
	"github.com/posthog/posthog-go"
)

// Event name constants
const (
	EventConvertComplete = "cli_convert_complete" // Tracks conversion runs with statistics
	EventConvertError    = "cli_convert_error"    // Tracks conversion runs that failed outright
	EventListComplete    = "cli_list_complete"    // Tracks session listings
	EventWatchStarted    = "cli_watch_started"    // Tracks when watch mode starts
	EventWatchUpdate     = "cli_watch_update"     // Tracks reconversions triggered by file activity
	EventCacheCleared    = "cli_cache_cleared"    // Tracks cache clear invocations
	EventVersionCommand  = "cli_version_command"  // Tracks when users check the version
	EventHelpCommand     = "cli_help_command"     // Tracks when users view help
)

// Properties is a type alias for event properties to avoid exposing PostHog types
type Properties map[string]interface{}

// TrackEvent sends a generic event to PostHog
func TrackEvent(eventName string, properties Properties) {
	if !IsEnabled() {
		return
	}

	distinctID := GetDistinctID()

	phProperties := make(posthog.Properties)
	for k, v := range properties {
		phProperties[k] = v
	}

	// Always include the CLI command and device ID
	phProperties["cli_command"] = GetCLICommand()
	phProperties["$device_id"] = distinctID
	phProperties["cli_version"] = GetCLIVersion()

	// OS information (gathered once during initialization)
	osArch, osName, osPlatform, osVersion := GetOSInfo()
	phProperties["os_arch"] = osArch
	phProperties["os_name"] = osName
	phProperties["os_platform"] = osPlatform
	phProperties["os_version"] = osVersion

	err := client.Enqueue(posthog.Capture{
		DistinctId:       distinctID,
		Event:            eventName,
		Properties:       phProperties,
		SendFeatureFlags: false,
	})
	if err != nil {
		// Silently fail - analytics should not break the app
		return
	}
}
