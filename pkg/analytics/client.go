// Package analytics reports anonymous usage events through PostHog. The
// client is a no-op when no API key was injected at build time or when the
// user has opted out; callers never need to check.
package analytics

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/posthog/posthog-go"
)

var (
	client posthog.Client

	// Injected at build time via ldflags. Empty in dev builds (analytics disabled).
	apiKey = ""

	cliCommand string
	cliVersion string
	distinctID string

	// OS information, gathered once at initialization
	osArch     string
	osName     string
	osPlatform string
	osVersion  string
)

// slogAdapter adapts PostHog's logger interface to slog at DEBUG level.
// Analytics infrastructure problems are not application errors, so even
// PostHog error messages stay at DEBUG.
type slogAdapter struct{}

func (s *slogAdapter) Logf(format string, args ...interface{}) {
	slog.Debug("posthog: "+format, args...)
}

func (s *slogAdapter) Errorf(format string, args ...interface{}) {
	slog.Debug("posthog error: "+format, args...)
}

func (s *slogAdapter) Debugf(format string, args ...interface{}) {
	slog.Debug("posthog debug: "+format, args...)
}

func (s *slogAdapter) Warnf(format string, args ...interface{}) {
	slog.Debug("posthog warning: "+format, args...)
}

// Init initializes the analytics client for the given command invocation.
func Init(command string, version string) error {
	cliCommand = command
	cliVersion = version

	osArch = runtime.GOARCH
	osName = getOSName()
	osPlatform = runtime.GOOS
	osVersion = getOSVersion()

	id, err := loadOrCreateAnalyticsID()
	if err != nil {
		distinctID = generateFallbackID()
	} else {
		distinctID = id
	}

	if apiKey == "" {
		// Analytics disabled if no API key
		return nil
	}

	enableGeoIP := false
	client, _ = posthog.NewWithConfig(apiKey, posthog.Config{
		DisableGeoIP: &enableGeoIP,
		Interval:     100 * time.Millisecond, // Send events quickly (default is 5s)
		BatchSize:    1,                      // Send immediately, don't batch
		Logger:       &slogAdapter{},
	})
	return nil
}

// Close closes the PostHog client connection
func Close() error {
	if client != nil {
		return client.Close()
	}
	return nil
}

// IsEnabled returns true if analytics is enabled
func IsEnabled() bool {
	return client != nil
}

// GetDistinctID returns the analytics ID
func GetDistinctID() string {
	return distinctID
}

// generateFallbackID derives a stable ID from hostname and username when
// the persisted analytics ID is unavailable.
func generateFallbackID() string {
	hostname, _ := os.Hostname()
	username := os.Getenv("USER")

	hash := sha256.Sum256([]byte(hostname + "-" + username))
	return hex.EncodeToString(hash[:])
}

// GetCLICommand returns the stored CLI command
func GetCLICommand() string {
	return cliCommand
}

// GetCLIVersion returns the stored CLI version
func GetCLIVersion() string {
	return cliVersion
}

// GetOSInfo returns the stored OS information
func GetOSInfo() (arch, name, platform, version string) {
	return osArch, osName, osPlatform, osVersion
}

// getOSName returns the descriptive OS name from uname
func getOSName() string {
	cmd := exec.Command("uname", "-s")
	output, err := cmd.Output()
	if err != nil {
		// Fallback to capitalized GOOS
		return strings.ToUpper(runtime.GOOS[:1]) + runtime.GOOS[1:]
	}
	return strings.TrimSpace(string(output))
}

// getOSVersion returns the OS version
func getOSVersion() string {
	switch runtime.GOOS {
	case "darwin":
		return getUnameVersion()
	case "linux":
		return getLinuxVersion()
	default:
		return "unknown"
	}
}

func getUnameVersion() string {
	cmd := exec.Command("uname", "-r")
	output, err := cmd.Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(output))
}

// getLinuxVersion gets the Linux version from various sources
func getLinuxVersion() string {
	// Try /etc/os-release first
	if data, err := os.ReadFile("/etc/os-release"); err == nil {
		for _, line := range strings.Split(string(data), "\n") {
			if strings.HasPrefix(line, "VERSION_ID=") {
				return strings.Trim(strings.TrimPrefix(line, "VERSION_ID="), `"`)
			}
		}
	}
	return getUnameVersion()
}
