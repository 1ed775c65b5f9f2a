package analytics

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/nhannguyenhuu241/claude-reporter/pkg/config"
)

// persistedAnalyticsID is the on-disk analytics identity shared across runs
type persistedAnalyticsID struct {
	AnalyticsID string    `json:"analytics_id"`
	CreatedAt   time.Time `json:"created_at"`
	Source      string    `json:"source"`
}

// getAnalyticsIDPath returns the path to the persisted analytics ID file
func getAnalyticsIDPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, config.ReporterDir, "analytics-id.json"), nil
}

// loadOrCreateAnalyticsID loads the persisted analytics ID or creates a new one
func loadOrCreateAnalyticsID() (string, error) {
	filePath, err := getAnalyticsIDPath()
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(filePath)
	if err == nil {
		var persisted persistedAnalyticsID
		if err := json.Unmarshal(data, &persisted); err != nil {
			return "", fmt.Errorf("failed to parse analytics file: %w", err)
		}
		return persisted.AnalyticsID, nil
	}
	if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to read analytics file: %w", err)
	}

	// First run: generate and persist a new ID
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	newID := uuid.New().String()
	persisted := &persistedAnalyticsID{
		AnalyticsID: newID,
		CreatedAt:   time.Now().UTC(),
		Source:      "claude-reporter",
	}
	if err := saveAnalyticsID(filePath, persisted); err != nil {
		return "", err
	}
	return newID, nil
}

// saveAnalyticsID writes the analytics identity to disk
func saveAnalyticsID(filePath string, persisted *persistedAnalyticsID) error {
	data, err := json.MarshalIndent(persisted, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal analytics data: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write analytics file: %w", err)
	}
	return nil
}
