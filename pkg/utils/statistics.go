package utils

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nhannguyenhuu241/claude-reporter/pkg/session"
	"github.com/nhannguyenhuu241/claude-reporter/pkg/transcript"
)

// SessionStatistics contains computed statistics for a single session
type SessionStatistics struct {
	UserMessageCount      int    `json:"user_message_count"`
	AssistantMessageCount int    `json:"assistant_message_count"`
	ToolUseCount          int    `json:"tool_use_count"`
	StartTimestamp        string `json:"start_timestamp"`
	EndTimestamp          string `json:"end_timestamp"`
	InputTokens           int64  `json:"input_tokens"`
	OutputTokens          int64  `json:"output_tokens"`
	LastUpdated           string `json:"last_updated"`
}

// StatisticsFile is the root structure for the statistics.json file
type StatisticsFile struct {
	Sessions map[string]SessionStatistics `json:"sessions"`
}

// StatisticsCollector handles thread-safe statistics collection and persistence
type StatisticsCollector struct {
	reporterDir string
	mu          sync.Mutex
}

// NewStatisticsCollector creates a new statistics collector for the given .claude-reporter directory
func NewStatisticsCollector(reporterDir string) *StatisticsCollector {
	return &StatisticsCollector{
		reporterDir: reporterDir,
	}
}

// ComputeSessionStatistics extracts statistics from a reconstructed session
func ComputeSessionStatistics(s *session.Session) SessionStatistics {
	stats := SessionStatistics{
		UserMessageCount:      s.CountKind(transcript.KindUser),
		AssistantMessageCount: s.CountKind(transcript.KindAssistant),
		StartTimestamp:        s.FirstTimestamp.Format(time.RFC3339),
		EndTimestamp:          s.LastTimestamp.Format(time.RFC3339),
		InputTokens:           s.Usage.InputTokens,
		OutputTokens:          s.Usage.OutputTokens,
		LastUpdated:           time.Now().UTC().Format(time.RFC3339),
	}

	for i := range s.Entries {
		stats.ToolUseCount += len(s.Entries[i].ToolUses())
	}

	return stats
}

// AddSessionStats atomically adds or updates session statistics in the statistics.json file
func (c *StatisticsCollector) AddSessionStats(sessionID string, stats SessionStatistics) error {
	// Lock for thread-safe file operations
	c.mu.Lock()
	defer c.mu.Unlock()

	statsPath := filepath.Join(c.reporterDir, "statistics.json")

	// Read existing statistics file
	statsFile := StatisticsFile{
		Sessions: make(map[string]SessionStatistics),
	}

	data, err := os.ReadFile(statsPath)
	if err == nil {
		if err := json.Unmarshal(data, &statsFile); err != nil {
			// Corrupt JSON - log warning and start fresh
			slog.Warn("Failed to parse existing statistics.json, starting fresh", "error", err)
			statsFile.Sessions = make(map[string]SessionStatistics)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to read statistics file: %w", err)
	}

	statsFile.Sessions[sessionID] = stats

	jsonData, err := json.MarshalIndent(statsFile, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal statistics: %w", err)
	}

	// Write atomically using temp file + rename
	tempPath := statsPath + ".tmp"
	if err := os.WriteFile(tempPath, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write temp statistics file: %w", err)
	}
	if err := os.Rename(tempPath, statsPath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp statistics file: %w", err)
	}

	slog.Debug("Updated session statistics", "sessionId", sessionID, "path", statsPath)
	return nil
}
