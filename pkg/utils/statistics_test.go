package utils

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nhannguyenhuu241/claude-reporter/pkg/session"
	"github.com/nhannguyenhuu241/claude-reporter/pkg/transcript"
)

func sampleSession(t *testing.T) *session.Session {
	t.Helper()
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	entries := []transcript.Entry{
		{Kind: transcript.KindUser, UUID: "u-1", SessionID: "s-1", Timestamp: start},
		{
			Kind: transcript.KindAssistant, UUID: "a-1", SessionID: "s-1",
			Timestamp: start.Add(time.Second),
			Usage:     transcript.Usage{InputTokens: 100, OutputTokens: 40},
			Content: []transcript.ContentItem{
				{Type: transcript.ContentText, Text: "reading"},
				{Type: transcript.ContentToolUse, Name: "Read"},
				{Type: transcript.ContentToolUse, Name: "Edit"},
			},
		},
		{Kind: transcript.KindUser, UUID: "u-2", SessionID: "s-1", Timestamp: start.Add(2 * time.Second)},
	}
	sessions, err := session.Build(entries)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return &sessions[0]
}

func TestComputeSessionStatistics(t *testing.T) {
	stats := ComputeSessionStatistics(sampleSession(t))

	if stats.UserMessageCount != 2 {
		t.Errorf("UserMessageCount = %d, want 2", stats.UserMessageCount)
	}
	if stats.AssistantMessageCount != 1 {
		t.Errorf("AssistantMessageCount = %d, want 1", stats.AssistantMessageCount)
	}
	if stats.ToolUseCount != 2 {
		t.Errorf("ToolUseCount = %d, want 2", stats.ToolUseCount)
	}
	if stats.InputTokens != 100 || stats.OutputTokens != 40 {
		t.Errorf("tokens = %d in, %d out", stats.InputTokens, stats.OutputTokens)
	}
	if stats.StartTimestamp != "2025-06-01T12:00:00Z" {
		t.Errorf("StartTimestamp = %q", stats.StartTimestamp)
	}
	if stats.EndTimestamp != "2025-06-01T12:00:02Z" {
		t.Errorf("EndTimestamp = %q", stats.EndTimestamp)
	}
	if stats.LastUpdated == "" {
		t.Error("LastUpdated is empty")
	}
}

func TestAddSessionStats(t *testing.T) {
	dir := t.TempDir()
	collector := NewStatisticsCollector(dir)
	stats := ComputeSessionStatistics(sampleSession(t))

	if err := collector.AddSessionStats("s-1", stats); err != nil {
		t.Fatalf("AddSessionStats: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "statistics.json"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var file StatisticsFile
	if err := json.Unmarshal(data, &file); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	got, ok := file.Sessions["s-1"]
	if !ok {
		t.Fatalf("session s-1 not in file: %+v", file.Sessions)
	}
	if got.UserMessageCount != stats.UserMessageCount || got.InputTokens != stats.InputTokens {
		t.Errorf("persisted stats = %+v", got)
	}
}

func TestAddSessionStatsMergesExisting(t *testing.T) {
	dir := t.TempDir()
	collector := NewStatisticsCollector(dir)
	stats := ComputeSessionStatistics(sampleSession(t))

	if err := collector.AddSessionStats("s-1", stats); err != nil {
		t.Fatalf("AddSessionStats s-1: %v", err)
	}
	if err := collector.AddSessionStats("s-2", stats); err != nil {
		t.Fatalf("AddSessionStats s-2: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "statistics.json"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var file StatisticsFile
	if err := json.Unmarshal(data, &file); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(file.Sessions) != 2 {
		t.Errorf("got %d sessions, want 2", len(file.Sessions))
	}
}

func TestAddSessionStatsCorruptFileStartsFresh(t *testing.T) {
	dir := t.TempDir()
	statsPath := filepath.Join(dir, "statistics.json")
	if err := os.WriteFile(statsPath, []byte("{corrupt"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	collector := NewStatisticsCollector(dir)
	stats := ComputeSessionStatistics(sampleSession(t))
	if err := collector.AddSessionStats("s-1", stats); err != nil {
		t.Fatalf("AddSessionStats: %v", err)
	}

	data, err := os.ReadFile(statsPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var file StatisticsFile
	if err := json.Unmarshal(data, &file); err != nil {
		t.Fatalf("statistics.json still corrupt: %v", err)
	}
	if _, ok := file.Sessions["s-1"]; !ok {
		t.Errorf("session s-1 missing after recovery: %+v", file.Sessions)
	}
}
