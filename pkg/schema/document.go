// Package schema defines the versioned report document emitted by
// conversion runs, the stable contract consumed by downstream tooling.
package schema

import (
	"log/slog"
	"time"

	"github.com/nhannguyenhuu241/claude-reporter/pkg/convert"
	"github.com/nhannguyenhuu241/claude-reporter/pkg/project"
	"github.com/nhannguyenhuu241/claude-reporter/pkg/session"
	"github.com/nhannguyenhuu241/claude-reporter/pkg/transcript"
)

// SchemaVersion is the current report document version.
const SchemaVersion = "1.0"

// Document is the root of a session report.
type Document struct {
	SchemaVersion string            `json:"schemaVersion"`
	Generator     GeneratorInfo     `json:"generator"`
	RunID         string            `json:"runId"`
	GeneratedAt   string            `json:"generatedAt"`
	Sessions      []SessionDocument `json:"sessions"`
	Stats         convert.Stats     `json:"stats"`
}

// GeneratorInfo identifies the tool that produced the document.
type GeneratorInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// SessionDocument is one reconstructed session in report form.
type SessionDocument struct {
	SessionID      string             `json:"sessionId"`
	Slug           string             `json:"slug,omitempty"`
	FirstTimestamp string             `json:"firstTimestamp"`
	LastTimestamp  string             `json:"lastTimestamp"`
	WorkingDir     string             `json:"workingDir,omitempty"`
	Summary        string             `json:"summary,omitempty"`
	SummaryHistory []string           `json:"summaryHistory,omitempty"`
	Usage          transcript.Usage   `json:"usage"`
	MessageCount   int                `json:"messageCount"`
	HasSidechain   bool               `json:"hasSidechain,omitempty"`
	Entries        []transcript.Entry `json:"entries"`
}

// FromResult builds a report document from a conversion result.
func FromResult(result *convert.Result, generatorName, generatorVersion string) *Document {
	doc := &Document{
		SchemaVersion: SchemaVersion,
		Generator:     GeneratorInfo{Name: generatorName, Version: generatorVersion},
		RunID:         result.RunID,
		GeneratedAt:   time.Now().UTC().Format(time.RFC3339),
		Sessions:      make([]SessionDocument, 0, len(result.Sessions)),
		Stats:         result.Stats,
	}
	for i := range result.Sessions {
		doc.Sessions = append(doc.Sessions, fromSession(&result.Sessions[i]))
	}
	return doc
}

func fromSession(s *session.Session) SessionDocument {
	out := SessionDocument{
		SessionID:      s.ID,
		Slug:           project.Slug(s.FirstUserText()),
		FirstTimestamp: s.FirstTimestamp.Format(time.RFC3339Nano),
		LastTimestamp:  s.LastTimestamp.Format(time.RFC3339Nano),
		WorkingDir:     s.WorkingDir,
		Usage:          s.Usage,
		MessageCount:   len(s.Entries),
		HasSidechain:   s.HasSidechain,
		Entries:        s.Entries,
	}
	if s.Summary != nil {
		out.Summary = s.Summary.Summary
	}
	for _, h := range s.SummaryHistory {
		out.SummaryHistory = append(out.SummaryHistory, h.Summary)
	}
	return out
}

// Validate checks the document against schema constraints and logs a
// warning for each violation. Returns true when the document is valid.
func (d *Document) Validate() bool {
	valid := true

	if d.SchemaVersion != SchemaVersion {
		slog.Warn("schema validation: schemaVersion mismatch", "got", d.SchemaVersion, "want", SchemaVersion)
		valid = false
	}
	if d.Generator.Name == "" {
		slog.Warn("schema validation: generator.name is required")
		valid = false
	}
	if d.RunID == "" {
		slog.Warn("schema validation: runId is required")
		valid = false
	}
	if d.GeneratedAt == "" {
		slog.Warn("schema validation: generatedAt is required")
		valid = false
	}

	for i := range d.Sessions {
		s := &d.Sessions[i]
		if s.SessionID == "" {
			slog.Warn("schema validation: session missing sessionId", "index", i)
			valid = false
		}
		if s.FirstTimestamp == "" || s.LastTimestamp == "" {
			slog.Warn("schema validation: session missing timestamps", "sessionId", s.SessionID)
			valid = false
		}
		if len(s.Entries) == 0 {
			slog.Warn("schema validation: session has no entries", "sessionId", s.SessionID)
			valid = false
		}
		if s.MessageCount != len(s.Entries) {
			slog.Warn("schema validation: messageCount disagrees with entries",
				"sessionId", s.SessionID, "messageCount", s.MessageCount, "entries", len(s.Entries))
			valid = false
		}
	}

	return valid
}
