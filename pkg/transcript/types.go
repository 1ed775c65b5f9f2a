// Package transcript decodes Claude Code JSONL transcript files into typed
// entries and removes duplicate records that appear when transcripts are
// re-captured across tool invocations.
package transcript

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// EntryKind discriminates the transcript entry variants. It mirrors the
// "type" field of each JSONL line.
type EntryKind string

const (
	KindUser      EntryKind = "user"
	KindAssistant EntryKind = "assistant"
	KindSummary   EntryKind = "summary"
	KindSystem    EntryKind = "system"
)

// knownKinds are the discriminator values the parser accepts. Anything else
// is a decode failure, so new record types added by Claude Code surface as
// diagnostics instead of being silently swallowed.
var knownKinds = map[EntryKind]bool{
	KindUser:      true,
	KindAssistant: true,
	KindSummary:   true,
	KindSystem:    true,
}

// Usage holds token counts reported on assistant entries. Absent fields
// decode to zero, which is also how they aggregate.
type Usage struct {
	InputTokens         int64 `json:"input_tokens"`
	OutputTokens        int64 `json:"output_tokens"`
	CacheCreationTokens int64 `json:"cache_creation_input_tokens"`
	CacheReadTokens     int64 `json:"cache_read_input_tokens"`
}

// Add returns the elementwise sum of two usage records.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputTokens:         u.InputTokens + other.InputTokens,
		OutputTokens:        u.OutputTokens + other.OutputTokens,
		CacheCreationTokens: u.CacheCreationTokens + other.CacheCreationTokens,
		CacheReadTokens:     u.CacheReadTokens + other.CacheReadTokens,
	}
}

// Total returns the sum of all token counts.
func (u Usage) Total() int64 {
	return u.InputTokens + u.OutputTokens + u.CacheCreationTokens + u.CacheReadTokens
}

// IsZero reports whether no tokens were recorded.
func (u Usage) IsZero() bool {
	return u == Usage{}
}

// Content item type discriminators, as they appear in assistant message
// content arrays.
const (
	ContentText       = "text"
	ContentThinking   = "thinking"
	ContentToolUse    = "tool_use"
	ContentToolResult = "tool_result"
	ContentImage      = "image"
)

// ContentItem is one element of an assistant (or tool-result user) message
// content array. Fields are populated according to Type; unrelated fields
// stay at their zero value.
type ContentItem struct {
	Type string `json:"type"`

	// text / thinking
	Text     string `json:"text,omitempty"`
	Thinking string `json:"thinking,omitempty"`

	// tool_use
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`

	// tool_result. Content is kept raw because Claude Code emits either a
	// plain string or an array of text blocks here.
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`

	// image
	Source map[string]any `json:"source,omitempty"`
}

// ResultText flattens a tool_result Content value into plain text. String
// payloads are returned as-is; block arrays are joined by newlines.
func (c ContentItem) ResultText() string {
	if len(c.Content) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(c.Content, &s); err == nil {
		return s
	}
	var blocks []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(c.Content, &blocks); err != nil {
		return ""
	}
	out := ""
	for i, b := range blocks {
		if i > 0 {
			out += "\n"
		}
		out += b.Text
	}
	return out
}

// Entry is one decoded transcript record. It is a tagged union over Kind:
// assistant-only fields (Model, Content, Usage) and summary-only fields
// (Summary, LeafUUID) are zero for the other variants.
type Entry struct {
	Kind       EntryKind `json:"kind"`
	UUID       string    `json:"uuid,omitempty"`
	ParentUUID string    `json:"parentUuid,omitempty"`
	SessionID  string    `json:"sessionId,omitempty"`
	Timestamp  time.Time `json:"timestamp,omitempty"`
	CWD        string    `json:"cwd,omitempty"`

	IsSidechain bool   `json:"isSidechain,omitempty"`
	IsMeta      bool   `json:"isMeta,omitempty"`
	Version     string `json:"version,omitempty"`
	GitBranch   string `json:"gitBranch,omitempty"`

	// user
	Text string `json:"text,omitempty"`

	// assistant
	Model   string        `json:"model,omitempty"`
	Content []ContentItem `json:"content,omitempty"`
	Usage   Usage         `json:"usage,omitempty"`

	// summary
	Summary  string `json:"summary,omitempty"`
	LeafUUID string `json:"leafUuid,omitempty"`

	// system
	Subtype string `json:"subtype,omitempty"`
	Level   string `json:"level,omitempty"`

	// Provenance: where this entry came from. File and Line identify the
	// source; Seq is the global first-encounter index assigned during
	// accumulation and used as the ordering tie-break.
	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`
	Seq  int    `json:"seq,omitempty"`

	// Hash is the content fingerprint of the raw source line. Together with
	// UUID and SessionID it forms the deduplication identity: identifiers
	// alone are not unique across files, but identical re-synced records are
	// byte-identical.
	Hash string `json:"hash,omitempty"`
}

// IsMessage reports whether the entry participates in session ordering
// (summaries attach to sessions but are not messages within them).
func (e Entry) IsMessage() bool {
	return e.Kind != KindSummary
}

// ToolUses returns the tool_use items of an assistant entry.
func (e Entry) ToolUses() []ContentItem {
	var uses []ContentItem
	for _, item := range e.Content {
		if item.Type == ContentToolUse {
			uses = append(uses, item)
		}
	}
	return uses
}

// PlainText returns the user-visible text of the entry: the prompt text for
// user entries, concatenated text blocks for assistant entries, and the
// summary string for summaries.
func (e Entry) PlainText() string {
	switch e.Kind {
	case KindUser, KindSystem:
		if e.Text != "" {
			return e.Text
		}
	case KindSummary:
		return e.Summary
	}
	out := ""
	for _, item := range e.Content {
		if item.Type == ContentText && item.Text != "" {
			if out != "" {
				out += "\n"
			}
			out += item.Text
		}
	}
	return out
}

// contentHash fingerprints the raw line bytes of a record.
func contentHash(line []byte) string {
	sum := sha256.Sum256(line)
	return hex.EncodeToString(sum[:])
}
