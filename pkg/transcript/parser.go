package transcript

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	mb = 1024 * 1024

	// maxReasonableLineSize caps a single JSONL line to prevent OOM from
	// malformed or malicious files. Oversized lines are skipped with a
	// diagnostic; the rest of the file is still processed.
	maxReasonableLineSize = 250 * mb
)

// Diagnostic describes a recovered, non-fatal problem: a skipped line, a
// skipped file, or an unmatched summary. The core never logs or prints
// these itself; they are returned to the caller as values.
type Diagnostic struct {
	File   string `json:"file"`
	Line   int    `json:"line,omitempty"`
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason"`
}

func (d Diagnostic) String() string {
	if d.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", d.File, d.Line, d.Reason)
	}
	if d.ID != "" {
		return fmt.Sprintf("%s (%s): %s", d.File, d.ID, d.Reason)
	}
	return fmt.Sprintf("%s: %s", d.File, d.Reason)
}

// ParseResult is the outcome of parsing one JSONL source: the entries that
// decoded successfully, in source order, plus a diagnostic per skipped line.
type ParseResult struct {
	Entries     []Entry      `json:"entries"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// rawEntry is the wire shape of one JSONL line. Fields cover all four entry
// variants; DecodeLine validates per-variant requirements after unmarshal.
type rawEntry struct {
	Type        string          `json:"type"`
	UUID        string          `json:"uuid"`
	ParentUUID  *string         `json:"parentUuid"`
	SessionID   string          `json:"sessionId"`
	Timestamp   string          `json:"timestamp"`
	CWD         string          `json:"cwd"`
	IsSidechain bool            `json:"isSidechain"`
	IsMeta      bool            `json:"isMeta"`
	Version     string          `json:"version"`
	GitBranch   string          `json:"gitBranch"`
	Message     *rawMessage     `json:"message"`
	Summary     string          `json:"summary"`
	LeafUUID    string          `json:"leafUuid"`
	Subtype     string          `json:"subtype"`
	Level       string          `json:"level"`
	Content     json.RawMessage `json:"content"` // system entries carry text here
}

// rawMessage is the nested message object on user and assistant entries.
// Content is either a plain string (user prompts) or an array of content
// blocks, so it stays raw until the variant is known.
type rawMessage struct {
	Role    string          `json:"role"`
	Model   string          `json:"model"`
	Content json.RawMessage `json:"content"`
	Usage   *Usage          `json:"usage"`
}

// DecodeLine decodes one JSONL line into a typed Entry. It returns an error
// for malformed JSON, unknown discriminators, missing required fields, and
// unparseable timestamps; callers treat any error as a per-line skip.
func DecodeLine(line []byte, file string, lineNumber int) (Entry, error) {
	var raw rawEntry
	if err := json.Unmarshal(line, &raw); err != nil {
		return Entry{}, fmt.Errorf("malformed JSON: %w", err)
	}

	kind := EntryKind(raw.Type)
	if raw.Type == "" {
		return Entry{}, fmt.Errorf("missing type discriminator")
	}
	if !knownKinds[kind] {
		return Entry{}, fmt.Errorf("unknown entry type %q", raw.Type)
	}

	entry := Entry{
		Kind:        kind,
		UUID:        raw.UUID,
		SessionID:   raw.SessionID,
		CWD:         raw.CWD,
		IsSidechain: raw.IsSidechain,
		IsMeta:      raw.IsMeta,
		Version:     raw.Version,
		GitBranch:   raw.GitBranch,
		File:        file,
		Line:        lineNumber,
		Hash:        contentHash(line),
	}
	if raw.ParentUUID != nil {
		entry.ParentUUID = *raw.ParentUUID
	}

	if kind == KindSummary {
		// Summaries are generated asynchronously and carry no session or
		// message identity of their own; the leafUuid back-reference is how
		// they find their session later. A timestamp is optional here, but
		// when present it decides re-summarization precedence.
		if raw.Summary == "" {
			return Entry{}, fmt.Errorf("summary entry missing summary text")
		}
		if raw.LeafUUID == "" {
			return Entry{}, fmt.Errorf("summary entry missing leafUuid")
		}
		entry.Summary = raw.Summary
		entry.LeafUUID = raw.LeafUUID
		if raw.Timestamp != "" {
			ts, err := parseTimestamp(raw.Timestamp)
			if err != nil {
				return Entry{}, err
			}
			entry.Timestamp = ts
		}
		return entry, nil
	}

	// Message entries participate in ordering, so identity and a valid
	// instant are hard requirements.
	if raw.UUID == "" {
		return Entry{}, fmt.Errorf("%s entry missing uuid", kind)
	}
	if raw.SessionID == "" {
		return Entry{}, fmt.Errorf("%s entry missing sessionId", kind)
	}
	if raw.Timestamp == "" {
		return Entry{}, fmt.Errorf("%s entry missing timestamp", kind)
	}
	ts, err := parseTimestamp(raw.Timestamp)
	if err != nil {
		return Entry{}, err
	}
	entry.Timestamp = ts

	switch kind {
	case KindUser:
		if raw.Message != nil {
			decodeMessageContent(&entry, raw.Message.Content)
		}
	case KindAssistant:
		if raw.Message != nil {
			entry.Model = raw.Message.Model
			if raw.Message.Usage != nil {
				entry.Usage = *raw.Message.Usage
			}
			decodeMessageContent(&entry, raw.Message.Content)
		}
	case KindSystem:
		entry.Subtype = raw.Subtype
		entry.Level = raw.Level
		// System entries put their text at the top level, not under message.
		var text string
		if len(raw.Content) > 0 && json.Unmarshal(raw.Content, &text) == nil {
			entry.Text = text
		}
	}

	return entry, nil
}

// decodeMessageContent fills Text or Content from a message content value,
// which is either a plain string or an array of content blocks.
func decodeMessageContent(entry *Entry, content json.RawMessage) {
	if len(content) == 0 {
		return
	}
	var text string
	if err := json.Unmarshal(content, &text); err == nil {
		entry.Text = text
		return
	}
	var items []ContentItem
	if err := json.Unmarshal(content, &items); err == nil {
		entry.Content = items
	}
}

// parseTimestamp parses an ISO 8601 timestamp to a canonical UTC instant.
func parseTimestamp(s string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return ts.UTC(), nil
}

// Parse reads JSONL from r one line at a time, decoding each into an Entry.
// Decode failures are isolated per line: the line is skipped and recorded as
// a diagnostic, never aborting the rest of the stream. The returned error is
// reserved for read failures on r itself.
func Parse(r io.Reader, file string) (ParseResult, error) {
	// bufio.Reader instead of Scanner: Scanner has a token size limit even
	// with a custom buffer, Reader does not, and transcript lines holding
	// pasted file contents can run to many megabytes.
	reader := bufio.NewReader(r)

	result := ParseResult{}
	lineNumber := 0

	for {
		line, err := reader.ReadString('\n')
		line = strings.TrimSuffix(line, "\n")
		line = strings.TrimSuffix(line, "\r")

		if err != nil && err != io.EOF {
			return result, fmt.Errorf("error reading line %d: %w", lineNumber+1, err)
		}

		atEOF := err == io.EOF
		hasContent := strings.TrimSpace(line) != ""

		// Count every physical line so diagnostics match editor line numbers.
		if len(line) > 0 || !atEOF {
			lineNumber++
		}

		if !hasContent {
			if atEOF {
				break
			}
			continue
		}

		if len(line) > maxReasonableLineSize {
			result.Diagnostics = append(result.Diagnostics, Diagnostic{
				File:   file,
				Line:   lineNumber,
				Reason: fmt.Sprintf("line exceeds size limit (%d MB)", maxReasonableLineSize/mb),
			})
			if atEOF {
				break
			}
			continue
		}
		if len(line) > 10*mb {
			slog.Debug("parsing large JSONL line",
				"lineNumber", lineNumber,
				"sizeMB", len(line)/mb,
				"file", filepath.Base(file))
		}

		entry, decodeErr := DecodeLine([]byte(line), file, lineNumber)
		if decodeErr != nil {
			result.Diagnostics = append(result.Diagnostics, Diagnostic{
				File:   file,
				Line:   lineNumber,
				Reason: decodeErr.Error(),
			})
		} else {
			result.Entries = append(result.Entries, entry)
		}

		if atEOF {
			break
		}
	}

	return result, nil
}

// ParseFile parses one JSONL transcript file. I/O failures opening or
// reading the file are returned as errors for the orchestrator to record as
// file-level diagnostics; line-level problems are in ParseResult.
func ParseFile(path string) (ParseResult, error) {
	start := time.Now()

	f, err := os.Open(path)
	if err != nil {
		return ParseResult{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	result, err := Parse(f, path)
	if err != nil {
		return result, err
	}

	slog.Debug("parsed transcript file",
		"file", filepath.Base(path),
		"entries", len(result.Entries),
		"skipped", len(result.Diagnostics),
		"duration", time.Since(start))
	return result, nil
}
