// Package session reconstructs ordered conversation sessions from
// deduplicated transcript entries and attaches asynchronously generated
// summaries to the sessions they describe.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/nhannguyenhuu241/claude-reporter/pkg/transcript"
)

// ErrEmptySession indicates a session group that resolved to zero entries.
// That cannot arise from user input — grouping only creates a group when an
// entry carries the identifier — so it is an internal invariant violation
// and propagates as a hard failure instead of being absorbed.
var ErrEmptySession = errors.New("session group resolved to zero entries")

// Session is the reconstructed, ordered set of entries sharing a session
// identifier. It is derived fresh per conversion run and never mutated in
// place; rebuilding recomputes every aggregate.
type Session struct {
	ID      string             `json:"sessionId"`
	Entries []transcript.Entry `json:"entries"`

	FirstTimestamp time.Time        `json:"firstTimestamp"`
	LastTimestamp  time.Time        `json:"lastTimestamp"`
	Usage          transcript.Usage `json:"usage"`

	// WorkingDir is the first non-empty working directory seen in entry
	// order.
	WorkingDir string `json:"workingDir,omitempty"`

	// Summary is the primary attached summary, or nil. SummaryHistory holds
	// superseded summaries from re-summarization, oldest first.
	Summary        *transcript.Entry  `json:"summary,omitempty"`
	SummaryHistory []transcript.Entry `json:"summaryHistory,omitempty"`

	HasSidechain bool `json:"hasSidechain,omitempty"`
}

// FirstUserText returns the text of the first real user prompt: non-meta,
// non-sidechain, with plain text content. Empty if the session has none.
func (s *Session) FirstUserText() string {
	for _, entry := range s.Entries {
		if entry.Kind != transcript.KindUser || entry.IsMeta || entry.IsSidechain {
			continue
		}
		if text := entry.PlainText(); text != "" {
			return text
		}
	}
	return ""
}

// CountKind returns the number of entries of the given kind.
func (s *Session) CountKind(kind transcript.EntryKind) int {
	n := 0
	for _, entry := range s.Entries {
		if entry.Kind == kind {
			n++
		}
	}
	return n
}

// Build groups deduplicated message entries by session identifier and
// derives one Session per group. Input order is the global first-encounter
// order; Build assigns it as the sequence index so that entries sharing a
// timestamp (sub-second batching) resolve deterministically to the order
// they were first seen in source files.
//
// Summary entries are not messages and must be separated before Build;
// AttachSummaries handles them in a second pass.
func Build(entries []transcript.Entry) ([]Session, error) {
	start := time.Now()

	groups := make(map[string][]transcript.Entry)
	order := []string{}
	for i, entry := range entries {
		if entry.Kind == transcript.KindSummary {
			return nil, fmt.Errorf("summary entry (leafUuid %s) reached the aggregator", entry.LeafUUID)
		}
		entry.Seq = i
		if _, seen := groups[entry.SessionID]; !seen {
			order = append(order, entry.SessionID)
		}
		groups[entry.SessionID] = append(groups[entry.SessionID], entry)
	}

	sessions := make([]Session, 0, len(groups))
	for _, id := range order {
		group := groups[id]
		if len(group) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrEmptySession, id)
		}
		sessions = append(sessions, buildOne(id, group))
	}

	slog.Debug("aggregated sessions",
		"entries", len(entries),
		"sessions", len(sessions),
		"duration", time.Since(start))
	return sessions, nil
}

// buildOne sorts one session's entries and computes its aggregates.
func buildOne(id string, group []transcript.Entry) Session {
	sort.Slice(group, func(i, j int) bool {
		if !group[i].Timestamp.Equal(group[j].Timestamp) {
			return group[i].Timestamp.Before(group[j].Timestamp)
		}
		return group[i].Seq < group[j].Seq
	})

	session := Session{
		ID:             id,
		Entries:        group,
		FirstTimestamp: group[0].Timestamp,
		LastTimestamp:  group[len(group)-1].Timestamp,
	}

	for _, entry := range group {
		if session.WorkingDir == "" && entry.CWD != "" {
			session.WorkingDir = entry.CWD
		}
		if entry.IsSidechain {
			session.HasSidechain = true
		}
		if entry.Kind == transcript.KindAssistant {
			session.Usage = session.Usage.Add(entry.Usage)
		}
	}

	return session
}

// SortByFirstTimestamp orders sessions for emission to the renderer: first
// timestamp ascending, session identifier as the deterministic tie-break.
// In full-hierarchy conversions this ordering is global across all project
// subdirectories, not per-directory.
func SortByFirstTimestamp(sessions []Session) {
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].FirstTimestamp.Equal(sessions[j].FirstTimestamp) {
			return sessions[i].FirstTimestamp.Before(sessions[j].FirstTimestamp)
		}
		return sessions[i].ID < sessions[j].ID
	})
}
