package session

import (
	"log/slog"
	"time"

	"github.com/nhannguyenhuu241/claude-reporter/pkg/transcript"
)

// MatchResult reports the outcome of summary attachment. Unmatched
// summaries are retained, never dropped: the message a leafUuid references
// may simply not have been ingested yet, and a later incremental run over a
// wider scope can still attach it.
type MatchResult struct {
	Attached  int
	Unmatched []transcript.Entry
}

// AttachSummaries resolves summary-to-session attachment in a second pass
// over fully aggregated sessions. Summary generation runs asynchronously
// relative to the conversation it summarizes, so a summary may arrive in a
// different file or batch than its session; attachment therefore needs a
// message-identifier index spanning every loaded entry, not just the
// summary's own file. The index is built here from the sessions passed in —
// callers must not invoke this until all files in the conversion scope have
// been parsed, deduplicated, and aggregated.
//
// When several summaries resolve to the same session (re-summarization),
// the one with the latest generation timestamp becomes the session's
// primary summary; on equal timestamps the summary encountered later in
// input order wins. Superseded summaries are retained in SummaryHistory.
func AttachSummaries(sessions []Session, summaries []transcript.Entry) MatchResult {
	start := time.Now()

	// Global index: message identifier -> position of its session.
	index := make(map[string]int)
	for i := range sessions {
		for _, entry := range sessions[i].Entries {
			index[entry.UUID] = i
		}
	}

	result := MatchResult{}
	for _, summary := range summaries {
		i, ok := index[summary.LeafUUID]
		if !ok {
			result.Unmatched = append(result.Unmatched, summary)
			continue
		}
		attachOne(&sessions[i], summary)
		result.Attached++
	}

	slog.Debug("attached summaries",
		"summaries", len(summaries),
		"attached", result.Attached,
		"unmatched", len(result.Unmatched),
		"duration", time.Since(start))
	return result
}

// attachOne installs a summary on a session, demoting the current primary
// to history when the newcomer wins the timestamp tie-break.
func attachOne(s *Session, summary transcript.Entry) {
	if s.Summary == nil {
		s.Summary = &summary
		return
	}
	// Later input order wins on equal timestamps, so !Before rather than
	// After: summaries are processed in first-encounter order.
	if !summary.Timestamp.Before(s.Summary.Timestamp) {
		s.SummaryHistory = append(s.SummaryHistory, *s.Summary)
		s.Summary = &summary
		return
	}
	s.SummaryHistory = append(s.SummaryHistory, summary)
}

// SplitSummaries partitions entries into message entries and summary
// entries, preserving relative order within each partition.
func SplitSummaries(entries []transcript.Entry) (messages, summaries []transcript.Entry) {
	for _, entry := range entries {
		if entry.Kind == transcript.KindSummary {
			summaries = append(summaries, entry)
		} else {
			messages = append(messages, entry)
		}
	}
	return messages, summaries
}
