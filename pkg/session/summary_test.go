package session

import (
	"testing"
	"time"

	"github.com/nhannguyenhuu241/claude-reporter/pkg/transcript"
)

func summaryFor(leaf, text string, at time.Time) transcript.Entry {
	return transcript.Entry{
		Kind:      transcript.KindSummary,
		Summary:   text,
		LeafUUID:  leaf,
		Timestamp: at,
	}
}

func buildSessions(t *testing.T, entries ...transcript.Entry) []Session {
	t.Helper()
	sessions, err := Build(entries)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return sessions
}

func TestAttachSummariesMatchesByLeafUUID(t *testing.T) {
	sessions := buildSessions(t,
		msg(transcript.KindUser, "u-1", "s-1", ts(1)),
		msg(transcript.KindAssistant, "a-1", "s-1", ts(2)),
		msg(transcript.KindUser, "u-2", "s-2", ts(3)),
	)

	// leafUuid points to a mid-session message, not necessarily the last one.
	result := AttachSummaries(sessions, []transcript.Entry{
		summaryFor("a-1", "Session one summary", ts(10)),
	})

	if result.Attached != 1 || len(result.Unmatched) != 0 {
		t.Fatalf("Attached = %d, Unmatched = %d", result.Attached, len(result.Unmatched))
	}
	if sessions[0].Summary == nil || sessions[0].Summary.Summary != "Session one summary" {
		t.Errorf("session s-1 summary = %+v", sessions[0].Summary)
	}
	if sessions[1].Summary != nil {
		t.Errorf("session s-2 unexpectedly got a summary")
	}
}

func TestAttachSummariesUnmatchedRetained(t *testing.T) {
	sessions := buildSessions(t,
		msg(transcript.KindUser, "u-1", "s-1", ts(1)),
	)

	result := AttachSummaries(sessions, []transcript.Entry{
		summaryFor("missing-uuid", "orphan", ts(10)),
	})

	if result.Attached != 0 {
		t.Errorf("Attached = %d, want 0", result.Attached)
	}
	if len(result.Unmatched) != 1 || result.Unmatched[0].LeafUUID != "missing-uuid" {
		t.Fatalf("Unmatched = %+v", result.Unmatched)
	}
}

func TestAttachSummariesResummarizationLatestWins(t *testing.T) {
	sessions := buildSessions(t,
		msg(transcript.KindUser, "u-1", "s-1", ts(1)),
		msg(transcript.KindAssistant, "a-1", "s-1", ts(2)),
	)

	// Older summary arrives after the newer one; the newer keeps primacy.
	result := AttachSummaries(sessions, []transcript.Entry{
		summaryFor("u-1", "newer", ts(20)),
		summaryFor("a-1", "older", ts(10)),
	})

	if result.Attached != 2 {
		t.Fatalf("Attached = %d, want 2", result.Attached)
	}
	s := sessions[0]
	if s.Summary == nil || s.Summary.Summary != "newer" {
		t.Fatalf("primary = %+v, want newer", s.Summary)
	}
	if len(s.SummaryHistory) != 1 || s.SummaryHistory[0].Summary != "older" {
		t.Errorf("history = %+v", s.SummaryHistory)
	}
}

func TestAttachSummariesEqualTimestampLaterInputWins(t *testing.T) {
	sessions := buildSessions(t,
		msg(transcript.KindUser, "u-1", "s-1", ts(1)),
	)

	same := ts(10)
	AttachSummaries(sessions, []transcript.Entry{
		summaryFor("u-1", "first", same),
		summaryFor("u-1", "second", same),
	})

	s := sessions[0]
	if s.Summary == nil || s.Summary.Summary != "second" {
		t.Fatalf("primary = %+v, want second", s.Summary)
	}
	if len(s.SummaryHistory) != 1 || s.SummaryHistory[0].Summary != "first" {
		t.Errorf("history = %+v", s.SummaryHistory)
	}
}

func TestAttachSummariesCrossSessionScope(t *testing.T) {
	// The summary's session is only discoverable through the global index;
	// its own record carries no sessionId.
	sessions := buildSessions(t,
		msg(transcript.KindUser, "u-1", "s-1", ts(1)),
		msg(transcript.KindUser, "u-2", "s-2", ts(2)),
		msg(transcript.KindUser, "u-3", "s-3", ts(3)),
	)

	result := AttachSummaries(sessions, []transcript.Entry{
		summaryFor("u-3", "third session", ts(10)),
		summaryFor("u-1", "first session", ts(11)),
	})

	if result.Attached != 2 {
		t.Fatalf("Attached = %d, want 2", result.Attached)
	}
	if sessions[2].Summary == nil || sessions[2].Summary.Summary != "third session" {
		t.Errorf("s-3 summary = %+v", sessions[2].Summary)
	}
	if sessions[0].Summary == nil || sessions[0].Summary.Summary != "first session" {
		t.Errorf("s-1 summary = %+v", sessions[0].Summary)
	}
}

func TestSplitSummaries(t *testing.T) {
	entries := []transcript.Entry{
		msg(transcript.KindUser, "u-1", "s-1", ts(1)),
		summaryFor("u-1", "a summary", ts(10)),
		msg(transcript.KindAssistant, "a-1", "s-1", ts(2)),
		summaryFor("a-1", "another", ts(11)),
	}

	messages, summaries := SplitSummaries(entries)
	if len(messages) != 2 || len(summaries) != 2 {
		t.Fatalf("got %d messages, %d summaries", len(messages), len(summaries))
	}
	if messages[0].UUID != "u-1" || messages[1].UUID != "a-1" {
		t.Errorf("message order = %q, %q", messages[0].UUID, messages[1].UUID)
	}
	if summaries[0].Summary != "a summary" || summaries[1].Summary != "another" {
		t.Errorf("summary order = %q, %q", summaries[0].Summary, summaries[1].Summary)
	}
}
