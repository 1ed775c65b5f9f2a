package transcript

import "log/slog"

// dedupeKey is the content-addressable identity used for duplicate
// elimination. Message identifiers alone are not enough: different files can
// legitimately reuse an identifier for identical re-synced content, and the
// hash distinguishes that benign case from a genuine identifier collision.
type dedupeKey struct {
	uuid    string
	session string
	hash    string
}

// Deduplicate removes exact duplicate entries from a sequence that may span
// multiple files. The first occurrence wins and the order of first
// occurrences is preserved, so downstream ordering stays deterministic.
func Deduplicate(entries []Entry) []Entry {
	if len(entries) == 0 {
		return entries
	}

	seen := make(map[dedupeKey]bool, len(entries))
	unique := make([]Entry, 0, len(entries))
	dropped := 0

	for _, entry := range entries {
		key := dedupeKey{uuid: entry.UUID, session: entry.SessionID, hash: entry.Hash}
		if seen[key] {
			dropped++
			continue
		}
		seen[key] = true
		unique = append(unique, entry)
	}

	if dropped > 0 {
		slog.Debug("eliminated duplicate entries", "total", len(entries), "dropped", dropped)
	}
	return unique
}
