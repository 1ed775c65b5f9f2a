package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/nhannguyenhuu241/claude-reporter/pkg/transcript"
)

// FormatVersion identifies the entry schema used in cached payloads. Bump
// it whenever transcript.Entry or transcript.ParseResult changes shape;
// records written under another version are treated as misses, forcing a
// full reparse instead of decoding stale structures.
const FormatVersion = 1

// Manager wraps a Store with fingerprint validation. The invariant it
// maintains: the cache is never a source of entries inconsistent with the
// current file content. A fingerprint mismatch always triggers a full
// reparse — there is no partial patching — and a corrupted store degrades
// to a per-file cache miss, never an error to the caller.
type Manager struct {
	store *Store
	mode  FingerprintMode

	// Counters are atomic because file-level workers may call GetOrParse
	// concurrently during hierarchy conversions.
	hits   atomic.Int64
	misses atomic.Int64
}

// NewManager creates a cache manager over the given store. An invalid mode
// falls back to mtime fingerprinting.
func NewManager(store *Store, mode FingerprintMode) *Manager {
	if !mode.Valid() {
		mode = FingerprintMtime
	}
	return &Manager{store: store, mode: mode}
}

// GetOrParse returns the parse result for a source file, from cache when
// the stored fingerprint matches the file's current fingerprint, otherwise
// by reparsing and storing the fresh result. The boolean reports a cache
// hit. I/O errors reading the source file are returned; cache store
// problems only ever downgrade to a miss.
func (m *Manager) GetOrParse(ctx context.Context, path string) (transcript.ParseResult, bool, error) {
	fingerprint, err := Fingerprint(path, m.mode)
	if err != nil {
		return transcript.ParseResult{}, false, err
	}

	if cached, ok := m.lookup(ctx, path, fingerprint); ok {
		m.hits.Add(1)
		return cached, true, nil
	}
	m.misses.Add(1)

	result, err := transcript.ParseFile(path)
	if err != nil {
		return result, false, err
	}

	payload, err := json.Marshal(result)
	if err != nil {
		// Should not happen for our own types; skip caching, still return
		// the parse.
		slog.Warn("failed to encode parse result for cache", "file", path, "error", err)
		return result, false, nil
	}
	if err := m.store.Put(ctx, Record{
		Path:          path,
		Fingerprint:   fingerprint,
		FormatVersion: FormatVersion,
		Payload:       payload,
	}); err != nil {
		slog.Warn("failed to write cache record", "file", path, "error", err)
	}

	return result, false, nil
}

// lookup fetches and validates a cached record. Any failure — absent
// record, version mismatch, stale fingerprint, undecodable payload — is a
// miss.
func (m *Manager) lookup(ctx context.Context, path, fingerprint string) (transcript.ParseResult, bool) {
	rec, err := m.store.Get(ctx, path)
	if err != nil {
		if err != ErrNotFound {
			slog.Debug("cache read failed, treating as miss", "file", path, "error", err)
		}
		return transcript.ParseResult{}, false
	}
	if rec.FormatVersion != FormatVersion {
		slog.Debug("cache format version mismatch, treating as miss",
			"file", path, "cached", rec.FormatVersion, "current", FormatVersion)
		return transcript.ParseResult{}, false
	}
	if rec.Fingerprint != fingerprint {
		slog.Debug("cache fingerprint mismatch, reparsing", "file", path)
		return transcript.ParseResult{}, false
	}

	var result transcript.ParseResult
	if err := json.Unmarshal(rec.Payload, &result); err != nil {
		slog.Debug("cache payload undecodable, treating as miss", "file", path, "error", err)
		return transcript.ParseResult{}, false
	}
	return result, true
}

// Invalidate removes the cached record for a source file.
func (m *Manager) Invalidate(ctx context.Context, path string) error {
	return m.store.Delete(ctx, path)
}

// Stats returns hit/miss counts accumulated since the manager was created.
func (m *Manager) Stats() (hits, misses int64) {
	return m.hits.Load(), m.misses.Load()
}

// Mode returns the fingerprint mode in use.
func (m *Manager) Mode() FingerprintMode {
	return m.mode
}

// String implements fmt.Stringer for log output.
func (m *Manager) String() string {
	return fmt.Sprintf("cache(mode=%s hits=%d misses=%d)", m.mode, m.hits.Load(), m.misses.Load())
}
