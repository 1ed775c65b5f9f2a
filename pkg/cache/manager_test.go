package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func writeTranscript(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

const oneUserLine = `{"type":"user","uuid":"u-1","sessionId":"s-1","timestamp":"2025-06-01T12:00:00Z","message":{"role":"user","content":"hello"}}` + "\n"

func TestGetOrParseColdThenWarm(t *testing.T) {
	ctx := context.Background()
	m := NewManager(testStore(t), FingerprintMtime)
	path := writeTranscript(t, t.TempDir(), "a.jsonl", oneUserLine)

	first, hit, err := m.GetOrParse(ctx, path)
	if err != nil {
		t.Fatalf("GetOrParse: %v", err)
	}
	if hit {
		t.Error("first lookup reported a hit")
	}
	if len(first.Entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(first.Entries))
	}

	second, hit, err := m.GetOrParse(ctx, path)
	if err != nil {
		t.Fatalf("GetOrParse (warm): %v", err)
	}
	if !hit {
		t.Error("second lookup reported a miss")
	}
	if len(second.Entries) != len(first.Entries) ||
		second.Entries[0].UUID != first.Entries[0].UUID ||
		second.Entries[0].Hash != first.Entries[0].Hash {
		t.Errorf("warm result differs from cold: %+v vs %+v", second.Entries[0], first.Entries[0])
	}

	hits, misses := m.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("Stats() = %d hits, %d misses, want 1 and 1", hits, misses)
	}
}

func TestGetOrParseMutationInvalidates(t *testing.T) {
	ctx := context.Background()
	m := NewManager(testStore(t), FingerprintSHA256)
	dir := t.TempDir()
	path := writeTranscript(t, dir, "a.jsonl", oneUserLine)

	if _, _, err := m.GetOrParse(ctx, path); err != nil {
		t.Fatalf("GetOrParse: %v", err)
	}

	appended := oneUserLine +
		`{"type":"user","uuid":"u-2","sessionId":"s-1","timestamp":"2025-06-01T12:00:01Z","message":{"role":"user","content":"more"}}` + "\n"
	writeTranscript(t, dir, "a.jsonl", appended)

	result, hit, err := m.GetOrParse(ctx, path)
	if err != nil {
		t.Fatalf("GetOrParse (after append): %v", err)
	}
	if hit {
		t.Error("changed file reported a hit")
	}
	if len(result.Entries) != 2 {
		t.Errorf("got %d entries, want 2", len(result.Entries))
	}
}

func TestGetOrParseCorruptPayloadIsMiss(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	m := NewManager(store, FingerprintSHA256)
	path := writeTranscript(t, t.TempDir(), "a.jsonl", oneUserLine)

	if _, _, err := m.GetOrParse(ctx, path); err != nil {
		t.Fatalf("GetOrParse: %v", err)
	}

	// Corrupt the stored payload behind the manager's back.
	fp, err := Fingerprint(path, FingerprintSHA256)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	err = store.Put(ctx, Record{
		Path:          path,
		Fingerprint:   fp,
		FormatVersion: FormatVersion,
		Payload:       []byte("{truncated"),
	})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	result, hit, err := m.GetOrParse(ctx, path)
	if err != nil {
		t.Fatalf("GetOrParse (corrupt): %v", err)
	}
	if hit {
		t.Error("corrupt record reported a hit")
	}
	if len(result.Entries) != 1 {
		t.Errorf("reparse got %d entries, want 1", len(result.Entries))
	}
}

func TestGetOrParseFormatVersionMismatchIsMiss(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	m := NewManager(store, FingerprintSHA256)
	path := writeTranscript(t, t.TempDir(), "a.jsonl", oneUserLine)

	fp, err := Fingerprint(path, FingerprintSHA256)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	err = store.Put(ctx, Record{
		Path:          path,
		Fingerprint:   fp,
		FormatVersion: FormatVersion + 1,
		Payload:       []byte(`{"entries":[]}`),
	})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	result, hit, err := m.GetOrParse(ctx, path)
	if err != nil {
		t.Fatalf("GetOrParse: %v", err)
	}
	if hit {
		t.Error("version-mismatched record reported a hit")
	}
	if len(result.Entries) != 1 {
		t.Errorf("reparse got %d entries, want 1", len(result.Entries))
	}
}

func TestGetOrParseMissingFile(t *testing.T) {
	m := NewManager(testStore(t), FingerprintMtime)
	_, _, err := m.GetOrParse(context.Background(), filepath.Join(t.TempDir(), "nope.jsonl"))
	if err == nil {
		t.Fatal("expected error for missing source file")
	}
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	m := NewManager(store, FingerprintMtime)
	path := writeTranscript(t, t.TempDir(), "a.jsonl", oneUserLine)

	if _, _, err := m.GetOrParse(ctx, path); err != nil {
		t.Fatalf("GetOrParse: %v", err)
	}
	if err := m.Invalidate(ctx, path); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, err := store.Get(ctx, path); err != ErrNotFound {
		t.Errorf("Get after invalidate = %v, want ErrNotFound", err)
	}
}

func TestNewManagerInvalidModeFallsBack(t *testing.T) {
	m := NewManager(testStore(t), FingerprintMode("blake3"))
	if m.Mode() != FingerprintMtime {
		t.Errorf("Mode() = %q, want mtime fallback", m.Mode())
	}
}

func TestFingerprintModes(t *testing.T) {
	dir := t.TempDir()
	path := writeTranscript(t, dir, "a.jsonl", oneUserLine)

	tests := []struct {
		name string
		mode FingerprintMode
	}{
		{name: "mtime", mode: FingerprintMtime},
		{name: "sha256", mode: FingerprintSHA256},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, err := Fingerprint(path, tt.mode)
			if err != nil {
				t.Fatalf("Fingerprint: %v", err)
			}
			again, err := Fingerprint(path, tt.mode)
			if err != nil {
				t.Fatalf("Fingerprint (repeat): %v", err)
			}
			if first != again {
				t.Errorf("unstable fingerprint: %q vs %q", first, again)
			}
			if first[:len(tt.name)] != tt.name {
				t.Errorf("fingerprint %q does not embed mode %q", first, tt.name)
			}
		})
	}
}

func TestFingerprintSHA256DetectsContentChange(t *testing.T) {
	dir := t.TempDir()
	path := writeTranscript(t, dir, "a.jsonl", oneUserLine)

	before, err := Fingerprint(path, FingerprintSHA256)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	writeTranscript(t, dir, "a.jsonl", oneUserLine+oneUserLine)
	after, err := Fingerprint(path, FingerprintSHA256)
	if err != nil {
		t.Fatalf("Fingerprint (after change): %v", err)
	}
	if before == after {
		t.Error("fingerprint unchanged after content change")
	}
}

func TestFingerprintUnknownMode(t *testing.T) {
	path := writeTranscript(t, t.TempDir(), "a.jsonl", oneUserLine)
	if _, err := Fingerprint(path, FingerprintMode("crc32")); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	rec := Record{
		Path:          "/projects/a.jsonl",
		Fingerprint:   "mtime:100:200",
		FormatVersion: FormatVersion,
		Payload:       []byte(`{"entries":[]}`),
	}
	if err := store.Put(ctx, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := store.Get(ctx, rec.Path)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Fingerprint != rec.Fingerprint || got.FormatVersion != rec.FormatVersion {
		t.Errorf("Get = %+v", got)
	}
	if got.UpdatedAt.IsZero() || time.Since(got.UpdatedAt) > time.Minute {
		t.Errorf("UpdatedAt = %v", got.UpdatedAt)
	}

	n, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n, _ := store.Count(ctx); n != 0 {
		t.Errorf("Count after Clear = %d, want 0", n)
	}
}

func TestStoreGetMissing(t *testing.T) {
	store := testStore(t)
	if _, err := store.Get(context.Background(), "/nope.jsonl"); err != ErrNotFound {
		t.Errorf("Get = %v, want ErrNotFound", err)
	}
}

func TestStorePutReplaces(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	path := "/projects/a.jsonl"
	for _, fp := range []string{"mtime:1:1", "mtime:2:2"} {
		err := store.Put(ctx, Record{Path: path, Fingerprint: fp, FormatVersion: FormatVersion, Payload: []byte("{}")})
		if err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	got, err := store.Get(ctx, path)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Fingerprint != "mtime:2:2" {
		t.Errorf("Fingerprint = %q, want latest", got.Fingerprint)
	}
	if n, _ := store.Count(ctx); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
}
