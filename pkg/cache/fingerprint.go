package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// FingerprintMode selects how source files are fingerprinted for cache
// freshness checks.
type FingerprintMode string

const (
	// FingerprintMtime composes file size and modification time. Cheap, and
	// sufficient for the common case where Claude Code only ever appends.
	FingerprintMtime FingerprintMode = "mtime"
	// FingerprintSHA256 hashes the full file contents. Slower but immune to
	// mtime granularity and clock quirks; for correctness-critical callers.
	FingerprintSHA256 FingerprintMode = "sha256"
)

// Valid reports whether the mode is one of the supported values.
func (m FingerprintMode) Valid() bool {
	return m == FingerprintMtime || m == FingerprintSHA256
}

// Fingerprint computes a change-detecting digest of the file at path using
// the given mode. The result embeds the mode, so records written under one
// mode never false-match under another.
func Fingerprint(path string, mode FingerprintMode) (string, error) {
	switch mode {
	case FingerprintMtime:
		info, err := os.Stat(path)
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", path, err)
		}
		return fmt.Sprintf("mtime:%d:%d", info.Size(), info.ModTime().UnixNano()), nil

	case FingerprintSHA256:
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("open %s: %w", path, err)
		}
		defer func() { _ = f.Close() }()

		h := sha256.New()
		if _, err := io.Copy(h, f); err != nil {
			return "", fmt.Errorf("hash %s: %w", path, err)
		}
		return "sha256:" + hex.EncodeToString(h.Sum(nil)), nil

	default:
		return "", fmt.Errorf("unknown fingerprint mode %q", mode)
	}
}
