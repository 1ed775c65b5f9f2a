package main

import (
	"testing"

	"github.com/nhannguyenhuu241/claude-reporter/pkg/utils"
)

func TestValidateFlags(t *testing.T) {
	// validateFlags reads package-level flag variables; save and restore so
	// cases do not leak into each other.
	reset := func() {
		console = false
		silent = false
		debug = false
		logFile = false
		cacheFingerprint = ""
		workers = 0
	}

	tests := []struct {
		name    string
		setup   func()
		wantErr bool
	}{
		{
			name:    "defaults pass",
			setup:   func() {},
			wantErr: false,
		},
		{
			name:    "console and silent conflict",
			setup:   func() { console = true; silent = true },
			wantErr: true,
		},
		{
			name:    "debug without sink",
			setup:   func() { debug = true },
			wantErr: true,
		},
		{
			name:    "debug with console",
			setup:   func() { debug = true; console = true },
			wantErr: false,
		},
		{
			name:    "debug with log file",
			setup:   func() { debug = true; logFile = true },
			wantErr: false,
		},
		{
			name:    "valid fingerprint mtime",
			setup:   func() { cacheFingerprint = "mtime" },
			wantErr: false,
		},
		{
			name:    "valid fingerprint sha256",
			setup:   func() { cacheFingerprint = "sha256" },
			wantErr: false,
		},
		{
			name:    "unknown fingerprint",
			setup:   func() { cacheFingerprint = "crc32" },
			wantErr: true,
		},
		{
			name:    "negative workers",
			setup:   func() { workers = -1 },
			wantErr: true,
		},
		{
			name:    "positive workers",
			setup:   func() { workers = 8 },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reset()
			tt.setup()
			err := validateFlags()
			if tt.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("validateFlags: %v", err)
			}
			if err != nil {
				if _, ok := err.(utils.ValidationError); !ok {
					t.Errorf("error type = %T, want ValidationError", err)
				}
			}
		})
	}
	reset()
}
