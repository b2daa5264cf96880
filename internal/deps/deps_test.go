package deps

import (
	"os"
	"path/filepath"
	"testing"

	"earshot/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}

	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatalf("expected detail message for missing binary")
	}

	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
}

func TestCheckBinariesUnconfiguredCommand(t *testing.T) {
	results := CheckBinaries([]Requirement{{Name: "ASR", Command: "  ", Optional: true}})
	if results[0].Available {
		t.Fatal("blank command must be unavailable")
	}
	if results[0].Detail != "command not configured" {
		t.Fatalf("detail = %q", results[0].Detail)
	}
}

func TestRequirementsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Analysis.Command = "earshot-analyze --format json"
	cfg.Lyrics.ASRCommand = ""

	reqs := Requirements(&cfg)
	if len(reqs) != 3 {
		t.Fatalf("requirements = %d, want 3", len(reqs))
	}
	if reqs[0].Command != cfg.YtDLP.Binary {
		t.Fatalf("yt-dlp command = %q", reqs[0].Command)
	}
	if reqs[1].Command != "earshot-analyze" {
		t.Fatalf("analysis command = %q, want first field only", reqs[1].Command)
	}
	if reqs[2].Command != "" {
		t.Fatalf("asr command = %q, want empty", reqs[2].Command)
	}
}

func TestCheckCredentials(t *testing.T) {
	cfg := config.Default()
	cfg.YouTube.Enabled = true
	cfg.Spotify.Enabled = true
	cfg.Jamendo.Enabled = false

	t.Setenv(cfg.YouTube.APIKeyEnv, "key")
	t.Setenv(cfg.Spotify.ClientIDEnv, "id")
	t.Setenv(cfg.Spotify.ClientSecretEnv, "")

	results := CheckCredentials(&cfg)
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	if !results[0].Available {
		t.Fatalf("youtube should be available: %#v", results[0])
	}
	if results[1].Available {
		t.Fatalf("spotify missing secret should be unavailable: %#v", results[1])
	}
	if results[2].Available || results[2].Detail != "disabled in configuration" {
		t.Fatalf("jamendo disabled status = %#v", results[2])
	}
}
