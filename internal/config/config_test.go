package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, _, exists, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if cfg.Discovery.MaxResults != defaultMaxResults {
		t.Fatalf("max_results = %d, want default %d", cfg.Discovery.MaxResults, defaultMaxResults)
	}
	if got := cfg.Discovery.Providers; len(got) != len(KnownProviders) {
		t.Fatalf("providers = %v, want all known providers", got)
	}
	if cfg.Listen.DefaultMode != "auto" {
		t.Fatalf("default mode = %q, want auto", cfg.Listen.DefaultMode)
	}
}

func TestLoadAppliesOverridesAndNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[discovery]
max_results = 3
providers = ["YTDLP", "musicbrainz"]

[listen]
default_mode = "FULL_AUDIO"

[logging]
format = "JSON"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved == "" {
		t.Fatal("expected config file to be found")
	}
	if cfg.Discovery.MaxResults != 3 {
		t.Fatalf("max_results = %d, want 3", cfg.Discovery.MaxResults)
	}
	if got := cfg.Discovery.Providers; len(got) != 2 || got[0] != "ytdlp" || got[1] != "musicbrainz" {
		t.Fatalf("providers = %v, want lowercased override", got)
	}
	if cfg.Listen.DefaultMode != "full_audio" {
		t.Fatalf("default mode = %q, want full_audio", cfg.Listen.DefaultMode)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("logging format = %q, want json", cfg.Logging.Format)
	}
	// Untouched sections keep defaults.
	if cfg.Retrieval.OutputFormat != defaultRetrievalOutputFormat {
		t.Fatalf("retrieval format = %q, want default", cfg.Retrieval.OutputFormat)
	}
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	cfg := Default()
	cfg.Discovery.Providers = []string{"ytdlp", "soundcloud"}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "soundcloud") {
		t.Fatalf("expected unknown provider error, got %v", err)
	}
}

func TestValidateRejectsDuplicateProvider(t *testing.T) {
	cfg := Default()
	cfg.Discovery.Providers = []string{"ytdlp", "ytdlp"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected duplicate provider error")
	}
}

func TestValidateRejectsUnknownMode(t *testing.T) {
	cfg := Default()
	cfg.Listen.DefaultMode = "hybrid"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected unknown mode error")
	}
}

func TestValidateRejectsConfidenceOutOfRange(t *testing.T) {
	cfg := Default()
	cfg.Descriptors.MinConfidence = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected min_confidence range error")
	}
}

func TestSampleConfigParsesAndValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
	if !exists {
		t.Fatal("sample config should exist")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sample config failed validation: %v", err)
	}
}

func TestExpandPathHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	got, err := expandPath("~/sub/dir")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	if got != filepath.Join(home, "sub", "dir") {
		t.Fatalf("expandPath = %q", got)
	}
}
