package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	CacheDir string `toml:"cache_dir"`
	LogDir   string `toml:"log_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// RankingWeights holds the five composite-score weights. They are
// re-normalized to sum to one at scoring time; a non-positive sum falls back
// to the built-in defaults.
type RankingWeights struct {
	TitleSimilarity   float64 `toml:"title_similarity"`
	TitleTokenOverlap float64 `toml:"title_token_overlap"`
	ArtistSimilarity  float64 `toml:"artist_similarity"`
	DurationSanity    float64 `toml:"duration_sanity"`
	ContainmentBonus  float64 `toml:"containment_bonus"`
}

// Discovery contains configuration for the discovery coordinator.
type Discovery struct {
	MaxResults          int            `toml:"max_results"`
	ProviderTimeoutSec  int            `toml:"provider_timeout_sec"`
	AggregateTimeoutSec int            `toml:"aggregate_timeout_sec"`
	QueryTTLSec         int            `toml:"query_ttl_sec"`
	Providers           []string       `toml:"providers"`
	RankingWeights      RankingWeights `toml:"ranking_weights"`
}

// YtDLP contains configuration for the yt-dlp search/retrieval tool.
type YtDLP struct {
	Binary           string `toml:"binary"`
	SearchTimeoutSec int    `toml:"search_timeout_sec"`
}

// YouTube contains configuration for the YouTube Data API provider.
type YouTube struct {
	Enabled           bool   `toml:"enabled"`
	APIKeyEnv         string `toml:"api_key_env"`
	RequestTimeoutSec int    `toml:"request_timeout_sec"`
}

// Spotify contains configuration for the Spotify catalog provider.
type Spotify struct {
	Enabled           bool   `toml:"enabled"`
	ClientIDEnv       string `toml:"client_id_env"`
	ClientSecretEnv   string `toml:"client_secret_env"`
	RequestTimeoutSec int    `toml:"request_timeout_sec"`
	Market            string `toml:"market"`
}

// Jamendo contains configuration for the Jamendo licensed-audio provider.
type Jamendo struct {
	Enabled           bool   `toml:"enabled"`
	ClientIDEnv       string `toml:"client_id_env"`
	RequestTimeoutSec int    `toml:"request_timeout_sec"`
}

// Retrieval contains configuration for audio retrieval.
type Retrieval struct {
	OutputFormat string `toml:"output_format"`
	TimeoutSec   int    `toml:"timeout_sec"`
}

// Analysis contains configuration for the external feature-analysis command.
type Analysis struct {
	Command    string `toml:"command"`
	TimeoutSec int    `toml:"timeout_sec"`
	SampleRate int    `toml:"sample_rate"`
}

// Lyrics contains configuration for lyric fetching.
type Lyrics struct {
	Enabled           bool   `toml:"enabled"`
	RequestTimeoutSec int    `toml:"request_timeout_sec"`
	MinTextChars      int    `toml:"min_text_chars"`
	MaxChars          int    `toml:"max_chars"`
	AllowASRFallback  bool   `toml:"allow_asr_fallback"`
	ASRCommand        string `toml:"asr_command"`
	ASRModelSize      string `toml:"asr_model_size"`
	IncludeInCache    bool   `toml:"include_in_cache"`
}

// Descriptors contains configuration for the descriptor fallback builder.
type Descriptors struct {
	Enabled           bool    `toml:"enabled"`
	MinConfidence     float64 `toml:"min_confidence"`
	RequestTimeoutSec int     `toml:"request_timeout_sec"`
}

// Listen contains configuration for the listen orchestrator.
type Listen struct {
	DefaultMode string `toml:"default_mode"`
}

// Telemetry contains optional error-reporting configuration.
type Telemetry struct {
	SentryDSN string `toml:"sentry_dsn"`
}

// Config encapsulates all configuration values for earshot.
//
// Configuration sections by subsystem:
//   - Paths: cache and log directories
//   - Logging: log format and level
//   - Discovery: provider order, timeouts, and ranking weights
//   - YtDLP / YouTube / Spotify / Jamendo: provider settings
//   - Retrieval: audio download format and timeout
//   - Analysis: external feature-analysis command
//   - Lyrics: lyric fetching and ASR fallback policy
//   - Descriptors: descriptor fallback thresholds
//   - Listen: default analysis mode
//   - Telemetry: optional Sentry error reporting
type Config struct {
	Paths       Paths       `toml:"paths"`
	Logging     Logging     `toml:"logging"`
	Discovery   Discovery   `toml:"discovery"`
	YtDLP       YtDLP       `toml:"ytdlp"`
	YouTube     YouTube     `toml:"youtube"`
	Spotify     Spotify     `toml:"spotify"`
	Jamendo     Jamendo     `toml:"jamendo"`
	Retrieval   Retrieval   `toml:"retrieval"`
	Analysis    Analysis    `toml:"analysis"`
	Lyrics      Lyrics      `toml:"lyrics"`
	Descriptors Descriptors `toml:"descriptors"`
	Listen      Listen      `toml:"listen"`
	Telemetry   Telemetry   `toml:"telemetry"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/earshot/config.toml")
}

// Load locates, parses, and validates a configuration file. Credential
// environment variables may also be supplied through a .env file in the
// working directory. The returned config has all path fields expanded.
func Load(path string) (*Config, string, bool, error) {
	// Best effort; absence of a .env file is the normal case.
	_ = godotenv.Load()

	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("earshot.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the cache and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.CacheDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
