package deps

import (
	"fmt"
	"os"
	"strings"

	"earshot/internal/config"
)

// Requirements derives the binary dependencies from configuration: the
// search/download tool, the feature-analysis command, and the optional ASR
// transcriber.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "yt-dlp",
			Command:     cfg.YtDLP.Binary,
			Description: "Video-site search and audio download",
		},
		{
			Name:        "Analysis command",
			Command:     firstField(cfg.Analysis.Command),
			Description: "External audio feature extraction",
			Optional:    true,
		},
		{
			Name:        "ASR command",
			Command:     firstField(cfg.Lyrics.ASRCommand),
			Description: "Lyric transcription fallback",
			Optional:    true,
		},
	}
}

// CheckCredentials reports whether the credential environment variables for
// the optional providers are set. Values are never echoed.
func CheckCredentials(cfg *config.Config) []Status {
	checks := []struct {
		name     string
		enabled  bool
		envNames []string
	}{
		{"YouTube Data API", cfg.YouTube.Enabled, []string{cfg.YouTube.APIKeyEnv}},
		{"Spotify", cfg.Spotify.Enabled, []string{cfg.Spotify.ClientIDEnv, cfg.Spotify.ClientSecretEnv}},
		{"Jamendo", cfg.Jamendo.Enabled, []string{cfg.Jamendo.ClientIDEnv}},
	}

	results := make([]Status, 0, len(checks))
	for _, check := range checks {
		status := Status{
			Name:        check.name,
			Command:     strings.Join(check.envNames, ", "),
			Description: "Provider credentials",
			Optional:    true,
		}
		if !check.enabled {
			status.Detail = "disabled in configuration"
			results = append(results, status)
			continue
		}
		missing := missingEnv(check.envNames)
		if len(missing) > 0 {
			status.Detail = fmt.Sprintf("unset: %s", strings.Join(missing, ", "))
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

func missingEnv(names []string) []string {
	var missing []string
	for _, name := range names {
		if name == "" || os.Getenv(name) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

func firstField(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
