// Package lyrics fetches lyric text from lrclib with an optional ASR
// transcription fallback, and derives a lightweight thematic analysis.
// Failures are recorded as warnings on the artifact, never as errors.
package lyrics

// Artifact sources.
const (
	SourceLrclib = "lrclib"
	SourceASR    = "asr"
	SourceNone   = "none"
)

// Artifact holds lyric text and its provenance.
type Artifact struct {
	Source             string   `json:"source"`
	Text               string   `json:"text,omitempty"`
	Language           string   `json:"language,omitempty"`
	IsSynced           bool     `json:"is_synced"`
	ProviderConfidence float64  `json:"provider_confidence,omitempty"`
	Warnings           []string `json:"warnings,omitempty"`
}

func noneArtifact(warnings ...string) Artifact {
	return Artifact{Source: SourceNone, Warnings: warnings}
}
