package discovery

import "encoding/json"

// SourceType distinguishes candidates whose audio can be downloaded from
// candidates that only carry catalog metadata.
type SourceType string

const (
	SourceTypeAudio    SourceType = "audio-retrievable"
	SourceTypeMetadata SourceType = "metadata-only"
)

// SourceCandidate is one provider's proposed match for a query. Identity is
// (provider, source_id); confidence is replaced by the composite score during
// re-ranking.
type SourceCandidate struct {
	Provider    string          `json:"provider"`
	SourceType  SourceType      `json:"source_type"`
	SourceID    string          `json:"source_id"`
	Title       string          `json:"title"`
	ArtistGuess string          `json:"artist_guess,omitempty"`
	DurationSec float64         `json:"duration_sec,omitempty"`
	URL         string          `json:"url,omitempty"`
	Confidence  float64         `json:"confidence"`
	Raw         json.RawMessage `json:"raw,omitempty"`
}

// Retrievable reports whether the candidate's audio can be downloaded.
func (c SourceCandidate) Retrievable() bool {
	return c.SourceType == SourceTypeAudio
}

// DiscoveryResult is the outcome of one discovery call: candidates in
// descending score order, the selected best match, and one trace entry per
// configured provider.
type DiscoveryResult struct {
	Query         string            `json:"query"`
	Candidates    []SourceCandidate `json:"candidates"`
	Selected      *SourceCandidate  `json:"selected,omitempty"`
	ProviderTrace []string          `json:"provider_trace"`
}
