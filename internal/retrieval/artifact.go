// Package retrieval downloads audio for retrievable candidates, walking an
// ordered fallback chain until one attempt succeeds. Concurrent downloads for
// the same cache key are serialized with a file lock.
package retrieval

import "earshot/internal/discovery"

// AudioArtifact describes a retrieved audio file.
type AudioArtifact struct {
	Path        string  `json:"path"`
	Format      string  `json:"format"`
	SampleRate  int     `json:"sample_rate,omitempty"`
	DurationSec float64 `json:"duration_sec,omitempty"`
}

// FetchResult wraps the winning source, its audio, and whether the audio came
// from cache.
type FetchResult struct {
	Source   discovery.SourceCandidate `json:"source"`
	Audio    AudioArtifact             `json:"audio"`
	CacheHit bool                      `json:"cache_hit"`
}
