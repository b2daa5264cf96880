package retrieval

import (
	"sort"

	"earshot/internal/discovery"
)

// chainPriority orders retrieval attempts: the binary-search tool first, the
// browser-API-backed search second, the licensed-audio API third, everything
// else last.
func chainPriority(provider string) int {
	switch provider {
	case "ytdlp":
		return 0
	case "youtube_api":
		return 1
	case "jamendo":
		return 2
	default:
		return 3
	}
}

// Chain builds the ordered retrieval fallback chain from discovery
// candidates: retrievable sources with a URL, ordered by provider priority
// then descending confidence, deduplicated by identity.
func Chain(candidates []discovery.SourceCandidate) []discovery.SourceCandidate {
	filtered := make([]discovery.SourceCandidate, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.Retrievable() && candidate.URL != "" {
			filtered = append(filtered, candidate)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		pi, pj := chainPriority(filtered[i].Provider), chainPriority(filtered[j].Provider)
		if pi != pj {
			return pi < pj
		}
		return filtered[i].Confidence > filtered[j].Confidence
	})

	type identity struct {
		provider string
		sourceID string
	}
	seen := make(map[identity]struct{}, len(filtered))
	chain := make([]discovery.SourceCandidate, 0, len(filtered))
	for _, candidate := range filtered {
		id := identity{candidate.Provider, candidate.SourceID}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		chain = append(chain, candidate)
	}
	return chain
}
