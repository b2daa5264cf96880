package discovery

import "earshot/internal/textutil"

type canonicalKey struct {
	title  string
	artist string
}

func keyFor(candidate SourceCandidate) canonicalKey {
	return canonicalKey{
		title:  textutil.Normalize(candidate.Title),
		artist: textutil.Normalize(candidate.ArtistGuess),
	}
}

// Dedupe merges candidates sharing a canonical (title, artist) key, applied
// candidate-by-candidate in aggregation order. An audio-retrievable candidate
// always displaces a metadata-only holder and never yields to one; between
// candidates of the same kind the higher confidence wins.
func Dedupe(candidates []SourceCandidate) []SourceCandidate {
	holders := make(map[canonicalKey]int, len(candidates))
	kept := make([]SourceCandidate, 0, len(candidates))

	for _, incoming := range candidates {
		key := keyFor(incoming)
		idx, seen := holders[key]
		if !seen {
			holders[key] = len(kept)
			kept = append(kept, incoming)
			continue
		}
		current := kept[idx]
		switch {
		case incoming.Retrievable() && !current.Retrievable():
			kept[idx] = incoming
		case current.Retrievable() && !incoming.Retrievable():
			// retrievable never yields to metadata-only on score
		case incoming.Confidence > current.Confidence:
			kept[idx] = incoming
		}
	}
	return kept
}
