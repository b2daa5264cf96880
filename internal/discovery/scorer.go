package discovery

import (
	"strings"

	"earshot/internal/config"
	"earshot/internal/textutil"
)

const (
	durationSaneMin = 60
	durationSaneMax = 720
)

// Score computes the weighted composite match score between a query and a
// candidate. Weights are clamped non-negative and re-normalized; a
// non-positive sum falls back to the built-in defaults.
func Score(query string, candidate SourceCandidate, weights config.RankingWeights) float64 {
	w := resolveWeights(weights)

	normQuery := textutil.Normalize(query)
	normTitle := textutil.Normalize(candidate.Title)
	queryTokens := textutil.Tokens(query)

	titleSimilarity := textutil.SequenceRatio(normQuery, normTitle)
	titleOverlap := tokenOverlap(queryTokens, textutil.TokenSet(candidate.Title))

	var artistSimilarity float64
	if strings.TrimSpace(candidate.ArtistGuess) != "" {
		normArtist := textutil.Normalize(candidate.ArtistGuess)
		artistSimilarity = max(
			textutil.SequenceRatio(normQuery, normArtist),
			tokenOverlap(queryTokens, textutil.TokenSet(candidate.ArtistGuess)),
		)
	}

	durationSanity := 0.5
	if candidate.DurationSec >= durationSaneMin && candidate.DurationSec <= durationSaneMax {
		durationSanity = 1.0
	}

	var containment float64
	if normQuery != "" && normTitle != "" &&
		(strings.Contains(normQuery, normTitle) || strings.Contains(normTitle, normQuery)) {
		containment = 1.0
	}

	score := w.TitleSimilarity*titleSimilarity +
		w.TitleTokenOverlap*titleOverlap +
		w.ArtistSimilarity*artistSimilarity +
		w.DurationSanity*durationSanity +
		w.ContainmentBonus*containment

	return clamp01(score)
}

// resolveWeights clamps negative weights to zero and normalizes the set to
// sum to one, substituting the defaults when nothing positive remains.
func resolveWeights(weights config.RankingWeights) config.RankingWeights {
	w := config.RankingWeights{
		TitleSimilarity:   max(weights.TitleSimilarity, 0),
		TitleTokenOverlap: max(weights.TitleTokenOverlap, 0),
		ArtistSimilarity:  max(weights.ArtistSimilarity, 0),
		DurationSanity:    max(weights.DurationSanity, 0),
		ContainmentBonus:  max(weights.ContainmentBonus, 0),
	}
	sum := w.TitleSimilarity + w.TitleTokenOverlap + w.ArtistSimilarity + w.DurationSanity + w.ContainmentBonus
	if sum <= 0 {
		w = config.DefaultRankingWeights()
		sum = w.TitleSimilarity + w.TitleTokenOverlap + w.ArtistSimilarity + w.DurationSanity + w.ContainmentBonus
	}
	w.TitleSimilarity /= sum
	w.TitleTokenOverlap /= sum
	w.ArtistSimilarity /= sum
	w.DurationSanity /= sum
	w.ContainmentBonus /= sum
	return w
}

func tokenOverlap(queryTokens []string, targetSet map[string]struct{}) float64 {
	if len(queryTokens) == 0 || len(targetSet) == 0 {
		return 0
	}
	matched := 0
	for _, token := range queryTokens {
		if _, ok := targetSet[token]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTokens))
}

func clamp01(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
