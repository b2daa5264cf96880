package lyrics

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"earshot/internal/cache"
)

// Analysis is the heuristic thematic read of lyric text.
type Analysis struct {
	Themes            []string `json:"themes"`
	EmotionalPolarity string   `json:"emotional_polarity"`
	Intensity         float64  `json:"intensity"`
	Confidence        float64  `json:"confidence"`
	EvidenceLines     []string `json:"evidence_lines"`
	Summary           string   `json:"summary"`
}

// themeOrder fixes the precedence when more than three themes match.
var themeOrder = []string{"love", "loss", "hope", "pain", "freedom", "identity"}

var themeKeywords = map[string][]string{
	"love":     {"love", "heart", "kiss", "darling", "baby"},
	"loss":     {"gone", "goodbye", "lost", "miss", "grave", "cry"},
	"hope":     {"hope", "light", "rise", "tomorrow", "believe"},
	"pain":     {"pain", "hurt", "scars", "broken", "bleed"},
	"freedom":  {"free", "run", "escape", "wild", "road"},
	"identity": {"i am", "myself", "mirror", "name", "become"},
}

var positiveWords = wordSet("love", "hope", "alive", "shine", "joy", "dream", "heal", "peace", "smile")

var negativeWords = wordSet("pain", "hurt", "lost", "alone", "dark", "broken", "cry", "fear", "empty")

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

var tokenPattern = regexp.MustCompile(`[a-zA-Z']+`)

func tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// Analyze derives themes, polarity, and intensity from lyric text. Returns
// nil when there is no text to analyze.
func Analyze(text string) *Analysis {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	lowered := strings.ToLower(text)
	tokens := tokenize(text)

	themes := matchThemes(lowered, tokens)
	positive, negative := sentimentCounts(tokens)
	polarity := polarityLabel(positive, negative)
	intensity := intensityScore(positive, negative, len(tokens))
	confidence := confidenceScore(len(text), polarity)
	evidence := evidenceLines(text)

	return &Analysis{
		Themes:            themes,
		EmotionalPolarity: polarity,
		Intensity:         intensity,
		Confidence:        confidence,
		EvidenceLines:     evidence,
		Summary: fmt.Sprintf(
			"The lyrics feel %s, centered on %s. Emotional intensity reads around %.2f with confidence %.2f.",
			polarity, strings.Join(headThemes(themes, 2), ", "), intensity, confidence),
	}
}

// matchThemes collects keyword-matched themes, capped at three, with a
// frequency fallback so the result is never empty.
func matchThemes(lowered string, tokens []string) []string {
	var themes []string
	for _, name := range themeOrder {
		for _, keyword := range themeKeywords[name] {
			if strings.Contains(lowered, keyword) {
				themes = append(themes, name)
				break
			}
		}
		if len(themes) == 3 {
			return themes
		}
	}
	if len(themes) > 0 {
		return themes
	}

	// No keyword hits: fall back to the most common longer words.
	counts := make(map[string]int)
	order := make(map[string]int)
	for i, token := range tokens {
		if len(token) <= 4 {
			continue
		}
		if _, seen := counts[token]; !seen {
			order[token] = i
		}
		counts[token]++
	}
	common := make([]string, 0, len(counts))
	for token := range counts {
		common = append(common, token)
	}
	sort.Slice(common, func(i, j int) bool {
		if counts[common[i]] != counts[common[j]] {
			return counts[common[i]] > counts[common[j]]
		}
		return order[common[i]] < order[common[j]]
	})
	if len(common) > 3 {
		common = common[:3]
	}
	if len(common) > 0 {
		return common
	}
	return []string{"reflection"}
}

func sentimentCounts(tokens []string) (positive, negative int) {
	for _, token := range tokens {
		if _, ok := positiveWords[token]; ok {
			positive++
		}
		if _, ok := negativeWords[token]; ok {
			negative++
		}
	}
	return positive, negative
}

func polarityLabel(positive, negative int) string {
	switch {
	case positive == 0 && negative == 0:
		return "neutral"
	case abs(positive-negative) <= 1:
		return "mixed"
	case positive > negative:
		return "positive"
	default:
		return "negative"
	}
}

// intensityScore scales sentiment density against text length so short
// fragments cannot read as maximally intense.
func intensityScore(positive, negative, tokenCount int) float64 {
	denom := math.Max(12, float64(tokenCount)/8.0)
	return round3(math.Min(1.0, float64(positive+negative)/denom))
}

func confidenceScore(textLen int, polarity string) float64 {
	factor := 0.9
	if polarity == "neutral" || polarity == "mixed" {
		factor = 0.75
	}
	value := float64(textLen) / 1200.0 * factor
	return round3(math.Max(0.2, math.Min(1.0, value)))
}

// evidenceLines picks the three lines with the strongest sentiment signal,
// falling back to the opening lines when nothing scores.
func evidenceLines(text string) []string {
	rawLines := strings.Split(text, "\n")

	type scoredLine struct {
		index int
		score int
		line  string
	}
	var scored []scoredLine
	for i, raw := range rawLines {
		line := strings.TrimSpace(raw)
		tokens := tokenize(line)
		if len(tokens) < 3 {
			continue
		}
		positive, negative := sentimentCounts(tokens)
		if positive+negative == 0 {
			continue
		}
		if len(line) > 160 {
			line = line[:160]
		}
		scored = append(scored, scoredLine{index: i, score: positive + negative, line: line})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if len(scored) > 3 {
		scored = scored[:3]
	}
	if len(scored) > 0 {
		lines := make([]string, len(scored))
		for i, s := range scored {
			lines[i] = s.line
		}
		return lines
	}

	var fallback []string
	for _, raw := range rawLines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if len(line) > 160 {
			line = line[:160]
		}
		fallback = append(fallback, line)
		if len(fallback) == 3 {
			break
		}
	}
	return fallback
}

func headThemes(themes []string, n int) []string {
	if len(themes) > n {
		return themes[:n]
	}
	return themes
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func round3(value float64) float64 {
	return math.Round(value*1000) / 1000
}

// AnalysisCache persists lyric analyses keyed by text content.
type AnalysisCache interface {
	GetLyricsAnalysis(ctx context.Context, key string) ([]byte, bool, error)
	PutLyricsAnalysis(ctx context.Context, key string, payload []byte) error
}

// AnalyzeCached analyzes the artifact's text, consulting the cache first.
// Returns nil when the artifact carries no text.
func AnalyzeCached(ctx context.Context, store AnalysisCache, artifact Artifact) *Analysis {
	text := strings.TrimSpace(artifact.Text)
	if text == "" {
		return nil
	}

	key := cache.NormalizeKey(text)
	if store != nil {
		if payload, ok, err := store.GetLyricsAnalysis(ctx, key); err == nil && ok {
			var analysis Analysis
			if json.Unmarshal(payload, &analysis) == nil {
				return &analysis
			}
		}
	}

	analysis := Analyze(text)
	if analysis != nil && store != nil {
		if payload, err := json.Marshal(analysis); err == nil {
			_ = store.PutLyricsAnalysis(ctx, key, payload)
		}
	}
	return analysis
}
