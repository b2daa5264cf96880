package lyrics

import (
	"context"
	"strings"
	"testing"
)

const sampleLyrics = `I woke up with love in my heart
The pain and the hurt fade away
We run for the open road
Tomorrow we rise with the light`

func TestAnalyzeThemesAndPolarity(t *testing.T) {
	analysis := Analyze(sampleLyrics)
	if analysis == nil {
		t.Fatal("expected analysis")
	}
	if len(analysis.Themes) == 0 || len(analysis.Themes) > 3 {
		t.Fatalf("themes = %v, want 1..3", analysis.Themes)
	}
	if !hasWarning(analysis.Themes, "love") {
		t.Fatalf("themes = %v, want love matched", analysis.Themes)
	}
	// love + 0 positives vs pain + hurt: 1 positive, 2 negatives -> mixed.
	if analysis.EmotionalPolarity != "mixed" {
		t.Fatalf("polarity = %s, want mixed", analysis.EmotionalPolarity)
	}
	if analysis.Intensity <= 0 || analysis.Intensity > 1 {
		t.Fatalf("intensity = %v", analysis.Intensity)
	}
	if analysis.Confidence < 0.2 || analysis.Confidence > 1 {
		t.Fatalf("confidence = %v", analysis.Confidence)
	}
	if !strings.HasPrefix(analysis.Summary, "The lyrics feel mixed, centered on ") {
		t.Fatalf("summary = %q", analysis.Summary)
	}
}

func TestAnalyzeEmptyTextReturnsNil(t *testing.T) {
	if Analyze("") != nil || Analyze("   \n ") != nil {
		t.Fatal("empty text should yield nil analysis")
	}
}

func TestAnalyzeNeutralText(t *testing.T) {
	analysis := Analyze("the quick brown fox jumps over the lazy dog near the river bank")
	if analysis == nil {
		t.Fatal("expected analysis")
	}
	if analysis.EmotionalPolarity != "neutral" {
		t.Fatalf("polarity = %s, want neutral", analysis.EmotionalPolarity)
	}
	if analysis.Intensity != 0 {
		t.Fatalf("intensity = %v, want 0 with no sentiment hits", analysis.Intensity)
	}
}

func TestAnalyzePositiveDominant(t *testing.T) {
	analysis := Analyze("love hope joy dream shine alive and one dark moment")
	if analysis.EmotionalPolarity != "positive" {
		t.Fatalf("polarity = %s, want positive", analysis.EmotionalPolarity)
	}
}

func TestAnalyzeNegativeDominant(t *testing.T) {
	analysis := Analyze("pain hurt alone broken empty fear with a single smile")
	if analysis.EmotionalPolarity != "negative" {
		t.Fatalf("polarity = %s, want negative", analysis.EmotionalPolarity)
	}
}

func TestAnalyzeThemeFallbackToCommonWords(t *testing.T) {
	analysis := Analyze("thunder thunder thunder rolling rolling across across the plains")
	if len(analysis.Themes) == 0 {
		t.Fatal("expected fallback themes")
	}
	if analysis.Themes[0] != "thunder" {
		t.Fatalf("themes = %v, want most common long word first", analysis.Themes)
	}
}

func TestAnalyzeThemeFallbackReflection(t *testing.T) {
	analysis := Analyze("a b c d e f g")
	if len(analysis.Themes) != 1 || analysis.Themes[0] != "reflection" {
		t.Fatalf("themes = %v, want [reflection]", analysis.Themes)
	}
}

func TestAnalyzeEvidenceLines(t *testing.T) {
	analysis := Analyze(sampleLyrics)
	if len(analysis.EvidenceLines) == 0 || len(analysis.EvidenceLines) > 3 {
		t.Fatalf("evidence = %v", analysis.EvidenceLines)
	}
	// The line with both pain and hurt carries the strongest signal.
	if analysis.EvidenceLines[0] != "The pain and the hurt fade away" {
		t.Fatalf("evidence[0] = %q", analysis.EvidenceLines[0])
	}
}

func TestAnalyzeEvidenceFallbackFirstLines(t *testing.T) {
	analysis := Analyze("one two three\nfour five six\nseven eight nine\nten eleven twelve")
	if len(analysis.EvidenceLines) != 3 {
		t.Fatalf("evidence = %v, want first three lines", analysis.EvidenceLines)
	}
	if analysis.EvidenceLines[0] != "one two three" {
		t.Fatalf("evidence[0] = %q", analysis.EvidenceLines[0])
	}
}

func TestAnalyzeEvidenceLineCapped(t *testing.T) {
	long := "pain " + strings.Repeat("and hurt keeps echoing through the long corridor ", 8)
	analysis := Analyze(long)
	for _, line := range analysis.EvidenceLines {
		if len(line) > 160 {
			t.Fatalf("evidence line exceeds cap: %d chars", len(line))
		}
	}
}

type memoryAnalysisCache struct {
	entries map[string][]byte
	gets    int
}

func (m *memoryAnalysisCache) GetLyricsAnalysis(ctx context.Context, key string) ([]byte, bool, error) {
	m.gets++
	payload, ok := m.entries[key]
	return payload, ok, nil
}

func (m *memoryAnalysisCache) PutLyricsAnalysis(ctx context.Context, key string, payload []byte) error {
	m.entries[key] = payload
	return nil
}

func TestAnalyzeCachedRoundTrip(t *testing.T) {
	store := &memoryAnalysisCache{entries: make(map[string][]byte)}
	artifact := Artifact{Source: SourceLrclib, Text: sampleLyrics}

	first := AnalyzeCached(context.Background(), store, artifact)
	if first == nil {
		t.Fatal("expected analysis")
	}
	if len(store.entries) != 1 {
		t.Fatalf("cache entries = %d, want 1", len(store.entries))
	}

	second := AnalyzeCached(context.Background(), store, artifact)
	if second == nil || second.Summary != first.Summary {
		t.Fatalf("cached analysis mismatch: %+v vs %+v", first, second)
	}
}

func TestAnalyzeCachedNoText(t *testing.T) {
	store := &memoryAnalysisCache{entries: make(map[string][]byte)}
	if AnalyzeCached(context.Background(), store, noneArtifact()) != nil {
		t.Fatal("expected nil analysis for empty text")
	}
	if len(store.entries) != 0 {
		t.Fatal("nothing should be cached for empty text")
	}
}
