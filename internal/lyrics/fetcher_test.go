package lyrics

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"earshot/internal/config"
	"earshot/internal/discovery"
)

type stubSource struct {
	artifact Artifact
	calls    int
}

func (s *stubSource) Fetch(ctx context.Context, source discovery.SourceCandidate) Artifact {
	s.calls++
	return s.artifact
}

type memoryCache struct {
	lyrics map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{lyrics: make(map[string][]byte)}
}

func (m *memoryCache) GetLyrics(ctx context.Context, key string) ([]byte, bool, error) {
	payload, ok := m.lyrics[key]
	return payload, ok, nil
}

func (m *memoryCache) PutLyrics(ctx context.Context, key string, payload []byte) error {
	m.lyrics[key] = payload
	return nil
}

type stubTranscriber struct {
	text string
	err  error
}

func (s *stubTranscriber) Transcribe(ctx context.Context, audioPath, modelSize string) (string, error) {
	return s.text, s.err
}

func lyricsConfig() config.Lyrics {
	return config.Lyrics{
		Enabled:        true,
		MinTextChars:   10,
		MaxChars:       100,
		IncludeInCache: true,
	}
}

func TestFetchDisabled(t *testing.T) {
	fetcher := NewFetcher(&stubSource{}, nil, nil, config.Lyrics{Enabled: false}, nil)
	artifact := fetcher.Fetch(context.Background(), lyricSource(), "")
	if artifact.Source != SourceNone || len(artifact.Warnings) != 1 || artifact.Warnings[0] != "LYRICS_DISABLED" {
		t.Fatalf("artifact = %+v", artifact)
	}
}

func TestFetchCachesSuccessfulLookup(t *testing.T) {
	source := &stubSource{artifact: Artifact{Source: SourceLrclib, Text: "a dozen characters of text", ProviderConfidence: 0.9}}
	store := newMemoryCache()
	fetcher := NewFetcher(source, store, nil, lyricsConfig(), nil)

	first := fetcher.Fetch(context.Background(), lyricSource(), "")
	second := fetcher.Fetch(context.Background(), lyricSource(), "")

	if first.Text != second.Text {
		t.Fatalf("cache round-trip changed text: %q vs %q", first.Text, second.Text)
	}
	if source.calls != 1 {
		t.Fatalf("source called %d times, want 1 (second hit from cache)", source.calls)
	}
}

func TestFetchCacheDisabledSkipsStore(t *testing.T) {
	cfg := lyricsConfig()
	cfg.IncludeInCache = false
	source := &stubSource{artifact: Artifact{Source: SourceLrclib, Text: "a dozen characters of text"}}
	store := newMemoryCache()
	fetcher := NewFetcher(source, store, nil, cfg, nil)

	fetcher.Fetch(context.Background(), lyricSource(), "")
	if len(store.lyrics) != 0 {
		t.Fatalf("cache should stay empty when include_in_cache is off, has %d entries", len(store.lyrics))
	}
}

func TestFetchTruncatesOversizedText(t *testing.T) {
	long := strings.Repeat("la ", 200)
	source := &stubSource{artifact: Artifact{Source: SourceLrclib, Text: long}}
	fetcher := NewFetcher(source, nil, nil, lyricsConfig(), nil)

	artifact := fetcher.Fetch(context.Background(), lyricSource(), "")
	if len(artifact.Text) != 100 {
		t.Fatalf("text length = %d, want truncated to 100", len(artifact.Text))
	}
}

func TestFetchTruncatesOnRuneBoundary(t *testing.T) {
	// "é" is two bytes; a byte-index cut at 100 would land mid-rune.
	long := strings.Repeat("é", 200)
	source := &stubSource{artifact: Artifact{Source: SourceLrclib, Text: long}}
	fetcher := NewFetcher(source, nil, nil, lyricsConfig(), nil)

	artifact := fetcher.Fetch(context.Background(), lyricSource(), "")
	if !utf8.ValidString(artifact.Text) {
		t.Fatalf("truncated text is not valid UTF-8: %q", artifact.Text)
	}
	if len(artifact.Text) != 100 {
		t.Fatalf("text length = %d, want 100 (even rune width divides the cap)", len(artifact.Text))
	}

	// An odd cap forces the cut back one byte to the previous rune start.
	cfg := lyricsConfig()
	cfg.MaxChars = 99
	fetcher = NewFetcher(source, nil, nil, cfg, nil)
	artifact = fetcher.Fetch(context.Background(), lyricSource(), "")
	if !utf8.ValidString(artifact.Text) {
		t.Fatalf("truncated text is not valid UTF-8: %q", artifact.Text)
	}
	if len(artifact.Text) != 98 {
		t.Fatalf("text length = %d, want 98", len(artifact.Text))
	}
}

func TestFetchRejectsTooShortText(t *testing.T) {
	source := &stubSource{artifact: Artifact{Source: SourceLrclib, Text: "short"}}
	fetcher := NewFetcher(source, nil, nil, lyricsConfig(), nil)

	artifact := fetcher.Fetch(context.Background(), lyricSource(), "")
	if artifact.Source != SourceNone {
		t.Fatalf("source = %s, want none", artifact.Source)
	}
	if !hasWarning(artifact.Warnings, "LYRICS_TOO_SHORT") {
		t.Fatalf("warnings = %v", artifact.Warnings)
	}
}

func TestFetchASRFallback(t *testing.T) {
	cfg := lyricsConfig()
	cfg.AllowASRFallback = true
	source := &stubSource{artifact: noneArtifact("LYRICS_NOT_FOUND")}
	fetcher := NewFetcher(source, nil, &stubTranscriber{text: "transcribed lyric text here"}, cfg, nil)

	artifact := fetcher.Fetch(context.Background(), lyricSource(), "/tmp/audio.wav")
	if artifact.Source != SourceASR {
		t.Fatalf("source = %s, want asr", artifact.Source)
	}
	if artifact.ProviderConfidence != 0.5 {
		t.Fatalf("confidence = %v", artifact.ProviderConfidence)
	}
	if !hasWarning(artifact.Warnings, "LYRICS_NOT_FOUND") {
		t.Fatalf("lookup warning should carry through: %v", artifact.Warnings)
	}
}

func TestFetchASRSkippedWithoutAudio(t *testing.T) {
	cfg := lyricsConfig()
	cfg.AllowASRFallback = true
	fetcher := NewFetcher(&stubSource{artifact: noneArtifact("LYRICS_NOT_FOUND")}, nil, &stubTranscriber{text: "x"}, cfg, nil)

	artifact := fetcher.Fetch(context.Background(), lyricSource(), "")
	if artifact.Source != SourceNone {
		t.Fatalf("source = %s, want none without audio", artifact.Source)
	}
}

func TestFetchASRUnavailableWarning(t *testing.T) {
	cfg := lyricsConfig()
	cfg.AllowASRFallback = true
	fetcher := NewFetcher(&stubSource{artifact: noneArtifact("LYRICS_NOT_FOUND")}, nil, nil, cfg, nil)

	artifact := fetcher.Fetch(context.Background(), lyricSource(), "/tmp/audio.wav")
	if !hasWarning(artifact.Warnings, "LYRICS_ASR_UNAVAILABLE") {
		t.Fatalf("warnings = %v", artifact.Warnings)
	}
}

func TestFetchASRFailureWarning(t *testing.T) {
	cfg := lyricsConfig()
	cfg.AllowASRFallback = true
	fetcher := NewFetcher(&stubSource{artifact: noneArtifact("LYRICS_NOT_FOUND")}, nil, &stubTranscriber{err: errors.New("boom")}, cfg, nil)

	artifact := fetcher.Fetch(context.Background(), lyricSource(), "/tmp/audio.wav")
	if !hasWarning(artifact.Warnings, "LYRICS_ASR_FAILED") {
		t.Fatalf("warnings = %v", artifact.Warnings)
	}
}

func TestFetchASREmptyWarning(t *testing.T) {
	cfg := lyricsConfig()
	cfg.AllowASRFallback = true
	fetcher := NewFetcher(&stubSource{artifact: noneArtifact("LYRICS_NOT_FOUND")}, nil, &stubTranscriber{text: "   "}, cfg, nil)

	artifact := fetcher.Fetch(context.Background(), lyricSource(), "/tmp/audio.wav")
	if !hasWarning(artifact.Warnings, "LYRICS_ASR_EMPTY") {
		t.Fatalf("warnings = %v", artifact.Warnings)
	}
}

func TestCacheKeyStable(t *testing.T) {
	a := CacheKey(lyricSource())
	b := CacheKey(lyricSource())
	if a != b {
		t.Fatalf("cache key not stable: %s vs %s", a, b)
	}
	other := lyricSource()
	other.SourceID = "y2"
	if CacheKey(other) == a {
		t.Fatal("different sources must not share a cache key")
	}
}

func hasWarning(warnings []string, want string) bool {
	for _, w := range warnings {
		if w == want {
			return true
		}
	}
	return false
}
