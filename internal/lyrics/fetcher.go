package lyrics

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"unicode/utf8"

	"earshot/internal/cache"
	"earshot/internal/config"
	"earshot/internal/discovery"
	"earshot/internal/logging"
)

// TextSource looks lyric text up from a catalog service.
type TextSource interface {
	Fetch(ctx context.Context, source discovery.SourceCandidate) Artifact
}

// Cache persists lyric artifacts keyed by source identity.
type Cache interface {
	GetLyrics(ctx context.Context, key string) ([]byte, bool, error)
	PutLyrics(ctx context.Context, key string, payload []byte) error
}

// Fetcher applies the lyric acquisition policy: cache, then lrclib, then an
// optional ASR transcription of retrieved audio.
type Fetcher struct {
	source      TextSource
	cache       Cache
	transcriber Transcriber
	cfg         config.Lyrics
	logger      *slog.Logger
}

// NewFetcher constructs a Fetcher. transcriber may be nil when no ASR backend
// is configured.
func NewFetcher(source TextSource, store Cache, transcriber Transcriber, cfg config.Lyrics, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		source:      source,
		cache:       store,
		transcriber: transcriber,
		cfg:         cfg,
		logger:      logging.NewComponentLogger(logger, "lyrics"),
	}
}

// CacheKey derives the lyric cache key for a source.
func CacheKey(source discovery.SourceCandidate) string {
	return cache.NormalizeKey(source.Provider + ":" + source.SourceID + ":lyrics")
}

// Fetch returns the lyric artifact for a source. audioPath is the path to
// retrieved audio, or empty when none was obtained; it only matters for the
// ASR fallback. Fetch never fails: absent lyrics come back as a source "none"
// artifact with warnings.
func (f *Fetcher) Fetch(ctx context.Context, source discovery.SourceCandidate, audioPath string) Artifact {
	if !f.cfg.Enabled {
		return noneArtifact("LYRICS_DISABLED")
	}

	key := CacheKey(source)
	if f.cfg.IncludeInCache && f.cache != nil {
		if payload, ok, err := f.cache.GetLyrics(ctx, key); err == nil && ok {
			var artifact Artifact
			if json.Unmarshal(payload, &artifact) == nil {
				f.logger.Debug("lyrics cache hit", logging.String("provider", source.Provider), logging.String("source_id", source.SourceID))
				return artifact
			}
		}
	}

	artifact := f.source.Fetch(ctx, source)
	if artifact.Source == SourceNone {
		artifact = f.transcribe(ctx, audioPath, artifact.Warnings)
	}
	artifact = f.applyTextPolicy(artifact)

	if f.cfg.IncludeInCache && f.cache != nil && artifact.Source != SourceNone {
		if payload, err := json.Marshal(artifact); err == nil {
			if err := f.cache.PutLyrics(ctx, key, payload); err != nil {
				f.logger.Warn("lyrics cache write failed", logging.Error(err))
			}
		}
	}
	return artifact
}

// transcribe attempts the ASR fallback, carrying forward the warnings that
// explain why the catalog lookup produced nothing.
func (f *Fetcher) transcribe(ctx context.Context, audioPath string, warnings []string) Artifact {
	if !f.cfg.AllowASRFallback || audioPath == "" {
		return noneArtifact(warnings...)
	}
	if f.transcriber == nil {
		return noneArtifact(append(warnings, "LYRICS_ASR_UNAVAILABLE")...)
	}

	text, err := f.transcriber.Transcribe(ctx, audioPath, f.cfg.ASRModelSize)
	if err != nil {
		f.logger.Warn("asr transcription failed", logging.Error(err))
		return noneArtifact(append(warnings, "LYRICS_ASR_FAILED")...)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return noneArtifact(append(warnings, "LYRICS_ASR_EMPTY")...)
	}

	return Artifact{
		Source:             SourceASR,
		Text:               text,
		ProviderConfidence: 0.5,
		Warnings:           warnings,
	}
}

// applyTextPolicy truncates oversized text and rejects text too short to be
// useful for downstream analysis.
func (f *Fetcher) applyTextPolicy(artifact Artifact) Artifact {
	if artifact.Source == SourceNone || artifact.Text == "" {
		return artifact
	}
	if f.cfg.MaxChars > 0 && len(artifact.Text) > f.cfg.MaxChars {
		cut := f.cfg.MaxChars
		for cut > 0 && !utf8.RuneStart(artifact.Text[cut]) {
			cut--
		}
		artifact.Text = artifact.Text[:cut]
	}
	if f.cfg.MinTextChars > 0 && len(artifact.Text) < f.cfg.MinTextChars {
		return noneArtifact(append(artifact.Warnings, "LYRICS_TOO_SHORT")...)
	}
	return artifact
}
