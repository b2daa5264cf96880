package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"earshot/internal/cache"
	"earshot/internal/discovery"
	"earshot/internal/logging"
	"earshot/internal/services"
)

// AudioCache is the slice of the cache store retrieval depends on.
type AudioCache interface {
	GetAudio(ctx context.Context, key string) (cache.AudioEntry, bool, error)
	PutAudio(ctx context.Context, key string, entry cache.AudioEntry) error
	AudioDir() string
}

// Downloader produces an audio file for a candidate under destDir using key
// as the file stem. It returns retrieval-kind errors.
type Downloader interface {
	Download(ctx context.Context, source discovery.SourceCandidate, destDir, key, format string) error
}

// Fetcher retrieves audio for single candidates and walks fallback chains.
type Fetcher struct {
	cache        AudioCache
	downloader   Downloader
	outputFormat string
	timeout      time.Duration
	logger       *slog.Logger
}

// NewFetcher constructs a Fetcher.
func NewFetcher(audioCache AudioCache, downloader Downloader, outputFormat string, timeoutSec int, logger *slog.Logger) *Fetcher {
	if outputFormat == "" {
		outputFormat = "wav"
	}
	return &Fetcher{
		cache:        audioCache,
		downloader:   downloader,
		outputFormat: outputFormat,
		timeout:      time.Duration(timeoutSec) * time.Second,
		logger:       logging.NewComponentLogger(logger, "retrieval"),
	}
}

// SourceKey derives the cache key for a candidate's audio.
func SourceKey(source discovery.SourceCandidate) string {
	return cache.NormalizeKey(source.Provider + ":" + source.SourceID)
}

// Fetch retrieves audio for one candidate, serving from cache when possible.
func (f *Fetcher) Fetch(ctx context.Context, source discovery.SourceCandidate) (*FetchResult, error) {
	key := SourceKey(source)

	if entry, hit, err := f.cache.GetAudio(ctx, key); err != nil {
		return nil, services.WrapError(services.KindRetrieval, services.CodeToolFailed, "audio cache lookup failed", err)
	} else if hit {
		f.logger.Debug("audio cache hit",
			logging.String(logging.FieldProvider, source.Provider),
			logging.String(logging.FieldCacheKey, key))
		return &FetchResult{
			Source:   source,
			Audio:    AudioArtifact{Path: entry.Path, Format: entry.Format},
			CacheHit: true,
		}, nil
	}

	if !source.Retrievable() || source.URL == "" {
		return nil, services.NewError(services.KindRetrieval, services.CodeUnavailable,
			"no retrievable URL available for source")
	}

	// Serialize concurrent downloads of the same key across processes.
	lock := flock.New(filepath.Join(f.cache.AudioDir(), key+".lock"))
	if err := lock.Lock(); err != nil {
		return nil, services.WrapError(services.KindRetrieval, services.CodeToolFailed, "acquire download lock", err)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	// Another caller may have finished the download while we waited.
	if entry, hit, err := f.cache.GetAudio(ctx, key); err == nil && hit {
		return &FetchResult{
			Source:   source,
			Audio:    AudioArtifact{Path: entry.Path, Format: entry.Format},
			CacheHit: true,
		}, nil
	}

	downloadCtx := ctx
	if f.timeout > 0 {
		var cancel context.CancelFunc
		downloadCtx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	if err := f.downloader.Download(downloadCtx, source, f.cache.AudioDir(), key, f.outputFormat); err != nil {
		return nil, err
	}

	path, format, err := f.findProduced(key)
	if err != nil {
		return nil, err
	}

	if err := f.cache.PutAudio(ctx, key, cache.AudioEntry{
		Provider: source.Provider,
		SourceID: source.SourceID,
		Path:     path,
		Format:   format,
	}); err != nil {
		return nil, services.WrapError(services.KindRetrieval, services.CodeToolFailed, "record audio in cache", err)
	}

	f.logger.Info("audio retrieved",
		logging.String(logging.FieldProvider, source.Provider),
		logging.String(logging.FieldCacheKey, key),
		logging.String("format", format))

	return &FetchResult{
		Source:   source,
		Audio:    AudioArtifact{Path: path, Format: format},
		CacheHit: false,
	}, nil
}

// findProduced locates the downloaded file for key; the downloader controls
// the extension so we glob for it.
func (f *Fetcher) findProduced(key string) (string, string, error) {
	matches, err := filepath.Glob(filepath.Join(f.cache.AudioDir(), key+".*"))
	if err != nil {
		return "", "", services.WrapError(services.KindRetrieval, services.CodeNotProduced, "scan for produced audio", err)
	}
	for _, match := range matches {
		if strings.HasSuffix(match, ".lock") {
			continue
		}
		if info, statErr := os.Stat(match); statErr != nil || info.Size() == 0 {
			continue
		}
		format := strings.TrimPrefix(filepath.Ext(match), ".")
		if format == "" {
			format = f.outputFormat
		}
		return match, format, nil
	}
	return "", "", services.NewError(services.KindRetrieval, services.CodeNotProduced,
		"download completed but no audio artifact was produced")
}

// FetchFirst walks the fallback chain, stopping at the first success. It
// returns the trace entries describing failures, retries, and the final
// selection, plus every attempt error for caller-side visibility. A nil
// result with no attempt errors means the chain was empty.
func (f *Fetcher) FetchFirst(ctx context.Context, chain []discovery.SourceCandidate) (*FetchResult, []string, []error) {
	var (
		trace       []string
		attemptErrs []error
	)

	for i, candidate := range chain {
		if i > 0 {
			prev := chain[i-1]
			trace = append(trace, fmt.Sprintf("audio_source:retry(%s:%s->%s:%s)",
				prev.Provider, prev.SourceID, candidate.Provider, candidate.SourceID))
		}
		result, err := f.Fetch(ctx, candidate)
		if err != nil {
			trace = append(trace, fmt.Sprintf("%s:%s_failed(%s)",
				candidate.Provider, services.ReasonCode(err), candidate.SourceID))
			attemptErrs = append(attemptErrs, err)
			f.logger.Warn("retrieval attempt failed",
				logging.String(logging.FieldProvider, candidate.Provider),
				logging.Error(err))
			continue
		}
		trace = append(trace, fmt.Sprintf("audio_source:selected(%s:%s)",
			candidate.Provider, candidate.SourceID))
		return result, trace, attemptErrs
	}
	return nil, trace, attemptErrs
}
