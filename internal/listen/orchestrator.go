package listen

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"earshot/internal/analysis"
	"earshot/internal/cache"
	"earshot/internal/descriptor"
	"earshot/internal/discovery"
	"earshot/internal/logging"
	"earshot/internal/lyrics"
	"earshot/internal/metadata"
	"earshot/internal/retrieval"
	"earshot/internal/services"
	"earshot/internal/synthesis"
)

// Discoverer runs multi-provider candidate search.
type Discoverer interface {
	Discover(ctx context.Context, query string) (*discovery.DiscoveryResult, error)
}

// AudioFetcher walks the retrieval fallback chain.
type AudioFetcher interface {
	FetchFirst(ctx context.Context, chain []discovery.SourceCandidate) (*retrieval.FetchResult, []string, []error)
}

// FeatureAnalyzer extracts features from a retrieved audio file.
type FeatureAnalyzer interface {
	Analyze(ctx context.Context, audioPath string) (*analysis.Features, error)
}

// LyricsFetcher acquires a lyric artifact for a source.
type LyricsFetcher interface {
	Fetch(ctx context.Context, source discovery.SourceCandidate, audioPath string) lyrics.Artifact
}

// DescriptorBuilder assembles the catalog descriptor fallback.
type DescriptorBuilder interface {
	Build(ctx context.Context, source discovery.SourceCandidate, meta *metadata.Artifact) (*descriptor.Artifact, error)
}

// QueryCache persists discovery results keyed by normalized query.
type QueryCache interface {
	GetQuery(ctx context.Context, key string, ttl time.Duration) ([]byte, bool, error)
	PutQuery(ctx context.Context, key, queryText string, payload []byte) error
}

// Options wires the orchestrator's collaborators. Every collaborator except
// the discoverer may be nil, in which case its pipeline step is skipped.
type Options struct {
	Discoverer  Discoverer
	Fetcher     AudioFetcher
	Analyzer    FeatureAnalyzer
	Lyrics      LyricsFetcher
	Descriptors DescriptorBuilder
	QueryCache  QueryCache
	LyricsCache lyrics.AnalysisCache
	QueryTTL    time.Duration
	DefaultMode string
	Logger      *slog.Logger
}

// Orchestrator sequences a listen call through discovery, retrieval,
// analysis, lyrics, descriptor fallback, and synthesis.
type Orchestrator struct {
	discoverer  Discoverer
	fetcher     AudioFetcher
	analyzer    FeatureAnalyzer
	lyrics      LyricsFetcher
	descriptors DescriptorBuilder
	queryCache  QueryCache
	lyricsCache lyrics.AnalysisCache
	queryTTL    time.Duration
	defaultMode string
	logger      *slog.Logger
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(opts Options) *Orchestrator {
	return &Orchestrator{
		discoverer:  opts.Discoverer,
		fetcher:     opts.Fetcher,
		analyzer:    opts.Analyzer,
		lyrics:      opts.Lyrics,
		descriptors: opts.Descriptors,
		queryCache:  opts.QueryCache,
		lyricsCache: opts.LyricsCache,
		queryTTL:    opts.QueryTTL,
		defaultMode: opts.DefaultMode,
		logger:      logging.NewComponentLogger(opts.Logger, "listen"),
	}
}

// Discover runs discovery through the query cache. The bool reports whether
// the result came from cache.
func (o *Orchestrator) Discover(ctx context.Context, query string) (*discovery.DiscoveryResult, bool, error) {
	key := cache.NormalizeKey(query)
	if o.queryCache != nil {
		if payload, ok, err := o.queryCache.GetQuery(ctx, key, o.queryTTL); err == nil && ok {
			var result discovery.DiscoveryResult
			if json.Unmarshal(payload, &result) == nil {
				return &result, true, nil
			}
		}
	}

	result, err := o.discoverer.Discover(ctx, query)
	if err != nil {
		return nil, false, err
	}
	if o.queryCache != nil {
		if payload, err := json.Marshal(result); err == nil {
			if err := o.queryCache.PutQuery(ctx, key, query, payload); err != nil {
				o.logger.Warn("query cache write failed", logging.Error(err))
			}
		}
	}
	return result, false, nil
}

// Listen runs the full pipeline for a query. It always returns a result;
// failures are recorded on it rather than returned.
func (o *Orchestrator) Listen(ctx context.Context, query, explicitMode string, deepAnalysis bool) *Result {
	requestID := uuid.NewString()
	mode := ResolveMode(explicitMode, o.defaultMode)
	o.logger.Info("listen started",
		logging.String("request_id", requestID),
		logging.String("query", query),
		logging.String("mode", mode))

	result := newResult(query)

	// DISCOVER
	discovered, cached, err := o.Discover(ctx, query)
	if err != nil {
		result.recordError(err)
		return result
	}
	result.Cache["query_cached"] = cached
	result.trace(discovered.ProviderTrace...)
	if discovered.Selected == nil {
		result.recordError(services.NewError(services.KindDiscovery, services.CodeEmptySelection, "no selected candidate"))
		return result
	}
	result.Source = discovered.Selected
	meta := metadata.FromCandidate(*discovered.Selected)
	result.Metadata = &meta

	// SELECT_AUDIO_SOURCE + RETRIEVE/ANALYZE
	fullAudioReady := false
	if mode == ModeAuto || mode == ModeFullAudio {
		ready, fatal := o.retrieveAndAnalyze(ctx, mode, discovered, result)
		if fatal {
			return result
		}
		fullAudioReady = ready
	}

	// LYRICS: best-effort, never fatal.
	if o.lyrics != nil {
		audioPath := ""
		if result.Audio != nil {
			audioPath = result.Audio.Path
		}
		artifact := o.lyrics.Fetch(ctx, *result.Source, audioPath)
		result.Lyrics = &artifact
		if artifact.Text != "" {
			result.LyricsAnalysis = lyrics.AnalyzeCached(ctx, o.lyricsCache, artifact)
		}
	}

	// DESCRIPTOR_FALLBACK
	result.AnalysisMode = o.resolveFinalMode(ctx, mode, fullAudioReady, result)

	// SYNTHESIZE
	if deepAnalysis {
		o.synthesize(result)
	}

	o.logger.Info("listen finished",
		logging.String("request_id", requestID),
		logging.String("analysis_mode", result.AnalysisMode),
		logging.Int("errors", len(result.Errors)))
	return result
}

// retrieveAndAnalyze attempts the retrieval chain and feature analysis.
// Returns (fullAudioReady, fatal); fatal is only possible in full_audio mode.
func (o *Orchestrator) retrieveAndAnalyze(ctx context.Context, mode string, discovered *discovery.DiscoveryResult, result *Result) (bool, bool) {
	chain := retrieval.Chain(discovered.Candidates)
	if len(chain) == 0 || o.fetcher == nil {
		err := services.NewError(services.KindRetrieval, services.CodeUnavailable, "no retrievable audio sources for query")
		if mode == ModeFullAudio {
			result.recordError(err)
			return false, true
		}
		result.trace("analysis_mode:degraded(no_retrievable_candidates)")
		return false, false
	}

	fetched, trace, attemptErrs := o.fetcher.FetchFirst(ctx, chain)
	result.trace(trace...)
	for _, attemptErr := range attemptErrs {
		result.recordError(attemptErr)
	}
	if fetched == nil {
		if mode == ModeFullAudio {
			return false, true
		}
		result.trace("analysis_mode:degraded(retrieval_failed)")
		return false, false
	}

	// The winning candidate becomes the final source.
	source := fetched.Source
	result.Source = &source
	meta := metadata.FromCandidate(source)
	result.Metadata = &meta
	result.Audio = &fetched.Audio
	result.Cache["audio_cache_hit"] = fetched.CacheHit

	if o.analyzer == nil {
		err := services.NewError(services.KindAnalysis, services.CodeToolMissing, "no analysis command configured")
		result.recordError(err)
		if mode == ModeFullAudio {
			return false, true
		}
		result.trace("analysis_mode:degraded(analysis_failed)")
		return false, false
	}
	features, err := o.analyzer.Analyze(ctx, fetched.Audio.Path)
	if err != nil {
		result.recordError(err)
		if mode == ModeFullAudio {
			return false, true
		}
		result.trace("analysis_mode:degraded(analysis_failed)")
		return false, false
	}
	result.Features = features
	result.Cache["feature_cache_key"] = cache.NormalizeKey(fetched.Audio.Path)
	return true, false
}

// resolveFinalMode settles the terminal analysis mode, attempting the
// descriptor fallback when audio analysis did not complete.
func (o *Orchestrator) resolveFinalMode(ctx context.Context, mode string, fullAudioReady bool, result *Result) string {
	if fullAudioReady {
		return ModeFullAudio
	}
	// full_audio mode cannot reach this point without audio; fatal paths
	// returned earlier.
	if mode == ModeMetadataOnly {
		return ModeMetadataOnly
	}
	if o.descriptors == nil {
		return ModeMetadataOnly
	}
	desc, err := o.descriptors.Build(ctx, *result.Source, result.Metadata)
	if err != nil {
		result.recordError(err)
		return ModeMetadataOnly
	}
	if desc != nil && desc.Confidence > 0 {
		result.Descriptor = desc
		return ModeDescriptorOnly
	}
	return ModeMetadataOnly
}

func (o *Orchestrator) synthesize(result *Result) {
	if result.Source == nil {
		return
	}
	switch result.AnalysisMode {
	case ModeFullAudio:
		if result.Features != nil {
			result.Synthesis = synthesis.BuildAudio(*result.Source, result.Features, result.LyricsAnalysis)
		}
	case ModeDescriptorOnly:
		result.Synthesis = synthesis.BuildDescriptor(*result.Source, result.Descriptor, result.LyricsAnalysis)
	case ModeMetadataOnly:
		result.Synthesis = synthesis.BuildMetadata(*result.Source, result.Metadata, result.LyricsAnalysis)
	}
}
