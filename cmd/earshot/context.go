package main

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"earshot/internal/analysis"
	"earshot/internal/cache"
	"earshot/internal/config"
	"earshot/internal/descriptor"
	"earshot/internal/discovery"
	"earshot/internal/listen"
	"earshot/internal/logging"
	"earshot/internal/lyrics"
	"earshot/internal/providers"
	"earshot/internal/retrieval"
	"earshot/internal/telemetry"
)

type commandContext struct {
	configFlag *string
	jsonLogs   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string, jsonLogs *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonLogs:   jsonLogs,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// app holds the wired pipeline for one command invocation.
type app struct {
	cfg          *config.Config
	logger       *slog.Logger
	store        *cache.Store
	coordinator  *discovery.Coordinator
	downloader   *retrieval.MediaDownloader
	fetcher      *retrieval.Fetcher
	analyzer     *analysis.CachedAnalyzer
	orchestrator *listen.Orchestrator
	reporter     *telemetry.Reporter
}

// withApp builds the pipeline, runs fn, and tears the pipeline down. Typed
// errors returned by fn are reported to telemetry before propagating.
func (c *commandContext) withApp(fn func(*app) error) error {
	a, err := c.buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := fn(a); err != nil {
		a.reporter.CaptureError(err, "cli")
		return err
	}
	return nil
}

func (c *commandContext) buildApp() (*app, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	format := cfg.Logging.Format
	if c.jsonLogs != nil && *c.jsonLogs {
		format = "json"
	}
	logger, err := logging.New(logging.Options{Level: cfg.Logging.Level, Format: format})
	if err != nil {
		return nil, err
	}

	reporter, err := telemetry.Init(cfg.Telemetry.SentryDSN, "earshot")
	if err != nil {
		return nil, err
	}

	store, err := cache.Open(cfg)
	if err != nil {
		return nil, err
	}

	registry, err := providers.Build(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	coordinator := discovery.NewCoordinator(discovery.Options{
		Providers:        registry.Providers,
		Weights:          cfg.Discovery.RankingWeights,
		MaxResults:       cfg.Discovery.MaxResults,
		ProviderTimeout:  time.Duration(cfg.Discovery.ProviderTimeoutSec) * time.Second,
		AggregateTimeout: time.Duration(cfg.Discovery.AggregateTimeoutSec) * time.Second,
		Unconfigured:     registry.Unconfigured,
		Logger:           logger,
	})

	downloader := retrieval.NewMediaDownloader(registry.YtDLP, time.Duration(cfg.Retrieval.TimeoutSec)*time.Second)
	fetcher := retrieval.NewFetcher(store, downloader, cfg.Retrieval.OutputFormat, cfg.Retrieval.TimeoutSec, logger)

	var cached *analysis.CachedAnalyzer
	if strings.TrimSpace(cfg.Analysis.Command) != "" {
		exec := analysis.NewExecAnalyzer(cfg.Analysis.Command, cfg.Analysis.SampleRate, cfg.Analysis.TimeoutSec)
		cached = analysis.NewCachedAnalyzer(exec, store, logger)
	}

	var transcriber lyrics.Transcriber
	if t := lyrics.NewExecTranscriber(cfg.Lyrics.ASRCommand); t != nil {
		transcriber = t
	}
	lyricsClient := lyrics.NewClient(time.Duration(cfg.Lyrics.RequestTimeoutSec) * time.Second)
	lyricsFetcher := lyrics.NewFetcher(lyricsClient, store, transcriber, cfg.Lyrics, logger)

	descriptors := descriptor.NewBuilder(cfg.Descriptors, logger)

	opts := listen.Options{
		Discoverer:  coordinator,
		Fetcher:     fetcher,
		Lyrics:      lyricsFetcher,
		Descriptors: descriptors,
		QueryCache:  store,
		LyricsCache: store,
		QueryTTL:    time.Duration(cfg.Discovery.QueryTTLSec) * time.Second,
		DefaultMode: cfg.Listen.DefaultMode,
		Logger:      logger,
	}
	if cached != nil {
		opts.Analyzer = cached
	}
	orchestrator := listen.NewOrchestrator(opts)

	return &app{
		cfg:          cfg,
		logger:       logger,
		store:        store,
		coordinator:  coordinator,
		downloader:   downloader,
		fetcher:      fetcher,
		analyzer:     cached,
		orchestrator: orchestrator,
		reporter:     reporter,
	}, nil
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
	a.reporter.Flush(2 * time.Second)
}
