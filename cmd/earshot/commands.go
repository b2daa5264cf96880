package main

import (
	"strings"

	"github.com/spf13/cobra"

	"earshot/internal/cache"
	"earshot/internal/retrieval"
	"earshot/internal/services"
)

func newDiscoverCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "discover <query>",
		Short: "Search all configured providers for a track",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app) error {
				result, _, err := a.orchestrator.Discover(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd, result)
			})
		},
	}
}

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "fetch <query>",
		Short: "Discover a track and download its audio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app) error {
				discovered, _, err := a.orchestrator.Discover(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				fetcher := a.fetcher
				if strings.TrimSpace(format) != "" {
					fetcher = retrieval.NewFetcher(a.store, a.downloader, format, a.cfg.Retrieval.TimeoutSec, a.logger)
				}

				chain := retrieval.Chain(discovered.Candidates)
				result, trace, attemptErrs := fetcher.FetchFirst(cmd.Context(), chain)
				if result == nil {
					if len(attemptErrs) > 0 {
						return attemptErrs[len(attemptErrs)-1]
					}
					return services.NewError(services.KindRetrieval, services.CodeUnavailable, "no retrievable audio sources for query")
				}
				return writeJSON(cmd, map[string]any{
					"source":         result.Source,
					"audio":          result.Audio,
					"cache_hit":      result.CacheHit,
					"fallback_trace": trace,
				})
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "Audio output format (overrides retrieval.output_format)")
	return cmd
}

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <audio_path>",
		Short: "Run feature analysis on an audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app) error {
				if a.analyzer == nil {
					return services.NewError(services.KindAnalysis, services.CodeToolMissing, "no analysis command configured; set analysis.command")
				}
				features, err := a.analyzer.Analyze(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd, features)
			})
		},
	}
}

func newListenCommand(ctx *commandContext) *cobra.Command {
	var mode string
	var noDeepAnalysis bool

	cmd := &cobra.Command{
		Use:   "listen <query>",
		Short: "Run the full discovery, retrieval, and analysis pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app) error {
				result := a.orchestrator.Listen(cmd.Context(), args[0], mode, !noDeepAnalysis)
				return writeJSON(cmd, result)
			})
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "Analysis mode: auto, full_audio, descriptor_only, metadata_only")
	cmd.Flags().BoolVar(&noDeepAnalysis, "no-deep-analysis", false, "Skip the synthesis step")
	return cmd
}

func newCacheStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cache-status <key-or-query>",
		Short: "Report cached artifacts for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app) error {
				key := args[0]
				if !looksLikeCacheKey(key) {
					key = cache.NormalizeKey(key)
				}
				status, err := a.store.KeyStatus(cmd.Context(), key)
				if err != nil {
					return err
				}
				return writeJSON(cmd, status)
			})
		},
	}
}

// looksLikeCacheKey reports whether the argument is already a sha256 hex key.
func looksLikeCacheKey(value string) bool {
	if len(value) != 64 {
		return false
	}
	for _, r := range value {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		default:
			return false
		}
	}
	return true
}
