package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"earshot/internal/cache"
	"earshot/internal/logging"
	"earshot/internal/services"
)

// FeatureCache is the slice of the cache store analysis depends on.
type FeatureCache interface {
	GetFeaturePath(ctx context.Context, key string) (string, bool, error)
	PutFeaturePath(ctx context.Context, key, path string) error
	FeatureDir() string
}

// CachedAnalyzer wraps an Analyzer with the feature-path cache so repeated
// analysis of the same audio file is served from disk.
type CachedAnalyzer struct {
	analyzer Analyzer
	cache    FeatureCache
	logger   *slog.Logger
}

// NewCachedAnalyzer constructs a CachedAnalyzer.
func NewCachedAnalyzer(analyzer Analyzer, featureCache FeatureCache, logger *slog.Logger) *CachedAnalyzer {
	return &CachedAnalyzer{
		analyzer: analyzer,
		cache:    featureCache,
		logger:   logging.NewComponentLogger(logger, "analysis"),
	}
}

// Analyze returns cached features for audioPath or runs the underlying
// analyzer and persists its output.
func (c *CachedAnalyzer) Analyze(ctx context.Context, audioPath string) (*Features, error) {
	key := cache.NormalizeKey(audioPath)

	if path, hit, err := c.cache.GetFeaturePath(ctx, key); err == nil && hit {
		data, readErr := os.ReadFile(path)
		if readErr == nil {
			var features Features
			if jsonErr := json.Unmarshal(data, &features); jsonErr == nil {
				c.logger.Debug("feature cache hit", logging.String(logging.FieldCacheKey, key))
				return &features, nil
			}
		}
		// Unreadable cache entries fall through to re-analysis.
	}

	features, err := c.analyzer.Analyze(ctx, audioPath)
	if err != nil {
		return nil, err
	}

	if err := c.persist(ctx, key, features); err != nil {
		return nil, err
	}
	return features, nil
}

func (c *CachedAnalyzer) persist(ctx context.Context, key string, features *Features) error {
	data, err := json.MarshalIndent(features, "", "  ")
	if err != nil {
		return services.WrapError(services.KindAnalysis, services.CodeBadOutput, "encode features", err)
	}

	featurePath := filepath.Join(c.cache.FeatureDir(), key+".json")
	tmp, err := os.CreateTemp(c.cache.FeatureDir(), key+".tmp-*")
	if err != nil {
		return services.WrapError(services.KindAnalysis, services.CodeToolFailed, "create feature file", err)
	}
	tmpPath := tmp.Name()
	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil || closeErr != nil {
		_ = os.Remove(tmpPath)
		return services.WrapError(services.KindAnalysis, services.CodeToolFailed, "write feature file",
			fmt.Errorf("write: %v, close: %v", writeErr, closeErr))
	}
	if err := os.Rename(tmpPath, featurePath); err != nil {
		_ = os.Remove(tmpPath)
		return services.WrapError(services.KindAnalysis, services.CodeToolFailed, "finalize feature file", err)
	}

	if err := c.cache.PutFeaturePath(ctx, key, featurePath); err != nil {
		return services.WrapError(services.KindAnalysis, services.CodeToolFailed, "record feature path", err)
	}
	return nil
}
