package config

import "strings"

// normalize expands path fields and backfills zero values with defaults so
// partially specified config files behave predictably.
func (c *Config) normalize() error {
	var err error
	if c.Paths.CacheDir, err = expandPath(valueOr(c.Paths.CacheDir, defaultCacheDir)); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(valueOr(c.Paths.LogDir, defaultLogDir)); err != nil {
		return err
	}

	c.Logging.Format = strings.ToLower(valueOr(c.Logging.Format, defaultLogFormat))
	c.Logging.Level = strings.ToLower(valueOr(c.Logging.Level, defaultLogLevel))

	if c.Discovery.MaxResults <= 0 {
		c.Discovery.MaxResults = defaultMaxResults
	}
	if c.Discovery.ProviderTimeoutSec <= 0 {
		c.Discovery.ProviderTimeoutSec = defaultProviderTimeoutSec
	}
	if c.Discovery.AggregateTimeoutSec <= 0 {
		c.Discovery.AggregateTimeoutSec = defaultAggregateTimeoutSec
	}
	if c.Discovery.QueryTTLSec <= 0 {
		c.Discovery.QueryTTLSec = defaultQueryTTLSec
	}
	if len(c.Discovery.Providers) == 0 {
		c.Discovery.Providers = append([]string{}, KnownProviders...)
	}
	for i, name := range c.Discovery.Providers {
		c.Discovery.Providers[i] = strings.ToLower(strings.TrimSpace(name))
	}

	c.YtDLP.Binary = valueOr(c.YtDLP.Binary, defaultYtDLPBinary)
	if c.YtDLP.SearchTimeoutSec <= 0 {
		c.YtDLP.SearchTimeoutSec = defaultYtDLPSearchTimeoutSec
	}

	c.YouTube.APIKeyEnv = valueOr(c.YouTube.APIKeyEnv, defaultYouTubeAPIKeyEnv)
	if c.YouTube.RequestTimeoutSec <= 0 {
		c.YouTube.RequestTimeoutSec = defaultProviderTimeoutSec
	}

	c.Spotify.ClientIDEnv = valueOr(c.Spotify.ClientIDEnv, defaultSpotifyClientIDEnv)
	c.Spotify.ClientSecretEnv = valueOr(c.Spotify.ClientSecretEnv, defaultSpotifyClientSecretEnv)
	c.Spotify.Market = valueOr(c.Spotify.Market, defaultSpotifyMarket)
	if c.Spotify.RequestTimeoutSec <= 0 {
		c.Spotify.RequestTimeoutSec = defaultRequestTimeoutSec
	}

	c.Jamendo.ClientIDEnv = valueOr(c.Jamendo.ClientIDEnv, defaultJamendoClientIDEnv)
	if c.Jamendo.RequestTimeoutSec <= 0 {
		c.Jamendo.RequestTimeoutSec = defaultRequestTimeoutSec
	}

	c.Retrieval.OutputFormat = strings.ToLower(valueOr(c.Retrieval.OutputFormat, defaultRetrievalOutputFormat))
	if c.Retrieval.TimeoutSec <= 0 {
		c.Retrieval.TimeoutSec = defaultRetrievalTimeoutSec
	}

	if c.Analysis.TimeoutSec <= 0 {
		c.Analysis.TimeoutSec = defaultAnalysisTimeoutSec
	}
	if c.Analysis.SampleRate <= 0 {
		c.Analysis.SampleRate = defaultAnalysisSampleRate
	}

	if c.Lyrics.RequestTimeoutSec <= 0 {
		c.Lyrics.RequestTimeoutSec = defaultRequestTimeoutSec
	}
	if c.Lyrics.MinTextChars <= 0 {
		c.Lyrics.MinTextChars = defaultLyricsMinTextChars
	}
	if c.Lyrics.MaxChars <= 0 {
		c.Lyrics.MaxChars = defaultLyricsMaxChars
	}
	c.Lyrics.ASRModelSize = valueOr(c.Lyrics.ASRModelSize, defaultLyricsASRModelSize)

	if c.Descriptors.MinConfidence <= 0 {
		c.Descriptors.MinConfidence = defaultDescriptorMinConfidence
	}
	if c.Descriptors.RequestTimeoutSec <= 0 {
		c.Descriptors.RequestTimeoutSec = defaultRequestTimeoutSec
	}

	c.Listen.DefaultMode = strings.ToLower(valueOr(c.Listen.DefaultMode, defaultListenMode))

	return nil
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}
