package config

const (
	defaultCacheDir                = "~/.cache/earshot"
	defaultLogDir                  = "~/.local/share/earshot/logs"
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
	defaultMaxResults              = 5
	defaultProviderTimeoutSec      = 20
	defaultAggregateTimeoutSec     = 45
	defaultQueryTTLSec             = 604800
	defaultYtDLPBinary             = "yt-dlp"
	defaultYtDLPSearchTimeoutSec   = 30
	defaultYouTubeAPIKeyEnv        = "YOUTUBE_API_KEY"
	defaultSpotifyClientIDEnv      = "SPOTIFY_CLIENT_ID"
	defaultSpotifyClientSecretEnv  = "SPOTIFY_CLIENT_SECRET"
	defaultSpotifyMarket           = "US"
	defaultJamendoClientIDEnv      = "JAMENDO_CLIENT_ID"
	defaultRequestTimeoutSec       = 10
	defaultRetrievalOutputFormat   = "wav"
	defaultRetrievalTimeoutSec     = 120
	defaultAnalysisTimeoutSec      = 180
	defaultAnalysisSampleRate      = 22050
	defaultLyricsMinTextChars      = 120
	defaultLyricsMaxChars          = 12000
	defaultLyricsASRModelSize      = "small"
	defaultDescriptorMinConfidence = 0.45
	defaultListenMode              = "auto"
)

// KnownProviders is the full provider set in fixed priority order.
var KnownProviders = []string{"ytdlp", "youtube_api", "musicbrainz", "spotify", "jamendo"}

// KnownModes are the analysis modes accepted by the mode resolver.
var KnownModes = []string{"auto", "full_audio", "metadata_only", "descriptor_only"}

// DefaultRankingWeights returns the built-in composite-score weights.
func DefaultRankingWeights() RankingWeights {
	return RankingWeights{
		TitleSimilarity:   0.36,
		TitleTokenOverlap: 0.30,
		ArtistSimilarity:  0.18,
		DurationSanity:    0.10,
		ContainmentBonus:  0.06,
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CacheDir: defaultCacheDir,
			LogDir:   defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Discovery: Discovery{
			MaxResults:          defaultMaxResults,
			ProviderTimeoutSec:  defaultProviderTimeoutSec,
			AggregateTimeoutSec: defaultAggregateTimeoutSec,
			QueryTTLSec:         defaultQueryTTLSec,
			Providers:           append([]string{}, KnownProviders...),
			RankingWeights:      DefaultRankingWeights(),
		},
		YtDLP: YtDLP{
			Binary:           defaultYtDLPBinary,
			SearchTimeoutSec: defaultYtDLPSearchTimeoutSec,
		},
		YouTube: YouTube{
			Enabled:           true,
			APIKeyEnv:         defaultYouTubeAPIKeyEnv,
			RequestTimeoutSec: defaultProviderTimeoutSec,
		},
		Spotify: Spotify{
			Enabled:           true,
			ClientIDEnv:       defaultSpotifyClientIDEnv,
			ClientSecretEnv:   defaultSpotifyClientSecretEnv,
			RequestTimeoutSec: defaultRequestTimeoutSec,
			Market:            defaultSpotifyMarket,
		},
		Jamendo: Jamendo{
			Enabled:           true,
			ClientIDEnv:       defaultJamendoClientIDEnv,
			RequestTimeoutSec: defaultRequestTimeoutSec,
		},
		Retrieval: Retrieval{
			OutputFormat: defaultRetrievalOutputFormat,
			TimeoutSec:   defaultRetrievalTimeoutSec,
		},
		Analysis: Analysis{
			TimeoutSec: defaultAnalysisTimeoutSec,
			SampleRate: defaultAnalysisSampleRate,
		},
		Lyrics: Lyrics{
			Enabled:           true,
			RequestTimeoutSec: defaultRequestTimeoutSec,
			MinTextChars:      defaultLyricsMinTextChars,
			MaxChars:          defaultLyricsMaxChars,
			AllowASRFallback:  false,
			ASRModelSize:      defaultLyricsASRModelSize,
			IncludeInCache:    true,
		},
		Descriptors: Descriptors{
			Enabled:           true,
			MinConfidence:     defaultDescriptorMinConfidence,
			RequestTimeoutSec: defaultRequestTimeoutSec,
		},
		Listen: Listen{
			DefaultMode: defaultListenMode,
		},
	}
}
