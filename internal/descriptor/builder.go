package descriptor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"earshot/internal/config"
	"earshot/internal/discovery"
	"earshot/internal/logging"
	"earshot/internal/metadata"
)

const userAgent = "earshot/0.1 (https://github.com/earshot/earshot)"

// Builder assembles descriptor artifacts from catalog services. Every lookup
// is best-effort: network failures degrade coverage instead of erroring.
type Builder struct {
	httpClient    *http.Client
	enabled       bool
	minConfidence float64
	logger        *slog.Logger

	// Overridable for testing
	musicbrainzURL    string
	acousticbrainzURL string
	deezerURL         string
}

// NewBuilder constructs a Builder from descriptor configuration.
func NewBuilder(cfg config.Descriptors, logger *slog.Logger) *Builder {
	return &Builder{
		httpClient:        &http.Client{Timeout: time.Duration(cfg.RequestTimeoutSec) * time.Second},
		enabled:           cfg.Enabled,
		minConfidence:     cfg.MinConfidence,
		logger:            logging.NewComponentLogger(logger, "descriptor"),
		musicbrainzURL:    "https://musicbrainz.org/ws/2",
		acousticbrainzURL: "https://acousticbrainz.org",
		deezerURL:         "https://api.deezer.com",
	}
}

// Build produces a descriptor for the source, or nil when descriptors are
// disabled or the aggregate confidence falls below the configured minimum.
func (b *Builder) Build(ctx context.Context, source discovery.SourceCandidate, meta *metadata.Artifact) (*Artifact, error) {
	if !b.enabled {
		return nil, nil
	}

	coverage := defaultCoverage()
	artifact := &Artifact{
		Mode:     "unknown",
		Coverage: coverage,
	}
	var sourcesUsed []string
	var warnings []string

	mbid := b.findMBID(ctx, source, meta)
	if mbid == "" {
		warnings = append(warnings, "DESCRIPTOR_MBID_NOT_FOUND")
	} else {
		if low := b.fetchLowLevel(ctx, mbid); low != nil {
			sourcesUsed = append(sourcesUsed, "acousticbrainz.low-level")
			applyLowLevel(artifact, coverage, low)
		}
		if high := b.fetchHighLevel(ctx, mbid); high != nil {
			sourcesUsed = append(sourcesUsed, "acousticbrainz.high-level")
			applyHighLevel(artifact, coverage, high)
		}
	}

	if track := b.fetchDeezerTrack(ctx, source, meta); track != nil {
		sourcesUsed = append(sourcesUsed, "deezer.track")
		applyDeezer(artifact, coverage, track)
	}

	if artifact.EnergyProxy == nil && artifact.LoudnessProxy != nil {
		// Soft energy proxy from normalized loudness when no direct energy
		// signal exists. The coefficients are an uncalibrated placeholder.
		mapped := (*artifact.LoudnessProxy + 15.0) / 30.0
		if mapped < 0 {
			mapped = 0
		}
		if mapped > 1 {
			mapped = 1
		}
		artifact.EnergyProxy = &mapped
		coverage["energy_proxy"] = CoverageMapped
	}

	if len(sourcesUsed) == 0 {
		warnings = append(warnings, "DESCRIPTOR_SOURCES_UNAVAILABLE")
	}

	artifact.SourcesUsed = sourcesUsed
	artifact.Warnings = warnings
	artifact.Confidence = confidenceFromCoverage(coverage)

	if artifact.Confidence < b.minConfidence {
		b.logger.Info("descriptor below confidence threshold",
			logging.Float64("confidence", artifact.Confidence),
			logging.Float64("min_confidence", b.minConfidence))
		return nil, nil
	}

	b.logger.Info("descriptor built",
		logging.Float64("confidence", artifact.Confidence),
		logging.Any("sources", sourcesUsed))
	return artifact, nil
}

// findMBID resolves a MusicBrainz recording id, preferring an ISRC match.
func (b *Builder) findMBID(ctx context.Context, source discovery.SourceCandidate, meta *metadata.Artifact) string {
	params := url.Values{}
	params.Set("fmt", "json")
	params.Set("limit", "1")
	if meta != nil && meta.ISRC != "" {
		params.Set("query", "isrc:"+meta.ISRC)
	} else {
		title := source.Title
		artist := source.ArtistGuess
		if meta != nil {
			if meta.Title != "" {
				title = meta.Title
			}
			if len(meta.Artists) > 0 {
				artist = strings.Join(meta.Artists, ", ")
			}
		}
		params.Set("query", fmt.Sprintf("recording:%q AND artist:%q", title, artist))
	}

	var payload struct {
		Recordings []struct {
			ID string `json:"id"`
		} `json:"recordings"`
	}
	if !b.getJSON(ctx, b.musicbrainzURL+"/recording?"+params.Encode(), &payload) {
		return ""
	}
	if len(payload.Recordings) == 0 {
		return ""
	}
	return payload.Recordings[0].ID
}

type lowLevelPayload struct {
	Rhythm struct {
		BPM *float64 `json:"bpm"`
	} `json:"rhythm"`
	Tonal struct {
		KeyKey   string `json:"key_key"`
		KeyScale string `json:"key_scale"`
	} `json:"tonal"`
	LowLevel struct {
		AverageLoudness *float64 `json:"average_loudness"`
		LoudnessEBU128  struct {
			Integrated *float64 `json:"integrated"`
		} `json:"loudness_ebu128"`
		SpectralCentroid struct {
			Mean *float64 `json:"mean"`
		} `json:"spectral_centroid"`
		SpectralComplexity struct {
			Mean *float64 `json:"mean"`
		} `json:"spectral_complexity"`
	} `json:"lowlevel"`
}

func (b *Builder) fetchLowLevel(ctx context.Context, mbid string) *lowLevelPayload {
	var payload lowLevelPayload
	if !b.getJSON(ctx, fmt.Sprintf("%s/%s/low-level?n=0", b.acousticbrainzURL, mbid), &payload) {
		return nil
	}
	return &payload
}

type highLevelPayload struct {
	HighLevel struct {
		MoodParty struct {
			All struct {
				Party *float64 `json:"party"`
			} `json:"all"`
		} `json:"mood_party"`
		Danceability struct {
			All struct {
				Danceable *float64 `json:"danceable"`
			} `json:"all"`
		} `json:"danceability"`
		MoodAcoustic struct {
			All struct {
				Acoustic *float64 `json:"acoustic"`
			} `json:"all"`
		} `json:"mood_acoustic"`
		VoiceInstrumental struct {
			All struct {
				Instrumental *float64 `json:"instrumental"`
			} `json:"all"`
		} `json:"voice_instrumental"`
	} `json:"highlevel"`
}

func (b *Builder) fetchHighLevel(ctx context.Context, mbid string) *highLevelPayload {
	var payload highLevelPayload
	if !b.getJSON(ctx, fmt.Sprintf("%s/%s/high-level?n=0", b.acousticbrainzURL, mbid), &payload) {
		return nil
	}
	return &payload
}

type deezerTrack struct {
	ID   int64    `json:"id"`
	BPM  *float64 `json:"bpm"`
	Gain *float64 `json:"gain"`
}

// fetchDeezerTrack looks a track up by ISRC first, then by free-text search.
func (b *Builder) fetchDeezerTrack(ctx context.Context, source discovery.SourceCandidate, meta *metadata.Artifact) *deezerTrack {
	if meta != nil && meta.ISRC != "" {
		var track deezerTrack
		if b.getJSON(ctx, b.deezerURL+"/track/isrc:"+url.PathEscape(meta.ISRC), &track) && track.ID != 0 {
			return &track
		}
	}

	query := source.Title
	if source.ArtistGuess != "" {
		query += " " + source.ArtistGuess
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	var payload struct {
		Data []deezerTrack `json:"data"`
	}
	if !b.getJSON(ctx, b.deezerURL+"/search?q="+url.QueryEscape(query), &payload) {
		return nil
	}
	if len(payload.Data) == 0 || payload.Data[0].ID == 0 {
		return nil
	}
	return &payload.Data[0]
}

// getJSON fetches a JSON document, reporting false on any failure.
func (b *Builder) getJSON(ctx context.Context, rawURL string, dest any) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		b.logger.Debug("descriptor lookup failed", logging.Error(err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}
	return json.NewDecoder(resp.Body).Decode(dest) == nil
}

func applyLowLevel(artifact *Artifact, coverage map[string]string, low *lowLevelPayload) {
	if low.Rhythm.BPM != nil {
		artifact.TempoBPM = low.Rhythm.BPM
		coverage["tempo_bpm"] = CoverageDirect
	}
	if low.Tonal.KeyKey != "" {
		artifact.Key = low.Tonal.KeyKey
		coverage["key"] = CoverageDirect
	}
	if scale := low.Tonal.KeyScale; scale == "major" || scale == "minor" {
		artifact.Mode = scale
		coverage["mode"] = CoverageDirect
	}
	loudness := low.LowLevel.AverageLoudness
	if loudness == nil {
		loudness = low.LowLevel.LoudnessEBU128.Integrated
	}
	if loudness != nil {
		artifact.LoudnessProxy = loudness
		coverage["loudness_proxy"] = CoverageDirect
	}
	artifact.TextureProxy.SpectralCentroidMean = low.LowLevel.SpectralCentroid.Mean
	artifact.TextureProxy.SpectralComplexityMean = low.LowLevel.SpectralComplexity.Mean
	if artifact.TextureProxy.SpectralCentroidMean != nil || artifact.TextureProxy.SpectralComplexityMean != nil {
		coverage["texture_proxy"] = CoverageDirect
	}
}

func applyHighLevel(artifact *Artifact, coverage map[string]string, high *highLevelPayload) {
	if v := high.HighLevel.MoodParty.All.Party; v != nil {
		artifact.EnergyProxy = v
		coverage["energy_proxy"] = CoverageDirect
	}
	if v := high.HighLevel.Danceability.All.Danceable; v != nil {
		artifact.DanceabilityProxy = v
		coverage["danceability_proxy"] = CoverageDirect
	}
	if v := high.HighLevel.MoodAcoustic.All.Acoustic; v != nil {
		artifact.AcousticnessProxy = v
		coverage["acousticness_proxy"] = CoverageDirect
	}
	if v := high.HighLevel.VoiceInstrumental.All.Instrumental; v != nil {
		artifact.InstrumentalnessProxy = v
		coverage["instrumentalness_proxy"] = CoverageDirect
	}
}

func applyDeezer(artifact *Artifact, coverage map[string]string, track *deezerTrack) {
	// Deezer reports zero for unknown tempo and gain; treat those as absent.
	if coverage["tempo_bpm"] == CoverageMissing && track.BPM != nil && *track.BPM > 0 {
		artifact.TempoBPM = track.BPM
		coverage["tempo_bpm"] = CoverageDirect
	}
	if coverage["loudness_proxy"] == CoverageMissing && track.Gain != nil && *track.Gain != 0 {
		artifact.LoudnessProxy = track.Gain
		coverage["loudness_proxy"] = CoverageDirect
	}
}
