// Package descriptor builds a catalog-sourced substitute for direct audio
// features when raw audio cannot be obtained: a MusicBrainz identity lookup
// feeds AcousticBrainz signals, with Deezer filling tempo and loudness gaps.
package descriptor

import "math"

// Coverage classifications per descriptor field.
const (
	CoverageDirect  = "direct"
	CoverageMapped  = "mapped"
	CoverageMissing = "missing"
)

// TextureProxy carries spectral texture signals.
type TextureProxy struct {
	SpectralCentroidMean   *float64 `json:"spectral_centroid_mean"`
	SpectralComplexityMean *float64 `json:"spectral_complexity_mean"`
}

// Artifact is the descriptor document: per-field values with a coverage
// classification and an aggregate confidence.
type Artifact struct {
	TempoBPM              *float64          `json:"tempo_bpm,omitempty"`
	Key                   string            `json:"key,omitempty"`
	Mode                  string            `json:"mode"`
	LoudnessProxy         *float64          `json:"loudness_proxy,omitempty"`
	EnergyProxy           *float64          `json:"energy_proxy,omitempty"`
	DanceabilityProxy     *float64          `json:"danceability_proxy,omitempty"`
	AcousticnessProxy     *float64          `json:"acousticness_proxy,omitempty"`
	InstrumentalnessProxy *float64          `json:"instrumentalness_proxy,omitempty"`
	TextureProxy          TextureProxy      `json:"texture_proxy"`
	Coverage              map[string]string `json:"coverage"`
	SourcesUsed           []string          `json:"sources_used"`
	Warnings              []string          `json:"warnings"`
	Confidence            float64           `json:"confidence"`
}

var coverageFields = []string{
	"tempo_bpm",
	"key",
	"mode",
	"loudness_proxy",
	"energy_proxy",
	"texture_proxy",
	"danceability_proxy",
	"acousticness_proxy",
	"instrumentalness_proxy",
}

var coverageWeights = map[string]float64{
	"tempo_bpm":              0.16,
	"key":                    0.12,
	"mode":                   0.08,
	"loudness_proxy":         0.10,
	"energy_proxy":           0.14,
	"texture_proxy":          0.16,
	"danceability_proxy":     0.10,
	"acousticness_proxy":     0.07,
	"instrumentalness_proxy": 0.07,
}

// CoverageFields returns the descriptor field names in canonical order.
func CoverageFields() []string {
	fields := make([]string, len(coverageFields))
	copy(fields, coverageFields)
	return fields
}

func defaultCoverage() map[string]string {
	coverage := make(map[string]string, len(coverageFields))
	for _, field := range coverageFields {
		coverage[field] = CoverageMissing
	}
	return coverage
}

// confidenceFromCoverage computes the weighted aggregate confidence: direct
// fields count fully, mapped fields at 0.7, missing fields not at all.
func confidenceFromCoverage(coverage map[string]string) float64 {
	scoreMap := map[string]float64{
		CoverageDirect:  1.0,
		CoverageMapped:  0.7,
		CoverageMissing: 0.0,
	}
	var num, den float64
	for field, weight := range coverageWeights {
		den += weight
		num += weight * scoreMap[coverage[field]]
	}
	if den == 0 {
		return 0
	}
	return round4(num / den)
}

func round4(value float64) float64 {
	return math.Round(value*10000) / 10000
}
