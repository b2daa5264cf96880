// Package analysis runs the external feature-analysis command on retrieved
// audio and caches the resulting feature document.
package analysis

// Section describes one contiguous high-energy span of the track.
type Section struct {
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
	Energy   float64 `json:"energy"`
}

// Features is the document the analysis command emits: tempo, tonality,
// loudness, and texture signals extracted from raw audio.
type Features struct {
	TempoBPM             float64        `json:"tempo_bpm,omitempty"`
	Key                  string         `json:"key,omitempty"`
	Mode                 string         `json:"mode,omitempty"`
	LoudnessRMS          float64        `json:"loudness_rms,omitempty"`
	DynamicRange         float64        `json:"dynamic_range,omitempty"`
	EnergyMean           float64        `json:"energy_mean,omitempty"`
	SpectralCentroidMean float64        `json:"spectral_centroid_mean,omitempty"`
	OnsetDensity         float64        `json:"onset_density,omitempty"`
	SectionMap           []Section      `json:"section_map,omitempty"`
	OptionalFeatures     map[string]any `json:"optional_features,omitempty"`
	Warnings             []string       `json:"warnings,omitempty"`
}
