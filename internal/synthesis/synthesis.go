// Package synthesis turns analysis artifacts into prose observations and a
// prompt for a downstream text model. Three builders cover the three evidence
// tiers: direct audio features, catalog descriptors, and bare metadata.
package synthesis

import (
	"fmt"
	"strings"

	"earshot/internal/analysis"
	"earshot/internal/descriptor"
	"earshot/internal/discovery"
	"earshot/internal/lyrics"
	"earshot/internal/metadata"
)

// Result is the synthesized interpretation of a listen.
type Result struct {
	NaturalObservation  string   `json:"natural_observation"`
	LyricObservation    string   `json:"lyric_observation,omitempty"`
	CombinedObservation string   `json:"combined_observation"`
	Highlights          []string `json:"highlights"`
	UncertaintyNotes    []string `json:"uncertainty_notes"`
	PromptForTextModel  string   `json:"prompt_for_text_model"`
}

const audioPromptTemplate = `You are listening to a song as a careful human critic.
Use only the provided structured features.
Clearly separate direct evidence from interpretation.
Do not invent lyrics or artist intent.

Song:
- Title: %s
- Artist guess: %s
- Source confidence: %.2f

Features:
- Tempo BPM: %.2f
- Key/Mode: %s %s
- RMS loudness: %.5f
- Dynamic range: %.5f
- Energy mean: %.5f
- Spectral centroid mean: %.2f
- Onset density: %.5f
- Section count: %d

Respond with:
1) Immediate feel
2) Rhythm and energy journey
3) Harmonic color and tension/release
4) Production texture and space
5) Confidence and uncertainty notes
`

// BuildAudio synthesizes from direct audio features.
func BuildAudio(source discovery.SourceCandidate, features *analysis.Features, lyricAnalysis *lyrics.Analysis) *Result {
	tempo := features.TempoBPM
	energy := features.EnergyMean

	mood := "restrained"
	switch {
	case tempo > 120 && energy > 0.08:
		mood = "driving"
	case tempo < 90 && energy < 0.06:
		mood = "reflective"
	}

	highlights := []string{
		fmt.Sprintf("Tempo sits around %.1f BPM.", tempo),
		fmt.Sprintf("Estimated key center is %s %s.", orUnknown(features.Key), features.Mode),
		fmt.Sprintf("Perceived energy profile feels %s.", mood),
	}

	var uncertainty []string
	if source.Provider == "musicbrainz" {
		uncertainty = append(uncertainty, "Only metadata was available; no direct audio evidence from source provider.")
	}
	if len(features.SectionMap) == 0 {
		uncertainty = append(uncertainty, "Section segmentation confidence is low.")
	}

	key := features.Key
	if key == "" {
		key = "an uncertain key"
	}
	natural := fmt.Sprintf(
		"This listen reads as %s, with a pulse near %.0f BPM and a tonal center around %s %s. "+
			"The energy contour suggests deliberate dynamic shaping rather than flat loudness, "+
			"and the spectral balance points to a warm-mid texture with periodic transient lift.",
		mood, tempo, key, features.Mode)

	prompt := fmt.Sprintf(audioPromptTemplate,
		source.Title, artistOrUnknown(source.ArtistGuess), source.Confidence,
		tempo, orUnknown(features.Key), features.Mode,
		features.LoudnessRMS, features.DynamicRange, features.EnergyMean,
		features.SpectralCentroidMean, features.OnsetDensity, len(features.SectionMap))

	result := &Result{
		NaturalObservation:  natural,
		CombinedObservation: natural,
		Highlights:          highlights,
		UncertaintyNotes:    uncertainty,
		PromptForTextModel:  prompt,
	}
	applyLyrics(result, lyricAnalysis, func(polarity string) string {
		return fmt.Sprintf("%s Lyrically, it leans %s, which either reinforces or gently contrasts "+
			"the sonic mood to create a fuller emotional arc.", natural, polarity)
	})
	return result
}

// BuildDescriptor synthesizes from a catalog descriptor when no audio was
// analyzable.
func BuildDescriptor(source discovery.SourceCandidate, desc *descriptor.Artifact, lyricAnalysis *lyrics.Analysis) *Result {
	tonal := orUnknown(desc.Key) + " " + desc.Mode

	tempoHighlight := "Tempo estimate unavailable."
	tempoValue := 0.0
	if desc.TempoBPM != nil {
		tempoValue = *desc.TempoBPM
		tempoHighlight = fmt.Sprintf("Tempo estimate: %.1f BPM.", tempoValue)
	}
	highlights := []string{
		tempoHighlight,
		fmt.Sprintf("Key/mode estimate: %s.", tonal),
		fmt.Sprintf("Descriptor confidence: %.2f.", desc.Confidence),
	}

	texturePhrase := "texture descriptors are limited"
	if desc.TextureProxy.SpectralCentroidMean != nil || desc.TextureProxy.SpectralComplexityMean != nil {
		texturePhrase = "texture leans warm and focused"
		if desc.TextureProxy.SpectralCentroidMean != nil && *desc.TextureProxy.SpectralCentroidMean > 1500 {
			texturePhrase = "texture leans bright and layered"
		}
	}

	energy := 0.0
	if desc.EnergyProxy != nil {
		energy = *desc.EnergyProxy
	}
	natural := fmt.Sprintf(
		"Descriptor-level analysis suggests a pulse near %.0f BPM and tonal center around %s. "+
			"Energy proxy sits near %.2f, and %s. "+
			"This read uses catalog-linked descriptor databases rather than direct waveform extraction.",
		tempoValue, tonal, energy, texturePhrase)

	uncertainty := []string{"Derived from external descriptor datasets, not direct local audio analysis."}
	if missing := missingFields(desc.Coverage); len(missing) > 0 {
		uncertainty = append(uncertainty, fmt.Sprintf("Missing descriptor fields: %s.", strings.Join(missing, ", ")))
	}

	prompt := fmt.Sprintf(
		"You are analyzing a song from precomputed descriptors and optional lyric evidence.\n"+
			"Separate direct descriptor evidence from interpretation.\n"+
			"Title: %s\n"+
			"Tempo: %s\n"+
			"Key/Mode: %s\n"+
			"Energy proxy: %s\n"+
			"Descriptor confidence: %.2f\n"+
			"Respond with:\n"+
			"1) Rhythm/motion feel\n"+
			"2) Tonal and texture color\n"+
			"3) Confidence and missing data caveats\n",
		source.Title, floatOrUnknown(desc.TempoBPM), tonal, floatOrUnknown(desc.EnergyProxy), desc.Confidence)

	result := &Result{
		NaturalObservation:  natural,
		CombinedObservation: natural,
		Highlights:          highlights,
		UncertaintyNotes:    uncertainty,
		PromptForTextModel:  prompt,
	}
	applyLyrics(result, lyricAnalysis, func(polarity string) string {
		return fmt.Sprintf("%s Lyrical evidence adds a %s emotional layer to the descriptor-based sonic read.",
			natural, polarity)
	})
	return result
}

// BuildMetadata synthesizes from catalog metadata alone.
func BuildMetadata(source discovery.SourceCandidate, meta *metadata.Artifact, lyricAnalysis *lyrics.Analysis) *Result {
	artist := artistOrUnknown(source.ArtistGuess)
	if meta != nil && len(meta.Artists) > 0 {
		artist = strings.Join(meta.Artists, ", ")
	} else if source.ArtistGuess == "" {
		artist = "unknown artist"
	}

	durationText := "unknown duration"
	if source.DurationSec > 0 {
		total := int(source.DurationSec)
		durationText = fmt.Sprintf("%d:%02d", total/60, total%60)
	}
	releaseText := "unknown release date"
	if meta != nil && meta.ReleaseDate != "" {
		releaseText = meta.ReleaseDate
	}
	sourceLabel := "unknown"
	if meta != nil && meta.Source != "" {
		sourceLabel = meta.Source
	}

	natural := fmt.Sprintf(
		"This interpretation is metadata-led for '%s' by %s. "+
			"Catalog cues suggest a track length around %s with release context %s, "+
			"so the observation focuses on framing and lyrical affect rather than acoustic evidence.",
		source.Title, artist, durationText, releaseText)

	highlights := []string{
		fmt.Sprintf("Metadata source: %s.", sourceLabel),
		fmt.Sprintf("Track duration: %s.", durationText),
		"Acoustic feature extraction was not available.",
	}
	uncertainty := []string{
		"No direct audio analysis; interpretation is metadata/lyrics-based.",
		"Tempo/key/energy/timbre observations are intentionally omitted.",
	}

	prompt := fmt.Sprintf(
		"You are analyzing a song with metadata and optional lyric evidence only.\n"+
			"Do not infer acoustic properties (tempo, key, timbre, dynamics).\n"+
			"Song title: %s\n"+
			"Artist: %s\n"+
			"Release date: %s\n"+
			"Duration: %s\n"+
			"Source confidence: %.2f\n"+
			"Respond with:\n"+
			"1) Contextual framing from metadata\n"+
			"2) Lyric emotional reading (if present)\n"+
			"3) Explicit uncertainty due to no audio analysis\n",
		source.Title, artist, releaseText, durationText, source.Confidence)

	result := &Result{
		NaturalObservation:  natural,
		CombinedObservation: natural,
		Highlights:          highlights,
		UncertaintyNotes:    uncertainty,
		PromptForTextModel:  prompt,
	}
	applyLyrics(result, lyricAnalysis, func(polarity string) string {
		return fmt.Sprintf("%s Lyrical evidence adds a %s emotional signal to this metadata-based reading.",
			natural, polarity)
	})
	return result
}

// applyLyrics attaches the lyric observation, or records its absence as an
// uncertainty note.
func applyLyrics(result *Result, lyricAnalysis *lyrics.Analysis, combine func(polarity string) string) {
	if lyricAnalysis == nil {
		result.UncertaintyNotes = append(result.UncertaintyNotes,
			"Lyrics were unavailable or insufficient for textual-feeling analysis.")
		return
	}
	themes := lyricAnalysis.Themes
	if len(themes) > 2 {
		themes = themes[:2]
	}
	result.LyricObservation = fmt.Sprintf("Lyrically, the text feels %s, touching themes like %s. "+
		"The wording suggests an intensity around %.2f.",
		lyricAnalysis.EmotionalPolarity, strings.Join(themes, ", "), lyricAnalysis.Intensity)
	result.CombinedObservation = combine(lyricAnalysis.EmotionalPolarity)
}

// missingFields lists up to four descriptor fields with no coverage, in the
// canonical field order.
func missingFields(coverage map[string]string) []string {
	var missing []string
	for _, field := range descriptor.CoverageFields() {
		if coverage[field] == descriptor.CoverageMissing {
			missing = append(missing, field)
			if len(missing) == 4 {
				break
			}
		}
	}
	return missing
}

func orUnknown(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

func artistOrUnknown(artist string) string {
	if strings.TrimSpace(artist) == "" {
		return "unknown"
	}
	return artist
}

func floatOrUnknown(value *float64) string {
	if value == nil {
		return "unknown"
	}
	return fmt.Sprintf("%g", *value)
}
