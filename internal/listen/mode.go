// Package listen orchestrates a full listen call: discovery, the retrieval
// and analysis pipeline, lyric enrichment, descriptor fallback, and final
// synthesis, degrading fidelity according to the requested mode.
package listen

// Analysis modes, plus the terminal failure marker.
const (
	ModeAuto           = "auto"
	ModeFullAudio      = "full_audio"
	ModeDescriptorOnly = "descriptor_only"
	ModeMetadataOnly   = "metadata_only"
	ModeFailed         = "failed"
)

func recognizedMode(mode string) bool {
	switch mode {
	case ModeAuto, ModeFullAudio, ModeDescriptorOnly, ModeMetadataOnly:
		return true
	}
	return false
}

// ResolveMode determines the effective analysis mode. An unrecognized
// explicit value defers to the configured default; an unrecognized default
// falls back to auto.
func ResolveMode(explicit, configured string) string {
	if recognizedMode(explicit) {
		return explicit
	}
	if recognizedMode(configured) {
		return configured
	}
	return ModeAuto
}
