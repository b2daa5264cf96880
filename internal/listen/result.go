package listen

import (
	"earshot/internal/analysis"
	"earshot/internal/descriptor"
	"earshot/internal/discovery"
	"earshot/internal/lyrics"
	"earshot/internal/metadata"
	"earshot/internal/retrieval"
	"earshot/internal/services"
	"earshot/internal/synthesis"
)

// ErrorEntry records a coded failure surfaced during a listen call.
type ErrorEntry struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Result is the complete outcome of one listen call. AnalysisMode is the
// single source of truth for which artifacts are populated.
type Result struct {
	Query          string                     `json:"query"`
	AnalysisMode   string                     `json:"analysis_mode"`
	Source         *discovery.SourceCandidate `json:"source,omitempty"`
	Metadata       *metadata.Artifact         `json:"metadata,omitempty"`
	Descriptor     *descriptor.Artifact       `json:"descriptor,omitempty"`
	Audio          *retrieval.AudioArtifact   `json:"audio,omitempty"`
	Features       *analysis.Features         `json:"features,omitempty"`
	Lyrics         *lyrics.Artifact           `json:"lyrics,omitempty"`
	LyricsAnalysis *lyrics.Analysis           `json:"lyrics_analysis,omitempty"`
	Synthesis      *synthesis.Result          `json:"synthesis,omitempty"`
	Cache          map[string]any             `json:"cache"`
	Errors         []ErrorEntry               `json:"errors"`
	FallbackTrace  []string                   `json:"fallback_trace"`
}

func newResult(query string) *Result {
	return &Result{
		Query:         query,
		AnalysisMode:  ModeFailed,
		Cache:         map[string]any{},
		Errors:        []ErrorEntry{},
		FallbackTrace: []string{},
	}
}

// recordError appends a coded error entry derived from err.
func (r *Result) recordError(err error) {
	entry := ErrorEntry{Code: services.ErrorCode(err), Message: err.Error()}
	if coded, ok := services.AsError(err); ok {
		entry.Message = coded.Message
	}
	r.Errors = append(r.Errors, entry)
}

func (r *Result) trace(entries ...string) {
	r.FallbackTrace = append(r.FallbackTrace, entries...)
}
