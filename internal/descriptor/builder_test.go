package descriptor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"earshot/internal/config"
	"earshot/internal/discovery"
	"earshot/internal/metadata"
)

type fixture struct {
	mbRecordings string
	lowLevel     string
	highLevel    string
	deezerISRC   string
	deezerSearch string
}

func newTestBuilder(t *testing.T, fx fixture, minConfidence float64) *Builder {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/2/recording", func(w http.ResponseWriter, r *http.Request) {
		respond(w, fx.mbRecordings)
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		respond(w, fx.deezerSearch)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/low-level"):
			respond(w, fx.lowLevel)
		case strings.HasSuffix(r.URL.Path, "/high-level"):
			respond(w, fx.highLevel)
		case strings.HasPrefix(r.URL.Path, "/track/isrc:"):
			respond(w, fx.deezerISRC)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	builder := NewBuilder(config.Descriptors{
		Enabled:           true,
		MinConfidence:     minConfidence,
		RequestTimeoutSec: 2,
	}, nil)
	builder.musicbrainzURL = server.URL + "/ws/2"
	builder.acousticbrainzURL = server.URL
	builder.deezerURL = server.URL
	return builder
}

func respond(w http.ResponseWriter, body string) {
	if body == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(body))
}

func testSource() discovery.SourceCandidate {
	return discovery.SourceCandidate{
		Provider:    "spotify",
		SourceType:  discovery.SourceTypeMetadata,
		SourceID:    "s1",
		Title:       "Good News",
		ArtistGuess: "Mac Miller",
	}
}

func TestBuildFullCoverage(t *testing.T) {
	builder := newTestBuilder(t, fixture{
		mbRecordings: `{"recordings": [{"id": "mbid-1"}]}`,
		lowLevel: `{
			"rhythm": {"bpm": 120.5},
			"tonal": {"key_key": "C", "key_scale": "major"},
			"lowlevel": {
				"average_loudness": 0.85,
				"spectral_centroid": {"mean": 1500.0},
				"spectral_complexity": {"mean": 12.0}
			}
		}`,
		highLevel: `{"highlevel": {
			"mood_party": {"all": {"party": 0.7}},
			"danceability": {"all": {"danceable": 0.8}},
			"mood_acoustic": {"all": {"acoustic": 0.2}},
			"voice_instrumental": {"all": {"instrumental": 0.1}}
		}}`,
		deezerSearch: `{"data": [{"id": 99, "bpm": 121.0, "gain": -7.2}]}`,
	}, 0.45)

	artifact, err := builder.Build(context.Background(), testSource(), nil)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if artifact == nil {
		t.Fatal("expected artifact")
	}
	if artifact.Confidence != 1.0 {
		t.Fatalf("confidence = %v, want 1.0 for full direct coverage", artifact.Confidence)
	}
	if artifact.TempoBPM == nil || *artifact.TempoBPM != 120.5 {
		t.Fatalf("tempo = %v, want acousticbrainz value, not deezer", artifact.TempoBPM)
	}
	if artifact.Mode != "major" || artifact.Key != "C" {
		t.Fatalf("tonality = %s %s", artifact.Key, artifact.Mode)
	}
	for field, state := range artifact.Coverage {
		if state != CoverageDirect {
			t.Fatalf("coverage[%s] = %s, want direct", field, state)
		}
	}
}

func TestBuildDeezerOnlyMapsEnergyFromGain(t *testing.T) {
	builder := newTestBuilder(t, fixture{
		deezerSearch: `{"data": [{"id": 99, "bpm": 98.0, "gain": -6.0}]}`,
	}, 0)

	artifact, err := builder.Build(context.Background(), testSource(), nil)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if artifact == nil {
		t.Fatal("expected artifact with min confidence 0")
	}
	if artifact.TempoBPM == nil || *artifact.TempoBPM != 98.0 {
		t.Fatalf("tempo = %v", artifact.TempoBPM)
	}
	if artifact.Coverage["energy_proxy"] != CoverageMapped {
		t.Fatalf("energy coverage = %s, want mapped", artifact.Coverage["energy_proxy"])
	}
	// gain -6 maps to (gain+15)/30 = 0.3
	if artifact.EnergyProxy == nil || *artifact.EnergyProxy != 0.3 {
		t.Fatalf("energy proxy = %v, want 0.3", artifact.EnergyProxy)
	}
	if !contains(artifact.Warnings, "DESCRIPTOR_MBID_NOT_FOUND") {
		t.Fatalf("warnings = %v", artifact.Warnings)
	}
}

func TestBuildBelowMinConfidenceReturnsNil(t *testing.T) {
	builder := newTestBuilder(t, fixture{}, 0.45)
	artifact, err := builder.Build(context.Background(), testSource(), nil)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if artifact != nil {
		t.Fatalf("expected nil artifact below min confidence, got %+v", artifact)
	}
}

func TestBuildDisabledReturnsNil(t *testing.T) {
	builder := NewBuilder(config.Descriptors{Enabled: false}, nil)
	artifact, err := builder.Build(context.Background(), testSource(), nil)
	if err != nil || artifact != nil {
		t.Fatalf("disabled builder should return nil, nil: %v %v", artifact, err)
	}
}

func TestBuildISRCPreferredForMBIDLookup(t *testing.T) {
	var mbQuery string
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/2/recording", func(w http.ResponseWriter, r *http.Request) {
		mbQuery = r.URL.Query().Get("query")
		respond(w, `{"recordings": []}`)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	builder := NewBuilder(config.Descriptors{Enabled: true, MinConfidence: 0, RequestTimeoutSec: 2}, nil)
	builder.musicbrainzURL = server.URL + "/ws/2"
	builder.acousticbrainzURL = server.URL
	builder.deezerURL = server.URL

	meta := &metadata.Artifact{Title: "Good News", ISRC: "USWB11904009"}
	if _, err := builder.Build(context.Background(), testSource(), meta); err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if mbQuery != "isrc:USWB11904009" {
		t.Fatalf("mb query = %q, want isrc lookup", mbQuery)
	}
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
