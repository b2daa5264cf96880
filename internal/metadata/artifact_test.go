package metadata

import (
	"encoding/json"
	"reflect"
	"testing"

	"earshot/internal/discovery"
)

func TestFromCandidateFallsBackToCandidateFields(t *testing.T) {
	candidate := discovery.SourceCandidate{
		Provider:    "ytdlp",
		Title:       "Mac Miller - Good News",
		ArtistGuess: "Mac Miller",
	}
	got := FromCandidate(candidate)
	if got.Title != "Mac Miller - Good News" {
		t.Fatalf("title = %q", got.Title)
	}
	if !reflect.DeepEqual(got.Artists, []string{"Mac Miller"}) {
		t.Fatalf("artists = %v", got.Artists)
	}
}

func TestFromCandidateSpotify(t *testing.T) {
	raw := json.RawMessage(`{
		"name": "Good News",
		"artists": [{"name": "Mac Miller"}, {"name": "Guest Artist"}],
		"album": {"name": "Circles", "release_date": "2020-01-17"},
		"external_ids": {"isrc": "USWB11904009"},
		"popularity": 78
	}`)
	candidate := discovery.SourceCandidate{Provider: "spotify", Title: "fallback", Raw: raw}

	got := FromCandidate(candidate)
	want := Artifact{
		Source:      "spotify",
		Title:       "Good News",
		Artists:     []string{"Mac Miller", "Guest Artist"},
		Album:       "Circles",
		ReleaseDate: "2020-01-17",
		ISRC:        "USWB11904009",
		Popularity:  78,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("artifact = %+v, want %+v", got, want)
	}
}

func TestFromCandidateMusicBrainz(t *testing.T) {
	raw := json.RawMessage(`{
		"title": "Good News",
		"artist-credit": [{"artist": {"name": "Mac Miller"}}],
		"first-release-date": "2020-01-09",
		"releases": [{"title": "Circles"}],
		"isrcs": ["USWB11904009"]
	}`)
	candidate := discovery.SourceCandidate{Provider: "musicbrainz", Title: "fallback", Raw: raw}

	got := FromCandidate(candidate)
	if got.Title != "Good News" || got.Album != "Circles" || got.ISRC != "USWB11904009" {
		t.Fatalf("artifact = %+v", got)
	}
	if got.ReleaseDate != "2020-01-09" {
		t.Fatalf("release date = %q", got.ReleaseDate)
	}
}

func TestFromCandidateJamendo(t *testing.T) {
	raw := json.RawMessage(`{
		"name": "Good News",
		"artist_name": "Indie Band",
		"album_name": "Debut",
		"releasedate": "2019-05-01"
	}`)
	candidate := discovery.SourceCandidate{Provider: "jamendo", Title: "fallback", Raw: raw}

	got := FromCandidate(candidate)
	if got.Title != "Good News" || got.Album != "Debut" {
		t.Fatalf("artifact = %+v", got)
	}
	if !reflect.DeepEqual(got.Artists, []string{"Indie Band"}) {
		t.Fatalf("artists = %v", got.Artists)
	}
}

func TestFromCandidateMalformedRawKeepsFallback(t *testing.T) {
	candidate := discovery.SourceCandidate{
		Provider:    "spotify",
		Title:       "fallback",
		ArtistGuess: "artist",
		Raw:         json.RawMessage(`"not an object"`),
	}
	got := FromCandidate(candidate)
	if got.Title != "fallback" {
		t.Fatalf("title = %q, want fallback preserved", got.Title)
	}
}
