// Package metadata normalizes provider-specific raw payloads into a common
// catalog artifact.
package metadata

import (
	"encoding/json"

	"earshot/internal/discovery"
)

// Artifact holds normalized catalog fields for a candidate.
type Artifact struct {
	Source      string   `json:"source"`
	Title       string   `json:"title"`
	Artists     []string `json:"artists"`
	Album       string   `json:"album,omitempty"`
	ReleaseDate string   `json:"release_date,omitempty"`
	ISRC        string   `json:"isrc,omitempty"`
	Popularity  int      `json:"popularity,omitempty"`
}

// FromCandidate derives an Artifact from a candidate's raw provider payload.
// Fields the payload does not carry fall back to the candidate's own title
// and artist guess, so the result is always usable.
func FromCandidate(candidate discovery.SourceCandidate) Artifact {
	artifact := Artifact{Source: candidate.Provider, Title: candidate.Title}
	if candidate.ArtistGuess != "" {
		artifact.Artists = []string{candidate.ArtistGuess}
	}

	if len(candidate.Raw) == 0 {
		return artifact
	}

	switch candidate.Provider {
	case "spotify":
		fillFromSpotify(&artifact, candidate.Raw)
	case "musicbrainz":
		fillFromMusicBrainz(&artifact, candidate.Raw)
	case "jamendo":
		fillFromJamendo(&artifact, candidate.Raw)
	}
	return artifact
}

func fillFromSpotify(artifact *Artifact, raw json.RawMessage) {
	var track struct {
		Name    string `json:"name"`
		Artists []struct {
			Name string `json:"name"`
		} `json:"artists"`
		Album struct {
			Name        string `json:"name"`
			ReleaseDate string `json:"release_date"`
		} `json:"album"`
		ExternalIDs struct {
			ISRC string `json:"isrc"`
		} `json:"external_ids"`
		Popularity int `json:"popularity"`
	}
	if err := json.Unmarshal(raw, &track); err != nil {
		return
	}
	if track.Name != "" {
		artifact.Title = track.Name
	}
	if len(track.Artists) > 0 {
		artifact.Artists = artifact.Artists[:0]
		for _, a := range track.Artists {
			if a.Name != "" {
				artifact.Artists = append(artifact.Artists, a.Name)
			}
		}
	}
	artifact.Album = track.Album.Name
	artifact.ReleaseDate = track.Album.ReleaseDate
	artifact.ISRC = track.ExternalIDs.ISRC
	artifact.Popularity = track.Popularity
}

func fillFromMusicBrainz(artifact *Artifact, raw json.RawMessage) {
	var rec struct {
		Title        string `json:"title"`
		ArtistCredit []struct {
			Artist struct {
				Name string `json:"name"`
			} `json:"artist"`
		} `json:"artist-credit"`
		FirstReleaseDate string `json:"first-release-date"`
		Releases         []struct {
			Title string `json:"title"`
		} `json:"releases"`
		ISRCs []string `json:"isrcs"`
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return
	}
	if rec.Title != "" {
		artifact.Title = rec.Title
	}
	if len(rec.ArtistCredit) > 0 {
		artifact.Artists = artifact.Artists[:0]
		for _, credit := range rec.ArtistCredit {
			if credit.Artist.Name != "" {
				artifact.Artists = append(artifact.Artists, credit.Artist.Name)
			}
		}
	}
	if len(rec.Releases) > 0 {
		artifact.Album = rec.Releases[0].Title
	}
	artifact.ReleaseDate = rec.FirstReleaseDate
	if len(rec.ISRCs) > 0 {
		artifact.ISRC = rec.ISRCs[0]
	}
}

func fillFromJamendo(artifact *Artifact, raw json.RawMessage) {
	var track struct {
		Name        string `json:"name"`
		ArtistName  string `json:"artist_name"`
		AlbumName   string `json:"album_name"`
		ReleaseDate string `json:"releasedate"`
	}
	if err := json.Unmarshal(raw, &track); err != nil {
		return
	}
	if track.Name != "" {
		artifact.Title = track.Name
	}
	if track.ArtistName != "" {
		artifact.Artists = []string{track.ArtistName}
	}
	artifact.Album = track.AlbumName
	artifact.ReleaseDate = track.ReleaseDate
}
