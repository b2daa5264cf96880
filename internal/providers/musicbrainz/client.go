// Package musicbrainz searches the MusicBrainz recording index for
// metadata-only candidates.
package musicbrainz

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"earshot/internal/config"
	"earshot/internal/discovery"
	"earshot/internal/services"
)

const userAgent = "earshot/0.1 (https://github.com/earshot/earshot)"

// Client is a MusicBrainz web-service client implementing discovery.Provider.
type Client struct {
	httpClient *http.Client

	// Overridable for testing
	baseURL string
}

// New creates a MusicBrainz client.
func New(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    "https://musicbrainz.org/ws/2",
	}
}

func (c *Client) Name() string { return "musicbrainz" }

func (c *Client) SourceType() discovery.SourceType { return discovery.SourceTypeMetadata }

type recordingResponse struct {
	Recordings []json.RawMessage `json:"recordings"`
}

type recording struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	LengthMs     int    `json:"length"`
	ArtistCredit []struct {
		Artist struct {
			Name string `json:"name"`
		} `json:"artist"`
	} `json:"artist-credit"`
}

// Search queries the recording endpoint. MusicBrainz has no audio to
// retrieve, so every candidate is metadata-only with no URL.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]discovery.SourceCandidate, error) {
	if limit <= 0 {
		limit = 5
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("fmt", "json")
	params.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/recording?"+params.Encode(), nil)
	if err != nil {
		return nil, services.WrapError(services.KindDiscovery, services.CodeProviderQueryFailed,
			"build musicbrainz request", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.WrapError(services.KindDiscovery, services.CodeProviderQueryFailed,
			"musicbrainz request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusServiceUnavailable {
		return nil, services.NewError(services.KindDiscovery, services.CodeRateLimited,
			"rate limited by musicbrainz")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, services.NewError(services.KindDiscovery, services.CodeProviderQueryFailed,
			fmt.Sprintf("musicbrainz returned %d", resp.StatusCode))
	}

	var payload recordingResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, services.WrapError(services.KindDiscovery, services.CodeProviderBadResponse,
			"decode musicbrainz response", err)
	}

	candidates := make([]discovery.SourceCandidate, 0, len(payload.Recordings))
	for _, raw := range payload.Recordings {
		var rec recording
		if err := json.Unmarshal(raw, &rec); err != nil {
			continue
		}
		if rec.ID == "" {
			continue
		}
		title := rec.Title
		if title == "" {
			title = "Unknown title"
		}
		var artist string
		if len(rec.ArtistCredit) > 0 {
			artist = rec.ArtistCredit[0].Artist.Name
		}
		candidate := discovery.SourceCandidate{
			Provider:    c.Name(),
			SourceType:  c.SourceType(),
			SourceID:    rec.ID,
			Title:       title,
			ArtistGuess: artist,
			DurationSec: float64(rec.LengthMs) / 1000,
			Raw:         raw,
		}
		candidate.Confidence = discovery.Score(query, candidate, config.DefaultRankingWeights())
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}
