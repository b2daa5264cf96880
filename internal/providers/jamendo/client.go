// Package jamendo searches the Jamendo catalog of licensed tracks. Jamendo
// exposes direct download URLs, so its candidates are audio-retrievable over
// plain HTTP.
package jamendo

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

// Client is a Jamendo API client implementing discovery.Provider.
type Client struct {
	clientID   string
	httpClient *http.Client

	// Overridable for testing
	baseURL string
}

// New creates a Jamendo client.
func New(clientID string, timeout time.Duration) *Client {
	return &Client{
		clientID:   clientID,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    "https://api.jamendo.com/v3.0",
	}
}

func (c *Client) Name() string { return "jamendo" }

func (c *Client) SourceType() discovery.SourceType { return discovery.SourceTypeAudio }

type tracksResponse struct {
	Results []json.RawMessage `json:"results"`
}

type trackResult struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	ArtistName    string  `json:"artist_name"`
	Duration      float64 `json:"duration"`
	Audio         string  `json:"audio"`
	AudioDownload string  `json:"audiodownload"`
}

// Search queries the tracks endpoint.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]discovery.SourceCandidate, error) {
	if c.clientID == "" {
		return nil, services.NewError(services.KindDiscovery, services.CodeAuthMissing,
			"jamendo client id is not set")
	}
	if limit <= 0 {
		limit = 5
	}

	params := url.Values{}
	params.Set("client_id", c.clientID)
	params.Set("format", "json")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("search", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/tracks/?"+params.Encode(), nil)
	if err != nil {
		return nil, services.WrapError(services.KindDiscovery, services.CodeProviderQueryFailed,
			"build jamendo request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.WrapError(services.KindDiscovery, services.CodeProviderQueryFailed,
			"jamendo request failed", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, services.NewError(services.KindDiscovery, services.CodeAuthFailed,
			fmt.Sprintf("jamendo returned %d", resp.StatusCode))
	case http.StatusTooManyRequests:
		return nil, services.NewError(services.KindDiscovery, services.CodeRateLimited,
			"rate limited by jamendo")
	default:
		return nil, services.NewError(services.KindDiscovery, services.CodeProviderQueryFailed,
			fmt.Sprintf("jamendo returned %d", resp.StatusCode))
	}

	var payload tracksResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, services.WrapError(services.KindDiscovery, services.CodeProviderBadResponse,
			"decode jamendo response", err)
	}

	candidates := make([]discovery.SourceCandidate, 0, len(payload.Results))
	for _, raw := range payload.Results {
		var track trackResult
		if err := json.Unmarshal(raw, &track); err != nil {
			continue
		}
		if track.ID == "" {
			continue
		}
		title := track.Name
		if title == "" {
			title = "Unknown title"
		}
		downloadURL := track.AudioDownload
		if downloadURL == "" {
			downloadURL = track.Audio
		}
		candidate := discovery.SourceCandidate{
			Provider:    c.Name(),
			SourceType:  c.SourceType(),
			SourceID:    track.ID,
			Title:       title,
			ArtistGuess: track.ArtistName,
			DurationSec: track.Duration,
			URL:         downloadURL,
			Raw:         raw,
		}
		candidate.Confidence = discovery.Score(query, candidate, config.DefaultRankingWeights())
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}
