// Package youtubeapi searches the YouTube Data API v3 for video candidates.
package youtubeapi

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

// Client is a YouTube Data API client implementing discovery.Provider.
type Client struct {
	apiKey     string
	httpClient *http.Client

	// Overridable for testing
	baseURL string
}

// New creates a YouTube Data API client.
func New(apiKey string, timeout time.Duration) *Client {
	return &Client{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    "https://www.googleapis.com/youtube/v3",
	}
}

func (c *Client) Name() string { return "youtube_api" }

func (c *Client) SourceType() discovery.SourceType { return discovery.SourceTypeAudio }

type searchResponse struct {
	Items []json.RawMessage `json:"items"`
}

type searchItem struct {
	ID struct {
		VideoID string `json:"videoId"`
	} `json:"id"`
	Snippet struct {
		Title        string `json:"title"`
		ChannelTitle string `json:"channelTitle"`
	} `json:"snippet"`
}

// Search queries the search endpoint for videos matching the query.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]discovery.SourceCandidate, error) {
	if c.apiKey == "" {
		return nil, services.NewError(services.KindDiscovery, services.CodeAuthMissing,
			"youtube api key is not set")
	}
	if limit <= 0 {
		limit = 5
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", query)
	params.Set("maxResults", strconv.Itoa(limit))
	params.Set("type", "video")
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, services.WrapError(services.KindDiscovery, services.CodeProviderQueryFailed,
			"build youtube search request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.WrapError(services.KindDiscovery, services.CodeProviderQueryFailed,
			"youtube search request failed", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, services.NewError(services.KindDiscovery, services.CodeAuthFailed,
			fmt.Sprintf("youtube search returned %d", resp.StatusCode))
	case http.StatusTooManyRequests:
		return nil, services.NewError(services.KindDiscovery, services.CodeRateLimited,
			"rate limited by youtube")
	default:
		return nil, services.NewError(services.KindDiscovery, services.CodeProviderQueryFailed,
			fmt.Sprintf("youtube search returned %d", resp.StatusCode))
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, services.WrapError(services.KindDiscovery, services.CodeProviderBadResponse,
			"decode youtube response", err)
	}

	candidates := make([]discovery.SourceCandidate, 0, len(payload.Items))
	for _, raw := range payload.Items {
		var item searchItem
		if err := json.Unmarshal(raw, &item); err != nil {
			continue
		}
		videoID := item.ID.VideoID
		if videoID == "" {
			continue
		}
		title := item.Snippet.Title
		if title == "" {
			title = "Unknown title"
		}
		candidate := discovery.SourceCandidate{
			Provider:    c.Name(),
			SourceType:  c.SourceType(),
			SourceID:    videoID,
			Title:       title,
			ArtistGuess: item.Snippet.ChannelTitle,
			URL:         "https://www.youtube.com/watch?v=" + videoID,
			Raw:         raw,
		}
		candidate.Confidence = discovery.Score(query, candidate, config.DefaultRankingWeights())
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}
