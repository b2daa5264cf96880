// Package spotify searches the Spotify Web API catalog for metadata-only
// candidates using the client-credentials flow.
package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"earshot/internal/config"
	"earshot/internal/discovery"
	"earshot/internal/services"
)

// Client is a Spotify Web API client implementing discovery.Provider.
type Client struct {
	clientID     string
	clientSecret string
	market       string
	httpClient   *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time

	// Overridable for testing
	tokenURL string
	apiURL   string
}

// New creates a Spotify client.
func New(clientID, clientSecret, market string, timeout time.Duration) *Client {
	return &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		market:       market,
		httpClient:   &http.Client{Timeout: timeout},
		tokenURL:     "https://accounts.spotify.com/api/token",
		apiURL:       "https://api.spotify.com/v1",
	}
}

func (c *Client) Name() string { return "spotify" }

func (c *Client) SourceType() discovery.SourceType { return discovery.SourceTypeMetadata }

// getToken returns a cached app token, refreshing it when expired.
func (c *Client) getToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	body := strings.NewReader("grant_type=client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, body)
	if err != nil {
		return "", services.WrapError(services.KindDiscovery, services.CodeAuthFailed,
			"build spotify token request", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", services.WrapError(services.KindDiscovery, services.CodeAuthFailed,
			"spotify token request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", services.NewError(services.KindDiscovery, services.CodeAuthFailed,
			fmt.Sprintf("spotify token request returned %d", resp.StatusCode))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", services.WrapError(services.KindDiscovery, services.CodeAuthFailed,
			"decode spotify token response", err)
	}
	if payload.AccessToken == "" {
		return "", services.NewError(services.KindDiscovery, services.CodeAuthFailed,
			"missing access_token in spotify response")
	}

	c.accessToken = payload.AccessToken
	// Refresh one minute early to avoid mid-request expiry.
	c.tokenExpiry = time.Now().Add(time.Duration(payload.ExpiresIn)*time.Second - time.Minute)
	return c.accessToken, nil
}

type searchResponse struct {
	Tracks struct {
		Items []json.RawMessage `json:"items"`
	} `json:"tracks"`
}

type trackItem struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	DurationMs int    `json:"duration_ms"`
	Artists    []struct {
		Name string `json:"name"`
	} `json:"artists"`
	ExternalURLs struct {
		Spotify string `json:"spotify"`
	} `json:"external_urls"`
}

// Search queries the track search endpoint in the configured market.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]discovery.SourceCandidate, error) {
	if c.clientID == "" || c.clientSecret == "" {
		return nil, services.NewError(services.KindDiscovery, services.CodeAuthMissing,
			"spotify credentials are not set")
	}
	if limit <= 0 {
		limit = 5
	}

	token, err := c.getToken(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "track")
	params.Set("limit", strconv.Itoa(limit))
	if c.market != "" {
		params.Set("market", c.market)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, services.WrapError(services.KindDiscovery, services.CodeProviderQueryFailed,
			"build spotify search request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.WrapError(services.KindDiscovery, services.CodeProviderQueryFailed,
			"spotify search request failed", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		retryAfter := resp.Header.Get("Retry-After")
		return nil, services.NewError(services.KindDiscovery, services.CodeRateLimited,
			fmt.Sprintf("rate limited by spotify (Retry-After: %s)", retryAfter))
	case http.StatusUnauthorized:
		return nil, services.NewError(services.KindDiscovery, services.CodeAuthFailed,
			"spotify rejected the access token")
	default:
		return nil, services.NewError(services.KindDiscovery, services.CodeProviderQueryFailed,
			fmt.Sprintf("spotify search returned %d", resp.StatusCode))
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, services.WrapError(services.KindDiscovery, services.CodeProviderBadResponse,
			"decode spotify response", err)
	}

	candidates := make([]discovery.SourceCandidate, 0, len(payload.Tracks.Items))
	for _, raw := range payload.Tracks.Items {
		var item trackItem
		if err := json.Unmarshal(raw, &item); err != nil {
			continue
		}
		if item.ID == "" {
			continue
		}
		title := item.Name
		if title == "" {
			title = "Unknown title"
		}
		var artist string
		if len(item.Artists) > 0 {
			artist = item.Artists[0].Name
		}
		candidate := discovery.SourceCandidate{
			Provider:    c.Name(),
			SourceType:  c.SourceType(),
			SourceID:    item.ID,
			Title:       title,
			ArtistGuess: artist,
			DurationSec: float64(item.DurationMs) / 1000,
			URL:         item.ExternalURLs.Spotify,
			Raw:         raw,
		}
		candidate.Confidence = discovery.Score(query, candidate, config.DefaultRankingWeights())
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}
