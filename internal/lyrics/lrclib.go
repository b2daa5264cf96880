package lyrics

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"earshot/internal/discovery"
	"earshot/internal/textutil"
)

// Client queries the lrclib search API.
type Client struct {
	httpClient *http.Client

	// Overridable for testing
	baseURL string
}

// NewClient constructs an lrclib client.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    "https://lrclib.net/api",
	}
}

type lrclibItem struct {
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	Duration     float64 `json:"duration"`
	Lang         string  `json:"lang"`
	PlainLyrics  string  `json:"plainLyrics"`
	SyncedLyrics string  `json:"syncedLyrics"`
}

// candidateScore ranks an lrclib result against the source: title similarity
// dominates, artist similarity and duration closeness refine it. Duration
// differences are forgiven up to 45 seconds.
func candidateScore(source discovery.SourceCandidate, item lrclibItem) float64 {
	titleScore := textutil.SequenceRatio(textutil.Normalize(source.Title), textutil.Normalize(item.TrackName))

	var artistScore float64
	if source.ArtistGuess != "" && item.ArtistName != "" {
		artistScore = textutil.SequenceRatio(textutil.Normalize(source.ArtistGuess), textutil.Normalize(item.ArtistName))
	}

	durationScore := 0.5
	if source.DurationSec > 0 && item.Duration > 0 {
		delta := math.Abs(source.DurationSec - item.Duration)
		durationScore = math.Max(0, 1.0-delta/45.0)
	}

	return 0.55*titleScore + 0.30*artistScore + 0.15*durationScore
}

// Fetch searches lrclib for the source's lyrics. It tries a title+artist
// query first and falls back to a title-only query; the best-scoring result
// wins, with synced lyrics preferred over plain text.
func (c *Client) Fetch(ctx context.Context, source discovery.SourceCandidate) Artifact {
	paramSets := []url.Values{
		{"track_name": {source.Title}, "artist_name": {strings.TrimSpace(source.ArtistGuess)}},
		{"track_name": {source.Title}},
	}

	var (
		best      lrclibItem
		bestScore = -1.0
		found     bool
	)
	for _, params := range paramSets {
		items, ok := c.search(ctx, params)
		if !ok {
			continue
		}
		for _, item := range items {
			if score := candidateScore(source, item); score > bestScore {
				bestScore = score
				best = item
				found = true
			}
		}
		if found {
			break
		}
	}

	if !found {
		return noneArtifact("LYRICS_NOT_FOUND")
	}

	text, isSynced := extractText(best)
	if text == "" {
		return noneArtifact("LYRICS_EMPTY_PAYLOAD")
	}

	return Artifact{
		Source:             SourceLrclib,
		Text:               text,
		Language:           best.Lang,
		IsSynced:           isSynced,
		ProviderConfidence: math.Round(bestScore*10000) / 10000,
	}
}

func (c *Client) search(ctx context.Context, params url.Values) ([]lrclibItem, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, false
	}
	var items []lrclibItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, false
	}
	return items, true
}

func extractText(item lrclibItem) (string, bool) {
	if synced := strings.TrimSpace(item.SyncedLyrics); synced != "" {
		return synced, true
	}
	if plain := strings.TrimSpace(item.PlainLyrics); plain != "" {
		return plain, false
	}
	return "", false
}
