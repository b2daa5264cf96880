// Package ytdlp wraps the yt-dlp binary for candidate search and audio
// download.
package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"earshot/internal/config"
	"earshot/internal/discovery"
	"earshot/internal/services"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) ([]byte, error)
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps yt-dlp CLI interactions.
type Client struct {
	binary        string
	searchTimeout time.Duration
	exec          Executor
}

// New constructs a yt-dlp client.
func New(binary string, searchTimeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("yt-dlp binary required")
	}
	client := &Client{
		binary:        binary,
		searchTimeout: time.Duration(searchTimeoutSeconds) * time.Second,
		exec:          commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

func (c *Client) Name() string { return "ytdlp" }

func (c *Client) SourceType() discovery.SourceType { return discovery.SourceTypeAudio }

type searchEntry struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Uploader   string  `json:"uploader"`
	Channel    string  `json:"channel"`
	Duration   float64 `json:"duration"`
	WebpageURL string  `json:"webpage_url"`
}

// Search runs a yt-dlp flat search and converts each entry into a candidate.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]discovery.SourceCandidate, error) {
	if limit <= 0 {
		limit = 5
	}
	searchCtx := ctx
	if c.searchTimeout > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, c.searchTimeout)
		defer cancel()
	}

	args := []string{
		"--dump-single-json",
		"--skip-download",
		fmt.Sprintf("ytsearch%d:%s", limit, query),
	}
	stdout, err := c.exec.Run(searchCtx, c.binary, args)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, services.WrapError(services.KindDiscovery, services.CodeProviderBinaryMissing,
				fmt.Sprintf("%s is not installed", c.binary), err)
		}
		return nil, services.WrapError(services.KindDiscovery, services.CodeProviderQueryFailed,
			"yt-dlp search failed", err)
	}

	var payload struct {
		Entries []json.RawMessage `json:"entries"`
	}
	if err := json.Unmarshal(stdout, &payload); err != nil {
		return nil, services.WrapError(services.KindDiscovery, services.CodeProviderBadResponse,
			"yt-dlp returned malformed JSON", err)
	}

	candidates := make([]discovery.SourceCandidate, 0, len(payload.Entries))
	for _, raw := range payload.Entries {
		var entry searchEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		if entry.ID == "" {
			continue
		}
		title := entry.Title
		if title == "" {
			title = "Unknown title"
		}
		artist := entry.Uploader
		if artist == "" {
			artist = entry.Channel
		}
		url := entry.WebpageURL
		if url == "" {
			url = "https://www.youtube.com/watch?v=" + entry.ID
		}
		candidate := discovery.SourceCandidate{
			Provider:    c.Name(),
			SourceType:  c.SourceType(),
			SourceID:    entry.ID,
			Title:       title,
			ArtistGuess: artist,
			DurationSec: entry.Duration,
			URL:         url,
			Raw:         raw,
		}
		candidate.Confidence = discovery.Score(query, candidate, config.DefaultRankingWeights())
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}

// Download extracts audio for url into outputTemplate (a yt-dlp -o template).
// Errors carry retrieval-kind codes.
func (c *Client) Download(ctx context.Context, url, outputTemplate, format string) error {
	args := []string{
		"-x",
		"--audio-format", format,
		"--audio-quality", "0",
		"-o", outputTemplate,
		url,
	}
	if _, err := c.exec.Run(ctx, c.binary, args); err != nil {
		switch {
		case errors.Is(err, exec.ErrNotFound):
			return services.WrapError(services.KindRetrieval, services.CodeToolMissing,
				fmt.Sprintf("%s is not installed", c.binary), err)
		case errors.Is(err, context.DeadlineExceeded):
			return services.WrapError(services.KindRetrieval, services.CodeTimeout,
				"audio retrieval timed out", err)
		default:
			return services.WrapError(services.KindRetrieval, services.CodeToolFailed,
				"yt-dlp download failed", err)
		}
	}
	return nil
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %v", ctxErr, err)
		}
		if detail := strings.TrimSpace(stderr.String()); detail != "" {
			return nil, fmt.Errorf("%w: %s", err, detail)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}
