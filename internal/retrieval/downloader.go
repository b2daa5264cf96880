package retrieval

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"earshot/internal/discovery"
	"earshot/internal/providers/ytdlp"
	"earshot/internal/services"
)

// MediaDownloader retrieves audio either through yt-dlp (video-hosting
// sources) or a plain HTTP download (licensed-audio sources with direct
// download URLs).
type MediaDownloader struct {
	ytdlp      *ytdlp.Client
	httpClient *http.Client
}

// NewMediaDownloader constructs a MediaDownloader. The yt-dlp client may be
// nil when the ytdlp provider is not configured; downloads that need it then
// fail with TOOL_MISSING.
func NewMediaDownloader(client *ytdlp.Client, timeout time.Duration) *MediaDownloader {
	return &MediaDownloader{
		ytdlp:      client,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Download fetches audio for source into destDir with key as the file stem.
func (d *MediaDownloader) Download(ctx context.Context, source discovery.SourceCandidate, destDir, key, format string) error {
	if source.Provider == "jamendo" {
		return d.downloadHTTP(ctx, source.URL, destDir, key, format)
	}
	if d.ytdlp == nil {
		return services.NewError(services.KindRetrieval, services.CodeToolMissing,
			"yt-dlp is not configured for audio retrieval")
	}
	template := filepath.Join(destDir, key+".%(ext)s")
	return d.ytdlp.Download(ctx, source.URL, template, format)
}

func (d *MediaDownloader) downloadHTTP(ctx context.Context, rawURL, destDir, key, format string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return services.WrapError(services.KindRetrieval, services.CodeHTTPFailed, "build download request", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return services.WrapError(services.KindRetrieval, services.CodeTimeout, "audio download timed out", err)
		}
		return services.WrapError(services.KindRetrieval, services.CodeHTTPFailed, "audio download failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return services.NewError(services.KindRetrieval, services.CodeHTTPFailed,
			fmt.Sprintf("audio download returned %d", resp.StatusCode))
	}

	ext := extensionFor(rawURL, resp.Header.Get("Content-Type"), format)
	destPath := filepath.Join(destDir, key+"."+ext)

	tmp, err := os.CreateTemp(destDir, key+".part-*")
	if err != nil {
		return services.WrapError(services.KindRetrieval, services.CodeHTTPFailed, "create download file", err)
	}
	tmpPath := tmp.Name()

	written, copyErr := io.Copy(tmp, resp.Body)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(tmpPath)
		if errors.Is(copyErr, context.DeadlineExceeded) {
			return services.WrapError(services.KindRetrieval, services.CodeTimeout, "audio download timed out", copyErr)
		}
		return services.WrapError(services.KindRetrieval, services.CodeHTTPFailed, "write audio file", errors.Join(copyErr, closeErr))
	}
	if written == 0 {
		_ = os.Remove(tmpPath)
		return services.NewError(services.KindRetrieval, services.CodeEmptyContent,
			"audio download produced an empty file")
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		_ = os.Remove(tmpPath)
		return services.WrapError(services.KindRetrieval, services.CodeHTTPFailed, "finalize audio file", err)
	}
	return nil
}

// extensionFor picks the output extension from the URL path, then the
// content type, then the configured format.
func extensionFor(rawURL, contentType, fallback string) string {
	if parsed, err := url.Parse(rawURL); err == nil {
		if ext := strings.TrimPrefix(filepath.Ext(parsed.Path), "."); ext != "" {
			return ext
		}
	}
	switch {
	case strings.Contains(contentType, "mpeg"):
		return "mp3"
	case strings.Contains(contentType, "ogg"):
		return "ogg"
	case strings.Contains(contentType, "flac"):
		return "flac"
	case strings.Contains(contentType, "wav"):
		return "wav"
	}
	return fallback
}
