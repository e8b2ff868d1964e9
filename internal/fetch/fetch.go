package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	log "github.com/sirupsen/logrus"
)

// Options tunes the retry policy of a Client.
type Options struct {
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

// Client downloads remote media (source clips, music, overlay images,
// thumbnails) so ffmpeg only ever sees local paths.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a robust HTTP client with retries.
func NewClient(opts Options) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.RetryMax
	retryClient.RetryWaitMin = opts.RetryWaitMin
	retryClient.RetryWaitMax = opts.RetryWaitMax
	retryClient.Logger = nil // Silence default debug logger
	// Hand back the last response once retries run out so Download can
	// report its status instead of an opaque "giving up" error.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{httpClient: retryClient.StandardClient()}
}

// StatusError reports a non-2xx response. For 5xx and 429 it is the last
// response after the retries ran out.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("download %s: status %d", e.URL, e.StatusCode)
}

// IsRemote reports whether src should be downloaded rather than opened.
func IsRemote(src string) bool {
	u, err := url.Parse(src)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Localize returns a local path for src, downloading it into destDir when it
// is an http(s) URL. Local paths are returned unchanged.
func (c *Client) Localize(ctx context.Context, src, destDir string) (string, error) {
	if !IsRemote(src) {
		return src, nil
	}
	return c.Download(ctx, src, destDir)
}

// Download saves rawURL into destDir and returns the file path. The file
// name keeps the URL's extension so ffmpeg can pick a demuxer.
func (c *Client) Download(ctx context.Context, rawURL, destDir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create download dir: %w", err)
	}
	dest := filepath.Join(destDir, localName(req.URL))

	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dest, err)
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("failed to write %s: %w", dest, err)
	}

	log.WithFields(log.Fields{"url": rawURL, "path": dest, "bytes": n}).Debug("Downloaded asset.")
	return dest, nil
}

// localName picks a collision-free file name that keeps the extension.
func localName(u *url.URL) string {
	ext := strings.ToLower(path.Ext(u.Path))
	if len(ext) > 8 || strings.ContainsAny(ext, `/\`) {
		ext = ""
	}
	return uuid.NewString() + ext
}
