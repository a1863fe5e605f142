// Package fetch downloads résumé blobs over HTTP or from the S3-compatible object store.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent is the user agent string for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (compatible; CandidatePipeline/1.0)"

// DefaultMaxBytes caps how much of a response body is read.
const DefaultMaxBytes int64 = 20 << 20

// DownloadError is returned when a blob cannot be retrieved.
// StatusCode is zero when no HTTP response was received.
type DownloadError struct {
	URL        string
	StatusCode int
	Message    string
	Cause      error
}

func (e *DownloadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("download error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("download error for %s: %s", e.URL, e.Message)
}

func (e *DownloadError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether another attempt could succeed
func (e *DownloadError) Retryable() bool {
	if e.StatusCode == 0 {
		return e.Cause != nil
	}
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Options configures the download behavior.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Headers   map[string]string
	MaxBytes  int64
	// Attempts is the total number of tries, including the first.
	Attempts int
	Backoff  time.Duration
}

// DefaultOptions returns sensible defaults for downloading.
func DefaultOptions() *Options {
	return &Options{
		Timeout:   DefaultTimeout,
		UserAgent: DefaultUserAgent,
		MaxBytes:  DefaultMaxBytes,
		Attempts:  1,
		Backoff:   500 * time.Millisecond,
	}
}

// ObjectGetter reads objects addressed by s3://bucket/key URLs
type ObjectGetter interface {
	Get(ctx context.Context, bucket, key string) ([]byte, error)
}

// Downloader retrieves résumé bytes by URL
type Downloader struct {
	opts    *Options
	client  *http.Client
	objects ObjectGetter
}

// NewDownloader creates a Downloader. objects may be nil when s3:// URLs are not used.
func NewDownloader(opts *Options, objects ObjectGetter) *Downloader {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	return &Downloader{
		opts:    opts,
		client:  &http.Client{Timeout: opts.Timeout},
		objects: objects,
	}
}

// Download returns the body at urlStr. Only transport errors, 5xx and 429 are retried.
func (d *Downloader) Download(ctx context.Context, urlStr string) ([]byte, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, &DownloadError{
			URL:     urlStr,
			Message: "invalid URL",
			Cause:   err,
		}
	}

	if parsedURL.Scheme == "s3" {
		return d.downloadObject(ctx, urlStr, parsedURL)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, &DownloadError{
			URL:     urlStr,
			Message: fmt.Sprintf("unsupported scheme %q", parsedURL.Scheme),
		}
	}

	var lastErr *DownloadError
	for attempt := 1; attempt <= d.opts.Attempts; attempt++ {
		body, dlErr := d.get(ctx, urlStr)
		if dlErr == nil {
			return body, nil
		}
		lastErr = dlErr
		if !dlErr.Retryable() || attempt == d.opts.Attempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, &DownloadError{URL: urlStr, Message: "cancelled", Cause: ctx.Err()}
		case <-time.After(d.opts.Backoff * time.Duration(attempt)):
		}
	}
	return nil, lastErr
}

func (d *Downloader) get(ctx context.Context, urlStr string) ([]byte, *DownloadError) {
	req, err := http.NewRequestWithContext(ctx, "GET", urlStr, nil)
	if err != nil {
		return nil, &DownloadError{
			URL:     urlStr,
			Message: "failed to create request",
			Cause:   err,
		}
	}

	req.Header.Set("User-Agent", d.opts.UserAgent)
	for key, value := range d.opts.Headers {
		req.Header.Set(key, value)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, &DownloadError{
			URL:     urlStr,
			Message: "HTTP request failed",
			Cause:   err,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &DownloadError{
			URL:        urlStr,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("HTTP status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, d.opts.MaxBytes+1))
	if err != nil {
		return nil, &DownloadError{
			URL:        urlStr,
			StatusCode: resp.StatusCode,
			Message:    "failed to read response body",
			Cause:      err,
		}
	}
	if int64(len(body)) > d.opts.MaxBytes {
		return nil, &DownloadError{
			URL:        urlStr,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("body exceeds %d bytes", d.opts.MaxBytes),
		}
	}

	return body, nil
}

func (d *Downloader) downloadObject(ctx context.Context, urlStr string, u *url.URL) ([]byte, error) {
	if d.objects == nil {
		return nil, &DownloadError{URL: urlStr, Message: "object store not configured"}
	}
	bucket, key, ok := ParseObjectURL(u)
	if !ok {
		return nil, &DownloadError{URL: urlStr, Message: "object URL must be s3://bucket/key"}
	}

	body, err := d.objects.Get(ctx, bucket, key)
	if err != nil {
		return nil, &DownloadError{URL: urlStr, Message: "failed to get object", Cause: err}
	}
	return body, nil
}
