package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const (
	DefaultTimeout      = 30 * time.Second
	DefaultUserAgent    = "qr-to-csv-bot/1.1"
	DefaultMaxBytes     = 50 << 20
	DefaultRetryBackoff = time.Second
)

// ErrBodyTooLarge is wrapped by a FetchError when the document exceeds the size limit.
var ErrBodyTooLarge = errors.New("response body exceeds size limit")

// Config controls how documents are downloaded.
type Config struct {
	Timeout      time.Duration
	UserAgent    string
	MaxBytes     int64
	Retries      int
	RetryBackoff time.Duration
}

// DefaultConfig returns the download settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Timeout:      DefaultTimeout,
		UserAgent:    DefaultUserAgent,
		MaxBytes:     DefaultMaxBytes,
		Retries:      0,
		RetryBackoff: DefaultRetryBackoff,
	}
}

// FetchError describes a failed download of a single URL.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether retrying the request could succeed.
func (e *FetchError) IsTransient() bool {
	if e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests {
		return true
	}
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// Fetcher downloads transfer documents over HTTP(S).
type Fetcher struct {
	client *http.Client
	config Config
}

// NewFetcher creates a fetcher; zero config values fall back to defaults.
func NewFetcher(config Config) *Fetcher {
	defaults := DefaultConfig()
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.UserAgent == "" {
		config.UserAgent = defaults.UserAgent
	}
	if config.MaxBytes <= 0 {
		config.MaxBytes = defaults.MaxBytes
	}
	if config.Retries < 0 {
		config.Retries = 0
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = defaults.RetryBackoff
	}

	return &Fetcher{
		client: &http.Client{Timeout: config.Timeout},
		config: config,
	}
}

// Fetch downloads url and returns the body. Any failure is a *FetchError.
// Transient failures are retried up to the configured number of times with exponential backoff.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	backoff := f.config.RetryBackoff
	for attempt := 0; ; attempt++ {
		body, err := f.fetchOnce(ctx, url)
		if err == nil {
			return body, nil
		}

		var fetchErr *FetchError
		if attempt >= f.config.Retries || !errors.As(err, &fetchErr) || !fetchErr.IsTransient() {
			return nil, err
		}

		slog.Warn("DocumentFetcher: transient failure, retrying",
			"url", url,
			"attempt", attempt+1,
			"backoff_ms", backoff.Milliseconds(),
			"error", err)

		select {
		case <-ctx.Done():
			return nil, &FetchError{URL: url, Err: ctx.Err()}
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("User-Agent", f.config.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBytes+1))
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("failed to read body: %w", err)}
	}
	if int64(len(body)) > f.config.MaxBytes {
		return nil, &FetchError{URL: url, Err: ErrBodyTooLarge}
	}

	slog.Debug("DocumentFetcher: downloaded document",
		"url", url,
		"size_bytes", len(body),
		"duration_ms", time.Since(start).Milliseconds())
	return body, nil
}
