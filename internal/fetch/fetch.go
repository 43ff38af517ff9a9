// Package fetch retrieves raw billing export bytes from disk or over HTTP.
package fetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

const (
	// DefaultTimeout bounds a single HTTP attempt.
	DefaultTimeout = 30 * time.Second

	// DefaultRetries is the number of retries after the first attempt.
	DefaultRetries = 1
)

// Source is one fetched export.
type Source struct {
	Location string // path or URL as configured
	Name     string // file name used for format detection
	Data     []byte
}

// StatusError reports a non-success HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetching %s: unexpected status %d", e.URL, e.StatusCode)
}

// Fetcher reads sources from the local filesystem or HTTP(S).
type Fetcher struct {
	client *retryablehttp.Client
	log    zerolog.Logger
}

// Option configures the Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the per-attempt HTTP timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(f *Fetcher) {
		if timeout > 0 {
			f.client.HTTPClient.Timeout = timeout
		}
	}
}

// WithRetries sets how many times a failed request is retried.
func WithRetries(n int) Option {
	return func(f *Fetcher) {
		f.client.RetryMax = n
	}
}

// WithRetryWait sets the backoff bounds between attempts.
func WithRetryWait(minWait, maxWait time.Duration) Option {
	return func(f *Fetcher) {
		f.client.RetryWaitMin = minWait
		f.client.RetryWaitMax = maxWait
	}
}

// WithLogger sets the logger for fetch and retry events.
func WithLogger(log zerolog.Logger) Option {
	return func(f *Fetcher) {
		f.log = log
	}
}

// New creates a Fetcher with the given options.
func New(opts ...Option) *Fetcher {
	client := retryablehttp.NewClient()
	client.RetryMax = DefaultRetries
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = DefaultTimeout
	// Hand the last response back so the status code reaches the caller.
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	f := &Fetcher{client: client, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(f)
	}
	client.Logger = leveledLogger{log: f.log}
	return f
}

// IsRemote reports whether location is fetched over HTTP.
func IsRemote(location string) bool {
	return strings.HasPrefix(strings.ToLower(location), "http")
}

// Fetch returns the bytes at location. Missing files and failed or
// non-2xx HTTP responses are errors; ingestion cannot continue without them.
func (f *Fetcher) Fetch(ctx context.Context, location string) (Source, error) {
	f.log.Info().Str("source", location).Msg("fetching")
	if !IsRemote(location) {
		data, err := os.ReadFile(location)
		if err != nil {
			return Source{}, fmt.Errorf("reading %s: %w", location, err)
		}
		return Source{Location: location, Name: filepath.Base(location), Data: data}, nil
	}
	return f.fetchURL(ctx, location)
}

func (f *Fetcher) fetchURL(ctx context.Context, location string) (Source, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return Source{}, fmt.Errorf("creating request for %s: %w", location, err)
	}

	// With the passthrough handler a retry-exhausted 5xx arrives as both a
	// response and an error; the status check below reports it.
	resp, err := f.client.Do(req)
	if resp == nil {
		return Source{}, fmt.Errorf("fetching %s: %w", location, err)
	}
	defer resp.Body.Close()

	finalURL := location
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	f.log.Info().
		Int("status", resp.StatusCode).
		Str("url", finalURL).
		Str("content_type", resp.Header.Get("Content-Type")).
		Int64("content_length", resp.ContentLength).
		Msg("fetch response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Source{}, &StatusError{URL: finalURL, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Source{}, fmt.Errorf("reading body of %s: %w", location, err)
	}
	return Source{Location: location, Name: remoteName(resp, finalURL), Data: data}, nil
}

// remoteName prefers the Content-Disposition file name, then the last path
// segment of the final URL.
func remoteName(resp *http.Response, finalURL string) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil && params["filename"] != "" {
			return path.Base(params["filename"])
		}
	}
	u, err := url.Parse(finalURL)
	if err != nil {
		return ""
	}
	return path.Base(u.Path)
}

// leveledLogger adapts zerolog to retryablehttp.LeveledLogger.
type leveledLogger struct {
	log zerolog.Logger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.log.Error().Fields(kv).Msg(msg) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.log.Debug().Fields(kv).Msg(msg) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.log.Debug().Fields(kv).Msg(msg) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.log.Warn().Fields(kv).Msg(msg) }
