// Package fetch retrieves advisory documents and their companion digest and
// signature files over HTTP(S) or from the local filesystem.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout is the default timeout for HTTP requests
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize is the maximum allowed response size (100MB)
	MaxResponseSize = 100 * 1024 * 1024

	// UserAgent is the user agent string for HTTP requests
	UserAgent = "csaf-walker/1.0"
)

// Client retrieves documents with conditional GETs, bounded retries, and
// polite request pacing.
type Client struct {
	client     *http.Client
	limiter    *rate.Limiter
	retryLimit int
	logger     *zap.Logger
	onRetry    func(err error)
}

// Options configures a Client.
type Options struct {
	// Timeout applies per request. Zero means DefaultTimeout.
	Timeout time.Duration

	// RetryLimit is the number of retries after the initial attempt of a
	// transient failure.
	RetryLimit int

	// RateLimit is the maximum number of requests per second. Zero disables
	// pacing.
	RateLimit float64

	// Logger receives debug-level fetch events. Nil means zap.NewNop().
	Logger *zap.Logger

	// OnRetry is invoked before each retry of a transient failure.
	OnRetry func(err error)
}

// NewClient creates a new retrieval client.
func NewClient(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	onRetry := opts.OnRetry
	if onRetry == nil {
		onRetry = func(error) {}
	}
	return &Client{
		client:     &http.Client{Timeout: opts.Timeout},
		limiter:    limiter,
		retryLimit: opts.RetryLimit,
		logger:     opts.Logger,
		onRetry:    onRetry,
	}
}

// Document retrieves url, issuing a conditional GET when validators from a
// prior pass are present. Transient failures are retried with exponential
// backoff up to the configured limit; the returned error is always a
// classified *Error.
func (c *Client) Document(ctx context.Context, rawURL string, validators Validators) (*Result, error) {
	if isLocal(rawURL) {
		return c.readLocal(rawURL)
	}

	operation := func() (*Result, error) {
		res, err := c.get(ctx, rawURL, validators)
		if err != nil {
			if IsTransient(err) {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		return res, nil
	}

	res, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(c.retryLimit)+1),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.onRetry(err)
			c.logger.Debug("Retrying fetch",
				zap.String("url", rawURL),
				zap.Duration("backoff", next),
				zap.Error(err))
		}),
	)
	if err != nil {
		return nil, classify(rawURL, err)
	}
	return res, nil
}

// Companion retrieves a digest or signature file next to a document. Absence
// of the file (404 or 410) is not an error: the result is simply nil bytes.
func (c *Client) Companion(ctx context.Context, rawURL string) ([]byte, error) {
	res, err := c.Document(ctx, rawURL, Validators{})
	if err != nil {
		var fe *Error
		if errors.As(err, &fe) && (fe.StatusCode == http.StatusNotFound || fe.StatusCode == http.StatusGone) {
			return nil, nil
		}
		return nil, err
	}
	return res.Body, nil
}

// get performs a single HTTP attempt.
func (c *Client) get(ctx context.Context, rawURL string, validators Validators) (*Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &Error{URL: rawURL, Transient: false, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{URL: rawURL, Transient: false, Err: err}
	}
	req.Header.Set("User-Agent", UserAgent)
	if validators.ETag != "" {
		req.Header.Set("If-None-Match", validators.ETag)
	}
	if validators.LastModified != "" {
		req.Header.Set("If-Modified-Since", validators.LastModified)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		// Network-level failures (timeouts, connection resets) are worth
		// another attempt unless the context is already done.
		transient := ctx.Err() == nil
		return nil, &Error{URL: rawURL, Transient: transient, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		return &Result{NotModified: true, FetchedAt: time.Now()}, nil
	case resp.StatusCode >= 500:
		return nil, &Error{URL: rawURL, StatusCode: resp.StatusCode, Transient: true}
	case resp.StatusCode != http.StatusOK:
		return nil, &Error{URL: rawURL, StatusCode: resp.StatusCode, Transient: false}
	}

	if resp.ContentLength > MaxResponseSize {
		return nil, &Error{
			URL: rawURL,
			Err: fmt.Errorf("response size %d bytes exceeds maximum allowed size of %d bytes", resp.ContentLength, MaxResponseSize),
		}
	}

	// Read response body with size limit; +1 to detect if limit exceeded
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, &Error{URL: rawURL, Transient: ctx.Err() == nil, Err: fmt.Errorf("failed to read response body: %w", err)}
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, &Error{
			URL: rawURL,
			Err: fmt.Errorf("response size exceeds maximum allowed size of %d bytes", MaxResponseSize),
		}
	}

	c.logger.Debug("Fetched document",
		zap.String("url", rawURL),
		zap.Int("bytes", len(body)),
		zap.Int("status", resp.StatusCode))

	return &Result{
		Body:         body,
		ContentType:  resp.Header.Get("Content-Type"),
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
		FetchedAt:    time.Now(),
	}, nil
}

// readLocal serves file paths and file:// URLs so local provider mirrors can
// be walked without a web server.
func (c *Client) readLocal(rawURL string) (*Result, error) {
	path := strings.TrimPrefix(rawURL, "file://")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &Error{URL: rawURL, StatusCode: http.StatusNotFound, Err: err}
		}
		return nil, &Error{URL: rawURL, Err: err}
	}
	return &Result{Body: data, FetchedAt: time.Now()}, nil
}

// isLocal reports whether rawURL refers to the local filesystem.
func isLocal(rawURL string) bool {
	if strings.HasPrefix(rawURL, "file://") {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	return u.Scheme == ""
}

// classify normalizes errors coming out of the retry loop into *Error.
func classify(rawURL string, err error) *Error {
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}
	return &Error{URL: rawURL, Err: err}
}
