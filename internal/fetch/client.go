package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"feedwatch/internal/clock"
	"feedwatch/internal/logging"
)

const maxBodyBytes = 4 << 20

// RequestRecorder receives request accounting from the client.
type RequestRecorder interface {
	RequestStarted()
	RequestSucceeded(latency time.Duration)
	RequestFailed()
	RetryCountChanged(n int)
}

type nopRecorder struct{}

func (nopRecorder) RequestStarted()                {}
func (nopRecorder) RequestSucceeded(time.Duration) {}
func (nopRecorder) RequestFailed()                 {}
func (nopRecorder) RetryCountChanged(int)          {}

type Options struct {
	// MaxRetries is the total number of attempts per request. Values below 1
	// are treated as 1.
	MaxRetries int

	// RetryDelay is the base backoff; the wait after attempt i (0-based) is
	// RetryDelay * 2^i.
	RetryDelay time.Duration

	// RequestTimeout bounds each individual attempt.
	RequestTimeout time.Duration

	HTTPClient *http.Client
	Clock      clock.Clock
	Recorder   RequestRecorder
	Logger     *slog.Logger
}

// Client performs JSON GET requests with a per-attempt timeout and
// exponential backoff between attempts. It does not cache.
type Client struct {
	maxRetries int
	retryDelay time.Duration
	timeout    time.Duration
	http       *http.Client
	clock      clock.Clock
	recorder   RequestRecorder
	logger     *slog.Logger
}

func NewClient(opts Options) *Client {
	c := &Client{
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
		timeout:    opts.RequestTimeout,
		http:       opts.HTTPClient,
		clock:      clock.OrReal(opts.Clock),
		recorder:   opts.Recorder,
		logger:     logging.OrDefault(opts.Logger),
	}
	if c.maxRetries < 1 {
		c.maxRetries = 1
	}
	if c.timeout <= 0 {
		c.timeout = 10 * time.Second
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.recorder == nil {
		c.recorder = nopRecorder{}
	}
	return c
}

// FetchJSON GETs rawURL and decodes the body into out. Failed attempts are
// retried until MaxRetries attempts have been made; the last failure is then
// returned as a *TransportError. Cancelling ctx stops further attempts.
func (c *Client) FetchJSON(ctx context.Context, rawURL string, out any) error {
	safeURL := redactURL(rawURL)
	start := c.clock.Now()
	c.recorder.RequestStarted()

	var (
		lastErr  error
		attempts int
	)
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		attempts = attempt + 1
		err := c.attempt(ctx, rawURL, out)
		if err == nil {
			c.recorder.RetryCountChanged(0)
			c.recorder.RequestSucceeded(c.clock.Now().Sub(start))
			c.logger.Debug("request succeeded", "url", safeURL, "attempt", attempts)
			return nil
		}

		lastErr = err
		c.recorder.RetryCountChanged(attempts)
		c.logger.Warn("request attempt failed",
			"url", safeURL,
			"attempt", attempts,
			"max_attempts", c.maxRetries,
			"error", err,
		)

		if ctx.Err() != nil || attempts == c.maxRetries {
			break
		}

		delay := c.retryDelay << attempt
		select {
		case <-c.clock.After(delay):
		case <-ctx.Done():
			lastErr = ctx.Err()
		}
		if ctx.Err() != nil {
			break
		}
	}

	c.recorder.RequestFailed()
	terr := &TransportError{URL: safeURL, Attempts: attempts, Err: lastErr}
	var se *statusError
	if errors.As(lastErr, &se) {
		terr.StatusCode = se.code
	}
	return terr
}

func (c *Client) attempt(ctx context.Context, rawURL string, out any) error {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Debug("close response body", "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return &statusError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

// redactURL hides the api_key query parameter so URLs can be logged.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	if q.Has("api_key") {
		q.Set("api_key", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
