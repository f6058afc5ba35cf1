package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Response struct {
	StatusCode int
	Body       []byte
}

type Interface interface {
	Get(ctx context.Context, path string) (*Response, error)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
	GetFunc    func(ctx context.Context, path string) (*Response, error)
}

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	// Backoff is the delay before the first retry; it doubles on each attempt.
	Backoff time.Duration
}

// FetchError reports a request that failed after all retries.
type FetchError struct {
	URL        string
	StatusCode int
	Attempts   int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetching %s after %d attempts: %v", e.URL, e.Attempts, e.Err)
	}
	return fmt.Sprintf("fetching %s after %d attempts: unexpected status %d", e.URL, e.Attempts, e.StatusCode)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func (e *FetchError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("kind", "FetchError").
		Str("url", e.URL).
		Int("status", e.StatusCode).
		Int("attempts", e.Attempts).
		AnErr("cause", e.Err)
}

var _ Interface = (*Client)(nil)

func New(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}

	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}

	if opts.Backoff == 0 {
		opts.Backoff = 200 * time.Millisecond
	}

	return &Client{
		baseURL: opts.BaseURL,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		maxRetries: opts.MaxRetries,
		backoff:    opts.Backoff,
	}
}

// Get fetches path, retrying transport errors and 5xx/429 responses with
// exponential backoff. Other non-2xx responses fail immediately.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	if c.GetFunc != nil {
		return c.GetFunc(ctx, path)
	}

	var fullURL string
	if c.baseURL == "" {
		fullURL = path // If no base URL, treat path as full URL
	} else {
		fullURL = c.baseURL + path
	}

	fetchErr := &FetchError{URL: fullURL}
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		fetchErr.Attempts = attempt

		resp, err := c.do(ctx, fullURL)
		switch {
		case err != nil:
			fetchErr.Err, fetchErr.StatusCode = err, 0
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return resp, nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			fetchErr.Err, fetchErr.StatusCode = nil, resp.StatusCode
		default:
			fetchErr.Err, fetchErr.StatusCode = nil, resp.StatusCode
			return nil, fetchErr
		}

		if attempt == c.maxRetries {
			break
		}
		delay := c.backoff * time.Duration(1<<(attempt-1))
		log.Debug().EmbedObject(fetchErr).Dur("delay", delay).Msg("Retrying request")
		select {
		case <-ctx.Done():
			fetchErr.Err = ctx.Err()
			return nil, fetchErr
		case <-time.After(delay):
		}
	}

	return nil, fetchErr
}

func (c *Client) do(ctx context.Context, fullURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			return
		}
	}(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
	}, nil
}
