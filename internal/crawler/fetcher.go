package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"
)

// Fetcher retrieves the raw content of a document
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FetchError describes a failed page fetch
type FetchError struct {
	URL        string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// CollyFetcher fetches pages with a synchronous Colly collector
type CollyFetcher struct {
	collector *colly.Collector
}

// NewCollyFetcher creates a fetcher with the given user agent and request timeout
func NewCollyFetcher(userAgent string, timeout time.Duration) *CollyFetcher {
	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.AllowURLRevisit(), // Revisits are prevented by the traversal itself
		colly.MaxDepth(0),       // Managed manually via queue depth
		// Long articles exceed colly's 10 MiB default, which truncates
		// the body silently and loses the links at its end
		colly.MaxBodySize(0),
	)
	c.SetRequestTimeout(timeout)

	return &CollyFetcher{collector: c}
}

// Fetch performs a blocking GET and returns the response body.
// Transport failures and non-success statuses are returned as *FetchError.
func (f *CollyFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	// Per-call clone so callbacks only see this request
	c := f.collector.Clone()
	c.Context = ctx

	var body []byte
	var statusCode int

	c.OnResponse(func(r *colly.Response) {
		statusCode = r.StatusCode
		body = r.Body
	})

	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			statusCode = r.StatusCode
		}
	})

	if err := c.Visit(url); err != nil {
		return nil, &FetchError{URL: url, StatusCode: statusCode, Err: err}
	}

	return body, nil
}
