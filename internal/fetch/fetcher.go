package fetch

import (
	"context"
	"net/http"

	"golang.org/x/sync/semaphore"
)

// DefaultMaxConcurrency bounds simultaneous in-flight requests per fetcher.
const DefaultMaxConcurrency = 16

// Fetcher retrieves one page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Document, error)
}

// HTTPFetcher shares one HTTP client across every request of a crawl and
// bounds the number of requests in flight with a weighted semaphore.
type HTTPFetcher struct {
	client  *http.Client
	options *Options
	sem     *semaphore.Weighted
	limit   int64
}

// NewHTTPFetcher creates a fetcher allowing at most maxConcurrency requests in flight.
func NewHTTPFetcher(opts *Options, maxConcurrency int) *HTTPFetcher {
	opts = opts.normalize()
	if maxConcurrency < 1 {
		maxConcurrency = DefaultMaxConcurrency
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxConnsPerHost = maxConcurrency
	transport.MaxIdleConnsPerHost = maxConcurrency

	return &HTTPFetcher{
		client:  &http.Client{Timeout: opts.Timeout, Transport: transport},
		options: opts,
		sem:     semaphore.NewWeighted(int64(maxConcurrency)),
		limit:   int64(maxConcurrency),
	}
}

// Fetch waits for a free slot, then retrieves the page. The slot is released as soon as the body is read.
func (f *HTTPFetcher) Fetch(ctx context.Context, urlStr string) (*Document, error) {
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return nil, &Error{
			URL:     urlStr,
			Message: "cancelled while waiting for a request slot",
			Cause:   err,
		}
	}
	defer f.sem.Release(1)

	return get(ctx, f.client, urlStr, f.options)
}

// MaxConcurrency returns the in-flight request bound.
func (f *HTTPFetcher) MaxConcurrency() int {
	return int(f.limit)
}

// Close releases idle connections held by the shared client.
func (f *HTTPFetcher) Close() {
	f.client.CloseIdleConnections()
}
