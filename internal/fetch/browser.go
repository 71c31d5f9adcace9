// Package fetch - browser.go provides headless browser rendering for catalogs that render client-side.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// DefaultBrowserSettle is how long a rendered page is given to run its scripts.
const DefaultBrowserSettle = 2 * time.Second

// BrowserFetcher renders pages in one shared headless Chrome instance.
// Each Fetch opens a tab; the semaphore bounds how many tabs are open at once.
type BrowserFetcher struct {
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	browserCtx  context.Context
	cancel      context.CancelFunc
	sem         *semaphore.Weighted
	timeout     time.Duration
	settle      time.Duration
	logger      *zap.Logger
}

// NewBrowserFetcher starts a headless browser. Requires Chrome/Chromium to be installed on the system.
func NewBrowserFetcher(ctx context.Context, opts *Options, maxConcurrency int, logger *zap.Logger) (*BrowserFetcher, error) {
	opts = opts.normalize()
	if maxConcurrency < 1 {
		maxConcurrency = DefaultMaxConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(opts.UserAgent),
		)...,
	)
	browserCtx, cancel := chromedp.NewContext(allocCtx)

	// Run with no actions starts the browser process
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start headless browser: %w", err)
	}

	return &BrowserFetcher{
		allocCtx:    allocCtx,
		cancelAlloc: cancelAlloc,
		browserCtx:  browserCtx,
		cancel:      cancel,
		sem:         semaphore.NewWeighted(int64(maxConcurrency)),
		timeout:     opts.Timeout,
		settle:      DefaultBrowserSettle,
		logger:      logger,
	}, nil
}

// Fetch renders the page in a new tab and returns the resulting HTML.
func (b *BrowserFetcher) Fetch(ctx context.Context, urlStr string) (*Document, error) {
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return nil, &Error{URL: urlStr, Message: "cancelled while waiting for a browser tab", Cause: err}
	}
	defer b.sem.Release(1)

	tabCtx, cancelTab := chromedp.NewContext(b.browserCtx)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.timeout)
	defer cancelTimeout()

	// Abandoning the caller's request closes the tab
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	b.logger.Debug("rendering page", zap.String("url", urlStr))

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(urlStr),
		chromedp.WaitReady("body"),
		chromedp.Sleep(b.settle),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "browser rendering failed", Cause: err}
	}

	return &Document{
		URL:         urlStr,
		HTML:        html,
		ContentType: "text/html",
		StatusCode:  http.StatusOK,
	}, nil
}

// Close shuts the browser down.
func (b *BrowserFetcher) Close() {
	b.cancel()
	b.cancelAlloc()
}
