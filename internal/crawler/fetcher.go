package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/nao1215/wsspider/internal/protocol"
)

// Default fetch settings.
const (
	defaultMaxRetry    = 3
	defaultRetryDelay  = 5 * time.Second
	defaultMaxBodySize = 5 * 1024 * 1024
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Reporter receives control messages. Sink satisfies it.
type Reporter interface {
	SendControl(msg protocol.Control)
}

// Fetcher retrieves and validates result pages.
type Fetcher struct {
	client      *http.Client
	extractor   Extractor
	userAgent   string
	maxBodySize int64
	maxRetry    int
	retryDelay  time.Duration
	sleep       SleepFunc
	reporter    Reporter
	logger      *slog.Logger
	metrics     Metrics
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithRetry sets the total number of attempts and the pause between them.
func WithRetry(maxAttempts int, delay time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if maxAttempts > 0 {
			f.maxRetry = maxAttempts
		}
		f.retryDelay = delay
	}
}

// WithFetchSleep replaces the function used to wait between attempts.
func WithFetchSleep(sleep SleepFunc) FetcherOption {
	return func(f *Fetcher) {
		f.sleep = sleep
	}
}

// WithReporter sets where retry and failure notices are sent.
func WithReporter(r Reporter) FetcherOption {
	return func(f *Fetcher) {
		f.reporter = r
	}
}

// WithFetchLogger sets the logger.
func WithFetchLogger(l *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		f.logger = l
	}
}

// WithFetchMetrics sets the metrics sink.
func WithFetchMetrics(m Metrics) FetcherOption {
	return func(f *Fetcher) {
		f.metrics = m
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithMaxBodySize limits how much of each response is read.
func WithMaxBodySize(size int64) FetcherOption {
	return func(f *Fetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// NewFetcher creates a Fetcher. The client carries timeout, proxy and
// session settings; see the transport package.
func NewFetcher(client *http.Client, extractor Extractor, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:      client,
		extractor:   extractor,
		maxBodySize: defaultMaxBodySize,
		maxRetry:    defaultMaxRetry,
		retryDelay:  defaultRetryDelay,
		sleep:       Sleep,
		logger:      slog.New(slog.DiscardHandler),
		metrics:     nopMetrics{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch performs a single GET of pageURL. It succeeds only for a 200
// response that the extractor accepts as a result page; every other
// outcome is a *FetchError, except context cancellation which is
// returned as is.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, Err: err}
	}

	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, f.maxBodySize))
		return nil, &FetchError{Kind: KindHTTP, Status: resp.StatusCode}
	}

	// one byte over the limit tells a full body from a cut one
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	if int64(len(body)) > f.maxBodySize {
		f.logger.Warn("page exceeds body size limit", "url", pageURL, "limit", f.maxBodySize)
		return nil, &FetchError{Kind: KindEmptyOrMalformed, BodySize: int(f.maxBodySize), Err: ErrBodyTooLarge}
	}

	page, err := ParsePage(pageURL, resp.StatusCode, body)
	if err != nil {
		return nil, &FetchError{Kind: KindEmptyOrMalformed, BodySize: len(body), Err: err}
	}

	if !f.extractor.IsValidPage(page) {
		if f.extractor.RequiresLogin(page) {
			return nil, &FetchError{Kind: KindAuthRequired}
		}
		return nil, &FetchError{Kind: KindEmptyOrMalformed, BodySize: len(body)}
	}

	f.logger.Debug("fetched page", "url", pageURL, "bytes", len(body))
	return page, nil
}

// FetchWithRetry calls Fetch up to the configured number of attempts with
// a fixed delay between them. Every kind of failure is retried the same
// way. Each retry and the final failure are logged and reported as an
// error control message. The returned error is the last attempt's error,
// or the context error if ctx was cancelled.
func (f *Fetcher) FetchWithRetry(ctx context.Context, pageURL string) (*Page, error) {
	var lastErr error
	for attempt := 1; attempt <= f.maxRetry; attempt++ {
		f.metrics.FetchAttempt()

		page, err := f.Fetch(ctx, pageURL)
		if err == nil {
			f.metrics.PageFetched()
			return page, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		lastErr = err
		f.metrics.FetchFailed(errorKind(err))

		if attempt == f.maxRetry {
			break
		}

		msg := fmt.Sprintf("Retry %d/%d: %v", attempt, f.maxRetry-1, err)
		f.logger.Warn(msg, "url", pageURL)
		f.report(msg, pageURL)

		if err := f.sleep(ctx, f.retryDelay); err != nil {
			return nil, err
		}
	}

	msg := fmt.Sprintf("Failed: %v", lastErr)
	f.logger.Error(msg, "url", pageURL)
	f.report(msg, pageURL)
	return nil, lastErr
}

func (f *Fetcher) report(msg, pageURL string) {
	if f.reporter != nil {
		f.reporter.SendControl(protocol.NewErrorReport(msg, pageURL))
	}
}

// classifyTransportError maps a client error to a FetchError. A cancelled
// context is passed through so callers can stop without reporting.
func classifyTransportError(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return ctx.Err()
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &FetchError{Kind: KindTimeout, Err: err}
	}
	return &FetchError{Kind: KindNetwork, Err: err}
}

func errorKind(err error) string {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind.String()
	}
	return "unknown"
}
