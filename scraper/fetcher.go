package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/aluiziolira/go-scrape-mega645/config"
	"github.com/aluiziolira/go-scrape-mega645/models"
)

// Fetcher returns the raw content of one results page.
type Fetcher interface {
	Fetch(ctx context.Context, page int) (models.PageContent, error)
}

// FetchStats summarises the requests a PageFetcher has made.
type FetchStats struct {
	Requests     int
	Retries      int
	Errors       int
	ErrorsByType map[string]int
	FailedURLs   []string
}

const (
	ctxKeyStart  = "start"
	ctxKeyStatus = "status"
	ctxKeyBody   = "body"
)

// PageFetcher fetches results pages through a synchronous colly collector,
// retrying failed attempts after a fixed delay.
type PageFetcher struct {
	cfg       *config.Config
	collector *colly.Collector
	metrics   *Metrics
	sleep     func(context.Context, time.Duration) error

	mu           sync.Mutex
	requests     int
	retries      int
	errorCount   int
	errorsByType map[string]int
	failedURLs   []string
}

// NewPageFetcher builds a fetcher configured from cfg. metrics may be nil.
func NewPageFetcher(cfg *config.Config, metrics *Metrics) *PageFetcher {
	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	f := &PageFetcher{
		cfg:          cfg,
		collector:    collector,
		metrics:      metrics,
		sleep:        sleepContext,
		errorsByType: make(map[string]int),
	}
	f.configureHandlers()
	return f
}

func (f *PageFetcher) configureHandlers() {
	f.collector.OnRequest(func(r *colly.Request) {
		r.Ctx.Put(ctxKeyStart, time.Now())
		f.metrics.IncRequest("started")
	})

	f.collector.OnResponse(func(r *colly.Response) {
		r.Ctx.Put(ctxKeyStatus, r.StatusCode)
		r.Ctx.Put(ctxKeyBody, r.Body)
		if start, ok := r.Ctx.GetAny(ctxKeyStart).(time.Time); ok {
			f.metrics.ObserveDuration(time.Since(start))
		}
	})

	f.collector.OnError(func(r *colly.Response, _ error) {
		if r == nil || r.Ctx == nil {
			return
		}
		r.Ctx.Put(ctxKeyStatus, r.StatusCode)
	})
}

// Fetch requests page up to cfg.MaxAttempts times. Any status other than 200
// or a transport failure uses up one attempt. Once the attempts are spent it
// returns an error wrapping ErrPageUnavailable and the last failure. A
// cancelled ctx stops the retries and returns ctx.Err().
func (f *PageFetcher) Fetch(ctx context.Context, page int) (models.PageContent, error) {
	url := f.cfg.PageURL(page)

	var lastErr error
	for attempt := 1; attempt <= f.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return models.PageContent{}, err
		}

		body, err := f.attempt(url)
		if err == nil {
			f.metrics.IncRequest("succeeded")
			slog.Debug("fetched page",
				slog.Int("page", page),
				slog.Int("attempt", attempt),
				slog.Int("bytes", len(body)),
			)
			return models.PageContent{Page: page, URL: url, Body: body}, nil
		}

		lastErr = err
		category := f.recordFailure(err)
		slog.Warn("page fetch attempt failed",
			slog.String("url", url),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", f.cfg.MaxAttempts),
			slog.String("category", category),
			slog.Any("error", err),
		)

		if attempt == f.cfg.MaxAttempts {
			break
		}
		f.recordRetry()
		if err := f.sleep(ctx, f.cfg.RetryDelay); err != nil {
			return models.PageContent{}, err
		}
	}

	f.mu.Lock()
	f.failedURLs = append(f.failedURLs, url)
	f.mu.Unlock()

	return models.PageContent{}, fmt.Errorf("%w: %s after %d attempts: %w", ErrPageUnavailable, url, f.cfg.MaxAttempts, lastErr)
}

// attempt performs a single GET. colly reports statuses >= 203 as errors,
// so the status is read back from the request context either way.
func (f *PageFetcher) attempt(url string) ([]byte, error) {
	ctx := colly.NewContext()
	// colly only applies its UserAgent option when no header map is passed.
	hdr := http.Header{}
	hdr.Set("User-Agent", f.cfg.UserAgent)
	if f.cfg.AcceptLanguage != "" {
		hdr.Set("Accept-Language", f.cfg.AcceptLanguage)
	}

	f.mu.Lock()
	f.requests++
	f.mu.Unlock()

	err := f.collector.Request(http.MethodGet, url, nil, ctx, hdr)
	status, _ := ctx.GetAny(ctxKeyStatus).(int)
	if err != nil {
		return nil, classifyError(err, status)
	}
	if status != http.StatusOK {
		return nil, classifyError(nil, status)
	}

	body, _ := ctx.GetAny(ctxKeyBody).([]byte)
	return body, nil
}

func (f *PageFetcher) recordFailure(err error) string {
	category := errorTypeLabel(err)
	f.metrics.IncRequest("failed")
	f.metrics.IncError(category)

	f.mu.Lock()
	f.errorCount++
	f.errorsByType[category]++
	f.mu.Unlock()
	return category
}

func (f *PageFetcher) recordRetry() {
	f.metrics.IncRetries()
	f.mu.Lock()
	f.retries++
	f.mu.Unlock()
}

// Stats returns a snapshot of the request counters.
func (f *PageFetcher) Stats() FetchStats {
	f.mu.Lock()
	defer f.mu.Unlock()

	byType := make(map[string]int, len(f.errorsByType))
	for k, v := range f.errorsByType {
		byType[k] = v
	}
	failed := make([]string, len(f.failedURLs))
	copy(failed, f.failedURLs)

	return FetchStats{
		Requests:     f.requests,
		Retries:      f.retries,
		Errors:       f.errorCount,
		ErrorsByType: byType,
		FailedURLs:   failed,
	}
}

// classifyError wraps err in an AttemptError. statusCode is the HTTP status
// when a response arrived, zero otherwise.
func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}
	if err == nil {
		err = fmt.Errorf("http status %d", statusCode)
	}

	kind := KindOther
	var netErr net.Error
	var opErr *net.OpError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = KindTimeout
	case errors.As(err, &opErr):
		kind = KindConnection
	case statusCode == http.StatusForbidden:
		kind = KindForbidden
	case statusCode == http.StatusNotFound:
		kind = KindNotFound
	case statusCode == http.StatusTooManyRequests:
		kind = KindRateLimited
	case statusCode != 0:
		kind = KindBadStatus
	}
	return &AttemptError{Kind: kind, Status: statusCode, Err: err}
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
