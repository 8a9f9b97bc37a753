package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-scrape-mega645/config"
	"github.com/aluiziolira/go-scrape-mega645/models"
	"github.com/aluiziolira/go-scrape-mega645/parser"
	"github.com/aluiziolira/go-scrape-mega645/pipeline"
)

// CrawlState is the progress of one crawl: the next page to request and the
// records collected so far.
type CrawlState struct {
	Page int
	Acc  pipeline.Accumulator
}

// Scraper walks the paginated draw history one page at a time.
type Scraper struct {
	cfg       *config.Config
	fetcher   Fetcher
	extractor *parser.Extractor
	Metrics   *Metrics

	sleep func(context.Context, time.Duration) error
}

// NewScraper builds a scraper that fetches with a PageFetcher and extracts
// with the default strategies for cfg.HeaderLabel.
func NewScraper(cfg *config.Config) *Scraper {
	metrics := NewMetrics()
	return NewScraperWith(cfg, NewPageFetcher(cfg, metrics), parser.NewExtractor(parser.DefaultStrategies(cfg.HeaderLabel)...), metrics)
}

// NewScraperWith wires explicit collaborators. metrics may be nil.
func NewScraperWith(cfg *config.Config, fetcher Fetcher, extractor *parser.Extractor, metrics *Metrics) *Scraper {
	if extractor == nil {
		extractor = parser.NewExtractor()
	}
	return &Scraper{
		cfg:       cfg,
		fetcher:   fetcher,
		extractor: extractor,
		Metrics:   metrics,
		sleep:     sleepContext,
	}
}

// Step processes st.Page. It returns the advanced state and an empty reason
// when the crawl should go on, or the unchanged state and the reason it must
// stop.
func (s *Scraper) Step(ctx context.Context, st CrawlState) (CrawlState, models.StopReason) {
	if st.Page > s.cfg.MaxPages {
		return st, models.StopMaxPages
	}
	if ctx.Err() != nil {
		return st, models.StopCancelled
	}

	content, err := s.fetcher.Fetch(ctx, st.Page)
	if err != nil {
		if ctx.Err() != nil {
			return st, models.StopCancelled
		}
		slog.Info("stopping crawl: page unavailable",
			slog.Int("page", st.Page),
			slog.Any("error", err),
		)
		return st, models.StopFetchFailed
	}

	records, strategy := s.extractor.ExtractNamed(content.Body)
	if len(records) == 0 {
		slog.Info("stopping crawl: page has no draws", slog.Int("page", st.Page))
		return st, models.StopEmptyPage
	}

	s.Metrics.AddRecords(len(records))
	slog.Debug("extracted page",
		slog.Int("page", st.Page),
		slog.Int("records", len(records)),
		slog.String("strategy", strategy),
	)

	return CrawlState{Page: st.Page + 1, Acc: st.Acc.Append(records)}, ""
}

// CrawlAll requests pages from 1 up to cfg.MaxPages, pausing cfg.PageDelay
// between pages, until a page cannot be fetched or holds no draws. The
// collected records are deduplicated and sorted by date. A crawl that stops
// early is not an error; it simply returns fewer records.
func (s *Scraper) CrawlAll(ctx context.Context) *models.CrawlResult {
	start := time.Now()

	st := CrawlState{Page: 1}
	var reason models.StopReason
	for {
		st, reason = s.Step(ctx, st)
		if reason != "" {
			break
		}
		if st.Page > s.cfg.MaxPages {
			reason = models.StopMaxPages
			break
		}
		if err := s.sleep(ctx, s.cfg.PageDelay); err != nil {
			reason = models.StopCancelled
			break
		}
	}

	records, stats := st.Acc.Finalize()
	s.Metrics.AddDuplicates(stats.Duplicates)

	result := &models.CrawlResult{
		Records:      records,
		StartTime:    start,
		EndTime:      time.Now(),
		StopReason:   reason,
		Extracted:    stats.Input,
		Duplicates:   stats.Duplicates,
		PageCount:    st.Acc.Pages(),
		ErrorsByType: map[string]int{},
	}
	if reporter, ok := s.fetcher.(interface{ Stats() FetchStats }); ok {
		fs := reporter.Stats()
		result.RequestCount = fs.Requests
		result.RetryCount = fs.Retries
		result.ErrorCount = fs.Errors
		result.ErrorsByType = fs.ErrorsByType
		result.FailedURLs = fs.FailedURLs
	}

	slog.Info("crawl finished",
		slog.String("stop_reason", string(reason)),
		slog.Int("pages", result.PageCount),
		slog.Int("records", len(records)),
		slog.Int("duplicates", stats.Duplicates),
	)
	return result
}
