package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/aluiziolira/go-scrape-mega645/config"
	"github.com/aluiziolira/go-scrape-mega645/models"
	"github.com/aluiziolira/go-scrape-mega645/pipeline"
	"github.com/aluiziolira/go-scrape-mega645/report"
	"github.com/aluiziolira/go-scrape-mega645/scraper"
)

type options struct {
	configFile   string
	maxPages     int
	pageSize     int
	delay        time.Duration
	timeout      time.Duration
	retryDelay   time.Duration
	output       string
	format       string
	reportFile   string
	baseURL      string
	metricsAddr  string
	respectRobot bool
	verbose      bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	return newCommand(&options{})
}

// newCommand binds the command's flags to opts.
func newCommand(opts *options) *cobra.Command {
	defaults := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:           "scraper",
		Short:         "Download the Mega 6/45 draw history to a CSV file",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configFile, "config", "", "YAML config file applied before flags")
	flags.IntVar(&opts.maxPages, "pages", defaults.MaxPages, "Maximum history pages to crawl (env SCRAPER_PAGES)")
	flags.IntVar(&opts.pageSize, "page-size", defaults.PageSize, "Draws per history page")
	flags.DurationVar(&opts.delay, "delay", defaults.PageDelay, "Pause between pages")
	flags.DurationVar(&opts.timeout, "timeout", defaults.Timeout, "Timeout per HTTP attempt")
	flags.DurationVar(&opts.retryDelay, "retry-delay", defaults.RetryDelay, "Pause between attempts for one page")
	flags.StringVarP(&opts.output, "output", "o", defaults.OutputFile, "Output file path (env SCRAPER_OUTPUT)")
	flags.StringVar(&opts.format, "format", defaults.OutputFormat, "Output format: csv, json, or dual")
	flags.StringVar(&opts.reportFile, "report", "", "Also write a Markdown crawl report to this path")
	flags.StringVar(&opts.baseURL, "base-url", defaults.PageURLTemplate, "History URL template taking page index and page size")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "Prometheus metrics listen address, e.g. :9090 (env SCRAPER_METRICS_ADDR)")
	flags.BoolVar(&opts.respectRobot, "respect-robots", defaults.RespectRobotsTxt, "Respect robots.txt directives")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")

	return cmd
}

func run(cmd *cobra.Command, opts *options) error {
	cfg, err := buildConfig(cmd, opts)
	if err != nil {
		return err
	}

	logger, level := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		return err
	}

	slog.Info("starting crawl",
		slog.String("url", cfg.PageURL(1)),
		slog.Int("max_pages", cfg.MaxPages),
		slog.Duration("delay", cfg.PageDelay),
	)

	s := scraper.NewScraper(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		srv := startMetricsServer(cfg.MetricsAddr, s.Metrics)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown failed", slog.Any("error", err))
			}
		}()
	}

	result := s.CrawlAll(ctx)

	if err := pipeline.WriteDataset(result.Records, cfg.OutputFile, cfg.OutputFormat); err != nil {
		slog.Error("writing dataset failed", slog.String("path", cfg.OutputFile), slog.Any("error", err))
		return err
	}

	if cfg.ReportFile != "" {
		if err := report.WriteFile(cfg.ReportFile, result, cfg.OutputFile); err != nil {
			slog.Error("writing report failed", slog.String("path", cfg.ReportFile), slog.Any("error", err))
			return err
		}
	}

	printSummary(cmd, result, cfg.OutputFile)
	return nil
}

// buildConfig layers defaults, the optional YAML file, environment variables
// and explicitly set flags, in that order.
func buildConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return nil, err
	}

	if value, ok, err := config.EnvInt("SCRAPER_PAGES"); err != nil {
		return nil, fmt.Errorf("invalid SCRAPER_PAGES: %w", err)
	} else if ok {
		cfg.MaxPages = value
	}
	if value, ok := config.EnvString("SCRAPER_OUTPUT"); ok {
		cfg.OutputFile = value
	}
	if value, ok := config.EnvString("SCRAPER_METRICS_ADDR"); ok {
		cfg.MetricsAddr = value
	}

	flags := cmd.Flags()
	if flags.Changed("pages") {
		cfg.MaxPages = opts.maxPages
	}
	if flags.Changed("page-size") {
		cfg.PageSize = opts.pageSize
	}
	if flags.Changed("delay") {
		cfg.PageDelay = opts.delay
	}
	if flags.Changed("timeout") {
		cfg.Timeout = opts.timeout
	}
	if flags.Changed("retry-delay") {
		cfg.RetryDelay = opts.retryDelay
	}
	if flags.Changed("output") {
		cfg.OutputFile = opts.output
	}
	if flags.Changed("format") {
		cfg.OutputFormat = strings.ToLower(opts.format)
	}
	if flags.Changed("report") {
		cfg.ReportFile = opts.reportFile
	}
	if flags.Changed("base-url") {
		cfg.PageURLTemplate = opts.baseURL
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = opts.metricsAddr
	}
	if flags.Changed("respect-robots") {
		cfg.RespectRobotsTxt = opts.respectRobot
	}
	if flags.Changed("verbose") {
		cfg.Verbose = opts.verbose
	}

	// JSON output keeps the default location under a .json name.
	if cfg.OutputFormat == "json" && cfg.OutputFile == config.DefaultConfig().OutputFile {
		cfg.OutputFile = config.JSONSiblingPath(cfg.OutputFile)
	}
	return cfg, nil
}

func startMetricsServer(addr string, metrics *scraper.Metrics) *http.Server {
	srv := &http.Server{
		Addr:    addr,
		Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	slog.Info("metrics server enabled", slog.String("addr", addr))
	return srv
}

func printSummary(cmd *cobra.Command, result *models.CrawlResult, outputFile string) {
	out := cmd.OutOrStdout()
	separator := "--------------------------------------------------"
	fmt.Fprintln(out, "\n"+separator)
	fmt.Fprintln(out, "Crawl complete")
	fmt.Fprintf(out, "  Draws:         %d\n", len(result.Records))
	fmt.Fprintf(out, "  Pages:         %d\n", result.PageCount)
	fmt.Fprintf(out, "  Stopped:       %s\n", result.StopReason)
	fmt.Fprintf(out, "  Duplicates:    %d\n", result.Duplicates)
	fmt.Fprintf(out, "  Requests:      %d\n", result.RequestCount)
	fmt.Fprintf(out, "  Retries:       %d\n", result.RetryCount)
	if len(result.ErrorsByType) > 0 {
		fmt.Fprintf(out, "  Error types:   %v\n", result.ErrorsByType)
	}
	if len(result.Records) > 0 {
		fmt.Fprintf(out, "  Date range:    %s .. %s\n", result.Records[0].Date, result.Records[len(result.Records)-1].Date)
	}
	fmt.Fprintf(out, "  Duration:      %v\n", result.EndTime.Sub(result.StartTime).Round(time.Millisecond))
	fmt.Fprintln(out, separator)
	fmt.Fprintf(out, "[DONE] Saved %s\n", outputFile)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stderr) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
