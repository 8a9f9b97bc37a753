package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

// Config holds scraper configuration.
type Config struct {
	// PageURLTemplate takes the page index then the page size.
	PageURLTemplate  string        `yaml:"page_url_template"`
	PageSize         int           `yaml:"page_size"`
	MaxPages         int           `yaml:"max_pages"`
	PageDelay        time.Duration `yaml:"page_delay"`
	Timeout          time.Duration `yaml:"timeout"`
	MaxAttempts      int           `yaml:"-"`
	RetryDelay       time.Duration `yaml:"retry_delay"`
	HeaderLabel      string        `yaml:"header_label"`
	OutputFile       string        `yaml:"output_file"`
	OutputFormat     string        `yaml:"output_format"` // csv, json, or dual
	ReportFile       string        `yaml:"report_file"`   // optional Markdown summary
	UserAgent        string        `yaml:"user_agent"`
	AcceptLanguage   string        `yaml:"accept_language"`
	MetricsAddr      string        `yaml:"metrics_addr"`
	Verbose          bool          `yaml:"verbose"`
	RespectRobotsTxt bool          `yaml:"respect_robots_txt"`
}

// DefaultConfig returns conservative defaults for the lottolyzer Mega 6/45
// history.
func DefaultConfig() *Config {
	return &Config{
		PageURLTemplate:  "https://en.lottolyzer.com/history/vietnam/mega-645/page/%d/per-page/%d/summary-view",
		PageSize:         50,
		MaxPages:         60,
		PageDelay:        1200 * time.Millisecond,
		Timeout:          20 * time.Second,
		MaxAttempts:      3,
		RetryDelay:       1500 * time.Millisecond,
		HeaderLabel:      "Winning No",
		OutputFile:       "static/mega645.csv",
		OutputFormat:     "csv",
		UserAgent:        "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		AcceptLanguage:   "en-US,en;q=0.9,vi;q=0.8",
		Verbose:          false,
		RespectRobotsTxt: false,
	}
}

// PageURL renders the results URL for a 1-based page index.
func (c *Config) PageURL(page int) string {
	return fmt.Sprintf(c.PageURLTemplate, page, c.PageSize)
}

// JSONSiblingPath is csvPath with its .csv extension swapped for .json. Dual
// format writes its JSONL copy there.
func JSONSiblingPath(csvPath string) string {
	return strings.TrimSuffix(csvPath, ".csv") + ".json"
}

// DatasetPaths lists every file the configured output format writes.
func (c *Config) DatasetPaths() []string {
	if c.OutputFormat == "dual" {
		return []string{c.OutputFile, JSONSiblingPath(c.OutputFile)}
	}
	return []string{c.OutputFile}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.PageURLTemplate == "" {
		return fmt.Errorf("page URL template cannot be empty")
	}
	if strings.Count(c.PageURLTemplate, "%d") != 2 {
		return fmt.Errorf("page URL template must contain two %%d verbs (page, page size)")
	}

	parsedURL, err := url.Parse(c.PageURL(1))
	if err != nil {
		return fmt.Errorf("invalid page URL template: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("page URL template must include a host")
	}

	if c.PageSize <= 0 {
		return fmt.Errorf("page size must be positive")
	}
	if c.MaxPages <= 0 {
		return fmt.Errorf("max pages must be positive")
	}
	if c.PageDelay < 0 {
		return fmt.Errorf("page delay cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be positive")
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay cannot be negative")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if c.OutputFormat == "json" && strings.EqualFold(filepath.Ext(c.OutputFile), ".csv") {
		return fmt.Errorf("output file %s has a .csv extension but output format is json", c.OutputFile)
	}
	if c.ReportFile != "" {
		report := filepath.Clean(c.ReportFile)
		for _, path := range c.DatasetPaths() {
			if report == filepath.Clean(path) {
				return fmt.Errorf("report file must differ from dataset file %s", path)
			}
		}
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}
