// Package report renders a Markdown summary of a finished crawl.
package report

import (
	"cmp"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"

	"github.com/aluiziolira/go-scrape-mega645/models"
)

const (
	topNumbers  = 10
	latestDraws = 5
)

// NumberCount is how many draws a number appeared in.
type NumberCount struct {
	Number int
	Draws  int
}

// Frequency counts every number from MinNumber to MaxNumber across records,
// most drawn first. Ties are ordered by number.
func Frequency(records []models.DrawRecord) []NumberCount {
	counts := make([]NumberCount, 0, models.MaxNumber-models.MinNumber+1)
	for n := models.MinNumber; n <= models.MaxNumber; n++ {
		counts = append(counts, NumberCount{Number: n})
	}
	for _, rec := range records {
		for _, n := range rec.Numbers {
			if n >= models.MinNumber && n <= models.MaxNumber {
				counts[n-models.MinNumber].Draws++
			}
		}
	}
	slices.SortStableFunc(counts, func(a, b NumberCount) int {
		return cmp.Compare(b.Draws, a.Draws)
	})
	return counts
}

// MarkdownWriter writes crawl reports to an io.Writer.
type MarkdownWriter struct {
	output io.Writer
}

// NewMarkdownWriter returns a writer that renders into output.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{output: output}
}

// Write renders result. datasetPath is only shown, never opened.
func (w *MarkdownWriter) Write(result *models.CrawlResult, datasetPath string) error {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, result, datasetPath)
	w.writeStatus(md, result)
	w.writeFrequency(md, result.Records)
	w.writeLatest(md, result.Records)
	w.writeFailures(md, result.FailedURLs)

	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Generated %s*", time.Now().UTC().Format(time.RFC3339))
	return md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, result *models.CrawlResult, datasetPath string) {
	md.H1("Mega 6/45 Draw History")
	md.PlainText("")

	dateRange := "-"
	if n := len(result.Records); n > 0 {
		dateRange = result.Records[0].Date + " .. " + result.Records[n-1].Date
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Dataset", "`" + datasetPath + "`"},
			{"Draws", strconv.Itoa(len(result.Records))},
			{"Date Range", dateRange},
			{"Pages Crawled", strconv.Itoa(result.PageCount)},
			{"Duplicates Removed", strconv.Itoa(result.Duplicates)},
			{"Requests", strconv.Itoa(result.RequestCount)},
			{"Retries", strconv.Itoa(result.RetryCount)},
			{"Duration", result.EndTime.Sub(result.StartTime).Round(time.Millisecond).String()},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeStatus(md *markdown.Markdown, result *models.CrawlResult) {
	switch result.StopReason {
	case models.StopFetchFailed:
		md.Warningf("Crawl stopped after %d page(s): a page could not be fetched. Older draws may be missing.", result.PageCount)
	case models.StopCancelled:
		md.Warningf("Crawl was cancelled after %d page(s).", result.PageCount)
	case models.StopMaxPages:
		md.Note("Crawl reached the page limit. Raise --pages to go further back.")
	default:
		md.Note("Crawl reached the end of the published history.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeFrequency(md *markdown.Markdown, records []models.DrawRecord) {
	md.H2("Most Drawn Numbers")
	md.PlainText("")
	if len(records) == 0 {
		md.PlainText("No draws collected.")
		md.PlainText("")
		return
	}

	counts := Frequency(records)
	rows := make([][]string, 0, topNumbers)
	for _, c := range counts[:topNumbers] {
		share := float64(c.Draws) / float64(len(records)) * 100
		rows = append(rows, []string{
			strconv.Itoa(c.Number),
			strconv.Itoa(c.Draws),
			fmt.Sprintf("%.1f%%", share),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Number", "Draws", "Share"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeLatest(md *markdown.Markdown, records []models.DrawRecord) {
	if len(records) == 0 {
		return
	}
	md.H2("Latest Draws")
	md.PlainText("")

	rows := make([][]string, 0, latestDraws)
	for i := len(records) - 1; i >= 0 && len(rows) < latestDraws; i-- {
		nums := make([]string, 0, models.NumbersPerDraw)
		for _, n := range records[i].Numbers {
			nums = append(nums, strconv.Itoa(n))
		}
		rows = append(rows, []string{records[i].Date, strings.Join(nums, " ")})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Date", "Numbers"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, urls []string) {
	if len(urls) == 0 {
		return
	}
	md.H2("Failed Pages")
	md.PlainText("")
	md.BulletList(urls...)
	md.PlainText("")
}

// WriteFile renders result into path, creating its directory when missing.
func WriteFile(path string, result *models.CrawlResult, datasetPath string) (err error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close report: %w", cerr)
		}
	}()

	if err := NewMarkdownWriter(f).Write(result, datasetPath); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
