package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aluiziolira/go-scrape-mega645/models"
)

func sampleResult() *models.CrawlResult {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return &models.CrawlResult{
		Records: models.ResultSet{
			{Date: "2023-01-05", Numbers: [6]int{3, 14, 22, 30, 41, 45}},
			{Date: "2023-01-07", Numbers: [6]int{45, 1, 9, 2, 33, 7}},
			{Date: "2023-01-09", Numbers: [6]int{45, 3, 10, 11, 12, 13}},
		},
		StartTime:  start,
		EndTime:    start.Add(3 * time.Second),
		StopReason: models.StopFetchFailed,
		PageCount:  2,
		FailedURLs: []string{"http://example.test/page/3"},
	}
}

func TestFrequency(t *testing.T) {
	t.Parallel()

	counts := Frequency(sampleResult().Records)
	if len(counts) != models.MaxNumber {
		t.Fatalf("len = %d, want %d", len(counts), models.MaxNumber)
	}
	if counts[0] != (NumberCount{Number: 45, Draws: 3}) {
		t.Errorf("top = %+v, want 45 x3", counts[0])
	}
	if counts[1] != (NumberCount{Number: 3, Draws: 2}) {
		t.Errorf("second = %+v, want 3 x2", counts[1])
	}

	total := 0
	for _, c := range counts {
		total += c.Draws
	}
	if total != 18 {
		t.Errorf("total = %d, want 18", total)
	}
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := NewMarkdownWriter(&buf).Write(sampleResult(), "static/mega645.csv"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	output := buf.String()

	for _, want := range []string{
		"# Mega 6/45 Draw History",
		"static/mega645.csv",
		"2023-01-05 .. 2023-01-09",
		"## Most Drawn Numbers",
		"## Latest Draws",
		"45 3 10 11 12 13",
		"## Failed Pages",
		"http://example.test/page/3",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q", want)
		}
	}
	latest := output[strings.Index(output, "## Latest Draws"):]
	if strings.Index(latest, "2023-01-09") > strings.Index(latest, "2023-01-05") {
		t.Error("latest draws should be listed newest first")
	}
}

func TestMarkdownWriterEmpty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	result := &models.CrawlResult{StopReason: models.StopEmptyPage}
	if err := NewMarkdownWriter(&buf).Write(result, "out.csv"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	output := buf.String()
	if !strings.Contains(output, "No draws collected.") {
		t.Error("expected empty notice")
	}
	if strings.Contains(output, "## Latest Draws") || strings.Contains(output, "## Failed Pages") {
		t.Error("empty report should omit draw and failure sections")
	}
}

func TestWriteFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "reports", "crawl.md")
	if err := WriteFile(path, sampleResult(), "out.csv"); err != nil {
		t.Fatalf("write file: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.HasPrefix(string(data), "# Mega 6/45 Draw History") {
		t.Errorf("report starts with %q", string(data[:min(len(data), 40)]))
	}
}
