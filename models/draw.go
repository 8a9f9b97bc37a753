// Package models defines data structures for the scraper.
package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// NumbersPerDraw is the count of winning numbers in a Mega 6/45 draw.
	NumbersPerDraw = 6
	// MinNumber is the smallest ball in the pool.
	MinNumber = 1
	// MaxNumber is the largest ball in the pool.
	MaxNumber = 45
)

var isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// DrawRecord is a single draw: its date and the six winning numbers in the
// order the source published them.
type DrawRecord struct {
	Date    string              `json:"date"`
	Numbers [NumbersPerDraw]int `json:"numbers"`
}

// NewDrawRecord validates date and nums and returns the record.
func NewDrawRecord(date string, nums []int) (DrawRecord, error) {
	if !isoDate.MatchString(date) {
		return DrawRecord{}, fmt.Errorf("invalid draw date %q", date)
	}
	if len(nums) != NumbersPerDraw {
		return DrawRecord{}, fmt.Errorf("draw %s has %d numbers, want %d", date, len(nums), NumbersPerDraw)
	}

	var rec DrawRecord
	rec.Date = date
	for i, n := range nums {
		if n < MinNumber || n > MaxNumber {
			return DrawRecord{}, fmt.Errorf("draw %s number %d out of range [%d, %d]", date, n, MinNumber, MaxNumber)
		}
		rec.Numbers[i] = n
	}
	return rec, nil
}

// Key identifies a record by date and numbers.
func (r DrawRecord) Key() string {
	var b strings.Builder
	b.WriteString(r.Date)
	b.WriteByte('|')
	for i, n := range r.Numbers {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(n))
	}
	return b.String()
}

// PageContent is the raw payload of one fetched results page.
type PageContent struct {
	Page int
	URL  string
	Body []byte
}

// ResultSet is a deduplicated list of draws ordered by ascending date.
type ResultSet []DrawRecord

// StopReason explains why a crawl stopped requesting pages.
type StopReason string

const (
	StopFetchFailed StopReason = "fetch_failed"
	StopEmptyPage   StopReason = "empty_page"
	StopMaxPages    StopReason = "max_pages"
	StopCancelled   StopReason = "cancelled"
)

// CrawlResult holds the overall result of a crawl run.
type CrawlResult struct {
	Records      ResultSet
	StartTime    time.Time
	EndTime      time.Time
	StopReason   StopReason
	Extracted    int
	Duplicates   int
	ErrorCount   int
	FailedURLs   []string
	ErrorsByType map[string]int
	RetryCount   int
	RequestCount int
	PageCount    int
}
