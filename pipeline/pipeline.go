// Package pipeline accumulates draw records across pages, merges them into a
// deduplicated, date-ordered result set and writes that set to disk.
package pipeline

import (
	"slices"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aluiziolira/go-scrape-mega645/models"
)

// Accumulator collects records from successive pages in arrival order. It is
// a value: Append returns the extended accumulator and leaves the receiver
// untouched.
type Accumulator struct {
	records []models.DrawRecord
	pages   int
}

// Append returns a copy of a with records added as one more page.
func (a Accumulator) Append(records []models.DrawRecord) Accumulator {
	next := make([]models.DrawRecord, 0, len(a.records)+len(records))
	next = append(next, a.records...)
	next = append(next, records...)
	return Accumulator{records: next, pages: a.pages + 1}
}

// Len is the number of records collected so far, duplicates included.
func (a Accumulator) Len() int { return len(a.records) }

// Pages is the number of pages appended.
func (a Accumulator) Pages() int { return a.pages }

// Records returns a copy of the collected records.
func (a Accumulator) Records() []models.DrawRecord {
	return slices.Clone(a.records)
}

// Finalize merges the collected records. See Merge.
func (a Accumulator) Finalize() (models.ResultSet, Stats) {
	return Merge(a.records)
}

// Stats reports what a merge did.
type Stats struct {
	Input      int
	Duplicates int
	Output     int
}

// Merge drops records whose (date, numbers) key was already seen, keeping
// the first occurrence, and sorts the rest by ascending date. Records with
// the same date keep their relative order. Merge is idempotent.
func Merge(records []models.DrawRecord) (models.ResultSet, Stats) {
	stats := Stats{Input: len(records)}
	if len(records) == 0 {
		return models.ResultSet{}, stats
	}

	// Sized to hold every key so nothing is evicted mid-merge; New only
	// fails for non-positive sizes.
	seen, _ := lru.New[string, struct{}](len(records))

	out := make(models.ResultSet, 0, len(records))
	for _, rec := range records {
		if found, _ := seen.ContainsOrAdd(rec.Key(), struct{}{}); found {
			stats.Duplicates++
			continue
		}
		out = append(out, rec)
	}

	slices.SortStableFunc(out, func(a, b models.DrawRecord) int {
		return strings.Compare(a.Date, b.Date)
	})
	stats.Output = len(out)
	return out, stats
}
