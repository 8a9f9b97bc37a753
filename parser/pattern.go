// Package parser extracts draw records from results pages.
//
// Extraction is line oriented: every candidate line is matched against
// RowPattern and then passed through the validation gate in ParseLine.
// Lines that do not match, or whose numbers fall outside the ball pool,
// are treated as page noise and dropped without error.
package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-scrape-mega645/models"
)

// RowPattern matches a results line: a 3-4 digit draw id, an ISO date and
// six comma-separated numbers. Submatch 1 is the draw id, 2 the date and 3
// the number list.
var RowPattern = regexp.MustCompile(
	`^\s*(\d{3,4})\s+(\d{4}-\d{2}-\d{2})\s+(\d{1,2},\d{1,2},\d{1,2},\d{1,2},\d{1,2},\d{1,2})\b`,
)

const (
	groupDate    = 2
	groupNumbers = 3
)

// ParseLine applies RowPattern to line and returns the record when the line
// matches and all six numbers are inside the ball pool.
func ParseLine(line string) (models.DrawRecord, bool) {
	m := RowPattern.FindStringSubmatch(line)
	if m == nil {
		return models.DrawRecord{}, false
	}

	nums, ok := ParseNumbers(m[groupNumbers])
	if !ok {
		return models.DrawRecord{}, false
	}

	rec, err := models.NewDrawRecord(m[groupDate], nums)
	if err != nil {
		return models.DrawRecord{}, false
	}
	return rec, true
}

// ParseNumbers splits a comma-separated number list. It reports false when
// the list does not hold exactly six integers in [1, 45].
func ParseNumbers(list string) ([]int, bool) {
	parts := strings.Split(list, ",")
	if len(parts) != models.NumbersPerDraw {
		return nil, false
	}

	nums := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, false
		}
		if !InRange(n) {
			return nil, false
		}
		nums = append(nums, n)
	}
	return nums, true
}

// InRange reports whether n is a valid ball.
func InRange(n int) bool {
	return n >= models.MinNumber && n <= models.MaxNumber
}

// parseLines runs ParseLine over every line of text.
func parseLines(text string) []models.DrawRecord {
	var out []models.DrawRecord
	for _, line := range strings.Split(text, "\n") {
		if rec, ok := ParseLine(line); ok {
			out = append(out, rec)
		}
	}
	return out
}
