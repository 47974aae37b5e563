// Package numbering generates human-facing quote numbers of the form
// YYYY-NNNN from a persisted counter, falling back to a scan of existing
// numbers when the counter is missing.
package numbering

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/diewo77/go-quotes/internal/models"
)

var lastDigits = regexp.MustCompile(`(\d+)\D*$`)

// LastDigitGroup returns the integer value of the last run of ASCII digits in s.
// It reports false when s contains no digits or the run overflows an int.
func LastDigitGroup(s string) (int, bool) {
	m := lastDigits.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Recompute derives the next counter value from existing quote numbers:
// one more than the largest trailing digit group, or 1 when none parse.
func Recompute(quotes []models.Quote) int {
	highest := 0
	for _, q := range quotes {
		if n, ok := LastDigitGroup(q.Number); ok && n > highest {
			highest = n
		}
	}
	return highest + 1
}

// Counter returns the counter to use for the next generated number.
func Counter(doc *models.Document) int {
	if doc.NextQuoteNumber >= 1 {
		return doc.NextQuoteNumber
	}
	return Recompute(doc.Quotes)
}

// Format renders a counter as a quote number for the given year.
func Format(year, n int) string {
	return fmt.Sprintf("%d-%04d", year, n)
}

// Next proposes the next quote number without consuming it. The returned
// counter is the value that produced the number.
func Next(doc *models.Document, now time.Time) (string, int) {
	n := Counter(doc)
	return Format(now.Year(), n), n
}

// Normalize repairs a missing or invalid counter by scanning the quotes.
// It reports whether the document changed.
func Normalize(doc *models.Document) bool {
	if doc.NextQuoteNumber >= 1 {
		return false
	}
	doc.NextQuoteNumber = Recompute(doc.Quotes)
	return true
}
