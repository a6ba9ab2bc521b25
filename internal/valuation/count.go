// Package valuation counts keyword occurrences in recognized text and
// aggregates the weighted results.
package valuation

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/joseph-ayodele/keyword-estimator/internal/keywords"
)

// CountRecord is the tally for one keyword.
type CountRecord struct {
	Keyword  string `json:"keyword"`
	Count    int    `json:"count"`
	Value    int64  `json:"value"`
	Subtotal int64  `json:"subtotal"`
}

// fold maps text to its case-folded form for case-insensitive comparison.
// cases.Caser is stateful, so each call gets its own.
func fold(s string) string {
	return cases.Fold().String(s)
}

// Count tallies each keyword of spec in text. Matching is literal substring
// search after case folding, scanning left to right without overlaps, so
// "ana" occurs once in "banana". An empty keyword counts zero. Records
// follow spec order.
func Count(text string, spec keywords.Spec) []CountRecord {
	folded := fold(text)
	records := make([]CountRecord, 0, len(spec))
	for _, e := range spec {
		n := 0
		if kw := fold(e.Keyword); kw != "" {
			n = strings.Count(folded, kw)
		}
		records = append(records, CountRecord{
			Keyword:  e.Keyword,
			Count:    n,
			Value:    e.Value,
			Subtotal: int64(n) * e.Value,
		})
	}
	return records
}
