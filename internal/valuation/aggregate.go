package valuation

import (
	"sort"
	"strings"

	"github.com/joseph-ayodele/keyword-estimator/internal/keywords"
)

// ResultSet is a sorted, totalled set of count records. It is not modified
// after Aggregate returns it.
type ResultSet struct {
	Records    []CountRecord `json:"records"`
	GrandTotal int64         `json:"grand_total"`
}

func (r ResultSet) Len() int { return len(r.Records) }

// Aggregate sorts records by case-folded keyword, keeping input order for
// ties, and sums the subtotals. The input slice is not modified.
func Aggregate(records []CountRecord) ResultSet {
	sorted := make([]CountRecord, len(records))
	copy(sorted, records)

	keys := make([]string, len(sorted))
	for i, r := range sorted {
		keys[i] = fold(r.Keyword)
	}
	sort.Stable(byKey{records: sorted, keys: keys})

	var total int64
	for _, r := range sorted {
		total += r.Subtotal
	}
	return ResultSet{Records: sorted, GrandTotal: total}
}

// Calculate counts spec in text and aggregates the result.
func Calculate(text string, spec keywords.Spec) ResultSet {
	return Aggregate(Count(text, spec))
}

type byKey struct {
	records []CountRecord
	keys    []string
}

func (b byKey) Len() int           { return len(b.records) }
func (b byKey) Less(i, j int) bool { return strings.Compare(b.keys[i], b.keys[j]) < 0 }
func (b byKey) Swap(i, j int) {
	b.records[i], b.records[j] = b.records[j], b.records[i]
	b.keys[i], b.keys[j] = b.keys[j], b.keys[i]
}
