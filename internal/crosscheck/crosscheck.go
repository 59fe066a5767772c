// Package crosscheck compares filesystem timestamps against
// document-internal timestamps and produces mismatch facts.
package crosscheck

import (
	"time"

	"veridoc/internal/metadata"
)

// DefaultTolerance absorbs clock skew and filesystem-copy artifacts
// while still catching real discrepancies.
const DefaultTolerance = 24 * time.Hour

// Comparison is one timestamp-pair comparison. Delta is the absolute
// difference; Mismatch is set only when Delta exceeds the tolerance.
type Comparison struct {
	Field      string        `json:"field"`
	Filesystem time.Time     `json:"filesystem"`
	Document   time.Time     `json:"document"`
	Delta      time.Duration `json:"delta_ns"`
	Mismatch   bool          `json:"mismatch"`
}

// Facts is the derived set of comparisons for one record. Pairs are
// emitted in a fixed order (created, then modified) so results are
// order-stable across runs.
type Facts struct {
	Tolerance time.Duration `json:"tolerance_ns"`
	Pairs     []Comparison  `json:"pairs,omitempty"`
}

// Mismatches returns only the pairs whose delta exceeds the tolerance.
func (f Facts) Mismatches() []Comparison {
	var out []Comparison
	for _, p := range f.Pairs {
		if p.Mismatch {
			out = append(out, p)
		}
	}
	return out
}

// Compare computes every timestamp-pair comparison available for the
// record. Pairs where either side is absent are skipped, not treated
// as matches. A non-positive tolerance falls back to DefaultTolerance.
func Compare(rec *metadata.Record, tolerance time.Duration) Facts {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	facts := Facts{Tolerance: tolerance}
	if rec == nil {
		return facts
	}

	fs := rec.Filesystem
	doc := rec.Document

	if p, ok := compare("created", fs.Created, doc.Created, tolerance); ok {
		facts.Pairs = append(facts.Pairs, p)
	}
	if p, ok := compare("modified", fs.Modified, doc.Modified, tolerance); ok {
		facts.Pairs = append(facts.Pairs, p)
	}
	return facts
}

func compare(field string, fsTime, docTime *time.Time, tolerance time.Duration) (Comparison, bool) {
	if fsTime == nil || docTime == nil {
		return Comparison{}, false
	}
	delta := fsTime.Sub(*docTime)
	if delta < 0 {
		delta = -delta
	}
	return Comparison{
		Field:      field,
		Filesystem: fsTime.UTC(),
		Document:   docTime.UTC(),
		Delta:      delta,
		Mismatch:   delta > tolerance,
	}, true
}
