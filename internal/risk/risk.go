// Package risk reduces a flag set to a numeric score and a risk band.
package risk

import "veridoc/internal/rules"

// Level is the aggregate risk classification.
type Level string

const (
	LevelClean      Level = "CLEAN"
	LevelCaution    Level = "CAUTION"
	LevelSuspicious Level = "SUSPICIOUS"
)

// Severity weights. The mapping is fixed; the band thresholds are
// configuration.
const (
	WeightHigh   = 3
	WeightMedium = 2
	WeightLow    = 1
)

// Thresholds are the band boundaries. A score equal to a boundary
// maps to the upper band.
type Thresholds struct {
	CautionMin    int `json:"caution_min" toml:"caution_min" yaml:"caution_min"`
	SuspiciousMin int `json:"suspicious_min" toml:"suspicious_min" yaml:"suspicious_min"`
}

// DefaultThresholds returns the stock band boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{CautionMin: 2, SuspiciousMin: 5}
}

// Valid reports whether the thresholds are coherent.
func (t Thresholds) Valid() bool {
	return t.CautionMin > 0 && t.SuspiciousMin > t.CautionMin
}

// Weight returns the score contribution of one severity.
func Weight(s rules.Severity) int {
	switch s {
	case rules.SeverityHigh:
		return WeightHigh
	case rules.SeverityMedium:
		return WeightMedium
	case rules.SeverityLow:
		return WeightLow
	default:
		return 0
	}
}

// Aggregator maps flag sets to (score, level).
type Aggregator struct {
	Thresholds Thresholds
}

// NewAggregator returns an Aggregator, falling back to the default
// thresholds when given incoherent ones.
func NewAggregator(t Thresholds) Aggregator {
	if !t.Valid() {
		t = DefaultThresholds()
	}
	return Aggregator{Thresholds: t}
}

// Score sums the severity weights of all flags. No flags means zero.
func Score(flags []rules.Flag) int {
	score := 0
	for _, f := range flags {
		score += Weight(f.Severity)
	}
	return score
}

// Classify maps a score to a band.
func (a Aggregator) Classify(score int) Level {
	switch {
	case score >= a.Thresholds.SuspiciousMin:
		return LevelSuspicious
	case score >= a.Thresholds.CautionMin:
		return LevelCaution
	default:
		return LevelClean
	}
}

// Aggregate reduces a flag set to its score and band.
func (a Aggregator) Aggregate(flags []rules.Flag) (int, Level) {
	score := Score(flags)
	return score, a.Classify(score)
}
