package risk

import (
	"testing"

	"veridoc/internal/rules"
)

func flagsOf(sevs ...rules.Severity) []rules.Flag {
	out := make([]rules.Flag, len(sevs))
	for i, s := range sevs {
		out[i] = rules.Flag{Kind: rules.KindGenericValue, Severity: s}
	}
	return out
}

func TestScore(t *testing.T) {
	tests := []struct {
		name  string
		flags []rules.Flag
		want  int
	}{
		{"empty", nil, 0},
		{"one low", flagsOf(rules.SeverityLow), 1},
		{"one medium", flagsOf(rules.SeverityMedium), 2},
		{"one high", flagsOf(rules.SeverityHigh), 3},
		{"mixed", flagsOf(rules.SeverityHigh, rules.SeverityMedium, rules.SeverityLow), 6},
		{"unknown severity ignored", []rules.Flag{{Severity: "shrug"}}, 0},
	}

	for _, tt := range tests {
		if got := Score(tt.flags); got != tt.want {
			t.Errorf("%s: Score = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestClassifyBoundaries(t *testing.T) {
	agg := NewAggregator(DefaultThresholds())

	tests := []struct {
		score int
		want  Level
	}{
		{0, LevelClean},
		{1, LevelClean},
		{2, LevelCaution}, // boundary maps to the upper band
		{4, LevelCaution},
		{5, LevelSuspicious},
		{100, LevelSuspicious},
	}

	for _, tt := range tests {
		if got := agg.Classify(tt.score); got != tt.want {
			t.Errorf("Classify(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestClassifyMonotonic(t *testing.T) {
	agg := NewAggregator(DefaultThresholds())
	rank := map[Level]int{LevelClean: 0, LevelCaution: 1, LevelSuspicious: 2}

	prev := LevelClean
	for score := 0; score <= 20; score++ {
		got := agg.Classify(score)
		if rank[got] < rank[prev] {
			t.Fatalf("level dropped from %s to %s at score %d", prev, got, score)
		}
		prev = got
	}
}

func TestNewAggregatorRejectsIncoherentThresholds(t *testing.T) {
	agg := NewAggregator(Thresholds{CautionMin: 5, SuspiciousMin: 2})
	if agg.Thresholds != DefaultThresholds() {
		t.Errorf("thresholds = %+v, want defaults", agg.Thresholds)
	}
	agg = NewAggregator(Thresholds{})
	if agg.Thresholds != DefaultThresholds() {
		t.Errorf("zero thresholds = %+v, want defaults", agg.Thresholds)
	}
}

func TestAggregate(t *testing.T) {
	agg := NewAggregator(DefaultThresholds())

	score, level := agg.Aggregate(nil)
	if score != 0 || level != LevelClean {
		t.Errorf("empty aggregate = %d, %s", score, level)
	}

	score, level = agg.Aggregate(flagsOf(rules.SeverityHigh, rules.SeverityHigh))
	if score != 6 || level != LevelSuspicious {
		t.Errorf("aggregate = %d, %s, want 6 SUSPICIOUS", score, level)
	}
}
