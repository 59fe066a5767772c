// Package rules implements the anomaly rule set. Each rule is a pure
// function of the canonical record and the cross-check facts; rules
// are combined by concatenation so they stay independently testable
// and reorderable.
package rules

import (
	"fmt"
	"strings"
	"time"

	"veridoc/internal/crosscheck"
	"veridoc/internal/metadata"
)

// Severity indicates how strongly a flag contributes to the risk score.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Kind categorizes a detected anomaly.
type Kind string

const (
	KindFutureDate      Kind = "future_date"
	KindImpossibleOrder Kind = "impossible_order"
	KindCrossMismatch   Kind = "cross_mismatch"
	KindStrippedMeta    Kind = "stripped_metadata"
	KindMissingFields   Kind = "missing_fields"
	KindGenericValue    Kind = "generic_value"
	KindEncryptedBlank  Kind = "encrypted_no_metadata"
)

// Flag is one detected anomaly. Flags are immutable value objects
// with no identity beyond their contents.
type Flag struct {
	Kind     Kind     `json:"kind"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Evidence string   `json:"evidence,omitempty"`
}

// Params carries the injected clock and the tunable thresholds every
// rule may consult. The clock is a parameter so tests are
// deterministic.
type Params struct {
	// Now is the analysis wall-clock at evaluation time.
	Now time.Time

	// HighMismatchDelta promotes a cross-check mismatch to high
	// severity when exceeded (default 30 days).
	HighMismatchDelta time.Duration

	// ExpectedFields lists the descriptive fields a document of each
	// format is expected to carry.
	ExpectedFields map[metadata.Format][]string

	// StrippedRatio is the absent-fields fraction above which the
	// stripped-metadata flag fires instead of missing-fields.
	StrippedRatio float64

	// GenericTokens are placeholder values matched case-insensitively
	// against author/company/title.
	GenericTokens []string
}

// Default thresholds. These are heuristics, not forensic standards;
// deployments retune them through configuration.
const (
	DefaultHighMismatchDelta = 30 * 24 * time.Hour
	DefaultStrippedRatio     = 0.5
)

// DefaultExpectedFields returns the per-format expected-field sets.
func DefaultExpectedFields() map[metadata.Format][]string {
	fields := []string{"author", "title", "created"}
	m := make(map[metadata.Format][]string, len(metadata.Formats()))
	for _, f := range metadata.Formats() {
		m[f] = fields
	}
	return m
}

// ExpectedFieldsFromTags converts a format-tag keyed field listing,
// such as one read from configuration, into Params form. Empty input
// returns nil so the built-in sets apply.
func ExpectedFieldsFromTags(fields map[string][]string) map[metadata.Format][]string {
	if len(fields) == 0 {
		return nil
	}
	m := make(map[metadata.Format][]string, len(fields))
	for tag, names := range fields {
		m[metadata.Format(tag)] = names
	}
	return m
}

// DefaultGenericTokens returns the placeholder tokens checked by the
// generic-value rule.
func DefaultGenericTokens() []string {
	return []string{"test", "admin", "unknown", "user", "sample", "untitled"}
}

// DefaultParams returns Params with every threshold at its default.
// The clock is left zero; the engine stamps it per evaluation.
func DefaultParams() Params {
	return Params{
		HighMismatchDelta: DefaultHighMismatchDelta,
		ExpectedFields:    DefaultExpectedFields(),
		StrippedRatio:     DefaultStrippedRatio,
		GenericTokens:     DefaultGenericTokens(),
	}
}

// Rule evaluates one anomaly predicate. Rules never error: absence of
// data is a valid input producing zero flags.
type Rule func(rec *metadata.Record, facts crosscheck.Facts, p Params) []Flag

// Default returns the rule set in evaluation order. Flag order in a
// result follows this order, stable across runs.
func Default() []Rule {
	return []Rule{
		FutureDate,
		ImpossibleOrder,
		CrossMismatch,
		StrippedMetadata,
		GenericValue,
		EncryptedBlank,
	}
}

// FutureDate flags any document timestamp strictly after the injected
// analysis clock.
func FutureDate(rec *metadata.Record, _ crosscheck.Facts, p Params) []Flag {
	var flags []Flag
	check := func(name string, t *time.Time) {
		if t == nil || !t.After(p.Now) {
			return
		}
		flags = append(flags, Flag{
			Kind:     KindFutureDate,
			Severity: SeverityHigh,
			Message:  fmt.Sprintf("document %s timestamp is in the future", name),
			Evidence: fmt.Sprintf("%s=%s now=%s", name, t.Format(time.RFC3339), p.Now.Format(time.RFC3339)),
		})
	}
	check("created", rec.Document.Created)
	check("modified", rec.Document.Modified)
	return flags
}

// ImpossibleOrder flags a document creation timestamp strictly after
// its modification timestamp.
func ImpossibleOrder(rec *metadata.Record, _ crosscheck.Facts, _ Params) []Flag {
	created, modified := rec.Document.Created, rec.Document.Modified
	if created == nil || modified == nil || !created.After(*modified) {
		return nil
	}
	return []Flag{{
		Kind:     KindImpossibleOrder,
		Severity: SeverityHigh,
		Message:  "document creation timestamp is after its modification timestamp",
		Evidence: fmt.Sprintf("created=%s modified=%s", created.Format(time.RFC3339), modified.Format(time.RFC3339)),
	}}
}

// CrossMismatch derives flags from the cross-check mismatch facts:
// high severity past HighMismatchDelta, medium otherwise.
func CrossMismatch(_ *metadata.Record, facts crosscheck.Facts, p Params) []Flag {
	high := p.HighMismatchDelta
	if high <= 0 {
		high = DefaultHighMismatchDelta
	}
	var flags []Flag
	for _, m := range facts.Mismatches() {
		sev := SeverityMedium
		if m.Delta > high {
			sev = SeverityHigh
		}
		flags = append(flags, Flag{
			Kind:     KindCrossMismatch,
			Severity: sev,
			Message:  fmt.Sprintf("filesystem and document %s timestamps differ by %s", m.Field, m.Delta.Round(time.Second)),
			Evidence: fmt.Sprintf("filesystem=%s document=%s", m.Filesystem.Format(time.RFC3339), m.Document.Format(time.RFC3339)),
		})
	}
	return flags
}

// StrippedMetadata counts absent expected fields for the record's
// format. A majority absent (ratio above StrippedRatio) flags
// stripping at high severity; a partial absence flags missing fields
// at medium severity.
func StrippedMetadata(rec *metadata.Record, _ crosscheck.Facts, p Params) []Flag {
	expected := p.ExpectedFields[rec.Document.Format]
	if len(expected) == 0 {
		return nil
	}

	var absent []string
	for _, name := range expected {
		if _, present := rec.Document.Field(name); !present {
			absent = append(absent, name)
		}
	}
	if len(absent) == 0 {
		return nil
	}

	ratio := p.StrippedRatio
	if ratio <= 0 {
		ratio = DefaultStrippedRatio
	}
	evidence := fmt.Sprintf("absent=%s expected=%s", strings.Join(absent, ","), strings.Join(expected, ","))

	if float64(len(absent))/float64(len(expected)) > ratio {
		return []Flag{{
			Kind:     KindStrippedMeta,
			Severity: SeverityHigh,
			Message:  fmt.Sprintf("%d of %d expected metadata fields are absent, suggesting deliberate stripping", len(absent), len(expected)),
			Evidence: evidence,
		}}
	}
	return []Flag{{
		Kind:     KindMissingFields,
		Severity: SeverityMedium,
		Message:  fmt.Sprintf("%d of %d expected metadata fields are absent", len(absent), len(expected)),
		Evidence: evidence,
	}}
}

// GenericValue flags author/company/title values matching the
// configured placeholder tokens, or blank after trimming. Absent
// fields are not matched; absence belongs to the stripping rule.
func GenericValue(rec *metadata.Record, _ crosscheck.Facts, p Params) []Flag {
	tokens := make(map[string]bool, len(p.GenericTokens))
	for _, t := range p.GenericTokens {
		tokens[strings.ToLower(t)] = true
	}

	var flags []Flag
	for _, field := range []string{"author", "company", "title"} {
		value, present := rec.Document.Field(field)
		if !present {
			continue
		}
		trimmed := strings.ToLower(strings.TrimSpace(value))
		if trimmed != "" && !tokens[trimmed] {
			continue
		}
		flags = append(flags, Flag{
			Kind:     KindGenericValue,
			Severity: SeverityLow,
			Message:  fmt.Sprintf("generic or blank value in document %s", field),
			Evidence: fmt.Sprintf("%s=%q", field, value),
		})
	}
	return flags
}

// EncryptedBlank flags an encrypted PDF that exposes no author or
// title, a common obfuscation pattern.
func EncryptedBlank(rec *metadata.Record, _ crosscheck.Facts, _ Params) []Flag {
	pdf := rec.Document.PDF
	if pdf == nil || !pdf.Encrypted {
		return nil
	}
	if rec.Document.Author != nil || rec.Document.Title != nil {
		return nil
	}
	return []Flag{{
		Kind:     KindEncryptedBlank,
		Severity: SeverityMedium,
		Message:  "PDF is encrypted and exposes no author or title",
	}}
}
