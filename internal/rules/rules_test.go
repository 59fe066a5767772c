package rules

import (
	"testing"
	"time"

	"veridoc/internal/crosscheck"
	"veridoc/internal/metadata"
)

var analysisClock = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func tp(t time.Time) *time.Time { return &t }
func sp(s string) *string       { return &s }

func params() Params {
	p := DefaultParams()
	p.Now = analysisClock
	return p
}

func kinds(flags []Flag) []Kind {
	out := make([]Kind, len(flags))
	for i, f := range flags {
		out[i] = f.Kind
	}
	return out
}

func TestFutureDate(t *testing.T) {
	rec := &metadata.Record{Document: metadata.DocumentMeta{
		Created:  tp(analysisClock.Add(48 * time.Hour)),
		Modified: tp(analysisClock.Add(-time.Hour)),
	}}

	flags := FutureDate(rec, crosscheck.Facts{}, params())
	if len(flags) != 1 {
		t.Fatalf("flags = %v", kinds(flags))
	}
	if flags[0].Kind != KindFutureDate || flags[0].Severity != SeverityHigh {
		t.Errorf("flag = %+v", flags[0])
	}
}

func TestFutureDateExactNowIsNotFuture(t *testing.T) {
	rec := &metadata.Record{Document: metadata.DocumentMeta{
		Created: tp(analysisClock),
	}}
	if flags := FutureDate(rec, crosscheck.Facts{}, params()); len(flags) != 0 {
		t.Errorf("timestamp equal to the clock flagged: %v", kinds(flags))
	}
}

func TestImpossibleOrder(t *testing.T) {
	created := analysisClock.Add(-time.Hour)
	modified := analysisClock.Add(-2 * time.Hour)
	rec := &metadata.Record{Document: metadata.DocumentMeta{
		Created:  tp(created),
		Modified: tp(modified),
	}}

	flags := ImpossibleOrder(rec, crosscheck.Facts{}, params())
	if len(flags) != 1 || flags[0].Kind != KindImpossibleOrder || flags[0].Severity != SeverityHigh {
		t.Fatalf("flags = %+v", flags)
	}
}

func TestImpossibleOrderEqualTimestampsOK(t *testing.T) {
	ts := analysisClock.Add(-time.Hour)
	rec := &metadata.Record{Document: metadata.DocumentMeta{
		Created:  tp(ts),
		Modified: tp(ts),
	}}
	if flags := ImpossibleOrder(rec, crosscheck.Facts{}, params()); len(flags) != 0 {
		t.Errorf("equal timestamps flagged: %v", kinds(flags))
	}
}

// Timestamp rules stay silent when the record carries no timestamps at
// all; absence is handled by the stripping rule, not fabricated here.
func TestTimestampRulesSilentWithoutTimestamps(t *testing.T) {
	rec := &metadata.Record{Document: metadata.DocumentMeta{Format: metadata.FormatPDF}}
	p := params()
	facts := crosscheck.Compare(rec, 0)

	for name, rule := range map[string]Rule{
		"FutureDate":      FutureDate,
		"ImpossibleOrder": ImpossibleOrder,
		"CrossMismatch":   CrossMismatch,
	} {
		if flags := rule(rec, facts, p); len(flags) != 0 {
			t.Errorf("%s produced %v for a record with no timestamps", name, kinds(flags))
		}
	}
}

func TestCrossMismatchSeverityPromotion(t *testing.T) {
	facts := crosscheck.Facts{
		Tolerance: 24 * time.Hour,
		Pairs: []crosscheck.Comparison{
			{Field: "created", Delta: 48 * time.Hour, Mismatch: true},
			{Field: "modified", Delta: 45 * 24 * time.Hour, Mismatch: true},
			{Field: "created", Delta: time.Hour, Mismatch: false},
		},
	}

	flags := CrossMismatch(nil, facts, params())
	if len(flags) != 2 {
		t.Fatalf("flags = %d, want 2", len(flags))
	}
	if flags[0].Severity != SeverityMedium {
		t.Errorf("48h mismatch severity = %s, want medium", flags[0].Severity)
	}
	if flags[1].Severity != SeverityHigh {
		t.Errorf("45d mismatch severity = %s, want high", flags[1].Severity)
	}
}

func TestStrippedMetadata(t *testing.T) {
	tests := []struct {
		name string
		doc  metadata.DocumentMeta
		want Kind // "" means no flag
	}{
		{
			name: "all expected absent",
			doc:  metadata.DocumentMeta{Format: metadata.FormatDOCX},
			want: KindStrippedMeta,
		},
		{
			name: "one of three absent",
			doc: metadata.DocumentMeta{
				Format:  metadata.FormatDOCX,
				Author:  sp("Dana"),
				Created: tp(analysisClock.Add(-time.Hour)),
			},
			want: KindMissingFields,
		},
		{
			name: "all present",
			doc: metadata.DocumentMeta{
				Format:  metadata.FormatDOCX,
				Author:  sp("Dana"),
				Title:   sp("Report"),
				Created: tp(analysisClock.Add(-time.Hour)),
			},
			want: "",
		},
		{
			name: "blank counts as present",
			doc: metadata.DocumentMeta{
				Format:  metadata.FormatDOCX,
				Author:  sp(""),
				Title:   sp(""),
				Created: tp(analysisClock.Add(-time.Hour)),
			},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := StrippedMetadata(&metadata.Record{Document: tt.doc}, crosscheck.Facts{}, params())
			if tt.want == "" {
				if len(flags) != 0 {
					t.Fatalf("flags = %v, want none", kinds(flags))
				}
				return
			}
			if len(flags) != 1 || flags[0].Kind != tt.want {
				t.Fatalf("flags = %v, want %s", kinds(flags), tt.want)
			}
		})
	}
}

func TestGenericValue(t *testing.T) {
	rec := &metadata.Record{Document: metadata.DocumentMeta{
		Format:  metadata.FormatDOCX,
		Author:  sp("Admin"),
		Company: sp("   "),
		Title:   sp("Budget 2024"),
	}}

	flags := GenericValue(rec, crosscheck.Facts{}, params())
	if len(flags) != 2 {
		t.Fatalf("flags = %v, want author and company", kinds(flags))
	}
	for _, f := range flags {
		if f.Kind != KindGenericValue || f.Severity != SeverityLow {
			t.Errorf("flag = %+v", f)
		}
	}
}

func TestGenericValueAbsentFieldsIgnored(t *testing.T) {
	rec := &metadata.Record{Document: metadata.DocumentMeta{Format: metadata.FormatPDF}}
	if flags := GenericValue(rec, crosscheck.Facts{}, params()); len(flags) != 0 {
		t.Errorf("absent fields flagged: %v", kinds(flags))
	}
}

func TestEncryptedBlank(t *testing.T) {
	rec := &metadata.Record{Document: metadata.DocumentMeta{
		Format: metadata.FormatPDF,
		PDF:    &metadata.PDFFacts{Encrypted: true},
	}}
	flags := EncryptedBlank(rec, crosscheck.Facts{}, params())
	if len(flags) != 1 || flags[0].Kind != KindEncryptedBlank || flags[0].Severity != SeverityMedium {
		t.Fatalf("flags = %+v", flags)
	}

	// An encrypted PDF that still exposes a title is not flagged.
	rec.Document.Title = sp("Agenda")
	if flags := EncryptedBlank(rec, crosscheck.Facts{}, params()); len(flags) != 0 {
		t.Errorf("encrypted PDF with title flagged: %v", kinds(flags))
	}

	// Unencrypted PDFs never match.
	rec.Document.Title = nil
	rec.Document.PDF.Encrypted = false
	if flags := EncryptedBlank(rec, crosscheck.Facts{}, params()); len(flags) != 0 {
		t.Errorf("unencrypted PDF flagged: %v", kinds(flags))
	}
}

func TestDefaultRuleOrder(t *testing.T) {
	// A record engineered to trip several rules at once must emit its
	// flags in rule-set order.
	created := analysisClock.Add(72 * time.Hour) // future and after modified
	modified := analysisClock.Add(-time.Hour)
	rec := &metadata.Record{Document: metadata.DocumentMeta{
		Format:   metadata.FormatPDF,
		Author:   sp("test"),
		Title:    sp("untitled"),
		Created:  tp(created),
		Modified: tp(modified),
	}}

	p := params()
	var flags []Flag
	for _, rule := range Default() {
		flags = append(flags, rule(rec, crosscheck.Facts{}, p)...)
	}

	want := []Kind{KindFutureDate, KindImpossibleOrder, KindGenericValue, KindGenericValue}
	got := kinds(flags)
	if len(got) != len(want) {
		t.Fatalf("flags = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("flags = %v, want %v", got, want)
		}
	}
}

func TestExpectedFieldsFromTags(t *testing.T) {
	if got := ExpectedFieldsFromTags(nil); got != nil {
		t.Errorf("nil input = %v, want nil", got)
	}
	got := ExpectedFieldsFromTags(map[string][]string{"pdf": {"author", "created"}})
	fields, ok := got[metadata.FormatPDF]
	if !ok || len(fields) != 2 {
		t.Fatalf("pdf fields = %v", got)
	}
}
