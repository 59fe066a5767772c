package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"veridoc/internal/crosscheck"
	"veridoc/internal/engine"
	"veridoc/internal/metadata"
	"veridoc/internal/risk"
	"veridoc/internal/rules"
)

var analyzedAt = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func tp(t time.Time) *time.Time { return &t }
func sp(s string) *string       { return &s }

func sampleResult() *engine.Result {
	created := analyzedAt.Add(-48 * time.Hour)
	return &engine.Result{
		Name: "contract.pdf",
		Record: &metadata.Record{
			Filesystem: metadata.FilesystemMeta{
				Path:      "contract.pdf",
				SizeBytes: 4096,
				Modified:  tp(analyzedAt.Add(-time.Hour)),
				SHA256:    "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
			},
			Document: metadata.DocumentMeta{
				Format:  metadata.FormatPDF,
				Title:   sp("Service Agreement"),
				Author:  sp(""),
				Created: tp(created),
				PDF:     &metadata.PDFFacts{Encrypted: false},
			},
		},
		CrossCheck: crosscheck.Facts{
			Tolerance: 24 * time.Hour,
			Pairs: []crosscheck.Comparison{{
				Field:      "created",
				Filesystem: analyzedAt.Add(-time.Hour),
				Document:   created,
				Delta:      47 * time.Hour,
				Mismatch:   true,
			}},
		},
		Flags: []rules.Flag{
			{Kind: rules.KindCrossMismatch, Severity: rules.SeverityMedium, Message: "filesystem and document created timestamps differ by 47h0m0s", Evidence: "filesystem=x document=y"},
			{Kind: rules.KindGenericValue, Severity: rules.SeverityLow, Message: "generic or blank value in document author", Evidence: `author=""`},
		},
		RiskScore:  3,
		RiskLevel:  risk.LevelCaution,
		AnalyzedAt: analyzedAt,
	}
}

func failedResult() *engine.Result {
	return &engine.Result{
		Name:       "broken.docx",
		Errors:     map[string]string{"extract": "zip: not a valid archive"},
		AnalyzedAt: analyzedAt,
	}
}

func render(t *testing.T, g *Generator, res *engine.Result) string {
	t.Helper()
	var buf bytes.Buffer
	if err := g.Generate(res, &buf); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return buf.String()
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"text", FormatText, false},
		{"", FormatText, false},
		{"markdown", FormatMarkdown, false},
		{"md", FormatMarkdown, false},
		{"MD", FormatMarkdown, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr != (err != nil) {
			t.Errorf("ParseFormat(%q) err = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGenerateText(t *testing.T) {
	out := render(t, NewGenerator(FormatText), sampleResult())

	for _, want := range []string{
		"VERIDOC DOCUMENT ANALYSIS REPORT",
		"Document:        contract.pdf",
		"Assessment:      CAUTION",
		"Risk Score:      3",
		"--- File ---",
		"b94d27b9...e2efcde9", // digest truncated without verbose
		"Title:           Service Agreement",
		"Author:          (blank)",
		"--- Timestamp Mismatches ---",
		"--- Anomaly Flags ---",
		"[??] cross_mismatch",
		"[--] generic_value",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text report missing %q\n%s", want, out)
		}
	}

	if strings.Contains(out, "Evidence:") {
		t.Error("evidence rendered without verbose")
	}
	if strings.Contains(out, "Company:") {
		t.Error("absent company field rendered")
	}
}

func TestGenerateTextVerbose(t *testing.T) {
	out := render(t, NewGenerator(FormatText).WithVerbose(true), sampleResult())

	if !strings.Contains(out, "Evidence:") {
		t.Error("verbose report missing evidence")
	}
	if !strings.Contains(out, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9") {
		t.Error("verbose report should carry the full digest")
	}
}

func TestGenerateTextFailed(t *testing.T) {
	out := render(t, NewGenerator(FormatText), failedResult())

	if !strings.Contains(out, "Assessment:      ANALYSIS FAILED") {
		t.Errorf("failed assessment missing:\n%s", out)
	}
	if !strings.Contains(out, "--- Errors ---") || !strings.Contains(out, "zip: not a valid archive") {
		t.Errorf("errors section missing:\n%s", out)
	}
	if !strings.Contains(out, "  none") {
		t.Error("empty flag list should render as none")
	}
}

func TestGenerateJSON(t *testing.T) {
	out := render(t, NewGenerator(FormatJSON), sampleResult())

	var decoded engine.Result
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	if decoded.Name != "contract.pdf" || decoded.RiskScore != 3 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestGenerateMarkdown(t *testing.T) {
	out := render(t, NewGenerator(FormatMarkdown), sampleResult())

	for _, want := range []string{
		"# Veridoc Document Analysis Report",
		"| **Document** | contract.pdf |",
		"| **Assessment** | CAUTION |",
		"| medium | cross_mismatch |",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown report missing %q\n%s", want, out)
		}
	}
}

func TestSummary(t *testing.T) {
	got := Summary(sampleResult())
	want := "[CAUTION] contract.pdf - score 3, 2 flags"
	if got != want {
		t.Errorf("Summary = %q, want %q", got, want)
	}

	res := sampleResult()
	res.Flags[0].Severity = rules.SeverityHigh
	got = Summary(res)
	if !strings.Contains(got, "1 high") {
		t.Errorf("Summary = %q, want high count", got)
	}

	if got := Summary(failedResult()); !strings.HasPrefix(got, "[FAILED]") {
		t.Errorf("failed summary = %q", got)
	}
}

func TestSuspicious(t *testing.T) {
	res := sampleResult()
	if Suspicious(res) {
		t.Error("CAUTION reported as suspicious")
	}
	res.RiskLevel = risk.LevelSuspicious
	if !Suspicious(res) {
		t.Error("SUSPICIOUS not reported")
	}
}

// Every JSON report must satisfy the published schema.
func TestGeneratedJSONMatchesSchema(t *testing.T) {
	for name, res := range map[string]*engine.Result{
		"flagged": sampleResult(),
		"failed":  failedResult(),
		"clean": {
			Name:       "clean.docx",
			Record:     &metadata.Record{Document: metadata.DocumentMeta{Format: metadata.FormatDOCX}},
			CrossCheck: crosscheck.Facts{Tolerance: 24 * time.Hour},
			RiskLevel:  risk.LevelClean,
			AnalyzedAt: analyzedAt,
		},
	} {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := NewGenerator(FormatJSON).Generate(res, &buf); err != nil {
				t.Fatal(err)
			}
			if err := ValidateJSON(buf.Bytes()); err != nil {
				t.Errorf("schema validation failed: %v\n%s", err, buf.String())
			}
		})
	}
}

func TestValidateJSONRejectsBadReport(t *testing.T) {
	bad := `{"name": "", "risk_score": -1, "analyzed_at": "2024-06-01T12:00:00Z", "cross_check": {}}`
	if err := ValidateJSON([]byte(bad)); err == nil {
		t.Fatal("invalid report passed schema validation")
	}
	if err := ValidateJSON([]byte("{not json")); err == nil {
		t.Fatal("malformed JSON passed validation")
	}
}

// The embedded schema and the published copy under docs/schema must
// stay in lockstep.
func TestEmbeddedSchemaMatchesPublished(t *testing.T) {
	published, err := os.ReadFile(filepath.Join("..", "..", "docs", "schema", "analysis-report-v1.schema.json"))
	if err != nil {
		t.Fatalf("read published schema: %v", err)
	}
	if !bytes.Equal(bytes.TrimSpace(published), bytes.TrimSpace(reportSchema)) {
		t.Error("embedded schema diverged from docs/schema copy")
	}
}
