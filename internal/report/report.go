// Package report renders analysis results for people and machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"veridoc/internal/engine"
	"veridoc/internal/risk"
	"veridoc/internal/rules"
)

// Format specifies the output format for analysis reports.
type Format string

const (
	FormatJSON     Format = "json"
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
)

// ParseFormat parses a report format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "text", "":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unknown report format: %s", s)
	}
}

// Generator renders analysis results in various formats.
type Generator struct {
	format  Format
	verbose bool
}

// NewGenerator creates a report generator.
func NewGenerator(format Format) *Generator {
	return &Generator{format: format}
}

// WithVerbose enables verbose output: full digests and raw evidence.
func (g *Generator) WithVerbose(verbose bool) *Generator {
	g.verbose = verbose
	return g
}

// Generate renders one result in the configured format.
func (g *Generator) Generate(res *engine.Result, w io.Writer) error {
	switch g.format {
	case FormatJSON:
		return g.generateJSON(res, w)
	case FormatText:
		return g.generateText(res, w)
	case FormatMarkdown:
		return g.generateMarkdown(res, w)
	default:
		return fmt.Errorf("unknown format: %s", g.format)
	}
}

func (g *Generator) generateJSON(res *engine.Result, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(res)
}

func (g *Generator) generateText(res *engine.Result, w io.Writer) error {
	fmt.Fprintln(w, "================================================================================")
	fmt.Fprintln(w, "                      VERIDOC DOCUMENT ANALYSIS REPORT")
	fmt.Fprintln(w, "================================================================================")
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Document:        %s\n", res.Name)
	fmt.Fprintf(w, "Assessment:      %s\n", g.assessmentString(res))
	fmt.Fprintf(w, "Risk Score:      %d\n", res.RiskScore)
	fmt.Fprintf(w, "Analyzed:        %s\n", res.AnalyzedAt.Format(time.RFC3339))
	fmt.Fprintln(w)

	if res.Record != nil {
		fs := res.Record.Filesystem
		doc := res.Record.Document

		fmt.Fprintln(w, "--- File ---")
		fmt.Fprintf(w, "Format:          %s\n", doc.Format)
		fmt.Fprintf(w, "Size:            %d bytes\n", fs.SizeBytes)
		fmt.Fprintf(w, "SHA-256:         %s\n", g.truncateHash(fs.SHA256))
		if fs.Modified != nil {
			fmt.Fprintf(w, "FS Modified:     %s\n", fs.Modified.Format(time.RFC3339))
		}
		if fs.Created != nil {
			fmt.Fprintf(w, "FS Created:      %s\n", fs.Created.Format(time.RFC3339))
		}
		fmt.Fprintln(w)

		fmt.Fprintln(w, "--- Document Metadata ---")
		writeOpt(w, "Title", doc.Title)
		writeOpt(w, "Author", doc.Author)
		writeOpt(w, "Company", doc.Company)
		writeOpt(w, "Last Modified By", doc.LastModifiedBy)
		writeOpt(w, "Producer", doc.Producer)
		if doc.Created != nil {
			fmt.Fprintf(w, "%-17s%s\n", "Created:", doc.Created.Format(time.RFC3339))
		}
		if doc.Modified != nil {
			fmt.Fprintf(w, "%-17s%s\n", "Modified:", doc.Modified.Format(time.RFC3339))
		}
		fmt.Fprintln(w)
	}

	if mismatches := res.CrossCheck.Mismatches(); len(mismatches) > 0 {
		fmt.Fprintln(w, "--- Timestamp Mismatches ---")
		for _, m := range mismatches {
			fmt.Fprintf(w, "  * %-10s document %s vs filesystem %s (delta %v)\n",
				m.Field, m.Document.Format(time.RFC3339),
				m.Filesystem.Format(time.RFC3339), m.Delta)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "--- Anomaly Flags ---")
	if len(res.Flags) == 0 {
		fmt.Fprintln(w, "  none")
	}
	for _, f := range res.Flags {
		fmt.Fprintf(w, "[%s] %-20s %s\n", g.severitySymbol(f.Severity), f.Kind, f.Message)
		if g.verbose && f.Evidence != "" {
			fmt.Fprintf(w, "     Evidence: %s\n", f.Evidence)
		}
	}
	fmt.Fprintln(w)

	if len(res.Errors) > 0 {
		fmt.Fprintln(w, "--- Errors ---")
		for stage, msg := range res.Errors {
			fmt.Fprintf(w, "  * %s: %s\n", stage, msg)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "================================================================================")
	return nil
}

func (g *Generator) generateMarkdown(res *engine.Result, w io.Writer) error {
	tmpl := `# Veridoc Document Analysis Report

## Summary

| Property | Value |
|----------|-------|
| **Document** | {{.Name}} |
| **Assessment** | {{.Assessment}} |
| **Risk Score** | {{.RiskScore}} |
| **Flags** | {{len .Flags}} |
| **Analyzed** | {{.AnalyzedAt}} |

{{if .Flags}}
## Anomaly Flags

| Severity | Kind | Message |
|----------|------|---------|
{{range .Flags}}| {{.Severity}} | {{.Kind}} | {{.Message}} |
{{end}}{{end}}

{{if .Errors}}
## Errors

{{range $stage, $msg := .Errors}}- **{{$stage}}**: {{$msg}}
{{end}}{{end}}
`

	t, err := template.New("report").Parse(tmpl)
	if err != nil {
		return err
	}

	view := struct {
		*engine.Result
		Assessment string
	}{
		Result:     res,
		Assessment: g.assessmentString(res),
	}
	return t.Execute(w, view)
}

// Helper functions

func (g *Generator) assessmentString(res *engine.Result) string {
	if res.Failed() {
		return "ANALYSIS FAILED"
	}
	return string(res.RiskLevel)
}

func (g *Generator) severitySymbol(s rules.Severity) string {
	switch s {
	case rules.SeverityHigh:
		return "!!"
	case rules.SeverityMedium:
		return "??"
	case rules.SeverityLow:
		return "--"
	default:
		return "  "
	}
}

func (g *Generator) truncateHash(hash string) string {
	if len(hash) <= 16 || g.verbose {
		return hash
	}
	return hash[:8] + "..." + hash[len(hash)-8:]
}

func writeOpt(w io.Writer, label string, v *string) {
	if v == nil {
		return
	}
	val := *v
	if val == "" {
		val = "(blank)"
	}
	fmt.Fprintf(w, "%-17s%s\n", label+":", val)
}

// Summary generates a one-line summary of a result.
func Summary(res *engine.Result) string {
	var sb strings.Builder

	if res.Failed() {
		sb.WriteString("[FAILED]")
	} else {
		sb.WriteString(fmt.Sprintf("[%s]", res.RiskLevel))
	}
	sb.WriteString(fmt.Sprintf(" %s", res.Name))
	sb.WriteString(fmt.Sprintf(" - score %d", res.RiskScore))

	if high := countSeverity(res.Flags, rules.SeverityHigh); high > 0 {
		sb.WriteString(fmt.Sprintf(", %d high", high))
	}
	if len(res.Flags) > 0 {
		sb.WriteString(fmt.Sprintf(", %d flags", len(res.Flags)))
	}
	return sb.String()
}

// Suspicious reports whether a result warrants manual review.
func Suspicious(res *engine.Result) bool {
	return res.RiskLevel == risk.LevelSuspicious
}

func countSeverity(flags []rules.Flag, sev rules.Severity) int {
	n := 0
	for _, f := range flags {
		if f.Severity == sev {
			n++
		}
	}
	return n
}
