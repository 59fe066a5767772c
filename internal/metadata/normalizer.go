package metadata

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Raw extraction keys shared by every format. Values are strings as
// produced by the extractor; a missing key means the field is absent,
// a present empty string means the field exists but is blank.
const (
	KeyTitle          = "title"
	KeyAuthor         = "author"
	KeySubject        = "subject"
	KeyCompany        = "company"
	KeyKeywords       = "keywords"
	KeyLastModifiedBy = "last_modified_by"
	KeyProducer       = "producer"
	KeyCreated        = "created"
	KeyModified       = "modified"

	KeyPages      = "pages"
	KeyEncrypted  = "encrypted"
	KeyVersion    = "version"
	KeyLinearized = "linearized"
	KeyParagraphs = "paragraphs"
	KeyTables     = "tables"
	KeySheets     = "sheets"
	KeySheetNames = "sheet_names"
	KeySlides     = "slides"
)

// SheetNameSep separates entries in the raw sheet_names value.
const SheetNameSep = "\n"

// factsFunc maps format-specific raw keys onto the typed fact structs.
type factsFunc func(raw map[string]string, doc *DocumentMeta)

// Normalizer maps raw filesystem attributes plus raw per-format
// extraction output into a canonical Record. Adding a format means
// adding a table entry, not editing conditionals.
type Normalizer struct {
	facts map[Format]factsFunc
}

// NewNormalizer returns a Normalizer covering all supported formats.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		facts: map[Format]factsFunc{
			FormatPDF:  pdfFacts,
			FormatDOCX: docxFacts,
			FormatXLSX: xlsxFacts,
			FormatPPTX: pptxFacts,
		},
	}
}

// Normalize builds the canonical record. The filesystem half is taken
// as-is from the host; the document half is mapped from the raw
// key/value extraction output. A nil raw map yields a document half
// with every field absent. Pure transform, no side effects.
func (n *Normalizer) Normalize(attrs FilesystemMeta, format Format, raw map[string]string) (*Record, error) {
	facts, ok := n.facts[format]
	if !ok {
		return nil, &UnsupportedFormatError{Ext: string(format)}
	}

	doc := DocumentMeta{Format: format}
	doc.Title = rawString(raw, KeyTitle)
	doc.Author = rawString(raw, KeyAuthor)
	doc.Subject = rawString(raw, KeySubject)
	doc.Company = rawString(raw, KeyCompany)
	doc.Keywords = rawString(raw, KeyKeywords)
	doc.LastModifiedBy = rawString(raw, KeyLastModifiedBy)
	doc.Producer = rawString(raw, KeyProducer)
	doc.Created = rawTime(raw, KeyCreated)
	doc.Modified = rawTime(raw, KeyModified)
	facts(raw, &doc)

	return &Record{Filesystem: attrs, Document: doc}, nil
}

func pdfFacts(raw map[string]string, doc *DocumentMeta) {
	f := &PDFFacts{
		Pages:      rawInt(raw, KeyPages),
		Encrypted:  raw[KeyEncrypted] == "true",
		Version:    rawString(raw, KeyVersion),
		Linearized: raw[KeyLinearized] == "true",
	}
	doc.PDF = f
}

func docxFacts(raw map[string]string, doc *DocumentMeta) {
	doc.Word = &WordFacts{
		Paragraphs: rawInt(raw, KeyParagraphs),
		Tables:     rawInt(raw, KeyTables),
	}
}

func xlsxFacts(raw map[string]string, doc *DocumentMeta) {
	f := &WorkbookFacts{Sheets: rawInt(raw, KeySheets)}
	if names, ok := raw[KeySheetNames]; ok && names != "" {
		f.SheetNames = strings.Split(names, SheetNameSep)
	}
	doc.Workbook = f
}

func pptxFacts(raw map[string]string, doc *DocumentMeta) {
	doc.Slides = &SlideFacts{Slides: rawInt(raw, KeySlides)}
}

func rawString(raw map[string]string, key string) *string {
	v, ok := raw[key]
	if !ok {
		return nil
	}
	return &v
}

func rawInt(raw map[string]string, key string) *int {
	v, ok := raw[key]
	if !ok {
		return nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return &i
}

// rawTime parses a raw timestamp value. Unparsable or blank values
// are absent, never a zero-time sentinel, so downstream rules cannot
// misread a parse failure as an epoch date.
func rawTime(raw map[string]string, key string) *time.Time {
	v, ok := raw[key]
	if !ok {
		return nil
	}
	return ParseTimestamp(v)
}

// pdfDateRe matches the PDF date form D:YYYYMMDDHHmmSS with an
// optional Z or ±HH'mm' zone suffix. Seconds and smaller components
// may be omitted by some producers.
var pdfDateRe = regexp.MustCompile(`^D:(\d{4})(\d{2})?(\d{2})?(\d{2})?(\d{2})?(\d{2})?(Z|[+-]\d{2}(?:'\d{2}'?)?)?`)

// isoLayouts are tried in order for non-PDF timestamp strings.
var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses ISO/RFC 3339 variants and the PDF D: date
// form into an absolute instant. Layouts without a zone are taken as
// UTC. Returns nil when the value cannot be parsed.
func ParseTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}

	m := pdfDateRe.FindStringSubmatch(s)
	if m == nil {
		return nil
	}

	year := atoiDefault(m[1], 0)
	month := atoiDefault(m[2], 1)
	day := atoiDefault(m[3], 1)
	hour := atoiDefault(m[4], 0)
	minute := atoiDefault(m[5], 0)
	sec := atoiDefault(m[6], 0)
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return nil
	}

	loc := time.UTC
	if z := m[7]; z != "" && z != "Z" {
		sign := 1
		if z[0] == '-' {
			sign = -1
		}
		zh := atoiDefault(z[1:3], 0)
		zm := 0
		if len(z) >= 6 {
			zm = atoiDefault(z[4:6], 0)
		}
		loc = time.FixedZone("", sign*(zh*3600+zm*60))
	}

	t := time.Date(year, time.Month(month), day, hour, minute, sec, 0, loc).UTC()
	return &t
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
