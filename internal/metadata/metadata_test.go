package metadata

import (
	"testing"
	"time"
)

func TestFormatForPath(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"report.pdf", FormatPDF, false},
		{"REPORT.PDF", FormatPDF, false},
		{"/tmp/letter.docx", FormatDOCX, false},
		{"books.xlsx", FormatXLSX, false},
		{"deck.pptx", FormatPPTX, false},
		{"notes.txt", "", true},
		{"archive.doc", "", true},
		{"noext", "", true},
	}

	for _, tt := range tests {
		got, err := FormatForPath(tt.path)
		if tt.wantErr {
			if err == nil {
				t.Errorf("FormatForPath(%q): expected error, got %q", tt.path, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("FormatForPath(%q): %v", tt.path, err)
			continue
		}
		if got != tt.want {
			t.Errorf("FormatForPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestMIMEType(t *testing.T) {
	if got := FormatPDF.MIMEType(); got != "application/pdf" {
		t.Errorf("pdf MIME = %q", got)
	}
	if got := Format("weird").MIMEType(); got != "application/octet-stream" {
		t.Errorf("unknown MIME = %q", got)
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string // RFC3339 in UTC; empty means unparsable
	}{
		{"rfc3339 utc", "2024-03-10T14:30:00Z", "2024-03-10T14:30:00Z"},
		{"rfc3339 offset", "2024-03-10T14:30:00+02:00", "2024-03-10T12:30:00Z"},
		{"bare datetime", "2024-03-10T14:30:00", "2024-03-10T14:30:00Z"},
		{"spaced datetime", "2024-03-10 14:30:00", "2024-03-10T14:30:00Z"},
		{"date only", "2024-03-10", "2024-03-10T00:00:00Z"},
		{"pdf full z", "D:20240310143000Z", "2024-03-10T14:30:00Z"},
		{"pdf offset", "D:20240310143000+02'00'", "2024-03-10T12:30:00Z"},
		{"pdf negative offset", "D:20240310143000-05'30'", "2024-03-10T20:00:00Z"},
		{"pdf no seconds", "D:202403101430", "2024-03-10T14:30:00Z"},
		{"pdf date only", "D:20240310", "2024-03-10T00:00:00Z"},
		{"pdf year only", "D:2024", "2024-01-01T00:00:00Z"},
		{"whitespace trimmed", "  2024-03-10T14:30:00Z  ", "2024-03-10T14:30:00Z"},
		{"blank", "", ""},
		{"garbage", "last tuesday", ""},
		{"pdf bad month", "D:20241310", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTimestamp(tt.input)
			if tt.want == "" {
				if got != nil {
					t.Fatalf("ParseTimestamp(%q) = %v, want nil", tt.input, got)
				}
				return
			}
			if got == nil {
				t.Fatalf("ParseTimestamp(%q) = nil, want %s", tt.input, tt.want)
			}
			want, err := time.Parse(time.RFC3339, tt.want)
			if err != nil {
				t.Fatal(err)
			}
			if !got.Equal(want) {
				t.Errorf("ParseTimestamp(%q) = %s, want %s", tt.input, got.Format(time.RFC3339), tt.want)
			}
			if got.Location() != time.UTC {
				t.Errorf("ParseTimestamp(%q) not normalized to UTC", tt.input)
			}
		})
	}
}

func TestNormalizeAbsentVsBlank(t *testing.T) {
	n := NewNormalizer()
	raw := map[string]string{
		KeyAuthor: "",
		KeyTitle:  "Quarterly Review",
	}

	rec, err := n.Normalize(FilesystemMeta{Path: "q.docx"}, FormatDOCX, raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	if rec.Document.Author == nil {
		t.Error("blank author should be present, not absent")
	} else if *rec.Document.Author != "" {
		t.Errorf("blank author = %q", *rec.Document.Author)
	}
	if rec.Document.Title == nil || *rec.Document.Title != "Quarterly Review" {
		t.Errorf("title = %v", rec.Document.Title)
	}
	if rec.Document.Subject != nil {
		t.Error("missing subject should be absent")
	}
	if rec.Document.Created != nil {
		t.Error("missing created should be absent")
	}
	if rec.Document.Word == nil {
		t.Error("docx record should carry word facts")
	}
}

func TestNormalizeNilRaw(t *testing.T) {
	n := NewNormalizer()
	rec, err := n.Normalize(FilesystemMeta{Path: "x.pdf"}, FormatPDF, nil)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if rec.Document.Author != nil || rec.Document.Title != nil || rec.Document.Created != nil {
		t.Error("nil raw should leave every document field absent")
	}
	if rec.Document.PDF == nil {
		t.Fatal("pdf facts missing")
	}
	if rec.Document.PDF.Encrypted {
		t.Error("nil raw should not mark encrypted")
	}
}

func TestNormalizeUnparsableTimestampIsAbsent(t *testing.T) {
	n := NewNormalizer()
	rec, err := n.Normalize(FilesystemMeta{}, FormatPDF, map[string]string{
		KeyCreated: "not a date",
	})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if rec.Document.Created != nil {
		t.Errorf("unparsable timestamp should be absent, got %v", rec.Document.Created)
	}
}

func TestNormalizeFormatFacts(t *testing.T) {
	n := NewNormalizer()

	rec, err := n.Normalize(FilesystemMeta{}, FormatXLSX, map[string]string{
		KeySheets:     "3",
		KeySheetNames: "Revenue\nCosts\nNotes",
	})
	if err != nil {
		t.Fatalf("Normalize xlsx: %v", err)
	}
	wb := rec.Document.Workbook
	if wb == nil || wb.Sheets == nil || *wb.Sheets != 3 {
		t.Fatalf("workbook facts = %+v", wb)
	}
	if len(wb.SheetNames) != 3 || wb.SheetNames[1] != "Costs" {
		t.Errorf("sheet names = %v", wb.SheetNames)
	}

	rec, err = n.Normalize(FilesystemMeta{}, FormatPPTX, map[string]string{KeySlides: "12"})
	if err != nil {
		t.Fatalf("Normalize pptx: %v", err)
	}
	if rec.Document.Slides == nil || rec.Document.Slides.Slides == nil || *rec.Document.Slides.Slides != 12 {
		t.Errorf("slide facts = %+v", rec.Document.Slides)
	}
}

func TestNormalizeUnsupportedFormat(t *testing.T) {
	n := NewNormalizer()
	if _, err := n.Normalize(FilesystemMeta{}, Format("csv"), nil); err == nil {
		t.Fatal("expected unsupported format error")
	}
}

func TestDocumentMetaField(t *testing.T) {
	author := "Dana"
	created := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	doc := DocumentMeta{Author: &author, Created: &created}

	if v, ok := doc.Field("author"); !ok || v != "Dana" {
		t.Errorf("author field = %q, %v", v, ok)
	}
	if v, ok := doc.Field("created"); !ok || v != "2024-03-10T00:00:00Z" {
		t.Errorf("created field = %q, %v", v, ok)
	}
	if _, ok := doc.Field("title"); ok {
		t.Error("absent title should not be present")
	}
	if _, ok := doc.Field("bogus"); ok {
		t.Error("unknown field should not be present")
	}
}
