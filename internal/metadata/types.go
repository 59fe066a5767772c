// Package metadata defines the canonical metadata record and the
// normalizer that maps per-format extraction output into it.
package metadata

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"
)

// Format identifies a supported document format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatXLSX Format = "xlsx"
	FormatPPTX Format = "pptx"
)

// Formats lists every supported format in a stable order.
func Formats() []Format {
	return []Format{FormatPDF, FormatDOCX, FormatXLSX, FormatPPTX}
}

// FormatForPath derives the format from a file name extension.
func FormatForPath(path string) (Format, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	f := Format(ext)
	switch f {
	case FormatPDF, FormatDOCX, FormatXLSX, FormatPPTX:
		return f, nil
	}
	return "", &UnsupportedFormatError{Ext: ext}
}

// UnsupportedFormatError is returned when no normalizer or extractor
// is registered for a format tag. It is fatal for the item only.
type UnsupportedFormatError struct {
	Ext string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Ext == "" {
		return "unsupported format"
	}
	return fmt.Sprintf("unsupported format: %q", e.Ext)
}

// MIMEType returns the registered MIME type for a format.
func (f Format) MIMEType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPPTX:
		return "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	default:
		return "application/octet-stream"
	}
}

// FilesystemMeta holds OS-level attributes of the analyzed file.
// Timestamps that the platform cannot provide are nil, never zero.
type FilesystemMeta struct {
	Path      string      `json:"path"`
	SizeBytes int64       `json:"size_bytes"`
	Mode      fs.FileMode `json:"mode"`

	Created  *time.Time `json:"created,omitempty"`
	Modified *time.Time `json:"modified,omitempty"`
	Accessed *time.Time `json:"accessed,omitempty"`

	// Inode is the platform identity key when available.
	Inode *uint64 `json:"inode,omitempty"`
	Owner string  `json:"owner,omitempty"`

	MIMEType string `json:"mime_type,omitempty"`
	MD5      string `json:"md5,omitempty"`
	SHA1     string `json:"sha1,omitempty"`
	SHA256   string `json:"sha256,omitempty"`
}

// DocumentMeta holds document-internal metadata. Every field is
// optional: a nil pointer means the field could not be read or does
// not exist, which is distinct from a present-but-blank value.
type DocumentMeta struct {
	Format Format `json:"format"`

	Title          *string `json:"title,omitempty"`
	Author         *string `json:"author,omitempty"`
	Subject        *string `json:"subject,omitempty"`
	Company        *string `json:"company,omitempty"`
	Keywords       *string `json:"keywords,omitempty"`
	LastModifiedBy *string `json:"last_modified_by,omitempty"`

	// Producer is the producing application string (PDF /Producer,
	// OOXML Application).
	Producer *string `json:"producer,omitempty"`

	Created  *time.Time `json:"created,omitempty"`
	Modified *time.Time `json:"modified,omitempty"`

	PDF      *PDFFacts      `json:"pdf,omitempty"`
	Word     *WordFacts     `json:"word,omitempty"`
	Workbook *WorkbookFacts `json:"workbook,omitempty"`
	Slides   *SlideFacts    `json:"slides,omitempty"`
}

// PDFFacts are PDF-specific structural facts.
type PDFFacts struct {
	Pages      *int    `json:"pages,omitempty"`
	Encrypted  bool    `json:"encrypted"`
	Version    *string `json:"version,omitempty"`
	Linearized bool    `json:"linearized"`
}

// WordFacts are DOCX-specific structural facts.
type WordFacts struct {
	Paragraphs *int `json:"paragraphs,omitempty"`
	Tables     *int `json:"tables,omitempty"`
}

// WorkbookFacts are XLSX-specific structural facts.
type WorkbookFacts struct {
	Sheets     *int     `json:"sheets,omitempty"`
	SheetNames []string `json:"sheet_names,omitempty"`
}

// SlideFacts are PPTX-specific structural facts.
type SlideFacts struct {
	Slides *int `json:"slides,omitempty"`
}

// Record is the canonical, immutable snapshot of one analyzed
// artifact. It is created fresh per analysis and never mutated.
type Record struct {
	Filesystem FilesystemMeta `json:"filesystem"`
	Document   DocumentMeta   `json:"document"`
}

// Field returns the named descriptive document field and whether it
// is present. Field names are the raw extraction keys ("author",
// "title", "company", "created", "modified", ...). Used by rules that
// are configured with expected-field sets.
func (d *DocumentMeta) Field(name string) (value string, present bool) {
	switch name {
	case "title":
		return deref(d.Title)
	case "author":
		return deref(d.Author)
	case "subject":
		return deref(d.Subject)
	case "company":
		return deref(d.Company)
	case "keywords":
		return deref(d.Keywords)
	case "last_modified_by":
		return deref(d.LastModifiedBy)
	case "producer", "application":
		return deref(d.Producer)
	case "created":
		if d.Created == nil {
			return "", false
		}
		return d.Created.Format(time.RFC3339), true
	case "modified":
		if d.Modified == nil {
			return "", false
		}
		return d.Modified.Format(time.RFC3339), true
	}
	return "", false
}

func deref(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	return *s, true
}
