// Package extract reads documents from disk and produces the raw
// field maps and filesystem attributes consumed by the analysis
// pipeline. Extractors report what a file actually contains: a key
// absent from the map means the field is not present in the document,
// while an empty string means the field exists but is blank.
package extract

import (
	"fmt"

	"veridoc/internal/metadata"
)

// ExtractionError wraps a per-format reader failure with the path it
// occurred on.
type ExtractionError struct {
	Path   string
	Format metadata.Format
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s %q: %v", e.Format, e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

type documentFunc func(path string) (map[string]string, error)

var documentFuncs = map[metadata.Format]documentFunc{
	metadata.FormatPDF:  pdfDocument,
	metadata.FormatDOCX: docxDocument,
	metadata.FormatXLSX: xlsxDocument,
	metadata.FormatPPTX: pptxDocument,
}

// Document reads the raw document fields for the given format. On
// failure it may still return the fields it managed to read alongside
// the error, so callers can analyze partial data.
func Document(path string, format metadata.Format) (map[string]string, error) {
	fn, ok := documentFuncs[format]
	if !ok {
		return nil, &metadata.UnsupportedFormatError{Ext: string(format)}
	}
	raw, err := fn(path)
	if err != nil {
		return raw, &ExtractionError{Path: path, Format: format, Err: err}
	}
	return raw, nil
}
