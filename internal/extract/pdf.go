package extract

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/ledongthuc/pdf"

	"veridoc/internal/metadata"
)

// infoFields maps document information dictionary entries to raw keys.
var infoFields = map[string]string{
	"Title":        metadata.KeyTitle,
	"Author":       metadata.KeyAuthor,
	"Subject":      metadata.KeySubject,
	"Keywords":     metadata.KeyKeywords,
	"Producer":     metadata.KeyProducer,
	"CreationDate": metadata.KeyCreated,
	"ModDate":      metadata.KeyModified,
}

// pdfDocument reads PDF metadata. Structural facts come from a raw
// byte scan first, so an encrypted or damaged file still yields its
// version and encryption flag even when the parser cannot open it.
func pdfDocument(p string) (map[string]string, error) {
	raw := make(map[string]string)
	if err := pdfStructure(p, raw); err != nil {
		return raw, err
	}

	f, r, err := pdf.Open(p)
	if err != nil {
		return raw, fmt.Errorf("open reader: %w", err)
	}
	defer f.Close()

	return raw, readInfoDict(r, raw)
}

// readInfoDict pulls pages and information dictionary fields. The
// underlying parser panics on malformed cross-reference data, so the
// walk is fenced with a recover.
func readInfoDict(r *pdf.Reader, raw map[string]string) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("malformed document: %v", rec)
		}
	}()

	raw[metadata.KeyPages] = strconv.Itoa(r.NumPage())

	info := r.Trailer().Key("Info")
	if info.IsNull() {
		return nil
	}
	for entry, key := range infoFields {
		if v := info.Key(entry); !v.IsNull() {
			raw[key] = v.Text()
		}
	}
	return nil
}

// structureScanLimit bounds the header scan; the version comment and
// linearization dictionary sit in the first object.
const structureScanLimit = 2048

// pdfStructure records the header version, linearization marker and
// encryption flag from the raw bytes.
func pdfStructure(p string, raw map[string]string) error {
	f, err := os.Open(p)
	if err != nil {
		return fmt.Errorf("open %q: %w", p, err)
	}
	defer f.Close()

	head := make([]byte, structureScanLimit)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return fmt.Errorf("read header: %w", err)
	}
	head = head[:n]

	if rest, ok := bytes.CutPrefix(head, []byte("%PDF-")); ok {
		if v := versionToken(rest); v != "" {
			raw[metadata.KeyVersion] = v
		}
	}
	if bytes.Contains(head, []byte("/Linearized")) {
		raw[metadata.KeyLinearized] = "true"
	}

	// The encryption dictionary can sit anywhere, including inside
	// the head of a linearized file, so scan from the start.
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind: %w", err)
	}
	encrypted, err := scanMarker(f, []byte("/Encrypt"))
	if err != nil {
		return err
	}
	if encrypted {
		raw[metadata.KeyEncrypted] = "true"
	}
	return nil
}

func versionToken(b []byte) string {
	i := 0
	for i < len(b) && (b[i] == '.' || (b[i] >= '0' && b[i] <= '9')) {
		i++
	}
	return string(b[:i])
}

// scanMarker streams the rest of the file looking for a byte marker,
// keeping a tail overlap so a marker split across chunk boundaries is
// still seen.
func scanMarker(r io.Reader, marker []byte) (bool, error) {
	const chunkSize = 64 * 1024
	buf := make([]byte, chunkSize+len(marker))
	keep := 0
	for {
		n, err := r.Read(buf[keep:])
		if n > 0 {
			window := buf[:keep+n]
			if bytes.Contains(window, marker) {
				return true, nil
			}
			keep = copy(buf, window[max(0, len(window)-len(marker)+1):])
		}
		if err == io.EOF {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("scan: %w", err)
		}
	}
}
