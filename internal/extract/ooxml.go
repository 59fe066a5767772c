package extract

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"regexp"
	"strconv"
	"strings"

	"veridoc/internal/metadata"
)

// OOXML package parts shared by the Word, Excel and PowerPoint
// containers.
const (
	corePropsPart = "docProps/core.xml"
	appPropsPart  = "docProps/app.xml"
)

// coreFields maps core-properties element names to raw keys. The walk
// records a field whenever its element exists, even with empty
// content, so a deliberately blanked property stays distinguishable
// from one that was never written.
var coreFields = map[string]string{
	"title":          metadata.KeyTitle,
	"creator":        metadata.KeyAuthor,
	"subject":        metadata.KeySubject,
	"keywords":       metadata.KeyKeywords,
	"lastModifiedBy": metadata.KeyLastModifiedBy,
	"created":        metadata.KeyCreated,
	"modified":       metadata.KeyModified,
}

var appFields = map[string]string{
	"Company":     metadata.KeyCompany,
	"Application": metadata.KeyProducer,
}

func docxDocument(p string) (map[string]string, error) {
	return ooxmlDocument(p, docxFacts)
}

func xlsxDocument(p string) (map[string]string, error) {
	return ooxmlDocument(p, xlsxFacts)
}

func pptxDocument(p string) (map[string]string, error) {
	return ooxmlDocument(p, pptxFacts)
}

// ooxmlDocument opens the zip container, walks the shared property
// parts and then hands the archive to the per-format facts collector.
func ooxmlDocument(p string, facts func(*zip.Reader, map[string]string) error) (map[string]string, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("open container: %w", err)
	}
	defer zr.Close()

	raw := make(map[string]string)
	if err := walkPart(&zr.Reader, corePropsPart, coreFields, raw); err != nil {
		return raw, err
	}
	if err := walkPart(&zr.Reader, appPropsPart, appFields, raw); err != nil {
		return raw, err
	}
	if err := facts(&zr.Reader, raw); err != nil {
		return raw, err
	}
	return raw, nil
}

// walkPart streams one XML part and records every watched element.
// A missing part is not an error; stripped documents often lack
// docProps entirely.
func walkPart(zr *zip.Reader, name string, fields map[string]string, raw map[string]string) error {
	rc, ok := openPart(zr, name)
	if !ok {
		return nil
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		key, watched := fields[start.Name.Local]
		if !watched {
			continue
		}
		text, err := elementText(dec)
		if err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		raw[key] = text
	}
}

// elementText consumes tokens until the matching end element and
// returns the concatenated character data.
func elementText(dec *xml.Decoder) (string, error) {
	var sb strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			if depth == 1 {
				sb.Write(t)
			}
		}
	}
	return sb.String(), nil
}

func openPart(zr *zip.Reader, name string) (io.ReadCloser, bool) {
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil, false
			}
			return rc, true
		}
	}
	return nil, false
}

// docxFacts counts paragraphs and tables in the main document part.
func docxFacts(zr *zip.Reader, raw map[string]string) error {
	rc, ok := openPart(zr, "word/document.xml")
	if !ok {
		return nil
	}
	defer rc.Close()

	var paragraphs, tables int
	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("parse word/document.xml: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "p":
			paragraphs++
		case "tbl":
			tables++
		}
	}
	raw[metadata.KeyParagraphs] = strconv.Itoa(paragraphs)
	raw[metadata.KeyTables] = strconv.Itoa(tables)
	return nil
}

// xlsxFacts reads the workbook sheet inventory.
func xlsxFacts(zr *zip.Reader, raw map[string]string) error {
	rc, ok := openPart(zr, "xl/workbook.xml")
	if !ok {
		return nil
	}
	defer rc.Close()

	var names []string
	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("parse xl/workbook.xml: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "sheet" {
			continue
		}
		for _, attr := range start.Attr {
			if attr.Name.Local == "name" {
				names = append(names, attr.Value)
				break
			}
		}
	}
	raw[metadata.KeySheets] = strconv.Itoa(len(names))
	if len(names) > 0 {
		raw[metadata.KeySheetNames] = strings.Join(names, metadata.SheetNameSep)
	}
	return nil
}

var slidePartRe = regexp.MustCompile(`^slide\d+\.xml$`)

// pptxFacts counts slide parts; each slide is one entry under
// ppt/slides/.
func pptxFacts(zr *zip.Reader, raw map[string]string) error {
	slides := 0
	for _, f := range zr.File {
		if path.Dir(f.Name) == "ppt/slides" && slidePartRe.MatchString(path.Base(f.Name)) {
			slides++
		}
	}
	raw[metadata.KeySlides] = strconv.Itoa(slides)
	return nil
}
