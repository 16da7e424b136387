package convert

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	docxBody = "word/document.xml"
	// DefaultMaxDocxBody caps the decompressed document body.
	DefaultMaxDocxBody = 64 << 20

	nsTransitional = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsStrict       = "http://purl.oclc.org/ooxml/wordprocessingml/main"
)

var (
	errNoBody      = errors.New("docx: missing " + docxBody)
	errBodyTooLong = errors.New("docx: document body too large")
)

// DocxExtractor extracts the text of Office Open XML word processing files.
//
// Text runs are concatenated and every paragraph ends with '\n'. Formatting,
// headers, footers and notes are ignored.
type DocxExtractor struct {
	// MaxBody limits the decompressed size of the document body. Zero means
	// DefaultMaxDocxBody.
	MaxBody int64
}

// Extensions implements Extractor.
func (*DocxExtractor) Extensions() []string {
	return []string{".docx"}
}

// Extract implements Extractor.
func (d *DocxExtractor) Extract(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("docx: %w", err)
	}
	f, err := zr.Open(docxBody)
	if err != nil {
		return "", errNoBody
	}
	defer func() { _ = f.Close() }()
	limit := d.MaxBody
	if limit <= 0 {
		limit = DefaultMaxDocxBody
	}
	body, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return "", fmt.Errorf("docx: failed to read %s: %w", docxBody, err)
	}
	if int64(len(body)) > limit {
		return "", errBodyTooLong
	}
	return paragraphs(body)
}

// paragraphs streams the body XML, keeping character data inside w:t and
// ending each w:p with a newline.
func paragraphs(body []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	var sb strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			return "", fmt.Errorf("docx: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if isWord(t.Name, "t") {
				inText = true
			}
		case xml.EndElement:
			switch {
			case isWord(t.Name, "t"):
				inText = false
			case isWord(t.Name, "p"):
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
}

// isWord reports whether n is the WordprocessingML element local. An
// undeclared "w" prefix is accepted as well.
func isWord(n xml.Name, local string) bool {
	if n.Local != local {
		return false
	}
	switch n.Space {
	case nsTransitional, nsStrict, "w":
		return true
	default:
		return false
	}
}
