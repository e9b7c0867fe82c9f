// Package extractor reads the text back out of rendered BRD PDFs.
package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

var ErrNotPDF = errors.New("not a PDF document")

// Document is the per-page plain text of a PDF.
type Document struct {
	Pages []string
}

// Text joins the non-empty pages with a newline.
func (d *Document) Text() string {
	var parts []string
	for _, p := range d.Pages {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n")
}

// Parse reads every page of data. Pages whose content cannot be decoded
// are kept as empty strings so page numbers stay aligned.
func Parse(data []byte) (*Document, error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, ErrNotPDF
	}

	pdfReader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF reader: %w", err)
	}

	doc := &Document{Pages: make([]string, 0, pdfReader.NumPage())}
	for i := 1; i <= pdfReader.NumPage(); i++ {
		page := pdfReader.Page(i)
		if page.V.IsNull() {
			doc.Pages = append(doc.Pages, "")
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			text = ""
		}
		doc.Pages = append(doc.Pages, text)
	}

	return doc, nil
}

// ExtractPDF returns the document text, failing when there is none.
func ExtractPDF(data []byte) (string, error) {
	doc, err := Parse(data)
	if err != nil {
		return "", err
	}

	text := doc.Text()
	if text == "" {
		return "", fmt.Errorf("no text could be extracted from PDF")
	}
	return text, nil
}
