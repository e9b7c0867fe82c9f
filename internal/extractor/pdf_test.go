package extractor

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPDF writes a minimal PDF with one Helvetica text line per page.
func buildPDF(t *testing.T, pages ...string) []byte {
	t.Helper()

	n := len(pages)
	fontObj := 3 + n
	firstContent := fontObj + 1

	var objects []string
	objects = append(objects, "<< /Type /Catalog /Pages 2 0 R >>")

	kids := ""
	for i := range pages {
		kids += fmt.Sprintf("%d 0 R ", 3+i)
	}
	objects = append(objects, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, n))

	for i := range pages {
		objects = append(objects, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>",
			fontObj, firstContent+i))
	}
	objects = append(objects, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	for _, text := range pages {
		stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		objects = append(objects, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	return buf.Bytes()
}

func TestParseReadsEveryPage(t *testing.T) {
	data := buildPDF(t, "Scope", "Tickets")

	doc, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, doc.Pages, 2)
	assert.Contains(t, doc.Pages[0], "Scope")
	assert.Contains(t, doc.Pages[1], "Tickets")

	text, err := ExtractPDF(data)
	require.NoError(t, err)
	assert.Contains(t, text, "Scope")
	assert.Contains(t, text, "Tickets")
}

func TestParseRejectsNonPDF(t *testing.T) {
	_, err := Parse([]byte(`{"error": "PDF not found"}`))
	assert.ErrorIs(t, err, ErrNotPDF)

	_, err = ExtractPDF(nil)
	assert.ErrorIs(t, err, ErrNotPDF)
}

func TestParseRejectsTruncatedPDF(t *testing.T) {
	data := buildPDF(t, "Scope")
	_, err := Parse(data[:len(data)/2])
	assert.Error(t, err)
}

func TestDocumentText(t *testing.T) {
	doc := &Document{Pages: []string{" first ", "", "second"}}
	assert.Equal(t, "first\nsecond", doc.Text())
	assert.Equal(t, "", (&Document{}).Text())
}
