package extract

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jung-kurt/gofpdf"
)

// makePDF renders one page per entry; an empty entry yields a page without text.
func makePDF(t *testing.T, pages ...string) []byte {
	t.Helper()
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(false)
	pdf.SetFont("Helvetica", "", 12)
	for _, text := range pages {
		pdf.AddPage()
		if text != "" {
			pdf.Cell(0, 10, text)
		}
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatalf("render pdf: %v", err)
	}
	return buf.Bytes()
}

func TestFromPDF_PagesInOrder(t *testing.T) {
	data := makePDF(t, "Lista de aprovados", "", "Fagner do Espirito Santo Sa")
	pages, err := FromPDF(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(pages))
	}
	if !strings.Contains(pages[0], "Lista de aprovados") {
		t.Fatalf("page 1 text missing: %q", pages[0])
	}
	if strings.TrimSpace(pages[1]) != "" {
		t.Fatalf("expected empty page 2, got %q", pages[1])
	}
	if !strings.Contains(pages[2], "Fagner do Espirito Santo Sa") {
		t.Fatalf("page 3 text missing: %q", pages[2])
	}
}

func TestFromPDF_Malformed(t *testing.T) {
	if _, err := FromPDF([]byte("<html>not a pdf</html>")); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := FromPDF(nil); err == nil {
		t.Fatalf("expected error for empty input")
	}
}
