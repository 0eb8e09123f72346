// Package report renders the results log for people: a Markdown table or a
// simple PDF listing date, link, file name and excerpt per match.
package report

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/hyperifyio/docwatch/internal/cache"
	"github.com/hyperifyio/docwatch/internal/store"
)

// PageName labels addresses whose path has no final segment.
const PageName = "(page)"

const dateLayout = "2006-01-02 15:04"

// FileName returns the last path segment of rawURL, unescaped, or PageName.
func FileName(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return PageName
	}
	seg := path.Base(u.Path)
	if seg == "." || seg == "/" || seg == "" {
		return PageName
	}
	if s, err := url.PathUnescape(seg); err == nil {
		seg = s
	}
	return seg
}

// Markdown renders records, in the given order, as a table.
func Markdown(records []store.Record) string {
	var b strings.Builder
	b.WriteString("# Matches\n\n")
	if len(records) == 0 {
		b.WriteString("No matching documents.\n")
		return b.String()
	}
	b.WriteString("| Date | Link | File | Keywords | Excerpt |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, r := range records {
		fmt.Fprintf(&b, "| %s | [%s](%s) | %s | %s | %s |\n",
			r.Timestamp.Local().Format(dateLayout),
			cell(r.URL), cell(r.URL),
			cell(FileName(r.URL)),
			cell(strings.Join(r.Keywords, ", ")),
			cell(r.Excerpt))
	}
	return b.String()
}

func cell(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

// WritePDF renders records as an A4 document at outPath.
func WritePDF(records []store.Record, outPath string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	// Core fonts are cp1252; translate so accented names survive.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Matches", true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, "Matches", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 5, "Generated "+time.Now().Format(dateLayout), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	if len(records) == 0 {
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 5, "No matching documents.", "", "L", false)
	}
	for _, r := range records {
		pdf.SetFont("Helvetica", "B", 11)
		heading := r.Timestamp.Local().Format(dateLayout) + "  " + FileName(r.URL)
		pdf.MultiCell(0, 6, tr(heading), "", "L", false)

		pdf.SetFont("Helvetica", "U", 9)
		pdf.SetTextColor(0, 0, 200)
		pdf.WriteLinkString(5, tr(r.URL), r.URL)
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(6)

		pdf.SetFont("Helvetica", "", 10)
		if len(r.Keywords) > 0 {
			pdf.MultiCell(0, 5, tr("Keywords: "+strings.Join(r.Keywords, ", ")), "", "L", false)
		}
		if ex := strings.TrimSpace(r.Excerpt); ex != "" {
			pdf.MultiCell(0, 5, tr(ex), "", "L", false)
		}
		pdf.Ln(4)
	}
	return pdf.OutputFileAndClose(outPath)
}

// Write picks the format from the extension of outPath: .pdf renders a PDF,
// anything else Markdown.
func Write(records []store.Record, outPath string) error {
	if strings.EqualFold(filepath.Ext(outPath), ".pdf") {
		if err := WritePDF(records, outPath); err != nil {
			return fmt.Errorf("write pdf report: %w", err)
		}
		return nil
	}
	if err := cache.WriteFileAtomic(outPath, []byte(Markdown(records)), 0o644); err != nil {
		return fmt.Errorf("write markdown report: %w", err)
	}
	return nil
}
