package report

import (
	"fmt"
	"io"
	"time"

	gofpdf "github.com/go-pdf/fpdf"
)

const (
	pdfMargin    = 15.0
	pdfRowHeight = 6.5
)

func renderPDF(w io.Writer, r Report) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(r.Title, true)
	pdf.SetCreator(r.Generator, true)
	pdf.SetCreationDate(r.GeneratedAt)
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 8, fmt.Sprintf("%s  |  page %d/{nb}", r.ID, pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(30, 41, 59)
	pdf.CellFormat(0, 10, r.Title, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(100, 116, 139)
	pdf.CellFormat(0, 6, "Generated "+r.GeneratedAt.Format(time.RFC1123), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	addPDFSummary(pdf, r.Summary)
	for _, sec := range r.Sections {
		addPDFSection(pdf, sec)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("report: write pdf: %w", err)
	}
	return nil
}

func addPDFSummary(pdf *gofpdf.Fpdf, s Summary) {
	cards := []struct {
		label string
		value string
	}{
		{"Features enabled", fmt.Sprintf("%d/%d", s.EnabledFeatures, s.Features)},
		{"Roles", itoa(s.Roles)},
		{"Without MFA", itoa(s.RolesWithoutMFA)},
		{"Scan profiles", itoa(s.ScanProfiles)},
		{"Safe mode", itoa(s.SafeModeProfiles)},
	}
	pageW, _ := pdf.GetPageSize()
	cardW := (pageW - 2*pdfMargin) / float64(len(cards))

	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(30, 41, 59)
	for _, c := range cards {
		pdf.CellFormat(cardW, 9, c.value, "LTR", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(100, 116, 139)
	for _, c := range cards {
		pdf.CellFormat(cardW, 6, c.label, "LBR", 0, "C", false, 0, "")
	}
	pdf.Ln(10)
}

func addPDFSection(pdf *gofpdf.Fpdf, sec Section) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(30, 41, 59)
	pdf.CellFormat(0, 8, sec.Title, "", 1, "L", false, 0, "")

	if len(sec.Rows) == 0 {
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(0, pdfRowHeight, "No entries.", "", 1, "L", false, 0, "")
	} else {
		pageW, _ := pdf.GetPageSize()
		colW := (pageW - 2*pdfMargin) / float64(len(sec.Columns))

		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(30, 41, 59)
		pdf.SetTextColor(255, 255, 255)
		for _, c := range sec.Columns {
			pdf.CellFormat(colW, 7, c, "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(60, 60, 60)
		for _, row := range sec.Rows {
			for _, cell := range row {
				pdf.CellFormat(colW, pdfRowHeight, fitText(pdf, cell, colW-2), "1", 0, "L", false, 0, "")
			}
			pdf.Ln(-1)
		}
	}

	if len(sec.Notes) > 0 {
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(180, 83, 9)
		for _, n := range sec.Notes {
			pdf.MultiCell(0, 5, n, "", "L", false)
		}
	}
	pdf.Ln(6)
}

// fitText truncates s with an ellipsis so it fits in width.
func fitText(pdf *gofpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
