package services

import (
	"bytes"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"insureportal-backend/shared/apperrors"
	"insureportal-backend/shared/database/models"
)

const summaryFooter = "This document is a summary of the requested insurance policies."

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	decimalPrice  = regexp.MustCompile(`^\d+(\.\d+)?$`)
)

// parsePrice accepts plain non-negative decimals such as "150" or "49.50".
func parsePrice(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if !decimalPrice.MatchString(raw) {
		return 0, false
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}

// Totals are the premiums shown at the bottom of a summary
type Totals struct {
	Monthly float64
	Annual  float64
}

// ComputeTotals sums item prices. Missing or non-decimal prices count as zero.
func ComputeTotals(items []models.InsuranceItem) Totals {
	var monthly float64
	for _, item := range items {
		if item.Price == nil {
			continue
		}
		if value, ok := parsePrice(*item.Price); ok {
			monthly += value
		}
	}
	return Totals{Monthly: monthly, Annual: monthly * 12}
}

// FormatEuro renders an amount with two decimals and a euro sign
func FormatEuro(amount float64) string {
	return fmt.Sprintf("€%.2f", amount)
}

// SummaryFileName is the attachment name offered for a form's summary
func SummaryFileName(clientName string) string {
	return "summary-" + whitespaceRun.ReplaceAllString(clientName, "-") + ".pdf"
}

// PDFService renders the priced summary of a form
type PDFService struct {
	now func() time.Time
}

func NewPDFService() *PDFService {
	return &PDFService{now: time.Now}
}

// Render produces the summary PDF. form must have Items and Organization loaded.
func (s *PDFService) Render(form *models.Form) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	// Header
	pdf.SetFont("Helvetica", "", 20)
	pdf.Text(14, 22, tr(form.Organization.Name))

	pdf.SetFont("Helvetica", "", 10)
	pdf.Text(14, 30, tr("Date: "+s.now().Format("Jan 2, 2006")))
	pdf.Text(14, 35, tr("Client: "+form.ClientName))
	if form.Email != nil && *form.Email != "" {
		pdf.Text(14, 40, tr("Email: "+*form.Email))
	}
	pdf.Text(14, 45, tr("Status: "+string(form.Status)))

	// Items table
	widths := []float64{70, 35, 40, 37}
	headers := []string{"Insurance Type", "Package", "Request Type", "Price"}

	pdf.SetXY(14, 55)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(66, 66, 66)
	pdf.SetTextColor(255, 255, 255)
	for i, header := range headers {
		pdf.CellFormat(widths[i], 8, header, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(0, 0, 0)
	for _, item := range form.Items {
		price := "Pending"
		if item.Price != nil && *item.Price != "" {
			price = "€" + *item.Price
		}
		row := []string{item.InsuranceType, item.Package, item.RequestType, price}
		pdf.SetX(14)
		for i, cell := range row {
			pdf.CellFormat(widths[i], 8, tr(cell), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	// Totals
	totals := ComputeTotals(form.Items)
	finalY := pdf.GetY()
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Text(14, finalY+10, tr("Total Monthly Premium: "+FormatEuro(totals.Monthly)))
	pdf.Text(14, finalY+16, tr("Total Annual Premium: "+FormatEuro(totals.Annual)))

	// Footer
	pdf.SetFont("Helvetica", "", 8)
	pdf.Text(14, 280, summaryFooter)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, apperrors.Internal("Failed to generate PDF", err)
	}
	return buf.Bytes(), nil
}
