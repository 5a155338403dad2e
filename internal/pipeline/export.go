package pipeline

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"airvoice/internal"
)

// ExportReportXLSX writes all invoices and the airline summary into one
// workbook, an Invoices sheet and a Summary sheet.
func ExportReportXLSX(invoices []internal.Invoice, summary []internal.SummaryRow, outputPath string) error {
	f := excelize.NewFile()
	invoiceSheet := f.GetSheetName(0)
	_ = f.SetSheetName(invoiceSheet, "Invoices")
	invoiceSheet = "Invoices"
	summarySheet := "Summary"
	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}

	invoiceHeaders := []string{
		"id", "pnr", "invoice_number", "invoice_date", "airline", "amount",
		"gstin", "pdf_path", "flag_for_review", "source",
	}
	for i, h := range invoiceHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(invoiceSheet, cell, h)
	}
	for i, inv := range invoices {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(invoiceSheet, cell, value)
		}
		set(1, inv.ID)
		set(2, inv.PNR)
		set(3, derefString(inv.InvoiceNumber))
		set(4, derefString(inv.InvoiceDate))
		set(5, derefString(inv.Airline))
		set(6, derefFloat(inv.Amount))
		set(7, derefString(inv.GSTIN))
		set(8, derefString(inv.PDFPath))
		set(9, inv.FlagForReview)
		set(10, string(inv.Source))
	}

	summaryHeaders := []string{"airline", "total_amount", "invoice_count", "average_amount"}
	for i, h := range summaryHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(summarySheet, cell, h)
	}
	for i, row := range summary {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(summarySheet, cell, value)
		}
		set(1, row.Airline)
		set(2, row.TotalAmount)
		set(3, row.InvoiceCount)
		set(4, row.AverageAmount)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func derefFloat(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}
