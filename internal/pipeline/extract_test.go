package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"airvoice/internal/config"
	"airvoice/internal/errs"
	"airvoice/internal/portal"
)

func TestExtractFieldsPlainText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invoice.txt")
	text := "INVOICE - IndiGo\n" +
		"Invoice Number: INV-6E-00123\n" +
		"Date: 2026-05-01\n" +
		"Passenger Name: MR VIKAS SAINI\n" +
		"PNR: INV-6E-00123\n" +
		"Airline: IndiGo\n" +
		"Amount: INR 5200.00\n" +
		"GSTIN: 29ABCDE1234F1Z5\n"
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}

	fields, err := ExtractFields(path)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if fields.InvoiceNumber == nil || *fields.InvoiceNumber != "INV-6E-00123" {
		t.Errorf("invoice number = %v", fields.InvoiceNumber)
	}
	if fields.InvoiceDate == nil || *fields.InvoiceDate != "2026-05-01" {
		t.Errorf("date = %v", fields.InvoiceDate)
	}
	if fields.Airline == nil || *fields.Airline != "IndiGo" {
		t.Errorf("airline = %v", fields.Airline)
	}
	if fields.Amount == nil || *fields.Amount != 5200 {
		t.Errorf("amount = %v", fields.Amount)
	}
	if fields.GSTIN == nil || *fields.GSTIN != "29ABCDE1234F1Z5" {
		t.Errorf("gstin = %v", fields.GSTIN)
	}
}

func TestExtractFieldsSlashDate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invoice.txt")
	if err := os.WriteFile(path, []byte("Date: 03/15/2026 Amount: 900"), 0o644); err != nil {
		t.Fatal(err)
	}
	fields, err := ExtractFields(path)
	if err != nil {
		t.Fatal(err)
	}
	if fields.InvoiceDate == nil || *fields.InvoiceDate != "2026-03-15" {
		t.Errorf("date = %v, want 2026-03-15", fields.InvoiceDate)
	}
}

func TestExtractFieldsHTML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invoice.html")
	html := `<html><body><table>
<tr><th>Invoice Number</th><td>INV-TG-90001</td></tr>
<tr><th>Date</th><td>2026-01-20</td></tr>
<tr><th>Airline</th><td>Thai Airways</td></tr>
<tr><th>Amount</th><td>INR 31,500.00</td></tr>
</table></body></html>`
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		t.Fatal(err)
	}

	fields, err := ExtractFields(path)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if fields.InvoiceNumber == nil || *fields.InvoiceNumber != "INV-TG-90001" {
		t.Errorf("invoice number = %v", fields.InvoiceNumber)
	}
	if fields.Airline == nil || *fields.Airline != "Thai Airways" {
		t.Errorf("airline = %v", fields.Airline)
	}
	if fields.Amount == nil || *fields.Amount != 31500 {
		t.Errorf("amount = %v, want 31500", fields.Amount)
	}
}

func TestExtractFieldsPDFRoundtrip(t *testing.T) {
	cfg := config.Config{
		InvoicesDir:     t.TempDir(),
		PortalDocFormat: "pdf",
		PortalLatencyMs: 0,
	}
	lookup := func(string) map[string]any {
		return map[string]any{
			"Airline":        "SpiceJet",
			"Invoice Number": "INV-SG-00777",
			"Date":           "2026-02-14",
			"Amount":         float64(7200),
		}
	}
	source := portal.NewSimulated(cfg, lookup)

	result, err := source.Fetch(context.Background(), "INV-SG-00777", "MS PRIYA MEHTA")
	if err != nil || result.DocumentPath == "" {
		t.Fatalf("fetch: %v (%+v)", err, result)
	}

	fields, err := ExtractFields(result.DocumentPath)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if fields.InvoiceNumber == nil || *fields.InvoiceNumber != "INV-SG-00777" {
		t.Errorf("invoice number = %v", fields.InvoiceNumber)
	}
	if fields.Airline == nil || *fields.Airline != "SpiceJet" {
		t.Errorf("airline = %v", fields.Airline)
	}
	if fields.InvoiceDate == nil || *fields.InvoiceDate != "2026-02-14" {
		t.Errorf("date = %v", fields.InvoiceDate)
	}
	if fields.Amount == nil || *fields.Amount != 7200 {
		t.Errorf("amount = %v, want 7200", fields.Amount)
	}
}

func TestExtractFieldsMissingFile(t *testing.T) {
	_, err := ExtractFields(filepath.Join(t.TempDir(), "nope.pdf"))
	if !errors.Is(err, errs.ErrExtraction) {
		t.Errorf("err = %v, want ErrExtraction", err)
	}
}

func TestExtractFieldsPartialDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invoice.txt")
	if err := os.WriteFile(path, []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}
	fields, err := ExtractFields(path)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if fields.InvoiceNumber != nil || fields.Airline != nil || fields.Amount != nil {
		t.Errorf("expected no fields from unrelated text, got %+v", fields)
	}
}
