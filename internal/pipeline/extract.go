package pipeline

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	pdf "github.com/ledongthuc/pdf"

	"airvoice/internal"
	"airvoice/internal/errs"
	"airvoice/internal/util"
)

var (
	invoiceNumberPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i:invoice\s*number)[:#]?\s*([A-Z0-9][A-Z0-9-]{5,})`),
		regexp.MustCompile(`(INV-[A-Z0-9]+-\d{3,})`),
	}
	datePatterns = []struct {
		re     *regexp.Regexp
		layout string
	}{
		{regexp.MustCompile(`(?i:date)[:]?\s*(\d{4}-\d{2}-\d{2})`), "2006-01-02"},
		{regexp.MustCompile(`(?i:date)[:]?\s*(\d{2}/\d{2}/\d{4})`), "01/02/2006"},
		{regexp.MustCompile(`(\d{2}-\d{2}-\d{4})`), "02-01-2006"},
	}
	airlinePattern = regexp.MustCompile(`(?i)\b(Thai Airways|Air India|IndiGo|SpiceJet|Vistara|AirAsia)\b`)
	amountPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i:amount)[:]?\s*[^0-9-]*([\d,]+\.?\d*)`),
		regexp.MustCompile(`(?i:total)[:]?\s*[^0-9-]*([\d,]+\.?\d*)`),
	}
	gstinPattern = regexp.MustCompile(`([0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][1-9A-Z]Z[0-9A-Z])`)

	reSpaces = regexp.MustCompile(`\s+`)
)

// ExtractFields reads a downloaded invoice document and pulls structured
// fields out of its text. The format is dispatched on the file extension:
// PDF and HTML documents are decoded first, anything else is treated as
// plain text. Failures are reported as ExtractionError.
func ExtractFields(path string) (internal.InvoiceFields, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return internal.InvoiceFields{}, fmt.Errorf("%w: %v", errs.ErrExtraction, err)
	}

	var text string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, err = pdfText(blob)
	case ".html", ".htm":
		text, err = htmlText(blob)
	default:
		text = string(blob)
	}
	if err != nil {
		return internal.InvoiceFields{}, fmt.Errorf("%w: %v", errs.ErrExtraction, err)
	}

	return parseInvoiceText(normalizeText(text)), nil
}

func pdfText(blob []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(blob), int64(len(blob)))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString(" ")
	}
	return sb.String(), nil
}

// htmlText flattens label/value table rows into "label: value" lines so the
// same text patterns apply to HTML invoices.
func htmlText(blob []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(blob))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		label := strings.TrimSpace(row.Find("th").First().Text())
		value := strings.TrimSpace(row.Find("td").First().Text())
		if label == "" && value == "" {
			return
		}
		if label != "" {
			sb.WriteString(label)
			sb.WriteString(": ")
		}
		sb.WriteString(value)
		sb.WriteString("\n")
	})
	if sb.Len() == 0 {
		return doc.Text(), nil
	}
	return sb.String(), nil
}

func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r", " ")
	text = strings.ReplaceAll(text, "\n", " ")
	return strings.TrimSpace(reSpaces.ReplaceAllString(text, " "))
}

func parseInvoiceText(text string) internal.InvoiceFields {
	var fields internal.InvoiceFields

	for _, re := range invoiceNumberPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			fields.InvoiceNumber = util.StringPtr(m[1])
			break
		}
	}

	for _, p := range datePatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if parsed, err := time.Parse(p.layout, m[1]); err == nil {
			fields.InvoiceDate = util.StringPtr(parsed.Format("2006-01-02"))
		}
		break
	}

	if m := airlinePattern.FindStringSubmatch(text); m != nil {
		fields.Airline = util.StringPtr(strings.TrimSpace(m[1]))
	}

	for _, re := range amountPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if amount := util.ParseAmount(m[1]); amount != nil && *amount >= 0 {
				fields.Amount = amount
			}
			break
		}
	}

	if m := gstinPattern.FindStringSubmatch(text); m != nil {
		fields.GSTIN = util.StringPtr(m[1])
	}

	return fields
}
