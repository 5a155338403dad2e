package portal

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"strings"
)

// writePDF renders lines as a single-page PDF with an uncompressed content
// stream. Only the built-in Helvetica font and ASCII text are used, which
// keeps the output readable by text extractors without embedded font tables.
func writePDF(path string, lines []string) error {
	var content strings.Builder
	content.WriteString("BT\n/F1 12 Tf\n14 TL\n72 720 Td\n")
	for i, line := range lines {
		if i > 0 {
			content.WriteString("T*\n")
		}
		// Trailing space keeps text runs separated for extractors that
		// concatenate Tj strings without a delimiter.
		fmt.Fprintf(&content, "(%s ) Tj\n", escapePDFString(line))
	}
	content.WriteString("ET\n")
	stream := content.String()

	var buf bytes.Buffer
	var offsets []int
	object := func(body string) {
		offsets = append(offsets, buf.Len())
		buf.WriteString(body)
	}

	buf.WriteString("%PDF-1.4\n")
	object("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	object("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")
	object("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>\nendobj\n")
	object(fmt.Sprintf("4 0 obj\n<< /Length %d >>\nstream\n%sendstream\nendobj\n", len(stream), stream))
	object("5 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>\nendobj\n")

	xrefPos := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xrefPos)

	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func escapePDFString(s string) string {
	return strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`).Replace(s)
}

var htmlTemplate = template.Must(template.New("invoice").Parse(`<!DOCTYPE html>
<html>
<head><title>Invoice {{.InvoiceNumber}}</title></head>
<body>
<h1>INVOICE - {{.Airline}}</h1>
<table>
<tr><th>Invoice Number</th><td>{{.InvoiceNumber}}</td></tr>
<tr><th>Date</th><td>{{.Date}}</td></tr>
<tr><th>Passenger Name</th><td>{{.Passenger}}</td></tr>
<tr><th>PNR</th><td>{{.PNR}}</td></tr>
<tr><th>Airline</th><td>{{.Airline}}</td></tr>
<tr><th>Amount</th><td>INR {{printf "%.2f" .Amount}}</td></tr>
{{if .GSTIN}}<tr><th>GSTIN</th><td>{{.GSTIN}}</td></tr>{{end}}
</table>
</body>
</html>
`))

func writeHTML(path string, doc invoiceDocument) error {
	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, doc); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
