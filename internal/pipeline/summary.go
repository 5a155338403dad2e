package pipeline

import (
	"strings"

	"airvoice/internal"
)

// UnknownAirline buckets invoices whose airline was never extracted.
const UnknownAirline = "Unknown"

// Summarize folds invoices into per-airline totals, counts and averages.
// A missing amount counts as zero but the invoice still counts toward the
// group, so the average divides by the full group size. Rows come out in
// first-seen airline order, which keeps reports stable run to run. With
// includeUnknown false, invoices without an airline are dropped instead of
// bucketed.
func Summarize(invoices []internal.Invoice, includeUnknown bool) []internal.SummaryRow {
	var order []string
	groups := map[string]*internal.SummaryRow{}

	for _, inv := range invoices {
		airline := UnknownAirline
		if inv.Airline != nil && strings.TrimSpace(*inv.Airline) != "" {
			airline = strings.TrimSpace(*inv.Airline)
		} else if !includeUnknown {
			continue
		}

		row, ok := groups[airline]
		if !ok {
			row = &internal.SummaryRow{Airline: airline}
			groups[airline] = row
			order = append(order, airline)
		}
		row.InvoiceCount++
		if inv.Amount != nil {
			row.TotalAmount += *inv.Amount
		}
	}

	out := make([]internal.SummaryRow, 0, len(order))
	for _, airline := range order {
		row := groups[airline]
		// Groups are derived from existing invoices, so the count is never zero.
		row.AverageAmount = row.TotalAmount / float64(row.InvoiceCount)
		out = append(out, *row)
	}
	return out
}
