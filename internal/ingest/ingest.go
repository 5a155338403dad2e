// Package ingest validates raw invoice payloads, seeds them into storage and
// derives passenger candidates for bulk registration.
package ingest

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"airvoice/internal"
	"airvoice/internal/config"
	"airvoice/internal/errs"
	"airvoice/internal/storage"
	"airvoice/internal/util"
)

// Invoice-number keys checked in priority order; the first non-empty wins.
var numberKeys = []string{"Invoice Number", "invoice_number", "invoiceNumber", "number"}

type Ingestor struct {
	db     *storage.DB
	policy string
}

func New(db *storage.DB, cfg config.Config) *Ingestor {
	return &Ingestor{db: db, policy: cfg.NamePolicy}
}

type Result struct {
	Candidates []internal.PassengerCandidate `json:"candidates"`
	Seeded     int                           `json:"seeded"`
}

// DecodePayload parses a raw JSON body into invoice records. Anything that is
// not a non-empty array fails validation before any state is touched.
func DecodePayload(body []byte) ([]map[string]any, error) {
	var records []map[string]any
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, errs.Validation("empty or non-array payload")
	}
	if len(records) == 0 {
		return nil, errs.Validation("empty or non-array payload")
	}
	return records, nil
}

// Ingest seeds the raw records as invoices (verbatim, single bulk write) and
// returns one passenger candidate per record, index-preserving. A record with
// no recognizable invoice number is never rejected; it gets a synthesized
// "INV<n>" number instead.
func (ing *Ingestor) Ingest(records []map[string]any) (Result, error) {
	if len(records) == 0 {
		return Result{}, errs.Validation("empty or non-array payload")
	}

	rows := make([]internal.Invoice, 0, len(records))
	candidates := make([]internal.PassengerCandidate, 0, len(records))
	for i, record := range records {
		number := extractInvoiceNumber(record, i)
		candidates = append(candidates, internal.PassengerCandidate{
			Name: ing.deriveName(record, number),
			PNR:  number,
		})
		rows = append(rows, seededRow(record, number))
	}

	if err := ing.db.SeedInvoices(rows); err != nil {
		return Result{}, err
	}
	return Result{Candidates: candidates, Seeded: len(rows)}, nil
}

func extractInvoiceNumber(record map[string]any, index int) string {
	for _, key := range numberKeys {
		if value, ok := record[key]; ok {
			if s := stringify(value); s != "" {
				return s
			}
		}
	}
	return "INV" + strconv.Itoa(index+1)
}

func (ing *Ingestor) deriveName(record map[string]any, number string) string {
	fallback := "INV " + number
	if ing.policy == config.NamePolicySynthetic {
		return fallback
	}
	raw := ""
	if value, ok := firstValue(record, "Name", "name"); ok {
		raw = stringify(value)
	}
	return util.NormalizeTicketName(raw, fallback)
}

// seededRow keeps the raw record verbatim and fills typed columns best-effort
// so seeded invoices participate in aggregation and filtering.
func seededRow(record map[string]any, number string) internal.Invoice {
	rawJSON, _ := json.Marshal(record)
	inv := internal.Invoice{
		PNR:           number,
		InvoiceNumber: util.StringPtr(number),
		Source:        internal.SourceSeeded,
		RawJSON:       util.StringPtr(string(rawJSON)),
	}
	if value, ok := firstValue(record, "Airline", "airline"); ok {
		if s := stringify(value); s != "" {
			inv.Airline = util.StringPtr(s)
		}
	}
	if value, ok := firstValue(record, "Amount", "amount"); ok {
		inv.Amount = util.AmountFromAny(value)
	}
	if value, ok := firstValue(record, "Date", "date", "invoice_date"); ok {
		if s := stringify(value); s != "" {
			inv.InvoiceDate = util.StringPtr(s)
		}
	}
	if value, ok := firstValue(record, "GSTIN", "gstin"); ok {
		if s := stringify(value); s != "" {
			inv.GSTIN = util.StringPtr(s)
		}
	}
	return inv
}

func firstValue(record map[string]any, keys ...string) (any, bool) {
	for _, key := range keys {
		if value, ok := record[key]; ok {
			return value, true
		}
	}
	return nil, false
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}
