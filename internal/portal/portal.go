// Package portal defines the external invoice document source consumed by the
// processing pipeline, plus a simulated airline portal that renders invoice
// documents locally. The real network fetch against an airline portal is out
// of scope; everything behind DocumentSource is replaceable.
package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"airvoice/internal"
	"airvoice/internal/config"
	"airvoice/internal/storage"
)

// FetchResult mirrors what a portal reports for a PNR lookup. Status is one
// of Success, NotFound or Error.
type FetchResult struct {
	Status       internal.Status
	DocumentPath string
	Message      string
}

// DocumentSource fetches the invoice document for a PNR. Implementations
// block until the document is stored locally or the lookup fails.
type DocumentSource interface {
	Fetch(ctx context.Context, pnr, passengerName string) (FetchResult, error)
}

// MetadataFunc resolves seeded invoice metadata for a PNR, nil when none.
type MetadataFunc func(pnr string) map[string]any

// StoreMetadata adapts the record store into a MetadataFunc: the raw seeded
// JSON for the PNR, when present, drives document generation.
func StoreMetadata(db *storage.DB) MetadataFunc {
	return func(pnr string) map[string]any {
		inv, err := db.GetInvoiceByPNR(pnr)
		if err != nil || inv == nil || inv.RawJSON == nil {
			return nil
		}
		var meta map[string]any
		if json.Unmarshal([]byte(*inv.RawJSON), &meta) != nil {
			return nil
		}
		return meta
	}
}

var airlines = []string{"Air India", "IndiGo", "SpiceJet", "Vistara", "AirAsia", "Thai Airways"}

var airlineCodes = map[string]string{
	"Air India":    "AI",
	"IndiGo":       "6E",
	"SpiceJet":     "SG",
	"Vistara":      "UK",
	"AirAsia":      "I5",
	"Thai Airways": "TG",
}

// Simulated renders deterministic invoice documents into a local directory,
// preferring seeded metadata for the PNR over generated values. In strict
// mode PNRs without seeded metadata are reported NotFound.
type Simulated struct {
	dir     string
	format  string
	latency time.Duration
	strict  bool
	lookup  MetadataFunc
}

func NewSimulated(cfg config.Config, lookup MetadataFunc) *Simulated {
	return &Simulated{
		dir:     cfg.InvoicesDir,
		format:  cfg.PortalDocFormat,
		latency: time.Duration(cfg.PortalLatencyMs) * time.Millisecond,
		strict:  cfg.PortalStrict,
		lookup:  lookup,
	}
}

func (s *Simulated) Fetch(ctx context.Context, pnr, passengerName string) (FetchResult, error) {
	select {
	case <-ctx.Done():
		return FetchResult{Status: internal.StatusError, Message: ctx.Err().Error()}, nil
	case <-time.After(s.latency):
	}

	var meta map[string]any
	if s.lookup != nil {
		meta = s.lookup(pnr)
	}
	if meta == nil && s.strict {
		return FetchResult{
			Status:  internal.StatusNotFound,
			Message: fmt.Sprintf("no invoice on record for PNR %s", pnr),
		}, nil
	}

	doc := buildDocument(pnr, passengerName, meta)
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return FetchResult{Status: internal.StatusError, Message: err.Error()}, nil
	}

	filename := fmt.Sprintf("invoice_%s_%s.%s", pnr, uuid.NewString()[:8], s.ext())
	path := filepath.Join(s.dir, filename)
	if err := s.render(doc, path); err != nil {
		return FetchResult{Status: internal.StatusError, Message: err.Error()}, nil
	}

	return FetchResult{
		Status:       internal.StatusSuccess,
		DocumentPath: path,
		Message:      fmt.Sprintf("invoice downloaded for PNR %s", pnr),
	}, nil
}

func (s *Simulated) ext() string {
	if s.format == "html" {
		return "html"
	}
	return "pdf"
}

func (s *Simulated) render(doc invoiceDocument, path string) error {
	if s.format == "html" {
		return writeHTML(path, doc)
	}
	return writePDF(path, doc.lines())
}

type invoiceDocument struct {
	Airline       string
	InvoiceNumber string
	Date          string
	Passenger     string
	PNR           string
	Amount        float64
	GSTIN         string
}

// buildDocument fills the invoice from seeded metadata when available and
// falls back to values derived from a hash of the PNR, so re-fetching the
// same PNR yields the same invoice.
func buildDocument(pnr, passengerName string, meta map[string]any) invoiceDocument {
	h := fnv.New32a()
	_, _ = h.Write([]byte(pnr))
	seed := h.Sum32()

	doc := invoiceDocument{
		Airline:   airlines[int(seed)%len(airlines)],
		Passenger: passengerName,
		PNR:       pnr,
		Date:      time.Now().Format("2006-01-02"),
		Amount:    5000 + float64(seed%45000),
	}
	doc.InvoiceNumber = fmt.Sprintf("INV-%s-%05d", airlineCodes[doc.Airline], seed%100000)

	if meta != nil {
		if v, ok := meta["Airline"].(string); ok && v != "" {
			doc.Airline = v
		}
		if v, ok := meta["Invoice Number"].(string); ok && v != "" {
			doc.InvoiceNumber = v
		}
		if v, ok := meta["Date"].(string); ok && v != "" {
			doc.Date = v
		}
		if v, ok := meta["Name"].(string); ok && v != "" {
			doc.Passenger = v
		}
		if v, ok := meta["GSTIN"].(string); ok && v != "" {
			doc.GSTIN = v
		}
		switch v := meta["Amount"].(type) {
		case float64:
			doc.Amount = v
		}
	}

	return doc
}

func (d invoiceDocument) lines() []string {
	out := []string{
		"INVOICE - " + d.Airline,
		"Invoice Number: " + d.InvoiceNumber,
		"Date: " + d.Date,
		"Passenger Name: " + d.Passenger,
		"PNR: " + d.PNR,
		"Airline: " + d.Airline,
		fmt.Sprintf("Amount: INR %.2f", d.Amount),
	}
	if d.GSTIN != "" {
		out = append(out, "GSTIN: "+d.GSTIN)
	}
	return out
}
