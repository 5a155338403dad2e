package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"airvoice/internal"
	"airvoice/internal/errs"
	"airvoice/internal/ingest"
	"airvoice/internal/pipeline"
)

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{"message": "Airline Invoice Workflow API"})
}

func (s *Server) handleListPassengers(w http.ResponseWriter, _ *http.Request) {
	passengers, err := s.db.ListPassengers()
	if err != nil {
		s.respondError(w, err)
		return
	}
	if passengers == nil {
		passengers = []internal.Passenger{}
	}
	s.respond(w, http.StatusOK, passengers)
}

func (s *Server) handleBulkCreate(w http.ResponseWriter, r *http.Request) {
	var candidates []internal.PassengerCandidate
	if err := json.NewDecoder(r.Body).Decode(&candidates); err != nil {
		s.respondError(w, errs.Validation("malformed passenger payload"))
		return
	}

	result, err := s.registry.BulkCreate(candidates)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{
		"message":    fmt.Sprintf("Created %d new passengers", result.CreatedCount),
		"passengers": result.Created,
	})
}

func (s *Server) handleListInvoices(w http.ResponseWriter, _ *http.Request) {
	invoices, err := s.db.ListInvoices()
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, publicInvoices(invoices))
}

func (s *Server) handleHighValue(w http.ResponseWriter, r *http.Request) {
	threshold := s.cfg.HighValueThreshold
	if raw := r.URL.Query().Get("amount"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			s.respondError(w, errs.Validation("amount must be numeric"))
			return
		}
		threshold = parsed
	}

	invoices, err := s.db.ListInvoicesAbove(threshold)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, publicInvoices(invoices))
}

func (s *Server) handleSeed(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.respondError(w, errs.Validation("unreadable payload"))
		return
	}
	records, err := ingest.DecodePayload(body)
	if err != nil {
		s.respondError(w, err)
		return
	}

	result, err := s.ingestor.Ingest(records)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, result)
}

func (s *Server) handleFlag(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, errs.Validation("invoice id must be numeric"))
		return
	}
	flag := true
	if raw := r.URL.Query().Get("flag"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			s.respondError(w, errs.Validation("flag must be boolean"))
			return
		}
		flag = parsed
	}

	if err := s.db.SetInvoiceFlag(id, flag); err != nil {
		s.respondError(w, err)
		return
	}
	verb := "flagged"
	if !flag {
		verb = "unflagged"
	}
	s.respond(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Invoice %d %s for review", id, verb),
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	pnr := chi.URLParam(r, "pnr")
	result, err := s.pipeline.Download(r.Context(), pnr)
	if err != nil {
		s.respondError(w, err)
		return
	}
	result.PDFPath = documentURL(result.PDFPath)
	s.respond(w, http.StatusOK, result)
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	pnr := chi.URLParam(r, "pnr")
	result, err := s.pipeline.Parse(r.Context(), pnr)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, result)
}

type importRequest struct {
	Invoices     json.RawMessage `json:"invoices"`
	AutoDownload *bool           `json:"auto_download"`
	AutoParse    *bool           `json:"auto_parse"`
}

type importResponse struct {
	Seeded     int                           `json:"seeded"`
	Candidates []internal.PassengerCandidate `json:"candidates"`
	Created    int                           `json:"created"`
	Report     *internal.BatchReport         `json:"report,omitempty"`
}

// handleImport runs the full importer flow: seed invoices, register the
// derived passengers, then optionally download and parse each PNR.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, errs.Validation("malformed import payload"))
		return
	}
	records, err := ingest.DecodePayload(req.Invoices)
	if err != nil {
		s.respondError(w, err)
		return
	}

	seeded, err := s.ingestor.Ingest(records)
	if err != nil {
		s.respondError(w, err)
		return
	}
	created, err := s.registry.BulkCreate(seeded.Candidates)
	if err != nil {
		s.respondError(w, err)
		return
	}

	resp := importResponse{
		Seeded:     seeded.Seeded,
		Candidates: seeded.Candidates,
		Created:    created.CreatedCount,
	}

	download := req.AutoDownload == nil || *req.AutoDownload
	parse := req.AutoParse == nil || *req.AutoParse
	if download {
		pnrs := make([]string, 0, len(seeded.Candidates))
		for _, c := range seeded.Candidates {
			pnrs = append(pnrs, c.PNR)
		}
		report := s.pipeline.ProcessBatch(r.Context(), pnrs, parse)
		resp.Report = &report
	}

	s.respond(w, http.StatusOK, resp)
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	invoices, err := s.db.ListInvoices()
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, pipeline.Summarize(invoices, s.cfg.SummaryIncludeUnknown))
}

func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request) {
	if err := s.db.Reset(); err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"message": "all passenger and invoice state cleared"})
}

func publicInvoices(invoices []internal.Invoice) []internal.Invoice {
	out := make([]internal.Invoice, 0, len(invoices))
	for _, inv := range invoices {
		inv.PDFPath = documentURL(inv.PDFPath)
		out = append(out, inv)
	}
	return out
}

func (s *Server) respond(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Errorw("response encoding failed", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errs.IsValidation(err), errors.Is(err, errs.ErrPrecondition):
		status = http.StatusBadRequest
	case errors.Is(err, errs.ErrNotFound):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		s.log.Errorw("request failed", "error", err)
	}
	s.respond(w, status, map[string]string{"detail": err.Error()})
}
