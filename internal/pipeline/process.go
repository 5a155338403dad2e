// Package pipeline drives each passenger's PNR through the download and parse
// stages and aggregates parsed invoices.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"airvoice/internal"
	"airvoice/internal/errs"
	"airvoice/internal/portal"
	"airvoice/internal/storage"
	"airvoice/internal/util"
)

type Service struct {
	db     *storage.DB
	source portal.DocumentSource
	log    *zap.SugaredLogger
}

func NewService(db *storage.DB, source portal.DocumentSource, log *zap.SugaredLogger) *Service {
	return &Service{db: db, source: source, log: log}
}

type DownloadResult struct {
	PNR     string          `json:"pnr"`
	Status  internal.Status `json:"status"`
	Message string          `json:"message"`
	PDFPath *string         `json:"pdf_path"`
}

// Download fetches the invoice document for a PNR through the external
// source. The stage status is Pending for the duration of the blocking fetch
// and ends at Success, NotFound or Error. Re-running on a passenger already
// at Success re-fetches and overwrites the stored document path.
func (s *Service) Download(ctx context.Context, pnr string) (DownloadResult, error) {
	passenger, err := s.db.GetPassengerByPNR(pnr)
	if err != nil {
		return DownloadResult{}, err
	}
	if passenger == nil {
		return DownloadResult{}, fmt.Errorf("passenger with PNR %s: %w", pnr, errs.ErrNotFound)
	}

	if err := s.db.UpdateDownloadStatus(pnr, internal.StatusPending); err != nil {
		return DownloadResult{}, err
	}

	fetched, err := s.source.Fetch(ctx, pnr, passenger.Name)
	if err != nil {
		fetched = portal.FetchResult{Status: internal.StatusError, Message: err.Error()}
	}
	status := fetched.Status
	switch status {
	case internal.StatusSuccess, internal.StatusNotFound, internal.StatusError:
	default:
		status = internal.StatusError
	}

	if err := s.db.UpdateDownloadStatus(pnr, status); err != nil {
		return DownloadResult{}, err
	}

	result := DownloadResult{PNR: pnr, Status: status, Message: fetched.Message}
	if status == internal.StatusSuccess && fetched.DocumentPath != "" {
		if err := s.db.SetInvoiceDocument(pnr, fetched.DocumentPath); err != nil {
			return DownloadResult{}, err
		}
		result.PDFPath = util.StringPtr(fetched.DocumentPath)
	}

	s.log.Infow("download finished", "pnr", pnr, "status", status)
	return result, nil
}

type ParseResult struct {
	PNR     string                  `json:"pnr"`
	Status  internal.Status         `json:"status"`
	Message string                  `json:"message"`
	Fields  *internal.InvoiceFields `json:"data"`
}

// Parse extracts invoice fields from the downloaded document. It requires a
// successful download first; invoking it earlier fails with a precondition
// error and mutates nothing. An extraction failure is not an error to the
// caller: it is recorded as parse_status = Error and no invoice row is
// touched.
func (s *Service) Parse(ctx context.Context, pnr string) (ParseResult, error) {
	passenger, err := s.db.GetPassengerByPNR(pnr)
	if err != nil {
		return ParseResult{}, err
	}
	if passenger == nil {
		return ParseResult{}, fmt.Errorf("passenger with PNR %s: %w", pnr, errs.ErrNotFound)
	}
	if passenger.DownloadStatus != internal.StatusSuccess {
		return ParseResult{}, fmt.Errorf(
			"download for PNR %s has status %s: %w", pnr, passenger.DownloadStatus, errs.ErrPrecondition)
	}

	invoice, err := s.db.GetInvoiceByPNR(pnr)
	if err != nil {
		return ParseResult{}, err
	}
	if invoice == nil || invoice.PDFPath == nil {
		return ParseResult{}, fmt.Errorf("invoice document for PNR %s: %w", pnr, errs.ErrNotFound)
	}

	if err := s.db.UpdateParseStatus(pnr, internal.StatusPending); err != nil {
		return ParseResult{}, err
	}

	fields, err := ExtractFields(*invoice.PDFPath)
	if err != nil {
		if uerr := s.db.UpdateParseStatus(pnr, internal.StatusError); uerr != nil {
			return ParseResult{}, uerr
		}
		s.log.Warnw("parse failed", "pnr", pnr, "error", err)
		return ParseResult{PNR: pnr, Status: internal.StatusError, Message: err.Error()}, nil
	}

	if err := s.db.UpsertParsedInvoice(pnr, fields); err != nil {
		return ParseResult{}, err
	}
	if err := s.db.UpdateParseStatus(pnr, internal.StatusSuccess); err != nil {
		return ParseResult{}, err
	}

	s.log.Infow("parse finished", "pnr", pnr, "status", internal.StatusSuccess)
	return ParseResult{
		PNR:     pnr,
		Status:  internal.StatusSuccess,
		Message: fmt.Sprintf("invoice parsed for PNR %s", pnr),
		Fields:  &fields,
	}, nil
}

// ProcessBatch runs download (and, when enabled, parse) for each PNR in
// order. One PNR failing never aborts the rest; per-item outcomes are
// collected into the report. Processed counts PNRs whose download call
// completed, whatever status it ended with.
func (s *Service) ProcessBatch(ctx context.Context, pnrs []string, parse bool) internal.BatchReport {
	report := internal.BatchReport{Items: make([]internal.BatchItem, 0, len(pnrs))}
	for _, pnr := range pnrs {
		item := internal.BatchItem{
			PNR:            pnr,
			DownloadStatus: internal.StatusNotStarted,
			ParseStatus:    internal.StatusNotStarted,
		}

		downloaded, err := s.Download(ctx, pnr)
		if err != nil {
			item.Err = err.Error()
			s.log.Warnw("batch item failed", "pnr", pnr, "stage", "download", "error", err)
			report.Items = append(report.Items, item)
			continue
		}
		item.DownloadStatus = downloaded.Status
		report.Processed++

		if parse && downloaded.Status == internal.StatusSuccess {
			parsed, err := s.Parse(ctx, pnr)
			if err != nil {
				item.Err = err.Error()
				s.log.Warnw("batch item failed", "pnr", pnr, "stage", "parse", "error", err)
			} else {
				item.ParseStatus = parsed.Status
			}
		}
		report.Items = append(report.Items, item)
	}
	return report
}
