// Package server exposes the ingestion and processing pipeline over HTTP.
package server

import (
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"airvoice/internal/config"
	"airvoice/internal/ingest"
	"airvoice/internal/pipeline"
	"airvoice/internal/registry"
	"airvoice/internal/storage"
)

type Server struct {
	db       *storage.DB
	ingestor *ingest.Ingestor
	registry *registry.Registry
	pipeline *pipeline.Service
	cfg      config.Config
	log      *zap.SugaredLogger
}

func New(db *storage.DB, ingestor *ingest.Ingestor, reg *registry.Registry, pipe *pipeline.Service, cfg config.Config, log *zap.SugaredLogger) *Server {
	return &Server{db: db, ingestor: ingestor, registry: reg, pipeline: pipe, cfg: cfg, log: log}
}

func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/", s.handleRoot)

	r.Get("/passengers", s.handleListPassengers)
	r.Post("/passengers/bulk", s.handleBulkCreate)

	r.Get("/invoices", s.handleListInvoices)
	r.Get("/invoices/high-value", s.handleHighValue)
	r.Post("/invoices/seed", s.handleSeed)
	r.Put("/invoices/{id}/flag", s.handleFlag)

	r.Post("/download/{pnr}", s.handleDownload)
	r.Post("/parse/{pnr}", s.handleParse)
	r.Post("/import", s.handleImport)

	r.Get("/summary", s.handleSummary)
	r.Post("/reset", s.handleReset)

	// Stored invoice documents, served under the URL paths that invoice
	// pdf_path fields are rewritten to.
	fs := http.StripPrefix("/files/", http.FileServer(http.Dir(s.cfg.InvoicesDir)))
	r.Get("/files/*", fs.ServeHTTP)

	return r
}

// documentURL maps a stored document path to its public URL path.
func documentURL(fsPath *string) *string {
	if fsPath == nil || *fsPath == "" {
		return nil
	}
	url := "/files/" + filepath.Base(*fsPath)
	return &url
}
