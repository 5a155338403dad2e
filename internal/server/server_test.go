package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"airvoice/internal"
	"airvoice/internal/config"
	"airvoice/internal/ingest"
	"airvoice/internal/logger"
	"airvoice/internal/pipeline"
	"airvoice/internal/portal"
	"airvoice/internal/registry"
	"airvoice/internal/storage"
)

// textSource renders plain-text invoices synchronously, no portal latency.
type textSource struct {
	dir string
}

func (s *textSource) Fetch(_ context.Context, pnr, passengerName string) (portal.FetchResult, error) {
	path := filepath.Join(s.dir, "invoice_"+pnr+".txt")
	text := fmt.Sprintf(
		"Invoice Number: %s\nDate: 2026-03-01\nPassenger Name: %s\nAirline: Vistara\nAmount: INR 8400.00\n",
		pnr, passengerName,
	)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return portal.FetchResult{Status: internal.StatusError, Message: err.Error()}, nil
	}
	return portal.FetchResult{Status: internal.StatusSuccess, DocumentPath: path}, nil
}

func newTestServer(t *testing.T) (http.Handler, *storage.DB) {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	cfg := config.Config{
		InvoicesDir:           dir,
		NamePolicy:            config.NamePolicyTicket,
		SummaryIncludeUnknown: true,
		HighValueThreshold:    10000,
	}
	log := logger.NewNop()
	svc := pipeline.NewService(db, &textSource{dir: dir}, log)
	srv := New(db, ingest.New(db, cfg), registry.New(db), svc, cfg, log)
	return srv.Router(), db
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRoot(t *testing.T) {
	h, _ := newTestServer(t)
	rec := doJSON(t, h, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSeedAndListInvoices(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/invoices/seed",
		`[{"Invoice Number":"INV-AI-00001","Name":"SAINI / VIKAS MR","Airline":"Air India","Amount":9800}]`)
	if rec.Code != http.StatusOK {
		t.Fatalf("seed status = %d: %s", rec.Code, rec.Body)
	}
	var seeded ingest.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &seeded); err != nil {
		t.Fatal(err)
	}
	if seeded.Seeded != 1 || len(seeded.Candidates) != 1 {
		t.Fatalf("seed result = %+v", seeded)
	}
	if seeded.Candidates[0].Name != "MR VIKAS SAINI" {
		t.Errorf("candidate name = %q", seeded.Candidates[0].Name)
	}

	rec = doJSON(t, h, http.MethodGet, "/invoices", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var invoices []internal.Invoice
	if err := json.Unmarshal(rec.Body.Bytes(), &invoices); err != nil {
		t.Fatal(err)
	}
	if len(invoices) != 1 || invoices[0].PNR != "INV-AI-00001" {
		t.Errorf("invoices = %+v", invoices)
	}
}

func TestSeedRejectsNonArray(t *testing.T) {
	h, _ := newTestServer(t)
	rec := doJSON(t, h, http.MethodPost, "/invoices/seed", `{"Invoice Number":"X"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestBulkCreatePassengers(t *testing.T) {
	h, _ := newTestServer(t)

	body := `[{"name":"MR VIKAS SAINI","pnr":"P1"},{"name":"MS PRIYA MEHTA","pnr":"P2"}]`
	rec := doJSON(t, h, http.MethodPost, "/passengers/bulk", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	// Idempotent: posting the same candidates again creates nothing.
	rec = doJSON(t, h, http.MethodPost, "/passengers/bulk", body)
	var resp struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.Message, "0 new passengers") {
		t.Errorf("message = %q", resp.Message)
	}

	rec = doJSON(t, h, http.MethodGet, "/passengers", "")
	var passengers []internal.Passenger
	if err := json.Unmarshal(rec.Body.Bytes(), &passengers); err != nil {
		t.Fatal(err)
	}
	if len(passengers) != 2 {
		t.Errorf("got %d passengers, want 2", len(passengers))
	}
}

func TestBulkCreateValidation(t *testing.T) {
	h, _ := newTestServer(t)
	rec := doJSON(t, h, http.MethodPost, "/passengers/bulk", `[{"name":"","pnr":"P1"}]`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestDownloadAndParseFlow(t *testing.T) {
	h, _ := newTestServer(t)

	doJSON(t, h, http.MethodPost, "/passengers/bulk", `[{"name":"MR VIKAS SAINI","pnr":"P1"}]`)

	rec := doJSON(t, h, http.MethodPost, "/download/P1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("download status = %d: %s", rec.Code, rec.Body)
	}
	var download pipeline.DownloadResult
	if err := json.Unmarshal(rec.Body.Bytes(), &download); err != nil {
		t.Fatal(err)
	}
	if download.Status != internal.StatusSuccess {
		t.Fatalf("download = %+v", download)
	}
	if download.PDFPath == nil || !strings.HasPrefix(*download.PDFPath, "/files/") {
		t.Errorf("pdf_path = %v, want /files/ URL", download.PDFPath)
	}

	rec = doJSON(t, h, http.MethodPost, "/parse/P1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("parse status = %d: %s", rec.Code, rec.Body)
	}
	var parse pipeline.ParseResult
	if err := json.Unmarshal(rec.Body.Bytes(), &parse); err != nil {
		t.Fatal(err)
	}
	if parse.Status != internal.StatusSuccess || parse.Fields == nil {
		t.Fatalf("parse = %+v", parse)
	}
	if parse.Fields.Airline == nil || *parse.Fields.Airline != "Vistara" {
		t.Errorf("airline = %v", parse.Fields.Airline)
	}

	// The stored document is reachable through the static file route.
	rec = doJSON(t, h, http.MethodGet, *download.PDFPath, "")
	if rec.Code != http.StatusOK {
		t.Errorf("document fetch status = %d", rec.Code)
	}
}

func TestDownloadUnknownPNR(t *testing.T) {
	h, _ := newTestServer(t)
	rec := doJSON(t, h, http.MethodPost, "/download/GHOST", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestParseBeforeDownload(t *testing.T) {
	h, _ := newTestServer(t)
	doJSON(t, h, http.MethodPost, "/passengers/bulk", `[{"name":"A","pnr":"P1"}]`)

	rec := doJSON(t, h, http.MethodPost, "/parse/P1", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestImportFlow(t *testing.T) {
	h, db := newTestServer(t)

	body := `{"invoices":[{"Invoice Number":"INV-UK-00031","Name":"MEHTA / PRIYA MS","Airline":"Vistara","Amount":8400}]}`
	rec := doJSON(t, h, http.MethodPost, "/import", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d: %s", rec.Code, rec.Body)
	}

	var resp importResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Seeded != 1 || resp.Created != 1 || resp.Report == nil {
		t.Fatalf("import response = %+v", resp)
	}
	if resp.Report.Items[0].ParseStatus != internal.StatusSuccess {
		t.Errorf("report item = %+v", resp.Report.Items[0])
	}

	p, err := db.GetPassengerByPNR("INV-UK-00031")
	if err != nil {
		t.Fatal(err)
	}
	if p == nil || p.Name != "MS PRIYA MEHTA" {
		t.Errorf("registered passenger = %+v", p)
	}
}

func TestImportWithoutProcessing(t *testing.T) {
	h, _ := newTestServer(t)

	body := `{"invoices":[{"Invoice Number":"X1"}],"auto_download":false}`
	rec := doJSON(t, h, http.MethodPost, "/import", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var resp importResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Report != nil {
		t.Errorf("report present with auto_download=false: %+v", resp.Report)
	}
}

func TestHighValueFilter(t *testing.T) {
	h, _ := newTestServer(t)
	doJSON(t, h, http.MethodPost, "/invoices/seed",
		`[{"Invoice Number":"A","Amount":5000},{"Invoice Number":"B","Amount":15000}]`)

	rec := doJSON(t, h, http.MethodGet, "/invoices/high-value", "")
	var invoices []internal.Invoice
	if err := json.Unmarshal(rec.Body.Bytes(), &invoices); err != nil {
		t.Fatal(err)
	}
	if len(invoices) != 1 || invoices[0].PNR != "B" {
		t.Errorf("default threshold result = %+v", invoices)
	}

	rec = doJSON(t, h, http.MethodGet, "/invoices/high-value?amount=1000", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &invoices); err != nil {
		t.Fatal(err)
	}
	if len(invoices) != 2 {
		t.Errorf("custom threshold returned %d invoices, want 2", len(invoices))
	}

	rec = doJSON(t, h, http.MethodGet, "/invoices/high-value?amount=abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad amount status = %d, want 400", rec.Code)
	}
}

func TestFlagInvoice(t *testing.T) {
	h, db := newTestServer(t)
	doJSON(t, h, http.MethodPost, "/invoices/seed", `[{"Invoice Number":"F1"}]`)
	inv, err := db.GetInvoiceByPNR("F1")
	if err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, h, http.MethodPut, fmt.Sprintf("/invoices/%d/flag", inv.ID), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("flag status = %d: %s", rec.Code, rec.Body)
	}
	got, _ := db.GetInvoiceByID(inv.ID)
	if !got.FlagForReview {
		t.Error("flag not set")
	}

	rec = doJSON(t, h, http.MethodPut, fmt.Sprintf("/invoices/%d/flag?flag=false", inv.ID), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unflag status = %d", rec.Code)
	}
	got, _ = db.GetInvoiceByID(inv.ID)
	if got.FlagForReview {
		t.Error("flag not cleared")
	}

	rec = doJSON(t, h, http.MethodPut, "/invoices/99999/flag", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing invoice status = %d, want 404", rec.Code)
	}
}

func TestSummaryEndpoint(t *testing.T) {
	h, _ := newTestServer(t)
	doJSON(t, h, http.MethodPost, "/invoices/seed",
		`[{"Invoice Number":"1","Airline":"Air India","Amount":100},
		  {"Invoice Number":"2","Airline":"IndiGo","Amount":200},
		  {"Invoice Number":"3","Airline":"Air India","Amount":50}]`)

	rec := doJSON(t, h, http.MethodGet, "/summary", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var rows []internal.SummaryRow
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0].TotalAmount != 150 || rows[0].AverageAmount != 75 {
		t.Errorf("summary = %+v", rows)
	}
}

func TestResetEndpoint(t *testing.T) {
	h, db := newTestServer(t)
	doJSON(t, h, http.MethodPost, "/invoices/seed", `[{"Invoice Number":"X1"}]`)

	rec := doJSON(t, h, http.MethodPost, "/reset", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("reset status = %d", rec.Code)
	}
	invoices, err := db.ListInvoices()
	if err != nil {
		t.Fatal(err)
	}
	if len(invoices) != 0 {
		t.Errorf("reset left %d invoices", len(invoices))
	}
}
