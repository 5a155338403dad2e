package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"airvoice/internal"
	"airvoice/internal/errs"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS passengers (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  pnr TEXT NOT NULL UNIQUE,
  downloadStatus TEXT NOT NULL DEFAULT 'NotStarted',
  parseStatus TEXT NOT NULL DEFAULT 'NotStarted',
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_passengers_name ON passengers(name);

CREATE TABLE IF NOT EXISTS invoices (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  pnr TEXT NOT NULL UNIQUE,
  invoiceNumber TEXT,
  invoiceDate TEXT,
  airline TEXT,
  amount REAL,
  gstin TEXT,
  pdfPath TEXT,
  flagForReview INTEGER NOT NULL DEFAULT 0,
  source TEXT NOT NULL,
  rawJson TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_invoices_airline ON invoices(airline);
CREATE INDEX IF NOT EXISTS idx_invoices_amount ON invoices(amount);
`

	_, err := d.conn.Exec(schema)
	return err
}

// wrap tags collaborator failures so callers can distinguish a flaky store
// from their own bad input.
func wrap(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", errs.ErrStorage, err)
}

// CreatePassengerIfAbsent inserts a passenger with both statuses NotStarted.
// Returns nil when the PNR is already registered; the existing row is left
// untouched.
func (d *DB) CreatePassengerIfAbsent(name, pnr string) (*internal.Passenger, error) {
	res, err := d.conn.Exec(`
INSERT INTO passengers (name, pnr) VALUES (?, ?)
ON CONFLICT(pnr) DO NOTHING
`, name, pnr)
	if err != nil {
		return nil, wrap(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, wrap(err)
	}
	if affected == 0 {
		return nil, nil
	}
	return d.GetPassengerByPNR(pnr)
}

func (d *DB) GetPassengerByPNR(pnr string) (*internal.Passenger, error) {
	var p internal.Passenger
	err := d.conn.QueryRow(`
SELECT id, name, pnr, downloadStatus, parseStatus, createdAt
FROM passengers WHERE pnr = ?
`, pnr).Scan(&p.ID, &p.Name, &p.PNR, &p.DownloadStatus, &p.ParseStatus, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap(err)
	}
	return &p, nil
}

func (d *DB) ListPassengers() ([]internal.Passenger, error) {
	rows, err := d.conn.Query(`
SELECT id, name, pnr, downloadStatus, parseStatus, createdAt
FROM passengers ORDER BY id ASC
`)
	if err != nil {
		return nil, wrap(err)
	}
	defer rows.Close()

	var out []internal.Passenger
	for rows.Next() {
		var p internal.Passenger
		if err := rows.Scan(&p.ID, &p.Name, &p.PNR, &p.DownloadStatus, &p.ParseStatus, &p.CreatedAt); err != nil {
			return nil, wrap(err)
		}
		out = append(out, p)
	}
	return out, wrap(rows.Err())
}

func (d *DB) UpdateDownloadStatus(pnr string, status internal.Status) error {
	_, err := d.conn.Exec(`
UPDATE passengers SET downloadStatus = ?, updatedAt = CURRENT_TIMESTAMP WHERE pnr = ?
`, string(status), pnr)
	return wrap(err)
}

func (d *DB) UpdateParseStatus(pnr string, status internal.Status) error {
	_, err := d.conn.Exec(`
UPDATE passengers SET parseStatus = ?, updatedAt = CURRENT_TIMESTAMP WHERE pnr = ?
`, string(status), pnr)
	return wrap(err)
}

// SeedInvoices writes seeded rows in one transaction: either the whole batch
// lands or none of it. Re-seeding a PNR refreshes its metadata.
func (d *DB) SeedInvoices(invoices []internal.Invoice) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return wrap(err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
INSERT INTO invoices (pnr, invoiceNumber, invoiceDate, airline, amount, gstin, source, rawJson)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(pnr) DO UPDATE SET
  invoiceNumber=excluded.invoiceNumber,
  invoiceDate=excluded.invoiceDate,
  airline=excluded.airline,
  amount=excluded.amount,
  gstin=excluded.gstin,
  source=excluded.source,
  rawJson=excluded.rawJson,
  updatedAt=CURRENT_TIMESTAMP
`)
	if err != nil {
		return wrap(err)
	}
	defer stmt.Close()

	for _, inv := range invoices {
		if _, err := stmt.Exec(
			inv.PNR, inv.InvoiceNumber, inv.InvoiceDate, inv.Airline, inv.Amount,
			inv.GSTIN, string(inv.Source), inv.RawJSON,
		); err != nil {
			return wrap(err)
		}
	}

	return wrap(tx.Commit())
}

func (d *DB) GetInvoiceByPNR(pnr string) (*internal.Invoice, error) {
	return d.getInvoice(`WHERE pnr = ?`, pnr)
}

func (d *DB) GetInvoiceByID(id int) (*internal.Invoice, error) {
	return d.getInvoice(`WHERE id = ?`, id)
}

func (d *DB) getInvoice(where string, arg any) (*internal.Invoice, error) {
	var inv internal.Invoice
	var flag int
	err := d.conn.QueryRow(`
SELECT id, pnr, invoiceNumber, invoiceDate, airline, amount, gstin, pdfPath, flagForReview, source, rawJson, createdAt
FROM invoices `+where, arg).Scan(
		&inv.ID, &inv.PNR, &inv.InvoiceNumber, &inv.InvoiceDate, &inv.Airline, &inv.Amount,
		&inv.GSTIN, &inv.PDFPath, &flag, &inv.Source, &inv.RawJSON, &inv.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap(err)
	}
	inv.FlagForReview = flag != 0
	return &inv, nil
}

// SetInvoiceDocument records the stored document path after a successful
// download, creating the invoice row when the PNR was never seeded.
func (d *DB) SetInvoiceDocument(pnr, path string) error {
	_, err := d.conn.Exec(`
INSERT INTO invoices (pnr, pdfPath, source) VALUES (?, ?, ?)
ON CONFLICT(pnr) DO UPDATE SET
  pdfPath=excluded.pdfPath,
  updatedAt=CURRENT_TIMESTAMP
`, pnr, path, string(internal.SourceParsed))
	return wrap(err)
}

// UpsertParsedInvoice writes the extracted fields onto the invoice row for the
// PNR and marks it as parsed. The row must exist (the download stage creates
// it).
func (d *DB) UpsertParsedInvoice(pnr string, fields internal.InvoiceFields) error {
	res, err := d.conn.Exec(`
UPDATE invoices SET
  invoiceNumber = ?,
  invoiceDate = ?,
  airline = ?,
  amount = ?,
  gstin = ?,
  source = ?,
  updatedAt = CURRENT_TIMESTAMP
WHERE pnr = ?
`, fields.InvoiceNumber, fields.InvoiceDate, fields.Airline, fields.Amount, fields.GSTIN,
		string(internal.SourceParsed), pnr)
	if err != nil {
		return wrap(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return wrap(err)
	}
	if affected == 0 {
		return fmt.Errorf("invoice for pnr %s: %w", pnr, errs.ErrNotFound)
	}
	return nil
}

func (d *DB) ListInvoices() ([]internal.Invoice, error) {
	return d.listInvoices(``)
}

// ListInvoicesAbove returns invoices with an amount at or over the threshold.
func (d *DB) ListInvoicesAbove(amount float64) ([]internal.Invoice, error) {
	return d.listInvoices(`WHERE amount IS NOT NULL AND amount >= ?`, amount)
}

func (d *DB) listInvoices(where string, args ...any) ([]internal.Invoice, error) {
	rows, err := d.conn.Query(`
SELECT id, pnr, invoiceNumber, invoiceDate, airline, amount, gstin, pdfPath, flagForReview, source, rawJson, createdAt
FROM invoices `+where+` ORDER BY id ASC`, args...)
	if err != nil {
		return nil, wrap(err)
	}
	defer rows.Close()

	var out []internal.Invoice
	for rows.Next() {
		var inv internal.Invoice
		var flag int
		if err := rows.Scan(
			&inv.ID, &inv.PNR, &inv.InvoiceNumber, &inv.InvoiceDate, &inv.Airline, &inv.Amount,
			&inv.GSTIN, &inv.PDFPath, &flag, &inv.Source, &inv.RawJSON, &inv.CreatedAt,
		); err != nil {
			return nil, wrap(err)
		}
		inv.FlagForReview = flag != 0
		out = append(out, inv)
	}
	return out, wrap(rows.Err())
}

// SetInvoiceFlag toggles flag_for_review on one invoice.
func (d *DB) SetInvoiceFlag(id int, flag bool) error {
	value := 0
	if flag {
		value = 1
	}
	res, err := d.conn.Exec(`
UPDATE invoices SET flagForReview = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?
`, value, id)
	if err != nil {
		return wrap(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return wrap(err)
	}
	if affected == 0 {
		return fmt.Errorf("invoice %d: %w", id, errs.ErrNotFound)
	}
	return nil
}

// Reset clears all passenger and invoice state. Used at process bootstrap.
func (d *DB) Reset() error {
	tx, err := d.conn.Begin()
	if err != nil {
		return wrap(err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM invoices`); err != nil {
		return wrap(err)
	}
	if _, err := tx.Exec(`DELETE FROM passengers`); err != nil {
		return wrap(err)
	}
	return wrap(tx.Commit())
}
