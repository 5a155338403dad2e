package internal

// Status tracks one stage (download or parse) of a passenger record.
type Status string

const (
	StatusNotStarted Status = "NotStarted"
	StatusPending    Status = "Pending"
	StatusSuccess    Status = "Success"
	StatusError      Status = "Error"
	StatusNotFound   Status = "NotFound"
)

type InvoiceSource string

const (
	SourceSeeded InvoiceSource = "seeded"
	SourceParsed InvoiceSource = "parsed"
)

type Passenger struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	PNR            string `json:"pnr"`
	DownloadStatus Status `json:"download_status"`
	ParseStatus    Status `json:"parse_status"`
	CreatedAt      string `json:"created_at"`
}

// PassengerCandidate is a row requested through bulk create. Candidates are
// usually derived from seeded invoices (name from the ticket Name field, PNR
// from the invoice number) but can also be posted directly.
type PassengerCandidate struct {
	Name string `json:"name"`
	PNR  string `json:"pnr"`
}

type Invoice struct {
	ID            int           `json:"id"`
	PNR           string        `json:"pnr"`
	InvoiceNumber *string       `json:"invoice_number"`
	InvoiceDate   *string       `json:"invoice_date"`
	Airline       *string       `json:"airline"`
	Amount        *float64      `json:"amount"`
	GSTIN         *string       `json:"gstin"`
	PDFPath       *string       `json:"pdf_path"`
	FlagForReview bool          `json:"flag_for_review"`
	Source        InvoiceSource `json:"source"`
	RawJSON       *string       `json:"-"`
	CreatedAt     string        `json:"created_at"`
}

// InvoiceFields is what the parse stage extracts from a downloaded document.
type InvoiceFields struct {
	InvoiceNumber *string  `json:"invoice_number"`
	InvoiceDate   *string  `json:"invoice_date"`
	Airline       *string  `json:"airline"`
	Amount        *float64 `json:"amount"`
	GSTIN         *string  `json:"gstin"`
}

type SummaryRow struct {
	Airline       string  `json:"airline"`
	TotalAmount   float64 `json:"total_amount"`
	InvoiceCount  int     `json:"invoice_count"`
	AverageAmount float64 `json:"average_amount"`
}

// BatchItem records the outcome of one PNR in a batch run. Per-item failures
// land in Err and never abort the batch.
type BatchItem struct {
	PNR            string `json:"pnr"`
	DownloadStatus Status `json:"download_status"`
	ParseStatus    Status `json:"parse_status"`
	Err            string `json:"error,omitempty"`
}

type BatchReport struct {
	Items     []BatchItem `json:"items"`
	Processed int         `json:"processed"`
}
